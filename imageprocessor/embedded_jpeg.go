package imageprocessor

import (
	"bytes"
	"fmt"
	"os"
	"sort"

	"clipsim/logging"

	"gocv.io/x/gocv"
)

var (
	jpegSOI = []byte{0xFF, 0xD8, 0xFF}
	jpegEOI = []byte{0xFF, 0xD9}
)

// maxEmbeddedJPEG bounds a single candidate preview
const maxEmbeddedJPEG = 64 << 20

// embeddedJPEGs returns every JPEG stream in data, largest first.
// RAW containers (CR2, CR3, NEF, ARW, DNG) store their previews as plain
// JPEG streams, so a byte scan finds them without parsing the container.
// A stream's end is found by walking its marker segments, so an EXIF
// thumbnail nested in APP1 does not cut the outer image short; the
// nested thumbnail is reported as a candidate of its own.
func embeddedJPEGs(data []byte) [][]byte {
	var found [][]byte
	for pos := 0; pos < len(data); {
		start := bytes.Index(data[pos:], jpegSOI)
		if start < 0 {
			break
		}
		start += pos

		end, ok := jpegEnd(data, start)
		if !ok {
			next := bytes.Index(data[start+len(jpegSOI):], jpegEOI)
			if next < 0 {
				break
			}
			end = start + len(jpegSOI) + next + len(jpegEOI)
		}

		if end-start <= maxEmbeddedJPEG {
			found = append(found, data[start:end])
		}
		pos = start + len(jpegSOI)
	}

	sort.SliceStable(found, func(i, j int) bool { return len(found[i]) > len(found[j]) })
	return found
}

// jpegEnd walks the marker segments of the stream starting at data[start]
// and returns the offset just past its EOI marker.
func jpegEnd(data []byte, start int) (int, bool) {
	pos := start + 2
	for pos+1 < len(data) {
		if data[pos] != 0xFF {
			return 0, false
		}
		marker := data[pos+1]
		switch {
		case marker == 0xFF:
			// fill byte
			pos++
			continue
		case marker == 0xD9:
			return pos + 2, true
		case marker == 0xD8, marker == 0x00:
			return 0, false
		case marker == 0x01, marker >= 0xD0 && marker <= 0xD7:
			pos += 2
			continue
		}

		if pos+3 >= len(data) {
			return 0, false
		}
		length := int(data[pos+2])<<8 | int(data[pos+3])
		if length < 2 {
			return 0, false
		}
		pos += 2 + length
		if marker == 0xDA {
			pos = scanEntropyCoded(data, pos)
		}
	}
	return 0, false
}

// scanEntropyCoded skips entropy-coded scan data and returns the offset of
// the next real marker. Stuffed zeros, restart markers and fill bytes are
// part of the scan.
func scanEntropyCoded(data []byte, pos int) int {
	for pos+1 < len(data) {
		if data[pos] != 0xFF {
			pos++
			continue
		}
		next := data[pos+1]
		switch {
		case next == 0x00, next >= 0xD0 && next <= 0xD7:
			pos += 2
		case next == 0xFF:
			pos++
		default:
			return pos
		}
	}
	return len(data)
}

// loadEmbeddedPreview decodes the largest embedded JPEG OpenCV accepts
func loadEmbeddedPreview(path string) (gocv.Mat, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("cannot read %s: %w", path, err)
	}

	for _, candidate := range embeddedJPEGs(data) {
		img, err := gocv.IMDecode(candidate, gocv.IMReadColor)
		if err != nil {
			continue
		}
		if img.Empty() {
			img.Close()
			continue
		}
		logging.DebugLog("Loaded %d byte embedded preview from %s", len(candidate), path)
		return img, nil
	}

	return gocv.NewMat(), newImageLoadError("no embedded JPEG preview", path)
}
