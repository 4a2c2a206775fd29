package imageprocessor

import (
	"encoding/base64"
	"fmt"
	"strings"
	"sync"

	"clipsim/logging"

	"github.com/barasher/go-exiftool"
	"gocv.io/x/gocv"
)

// previewTags lists the embedded JPEG tags tried, largest first
var previewTags = []string{
	"JpgFromRaw",
	"LargestImagePreview",
	"PreviewImage",
	"OtherImage",
	"ThumbnailImage",
}

// RawPreviewLoader decodes RAW camera files through their embedded JPEG
// preview, extracted with a long-lived exiftool process. Without exiftool
// the file is scanned for JPEG streams instead.
type RawPreviewLoader struct {
	BaseImageLoader

	mu         sync.Mutex
	et         *exiftool.Exiftool
	noExiftool bool
}

// NewRawPreviewLoader creates a RAW loader; exiftool starts on first use
func NewRawPreviewLoader() *RawPreviewLoader {
	return &RawPreviewLoader{
		BaseImageLoader: BaseImageLoader{
			SupportedFormats: []FormatType{
				FormatRAW,
				FormatCR2,
				FormatCR3,
				FormatNEF,
				FormatARW,
				FormatDNG,
			},
		},
	}
}

// LoadImage extracts the largest embedded preview and decodes it
func (l *RawPreviewLoader) LoadImage(path string) (gocv.Mat, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.et == nil && !l.noExiftool {
		et, err := exiftool.NewExiftool(exiftool.ExtractAllBinaryMetadata())
		if err != nil {
			logging.LogWarning("exiftool unavailable, scanning RAW files for embedded JPEGs: %v", err)
			l.noExiftool = true
		} else {
			l.et = et
		}
	}
	if l.et == nil {
		return loadEmbeddedPreview(path)
	}

	infos := l.et.ExtractMetadata(path)
	if len(infos) == 0 || infos[0].Err != nil {
		if len(infos) > 0 {
			logging.LogError("Error extracting metadata from %s: %v", path, infos[0].Err)
		}
		return loadEmbeddedPreview(path)
	}

	for _, tag := range previewTags {
		raw, err := infos[0].GetString(tag)
		if err != nil {
			continue
		}

		data, err := decodeBinaryField(raw)
		if err != nil {
			logging.LogWarning("Malformed %s in %s: %v", tag, path, err)
			continue
		}

		img, err := gocv.IMDecode(data, gocv.IMReadColor)
		if err != nil {
			logging.LogWarning("OpenCV could not decode %s from %s: %v", tag, path, err)
			continue
		}
		if img.Empty() {
			img.Close()
			logging.LogWarning("Empty %s preview in %s", tag, path)
			continue
		}

		logging.DebugLog("Loaded %s preview from %s", tag, path)
		return img, nil
	}

	return loadEmbeddedPreview(path)
}

// Close stops the exiftool process if it was started
func (l *RawPreviewLoader) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.et == nil {
		return nil
	}
	err := l.et.Close()
	l.et = nil
	return err
}

// decodeBinaryField turns exiftool's "base64:..." JSON encoding into bytes
func decodeBinaryField(value string) ([]byte, error) {
	payload, ok := strings.CutPrefix(value, "base64:")
	if !ok {
		return nil, fmt.Errorf("field is not base64 encoded")
	}
	return base64.StdEncoding.DecodeString(payload)
}
