package imageprocessor

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePNG(t *testing.T, path string, w, h int, c color.RGBA) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

func TestFormats(t *testing.T) {
	assert.Equal(t, FormatPNG, GetFileFormat("a/b/c.PNG"))
	assert.Equal(t, FormatUnknown, GetFileFormat("notes.txt"))
	assert.Equal(t, FormatCR3, GetFileFormat("IMG_0001.CR3"))
	assert.ElementsMatch(t, []string{".jpg", ".jpeg"}, extensionsFor([]FormatType{FormatJPEG}))
}

func TestRegistryRoutesByExtension(t *testing.T) {
	r := NewImageLoaderRegistry()
	defer r.Close()

	_, isStandard := r.GetLoader("a.png").(*StandardImageLoader)
	assert.True(t, isStandard)
	_, isRaw := r.GetLoader("a.NEF").(*RawPreviewLoader)
	assert.True(t, isRaw)
	assert.Nil(t, r.GetLoader("a.txt"))
	assert.False(t, r.CanLoadFile("a.txt"))
	assert.True(t, r.CanLoadFile("a.webp"))
}

func TestRegistryLoadImageChecksFile(t *testing.T) {
	r := NewImageLoaderRegistry()
	defer r.Close()

	img, err := r.LoadImage(filepath.Join(t.TempDir(), "gone.png"))
	defer img.Close()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "file missing or unreadable")
	assert.Contains(t, err.Error(), "gone.png")

	img2, err := r.LoadImage(filepath.Join(t.TempDir(), "notes.txt"))
	defer img2.Close()
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestLoadImagesFromFolder(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "b.png"), 8, 6, color.RGBA{R: 255, A: 255})
	writePNG(t, filepath.Join(dir, "a.png"), 4, 4, color.RGBA{B: 255, A: 255})
	writePNG(t, filepath.Join(dir, "c.PNG"), 5, 5, color.RGBA{G: 255, A: 255})
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("skip"), 0644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.png"), 0755))

	r := NewImageLoaderRegistry()
	defer r.Close()

	names, images, err := r.LoadImagesFromFolder(dir, ".png")
	require.NoError(t, err)
	defer CloseAll(images)

	require.Equal(t, []string{"a.png", "b.png", "c.PNG"}, names)
	require.Len(t, images, 3)

	assert.Equal(t, 3, images[0].Channels())
	assert.Equal(t, 4, images[0].Rows())
	assert.Equal(t, 6, images[1].Rows())
	assert.Equal(t, 8, images[1].Cols())

	// BGR order: a.png is pure blue, b.png pure red
	assert.Equal(t, uint8(255), images[0].GetVecbAt(0, 0)[0])
	assert.Equal(t, uint8(255), images[1].GetVecbAt(0, 0)[2])
}

func TestLoadImagesFromFolderDefaultsToPNG(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "only.png"), 2, 2, color.RGBA{A: 255})

	r := NewImageLoaderRegistry()
	defer r.Close()

	names, images, err := r.LoadImagesFromFolder(dir, "")
	require.NoError(t, err)
	defer CloseAll(images)
	assert.Equal(t, []string{"only.png"}, names)
}

func TestLoadImagesFromEmptyFolder(t *testing.T) {
	r := NewImageLoaderRegistry()
	defer r.Close()

	names, images, err := r.LoadImagesFromFolder(t.TempDir(), ".png")
	require.NoError(t, err)
	assert.Empty(t, names)
	assert.Empty(t, images)
}

func TestLoadImagesFromFolderErrors(t *testing.T) {
	r := NewImageLoaderRegistry()
	defer r.Close()

	_, _, err := r.LoadImagesFromFolder(filepath.Join(t.TempDir(), "missing"), ".png")
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))

	file := filepath.Join(t.TempDir(), "file.png")
	writePNG(t, file, 2, 2, color.RGBA{A: 255})
	_, _, err = r.LoadImagesFromFolder(file, ".png")
	assert.ErrorIs(t, err, ErrNotDirectory)

	_, _, err = r.LoadImagesFromFolder(t.TempDir(), ".txt")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "good.png"), 2, 2, color.RGBA{A: 255})
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.png"), []byte("not an image"), 0644))
	_, images, err := r.LoadImagesFromFolder(dir, ".png")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken.png")
	assert.Nil(t, images)
}

func TestStandardLoaderFallsBackToGoDecoders(t *testing.T) {
	path := filepath.Join(t.TempDir(), "anim.gif")
	pal := image.NewPaletted(image.Rect(0, 0, 3, 2), color.Palette{color.RGBA{R: 255, A: 255}})
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, gif.Encode(f, pal, nil))
	require.NoError(t, f.Close())

	img, err := NewStandardImageLoader().LoadImage(path)
	require.NoError(t, err)
	defer img.Close()

	assert.Equal(t, 2, img.Rows())
	assert.Equal(t, 3, img.Cols())
	assert.Equal(t, 3, img.Channels())
	assert.Equal(t, uint8(255), img.GetVecbAt(0, 0)[2])
}

func TestGocvMatFromGoImage(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 2, 1))
	src.Set(0, 0, color.RGBA{R: 10, G: 20, B: 30, A: 255})
	src.Set(1, 0, color.RGBA{R: 40, G: 50, B: 60, A: 255})

	mat, err := gocvMatFromGoImage(src)
	require.NoError(t, err)
	defer mat.Close()

	assert.Equal(t, []uint8{30, 20, 10}, []uint8(mat.GetVecbAt(0, 0)))
	assert.Equal(t, []uint8{60, 50, 40}, []uint8(mat.GetVecbAt(0, 1)))
}

func TestGocvMatFromGoImageIgnoresAlpha(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 3, 1))
	src.SetNRGBA(0, 0, color.NRGBA{R: 200, G: 100, B: 50, A: 0})
	src.SetNRGBA(1, 0, color.NRGBA{R: 200, G: 100, B: 50, A: 128})
	src.SetNRGBA(2, 0, color.NRGBA{R: 200, G: 100, B: 50, A: 255})

	mat, err := gocvMatFromGoImage(src)
	require.NoError(t, err)
	defer mat.Close()

	for x := 0; x < 3; x++ {
		assert.Equal(t, []uint8{50, 100, 200}, []uint8(mat.GetVecbAt(0, x)), "x=%d", x)
	}
}

func TestDecodeBinaryField(t *testing.T) {
	data, err := decodeBinaryField("base64:aGVsbG8=")
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), data)

	_, err = decodeBinaryField("(Binary data 1234 bytes)")
	assert.Error(t, err)
}

func TestEmbeddedJPEGsLargestFirst(t *testing.T) {
	small := []byte{0xFF, 0xD8, 0xFF, 0x01, 0xFF, 0xD9}
	large := []byte{0xFF, 0xD8, 0xFF, 0x01, 0x02, 0x03, 0x04, 0xFF, 0xD9}

	var data []byte
	data = append(data, []byte("ftypcrx junk")...)
	data = append(data, small...)
	data = append(data, 0x00, 0x11)
	data = append(data, large...)
	data = append(data, 0xFF, 0xD8, 0xFF, 0x05) // unterminated

	found := embeddedJPEGs(data)
	require.Len(t, found, 2)
	assert.Equal(t, large, found[0])
	assert.Equal(t, small, found[1])

	assert.Empty(t, embeddedJPEGs([]byte("no markers here")))
}

func TestEmbeddedJPEGsSkipsNestedThumbnail(t *testing.T) {
	thumb := []byte{0xFF, 0xD8, 0xFF, 0xD9}

	var outer []byte
	outer = append(outer, 0xFF, 0xD8)
	outer = append(outer, 0xFF, 0xE1, 0x00, 0x0C)
	outer = append(outer, []byte("Exif\x00\x00")...)
	outer = append(outer, thumb...)
	outer = append(outer, 0xFF, 0xC0, 0x00, 0x04, 0xAA, 0xBB)
	outer = append(outer, 0xFF, 0xDA, 0x00, 0x03, 0xCC)
	// stuffed zero, restart marker and fill byte inside the scan
	outer = append(outer, 0x11, 0xFF, 0x00, 0x22, 0xFF, 0xD0, 0x33, 0xFF, 0xFF)
	outer = append(outer, 0xFF, 0xD9)

	data := append([]byte("raw header "), outer...)
	data = append(data, []byte(" sensor data")...)

	found := embeddedJPEGs(data)
	require.Len(t, found, 2)
	assert.Equal(t, outer, found[0])
	assert.Equal(t, thumb, found[1])
}

func TestJpegEnd(t *testing.T) {
	end, ok := jpegEnd([]byte{0xFF, 0xD8, 0xFF, 0xFE, 0x00, 0x03, 0x41, 0xFF, 0xD9, 0x00}, 0)
	assert.True(t, ok)
	assert.Equal(t, 9, end)

	_, ok = jpegEnd([]byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x40}, 0)
	assert.False(t, ok, "segment runs past the data")
	_, ok = jpegEnd([]byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x01, 0xFF, 0xD9}, 0)
	assert.False(t, ok, "length below 2")
	_, ok = jpegEnd([]byte{0xFF, 0xD8, 0x12, 0x34, 0xFF, 0xD9}, 0)
	assert.False(t, ok, "no marker after SOI")
}

func TestLoadEmbeddedPreview(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 16, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 16; x++ {
			src.Set(x, y, color.RGBA{G: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, src, &jpeg.Options{Quality: 90}))

	raw := append([]byte("\x00\x00\x00\x18ftypcrx header bytes"), buf.Bytes()...)
	raw = append(raw, []byte("trailing sensor data")...)
	path := filepath.Join(t.TempDir(), "IMG_0001.CR3")
	require.NoError(t, os.WriteFile(path, raw, 0644))

	img, err := loadEmbeddedPreview(path)
	require.NoError(t, err)
	defer img.Close()
	assert.Equal(t, 8, img.Rows())
	assert.Equal(t, 16, img.Cols())
	assert.Greater(t, img.GetVecbAt(4, 8)[1], uint8(150))

	bad := filepath.Join(t.TempDir(), "empty.nef")
	require.NoError(t, os.WriteFile(bad, []byte("nothing"), 0644))
	_, err = loadEmbeddedPreview(bad)
	assert.Error(t, err)
}
