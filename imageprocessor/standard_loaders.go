package imageprocessor

import (
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"clipsim/logging"

	"gocv.io/x/gocv"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// StandardImageLoader handles common image formats like JPEG, PNG, etc.
type StandardImageLoader struct {
	BaseImageLoader
}

// NewStandardImageLoader creates a new loader for standard image formats
func NewStandardImageLoader() *StandardImageLoader {
	return &StandardImageLoader{
		BaseImageLoader: BaseImageLoader{
			SupportedFormats: []FormatType{
				FormatJPEG,
				FormatPNG,
				FormatGIF,
				FormatBMP,
				FormatWEBP,
				FormatTIFF,
			},
		},
	}
}

// LoadImage loads a standard image format, falling back to Go's decoders
// for files OpenCV was built without support for (GIF, some WebP/TIFF variants).
func (l *StandardImageLoader) LoadImage(path string) (gocv.Mat, error) {
	img, err := l.DefaultLoadImage(path)
	if err == nil {
		return img, nil
	}

	logging.DebugLog("OpenCV could not decode %s, trying Go image packages", path)

	goImg, goErr := tryGoImagePackages(path)
	if goErr != nil {
		return gocv.NewMat(), newImageLoadError("failed to decode image ("+goErr.Error()+")", path)
	}

	return gocvMatFromGoImage(goImg)
}

// tryGoImagePackages decodes path with the registered image.Decode formats
func tryGoImagePackages(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	return img, err
}

// gocvMatFromGoImage converts a Go image to an 8-bit BGR Mat. Alpha is
// dropped without premultiplying, as OpenCV does when it reads colour.
func gocvMatFromGoImage(img image.Image) (gocv.Mat, error) {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	buf := make([]byte, 0, width*height*3)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			buf = append(buf, c.B, c.G, c.R)
		}
	}

	wrapped, err := gocv.NewMatFromBytes(height, width, gocv.MatTypeCV8UC3, buf)
	if err != nil {
		return gocv.NewMat(), err
	}
	defer wrapped.Close()

	// NewMatFromBytes borrows buf; the clone owns its pixels
	return wrapped.Clone(), nil
}
