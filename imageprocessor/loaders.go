package imageprocessor

import (
	"errors"
	"fmt"
	"os"

	"gocv.io/x/gocv"
)

var (
	// ErrNotDirectory is returned when the folder to load is a regular file
	ErrNotDirectory = errors.New("not a directory")
	// ErrUnsupportedFormat is returned for an extension no loader handles
	ErrUnsupportedFormat = errors.New("unsupported image format")
)

// ImageLoader interface defines methods for image loading.
// Loaded Mats are 8-bit, 3-channel BGR and owned by the caller.
type ImageLoader interface {
	// CanLoad determines if this loader can handle the given file
	CanLoad(path string) bool

	// LoadImage loads an image and returns the gocv.Mat representation
	LoadImage(path string) (gocv.Mat, error)
}

// BaseImageLoader provides common functionality for all image loaders
type BaseImageLoader struct {
	// Formats this loader can handle
	SupportedFormats []FormatType
}

// CanLoad checks if this loader supports the file's format
func (l *BaseImageLoader) CanLoad(path string) bool {
	format := GetFileFormat(path)
	for _, supported := range l.SupportedFormats {
		if format == supported {
			return fileExists(path)
		}
	}
	return false
}

// DefaultLoadImage reads the file with OpenCV in colour
func (l *BaseImageLoader) DefaultLoadImage(path string) (gocv.Mat, error) {
	img := gocv.IMRead(path, gocv.IMReadColor)
	if img.Empty() {
		img.Close()
		return gocv.NewMat(), newImageLoadError("failed to load image", path)
	}
	return img, nil
}

// fileExists checks if a file exists and is accessible
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// newImageLoadError creates a standardized error for image loading failures
func newImageLoadError(message, path string) error {
	return fmt.Errorf("%s: %s", message, path)
}
