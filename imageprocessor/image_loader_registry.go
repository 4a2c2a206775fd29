package imageprocessor

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"

	"clipsim/logging"

	"gocv.io/x/gocv"
)

// ImageLoaderRegistry maintains a registry of image loaders
type ImageLoaderRegistry struct {
	loaders map[string]ImageLoader
	mutex   sync.RWMutex
}

// NewImageLoaderRegistry creates a registry with the standard and RAW loaders
func NewImageLoaderRegistry() *ImageLoaderRegistry {
	registry := &ImageLoaderRegistry{
		loaders: make(map[string]ImageLoader),
	}

	standardLoader := NewStandardImageLoader()
	for _, ext := range extensionsFor(standardLoader.SupportedFormats) {
		registry.RegisterLoader(ext, standardLoader)
	}

	rawLoader := NewRawPreviewLoader()
	for _, ext := range extensionsFor(rawLoader.SupportedFormats) {
		registry.RegisterLoader(ext, rawLoader)
	}

	return registry
}

// RegisterLoader registers a new loader for a specific file extension
func (r *ImageLoaderRegistry) RegisterLoader(ext string, loader ImageLoader) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.loaders[strings.ToLower(ext)] = loader
}

// GetLoader returns the loader registered for the path's extension, or nil
func (r *ImageLoaderRegistry) GetLoader(path string) ImageLoader {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	return r.loaders[strings.ToLower(filepath.Ext(path))]
}

// CanLoadFile checks if any registered loader can handle the given file
func (r *ImageLoaderRegistry) CanLoadFile(path string) bool {
	return r.GetLoader(path) != nil
}

// LoadImage loads an image using the appropriate registered loader
func (r *ImageLoaderRegistry) LoadImage(path string) (gocv.Mat, error) {
	loader := r.GetLoader(path)
	if loader == nil {
		return gocv.NewMat(), fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
	if !loader.CanLoad(path) {
		logging.LogImageProcessed(path, false, "file missing or unreadable")
		return gocv.NewMat(), newImageLoadError("file missing or unreadable", path)
	}

	img, err := loader.LoadImage(path)
	if err != nil {
		logging.LogImageProcessed(path, false, err.Error())
		return img, err
	}

	logging.LogImageProcessed(path, true, "")
	return img, nil
}

// Close releases loaders that hold external resources
func (r *ImageLoaderRegistry) Close() error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	seen := make(map[ImageLoader]bool)
	var firstErr error
	for _, loader := range r.loaders {
		if seen[loader] {
			continue
		}
		seen[loader] = true

		if c, ok := loader.(io.Closer); ok {
			if err := c.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
