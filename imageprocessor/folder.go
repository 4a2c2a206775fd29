package imageprocessor

import (
	"fmt"
	"os"
	"path/filepath"

	"clipsim/logging"
	"clipsim/utils"

	"gocv.io/x/gocv"
)

// DefaultExtension is the image extension loaded when none is given
const DefaultExtension = ".png"

// LoadImagesFromFolder decodes every file in folder whose extension matches ext.
//
// The returned slices are aligned: filenames[i] names images[i]. Entries come
// in os.ReadDir order, which is sorted by filename. Subdirectories and other
// extensions are skipped. Any decode failure aborts the load; Mats decoded so
// far are closed. The caller owns and must close the returned Mats.
func (r *ImageLoaderRegistry) LoadImagesFromFolder(folder, ext string) ([]string, []gocv.Mat, error) {
	if ext == "" {
		ext = DefaultExtension
	}
	if !r.CanLoadFile("x" + utils.NormalizeExtension(ext)) {
		return nil, nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}

	info, err := os.Stat(folder)
	if err != nil {
		return nil, nil, fmt.Errorf("cannot access folder %s: %w", folder, err)
	}
	if !info.IsDir() {
		return nil, nil, fmt.Errorf("%s: %w", folder, ErrNotDirectory)
	}

	entries, err := os.ReadDir(folder)
	if err != nil {
		return nil, nil, fmt.Errorf("cannot read folder %s: %w", folder, err)
	}

	var filenames []string
	var images []gocv.Mat
	for _, entry := range entries {
		if entry.IsDir() || !utils.HasExtension(entry.Name(), ext) {
			continue
		}

		path := filepath.Join(folder, entry.Name())
		img, err := r.LoadImage(path)
		if err != nil {
			img.Close()
			CloseAll(images)
			return nil, nil, fmt.Errorf("cannot load %s: %w", entry.Name(), err)
		}

		filenames = append(filenames, entry.Name())
		images = append(images, img)
	}

	logging.DebugLog("Loaded %d %s images from %s", len(images), utils.NormalizeExtension(ext), folder)
	return filenames, images, nil
}

// CloseAll closes every Mat in images
func CloseAll(images []gocv.Mat) {
	for i := range images {
		images[i].Close()
	}
}
