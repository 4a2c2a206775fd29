package embedder

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// CLIP normalization constants, RGB order
var (
	clipMean = [3]float32{0.48145466, 0.4578275, 0.40821073}
	clipStd  = [3]float32{0.26862954, 0.26130258, 0.27577711}
)

// preprocessBatch packs the images into an N×3×size×size float32 tensor
func preprocessBatch(images []gocv.Mat, size int) ([]float32, error) {
	plane := size * size
	batch := make([]float32, len(images)*3*plane)
	for i, img := range images {
		if err := preprocessInto(batch[i*3*plane:(i+1)*3*plane], img, size); err != nil {
			return nil, fmt.Errorf("image %d: %w", i, err)
		}
	}
	return batch, nil
}

// preprocessInto converts one 8-bit BGR Mat to a normalized CHW slice
func preprocessInto(dst []float32, img gocv.Mat, size int) error {
	if img.Empty() {
		return fmt.Errorf("empty image")
	}
	if img.Channels() != 3 {
		return fmt.Errorf("expected 3 channels, got %d", img.Channels())
	}

	rgb := gocv.NewMat()
	defer rgb.Close()
	gocv.CvtColor(img, &rgb, gocv.ColorBGRToRGB)

	resized := gocv.NewMat()
	defer resized.Close()
	gocv.Resize(rgb, &resized, image.Point{X: size, Y: size}, 0, 0, gocv.InterpolationCubic)

	scaled := gocv.NewMat()
	defer scaled.Close()
	resized.ConvertToWithParams(&scaled, gocv.MatTypeCV32FC3, 1.0/255, 0)

	hwc, err := scaled.DataPtrFloat32()
	if err != nil {
		return fmt.Errorf("read pixels: %w", err)
	}
	return normalizeCHW(dst, hwc, size)
}

// normalizeCHW turns interleaved HWC pixels in [0,1] into planar,
// mean/std normalized CHW values.
func normalizeCHW(dst, hwc []float32, size int) error {
	plane := size * size
	if len(hwc) != 3*plane || len(dst) != 3*plane {
		return fmt.Errorf("pixel buffer has %d values, want %d", len(hwc), 3*plane)
	}
	for p := 0; p < plane; p++ {
		for c := 0; c < 3; c++ {
			dst[c*plane+p] = (hwc[p*3+c] - clipMean[c]) / clipStd[c]
		}
	}
	return nil
}
