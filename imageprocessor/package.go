// Package imageprocessor decodes image files into 8-bit BGR OpenCV Mats.
//
// Loaders are picked by file extension through an ImageLoaderRegistry:
// common formats go through OpenCV with a pure Go fallback, RAW camera
// files through their embedded JPEG preview.
package imageprocessor
