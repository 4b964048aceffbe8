// Package imageprocessor loads images with OpenCV, normalizes them to small
// grayscale thumbnails and compares them with SSIM or perceptual hashes.
package imageprocessor

import (
	"errors"

	"gocv.io/x/gocv"
)

// ErrDecode is returned when a file cannot be decoded as an image
var ErrDecode = errors.New("cannot decode image")

// ImageLoader is the interface that all image loaders must implement
type ImageLoader interface {
	// CanLoad checks if the loader can handle the given file
	CanLoad(path string) bool

	// LoadImage loads and returns the image in BGR color
	LoadImage(path string) (gocv.Mat, error)
}
