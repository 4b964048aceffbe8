package imageprocessor

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// ThumbnailSize is the width and height both images are resized to before
// they are compared
const ThumbnailSize = 12

// Preprocess resizes the image to a ThumbnailSize square and converts it to
// single-channel gray. The caller owns the returned Mat.
func Preprocess(img gocv.Mat) (gocv.Mat, error) {
	if img.Empty() {
		return gocv.NewMat(), fmt.Errorf("cannot preprocess empty image")
	}

	resized := gocv.NewMat()
	defer resized.Close()

	gocv.Resize(img, &resized, image.Point{X: ThumbnailSize, Y: ThumbnailSize}, 0, 0, gocv.InterpolationLinear)

	gray := gocv.NewMat()
	switch img.Channels() {
	case 1:
		resized.CopyTo(&gray)
	case 4:
		gocv.CvtColor(resized, &gray, gocv.ColorBGRAToGray)
	default:
		gocv.CvtColor(resized, &gray, gocv.ColorBGRToGray)
	}

	if gray.Empty() {
		gray.Close()
		return gocv.NewMat(), fmt.Errorf("grayscale conversion produced an empty image")
	}
	return gray, nil
}

// Scorer compares candidates against a reference that is preprocessed once
type Scorer struct {
	reference gocv.Mat
}

// NewScorer preprocesses the reference image. The reference Mat itself is
// not retained and may be closed by the caller.
func NewScorer(reference gocv.Mat) (*Scorer, error) {
	ref, err := Preprocess(reference)
	if err != nil {
		return nil, fmt.Errorf("cannot preprocess reference image: %w", err)
	}
	return &Scorer{reference: ref}, nil
}

// Score returns the SSIM of the candidate against the reference
func (s *Scorer) Score(candidate gocv.Mat) (float64, error) {
	cand, err := Preprocess(candidate)
	if err != nil {
		return 0, err
	}
	defer cand.Close()

	result, err := ComputeSSIM(s.reference, cand)
	if err != nil {
		return 0, err
	}
	defer result.Close()

	return result.Score, nil
}

// Close releases the preprocessed reference
func (s *Scorer) Close() {
	s.reference.Close()
}

// CompareImages preprocesses both images and returns their SSIM score
func CompareImages(a, b gocv.Mat) (float64, error) {
	scorer, err := NewScorer(a)
	if err != nil {
		return 0, err
	}
	defer scorer.Close()

	return scorer.Score(b)
}
