package imageprocessor

import (
	"fmt"
	"image"
	"math/bits"
	"sort"
	"strconv"

	"github.com/corona10/goimagehash"
	"gocv.io/x/gocv"
)

// ComputePerceptualHash computes a DCT-based perceptual hash. Bit 63 holds
// the top-left coefficient of the 8x8 low frequency block.
func ComputePerceptualHash(img gocv.Mat) (uint64, error) {
	if img.Empty() {
		return 0, fmt.Errorf("cannot compute hash for empty image")
	}

	resized := gocv.NewMat()
	defer resized.Close()
	gocv.Resize(img, &resized, image.Point{X: 32, Y: 32}, 0, 0, gocv.InterpolationLinear)

	gray := gocv.NewMat()
	defer gray.Close()
	if img.Channels() != 1 {
		gocv.CvtColor(resized, &gray, gocv.ColorBGRToGray)
	} else {
		resized.CopyTo(&gray)
	}

	floatImg := gocv.NewMat()
	defer floatImg.Close()
	gray.ConvertTo(&floatImg, gocv.MatTypeCV32F)

	dct := gocv.NewMat()
	defer dct.Close()
	gocv.DCT(floatImg, &dct, 0)
	if dct.Empty() {
		return 0, fmt.Errorf("DCT produced an empty matrix")
	}

	lowFreq := dct.Region(image.Rect(0, 0, 8, 8))
	defer lowFreq.Close()

	values := make([]float32, 0, 64)
	for y := 0; y < lowFreq.Rows(); y++ {
		for x := 0; x < lowFreq.Cols(); x++ {
			values = append(values, lowFreq.GetFloatAt(y, x))
		}
	}
	median := calculateMedian(values)

	var hash uint64
	for _, val := range values {
		hash <<= 1
		if val >= median {
			hash |= 1
		}
	}
	return hash, nil
}

// ComputeDifferenceHash computes a gradient hash of the image
func ComputeDifferenceHash(img gocv.Mat) (uint64, error) {
	if img.Empty() {
		return 0, fmt.Errorf("cannot compute hash for empty image")
	}

	goImg, err := img.ToImage()
	if err != nil {
		return 0, fmt.Errorf("cannot convert image for hashing: %w", err)
	}

	h, err := goimagehash.DifferenceHash(goImg)
	if err != nil {
		return 0, fmt.Errorf("cannot compute difference hash: %w", err)
	}
	return h.GetHash(), nil
}

// HammingDistance returns the number of differing bits between two hashes
func HammingDistance(hash1, hash2 uint64) int {
	return bits.OnesCount64(hash1 ^ hash2)
}

// FormatHash renders a hash as 16 lowercase hex digits
func FormatHash(hash uint64) string {
	return fmt.Sprintf("%016x", hash)
}

// ParseHash parses a hash produced by FormatHash
func ParseHash(s string) (uint64, error) {
	hash, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid hash %q: %w", s, err)
	}
	return hash, nil
}

// calculateMedian returns the median without modifying values
func calculateMedian(values []float32) float32 {
	valuesCopy := make([]float32, len(values))
	copy(valuesCopy, values)

	sort.Slice(valuesCopy, func(i, j int) bool {
		return valuesCopy[i] < valuesCopy[j]
	})

	length := len(valuesCopy)
	if length == 0 {
		return 0
	} else if length%2 == 0 {
		return (valuesCopy[length/2-1] + valuesCopy[length/2]) / 2
	}
	return valuesCopy[length/2]
}
