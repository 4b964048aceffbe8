package imageprocessor

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// SSIM parameters for 8-bit images with a uniform 7x7 window and sample
// covariance
const (
	ssimWindow    = 7
	ssimDataRange = 255.0
	ssimK1        = 0.01
	ssimK2        = 0.03
)

// SSIMResult holds the mean SSIM and the per-pixel similarity map scaled to
// 8 bits. The conversion saturates, so negative similarities are stored as 0
// rather than wrapping. Diff must be closed by the caller.
type SSIMResult struct {
	Score float64
	Diff  gocv.Mat
}

// Close releases the similarity map
func (r *SSIMResult) Close() {
	r.Diff.Close()
}

// ComputeSSIM computes the structural similarity of two equal-sized
// single-channel 8-bit images. The score is the mean of the SSIM map over
// the pixels whose window lies fully inside the image.
func ComputeSSIM(img1, img2 gocv.Mat) (SSIMResult, error) {
	if img1.Empty() || img2.Empty() {
		return SSIMResult{Diff: gocv.NewMat()}, fmt.Errorf("cannot compute SSIM of an empty image")
	}
	if img1.Rows() != img2.Rows() || img1.Cols() != img2.Cols() {
		return SSIMResult{Diff: gocv.NewMat()}, fmt.Errorf("image sizes differ: %dx%d vs %dx%d",
			img1.Cols(), img1.Rows(), img2.Cols(), img2.Rows())
	}
	if img1.Channels() != 1 || img2.Channels() != 1 {
		return SSIMResult{Diff: gocv.NewMat()}, fmt.Errorf("SSIM needs single-channel images, got %d and %d channels",
			img1.Channels(), img2.Channels())
	}
	if img1.Rows() < ssimWindow || img1.Cols() < ssimWindow {
		return SSIMResult{Diff: gocv.NewMat()}, fmt.Errorf("images must be at least %dx%d", ssimWindow, ssimWindow)
	}

	x := gocv.NewMat()
	y := gocv.NewMat()
	defer x.Close()
	defer y.Close()
	img1.ConvertTo(&x, gocv.MatTypeCV64F)
	img2.ConvertTo(&y, gocv.MatTypeCV64F)

	window := image.Point{X: ssimWindow, Y: ssimWindow}
	np := float64(ssimWindow * ssimWindow)
	covNorm := np / (np - 1)
	c1 := (ssimK1 * ssimDataRange) * (ssimK1 * ssimDataRange)
	c2 := (ssimK2 * ssimDataRange) * (ssimK2 * ssimDataRange)

	xx := gocv.NewMat()
	yy := gocv.NewMat()
	xy := gocv.NewMat()
	defer xx.Close()
	defer yy.Close()
	defer xy.Close()
	gocv.Multiply(x, x, &xx)
	gocv.Multiply(y, y, &yy)
	gocv.Multiply(x, y, &xy)

	ux := gocv.NewMat()
	uy := gocv.NewMat()
	uxx := gocv.NewMat()
	uyy := gocv.NewMat()
	uxy := gocv.NewMat()
	defer ux.Close()
	defer uy.Close()
	defer uxx.Close()
	defer uyy.Close()
	defer uxy.Close()
	gocv.Blur(x, &ux, window)
	gocv.Blur(y, &uy, window)
	gocv.Blur(xx, &uxx, window)
	gocv.Blur(yy, &uyy, window)
	gocv.Blur(xy, &uxy, window)

	ux2 := gocv.NewMat()
	uy2 := gocv.NewMat()
	uxuy := gocv.NewMat()
	defer ux2.Close()
	defer uy2.Close()
	defer uxuy.Close()
	gocv.Multiply(ux, ux, &ux2)
	gocv.Multiply(uy, uy, &uy2)
	gocv.Multiply(ux, uy, &uxuy)

	// vx = covNorm*(uxx - ux^2), likewise vy and vxy
	vx := gocv.NewMat()
	vy := gocv.NewMat()
	vxy := gocv.NewMat()
	defer vx.Close()
	defer vy.Close()
	defer vxy.Close()
	gocv.AddWeighted(uxx, covNorm, ux2, -covNorm, 0, &vx)
	gocv.AddWeighted(uyy, covNorm, uy2, -covNorm, 0, &vy)
	gocv.AddWeighted(uxy, covNorm, uxuy, -covNorm, 0, &vxy)

	a1 := gocv.NewMat()
	a2 := gocv.NewMat()
	b1 := gocv.NewMat()
	b2 := gocv.NewMat()
	defer a1.Close()
	defer a2.Close()
	defer b1.Close()
	defer b2.Close()
	gocv.AddWeighted(uxuy, 2, uxuy, 0, c1, &a1)
	gocv.AddWeighted(vxy, 2, vxy, 0, c2, &a2)
	gocv.AddWeighted(ux2, 1, uy2, 1, c1, &b1)
	gocv.AddWeighted(vx, 1, vy, 1, c2, &b2)

	num := gocv.NewMat()
	den := gocv.NewMat()
	defer num.Close()
	defer den.Close()
	gocv.Multiply(a1, a2, &num)
	gocv.Multiply(b1, b2, &den)

	ssimMap := gocv.NewMat()
	defer ssimMap.Close()
	gocv.Divide(num, den, &ssimMap)

	pad := (ssimWindow - 1) / 2
	interior := ssimMap.Region(image.Rect(pad, pad, ssimMap.Cols()-pad, ssimMap.Rows()-pad))
	defer interior.Close()
	score := interior.Mean().Val1

	scaled := ssimMap.Clone()
	defer scaled.Close()
	scaled.MultiplyFloat(255)
	diff := gocv.NewMat()
	scaled.ConvertTo(&diff, gocv.MatTypeCV8U)

	return SSIMResult{Score: score, Diff: diff}, nil
}
