package imageprocessor

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"imagerank/logging"

	"gocv.io/x/gocv"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// OpenCVLoader decodes any file OpenCV understands
type OpenCVLoader struct{}

// CanLoad reports whether the file exists; OpenCV sniffs the content itself
func (l *OpenCVLoader) CanLoad(path string) bool {
	return fileExists(path)
}

// LoadImage reads the file in BGR color
func (l *OpenCVLoader) LoadImage(path string) (gocv.Mat, error) {
	img := gocv.IMRead(path, gocv.IMReadColor)
	if img.Empty() {
		return img, newImageLoadError("opencv returned an empty image", path)
	}
	return img, nil
}

// GoImageLoader decodes through the Go image packages. It covers formats
// that some OpenCV builds lack, such as GIF and WebP.
type GoImageLoader struct{}

// CanLoad checks the extension against the registered Go decoders
func (l *GoImageLoader) CanLoad(path string) bool {
	return IsImageFile(path) && fileExists(path)
}

// LoadImage decodes the file and converts it to a BGR Mat
func (l *GoImageLoader) LoadImage(path string) (gocv.Mat, error) {
	img, err := tryGoImagePackages(path)
	if err != nil {
		return gocv.NewMat(), newImageLoadError(err.Error(), path)
	}
	return gocvMatFromGoImage(img)
}

// ImageLoaderRegistry tries loaders in order until one succeeds
type ImageLoaderRegistry struct {
	loaders []ImageLoader
}

// NewImageLoaderRegistry creates a registry with OpenCV first and the Go
// decoders as fallback
func NewImageLoaderRegistry() *ImageLoaderRegistry {
	return &ImageLoaderRegistry{
		loaders: []ImageLoader{
			&OpenCVLoader{},
			&GoImageLoader{},
		},
	}
}

// RegisterLoader adds a custom loader to the end of the chain
func (r *ImageLoaderRegistry) RegisterLoader(loader ImageLoader) {
	r.loaders = append(r.loaders, loader)
}

// LoadImage returns the first successful decode. A missing file is reported
// as the underlying filesystem error, anything else wraps ErrDecode.
func (r *ImageLoaderRegistry) LoadImage(path string) (gocv.Mat, error) {
	if _, err := os.Stat(path); err != nil {
		return gocv.NewMat(), fmt.Errorf("cannot read image: %w", err)
	}

	var lastErr error
	for _, loader := range r.loaders {
		if !loader.CanLoad(path) {
			continue
		}
		img, err := loader.LoadImage(path)
		if err == nil {
			return img, nil
		}
		img.Close()
		logging.DebugLog("loader %T failed for %s: %v", loader, path, err)
		lastErr = err
	}

	if lastErr == nil {
		lastErr = newImageLoadError("no suitable loader found", path)
	}
	return gocv.NewMat(), lastErr
}

// LoadImage loads an image in BGR color using the default registry
func LoadImage(path string) (gocv.Mat, error) {
	return NewImageLoaderRegistry().LoadImage(path)
}

func tryGoImagePackages(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	return img, err
}

// gocvMatFromGoImage converts an image.Image to an 8-bit BGR Mat
func gocvMatFromGoImage(img image.Image) (gocv.Mat, error) {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width == 0 || height == 0 {
		return gocv.NewMat(), fmt.Errorf("%w: zero-sized image", ErrDecode)
	}

	mat := gocv.NewMatWithSize(height, width, gocv.MatTypeCV8UC3)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, g, b, _ := img.At(x+bounds.Min.X, y+bounds.Min.Y).RGBA()
			mat.SetUCharAt3(y, x, 0, uint8(b>>8))
			mat.SetUCharAt3(y, x, 1, uint8(g>>8))
			mat.SetUCharAt3(y, x, 2, uint8(r>>8))
		}
	}
	return mat, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func newImageLoadError(message, path string) error {
	return fmt.Errorf("%w: %s: %s", ErrDecode, path, message)
}
