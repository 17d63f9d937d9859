package utils

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
)

// ImageProcessingError represents errors that can occur during image processing.
type ImageProcessingError struct {
	Operation string
	Err       error
}

func (e *ImageProcessingError) Error() string {
	return fmt.Sprintf("image processing error in %s: %v", e.Operation, e.Err)
}

func (e *ImageProcessingError) Unwrap() error { return e.Err }

// ImageConstraints bounds the images the pipeline accepts.
type ImageConstraints struct {
	MinWidth  int
	MinHeight int
	// MaxPixels caps width*height; 0 disables the check.
	MaxPixels int
}

// DefaultImageConstraints accepts anything from 8x8 up to 50 megapixels.
func DefaultImageConstraints() ImageConstraints {
	return ImageConstraints{MinWidth: 8, MinHeight: 8, MaxPixels: 50_000_000}
}

// ValidateImageConstraints checks dimensions against the provided constraints.
func ValidateImageConstraints(img image.Image, c ImageConstraints) error {
	if img == nil {
		return &ImageProcessingError{Operation: "validate", Err: errors.New("input image is nil")}
	}
	b := img.Bounds()
	return checkDimensions(b.Dx(), b.Dy(), c)
}

func checkDimensions(w, h int, c ImageConstraints) error {
	if w < c.MinWidth || h < c.MinHeight {
		return &ImageProcessingError{
			Operation: "validate",
			Err:       fmt.Errorf("image too small: %dx%d < %dx%d", w, h, c.MinWidth, c.MinHeight),
		}
	}
	if c.MaxPixels > 0 && w*h > c.MaxPixels {
		return &ImageProcessingError{
			Operation: "validate",
			Err:       fmt.Errorf("image too large: %dx%d exceeds %d pixels", w, h, c.MaxPixels),
		}
	}
	return nil
}

// Letterbox describes how an image was fitted into a square model input.
type Letterbox struct {
	Scale float64
	PadX  int
	PadY  int
}

// ToSource maps a coordinate in letterboxed space back to the source image.
func (l Letterbox) ToSource(x, y float64) (float64, float64) {
	return (x - float64(l.PadX)) / l.Scale, (y - float64(l.PadY)) / l.Scale
}

// LetterboxResize scales img to fit a size x size square without changing
// its aspect ratio and centres it on a pad-coloured canvas.
func LetterboxResize(img image.Image, size int, pad color.Color) (*image.NRGBA, Letterbox, error) {
	if img == nil {
		return nil, Letterbox{}, &ImageProcessingError{Operation: "letterbox", Err: errors.New("input image is nil")}
	}
	if size <= 0 {
		return nil, Letterbox{}, &ImageProcessingError{Operation: "letterbox", Err: fmt.Errorf("invalid size %d", size)}
	}
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil, Letterbox{}, &ImageProcessingError{Operation: "letterbox", Err: errors.New("empty image")}
	}

	scale := math.Min(float64(size)/float64(b.Dx()), float64(size)/float64(b.Dy()))
	nw := max(1, int(math.Round(float64(b.Dx())*scale)))
	nh := max(1, int(math.Round(float64(b.Dy())*scale)))

	resized := imaging.Resize(img, nw, nh, imaging.Linear)
	lb := Letterbox{Scale: scale, PadX: (size - nw) / 2, PadY: (size - nh) / 2}
	canvas := imaging.New(size, size, pad)
	return imaging.Paste(canvas, resized, image.Pt(lb.PadX, lb.PadY)), lb, nil
}
