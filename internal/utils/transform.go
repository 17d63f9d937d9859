package utils

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
	"strings"

	"github.com/disintegration/imaging"
	colorful "github.com/lucasb-eyer/go-colorful"
)

// CropRegion returns a copy of the pixels addressed by r. The region is
// clamped to the image bounds first, so out-of-range coordinates never read
// outside the source. The clamped region is returned alongside the crop.
func CropRegion(img image.Image, r Region) (*image.NRGBA, Region, error) {
	if img == nil {
		return nil, Region{}, &ImageProcessingError{Operation: "crop", Err: errors.New("input image is nil")}
	}
	b := img.Bounds()
	clamped := r.Clamp(b)
	if clamped.Empty() {
		return nil, clamped, &ImageProcessingError{
			Operation: "crop",
			Err:       fmt.Errorf("region %s does not intersect image %dx%d", r, b.Dx(), b.Dy()),
		}
	}
	return imaging.Crop(img, clamped.Rect()), clamped, nil
}

// RotateCentered rotates img counter-clockwise by angle degrees around its
// centre and returns an image with the same width and height as the input.
// Corners that rotate out of the canvas are cut off and newly exposed
// pixels are filled with fill.
func RotateCentered(img image.Image, angle float64, fill color.Color) *image.NRGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	a := math.Mod(angle, 360)
	if a < 0 {
		a += 360
	}
	if a == 0 {
		return imaging.Clone(img)
	}

	rotated := imaging.Rotate(img, a, fill)
	if rotated.Bounds().Dx() == w && rotated.Bounds().Dy() == h {
		return rotated
	}
	return imaging.PasteCenter(imaging.New(w, h, fill), rotated)
}

var namedColors = map[string]string{
	"white": "#ffffff",
	"black": "#000000",
	"gray":  "#808080",
	"grey":  "#808080",
	"red":   "#ff0000",
	"green": "#00ff00",
	"blue":  "#0000ff",
}

// ParseColor parses "#rrggbb", "#rgb", the same without a leading '#', or
// a small set of colour names. The result is fully opaque.
func ParseColor(s string) (color.NRGBA, error) {
	in := strings.ToLower(strings.TrimSpace(s))
	if hex, ok := namedColors[in]; ok {
		in = hex
	}
	if in != "" && !strings.HasPrefix(in, "#") {
		in = "#" + in
	}
	c, err := colorful.Hex(in)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid colour %q: %w", s, err)
	}
	r, g, bl := c.RGB255()
	return color.NRGBA{R: r, G: g, B: bl, A: 255}, nil
}

// ColorHex formats a colour as "#rrggbb".
func ColorHex(c color.Color) string {
	cf, ok := colorful.MakeColor(c)
	if !ok {
		return "#000000"
	}
	return cf.Hex()
}
