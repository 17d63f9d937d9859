package testutil

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"image/png"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// ImageSize represents common image dimensions.
type ImageSize struct {
	Width  int
	Height int
}

var (
	SmallSize  = ImageSize{320, 240}
	MediumSize = ImageSize{640, 480}
	LargeSize  = ImageSize{1024, 768}
)

// CreateTestImage creates a solid image of the given size and colour.
func CreateTestImage(width, height int, bg color.Color) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), &image.Uniform{bg}, image.Point{}, draw.Src)
	return img
}

// NoiseImage returns a deterministic speckle image. It contains no
// structure a barcode reader can lock on to.
func NoiseImage(width, height int, seed int64) *image.Gray {
	rng := rand.New(rand.NewSource(seed)) //nolint:gosec // G404: test data only
	img := image.NewGray(image.Rect(0, 0, width, height))
	for i := range img.Pix {
		img.Pix[i] = uint8(rng.Intn(256))
	}
	return img
}

// Paste draws src onto a white canvas of the given size with its top-left
// corner at at.
func Paste(src image.Image, size ImageSize, at image.Point) *image.NRGBA {
	canvas := CreateTestImage(size.Width, size.Height, color.White)
	return imaging.Paste(canvas, src, at)
}

// PasteCenter draws src centred on a white canvas of the given size.
func PasteCenter(src image.Image, size ImageSize) *image.NRGBA {
	b := src.Bounds()
	at := image.Pt((size.Width-b.Dx())/2, (size.Height-b.Dy())/2)
	return Paste(src, size, at)
}

// Rotate rotates img counter-clockwise by deg, growing the canvas and
// filling exposed corners with white.
func Rotate(img image.Image, deg float64) *image.NRGBA {
	return imaging.Rotate(img, deg, color.White)
}

// DrawCaption writes a line of text with its baseline at (x, y).
func DrawCaption(img draw.Image, text string, x, y int) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.Black),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}

// EncodePNG encodes img as PNG bytes.
func EncodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// EncodeJPEG encodes img as JPEG bytes at high quality.
func EncodeJPEG(t *testing.T, img image.Image) []byte {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: 95}))
	return buf.Bytes()
}

// SaveImage writes img as PNG to path, creating parent directories.
func SaveImage(t *testing.T, img image.Image, path string) {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, EncodePNG(t, img), 0o600))
}
