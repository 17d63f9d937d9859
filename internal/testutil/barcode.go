package testutil

import (
	"image"
	"image/color"
	"testing"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/oned"
	"github.com/makiuchi-d/gozxing/qrcode"
	"github.com/stretchr/testify/require"
)

// RenderBitMatrix converts a gozxing bit matrix to a grayscale image, set
// bits black.
func RenderBitMatrix(m *gozxing.BitMatrix) *image.Gray {
	w, h := m.GetWidth(), m.GetHeight()
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if m.Get(x, y) {
				img.SetGray(x, y, color.Gray{Y: 0})
			} else {
				img.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return img
}

// Code128 renders payload as a Code 128 symbol. width is a minimum; the
// writer widens the image as needed and includes a quiet zone.
func Code128(t *testing.T, payload string, width, height int) *image.Gray {
	t.Helper()

	m, err := oned.NewCode128Writer().Encode(payload, gozxing.BarcodeFormat_CODE_128, width, height, nil)
	require.NoError(t, err, "encode code128 %q", payload)
	return RenderBitMatrix(m)
}

// EAN13 renders a 12 or 13 digit payload as an EAN-13 symbol.
func EAN13(t *testing.T, payload string, width, height int) *image.Gray {
	t.Helper()

	m, err := oned.NewEAN13Writer().Encode(payload, gozxing.BarcodeFormat_EAN_13, width, height, nil)
	require.NoError(t, err, "encode ean13 %q", payload)
	return RenderBitMatrix(m)
}

// QR renders payload as a square QR code of the given size.
func QR(t *testing.T, payload string, size int) *image.Gray {
	t.Helper()

	m, err := qrcode.NewQRCodeWriter().Encode(payload, gozxing.BarcodeFormat_QR_CODE, size, size, nil)
	require.NoError(t, err, "encode qr %q", payload)
	return RenderBitMatrix(m)
}
