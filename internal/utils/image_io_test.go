package utils

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"
)

func encode(t *testing.T, img image.Image, format string) []byte {
	t.Helper()
	var buf bytes.Buffer
	switch format {
	case "png":
		require.NoError(t, png.Encode(&buf, img))
	case "jpeg":
		require.NoError(t, jpeg.Encode(&buf, img, nil))
	case "bmp":
		require.NoError(t, bmp.Encode(&buf, img))
	}
	return buf.Bytes()
}

func TestDecodeImageBytes(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 12, 7))
	for _, format := range []string{"png", "jpeg", "bmp"} {
		t.Run(format, func(t *testing.T) {
			img, got, err := DecodeImageBytes(encode(t, src, format))
			require.NoError(t, err)
			assert.Equal(t, format, got)
			assert.Equal(t, 12, img.Bounds().Dx())
			assert.Equal(t, 7, img.Bounds().Dy())
		})
	}
}

func TestDecodeImageBytes_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"nil", nil},
		{"empty", []byte{}},
		{"text", []byte("this is not an image")},
		{"truncated png", encode(t, image.NewGray(image.Rect(0, 0, 50, 50)), "png")[:40]},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := DecodeImageBytes(tt.data)
			var ipe *ImageProcessingError
			require.ErrorAs(t, err, &ipe)
			assert.Equal(t, "decode", ipe.Operation)
		})
	}
}

// pngHeaderOnly returns a PNG holding just a signature and an IHDR chunk
// that declares w x h pixels. Decoding its pixels would fail.
func pngHeaderOnly(w, h uint32) []byte {
	var ihdr bytes.Buffer
	ihdr.WriteString("IHDR")
	_ = binary.Write(&ihdr, binary.BigEndian, w)
	_ = binary.Write(&ihdr, binary.BigEndian, h)
	ihdr.Write([]byte{8, 2, 0, 0, 0}) // 8-bit RGB, no interlace

	var out bytes.Buffer
	out.WriteString("\x89PNG\r\n\x1a\n")
	_ = binary.Write(&out, binary.BigEndian, uint32(ihdr.Len()-4))
	out.Write(ihdr.Bytes())
	_ = binary.Write(&out, binary.BigEndian, crc32.ChecksumIEEE(ihdr.Bytes()))
	return out.Bytes()
}

func TestDecodeImageBytesWithin(t *testing.T) {
	small := encode(t, image.NewGray(image.Rect(0, 0, 40, 30)), "png")
	tests := []struct {
		name    string
		data    []byte
		c       ImageConstraints
		wantErr string
	}{
		{"within limits", small, DefaultImageConstraints(), ""},
		{"too small", small, ImageConstraints{MinWidth: 64, MinHeight: 64}, "too small"},
		{"over pixel cap", small, ImageConstraints{MaxPixels: 1000}, "too large"},
		{"huge header rejected before decoding", pngHeaderOnly(12000, 12000), DefaultImageConstraints(), "too large"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, _, err := DecodeImageBytesWithin(tt.data, tt.c)
			if tt.wantErr == "" {
				require.NoError(t, err)
				assert.Equal(t, 40, img.Bounds().Dx())
				return
			}
			var ipe *ImageProcessingError
			require.ErrorAs(t, err, &ipe)
			assert.Equal(t, "validate", ipe.Operation)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDecodeImageBytes_DefaultPixelCap(t *testing.T) {
	_, format, err := DecodeImageBytes(pngHeaderOnly(12000, 12000))
	require.Error(t, err)
	assert.Equal(t, "png", format)
	assert.Contains(t, err.Error(), "too large")
}

func TestLoadImage(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.png")
	data := encode(t, image.NewGray(image.Rect(0, 0, 9, 4)), "png")
	require.NoError(t, os.WriteFile(path, data, 0o600))

	img, meta, err := LoadImage(path)
	require.NoError(t, err)
	assert.Equal(t, 9, img.Bounds().Dx())
	assert.Equal(t, "png", meta.Format)
	assert.Equal(t, int64(len(data)), meta.SizeBytes)
	assert.Equal(t, 4, meta.Height)

	_, _, err = LoadImage("")
	assert.Error(t, err)
	_, _, err = LoadImage(filepath.Join(dir, "a.txt"))
	assert.Error(t, err)
	_, _, err = LoadImage(filepath.Join(dir, "missing.png"))
	assert.Error(t, err)
}

func TestIsSupportedImage(t *testing.T) {
	assert.True(t, IsSupportedImage("x.PNG"))
	assert.True(t, IsSupportedImage("dir/y.webp"))
	assert.False(t, IsSupportedImage("z.pdf"))
}

func TestValidateImageConstraints(t *testing.T) {
	c := ImageConstraints{MinWidth: 8, MinHeight: 8, MaxPixels: 100 * 100}
	assert.NoError(t, ValidateImageConstraints(image.NewGray(image.Rect(0, 0, 50, 50)), c))
	assert.Error(t, ValidateImageConstraints(image.NewGray(image.Rect(0, 0, 4, 50)), c))
	assert.Error(t, ValidateImageConstraints(image.NewGray(image.Rect(0, 0, 200, 200)), c))
	assert.Error(t, ValidateImageConstraints(nil, c))
}

func TestLetterboxResize(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 200, 100))
	out, lb, err := LetterboxResize(img, 64, color.Gray{Y: 114})
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 64, 64), out.Bounds())
	assert.InDelta(t, 0.32, lb.Scale, 1e-9)
	assert.Equal(t, 0, lb.PadX)
	assert.Equal(t, 16, lb.PadY)

	x, y := lb.ToSource(32, 32)
	assert.InDelta(t, 100, x, 1e-9)
	assert.InDelta(t, 50, y, 1e-9)

	_, _, err = LetterboxResize(nil, 64, color.Black)
	assert.Error(t, err)
	_, _, err = LetterboxResize(img, 0, color.Black)
	assert.Error(t, err)
}
