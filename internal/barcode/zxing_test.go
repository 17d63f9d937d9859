package barcode

import (
	"context"
	"image"
	"testing"

	"github.com/MeKo-Tech/barscan/internal/testutil"
	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZXingDecoder_QR(t *testing.T) {
	img := testutil.PasteCenter(testutil.QR(t, "https://example.com/item/42", 240), testutil.SmallSize)

	res, err := NewZXingDecoder().Decode(context.Background(), img, Options{})
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, FormatQR, res[0].Format)
	assert.Equal(t, "https://example.com/item/42", res[0].Payload)
	assert.NotEmpty(t, res[0].Points)
	assert.False(t, res[0].BBox.Empty())
}

func TestZXingDecoder_Code128(t *testing.T) {
	img := testutil.PasteCenter(testutil.Code128(t, "BARSCAN-42", 400, 120), testutil.MediumSize)

	res, err := NewZXingDecoder().Decode(context.Background(), img, Options{})
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, FormatCode128, res[0].Format)
	assert.Equal(t, "BARSCAN-42", res[0].Payload)
}

func TestZXingDecoder_FormatFilter(t *testing.T) {
	img := testutil.PasteCenter(testutil.QR(t, "only-qr", 200), testutil.SmallSize)

	res, err := NewZXingDecoder().Decode(context.Background(), img, Options{Formats: []Format{FormatCode128}})
	require.NoError(t, err)
	assert.Empty(t, res)
}

func TestZXingDecoder_NoBarcode(t *testing.T) {
	tests := []struct {
		name string
		img  image.Image
	}{
		{"blank", testutil.CreateTestImage(200, 100, image.White.C)},
		{"noise", testutil.NoiseImage(160, 120, 7)},
		{"empty", image.NewGray(image.Rect(0, 0, 0, 0))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := NewZXingDecoder().Decode(context.Background(), tt.img, Options{})
			require.NoError(t, err)
			assert.Empty(t, res)
		})
	}
}

func TestZXingDecoder_NilImage(t *testing.T) {
	_, err := NewZXingDecoder().Decode(context.Background(), nil, Options{})
	assert.Error(t, err)
}

func TestZXingDecoder_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewZXingDecoder().Decode(ctx, testutil.NoiseImage(64, 64, 1), Options{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestZXingDecoder_Multi(t *testing.T) {
	twoQR := testutil.Paste(testutil.QR(t, "left-qr", 200), testutil.MediumSize, image.Pt(40, 140))
	twoQR = imaging.Paste(twoQR, testutil.QR(t, "right-qr", 200), image.Pt(400, 140))

	twoLinear := testutil.Paste(testutil.Code128(t, "TOP-128", 400, 100), testutil.LargeSize, image.Pt(312, 230))
	twoLinear = imaging.Paste(twoLinear, testutil.Code128(t, "BOTTOM-128", 400, 100), image.Pt(312, 440))

	tests := []struct {
		name     string
		img      image.Image
		format   Format
		payloads []string
	}{
		{"two QR codes", twoQR, FormatQR, []string{"left-qr", "right-qr"}},
		{"two Code 128 symbols", twoLinear, FormatCode128, []string{"TOP-128", "BOTTOM-128"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := NewZXingDecoder().Decode(context.Background(), tt.img, Options{
				Formats: []Format{tt.format},
				Multi:   true,
			})
			require.NoError(t, err)

			var payloads []string
			for _, r := range res {
				assert.Equal(t, tt.format, r.Format)
				payloads = append(payloads, r.Payload)
			}
			assert.ElementsMatch(t, tt.payloads, payloads)
		})
	}
}

func TestZXingDecoder_SingleStopsAtFirst(t *testing.T) {
	img := testutil.Paste(testutil.Code128(t, "FIRST", 400, 100), testutil.LargeSize, image.Pt(312, 230))
	img = imaging.Paste(img, testutil.Code128(t, "SECOND", 400, 100), image.Pt(312, 440))

	res, err := NewZXingDecoder().Decode(context.Background(), img, Options{})
	require.NoError(t, err)
	assert.Len(t, res, 1)
}

func TestZXingDecoder_PDF417LeftToZBar(t *testing.T) {
	for _, fr := range readersFor(Options{}) {
		assert.NotEqual(t, FormatPDF417, fr.format)
	}
	assert.Empty(t, readersFor(Options{Formats: []Format{FormatPDF417}}))
}

func TestMaskArea(t *testing.T) {
	bounds := image.Rect(0, 0, 1000, 800)
	tests := []struct {
		name   string
		points []image.Point
		want   image.Rectangle
	}{
		{"scan line grows vertically", []image.Point{{100, 300}, {500, 300}}, image.Rect(96, 196, 504, 404)},
		{"square stays square", []image.Point{{10, 10}, {110, 10}, {10, 110}}, image.Rect(6, 6, 114, 114)},
		{"clipped to bounds", []image.Point{{0, 0}, {400, 0}}, image.Rect(0, 0, 404, 104)},
		{"no points", nil, image.Rectangle{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := maskArea(tt.points, bounds)
			if tt.want.Empty() {
				assert.True(t, got.Empty())
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}
