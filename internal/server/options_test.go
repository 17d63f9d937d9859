package server

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/barscan/internal/barcode"
)

func TestParseDecodeOptions(t *testing.T) {
	form := map[string]string{"step": "15", "formats": "ean13"}
	q := url.Values{"fill": {"ff0000"}, "formats": {"qr, ,code128"}, "format": {"CSV"}}

	o, err := parseDecodeOptions(q, func(k string) string { return form[k] })
	require.NoError(t, err)
	require.NotNil(t, o.Step)
	assert.InDelta(t, 15.0, *o.Step, 1e-9)
	assert.Equal(t, "#ff0000", o.Fill)
	assert.Equal(t, []string{"qr", "code128"}, o.Formats, "query wins over form")
	assert.Equal(t, "csv", o.Format)
}

func TestParseDecodeOptions_Empty(t *testing.T) {
	o, err := parseDecodeOptions(url.Values{}, nil)
	require.NoError(t, err)
	assert.Nil(t, o.Step)
	assert.Empty(t, o.Fill)
	assert.Empty(t, o.Formats)

	ov, err := o.overrides()
	require.NoError(t, err)
	assert.Zero(t, ov.AngleStep)
	assert.Nil(t, ov.Fill)
	assert.Empty(t, ov.Formats)
}

func TestServer_CheckOptionsAgainstDecoder(t *testing.T) {
	s := &Server{validate: newValidator(), pipeline: &stubPipeline{}}

	err := s.check(decodeOptions{Formats: []string{"pdf417"}})
	require.ErrorIs(t, err, barcode.ErrUnsupportedFormat)
	assert.Contains(t, err.Error(), "zxing")

	assert.NoError(t, s.check(decodeOptions{Formats: []string{"pdf417", "qr"}}))
}

func TestServer_CheckOptions(t *testing.T) {
	s := &Server{validate: newValidator()}
	step := func(v float64) *float64 { return &v }

	tests := []struct {
		name    string
		opts    decodeOptions
		wantErr string
	}{
		{name: "empty", opts: decodeOptions{}},
		{name: "fractional step", opts: decodeOptions{Step: step(7.5)}},
		{name: "largest step", opts: decodeOptions{Step: step(359.9)}},
		{name: "smallest step", opts: decodeOptions{Step: step(1)}},
		{name: "sub degree step", opts: decodeOptions{Step: step(0.001)}, wantErr: "1 <= step < 360"},
		{name: "vanishing step", opts: decodeOptions{Step: step(1e-9)}, wantErr: "1 <= step < 360"},
		{name: "zero step", opts: decodeOptions{Step: step(0)}, wantErr: "1 <= step < 360"},
		{name: "negative step", opts: decodeOptions{Step: step(-30)}, wantErr: "1 <= step < 360"},
		{name: "full turn", opts: decodeOptions{Step: step(360)}, wantErr: "1 <= step < 360"},
		{name: "short hex", opts: decodeOptions{Fill: "#fff"}},
		{name: "bad fill", opts: decodeOptions{Fill: "#zzzzzz"}, wantErr: "hex color"},
		{name: "known formats", opts: decodeOptions{Formats: []string{"QR_CODE", "upc-a", "itf"}}},
		{name: "unknown format", opts: decodeOptions{Formats: []string{"qr", "maxicode"}}, wantErr: "maxicode"},
		{name: "output yaml", opts: decodeOptions{Format: "yaml"}},
		{name: "output xml", opts: decodeOptions{Format: "xml"}, wantErr: "xml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.check(tt.opts)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDecodeOptions_Overrides(t *testing.T) {
	step := 45.0
	o := decodeOptions{Step: &step, Fill: "#808080", Formats: []string{"ean-13", "qr"}}

	ov, err := o.overrides()
	require.NoError(t, err)
	assert.InDelta(t, 45.0, ov.AngleStep, 1e-9)
	r, g, b, _ := ov.Fill.RGBA()
	assert.Equal(t, []uint32{0x8080, 0x8080, 0x8080}, []uint32{r, g, b})
	assert.Equal(t, []barcode.Format{barcode.FormatEAN13, barcode.FormatQR}, ov.Formats)
}
