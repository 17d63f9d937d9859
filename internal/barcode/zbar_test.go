package barcode

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseZBarXML(t *testing.T) {
	out := `<barcodes xmlns='http://zbar.sourceforge.net/2008/barcode'>
<source href='/tmp/region.png'>
<index num='0'>
<symbol type='QR-Code' quality='1' orientation='UP'><data><![CDATA[line one
line two: with colon]]></data></symbol>
<symbol type='EAN-13' quality='3'><data><![CDATA[4006381333931]]></data></symbol>
<symbol type='CODE-128' quality='1'><data format='base64' length='4'><![CDATA[AAEC/w==]]></data></symbol>
<symbol type='CODE-39' quality='1'><data><![CDATA[]]></data></symbol>
</index>
</source>
</barcodes>
`
	res, err := parseZBarXML([]byte(out))
	require.NoError(t, err)
	require.Len(t, res, 3)
	assert.Equal(t, Result{Format: FormatQR, Payload: "line one\nline two: with colon"}, res[0])
	assert.Equal(t, Result{Format: FormatEAN13, Payload: "4006381333931"}, res[1])
	assert.Equal(t, Result{Format: FormatCode128, Payload: "\x00\x01\x02\xff"}, res[2])
}

func TestParseZBarXML_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		out     string
		wantErr bool
	}{
		{"empty", "", false},
		{"whitespace", "\n  \n", false},
		{"no symbols", "<barcodes><source href='x.png'></source></barcodes>", false},
		{"plain text", "QR-Code:hello", true},
		{"bad base64", "<barcodes><source><index><symbol type='QR-Code'><data format='base64'>!!</data></symbol></index></source></barcodes>", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := parseZBarXML([]byte(tt.out))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Empty(t, res)
		})
	}
}

func TestZBarDecoder_UnsupportedFormats(t *testing.T) {
	z := &ZBarDecoder{Binary: "/nonexistent/zbarimg"}
	_, err := z.DecodeFile(context.Background(), "region.png", Options{Formats: []Format{FormatDataMatrix, FormatAztec}})
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestFormatFromZBar(t *testing.T) {
	assert.Equal(t, FormatITF, formatFromZBar("I2/5"))
	assert.Equal(t, FormatUPCE, formatFromZBar("upc-e"))
	assert.Equal(t, FormatUnknown, formatFromZBar("DataBar"))
}

func TestZBarSymbolName(t *testing.T) {
	name, ok := zbarSymbolName(FormatQR)
	assert.True(t, ok)
	assert.Equal(t, "qrcode", name)

	_, ok = zbarSymbolName(FormatAztec)
	assert.False(t, ok)
}

func TestNewZBarDecoder_Missing(t *testing.T) {
	_, err := NewZBarDecoder("definitely-not-a-zbarimg-binary")
	assert.ErrorIs(t, err, ErrDecoderUnavailable)
}
