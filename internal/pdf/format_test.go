package pdf

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/barscan/internal/pipeline"
)

func sampleDocument() *DocumentResult {
	return &DocumentResult{
		Filename:   "invoice.pdf",
		TotalPages: 2,
		Pages: []PageResult{
			{PageNumber: 1, Images: []ImageResult{{
				ImageIndex: 1,
				Barcodes: []pipeline.DecodeResult{
					{Payload: "INV-1", Format: "CODE_128"},
					{Payload: "https://example.com", Format: "QR_CODE", Angle: 90},
				},
			}}},
			{PageNumber: 2, Images: []ImageResult{{ImageIndex: 1, Error: "image too small"}}},
		},
	}
}

func TestFormatDocuments(t *testing.T) {
	docs := []*DocumentResult{sampleDocument()}

	t.Run("json single document is an object", func(t *testing.T) {
		out, err := FormatDocuments(docs, "json")
		require.NoError(t, err)
		var got DocumentResult
		require.NoError(t, json.Unmarshal([]byte(out), &got))
		assert.Equal(t, []string{"INV-1", "https://example.com"}, got.Payloads())
	})

	t.Run("csv keeps order and errors", func(t *testing.T) {
		out, err := FormatDocuments(docs, "csv")
		require.NoError(t, err)
		lines := strings.Split(strings.TrimSpace(out), "\n")
		require.Len(t, lines, 4)
		assert.Equal(t, "file,page,image,format,angle,payload,error", lines[0])
		assert.Contains(t, lines[1], "INV-1")
		assert.Contains(t, lines[2], "https://example.com")
		assert.Contains(t, lines[3], "image too small")
	})

	t.Run("text", func(t *testing.T) {
		out, err := FormatDocuments(docs, "text")
		require.NoError(t, err)
		assert.Contains(t, out, "# invoice.pdf (2 pages, 2 barcodes)")
		assert.Contains(t, out, "page 1\tCODE_128\tINV-1")
		assert.Contains(t, out, "page 2 image 1: error: image too small")
	})

	t.Run("yaml", func(t *testing.T) {
		out, err := FormatDocuments(docs, "yaml")
		require.NoError(t, err)
		assert.Contains(t, out, "filename: invoice.pdf")
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := FormatDocuments(docs, "xml")
		require.Error(t, err)
	})
}
