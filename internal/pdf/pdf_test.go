package pdf

import (
	"context"
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/barscan/internal/testutil"
)

// buildPDF writes one page per image and returns the document path.
func buildPDF(t *testing.T, imgs ...image.Image) string {
	t.Helper()
	dir := t.TempDir()
	var files []string
	for i, img := range imgs {
		p := filepath.Join(dir, "page"+string(rune('a'+i))+".png")
		testutil.SaveImage(t, img, p)
		files = append(files, p)
	}
	out := filepath.Join(dir, "doc.pdf")
	if err := api.ImportImagesFile(files, out, pdfcpu.DefaultImportConfig(), nil); err != nil {
		t.Skipf("cannot build test PDF: %v", err)
	}
	return out
}

func TestParsePageRange(t *testing.T) {
	tests := []struct {
		in      string
		want    []int
		wantErr bool
	}{
		{"", nil, false},
		{"  ", nil, false},
		{"3", []int{3}, false},
		{"1-3", []int{1, 2, 3}, false},
		{"5,1-2", []int{1, 2, 5}, false},
		{"2, 2-3", []int{2, 3}, false},
		{"0", nil, true},
		{"3-1", nil, true},
		{"1-2-3", nil, true},
		{"a", nil, true},
		{"1,", nil, true},
		{"x-2", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parsePageRange(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParsePageFromFilename(t *testing.T) {
	tests := []struct {
		name      string
		page, idx int
		wantErr   bool
	}{
		{"doc_1_Im0.png", 1, 0, false},
		{"my_scan_12_Im7.jpg", 12, 7, false},
		{"page_3_image_2.png", 3, 2, false},
		{"doc_x_Im1.png", 0, 0, true},
		{"readme.txt", 0, 0, true},
		{"doc_0_Im1.png", 0, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, idx, err := parsePageFromFilename(tt.name)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.page, page)
			assert.Equal(t, tt.idx, idx)
		})
	}
}

func TestCollectExtractedImages_OrdersAndRenumbers(t *testing.T) {
	dir := t.TempDir()
	img := testutil.CreateTestImage(4, 4, color.White)
	for _, name := range []string{"doc_2_Im9.png", "doc_1_Im5.png", "doc_1_Im2.png", "notes.txt"} {
		if filepath.Ext(name) == ".png" {
			testutil.SaveImage(t, img, filepath.Join(dir, name))
		} else {
			require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
		}
	}

	got, err := collectExtractedImages(dir)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, [2]int{1, 1}, [2]int{got[0].Page, got[0].Index})
	assert.Equal(t, [2]int{1, 2}, [2]int{got[1].Page, got[1].Index})
	assert.Equal(t, [2]int{2, 1}, [2]int{got[2].Page, got[2].Index})
}

func TestExtractImages_InvalidRange(t *testing.T) {
	_, err := ExtractImages(context.Background(), "whatever.pdf", "z")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid page range")
}

func TestExtractImages_MissingFile(t *testing.T) {
	_, err := ExtractImages(context.Background(), filepath.Join(t.TempDir(), "none.pdf"), "")
	assert.Error(t, err)
}

func TestExtractImages_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := ExtractImages(ctx, "whatever.pdf", "")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExtractImages_FromDocument(t *testing.T) {
	qr := testutil.QR(t, "PDF-PAGE-1", 200)
	code := testutil.Code128(t, "PDF-PAGE-2", 300, 100)
	path := buildPDF(t, qr, code)

	n, err := PageCount(path)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	all, err := ExtractImages(context.Background(), path, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, 1, all[0].Page)
	assert.Equal(t, 2, all[1].Page)

	second, err := ExtractImages(context.Background(), path, "2")
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, 2, second[0].Page)
}

func TestIsPasswordError(t *testing.T) {
	assert.False(t, IsPasswordError(nil))
	assert.True(t, IsPasswordError(errors.New("pdfcpu: please provide the correct password")))
	assert.False(t, IsPasswordError(os.ErrNotExist))
}
