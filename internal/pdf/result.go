package pdf

import "github.com/MeKo-Tech/barscan/internal/pipeline"

// PageResult holds the barcodes found on the images of one page.
type PageResult struct {
	PageNumber int           `json:"page_number" yaml:"page_number"`
	Images     []ImageResult `json:"images" yaml:"images"`
}

// ImageResult holds the barcodes found in one embedded image.
type ImageResult struct {
	ImageIndex int                     `json:"image_index" yaml:"image_index"`
	Width      int                     `json:"width" yaml:"width"`
	Height     int                     `json:"height" yaml:"height"`
	Barcodes   []pipeline.DecodeResult `json:"barcodes" yaml:"barcodes"`
	Incomplete bool                    `json:"incomplete,omitempty" yaml:"incomplete,omitempty"`
	Error      string                  `json:"error,omitempty" yaml:"error,omitempty"`
}

// DocumentResult holds the barcodes found in a PDF document.
type DocumentResult struct {
	Filename   string         `json:"filename" yaml:"filename"`
	TotalPages int            `json:"total_pages" yaml:"total_pages"`
	Pages      []PageResult   `json:"pages" yaml:"pages"`
	Processing ProcessingInfo `json:"processing" yaml:"processing"`
}

// ProcessingInfo contains timing information.
type ProcessingInfo struct {
	ExtractionTimeMs float64 `json:"extraction_time_ms" yaml:"extraction_time_ms"`
	DecodeTimeMs     float64 `json:"decode_time_ms" yaml:"decode_time_ms"`
	TotalTimeMs      float64 `json:"total_time_ms" yaml:"total_time_ms"`
}

// Count returns the number of barcodes across all pages.
func (d *DocumentResult) Count() int {
	n := 0
	for _, p := range d.Pages {
		for _, img := range p.Images {
			n += len(img.Barcodes)
		}
	}
	return n
}

// Payloads lists every decoded payload in page order.
func (d *DocumentResult) Payloads() []string {
	var out []string
	for _, p := range d.Pages {
		for _, img := range p.Images {
			for _, b := range img.Barcodes {
				out = append(out, b.Payload)
			}
		}
	}
	return out
}
