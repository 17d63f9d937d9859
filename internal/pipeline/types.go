package pipeline

import (
	"github.com/MeKo-Tech/barscan/internal/utils"
)

// DecodeResult is one decoded barcode.
type DecodeResult struct {
	Payload     string       `json:"payload" yaml:"payload"`
	Format      string       `json:"format" yaml:"format"`
	Angle       float64      `json:"angle" yaml:"angle"`
	Region      utils.Region `json:"region" yaml:"region"`
	RegionIndex int          `json:"region_index" yaml:"region_index"`
}

// Timing holds stage durations in milliseconds.
type Timing struct {
	DecodeImageMs float64 `json:"decode_image_ms" yaml:"decode_image_ms"`
	DetectMs      float64 `json:"detect_ms" yaml:"detect_ms"`
	SweepMs       float64 `json:"sweep_ms" yaml:"sweep_ms"`
	TotalMs       float64 `json:"total_ms" yaml:"total_ms"`
}

// Result is the outcome of one pipeline run.
type Result struct {
	Results         []DecodeResult `json:"results" yaml:"results"`
	Width           int            `json:"width" yaml:"width"`
	Height          int            `json:"height" yaml:"height"`
	Format          string         `json:"image_format,omitempty" yaml:"image_format,omitempty"`
	RegionsDetected int            `json:"regions_detected" yaml:"regions_detected"`
	Regions         []utils.Region `json:"regions,omitempty" yaml:"regions,omitempty"`
	AnglesTried     int            `json:"angles_tried" yaml:"angles_tried"`
	// Incomplete is set when the context ended while regions were still
	// being swept; those regions contributed nothing.
	Incomplete bool   `json:"incomplete,omitempty" yaml:"incomplete,omitempty"`
	Processing Timing `json:"processing" yaml:"processing"`
}

// Empty reports the "no barcodes" outcome.
func (r *Result) Empty() bool {
	return r == nil || len(r.Results) == 0
}

// Payloads returns the decoded payloads in detection order.
func (r *Result) Payloads() []string {
	if r == nil {
		return nil
	}
	out := make([]string, len(r.Results))
	for i, d := range r.Results {
		out[i] = d.Payload
	}
	return out
}
