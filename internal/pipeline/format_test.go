package pipeline

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/MeKo-Tech/barscan/internal/utils"
)

func sampleResult() *Result {
	return &Result{
		Results: []DecodeResult{
			{Payload: "hello, world", Format: "QR_CODE", Angle: 0, Region: utils.NewRegion(1, 2, 30, 40)},
			{Payload: "12345", Format: "CODE_128", Angle: 60, Region: utils.NewRegion(50, 60, 90, 80), RegionIndex: 2},
		},
		Width:           100,
		Height:          100,
		RegionsDetected: 3,
		AnglesTried:     15,
	}
}

func TestFormatResult_JSON(t *testing.T) {
	out, err := FormatResult(sampleResult(), "json")
	require.NoError(t, err)

	var back Result
	require.NoError(t, json.Unmarshal([]byte(out), &back))
	assert.Equal(t, sampleResult().Results, back.Results)
	assert.Contains(t, out, `"angle": 60`)
}

func TestFormatResult_YAML(t *testing.T) {
	out, err := FormatResult(sampleResult(), "yaml")
	require.NoError(t, err)

	var back Result
	require.NoError(t, yaml.Unmarshal([]byte(out), &back))
	assert.Equal(t, sampleResult().Results, back.Results)
	assert.Equal(t, 15, back.AnglesTried)
}

func TestFormatResult_CSV(t *testing.T) {
	out, err := FormatResult(sampleResult(), "CSV")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "region,x1,y1,x2,y2,format,angle,payload", lines[0])
	assert.Equal(t, `0,1,2,30,40,QR_CODE,0,"hello, world"`, lines[1])
	assert.Equal(t, "2,50,60,90,80,CODE_128,60,12345", lines[2])
}

func TestFormatResult_Text(t *testing.T) {
	out, err := FormatResult(sampleResult(), "text")
	require.NoError(t, err)
	assert.Equal(t, "QR_CODE\thello, world\t0°\nCODE_128\t12345\t60°", out)

	out, err = FormatResult(&Result{}, "text")
	require.NoError(t, err)
	assert.Equal(t, "No barcodes detected", out)
}

func TestFormatResult_Errors(t *testing.T) {
	_, err := FormatResult(nil, "json")
	assert.Error(t, err)
	_, err = FormatResult(sampleResult(), "xml")
	assert.Error(t, err)
}
