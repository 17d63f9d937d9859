package batch

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/MeKo-Tech/barscan/internal/pipeline"
)

// formatBatchResults renders r as json, yaml, csv or text.
func formatBatchResults(r *Result, format string) (string, error) {
	switch strings.ToLower(format) {
	case pipeline.FormatJSON:
		bts, err := json.MarshalIndent(r, "", "  ")
		return string(bts), err
	case pipeline.FormatYAML, "yml":
		bts, err := yaml.Marshal(r)
		return string(bts), err
	case pipeline.FormatCSV:
		return formatCSV(r)
	case pipeline.FormatText, "":
		return formatText(r), nil
	default:
		return "", fmt.Errorf("unsupported output format: %s", format)
	}
}

// formatCSV writes one row per barcode; files without barcodes get one
// row with empty payload and, if they failed, the error.
func formatCSV(r *Result) (string, error) {
	var output strings.Builder
	writer := csv.NewWriter(&output)
	if err := writer.Write([]string{"file", "region", "format", "angle", "x1", "y1", "x2", "y2", "payload", "error"}); err != nil {
		return "", err
	}

	for _, it := range r.Items {
		if it.Result == nil || len(it.Result.Results) == 0 {
			if err := writer.Write([]string{it.File, "", "", "", "", "", "", "", "", it.Error}); err != nil {
				return "", err
			}
			continue
		}
		for _, d := range it.Result.Results {
			row := []string{
				it.File,
				strconv.Itoa(d.RegionIndex),
				d.Format,
				strconv.FormatFloat(d.Angle, 'f', -1, 64),
				strconv.Itoa(d.Region.X1),
				strconv.Itoa(d.Region.Y1),
				strconv.Itoa(d.Region.X2),
				strconv.Itoa(d.Region.Y2),
				d.Payload,
				"",
			}
			if err := writer.Write(row); err != nil {
				return "", err
			}
		}
	}
	writer.Flush()
	return output.String(), writer.Error()
}

func formatText(r *Result) string {
	var output strings.Builder
	for i, it := range r.Items {
		if i > 0 {
			output.WriteString("\n")
		}
		fmt.Fprintf(&output, "# %s\n", it.File)
		switch {
		case it.Error != "":
			fmt.Fprintf(&output, "error: %s\n", it.Error)
		case it.Result != nil:
			text, _ := pipeline.FormatResult(it.Result, pipeline.FormatText)
			output.WriteString(text)
			output.WriteString("\n")
		}
	}
	return output.String()
}
