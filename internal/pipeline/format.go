package pipeline

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Output formats understood by FormatResult.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
	FormatCSV  = "csv"
	FormatText = "text"
)

// OutputFormats lists the accepted values for FormatResult.
func OutputFormats() []string {
	return []string{FormatJSON, FormatYAML, FormatCSV, FormatText}
}

// FormatResult renders res as json, yaml, csv or text.
func FormatResult(res *Result, format string) (string, error) {
	if res == nil {
		return "", errors.New("nil result")
	}
	switch strings.ToLower(format) {
	case FormatJSON, "":
		b, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return "", err
		}
		return string(b), nil
	case FormatYAML, "yml":
		b, err := yaml.Marshal(res)
		if err != nil {
			return "", err
		}
		return string(b), nil
	case FormatCSV:
		return toCSV(res), nil
	case FormatText:
		return toText(res), nil
	default:
		return "", fmt.Errorf("unsupported output format: %s", format)
	}
}

func toCSV(res *Result) string {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{"region", "x1", "y1", "x2", "y2", "format", "angle", "payload"})
	for _, d := range res.Results {
		_ = w.Write([]string{
			strconv.Itoa(d.RegionIndex),
			strconv.Itoa(d.Region.X1),
			strconv.Itoa(d.Region.Y1),
			strconv.Itoa(d.Region.X2),
			strconv.Itoa(d.Region.Y2),
			d.Format,
			strconv.FormatFloat(d.Angle, 'f', -1, 64),
			d.Payload,
		})
	}
	w.Flush()
	return buf.String()
}

func toText(res *Result) string {
	if res.Empty() {
		return "No barcodes detected"
	}
	lines := make([]string, len(res.Results))
	for i, d := range res.Results {
		lines[i] = fmt.Sprintf("%s\t%s\t%g°", d.Format, d.Payload, d.Angle)
	}
	return strings.Join(lines, "\n")
}
