package pdf

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/MeKo-Tech/barscan/internal/pipeline"
)

// FormatDocuments renders docs as json, yaml, csv or text.
func FormatDocuments(docs []*DocumentResult, format string) (string, error) {
	switch strings.ToLower(format) {
	case pipeline.FormatJSON, "":
		var v any = docs
		if len(docs) == 1 {
			v = docs[0]
		}
		b, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return "", err
		}
		return string(b), nil
	case pipeline.FormatYAML, "yml":
		b, err := yaml.Marshal(docs)
		if err != nil {
			return "", err
		}
		return string(b), nil
	case pipeline.FormatCSV:
		return documentsCSV(docs), nil
	case pipeline.FormatText:
		return documentsText(docs), nil
	default:
		return "", fmt.Errorf("unsupported output format: %s", format)
	}
}

func documentsCSV(docs []*DocumentResult) string {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{"file", "page", "image", "format", "angle", "payload", "error"})
	for _, d := range docs {
		for _, p := range d.Pages {
			for _, img := range p.Images {
				page, idx := strconv.Itoa(p.PageNumber), strconv.Itoa(img.ImageIndex)
				if img.Error != "" {
					_ = w.Write([]string{d.Filename, page, idx, "", "", "", img.Error})
					continue
				}
				for _, b := range img.Barcodes {
					_ = w.Write([]string{
						d.Filename, page, idx, b.Format,
						strconv.FormatFloat(b.Angle, 'f', -1, 64), b.Payload, "",
					})
				}
			}
		}
	}
	w.Flush()
	return buf.String()
}

func documentsText(docs []*DocumentResult) string {
	var sb strings.Builder
	for i, d := range docs {
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "# %s (%d pages, %d barcodes)\n", d.Filename, d.TotalPages, d.Count())
		for _, p := range d.Pages {
			for _, img := range p.Images {
				if img.Error != "" {
					fmt.Fprintf(&sb, "page %d image %d: error: %s\n", p.PageNumber, img.ImageIndex, img.Error)
					continue
				}
				for _, b := range img.Barcodes {
					fmt.Fprintf(&sb, "page %d\t%s\t%s\n", p.PageNumber, b.Format, b.Payload)
				}
			}
		}
	}
	return sb.String()
}
