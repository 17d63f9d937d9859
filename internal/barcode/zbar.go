package barcode

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/xml"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// zbarimg exits with status 4 when the image was read but held no symbols.
const zbarExitNoSymbols = 4

// ZBarDecoder runs the zbarimg command line tool. It only reads files, so it
// is normally wrapped in Staged.
type ZBarDecoder struct {
	Binary string
}

// NewZBarDecoder locates the zbarimg binary. An empty binary name searches
// PATH for "zbarimg".
func NewZBarDecoder(binary string) (*ZBarDecoder, error) {
	if binary == "" {
		binary = "zbarimg"
	}
	path, err := exec.LookPath(binary)
	if err != nil {
		return nil, fmt.Errorf("%w: %s not found: %v", ErrDecoderUnavailable, binary, err)
	}
	return &ZBarDecoder{Binary: path}, nil
}

// DecodeFile implements FileDecoder.
func (z *ZBarDecoder) DecodeFile(ctx context.Context, path string, opts Options) ([]Result, error) {
	args := []string{"--quiet", "--xml"}
	if len(opts.Formats) > 0 {
		var enable []string
		for _, f := range opts.Formats {
			if name, ok := zbarSymbolName(f); ok {
				enable = append(enable, "-S"+name+".enable")
			}
		}
		if len(enable) == 0 {
			return nil, fmt.Errorf("%w: zbarimg cannot read %v", ErrUnsupportedFormat, opts.Formats)
		}
		args = append(args, "-Sdisable")
		args = append(args, enable...)
	}
	args = append(args, path)

	cmd := exec.CommandContext(ctx, z.Binary, args...) //nolint:gosec // G204: binary resolved via LookPath
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == zbarExitNoSymbols {
			return nil, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("zbarimg: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	results, err := parseZBarXML(stdout.Bytes())
	if err != nil {
		return nil, err
	}
	if !opts.Multi && len(results) > 1 {
		results = results[:1]
	}
	return results, nil
}

type zbarBarcodes struct {
	Sources []struct {
		Indexes []struct {
			Symbols []zbarSymbol `xml:"symbol"`
		} `xml:"index"`
	} `xml:"source"`
}

type zbarSymbol struct {
	Type string `xml:"type,attr"`
	Data struct {
		Format string `xml:"format,attr"`
		Text   string `xml:",chardata"`
	} `xml:"data"`
}

// parseZBarXML reads the document printed by "zbarimg --xml". Payloads keep
// embedded newlines; binary data arrives base64 encoded.
func parseZBarXML(out []byte) ([]Result, error) {
	if len(bytes.TrimSpace(out)) == 0 {
		return nil, nil
	}
	var doc zbarBarcodes
	if err := xml.Unmarshal(out, &doc); err != nil {
		return nil, fmt.Errorf("zbarimg: parse xml output: %w", err)
	}

	var results []Result
	for _, src := range doc.Sources {
		for _, idx := range src.Indexes {
			for _, sym := range idx.Symbols {
				payload := sym.Data.Text
				if sym.Data.Format == "base64" {
					raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(payload))
					if err != nil {
						return nil, fmt.Errorf("zbarimg: decode base64 payload: %w", err)
					}
					payload = string(raw)
				}
				if payload == "" {
					continue
				}
				results = append(results, Result{Format: formatFromZBar(sym.Type), Payload: payload})
			}
		}
	}
	return results, nil
}

func formatFromZBar(sym string) Format {
	switch strings.ToUpper(sym) {
	case "QR-CODE":
		return FormatQR
	case "PDF417":
		return FormatPDF417
	case "CODE-128":
		return FormatCode128
	case "CODE-39":
		return FormatCode39
	case "CODE-93":
		return FormatCode93
	case "EAN-8":
		return FormatEAN8
	case "EAN-13":
		return FormatEAN13
	case "UPC-A":
		return FormatUPCA
	case "UPC-E":
		return FormatUPCE
	case "I2/5":
		return FormatITF
	case "CODABAR":
		return FormatCodabar
	default:
		return FormatUnknown
	}
}

func zbarSymbolName(f Format) (string, bool) {
	switch f {
	case FormatQR:
		return "qrcode", true
	case FormatPDF417:
		return "pdf417", true
	case FormatCode128:
		return "code128", true
	case FormatCode39:
		return "code39", true
	case FormatCode93:
		return "code93", true
	case FormatEAN8:
		return "ean8", true
	case FormatEAN13:
		return "ean13", true
	case FormatUPCA:
		return "upca", true
	case FormatUPCE:
		return "upce", true
	case FormatITF:
		return "i25", true
	case FormatCodabar:
		return "codabar", true
	default:
		return "", false
	}
}
