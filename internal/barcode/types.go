package barcode

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"
)

// Format represents a barcode symbology.
type Format int

const (
	FormatUnknown Format = iota
	FormatQR
	FormatDataMatrix
	FormatAztec
	FormatPDF417
	FormatCode128
	FormatCode39
	FormatCode93
	FormatEAN8
	FormatEAN13
	FormatUPCA
	FormatUPCE
	FormatITF
	FormatCodabar
)

var (
	// ErrUnknownDecoder is returned by New for an unsupported decoder kind.
	ErrUnknownDecoder = errors.New("barcode: unknown decoder kind")

	// ErrDecoderUnavailable is returned when an external decoder cannot be used
	// on this host, for example because its binary is not installed.
	ErrDecoderUnavailable = errors.New("barcode: decoder unavailable")

	// ErrUnsupportedFormat is returned when a decoder can read none of the
	// requested symbologies.
	ErrUnsupportedFormat = errors.New("barcode: unsupported format")
)

var formatNames = map[Format]string{
	FormatUnknown:    "UNKNOWN",
	FormatQR:         "QR_CODE",
	FormatDataMatrix: "DATA_MATRIX",
	FormatAztec:      "AZTEC",
	FormatPDF417:     "PDF_417",
	FormatCode128:    "CODE_128",
	FormatCode39:     "CODE_39",
	FormatCode93:     "CODE_93",
	FormatEAN8:       "EAN_8",
	FormatEAN13:      "EAN_13",
	FormatUPCA:       "UPC_A",
	FormatUPCE:       "UPC_E",
	FormatITF:        "ITF",
	FormatCodabar:    "CODABAR",
}

// String returns the canonical upper-case symbology name, e.g. "CODE_128".
func (f Format) String() string {
	if s, ok := formatNames[f]; ok {
		return s
	}
	return formatNames[FormatUnknown]
}

// AllFormats lists every concrete symbology in a stable order.
func AllFormats() []Format {
	return []Format{
		FormatQR, FormatDataMatrix, FormatAztec, FormatPDF417,
		FormatCode128, FormatCode39, FormatCode93,
		FormatEAN8, FormatEAN13, FormatUPCA, FormatUPCE,
		FormatITF, FormatCodabar,
	}
}

// ParseFormat maps user-supplied names to a Format. Matching ignores case,
// dashes and underscores, so "qr", "QR_CODE" and "qr-code" all resolve.
func ParseFormat(s string) Format {
	key := strings.NewReplacer("-", "", "_", "", " ", "").Replace(strings.ToLower(strings.TrimSpace(s)))
	switch key {
	case "qr", "qrcode":
		return FormatQR
	case "datamatrix", "dm":
		return FormatDataMatrix
	case "aztec":
		return FormatAztec
	case "pdf417":
		return FormatPDF417
	case "code128":
		return FormatCode128
	case "code39":
		return FormatCode39
	case "code93":
		return FormatCode93
	case "ean8":
		return FormatEAN8
	case "ean13":
		return FormatEAN13
	case "upca":
		return FormatUPCA
	case "upce":
		return FormatUPCE
	case "itf", "i25", "i2/5":
		return FormatITF
	case "codabar":
		return FormatCodabar
	default:
		return FormatUnknown
	}
}

// ParseFormats parses a list of names, skipping blanks. Unknown names are
// returned separately so callers can reject them.
func ParseFormats(names []string) (formats []Format, unknown []string) {
	for _, n := range names {
		if strings.TrimSpace(n) == "" {
			continue
		}
		f := ParseFormat(n)
		if f == FormatUnknown {
			unknown = append(unknown, n)
			continue
		}
		formats = append(formats, f)
	}
	return formats, unknown
}

// Options controls decoding behavior.
type Options struct {
	// Formats constrains the set of symbologies to search. Empty means all.
	Formats []Format

	// TryHarder enables a more exhaustive search (slower but more robust).
	TryHarder bool

	// Multi reports every symbol found instead of stopping at the first.
	Multi bool
}

// Result represents a decoded barcode.
type Result struct {
	Format  Format
	Payload string
	Points  []image.Point   // Corner or finder points if available
	BBox    image.Rectangle // Bounding box derived from Points
}

// Decoder decodes barcodes from an in-memory image.
type Decoder interface {
	Decode(ctx context.Context, img image.Image, opts Options) ([]Result, error)
}

// FileDecoder decodes barcodes from an image file on disk.
type FileDecoder interface {
	DecodeFile(ctx context.Context, path string, opts Options) ([]Result, error)
}

// DecoderFunc adapts a function to the Decoder interface.
type DecoderFunc func(ctx context.Context, img image.Image, opts Options) ([]Result, error)

// Decode calls f.
func (f DecoderFunc) Decode(ctx context.Context, img image.Image, opts Options) ([]Result, error) {
	return f(ctx, img, opts)
}

// Kinds of decoders understood by New.
const (
	KindZXing = "zxing"
	KindZBar  = "zbar"
)

// New returns a decoder for the given kind. tempDir is only used by
// file-based decoders and may be empty to use the system default.
func New(kind, tempDir string) (Decoder, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "", KindZXing, "gozxing":
		return NewZXingDecoder(), nil
	case KindZBar, "zbarimg":
		zb, err := NewZBarDecoder("")
		if err != nil {
			return nil, err
		}
		return &Staged{File: zb, Dir: tempDir}, nil
	default:
		return nil, ErrUnknownDecoder
	}
}

// CheckFormats reports ErrUnsupportedFormat when the decoder of the given
// kind cannot read any of formats. An empty list means all formats.
func CheckFormats(kind string, formats []Format) error {
	if len(formats) == 0 {
		return nil
	}
	var supported func(Format) bool
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "", KindZXing, "gozxing":
		supported = func(f Format) bool { return len(readersFor(Options{Formats: []Format{f}})) > 0 }
	case KindZBar, "zbarimg":
		supported = func(f Format) bool { _, ok := zbarSymbolName(f); return ok }
	default:
		return ErrUnknownDecoder
	}
	for _, f := range formats {
		if supported(f) {
			return nil
		}
	}
	return fmt.Errorf("%w: %s decoder cannot read %v", ErrUnsupportedFormat, kind, formats)
}

// wants reports whether f is requested by opts.
func (o Options) wants(f Format) bool {
	if len(o.Formats) == 0 {
		return true
	}
	for _, x := range o.Formats {
		if x == f {
			return true
		}
	}
	return false
}

func rectFromPoints(pts []image.Point) image.Rectangle {
	if len(pts) == 0 {
		return image.Rectangle{}
	}
	r := image.Rectangle{Min: pts[0], Max: pts[0]}
	for _, p := range pts[1:] {
		if p.X < r.Min.X {
			r.Min.X = p.X
		}
		if p.Y < r.Min.Y {
			r.Min.Y = p.Y
		}
		if p.X > r.Max.X {
			r.Max.X = p.X
		}
		if p.Y > r.Max.Y {
			r.Max.Y = p.Y
		}
	}
	return r
}
