package barcode

import (
	"context"
	"fmt"
	"image"
	"image/draw"

	"github.com/disintegration/imaging"
	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/aztec"
	"github.com/makiuchi-d/gozxing/datamatrix"
	multiqr "github.com/makiuchi-d/gozxing/multi/qrcode"
	"github.com/makiuchi-d/gozxing/oned"
	"github.com/makiuchi-d/gozxing/qrcode"
)

// maxSymbolsPerFormat bounds the mask-and-retry loop used for multi decoding.
const maxSymbolsPerFormat = 8

// ZXingDecoder decodes barcodes in memory with gozxing.
//
// gozxing readers keep per-call state, so a fresh reader set is built for
// every Decode call and the decoder itself is safe for concurrent use.
type ZXingDecoder struct{}

// NewZXingDecoder returns the in-memory gozxing decoder.
func NewZXingDecoder() *ZXingDecoder { return &ZXingDecoder{} }

type formatReader struct {
	format Format
	reader gozxing.Reader
}

// readersFor returns readers for the requested symbologies in a fixed order.
// 2D readers come first because their finder patterns are less ambiguous.
// gozxing has no PDF417 reader; that symbology is left to zbar.
func readersFor(opts Options) []formatReader {
	all := []formatReader{
		{FormatQR, qrcode.NewQRCodeReader()},
		{FormatDataMatrix, datamatrix.NewDataMatrixReader()},
		{FormatAztec, aztec.NewAztecReader()},
		{FormatCode128, oned.NewCode128Reader()},
		{FormatCode39, oned.NewCode39Reader()},
		{FormatCode93, oned.NewCode93Reader()},
		{FormatEAN13, oned.NewEAN13Reader()},
		{FormatEAN8, oned.NewEAN8Reader()},
		{FormatUPCA, oned.NewUPCAReader()},
		{FormatUPCE, oned.NewUPCEReader()},
		{FormatITF, oned.NewITFReader()},
		{FormatCodabar, oned.NewCodaBarReader()},
	}
	out := make([]formatReader, 0, len(all))
	for _, fr := range all {
		if opts.wants(fr.format) {
			out = append(out, fr)
		}
	}
	return out
}

// Decode implements Decoder. Reader failures (not found, checksum, format)
// mean "nothing readable" and are never returned as errors.
func (d *ZXingDecoder) Decode(ctx context.Context, img image.Image, opts Options) ([]Result, error) {
	if img == nil {
		return nil, fmt.Errorf("zxing: nil image")
	}
	if b := img.Bounds(); b.Dx() == 0 || b.Dy() == 0 {
		return nil, nil
	}

	bitmap, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return nil, fmt.Errorf("zxing: create bitmap: %w", err)
	}

	hints := make(map[gozxing.DecodeHintType]interface{})
	if opts.TryHarder {
		hints[gozxing.DecodeHintType_TRY_HARDER] = true
	}

	var out []Result
	seen := make(map[string]bool)
	for _, fr := range readersFor(opts) {
		if err := ctx.Err(); err != nil {
			return out, err
		}

		var found []*gozxing.Result
		switch {
		case opts.Multi && fr.format == FormatQR:
			rs, err := multiqr.NewQRCodeMultiReader().DecodeMultiple(bitmap, hints)
			if err != nil {
				continue
			}
			found = rs
		case opts.Multi:
			found = decodeMasked(ctx, img, fr.reader, hints)
		default:
			r, err := fr.reader.Decode(bitmap, hints)
			if err != nil || r == nil {
				continue
			}
			found = []*gozxing.Result{r}
		}

		for _, r := range found {
			res := convertResult(r)
			if res.Payload == "" {
				continue
			}
			key := res.Format.String() + "\x00" + res.Payload
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, res)
		}
		if len(out) > 0 && !opts.Multi {
			return out, nil
		}
	}
	return out, nil
}

// decodeMasked finds several symbols of one format by decoding, painting the
// hit white and decoding again until the reader comes up empty.
func decodeMasked(ctx context.Context, img image.Image, reader gozxing.Reader, hints map[gozxing.DecodeHintType]interface{}) []*gozxing.Result {
	work := imaging.Clone(img)
	var found []*gozxing.Result
	for range maxSymbolsPerFormat {
		if ctx.Err() != nil {
			break
		}
		bitmap, err := gozxing.NewBinaryBitmapFromImage(work)
		if err != nil {
			break
		}
		r, err := reader.Decode(bitmap, hints)
		reader.Reset()
		if err != nil || r == nil {
			break
		}
		found = append(found, r)

		area := maskArea(convertResult(r).Points, work.Bounds())
		if area.Empty() {
			break
		}
		draw.Draw(work, area, image.White, image.Point{}, draw.Src)
	}
	return found
}

// maskArea returns the region to blank out after a hit. 1D readers report
// two points on a single scan line, so a flat box is grown across the bars.
func maskArea(points []image.Point, bounds image.Rectangle) image.Rectangle {
	if len(points) == 0 {
		return image.Rectangle{}
	}
	r := rectFromPoints(points)
	switch {
	case r.Dy() < r.Dx()/2:
		grow := r.Dx() / 4
		r.Min.Y -= grow
		r.Max.Y += grow
	case r.Dx() < r.Dy()/2:
		grow := r.Dy() / 4
		r.Min.X -= grow
		r.Max.X += grow
	}
	return r.Inset(-4).Intersect(bounds)
}

func convertResult(r *gozxing.Result) Result {
	var points []image.Point
	if rp := r.GetResultPoints(); len(rp) > 0 {
		points = make([]image.Point, 0, len(rp))
		for _, p := range rp {
			points = append(points, image.Pt(int(p.GetX()), int(p.GetY())))
		}
	}
	return Result{
		Format:  formatFromZXing(r.GetBarcodeFormat()),
		Payload: r.GetText(),
		Points:  points,
		BBox:    rectFromPoints(points),
	}
}

func formatFromZXing(bf gozxing.BarcodeFormat) Format {
	switch bf {
	case gozxing.BarcodeFormat_QR_CODE:
		return FormatQR
	case gozxing.BarcodeFormat_DATA_MATRIX:
		return FormatDataMatrix
	case gozxing.BarcodeFormat_AZTEC:
		return FormatAztec
	case gozxing.BarcodeFormat_PDF_417:
		return FormatPDF417
	case gozxing.BarcodeFormat_CODE_128:
		return FormatCode128
	case gozxing.BarcodeFormat_CODE_39:
		return FormatCode39
	case gozxing.BarcodeFormat_CODE_93:
		return FormatCode93
	case gozxing.BarcodeFormat_EAN_8:
		return FormatEAN8
	case gozxing.BarcodeFormat_EAN_13:
		return FormatEAN13
	case gozxing.BarcodeFormat_UPC_A:
		return FormatUPCA
	case gozxing.BarcodeFormat_UPC_E:
		return FormatUPCE
	case gozxing.BarcodeFormat_ITF:
		return FormatITF
	case gozxing.BarcodeFormat_CODABAR:
		return FormatCodabar
	default:
		return FormatUnknown
	}
}
