package pipeline

import (
	"context"
	"image"
	"image/color"
	"log/slog"

	"github.com/MeKo-Tech/barscan/internal/barcode"
	"github.com/MeKo-Tech/barscan/internal/utils"
)

// RotateFunc produces a copy of img rotated counter-clockwise by angle
// degrees about its center, on a canvas of the same size.
type RotateFunc func(img image.Image, angle float64, fill color.Color) image.Image

func rotateCentered(img image.Image, angle float64, fill color.Color) image.Image {
	return utils.RotateCentered(img, angle, fill)
}

// Angles lists the sweep angles for step: 0, step, 2*step, ... below 360.
func Angles(step float64) ([]float64, error) {
	if err := ValidateAngleStep(step); err != nil {
		return nil, err
	}
	var out []float64
	for i := 0; ; i++ {
		a := float64(i) * step
		if a >= 360 {
			break
		}
		out = append(out, a)
	}
	return out, nil
}

// RotationDecoder runs the angle sweep for one cropped region.
type RotationDecoder struct {
	Decoder barcode.Decoder
	Options barcode.Options
	Fill    color.Color
	Rotate  RotateFunc
}

// NewRotationDecoder returns a sweep over dec with a same-size centered
// rotation.
func NewRotationDecoder(dec barcode.Decoder, opts barcode.Options, fill color.Color) *RotationDecoder {
	return &RotationDecoder{Decoder: dec, Options: opts, Fill: fill, Rotate: rotateCentered}
}

// Sweep is the outcome of one region's rotation sweep.
type Sweep struct {
	Result      *DecodeResult // nil when nothing decoded
	AnglesTried int
	Failures    int // attempts where the decoder returned an error
}

// DecodeWithRotation tries each sweep angle in ascending order and returns
// the first non-empty payload together with the angle that produced it.
// Exhausting all angles is not an error: Sweep.Result is nil. Decoder
// errors for a single angle are logged and the sweep moves on. When ctx is
// done the sweep stops after the attempt in progress and returns ctx.Err().
func (r *RotationDecoder) DecodeWithRotation(ctx context.Context, img image.Image, step float64) (Sweep, error) {
	angles, err := Angles(step)
	if err != nil {
		return Sweep{}, err
	}
	rotate := r.Rotate
	if rotate == nil {
		rotate = rotateCentered
	}
	fill := r.Fill
	if fill == nil {
		fill = color.White
	}

	var sw Sweep
	for _, angle := range angles {
		if err := ctx.Err(); err != nil {
			return sw, err
		}
		sw.AnglesTried++

		res, err := r.attempt(ctx, rotate(img, angle, fill))
		if err != nil {
			sw.Failures++
			slog.Debug("Decode attempt failed", "angle", angle, "error", err)
			continue
		}
		if res != nil {
			sw.Result = &DecodeResult{
				Payload: res.Payload,
				Format:  res.Format.String(),
				Angle:   angle,
			}
			return sw, nil
		}
	}
	return sw, nil
}

// attempt decodes one rotated copy and returns the first result with a
// payload.
func (r *RotationDecoder) attempt(ctx context.Context, img image.Image) (*barcode.Result, error) {
	results, err := r.Decoder.Decode(ctx, img, r.Options)
	if err != nil {
		return nil, err
	}
	for i := range results {
		if results[i].Payload != "" {
			return &results[i], nil
		}
	}
	return nil, nil
}
