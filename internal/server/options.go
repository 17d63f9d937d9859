package server

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/MeKo-Tech/barscan/internal/barcode"
	"github.com/MeKo-Tech/barscan/internal/pipeline"
	"github.com/MeKo-Tech/barscan/internal/utils"
)

// decodeOptions are the optional per-request overrides.
type decodeOptions struct {
	Step    *float64 `json:"step,omitempty" validate:"omitempty,gte=1,lt=360"`
	Fill    string   `json:"fill,omitempty" validate:"omitempty,hexcolor"`
	Formats []string `json:"formats,omitempty" validate:"omitempty,dive,barcodeformat"`
	Format  string   `json:"format,omitempty" validate:"omitempty,oneof=json yaml csv text overlay"`
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("barcodeformat", func(fl validator.FieldLevel) bool {
		return barcode.ParseFormat(fl.Field().String()) != barcode.FormatUnknown
	})
	return v
}

// parseDecodeOptions reads step, fill, formats and format from the query
// string, falling back to multipart form values.
func parseDecodeOptions(query url.Values, form func(string) string) (decodeOptions, error) {
	get := func(key string) string {
		if v := query.Get(key); v != "" {
			return v
		}
		if form != nil {
			return form(key)
		}
		return ""
	}

	var o decodeOptions
	if raw := strings.TrimSpace(get("step")); raw != "" {
		step, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return o, fmt.Errorf("step must be a number, got %q", raw)
		}
		o.Step = &step
	}
	if raw := strings.TrimSpace(get("fill")); raw != "" {
		// Names and bare hex are normalized; anything else is left for
		// the validator to reject.
		if c, err := utils.ParseColor(raw); err == nil {
			o.Fill = utils.ColorHex(c)
		} else {
			o.Fill = raw
		}
	}
	if raw := get("formats"); raw != "" {
		for _, f := range strings.Split(raw, ",") {
			if f = strings.TrimSpace(f); f != "" {
				o.Formats = append(o.Formats, f)
			}
		}
	}
	o.Format = strings.ToLower(strings.TrimSpace(get("format")))
	return o, nil
}

// check validates o and describes the first failing field.
func (s *Server) check(o decodeOptions) error {
	if err := s.validate.Struct(o); err != nil {
		return describeValidation(err)
	}
	if len(o.Formats) > 0 && s.pipeline != nil {
		formats, _ := barcode.ParseFormats(o.Formats)
		if err := barcode.CheckFormats(s.pipeline.Info().Decoder, formats); err != nil {
			return err
		}
	}
	return nil
}

func describeValidation(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	name := fe.StructField()
	if i := strings.IndexByte(name, '['); i >= 0 {
		name = name[:i] // dive errors name the element, e.g. Formats[1]
	}
	switch name {
	case "Step":
		return errors.New("step must satisfy 1 <= step < 360")
	case "Fill":
		return fmt.Errorf("fill must be a hex color, got %q", fe.Value())
	case "Formats":
		return fmt.Errorf("unknown barcode format %q", fe.Value())
	case "Format":
		return fmt.Errorf("unsupported output format %q", fe.Value())
	}
	return fmt.Errorf("invalid %s", strings.ToLower(fe.Field()))
}

// overrides converts validated options to pipeline overrides.
func (o decodeOptions) overrides() (pipeline.Overrides, error) {
	var ov pipeline.Overrides
	if o.Step != nil {
		ov.AngleStep = *o.Step
	}
	if o.Fill != "" {
		c, err := utils.ParseColor(o.Fill)
		if err != nil {
			return ov, fmt.Errorf("invalid fill: %w", err)
		}
		ov.Fill = c
	}
	ov.Formats, _ = barcode.ParseFormats(o.Formats)
	return ov, nil
}
