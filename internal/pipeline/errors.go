package pipeline

import (
	"errors"
	"fmt"

	"github.com/MeKo-Tech/barscan/internal/detector"
)

// IngestError reports input bytes that are not a usable image. It is a
// client error.
type IngestError struct {
	Err error
}

func (e *IngestError) Error() string {
	return fmt.Sprintf("invalid image: %v", e.Err)
}

func (e *IngestError) Unwrap() error { return e.Err }

// IsIngestError reports whether err is or wraps an IngestError.
func IsIngestError(err error) bool {
	var ie *IngestError
	return errors.As(err, &ie)
}

// IsDetectionError reports whether err is or wraps a detector.DetectionError.
func IsDetectionError(err error) bool {
	var de *detector.DetectionError
	return errors.As(err, &de)
}
