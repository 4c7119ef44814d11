// Package detector defines the Detector boundary named in spec.md §4.2/§6
// and an ONNX-backed adapter implementing it. The Engine and pipeline code
// depend only on the Detector interface; the object detector itself is an
// external collaborator per spec.md §1.
package detector

import (
	"context"

	"github.com/your-org/reident/internal/reidmodel"
)

// Box is a single detector output: a person bounding box and confidence,
// confidence in [0,1].
type Box struct {
	BBox       reidmodel.BBox
	Confidence float64
}

// Frame is the minimal image representation the detector consumes —
// pre-decoded pixel data plus its dimensions, so this package has no
// dependency on any particular ingest/decode stack.
type Frame struct {
	Width, Height int
	// CHW contains the frame pre-processed into planar RGB float32 data,
	// normalized the way the concrete model expects it. Callers that
	// don't have a compatible ONNX model may ignore this field entirely.
	CHW []float32
}

// Detector is the external boundary: frame in, person boxes out. No
// internal state; may fail transiently, in which case the caller skips
// the frame's detection stage per spec.md §7.
type Detector interface {
	Detect(ctx context.Context, frame Frame) ([]Box, error)
}
