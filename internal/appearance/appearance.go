// Package appearance implements the AppearanceExtractor (spec.md §4.4,
// §6): frame+bbox in, L2-normalized 512-D embedding + quality proxy out.
// Both the body-crop extractor and the face-crop extractor (explicitly
// out of scope per spec.md §1, but reachable behind the same interface —
// see DESIGN.md Open Question 1) implement Embedder, so the Engine
// never branches on which produced a vector.
package appearance

import (
	"context"

	"github.com/your-org/reident/internal/reidmodel"
)

// Crop is the minimal input an extractor needs: planar RGB float32 data
// already cropped and resized to the model's input size, plus the
// original bbox (used to compute the quality proxy from crop area).
type Crop struct {
	CHW  []float32
	BBox reidmodel.BBox
}

// Result is an extractor's output. Embedding is nil when the crop failed
// the minimum-size check (min side >= 64px, spec.md §4.4).
type Result struct {
	Embedding []float32
	Quality   float64 // in [0,1]
}

// Embedder is the embedding extractor boundary (spec.md §6: "embed(frame,
// bbox) → (vector512 | None, quality)"). The caller must not renormalize
// the returned vector.
type Embedder interface {
	Embed(ctx context.Context, crop Crop) (Result, error)
}

// MinCropSide is the minimum crop side, in pixels, below which extraction
// is refused (spec.md §4.4).
const MinCropSide = 64

// QualityFromBBox derives AppearanceExtractor's scalar quality proxy from
// bbox area: larger crops score higher; position in the frame is not
// considered. This is the same
// "quality from pixel area" idea the teacher's attribute predictor uses
// for its confidence score, generalized here to drive the Engine's
// quality-margin re-extraction trigger (spec.md §4.4 point 2).
func QualityFromBBox(b reidmodel.BBox, frameW, frameH float64) float64 {
	area := b.Width() * b.Height()
	frameArea := frameW * frameH
	if frameArea <= 0 {
		return 0
	}
	q := area / frameArea
	// A person filling roughly a third of the frame height is already a
	// high-quality crop; saturate rather than let huge close-ups dominate.
	q = q * 6
	if q > 1 {
		q = 1
	}
	return q
}
