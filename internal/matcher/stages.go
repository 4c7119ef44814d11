package matcher

import (
	"math"

	"github.com/your-org/reident/internal/colorfeature"
	"github.com/your-org/reident/internal/reidmodel"
	"github.com/your-org/reident/internal/vectorindex"
)

// Candidate is the subset of a GlobalPerson's state the matcher needs;
// the Engine builds these from its active gallery so this package has no
// dependency on the Engine's locking or storage concerns.
type Candidate struct {
	GlobalID         int64
	CurrentPositions map[string]reidmodel.Position
	AvgHeightPx      float64
	AvgWidthPx       float64
	ClothingHist     []float64
	SkinTone         []float64
}

// Query is the observation being resolved.
type Query struct {
	CameraID     string
	BBox         reidmodel.BBox
	ClothingHist []float64
	SkinTone     []float64
}

// SpatialMatch implements spec.md §4.6.a. It looks for another active
// person with a current position on a camera configured to overlap with
// the query's camera, whose bbox center is within tolerancePx of the
// query's. Returns ok=false immediately if topology is nil/empty (Open
// Question 2).
func SpatialMatch(topology *CameraTopology, q Query, candidates []Candidate, tolerancePx float64) (int64, bool) {
	if topology == nil || len(topology.Transitions) == 0 {
		return 0, false
	}

	qcx, qcy := q.BBox.CenterX(), q.BBox.CenterY()

	for _, c := range candidates {
		for cam, pos := range c.CurrentPositions {
			if cam == q.CameraID {
				continue
			}
			if !topology.Overlaps(q.CameraID, cam) {
				continue
			}
			dx := pos.BBox.CenterX() - qcx
			dy := pos.BBox.CenterY() - qcy
			dist := math.Sqrt(dx*dx + dy*dy)
			if dist <= tolerancePx {
				return c.GlobalID, true
			}
		}
	}
	return 0, false
}

// DimensionMatch implements spec.md §4.6.b. hasEmbedding reports whether
// the query already has an appearance embedding; per spec, a dimension-
// only match is accepted only when no embedding is available yet.
func DimensionMatch(candidates []Candidate, heightPx, widthPx, tolerance, threshold float64, hasEmbedding bool) (int64, bool) {
	if hasEmbedding {
		return 0, false
	}

	var best int64
	var bestScore float64
	found := false

	for _, c := range candidates {
		if c.AvgHeightPx <= 0 || c.AvgWidthPx <= 0 {
			continue
		}
		hDiff := math.Abs(heightPx-c.AvgHeightPx) / c.AvgHeightPx
		wDiff := math.Abs(widthPx-c.AvgWidthPx) / c.AvgWidthPx
		if hDiff > tolerance || wDiff > tolerance {
			continue
		}
		score := 1 - (hDiff+wDiff)/2
		if score >= threshold && (!found || score > bestScore || (score == bestScore && c.GlobalID < best)) {
			best = c.GlobalID
			bestScore = score
			found = true
		}
	}
	return best, found
}

// ColorConfig parameterizes ColorMatch per spec.md §6's
// clothing_weight/skin_weight/color_threshold/color_sigma surface.
type ColorConfig struct {
	ClothingWeight float64
	SkinWeight     float64
	Sigma          float64
	Threshold      float64
}

// ColorMatch implements spec.md §4.6.c: combined score
// 0.6*correl(h,h') + 0.4*gaussian(||s-s'||/sigma), accept if >= threshold.
func ColorMatch(candidates []Candidate, clothingHist, skinTone []float64, cfg ColorConfig) (int64, bool) {
	if len(clothingHist) == 0 && len(skinTone) == 0 {
		return 0, false
	}

	var best int64
	var bestScore float64
	found := false

	for _, c := range candidates {
		correl := colorfeature.Correlation(clothingHist, c.ClothingHist)
		gauss := colorfeature.GaussianSimilarity(skinTone, c.SkinTone, cfg.Sigma)
		combined := cfg.ClothingWeight*correl + cfg.SkinWeight*gauss

		if combined >= cfg.Threshold && (!found || combined > bestScore || (combined == bestScore && c.GlobalID < best)) {
			best = c.GlobalID
			bestScore = combined
			found = true
		}
	}
	return best, found
}

// AppearanceMatch implements spec.md §4.6.d: VectorIndex.search(e, k=5,
// threshold=face_similarity_threshold), accepting the top candidate.
func AppearanceMatch(index *vectorindex.Index, embedding []float32, threshold float64) (int64, bool) {
	if len(embedding) == 0 {
		return 0, false
	}
	matches := index.Search(embedding, 5, threshold)
	if len(matches) == 0 {
		return 0, false
	}
	return matches[0].GlobalID, true
}
