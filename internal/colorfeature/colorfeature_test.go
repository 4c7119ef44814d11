package colorfeature

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/reident/internal/reidmodel"
)

// solidImage fills a w x h RGBA image with one color, resembling a
// person crop with a uniform torso/head for deterministic histograms.
func solidImage(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func TestExtract_UniformCropProducesNormalizedHistogram(t *testing.T) {
	img := solidImage(40, 100, color.RGBA{R: 200, G: 50, B: 50, A: 255})
	result := Extract(img, reidmodel.BBox{X1: 0, Y1: 0, X2: 40, Y2: 100})

	require.Len(t, result.ClothingHist, ClothingHistDim)
	require.Len(t, result.SkinTone, 3)

	// Each of the 3 channel sub-histograms is independently L1-normalized
	// to sum to 1, for 3 total across the 48-D concatenation.
	var total float64
	for _, v := range result.ClothingHist {
		total += v
	}
	assert.InDelta(t, 3.0, total, 1e-9)
}

func TestExtract_OutOfBoundsBoxClamps(t *testing.T) {
	img := solidImage(10, 10, color.RGBA{R: 100, G: 100, B: 100, A: 255})
	result := Extract(img, reidmodel.BBox{X1: -50, Y1: -50, X2: 500, Y2: 500})
	assert.NotNil(t, result.ClothingHist)
}

func TestExtract_ZeroAreaBoxReturnsEmpty(t *testing.T) {
	img := solidImage(10, 10, color.RGBA{R: 100, G: 100, B: 100, A: 255})
	result := Extract(img, reidmodel.BBox{X1: 5, Y1: 5, X2: 5, Y2: 5})
	assert.Nil(t, result.ClothingHist)
	assert.Nil(t, result.SkinTone)
}

func TestCorrelation_IdenticalHistogramsScoreOne(t *testing.T) {
	a := []float64{1, 2, 3, 4, 5}
	assert.InDelta(t, 1.0, Correlation(a, a), 1e-9)
}

func TestCorrelation_EmptyOrMismatchedReturnsZero(t *testing.T) {
	assert.Equal(t, 0.0, Correlation(nil, []float64{1}))
	assert.Equal(t, 0.0, Correlation([]float64{1, 2}, []float64{1}))
}

func TestGaussianSimilarity_ZeroDistanceScoresOne(t *testing.T) {
	a := []float64{0.5, 0.5, 0.5}
	assert.InDelta(t, 1.0, GaussianSimilarity(a, a, 0.25), 1e-9)
}

func TestGaussianSimilarity_FarApartScoresNearZero(t *testing.T) {
	a := []float64{0, 0, 0}
	b := []float64{1, 1, 1}
	assert.Less(t, GaussianSimilarity(a, b, 0.1), 0.01)
}
