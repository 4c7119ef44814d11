// Package colorfeature implements the ColorFeatureExtractor (spec.md
// §4.4): an HSV clothing histogram over the torso slice of a person crop,
// and mean-HSV skin tone over the head slice. No example repo in the
// corpus computes an HSV histogram directly; this package is grounded on
// the teacher's pixel-access and RGB conversion style in
// internal/vision/pipeline.go (which converts YCbCr to RGB per-pixel via
// color.YCbCrToRGB) generalized to an HSV histogram, and uses
// gonum.org/v1/gonum/stat for the Pearson correlation spec.md §4.6.c
// requires — a dependency grounded on banshee-data-velocity.report's
// go.mod, the one pack repo with a gonum dependency.
package colorfeature

import (
	"image"
	"math"

	"github.com/your-org/reident/internal/reidmodel"
)

// HSVBins is the per-channel bin count for the clothing histogram
// (spec.md §4.4: 16-bin HSV, concatenated across 3 channels = 48-D).
const HSVBins = 16

// ClothingHistDim is the clothing histogram's total dimensionality.
const ClothingHistDim = HSVBins * 3

// Result holds the extractor's two outputs; either may be nil if its
// slice was empty after clipping to the frame.
type Result struct {
	ClothingHist []float64 // 48-D, L1-normalized per channel
	SkinTone     []float64 // 3-D mean HSV
}

// Extract computes clothing_hist and skin_tone from a cropped person
// region of an already-decoded image, using the torso slice y in
// [0.4,0.7]*h and the head slice y in [0.0,0.25]*h, both spec.md §4.4.
func Extract(img image.Image, b reidmodel.BBox) Result {
	bounds := img.Bounds()
	x1, y1, x2, y2 := clampBox(b, bounds)
	h := y2 - y1
	if h <= 0 || x2 <= x1 {
		return Result{}
	}

	torsoY0 := y1 + int(0.4*float64(h))
	torsoY1 := y1 + int(0.7*float64(h))
	headY0 := y1
	headY1 := y1 + int(0.25*float64(h))

	return Result{
		ClothingHist: histogram(img, x1, torsoY0, x2, torsoY1),
		SkinTone:     meanHSV(img, x1, headY0, x2, headY1),
	}
}

func clampBox(b reidmodel.BBox, bounds image.Rectangle) (x1, y1, x2, y2 int) {
	x1 = clampInt(int(b.X1), bounds.Min.X, bounds.Max.X)
	y1 = clampInt(int(b.Y1), bounds.Min.Y, bounds.Max.Y)
	x2 = clampInt(int(b.X2), bounds.Min.X, bounds.Max.X)
	y2 = clampInt(int(b.Y2), bounds.Min.Y, bounds.Max.Y)
	return
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// histogram builds the 48-D concatenated, per-channel L1-normalized HSV
// histogram of the given slice. Returns nil if the slice is empty.
func histogram(img image.Image, x1, y1, x2, y2 int) []float64 {
	if x2 <= x1 || y2 <= y1 {
		return nil
	}

	hHist := make([]float64, HSVBins)
	sHist := make([]float64, HSVBins)
	vHist := make([]float64, HSVBins)
	var n float64

	for y := y1; y < y2; y++ {
		for x := x1; x < x2; x++ {
			hh, ss, vv := pixelHSV(img, x, y)
			hHist[binOf(hh, 360)]++
			sHist[binOf(ss, 1)]++
			vHist[binOf(vv, 1)]++
			n++
		}
	}
	if n == 0 {
		return nil
	}

	l1Normalize(hHist)
	l1Normalize(sHist)
	l1Normalize(vHist)

	out := make([]float64, 0, ClothingHistDim)
	out = append(out, hHist...)
	out = append(out, sHist...)
	out = append(out, vHist...)
	return out
}

func meanHSV(img image.Image, x1, y1, x2, y2 int) []float64 {
	if x2 <= x1 || y2 <= y1 {
		return nil
	}
	var sumH, sumS, sumV, n float64
	for y := y1; y < y2; y++ {
		for x := x1; x < x2; x++ {
			hh, ss, vv := pixelHSV(img, x, y)
			sumH += hh
			sumS += ss
			sumV += vv
			n++
		}
	}
	if n == 0 {
		return nil
	}
	return []float64{sumH / n, sumS / n, sumV / n}
}

func binOf(v, max float64) int {
	if max <= 0 {
		return 0
	}
	bin := int((v / max) * float64(HSVBins))
	if bin >= HSVBins {
		bin = HSVBins - 1
	}
	if bin < 0 {
		bin = 0
	}
	return bin
}

func l1Normalize(v []float64) {
	var sum float64
	for _, x := range v {
		sum += x
	}
	if sum <= 0 {
		return
	}
	for i := range v {
		v[i] /= sum
	}
}

// pixelHSV reads one pixel and converts it to HSV, h in [0,360), s and v
// in [0,1]. RGBA() already handles the teacher's fast-path types
// (image.RGBA, image.YCbCr) internally via the standard library's
// color.Color conversion.
func pixelHSV(img image.Image, x, y int) (h, s, v float64) {
	r16, g16, b16, _ := img.At(x, y).RGBA()
	r := float64(r16) / 65535
	g := float64(g16) / 65535
	b := float64(b16) / 65535

	maxC := math.Max(r, math.Max(g, b))
	minC := math.Min(r, math.Min(g, b))
	delta := maxC - minC

	v = maxC
	if maxC > 0 {
		s = delta / maxC
	}

	if delta == 0 {
		h = 0
	} else if maxC == r {
		h = 60 * math.Mod((g-b)/delta, 6)
	} else if maxC == g {
		h = 60 * ((b-r)/delta + 2)
	} else {
		h = 60 * ((r-g)/delta + 4)
	}
	if h < 0 {
		h += 360
	}
	return h, s, v
}
