package main

import (
	"bytes"
	"image"
	"image/draw"
	"image/jpeg"

	"github.com/your-org/reident/internal/reidmodel"
)

// imageToFloat32CHW resizes img to targetW x targetH and converts it to
// planar RGB float32, adapted from the teacher's internal/vision
// pipeline's preprocessing step (same mean/std normalization contract,
// generalized to accept any image.Image rather than special-casing
// RGBA/YCbCr, since crops here are already small).
func imageToFloat32CHW(img image.Image, targetW, targetH int, mean, std [3]float32) []float32 {
	data := make([]float32, 3*targetH*targetW)
	planeSize := targetH * targetW

	bounds := img.Bounds()
	srcW, srcH := bounds.Dx(), bounds.Dy()
	if srcW == 0 || srcH == 0 {
		return data
	}

	for y := 0; y < targetH; y++ {
		srcY := bounds.Min.Y + y*srcH/targetH
		for x := 0; x < targetW; x++ {
			srcX := bounds.Min.X + x*srcW/targetW
			r, g, b, _ := img.At(srcX, srcY).RGBA()
			idx := y*targetW + x
			data[idx] = (float32(r>>8) - mean[0]) / std[0]
			data[planeSize+idx] = (float32(g>>8) - mean[1]) / std[1]
			data[2*planeSize+idx] = (float32(b>>8) - mean[2]) / std[2]
		}
	}
	return data
}

// cropImage extracts the padded bbox region from img, clamped to its
// bounds. Returns nil if the box doesn't intersect the image.
func cropImage(img image.Image, b reidmodel.BBox) image.Image {
	bounds := img.Bounds()

	x1, y1 := int(b.X1), int(b.Y1)
	x2, y2 := int(b.X2), int(b.Y2)

	padW := int(float64(x2-x1) * 0.1)
	padH := int(float64(y2-y1) * 0.1)
	x1, y1 = x1-padW, y1-padH
	x2, y2 = x2+padW, y2+padH

	if x1 < bounds.Min.X {
		x1 = bounds.Min.X
	}
	if y1 < bounds.Min.Y {
		y1 = bounds.Min.Y
	}
	if x2 > bounds.Max.X {
		x2 = bounds.Max.X
	}
	if y2 > bounds.Max.Y {
		y2 = bounds.Max.Y
	}
	if x2-x1 <= 0 || y2-y1 <= 0 {
		return nil
	}

	dst := image.NewRGBA(image.Rect(0, 0, x2-x1, y2-y1))
	draw.Draw(dst, dst.Bounds(), img, image.Point{x1, y1}, draw.Src)
	return dst
}

// encodeJPEG encodes img as a JPEG at the given quality, in the format
// internal/snapshot stores. processFrame does not call it.
func encodeJPEG(img image.Image, quality int) []byte {
	var buf bytes.Buffer
	_ = jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality})
	return buf.Bytes()
}
