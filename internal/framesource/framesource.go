// Package framesource defines the adapter boundary between a camera and
// the per-camera pipeline. Video ingress itself — RTSP/HTTP/file
// decoding — is explicitly out of scope (spec.md §1 names the detector,
// tracker, embedder and video ingress as external collaborators); this
// package only models "a camera produces timestamped frames" as an
// interface, plus a synthetic source for tests and local development.
package framesource

import (
	"context"
	"image"
	"time"

	"github.com/your-org/reident/internal/detector"
)

// Frame is one timestamped image from a camera. Detector carries the
// full frame already pre-processed into the detector's CHW input
// layout; Raw carries the decoded image so the worker can crop and
// re-encode regions for the embedder and color-histogram stages
// without re-decoding.
type Frame struct {
	CameraID string
	TS       time.Time
	Detector detector.Frame
	Raw      image.Image
}

// Source yields frames for one camera until ctx is cancelled or the
// source is exhausted. Real implementations (RTSP, file, test harness
// generators) live outside this module.
type Source interface {
	CameraID() string
	Next(ctx context.Context) (Frame, error)
}

// Static replays a fixed, pre-decoded slice of frames at a configured
// rate, for tests and local development without a real camera.
type Static struct {
	cameraID string
	frames   []Frame
	rate     time.Duration
	idx      int
}

// NewStatic builds a Source that cycles through frames at detect_rate_hz
// (1/rate), looping once exhausted.
func NewStatic(cameraID string, frames []Frame, rate time.Duration) *Static {
	return &Static{cameraID: cameraID, frames: frames, rate: rate}
}

func (s *Static) CameraID() string { return s.cameraID }

func (s *Static) Next(ctx context.Context) (Frame, error) {
	if len(s.frames) == 0 {
		<-ctx.Done()
		return Frame{}, ctx.Err()
	}

	select {
	case <-ctx.Done():
		return Frame{}, ctx.Err()
	case <-time.After(s.rate):
	}

	f := s.frames[s.idx%len(s.frames)]
	s.idx++
	f.CameraID = s.cameraID
	f.TS = time.Now()
	return f, nil
}
