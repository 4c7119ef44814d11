package framesource

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/reident/internal/detector"
)

func TestStatic_CyclesFramesAndStampsCameraID(t *testing.T) {
	frames := []Frame{
		{Detector: detector.Frame{Width: 1}},
		{Detector: detector.Frame{Width: 2}},
	}
	src := NewStatic("cam1", frames, time.Millisecond)
	assert.Equal(t, "cam1", src.CameraID())

	ctx := context.Background()
	f1, err := src.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, f1.Detector.Width)
	assert.Equal(t, "cam1", f1.CameraID)

	f2, err := src.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, f2.Detector.Width)

	f3, err := src.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, f3.Detector.Width, "Static must loop back to the first frame once exhausted")
}

func TestStatic_EmptyFramesBlocksUntilContextDone(t *testing.T) {
	src := NewStatic("cam1", nil, time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := src.Next(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStatic_NextRespectsContextCancellation(t *testing.T) {
	src := NewStatic("cam1", []Frame{{}}, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := src.Next(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
