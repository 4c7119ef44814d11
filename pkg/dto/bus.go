package dto

// DetectionTask is one LocalTracker update published to the DETECTIONS
// stream (internal/bus) for the Engine to Resolve. Embedding/color
// fields are only populated on frames where extraction ran (spec.md
// §4.5's ShouldExtractAppearance gate).
type DetectionTask struct {
	CameraID          string    `json:"camera_id"`
	LocalTrackID      string    `json:"local_track_id"`
	FrameTS           string    `json:"frame_ts"`
	BBox              BBoxResponse `json:"bbox"`
	Confidence        float64   `json:"confidence"`
	ConsecutiveFrames int       `json:"consecutive_frames"`

	Embedding        []float32 `json:"embedding,omitempty"`
	EmbeddingQuality float64   `json:"embedding_quality,omitempty"`
	ClothingHist     []float64 `json:"clothing_hist,omitempty"`
	SkinTone         []float64 `json:"skin_tone,omitempty"`
}

// DetectionLost marks a local_track_id as expired, telling the Engine to
// release its binding (spec.md §4.3).
type DetectionLost struct {
	CameraID     string `json:"camera_id"`
	LocalTrackID string `json:"local_track_id"`
}

// ResolutionEvent is published to the RESOLUTIONS stream once a
// DetectionTask is resolved to a global_id, for the WS broadcast hub.
type ResolutionEvent struct {
	CameraID     string       `json:"camera_id"`
	LocalTrackID string       `json:"local_track_id"`
	GlobalID     int64        `json:"global_id"`
	Name         string       `json:"name,omitempty"`
	BBox         BBoxResponse `json:"bbox"`
	Provisional  bool         `json:"provisional"`
}
