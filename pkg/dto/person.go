package dto

// PersonResponse is the wire shape of a GlobalPerson snapshot returned by
// GET /rooms/{room_id}/people and GET /people/{global_id}. Field names
// follow spec.md §3's GlobalPerson entity, not the teacher's face-centric
// PersonResponse it replaces.
type PersonResponse struct {
	GlobalID         int64                  `json:"global_id"`
	Name             string                 `json:"name,omitempty"`
	CameraID         string                 `json:"camera_id,omitempty"`
	BBox             *BBoxResponse          `json:"bbox,omitempty"`
	CamerasVisited   []string               `json:"cameras_visited,omitempty"`
	AvgHeightPx      float64                `json:"avg_height_px,omitempty"`
	AvgWidthPx       float64                `json:"avg_width_px,omitempty"`
	FirstSeenTS      string                 `json:"first_seen_ts,omitempty"`
	LastSeenTS       string                 `json:"last_seen_ts,omitempty"`
	TotalAppearances int                    `json:"total_appearances,omitempty"`
	IsActive         bool                   `json:"is_active"`
	SnapshotURL      string                 `json:"snapshot_url,omitempty"`
}

type BBoxResponse struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

// RoomPeopleResponse is GET /rooms/{room_id}/people's body (spec.md §4.9
// list_in_room), with a pre-computed count so clients don't have to
// dedupe the list themselves.
type RoomPeopleResponse struct {
	RoomID string           `json:"room_id"`
	Count  int              `json:"count"`
	People []PersonResponse `json:"people"`
}

// RenamePersonRequest is POST /people/{global_id}/rename's body.
type RenamePersonRequest struct {
	Name string `json:"name" binding:"required"`
}
