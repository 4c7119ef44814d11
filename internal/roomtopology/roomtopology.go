// Package roomtopology adapts the operator-supplied room/camera layout
// (spec.md §1 names the room-designer UI itself out of scope, but the
// Engine still needs to know which cameras cover which room, §4.9) into
// the engine.RoomTopology and matcher.CameraTopology contracts.
package roomtopology

import (
	"github.com/your-org/reident/internal/config"
	"github.com/your-org/reident/internal/matcher"
)

// Static implements engine.RoomTopology from a fixed room->cameras map
// loaded at startup.
type Static struct {
	rooms map[string][]string
}

func NewStatic(rooms map[string][]string) *Static {
	return &Static{rooms: rooms}
}

func (s *Static) CamerasInRoom(roomID string) []string {
	return s.rooms[roomID]
}

// BuildCameraTopology converts the configured camera-pair edges into the
// matcher's CameraTopology, per SPEC_FULL.md's domain-stack wiring of
// spatial-overlap metadata (DESIGN.md Open Question 2: nil/empty is a
// valid "no topology configured" state, not an error).
func BuildCameraTopology(edges []config.TopologyEdge) *matcher.CameraTopology {
	if len(edges) == 0 {
		return nil
	}
	transitions := make(map[matcher.CameraPair]matcher.TransitionType, len(edges))
	for _, e := range edges {
		var t matcher.TransitionType
		switch e.Transition {
		case "overlap":
			t = matcher.TransitionOverlap
		case "adjacent":
			t = matcher.TransitionAdjacent
		case "gap":
			t = matcher.TransitionGap
		default:
			continue
		}
		transitions[matcher.NewCameraPair(e.CameraA, e.CameraB)] = t
	}
	return &matcher.CameraTopology{Transitions: transitions}
}
