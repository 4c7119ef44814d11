package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/your-org/reident/internal/engine"
	"github.com/your-org/reident/pkg/dto"
)

// QueryHandler exposes the QueryFacade's read operations (spec.md §4.9)
// over HTTP; it performs no matching of its own, only translation.
type QueryHandler struct {
	facade *engine.QueryFacade
}

func NewQueryHandler(facade *engine.QueryFacade) *QueryHandler {
	return &QueryHandler{facade: facade}
}

// ListInRoom implements GET /rooms/:room_id/people.
func (h *QueryHandler) ListInRoom(c *gin.Context) {
	roomID := c.Param("room_id")
	views := h.facade.ListInRoom(roomID)

	seen := make(map[int64]struct{})
	people := make([]dto.PersonResponse, 0, len(views))
	for _, v := range views {
		if _, dup := seen[v.GlobalID]; dup {
			continue
		}
		seen[v.GlobalID] = struct{}{}
		people = append(people, dto.PersonResponse{
			GlobalID: v.GlobalID,
			Name:     v.Name,
			CameraID: v.CameraID,
			BBox: &dto.BBoxResponse{
				X1: v.BBox.X1, Y1: v.BBox.Y1, X2: v.BBox.X2, Y2: v.BBox.Y2,
			},
			IsActive: true,
		})
	}

	c.JSON(http.StatusOK, dto.RoomPeopleResponse{
		RoomID: roomID,
		Count:  len(people),
		People: people,
	})
}

// GetPerson implements GET /people/:global_id.
func (h *QueryHandler) GetPerson(c *gin.Context) {
	gid, ok := parseGlobalID(c)
	if !ok {
		return
	}

	snap, found := h.facade.GetPerson(gid)
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
		return
	}

	c.JSON(http.StatusOK, dto.PersonResponse{
		GlobalID:         snap.GlobalID,
		Name:             snap.AssignedName,
		CamerasVisited:   snap.CamerasVisited,
		AvgHeightPx:      snap.AvgHeightPx,
		AvgWidthPx:       snap.AvgWidthPx,
		FirstSeenTS:      snap.FirstSeenTS,
		LastSeenTS:       snap.LastSeenTS,
		TotalAppearances: snap.TotalAppearances,
		IsActive:         snap.IsActive,
		SnapshotURL:      snap.BestSnapshotKey,
	})
}

// RenamePerson implements POST /people/:global_id/rename.
func (h *QueryHandler) RenamePerson(c *gin.Context) {
	gid, ok := parseGlobalID(c)
	if !ok {
		return
	}

	var req dto.RenamePersonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !h.facade.RenamePerson(gid, req.Name) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func parseGlobalID(c *gin.Context) (int64, bool) {
	gid, err := strconv.ParseInt(c.Param("global_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid global_id"})
		return 0, false
	}
	return gid, true
}
