package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/your-org/reident/internal/bus"
	"github.com/your-org/reident/internal/snapshot"
	"github.com/your-org/reident/internal/store"
)

// SystemHandler serves health/readiness probes, grounded directly on the
// teacher's handlers.SystemHandler, re-pointed at the new store/snapshot/
// bus components.
type SystemHandler struct {
	db       *store.Store
	snapshot *snapshot.Store
	producer *bus.Producer
}

func NewSystemHandler(db *store.Store, snap *snapshot.Store, producer *bus.Producer) *SystemHandler {
	return &SystemHandler{db: db, snapshot: snap, producer: producer}
}

func (h *SystemHandler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *SystemHandler) Readyz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	checks := map[string]string{}
	healthy := true

	if err := h.db.Ping(ctx); err != nil {
		checks["postgres"] = err.Error()
		healthy = false
	} else {
		checks["postgres"] = "ok"
	}

	if err := h.snapshot.Ping(ctx); err != nil {
		checks["minio"] = err.Error()
		healthy = false
	} else {
		checks["minio"] = "ok"
	}

	if err := h.producer.Ping(); err != nil {
		checks["nats"] = err.Error()
		healthy = false
	} else {
		checks["nats"] = "ok"
	}

	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, gin.H{
		"status": map[bool]string{true: "ready", false: "not ready"}[healthy],
		"checks": checks,
	})
}
