package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// ReadinessPinger is a dependency the readiness probe checks.
type ReadinessPinger interface {
	Ping(ctx context.Context) error
}

// QueueStatus reports broker connectivity and backlog.
type QueueStatus interface {
	Ping() error
	QueueDepth(ctx context.Context) (uint64, error)
}

type SystemHandler struct {
	db    ReadinessPinger
	minio ReadinessPinger
	queue QueueStatus
}

func NewSystemHandler(db, minio ReadinessPinger, queue QueueStatus) *SystemHandler {
	return &SystemHandler{db: db, minio: minio, queue: queue}
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

	if err := h.minio.Ping(ctx); err != nil {
		checks["minio"] = err.Error()
		healthy = false
	} else {
		checks["minio"] = "ok"
	}

	resp := gin.H{"checks": checks}
	if err := h.queue.Ping(); err != nil {
		checks["nats"] = err.Error()
		healthy = false
	} else {
		checks["nats"] = "ok"
		// Backlog is informational; a depth lookup failure does not flip
		// readiness while the connection itself is up.
		if depth, err := h.queue.QueueDepth(ctx); err == nil {
			resp["queue_depth"] = depth
		}
	}

	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}

	resp["status"] = map[bool]string{true: "ready", false: "not ready"}[healthy]
	c.JSON(status, resp)
}
