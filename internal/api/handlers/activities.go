package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/your-org/faceid/internal/domain"
	"github.com/your-org/faceid/internal/models"
	"github.com/your-org/faceid/pkg/dto"
)

// ActivityPublisher queues detection events for the activities consumer.
type ActivityPublisher interface {
	PublishActivity(ctx context.Context, workspaceID string, data interface{}) error
}

type ActivityHandler struct {
	svc       *domain.Service
	publisher ActivityPublisher
}

func NewActivityHandler(svc *domain.Service, publisher ActivityPublisher) *ActivityHandler {
	return &ActivityHandler{svc: svc, publisher: publisher}
}

// Ingest accepts a detection event and publishes it under the workspace
// subject. Persistence happens asynchronously in the stream consumer, so
// the response is an acknowledgement of the enqueue, not of the write.
func (h *ActivityHandler) Ingest(c *gin.Context) {
	wsID, err := uuid.Parse(c.Param("ws"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid workspace id"})
		return
	}

	var req dto.IngestActivityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ts := time.Now().UTC()
	if req.Timestamp != nil {
		ts = *req.Timestamp
	}
	event := models.ActivityEvent{
		WorkspaceID: wsID,
		PersonID:    req.PersonID,
		CameraID:    req.CameraID,
		Timestamp:   ts,
		Data:        req.Data,
	}

	if err := h.publisher.PublishActivity(c.Request.Context(), wsID.String(), event); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "queued"})
}

func activityResponse(a *models.Activity) dto.ActivityResponse {
	return dto.ActivityResponse{
		ID:          a.ID,
		WorkspaceID: a.WorkspaceID,
		PersonID:    a.PersonID,
		CameraID:    a.CameraID,
		Data:        a.Data,
		CreatedAt:   a.CreatedAt.Format(time.RFC3339),
	}
}

func (h *ActivityHandler) List(c *gin.Context) {
	ws, ok := workspaceOf(c, h.svc)
	if !ok {
		return
	}
	limit, offset := pagination(c)

	var personID *uuid.UUID
	if raw := c.Query("person_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid person_id"})
			return
		}
		personID = &id
	}

	activities, err := h.svc.Store().ListActivities(c.Request.Context(), ws.ID, personID, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := make([]dto.ActivityResponse, 0, len(activities))
	for i := range activities {
		resp = append(resp, activityResponse(&activities[i]))
	}
	c.JSON(http.StatusOK, gin.H{"activities": resp, "total": len(resp)})
}

func (h *ActivityHandler) Delete(c *gin.Context) {
	ws, ok := workspaceOf(c, h.svc)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.svc.DeleteActivity(c.Request.Context(), ws, id); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func (h *ActivityHandler) ListNotifications(c *gin.Context) {
	ws, ok := workspaceOf(c, h.svc)
	if !ok {
		return
	}
	limit, offset := pagination(c)

	notifications, err := h.svc.Store().ListNotifications(c.Request.Context(), ws.ID, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := make([]dto.NotificationResponse, 0, len(notifications))
	for _, n := range notifications {
		resp = append(resp, dto.NotificationResponse{
			ID:        n.ID,
			Meta:      n.Meta,
			IsViewed:  n.IsViewed,
			CreatedAt: n.CreatedAt.Format(time.RFC3339),
		})
	}
	c.JSON(http.StatusOK, gin.H{"notifications": resp, "total": len(resp)})
}

func (h *ActivityHandler) MarkNotificationViewed(c *gin.Context) {
	ws, ok := workspaceOf(c, h.svc)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.svc.Store().MarkNotificationViewed(c.Request.Context(), ws.ID, id); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "viewed"})
}
