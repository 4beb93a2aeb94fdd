package dto

import (
	"time"

	"github.com/google/uuid"
)

// IngestActivityRequest is one detection event submitted by a capture
// agent. It is queued, not written directly; the consumer persists it.
type IngestActivityRequest struct {
	PersonID  uuid.UUID      `json:"person_id" binding:"required"`
	CameraID  *uuid.UUID     `json:"camera_id,omitempty"`
	Timestamp *time.Time     `json:"timestamp,omitempty"`
	Data      map[string]any `json:"data"`
}

type ActivityResponse struct {
	ID          uuid.UUID      `json:"id"`
	WorkspaceID uuid.UUID      `json:"workspace_id"`
	PersonID    uuid.UUID      `json:"person_id"`
	CameraID    *uuid.UUID     `json:"camera_id,omitempty"`
	Data        map[string]any `json:"data"`
	CreatedAt   string         `json:"created_at"`
}

type NotificationResponse struct {
	ID        uuid.UUID      `json:"id"`
	Meta      map[string]any `json:"meta"`
	IsViewed  bool           `json:"is_viewed"`
	CreatedAt string         `json:"created_at"`
}

type CreateLabelRequest struct {
	Title string `json:"title" binding:"required"`
	Type  string `json:"type" binding:"required"`
}

type LabelResponse struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	Type      string    `json:"type"`
	IsActive  bool      `json:"is_active"`
	CreatedAt string    `json:"created_at"`
}

// WSActivity is the message pushed to WebSocket clients for each activity.
type WSActivity struct {
	Type        string           `json:"type"`
	WorkspaceID uuid.UUID        `json:"workspace_id"`
	Activity    ActivityResponse `json:"activity"`
}
