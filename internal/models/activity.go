package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/your-org/faceid/internal/bsm"
)

// Activity records one detection event for a person over time. Its data
// document has the same sentinel-keyed structure as Sample.Meta and may
// hold its own best-shot blob references.
type Activity struct {
	ID          uuid.UUID    `json:"id" db:"id"`
	WorkspaceID uuid.UUID    `json:"workspace_id" db:"workspace_id"`
	PersonID    uuid.UUID    `json:"person_id" db:"person_id"`
	CameraID    *uuid.UUID   `json:"camera_id,omitempty" db:"camera_id"`
	Data        bsm.Document `json:"data" db:"data"`
	CreatedAt   time.Time    `json:"created_at" db:"created_at"`
}

// Notification is a user-facing alert. Its meta document carries the
// profile_id it relates to; deleting a profile deletes its notifications.
type Notification struct {
	ID          uuid.UUID    `json:"id" db:"id"`
	WorkspaceID uuid.UUID    `json:"workspace_id" db:"workspace_id"`
	Meta        bsm.Document `json:"meta" db:"meta"`
	IsViewed    bool         `json:"is_viewed" db:"is_viewed"`
	CreatedAt   time.Time    `json:"created_at" db:"created_at"`
}

// ActivityEvent is the message published to NATS by capture agents and
// consumed by the retention worker and the API event feed.
type ActivityEvent struct {
	WorkspaceID uuid.UUID    `json:"workspace_id"`
	PersonID    uuid.UUID    `json:"person_id"`
	CameraID    *uuid.UUID   `json:"camera_id,omitempty"`
	Timestamp   time.Time    `json:"timestamp"`
	Data        bsm.Document `json:"data"`
}
