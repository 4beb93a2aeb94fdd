package models

import (
	"time"

	"github.com/google/uuid"
)

type LabelType string

const (
	LabelTypeLocation     LabelType = "LOCATION"
	LabelTypeProfileGroup LabelType = "PROFILE_GROUP"
	LabelTypeAreaType     LabelType = "AREA_TYPE"
)

// Label is a polymorphic tag. Profile groups are labels with the
// PROFILE_GROUP discriminant. Labels are soft-deleted via IsActive.
type Label struct {
	ID          uuid.UUID `json:"id" db:"id"`
	WorkspaceID uuid.UUID `json:"workspace_id" db:"workspace_id"`
	Title       string    `json:"title" db:"title"`
	Type        LabelType `json:"type" db:"label_type"`
	IsActive    bool      `json:"is_active" db:"is_active"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}
