package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/your-org/faceid/internal/bsm"
)

// Person is the durable identity root, linked one-to-one with a Profile.
type Person struct {
	ID          uuid.UUID    `json:"id" db:"id"`
	WorkspaceID uuid.UUID    `json:"workspace_id" db:"workspace_id"`
	ProfileID   *uuid.UUID   `json:"profile_id,omitempty" db:"profile_id"`
	Info        bsm.Document `json:"info" db:"info"`
	CreatedAt   time.Time    `json:"created_at" db:"created_at"`
}

// Profile is the mutable, queryable identity record.
type Profile struct {
	ID          uuid.UUID    `json:"id" db:"id"`
	WorkspaceID uuid.UUID    `json:"workspace_id" db:"workspace_id"`
	PersonID    uuid.UUID    `json:"person_id" db:"person_id"`
	Info        bsm.Document `json:"info" db:"info"`
	GroupIDs    []uuid.UUID  `json:"group_ids" db:"-"`
	CreatedAt   time.Time    `json:"created_at" db:"created_at"`
}

// MainSampleID returns the profile's main sample reference, if set.
func (p *Profile) MainSampleID() (uuid.UUID, bool) {
	raw, ok := p.Info["main_sample_id"].(string)
	if !ok {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
