package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/your-org/faceid/internal/bsm"
)

// Workspace is the tenant boundary. Nearly every entity belongs to
// exactly one workspace.
type Workspace struct {
	ID        uuid.UUID    `json:"id" db:"id"`
	Title     string       `json:"title" db:"title"`
	Config    bsm.Document `json:"config" db:"config"`
	CreatedAt time.Time    `json:"created_at" db:"created_at"`
}

// SamplePolicy returns the workspace multi-face policy override, if set.
func (w *Workspace) SamplePolicy() (string, bool) {
	v, ok := w.Config["sample_policy"].(string)
	return v, ok
}

// QualityThreshold returns the workspace enrollment quality gate, if set.
func (w *Workspace) QualityThreshold() (float64, bool) {
	v, ok := w.Config["sample_quality_threshold"].(float64)
	return v, ok
}

// TTLDays returns a retention TTL from the workspace config, if set.
func (w *Workspace) TTLDays(key string) (int, bool) {
	if v, ok := w.Config[key].(float64); ok {
		return int(v), true
	}
	return 0, false
}
