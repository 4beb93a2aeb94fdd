package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/your-org/faceid/internal/bsm"
)

// Sample is one captured biometric observation. Its meta document carries
// the detected-object tree with sentinel-prefixed blob references. A sample
// is immutable after creation except for quality backfill.
type Sample struct {
	ID          uuid.UUID    `json:"id" db:"id"`
	WorkspaceID uuid.UUID    `json:"workspace_id" db:"workspace_id"`
	Meta        bsm.Document `json:"meta" db:"meta"`
	Quality     float64      `json:"quality" db:"quality"`
	CreatedAt   time.Time    `json:"created_at" db:"created_at"`
}

// BlobMeta is the metadata envelope around one binary payload. The payload
// bytes live in object storage; deleting the envelope deletes the payload.
type BlobMeta struct {
	ID          uuid.UUID    `json:"id" db:"id"`
	WorkspaceID uuid.UUID    `json:"workspace_id" db:"workspace_id"`
	Meta        bsm.Document `json:"meta" db:"meta"`
	CreatedAt   time.Time    `json:"created_at" db:"created_at"`
}
