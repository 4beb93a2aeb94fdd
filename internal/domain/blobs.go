package domain

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/your-org/faceid/internal/bsm"
	"github.com/your-org/faceid/internal/observability"
)

// BlobRemover deletes one blob (meta row plus payload object). It reports
// false without error when the blob was already removed, e.g. by an
// earlier cascade.
type BlobRemover interface {
	DeleteBlob(ctx context.Context, id uuid.UUID) (bool, error)
}

// DeleteBlobs walks the document and deletes every sentinel-referenced blob
// whose id is not in the exclude set. One deletion attempt is issued per
// reachable reference. A missing blob is logged and tolerated. The caller
// must hold the transaction that also removes the owning row, so that an
// interrupted delete cannot leave orphaned references.
func DeleteBlobs(ctx context.Context, remover BlobRemover, doc any, exclude map[uuid.UUID]struct{}) error {
	for _, id := range bsm.CollectBlobIDs(doc) {
		if _, skip := exclude[id]; skip {
			continue
		}
		deleted, err := remover.DeleteBlob(ctx, id)
		if err != nil {
			return fmt.Errorf("delete blob %s: %w", id, err)
		}
		if !deleted {
			slog.Warn("blob already removed", "blob_id", id)
			continue
		}
		observability.BlobsDeleted.Inc()
	}
	return nil
}

// ExcludeSet builds a blob-id exclude set from sibling documents whose
// blob references must survive the cascade.
func ExcludeSet(docs ...bsm.Document) map[uuid.UUID]struct{} {
	set := make(map[uuid.UUID]struct{})
	for _, doc := range docs {
		for _, id := range bsm.CollectBlobIDs(doc) {
			set[id] = struct{}{}
		}
	}
	return set
}
