package domain

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/google/uuid"

	"github.com/your-org/faceid/internal/bsm"
	"github.com/your-org/faceid/internal/models"
)

// RecordActivity persists one detection event. Inline best-shot payloads in
// the event data are stored as blobs owned by the activity.
func (s *Service) RecordActivity(ctx context.Context, ev models.ActivityEvent) (*models.Activity, error) {
	ws, err := s.store.GetWorkspace(ctx, ev.WorkspaceID)
	if err != nil {
		return nil, err
	}
	if ws == nil {
		return nil, NewError(CodeNotFound, "workspace not found")
	}

	activity := &models.Activity{
		ID:          uuid.New(),
		WorkspaceID: ev.WorkspaceID,
		PersonID:    ev.PersonID,
		CameraID:    ev.CameraID,
		CreatedAt:   ev.Timestamp,
	}

	err = s.store.WithTx(ctx, func(tx Tx) error {
		data, err := rewriteBinaryNodes(ev.Data, func(key string, value any) (any, error) {
			b64, ok := bsm.InlinePayload(value)
			if !ok {
				return value, nil
			}
			raw, err := base64.StdEncoding.DecodeString(b64)
			if err != nil {
				return nil, NewError(CodeBadDocument, fmt.Sprintf("decode payload %s: %v", key, err))
			}
			meta := &models.BlobMeta{
				ID:          uuid.New(),
				WorkspaceID: ev.WorkspaceID,
				Meta:        bsm.Document{"activity_id": activity.ID.String()},
			}
			if err := tx.CreateBlob(ctx, meta, raw); err != nil {
				return nil, fmt.Errorf("create blob for %s: %w", key, err)
			}
			return map[string]any{"id": meta.ID.String()}, nil
		})
		if err != nil {
			return err
		}
		activity.Data = data
		return tx.CreateActivity(ctx, activity)
	})
	if err != nil {
		return nil, err
	}
	return activity, nil
}

// DeleteActivity removes the activity row and the blob set reachable from
// its data document, excluding blob ids still referenced from the person's
// samples.
func (s *Service) DeleteActivity(ctx context.Context, ws *models.Workspace, activityID uuid.UUID) error {
	return s.store.WithTx(ctx, func(tx Tx) error {
		a, err := tx.ActivityForUpdate(ctx, ws.ID, activityID)
		if err != nil {
			return err
		}
		if a == nil {
			return NewError(CodeNotFound, "activity not found")
		}

		sampleDocs, err := tx.SampleMetaForPerson(ctx, a.PersonID)
		if err != nil {
			return fmt.Errorf("load sample meta: %w", err)
		}

		if err := DeleteBlobs(ctx, tx, a.Data, ExcludeSet(sampleDocs...)); err != nil {
			return err
		}
		if err := tx.DeleteActivityRow(ctx, a.ID); err != nil {
			return fmt.Errorf("delete activity row: %w", err)
		}
		return nil
	})
}
