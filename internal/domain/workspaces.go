package domain

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/your-org/faceid/internal/bsm"
	"github.com/your-org/faceid/internal/models"
)

func (s *Service) CreateWorkspace(ctx context.Context, title string, cfg bsm.Document) (*models.Workspace, error) {
	if cfg == nil {
		cfg = bsm.Document{}
	}
	ws := &models.Workspace{
		ID:     uuid.New(),
		Title:  title,
		Config: cfg,
	}
	if err := s.store.CreateWorkspace(ctx, ws); err != nil {
		return nil, err
	}
	return ws, nil
}

// Workspace loads the tenant or reports a typed not-found error.
func (s *Service) Workspace(ctx context.Context, id uuid.UUID) (*models.Workspace, error) {
	ws, err := s.store.GetWorkspace(ctx, id)
	if err != nil {
		return nil, err
	}
	if ws == nil {
		return nil, NewError(CodeNotFound, "workspace not found")
	}
	return ws, nil
}

// PatchWorkspaceConfig merges the patch into the workspace config under a
// row lock, so concurrent patches cannot lose keys.
func (s *Service) PatchWorkspaceConfig(ctx context.Context, id uuid.UUID, patch bsm.Document) (*models.Workspace, error) {
	var ws *models.Workspace
	err := s.store.WithTx(ctx, func(tx Tx) error {
		w, err := tx.WorkspaceForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if w == nil {
			return NewError(CodeNotFound, "workspace not found")
		}
		for k, v := range patch {
			w.Config[k] = v
		}
		if err := tx.UpdateWorkspaceConfig(ctx, w.ID, w.Config); err != nil {
			return fmt.Errorf("update workspace config: %w", err)
		}
		ws = w
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ws, nil
}
