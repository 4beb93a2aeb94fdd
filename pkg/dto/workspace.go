package dto

import "github.com/google/uuid"

type CreateWorkspaceRequest struct {
	Title  string         `json:"title" binding:"required"`
	Config map[string]any `json:"config,omitempty"`
}

type PatchWorkspaceConfigRequest struct {
	Config map[string]any `json:"config" binding:"required"`
}

type WorkspaceResponse struct {
	ID        uuid.UUID      `json:"id"`
	Title     string         `json:"title"`
	Config    map[string]any `json:"config"`
	CreatedAt string         `json:"created_at"`
}
