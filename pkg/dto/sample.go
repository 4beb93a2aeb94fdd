package dto

import "github.com/google/uuid"

type SampleResponse struct {
	ID          uuid.UUID      `json:"id"`
	WorkspaceID uuid.UUID      `json:"workspace_id"`
	Meta        map[string]any `json:"meta"`
	Quality     float64        `json:"quality"`
	CreatedAt   string         `json:"created_at"`
}

// TemplateSourceRequest selects exactly one way to obtain templates:
// persisted sample ids, a raw sample document, or a base64 image.
type TemplateSourceRequest struct {
	SampleIDs  []uuid.UUID    `json:"sample_ids,omitempty"`
	SampleData map[string]any `json:"sample_data,omitempty"`
	Image      string         `json:"image,omitempty"`
}

type ResolveTemplatesRequest struct {
	Source  TemplateSourceRequest `json:"source"`
	Version string                `json:"version,omitempty"`
}

type TemplateResponse struct {
	BlobID *uuid.UUID `json:"blob_id,omitempty"`
	Data   string     `json:"data,omitempty"`
	Raw    any        `json:"raw,omitempty"`
}

type SearchRequest struct {
	Source     TemplateSourceRequest `json:"source"`
	Threshold  float64               `json:"threshold"`
	Candidates int                   `json:"candidates"`
}

type MatchResponse struct {
	SampleID  uuid.UUID  `json:"sample_id"`
	ProfileID *uuid.UUID `json:"profile_id,omitempty"`
	Score     float32    `json:"score"`
}

type VerifyRequest struct {
	First  TemplateSourceRequest `json:"first"`
	Second TemplateSourceRequest `json:"second"`
}

type VerifyResponse struct {
	Score float64 `json:"score"`
}
