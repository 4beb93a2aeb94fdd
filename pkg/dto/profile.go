package dto

import "github.com/google/uuid"

type ProfileResponse struct {
	ID        uuid.UUID      `json:"id"`
	PersonID  uuid.UUID      `json:"person_id"`
	Info      map[string]any `json:"info"`
	GroupIDs  []uuid.UUID    `json:"group_ids"`
	CreatedAt string         `json:"created_at"`
}

type UpdateProfileInfoRequest struct {
	Info map[string]any `json:"info" binding:"required"`
}

// SetProfileGroupsRequest replaces group membership. A null group_ids field
// leaves membership untouched; an empty list clears it.
type SetProfileGroupsRequest struct {
	GroupIDs []uuid.UUID `json:"group_ids"`
}

type EnrollmentResponse struct {
	Sample  SampleResponse `json:"sample"`
	Quality float64        `json:"quality"`
}
