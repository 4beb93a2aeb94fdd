// Package domain implements the identity and biometric-template lifecycle:
// blob cascade deletion, multi-face disambiguation, quality-gated
// enrollment, template retrieval and profile-group index propagation.
package domain

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/your-org/faceid/internal/agentindex"
	"github.com/your-org/faceid/internal/bsm"
	"github.com/your-org/faceid/internal/config"
	"github.com/your-org/faceid/internal/engine"
	"github.com/your-org/faceid/internal/models"
)

// Store is the persistence boundary the domain drives. Reads run on the
// pool; every mutation path goes through WithTx so a cascade either lands
// completely or not at all.
type Store interface {
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	GetWorkspace(ctx context.Context, id uuid.UUID) (*models.Workspace, error)
	ListWorkspaces(ctx context.Context) ([]models.Workspace, error)
	CreateWorkspace(ctx context.Context, ws *models.Workspace) error

	GetSample(ctx context.Context, workspaceID, id uuid.UUID) (*models.Sample, error)
	GetSamples(ctx context.Context, workspaceID uuid.UUID, ids []uuid.UUID) ([]models.Sample, error)
	ListSamples(ctx context.Context, workspaceID uuid.UUID, limit, offset int) ([]models.Sample, error)
	ListExpiredSampleIDs(ctx context.Context, workspaceID uuid.UUID, before time.Time) ([]uuid.UUID, error)

	GetBlobPayload(ctx context.Context, workspaceID, id uuid.UUID) ([]byte, error)
	GetBlobPayloads(ctx context.Context, workspaceID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID][]byte, error)

	GetPerson(ctx context.Context, workspaceID, id uuid.UUID) (*models.Person, error)
	GetProfile(ctx context.Context, workspaceID, id uuid.UUID) (*models.Profile, error)
	ListProfiles(ctx context.Context, workspaceID uuid.UUID, limit, offset int) ([]models.Profile, error)

	CreateLabel(ctx context.Context, label *models.Label) error
	ListLabels(ctx context.Context, workspaceID uuid.UUID, labelType models.LabelType, activeOnly bool) ([]models.Label, error)
	DeactivateLabel(ctx context.Context, workspaceID, id uuid.UUID) error
	CountActiveLabels(ctx context.Context, workspaceID uuid.UUID, ids []uuid.UUID, labelType models.LabelType) (int, error)

	ListActivities(ctx context.Context, workspaceID uuid.UUID, personID *uuid.UUID, limit, offset int) ([]models.Activity, error)
	ListExpiredActivityIDs(ctx context.Context, workspaceID uuid.UUID, before time.Time) ([]uuid.UUID, error)

	CreateNotification(ctx context.Context, n *models.Notification) error
	ListNotifications(ctx context.Context, workspaceID uuid.UUID, limit, offset int) ([]models.Notification, error)
	MarkNotificationViewed(ctx context.Context, workspaceID, id uuid.UUID) error

	SearchTemplates(ctx context.Context, workspaceID uuid.UUID, embedding []float32, threshold float64, limit int) ([]TemplateMatch, error)
}

// Tx is one open transaction. Row-locking reads (ForUpdate variants)
// serialize read-modify-write sequences against concurrent mutation.
type Tx interface {
	CreateSample(ctx context.Context, s *models.Sample) error
	SampleForUpdate(ctx context.Context, workspaceID, id uuid.UUID) (*models.Sample, error)
	UpdateSampleMeta(ctx context.Context, id uuid.UUID, meta bsm.Document) error
	UpdateSampleQuality(ctx context.Context, id uuid.UUID, quality float64) error
	DeleteSampleRow(ctx context.Context, id uuid.UUID) error
	SampleMetaForPerson(ctx context.Context, personID uuid.UUID) ([]bsm.Document, error)

	CreateBlob(ctx context.Context, meta *models.BlobMeta, payload []byte) error
	// DeleteBlob removes the blob meta row and its payload object. It
	// reports false when the row was already gone.
	DeleteBlob(ctx context.Context, id uuid.UUID) (bool, error)

	CreatePerson(ctx context.Context, p *models.Person) error
	DeletePersonRow(ctx context.Context, id uuid.UUID) error
	LinkPersonSample(ctx context.Context, personID, sampleID uuid.UUID) error
	PersonIDForSample(ctx context.Context, sampleID uuid.UUID) (uuid.UUID, bool, error)

	CreateProfile(ctx context.Context, p *models.Profile) error
	ProfileForUpdate(ctx context.Context, workspaceID, id uuid.UUID) (*models.Profile, error)
	UpdateProfileInfo(ctx context.Context, id uuid.UUID, info bsm.Document) error
	DeleteProfileRow(ctx context.Context, id uuid.UUID) error
	LinkProfileSample(ctx context.Context, profileID, sampleID uuid.UUID) error
	ProfileSampleIDs(ctx context.Context, profileID uuid.UUID) ([]uuid.UUID, error)
	ProfileGroupCount(ctx context.Context, profileID uuid.UUID) (int, error)
	SetProfileGroups(ctx context.Context, profileID uuid.UUID, groupIDs []uuid.UUID) error

	DeleteNotificationsByProfile(ctx context.Context, profileID uuid.UUID) error

	InsertSampleTemplate(ctx context.Context, sampleID uuid.UUID, version string, embedding []float32) error
	DeleteSampleTemplates(ctx context.Context, sampleID uuid.UUID) error

	CreateActivity(ctx context.Context, a *models.Activity) error
	ActivityForUpdate(ctx context.Context, workspaceID, id uuid.UUID) (*models.Activity, error)
	DeleteActivityRow(ctx context.Context, id uuid.UUID) error
	ActivityDataForPerson(ctx context.Context, personID uuid.UUID) ([]bsm.Document, error)

	WorkspaceForUpdate(ctx context.Context, id uuid.UUID) (*models.Workspace, error)
	UpdateWorkspaceConfig(ctx context.Context, id uuid.UUID, cfg bsm.Document) error
}

// ProcessingEngine is the external detection/quality/template boundary.
type ProcessingEngine interface {
	Process(ctx context.Context, image []byte, templateVersion string, pupils *engine.Pupils) (*engine.Result, error)
	Quality(ctx context.Context, sampleMeta bsm.Document, templateVersion string) (float64, error)
}

// IdentityIndex is the external identity-search index boundary.
type IdentityIndex interface {
	AddProfile(ctx context.Context, entry agentindex.ProfileEntry) error
	UpdateProfile(ctx context.Context, entry agentindex.ProfileEntry) error
	DeleteProfile(ctx context.Context, profileID, personID uuid.UUID) error
}

// TemplateMatch is one hit of a template similarity search.
type TemplateMatch struct {
	SampleID  uuid.UUID  `json:"sample_id"`
	ProfileID *uuid.UUID `json:"profile_id,omitempty"`
	Score     float32    `json:"score"`
}

// Service orchestrates the lifecycle operations.
type Service struct {
	store  Store
	engine ProcessingEngine
	index  IdentityIndex
	cfg    config.LifecycleConfig
	ecfg   config.EngineConfig
}

func NewService(store Store, eng ProcessingEngine, index IdentityIndex, cfg config.LifecycleConfig, ecfg config.EngineConfig) *Service {
	return &Service{store: store, engine: eng, index: index, cfg: cfg, ecfg: ecfg}
}

// Store exposes the persistence boundary for read-only callers (handlers).
func (s *Service) Store() Store {
	return s.store
}

// TemplateVersion returns the engine template version this deployment runs.
func (s *Service) TemplateVersion() string {
	return s.ecfg.TemplateVersion
}
