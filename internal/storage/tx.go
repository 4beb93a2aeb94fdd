package storage

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"

	"github.com/your-org/faceid/internal/bsm"
	"github.com/your-org/faceid/internal/models"
)

// txSession is one open transaction. Blob payload writes go straight to the
// object store; on rollback the relational rows disappear while an orphaned
// object may remain until the retention sweep picks it up.
type txSession struct {
	tx    pgx.Tx
	blobs *MinIOStore
}

// --- Samples ---

func (t *txSession) CreateSample(ctx context.Context, s *models.Sample) error {
	err := t.tx.QueryRow(ctx,
		`INSERT INTO samples (id, workspace_id, meta, quality) VALUES ($1, $2, $3, $4) RETURNING created_at`,
		s.ID, s.WorkspaceID, s.Meta, s.Quality,
	).Scan(&s.CreatedAt)
	if err != nil {
		return fmt.Errorf("create sample: %w", err)
	}
	return nil
}

func (t *txSession) SampleForUpdate(ctx context.Context, workspaceID, id uuid.UUID) (*models.Sample, error) {
	s := &models.Sample{}
	err := t.tx.QueryRow(ctx,
		`SELECT id, workspace_id, meta, quality, created_at FROM samples
		 WHERE id = $1 AND workspace_id = $2 FOR UPDATE`,
		id, workspaceID,
	).Scan(&s.ID, &s.WorkspaceID, &s.Meta, &s.Quality, &s.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("lock sample: %w", err)
	}
	return s, nil
}

func (t *txSession) UpdateSampleMeta(ctx context.Context, id uuid.UUID, meta bsm.Document) error {
	_, err := t.tx.Exec(ctx, `UPDATE samples SET meta = $2 WHERE id = $1`, id, meta)
	if err != nil {
		return fmt.Errorf("update sample meta: %w", err)
	}
	return nil
}

func (t *txSession) UpdateSampleQuality(ctx context.Context, id uuid.UUID, quality float64) error {
	_, err := t.tx.Exec(ctx, `UPDATE samples SET quality = $2 WHERE id = $1`, id, quality)
	if err != nil {
		return fmt.Errorf("update sample quality: %w", err)
	}
	return nil
}

func (t *txSession) DeleteSampleRow(ctx context.Context, id uuid.UUID) error {
	if _, err := t.tx.Exec(ctx, `DELETE FROM person_samples WHERE sample_id = $1`, id); err != nil {
		return fmt.Errorf("unlink person sample: %w", err)
	}
	if _, err := t.tx.Exec(ctx, `DELETE FROM profile_samples WHERE sample_id = $1`, id); err != nil {
		return fmt.Errorf("unlink profile sample: %w", err)
	}
	if _, err := t.tx.Exec(ctx, `DELETE FROM samples WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete sample row: %w", err)
	}
	return nil
}

func (t *txSession) SampleMetaForPerson(ctx context.Context, personID uuid.UUID) ([]bsm.Document, error) {
	rows, err := t.tx.Query(ctx,
		`SELECT s.meta FROM samples s
		 JOIN person_samples ps ON ps.sample_id = s.id
		 WHERE ps.person_id = $1`, personID)
	if err != nil {
		return nil, fmt.Errorf("list person sample meta: %w", err)
	}
	defer rows.Close()
	return scanDocuments(rows)
}

// --- Blobs ---

func (t *txSession) CreateBlob(ctx context.Context, meta *models.BlobMeta, payload []byte) error {
	err := t.tx.QueryRow(ctx,
		`INSERT INTO blob_meta (id, workspace_id, meta) VALUES ($1, $2, $3) RETURNING created_at`,
		meta.ID, meta.WorkspaceID, meta.Meta,
	).Scan(&meta.CreatedAt)
	if err != nil {
		return fmt.Errorf("create blob meta: %w", err)
	}
	if err := t.blobs.PutObject(ctx, blobKey(meta.WorkspaceID, meta.ID), payload); err != nil {
		return fmt.Errorf("put blob payload: %w", err)
	}
	return nil
}

func (t *txSession) DeleteBlob(ctx context.Context, id uuid.UUID) (bool, error) {
	var workspaceID uuid.UUID
	err := t.tx.QueryRow(ctx,
		`DELETE FROM blob_meta WHERE id = $1 RETURNING workspace_id`, id,
	).Scan(&workspaceID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("delete blob meta: %w", err)
	}
	if err := t.blobs.DeleteObject(ctx, blobKey(workspaceID, id)); err != nil {
		return false, fmt.Errorf("delete blob payload: %w", err)
	}
	return true, nil
}

// --- Persons ---

func (t *txSession) CreatePerson(ctx context.Context, p *models.Person) error {
	err := t.tx.QueryRow(ctx,
		`INSERT INTO persons (id, workspace_id, profile_id, info) VALUES ($1, $2, $3, $4) RETURNING created_at`,
		p.ID, p.WorkspaceID, p.ProfileID, p.Info,
	).Scan(&p.CreatedAt)
	if err != nil {
		return fmt.Errorf("create person: %w", err)
	}
	return nil
}

func (t *txSession) DeletePersonRow(ctx context.Context, id uuid.UUID) error {
	if _, err := t.tx.Exec(ctx, `DELETE FROM person_samples WHERE person_id = $1`, id); err != nil {
		return fmt.Errorf("unlink person samples: %w", err)
	}
	if _, err := t.tx.Exec(ctx, `DELETE FROM persons WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete person row: %w", err)
	}
	return nil
}

func (t *txSession) LinkPersonSample(ctx context.Context, personID, sampleID uuid.UUID) error {
	_, err := t.tx.Exec(ctx,
		`INSERT INTO person_samples (person_id, sample_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		personID, sampleID)
	if err != nil {
		return fmt.Errorf("link person sample: %w", err)
	}
	return nil
}

func (t *txSession) PersonIDForSample(ctx context.Context, sampleID uuid.UUID) (uuid.UUID, bool, error) {
	var personID uuid.UUID
	err := t.tx.QueryRow(ctx,
		`SELECT person_id FROM person_samples WHERE sample_id = $1`, sampleID,
	).Scan(&personID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return uuid.Nil, false, nil
		}
		return uuid.Nil, false, fmt.Errorf("person for sample: %w", err)
	}
	return personID, true, nil
}

// --- Profiles ---

func (t *txSession) CreateProfile(ctx context.Context, p *models.Profile) error {
	err := t.tx.QueryRow(ctx,
		`INSERT INTO profiles (id, workspace_id, person_id, info) VALUES ($1, $2, $3, $4) RETURNING created_at`,
		p.ID, p.WorkspaceID, p.PersonID, p.Info,
	).Scan(&p.CreatedAt)
	if err != nil {
		return fmt.Errorf("create profile: %w", err)
	}
	return nil
}

func (t *txSession) ProfileForUpdate(ctx context.Context, workspaceID, id uuid.UUID) (*models.Profile, error) {
	p := &models.Profile{}
	err := t.tx.QueryRow(ctx,
		`SELECT id, workspace_id, person_id, info, created_at FROM profiles
		 WHERE id = $1 AND workspace_id = $2 FOR UPDATE`,
		id, workspaceID,
	).Scan(&p.ID, &p.WorkspaceID, &p.PersonID, &p.Info, &p.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("lock profile: %w", err)
	}

	rows, err := t.tx.Query(ctx, `SELECT label_id FROM profile_groups WHERE profile_id = $1`, p.ID)
	if err != nil {
		return nil, fmt.Errorf("list profile groups: %w", err)
	}
	defer rows.Close()
	if p.GroupIDs, err = scanIDs(rows); err != nil {
		return nil, err
	}
	return p, nil
}

func (t *txSession) UpdateProfileInfo(ctx context.Context, id uuid.UUID, info bsm.Document) error {
	_, err := t.tx.Exec(ctx, `UPDATE profiles SET info = $2 WHERE id = $1`, id, info)
	if err != nil {
		return fmt.Errorf("update profile info: %w", err)
	}
	return nil
}

func (t *txSession) DeleteProfileRow(ctx context.Context, id uuid.UUID) error {
	if _, err := t.tx.Exec(ctx, `DELETE FROM profile_groups WHERE profile_id = $1`, id); err != nil {
		return fmt.Errorf("clear profile groups: %w", err)
	}
	if _, err := t.tx.Exec(ctx, `DELETE FROM profile_samples WHERE profile_id = $1`, id); err != nil {
		return fmt.Errorf("unlink profile samples: %w", err)
	}
	if _, err := t.tx.Exec(ctx, `DELETE FROM profiles WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete profile row: %w", err)
	}
	return nil
}

func (t *txSession) LinkProfileSample(ctx context.Context, profileID, sampleID uuid.UUID) error {
	_, err := t.tx.Exec(ctx,
		`INSERT INTO profile_samples (profile_id, sample_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		profileID, sampleID)
	if err != nil {
		return fmt.Errorf("link profile sample: %w", err)
	}
	return nil
}

func (t *txSession) ProfileSampleIDs(ctx context.Context, profileID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := t.tx.Query(ctx,
		`SELECT sample_id FROM profile_samples WHERE profile_id = $1`, profileID)
	if err != nil {
		return nil, fmt.Errorf("list profile samples: %w", err)
	}
	defer rows.Close()
	return scanIDs(rows)
}

func (t *txSession) ProfileGroupCount(ctx context.Context, profileID uuid.UUID) (int, error) {
	var count int
	err := t.tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM profile_groups WHERE profile_id = $1`, profileID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count profile groups: %w", err)
	}
	return count, nil
}

func (t *txSession) SetProfileGroups(ctx context.Context, profileID uuid.UUID, groupIDs []uuid.UUID) error {
	if _, err := t.tx.Exec(ctx, `DELETE FROM profile_groups WHERE profile_id = $1`, profileID); err != nil {
		return fmt.Errorf("clear profile groups: %w", err)
	}
	for _, groupID := range groupIDs {
		_, err := t.tx.Exec(ctx,
			`INSERT INTO profile_groups (profile_id, label_id) VALUES ($1, $2)`,
			profileID, groupID)
		if err != nil {
			return fmt.Errorf("add profile group: %w", err)
		}
	}
	return nil
}

// --- Notifications ---

func (t *txSession) DeleteNotificationsByProfile(ctx context.Context, profileID uuid.UUID) error {
	_, err := t.tx.Exec(ctx,
		`DELETE FROM notifications WHERE meta->>'profile_id' = $1`, profileID.String())
	if err != nil {
		return fmt.Errorf("delete notifications: %w", err)
	}
	return nil
}

// --- Sample templates ---

func (t *txSession) InsertSampleTemplate(ctx context.Context, sampleID uuid.UUID, version string, embedding []float32) error {
	_, err := t.tx.Exec(ctx,
		`INSERT INTO sample_templates (sample_id, version, embedding) VALUES ($1, $2, $3)`,
		sampleID, version, pgvector.NewVector(embedding))
	if err != nil {
		return fmt.Errorf("insert sample template: %w", err)
	}
	return nil
}

func (t *txSession) DeleteSampleTemplates(ctx context.Context, sampleID uuid.UUID) error {
	_, err := t.tx.Exec(ctx, `DELETE FROM sample_templates WHERE sample_id = $1`, sampleID)
	if err != nil {
		return fmt.Errorf("delete sample templates: %w", err)
	}
	return nil
}

// --- Activities ---

func (t *txSession) CreateActivity(ctx context.Context, a *models.Activity) error {
	_, err := t.tx.Exec(ctx,
		`INSERT INTO activities (id, workspace_id, person_id, camera_id, data, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		a.ID, a.WorkspaceID, a.PersonID, a.CameraID, a.Data, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("create activity: %w", err)
	}
	return nil
}

func (t *txSession) ActivityForUpdate(ctx context.Context, workspaceID, id uuid.UUID) (*models.Activity, error) {
	a := &models.Activity{}
	err := t.tx.QueryRow(ctx,
		`SELECT id, workspace_id, person_id, camera_id, data, created_at FROM activities
		 WHERE id = $1 AND workspace_id = $2 FOR UPDATE`,
		id, workspaceID,
	).Scan(&a.ID, &a.WorkspaceID, &a.PersonID, &a.CameraID, &a.Data, &a.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("lock activity: %w", err)
	}
	return a, nil
}

func (t *txSession) DeleteActivityRow(ctx context.Context, id uuid.UUID) error {
	_, err := t.tx.Exec(ctx, `DELETE FROM activities WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete activity row: %w", err)
	}
	return nil
}

func (t *txSession) ActivityDataForPerson(ctx context.Context, personID uuid.UUID) ([]bsm.Document, error) {
	rows, err := t.tx.Query(ctx,
		`SELECT data FROM activities WHERE person_id = $1`, personID)
	if err != nil {
		return nil, fmt.Errorf("list activity data: %w", err)
	}
	defer rows.Close()
	return scanDocuments(rows)
}

// --- Workspaces ---

func (t *txSession) WorkspaceForUpdate(ctx context.Context, id uuid.UUID) (*models.Workspace, error) {
	ws := &models.Workspace{}
	err := t.tx.QueryRow(ctx,
		`SELECT id, title, config, created_at FROM workspaces WHERE id = $1 FOR UPDATE`, id,
	).Scan(&ws.ID, &ws.Title, &ws.Config, &ws.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("lock workspace: %w", err)
	}
	return ws, nil
}

func (t *txSession) UpdateWorkspaceConfig(ctx context.Context, id uuid.UUID, cfg bsm.Document) error {
	_, err := t.tx.Exec(ctx, `UPDATE workspaces SET config = $2 WHERE id = $1`, id, cfg)
	if err != nil {
		return fmt.Errorf("update workspace config: %w", err)
	}
	return nil
}

func scanDocuments(rows pgx.Rows) ([]bsm.Document, error) {
	var docs []bsm.Document
	for rows.Next() {
		var doc bsm.Document
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}
