package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/your-org/faceid/internal/config"
	"github.com/your-org/faceid/internal/domain"
	"github.com/your-org/faceid/internal/models"
)

// PostgresStore implements domain.Store on a pgx pool. Blob payload bytes
// live in the companion object store; relational rows own their lifecycle.
type PostgresStore struct {
	pool  *pgxpool.Pool
	blobs *MinIOStore
}

func NewPostgresStore(cfg config.DatabaseConfig, blobs *MinIOStore) (*PostgresStore, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.MaxConns)

	pool, err := pgxpool.NewWithConfig(context.Background(), poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &PostgresStore{pool: pool, blobs: blobs}, nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// WithTx runs fn inside one transaction; any error rolls everything back.
func (s *PostgresStore) WithTx(ctx context.Context, fn func(tx domain.Tx) error) error {
	pgtx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	session := &txSession{tx: pgtx, blobs: s.blobs}
	if err := fn(session); err != nil {
		_ = pgtx.Rollback(ctx)
		return err
	}
	if err := pgtx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// --- Workspaces ---

func (s *PostgresStore) CreateWorkspace(ctx context.Context, ws *models.Workspace) error {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO workspaces (id, title, config) VALUES ($1, $2, $3) RETURNING created_at`,
		ws.ID, ws.Title, ws.Config,
	).Scan(&ws.CreatedAt)
	if err != nil {
		return fmt.Errorf("create workspace: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetWorkspace(ctx context.Context, id uuid.UUID) (*models.Workspace, error) {
	ws := &models.Workspace{}
	err := s.pool.QueryRow(ctx,
		`SELECT id, title, config, created_at FROM workspaces WHERE id = $1`, id,
	).Scan(&ws.ID, &ws.Title, &ws.Config, &ws.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get workspace: %w", err)
	}
	return ws, nil
}

func (s *PostgresStore) ListWorkspaces(ctx context.Context) ([]models.Workspace, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, title, config, created_at FROM workspaces ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list workspaces: %w", err)
	}
	defer rows.Close()

	var out []models.Workspace
	for rows.Next() {
		var ws models.Workspace
		if err := rows.Scan(&ws.ID, &ws.Title, &ws.Config, &ws.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan workspace: %w", err)
		}
		out = append(out, ws)
	}
	return out, nil
}

// --- Samples ---

func (s *PostgresStore) GetSample(ctx context.Context, workspaceID, id uuid.UUID) (*models.Sample, error) {
	sample := &models.Sample{}
	err := s.pool.QueryRow(ctx,
		`SELECT id, workspace_id, meta, quality, created_at FROM samples WHERE id = $1 AND workspace_id = $2`,
		id, workspaceID,
	).Scan(&sample.ID, &sample.WorkspaceID, &sample.Meta, &sample.Quality, &sample.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get sample: %w", err)
	}
	return sample, nil
}

func (s *PostgresStore) GetSamples(ctx context.Context, workspaceID uuid.UUID, ids []uuid.UUID) ([]models.Sample, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, workspace_id, meta, quality, created_at FROM samples WHERE workspace_id = $1 AND id = ANY($2)`,
		workspaceID, ids)
	if err != nil {
		return nil, fmt.Errorf("get samples: %w", err)
	}
	defer rows.Close()

	var out []models.Sample
	for rows.Next() {
		var sample models.Sample
		if err := rows.Scan(&sample.ID, &sample.WorkspaceID, &sample.Meta, &sample.Quality, &sample.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan sample: %w", err)
		}
		out = append(out, sample)
	}
	return out, nil
}

func (s *PostgresStore) ListSamples(ctx context.Context, workspaceID uuid.UUID, limit, offset int) ([]models.Sample, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 500 {
		limit = 500
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, workspace_id, meta, quality, created_at FROM samples
		 WHERE workspace_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		workspaceID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list samples: %w", err)
	}
	defer rows.Close()

	var out []models.Sample
	for rows.Next() {
		var sample models.Sample
		if err := rows.Scan(&sample.ID, &sample.WorkspaceID, &sample.Meta, &sample.Quality, &sample.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan sample: %w", err)
		}
		out = append(out, sample)
	}
	return out, nil
}

func (s *PostgresStore) ListExpiredSampleIDs(ctx context.Context, workspaceID uuid.UUID, before time.Time) ([]uuid.UUID, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id FROM samples WHERE workspace_id = $1 AND created_at < $2`,
		workspaceID, before)
	if err != nil {
		return nil, fmt.Errorf("list expired samples: %w", err)
	}
	defer rows.Close()
	return scanIDs(rows)
}

// --- Blobs ---

func (s *PostgresStore) GetBlobPayload(ctx context.Context, workspaceID, id uuid.UUID) ([]byte, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM blob_meta WHERE id = $1 AND workspace_id = $2)`,
		id, workspaceID,
	).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("check blob meta: %w", err)
	}
	if !exists {
		return nil, nil
	}
	return s.blobs.GetObject(ctx, blobKey(workspaceID, id))
}

// GetBlobPayloads batch-fetches payloads; a reference without a blob meta
// row in the workspace is treated as absent, not fatal.
func (s *PostgresStore) GetBlobPayloads(ctx context.Context, workspaceID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID][]byte, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id FROM blob_meta WHERE workspace_id = $1 AND id = ANY($2)`,
		workspaceID, ids)
	if err != nil {
		return nil, fmt.Errorf("list blob meta: %w", err)
	}
	defer rows.Close()
	present, err := scanIDs(rows)
	if err != nil {
		return nil, err
	}

	out := make(map[uuid.UUID][]byte, len(present))
	for _, id := range present {
		data, err := s.blobs.GetObject(ctx, blobKey(workspaceID, id))
		if err != nil {
			return nil, fmt.Errorf("get blob payload %s: %w", id, err)
		}
		out[id] = data
	}
	return out, nil
}

func blobKey(workspaceID, id uuid.UUID) string {
	return "blobs/" + workspaceID.String() + "/" + id.String()
}

// --- Persons & Profiles ---

func (s *PostgresStore) GetPerson(ctx context.Context, workspaceID, id uuid.UUID) (*models.Person, error) {
	p := &models.Person{}
	err := s.pool.QueryRow(ctx,
		`SELECT id, workspace_id, profile_id, info, created_at FROM persons WHERE id = $1 AND workspace_id = $2`,
		id, workspaceID,
	).Scan(&p.ID, &p.WorkspaceID, &p.ProfileID, &p.Info, &p.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get person: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) GetProfile(ctx context.Context, workspaceID, id uuid.UUID) (*models.Profile, error) {
	p := &models.Profile{}
	err := s.pool.QueryRow(ctx,
		`SELECT id, workspace_id, person_id, info, created_at FROM profiles WHERE id = $1 AND workspace_id = $2`,
		id, workspaceID,
	).Scan(&p.ID, &p.WorkspaceID, &p.PersonID, &p.Info, &p.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get profile: %w", err)
	}
	if p.GroupIDs, err = s.profileGroupIDs(ctx, p.ID); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *PostgresStore) ListProfiles(ctx context.Context, workspaceID uuid.UUID, limit, offset int) ([]models.Profile, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 500 {
		limit = 500
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, workspace_id, person_id, info, created_at FROM profiles
		 WHERE workspace_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		workspaceID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}

	var out []models.Profile
	for rows.Next() {
		var p models.Profile
		if err := rows.Scan(&p.ID, &p.WorkspaceID, &p.PersonID, &p.Info, &p.CreatedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		out = append(out, p)
	}
	rows.Close()

	var err2 error
	for i := range out {
		if out[i].GroupIDs, err2 = s.profileGroupIDs(ctx, out[i].ID); err2 != nil {
			return nil, err2
		}
	}
	return out, nil
}

func (s *PostgresStore) profileGroupIDs(ctx context.Context, profileID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT label_id FROM profile_groups WHERE profile_id = $1`, profileID)
	if err != nil {
		return nil, fmt.Errorf("list profile groups: %w", err)
	}
	defer rows.Close()
	return scanIDs(rows)
}

// --- Labels ---

func (s *PostgresStore) CreateLabel(ctx context.Context, label *models.Label) error {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO labels (id, workspace_id, title, label_type, is_active)
		 VALUES ($1, $2, $3, $4, $5) RETURNING created_at`,
		label.ID, label.WorkspaceID, label.Title, label.Type, label.IsActive,
	).Scan(&label.CreatedAt)
	if err != nil {
		return fmt.Errorf("create label: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListLabels(ctx context.Context, workspaceID uuid.UUID, labelType models.LabelType, activeOnly bool) ([]models.Label, error) {
	query := `SELECT id, workspace_id, title, label_type, is_active, created_at FROM labels WHERE workspace_id = $1`
	args := []interface{}{workspaceID}
	if labelType != "" {
		query += ` AND label_type = $2`
		args = append(args, labelType)
	}
	if activeOnly {
		query += ` AND is_active`
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list labels: %w", err)
	}
	defer rows.Close()

	var out []models.Label
	for rows.Next() {
		var l models.Label
		if err := rows.Scan(&l.ID, &l.WorkspaceID, &l.Title, &l.Type, &l.IsActive, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan label: %w", err)
		}
		out = append(out, l)
	}
	return out, nil
}

func (s *PostgresStore) DeactivateLabel(ctx context.Context, workspaceID, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE labels SET is_active = FALSE WHERE id = $1 AND workspace_id = $2`, id, workspaceID)
	if err != nil {
		return fmt.Errorf("deactivate label: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("label not found")
	}
	return nil
}

func (s *PostgresStore) CountActiveLabels(ctx context.Context, workspaceID uuid.UUID, ids []uuid.UUID, labelType models.LabelType) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(DISTINCT id) FROM labels
		 WHERE workspace_id = $1 AND label_type = $2 AND is_active AND id = ANY($3)`,
		workspaceID, labelType, ids,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count labels: %w", err)
	}
	return count, nil
}

// --- Activities ---

func (s *PostgresStore) ListActivities(ctx context.Context, workspaceID uuid.UUID, personID *uuid.UUID, limit, offset int) ([]models.Activity, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 500 {
		limit = 500
	}

	query := `SELECT id, workspace_id, person_id, camera_id, data, created_at FROM activities WHERE workspace_id = $1`
	args := []interface{}{workspaceID}
	if personID != nil {
		query += ` AND person_id = $2 ORDER BY created_at DESC LIMIT $3 OFFSET $4`
		args = append(args, *personID, limit, offset)
	} else {
		query += ` ORDER BY created_at DESC LIMIT $2 OFFSET $3`
		args = append(args, limit, offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	defer rows.Close()

	var out []models.Activity
	for rows.Next() {
		var a models.Activity
		if err := rows.Scan(&a.ID, &a.WorkspaceID, &a.PersonID, &a.CameraID, &a.Data, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		out = append(out, a)
	}
	return out, nil
}

func (s *PostgresStore) ListExpiredActivityIDs(ctx context.Context, workspaceID uuid.UUID, before time.Time) ([]uuid.UUID, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id FROM activities WHERE workspace_id = $1 AND created_at < $2`,
		workspaceID, before)
	if err != nil {
		return nil, fmt.Errorf("list expired activities: %w", err)
	}
	defer rows.Close()
	return scanIDs(rows)
}

// --- Notifications ---

func (s *PostgresStore) CreateNotification(ctx context.Context, n *models.Notification) error {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO notifications (id, workspace_id, meta, is_viewed)
		 VALUES ($1, $2, $3, $4) RETURNING created_at`,
		n.ID, n.WorkspaceID, n.Meta, n.IsViewed,
	).Scan(&n.CreatedAt)
	if err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListNotifications(ctx context.Context, workspaceID uuid.UUID, limit, offset int) ([]models.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, workspace_id, meta, is_viewed, created_at FROM notifications
		 WHERE workspace_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		workspaceID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var out []models.Notification
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.WorkspaceID, &n.Meta, &n.IsViewed, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		out = append(out, n)
	}
	return out, nil
}

func (s *PostgresStore) MarkNotificationViewed(ctx context.Context, workspaceID, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE notifications SET is_viewed = TRUE WHERE id = $1 AND workspace_id = $2`, id, workspaceID)
	if err != nil {
		return fmt.Errorf("mark notification viewed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("notification not found")
	}
	return nil
}

// --- Template search ---

// SearchTemplates finds the closest stored sample templates for an
// embedding, cosine distance via pgvector.
func (s *PostgresStore) SearchTemplates(ctx context.Context, workspaceID uuid.UUID, embedding []float32, threshold float64, limit int) ([]domain.TemplateMatch, error) {
	if limit <= 0 {
		limit = 5
	}
	vec := pgvector.NewVector(embedding)

	rows, err := s.pool.Query(ctx,
		`SELECT st.sample_id, ps.profile_id, 1 - (st.embedding <=> $1) AS score
		 FROM sample_templates st
		 JOIN samples s ON s.id = st.sample_id
		 LEFT JOIN profile_samples ps ON ps.sample_id = st.sample_id
		 WHERE s.workspace_id = $2
		   AND 1 - (st.embedding <=> $1) >= $3
		 ORDER BY st.embedding <=> $1
		 LIMIT $4`,
		vec, workspaceID, threshold, limit)
	if err != nil {
		return nil, fmt.Errorf("search templates: %w", err)
	}
	defer rows.Close()

	var matches []domain.TemplateMatch
	for rows.Next() {
		var m domain.TemplateMatch
		if err := rows.Scan(&m.SampleID, &m.ProfileID, &m.Score); err != nil {
			return nil, fmt.Errorf("scan template match: %w", err)
		}
		matches = append(matches, m)
	}
	return matches, nil
}

func scanIDs(rows pgx.Rows) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
