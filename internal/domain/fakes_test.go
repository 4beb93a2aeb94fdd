package domain

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/your-org/faceid/internal/agentindex"
	"github.com/your-org/faceid/internal/bsm"
	"github.com/your-org/faceid/internal/config"
	"github.com/your-org/faceid/internal/engine"
	"github.com/your-org/faceid/internal/models"
)

// fakeStore is an in-memory Store/Tx used by the service tests. WithTx hands
// the same instance back, so transactional rollback is not modelled.
type fakeStore struct {
	workspaces     map[uuid.UUID]*models.Workspace
	samples        map[uuid.UUID]*models.Sample
	blobs          map[uuid.UUID][]byte
	blobWorkspace  map[uuid.UUID]uuid.UUID
	persons        map[uuid.UUID]*models.Person
	profiles       map[uuid.UUID]*models.Profile
	labels         map[uuid.UUID]*models.Label
	activities     map[uuid.UUID]*models.Activity
	notifications  map[uuid.UUID]*models.Notification
	personSamples  map[uuid.UUID][]uuid.UUID
	profileSamples map[uuid.UUID][]uuid.UUID
	profileGroups  map[uuid.UUID][]uuid.UUID
	templates      map[uuid.UUID][]float32
	matches        []TemplateMatch
	linkErr        error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		workspaces:     map[uuid.UUID]*models.Workspace{},
		samples:        map[uuid.UUID]*models.Sample{},
		blobs:          map[uuid.UUID][]byte{},
		blobWorkspace:  map[uuid.UUID]uuid.UUID{},
		persons:        map[uuid.UUID]*models.Person{},
		profiles:       map[uuid.UUID]*models.Profile{},
		labels:         map[uuid.UUID]*models.Label{},
		activities:     map[uuid.UUID]*models.Activity{},
		notifications:  map[uuid.UUID]*models.Notification{},
		personSamples:  map[uuid.UUID][]uuid.UUID{},
		profileSamples: map[uuid.UUID][]uuid.UUID{},
		profileGroups:  map[uuid.UUID][]uuid.UUID{},
		templates:      map[uuid.UUID][]float32{},
	}
}

func (f *fakeStore) addWorkspace(cfg bsm.Document) *models.Workspace {
	if cfg == nil {
		cfg = bsm.Document{}
	}
	ws := &models.Workspace{ID: uuid.New(), Title: "test", Config: cfg, CreatedAt: time.Now()}
	f.workspaces[ws.ID] = ws
	return ws
}

// --- Store ---

func (f *fakeStore) WithTx(ctx context.Context, fn func(tx Tx) error) error {
	return fn(f)
}

func (f *fakeStore) CreateWorkspace(ctx context.Context, ws *models.Workspace) error {
	ws.CreatedAt = time.Now()
	f.workspaces[ws.ID] = ws
	return nil
}

func (f *fakeStore) GetWorkspace(ctx context.Context, id uuid.UUID) (*models.Workspace, error) {
	return f.workspaces[id], nil
}

func (f *fakeStore) ListWorkspaces(ctx context.Context) ([]models.Workspace, error) {
	var out []models.Workspace
	for _, ws := range f.workspaces {
		out = append(out, *ws)
	}
	return out, nil
}

func (f *fakeStore) GetSample(ctx context.Context, workspaceID, id uuid.UUID) (*models.Sample, error) {
	s := f.samples[id]
	if s == nil || s.WorkspaceID != workspaceID {
		return nil, nil
	}
	return s, nil
}

func (f *fakeStore) GetSamples(ctx context.Context, workspaceID uuid.UUID, ids []uuid.UUID) ([]models.Sample, error) {
	var out []models.Sample
	for _, id := range ids {
		if s := f.samples[id]; s != nil && s.WorkspaceID == workspaceID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (f *fakeStore) ListSamples(ctx context.Context, workspaceID uuid.UUID, limit, offset int) ([]models.Sample, error) {
	var out []models.Sample
	for _, s := range f.samples {
		if s.WorkspaceID == workspaceID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (f *fakeStore) ListExpiredSampleIDs(ctx context.Context, workspaceID uuid.UUID, before time.Time) ([]uuid.UUID, error) {
	var out []uuid.UUID
	for id, s := range f.samples {
		if s.WorkspaceID == workspaceID && s.CreatedAt.Before(before) {
			out = append(out, id)
		}
	}
	return out, nil
}

func (f *fakeStore) GetBlobPayload(ctx context.Context, workspaceID, id uuid.UUID) ([]byte, error) {
	if f.blobWorkspace[id] != workspaceID {
		return nil, nil
	}
	return f.blobs[id], nil
}

func (f *fakeStore) GetBlobPayloads(ctx context.Context, workspaceID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID][]byte, error) {
	out := map[uuid.UUID][]byte{}
	for _, id := range ids {
		if f.blobWorkspace[id] == workspaceID {
			if data, ok := f.blobs[id]; ok {
				out[id] = data
			}
		}
	}
	return out, nil
}

func (f *fakeStore) GetPerson(ctx context.Context, workspaceID, id uuid.UUID) (*models.Person, error) {
	p := f.persons[id]
	if p == nil || p.WorkspaceID != workspaceID {
		return nil, nil
	}
	return p, nil
}

func (f *fakeStore) GetProfile(ctx context.Context, workspaceID, id uuid.UUID) (*models.Profile, error) {
	p := f.profiles[id]
	if p == nil || p.WorkspaceID != workspaceID {
		return nil, nil
	}
	p.GroupIDs = f.profileGroups[id]
	return p, nil
}

func (f *fakeStore) ListProfiles(ctx context.Context, workspaceID uuid.UUID, limit, offset int) ([]models.Profile, error) {
	var out []models.Profile
	for _, p := range f.profiles {
		if p.WorkspaceID == workspaceID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakeStore) CreateLabel(ctx context.Context, label *models.Label) error {
	label.CreatedAt = time.Now()
	f.labels[label.ID] = label
	return nil
}

func (f *fakeStore) ListLabels(ctx context.Context, workspaceID uuid.UUID, labelType models.LabelType, activeOnly bool) ([]models.Label, error) {
	var out []models.Label
	for _, l := range f.labels {
		if l.WorkspaceID != workspaceID {
			continue
		}
		if labelType != "" && l.Type != labelType {
			continue
		}
		if activeOnly && !l.IsActive {
			continue
		}
		out = append(out, *l)
	}
	return out, nil
}

func (f *fakeStore) DeactivateLabel(ctx context.Context, workspaceID, id uuid.UUID) error {
	l := f.labels[id]
	if l == nil || l.WorkspaceID != workspaceID {
		return errors.New("label not found")
	}
	l.IsActive = false
	return nil
}

func (f *fakeStore) CountActiveLabels(ctx context.Context, workspaceID uuid.UUID, ids []uuid.UUID, labelType models.LabelType) (int, error) {
	count := 0
	for _, id := range ids {
		l := f.labels[id]
		if l != nil && l.WorkspaceID == workspaceID && l.Type == labelType && l.IsActive {
			count++
		}
	}
	return count, nil
}

func (f *fakeStore) ListActivities(ctx context.Context, workspaceID uuid.UUID, personID *uuid.UUID, limit, offset int) ([]models.Activity, error) {
	var out []models.Activity
	for _, a := range f.activities {
		if a.WorkspaceID != workspaceID {
			continue
		}
		if personID != nil && a.PersonID != *personID {
			continue
		}
		out = append(out, *a)
	}
	return out, nil
}

func (f *fakeStore) ListExpiredActivityIDs(ctx context.Context, workspaceID uuid.UUID, before time.Time) ([]uuid.UUID, error) {
	var out []uuid.UUID
	for id, a := range f.activities {
		if a.WorkspaceID == workspaceID && a.CreatedAt.Before(before) {
			out = append(out, id)
		}
	}
	return out, nil
}

func (f *fakeStore) CreateNotification(ctx context.Context, n *models.Notification) error {
	n.CreatedAt = time.Now()
	f.notifications[n.ID] = n
	return nil
}

func (f *fakeStore) ListNotifications(ctx context.Context, workspaceID uuid.UUID, limit, offset int) ([]models.Notification, error) {
	var out []models.Notification
	for _, n := range f.notifications {
		if n.WorkspaceID == workspaceID {
			out = append(out, *n)
		}
	}
	return out, nil
}

func (f *fakeStore) MarkNotificationViewed(ctx context.Context, workspaceID, id uuid.UUID) error {
	n := f.notifications[id]
	if n == nil || n.WorkspaceID != workspaceID {
		return errors.New("notification not found")
	}
	n.IsViewed = true
	return nil
}

func (f *fakeStore) SearchTemplates(ctx context.Context, workspaceID uuid.UUID, embedding []float32, threshold float64, limit int) ([]TemplateMatch, error) {
	return f.matches, nil
}

// --- Tx ---

func (f *fakeStore) CreateSample(ctx context.Context, s *models.Sample) error {
	s.CreatedAt = time.Now()
	f.samples[s.ID] = s
	return nil
}

func (f *fakeStore) SampleForUpdate(ctx context.Context, workspaceID, id uuid.UUID) (*models.Sample, error) {
	return f.GetSample(ctx, workspaceID, id)
}

func (f *fakeStore) UpdateSampleMeta(ctx context.Context, id uuid.UUID, meta bsm.Document) error {
	f.samples[id].Meta = meta
	return nil
}

func (f *fakeStore) UpdateSampleQuality(ctx context.Context, id uuid.UUID, quality float64) error {
	f.samples[id].Quality = quality
	return nil
}

func (f *fakeStore) DeleteSampleRow(ctx context.Context, id uuid.UUID) error {
	delete(f.samples, id)
	for pid, ids := range f.personSamples {
		f.personSamples[pid] = removeID(ids, id)
	}
	for pid, ids := range f.profileSamples {
		f.profileSamples[pid] = removeID(ids, id)
	}
	return nil
}

func (f *fakeStore) SampleMetaForPerson(ctx context.Context, personID uuid.UUID) ([]bsm.Document, error) {
	var out []bsm.Document
	for _, id := range f.personSamples[personID] {
		if s := f.samples[id]; s != nil {
			out = append(out, s.Meta)
		}
	}
	return out, nil
}

func (f *fakeStore) CreateBlob(ctx context.Context, meta *models.BlobMeta, payload []byte) error {
	meta.CreatedAt = time.Now()
	f.blobs[meta.ID] = payload
	f.blobWorkspace[meta.ID] = meta.WorkspaceID
	return nil
}

func (f *fakeStore) DeleteBlob(ctx context.Context, id uuid.UUID) (bool, error) {
	if _, ok := f.blobs[id]; !ok {
		return false, nil
	}
	delete(f.blobs, id)
	delete(f.blobWorkspace, id)
	return true, nil
}

func (f *fakeStore) CreatePerson(ctx context.Context, p *models.Person) error {
	p.CreatedAt = time.Now()
	f.persons[p.ID] = p
	return nil
}

func (f *fakeStore) DeletePersonRow(ctx context.Context, id uuid.UUID) error {
	delete(f.persons, id)
	delete(f.personSamples, id)
	return nil
}

func (f *fakeStore) LinkPersonSample(ctx context.Context, personID, sampleID uuid.UUID) error {
	if f.linkErr != nil {
		return f.linkErr
	}
	f.personSamples[personID] = append(f.personSamples[personID], sampleID)
	return nil
}

func (f *fakeStore) PersonIDForSample(ctx context.Context, sampleID uuid.UUID) (uuid.UUID, bool, error) {
	for pid, ids := range f.personSamples {
		for _, id := range ids {
			if id == sampleID {
				return pid, true, nil
			}
		}
	}
	return uuid.Nil, false, nil
}

func (f *fakeStore) CreateProfile(ctx context.Context, p *models.Profile) error {
	p.CreatedAt = time.Now()
	f.profiles[p.ID] = p
	return nil
}

func (f *fakeStore) ProfileForUpdate(ctx context.Context, workspaceID, id uuid.UUID) (*models.Profile, error) {
	return f.GetProfile(ctx, workspaceID, id)
}

func (f *fakeStore) UpdateProfileInfo(ctx context.Context, id uuid.UUID, info bsm.Document) error {
	f.profiles[id].Info = info
	return nil
}

func (f *fakeStore) DeleteProfileRow(ctx context.Context, id uuid.UUID) error {
	delete(f.profiles, id)
	delete(f.profileGroups, id)
	delete(f.profileSamples, id)
	return nil
}

func (f *fakeStore) LinkProfileSample(ctx context.Context, profileID, sampleID uuid.UUID) error {
	f.profileSamples[profileID] = append(f.profileSamples[profileID], sampleID)
	return nil
}

func (f *fakeStore) ProfileSampleIDs(ctx context.Context, profileID uuid.UUID) ([]uuid.UUID, error) {
	return f.profileSamples[profileID], nil
}

func (f *fakeStore) ProfileGroupCount(ctx context.Context, profileID uuid.UUID) (int, error) {
	return len(f.profileGroups[profileID]), nil
}

func (f *fakeStore) SetProfileGroups(ctx context.Context, profileID uuid.UUID, groupIDs []uuid.UUID) error {
	f.profileGroups[profileID] = groupIDs
	return nil
}

func (f *fakeStore) DeleteNotificationsByProfile(ctx context.Context, profileID uuid.UUID) error {
	for id, n := range f.notifications {
		if pid, ok := n.Meta["profile_id"].(string); ok && pid == profileID.String() {
			delete(f.notifications, id)
		}
	}
	return nil
}

func (f *fakeStore) InsertSampleTemplate(ctx context.Context, sampleID uuid.UUID, version string, embedding []float32) error {
	f.templates[sampleID] = embedding
	return nil
}

func (f *fakeStore) DeleteSampleTemplates(ctx context.Context, sampleID uuid.UUID) error {
	delete(f.templates, sampleID)
	return nil
}

func (f *fakeStore) CreateActivity(ctx context.Context, a *models.Activity) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	f.activities[a.ID] = a
	return nil
}

func (f *fakeStore) ActivityForUpdate(ctx context.Context, workspaceID, id uuid.UUID) (*models.Activity, error) {
	a := f.activities[id]
	if a == nil || a.WorkspaceID != workspaceID {
		return nil, nil
	}
	return a, nil
}

func (f *fakeStore) DeleteActivityRow(ctx context.Context, id uuid.UUID) error {
	delete(f.activities, id)
	return nil
}

func (f *fakeStore) ActivityDataForPerson(ctx context.Context, personID uuid.UUID) ([]bsm.Document, error) {
	var out []bsm.Document
	for _, a := range f.activities {
		if a.PersonID == personID {
			out = append(out, a.Data)
		}
	}
	return out, nil
}

func (f *fakeStore) WorkspaceForUpdate(ctx context.Context, id uuid.UUID) (*models.Workspace, error) {
	return f.workspaces[id], nil
}

func (f *fakeStore) UpdateWorkspaceConfig(ctx context.Context, id uuid.UUID, cfg bsm.Document) error {
	f.workspaces[id].Config = cfg
	return nil
}

func removeID(ids []uuid.UUID, target uuid.UUID) []uuid.UUID {
	out := ids[:0]
	for _, id := range ids {
		if id != target {
			out = append(out, id)
		}
	}
	return out
}

// --- Fake external boundaries ---

type fakeEngine struct {
	result     *engine.Result
	processErr error
	quality    float64
	qualityErr error
}

func (f *fakeEngine) Process(ctx context.Context, image []byte, templateVersion string, pupils *engine.Pupils) (*engine.Result, error) {
	if f.processErr != nil {
		return nil, f.processErr
	}
	return f.result, nil
}

func (f *fakeEngine) Quality(ctx context.Context, sampleMeta bsm.Document, templateVersion string) (float64, error) {
	if f.qualityErr != nil {
		return 0, f.qualityErr
	}
	return f.quality, nil
}

type indexCall struct {
	action    string
	profileID uuid.UUID
	groups    []uuid.UUID
	template  *agentindex.Template
}

type fakeIndex struct {
	calls []indexCall
	err   error
}

func (f *fakeIndex) AddProfile(ctx context.Context, entry agentindex.ProfileEntry) error {
	f.calls = append(f.calls, indexCall{action: "add", profileID: entry.ProfileID, groups: entry.ProfileGroups, template: entry.Template})
	return f.err
}

func (f *fakeIndex) UpdateProfile(ctx context.Context, entry agentindex.ProfileEntry) error {
	f.calls = append(f.calls, indexCall{action: "update", profileID: entry.ProfileID, groups: entry.ProfileGroups, template: entry.Template})
	return f.err
}

func (f *fakeIndex) DeleteProfile(ctx context.Context, profileID, personID uuid.UUID) error {
	f.calls = append(f.calls, indexCall{action: "delete", profileID: profileID})
	return f.err
}

func newTestService(store *fakeStore, eng *fakeEngine, index *fakeIndex) *Service {
	if eng == nil {
		eng = &fakeEngine{}
	}
	if index == nil {
		index = &fakeIndex{}
	}
	return NewService(store, eng, index,
		config.LifecycleConfig{
			SamplePolicy:     string(AllowMultiface),
			QualityThreshold: 0.5,
			MaxCandidates:    100,
		},
		config.EngineConfig{
			Capturer:        "face-detector",
			TemplateVersion: "template17v1",
		},
	)
}

func blobMeta(workspaceID, id uuid.UUID) *models.BlobMeta {
	return &models.BlobMeta{ID: id, WorkspaceID: workspaceID, Meta: bsm.Document{}}
}

// faceObject builds a minimal detected-face object with an inline template
// payload and quality score.
func faceObject(template []byte, quality float64) engine.Object {
	return engine.Object{
		"class": "face",
		"quality": map[string]any{
			"total_score": quality,
		},
		"$template17v1": base64.StdEncoding.EncodeToString(template),
		"$image":        base64.StdEncoding.EncodeToString([]byte("jpeg-bytes")),
	}
}

// vectorBytes encodes float32s as the little-endian template wire format.
func vectorBytes(vals ...float32) []byte {
	out := make([]byte, len(vals)*4)
	for i, v := range vals {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(v))
	}
	return out
}
