package domain

import (
	"context"
	"encoding/base64"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/faceid/internal/bsm"
	"github.com/your-org/faceid/internal/engine"
	"github.com/your-org/faceid/internal/models"
)

const version = "template17v1"

// addStoredSample persists a sample whose meta references a stored template
// blob, returning the sample and blob ids.
func addStoredSample(t *testing.T, store *fakeStore, ws *models.Workspace, payload []byte) (uuid.UUID, uuid.UUID) {
	t.Helper()
	blobID := uuid.New()
	require.NoError(t, store.CreateBlob(context.Background(), blobMeta(ws.ID, blobID), payload))

	face := map[string]any{"class": "face"}
	face[bsm.Sentinel+version] = map[string]any{"id": blobID.String()}

	sample := &models.Sample{
		ID:          uuid.New(),
		WorkspaceID: ws.ID,
		Meta: bsm.Document{
			"objects@face-detector": []any{face},
		},
	}
	require.NoError(t, store.CreateSample(context.Background(), sample))
	return sample.ID, blobID
}

func TestResolveTemplates_SourceCardinality(t *testing.T) {
	store := newFakeStore()
	ws := store.addWorkspace(nil)
	svc := newTestService(store, nil, nil)

	// Zero modes.
	_, err := svc.ResolveTemplates(context.Background(), ws, TemplateSource{}, version)
	require.Error(t, err)
	assert.True(t, IsCode(err, CodeTemplateSource))

	// Two modes.
	_, err = svc.ResolveTemplates(context.Background(), ws, TemplateSource{
		SampleIDs: []uuid.UUID{uuid.New()},
		Image:     []byte("jpeg"),
	}, version)
	require.Error(t, err)
	assert.True(t, IsCode(err, CodeTemplateSource))
}

func TestResolveTemplates_BySampleIDsPreservesOrder(t *testing.T) {
	store := newFakeStore()
	ws := store.addWorkspace(nil)
	svc := newTestService(store, nil, nil)

	firstID, firstBlob := addStoredSample(t, store, ws, []byte("first"))
	secondID, secondBlob := addStoredSample(t, store, ws, []byte("second"))

	templates, err := svc.ResolveTemplates(context.Background(), ws,
		TemplateSource{SampleIDs: []uuid.UUID{secondID, firstID}}, version)
	require.NoError(t, err)
	require.Len(t, templates, 2)

	// Output order mirrors the requested id order, not storage order.
	assert.Equal(t, secondBlob, templates[0].BlobID)
	assert.Equal(t, []byte("second"), templates[0].Data)
	assert.Equal(t, firstBlob, templates[1].BlobID)
	assert.Equal(t, []byte("first"), templates[1].Data)
}

func TestResolveTemplates_UnknownSample(t *testing.T) {
	store := newFakeStore()
	ws := store.addWorkspace(nil)
	svc := newTestService(store, nil, nil)

	_, err := svc.ResolveTemplates(context.Background(), ws,
		TemplateSource{SampleIDs: []uuid.UUID{uuid.New()}}, version)
	require.Error(t, err)
	assert.True(t, IsCode(err, CodeNotFound))
}

func TestResolveTemplates_FromDocumentReference(t *testing.T) {
	store := newFakeStore()
	ws := store.addWorkspace(nil)
	svc := newTestService(store, nil, nil)

	blobID := uuid.New()
	require.NoError(t, store.CreateBlob(context.Background(), blobMeta(ws.ID, blobID), []byte("vec")))

	doc := bsm.Document{
		bsm.Sentinel + version: map[string]any{"id": blobID.String()},
	}
	templates, err := svc.ResolveTemplates(context.Background(), ws,
		TemplateSource{SampleData: doc}, version)
	require.NoError(t, err)
	require.Len(t, templates, 1)
	assert.Equal(t, []byte("vec"), templates[0].Data)
}

func TestResolveTemplates_FromDocumentInlineFallback(t *testing.T) {
	store := newFakeStore()
	ws := store.addWorkspace(nil)
	svc := newTestService(store, nil, nil)

	doc := bsm.Document{
		bsm.Sentinel + version: base64.StdEncoding.EncodeToString(vectorBytes(1, 2)),
	}
	templates, err := svc.ResolveTemplates(context.Background(), ws,
		TemplateSource{SampleData: doc}, version)
	require.NoError(t, err)
	require.Len(t, templates, 1)

	// Inline payloads resolve to the raw structure, not payload bytes.
	assert.Nil(t, templates[0].Data)
	assert.NotNil(t, templates[0].Raw)
}

func TestResolveTemplates_FromImage(t *testing.T) {
	store := newFakeStore()
	ws := store.addWorkspace(nil)
	eng := &fakeEngine{result: &engine.Result{
		Capturer: "face-detector",
		Objects:  []engine.Object{faceObject(vectorBytes(3, 4), 0.9)},
	}}
	svc := newTestService(store, eng, nil)

	templates, err := svc.ResolveTemplates(context.Background(), ws,
		TemplateSource{Image: []byte("jpeg")}, version)
	require.NoError(t, err)
	require.Len(t, templates, 1)
	assert.Equal(t, vectorBytes(3, 4), templates[0].Data)
}

func TestSearch_ValidatesParameters(t *testing.T) {
	store := newFakeStore()
	ws := store.addWorkspace(nil)
	svc := newTestService(store, nil, nil)

	src := TemplateSource{Image: []byte("jpeg")}

	_, err := svc.Search(context.Background(), ws, SearchParams{Source: src, Threshold: 1.5, Candidates: 5})
	assert.True(t, IsCode(err, CodeThreshold))

	_, err = svc.Search(context.Background(), ws, SearchParams{Source: src, Threshold: -0.1, Candidates: 5})
	assert.True(t, IsCode(err, CodeThreshold))

	_, err = svc.Search(context.Background(), ws, SearchParams{Source: src, Threshold: 0.5, Candidates: 0})
	assert.True(t, IsCode(err, CodeCandidates))

	_, err = svc.Search(context.Background(), ws, SearchParams{Source: src, Threshold: 0.5, Candidates: 101})
	assert.True(t, IsCode(err, CodeCandidates))
}

func TestSearch_ReturnsStoreMatches(t *testing.T) {
	store := newFakeStore()
	ws := store.addWorkspace(nil)
	sampleID, _ := addStoredSample(t, store, ws, vectorBytes(1, 0))
	store.matches = []TemplateMatch{{SampleID: sampleID, Score: 0.93}}
	svc := newTestService(store, nil, nil)

	matches, err := svc.Search(context.Background(), ws, SearchParams{
		Source:     TemplateSource{SampleIDs: []uuid.UUID{sampleID}},
		Threshold:  0.8,
		Candidates: 10,
	})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, sampleID, matches[0].SampleID)
}

func TestVerify_IdenticalTemplates(t *testing.T) {
	store := newFakeStore()
	ws := store.addWorkspace(nil)
	payload := vectorBytes(0.5, 0.5, 0.7)
	firstID, _ := addStoredSample(t, store, ws, payload)
	secondID, _ := addStoredSample(t, store, ws, payload)
	svc := newTestService(store, nil, nil)

	score, err := svc.Verify(context.Background(), ws,
		TemplateSource{SampleIDs: []uuid.UUID{firstID}},
		TemplateSource{SampleIDs: []uuid.UUID{secondID}},
	)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, score, 1e-6)
}

func TestVerify_OrthogonalTemplates(t *testing.T) {
	store := newFakeStore()
	ws := store.addWorkspace(nil)
	firstID, _ := addStoredSample(t, store, ws, vectorBytes(1, 0))
	secondID, _ := addStoredSample(t, store, ws, vectorBytes(0, 1))
	svc := newTestService(store, nil, nil)

	score, err := svc.Verify(context.Background(), ws,
		TemplateSource{SampleIDs: []uuid.UUID{firstID}},
		TemplateSource{SampleIDs: []uuid.UUID{secondID}},
	)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, score, 1e-6)
}

func TestVerify_DimensionMismatch(t *testing.T) {
	store := newFakeStore()
	ws := store.addWorkspace(nil)
	firstID, _ := addStoredSample(t, store, ws, vectorBytes(1, 0))
	secondID, _ := addStoredSample(t, store, ws, vectorBytes(1, 0, 0))
	svc := newTestService(store, nil, nil)

	_, err := svc.Verify(context.Background(), ws,
		TemplateSource{SampleIDs: []uuid.UUID{firstID}},
		TemplateSource{SampleIDs: []uuid.UUID{secondID}},
	)
	require.Error(t, err)
	assert.True(t, IsCode(err, CodeBadDocument))
}

func TestTemplateToVector(t *testing.T) {
	vec, err := templateToVector(vectorBytes(1.5, -2))
	require.NoError(t, err)
	assert.Equal(t, []float32{1.5, -2}, vec)

	_, err = templateToVector([]byte{1, 2, 3})
	assert.Error(t, err)

	_, err = templateToVector(nil)
	assert.Error(t, err)
}
