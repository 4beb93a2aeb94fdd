package domain

import (
	"context"
	"encoding/base64"
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/your-org/faceid/internal/bsm"
	"github.com/your-org/faceid/internal/models"
)

// TemplateSource picks exactly one way to obtain comparable templates:
// persisted sample ids, a raw not-yet-persisted sample document, or a fresh
// image for an engine round trip.
type TemplateSource struct {
	SampleIDs  []uuid.UUID
	SampleData bsm.Document
	Image      []byte
}

func (src TemplateSource) modes() int {
	n := 0
	if len(src.SampleIDs) > 0 {
		n++
	}
	if src.SampleData != nil {
		n++
	}
	if len(src.Image) > 0 {
		n++
	}
	return n
}

// Template is one resolved biometric template. Data holds the raw vector
// bytes; Raw carries the unresolved source structure when blob objects were
// not resolvable (the caller already holds base64 vectors).
type Template struct {
	BlobID uuid.UUID
	Data   []byte
	Raw    any
}

// ResolveTemplates resolves templates from exactly one source mode. For the
// sample-id mode the output order mirrors the caller's id order regardless
// of storage order.
func (s *Service) ResolveTemplates(ctx context.Context, ws *models.Workspace, src TemplateSource, version string) ([]Template, error) {
	if src.modes() != 1 {
		return nil, NewError(CodeTemplateSource, "exactly one of sample_ids, sample_data or image must be provided")
	}

	switch {
	case len(src.SampleIDs) > 0:
		return s.templatesBySampleIDs(ctx, ws, src.SampleIDs, version)
	case src.SampleData != nil:
		return s.templatesFromDocument(ctx, ws, src.SampleData, version)
	default:
		return s.templatesFromImage(ctx, src.Image, version)
	}
}

func (s *Service) templatesBySampleIDs(ctx context.Context, ws *models.Workspace, ids []uuid.UUID, version string) ([]Template, error) {
	samples, err := s.store.GetSamples(ctx, ws.ID, ids)
	if err != nil {
		return nil, fmt.Errorf("load samples: %w", err)
	}
	byID := make(map[uuid.UUID]*models.Sample, len(samples))
	for i := range samples {
		byID[samples[i].ID] = &samples[i]
	}

	blobIDs := make([]uuid.UUID, 0, len(ids))
	blobFor := make(map[uuid.UUID]uuid.UUID, len(ids)) // sample id -> blob id
	for _, id := range ids {
		sample, ok := byID[id]
		if !ok {
			return nil, NewError(CodeNotFound, "sample "+id.String()+" not found")
		}
		blobID, ok := bsm.TemplateBlobID(sample.Meta, version)
		if !ok {
			return nil, NewError(CodeNotFound, "sample "+id.String()+" has no "+version+" template")
		}
		blobIDs = append(blobIDs, blobID)
		blobFor[id] = blobID
	}

	payloads, err := s.store.GetBlobPayloads(ctx, ws.ID, blobIDs)
	if err != nil {
		return nil, fmt.Errorf("load template blobs: %w", err)
	}

	out := make([]Template, 0, len(ids))
	for _, id := range ids {
		blobID := blobFor[id]
		data, ok := payloads[blobID]
		if !ok {
			return nil, NewError(CodeNotFound, "template blob "+blobID.String()+" not found")
		}
		out = append(out, Template{BlobID: blobID, Data: data})
	}
	return out, nil
}

func (s *Service) templatesFromDocument(ctx context.Context, ws *models.Workspace, doc bsm.Document, version string) ([]Template, error) {
	key := bsm.Sentinel + version

	var blobIDs []uuid.UUID
	inline := false
	_ = bsm.Walk(doc, func(n bsm.Node) error {
		if n.Key != key {
			return nil
		}
		if id, ok := bsm.BlobID(n.Value); ok {
			blobIDs = append(blobIDs, id)
		} else if _, ok := bsm.InlinePayload(n.Value); ok {
			inline = true
		}
		return nil
	})

	if len(blobIDs) == 0 {
		if !inline {
			return nil, NewError(CodeNotFound, "document carries no "+version+" template")
		}
		// Blob objects are not resolvable: the caller already holds base64
		// vectors, hand the structure back unmodified.
		return []Template{{Raw: doc}}, nil
	}

	payloads, err := s.store.GetBlobPayloads(ctx, ws.ID, blobIDs)
	if err != nil {
		return nil, fmt.Errorf("load template blobs: %w", err)
	}

	out := make([]Template, 0, len(blobIDs))
	for _, id := range blobIDs {
		if data, ok := payloads[id]; ok {
			out = append(out, Template{BlobID: id, Data: data})
		}
	}
	if len(out) == 0 {
		return []Template{{Raw: doc}}, nil
	}
	return out, nil
}

func (s *Service) templatesFromImage(ctx context.Context, image []byte, version string) ([]Template, error) {
	res, err := s.engine.Process(ctx, image, version, nil)
	if err != nil {
		return nil, fmt.Errorf("process image: %w", err)
	}

	key := bsm.Sentinel + version
	var out []Template
	for _, obj := range facesOf(res) {
		b64, ok := bsm.InlinePayload(obj[key])
		if !ok {
			continue
		}
		raw, err := base64.StdEncoding.DecodeString(b64)
		if err != nil {
			return nil, NewError(CodeBadDocument, "decode template payload: "+err.Error())
		}
		out = append(out, Template{Data: raw})
	}
	if len(out) == 0 {
		return nil, NewError(CodeNoFace, "no face detected")
	}
	return out, nil
}

// SearchParams drive a template similarity search.
type SearchParams struct {
	Source     TemplateSource
	Threshold  float64
	Candidates int
}

// Search resolves one template from the source and runs a similarity
// search over stored sample templates in the workspace.
func (s *Service) Search(ctx context.Context, ws *models.Workspace, p SearchParams) ([]TemplateMatch, error) {
	if p.Threshold < 0 || p.Threshold > 1 {
		return nil, NewError(CodeThreshold, "threshold must be within [0, 1]")
	}
	if p.Candidates < 1 || p.Candidates > s.cfg.MaxCandidates {
		return nil, NewError(CodeCandidates, fmt.Sprintf("candidates must be within [1, %d]", s.cfg.MaxCandidates))
	}

	templates, err := s.ResolveTemplates(ctx, ws, p.Source, s.ecfg.TemplateVersion)
	if err != nil {
		return nil, err
	}

	vec, err := templateVector(templates[0])
	if err != nil {
		return nil, err
	}
	return s.store.SearchTemplates(ctx, ws.ID, vec, p.Threshold, p.Candidates)
}

// Verify resolves one template from each source and returns their cosine
// similarity.
func (s *Service) Verify(ctx context.Context, ws *models.Workspace, first, second TemplateSource) (float64, error) {
	a, err := s.ResolveTemplates(ctx, ws, first, s.ecfg.TemplateVersion)
	if err != nil {
		return 0, err
	}
	b, err := s.ResolveTemplates(ctx, ws, second, s.ecfg.TemplateVersion)
	if err != nil {
		return 0, err
	}

	va, err := templateVector(a[0])
	if err != nil {
		return 0, err
	}
	vb, err := templateVector(b[0])
	if err != nil {
		return 0, err
	}
	return cosineSimilarity(va, vb)
}

// templateVector extracts the float vector from a resolved template,
// decoding an inline base64 payload when the raw fallback was returned.
func templateVector(t Template) ([]float32, error) {
	data := t.Data
	if data == nil && t.Raw != nil {
		key := ""
		_ = bsm.Walk(t.Raw, func(n bsm.Node) error {
			if key == "" && n.Kind == bsm.KindBinary {
				if b64, ok := bsm.InlinePayload(n.Value); ok {
					key = b64
				}
			}
			return nil
		})
		if key == "" {
			return nil, NewError(CodeBadDocument, "template source carries no payload")
		}
		raw, err := base64.StdEncoding.DecodeString(key)
		if err != nil {
			return nil, NewError(CodeBadDocument, "decode template payload: "+err.Error())
		}
		data = raw
	}

	vec, err := templateToVector(data)
	if err != nil {
		return nil, NewError(CodeBadDocument, "malformed template payload: "+err.Error())
	}
	return vec, nil
}

func cosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, NewError(CodeBadDocument, fmt.Sprintf("template dimensions differ: %d vs %d", len(a), len(b)))
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0, NewError(CodeBadDocument, "zero-norm template")
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb)), nil
}
