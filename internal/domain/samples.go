package domain

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/your-org/faceid/internal/bsm"
	"github.com/your-org/faceid/internal/engine"
	"github.com/your-org/faceid/internal/models"
	"github.com/your-org/faceid/internal/observability"
)

// CreateSamples processes an image and creates one sample per face retained
// by the workspace multi-face policy.
func (s *Service) CreateSamples(ctx context.Context, ws *models.Workspace, image []byte) ([]models.Sample, error) {
	res, err := s.engine.Process(ctx, image, s.ecfg.TemplateVersion, nil)
	if err != nil {
		return nil, fmt.Errorf("process image: %w", err)
	}

	faces := facesOf(res)
	if len(faces) == 0 {
		return nil, NewError(CodeNoFace, "no face detected")
	}

	faces, err = ApplySamplePolicy(s.policyFor(ws), faces)
	if err != nil {
		return nil, err
	}

	var samples []models.Sample
	err = s.store.WithTx(ctx, func(tx Tx) error {
		for _, face := range faces {
			sample, err := s.createSampleFromObject(ctx, tx, ws.ID, res.Capturer, face)
			if err != nil {
				return err
			}
			samples = append(samples, *sample)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	observability.SamplesCreated.WithLabelValues(ws.ID.String()).Add(float64(len(samples)))
	return samples, nil
}

// createSampleFromObject persists the object's inline payloads as blobs,
// then creates the sample row referencing them. Must run inside tx so an
// interrupted create leaves neither half.
func (s *Service) createSampleFromObject(ctx context.Context, tx Tx, workspaceID uuid.UUID, capturer string, face engine.Object) (*models.Sample, error) {
	sampleID := uuid.New()

	stored, templateData, err := s.persistObjectBlobs(ctx, tx, workspaceID, sampleID, face)
	if err != nil {
		return nil, err
	}

	sample := &models.Sample{
		ID:          sampleID,
		WorkspaceID: workspaceID,
		Meta:        bsm.Document{"objects@" + capturer: []any{map[string]any(stored)}},
		Quality:     engine.QualityScore(face),
	}
	if err := tx.CreateSample(ctx, sample); err != nil {
		return nil, fmt.Errorf("create sample: %w", err)
	}

	if templateData != nil {
		vec, err := templateToVector(templateData)
		if err != nil {
			return nil, NewError(CodeBadDocument, "malformed template payload: "+err.Error())
		}
		if err := tx.InsertSampleTemplate(ctx, sampleID, s.ecfg.TemplateVersion, vec); err != nil {
			return nil, fmt.Errorf("insert sample template: %w", err)
		}
	}

	return sample, nil
}

// persistObjectBlobs replaces every inline binary payload of the object
// with a stored blob reference. It returns the rewritten object and the raw
// template bytes for the configured version, when present.
func (s *Service) persistObjectBlobs(ctx context.Context, tx Tx, workspaceID, sampleID uuid.UUID, obj engine.Object) (engine.Object, []byte, error) {
	var templateData []byte
	templateKey := bsm.Sentinel + s.ecfg.TemplateVersion

	stored, err := rewriteBinaryNodes(obj, func(key string, value any) (any, error) {
		b64, ok := bsm.InlinePayload(value)
		if !ok {
			// Already a reference; keep it.
			return value, nil
		}
		raw, err := base64.StdEncoding.DecodeString(b64)
		if err != nil {
			return nil, NewError(CodeBadDocument, fmt.Sprintf("decode payload %s: %v", key, err))
		}

		meta := &models.BlobMeta{
			ID:          uuid.New(),
			WorkspaceID: workspaceID,
			Meta:        bsm.Document{"sample_id": sampleID.String()},
		}
		if err := tx.CreateBlob(ctx, meta, raw); err != nil {
			return nil, fmt.Errorf("create blob for %s: %w", key, err)
		}

		if key == templateKey {
			templateData = raw
		}
		return map[string]any{"id": meta.ID.String()}, nil
	})
	if err != nil {
		return nil, nil, err
	}
	return stored, templateData, nil
}

// rewriteBinaryNodes returns a copy of the document with every binary node
// value replaced by fn's result.
func rewriteBinaryNodes(doc map[string]any, fn func(key string, value any) (any, error)) (map[string]any, error) {
	out := make(map[string]any, len(doc))
	for key, val := range doc {
		if bsm.KindOf(key, val) == bsm.KindBinary {
			repl, err := fn(key, val)
			if err != nil {
				return nil, err
			}
			out[key] = repl
			continue
		}
		switch v := val.(type) {
		case map[string]any:
			nested, err := rewriteBinaryNodes(v, fn)
			if err != nil {
				return nil, err
			}
			out[key] = nested
		case []any:
			list := make([]any, len(v))
			for i, item := range v {
				if m, ok := item.(map[string]any); ok {
					nested, err := rewriteBinaryNodes(m, fn)
					if err != nil {
						return nil, err
					}
					list[i] = nested
				} else {
					list[i] = item
				}
			}
			out[key] = list
		default:
			out[key] = val
		}
	}
	return out, nil
}

// DeleteSample removes the sample row and exactly the blob set reachable
// from its meta tree, excluding blob ids also referenced from the linked
// person's activities (best-shot photos outlive the sample).
func (s *Service) DeleteSample(ctx context.Context, ws *models.Workspace, sampleID uuid.UUID) error {
	err := s.store.WithTx(ctx, func(tx Tx) error {
		sample, err := tx.SampleForUpdate(ctx, ws.ID, sampleID)
		if err != nil {
			return err
		}
		if sample == nil {
			return NewError(CodeNotFound, "sample not found")
		}

		exclude := make(map[uuid.UUID]struct{})
		if personID, ok, err := tx.PersonIDForSample(ctx, sampleID); err != nil {
			return fmt.Errorf("resolve sample person: %w", err)
		} else if ok {
			docs, err := tx.ActivityDataForPerson(ctx, personID)
			if err != nil {
				return fmt.Errorf("load activity data: %w", err)
			}
			exclude = ExcludeSet(docs...)
		}

		if err := DeleteBlobs(ctx, tx, sample.Meta, exclude); err != nil {
			return err
		}
		if err := tx.DeleteSampleTemplates(ctx, sampleID); err != nil {
			return fmt.Errorf("delete sample templates: %w", err)
		}
		if err := tx.DeleteSampleRow(ctx, sampleID); err != nil {
			return fmt.Errorf("delete sample row: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	observability.SamplesDeleted.WithLabelValues(ws.ID.String()).Inc()
	return nil
}

// templateToVector interprets a template blob as little-endian float32s.
func templateToVector(data []byte) ([]float32, error) {
	if len(data) == 0 || len(data)%4 != 0 {
		return nil, fmt.Errorf("template length %d is not a float32 vector", len(data))
	}
	vec := make([]float32, len(data)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return vec, nil
}

func facesOf(res *engine.Result) []engine.Object {
	faces := make([]engine.Object, 0, len(res.Objects))
	for _, obj := range res.Objects {
		if engine.Class(obj) == "face" {
			faces = append(faces, obj)
		}
	}
	return faces
}
