package domain

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/your-org/faceid/internal/models"
	"github.com/your-org/faceid/internal/observability"
)

// EnrollSample runs the quality-gated enrollment sequence: process the
// image, reject multi-face input, persist blobs and the sample row,
// re-evaluate quality against the requested template version, and undo the
// create when the score falls below the workspace threshold.
//
// This is deliberately not validate-then-commit: quality scoring requires
// the persisted template format, so the sample exists before the gate runs
// and the rejection path is a compensating delete.
func (s *Service) EnrollSample(ctx context.Context, ws *models.Workspace, image []byte) (*models.Sample, float64, error) {
	res, err := s.engine.Process(ctx, image, s.ecfg.TemplateVersion, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("process image: %w", err)
	}

	faces := facesOf(res)
	if len(faces) == 0 {
		return nil, 0, NewError(CodeNoFace, "no face detected")
	}
	if len(faces) > 1 {
		return nil, 0, NewError(CodeMultiface, fmt.Sprintf("%d faces detected, expected one", len(faces)))
	}

	var sample *models.Sample
	err = s.store.WithTx(ctx, func(tx Tx) error {
		created, err := s.createSampleFromObject(ctx, tx, ws.ID, res.Capturer, faces[0])
		if err != nil {
			return err
		}
		sample = created
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	observability.SamplesCreated.WithLabelValues(ws.ID.String()).Inc()

	score, err := s.engine.Quality(ctx, sample.Meta, s.ecfg.TemplateVersion)
	if err != nil {
		// The sample exists but cannot be gated; undo rather than keep an
		// unscored enrollment.
		s.compensateEnrollment(ctx, ws, sample.ID, "quality estimation failed")
		return nil, 0, fmt.Errorf("estimate quality: %w", err)
	}

	err = s.store.WithTx(ctx, func(tx Tx) error {
		return tx.UpdateSampleQuality(ctx, sample.ID, score)
	})
	if err != nil {
		s.compensateEnrollment(ctx, ws, sample.ID, "quality backfill failed")
		return nil, 0, fmt.Errorf("update sample quality: %w", err)
	}
	sample.Quality = score

	if threshold := s.thresholdFor(ws); score < threshold {
		s.compensateEnrollment(ctx, ws, sample.ID, "below quality threshold")
		observability.EnrollmentRejected.WithLabelValues(ws.ID.String()).Inc()
		return nil, score, NewError(CodeQualityGate,
			fmt.Sprintf("sample quality %.4f below threshold %.4f", score, threshold))
	}

	return sample, score, nil
}

// compensateEnrollment undoes a just-created sample, cascading its blobs.
// The action is logged for audit since it reverses committed state.
func (s *Service) compensateEnrollment(ctx context.Context, ws *models.Workspace, sampleID uuid.UUID, reason string) {
	slog.Warn("compensating enrollment delete",
		"workspace_id", ws.ID,
		"sample_id", sampleID,
		"reason", reason,
	)
	if err := s.DeleteSample(ctx, ws, sampleID); err != nil {
		slog.Error("compensating delete failed; sample orphaned",
			"workspace_id", ws.ID,
			"sample_id", sampleID,
			"error", err,
		)
	}
}

// EnrollPersonSample runs quality-gated enrollment and links the surviving
// sample to an existing person.
func (s *Service) EnrollPersonSample(ctx context.Context, ws *models.Workspace, personID uuid.UUID, image []byte) (*models.Sample, float64, error) {
	person, err := s.store.GetPerson(ctx, ws.ID, personID)
	if err != nil {
		return nil, 0, err
	}
	if person == nil {
		return nil, 0, NewError(CodeNotFound, "person not found")
	}

	sample, score, err := s.EnrollSample(ctx, ws, image)
	if err != nil {
		return nil, score, err
	}

	err = s.store.WithTx(ctx, func(tx Tx) error {
		return tx.LinkPersonSample(ctx, personID, sample.ID)
	})
	if err != nil {
		// An unlinked sample would still be searchable; undo the enrollment
		// rather than leave it floating.
		s.compensateEnrollment(ctx, ws, sample.ID, "person link failed")
		return nil, score, fmt.Errorf("link person sample: %w", err)
	}
	return sample, score, nil
}
