package domain

import (
	"fmt"

	"github.com/your-org/faceid/internal/engine"
	"github.com/your-org/faceid/internal/models"
)

// SamplePolicy decides how many samples a multi-face processing result
// yields.
type SamplePolicy string

const (
	AllowMultiface    SamplePolicy = "ALLOW_MULTIFACE"
	NotAllowMultiface SamplePolicy = "NOT_ALLOW_MULTIFACE"
	BestQualityFace   SamplePolicy = "BEST_QUALITY_FACE"
)

// ApplySamplePolicy reduces a detected-face list according to the policy.
// It runs after detection and before blob persistence, since blobs are
// stored per retained face only.
func ApplySamplePolicy(policy SamplePolicy, faces []engine.Object) ([]engine.Object, error) {
	switch policy {
	case "", AllowMultiface:
		return faces, nil
	case NotAllowMultiface:
		if len(faces) > 1 {
			return nil, NewError(CodeMultiface, fmt.Sprintf("%d faces detected, expected one", len(faces)))
		}
		return faces, nil
	case BestQualityFace:
		if len(faces) == 0 {
			return faces, nil
		}
		best := faces[0]
		for _, f := range faces[1:] {
			if engine.QualityScore(f) > engine.QualityScore(best) {
				best = f
			}
		}
		return []engine.Object{best}, nil
	default:
		return nil, NewError(CodeBadDocument, "unknown sample policy "+string(policy))
	}
}

// policyFor resolves the effective policy: workspace config override first,
// service config second.
func (s *Service) policyFor(ws *models.Workspace) SamplePolicy {
	if v, ok := ws.SamplePolicy(); ok {
		return SamplePolicy(v)
	}
	return SamplePolicy(s.cfg.SamplePolicy)
}

// thresholdFor resolves the effective enrollment quality threshold.
func (s *Service) thresholdFor(ws *models.Workspace) float64 {
	if v, ok := ws.QualityThreshold(); ok {
		return v
	}
	return s.cfg.QualityThreshold
}
