// Package retention removes samples and activities past their TTL, running
// the same blob cascade as an explicit delete.
package retention

import (
	"context"
	"log/slog"
	"time"

	"github.com/your-org/faceid/internal/config"
	"github.com/your-org/faceid/internal/domain"
	"github.com/your-org/faceid/internal/models"
	"github.com/your-org/faceid/internal/observability"
)

type Sweeper struct {
	svc *domain.Service
	cfg config.LifecycleConfig
}

func NewSweeper(svc *domain.Service, cfg config.LifecycleConfig) *Sweeper {
	return &Sweeper{svc: svc, cfg: cfg}
}

// Run sweeps on the configured interval until the context is cancelled. One
// failing workspace does not stop the sweep; each expired row is deleted in
// its own short transaction so a long sweep never holds locks.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RetentionInterval)
	defer ticker.Stop()

	s.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	workspaces, err := s.svc.Store().ListWorkspaces(ctx)
	if err != nil {
		slog.Error("retention: list workspaces", "error", err)
		return
	}

	for i := range workspaces {
		ws := &workspaces[i]
		if err := s.sweepWorkspace(ctx, ws); err != nil {
			slog.Error("retention: sweep workspace", "workspace_id", ws.ID, "error", err)
		}
		if ctx.Err() != nil {
			return
		}
	}
}

func (s *Sweeper) sweepWorkspace(ctx context.Context, ws *models.Workspace) error {
	now := time.Now()

	sampleTTL := s.cfg.SampleTTLDays
	if days, ok := ws.TTLDays("sample_ttl_days"); ok {
		sampleTTL = days
	}
	if sampleTTL > 0 {
		before := now.AddDate(0, 0, -sampleTTL)
		ids, err := s.svc.Store().ListExpiredSampleIDs(ctx, ws.ID, before)
		if err != nil {
			return err
		}
		for _, id := range ids {
			if err := s.svc.DeleteSample(ctx, ws, id); err != nil {
				slog.Warn("retention: delete sample", "sample_id", id, "error", err)
				continue
			}
			observability.RetentionDeleted.WithLabelValues("sample").Inc()
		}
		if len(ids) > 0 {
			slog.Info("retention: samples swept", "workspace_id", ws.ID, "count", len(ids))
		}
	}

	activityTTL := s.cfg.ActivityTTLDays
	if days, ok := ws.TTLDays("activity_ttl_days"); ok {
		activityTTL = days
	}
	if activityTTL > 0 {
		before := now.AddDate(0, 0, -activityTTL)
		ids, err := s.svc.Store().ListExpiredActivityIDs(ctx, ws.ID, before)
		if err != nil {
			return err
		}
		for _, id := range ids {
			if err := s.svc.DeleteActivity(ctx, ws, id); err != nil {
				slog.Warn("retention: delete activity", "activity_id", id, "error", err)
				continue
			}
			observability.RetentionDeleted.WithLabelValues("activity").Inc()
		}
		if len(ids) > 0 {
			slog.Info("retention: activities swept", "workspace_id", ws.ID, "count", len(ids))
		}
	}

	return nil
}
