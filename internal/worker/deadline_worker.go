package worker

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/dossier-service/internal/config"
	"github.com/spec-kit/dossier-service/internal/domain"
	"github.com/spec-kit/dossier-service/internal/repository"
	"github.com/spec-kit/dossier-service/internal/service"
)

// DeadlineWorker re-evaluates dossier deadlines on a daily timer. The loop
// is cooperative and not reentrant-safe; it assumes each run finishes
// before the next tick fires.
type DeadlineWorker struct {
	dossiers repository.DossierRepository
	notifier *service.NotificationService
	cfg      config.WorkerConfig
	logger   *zap.Logger
}

// NewDeadlineWorker constructs the worker.
func NewDeadlineWorker(dossiers repository.DossierRepository, notifier *service.NotificationService, cfg config.WorkerConfig, logger *zap.Logger) *DeadlineWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DeadlineWorker{dossiers: dossiers, notifier: notifier, cfg: cfg, logger: logger}
}

// Start runs the loop until the context is cancelled.
func (w *DeadlineWorker) Start(ctx context.Context) {
	interval := time.Duration(w.cfg.DeadlineIntervalHours) * time.Hour
	if interval <= 0 {
		interval = 24 * time.Hour
	}

	w.logger.Info("deadline worker started", zap.Duration("interval", interval))
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("deadline worker shutting down")
			return
		case <-ticker.C:
			w.evaluate(ctx)
		}
	}
}

// evaluate flags dossiers stuck waiting on documents past the configured
// age and reminds their team leaders.
func (w *DeadlineWorker) evaluate(ctx context.Context) {
	staleDays := w.cfg.StaleAfterDays
	if staleDays <= 0 {
		staleDays = 7
	}
	cutoff := time.Now().AddDate(0, 0, -staleDays)

	stale, err := w.dossiers.ListWithFilter(ctx, repository.DossierFilter{
		Statuses:      []domain.DossierStatus{domain.StatusPiecesManquantes, domain.StatusComplementDemande},
		UpdatedBefore: &cutoff,
		Limit:         200,
	})
	if err != nil {
		w.logger.Error("deadline scan failed", zap.Error(err))
		return
	}

	for _, dossier := range stale {
		if dossier.TeamLeader == nil {
			continue
		}
		w.notifier.Notify(ctx, *dossier.TeamLeader, domain.NotificationReminder,
			"Dossier en attente",
			fmt.Sprintf("Le dossier %s attend des pièces depuis plus de %d jours.", dossier.Number, staleDays),
			"/dossiers/"+dossier.ID,
			map[string]any{"dossier_id": dossier.ID, "status": dossier.Status})
	}
	w.logger.Info("deadline scan complete", zap.Int("stale", len(stale)))
}
