package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"courseforge/internal/usecase"
)

// CleanupWorker runs the retention passes: old read notifications and old
// terminal jobs.
type CleanupWorker struct {
	interval time.Duration
	hkUC     usecase.HousekeepingUseCase
	log      *zerolog.Logger
}

func NewCleanupWorker(interval time.Duration, hkUC usecase.HousekeepingUseCase, logger *zerolog.Logger) *CleanupWorker {
	compLog := logger.With().Str("component", "CleanupWorker").Logger()
	return &CleanupWorker{
		interval: interval,
		hkUC:     hkUC,
		log:      &compLog,
	}
}

func (w *CleanupWorker) Run(ctx context.Context) error {
	w.log.Info().Msg("starting cleanup worker")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("stopping cleanup worker")
			return ctx.Err()
		case <-ticker.C:
			w.runCleanup(ctx)
		}
	}
}

func (w *CleanupWorker) runCleanup(ctx context.Context) {
	if _, err := w.hkUC.CleanupNotifications(ctx); err != nil {
		w.log.Error().Err(err).Msg("notification cleanup failed")
	}
	if _, err := w.hkUC.CleanupJobs(ctx); err != nil {
		w.log.Error().Err(err).Msg("job cleanup failed")
	}
}
