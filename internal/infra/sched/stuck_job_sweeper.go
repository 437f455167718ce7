package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"courseforge/internal/usecase"
)

// StuckJobSweeper periodically recovers jobs whose worker died mid-flight.
// Without it a crashed worker would leave its claims in processing forever,
// pinning the live-job slot for those sources.
type StuckJobSweeper struct {
	interval time.Duration
	hkUC     usecase.HousekeepingUseCase
	log      *zerolog.Logger
}

func NewStuckJobSweeper(interval time.Duration, hkUC usecase.HousekeepingUseCase, logger *zerolog.Logger) *StuckJobSweeper {
	compLog := logger.With().Str("component", "StuckJobSweeper").Logger()
	return &StuckJobSweeper{
		interval: interval,
		hkUC:     hkUC,
		log:      &compLog,
	}
}

func (w *StuckJobSweeper) Run(ctx context.Context) error {
	w.log.Info().Msg("starting stuck job sweeper")
	// Run once on startup, then on every tick
	w.sweep(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("stopping stuck job sweeper")
			return ctx.Err()
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *StuckJobSweeper) sweep(ctx context.Context) {
	swept, err := w.hkUC.SweepStuckJobs(ctx)
	if err != nil {
		w.log.Error().Err(err).Msg("stuck job sweep failed")
	}
	if swept > 0 {
		w.log.Info().Int("count", swept).Msg("stuck jobs swept")
	}
}
