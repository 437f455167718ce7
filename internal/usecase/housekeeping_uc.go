package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"courseforge/internal/config"
	"courseforge/internal/domain/ports/repository"
	"courseforge/internal/infra/metrics"
)

var errProcessingDeadline = errors.New("processing deadline exceeded")

const cleanupBatchSize = 500

// Compile-time check
var _ HousekeepingUseCase = (*housekeepingUC)(nil)

// HousekeepingUseCase covers the periodic maintenance passes: recovering
// jobs stuck in processing and garbage-collecting old rows.
type HousekeepingUseCase interface {
	// SweepStuckJobs requeues or fails processing jobs whose worker went
	// silent past the processing deadline. Returns how many were swept.
	SweepStuckJobs(ctx context.Context) (int, error)

	// CleanupNotifications removes read notifications past retention.
	CleanupNotifications(ctx context.Context) (int, error)

	// CleanupJobs removes terminal jobs past retention. Watcher rows go
	// with them via the FK cascade.
	CleanupJobs(ctx context.Context) (int, error)
}

type housekeepingUC struct {
	jobRepo   repository.GenerationJobRepository
	notifRepo repository.NotificationRepository
	genUC     GenerationUseCase
	cfg       *config.JobsConfig
	log       *zerolog.Logger
}

func NewHousekeepingUseCase(
	jobRepo repository.GenerationJobRepository,
	notifRepo repository.NotificationRepository,
	genUC GenerationUseCase,
	cfg *config.JobsConfig,
	logger *zerolog.Logger,
) *housekeepingUC {
	return &housekeepingUC{
		jobRepo:   jobRepo,
		notifRepo: notifRepo,
		genUC:     genUC,
		cfg:       cfg,
		log:       logger,
	}
}

func (uc *housekeepingUC) SweepStuckJobs(ctx context.Context) (int, error) {
	cutoff := time.Now().Add(-uc.cfg.ProcessingDeadline)
	stuck, err := uc.jobRepo.ListStuckProcessing(ctx, repository.NoTX, cutoff, cleanupBatchSize)
	if err != nil {
		return 0, err
	}

	swept := 0
	for _, job := range stuck {
		// FailJob owns the retry-vs-fail decision; a sweep counts as a
		// failed attempt.
		if err := uc.genUC.FailJob(ctx, job, errProcessingDeadline); err != nil {
			uc.log.Error().Err(err).Str("job_id", job.ID).Msg("failed to sweep stuck job")
			continue
		}
		metrics.IncJobSwept()
		swept++
	}
	if swept > 0 {
		uc.log.Warn().Int("count", swept).Msg("recovered stuck processing jobs")
	}
	return swept, nil
}

func (uc *housekeepingUC) CleanupNotifications(ctx context.Context) (int, error) {
	cutoff := time.Now().Add(-uc.cfg.NotifRetention)
	return uc.cleanupLoop(ctx, "notifications", func() (int, error) {
		return uc.notifRepo.DeleteReadOlderThan(ctx, cutoff, cleanupBatchSize)
	})
}

func (uc *housekeepingUC) CleanupJobs(ctx context.Context) (int, error) {
	cutoff := time.Now().Add(-uc.cfg.JobRetention)
	return uc.cleanupLoop(ctx, "jobs", func() (int, error) {
		return uc.jobRepo.DeleteTerminalOlderThan(ctx, cutoff, cleanupBatchSize)
	})
}

// cleanupLoop deletes in batches until the table runs dry, so retention
// passes never hold long transactions.
func (uc *housekeepingUC) cleanupLoop(ctx context.Context, entity string, deleteBatch func() (int, error)) (int, error) {
	total := 0
	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		n, err := deleteBatch()
		if err != nil {
			return total, err
		}
		total += n
		if n < cleanupBatchSize {
			break
		}
	}
	if total > 0 {
		metrics.AddHousekeepingDeleted(entity, total)
		uc.log.Info().Str("entity", entity).Int("deleted", total).Msg("retention cleanup done")
	}
	return total, nil
}
