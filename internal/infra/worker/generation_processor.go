package worker

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"courseforge/internal/config"
	"courseforge/internal/domain/model"
	"courseforge/internal/domain/ports/adapter"
	"courseforge/internal/infra/logging"
	"courseforge/internal/infra/metrics"
	"courseforge/internal/usecase"
)

// GenerationProcessor drives the job pipeline: it polls for due pending
// jobs, claims them in batches and hands each one to the pool. Claiming is
// atomic at the store level, so any number of processor instances can run.
type GenerationProcessor struct {
	genUC     usecase.GenerationUseCase
	generator adapter.CourseGenerator
	cfg       *config.JobsConfig
	log       *zerolog.Logger
}

func NewGenerationProcessor(
	genUC usecase.GenerationUseCase,
	generator adapter.CourseGenerator,
	cfg *config.JobsConfig,
	logger *zerolog.Logger,
) *GenerationProcessor {
	compLog := logger.With().Str("component", "GenerationProcessor").Logger()
	return &GenerationProcessor{
		genUC:     genUC,
		generator: generator,
		cfg:       cfg,
		log:       &compLog,
	}
}

// Start runs the claim loop until ctx is cancelled.
// This should be run in a goroutine.
func (p *GenerationProcessor) Start(ctx context.Context, pool *Pool) {
	p.log.Info().Int("workers", p.cfg.Workers).Dur("poll_interval", p.cfg.PollInterval).
		Msg("generation processor started")
	ticker := time.NewTicker(p.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.log.Info().Msg("generation processor stopping")
			return
		case <-ticker.C:
			p.claimBatch(ctx, pool)
		}
	}
}

func (p *GenerationProcessor) claimBatch(ctx context.Context, pool *Pool) {
	jobs, err := p.genUC.ClaimPending(ctx, p.cfg.MaxBatch)
	if err != nil {
		p.log.Error().Err(err).Msg("failed to claim pending jobs")
		return
	}

	for _, job := range jobs {
		job := job
		if err := pool.Submit(func(ctx context.Context) error {
			p.processOne(ctx, job)
			return nil
		}); err != nil {
			// Could not schedule; give the job back so another poll or
			// instance retries it instead of waiting out the sweeper.
			p.log.Warn().Err(err).Str("job_id", job.ID).Msg("pool rejected job, re-queueing")
			if ferr := p.genUC.FailJob(ctx, job, errors.New("worker pool saturated")); ferr != nil {
				p.log.Error().Err(ferr).Str("job_id", job.ID).Msg("failed to re-queue rejected job")
			}
		}
	}
}

func (p *GenerationProcessor) processOne(ctx context.Context, job *model.GenerationJob) {
	ctx = logging.WithJobID(ctx, job.ID)
	ctx = logging.WithSourceID(ctx, job.SourceID)
	log := logging.With(ctx, p.log)
	log.Info().Str("source_type", string(job.SourceType)).Int("retry", job.RetryCount).
		Msg("processing generation job")

	genCtx, cancel := context.WithTimeout(ctx, p.cfg.GenerationTimeout)
	defer cancel()

	start := time.Now()
	outline, usage, err := p.generator.GenerateCourse(genCtx, adapter.GenerationRequest{
		SourceType: job.SourceType,
		SourceID:   job.SourceID,
		SourceURL:  job.SourceURL,
	})
	latencyMs := int(time.Since(start) / time.Millisecond)
	metrics.ObserveGeneration(p.generator.Provider(),
		usage.PromptTokens, usage.CompletionTokens, usage.TotalTokens, latencyMs, err == nil)

	if err != nil {
		// Resolve with the parent context; genCtx may already be dead.
		if ferr := p.genUC.FailJob(ctx, job, err); ferr != nil {
			log.Error().Err(ferr).Msg("failed to record job failure")
		}
		return
	}

	course, err := p.genUC.CompleteJob(ctx, job, outline)
	if err != nil {
		if ferr := p.genUC.FailJob(ctx, job, err); ferr != nil {
			log.Error().Err(ferr).Msg("failed to record job failure")
		}
		return
	}
	log.Info().Str("course_id", course.ID).Dur("duration", time.Since(start)).
		Msg("generation job done")
}
