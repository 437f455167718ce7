// File: internal/usecase/generation_uc.go
package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"courseforge/internal/config"
	"courseforge/internal/domain"
	"courseforge/internal/domain/model"
	"courseforge/internal/domain/ports/repository"
	"courseforge/internal/infra/logging"
	"courseforge/internal/infra/metrics"
	red "courseforge/internal/infra/redis"
)

// Request outcomes as reported to the client.
const (
	RequestOutcomeExists  = "exists"
	RequestOutcomeQueued  = "queued"
	RequestOutcomeCreated = "created"
)

// RequestGenerationResult tells the caller what happened to their request:
// the course already exists, they were attached to an in-flight job, or a
// fresh job was queued.
type RequestGenerationResult struct {
	Outcome  string `json:"status"`
	Message  string `json:"message"`
	JobID    string `json:"job_id,omitempty"`
	CourseID string `json:"course_id,omitempty"`
}

// SourceLocker serializes first-request handling per source across replicas.
// Best effort; the store-level unique constraint is the real guarantee.
type SourceLocker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, err error)
	Unlock(ctx context.Context, key, token string) error
}

// RateLimiter caps generation requests per user per window.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// StatusCache holds short-lived job status snapshots for the polling endpoint.
type StatusCache interface {
	Get(ctx context.Context, jobID string) (*model.JobStatusSnapshot, error)
	Store(ctx context.Context, jobID string, snap *model.JobStatusSnapshot) error
	Drop(ctx context.Context, jobID string) error
}

// Compile-time check
var _ GenerationUseCase = (*generationUC)(nil)

// GenerationUseCase coordinates generation jobs end to end: deduplicated
// intake, worker claiming, and transactional resolution with notification
// fan-out to every watcher.
type GenerationUseCase interface {
	// RequestGeneration handles a user's request to generate a course from
	// a source. Exactly one of three things happens: the existing course is
	// returned, the user joins the watcher set of the live job for that
	// source, or a new pending job is created.
	RequestGeneration(ctx context.Context, userID, sourceType, sourceID, sourceURL string) (*RequestGenerationResult, error)

	// GetJobStatus serves the polling endpoint, read-through cached.
	GetJobStatus(ctx context.Context, jobID string) (*model.JobStatusSnapshot, error)

	// ListUserJobs returns the user's most recent jobs, newest first.
	ListUserJobs(ctx context.Context, userID string, limit int) ([]*model.GenerationJob, error)

	// ClaimPending atomically claims up to `limit` due pending jobs for
	// processing. Each job is handed to exactly one caller.
	ClaimPending(ctx context.Context, limit int) ([]*model.GenerationJob, error)

	// CompleteJob persists the generated course, resolves the job and
	// fans out success notifications to all watchers in one transaction.
	CompleteJob(ctx context.Context, job *model.GenerationJob, outline *model.CourseOutline) (*model.Course, error)

	// FailJob records a generation failure: a retryable job goes back to
	// pending with backoff, an exhausted one resolves to failed and its
	// watchers are notified.
	FailJob(ctx context.Context, job *model.GenerationJob, cause error) error
}

type generationUC struct {
	jobRepo    repository.GenerationJobRepository
	courseRepo repository.CourseRepository
	notifRepo  repository.NotificationRepository
	tm         repository.TransactionManager

	// All three are optional; a nil value disables the concern.
	locker  SourceLocker
	limiter RateLimiter
	cache   StatusCache

	cfg *config.JobsConfig
	log *zerolog.Logger
}

func NewGenerationUseCase(
	jobRepo repository.GenerationJobRepository,
	courseRepo repository.CourseRepository,
	notifRepo repository.NotificationRepository,
	tm repository.TransactionManager,
	locker SourceLocker,
	limiter RateLimiter,
	cache StatusCache,
	cfg *config.JobsConfig,
	logger *zerolog.Logger,
) *generationUC {
	return &generationUC{
		jobRepo:    jobRepo,
		courseRepo: courseRepo,
		notifRepo:  notifRepo,
		tm:         tm,
		locker:     locker,
		limiter:    limiter,
		cache:      cache,
		cfg:        cfg,
		log:        logger,
	}
}

func (uc *generationUC) RequestGeneration(ctx context.Context, userID, sourceType, sourceID, sourceURL string) (*RequestGenerationResult, error) {
	log := logging.With(ctx, uc.log)
	defer logging.TraceDuration(log, "GenerationUC.RequestGeneration")()

	st, err := model.ParseSourceType(sourceType)
	if err != nil {
		metrics.IncGenerationRequest("invalid")
		return nil, err
	}
	sourceID = strings.TrimSpace(sourceID)
	if sourceID == "" || userID == "" {
		metrics.IncGenerationRequest("invalid")
		return nil, domain.ErrInvalidArgument
	}

	if uc.limiter != nil {
		ok, err := uc.limiter.Allow(ctx, red.GenerationRateKey(userID), uc.cfg.RateLimit, uc.cfg.RateWindow)
		if err != nil {
			log.Warn().Err(err).Msg("rate limiter unavailable, allowing request")
		} else if !ok {
			metrics.IncGenerationRequest("rate_limited")
			return nil, domain.ErrRateLimited
		}
	}

	// Cheap short-circuit: the course was already generated for this source.
	if course, err := uc.courseRepo.FindPublicBySource(ctx, repository.NoTX, st, sourceID); err == nil {
		metrics.IncGenerationRequest(RequestOutcomeExists)
		return &RequestGenerationResult{
			Outcome:  RequestOutcomeExists,
			Message:  "Course already exists. You can fork it to customize.",
			CourseID: course.ID,
		}, nil
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	// Serialize the find-or-create window per source. Lock failure is not
	// fatal: the unique index catches whatever slips through.
	if uc.locker != nil {
		key := red.SourceLockKey(sourceID)
		if token, err := uc.locker.TryLock(ctx, key, 10*time.Second); err == nil {
			defer func() {
				if err := uc.locker.Unlock(ctx, key, token); err != nil {
					log.Warn().Err(err).Str("source_id", sourceID).Msg("failed to release source lock")
				}
			}()
		} else {
			log.Debug().Str("source_id", sourceID).Msg("proceeding without source lock")
		}
	}

	if res, err := uc.joinLiveJob(ctx, sourceID, userID); err == nil {
		return res, nil
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	job := model.NewGenerationJob(sourceID, sourceURL, st, userID)
	if err := uc.jobRepo.Save(ctx, repository.NoTX, job); err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			// Lost the insert race; the winner's job is the one to watch.
			return uc.joinLiveJob(ctx, sourceID, userID)
		}
		return nil, err
	}

	log.Info().Str("job_id", job.ID).Str("source_id", sourceID).
		Str("source_type", string(st)).Msg("generation job queued")
	metrics.IncGenerationRequest(RequestOutcomeCreated)
	return &RequestGenerationResult{
		Outcome: RequestOutcomeCreated,
		Message: "Course generation started.",
		JobID:   job.ID,
	}, nil
}

// joinLiveJob attaches the user to the live job for a source, if one exists.
func (uc *generationUC) joinLiveJob(ctx context.Context, sourceID, userID string) (*RequestGenerationResult, error) {
	live, err := uc.jobRepo.FindLiveBySource(ctx, repository.NoTX, sourceID)
	if err != nil {
		return nil, err
	}
	grew, err := uc.jobRepo.AttachWatcher(ctx, repository.NoTX, live.ID, userID)
	if err != nil && !errors.Is(err, domain.ErrJobNotLive) {
		return nil, err
	}
	if grew {
		logging.With(ctx, uc.log).Debug().Str("job_id", live.ID).Msg("watcher attached")
	}
	metrics.IncGenerationRequest(RequestOutcomeQueued)
	return &RequestGenerationResult{
		Outcome: RequestOutcomeQueued,
		Message: "This course is already being generated. You'll be notified when ready.",
		JobID:   live.ID,
	}, nil
}

func (uc *generationUC) GetJobStatus(ctx context.Context, jobID string) (*model.JobStatusSnapshot, error) {
	if uc.cache != nil {
		if snap, err := uc.cache.Get(ctx, jobID); err == nil {
			return snap, nil
		}
	}

	job, err := uc.jobRepo.FindByID(ctx, repository.NoTX, jobID)
	if err != nil {
		return nil, err
	}
	snap := job.StatusSnapshot()

	if uc.cache != nil {
		if err := uc.cache.Store(ctx, jobID, snap); err != nil {
			logging.With(ctx, uc.log).Warn().Err(err).Msg("failed to cache job status")
		}
	}
	return snap, nil
}

func (uc *generationUC) ListUserJobs(ctx context.Context, userID string, limit int) ([]*model.GenerationJob, error) {
	if limit <= 0 {
		limit = 10
	}
	return uc.jobRepo.ListByCreator(ctx, repository.NoTX, userID, limit)
}

func (uc *generationUC) ClaimPending(ctx context.Context, limit int) ([]*model.GenerationJob, error) {
	jobs, err := uc.jobRepo.ClaimPending(ctx, limit)
	if err != nil {
		return nil, err
	}
	if len(jobs) > 0 {
		metrics.AddJobsClaimed(len(jobs))
		for _, j := range jobs {
			uc.dropCachedStatus(ctx, j.ID)
		}
	}
	return jobs, nil
}

func (uc *generationUC) CompleteJob(ctx context.Context, job *model.GenerationJob, outline *model.CourseOutline) (*model.Course, error) {
	log := logging.With(ctx, uc.log)
	if outline.IsEmpty() {
		return nil, domain.ErrEmptyOutline
	}

	course := model.NewCourseFromOutline(outline, job.SourceType, job.SourceID, job.SourceURL, job.CreatedBy)

	var watchers []string
	err := uc.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if err := uc.courseRepo.Save(ctx, tx, course); err != nil {
			return err
		}
		resolved, err := uc.jobRepo.MarkResolved(ctx, tx, job.ID, model.JobStatusCompleted, course.ID, "")
		if err != nil {
			return err
		}
		watchers = resolved.Watchers
		for _, userID := range watchers {
			if err := uc.notifRepo.Save(ctx, tx, model.NewCourseReadyNotification(userID, course.ID)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.dropCachedStatus(ctx, job.ID)
	metrics.IncJobResolved(string(model.JobStatusCompleted))
	metrics.AddNotificationsFanout(string(model.NotificationTypeSuccess), len(watchers))
	log.Info().Str("job_id", job.ID).Str("course_id", course.ID).
		Int("watchers", len(watchers)).Msg("generation job completed")
	return course, nil
}

func (uc *generationUC) FailJob(ctx context.Context, job *model.GenerationJob, cause error) error {
	log := logging.With(ctx, uc.log)
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}

	if job.RetryCount < uc.cfg.MaxRetries {
		next := time.Now().Add(uc.cfg.RetryBackoff << uint(job.RetryCount))
		if err := uc.jobRepo.Requeue(ctx, repository.NoTX, job.ID, next); err != nil {
			return err
		}
		uc.dropCachedStatus(ctx, job.ID)
		metrics.IncJobRetried()
		log.Warn().Err(cause).Str("job_id", job.ID).Int("retry", job.RetryCount+1).
			Time("next_attempt_at", next).Msg("generation failed, job re-queued")
		return nil
	}

	var watchers []string
	err := uc.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		resolved, err := uc.jobRepo.MarkResolved(ctx, tx, job.ID, model.JobStatusFailed, "", msg)
		if err != nil {
			return err
		}
		watchers = resolved.Watchers
		for _, userID := range watchers {
			if err := uc.notifRepo.Save(ctx, tx, model.NewGenerationFailedNotification(userID, msg)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	uc.dropCachedStatus(ctx, job.ID)
	metrics.IncJobResolved(string(model.JobStatusFailed))
	metrics.AddNotificationsFanout(string(model.NotificationTypeError), len(watchers))
	log.Error().Err(cause).Str("job_id", job.ID).Int("watchers", len(watchers)).
		Msg("generation job failed permanently")
	return nil
}

func (uc *generationUC) dropCachedStatus(ctx context.Context, jobID string) {
	if uc.cache == nil {
		return
	}
	if err := uc.cache.Drop(ctx, jobID); err != nil {
		logging.With(ctx, uc.log).Warn().Err(err).Str("job_id", jobID).Msg("failed to drop cached job status")
	}
}
