package repository

import (
	"context"
	"time"

	"courseforge/internal/domain/model"
)

// GenerationJobRepository persists generation jobs and their watcher sets.
//
// Single-job reads (FindByID, FindLiveBySource, MarkResolved) populate
// Watchers; list reads leave Watchers nil to avoid N+1 queries.
type GenerationJobRepository interface {
	// Save inserts a new job together with its creator watcher row.
	// A second live job for the same SourceID violates the partial unique
	// index and is reported as domain.ErrAlreadyExists.
	Save(ctx context.Context, tx Tx, job *model.GenerationJob) error

	FindByID(ctx context.Context, tx Tx, id string) (*model.GenerationJob, error)

	// FindLiveBySource returns the pending/processing job for a source,
	// or domain.ErrNotFound. Terminal jobs are invisible here, so a
	// re-request after resolution starts a fresh job.
	FindLiveBySource(ctx context.Context, tx Tx, sourceID string) (*model.GenerationJob, error)

	// AttachWatcher adds userID to the job's watcher set. Reports whether
	// the set actually grew; attaching an existing watcher is a no-op.
	AttachWatcher(ctx context.Context, tx Tx, jobID, userID string) (bool, error)

	ListByCreator(ctx context.Context, tx Tx, userID string, limit int) ([]*model.GenerationJob, error)
	ListByStatus(ctx context.Context, tx Tx, status model.JobStatus, offset, limit int) ([]*model.GenerationJob, error)
	CountByStatus(ctx context.Context, tx Tx) (map[model.JobStatus]int, error)

	// ClaimPending atomically flips up to `limit` due pending jobs
	// (oldest first) to processing and returns them. Safe to call from
	// concurrent claimer instances; a job is returned by exactly one call.
	ClaimPending(ctx context.Context, limit int) ([]*model.GenerationJob, error)

	// MarkResolved moves a processing job to a terminal status and returns
	// the job with the watcher set as it stood at resolution time.
	// Returns domain.ErrJobNotLive unless the job is currently processing.
	MarkResolved(ctx context.Context, tx Tx, jobID string, status model.JobStatus, resultCourseID, errMsg string) (*model.GenerationJob, error)

	// Requeue moves a processing job back to pending for a retry,
	// incrementing retry_count and gating the next claim on nextAttemptAt.
	// Returns domain.ErrJobNotLive if the job is not processing.
	Requeue(ctx context.Context, tx Tx, jobID string, nextAttemptAt time.Time) error

	// ListStuckProcessing returns processing jobs not touched since `olderThan`.
	ListStuckProcessing(ctx context.Context, tx Tx, olderThan time.Time, limit int) ([]*model.GenerationJob, error)

	// DeleteTerminalOlderThan garbage-collects resolved jobs in batches.
	DeleteTerminalOlderThan(ctx context.Context, cutoff time.Time, limit int) (int, error)
}
