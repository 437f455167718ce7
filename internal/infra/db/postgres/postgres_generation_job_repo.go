package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"courseforge/internal/domain"
	"courseforge/internal/domain/model"
	"courseforge/internal/domain/ports/repository"
)

var _ repository.GenerationJobRepository = (*generationJobRepo)(nil)

type generationJobRepo struct {
	pool *pgxpool.Pool
	tm   repository.TransactionManager
}

func NewGenerationJobRepo(pool *pgxpool.Pool, tm repository.TransactionManager) *generationJobRepo {
	return &generationJobRepo{pool: pool, tm: tm}
}

const jobColumns = `id, source_id, source_url, source_type, status, created_by,
retry_count, next_attempt_at, result_course_id, error, created_at, updated_at`

func scanJob(row pgx.Row) (*model.GenerationJob, error) {
	var j model.GenerationJob
	var statusStr, typeStr string
	err := row.Scan(
		&j.ID, &j.SourceID, &j.SourceURL, &typeStr, &statusStr, &j.CreatedBy,
		&j.RetryCount, &j.NextAttemptAt, &j.ResultCourseID, &j.Error,
		&j.CreatedAt, &j.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	j.Status = model.JobStatus(statusStr)
	j.SourceType = model.SourceType(typeStr)
	return &j, nil
}

// Save inserts a new pending job plus its creator watcher row. The two
// inserts run in one transaction so a job is never visible without its
// creator in the watcher set.
func (r *generationJobRepo) Save(ctx context.Context, tx repository.Tx, job *model.GenerationJob) error {
	if tx != nil {
		return r.saveIn(ctx, tx, job)
	}
	return r.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		return r.saveIn(ctx, tx, job)
	})
}

func (r *generationJobRepo) saveIn(ctx context.Context, tx repository.Tx, job *model.GenerationJob) error {
	const q = `
INSERT INTO generation_jobs (` + jobColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12);`

	job.UpdatedAt = time.Now()
	_, err := execSQL(ctx, r.pool, tx, q,
		job.ID, job.SourceID, job.SourceURL, string(job.SourceType), string(job.Status),
		job.CreatedBy, job.RetryCount, job.NextAttemptAt, job.ResultCourseID, job.Error,
		job.CreatedAt, job.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			// Another live job for this source won the race.
			return domain.ErrAlreadyExists
		}
		return err
	}

	const wq = `
INSERT INTO generation_job_watchers (job_id, user_id)
VALUES ($1, $2)
ON CONFLICT DO NOTHING;`
	for _, w := range job.Watchers {
		if _, err := execSQL(ctx, r.pool, tx, wq, job.ID, w); err != nil {
			return err
		}
	}
	return nil
}

func (r *generationJobRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.GenerationJob, error) {
	const q = `SELECT ` + jobColumns + ` FROM generation_jobs WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	job, err := scanJob(row)
	if err != nil {
		return nil, translateScanErr(err)
	}
	if err := r.loadWatchers(ctx, tx, job); err != nil {
		return nil, err
	}
	return job, nil
}

func (r *generationJobRepo) FindLiveBySource(ctx context.Context, tx repository.Tx, sourceID string) (*model.GenerationJob, error) {
	const q = `
SELECT ` + jobColumns + `
  FROM generation_jobs
 WHERE source_id=$1 AND status IN ('pending','processing')
 LIMIT 1;`
	row, err := pickRow(ctx, r.pool, tx, q, sourceID)
	if err != nil {
		return nil, err
	}
	job, err := scanJob(row)
	if err != nil {
		return nil, translateScanErr(err)
	}
	if err := r.loadWatchers(ctx, tx, job); err != nil {
		return nil, err
	}
	return job, nil
}

// AttachWatcher grows the watcher set iff the job is still live. The insert
// is conditioned on the job row so a watcher can never be attached to a
// resolved job (late arrivals start a fresh job instead).
func (r *generationJobRepo) AttachWatcher(ctx context.Context, tx repository.Tx, jobID, userID string) (bool, error) {
	const q = `
INSERT INTO generation_job_watchers (job_id, user_id)
SELECT j.id, $2
  FROM generation_jobs j
 WHERE j.id=$1 AND j.status IN ('pending','processing')
ON CONFLICT DO NOTHING;`
	tag, err := execSQL(ctx, r.pool, tx, q, jobID, userID)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}
	const bump = `UPDATE generation_jobs SET updated_at=now() WHERE id=$1;`
	if _, err := execSQL(ctx, r.pool, tx, bump, jobID); err != nil {
		return true, err
	}
	return true, nil
}

func (r *generationJobRepo) ListByCreator(ctx context.Context, tx repository.Tx, userID string, limit int) ([]*model.GenerationJob, error) {
	const q = `
SELECT ` + jobColumns + `
  FROM generation_jobs
 WHERE created_by=$1
 ORDER BY created_at DESC
 LIMIT $2;`
	return r.queryMany(ctx, tx, q, userID, limit)
}

func (r *generationJobRepo) ListByStatus(ctx context.Context, tx repository.Tx, status model.JobStatus, offset, limit int) ([]*model.GenerationJob, error) {
	const q = `
SELECT ` + jobColumns + `
  FROM generation_jobs
 WHERE status=$1
 ORDER BY created_at DESC
 OFFSET $2 LIMIT $3;`
	return r.queryMany(ctx, tx, q, string(status), offset, limit)
}

func (r *generationJobRepo) CountByStatus(ctx context.Context, tx repository.Tx) (map[model.JobStatus]int, error) {
	const q = `SELECT status, COUNT(*) FROM generation_jobs GROUP BY status;`
	rows, err := queryRows(ctx, r.pool, tx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[model.JobStatus]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out[model.JobStatus(status)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}

// ClaimPending is the exclusive pending -> processing gate. The UPDATE and
// the candidate selection are one statement, and SKIP LOCKED lets concurrent
// claimer instances partition the queue instead of racing over it.
func (r *generationJobRepo) ClaimPending(ctx context.Context, limit int) ([]*model.GenerationJob, error) {
	const q = `
UPDATE generation_jobs
   SET status='processing', updated_at=now()
 WHERE id IN (
       SELECT id FROM generation_jobs
        WHERE status='pending' AND next_attempt_at <= now()
        ORDER BY created_at
        LIMIT $1
          FOR UPDATE SKIP LOCKED
       )
RETURNING ` + jobColumns + `;`

	rows, err := queryRows(ctx, r.pool, nil, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.GenerationJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, job)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}

func (r *generationJobRepo) MarkResolved(ctx context.Context, tx repository.Tx, jobID string, status model.JobStatus, resultCourseID, errMsg string) (*model.GenerationJob, error) {
	if status != model.JobStatusCompleted && status != model.JobStatusFailed {
		return nil, domain.ErrIllegalTransition
	}
	// Only a claimed job can resolve; pending jobs go through ClaimPending
	// first, so the state machine holds at the SQL level too.
	const q = `
UPDATE generation_jobs
   SET status=$2, result_course_id=$3, error=$4, updated_at=now()
 WHERE id=$1 AND status='processing'
RETURNING ` + jobColumns + `;`
	row, err := pickRow(ctx, r.pool, tx, q, jobID, string(status), resultCourseID, errMsg)
	if err != nil {
		return nil, err
	}
	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrJobNotLive
		}
		return nil, domain.ErrReadDatabaseRow
	}
	if err := r.loadWatchers(ctx, tx, job); err != nil {
		return nil, err
	}
	return job, nil
}

func (r *generationJobRepo) Requeue(ctx context.Context, tx repository.Tx, jobID string, nextAttemptAt time.Time) error {
	const q = `
UPDATE generation_jobs
   SET status='pending', retry_count=retry_count+1, next_attempt_at=$2, updated_at=now()
 WHERE id=$1 AND status='processing';`
	tag, err := execSQL(ctx, r.pool, tx, q, jobID, nextAttemptAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrJobNotLive
	}
	return nil
}

func (r *generationJobRepo) ListStuckProcessing(ctx context.Context, tx repository.Tx, olderThan time.Time, limit int) ([]*model.GenerationJob, error) {
	const q = `
SELECT ` + jobColumns + `
  FROM generation_jobs
 WHERE status='processing' AND updated_at < $1
 ORDER BY updated_at
 LIMIT $2;`
	return r.queryMany(ctx, tx, q, olderThan, limit)
}

func (r *generationJobRepo) DeleteTerminalOlderThan(ctx context.Context, cutoff time.Time, limit int) (int, error) {
	// Watcher rows go with the job via ON DELETE CASCADE.
	const q = `
DELETE FROM generation_jobs
 WHERE id IN (
       SELECT id FROM generation_jobs
        WHERE status IN ('completed','failed') AND updated_at < $1
        LIMIT $2
       );`
	tag, err := execSQL(ctx, r.pool, nil, q, cutoff, limit)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func (r *generationJobRepo) loadWatchers(ctx context.Context, tx repository.Tx, job *model.GenerationJob) error {
	const q = `SELECT user_id FROM generation_job_watchers WHERE job_id=$1 ORDER BY user_id;`
	rows, err := queryRows(ctx, r.pool, tx, q, job.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	job.Watchers = job.Watchers[:0]
	for rows.Next() {
		var w string
		if err := rows.Scan(&w); err != nil {
			return domain.ErrReadDatabaseRow
		}
		job.Watchers = append(job.Watchers, w)
	}
	return rows.Err()
}

func (r *generationJobRepo) queryMany(ctx context.Context, tx repository.Tx, q string, args ...interface{}) ([]*model.GenerationJob, error) {
	rows, err := queryRows(ctx, r.pool, tx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.GenerationJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, job)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}
