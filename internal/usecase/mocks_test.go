package usecase

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"courseforge/internal/config"
	"courseforge/internal/domain"
	"courseforge/internal/domain/model"
	"courseforge/internal/domain/ports/repository"
)

//
// ---------------- in-memory infra mocks (repos/tx) ----------------
//

func newTestLogger() *zerolog.Logger { l := zerolog.Nop(); return &l }

func testJobsConfig() *config.JobsConfig {
	return &config.JobsConfig{
		Workers:            2,
		PollInterval:       time.Millisecond,
		MaxBatch:           3,
		MaxRetries:         3,
		RetryBackoff:       30 * time.Second,
		GenerationTimeout:  time.Minute,
		ProcessingDeadline: 15 * time.Minute,
		RateLimit:          5,
		RateWindow:         time.Minute,
		JobRetention:       7 * 24 * time.Hour,
		NotifRetention:     30 * 24 * time.Hour,
	}
}

type memTxManager struct{}

func (m *memTxManager) WithTx(ctx context.Context, _ pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	return fn(ctx, repository.NoTX)
}

// memJobRepo mirrors the store-level guarantees the use case relies on,
// including the one-live-job-per-source unique constraint.
type memJobRepo struct {
	mu   sync.Mutex
	byID map[string]*model.GenerationJob

	errSave      error
	saveAttempts int
	// hideLiveOnce makes the next FindLiveBySource miss, simulating a
	// writer that lands between the caller's check and insert.
	hideLiveOnce bool
}

func newMemJobRepo() *memJobRepo {
	return &memJobRepo{byID: map[string]*model.GenerationJob{}}
}

func cloneJob(j *model.GenerationJob) *model.GenerationJob {
	cp := *j
	cp.Watchers = append([]string(nil), j.Watchers...)
	return &cp
}

func (m *memJobRepo) Save(ctx context.Context, _ repository.Tx, job *model.GenerationJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveAttempts++
	if m.errSave != nil {
		return m.errSave
	}
	for _, existing := range m.byID {
		if existing.SourceID == job.SourceID && existing.IsLive() && existing.ID != job.ID {
			return domain.ErrAlreadyExists
		}
	}
	m.byID[job.ID] = cloneJob(job)
	return nil
}

func (m *memJobRepo) FindByID(ctx context.Context, _ repository.Tx, id string) (*model.GenerationJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneJob(j), nil
}

func (m *memJobRepo) FindLiveBySource(ctx context.Context, _ repository.Tx, sourceID string) (*model.GenerationJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.hideLiveOnce {
		m.hideLiveOnce = false
		return nil, domain.ErrNotFound
	}
	for _, j := range m.byID {
		if j.SourceID == sourceID && j.IsLive() {
			return cloneJob(j), nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memJobRepo) AttachWatcher(ctx context.Context, _ repository.Tx, jobID, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.byID[jobID]
	if !ok {
		return false, domain.ErrNotFound
	}
	if !j.IsLive() {
		return false, domain.ErrJobNotLive
	}
	if j.HasWatcher(userID) {
		return false, nil
	}
	j.Watchers = append(j.Watchers, userID)
	j.UpdatedAt = time.Now()
	return true, nil
}

func (m *memJobRepo) ListByCreator(ctx context.Context, _ repository.Tx, userID string, limit int) ([]*model.GenerationJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.GenerationJob
	for _, j := range m.byID {
		if j.CreatedBy == userID {
			out = append(out, cloneJob(j))
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].ID > out[b].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memJobRepo) ListByStatus(ctx context.Context, _ repository.Tx, status model.JobStatus, offset, limit int) ([]*model.GenerationJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.GenerationJob
	for _, j := range m.byID {
		if j.Status == status {
			out = append(out, cloneJob(j))
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].ID > out[b].ID })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memJobRepo) CountByStatus(ctx context.Context, _ repository.Tx) (map[model.JobStatus]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[model.JobStatus]int{}
	for _, j := range m.byID {
		out[j.Status]++
	}
	return out, nil
}

func (m *memJobRepo) ClaimPending(ctx context.Context, limit int) ([]*model.GenerationJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	var due []*model.GenerationJob
	for _, j := range m.byID {
		if j.Status == model.JobStatusPending && !j.NextAttemptAt.After(now) {
			due = append(due, j)
		}
	}
	sort.Slice(due, func(a, b int) bool { return due[a].CreatedAt.Before(due[b].CreatedAt) })
	if len(due) > limit {
		due = due[:limit]
	}
	var out []*model.GenerationJob
	for _, j := range due {
		j.Status = model.JobStatusProcessing
		j.UpdatedAt = now
		out = append(out, cloneJob(j))
	}
	return out, nil
}

func (m *memJobRepo) MarkResolved(ctx context.Context, _ repository.Tx, jobID string, status model.JobStatus, resultCourseID, errMsg string) (*model.GenerationJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.byID[jobID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if j.Status != model.JobStatusProcessing {
		return nil, domain.ErrJobNotLive
	}
	j.Status = status
	j.ResultCourseID = resultCourseID
	j.Error = errMsg
	j.UpdatedAt = time.Now()
	return cloneJob(j), nil
}

func (m *memJobRepo) Requeue(ctx context.Context, _ repository.Tx, jobID string, nextAttemptAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.byID[jobID]
	if !ok {
		return domain.ErrNotFound
	}
	if j.Status != model.JobStatusProcessing {
		return domain.ErrJobNotLive
	}
	j.Status = model.JobStatusPending
	j.RetryCount++
	j.NextAttemptAt = nextAttemptAt
	j.UpdatedAt = time.Now()
	return nil
}

func (m *memJobRepo) ListStuckProcessing(ctx context.Context, _ repository.Tx, olderThan time.Time, limit int) ([]*model.GenerationJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.GenerationJob
	for _, j := range m.byID {
		if j.Status == model.JobStatusProcessing && j.UpdatedAt.Before(olderThan) {
			out = append(out, cloneJob(j))
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (m *memJobRepo) DeleteTerminalOlderThan(ctx context.Context, cutoff time.Time, limit int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, j := range m.byID {
		if j.IsTerminal() && j.UpdatedAt.Before(cutoff) {
			delete(m.byID, id)
			n++
			if n == limit {
				break
			}
		}
	}
	return n, nil
}

type memCourseRepo struct {
	mu   sync.Mutex
	byID map[string]*model.Course

	errSave error
}

func newMemCourseRepo() *memCourseRepo {
	return &memCourseRepo{byID: map[string]*model.Course{}}
}

func (m *memCourseRepo) Save(ctx context.Context, _ repository.Tx, c *model.Course) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.errSave != nil {
		return m.errSave
	}
	cp := *c
	m.byID[c.ID] = &cp
	return nil
}

func (m *memCourseRepo) FindByID(ctx context.Context, _ repository.Tx, id string) (*model.Course, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memCourseRepo) FindPublicBySource(ctx context.Context, _ repository.Tx, sourceType model.SourceType, sourceID string) (*model.Course, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.byID {
		if c.SourceType == sourceType && c.SourceID == sourceID && c.IsPublic {
			cp := *c
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memCourseRepo) Count(ctx context.Context, _ repository.Tx) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byID), nil
}

type memNotifRepo struct {
	mu   sync.Mutex
	byID map[string]*model.Notification

	errSave error
}

func newMemNotifRepo() *memNotifRepo {
	return &memNotifRepo{byID: map[string]*model.Notification{}}
}

func (m *memNotifRepo) Save(ctx context.Context, _ repository.Tx, n *model.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.errSave != nil {
		return m.errSave
	}
	cp := *n
	m.byID[n.ID] = &cp
	return nil
}

func (m *memNotifRepo) ListByUser(ctx context.Context, _ repository.Tx, userID string, limit int) ([]*model.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Notification
	for _, n := range m.byID {
		if n.UserID == userID {
			cp := *n
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].CreatedAt.After(out[b].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memNotifRepo) CountUnread(ctx context.Context, _ repository.Tx, userID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, v := range m.byID {
		if v.UserID == userID && !v.Read {
			n++
		}
	}
	return n, nil
}

func (m *memNotifRepo) MarkRead(ctx context.Context, _ repository.Tx, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.byID[id]
	if !ok || n.UserID != userID {
		return domain.ErrNotFound
	}
	n.Read = true
	return nil
}

func (m *memNotifRepo) MarkAllRead(ctx context.Context, _ repository.Tx, userID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, v := range m.byID {
		if v.UserID == userID && !v.Read {
			v.Read = true
			n++
		}
	}
	return n, nil
}

func (m *memNotifRepo) Count(ctx context.Context, _ repository.Tx) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byID), nil
}

func (m *memNotifRepo) DeleteReadOlderThan(ctx context.Context, cutoff time.Time, limit int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, v := range m.byID {
		if v.Read && v.CreatedAt.Before(cutoff) {
			delete(m.byID, id)
			n++
			if n == limit {
				break
			}
		}
	}
	return n, nil
}

// countByUser is a test helper, not part of the repository port.
func (m *memNotifRepo) countByUser(userID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, v := range m.byID {
		if v.UserID == userID {
			n++
		}
	}
	return n
}

//
// ---------------- fake redis-backed collaborators ----------------
//

type fakeLocker struct {
	mu      sync.Mutex
	locks   int
	denied  bool
	lastKey string
}

func (f *fakeLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastKey = key
	if f.denied {
		return "", domain.ErrLockUnavailable
	}
	f.locks++
	return "token", nil
}

func (f *fakeLocker) Unlock(ctx context.Context, key, token string) error { return nil }

type fakeLimiter struct {
	allow   bool
	err     error
	calls   int
	lastKey string
}

func (f *fakeLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	f.calls++
	f.lastKey = key
	return f.allow, f.err
}

type fakeCache struct {
	mu     sync.Mutex
	data   map[string]*model.JobStatusSnapshot
	hits   int
	drops  int
	stores int
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: map[string]*model.JobStatusSnapshot{}}
}

func (f *fakeCache) Get(ctx context.Context, jobID string) (*model.JobStatusSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.data[jobID]; ok {
		f.hits++
		cp := *s
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakeCache) Store(ctx context.Context, jobID string, snap *model.JobStatusSnapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *snap
	f.data[jobID] = &cp
	f.stores++
	return nil
}

func (f *fakeCache) Drop(ctx context.Context, jobID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.data, jobID)
	f.drops++
	return nil
}

//
// ---------------- harness ----------------
//

type ucFixture struct {
	jobs    *memJobRepo
	courses *memCourseRepo
	notifs  *memNotifRepo
	locker  *fakeLocker
	limiter *fakeLimiter
	cache   *fakeCache
	cfg     *config.JobsConfig
	genUC   GenerationUseCase
}

func newFixture() *ucFixture {
	f := &ucFixture{
		jobs:    newMemJobRepo(),
		courses: newMemCourseRepo(),
		notifs:  newMemNotifRepo(),
		locker:  &fakeLocker{},
		limiter: &fakeLimiter{allow: true},
		cache:   newFakeCache(),
		cfg:     testJobsConfig(),
	}
	f.genUC = NewGenerationUseCase(
		f.jobs, f.courses, f.notifs, &memTxManager{},
		f.locker, f.limiter, f.cache, f.cfg, newTestLogger(),
	)
	return f
}
