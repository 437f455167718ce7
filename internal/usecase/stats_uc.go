package usecase

import (
	"context"

	"github.com/rs/zerolog"

	"courseforge/internal/domain/model"
	"courseforge/internal/domain/ports/repository"
)

// Compile-time check
var _ StatsUseCase = (*statsUC)(nil)

type StatsUseCase interface {
	Totals(ctx context.Context) (jobsByStatus map[model.JobStatus]int, courses int, notifications int, err error)
	// ListJobs pages jobs in one status for the admin API, newest first.
	ListJobs(ctx context.Context, status model.JobStatus, offset, limit int) ([]*model.GenerationJob, error)
}

type statsUC struct {
	jobs    repository.GenerationJobRepository
	courses repository.CourseRepository
	notifs  repository.NotificationRepository

	log *zerolog.Logger
}

func NewStatsUseCase(jobs repository.GenerationJobRepository, courses repository.CourseRepository, notifs repository.NotificationRepository, logger *zerolog.Logger) *statsUC {
	return &statsUC{jobs: jobs, courses: courses, notifs: notifs, log: logger}
}

func (s *statsUC) Totals(ctx context.Context) (map[model.JobStatus]int, int, int, error) {
	byStatus, err := s.jobs.CountByStatus(ctx, repository.NoTX)
	if err != nil {
		return nil, 0, 0, err
	}
	courses, err := s.courses.Count(ctx, repository.NoTX)
	if err != nil {
		return nil, 0, 0, err
	}
	notifs, err := s.notifs.Count(ctx, repository.NoTX)
	if err != nil {
		return nil, 0, 0, err
	}
	return byStatus, courses, notifs, nil
}

func (s *statsUC) ListJobs(ctx context.Context, status model.JobStatus, offset, limit int) ([]*model.GenerationJob, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.jobs.ListByStatus(ctx, repository.NoTX, status, offset, limit)
}
