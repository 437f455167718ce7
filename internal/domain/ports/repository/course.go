package repository

import (
	"context"

	"courseforge/internal/domain/model"
)

type CourseRepository interface {
	Save(ctx context.Context, tx Tx, course *model.Course) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Course, error)
	// FindPublicBySource is the cheap "already generated" short-circuit.
	FindPublicBySource(ctx context.Context, tx Tx, sourceType model.SourceType, sourceID string) (*model.Course, error)
	Count(ctx context.Context, tx Tx) (int, error)
}
