package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"courseforge/internal/domain"
	"courseforge/internal/domain/model"
	"courseforge/internal/domain/ports/repository"
)

var _ repository.CourseRepository = (*courseRepo)(nil)

type courseRepo struct {
	pool *pgxpool.Pool
}

func NewCourseRepo(pool *pgxpool.Pool) *courseRepo {
	return &courseRepo{pool: pool}
}

const courseColumns = `id, title, description, source_type, source_id, source_url,
is_public, sections, created_by, created_at, updated_at`

func scanCourse(row pgx.Row) (*model.Course, error) {
	var c model.Course
	var typeStr string
	var sections []byte
	err := row.Scan(
		&c.ID, &c.Title, &c.Description, &typeStr, &c.SourceID, &c.SourceURL,
		&c.IsPublic, &sections, &c.CreatedBy, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	c.SourceType = model.SourceType(typeStr)
	if len(sections) > 0 {
		if err := json.Unmarshal(sections, &c.Sections); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
	}
	return &c, nil
}

func (r *courseRepo) Save(ctx context.Context, tx repository.Tx, course *model.Course) error {
	sections, err := json.Marshal(course.Sections)
	if err != nil {
		return err
	}
	course.UpdatedAt = time.Now()

	const q = `
INSERT INTO courses (` + courseColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
ON CONFLICT (id) DO UPDATE SET
  title = EXCLUDED.title,
  description = EXCLUDED.description,
  is_public = EXCLUDED.is_public,
  sections = EXCLUDED.sections,
  updated_at = EXCLUDED.updated_at;`

	_, err = execSQL(ctx, r.pool, tx, q,
		course.ID, course.Title, course.Description, string(course.SourceType),
		course.SourceID, course.SourceURL, course.IsPublic, sections,
		course.CreatedBy, course.CreatedAt, course.UpdatedAt)
	return err
}

func (r *courseRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Course, error) {
	const q = `SELECT ` + courseColumns + ` FROM courses WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	course, err := scanCourse(row)
	if err != nil {
		return nil, translateScanErr(err)
	}
	return course, nil
}

func (r *courseRepo) FindPublicBySource(ctx context.Context, tx repository.Tx, sourceType model.SourceType, sourceID string) (*model.Course, error) {
	const q = `
SELECT ` + courseColumns + `
  FROM courses
 WHERE source_type=$1 AND source_id=$2 AND is_public
 ORDER BY created_at
 LIMIT 1;`
	row, err := pickRow(ctx, r.pool, tx, q, string(sourceType), sourceID)
	if err != nil {
		return nil, err
	}
	course, err := scanCourse(row)
	if err != nil {
		return nil, translateScanErr(err)
	}
	return course, nil
}

func (r *courseRepo) Count(ctx context.Context, tx repository.Tx) (int, error) {
	const q = `SELECT COUNT(*) FROM courses;`
	row, err := pickRow(ctx, r.pool, tx, q)
	if err != nil {
		return 0, err
	}
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, domain.ErrReadDatabaseRow
	}
	return n, nil
}
