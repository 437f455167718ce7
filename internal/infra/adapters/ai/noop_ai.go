package ai

import (
	"context"
	"fmt"
	"time"

	"courseforge/internal/domain/model"
	"courseforge/internal/domain/ports/adapter"
)

var _ adapter.CourseGenerator = (*NoopGenerator)(nil)

// NoopGenerator is for local/dev runs. It returns a canned outline after a
// short delay instead of calling a real provider.
type NoopGenerator struct {
	delay time.Duration
}

func NewNoopGenerator(delay time.Duration) *NoopGenerator {
	if delay <= 0 {
		delay = 100 * time.Millisecond
	}
	return &NoopGenerator{delay: delay}
}

func (a *NoopGenerator) Provider() string { return "noop" }

func (a *NoopGenerator) GenerateCourse(ctx context.Context, req adapter.GenerationRequest) (*model.CourseOutline, adapter.Usage, error) {
	select {
	case <-time.After(a.delay):
	case <-ctx.Done():
		return nil, adapter.Usage{}, ctx.Err()
	}
	return &model.CourseOutline{
		Title:       fmt.Sprintf("Course: %s", req.SourceID),
		Description: "Generated by the noop provider for local development.",
		Sections: []model.CourseSection{
			{
				Title: "Getting Started",
				Lessons: []model.CourseLesson{
					{Title: "Introduction", Summary: "What this course covers."},
					{Title: "Core Concepts", Summary: "The essential ideas."},
				},
			},
		},
	}, adapter.Usage{}, nil
}
