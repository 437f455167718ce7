package adapter

import (
	"context"

	"courseforge/internal/domain/model"
)

// GenerationRequest identifies the content a course is generated from.
type GenerationRequest struct {
	SourceType model.SourceType
	SourceID   string
	SourceURL  string
}

// Usage reports token accounting for one generation call, when the
// provider exposes it.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// CourseGenerator is the boundary to the AI pipeline. One call per claimed
// job; it either returns a usable outline or an error. The caller owns
// retry policy and watcher notification.
type CourseGenerator interface {
	GenerateCourse(ctx context.Context, req GenerationRequest) (*model.CourseOutline, Usage, error)
	// Provider names the backing service for logs and metrics.
	Provider() string
}
