// File: internal/infra/adapters/ai/multi_adapter.go
package ai

import (
	"context"
	"errors"
	"strings"

	"courseforge/internal/domain/model"
	"courseforge/internal/domain/ports/adapter"
)

var _ adapter.CourseGenerator = (*MultiAdapter)(nil)

// MultiAdapter fails over between providers: the default provider goes
// first, the rest follow in the order given. The first usable outline wins.
type MultiAdapter struct {
	defaultProvider string
	chain           []adapter.CourseGenerator
}

func NewMultiAdapter(defaultProvider string, generators ...adapter.CourseGenerator) *MultiAdapter {
	m := &MultiAdapter{defaultProvider: strings.ToLower(defaultProvider)}
	// Default provider first, preserve order for the rest.
	for _, g := range generators {
		if g != nil && strings.ToLower(g.Provider()) == m.defaultProvider {
			m.chain = append(m.chain, g)
		}
	}
	for _, g := range generators {
		if g != nil && strings.ToLower(g.Provider()) != m.defaultProvider {
			m.chain = append(m.chain, g)
		}
	}
	return m
}

func (m *MultiAdapter) Provider() string {
	if len(m.chain) == 1 {
		return m.chain[0].Provider()
	}
	return "multi"
}

func (m *MultiAdapter) GenerateCourse(ctx context.Context, req adapter.GenerationRequest) (*model.CourseOutline, adapter.Usage, error) {
	var (
		outline *model.CourseOutline
		usage   adapter.Usage
		err     error
	)
	for _, g := range m.chain {
		if ctx.Err() != nil {
			return nil, usage, ctx.Err()
		}
		outline, usage, err = g.GenerateCourse(ctx, req)
		if err == nil {
			return outline, usage, nil
		}
	}
	if err == nil {
		err = errors.New("no generator configured")
	}
	return nil, usage, err
}
