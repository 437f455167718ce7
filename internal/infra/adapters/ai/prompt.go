// File: internal/infra/adapters/ai/prompt.go
package ai

import (
	"encoding/json"
	"fmt"
	"strings"

	"courseforge/internal/domain"
	"courseforge/internal/domain/model"
	"courseforge/internal/domain/ports/adapter"
)

const outlineSystemPrompt = `You are a curriculum designer. Produce a structured course outline as a single JSON object with this shape:
{"title": string, "description": string, "sections": [{"title": string, "lessons": [{"title": string, "summary": string}]}]}
Aim for 3 to 6 sections with 3 to 5 lessons each. Respond with JSON only, no surrounding prose.`

// buildUserPrompt renders the generation request as the user message.
func buildUserPrompt(req adapter.GenerationRequest) string {
	switch req.SourceType {
	case model.SourceTypeYouTube:
		url := req.SourceURL
		if url == "" {
			url = "https://www.youtube.com/watch?v=" + req.SourceID
		}
		return fmt.Sprintf("Design a course that teaches the material covered by the YouTube video %s (video id %s).", url, req.SourceID)
	default:
		return fmt.Sprintf("Design a course on the topic: %s", req.SourceID)
	}
}

// parseOutline decodes the model reply into an outline, tolerating markdown
// code fences around the JSON.
func parseOutline(text string) (*model.CourseOutline, error) {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		if i := strings.LastIndex(text, "```"); i >= 0 {
			text = text[:i]
		}
		text = strings.TrimSpace(text)
	}
	// Some models pad the object with stray tokens; cut to the outer braces.
	if i := strings.Index(text, "{"); i > 0 {
		text = text[i:]
	}
	if i := strings.LastIndex(text, "}"); i >= 0 && i < len(text)-1 {
		text = text[:i+1]
	}

	var outline model.CourseOutline
	if err := json.Unmarshal([]byte(text), &outline); err != nil {
		return nil, fmt.Errorf("parse outline: %w", err)
	}
	if outline.IsEmpty() {
		return nil, domain.ErrEmptyOutline
	}
	return &outline, nil
}
