package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type CourseLesson struct {
	Title   string `json:"title"`
	Summary string `json:"summary,omitempty"`
}

type CourseSection struct {
	Title   string         `json:"title"`
	Lessons []CourseLesson `json:"lessons"`
}

// CourseOutline is what a generator produces from a source. It carries no
// identity or ownership; NewCourseFromOutline turns it into a Course.
type CourseOutline struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Sections    []CourseSection `json:"sections"`
}

// IsEmpty reports whether the outline has no usable content.
func (o *CourseOutline) IsEmpty() bool {
	return o == nil || (strings.TrimSpace(o.Title) == "" && len(o.Sections) == 0)
}

type Course struct {
	ID          string
	Title       string
	Description string
	SourceType  SourceType
	SourceID    string
	SourceURL   string
	IsPublic    bool
	Sections    []CourseSection
	CreatedBy   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewCourseFromOutline materializes a generated outline as a public course
// for the job's source. Generated courses are public so later requests for
// the same source short-circuit to "exists".
func NewCourseFromOutline(o *CourseOutline, sourceType SourceType, sourceID, sourceURL, createdBy string) *Course {
	now := time.Now()
	title := strings.TrimSpace(o.Title)
	if title == "" {
		title = sourceID
	}
	return &Course{
		ID:          uuid.NewString(),
		Title:       title,
		Description: o.Description,
		SourceType:  sourceType,
		SourceID:    sourceID,
		SourceURL:   sourceURL,
		IsPublic:    true,
		Sections:    o.Sections,
		CreatedBy:   createdBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
