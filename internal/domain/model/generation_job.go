package model

import (
	"time"

	"courseforge/internal/domain"

	"github.com/oklog/ulid/v2"
)

type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

type SourceType string

const (
	SourceTypeYouTube SourceType = "youtube"
	SourceTypeTopic   SourceType = "topic"
)

// ParseSourceType validates a client-supplied source type string.
func ParseSourceType(s string) (SourceType, error) {
	switch SourceType(s) {
	case SourceTypeYouTube:
		return SourceTypeYouTube, nil
	case SourceTypeTopic:
		return SourceTypeTopic, nil
	default:
		return "", domain.ErrInvalidArgument
	}
}

// GenerationJob tracks one course-generation attempt for a source.
// The system-wide invariant: for any SourceID at most one job is live
// (pending or processing) at a time. The partial unique index in
// deploy/postgres/init.sql enforces this at the store level.
type GenerationJob struct {
	ID         string
	SourceID   string
	SourceURL  string
	SourceType SourceType
	Status     JobStatus
	CreatedBy  string
	// Watchers is the set of users notified when the job resolves.
	// Always contains CreatedBy; grows only while the job is live.
	// List-style repository reads leave it nil.
	Watchers       []string
	RetryCount     int
	NextAttemptAt  time.Time
	ResultCourseID string
	Error          string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewGenerationJob builds a pending job owned and watched by its creator.
// Job IDs are ULIDs so lexicographic order matches creation order, which
// keeps the FIFO claim query index-friendly.
func NewGenerationJob(sourceID, sourceURL string, sourceType SourceType, createdBy string) *GenerationJob {
	now := time.Now()
	return &GenerationJob{
		ID:            ulid.Make().String(),
		SourceID:      sourceID,
		SourceURL:     sourceURL,
		SourceType:    sourceType,
		Status:        JobStatusPending,
		CreatedBy:     createdBy,
		Watchers:      []string{createdBy},
		RetryCount:    0,
		NextAttemptAt: now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func (j *GenerationJob) IsLive() bool {
	return j.Status == JobStatusPending || j.Status == JobStatusProcessing
}

func (j *GenerationJob) IsTerminal() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusFailed
}

// CanTransitionTo encodes the legal state machine:
//
//	pending --claim--> processing --success--> completed
//	                              --failure--> failed
//	                              --requeue--> pending
//
// Terminal states have no outgoing transitions.
func (j *GenerationJob) CanTransitionTo(next JobStatus) bool {
	switch j.Status {
	case JobStatusPending:
		return next == JobStatusProcessing
	case JobStatusProcessing:
		return next == JobStatusCompleted || next == JobStatusFailed || next == JobStatusPending
	default:
		return false
	}
}

func (j *GenerationJob) HasWatcher(userID string) bool {
	for _, w := range j.Watchers {
		if w == userID {
			return true
		}
	}
	return false
}

// JobStatusSnapshot is the polling view of a job, also the unit cached in Redis.
type JobStatusSnapshot struct {
	Status         JobStatus `json:"status"`
	ResultCourseID string    `json:"result_course_id,omitempty"`
	Error          string    `json:"error,omitempty"`
}

func (j *GenerationJob) StatusSnapshot() *JobStatusSnapshot {
	return &JobStatusSnapshot{
		Status:         j.Status,
		ResultCourseID: j.ResultCourseID,
		Error:          j.Error,
	}
}
