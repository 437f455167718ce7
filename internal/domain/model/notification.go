package model

import (
	"time"

	"github.com/google/uuid"
)

type NotificationType string

const (
	NotificationTypeSuccess NotificationType = "success"
	NotificationTypeError   NotificationType = "error"
	NotificationTypeInfo    NotificationType = "info"
)

type Notification struct {
	ID        string
	UserID    string
	Type      NotificationType
	Title     string
	Message   string
	Link      string
	Read      bool
	CreatedAt time.Time
}

// NewCourseReadyNotification is the per-watcher fan-out record for a
// completed generation job.
func NewCourseReadyNotification(userID, courseID string) *Notification {
	return &Notification{
		ID:        uuid.NewString(),
		UserID:    userID,
		Type:      NotificationTypeSuccess,
		Title:     "Course Ready!",
		Message:   "Your course has been generated and is ready to view.",
		Link:      "/courses/" + courseID,
		Read:      false,
		CreatedAt: time.Now(),
	}
}

// NewGenerationFailedNotification is the per-watcher fan-out record for a
// failed generation job. An empty reason falls back to a generic message.
func NewGenerationFailedNotification(userID, reason string) *Notification {
	msg := reason
	if msg == "" {
		msg = "Course generation failed. Please try again."
	}
	return &Notification{
		ID:        uuid.NewString(),
		UserID:    userID,
		Type:      NotificationTypeError,
		Title:     "Generation Failed",
		Message:   msg,
		Read:      false,
		CreatedAt: time.Now(),
	}
}
