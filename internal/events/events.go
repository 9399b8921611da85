// Package events publishes progression events after a document is persisted.
package events

import (
	"context"
	"time"

	"github.com/linguapath/learnmap/internal/logger"
)

type Type string

const (
	LessonUnlocked      Type = "lesson.unlocked"
	LessonCompleted     Type = "lesson.completed"
	UnitUnlocked        Type = "unit.unlocked"
	UnitCompleted       Type = "unit.completed"
	LearnmapFastTracked Type = "learnmap.fast_tracked"
	LessonReviewed      Type = "lesson.reviewed"
)

// Event is one progression fact. UnitID and LessonID are set when the event
// concerns that node.
type Event struct {
	Type       Type      `json:"type"`
	UserID     string    `json:"user_id"`
	CourseID   string    `json:"course_id"`
	ProgressID string    `json:"progress_id"`
	UnitID     string    `json:"unit_id,omitempty"`
	LessonID   string    `json:"lesson_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

type Publisher interface {
	Publish(ctx context.Context, evt Event) error
	Close() error
}

type nopPublisher struct{}

// NewNopPublisher returns a Publisher that discards everything.
func NewNopPublisher() Publisher { return nopPublisher{} }

func (nopPublisher) Publish(context.Context, Event) error { return nil }
func (nopPublisher) Close() error                         { return nil }

type logPublisher struct{}

// NewLogPublisher returns a Publisher that writes each event to the context
// logger at INFO.
func NewLogPublisher() Publisher { return logPublisher{} }

func (logPublisher) Publish(ctx context.Context, evt Event) error {
	logger.FromContext(ctx).WithPrefix("events").WithFields(map[string]any{
		"user":     evt.UserID,
		"course":   evt.CourseID,
		"unit":     evt.UnitID,
		"lesson":   evt.LessonID,
		"progress": evt.ProgressID,
	}).Info("%s", evt.Type)
	return nil
}

func (logPublisher) Close() error { return nil }
