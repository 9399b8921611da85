package repository

import (
	"context"
	"errors"

	"github.com/linguapath/learnmap/internal/models"
)

var (
	// ErrAlreadyExists is returned by CreateProgress when a document for the
	// same (user, course) pair is already stored.
	ErrAlreadyExists = errors.New("progress already exists")
	// ErrVersionConflict is returned by SaveProgress when the stored version no
	// longer matches the one the caller loaded.
	ErrVersionConflict = errors.New("progress version conflict")
)

// CatalogReader is read-only access to published course content. Lookups of
// unknown ids return nil, nil or an empty list.
type CatalogReader interface {
	GetCourse(ctx context.Context, courseID string) (*models.Course, error)
	GetPublishedUnits(ctx context.Context, courseID string) ([]models.Unit, error)
	GetPublishedLessons(ctx context.Context, unitID string) ([]models.Lesson, error)
	GetPublishedExerciseIDs(ctx context.Context, lessonID string) ([]string, error)
}

// ProgressStore persists learnmap documents. Find methods return nil, nil when
// nothing matches. SaveProgress replaces the whole document atomically.
type ProgressStore interface {
	FindProgress(ctx context.Context, userID, courseID string) (*models.Progress, error)
	FindProgressByLesson(ctx context.Context, userID, lessonID string) (*models.Progress, error)
	CreateProgress(ctx context.Context, doc *models.Progress) (*models.Progress, error)
	SaveProgress(ctx context.Context, doc *models.Progress) error
	ListBelowHearts(ctx context.Context, maxHearts int) ([]models.Progress, error)
}
