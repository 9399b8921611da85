package services

import (
	"context"

	"github.com/linguapath/learnmap/internal/errors"
	"github.com/linguapath/learnmap/internal/models"
	"github.com/linguapath/learnmap/internal/worker"
)

type serialProgressionService struct {
	inner ProgressionService
	pool  *worker.Pool
}

// NewSerialProgressionService runs every call for one user on the same pool
// shard, so a user's read-modify-write cycles never interleave inside this
// process. The pool must be started.
func NewSerialProgressionService(inner ProgressionService, pool *worker.Pool) ProgressionService {
	return &serialProgressionService{inner: inner, pool: pool}
}

type outcome struct {
	result *models.Result
	err    error
}

func (s *serialProgressionService) run(ctx context.Context, userID, name string, fn func(context.Context) (*models.Result, error)) (*models.Result, error) {
	out := make(chan outcome, 1)
	err := s.pool.Do(ctx, userID, name, func(ctx context.Context) error {
		res, err := fn(ctx)
		out <- outcome{result: res, err: err}
		// Domain failures travel in the outcome; the pool only sees its own.
		return nil
	})
	select {
	case o := <-out:
		return o.result, o.err
	default:
		return nil, errors.NewInternalError(err)
	}
}

func (s *serialProgressionService) StartCourse(ctx context.Context, userID, courseID string) (*models.Result, error) {
	return s.run(ctx, userID, "start_course", func(ctx context.Context) (*models.Result, error) {
		return s.inner.StartCourse(ctx, userID, courseID)
	})
}

func (s *serialProgressionService) GetLearnmap(ctx context.Context, userID, courseID string) (*models.Result, error) {
	return s.run(ctx, userID, "get_learnmap", func(ctx context.Context) (*models.Result, error) {
		return s.inner.GetLearnmap(ctx, userID, courseID)
	})
}

func (s *serialProgressionService) UpdateExerciseProgress(ctx context.Context, userID, lessonID string, update models.ExerciseUpdate) (*models.Result, error) {
	return s.run(ctx, userID, "update_exercise", func(ctx context.Context) (*models.Result, error) {
		return s.inner.UpdateExerciseProgress(ctx, userID, lessonID, update)
	})
}

func (s *serialProgressionService) UpdateLearnmapProgress(ctx context.Context, userID, courseID string, update models.LearnmapUpdate) (*models.Result, error) {
	return s.run(ctx, userID, "update_learnmap", func(ctx context.Context) (*models.Result, error) {
		return s.inner.UpdateLearnmapProgress(ctx, userID, courseID, update)
	})
}

func (s *serialProgressionService) FastTrackLearnmap(ctx context.Context, userID, courseID string, input models.FastTrackInput) (*models.Result, error) {
	return s.run(ctx, userID, "fast_track", func(ctx context.Context) (*models.Result, error) {
		return s.inner.FastTrackLearnmap(ctx, userID, courseID, input)
	})
}

func (s *serialProgressionService) ReviewCompletedLesson(ctx context.Context, userID, courseID string, input models.ReviewInput) (*models.Result, error) {
	return s.run(ctx, userID, "review_lesson", func(ctx context.Context) (*models.Result, error) {
		return s.inner.ReviewCompletedLesson(ctx, userID, courseID, input)
	})
}
