package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/linguapath/learnmap/internal/models"
)

// MockProgressionService is a mock implementation of services.ProgressionService
type MockProgressionService struct {
	mock.Mock
}

func (m *MockProgressionService) result(args mock.Arguments) (*models.Result, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Result), args.Error(1)
}

func (m *MockProgressionService) StartCourse(ctx context.Context, userID, courseID string) (*models.Result, error) {
	return m.result(m.Called(ctx, userID, courseID))
}

func (m *MockProgressionService) GetLearnmap(ctx context.Context, userID, courseID string) (*models.Result, error) {
	return m.result(m.Called(ctx, userID, courseID))
}

func (m *MockProgressionService) UpdateExerciseProgress(ctx context.Context, userID, lessonID string, update models.ExerciseUpdate) (*models.Result, error) {
	return m.result(m.Called(ctx, userID, lessonID, update))
}

func (m *MockProgressionService) UpdateLearnmapProgress(ctx context.Context, userID, courseID string, update models.LearnmapUpdate) (*models.Result, error) {
	return m.result(m.Called(ctx, userID, courseID, update))
}

func (m *MockProgressionService) FastTrackLearnmap(ctx context.Context, userID, courseID string, input models.FastTrackInput) (*models.Result, error) {
	return m.result(m.Called(ctx, userID, courseID, input))
}

func (m *MockProgressionService) ReviewCompletedLesson(ctx context.Context, userID, courseID string, input models.ReviewInput) (*models.Result, error) {
	return m.result(m.Called(ctx, userID, courseID, input))
}
