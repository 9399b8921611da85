package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/linguapath/learnmap/internal/models"
)

// MockCatalogReader is a mock implementation of repository.CatalogReader
type MockCatalogReader struct {
	mock.Mock
}

func (m *MockCatalogReader) GetCourse(ctx context.Context, courseID string) (*models.Course, error) {
	args := m.Called(ctx, courseID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Course), args.Error(1)
}

func (m *MockCatalogReader) GetPublishedUnits(ctx context.Context, courseID string) ([]models.Unit, error) {
	args := m.Called(ctx, courseID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Unit), args.Error(1)
}

func (m *MockCatalogReader) GetPublishedLessons(ctx context.Context, unitID string) ([]models.Lesson, error) {
	args := m.Called(ctx, unitID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Lesson), args.Error(1)
}

func (m *MockCatalogReader) GetPublishedExerciseIDs(ctx context.Context, lessonID string) ([]string, error) {
	args := m.Called(ctx, lessonID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}
