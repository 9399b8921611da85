package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/linguapath/learnmap/internal/models"
)

// MockProgressStore is a mock implementation of repository.ProgressStore
type MockProgressStore struct {
	mock.Mock
}

func (m *MockProgressStore) FindProgress(ctx context.Context, userID, courseID string) (*models.Progress, error) {
	args := m.Called(ctx, userID, courseID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Progress), args.Error(1)
}

func (m *MockProgressStore) FindProgressByLesson(ctx context.Context, userID, lessonID string) (*models.Progress, error) {
	args := m.Called(ctx, userID, lessonID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Progress), args.Error(1)
}

func (m *MockProgressStore) CreateProgress(ctx context.Context, doc *models.Progress) (*models.Progress, error) {
	args := m.Called(ctx, doc)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Progress), args.Error(1)
}

func (m *MockProgressStore) SaveProgress(ctx context.Context, doc *models.Progress) error {
	args := m.Called(ctx, doc)
	return args.Error(0)
}

func (m *MockProgressStore) ListBelowHearts(ctx context.Context, maxHearts int) ([]models.Progress, error) {
	args := m.Called(ctx, maxHearts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Progress), args.Error(1)
}
