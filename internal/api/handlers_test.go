package api_test

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/linguapath/learnmap/internal/api"
	"github.com/linguapath/learnmap/internal/errors"
	"github.com/linguapath/learnmap/internal/models"
	"github.com/linguapath/learnmap/internal/testutil/mocks"
)

func TestIdentity(t *testing.T) {
	assert.Equal(t, "", api.UserFromContext(context.Background()))
	assert.Equal(t, "alice", api.UserFromContext(api.WithUser(context.Background(), "alice")))
}

func TestStartCourse_PassesUserAndCourse(t *testing.T) {
	svc := new(mocks.MockProgressionService)
	doc := &models.Progress{ID: "p1"}
	svc.On("StartCourse", mock.Anything, "alice", "spanish").Return(&models.Result{Success: true, Message: "course started", Progress: doc}, nil)

	resp := api.NewHandler(svc).StartCourse(api.WithUser(context.Background(), "alice"), api.StartCourseRequest{CourseID: "spanish"})

	assert.True(t, resp.Success)
	assert.Empty(t, resp.Code)
	assert.Same(t, doc, resp.Progress)
	svc.AssertExpectations(t)
}

func TestErrorsBecomeResponses(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		code    errors.Kind
		message string
	}{
		{"not authenticated", errors.NewNotAuthenticatedError(), errors.KindNotAuthenticated, "no authenticated user"},
		{"invalid state", errors.NewInvalidStateError("cannot review an incomplete lesson"), errors.KindInvalidState, "cannot review an incomplete lesson"},
		{"raw error", stderrors.New("socket closed"), errors.KindInternal, "internal error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(mocks.MockProgressionService)
			svc.On("ReviewCompletedLesson", mock.Anything, "", "spanish", mock.Anything).Return(nil, tt.err)

			resp := api.NewHandler(svc).ReviewLesson(context.Background(), api.ReviewLessonRequest{CourseID: "spanish", LessonID: "l1"})

			assert.False(t, resp.Success)
			assert.Equal(t, tt.code, resp.Code)
			assert.Equal(t, tt.message, resp.Message)
			assert.Nil(t, resp.Progress)
		})
	}
}

func TestSoftFailureHasNoCode(t *testing.T) {
	svc := new(mocks.MockProgressionService)
	svc.On("UpdateLearnmapProgress", mock.Anything, "alice", "spanish", models.LearnmapUpdate{UnitID: "ghost"}).
		Return(&models.Result{Success: false, Message: "unit ghost not found in learnmap"}, nil)

	resp := api.NewHandler(svc).UpdateProgress(api.WithUser(context.Background(), "alice"),
		api.UpdateProgressRequest{CourseID: "spanish", UnitID: "ghost"})

	assert.False(t, resp.Success)
	assert.Empty(t, resp.Code)
	assert.Equal(t, "unit ghost not found in learnmap", resp.Message)
}

func TestUpdateExerciseProgress_ReturnsExerciseOnly(t *testing.T) {
	svc := new(mocks.MockProgressionService)
	ep := &models.ExerciseProgress{ExerciseID: "e1", Status: models.ExerciseCompleted}
	svc.On("UpdateExerciseProgress", mock.Anything, "alice", "l1", models.ExerciseUpdate{ExerciseID: "e1", Status: models.ExerciseCompleted}).
		Return(&models.Result{Success: true, Progress: &models.Progress{}, ExerciseProgress: ep}, nil)

	resp := api.NewHandler(svc).UpdateExerciseProgress(api.WithUser(context.Background(), "alice"),
		api.UpdateExerciseRequest{LessonID: "l1", ExerciseID: "e1", Status: "COMPLETED"})

	assert.True(t, resp.Success)
	assert.Nil(t, resp.Progress)
	assert.Same(t, ep, resp.ExerciseProgress)
}

func TestRequestAndResponseJSONShape(t *testing.T) {
	var req api.FastTrackRequest
	require.NoError(t, json.Unmarshal([]byte(`{"courseId":"c","lessonIds":["a","b"],"challengeAttemptId":"x"}`), &req))
	assert.Equal(t, api.FastTrackRequest{CourseID: "c", LessonIDs: []string{"a", "b"}, ChallengeAttemptID: "x"}, req)

	out, err := json.Marshal(api.Response{Success: false, Code: errors.KindNotFound, Message: "lesson progress not found: l1"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":false,"code":"NOT_FOUND","message":"lesson progress not found: l1"}`, string(out))
}
