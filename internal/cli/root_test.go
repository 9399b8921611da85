package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/linguapath/learnmap/internal/api"
	apperrors "github.com/linguapath/learnmap/internal/errors"
	"github.com/linguapath/learnmap/internal/models"
	"github.com/linguapath/learnmap/internal/testutil/mocks"
)

type fakeHearts struct {
	n   int
	err error
}

func (f fakeHearts) RefillHearts(context.Context) (int, error) { return f.n, f.err }

func newTestApp(svc *mocks.MockProgressionService) (*App, *bytes.Buffer) {
	out := &bytes.Buffer{}
	return &App{Handler: api.NewHandler(svc), Hearts: fakeHearts{n: 2}, Out: out}, out
}

func execute(app *App, args ...string) error {
	root := NewRootCmd(app)
	root.SetArgs(args)
	return root.ExecuteContext(context.Background())
}

func TestRootCmd_RegistersCommands(t *testing.T) {
	app, _ := newTestApp(new(mocks.MockProgressionService))
	root := NewRootCmd(app)

	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{
		"start", "show", "exercise", "update", "fast-track", "review", "refill-hearts", "scheduler",
	}, names)
}

func TestStartCmd_PassesUserAndCourse(t *testing.T) {
	svc := new(mocks.MockProgressionService)
	svc.On("StartCourse", mock.Anything, "u1", "c1").
		Return(&models.Result{Success: true, Message: "created", Progress: &models.Progress{CourseID: "c1"}}, nil)
	app, out := newTestApp(svc)

	require.NoError(t, execute(app, "start", "--user", "u1", "--course", "c1"))

	var resp api.Response
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "c1", resp.Progress.CourseID)
	svc.AssertExpectations(t)
}

func TestExerciseCmd_OptionalFlags(t *testing.T) {
	svc := new(mocks.MockProgressionService)
	svc.On("UpdateExerciseProgress", mock.Anything, "u1", "l1", mock.MatchedBy(func(u models.ExerciseUpdate) bool {
		return u.ExerciseID == "e1" &&
			u.Status == models.ExerciseCompleted &&
			u.Score != nil && *u.Score == 0.5 &&
			u.Attempts == nil &&
			assert.ObjectsAreEqual([]string{"a", "b"}, u.WrongAnswers)
	})).Return(&models.Result{Success: true, ExerciseProgress: &models.ExerciseProgress{ExerciseID: "e1"}}, nil)
	app, _ := newTestApp(svc)

	err := execute(app, "exercise", "--user", "u1", "--lesson", "l1", "--exercise", "e1",
		"--status", "COMPLETED", "--score", "0.5", "--wrong", "a,b")

	require.NoError(t, err)
	svc.AssertExpectations(t)
}

func TestUpdateCmd_ParsesCompletedAt(t *testing.T) {
	svc := new(mocks.MockProgressionService)
	svc.On("UpdateLearnmapProgress", mock.Anything, "u1", "c1", mock.MatchedBy(func(u models.LearnmapUpdate) bool {
		return u.UnitID == "u-1" && u.CompletedAt != nil && u.CompletedAt.Year() == 2026 && u.Hearts == nil
	})).Return(&models.Result{Success: true}, nil)
	app, _ := newTestApp(svc)

	err := execute(app, "update", "--user", "u1", "--course", "c1", "--unit", "u-1",
		"--status", "completed", "--completed-at", "2026-03-01T10:00:00Z")

	require.NoError(t, err)
	svc.AssertExpectations(t)
}

func TestUpdateCmd_RejectsBadTime(t *testing.T) {
	svc := new(mocks.MockProgressionService)
	app, _ := newTestApp(svc)

	err := execute(app, "update", "--user", "u1", "--course", "c1", "--completed-at", "yesterday")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "--completed-at")
	svc.AssertNotCalled(t, "UpdateLearnmapProgress", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestFastTrackCmd_SoftFailureExitsCleanly(t *testing.T) {
	svc := new(mocks.MockProgressionService)
	svc.On("FastTrackLearnmap", mock.Anything, "u1", "c1", mock.MatchedBy(func(in models.FastTrackInput) bool {
		return assert.ObjectsAreEqual([]string{"l1", "l2"}, in.LessonIDs) && in.ChallengeAttemptID == "ch-9"
	})).Return(&models.Result{Success: false, Message: "no matching lessons"}, nil)
	app, out := newTestApp(svc)

	err := execute(app, "fast-track", "--user", "u1", "--course", "c1", "--lessons", "l1,l2", "--challenge", "ch-9")

	require.NoError(t, err)
	assert.Contains(t, out.String(), "no matching lessons")
}

func TestReviewCmd_HardFailureReturnsError(t *testing.T) {
	svc := new(mocks.MockProgressionService)
	svc.On("ReviewCompletedLesson", mock.Anything, "u1", "c1", mock.Anything).
		Return(nil, apperrors.NewInvalidStateError("lesson l1 is not completed"))
	app, out := newTestApp(svc)

	err := execute(app, "review", "--user", "u1", "--course", "c1", "--unit", "u-1", "--lesson", "l1", "--xp", "10")

	var hard *HardFailureError
	require.ErrorAs(t, err, &hard)
	assert.Equal(t, apperrors.KindInvalidState, hard.Response.Code)
	assert.Contains(t, out.String(), string(apperrors.KindInvalidState))
}

func TestRefillHeartsCmd(t *testing.T) {
	app, out := newTestApp(new(mocks.MockProgressionService))

	require.NoError(t, execute(app, "refill-hearts"))
	assert.Contains(t, out.String(), "refilled hearts on 2 documents")

	app.Hearts = fakeHearts{err: errors.New("store down")}
	assert.EqualError(t, execute(app, "refill-hearts"), "store down")
}
