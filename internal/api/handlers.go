package api

import (
	"context"
	"time"

	"github.com/linguapath/learnmap/internal/errors"
	"github.com/linguapath/learnmap/internal/logger"
	"github.com/linguapath/learnmap/internal/models"
	"github.com/linguapath/learnmap/internal/services"
)

type StartCourseRequest struct {
	CourseID string `json:"courseId"`
}

type UpdateProgressRequest struct {
	CourseID     string     `json:"courseId"`
	UnitID       string     `json:"unitId,omitempty"`
	LessonID     string     `json:"lessonId,omitempty"`
	ExerciseID   string     `json:"exerciseId,omitempty"`
	Status       string     `json:"status,omitempty"`
	Score        *float64   `json:"score,omitempty"`
	Attempts     *int       `json:"attempts,omitempty"`
	CompletedAt  *time.Time `json:"completedAt,omitempty"`
	WrongAnswers []string   `json:"wrongAnswers,omitempty"`
	Hearts       *int       `json:"hearts,omitempty"`
}

type UpdateExerciseRequest struct {
	LessonID     string   `json:"lessonId"`
	ExerciseID   string   `json:"exerciseId"`
	Status       string   `json:"status"`
	Score        *float64 `json:"score,omitempty"`
	Attempts     *int     `json:"attempts,omitempty"`
	WrongAnswers []string `json:"wrongAnswers,omitempty"`
}

type FastTrackRequest struct {
	CourseID           string     `json:"courseId"`
	UnitID             string     `json:"unitId,omitempty"`
	LessonIDs          []string   `json:"lessonIds,omitempty"`
	ChallengeAttemptID string     `json:"challengeAttemptId,omitempty"`
	CompletedAt        *time.Time `json:"completedAt,omitempty"`
}

type ReviewLessonRequest struct {
	CourseID   string     `json:"courseId"`
	UnitID     string     `json:"unitId"`
	LessonID   string     `json:"lessonId"`
	Score      *float64   `json:"score,omitempty"`
	XPEarned   *int       `json:"xpEarned,omitempty"`
	CoinEarned *int       `json:"coinEarned,omitempty"`
	ReviewedAt *time.Time `json:"reviewedAt,omitempty"`
}

// Response is the uniform result of every operation. Code is set only on
// hard failures.
type Response struct {
	Success          bool                     `json:"success"`
	Code             errors.Kind              `json:"code,omitempty"`
	Message          string                   `json:"message"`
	Progress         *models.Progress         `json:"progress,omitempty"`
	ExerciseProgress *models.ExerciseProgress `json:"exerciseProgress,omitempty"`
}

// Handler exposes the progression engine through request/response values.
// The caller's identity comes from the context, see WithUser.
type Handler struct {
	svc services.ProgressionService
}

func NewHandler(svc services.ProgressionService) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) StartCourse(ctx context.Context, req StartCourseRequest) Response {
	res, err := h.svc.StartCourse(ctx, UserFromContext(ctx), req.CourseID)
	return respond(ctx, res, err)
}

func (h *Handler) GetLearnmap(ctx context.Context, req StartCourseRequest) Response {
	res, err := h.svc.GetLearnmap(ctx, UserFromContext(ctx), req.CourseID)
	return respond(ctx, res, err)
}

func (h *Handler) UpdateProgress(ctx context.Context, req UpdateProgressRequest) Response {
	res, err := h.svc.UpdateLearnmapProgress(ctx, UserFromContext(ctx), req.CourseID, models.LearnmapUpdate{
		UnitID:       req.UnitID,
		LessonID:     req.LessonID,
		ExerciseID:   req.ExerciseID,
		Status:       req.Status,
		Score:        req.Score,
		Attempts:     req.Attempts,
		CompletedAt:  req.CompletedAt,
		WrongAnswers: req.WrongAnswers,
		Hearts:       req.Hearts,
	})
	return respond(ctx, res, err)
}

func (h *Handler) UpdateExerciseProgress(ctx context.Context, req UpdateExerciseRequest) Response {
	res, err := h.svc.UpdateExerciseProgress(ctx, UserFromContext(ctx), req.LessonID, models.ExerciseUpdate{
		ExerciseID:   req.ExerciseID,
		Status:       models.ExerciseStatus(req.Status),
		Score:        req.Score,
		Attempts:     req.Attempts,
		WrongAnswers: req.WrongAnswers,
	})
	resp := respond(ctx, res, err)
	// Exercise updates answer with the exercise node only.
	resp.Progress = nil
	return resp
}

func (h *Handler) FastTrack(ctx context.Context, req FastTrackRequest) Response {
	res, err := h.svc.FastTrackLearnmap(ctx, UserFromContext(ctx), req.CourseID, models.FastTrackInput{
		UnitID:             req.UnitID,
		LessonIDs:          req.LessonIDs,
		ChallengeAttemptID: req.ChallengeAttemptID,
		CompletedAt:        req.CompletedAt,
	})
	return respond(ctx, res, err)
}

func (h *Handler) ReviewLesson(ctx context.Context, req ReviewLessonRequest) Response {
	res, err := h.svc.ReviewCompletedLesson(ctx, UserFromContext(ctx), req.CourseID, models.ReviewInput{
		UnitID:     req.UnitID,
		LessonID:   req.LessonID,
		Score:      req.Score,
		XPEarned:   req.XPEarned,
		CoinEarned: req.CoinEarned,
		ReviewedAt: req.ReviewedAt,
	})
	return respond(ctx, res, err)
}

func respond(ctx context.Context, res *models.Result, err error) Response {
	if err != nil {
		return handleError(ctx, err)
	}
	if res == nil {
		return handleError(ctx, errors.NewInternalError(nil))
	}
	if !res.Success {
		logger.FromContext(ctx).WithPrefix("api").Debug("soft failure: %s", res.Message)
	}
	return Response{
		Success:          res.Success,
		Message:          res.Message,
		Progress:         res.Progress,
		ExerciseProgress: res.ExerciseProgress,
	}
}
