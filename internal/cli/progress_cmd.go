package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/linguapath/learnmap/internal/api"
)

func newStartCmd(app *App, user *string) *cobra.Command {
	var courseID string

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Create the learnmap for a course",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := api.WithUser(commandContext(cmd), *user)
			return writeResponse(app, app.Handler.StartCourse(ctx, api.StartCourseRequest{CourseID: courseID}))
		},
	}

	cmd.Flags().StringVar(&courseID, "course", "", "Course id")
	return cmd
}

func newShowCmd(app *App, user *string) *cobra.Command {
	var courseID string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the learnmap for a course, creating it on first access",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := api.WithUser(commandContext(cmd), *user)
			return writeResponse(app, app.Handler.GetLearnmap(ctx, api.StartCourseRequest{CourseID: courseID}))
		},
	}

	cmd.Flags().StringVar(&courseID, "course", "", "Course id")
	return cmd
}

func newExerciseCmd(app *App, user *string) *cobra.Command {
	var (
		req      api.UpdateExerciseRequest
		score    float64
		attempts int
	)

	cmd := &cobra.Command{
		Use:   "exercise",
		Short: "Record an exercise attempt",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("score") {
				req.Score = &score
			}
			if cmd.Flags().Changed("attempts") {
				req.Attempts = &attempts
			}
			ctx := api.WithUser(commandContext(cmd), *user)
			return writeResponse(app, app.Handler.UpdateExerciseProgress(ctx, req))
		},
	}

	cmd.Flags().StringVar(&req.LessonID, "lesson", "", "Lesson id")
	cmd.Flags().StringVar(&req.ExerciseID, "exercise", "", "Exercise id")
	cmd.Flags().StringVar(&req.Status, "status", "", "NOT_STARTED, IN_PROGRESS or COMPLETED")
	cmd.Flags().Float64Var(&score, "score", 0, "Score for the attempt")
	cmd.Flags().IntVar(&attempts, "attempts", 0, "Total attempts (default: one more than stored)")
	cmd.Flags().StringSliceVar(&req.WrongAnswers, "wrong", nil, "Wrong answers to remember")
	return cmd
}

func newUpdateCmd(app *App, user *string) *cobra.Command {
	var (
		req         api.UpdateProgressRequest
		score       float64
		attempts    int
		hearts      int
		completedAt string
	)

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Apply a positional update to a unit, lesson or exercise",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("score") {
				req.Score = &score
			}
			if cmd.Flags().Changed("attempts") {
				req.Attempts = &attempts
			}
			if cmd.Flags().Changed("hearts") {
				req.Hearts = &hearts
			}
			at, err := parseTime("completed-at", completedAt)
			if err != nil {
				return err
			}
			req.CompletedAt = at
			ctx := api.WithUser(commandContext(cmd), *user)
			return writeResponse(app, app.Handler.UpdateProgress(ctx, req))
		},
	}

	cmd.Flags().StringVar(&req.CourseID, "course", "", "Course id")
	cmd.Flags().StringVar(&req.UnitID, "unit", "", "Unit id")
	cmd.Flags().StringVar(&req.LessonID, "lesson", "", "Lesson id")
	cmd.Flags().StringVar(&req.ExerciseID, "exercise", "", "Exercise id")
	cmd.Flags().StringVar(&req.Status, "status", "", "New status of the targeted node")
	cmd.Flags().Float64Var(&score, "score", 0, "Exercise score")
	cmd.Flags().IntVar(&attempts, "attempts", 0, "Exercise attempts")
	cmd.Flags().IntVar(&hearts, "hearts", 0, "New hearts value")
	cmd.Flags().StringVar(&completedAt, "completed-at", "", "Completion time, RFC 3339")
	cmd.Flags().StringSliceVar(&req.WrongAnswers, "wrong", nil, "Wrong answers to remember")
	return cmd
}

func newFastTrackCmd(app *App, user *string) *cobra.Command {
	var (
		req         api.FastTrackRequest
		completedAt string
	)

	cmd := &cobra.Command{
		Use:   "fast-track",
		Short: "Complete a unit or a set of lessons after a passed challenge",
		RunE: func(cmd *cobra.Command, args []string) error {
			at, err := parseTime("completed-at", completedAt)
			if err != nil {
				return err
			}
			req.CompletedAt = at
			ctx := api.WithUser(commandContext(cmd), *user)
			return writeResponse(app, app.Handler.FastTrack(ctx, req))
		},
	}

	cmd.Flags().StringVar(&req.CourseID, "course", "", "Course id")
	cmd.Flags().StringVar(&req.UnitID, "unit", "", "Unit id to complete")
	cmd.Flags().StringSliceVar(&req.LessonIDs, "lessons", nil, "Lesson ids to complete")
	cmd.Flags().StringVar(&req.ChallengeAttemptID, "challenge", "", "Challenge attempt id for the audit record")
	cmd.Flags().StringVar(&completedAt, "completed-at", "", "Completion time, RFC 3339")
	return cmd
}

func newReviewCmd(app *App, user *string) *cobra.Command {
	var (
		req        api.ReviewLessonRequest
		score      float64
		xp         int
		coins      int
		reviewedAt string
	)

	cmd := &cobra.Command{
		Use:   "review",
		Short: "Record a review of a completed lesson",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("score") {
				req.Score = &score
			}
			if cmd.Flags().Changed("xp") {
				req.XPEarned = &xp
			}
			if cmd.Flags().Changed("coins") {
				req.CoinEarned = &coins
			}
			at, err := parseTime("reviewed-at", reviewedAt)
			if err != nil {
				return err
			}
			req.ReviewedAt = at
			ctx := api.WithUser(commandContext(cmd), *user)
			return writeResponse(app, app.Handler.ReviewLesson(ctx, req))
		},
	}

	cmd.Flags().StringVar(&req.CourseID, "course", "", "Course id")
	cmd.Flags().StringVar(&req.UnitID, "unit", "", "Unit id")
	cmd.Flags().StringVar(&req.LessonID, "lesson", "", "Lesson id")
	cmd.Flags().Float64Var(&score, "score", 0, "Review score")
	cmd.Flags().IntVar(&xp, "xp", 0, "XP earned")
	cmd.Flags().IntVar(&coins, "coins", 0, "Coins earned")
	cmd.Flags().StringVar(&reviewedAt, "reviewed-at", "", "Review time, RFC 3339")
	return cmd
}

func parseTime(flag, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, fmt.Errorf("--%s: %w", flag, err)
	}
	return &t, nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
