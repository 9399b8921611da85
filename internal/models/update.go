package models

import "time"

// ExerciseUpdate is one attempt report for an exercise. Nil fields keep the
// stored value.
type ExerciseUpdate struct {
	ExerciseID   string
	Status       ExerciseStatus
	Score        *float64
	Attempts     *int
	WrongAnswers []string
}

// LearnmapUpdate is a positional update. Which node it targets depends on
// which ids are set: unit only, unit/lesson, or unit/lesson/exercise. Hearts
// may be changed on its own or alongside a node update.
type LearnmapUpdate struct {
	UnitID       string
	LessonID     string
	ExerciseID   string
	Status       string
	Score        *float64
	Attempts     *int
	CompletedAt  *time.Time
	WrongAnswers []string
	Hearts       *int
}

type FastTrackInput struct {
	UnitID             string
	LessonIDs          []string
	ChallengeAttemptID string
	CompletedAt        *time.Time
}

type ReviewInput struct {
	UnitID     string
	LessonID   string
	Score      *float64
	XPEarned   *int
	CoinEarned *int
	ReviewedAt *time.Time
}

// Result is returned by progression operations that can fail softly:
// Success=false with a Message means the call was understood but nothing
// matched.
type Result struct {
	Success          bool
	Message          string
	Progress         *Progress
	ExerciseProgress *ExerciseProgress
}
