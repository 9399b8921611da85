package models

import "time"

// Status is the unlock state of a unit or lesson progress node.
type Status string

const (
	StatusLocked     Status = "locked"
	StatusUnlocked   Status = "unlocked"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// Rank orders statuses along locked < unlocked < in_progress < completed.
// Unknown values rank below locked.
func (s Status) Rank() int {
	switch s {
	case StatusLocked:
		return 0
	case StatusUnlocked:
		return 1
	case StatusInProgress:
		return 2
	case StatusCompleted:
		return 3
	default:
		return -1
	}
}

func (s Status) Valid() bool {
	return s.Rank() >= 0
}

// AtLeast reports whether s is other or further along.
func (s Status) AtLeast(other Status) bool {
	return s.Rank() >= other.Rank()
}

type ExerciseStatus string

const (
	ExerciseNotStarted ExerciseStatus = "NOT_STARTED"
	ExerciseInProgress ExerciseStatus = "IN_PROGRESS"
	ExerciseCompleted  ExerciseStatus = "COMPLETED"
)

func (s ExerciseStatus) Rank() int {
	switch s {
	case ExerciseNotStarted:
		return 0
	case ExerciseInProgress:
		return 1
	case ExerciseCompleted:
		return 2
	default:
		return -1
	}
}

func (s ExerciseStatus) Valid() bool {
	return s.Rank() >= 0
}

// Progress is the per (user, course) learnmap document. It is read and
// written back as a whole.
type Progress struct {
	ID               string            `json:"id" bson:"_id"`
	UserID           string            `json:"user_id" bson:"user_id"`
	CourseID         string            `json:"course_id" bson:"course_id"`
	Hearts           int               `json:"hearts" bson:"hearts"`
	LastHeartUpdate  time.Time         `json:"last_heart_update" bson:"last_heart_update"`
	Units            []UnitProgress    `json:"unit_progress" bson:"unit_progress"`
	FastTrackHistory []FastTrackRecord `json:"fast_track_history" bson:"fast_track_history"`
	Version          int64             `json:"version" bson:"version"`
	CreatedAt        time.Time         `json:"created_at" bson:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at" bson:"updated_at"`
}

type UnitProgress struct {
	UnitID      string           `json:"unit_id" bson:"unit_id"`
	Status      Status           `json:"status" bson:"status"`
	CompletedAt *time.Time       `json:"completed_at,omitempty" bson:"completed_at,omitempty"`
	Lessons     []LessonProgress `json:"lessons" bson:"lessons"`
}

type LessonProgress struct {
	LessonID    string             `json:"lesson_id" bson:"lesson_id"`
	Status      Status             `json:"status" bson:"status"`
	CompletedAt *time.Time         `json:"completed_at,omitempty" bson:"completed_at,omitempty"`
	Exercises   []ExerciseProgress `json:"exercises" bson:"exercises"`
	Reviews     []ReviewEntry      `json:"reviews,omitempty" bson:"reviews,omitempty"`
}

type ExerciseProgress struct {
	ExerciseID    string         `json:"exercise_id" bson:"exercise_id"`
	Status        ExerciseStatus `json:"status" bson:"status"`
	Score         float64        `json:"score" bson:"score"`
	Attempts      int            `json:"attempts" bson:"attempts"`
	LastAttemptAt *time.Time     `json:"last_attempt_at,omitempty" bson:"last_attempt_at,omitempty"`
	WrongAnswers  []string       `json:"wrong_answers,omitempty" bson:"wrong_answers,omitempty"`
}

// ReviewEntry is immutable once appended.
type ReviewEntry struct {
	Score      float64   `json:"score" bson:"score"`
	XPEarned   int       `json:"xp_earned" bson:"xp_earned"`
	CoinEarned int       `json:"coin_earned" bson:"coin_earned"`
	ReviewedAt time.Time `json:"reviewed_at" bson:"reviewed_at"`
}

type FastTrackRecord struct {
	ID                 string    `json:"id" bson:"id"`
	UnitID             string    `json:"unit_id,omitempty" bson:"unit_id,omitempty"`
	LessonIDs          []string  `json:"lesson_ids,omitempty" bson:"lesson_ids,omitempty"`
	ChallengeAttemptID string    `json:"challenge_attempt_id,omitempty" bson:"challenge_attempt_id,omitempty"`
	CompletedAt        time.Time `json:"completed_at" bson:"completed_at"`
}

// Unit returns the progress node for unitID, or nil.
func (p *Progress) Unit(unitID string) *UnitProgress {
	for i := range p.Units {
		if p.Units[i].UnitID == unitID {
			return &p.Units[i]
		}
	}
	return nil
}

// Lesson searches every unit for lessonID and returns the owning unit too.
func (p *Progress) Lesson(lessonID string) (*UnitProgress, *LessonProgress) {
	for i := range p.Units {
		if l := p.Units[i].Lesson(lessonID); l != nil {
			return &p.Units[i], l
		}
	}
	return nil, nil
}

// LessonIDs lists every lesson referenced by the document, in document order.
func (p *Progress) LessonIDs() []string {
	var ids []string
	for _, u := range p.Units {
		for _, l := range u.Lessons {
			ids = append(ids, l.LessonID)
		}
	}
	return ids
}

func (u *UnitProgress) Lesson(lessonID string) *LessonProgress {
	for i := range u.Lessons {
		if u.Lessons[i].LessonID == lessonID {
			return &u.Lessons[i]
		}
	}
	return nil
}

// AllLessonsCompleted is false for a unit without lesson nodes.
func (u *UnitProgress) AllLessonsCompleted() bool {
	if len(u.Lessons) == 0 {
		return false
	}
	for _, l := range u.Lessons {
		if l.Status != StatusCompleted {
			return false
		}
	}
	return true
}

func (l *LessonProgress) Exercise(exerciseID string) *ExerciseProgress {
	for i := range l.Exercises {
		if l.Exercises[i].ExerciseID == exerciseID {
			return &l.Exercises[i]
		}
	}
	return nil
}

// CompletedExercises counts the completed nodes among exerciseIDs. Nodes for
// exercises outside that list are ignored.
func (l *LessonProgress) CompletedExercises(exerciseIDs []string) int {
	n := 0
	for _, id := range exerciseIDs {
		if e := l.Exercise(id); e != nil && e.Status == ExerciseCompleted {
			n++
		}
	}
	return n
}

// Clone returns a deep copy so callers can mutate without touching the
// original tree.
func (p *Progress) Clone() *Progress {
	if p == nil {
		return nil
	}
	out := *p
	if p.Units != nil {
		out.Units = make([]UnitProgress, len(p.Units))
		for i, u := range p.Units {
			out.Units[i] = u.clone()
		}
	}
	if p.FastTrackHistory != nil {
		out.FastTrackHistory = make([]FastTrackRecord, len(p.FastTrackHistory))
		for i, r := range p.FastTrackHistory {
			r.LessonIDs = cloneStrings(r.LessonIDs)
			out.FastTrackHistory[i] = r
		}
	}
	return &out
}

func (u UnitProgress) clone() UnitProgress {
	u.CompletedAt = cloneTime(u.CompletedAt)
	if u.Lessons != nil {
		lessons := make([]LessonProgress, len(u.Lessons))
		for i, l := range u.Lessons {
			lessons[i] = l.clone()
		}
		u.Lessons = lessons
	}
	return u
}

func (l LessonProgress) clone() LessonProgress {
	l.CompletedAt = cloneTime(l.CompletedAt)
	if l.Exercises != nil {
		exercises := make([]ExerciseProgress, len(l.Exercises))
		for i, e := range l.Exercises {
			e.LastAttemptAt = cloneTime(e.LastAttemptAt)
			e.WrongAnswers = cloneStrings(e.WrongAnswers)
			exercises[i] = e
		}
		l.Exercises = exercises
	}
	if l.Reviews != nil {
		l.Reviews = append(make([]ReviewEntry, 0, len(l.Reviews)), l.Reviews...)
	}
	return l
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append(make([]string, 0, len(in)), in...)
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
