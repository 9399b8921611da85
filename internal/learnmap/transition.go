package learnmap

import (
	"errors"
	"fmt"
	"time"

	"github.com/linguapath/learnmap/internal/models"
)

var (
	ErrUnknownStatus = errors.New("learnmap: unknown status")
	ErrRegression    = errors.New("learnmap: status cannot move backward")
	ErrLocked        = errors.New("learnmap: node is locked")
)

// Advance moves a node along the normal path locked -> unlocked ->
// in_progress -> completed. A target further than one step walks through the
// intermediate states. Locked nodes only leave that state through Evaluate,
// so Advance refuses them.
func Advance(cur, target models.Status) (models.Status, error) {
	if !target.Valid() {
		return cur, fmt.Errorf("%w: %q", ErrUnknownStatus, target)
	}
	if target == cur {
		return cur, nil
	}
	if target.Rank() < cur.Rank() {
		return cur, fmt.Errorf("%w: %s to %s", ErrRegression, cur, target)
	}
	if cur == models.StatusLocked {
		return cur, ErrLocked
	}
	return target, nil
}

// FastTrack is the alternate transition: any node goes straight to
// completed. It is the only path that may leave locked without Evaluate.
func FastTrack(cur models.Status) models.Status {
	return models.StatusCompleted
}

// CompleteLesson moves lp to completed through the normal path and stamps
// the completion time. It reports whether anything changed.
func CompleteLesson(lp *models.LessonProgress, at time.Time) (bool, error) {
	if lp.Status == models.StatusCompleted {
		return false, nil
	}
	next, err := Advance(lp.Status, models.StatusCompleted)
	if err != nil {
		return false, err
	}
	lp.Status = next
	stamp(&lp.CompletedAt, at)
	return true, nil
}

// FastTrackLesson completes lp regardless of its current status.
func FastTrackLesson(lp *models.LessonProgress, at time.Time) bool {
	if lp.Status == models.StatusCompleted {
		return false
	}
	lp.Status = FastTrack(lp.Status)
	stamp(&lp.CompletedAt, at)
	return true
}

// FastTrackUnit completes up and every lesson beneath it. It returns the
// mutations it made.
func FastTrackUnit(up *models.UnitProgress, at time.Time) []Mutation {
	var muts []Mutation
	for i := range up.Lessons {
		lp := &up.Lessons[i]
		from := lp.Status
		if FastTrackLesson(lp, at) {
			muts = append(muts, Mutation{Level: LevelLesson, UnitID: up.UnitID, LessonID: lp.LessonID, From: from, To: lp.Status})
		}
	}
	if up.Status != models.StatusCompleted {
		from := up.Status
		up.Status = FastTrack(up.Status)
		stamp(&up.CompletedAt, at)
		muts = append(muts, Mutation{Level: LevelUnit, UnitID: up.UnitID, From: from, To: up.Status})
	}
	return muts
}

// FastTrackFinishedUnit completes up through the fast-track path once every
// lesson beneath it is completed. Callers use it only for units whose lessons
// were fast tracked.
func FastTrackFinishedUnit(up *models.UnitProgress, at time.Time) bool {
	if up.Status == models.StatusCompleted || !up.AllLessonsCompleted() {
		return false
	}
	up.Status = FastTrack(up.Status)
	stamp(&up.CompletedAt, at)
	return true
}

func stamp(dst **time.Time, at time.Time) {
	if *dst == nil {
		t := at
		*dst = &t
	}
}
