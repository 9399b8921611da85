package learnmap

import (
	"time"

	"github.com/linguapath/learnmap/internal/models"
)

// RollUp completes every unit whose lesson nodes are all completed. It only
// walks the normal path, so a locked unit keeps waiting for Evaluate to
// unlock it.
func RollUp(doc *models.Progress, at time.Time) []Mutation {
	var muts []Mutation
	for i := range doc.Units {
		up := &doc.Units[i]
		if up.Status == models.StatusCompleted || !up.AllLessonsCompleted() {
			continue
		}
		next, err := Advance(up.Status, models.StatusCompleted)
		if err != nil {
			continue
		}
		from := up.Status
		up.Status = next
		stamp(&up.CompletedAt, at)
		muts = append(muts, Mutation{Level: LevelUnit, UnitID: up.UnitID, From: from, To: up.Status})
	}
	return muts
}

// Settle alternates RollUp and Cascade until neither changes doc, so a unit
// unlocked by the cascade can still roll up in the same pass.
func Settle(tree *Tree, doc *models.Progress, at time.Time) ([]Mutation, error) {
	var all []Mutation
	for {
		rolled := RollUp(doc, at)
		cascaded, err := Cascade(tree, doc)
		if err != nil {
			return nil, err
		}
		if len(rolled) == 0 && len(cascaded) == 0 {
			return all, nil
		}
		all = append(all, rolled...)
		all = append(all, cascaded...)
	}
}

// Start moves an unlocked lesson, and its unlocked unit, to in_progress.
// Nodes further along are left alone.
func Start(up *models.UnitProgress, lp *models.LessonProgress) []Mutation {
	var muts []Mutation
	if lp.Status == models.StatusUnlocked {
		lp.Status = models.StatusInProgress
		muts = append(muts, Mutation{Level: LevelLesson, UnitID: up.UnitID, LessonID: lp.LessonID, From: models.StatusUnlocked, To: lp.Status})
	}
	if up.Status == models.StatusUnlocked {
		up.Status = models.StatusInProgress
		muts = append(muts, Mutation{Level: LevelUnit, UnitID: up.UnitID, From: models.StatusUnlocked, To: up.Status})
	}
	return muts
}
