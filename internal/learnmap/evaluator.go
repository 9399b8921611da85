package learnmap

import "github.com/linguapath/learnmap/internal/models"

type Level string

const (
	LevelUnit   Level = "unit"
	LevelLesson Level = "lesson"
)

// Mutation is one status change on a progress node. LessonID is empty for
// unit mutations.
type Mutation struct {
	Level    Level
	UnitID   string
	LessonID string
	From     models.Status
	To       models.Status
}

// Evaluate computes the unlocks that bring doc in line with the catalog
// ordering. It never demotes a node and never touches completion; it only
// moves locked nodes to unlocked.
//
// Unit i is eligible when it is first or unit i-1 is completed. Lesson j is
// eligible when it is first and its unit is unlocked or further, or lesson
// j-1 is completed. Catalog nodes without a progress node are skipped, and a
// skipped predecessor counts as not completed.
func Evaluate(tree *Tree, doc *models.Progress) ([]Mutation, error) {
	ordered, err := tree.ordered()
	if err != nil {
		return nil, err
	}

	var muts []Mutation
	prevUnitCompleted := false
	for i, unit := range ordered.Units {
		up := doc.Unit(unit.ID)
		if up == nil {
			prevUnitCompleted = false
			continue
		}

		unitStatus := up.Status
		if unitStatus == models.StatusLocked && (i == 0 || prevUnitCompleted) {
			muts = append(muts, Mutation{Level: LevelUnit, UnitID: unit.ID, From: unitStatus, To: models.StatusUnlocked})
			unitStatus = models.StatusUnlocked
		}

		prevLessonCompleted := false
		for j, lesson := range unit.Lessons {
			lp := up.Lesson(lesson.ID)
			if lp == nil {
				prevLessonCompleted = false
				continue
			}
			eligible := (j == 0 && unitStatus.AtLeast(models.StatusUnlocked)) || prevLessonCompleted
			if lp.Status == models.StatusLocked && eligible {
				muts = append(muts, Mutation{
					Level:    LevelLesson,
					UnitID:   unit.ID,
					LessonID: lesson.ID,
					From:     lp.Status,
					To:       models.StatusUnlocked,
				})
			}
			prevLessonCompleted = lp.Status == models.StatusCompleted
		}

		prevUnitCompleted = up.Status == models.StatusCompleted
	}
	return muts, nil
}

// Apply writes muts into doc. Mutations naming nodes that are not in doc are
// ignored.
func Apply(doc *models.Progress, muts []Mutation) {
	for _, m := range muts {
		up := doc.Unit(m.UnitID)
		if up == nil {
			continue
		}
		switch m.Level {
		case LevelUnit:
			up.Status = m.To
		case LevelLesson:
			if lp := up.Lesson(m.LessonID); lp != nil {
				lp.Status = m.To
			}
		}
	}
}

// Cascade evaluates and applies in one step, returning what changed.
func Cascade(tree *Tree, doc *models.Progress) ([]Mutation, error) {
	muts, err := Evaluate(tree, doc)
	if err != nil {
		return nil, err
	}
	Apply(doc, muts)
	return muts, nil
}
