package learnmap

import (
	"time"

	"github.com/linguapath/learnmap/internal/models"
)

// NewProgress builds the initial document for a course: every unit and
// lesson of the tree, the first unit and its first lesson unlocked, the rest
// locked. Exercise nodes are created lazily on the first attempt.
func NewProgress(tree *Tree, userID string, hearts int, now time.Time) (*models.Progress, error) {
	ordered, err := tree.ordered()
	if err != nil {
		return nil, err
	}
	doc := &models.Progress{
		UserID:           userID,
		CourseID:         ordered.CourseID,
		Hearts:           hearts,
		LastHeartUpdate:  now,
		Units:            make([]models.UnitProgress, 0, len(ordered.Units)),
		FastTrackHistory: []models.FastTrackRecord{},
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	for _, u := range ordered.Units {
		doc.Units = append(doc.Units, newUnitProgress(u))
	}
	if _, err := Cascade(ordered, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// Reconcile adds locked progress nodes for catalog units and lessons that doc
// does not know yet, and reorders existing nodes to catalog order. Nodes that
// are no longer in the catalog are kept after the catalog ones. It reports
// whether doc changed.
func Reconcile(tree *Tree, doc *models.Progress) (bool, error) {
	ordered, err := tree.ordered()
	if err != nil {
		return false, err
	}

	changed := false
	used := make(map[string]bool, len(doc.Units))
	units := make([]models.UnitProgress, 0, len(ordered.Units))
	for _, u := range ordered.Units {
		existing := doc.Unit(u.ID)
		if existing == nil {
			units = append(units, newUnitProgress(u))
			changed = true
			continue
		}
		used[u.ID] = true
		merged, lessonsChanged := reconcileLessons(u, existing)
		changed = changed || lessonsChanged
		units = append(units, merged)
	}
	for _, up := range doc.Units {
		if !used[up.UnitID] && ordered.Unit(up.UnitID) == nil {
			units = append(units, up)
		}
	}

	if !changed && !sameUnitOrder(doc.Units, units) {
		changed = true
	}
	if changed {
		doc.Units = units
	}
	return changed, nil
}

func reconcileLessons(u UnitNode, existing *models.UnitProgress) (models.UnitProgress, bool) {
	out := *existing
	out.Lessons = make([]models.LessonProgress, 0, len(u.Lessons))
	changed := false
	inCatalog := make(map[string]bool, len(u.Lessons))
	for _, l := range u.Lessons {
		inCatalog[l.ID] = true
		if lp := existing.Lesson(l.ID); lp != nil {
			out.Lessons = append(out.Lessons, *lp)
			continue
		}
		out.Lessons = append(out.Lessons, models.LessonProgress{
			LessonID:  l.ID,
			Status:    models.StatusLocked,
			Exercises: []models.ExerciseProgress{},
		})
		changed = true
	}
	for _, lp := range existing.Lessons {
		if !inCatalog[lp.LessonID] {
			out.Lessons = append(out.Lessons, lp)
		}
	}
	if !changed && !sameLessonOrder(existing.Lessons, out.Lessons) {
		changed = true
	}
	return out, changed
}

func newUnitProgress(u UnitNode) models.UnitProgress {
	up := models.UnitProgress{
		UnitID:  u.ID,
		Status:  models.StatusLocked,
		Lessons: make([]models.LessonProgress, 0, len(u.Lessons)),
	}
	for _, l := range u.Lessons {
		up.Lessons = append(up.Lessons, models.LessonProgress{
			LessonID:  l.ID,
			Status:    models.StatusLocked,
			Exercises: []models.ExerciseProgress{},
		})
	}
	return up
}

func sameUnitOrder(a, b []models.UnitProgress) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].UnitID != b[i].UnitID {
			return false
		}
	}
	return true
}

func sameLessonOrder(a, b []models.LessonProgress) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].LessonID != b[i].LessonID {
			return false
		}
	}
	return true
}
