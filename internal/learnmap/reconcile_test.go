package learnmap_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linguapath/learnmap/internal/learnmap"
	"github.com/linguapath/learnmap/internal/models"
)

func TestReconcile_NoChangeOnFreshDocument(t *testing.T) {
	tree := twoByTwo(t)
	doc, err := learnmap.NewProgress(tree, "user", 5, now)
	require.NoError(t, err)
	before := doc.Clone()

	changed, err := learnmap.Reconcile(tree, doc)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, before, doc)
}

func TestReconcile_AddsNewContentLocked(t *testing.T) {
	doc, err := learnmap.NewProgress(twoByTwo(t), "user", 5, now)
	require.NoError(t, err)
	doc.Units[0].Lessons[0].Status = models.StatusCompleted

	grown, err := learnmap.NewTree("course",
		[]models.Unit{{ID: "u1", SortOrder: 10}, {ID: "u2", SortOrder: 20}, {ID: "u3", SortOrder: 30}},
		map[string][]models.Lesson{
			"u1": {{ID: "u1-l1", SortOrder: 1}, {ID: "u1-new", SortOrder: 2}, {ID: "u1-l2", SortOrder: 5}},
			"u2": {{ID: "u2-l1", SortOrder: 1}, {ID: "u2-l2", SortOrder: 2}},
			"u3": {{ID: "u3-l1", SortOrder: 1}},
		})
	require.NoError(t, err)

	changed, err := learnmap.Reconcile(grown, doc)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, []string{"u1-l1", "u1-new", "u1-l2", "u2-l1", "u2-l2", "u3-l1"}, doc.LessonIDs())

	_, added := doc.Lesson("u1-new")
	require.NotNil(t, added)
	assert.Equal(t, models.StatusLocked, added.Status)
	assert.Equal(t, models.StatusCompleted, doc.Units[0].Lessons[0].Status)

	muts, err := learnmap.Cascade(grown, doc)
	require.NoError(t, err)
	require.Len(t, muts, 1)
	assert.Equal(t, "u1-new", muts[0].LessonID)
}

func TestReconcile_KeepsOrphansAndReorders(t *testing.T) {
	doc := &models.Progress{Units: []models.UnitProgress{
		{UnitID: "gone", Status: models.StatusCompleted, Lessons: []models.LessonProgress{{LessonID: "g1", Status: models.StatusCompleted}}},
		{UnitID: "u2", Status: models.StatusLocked, Lessons: []models.LessonProgress{{LessonID: "u2-l1"}, {LessonID: "u2-l2"}}},
		{UnitID: "u1", Status: models.StatusUnlocked, Lessons: []models.LessonProgress{{LessonID: "u1-l2"}, {LessonID: "u1-l1"}}},
	}}

	changed, err := learnmap.Reconcile(twoByTwo(t), doc)
	require.NoError(t, err)
	assert.True(t, changed)
	require.Len(t, doc.Units, 3)
	assert.Equal(t, "u1", doc.Units[0].UnitID)
	assert.Equal(t, "u2", doc.Units[1].UnitID)
	assert.Equal(t, "gone", doc.Units[2].UnitID)
	assert.Equal(t, "u1-l1", doc.Units[0].Lessons[0].LessonID)
}
