package learnmap_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linguapath/learnmap/internal/learnmap"
	"github.com/linguapath/learnmap/internal/models"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// twoByTwo is a course with two units of two lessons each, listed out of
// order to make sure sort order rather than slice order drives the chain.
func twoByTwo(t *testing.T) *learnmap.Tree {
	t.Helper()
	units := []models.Unit{
		{ID: "u2", SortOrder: 20},
		{ID: "u1", SortOrder: 10},
	}
	lessons := map[string][]models.Lesson{
		"u1": {{ID: "u1-l2", SortOrder: 5}, {ID: "u1-l1", SortOrder: 1}},
		"u2": {{ID: "u2-l1", SortOrder: 1}, {ID: "u2-l2", SortOrder: 2}},
	}
	tree, err := learnmap.NewTree("course", units, lessons)
	require.NoError(t, err)
	return tree
}

func statuses(doc *models.Progress) map[string]models.Status {
	out := map[string]models.Status{}
	for _, u := range doc.Units {
		out[u.UnitID] = u.Status
		for _, l := range u.Lessons {
			out[l.LessonID] = l.Status
		}
	}
	return out
}

func TestNewTree_SortsAndDropsEmptyUnits(t *testing.T) {
	units := []models.Unit{
		{ID: "b", SortOrder: 2},
		{ID: "empty", SortOrder: 0},
		{ID: "a", SortOrder: 1},
	}
	lessons := map[string][]models.Lesson{
		"a": {{ID: "a2", SortOrder: 9}, {ID: "a1", SortOrder: 3}},
		"b": {{ID: "b1", SortOrder: 1}},
	}

	tree, err := learnmap.NewTree("c", units, lessons)
	require.NoError(t, err)
	require.Len(t, tree.Units, 2)
	assert.Equal(t, "a", tree.Units[0].ID)
	assert.Equal(t, "b", tree.Units[1].ID)
	assert.Equal(t, "a1", tree.Units[0].Lessons[0].ID)
	assert.Equal(t, "a2", tree.Units[0].Lessons[1].ID)
	assert.Nil(t, tree.Unit("empty"))
}

func TestNewTree_Malformed(t *testing.T) {
	tests := []struct {
		name    string
		units   []models.Unit
		lessons map[string][]models.Lesson
	}{
		{
			name:    "duplicate unit sort order",
			units:   []models.Unit{{ID: "a", SortOrder: 1}, {ID: "b", SortOrder: 1}},
			lessons: map[string][]models.Lesson{"a": {{ID: "a1"}}, "b": {{ID: "b1"}}},
		},
		{
			name:    "duplicate lesson sort order",
			units:   []models.Unit{{ID: "a", SortOrder: 1}},
			lessons: map[string][]models.Lesson{"a": {{ID: "a1", SortOrder: 1}, {ID: "a2", SortOrder: 1}}},
		},
		{
			name:    "unit without id",
			units:   []models.Unit{{ID: "", SortOrder: 1}},
			lessons: map[string][]models.Lesson{"": {{ID: "x"}}},
		},
		{
			name:    "duplicate lesson id",
			units:   []models.Unit{{ID: "a", SortOrder: 1}},
			lessons: map[string][]models.Lesson{"a": {{ID: "a1", SortOrder: 1}, {ID: "a1", SortOrder: 2}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := learnmap.NewTree("c", tt.units, tt.lessons)
			assert.ErrorIs(t, err, learnmap.ErrMalformedCatalog)
		})
	}
}

func TestEvaluate_NilTree(t *testing.T) {
	_, err := learnmap.Evaluate(nil, &models.Progress{})
	assert.ErrorIs(t, err, learnmap.ErrMalformedCatalog)
}

func TestNewProgress_InitialUnlocks(t *testing.T) {
	doc, err := learnmap.NewProgress(twoByTwo(t), "user", 5, now)
	require.NoError(t, err)

	assert.Equal(t, "course", doc.CourseID)
	assert.Equal(t, 5, doc.Hearts)
	require.Len(t, doc.Units, 2)
	assert.Equal(t, "u1", doc.Units[0].UnitID)
	assert.Equal(t, []string{"u1-l1", "u1-l2", "u2-l1", "u2-l2"}, doc.LessonIDs())

	assert.Equal(t, map[string]models.Status{
		"u1":    models.StatusUnlocked,
		"u1-l1": models.StatusUnlocked,
		"u1-l2": models.StatusLocked,
		"u2":    models.StatusLocked,
		"u2-l1": models.StatusLocked,
		"u2-l2": models.StatusLocked,
	}, statuses(doc))
	assert.Empty(t, doc.FastTrackHistory)
}

func TestEvaluate_UnlocksSuccessorsOfCompletedNodes(t *testing.T) {
	tree := twoByTwo(t)
	doc, err := learnmap.NewProgress(tree, "user", 5, now)
	require.NoError(t, err)

	_, l1 := doc.Lesson("u1-l1")
	l1.Status = models.StatusCompleted
	muts, err := learnmap.Cascade(tree, doc)
	require.NoError(t, err)
	require.Len(t, muts, 1)
	assert.Equal(t, learnmap.Mutation{Level: learnmap.LevelLesson, UnitID: "u1", LessonID: "u1-l2", From: models.StatusLocked, To: models.StatusUnlocked}, muts[0])

	_, l2 := doc.Lesson("u1-l2")
	l2.Status = models.StatusCompleted
	doc.Units[0].Status = models.StatusCompleted
	muts, err = learnmap.Cascade(tree, doc)
	require.NoError(t, err)
	require.Len(t, muts, 2)
	assert.Equal(t, learnmap.LevelUnit, muts[0].Level)
	assert.Equal(t, "u2", muts[0].UnitID)
	assert.Equal(t, "u2-l1", muts[1].LessonID)
	assert.Equal(t, models.StatusLocked, statuses(doc)["u2-l2"])
}

func TestEvaluate_Idempotent(t *testing.T) {
	tree := twoByTwo(t)
	doc, err := learnmap.NewProgress(tree, "user", 5, now)
	require.NoError(t, err)
	doc.Units[0].Status = models.StatusCompleted
	doc.Units[0].Lessons[0].Status = models.StatusCompleted
	doc.Units[0].Lessons[1].Status = models.StatusCompleted

	_, err = learnmap.Cascade(tree, doc)
	require.NoError(t, err)
	snapshot := doc.Clone()

	muts, err := learnmap.Cascade(tree, doc)
	require.NoError(t, err)
	assert.Empty(t, muts)
	assert.Equal(t, snapshot, doc)
}

func TestEvaluate_NeverDemotes(t *testing.T) {
	tree := twoByTwo(t)
	doc, err := learnmap.NewProgress(tree, "user", 5, now)
	require.NoError(t, err)
	// u2 was fast tracked even though u1 is not done.
	doc.Units[1].Status = models.StatusCompleted
	doc.Units[1].Lessons[0].Status = models.StatusCompleted
	doc.Units[1].Lessons[1].Status = models.StatusInProgress

	muts, err := learnmap.Evaluate(tree, doc)
	require.NoError(t, err)
	assert.Empty(t, muts)
	assert.Equal(t, models.StatusCompleted, doc.Units[1].Status)
	assert.Equal(t, models.StatusInProgress, doc.Units[1].Lessons[1].Status)
}

func TestEvaluate_SkipsNodesMissingFromProgress(t *testing.T) {
	tree := twoByTwo(t)
	doc := &models.Progress{
		Units: []models.UnitProgress{
			{UnitID: "u1", Status: models.StatusCompleted, Lessons: []models.LessonProgress{
				{LessonID: "u1-l1", Status: models.StatusCompleted},
			}},
			{UnitID: "u2", Status: models.StatusLocked, Lessons: []models.LessonProgress{
				{LessonID: "u2-l2", Status: models.StatusLocked},
			}},
		},
	}

	muts, err := learnmap.Evaluate(tree, doc)
	require.NoError(t, err)
	// u2 unlocks; u2-l1 has no node so u2-l2 has no completed predecessor.
	require.Len(t, muts, 1)
	assert.Equal(t, "u2", muts[0].UnitID)
	assert.Equal(t, learnmap.LevelUnit, muts[0].Level)
}

func TestEvaluate_LessonAfterCompletedPredecessorInLockedUnit(t *testing.T) {
	tree := twoByTwo(t)
	doc, err := learnmap.NewProgress(tree, "user", 5, now)
	require.NoError(t, err)
	doc.Units[1].Lessons[0].Status = models.StatusCompleted

	muts, err := learnmap.Evaluate(tree, doc)
	require.NoError(t, err)
	require.Len(t, muts, 1)
	assert.Equal(t, "u2-l2", muts[0].LessonID)
}

func TestApply_IgnoresUnknownNodes(t *testing.T) {
	doc := &models.Progress{Units: []models.UnitProgress{{UnitID: "u1", Status: models.StatusLocked}}}
	learnmap.Apply(doc, []learnmap.Mutation{
		{Level: learnmap.LevelUnit, UnitID: "nope", To: models.StatusUnlocked},
		{Level: learnmap.LevelLesson, UnitID: "u1", LessonID: "nope", To: models.StatusUnlocked},
	})
	assert.Equal(t, models.StatusLocked, doc.Units[0].Status)
}
