package catalog_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linguapath/learnmap/internal/catalog"
)

const sample = `
courses:
  - id: spanish
    title: Spanish
    units:
      - id: u2
        sort_order: 20
        lessons:
          - id: u2-l1
            sort_order: 1
            exercises:
              - {id: u2-l1-e1, sort_order: 1}
      - id: u1
        sort_order: 10
        lessons:
          - id: u1-l2
            sort_order: 5
            exercises:
              - {id: u1-l2-e1, sort_order: 1}
              - {id: u1-l2-e2, sort_order: 2, draft: true}
          - id: u1-l1
            sort_order: 1
      - id: u3
        sort_order: 30
        draft: true
  - id: french
    draft: true
`

func TestParse(t *testing.T) {
	ctx := context.Background()
	c, err := catalog.Parse([]byte(sample))
	require.NoError(t, err)

	course, err := c.GetCourse(ctx, "spanish")
	require.NoError(t, err)
	require.NotNil(t, course)
	assert.True(t, course.Published)

	french, err := c.GetCourse(ctx, "french")
	require.NoError(t, err)
	require.NotNil(t, french)
	assert.False(t, french.Published)

	missing, err := c.GetCourse(ctx, "klingon")
	require.NoError(t, err)
	assert.Nil(t, missing)

	units, err := c.GetPublishedUnits(ctx, "spanish")
	require.NoError(t, err)
	require.Len(t, units, 2)
	assert.Equal(t, "u1", units[0].ID)
	assert.Equal(t, "u2", units[1].ID)

	lessons, err := c.GetPublishedLessons(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, lessons, 2)
	assert.Equal(t, "u1-l1", lessons[0].ID)
	assert.Equal(t, "u1-l2", lessons[1].ID)

	ids, err := c.GetPublishedExerciseIDs(ctx, "u1-l2")
	require.NoError(t, err)
	assert.Equal(t, []string{"u1-l2-e1"}, ids)

	ids, err = c.GetPublishedExerciseIDs(ctx, "u1-l1")
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestParse_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	c, err := catalog.Parse([]byte(sample))
	require.NoError(t, err)

	units, _ := c.GetPublishedUnits(ctx, "spanish")
	units[0].ID = "mutated"

	again, _ := c.GetPublishedUnits(ctx, "spanish")
	assert.Equal(t, "u1", again[0].ID)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr string
	}{
		{
			name:    "unknown field",
			doc:     "courses:\n  - id: c\n    colour: red\n",
			wantErr: "failed to parse catalog",
		},
		{
			name:    "duplicate id",
			doc:     "courses:\n  - id: c\n    units:\n      - id: c\n",
			wantErr: `duplicate id "c"`,
		},
		{
			name:    "empty id",
			doc:     "courses:\n  - id: c\n    units:\n      - sort_order: 1\n",
			wantErr: "unit with empty id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := catalog.Parse([]byte(tt.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))

	c, err := catalog.LoadFile(path)
	require.NoError(t, err)
	ids, err := c.GetPublishedExerciseIDs(context.Background(), "u2-l1")
	require.NoError(t, err)
	assert.Equal(t, []string{"u2-l1-e1"}, ids)

	_, err = catalog.LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
