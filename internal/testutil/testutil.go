package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/linguapath/learnmap/internal/db"
	"github.com/linguapath/learnmap/internal/worker"
)

// NewTestDB creates an in-memory SQLite database with all migrations applied.
func NewTestDB(t *testing.T) *sql.DB {
	d, err := db.Open(":memory:")
	require.NoError(t, err)
	return d.DB
}

// SeedCourse is one published course row set for catalog tests: units map to
// their lessons, each lesson seeds Exercises published ids "<lesson>-eN".
type SeedCourse struct {
	ID      string
	Units   []SeedUnit
	Private bool
}

type SeedUnit struct {
	ID        string
	SortOrder int
	Lessons   []SeedLesson
	Draft     bool
}

type SeedLesson struct {
	ID        string
	SortOrder int
	Exercises int
	Draft     bool
}

// Seed writes a course into the catalog tables.
func Seed(t *testing.T, sqlDB *sql.DB, c SeedCourse) {
	ctx := context.Background()
	_, err := sqlDB.ExecContext(ctx, `INSERT INTO courses (id, title, published) VALUES (?, ?, ?)`, c.ID, c.ID, !c.Private)
	require.NoError(t, err)
	for _, u := range c.Units {
		_, err := sqlDB.ExecContext(ctx, `INSERT INTO units (id, course_id, title, sort_order, published) VALUES (?, ?, ?, ?, ?)`,
			u.ID, c.ID, u.ID, u.SortOrder, !u.Draft)
		require.NoError(t, err)
		for _, l := range u.Lessons {
			_, err := sqlDB.ExecContext(ctx, `INSERT INTO lessons (id, unit_id, title, sort_order, published) VALUES (?, ?, ?, ?, ?)`,
				l.ID, u.ID, l.ID, l.SortOrder, !l.Draft)
			require.NoError(t, err)
			for i := 0; i < l.Exercises; i++ {
				_, err := sqlDB.ExecContext(ctx, `INSERT INTO exercises (id, lesson_id, sort_order, published) VALUES (?, ?, ?, 1)`,
					fmt.Sprintf("%s-e%d", l.ID, i+1), l.ID, i+1)
				require.NoError(t, err)
			}
		}
	}
}

// MustClose closes a resource and fails the test on error.
func MustClose(t *testing.T, closer interface{ Close() error }) {
	require.NoError(t, closer.Close())
}

// StartedPool returns a running worker pool that is stopped when the test
// ends.
func StartedPool(t *testing.T, shards int) *worker.Pool {
	p := worker.NewPool(shards, 16)
	p.Start(context.Background())
	t.Cleanup(p.Stop)
	return p
}
