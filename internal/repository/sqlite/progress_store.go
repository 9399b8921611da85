package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/linguapath/learnmap/internal/logger"
	"github.com/linguapath/learnmap/internal/models"
	"github.com/linguapath/learnmap/internal/repository"
)

type progressStore struct {
	db *sql.DB
}

// NewProgressStore creates a ProgressStore that keeps each document as one
// JSON row, versioned for compare-and-swap saves.
func NewProgressStore(db *sql.DB) repository.ProgressStore {
	return &progressStore{db: db}
}

const progressColumns = `id, document, version, created_at, updated_at`

func (s *progressStore) FindProgress(ctx context.Context, userID, courseID string) (*models.Progress, error) {
	log := logger.FromContext(ctx).WithPrefix("progress_store")
	log.Debug("finding progress: user_id=%s, course_id=%s", userID, courseID)

	row := s.db.QueryRowContext(ctx, `
SELECT `+progressColumns+`
FROM progress_documents
WHERE user_id = ? AND course_id = ?
`, userID, courseID)
	doc, err := scanProgress(row)
	if err != nil {
		log.Error("failed to find progress: %v", err)
		return nil, err
	}
	return doc, nil
}

func (s *progressStore) FindProgressByLesson(ctx context.Context, userID, lessonID string) (*models.Progress, error) {
	log := logger.FromContext(ctx).WithPrefix("progress_store")
	log.Debug("finding progress by lesson: user_id=%s, lesson_id=%s", userID, lessonID)

	row := s.db.QueryRowContext(ctx, `
SELECT p.id, p.document, p.version, p.created_at, p.updated_at
FROM progress_documents p
JOIN progress_lessons pl ON pl.progress_id = p.id
WHERE pl.user_id = ? AND pl.lesson_id = ?
ORDER BY p.created_at ASC
LIMIT 1
`, userID, lessonID)
	doc, err := scanProgress(row)
	if err != nil {
		log.Error("failed to find progress by lesson: %v", err)
		return nil, err
	}
	return doc, nil
}

func (s *progressStore) CreateProgress(ctx context.Context, doc *models.Progress) (*models.Progress, error) {
	log := logger.FromContext(ctx).WithPrefix("progress_store")

	created := doc.Clone()
	if created.ID == "" {
		created.ID = uuid.NewString()
	}
	created.Version = 1
	if created.CreatedAt.IsZero() {
		created.CreatedAt = time.Now().UTC()
	}
	created.UpdatedAt = created.CreatedAt
	log.Debug("creating progress: id=%s, user_id=%s, course_id=%s", created.ID, created.UserID, created.CourseID)

	body, err := json.Marshal(created)
	if err != nil {
		log.Error("failed to encode progress: %v", err)
		return nil, err
	}

	err = tx(ctx, s.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
INSERT INTO progress_documents (id, user_id, course_id, hearts, document, version, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(user_id, course_id) DO NOTHING
`, created.ID, created.UserID, created.CourseID, created.Hearts, string(body), created.Version, created.CreatedAt, created.UpdatedAt)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return repository.ErrAlreadyExists
		}
		return writeLessonIndex(ctx, tx, created)
	})
	if err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			log.Debug("progress already exists: user_id=%s, course_id=%s", created.UserID, created.CourseID)
		} else {
			log.Error("failed to create progress: %v", err)
		}
		return nil, err
	}
	log.Debug("progress created: id=%s", created.ID)
	return created, nil
}

func (s *progressStore) SaveProgress(ctx context.Context, doc *models.Progress) error {
	log := logger.FromContext(ctx).WithPrefix("progress_store")
	log.Debug("saving progress: id=%s, version=%d", doc.ID, doc.Version)

	next := doc.Clone()
	next.Version = doc.Version + 1
	next.UpdatedAt = time.Now().UTC()
	body, err := json.Marshal(next)
	if err != nil {
		log.Error("failed to encode progress: %v", err)
		return err
	}

	err = tx(ctx, s.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
UPDATE progress_documents
SET hearts = ?, document = ?, version = ?, updated_at = ?
WHERE id = ? AND version = ?
`, next.Hearts, string(body), next.Version, next.UpdatedAt, doc.ID, doc.Version)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return repository.ErrVersionConflict
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM progress_lessons WHERE progress_id = ?`, doc.ID); err != nil {
			return err
		}
		return writeLessonIndex(ctx, tx, next)
	})
	if err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			log.Warn("progress %s changed since version %d was read", doc.ID, doc.Version)
		} else {
			log.Error("failed to save progress: %v", err)
		}
		return err
	}

	doc.Version = next.Version
	doc.UpdatedAt = next.UpdatedAt
	log.Debug("progress saved: id=%s, version=%d", doc.ID, doc.Version)
	return nil
}

func (s *progressStore) ListBelowHearts(ctx context.Context, maxHearts int) ([]models.Progress, error) {
	log := logger.FromContext(ctx).WithPrefix("progress_store")
	log.Debug("listing progress below %d hearts", maxHearts)

	query, args, err := sqlBuilder.
		Select("id", "document", "version", "created_at", "updated_at").
		From("progress_documents").
		Where(squirrel.Lt{"hearts": maxHearts}).
		OrderBy("updated_at ASC").
		ToSql()
	if err != nil {
		log.Error("failed to build query: %v", err)
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to list progress: %v", err)
		return nil, err
	}
	defer rows.Close()

	var docs []models.Progress
	for rows.Next() {
		doc, err := scanProgress(rows)
		if err != nil {
			log.Error("failed to scan progress row: %v", err)
			return nil, err
		}
		docs = append(docs, *doc)
	}
	log.Debug("found %d documents below the hearts cap", len(docs))
	return docs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

// scanProgress decodes one progress row. The id and version columns win over
// whatever the JSON body carries.
func scanProgress(row scanner) (*models.Progress, error) {
	var (
		id        string
		body      string
		version   int64
		createdAt time.Time
		updatedAt time.Time
	)
	err := row.Scan(&id, &body, &version, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var doc models.Progress
	if err := json.Unmarshal([]byte(body), &doc); err != nil {
		return nil, err
	}
	doc.ID = id
	doc.Version = version
	doc.CreatedAt = createdAt
	doc.UpdatedAt = updatedAt
	return &doc, nil
}

func writeLessonIndex(ctx context.Context, tx *sql.Tx, doc *models.Progress) error {
	seen := map[string]bool{}
	for _, lessonID := range doc.LessonIDs() {
		if seen[lessonID] {
			continue
		}
		seen[lessonID] = true
		if _, err := tx.ExecContext(ctx, `
INSERT INTO progress_lessons (progress_id, user_id, lesson_id)
VALUES (?, ?, ?)
`, doc.ID, doc.UserID, lessonID); err != nil {
			return err
		}
	}
	return nil
}
