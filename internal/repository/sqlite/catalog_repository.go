package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/linguapath/learnmap/internal/logger"
	"github.com/linguapath/learnmap/internal/models"
	"github.com/linguapath/learnmap/internal/repository"
)

var sqlBuilder = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question)

type catalogRepository struct {
	db *sqlx.DB
}

// NewCatalogRepository creates a CatalogReader over the catalog tables
func NewCatalogRepository(db *sql.DB) repository.CatalogReader {
	return &catalogRepository{db: sqlx.NewDb(db, "sqlite3")}
}

func (r *catalogRepository) GetCourse(ctx context.Context, courseID string) (*models.Course, error) {
	log := logger.FromContext(ctx).WithPrefix("catalog_repo")
	log.Debug("getting course: id=%s", courseID)

	query, args, err := sqlBuilder.
		Select("id", "title", "published").
		From("courses").
		Where(squirrel.Eq{"id": courseID}).
		ToSql()
	if err != nil {
		log.Error("failed to build query: %v", err)
		return nil, err
	}

	var c models.Course
	if err := r.db.GetContext(ctx, &c, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("course not found: id=%s", courseID)
			return nil, nil
		}
		log.Error("failed to get course: %v", err)
		return nil, err
	}
	return &c, nil
}

func (r *catalogRepository) GetPublishedUnits(ctx context.Context, courseID string) ([]models.Unit, error) {
	log := logger.FromContext(ctx).WithPrefix("catalog_repo")
	log.Debug("listing published units: course_id=%s", courseID)

	query, args, err := sqlBuilder.
		Select("id", "course_id", "title", "sort_order", "published").
		From("units").
		Where(squirrel.Eq{"course_id": courseID, "published": true}).
		OrderBy("sort_order ASC").
		ToSql()
	if err != nil {
		log.Error("failed to build query: %v", err)
		return nil, err
	}

	var units []models.Unit
	if err := r.db.SelectContext(ctx, &units, query, args...); err != nil {
		log.Error("failed to list units: %v", err)
		return nil, err
	}
	log.Debug("found %d published units", len(units))
	return units, nil
}

func (r *catalogRepository) GetPublishedLessons(ctx context.Context, unitID string) ([]models.Lesson, error) {
	log := logger.FromContext(ctx).WithPrefix("catalog_repo")
	log.Debug("listing published lessons: unit_id=%s", unitID)

	query, args, err := sqlBuilder.
		Select("id", "unit_id", "title", "sort_order", "published").
		From("lessons").
		Where(squirrel.Eq{"unit_id": unitID, "published": true}).
		OrderBy("sort_order ASC").
		ToSql()
	if err != nil {
		log.Error("failed to build query: %v", err)
		return nil, err
	}

	var lessons []models.Lesson
	if err := r.db.SelectContext(ctx, &lessons, query, args...); err != nil {
		log.Error("failed to list lessons: %v", err)
		return nil, err
	}
	log.Debug("found %d published lessons", len(lessons))
	return lessons, nil
}

func (r *catalogRepository) GetPublishedExerciseIDs(ctx context.Context, lessonID string) ([]string, error) {
	log := logger.FromContext(ctx).WithPrefix("catalog_repo")

	query, args, err := sqlBuilder.
		Select("id").
		From("exercises").
		Where(squirrel.Eq{"lesson_id": lessonID, "published": true}).
		OrderBy("sort_order ASC").
		ToSql()
	if err != nil {
		log.Error("failed to build query: %v", err)
		return nil, err
	}

	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, args...); err != nil {
		log.Error("failed to list exercises: %v", err)
		return nil, err
	}
	log.Debug("lesson %s has %d published exercises", lessonID, len(ids))
	return ids, nil
}
