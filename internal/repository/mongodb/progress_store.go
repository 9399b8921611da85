// Package mongodb stores learnmap documents in a MongoDB collection, one
// document per (user, course).
package mongodb

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/linguapath/learnmap/internal/logger"
	"github.com/linguapath/learnmap/internal/models"
	"github.com/linguapath/learnmap/internal/repository"
)

const CollectionName = "learnmap_progress"

type Store struct {
	col *mongo.Collection
}

// Connect dials uri and checks the server is reachable.
func Connect(ctx context.Context, uri, database string) (*mongo.Client, *mongo.Database, error) {
	log := logger.FromContext(ctx).WithPrefix("mongodb")
	log.Info("connecting to mongodb: database=%s", database)

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		log.Error("failed to connect: %v", err)
		return nil, nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		log.Error("failed to ping: %v", err)
		_ = client.Disconnect(context.Background())
		return nil, nil, err
	}
	return client, client.Database(database), nil
}

// NewProgressStore creates a ProgressStore over the learnmap_progress
// collection of db. Call EnsureIndexes once at startup.
func NewProgressStore(db *mongo.Database) *Store {
	return &Store{col: db.Collection(CollectionName)}
}

var _ repository.ProgressStore = (*Store)(nil)

// EnsureIndexes creates the unique (user_id, course_id) index the create path
// relies on, plus the lesson lookup index.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	log := logger.FromContext(ctx).WithPrefix("progress_store")
	names, err := s.col.Indexes().CreateMany(ctx, indexModels())
	if err != nil {
		log.Error("failed to create indexes: %v", err)
		return err
	}
	log.Debug("indexes ready: %v", names)
	return nil
}

func indexModels() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "course_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("user_course_unique"),
		},
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "unit_progress.lessons.lesson_id", Value: 1}},
			Options: options.Index().SetName("user_lesson"),
		},
		{
			Keys:    bson.D{{Key: "hearts", Value: 1}},
			Options: options.Index().SetName("hearts"),
		},
	}
}

func userCourseFilter(userID, courseID string) bson.M {
	return bson.M{"user_id": userID, "course_id": courseID}
}

func userLessonFilter(userID, lessonID string) bson.M {
	return bson.M{"user_id": userID, "unit_progress.lessons.lesson_id": lessonID}
}

func versionFilter(id string, version int64) bson.M {
	return bson.M{"_id": id, "version": version}
}

func belowHeartsFilter(maxHearts int) bson.M {
	return bson.M{"hearts": bson.M{"$lt": maxHearts}}
}

func (s *Store) FindProgress(ctx context.Context, userID, courseID string) (*models.Progress, error) {
	log := logger.FromContext(ctx).WithPrefix("progress_store")
	log.Debug("finding progress: user_id=%s, course_id=%s", userID, courseID)
	return s.findOne(ctx, userCourseFilter(userID, courseID))
}

func (s *Store) FindProgressByLesson(ctx context.Context, userID, lessonID string) (*models.Progress, error) {
	log := logger.FromContext(ctx).WithPrefix("progress_store")
	log.Debug("finding progress by lesson: user_id=%s, lesson_id=%s", userID, lessonID)
	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: 1}})
	return s.findOne(ctx, userLessonFilter(userID, lessonID), opts)
}

func (s *Store) findOne(ctx context.Context, filter bson.M, opts ...*options.FindOneOptions) (*models.Progress, error) {
	log := logger.FromContext(ctx).WithPrefix("progress_store")

	var doc models.Progress
	err := s.col.FindOne(ctx, filter, opts...).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		log.Error("failed to find progress: %v", err)
		return nil, err
	}
	return &doc, nil
}

func (s *Store) CreateProgress(ctx context.Context, doc *models.Progress) (*models.Progress, error) {
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

	if _, err := s.col.InsertOne(ctx, created); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			log.Debug("progress already exists: user_id=%s, course_id=%s", created.UserID, created.CourseID)
			return nil, repository.ErrAlreadyExists
		}
		log.Error("failed to create progress: %v", err)
		return nil, err
	}
	return created, nil
}

func (s *Store) SaveProgress(ctx context.Context, doc *models.Progress) error {
	log := logger.FromContext(ctx).WithPrefix("progress_store")
	log.Debug("saving progress: id=%s, version=%d", doc.ID, doc.Version)

	next := doc.Clone()
	next.Version = doc.Version + 1
	next.UpdatedAt = time.Now().UTC()

	res, err := s.col.ReplaceOne(ctx, versionFilter(doc.ID, doc.Version), next)
	if err != nil {
		log.Error("failed to save progress: %v", err)
		return err
	}
	if res.MatchedCount == 0 {
		log.Warn("progress %s changed since version %d was read", doc.ID, doc.Version)
		return repository.ErrVersionConflict
	}

	doc.Version = next.Version
	doc.UpdatedAt = next.UpdatedAt
	return nil
}

func (s *Store) ListBelowHearts(ctx context.Context, maxHearts int) ([]models.Progress, error) {
	log := logger.FromContext(ctx).WithPrefix("progress_store")
	log.Debug("listing progress below %d hearts", maxHearts)

	cur, err := s.col.Find(ctx, belowHeartsFilter(maxHearts), options.Find().SetSort(bson.D{{Key: "updated_at", Value: 1}}))
	if err != nil {
		log.Error("failed to list progress: %v", err)
		return nil, err
	}
	defer cur.Close(ctx)

	var docs []models.Progress
	if err := cur.All(ctx, &docs); err != nil {
		log.Error("failed to decode progress: %v", err)
		return nil, err
	}
	return docs, nil
}
