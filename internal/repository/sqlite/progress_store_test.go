package sqlite_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/linguapath/learnmap/internal/models"
	"github.com/linguapath/learnmap/internal/repository"
	"github.com/linguapath/learnmap/internal/repository/sqlite"
	"github.com/linguapath/learnmap/internal/testutil"
)

type ProgressStoreSuite struct {
	suite.Suite
	db    *sql.DB
	store repository.ProgressStore
}

func (s *ProgressStoreSuite) SetupTest() {
	s.db = testutil.NewTestDB(s.T())
	s.store = sqlite.NewProgressStore(s.db)
}

func (s *ProgressStoreSuite) TearDownTest() {
	testutil.MustClose(s.T(), s.db)
}

func newDoc(userID, courseID string, hearts int) *models.Progress {
	return &models.Progress{
		UserID:   userID,
		CourseID: courseID,
		Hearts:   hearts,
		Units: []models.UnitProgress{
			{UnitID: "u1", Status: models.StatusUnlocked, Lessons: []models.LessonProgress{
				{LessonID: "u1-l1", Status: models.StatusUnlocked, Exercises: []models.ExerciseProgress{}},
				{LessonID: "u1-l2", Status: models.StatusLocked, Exercises: []models.ExerciseProgress{}},
			}},
		},
		FastTrackHistory: []models.FastTrackRecord{},
		CreatedAt:        time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (s *ProgressStoreSuite) TestCreateAndFind() {
	ctx := context.Background()

	created, err := s.store.CreateProgress(ctx, newDoc("alice", "spanish", 5))
	s.Require().NoError(err)
	s.Assert().NotEmpty(created.ID)
	s.Assert().Equal(int64(1), created.Version)

	found, err := s.store.FindProgress(ctx, "alice", "spanish")
	s.Require().NoError(err)
	s.Require().NotNil(found)
	s.Assert().Equal(created.ID, found.ID)
	s.Assert().Equal(int64(1), found.Version)
	s.Assert().Equal(5, found.Hearts)
	s.Require().Len(found.Units, 1)
	s.Assert().Equal(models.StatusUnlocked, found.Units[0].Lessons[0].Status)
	s.Assert().True(created.CreatedAt.Equal(found.CreatedAt))
}

func (s *ProgressStoreSuite) TestFindMissing() {
	found, err := s.store.FindProgress(context.Background(), "alice", "spanish")
	s.Require().NoError(err)
	s.Assert().Nil(found)

	byLesson, err := s.store.FindProgressByLesson(context.Background(), "alice", "u1-l1")
	s.Require().NoError(err)
	s.Assert().Nil(byLesson)
}

func (s *ProgressStoreSuite) TestCreateDuplicate() {
	ctx := context.Background()

	_, err := s.store.CreateProgress(ctx, newDoc("alice", "spanish", 5))
	s.Require().NoError(err)

	_, err = s.store.CreateProgress(ctx, newDoc("alice", "spanish", 3))
	s.Assert().ErrorIs(err, repository.ErrAlreadyExists)

	found, err := s.store.FindProgress(ctx, "alice", "spanish")
	s.Require().NoError(err)
	s.Assert().Equal(5, found.Hearts, "first writer wins")
}

func (s *ProgressStoreSuite) TestFindByLesson() {
	ctx := context.Background()

	created, err := s.store.CreateProgress(ctx, newDoc("alice", "spanish", 5))
	s.Require().NoError(err)
	_, err = s.store.CreateProgress(ctx, newDoc("bob", "spanish", 5))
	s.Require().NoError(err)

	found, err := s.store.FindProgressByLesson(ctx, "alice", "u1-l2")
	s.Require().NoError(err)
	s.Require().NotNil(found)
	s.Assert().Equal(created.ID, found.ID)
	s.Assert().Equal("alice", found.UserID)
}

func (s *ProgressStoreSuite) TestSaveBumpsVersionAndReindexesLessons() {
	ctx := context.Background()

	doc, err := s.store.CreateProgress(ctx, newDoc("alice", "spanish", 5))
	s.Require().NoError(err)

	doc.Hearts = 4
	doc.Units = append(doc.Units, models.UnitProgress{
		UnitID: "u2", Status: models.StatusLocked,
		Lessons: []models.LessonProgress{{LessonID: "u2-l1", Status: models.StatusLocked, Exercises: []models.ExerciseProgress{}}},
	})
	s.Require().NoError(s.store.SaveProgress(ctx, doc))
	s.Assert().Equal(int64(2), doc.Version)

	found, err := s.store.FindProgressByLesson(ctx, "alice", "u2-l1")
	s.Require().NoError(err)
	s.Require().NotNil(found)
	s.Assert().Equal(4, found.Hearts)
	s.Assert().Equal(int64(2), found.Version)
	s.Assert().Len(found.Units, 2)
}

func (s *ProgressStoreSuite) TestSaveStaleVersion() {
	ctx := context.Background()

	doc, err := s.store.CreateProgress(ctx, newDoc("alice", "spanish", 5))
	s.Require().NoError(err)
	stale := doc.Clone()

	doc.Hearts = 2
	s.Require().NoError(s.store.SaveProgress(ctx, doc))

	stale.Hearts = 1
	err = s.store.SaveProgress(ctx, stale)
	s.Assert().ErrorIs(err, repository.ErrVersionConflict)
	s.Assert().Equal(int64(1), stale.Version)

	found, err := s.store.FindProgress(ctx, "alice", "spanish")
	s.Require().NoError(err)
	s.Assert().Equal(2, found.Hearts)
}

func (s *ProgressStoreSuite) TestListBelowHearts() {
	ctx := context.Background()

	for user, hearts := range map[string]int{"full": 5, "low": 1, "empty": 0} {
		_, err := s.store.CreateProgress(ctx, newDoc(user, "spanish", hearts))
		s.Require().NoError(err)
	}

	docs, err := s.store.ListBelowHearts(ctx, 5)
	s.Require().NoError(err)
	s.Require().Len(docs, 2)
	users := []string{docs[0].UserID, docs[1].UserID}
	s.Assert().ElementsMatch([]string{"low", "empty"}, users)
}

func TestProgressStoreSuite(t *testing.T) {
	suite.Run(t, new(ProgressStoreSuite))
}
