package services

import (
	"context"
	stderrors "errors"
	"fmt"
	"reflect"
	"time"

	"github.com/google/uuid"

	"github.com/linguapath/learnmap/internal/errors"
	"github.com/linguapath/learnmap/internal/events"
	"github.com/linguapath/learnmap/internal/learnmap"
	"github.com/linguapath/learnmap/internal/logger"
	"github.com/linguapath/learnmap/internal/models"
	"github.com/linguapath/learnmap/internal/repository"
)

// ProgressionService applies progression events to learnmap documents. Every
// mutating call loads one document, changes it in memory, cascades unlocks
// and writes it back with a single save.
type ProgressionService interface {
	StartCourse(ctx context.Context, userID, courseID string) (*models.Result, error)
	GetLearnmap(ctx context.Context, userID, courseID string) (*models.Result, error)
	UpdateExerciseProgress(ctx context.Context, userID, lessonID string, update models.ExerciseUpdate) (*models.Result, error)
	UpdateLearnmapProgress(ctx context.Context, userID, courseID string, update models.LearnmapUpdate) (*models.Result, error)
	FastTrackLearnmap(ctx context.Context, userID, courseID string, input models.FastTrackInput) (*models.Result, error)
	ReviewCompletedLesson(ctx context.Context, userID, courseID string, input models.ReviewInput) (*models.Result, error)
}

type ProgressionOption func(*progressionService)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) ProgressionOption {
	return func(s *progressionService) { s.now = now }
}

// WithDefaultHearts sets the hearts a new document starts with.
func WithDefaultHearts(hearts int) ProgressionOption {
	return func(s *progressionService) { s.defaultHearts = hearts }
}

// WithReconcile turns the catalog reconciliation pass on or off.
func WithReconcile(enabled bool) ProgressionOption {
	return func(s *progressionService) { s.reconcile = enabled }
}

// WithMaxHearts caps the hearts a learnmap update may set.
func WithMaxHearts(hearts int) ProgressionOption {
	return func(s *progressionService) { s.maxHearts = hearts }
}

func WithPublisher(p events.Publisher) ProgressionOption {
	return func(s *progressionService) { s.publisher = p }
}

type progressionService struct {
	catalog       repository.CatalogReader
	store         repository.ProgressStore
	publisher     events.Publisher
	now           func() time.Time
	defaultHearts int
	maxHearts     int
	reconcile     bool
}

// NewProgressionService creates a new ProgressionService
func NewProgressionService(catalog repository.CatalogReader, store repository.ProgressStore, opts ...ProgressionOption) ProgressionService {
	s := &progressionService{
		catalog:       catalog,
		store:         store,
		publisher:     events.NewNopPublisher(),
		now:           func() time.Time { return time.Now().UTC() },
		defaultHearts: 5,
		maxHearts:     5,
		reconcile:     true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *progressionService) StartCourse(ctx context.Context, userID, courseID string) (*models.Result, error) {
	log := logger.FromContext(ctx).WithPrefix("progression")
	log.Debug("starting course: user_id=%s, course_id=%s", userID, courseID)

	if userID == "" {
		return nil, errors.NewNotAuthenticatedError()
	}
	if courseID == "" {
		return nil, errors.NewValidationError("course_id", "is required")
	}

	existing, err := s.store.FindProgress(ctx, userID, courseID)
	if err != nil {
		log.Error("failed to find progress: %v", err)
		return nil, errors.NewInternalError(err)
	}
	if existing != nil {
		log.Debug("course already started: progress_id=%s", existing.ID)
		return &models.Result{Success: true, Message: "course already started", Progress: existing}, nil
	}

	tree, err := s.loadTree(ctx, courseID)
	if err != nil {
		return nil, err
	}
	doc, err := s.create(ctx, tree, userID, courseID)
	if err != nil {
		return nil, err
	}

	log.Info("course started: progress_id=%s, units=%d", doc.ID, len(doc.Units))
	return &models.Result{Success: true, Message: "course started", Progress: doc}, nil
}

func (s *progressionService) GetLearnmap(ctx context.Context, userID, courseID string) (*models.Result, error) {
	log := logger.FromContext(ctx).WithPrefix("progression")
	log.Debug("getting learnmap: user_id=%s, course_id=%s", userID, courseID)

	if userID == "" {
		return nil, errors.NewNotAuthenticatedError()
	}
	if courseID == "" {
		return nil, errors.NewValidationError("course_id", "is required")
	}

	doc, tree, err := s.loadOrCreate(ctx, userID, courseID)
	if err != nil {
		return nil, err
	}
	before := doc.Clone()
	if err := s.prepare(tree, doc); err != nil {
		return nil, err
	}
	if err := s.finish(ctx, tree, before, doc, s.now()); err != nil {
		return nil, err
	}
	return &models.Result{Success: true, Message: "learnmap loaded", Progress: doc}, nil
}

func (s *progressionService) UpdateExerciseProgress(ctx context.Context, userID, lessonID string, update models.ExerciseUpdate) (*models.Result, error) {
	log := logger.FromContext(ctx).WithPrefix("progression")
	log.Debug("updating exercise progress: user_id=%s, lesson_id=%s, exercise_id=%s, status=%s",
		userID, lessonID, update.ExerciseID, update.Status)

	if userID == "" {
		return nil, errors.NewNotAuthenticatedError()
	}
	if lessonID == "" {
		return nil, errors.NewValidationError("lesson_id", "is required")
	}
	if update.ExerciseID == "" {
		return nil, errors.NewValidationError("exercise_id", "is required")
	}
	if !update.Status.Valid() {
		return nil, errors.NewValidationError("status", fmt.Sprintf("unknown exercise status %q", update.Status))
	}

	doc, err := s.store.FindProgressByLesson(ctx, userID, lessonID)
	if err != nil {
		log.Error("failed to find progress by lesson: %v", err)
		return nil, errors.NewInternalError(err)
	}
	if doc == nil {
		return nil, errors.NewNotFoundError("lesson progress", lessonID)
	}

	tree, err := s.loadTree(ctx, doc.CourseID)
	if err != nil {
		return nil, err
	}
	before := doc.Clone()
	if err := s.prepare(tree, doc); err != nil {
		return nil, err
	}

	up, lp := doc.Lesson(lessonID)
	if lp == nil {
		return nil, errors.NewNotFoundError("lesson progress", lessonID)
	}
	now := s.now()
	if err := s.applyExercise(ctx, up, lp, update, now); err != nil {
		return nil, err
	}
	if err := s.finish(ctx, tree, before, doc, now); err != nil {
		return nil, err
	}

	_, lp = doc.Lesson(lessonID)
	ep := *lp.Exercise(update.ExerciseID)
	return &models.Result{
		Success:          true,
		Message:          "exercise progress updated",
		Progress:         doc,
		ExerciseProgress: &ep,
	}, nil
}

func (s *progressionService) UpdateLearnmapProgress(ctx context.Context, userID, courseID string, update models.LearnmapUpdate) (*models.Result, error) {
	log := logger.FromContext(ctx).WithPrefix("progression")
	log.Debug("updating learnmap: user_id=%s, course_id=%s, unit_id=%s, lesson_id=%s, exercise_id=%s, status=%s",
		userID, courseID, update.UnitID, update.LessonID, update.ExerciseID, update.Status)

	if userID == "" {
		return nil, errors.NewNotAuthenticatedError()
	}
	if courseID == "" {
		return nil, errors.NewValidationError("course_id", "is required")
	}
	if err := validateLearnmapUpdate(update); err != nil {
		return nil, err
	}
	if update.UnitID == "" && update.LessonID == "" && update.Hearts == nil {
		return &models.Result{Success: false, Message: "nothing to update"}, nil
	}

	doc, tree, err := s.loadOrCreate(ctx, userID, courseID)
	if err != nil {
		return nil, err
	}
	before := doc.Clone()
	if err := s.prepare(tree, doc); err != nil {
		return nil, err
	}

	now := s.now()
	if update.Hearts != nil {
		hearts := *update.Hearts
		if hearts > s.maxHearts {
			log.Debug("capping hearts %d at %d", hearts, s.maxHearts)
			hearts = s.maxHearts
		}
		doc.Hearts = hearts
		doc.LastHeartUpdate = now
	}

	missing := ""
	switch {
	case update.ExerciseID != "":
		up, lp := findLesson(doc, update.UnitID, update.LessonID)
		if lp == nil {
			missing = fmt.Sprintf("lesson %s not found in learnmap", update.LessonID)
			break
		}
		err = s.applyExercise(ctx, up, lp, models.ExerciseUpdate{
			ExerciseID:   update.ExerciseID,
			Status:       models.ExerciseStatus(update.Status),
			Score:        update.Score,
			Attempts:     update.Attempts,
			WrongAnswers: update.WrongAnswers,
		}, now)
	case update.LessonID != "":
		up, lp := findLesson(doc, update.UnitID, update.LessonID)
		if lp == nil {
			missing = fmt.Sprintf("lesson %s not found in learnmap", update.LessonID)
			break
		}
		err = applyLessonStatus(up, lp, update, now)
	case update.UnitID != "":
		up := doc.Unit(update.UnitID)
		if up == nil {
			missing = fmt.Sprintf("unit %s not found in learnmap", update.UnitID)
			break
		}
		err = applyUnitStatus(up, update, now)
	}
	if err != nil {
		return nil, err
	}

	// Hearts apply even when the targeted node is missing.
	if missing != "" && update.Hearts == nil {
		return &models.Result{Success: false, Message: missing}, nil
	}
	if err := s.finish(ctx, tree, before, doc, now); err != nil {
		return nil, err
	}
	if missing != "" {
		return &models.Result{Success: false, Message: missing + "; hearts updated", Progress: doc}, nil
	}
	return &models.Result{Success: true, Message: "learnmap updated", Progress: doc}, nil
}

func (s *progressionService) FastTrackLearnmap(ctx context.Context, userID, courseID string, input models.FastTrackInput) (*models.Result, error) {
	log := logger.FromContext(ctx).WithPrefix("progression")
	log.Debug("fast tracking: user_id=%s, course_id=%s, unit_id=%s, lessons=%v",
		userID, courseID, input.UnitID, input.LessonIDs)

	if userID == "" {
		return nil, errors.NewNotAuthenticatedError()
	}
	if courseID == "" {
		return nil, errors.NewValidationError("course_id", "is required")
	}

	doc, tree, err := s.loadOrCreate(ctx, userID, courseID)
	if err != nil {
		return nil, err
	}
	before := doc.Clone()
	if err := s.prepare(tree, doc); err != nil {
		return nil, err
	}

	at := s.now()
	if input.CompletedAt != nil {
		at = *input.CompletedAt
	}

	resolved := false
	if input.UnitID != "" {
		if up := doc.Unit(input.UnitID); up != nil {
			learnmap.FastTrackUnit(up, at)
			resolved = true
		}
	}
	for _, lessonID := range input.LessonIDs {
		if up, lp := doc.Lesson(lessonID); lp != nil {
			learnmap.FastTrackLesson(lp, at)
			learnmap.FastTrackFinishedUnit(up, at)
			resolved = true
		}
	}

	record := models.FastTrackRecord{
		ID:                 uuid.NewString(),
		UnitID:             input.UnitID,
		LessonIDs:          append([]string(nil), input.LessonIDs...),
		ChallengeAttemptID: input.ChallengeAttemptID,
		CompletedAt:        at,
	}
	doc.FastTrackHistory = append(doc.FastTrackHistory, record)

	audit := events.Event{Type: events.LearnmapFastTracked, UnitID: input.UnitID}
	if err := s.finish(ctx, tree, before, doc, at, audit); err != nil {
		return nil, err
	}

	if !resolved {
		log.Info("fast track matched nothing: record_id=%s", record.ID)
		return &models.Result{Success: false, Message: "no unit or lesson matched the fast track request", Progress: doc}, nil
	}
	log.Info("fast track applied: record_id=%s", record.ID)
	return &models.Result{Success: true, Message: "fast track applied", Progress: doc}, nil
}

func (s *progressionService) ReviewCompletedLesson(ctx context.Context, userID, courseID string, input models.ReviewInput) (*models.Result, error) {
	log := logger.FromContext(ctx).WithPrefix("progression")
	log.Debug("reviewing lesson: user_id=%s, course_id=%s, lesson_id=%s", userID, courseID, input.LessonID)

	if userID == "" {
		return nil, errors.NewNotAuthenticatedError()
	}
	if courseID == "" {
		return nil, errors.NewValidationError("course_id", "is required")
	}
	if input.LessonID == "" {
		return nil, errors.NewValidationError("lesson_id", "is required")
	}

	doc, err := s.store.FindProgress(ctx, userID, courseID)
	if err != nil {
		log.Error("failed to find progress: %v", err)
		return nil, errors.NewInternalError(err)
	}
	if doc == nil {
		return nil, errors.NewNotFoundError("progress for course", courseID)
	}

	_, lp := findLesson(doc, input.UnitID, input.LessonID)
	if lp == nil {
		return nil, errors.NewNotFoundError("lesson progress", input.LessonID)
	}
	if lp.Status != models.StatusCompleted {
		return nil, errors.NewInvalidStateError("cannot review an incomplete lesson")
	}

	entry := models.ReviewEntry{ReviewedAt: s.now()}
	if input.Score != nil {
		entry.Score = *input.Score
	}
	if input.XPEarned != nil {
		entry.XPEarned = *input.XPEarned
	}
	if input.CoinEarned != nil {
		entry.CoinEarned = *input.CoinEarned
	}
	if input.ReviewedAt != nil {
		entry.ReviewedAt = *input.ReviewedAt
	}
	lp.Reviews = append(lp.Reviews, entry)

	if err := s.save(ctx, doc); err != nil {
		return nil, err
	}
	s.publish(ctx, doc, []events.Event{{Type: events.LessonReviewed, UnitID: input.UnitID, LessonID: input.LessonID}})

	log.Info("lesson reviewed: lesson_id=%s, reviews=%d", input.LessonID, len(lp.Reviews))
	return &models.Result{Success: true, Message: "review recorded", Progress: doc}, nil
}

// applyExercise upserts one exercise node and completes the lesson once the
// catalog's exercises are all completed.
func (s *progressionService) applyExercise(ctx context.Context, up *models.UnitProgress, lp *models.LessonProgress, update models.ExerciseUpdate, now time.Time) error {
	log := logger.FromContext(ctx).WithPrefix("progression")

	if lp.Status == models.StatusLocked {
		return errors.NewInvalidStateError(fmt.Sprintf("lesson %s is locked", lp.LessonID))
	}

	catalogIDs, err := s.catalog.GetPublishedExerciseIDs(ctx, lp.LessonID)
	if err != nil {
		log.Error("failed to list exercises: %v", err)
		return errors.NewInternalError(err)
	}
	if !contains(catalogIDs, update.ExerciseID) {
		return errors.NewNotFoundError("exercise", update.ExerciseID)
	}

	ep := lp.Exercise(update.ExerciseID)
	if ep == nil {
		lp.Exercises = append(lp.Exercises, models.ExerciseProgress{
			ExerciseID: update.ExerciseID,
			Status:     models.ExerciseNotStarted,
		})
		ep = &lp.Exercises[len(lp.Exercises)-1]
	}
	if update.Status.Rank() > ep.Status.Rank() {
		ep.Status = update.Status
	}
	if update.Score != nil {
		ep.Score = *update.Score
	}
	if update.Attempts != nil {
		ep.Attempts = *update.Attempts
	} else {
		ep.Attempts++
	}
	ep.WrongAnswers = mergeWrongAnswers(ep.WrongAnswers, update.WrongAnswers)
	t := now
	ep.LastAttemptAt = &t

	learnmap.Start(up, lp)

	completed := lp.CompletedExercises(catalogIDs)
	log.Debug("lesson %s: %d of %d exercises completed", lp.LessonID, completed, len(catalogIDs))
	if completed == len(catalogIDs) {
		if _, err := learnmap.CompleteLesson(lp, now); err != nil {
			return errors.NewInvalidStateError(err.Error())
		}
	}
	return nil
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func applyLessonStatus(up *models.UnitProgress, lp *models.LessonProgress, update models.LearnmapUpdate, now time.Time) error {
	if update.Status == "" {
		return applyCompletedAt(&lp.CompletedAt, lp.Status, update.CompletedAt, "lesson", lp.LessonID)
	}
	target := models.Status(update.Status)
	next, err := learnmap.Advance(lp.Status, target)
	if err != nil {
		return transitionError("lesson", lp.LessonID, err)
	}
	if next.AtLeast(models.StatusInProgress) {
		learnmap.Start(up, lp)
	}
	lp.Status = next
	if next == models.StatusCompleted {
		stampCompleted(&lp.CompletedAt, update.CompletedAt, now)
	}
	return nil
}

func applyUnitStatus(up *models.UnitProgress, update models.LearnmapUpdate, now time.Time) error {
	if update.Status == "" {
		return applyCompletedAt(&up.CompletedAt, up.Status, update.CompletedAt, "unit", up.UnitID)
	}
	target := models.Status(update.Status)
	if target == models.StatusCompleted && up.Status != models.StatusCompleted && !up.AllLessonsCompleted() {
		return errors.NewInvalidStateError(fmt.Sprintf("unit %s has lessons that are not completed", up.UnitID))
	}
	next, err := learnmap.Advance(up.Status, target)
	if err != nil {
		return transitionError("unit", up.UnitID, err)
	}
	up.Status = next
	if next == models.StatusCompleted {
		stampCompleted(&up.CompletedAt, update.CompletedAt, now)
	}
	return nil
}

// applyCompletedAt handles a timestamp-only update, which only makes sense
// on a completed node.
func applyCompletedAt(dst **time.Time, status models.Status, at *time.Time, kind, id string) error {
	if at == nil {
		return nil
	}
	if status != models.StatusCompleted {
		return errors.NewInvalidStateError(fmt.Sprintf("%s %s is not completed", kind, id))
	}
	t := *at
	*dst = &t
	return nil
}

func stampCompleted(dst **time.Time, requested *time.Time, now time.Time) {
	if requested != nil {
		t := *requested
		*dst = &t
		return
	}
	if *dst == nil {
		t := now
		*dst = &t
	}
}

func transitionError(kind, id string, err error) error {
	switch {
	case stderrors.Is(err, learnmap.ErrLocked):
		return errors.NewInvalidStateError(fmt.Sprintf("%s %s is locked", kind, id))
	case stderrors.Is(err, learnmap.ErrRegression):
		return errors.NewInvalidStateError(fmt.Sprintf("%s %s: %v", kind, id, err))
	default:
		return errors.NewValidationError("status", err.Error())
	}
}

func validateLearnmapUpdate(update models.LearnmapUpdate) error {
	if update.ExerciseID != "" && update.LessonID == "" {
		return errors.NewValidationError("lesson_id", "is required when exercise_id is set")
	}
	if update.Status != "" {
		if update.ExerciseID != "" {
			if !models.ExerciseStatus(update.Status).Valid() {
				return errors.NewValidationError("status", fmt.Sprintf("unknown exercise status %q", update.Status))
			}
		} else if !models.Status(update.Status).Valid() {
			return errors.NewValidationError("status", fmt.Sprintf("unknown status %q", update.Status))
		}
	}
	if update.Hearts != nil && *update.Hearts < 0 {
		return errors.NewValidationError("hearts", "must be >= 0")
	}
	if update.Attempts != nil && *update.Attempts < 0 {
		return errors.NewValidationError("attempts", "must be >= 0")
	}
	return nil
}

func findLesson(doc *models.Progress, unitID, lessonID string) (*models.UnitProgress, *models.LessonProgress) {
	if unitID == "" {
		return doc.Lesson(lessonID)
	}
	up := doc.Unit(unitID)
	if up == nil {
		return nil, nil
	}
	lp := up.Lesson(lessonID)
	if lp == nil {
		return nil, nil
	}
	return up, lp
}

func mergeWrongAnswers(current, added []string) []string {
	if len(added) == 0 {
		return current
	}
	seen := make(map[string]bool, len(current)+len(added))
	for _, a := range current {
		seen[a] = true
	}
	for _, a := range added {
		if !seen[a] {
			seen[a] = true
			current = append(current, a)
		}
	}
	return current
}

// loadTree reads the published catalog for a course into an ordered tree.
func (s *progressionService) loadTree(ctx context.Context, courseID string) (*learnmap.Tree, error) {
	log := logger.FromContext(ctx).WithPrefix("progression")

	units, err := s.catalog.GetPublishedUnits(ctx, courseID)
	if err != nil {
		log.Error("failed to list units: %v", err)
		return nil, errors.NewInternalError(err)
	}
	lessons := make(map[string][]models.Lesson, len(units))
	for _, u := range units {
		ls, err := s.catalog.GetPublishedLessons(ctx, u.ID)
		if err != nil {
			log.Error("failed to list lessons for unit %s: %v", u.ID, err)
			return nil, errors.NewInternalError(err)
		}
		lessons[u.ID] = ls
	}
	tree, err := learnmap.NewTree(courseID, units, lessons)
	if err != nil {
		log.Error("catalog for course %s is malformed: %v", courseID, err)
		return nil, errors.NewInternalError(err)
	}
	return tree, nil
}

// loadOrCreate returns the caller's document for courseID, creating it on
// first contact.
func (s *progressionService) loadOrCreate(ctx context.Context, userID, courseID string) (*models.Progress, *learnmap.Tree, error) {
	log := logger.FromContext(ctx).WithPrefix("progression")

	tree, err := s.loadTree(ctx, courseID)
	if err != nil {
		return nil, nil, err
	}
	doc, err := s.store.FindProgress(ctx, userID, courseID)
	if err != nil {
		log.Error("failed to find progress: %v", err)
		return nil, nil, errors.NewInternalError(err)
	}
	if doc != nil {
		return doc, tree, nil
	}
	doc, err = s.create(ctx, tree, userID, courseID)
	if err != nil {
		return nil, nil, err
	}
	return doc, tree, nil
}

// create builds and stores the initial document. Losing the create race to
// another writer is not an error: the winner's document is returned.
func (s *progressionService) create(ctx context.Context, tree *learnmap.Tree, userID, courseID string) (*models.Progress, error) {
	log := logger.FromContext(ctx).WithPrefix("progression")

	course, err := s.catalog.GetCourse(ctx, courseID)
	if err != nil {
		log.Error("failed to get course: %v", err)
		return nil, errors.NewInternalError(err)
	}
	if course == nil || !course.Published {
		return nil, errors.NewNotFoundError("course", courseID)
	}
	if len(tree.Units) == 0 {
		return nil, errors.NewContentIncompleteError(courseID)
	}

	doc, err := learnmap.NewProgress(tree, userID, s.defaultHearts, s.now())
	if err != nil {
		log.Error("failed to build progress: %v", err)
		return nil, errors.NewInternalError(err)
	}

	created, err := s.store.CreateProgress(ctx, doc)
	if stderrors.Is(err, repository.ErrAlreadyExists) {
		log.Debug("progress created concurrently, re-reading")
		created, err = s.store.FindProgress(ctx, userID, courseID)
		if err == nil && created == nil {
			err = fmt.Errorf("progress for %s/%s vanished after create conflict", userID, courseID)
		}
		if err != nil {
			log.Error("failed to re-read progress: %v", err)
			return nil, errors.NewInternalError(err)
		}
		return created, nil
	}
	if err != nil {
		log.Error("failed to create progress: %v", err)
		return nil, errors.NewInternalError(err)
	}

	s.publish(ctx, created, transitions(nil, created))
	return created, nil
}

// prepare brings a loaded document in line with the current catalog before
// an event is applied.
func (s *progressionService) prepare(tree *learnmap.Tree, doc *models.Progress) error {
	if !s.reconcile {
		return nil
	}
	if _, err := learnmap.Reconcile(tree, doc); err != nil {
		return errors.NewInternalError(err)
	}
	return nil
}

// finish rolls completions up, cascades unlocks and persists doc if it
// differs from before. extra events are published only after a save.
func (s *progressionService) finish(ctx context.Context, tree *learnmap.Tree, before, doc *models.Progress, at time.Time, extra ...events.Event) error {
	if _, err := learnmap.Settle(tree, doc, at); err != nil {
		logger.FromContext(ctx).WithPrefix("progression").Error("cascade failed: %v", err)
		return errors.NewInternalError(err)
	}
	if reflect.DeepEqual(before, doc) {
		return nil
	}
	if err := s.save(ctx, doc); err != nil {
		return err
	}
	s.publish(ctx, doc, append(transitions(before, doc), extra...))
	return nil
}

func (s *progressionService) save(ctx context.Context, doc *models.Progress) error {
	log := logger.FromContext(ctx).WithPrefix("progression")
	if err := s.store.SaveProgress(ctx, doc); err != nil {
		if stderrors.Is(err, repository.ErrVersionConflict) {
			log.Warn("lost version race on progress %s", doc.ID)
			return errors.NewConflictError(err)
		}
		log.Error("failed to save progress: %v", err)
		return errors.NewInternalError(err)
	}
	return nil
}

func (s *progressionService) publish(ctx context.Context, doc *models.Progress, evts []events.Event) {
	log := logger.FromContext(ctx).WithPrefix("progression")
	now := s.now()
	for _, evt := range evts {
		evt.UserID = doc.UserID
		evt.CourseID = doc.CourseID
		evt.ProgressID = doc.ID
		if evt.OccurredAt.IsZero() {
			evt.OccurredAt = now
		}
		if err := s.publisher.Publish(ctx, evt); err != nil {
			log.Warn("failed to publish %s: %v", evt.Type, err)
		}
	}
}

// transitions lists the unlock and completion events between two versions of
// a document. A nil before treats every node as previously locked.
func transitions(before, after *models.Progress) []events.Event {
	var evts []events.Event
	for _, up := range after.Units {
		var prevUnit *models.UnitProgress
		if before != nil {
			prevUnit = before.Unit(up.UnitID)
		}
		evts = appendTransition(evts, statusOf(prevUnit), up.Status, events.UnitUnlocked, events.UnitCompleted, up.UnitID, "")
		for _, lp := range up.Lessons {
			prev := models.StatusLocked
			if prevUnit != nil {
				if prevLesson := prevUnit.Lesson(lp.LessonID); prevLesson != nil {
					prev = prevLesson.Status
				}
			}
			evts = appendTransition(evts, prev, lp.Status, events.LessonUnlocked, events.LessonCompleted, up.UnitID, lp.LessonID)
		}
	}
	return evts
}

func statusOf(up *models.UnitProgress) models.Status {
	if up == nil {
		return models.StatusLocked
	}
	return up.Status
}

func appendTransition(evts []events.Event, from, to models.Status, unlocked, completed events.Type, unitID, lessonID string) []events.Event {
	switch {
	case to == from:
	case to == models.StatusCompleted:
		evts = append(evts, events.Event{Type: completed, UnitID: unitID, LessonID: lessonID})
	case from == models.StatusLocked && to.AtLeast(models.StatusUnlocked):
		evts = append(evts, events.Event{Type: unlocked, UnitID: unitID, LessonID: lessonID})
	}
	return evts
}
