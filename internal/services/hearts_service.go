package services

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/linguapath/learnmap/internal/errors"
	"github.com/linguapath/learnmap/internal/logger"
	"github.com/linguapath/learnmap/internal/repository"
)

// HeartsService restores hearts over time.
type HeartsService interface {
	// RefillHearts grants one heart per elapsed interval since the last hearts
	// change, up to the cap, and returns how many documents it changed.
	RefillHearts(ctx context.Context) (int, error)
}

type heartsService struct {
	store     repository.ProgressStore
	maxHearts int
	interval  time.Duration
	now       func() time.Time
}

// NewHeartsService creates a new HeartsService
func NewHeartsService(store repository.ProgressStore, maxHearts int, interval time.Duration, now func() time.Time) HeartsService {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &heartsService{store: store, maxHearts: maxHearts, interval: interval, now: now}
}

func (s *heartsService) RefillHearts(ctx context.Context) (int, error) {
	log := logger.FromContext(ctx).WithPrefix("hearts")
	if s.interval <= 0 {
		return 0, errors.NewValidationError("interval", "must be positive")
	}

	docs, err := s.store.ListBelowHearts(ctx, s.maxHearts)
	if err != nil {
		log.Error("failed to list progress below cap: %v", err)
		return 0, errors.NewInternalError(err)
	}

	now := s.now()
	refilled := 0
	for i := range docs {
		doc := &docs[i]
		earned := int(now.Sub(doc.LastHeartUpdate) / s.interval)
		if earned <= 0 {
			continue
		}
		if doc.Hearts+earned >= s.maxHearts {
			doc.Hearts = s.maxHearts
			doc.LastHeartUpdate = now
		} else {
			doc.Hearts += earned
			doc.LastHeartUpdate = doc.LastHeartUpdate.Add(time.Duration(earned) * s.interval)
		}

		if err := s.store.SaveProgress(ctx, doc); err != nil {
			if stderrors.Is(err, repository.ErrVersionConflict) {
				log.Debug("progress %s changed during refill, leaving it for the next run", doc.ID)
				continue
			}
			log.Error("failed to save progress %s: %v", doc.ID, err)
			return refilled, errors.NewInternalError(err)
		}
		refilled++
	}

	log.Info("refilled hearts on %d of %d documents", refilled, len(docs))
	return refilled, nil
}
