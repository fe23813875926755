// Package word_review serves the quiz queue and records quiz answers.
package word_review

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/wordmon-api/internal/domain"
	"github.com/phrazzld/wordmon-api/internal/domain/evolution"
	"github.com/phrazzld/wordmon-api/internal/domain/srs"
	"github.com/phrazzld/wordmon-api/internal/platform/logger"
	"github.com/phrazzld/wordmon-api/internal/service"
	"github.com/phrazzld/wordmon-api/internal/service/entrylock"
	"github.com/phrazzld/wordmon-api/internal/store"
)

const serviceName = "word_review"

// DefaultQuizLimit caps the quiz queue when no limit is configured.
const DefaultQuizLimit = 20

// ErrNotQuizEligible is returned when answering for an entry that never
// appears in quizzes.
var ErrNotQuizEligible = fmt.Errorf("%w: entry is not quiz eligible", domain.ErrIneligibleTransition)

// Service runs quizzes over a user's collection.
type Service interface {
	// DueQueue returns up to limit entries due for review, earliest first.
	// A limit of zero or less uses the configured default.
	DueQueue(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.WordEntry, error)

	// SubmitAnswer applies one quiz answer to an entry and returns the
	// updated entry.
	SubmitAnswer(ctx context.Context, userID, entryID uuid.UUID, correct bool) (*domain.WordEntry, error)
}

type reviewService struct {
	db      store.TxBeginner
	entries store.WordEntryStore
	srs     srs.Service
	locker  *entrylock.Locker
	limit   int
	logger  *slog.Logger
}

var _ Service = (*reviewService)(nil)

// NewService creates the review service. A nil scheduler uses the default
// Leitner schedule and a nil locker gets a private one.
func NewService(
	db store.TxBeginner,
	entries store.WordEntryStore,
	scheduler srs.Service,
	locker *entrylock.Locker,
	quizLimit int,
	logger *slog.Logger,
) (Service, error) {
	if db == nil {
		return nil, errors.New("db cannot be nil")
	}
	if entries == nil {
		return nil, errors.New("entries cannot be nil")
	}
	if scheduler == nil {
		scheduler = srs.NewDefaultService()
	}
	if locker == nil {
		locker = entrylock.New()
	}
	if quizLimit <= 0 {
		quizLimit = DefaultQuizLimit
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &reviewService{
		db:      db,
		entries: entries,
		srs:     scheduler,
		locker:  locker,
		limit:   quizLimit,
		logger:  logger.With(slog.String("component", "word_review_service")),
	}, nil
}

// DueQueue implements Service.
func (s *reviewService) DueQueue(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.WordEntry, error) {
	if limit <= 0 || limit > s.limit {
		limit = s.limit
	}

	due, err := s.entries.ListDue(ctx, userID, domain.Now(), limit)
	if err != nil {
		return nil, service.NewServiceError(serviceName, "due_queue", "failed to list due entries", err)
	}
	return due, nil
}

// SubmitAnswer implements Service. The SRS state always moves; CanEvolve is
// raised once the new level meets the stage threshold and stays raised until
// the entry evolves.
func (s *reviewService) SubmitAnswer(ctx context.Context, userID, entryID uuid.UUID, correct bool) (*domain.WordEntry, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	unlock := s.locker.Lock(entryID)
	defer unlock()

	var updated *domain.WordEntry
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		entries := s.entries.WithTx(tx)

		entry, err := entries.GetForUpdate(ctx, entryID)
		if err != nil {
			return err
		}
		if err := service.Owned(entry, userID); err != nil {
			return err
		}
		if !entry.QuizEligible() {
			return ErrNotQuizEligible
		}

		now := domain.Now()
		next := entry.Clone()
		next.SRS = s.srs.Review(&entry.SRS, correct, now)
		if evolution.EligibleByLevel(next.Evolution.Stage, next.SRS.Level) {
			next.Evolution.CanEvolve = true
		}
		next.UpdatedAt = now

		if err := entries.Update(ctx, next); err != nil {
			return err
		}
		updated = next
		return nil
	})
	if err != nil {
		return nil, service.NewServiceError(serviceName, "submit_answer", "failed to record answer", err)
	}

	log.Debug("answer recorded",
		slog.String("entry_id", entryID.String()),
		slog.Bool("correct", correct),
		slog.Int("srs_level", updated.SRS.Level),
		slog.Bool("can_evolve", updated.Evolution.CanEvolve))
	return updated, nil
}
