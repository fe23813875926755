package evolution

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/wordmon-api/internal/domain"
	"github.com/phrazzld/wordmon-api/internal/platform/logger"
	"github.com/phrazzld/wordmon-api/internal/provider"
	"github.com/phrazzld/wordmon-api/internal/service"
	"github.com/phrazzld/wordmon-api/internal/store"
)

// HiddenMove implements Service. Concurrent first accesses for one entry
// share a single provider call.
func (s *evolutionService) HiddenMove(ctx context.Context, userID, entryID uuid.UUID) (string, error) {
	entry, err := s.ownedEntry(ctx, userID, entryID)
	if err != nil {
		return "", service.NewServiceError(serviceName, "hidden_move", "failed to load entry", err)
	}
	if entry.Evolution.Stage < domain.FusionStage {
		return "", fmt.Errorf("%w: hidden moves unlock at stage %d", domain.ErrIneligibleTransition, domain.FusionStage)
	}
	if entry.Evolution.HiddenMove != "" {
		return entry.Evolution.HiddenMove, nil
	}

	v, err, _ := s.moves.Do(entryID.String(), func() (any, error) {
		// A flight that finished since the read above has stored the move.
		current, err := s.entries.GetByID(ctx, entryID)
		if err != nil {
			return "", service.NewServiceError(serviceName, "hidden_move", "failed to load entry", err)
		}
		if current.Evolution.HiddenMove != "" {
			return current.Evolution.HiddenMove, nil
		}
		return s.fillHiddenMove(ctx, current)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// fillHiddenMove resolves the move for entry and stores it unless another
// writer got there first, in which case the stored move wins.
func (s *evolutionService) fillHiddenMove(ctx context.Context, entry *domain.WordEntry) (string, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	move, err := provider.Call(ctx, s.timeout, func(ctx context.Context) (string, error) {
		return s.hiddenMoves.HiddenMove(ctx, entry.Word)
	})
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		log.Info("hidden move provider failed, using fallback",
			slog.String("entry_id", entry.ID.String()),
			slog.String("error", err.Error()))
		move = ""
	}
	if move == "" {
		move = provider.FallbackHiddenMove(entry.Word)
	}

	unlock := s.locker.Lock(entry.ID)
	defer unlock()

	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		entries := s.entries.WithTx(tx)

		current, err := entries.GetForUpdate(ctx, entry.ID)
		if err != nil {
			return err
		}
		if current.Evolution.HiddenMove != "" {
			move = current.Evolution.HiddenMove
			return nil
		}

		next := current.Clone()
		next.Evolution.HiddenMove = move
		next.UpdatedAt = domain.Now()
		return entries.Update(ctx, next)
	})
	if err != nil {
		return "", service.NewServiceError(serviceName, "hidden_move", "failed to store hidden move", err)
	}

	log.Debug("hidden move stored",
		slog.String("entry_id", entry.ID.String()),
		slog.String("hidden_move", move))
	return move, nil
}
