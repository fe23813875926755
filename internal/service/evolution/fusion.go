package evolution

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/phrazzld/wordmon-api/internal/domain"
	rules "github.com/phrazzld/wordmon-api/internal/domain/evolution"
	"github.com/phrazzld/wordmon-api/internal/events"
	"github.com/phrazzld/wordmon-api/internal/platform/logger"
	"github.com/phrazzld/wordmon-api/internal/provider"
	"github.com/phrazzld/wordmon-api/internal/service"
	"github.com/phrazzld/wordmon-api/internal/store"
)

// FusionCandidates implements Service.
func (s *evolutionService) FusionCandidates(ctx context.Context, userID, entryID uuid.UUID) ([]*domain.WordEntry, error) {
	entry, err := s.ownedEntry(ctx, userID, entryID)
	if err != nil {
		return nil, service.NewServiceError(serviceName, "fusion_candidates", "failed to load entry", err)
	}
	return s.candidatesFor(ctx, s.entries, entry)
}

func (s *evolutionService) candidatesFor(ctx context.Context, entries store.WordEntryStore, entry *domain.WordEntry) ([]*domain.WordEntry, error) {
	peers, err := entries.ListByFamily(ctx, entry.UserID, entry.FamilyID)
	if err != nil {
		return nil, service.NewServiceError(serviceName, "fusion_candidates", "failed to list family", err)
	}
	return rules.FusionCandidates(entry, peers)
}

// Fuse implements Service. The ascended word is resolved before any lock is
// taken; the transaction then re-reads the family and refuses to commit if it
// changed in the meantime.
func (s *evolutionService) Fuse(ctx context.Context, userID, entryID uuid.UUID) (*FusionResult, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	initiator, err := s.ownedEntry(ctx, userID, entryID)
	if err != nil {
		return nil, service.NewServiceError(serviceName, "fuse", "failed to load entry", err)
	}
	candidates, err := s.candidatesFor(ctx, s.entries, initiator)
	if err != nil {
		return nil, err
	}

	participants := participantIDs(initiator, candidates)
	word, fallback, err := s.ascendedWord(ctx, initiator, candidates)
	if err != nil {
		return nil, err
	}

	unlock := s.locker.LockAll(participants...)
	defer unlock()

	var fused *domain.WordEntry
	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		entries := s.entries.WithTx(tx)
		now := domain.Now()

		current, err := entries.GetForUpdate(ctx, entryID)
		if err != nil {
			return err
		}
		if err := service.Owned(current, userID); err != nil {
			return err
		}
		peers, err := s.candidatesFor(ctx, entries, current)
		if err != nil {
			return err
		}
		if !sameIDs(participants, participantIDs(current, peers)) {
			return ErrFamilyChanged
		}
		for _, p := range peers {
			if _, err := entries.GetForUpdate(ctx, p.ID); err != nil {
				return err
			}
		}

		word, err := freeWord(ctx, entries, userID, participants, word, fallback)
		if err != nil {
			return err
		}

		result, err := rules.Fuse(current, peers, word, now)
		if err != nil {
			return err
		}

		for _, id := range participants {
			if err := entries.Delete(ctx, id); err != nil {
				return err
			}
		}
		if err := service.RemoveFromTeam(ctx, s.profiles.WithTx(tx), s.calc, userID, participants, now); err != nil {
			return err
		}
		if err := entries.Create(ctx, result); err != nil {
			return err
		}
		fused = result
		return nil
	})
	if err != nil {
		return nil, service.NewServiceError(serviceName, "fuse", "failed to fuse entries", err)
	}

	log.Info("entries fused",
		slog.String("entry_id", fused.ID.String()),
		slog.String("word", fused.Word),
		slog.String("family_id", fused.FamilyID),
		slog.Int("consumed", len(participants)))
	events.Publish(ctx, s.events, log, events.TypeEntryFused, userID, events.EntryFused{
		EntryID:  fused.ID,
		Word:     fused.Word,
		FamilyID: fused.FamilyID,
		Consumed: participants,
	})
	return &FusionResult{Entry: fused, Consumed: participants}, nil
}

// ascendedWord asks the provider for the fusion result and returns it along
// with the deterministic fallback. A provider failure returns the fallback
// for both.
func (s *evolutionService) ascendedWord(ctx context.Context, initiator *domain.WordEntry, candidates []*domain.WordEntry) (word, fallback string, err error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	family := initiator.FamilyID
	fallback = provider.FallbackAscendedWord(family)

	words := []string{initiator.Word}
	for _, c := range candidates {
		words = append(words, c.Word)
	}

	word, err = provider.Call(ctx, s.timeout, func(ctx context.Context) (string, error) {
		return s.fusionWords.AscendedWord(ctx, family, words)
	})
	if err != nil {
		if ctx.Err() != nil {
			return "", "", ctx.Err()
		}
		log.Info("fusion word provider failed, using fallback",
			slog.String("family_id", family),
			slog.String("error", err.Error()))
		return fallback, fallback, nil
	}

	word = strings.TrimSpace(word)
	if word == "" || utf8.RuneCountInString(word) > domain.MaxWordLength {
		return fallback, fallback, nil
	}
	return word, fallback, nil
}

// freeWord returns word unless the user owns it outside the fusion, then the
// fallback under the same rule. Words held by participants are free because
// the participants are deleted first.
func freeWord(ctx context.Context, entries store.WordEntryStore, userID uuid.UUID, participants []uuid.UUID, word, fallback string) (string, error) {
	for _, w := range []string{word, fallback} {
		existing, err := entries.GetByWord(ctx, userID, w)
		switch {
		case errors.Is(err, store.ErrWordEntryNotFound):
			return w, nil
		case err != nil:
			return "", err
		case slices.Contains(participants, existing.ID):
			return w, nil
		}
	}
	return "", store.ErrWordExists
}

func participantIDs(initiator *domain.WordEntry, candidates []*domain.WordEntry) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(candidates)+1)
	ids = append(ids, initiator.ID)
	for _, c := range candidates {
		ids = append(ids, c.ID)
	}
	return ids
}

func sameIDs(a, b []uuid.UUID) bool {
	if len(a) != len(b) {
		return false
	}
	for _, id := range b {
		if !slices.Contains(a, id) {
			return false
		}
	}
	return true
}
