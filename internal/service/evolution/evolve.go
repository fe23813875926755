package evolution

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/phrazzld/wordmon-api/internal/domain"
	rules "github.com/phrazzld/wordmon-api/internal/domain/evolution"
	"github.com/phrazzld/wordmon-api/internal/events"
	"github.com/phrazzld/wordmon-api/internal/platform/logger"
	"github.com/phrazzld/wordmon-api/internal/provider"
	"github.com/phrazzld/wordmon-api/internal/service"
	"github.com/phrazzld/wordmon-api/internal/store"
)

// Evolve implements Service.
func (s *evolutionService) Evolve(ctx context.Context, userID, entryID uuid.UUID) (*domain.WordEntry, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	unlock := s.locker.Lock(entryID)
	defer unlock()

	var evolved *domain.WordEntry
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		entries := s.entries.WithTx(tx)

		entry, err := entries.GetForUpdate(ctx, entryID)
		if err != nil {
			return err
		}
		if err := service.Owned(entry, userID); err != nil {
			return err
		}

		next, err := rules.Advance(entry, domain.Now())
		if err != nil {
			return err
		}
		if err := entries.Update(ctx, next); err != nil {
			return err
		}
		evolved = next
		return nil
	})
	if err != nil {
		return nil, service.NewServiceError(serviceName, "evolve", "failed to evolve entry", err)
	}

	log.Info("entry evolved",
		slog.String("entry_id", entryID.String()),
		slog.Int("stage", evolved.Evolution.Stage))
	events.Publish(ctx, s.events, log, events.TypeEntryEvolved, userID, events.EntryEvolved{
		EntryID: evolved.ID,
		Word:    evolved.Word,
		Stage:   evolved.Evolution.Stage,
	})
	return evolved, nil
}

// BranchOptions implements Service.
func (s *evolutionService) BranchOptions(ctx context.Context, userID, entryID uuid.UUID) ([]rules.BranchCandidate, error) {
	entry, err := s.ownedEntry(ctx, userID, entryID)
	if err != nil {
		return nil, service.NewServiceError(serviceName, "branch_options", "failed to load entry", err)
	}
	if entry.Evolution.Stage != 2 {
		return nil, fmt.Errorf("%w: only stage 2 entries branch", domain.ErrIneligibleTransition)
	}

	o, err := s.fetchOffer(ctx, entry)
	if err != nil {
		return nil, err
	}
	return append([]rules.BranchCandidate{}, o.candidates...), nil
}

// fetchOffer asks the branch provider for entry's options and caches them.
// A provider failure yields an empty, uncached offer.
func (s *evolutionService) fetchOffer(ctx context.Context, entry *domain.WordEntry) (offer, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	set, err := provider.Call(ctx, s.timeout, func(ctx context.Context) (*provider.BranchSet, error) {
		return s.branches.Branches(ctx, entry.Word)
	})
	if err != nil {
		if ctx.Err() != nil {
			return offer{}, ctx.Err()
		}
		log.Info("branch provider failed, offering no branches",
			slog.String("entry_id", entry.ID.String()),
			slog.String("error", err.Error()))
		return offer{candidates: []rules.BranchCandidate{}}, nil
	}

	o := offer{
		family:     normalizeFamily(set.Family),
		candidates: provider.SanitizeBranches(entry.Word, set),
	}
	s.cacheOffer(entry.ID, o)
	return o, nil
}

// ChooseBranch implements Service.
func (s *evolutionService) ChooseBranch(ctx context.Context, userID, entryID uuid.UUID, word *string) (*BranchResult, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	entry, err := s.ownedEntry(ctx, userID, entryID)
	if err != nil {
		return nil, service.NewServiceError(serviceName, "choose_branch", "failed to load entry", err)
	}

	var (
		choice *rules.BranchCandidate
		family string
	)
	if word != nil && entry.Evolution.Stage == 2 {
		o, ok := s.cachedOffer(entryID)
		if !ok {
			if o, err = s.fetchOffer(ctx, entry); err != nil {
				return nil, err
			}
		}
		choice = findCandidate(o.candidates, *word)
		if choice == nil {
			return nil, ErrUnknownBranch
		}
		family = o.family
	}

	// A rename onto an owned word absorbs that entry, so it is locked too.
	locked := []uuid.UUID{entryID}
	if choice != nil {
		existing, err := s.entries.GetByWord(ctx, userID, choice.Word)
		switch {
		case err == nil && existing.ID != entryID:
			locked = append(locked, existing.ID)
		case err != nil && !errors.Is(err, store.ErrWordEntryNotFound):
			return nil, service.NewServiceError(serviceName, "choose_branch", "failed to load entry", err)
		}
	}

	unlock := s.locker.LockAll(locked...)
	defer unlock()

	var result BranchResult
	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		entries := s.entries.WithTx(tx)
		profiles := s.profiles.WithTx(tx)
		now := domain.Now()

		current, err := entries.GetForUpdate(ctx, entryID)
		if err != nil {
			return err
		}
		if err := service.Owned(current, userID); err != nil {
			return err
		}

		next, err := rules.Branch(current, choice, family, now)
		if err != nil {
			return err
		}

		if choice != nil {
			existing, err := entries.GetByWord(ctx, userID, next.Word)
			switch {
			case err == nil && existing.ID != next.ID:
				if !slices.Contains(locked, existing.ID) {
					return fmt.Errorf("%w: %q was captured during branching", store.ErrWordExists, next.Word)
				}
				if existing, err = entries.GetForUpdate(ctx, existing.ID); err != nil {
					return err
				}
				next = rules.Merge(next, existing, now)
				if err := entries.Delete(ctx, existing.ID); err != nil {
					return err
				}
				if err := service.RemoveFromTeam(ctx, profiles, s.calc, userID, []uuid.UUID{existing.ID}, now); err != nil {
					return err
				}
				id := existing.ID
				result.MergedID = &id
			case err != nil && !errors.Is(err, store.ErrWordEntryNotFound):
				return err
			}
		}

		if err := entries.Update(ctx, next); err != nil {
			return err
		}
		if err := service.RefreshTeam(ctx, profiles, s.calc, userID, []*domain.WordEntry{next}, now); err != nil {
			return err
		}
		result.Entry = next
		return nil
	})
	if err != nil {
		return nil, service.NewServiceError(serviceName, "choose_branch", "failed to branch entry", err)
	}
	s.dropOffer(entryID)

	attrs := []any{
		slog.String("entry_id", entryID.String()),
		slog.String("word", result.Entry.Word),
		slog.String("family_id", result.Entry.FamilyID),
	}
	if result.MergedID != nil {
		attrs = append(attrs, slog.String("merged_id", result.MergedID.String()))
	}
	log.Info("entry branched", attrs...)

	events.Publish(ctx, s.events, log, events.TypeEntryEvolved, userID, events.EntryEvolved{
		EntryID:  result.Entry.ID,
		Word:     result.Entry.Word,
		Stage:    result.Entry.Evolution.Stage,
		FamilyID: result.Entry.FamilyID,
		MergedID: result.MergedID,
	})
	return &result, nil
}

func findCandidate(candidates []rules.BranchCandidate, word string) *rules.BranchCandidate {
	word = strings.TrimSpace(word)
	for _, c := range candidates {
		if strings.EqualFold(c.Word, word) {
			return &c
		}
	}
	return nil
}
