// Package arena manages battle profiles and teams and runs battles from
// matchmaking through rating.
package arena

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/wordmon-api/internal/domain"
	"github.com/phrazzld/wordmon-api/internal/domain/battle"
	"github.com/phrazzld/wordmon-api/internal/events"
	"github.com/phrazzld/wordmon-api/internal/platform/logger"
	"github.com/phrazzld/wordmon-api/internal/service"
	"github.com/phrazzld/wordmon-api/internal/service/entrylock"
	"github.com/phrazzld/wordmon-api/internal/store"
	"golang.org/x/sync/errgroup"
)

const serviceName = "arena"

// Matchmaker finds a human opponent. *matchmaking.Matchmaker satisfies it.
type Matchmaker interface {
	Search(ctx context.Context, userID uuid.UUID, power int) (*domain.Profile, error)
}

// Opponent describes who the player fought.
type Opponent struct {
	UserID      *uuid.UUID         `json:"user_id,omitempty"`
	DisplayName string             `json:"display_name,omitempty"`
	Bot         bool               `json:"bot"`
	Rating      int                `json:"rating"`
	Team        []domain.Combatant `json:"team"`
}

// Outcome is everything a finished battle produced.
type Outcome struct {
	Result   *battle.Result      `json:"result"`
	Opponent Opponent            `json:"opponent"`
	Rating   battle.RatingResult `json:"rating"`
	Profile  *domain.Profile     `json:"profile"`
}

// Service runs the arena.
type Service interface {
	// Profile returns the user's profile, creating an unranked one on first
	// access.
	Profile(ctx context.Context, userID uuid.UUID) (*domain.Profile, error)

	// SetTeam replaces the user's battle team and recomputes its snapshot
	// and power.
	SetTeam(ctx context.Context, userID uuid.UUID, entryIDs []uuid.UUID) (*domain.Profile, error)

	// Battle matches the user against an opponent, falling back to a bot,
	// resolves the battle and records the rating change. Nothing is stored
	// when ctx ends before the battle finishes.
	Battle(ctx context.Context, userID uuid.UUID) (*Outcome, error)
}

// Random supplies battle variance and bot team sampling.
type Random interface {
	battle.VarianceSource
	battle.Picker
}

// Config holds the dependencies of the arena service.
type Config struct {
	DB         store.TxBeginner
	Entries    store.WordEntryStore
	Profiles   store.ProfileStore
	Matchmaker Matchmaker
	Calculator battle.StatCalculator
	Random     Random
	Events     events.EventEmitter
	// Pace is the delay between battle turns.
	Pace   time.Duration
	Logger *slog.Logger
}

type arenaService struct {
	db         store.TxBeginner
	entries    store.WordEntryStore
	profiles   store.ProfileStore
	matchmaker Matchmaker
	calc       battle.StatCalculator
	random     Random
	events     events.EventEmitter
	pace       time.Duration
	users      *entrylock.Locker
	logger     *slog.Logger
}

var _ Service = (*arenaService)(nil)

// NewService creates the arena service.
func NewService(cfg Config) (Service, error) {
	if cfg.DB == nil {
		return nil, errors.New("db cannot be nil")
	}
	if cfg.Entries == nil {
		return nil, errors.New("entries cannot be nil")
	}
	if cfg.Profiles == nil {
		return nil, errors.New("profiles cannot be nil")
	}
	if cfg.Matchmaker == nil {
		return nil, errors.New("matchmaker cannot be nil")
	}
	if cfg.Calculator == nil {
		cfg.Calculator = battle.DefaultCalculator{}
	}
	if cfg.Random == nil {
		cfg.Random = globalRandom{}
	}
	if cfg.Events == nil {
		cfg.Events = events.NopEmitter{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &arenaService{
		db:         cfg.DB,
		entries:    cfg.Entries,
		profiles:   cfg.Profiles,
		matchmaker: cfg.Matchmaker,
		calc:       cfg.Calculator,
		random:     cfg.Random,
		events:     cfg.Events,
		pace:       cfg.Pace,
		users:      entrylock.New(),
		logger:     cfg.Logger.With(slog.String("component", "arena_service")),
	}, nil
}

// globalRandom draws from the math/rand/v2 top-level source, which is safe
// for concurrent use.
type globalRandom struct{}

func (globalRandom) Float64() float64 { return rand.Float64() }
func (globalRandom) Intn(n int) int   { return rand.IntN(n) }

// Profile implements Service.
func (s *arenaService) Profile(ctx context.Context, userID uuid.UUID) (*domain.Profile, error) {
	p, err := getOrCreateProfile(ctx, s.profiles, userID, false)
	if err != nil {
		return nil, service.NewServiceError(serviceName, "profile", "failed to load profile", err)
	}
	return p, nil
}

// getOrCreateProfile loads the user's profile, creating it when missing.
// forUpdate selects the locking read for use inside a transaction.
func getOrCreateProfile(ctx context.Context, profiles store.ProfileStore, userID uuid.UUID, forUpdate bool) (*domain.Profile, error) {
	get := profiles.Get
	if forUpdate {
		get = profiles.GetForUpdate
	}

	p, err := get(ctx, userID)
	if err == nil || !errors.Is(err, store.ErrProfileNotFound) {
		return p, err
	}

	p, err = domain.NewProfile(userID, "", domain.Now())
	if err != nil {
		return nil, err
	}
	if err := profiles.Create(ctx, p); err != nil {
		if store.IsDuplicateError(err) {
			return get(ctx, userID)
		}
		return nil, err
	}
	return p, nil
}

// SetTeam implements Service.
func (s *arenaService) SetTeam(ctx context.Context, userID uuid.UUID, entryIDs []uuid.UUID) (*domain.Profile, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if len(entryIDs) > domain.MaxTeamSize {
		return nil, fmt.Errorf("%w: at most %d members", domain.ErrInvalidTeam, domain.MaxTeamSize)
	}
	seen := make(map[uuid.UUID]struct{}, len(entryIDs))
	for _, id := range entryIDs {
		if _, ok := seen[id]; ok {
			return nil, fmt.Errorf("%w: entry %s listed twice", domain.ErrInvalidTeam, id)
		}
		seen[id] = struct{}{}
	}

	members, err := s.loadMembers(ctx, userID, entryIDs)
	if err != nil {
		return nil, err
	}

	snapshot := make([]domain.Combatant, len(members))
	for i, m := range members {
		snapshot[i] = m.Combatant()
	}

	unlock := s.users.Lock(userID)
	defer unlock()

	var updated *domain.Profile
	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		profiles := s.profiles.WithTx(tx)

		current, err := getOrCreateProfile(ctx, profiles, userID, true)
		if err != nil {
			return err
		}

		next := current.Clone()
		next.Team = append([]uuid.UUID{}, entryIDs...)
		next.TeamSnapshot = snapshot
		next.Power = battle.TeamPower(s.calc, snapshot)
		next.UpdatedAt = domain.Now()
		if err := next.Validate(); err != nil {
			return err
		}
		if err := profiles.Update(ctx, next); err != nil {
			return err
		}
		updated = next
		return nil
	})
	if err != nil {
		return nil, service.NewServiceError(serviceName, "set_team", "failed to save team", err)
	}

	log.Info("team updated",
		slog.String("user_id", userID.String()),
		slog.Int("size", len(updated.Team)),
		slog.Int("power", updated.Power))
	return updated, nil
}

// loadMembers fetches the team entries concurrently and checks that each is
// owned and battle eligible. The result keeps the order of ids.
func (s *arenaService) loadMembers(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) ([]*domain.WordEntry, error) {
	members := make([]*domain.WordEntry, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(domain.MaxTeamSize)
	for i, id := range ids {
		g.Go(func() error {
			entry, err := s.entries.GetByID(gctx, id)
			switch {
			case errors.Is(err, store.ErrWordEntryNotFound):
				return fmt.Errorf("%w: entry %s not found", domain.ErrInvalidTeam, id)
			case err != nil:
				return err
			case entry.UserID != userID:
				return fmt.Errorf("%w: entry %s is not yours", domain.ErrInvalidTeam, id)
			case !entry.BattleEligible():
				return fmt.Errorf("%w: %q cannot battle", domain.ErrInvalidTeam, entry.Word)
			}
			members[i] = entry
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return members, nil
}
