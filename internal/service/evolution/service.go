// Package evolution runs evolution, branching, fusion and hidden-move
// lookups against stored entries. The transition rules themselves live in
// internal/domain/evolution; this package adds locking, persistence,
// provider calls and events.
package evolution

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/wordmon-api/internal/domain"
	"github.com/phrazzld/wordmon-api/internal/domain/battle"
	rules "github.com/phrazzld/wordmon-api/internal/domain/evolution"
	"github.com/phrazzld/wordmon-api/internal/events"
	"github.com/phrazzld/wordmon-api/internal/provider"
	"github.com/phrazzld/wordmon-api/internal/service"
	"github.com/phrazzld/wordmon-api/internal/service/entrylock"
	"github.com/phrazzld/wordmon-api/internal/store"
	"github.com/phrazzld/wordmon-api/internal/task"
	"golang.org/x/sync/singleflight"
)

const serviceName = "evolution"

var (
	// ErrUnknownBranch is returned when the chosen word was not offered.
	ErrUnknownBranch = fmt.Errorf("%w: branch word was not offered", domain.ErrValidation)

	// ErrFamilyChanged is returned when the fusion family changed between
	// resolving the ascended word and committing the fusion.
	ErrFamilyChanged = fmt.Errorf("%w: fusion family changed", domain.ErrIneligibleTransition)
)

// BranchResult is the outcome of ChooseBranch. MergedID names the entry that
// was absorbed when the branch word was already owned.
type BranchResult struct {
	Entry    *domain.WordEntry `json:"entry"`
	MergedID *uuid.UUID        `json:"merged_id,omitempty"`
}

// FusionResult is the outcome of Fuse.
type FusionResult struct {
	Entry    *domain.WordEntry `json:"entry"`
	Consumed []uuid.UUID       `json:"consumed"`
}

// Service drives entries through their evolution stages.
type Service interface {
	// Evolve performs the linear stage 0→1 and 1→2 transitions.
	Evolve(ctx context.Context, userID, entryID uuid.UUID) (*domain.WordEntry, error)

	// BranchOptions lists the words a stage-2 entry can branch into. A
	// provider failure yields an empty list.
	BranchOptions(ctx context.Context, userID, entryID uuid.UUID) ([]rules.BranchCandidate, error)

	// ChooseBranch performs the stage 2→3 transition. word must be one of the
	// offered words; nil advances the stage without renaming.
	ChooseBranch(ctx context.Context, userID, entryID uuid.UUID, word *string) (*BranchResult, error)

	// FusionCandidates lists the entries that would fuse with entryID.
	FusionCandidates(ctx context.Context, userID, entryID uuid.UUID) ([]*domain.WordEntry, error)

	// Fuse consumes a stage-3 entry and its family peers and creates the
	// stage-4 ascended entry.
	Fuse(ctx context.Context, userID, entryID uuid.UUID) (*FusionResult, error)

	// HiddenMove returns the hidden move of a stage 3 or 4 entry, resolving
	// and caching it on first access.
	HiddenMove(ctx context.Context, userID, entryID uuid.UUID) (string, error)
}

// Config holds the dependencies of the evolution service.
type Config struct {
	DB              store.TxBeginner
	Entries         store.WordEntryStore
	Profiles        store.ProfileStore
	Branches        provider.BranchProvider
	FusionWords     provider.FusionWordProvider
	HiddenMoves     provider.HiddenMoveProvider
	Locker          *entrylock.Locker
	Events          events.EventEmitter
	ProviderTimeout time.Duration
	Logger          *slog.Logger
}

type evolutionService struct {
	db          store.TxBeginner
	entries     store.WordEntryStore
	profiles    store.ProfileStore
	branches    provider.BranchProvider
	fusionWords provider.FusionWordProvider
	hiddenMoves provider.HiddenMoveProvider
	locker      *entrylock.Locker
	events      events.EventEmitter
	timeout     time.Duration
	calc        battle.StatCalculator
	logger      *slog.Logger

	moves singleflight.Group

	offersMu sync.Mutex
	offers   map[uuid.UUID]offer
}

// offer is the branch set last shown for an entry.
type offer struct {
	family     string
	candidates []rules.BranchCandidate
}

// Service satisfies task.HiddenMoveFiller so the prefetch task can warm the
// hidden-move cache.
var (
	_ Service               = (*evolutionService)(nil)
	_ task.HiddenMoveFiller = Service(nil)
)

// NewService creates the evolution service. Missing providers are replaced
// by provider.Unavailable so every call takes its fallback.
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
	if cfg.Branches == nil {
		cfg.Branches = provider.Unavailable{}
	}
	if cfg.FusionWords == nil {
		cfg.FusionWords = provider.Unavailable{}
	}
	if cfg.HiddenMoves == nil {
		cfg.HiddenMoves = provider.Unavailable{}
	}
	if cfg.Locker == nil {
		cfg.Locker = entrylock.New()
	}
	if cfg.Events == nil {
		cfg.Events = events.NopEmitter{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &evolutionService{
		db:          cfg.DB,
		entries:     cfg.Entries,
		profiles:    cfg.Profiles,
		branches:    cfg.Branches,
		fusionWords: cfg.FusionWords,
		hiddenMoves: cfg.HiddenMoves,
		locker:      cfg.Locker,
		events:      cfg.Events,
		timeout:     cfg.ProviderTimeout,
		calc:        battle.DefaultCalculator{},
		logger:      cfg.Logger.With(slog.String("component", "evolution_service")),
		offers:      make(map[uuid.UUID]offer),
	}, nil
}

// ownedEntry loads entryID outside any transaction and checks ownership.
func (s *evolutionService) ownedEntry(ctx context.Context, userID, entryID uuid.UUID) (*domain.WordEntry, error) {
	entry, err := s.entries.GetByID(ctx, entryID)
	if err != nil {
		return nil, err
	}
	if err := service.Owned(entry, userID); err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *evolutionService) cacheOffer(entryID uuid.UUID, o offer) {
	s.offersMu.Lock()
	s.offers[entryID] = o
	s.offersMu.Unlock()
}

func (s *evolutionService) cachedOffer(entryID uuid.UUID) (offer, bool) {
	s.offersMu.Lock()
	defer s.offersMu.Unlock()
	o, ok := s.offers[entryID]
	return o, ok
}

func (s *evolutionService) dropOffer(entryID uuid.UUID) {
	s.offersMu.Lock()
	delete(s.offers, entryID)
	s.offersMu.Unlock()
}

func normalizeFamily(family string) string {
	return strings.ToLower(strings.TrimSpace(family))
}
