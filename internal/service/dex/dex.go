// Package dex captures words into a user's collection and manages the
// collection afterwards.
package dex

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/phrazzld/wordmon-api/internal/domain"
	"github.com/phrazzld/wordmon-api/internal/domain/battle"
	"github.com/phrazzld/wordmon-api/internal/events"
	"github.com/phrazzld/wordmon-api/internal/platform/logger"
	"github.com/phrazzld/wordmon-api/internal/provider"
	"github.com/phrazzld/wordmon-api/internal/service"
	"github.com/phrazzld/wordmon-api/internal/service/entrylock"
	"github.com/phrazzld/wordmon-api/internal/store"
)

const serviceName = "dex"

// SortOrder selects how List orders a collection.
type SortOrder string

// Sort orders.
const (
	SortRecent SortOrder = "recent"
	SortAlpha  SortOrder = "alpha"
	SortRarity SortOrder = "rarity"
	SortStage  SortOrder = "stage"
)

// ErrInvalidSort is returned for an unknown sort order.
var ErrInvalidSort = fmt.Errorf("%w: unknown sort order", domain.ErrValidation)

// ParseSortOrder parses s, defaulting to SortRecent when s is empty.
func ParseSortOrder(s string) (SortOrder, error) {
	switch o := SortOrder(strings.ToLower(strings.TrimSpace(s))); o {
	case "":
		return SortRecent, nil
	case SortRecent, SortAlpha, SortRarity, SortStage:
		return o, nil
	}
	return "", ErrInvalidSort
}

// Classifier assigns a rarity when the definition provider offers none.
type Classifier interface {
	Classify(word string) domain.Rarity
}

// Service manages a user's word collection.
type Service interface {
	// Capture adds word to the user's collection. Capturing a word the user
	// already owns returns the existing entry with created set to false.
	Capture(ctx context.Context, userID uuid.UUID, word string) (entry *domain.WordEntry, created bool, err error)

	// List returns the user's entries in the given order.
	List(ctx context.Context, userID uuid.UUID, order SortOrder) ([]*domain.WordEntry, error)

	// Get returns one owned entry.
	Get(ctx context.Context, userID, entryID uuid.UUID) (*domain.WordEntry, error)

	// Delete removes an owned entry and drops it from the battle team.
	Delete(ctx context.Context, userID, entryID uuid.UUID) error
}

// Config holds the dependencies of the dex service.
type Config struct {
	DB              store.TxBeginner
	Entries         store.WordEntryStore
	Profiles        store.ProfileStore
	Definitions     provider.DefinitionProvider
	Classifier      Classifier
	Locker          *entrylock.Locker
	Events          events.EventEmitter
	ProviderTimeout time.Duration
	Logger          *slog.Logger
}

type dexService struct {
	db          store.TxBeginner
	entries     store.WordEntryStore
	profiles    store.ProfileStore
	definitions provider.DefinitionProvider
	classifier  Classifier
	locker      *entrylock.Locker
	events      events.EventEmitter
	timeout     time.Duration
	calc        battle.StatCalculator
	logger      *slog.Logger
}

var _ Service = (*dexService)(nil)

// NewService creates the dex service. It panics when a required dependency
// is missing.
func NewService(cfg Config) Service {
	if cfg.DB == nil || cfg.Entries == nil || cfg.Profiles == nil || cfg.Classifier == nil {
		panic("dex: db, entries, profiles and classifier are required")
	}
	if cfg.Definitions == nil {
		cfg.Definitions = provider.Unavailable{}
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
	return &dexService{
		db:          cfg.DB,
		entries:     cfg.Entries,
		profiles:    cfg.Profiles,
		definitions: cfg.Definitions,
		classifier:  cfg.Classifier,
		locker:      cfg.Locker,
		events:      cfg.Events,
		timeout:     cfg.ProviderTimeout,
		calc:        battle.DefaultCalculator{},
		logger:      cfg.Logger.With(slog.String("component", "dex_service")),
	}
}

// Capture implements Service.
func (s *dexService) Capture(ctx context.Context, userID uuid.UUID, word string) (*domain.WordEntry, bool, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	word = strings.TrimSpace(word)
	switch {
	case word == "":
		return nil, false, domain.ErrEntryWordEmpty
	case utf8.RuneCountInString(word) > domain.MaxWordLength:
		return nil, false, domain.ErrEntryWordTooLong
	}

	existing, err := s.entries.GetByWord(ctx, userID, word)
	switch {
	case err == nil:
		return existing, false, nil
	case !errors.Is(err, store.ErrWordEntryNotFound):
		return nil, false, service.NewServiceError(serviceName, "capture", "failed to check existing entry", err)
	}

	def, err := provider.Call(ctx, s.timeout, func(ctx context.Context) (*provider.Definition, error) {
		return s.definitions.Lookup(ctx, word)
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, false, ctx.Err()
		}
		log.Info("definition lookup failed, capturing without definition",
			slog.String("word", word),
			slog.String("error", err.Error()))
		def = nil
	}

	entry, err := domain.NewWordEntry(userID, word, s.rarityFor(word, def), domain.Now())
	if err != nil {
		return nil, false, err
	}
	if def != nil {
		entry.Origin = def.Origin
		entry.Frequency = def.Frequency
		entry.FrequencySource = def.FrequencySource
		entry.Source = def.Source
		entry.Tags = domain.NormalizeTags(def.Tags)
	}

	if err := s.entries.Create(ctx, entry); err != nil {
		if errors.Is(err, store.ErrWordExists) {
			// Lost a race with a concurrent capture of the same word.
			existing, getErr := s.entries.GetByWord(ctx, userID, word)
			if getErr == nil {
				return existing, false, nil
			}
		}
		return nil, false, service.NewServiceError(serviceName, "capture", "failed to create entry", err)
	}

	log.Info("word captured",
		slog.String("user_id", userID.String()),
		slog.String("entry_id", entry.ID.String()),
		slog.String("rarity", string(entry.Rarity)))
	events.Publish(ctx, s.events, log, events.TypeEntryCaptured, userID, events.EntryCaptured{
		EntryID: entry.ID,
		Word:    entry.Word,
		Rarity:  string(entry.Rarity),
		Source:  entry.Source,
	})
	return entry, true, nil
}

// rarityFor prefers the provider's rarity. god is reserved for fusion, so a
// provider claiming it is ignored.
func (s *dexService) rarityFor(word string, def *provider.Definition) domain.Rarity {
	if def != nil && def.Rarity != nil && def.Rarity.Valid() && *def.Rarity != domain.RarityGod {
		return *def.Rarity
	}
	return s.classifier.Classify(word)
}

// List implements Service.
func (s *dexService) List(ctx context.Context, userID uuid.UUID, order SortOrder) ([]*domain.WordEntry, error) {
	if order == "" {
		order = SortRecent
	}
	less, ok := orderings[order]
	if !ok {
		return nil, ErrInvalidSort
	}

	entries, err := s.entries.ListByUser(ctx, userID)
	if err != nil {
		return nil, service.NewServiceError(serviceName, "list", "failed to list entries", err)
	}
	slices.SortStableFunc(entries, less)
	return entries, nil
}

var orderings = map[SortOrder]func(a, b *domain.WordEntry) int{
	SortRecent: func(a, b *domain.WordEntry) int {
		return b.FirstCaught.Compare(a.FirstCaught)
	},
	SortAlpha: byWord,
	SortRarity: func(a, b *domain.WordEntry) int {
		if c := b.Rarity.Rank() - a.Rarity.Rank(); c != 0 {
			return c
		}
		return byWord(a, b)
	},
	SortStage: func(a, b *domain.WordEntry) int {
		if c := b.Evolution.Stage - a.Evolution.Stage; c != 0 {
			return c
		}
		return byWord(a, b)
	},
}

func byWord(a, b *domain.WordEntry) int {
	return strings.Compare(strings.ToLower(a.Word), strings.ToLower(b.Word))
}

// Get implements Service.
func (s *dexService) Get(ctx context.Context, userID, entryID uuid.UUID) (*domain.WordEntry, error) {
	entry, err := s.entries.GetByID(ctx, entryID)
	if err != nil {
		return nil, err
	}
	if err := service.Owned(entry, userID); err != nil {
		return nil, err
	}
	return entry, nil
}

// Delete implements Service.
func (s *dexService) Delete(ctx context.Context, userID, entryID uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	unlock := s.locker.Lock(entryID)
	defer unlock()

	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		entries := s.entries.WithTx(tx)

		entry, err := entries.GetForUpdate(ctx, entryID)
		if err != nil {
			return err
		}
		if err := service.Owned(entry, userID); err != nil {
			return err
		}
		if err := entries.Delete(ctx, entryID); err != nil {
			return err
		}
		return service.RemoveFromTeam(ctx, s.profiles.WithTx(tx), s.calc, userID, []uuid.UUID{entryID}, domain.Now())
	})
	if err != nil {
		if store.IsNotFoundError(err) || errors.Is(err, service.ErrNotOwned) {
			return err
		}
		return service.NewServiceError(serviceName, "delete", "failed to delete entry", err)
	}

	log.Info("entry deleted",
		slog.String("user_id", userID.String()),
		slog.String("entry_id", entryID.String()))
	return nil
}
