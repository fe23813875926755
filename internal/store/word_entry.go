package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/wordmon-api/internal/domain"
)

// WordEntryStore persists the per-user word collection (the "dex").
type WordEntryStore interface {
	// Create inserts a new entry. The entry must pass Validate.
	// Returns ErrWordExists if the user already owns the same word
	// (case-insensitive), ErrInvalidEntity on validation failure.
	Create(ctx context.Context, entry *domain.WordEntry) error

	// GetByID fetches an entry by its primary key.
	// Returns ErrWordEntryNotFound if no entry matches.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.WordEntry, error)

	// GetForUpdate fetches an entry and locks its row for the lifetime of the
	// enclosing transaction where the backend supports row locks. Outside a
	// transaction it behaves like GetByID.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.WordEntry, error)

	// GetByWord fetches a user's entry for word, matched exactly after trimming.
	// Returns ErrWordEntryNotFound if the user does not own it.
	GetByWord(ctx context.Context, userID uuid.UUID, word string) (*domain.WordEntry, error)

	// ListByUser returns every entry owned by the user, oldest catch first.
	// An empty collection yields an empty slice, not an error.
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.WordEntry, error)

	// ListByFamily returns the user's entries sharing familyID, oldest catch
	// first.
	ListByFamily(ctx context.Context, userID uuid.UUID, familyID string) ([]*domain.WordEntry, error)

	// ListDue returns the user's quiz-eligible entries (god tier excluded)
	// whose next review is at or before now, soonest first. limit <= 0 means
	// no limit.
	ListDue(ctx context.Context, userID uuid.UUID, now time.Time, limit int) ([]*domain.WordEntry, error)

	// Update overwrites the mutable fields of an existing entry.
	// Returns ErrWordEntryNotFound if it does not exist, ErrWordExists if a
	// rename collides with another owned word.
	Update(ctx context.Context, entry *domain.WordEntry) error

	// Delete removes an entry. Returns ErrWordEntryNotFound if absent.
	Delete(ctx context.Context, id uuid.UUID) error

	// WithTx returns a store bound to tx.
	WithTx(tx *sql.Tx) WordEntryStore
}
