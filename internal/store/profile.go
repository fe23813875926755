package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/phrazzld/wordmon-api/internal/domain"
)

// ProfileStore persists player profiles: rating, record and active team.
type ProfileStore interface {
	// Get fetches a profile. Returns ErrProfileNotFound if absent.
	Get(ctx context.Context, userID uuid.UUID) (*domain.Profile, error)

	// GetForUpdate fetches a profile and locks it within the enclosing
	// transaction where the backend supports row locks.
	GetForUpdate(ctx context.Context, userID uuid.UUID) (*domain.Profile, error)

	// Create inserts a profile. Returns ErrDuplicate if one already exists.
	Create(ctx context.Context, profile *domain.Profile) error

	// Update overwrites a profile. Returns ErrProfileNotFound if absent.
	Update(ctx context.Context, profile *domain.Profile) error

	// WithTx returns a store bound to tx.
	WithTx(tx *sql.Tx) ProfileStore
}

// OpponentFinder looks up matchmaking candidates by team power.
type OpponentFinder interface {
	// FindOpponents returns up to limit profiles other than excludeUserID
	// with a non-empty team whose power lies in [minPower, maxPower],
	// closest to power first.
	FindOpponents(ctx context.Context, excludeUserID uuid.UUID, power, minPower, maxPower, limit int) ([]*domain.Profile, error)
}
