package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/wordmon-api/internal/domain"
	"github.com/phrazzld/wordmon-api/internal/platform/logger"
	"github.com/phrazzld/wordmon-api/internal/platform/sqlcodec"
	"github.com/phrazzld/wordmon-api/internal/store"
)

const profileColumns = `user_id, display_name, rating, wins, losses, team, team_snapshot, power, created_at, updated_at`

// SQLiteProfileStore implements store.ProfileStore and store.OpponentFinder.
type SQLiteProfileStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewSQLiteProfileStore creates a profile store over db.
func NewSQLiteProfileStore(db store.DBTX, logger *slog.Logger) *SQLiteProfileStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SQLiteProfileStore{
		db:     db,
		logger: logger.With(slog.String("component", "profile_store")),
	}
}

var (
	_ store.ProfileStore   = (*SQLiteProfileStore)(nil)
	_ store.OpponentFinder = (*SQLiteProfileStore)(nil)
)

// WithTx implements store.ProfileStore.
func (s *SQLiteProfileStore) WithTx(tx *sql.Tx) store.ProfileStore {
	return &SQLiteProfileStore{db: tx, logger: s.logger}
}

// Get implements store.ProfileStore.
func (s *SQLiteProfileStore) Get(ctx context.Context, userID uuid.UUID) (*domain.Profile, error) {
	p, err := scanProfile(s.db.QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE user_id = ?`, userID.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrProfileNotFound
		}
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to get profile",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
		return nil, MapError(err)
	}
	return p, nil
}

// GetForUpdate implements store.ProfileStore.
func (s *SQLiteProfileStore) GetForUpdate(ctx context.Context, userID uuid.UUID) (*domain.Profile, error) {
	return s.Get(ctx, userID)
}

// Create implements store.ProfileStore.
func (s *SQLiteProfileStore) Create(ctx context.Context, p *domain.Profile) error {
	team, snapshot, err := encodeProfile(p)
	if err != nil {
		return err
	}

	query := `INSERT INTO profiles (` + profileColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = s.db.ExecContext(ctx, query,
		p.UserID.String(),
		p.DisplayName,
		p.Rating,
		p.Wins,
		p.Losses,
		team,
		snapshot,
		p.Power,
		toMicros(p.CreatedAt),
		toMicros(p.UpdatedAt),
	)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to create profile",
			slog.String("error", err.Error()),
			slog.String("user_id", p.UserID.String()))
		return mapWriteError(err, store.ErrDuplicate)
	}
	return nil
}

// Update implements store.ProfileStore.
func (s *SQLiteProfileStore) Update(ctx context.Context, p *domain.Profile) error {
	team, snapshot, err := encodeProfile(p)
	if err != nil {
		return err
	}

	query := `UPDATE profiles SET
			display_name = ?, rating = ?, wins = ?, losses = ?,
			team = ?, team_snapshot = ?, power = ?, updated_at = ?
		WHERE user_id = ?`
	result, err := s.db.ExecContext(ctx, query,
		p.DisplayName,
		p.Rating,
		p.Wins,
		p.Losses,
		team,
		snapshot,
		p.Power,
		toMicros(p.UpdatedAt),
		p.UserID.String(),
	)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to update profile",
			slog.String("error", err.Error()),
			slog.String("user_id", p.UserID.String()))
		return mapWriteError(err, nil)
	}
	return checkRowsAffected(result, store.ErrProfileNotFound)
}

// FindOpponents implements store.OpponentFinder.
func (s *SQLiteProfileStore) FindOpponents(
	ctx context.Context,
	excludeUserID uuid.UUID,
	power, minPower, maxPower, limit int,
) ([]*domain.Profile, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `SELECT ` + profileColumns + `
		FROM profiles
		WHERE user_id <> ? AND power > 0 AND power BETWEEN ? AND ?
		ORDER BY abs(power - ?), user_id
		LIMIT ?`
	rows, err := s.db.QueryContext(ctx, query, excludeUserID.String(), minPower, maxPower, power, limit)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to query opponents",
			slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	profiles := []*domain.Profile{}
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating opponents: %w", err)
	}
	return profiles, nil
}

func encodeProfile(p *domain.Profile) (team, snapshot string, err error) {
	if err := p.Validate(); err != nil {
		return "", "", fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}
	if team, err = sqlcodec.EncodeTeam(p.Team); err != nil {
		return "", "", err
	}
	if snapshot, err = sqlcodec.EncodeSnapshot(p.TeamSnapshot); err != nil {
		return "", "", err
	}
	return team, snapshot, nil
}

func scanProfile(row rowScanner) (*domain.Profile, error) {
	var (
		p                    domain.Profile
		userID               string
		team, snapshot       []byte
		createdAt, updatedAt int64
	)
	err := row.Scan(
		&userID,
		&p.DisplayName,
		&p.Rating,
		&p.Wins,
		&p.Losses,
		&team,
		&snapshot,
		&p.Power,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if p.UserID, err = uuid.Parse(userID); err != nil {
		return nil, fmt.Errorf("invalid user id %q: %w", userID, err)
	}
	if p.Team, err = sqlcodec.DecodeTeam(team); err != nil {
		return nil, err
	}
	if p.TeamSnapshot, err = sqlcodec.DecodeSnapshot(snapshot); err != nil {
		return nil, err
	}
	p.CreatedAt = fromMicros(createdAt)
	p.UpdatedAt = fromMicros(updatedAt)
	return &p, nil
}
