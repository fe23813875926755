package postgres

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

// PostgresProfileStore implements store.ProfileStore and store.OpponentFinder.
type PostgresProfileStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresProfileStore creates a profile store over db.
func NewPostgresProfileStore(db store.DBTX, logger *slog.Logger) *PostgresProfileStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresProfileStore{
		db:     db,
		logger: logger.With(slog.String("component", "profile_store")),
	}
}

var (
	_ store.ProfileStore   = (*PostgresProfileStore)(nil)
	_ store.OpponentFinder = (*PostgresProfileStore)(nil)
)

// WithTx implements store.ProfileStore.
func (s *PostgresProfileStore) WithTx(tx *sql.Tx) store.ProfileStore {
	return &PostgresProfileStore{db: tx, logger: s.logger}
}

// Get implements store.ProfileStore.
func (s *PostgresProfileStore) Get(ctx context.Context, userID uuid.UUID) (*domain.Profile, error) {
	return s.getOne(ctx, `SELECT `+profileColumns+` FROM profiles WHERE user_id = $1`, userID)
}

// GetForUpdate implements store.ProfileStore.
func (s *PostgresProfileStore) GetForUpdate(ctx context.Context, userID uuid.UUID) (*domain.Profile, error) {
	return s.getOne(ctx, `SELECT `+profileColumns+` FROM profiles WHERE user_id = $1 FOR UPDATE`, userID)
}

func (s *PostgresProfileStore) getOne(ctx context.Context, query string, userID uuid.UUID) (*domain.Profile, error) {
	p, err := scanProfile(s.db.QueryRowContext(ctx, query, userID))
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

// Create implements store.ProfileStore.
func (s *PostgresProfileStore) Create(ctx context.Context, p *domain.Profile) error {
	args, err := profileArgs(p)
	if err != nil {
		return err
	}

	query := `INSERT INTO profiles (` + profileColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to create profile",
			slog.String("error", err.Error()),
			slog.String("user_id", p.UserID.String()))
		return mapWriteError(err, store.ErrDuplicate)
	}
	return nil
}

// Update implements store.ProfileStore.
func (s *PostgresProfileStore) Update(ctx context.Context, p *domain.Profile) error {
	args, err := profileArgs(p)
	if err != nil {
		return err
	}

	query := `
		UPDATE profiles SET
			display_name = $2, rating = $3, wins = $4, losses = $5,
			team = $6, team_snapshot = $7, power = $8, updated_at = $9
		WHERE user_id = $1
	`
	// created_at is immutable.
	result, err := s.db.ExecContext(ctx, query, append(args[:8:8], p.UpdatedAt)...)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to update profile",
			slog.String("error", err.Error()),
			slog.String("user_id", p.UserID.String()))
		return mapWriteError(err, nil)
	}
	return CheckRowsAffected(result, store.ErrProfileNotFound)
}

// FindOpponents implements store.OpponentFinder.
func (s *PostgresProfileStore) FindOpponents(
	ctx context.Context,
	excludeUserID uuid.UUID,
	power, minPower, maxPower, limit int,
) ([]*domain.Profile, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT ` + profileColumns + `
		FROM profiles
		WHERE user_id <> $1 AND power > 0 AND power BETWEEN $2 AND $3
		ORDER BY abs(power - $4), user_id
		LIMIT $5
	`
	rows, err := s.db.QueryContext(ctx, query, excludeUserID, minPower, maxPower, power, limit)
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

func profileArgs(p *domain.Profile) ([]any, error) {
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}
	team, err := sqlcodec.EncodeTeam(p.Team)
	if err != nil {
		return nil, err
	}
	snapshot, err := sqlcodec.EncodeSnapshot(p.TeamSnapshot)
	if err != nil {
		return nil, err
	}
	return []any{
		p.UserID,
		p.DisplayName,
		p.Rating,
		p.Wins,
		p.Losses,
		team,
		snapshot,
		p.Power,
		p.CreatedAt,
		p.UpdatedAt,
	}, nil
}

func scanProfile(row rowScanner) (*domain.Profile, error) {
	var (
		p        domain.Profile
		team     []byte
		snapshot []byte
	)
	err := row.Scan(
		&p.UserID,
		&p.DisplayName,
		&p.Rating,
		&p.Wins,
		&p.Losses,
		&team,
		&snapshot,
		&p.Power,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if p.Team, err = sqlcodec.DecodeTeam(team); err != nil {
		return nil, err
	}
	if p.TeamSnapshot, err = sqlcodec.DecodeSnapshot(snapshot); err != nil {
		return nil, err
	}
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	return &p, nil
}
