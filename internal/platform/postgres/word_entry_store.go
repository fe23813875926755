package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/wordmon-api/internal/domain"
	"github.com/phrazzld/wordmon-api/internal/platform/logger"
	"github.com/phrazzld/wordmon-api/internal/platform/sqlcodec"
	"github.com/phrazzld/wordmon-api/internal/store"
)

const wordEntryColumns = `id, user_id, word, origin, rarity, frequency, frequency_source, source, tags,
	first_caught, srs_level, srs_streak, next_review, last_reviewed,
	stage, can_evolve, branch, hidden_move, family_id, created_at, updated_at`

// PostgresWordEntryStore implements store.WordEntryStore.
type PostgresWordEntryStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresWordEntryStore creates a store over db, which may be a pool or a
// transaction. If logger is nil, slog.Default() is used.
func NewPostgresWordEntryStore(db store.DBTX, logger *slog.Logger) *PostgresWordEntryStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresWordEntryStore{
		db:     db,
		logger: logger.With(slog.String("component", "word_entry_store")),
	}
}

var _ store.WordEntryStore = (*PostgresWordEntryStore)(nil)

// WithTx implements store.WordEntryStore.
func (s *PostgresWordEntryStore) WithTx(tx *sql.Tx) store.WordEntryStore {
	return &PostgresWordEntryStore{db: tx, logger: s.logger}
}

// Create implements store.WordEntryStore.
func (s *PostgresWordEntryStore) Create(ctx context.Context, entry *domain.WordEntry) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := entry.Validate(); err != nil {
		log.Warn("word entry validation failed during create",
			slog.String("error", err.Error()),
			slog.String("entry_id", entry.ID.String()))
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	tags, err := sqlcodec.EncodeTags(entry.Tags)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO word_entries (` + wordEntryColumns + `, word_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)
	`
	_, err = s.db.ExecContext(ctx, query,
		entry.ID,
		entry.UserID,
		entry.Word,
		entry.Origin,
		string(entry.Rarity),
		entry.Frequency,
		entry.FrequencySource,
		entry.Source,
		tags,
		entry.FirstCaught,
		entry.SRS.Level,
		entry.SRS.Streak,
		nullTime(entry.SRS.NextReview),
		nullTime(entry.SRS.LastReviewed),
		entry.Evolution.Stage,
		entry.Evolution.CanEvolve,
		sqlcodec.BranchValue(entry.Evolution.Branch),
		entry.Evolution.HiddenMove,
		entry.FamilyID,
		entry.CreatedAt,
		entry.UpdatedAt,
		wordKey(entry.Word),
	)
	if err != nil {
		log.Error("failed to create word entry",
			slog.String("error", err.Error()),
			slog.String("entry_id", entry.ID.String()),
			slog.String("user_id", entry.UserID.String()))
		return mapWriteError(err, store.ErrWordExists)
	}

	log.Debug("word entry created",
		slog.String("entry_id", entry.ID.String()),
		slog.String("word", entry.Word))
	return nil
}

// GetByID implements store.WordEntryStore.
func (s *PostgresWordEntryStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.WordEntry, error) {
	return s.getOne(ctx, `SELECT `+wordEntryColumns+` FROM word_entries WHERE id = $1`, id)
}

// GetForUpdate implements store.WordEntryStore.
func (s *PostgresWordEntryStore) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.WordEntry, error) {
	return s.getOne(ctx, `SELECT `+wordEntryColumns+` FROM word_entries WHERE id = $1 FOR UPDATE`, id)
}

// GetByWord implements store.WordEntryStore.
func (s *PostgresWordEntryStore) GetByWord(ctx context.Context, userID uuid.UUID, word string) (*domain.WordEntry, error) {
	return s.getOne(ctx,
		`SELECT `+wordEntryColumns+` FROM word_entries WHERE user_id = $1 AND word_key = $2`,
		userID, wordKey(word))
}

func (s *PostgresWordEntryStore) getOne(ctx context.Context, query string, args ...any) (*domain.WordEntry, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	entry, err := scanWordEntry(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrWordEntryNotFound
		}
		log.Error("failed to get word entry", slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	return entry, nil
}

// ListByUser implements store.WordEntryStore.
func (s *PostgresWordEntryStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.WordEntry, error) {
	return s.list(ctx,
		`SELECT `+wordEntryColumns+` FROM word_entries WHERE user_id = $1 ORDER BY first_caught, id`,
		userID)
}

// ListByFamily implements store.WordEntryStore.
func (s *PostgresWordEntryStore) ListByFamily(ctx context.Context, userID uuid.UUID, familyID string) ([]*domain.WordEntry, error) {
	if familyID == "" {
		return []*domain.WordEntry{}, nil
	}
	return s.list(ctx,
		`SELECT `+wordEntryColumns+` FROM word_entries WHERE user_id = $1 AND family_id = $2 ORDER BY first_caught, id`,
		userID, familyID)
}

// ListDue implements store.WordEntryStore.
func (s *PostgresWordEntryStore) ListDue(ctx context.Context, userID uuid.UUID, now time.Time, limit int) ([]*domain.WordEntry, error) {
	query := `
		SELECT ` + wordEntryColumns + `
		FROM word_entries
		WHERE user_id = $1
		  AND rarity <> 'god'
		  AND (next_review IS NULL OR next_review <= $2)
		ORDER BY next_review NULLS FIRST, first_caught, id
	`
	args := []any{userID, now}
	if limit > 0 {
		query += ` LIMIT $3`
		args = append(args, limit)
	}
	return s.list(ctx, query, args...)
}

func (s *PostgresWordEntryStore) list(ctx context.Context, query string, args ...any) ([]*domain.WordEntry, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query word entries", slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	entries := []*domain.WordEntry{}
	for rows.Next() {
		entry, err := scanWordEntry(rows)
		if err != nil {
			log.Error("failed to scan word entry", slog.String("error", err.Error()))
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating word entries: %w", err)
	}
	return entries, nil
}

// Update implements store.WordEntryStore.
func (s *PostgresWordEntryStore) Update(ctx context.Context, entry *domain.WordEntry) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := entry.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	tags, err := sqlcodec.EncodeTags(entry.Tags)
	if err != nil {
		return err
	}

	query := `
		UPDATE word_entries SET
			word = $2, word_key = $3, origin = $4, rarity = $5, frequency = $6,
			frequency_source = $7, source = $8, tags = $9,
			srs_level = $10, srs_streak = $11, next_review = $12, last_reviewed = $13,
			stage = $14, can_evolve = $15, branch = $16, hidden_move = $17,
			family_id = $18, updated_at = $19
		WHERE id = $1
	`
	result, err := s.db.ExecContext(ctx, query,
		entry.ID,
		entry.Word,
		wordKey(entry.Word),
		entry.Origin,
		string(entry.Rarity),
		entry.Frequency,
		entry.FrequencySource,
		entry.Source,
		tags,
		entry.SRS.Level,
		entry.SRS.Streak,
		nullTime(entry.SRS.NextReview),
		nullTime(entry.SRS.LastReviewed),
		entry.Evolution.Stage,
		entry.Evolution.CanEvolve,
		sqlcodec.BranchValue(entry.Evolution.Branch),
		entry.Evolution.HiddenMove,
		entry.FamilyID,
		entry.UpdatedAt,
	)
	if err != nil {
		log.Error("failed to update word entry",
			slog.String("error", err.Error()),
			slog.String("entry_id", entry.ID.String()))
		return mapWriteError(err, store.ErrWordExists)
	}

	return CheckRowsAffected(result, store.ErrWordEntryNotFound)
}

// Delete implements store.WordEntryStore.
func (s *PostgresWordEntryStore) Delete(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, `DELETE FROM word_entries WHERE id = $1`, id)
	if err != nil {
		log.Error("failed to delete word entry",
			slog.String("error", err.Error()),
			slog.String("entry_id", id.String()))
		return mapWriteError(err, nil)
	}
	return CheckRowsAffected(result, store.ErrWordEntryNotFound)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWordEntry(row rowScanner) (*domain.WordEntry, error) {
	var (
		e            domain.WordEntry
		rarity       string
		frequency    sql.NullFloat64
		tags         []byte
		nextReview   sql.NullTime
		lastReviewed sql.NullTime
		branch       sql.NullString
	)

	err := row.Scan(
		&e.ID,
		&e.UserID,
		&e.Word,
		&e.Origin,
		&rarity,
		&frequency,
		&e.FrequencySource,
		&e.Source,
		&tags,
		&e.FirstCaught,
		&e.SRS.Level,
		&e.SRS.Streak,
		&nextReview,
		&lastReviewed,
		&e.Evolution.Stage,
		&e.Evolution.CanEvolve,
		&branch,
		&e.Evolution.HiddenMove,
		&e.FamilyID,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	e.Rarity = domain.Rarity(rarity)
	if frequency.Valid {
		f := frequency.Float64
		e.Frequency = &f
	}
	if e.Tags, err = sqlcodec.DecodeTags(tags); err != nil {
		return nil, err
	}
	e.FirstCaught = e.FirstCaught.UTC()
	e.SRS.NextReview = fromNullTime(nextReview)
	e.SRS.LastReviewed = fromNullTime(lastReviewed)
	e.Evolution.Branch = sqlcodec.BranchFrom(branch.Valid, branch.String)
	e.CreatedAt = e.CreatedAt.UTC()
	e.UpdatedAt = e.UpdatedAt.UTC()
	return &e, nil
}

func wordKey(word string) string {
	return strings.TrimSpace(word)
}

func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func fromNullTime(t sql.NullTime) time.Time {
	if !t.Valid {
		return time.Time{}
	}
	return t.Time.UTC()
}
