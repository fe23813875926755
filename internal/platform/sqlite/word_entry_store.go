package sqlite

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

// SQLiteWordEntryStore implements store.WordEntryStore on SQLite.
type SQLiteWordEntryStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewSQLiteWordEntryStore creates a store over db.
func NewSQLiteWordEntryStore(db store.DBTX, logger *slog.Logger) *SQLiteWordEntryStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SQLiteWordEntryStore{
		db:     db,
		logger: logger.With(slog.String("component", "word_entry_store")),
	}
}

var _ store.WordEntryStore = (*SQLiteWordEntryStore)(nil)

// WithTx implements store.WordEntryStore.
func (s *SQLiteWordEntryStore) WithTx(tx *sql.Tx) store.WordEntryStore {
	return &SQLiteWordEntryStore{db: tx, logger: s.logger}
}

// Create implements store.WordEntryStore.
func (s *SQLiteWordEntryStore) Create(ctx context.Context, entry *domain.WordEntry) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := entry.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}
	tags, err := sqlcodec.EncodeTags(entry.Tags)
	if err != nil {
		return err
	}

	query := `INSERT INTO word_entries (` + wordEntryColumns + `, word_key)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = s.db.ExecContext(ctx, query,
		entry.ID.String(),
		entry.UserID.String(),
		entry.Word,
		entry.Origin,
		string(entry.Rarity),
		nullFloat(entry.Frequency),
		entry.FrequencySource,
		entry.Source,
		tags,
		toMicros(entry.FirstCaught),
		entry.SRS.Level,
		entry.SRS.Streak,
		nullMicros(entry.SRS.NextReview),
		nullMicros(entry.SRS.LastReviewed),
		entry.Evolution.Stage,
		entry.Evolution.CanEvolve,
		sqlcodec.BranchValue(entry.Evolution.Branch),
		entry.Evolution.HiddenMove,
		entry.FamilyID,
		toMicros(entry.CreatedAt),
		toMicros(entry.UpdatedAt),
		wordKey(entry.Word),
	)
	if err != nil {
		log.Error("failed to create word entry",
			slog.String("error", err.Error()),
			slog.String("entry_id", entry.ID.String()))
		return mapWriteError(err, store.ErrWordExists)
	}
	return nil
}

// GetByID implements store.WordEntryStore.
func (s *SQLiteWordEntryStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.WordEntry, error) {
	return s.getOne(ctx, `SELECT `+wordEntryColumns+` FROM word_entries WHERE id = ?`, id.String())
}

// GetForUpdate implements store.WordEntryStore. The single-connection pool
// already serializes transactions, so no lock clause is needed.
func (s *SQLiteWordEntryStore) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.WordEntry, error) {
	return s.GetByID(ctx, id)
}

// GetByWord implements store.WordEntryStore.
func (s *SQLiteWordEntryStore) GetByWord(ctx context.Context, userID uuid.UUID, word string) (*domain.WordEntry, error) {
	return s.getOne(ctx,
		`SELECT `+wordEntryColumns+` FROM word_entries WHERE user_id = ? AND word_key = ?`,
		userID.String(), wordKey(word))
}

func (s *SQLiteWordEntryStore) getOne(ctx context.Context, query string, args ...any) (*domain.WordEntry, error) {
	entry, err := scanWordEntry(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrWordEntryNotFound
		}
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to get word entry",
			slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	return entry, nil
}

// ListByUser implements store.WordEntryStore.
func (s *SQLiteWordEntryStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.WordEntry, error) {
	return s.list(ctx,
		`SELECT `+wordEntryColumns+` FROM word_entries WHERE user_id = ? ORDER BY first_caught, id`,
		userID.String())
}

// ListByFamily implements store.WordEntryStore.
func (s *SQLiteWordEntryStore) ListByFamily(ctx context.Context, userID uuid.UUID, familyID string) ([]*domain.WordEntry, error) {
	if familyID == "" {
		return []*domain.WordEntry{}, nil
	}
	return s.list(ctx,
		`SELECT `+wordEntryColumns+` FROM word_entries WHERE user_id = ? AND family_id = ? ORDER BY first_caught, id`,
		userID.String(), familyID)
}

// ListDue implements store.WordEntryStore.
func (s *SQLiteWordEntryStore) ListDue(ctx context.Context, userID uuid.UUID, now time.Time, limit int) ([]*domain.WordEntry, error) {
	if limit <= 0 {
		limit = -1
	}
	// NULL next_review sorts first in SQLite.
	query := `SELECT ` + wordEntryColumns + `
		FROM word_entries
		WHERE user_id = ?
		  AND rarity <> 'god'
		  AND (next_review IS NULL OR next_review <= ?)
		ORDER BY next_review, first_caught, id
		LIMIT ?`
	return s.list(ctx, query, userID.String(), toMicros(now), limit)
}

func (s *SQLiteWordEntryStore) list(ctx context.Context, query string, args ...any) ([]*domain.WordEntry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to query word entries",
			slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	entries := []*domain.WordEntry{}
	for rows.Next() {
		entry, err := scanWordEntry(rows)
		if err != nil {
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
func (s *SQLiteWordEntryStore) Update(ctx context.Context, entry *domain.WordEntry) error {
	if err := entry.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}
	tags, err := sqlcodec.EncodeTags(entry.Tags)
	if err != nil {
		return err
	}

	query := `UPDATE word_entries SET
			word = ?, word_key = ?, origin = ?, rarity = ?, frequency = ?,
			frequency_source = ?, source = ?, tags = ?,
			srs_level = ?, srs_streak = ?, next_review = ?, last_reviewed = ?,
			stage = ?, can_evolve = ?, branch = ?, hidden_move = ?,
			family_id = ?, updated_at = ?
		WHERE id = ?`
	result, err := s.db.ExecContext(ctx, query,
		entry.Word,
		wordKey(entry.Word),
		entry.Origin,
		string(entry.Rarity),
		nullFloat(entry.Frequency),
		entry.FrequencySource,
		entry.Source,
		tags,
		entry.SRS.Level,
		entry.SRS.Streak,
		nullMicros(entry.SRS.NextReview),
		nullMicros(entry.SRS.LastReviewed),
		entry.Evolution.Stage,
		entry.Evolution.CanEvolve,
		sqlcodec.BranchValue(entry.Evolution.Branch),
		entry.Evolution.HiddenMove,
		entry.FamilyID,
		toMicros(entry.UpdatedAt),
		entry.ID.String(),
	)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to update word entry",
			slog.String("error", err.Error()),
			slog.String("entry_id", entry.ID.String()))
		return mapWriteError(err, store.ErrWordExists)
	}
	return checkRowsAffected(result, store.ErrWordEntryNotFound)
}

// Delete implements store.WordEntryStore.
func (s *SQLiteWordEntryStore) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM word_entries WHERE id = ?`, id.String())
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to delete word entry",
			slog.String("error", err.Error()),
			slog.String("entry_id", id.String()))
		return mapWriteError(err, nil)
	}
	return checkRowsAffected(result, store.ErrWordEntryNotFound)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWordEntry(row rowScanner) (*domain.WordEntry, error) {
	var (
		e            domain.WordEntry
		id, userID   string
		rarity       string
		frequency    sql.NullFloat64
		tags         []byte
		firstCaught  int64
		nextReview   sql.NullInt64
		lastReviewed sql.NullInt64
		branch       sql.NullString
		createdAt    int64
		updatedAt    int64
	)

	err := row.Scan(
		&id,
		&userID,
		&e.Word,
		&e.Origin,
		&rarity,
		&frequency,
		&e.FrequencySource,
		&e.Source,
		&tags,
		&firstCaught,
		&e.SRS.Level,
		&e.SRS.Streak,
		&nextReview,
		&lastReviewed,
		&e.Evolution.Stage,
		&e.Evolution.CanEvolve,
		&branch,
		&e.Evolution.HiddenMove,
		&e.FamilyID,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if e.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("invalid entry id %q: %w", id, err)
	}
	if e.UserID, err = uuid.Parse(userID); err != nil {
		return nil, fmt.Errorf("invalid user id %q: %w", userID, err)
	}
	e.Rarity = domain.Rarity(rarity)
	if frequency.Valid {
		f := frequency.Float64
		e.Frequency = &f
	}
	if e.Tags, err = sqlcodec.DecodeTags(tags); err != nil {
		return nil, err
	}
	e.FirstCaught = fromMicros(firstCaught)
	e.SRS.NextReview = fromNullMicros(nextReview)
	e.SRS.LastReviewed = fromNullMicros(lastReviewed)
	e.Evolution.Branch = sqlcodec.BranchFrom(branch.Valid, branch.String)
	e.CreatedAt = fromMicros(createdAt)
	e.UpdatedAt = fromMicros(updatedAt)
	return &e, nil
}

func wordKey(word string) string {
	return strings.TrimSpace(word)
}
