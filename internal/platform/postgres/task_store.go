package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/wordmon-api/internal/platform/logger"
	"github.com/phrazzld/wordmon-api/internal/store"
	"github.com/phrazzld/wordmon-api/internal/task"
)

// PostgresTaskStore implements task.TaskStore. Rows are turned back into
// runnable tasks through the registry.
type PostgresTaskStore struct {
	db       store.DBTX
	registry *task.Registry
	logger   *slog.Logger
}

// NewPostgresTaskStore creates a task store.
func NewPostgresTaskStore(db store.DBTX, registry *task.Registry, logger *slog.Logger) *PostgresTaskStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if registry == nil {
		registry = task.NewRegistry()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresTaskStore{
		db:       db,
		registry: registry,
		logger:   logger.With(slog.String("component", "task_store")),
	}
}

var _ task.TaskStore = (*PostgresTaskStore)(nil)

// WithTx implements task.TaskStore.
func (s *PostgresTaskStore) WithTx(tx *sql.Tx) task.TaskStore {
	return &PostgresTaskStore{db: tx, registry: s.registry, logger: s.logger}
}

// SaveTask implements task.TaskStore.
func (s *PostgresTaskStore) SaveTask(ctx context.Context, t task.Task) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	now := time.Now().UTC()
	query := `
		INSERT INTO tasks (id, type, payload, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := s.db.ExecContext(ctx, query,
		t.ID(),
		t.Type(),
		string(t.Payload()),
		string(t.Status()),
		now,
		now,
	)
	if err != nil {
		log.Error("failed to save task",
			slog.String("task_id", t.ID().String()),
			slog.String("task_type", t.Type()),
			slog.String("error", err.Error()))
		return mapWriteError(err, store.ErrDuplicate)
	}
	return nil
}

// UpdateTaskStatus implements task.TaskStore.
func (s *PostgresTaskStore) UpdateTaskStatus(ctx context.Context, taskID uuid.UUID, status task.TaskStatus, errorMsg string) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE tasks
		SET status = $1, error_message = $2, updated_at = $3
		WHERE id = $4
	`
	result, err := s.db.ExecContext(ctx, query, string(status), errorMsg, time.Now().UTC(), taskID)
	if err != nil {
		log.Error("failed to update task status",
			slog.String("task_id", taskID.String()),
			slog.String("status", string(status)),
			slog.String("error", err.Error()))
		return mapWriteError(err, nil)
	}
	return CheckRowsAffected(result, store.ErrTaskNotFound)
}

// GetPendingTasks implements task.TaskStore.
func (s *PostgresTaskStore) GetPendingTasks(ctx context.Context) ([]task.Task, error) {
	return s.getTasksByStatus(ctx, task.TaskStatusPending, 0)
}

// GetProcessingTasks implements task.TaskStore.
func (s *PostgresTaskStore) GetProcessingTasks(ctx context.Context, olderThan time.Duration) ([]task.Task, error) {
	return s.getTasksByStatus(ctx, task.TaskStatusProcessing, olderThan)
}

func (s *PostgresTaskStore) getTasksByStatus(ctx context.Context, status task.TaskStatus, olderThan time.Duration) ([]task.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `SELECT id, type, payload, status FROM tasks WHERE status = $1`
	args := []any{string(status)}
	if olderThan > 0 {
		query += ` AND updated_at < $2`
		args = append(args, time.Now().UTC().Add(-olderThan))
	}
	query += ` ORDER BY created_at, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query tasks by status",
			slog.String("status", string(status)),
			slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to query tasks by status: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return restoreTasks(rows, s.registry, log)
}

// restoreTasks rebuilds tasks from id, type, payload, status rows. Rows of
// unregistered types are skipped.
func restoreTasks(rows *sql.Rows, registry *task.Registry, log *slog.Logger) ([]task.Task, error) {
	tasks := []task.Task{}
	for rows.Next() {
		var (
			id       uuid.UUID
			taskType string
			payload  []byte
			status   string
		)
		if err := rows.Scan(&id, &taskType, &payload, &status); err != nil {
			return nil, fmt.Errorf("failed to scan task row: %w", err)
		}

		t, err := registry.Restore(id, taskType, payload, task.TaskStatus(status))
		if err != nil {
			log.Warn("skipping unrestorable task",
				slog.String("task_id", id.String()),
				slog.String("task_type", taskType),
				slog.String("error", err.Error()))
			continue
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating task rows: %w", err)
	}
	return tasks, nil
}
