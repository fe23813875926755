package sqlite

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

// SQLiteTaskStore implements task.TaskStore.
type SQLiteTaskStore struct {
	db       store.DBTX
	registry *task.Registry
	logger   *slog.Logger
}

// NewSQLiteTaskStore creates a task store that restores rows through registry.
func NewSQLiteTaskStore(db store.DBTX, registry *task.Registry, logger *slog.Logger) *SQLiteTaskStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if registry == nil {
		registry = task.NewRegistry()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SQLiteTaskStore{
		db:       db,
		registry: registry,
		logger:   logger.With(slog.String("component", "task_store")),
	}
}

var _ task.TaskStore = (*SQLiteTaskStore)(nil)

// WithTx implements task.TaskStore.
func (s *SQLiteTaskStore) WithTx(tx *sql.Tx) task.TaskStore {
	return &SQLiteTaskStore{db: tx, registry: s.registry, logger: s.logger}
}

// SaveTask implements task.TaskStore.
func (s *SQLiteTaskStore) SaveTask(ctx context.Context, t task.Task) error {
	now := toMicros(time.Now())
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tasks (id, type, payload, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		t.ID().String(),
		t.Type(),
		string(t.Payload()),
		string(t.Status()),
		now,
		now,
	)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to save task",
			slog.String("task_id", t.ID().String()),
			slog.String("task_type", t.Type()),
			slog.String("error", err.Error()))
		return mapWriteError(err, store.ErrDuplicate)
	}
	return nil
}

// UpdateTaskStatus implements task.TaskStore.
func (s *SQLiteTaskStore) UpdateTaskStatus(ctx context.Context, taskID uuid.UUID, status task.TaskStatus, errorMsg string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET status = ?, error_message = ?, updated_at = ? WHERE id = ?`,
		string(status), errorMsg, toMicros(time.Now()), taskID.String())
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to update task status",
			slog.String("task_id", taskID.String()),
			slog.String("status", string(status)),
			slog.String("error", err.Error()))
		return mapWriteError(err, nil)
	}
	return checkRowsAffected(result, store.ErrTaskNotFound)
}

// GetPendingTasks implements task.TaskStore.
func (s *SQLiteTaskStore) GetPendingTasks(ctx context.Context) ([]task.Task, error) {
	return s.getTasksByStatus(ctx, task.TaskStatusPending, 0)
}

// GetProcessingTasks implements task.TaskStore.
func (s *SQLiteTaskStore) GetProcessingTasks(ctx context.Context, olderThan time.Duration) ([]task.Task, error) {
	return s.getTasksByStatus(ctx, task.TaskStatusProcessing, olderThan)
}

func (s *SQLiteTaskStore) getTasksByStatus(ctx context.Context, status task.TaskStatus, olderThan time.Duration) ([]task.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `SELECT id, type, payload, status FROM tasks WHERE status = ?`
	args := []any{string(status)}
	if olderThan > 0 {
		query += ` AND updated_at < ?`
		args = append(args, toMicros(time.Now().Add(-olderThan)))
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

	tasks := []task.Task{}
	for rows.Next() {
		var id, taskType, payload, taskStatus string
		if err := rows.Scan(&id, &taskType, &payload, &taskStatus); err != nil {
			return nil, fmt.Errorf("failed to scan task row: %w", err)
		}
		taskID, err := uuid.Parse(id)
		if err != nil {
			log.Warn("skipping task with malformed id", slog.String("task_id", id))
			continue
		}
		t, err := s.registry.Restore(taskID, taskType, []byte(payload), task.TaskStatus(taskStatus))
		if err != nil {
			log.Warn("skipping unrestorable task",
				slog.String("task_id", id),
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
