package task

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// TaskStatus represents the current state of a task
type TaskStatus string

// Possible task status values
const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// TaskTypeHiddenMovePrefetch fills the hidden move of an entry that reached
// stage 3 or 4 before anyone asks for it.
const TaskTypeHiddenMovePrefetch = "hidden_move_prefetch"

// ErrUnknownTaskType is returned when a persisted task has no registered
// factory.
var ErrUnknownTaskType = errors.New("unknown task type")

// Task represents a unit of background work to be processed
type Task interface {
	// ID returns the task's unique identifier
	ID() uuid.UUID

	// Type returns the task type identifier
	Type() string

	// Payload returns the task data as JSON
	Payload() []byte

	// Status returns the current task status
	Status() TaskStatus

	// Execute runs the task logic
	Execute(ctx context.Context) error
}

// TaskStore defines the interface for persisting tasks
type TaskStore interface {
	// SaveTask persists a task in its current status.
	SaveTask(ctx context.Context, task Task) error

	// UpdateTaskStatus updates the status of a task. errorMsg is stored for
	// failed tasks and cleared otherwise.
	UpdateTaskStatus(ctx context.Context, taskID uuid.UUID, status TaskStatus, errorMsg string) error

	// GetPendingTasks retrieves all tasks with "pending" status, oldest first.
	GetPendingTasks(ctx context.Context) ([]Task, error)

	// GetProcessingTasks retrieves tasks with "processing" status. If
	// olderThan is non-zero, only tasks that have been processing longer
	// than that are returned.
	GetProcessingTasks(ctx context.Context, olderThan time.Duration) ([]Task, error)

	// WithTx returns a TaskStore bound to tx.
	WithTx(tx *sql.Tx) TaskStore
}

// RestoreFunc rebuilds an executable task from its persisted form.
type RestoreFunc func(id uuid.UUID, payload []byte, status TaskStatus) (Task, error)

// Registry maps task types to the factories that rebuild them after a
// restart. Stores use it to turn rows back into runnable tasks.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]RestoreFunc
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]RestoreFunc)}
}

// Register associates taskType with fn, replacing any previous factory.
func (r *Registry) Register(taskType string, fn RestoreFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[taskType] = fn
}

// Restore rebuilds a task. It returns ErrUnknownTaskType for unregistered
// types.
func (r *Registry) Restore(id uuid.UUID, taskType string, payload []byte, status TaskStatus) (Task, error) {
	r.mu.RLock()
	fn, ok := r.factories[taskType]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTaskType, taskType)
	}
	return fn(id, payload, status)
}
