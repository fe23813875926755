package task

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// HiddenMoveFiller resolves and caches an entry's hidden move.
type HiddenMoveFiller interface {
	HiddenMove(ctx context.Context, userID, entryID uuid.UUID) (string, error)
}

// HiddenMovePayload identifies the entry to fill.
type HiddenMovePayload struct {
	UserID  uuid.UUID `json:"user_id"`
	EntryID uuid.UUID `json:"entry_id"`
}

// HiddenMovePrefetchTask warms the hidden-move cache of one entry.
type HiddenMovePrefetchTask struct {
	id      uuid.UUID
	payload HiddenMovePayload
	filler  HiddenMoveFiller
	logger  *slog.Logger

	mu     sync.Mutex
	status TaskStatus
}

// ID implements Task.
func (t *HiddenMovePrefetchTask) ID() uuid.UUID { return t.id }

// Type implements Task.
func (t *HiddenMovePrefetchTask) Type() string { return TaskTypeHiddenMovePrefetch }

// Payload implements Task.
func (t *HiddenMovePrefetchTask) Payload() []byte {
	b, _ := json.Marshal(t.payload)
	return b
}

// Status implements Task.
func (t *HiddenMovePrefetchTask) Status() TaskStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

func (t *HiddenMovePrefetchTask) setStatus(s TaskStatus) {
	t.mu.Lock()
	t.status = s
	t.mu.Unlock()
}

// Execute fills the hidden move. The filler never fails on provider outages
// (it falls back), so an error here means the entry is gone or the store is
// unavailable.
func (t *HiddenMovePrefetchTask) Execute(ctx context.Context) error {
	t.setStatus(TaskStatusProcessing)

	move, err := t.filler.HiddenMove(ctx, t.payload.UserID, t.payload.EntryID)
	if err != nil {
		t.setStatus(TaskStatusFailed)
		return fmt.Errorf("prefetch hidden move for entry %s: %w", t.payload.EntryID, err)
	}

	t.logger.Debug("hidden move prefetched",
		slog.String("entry_id", t.payload.EntryID.String()),
		slog.String("hidden_move", move))
	t.setStatus(TaskStatusCompleted)
	return nil
}

// HiddenMovePrefetchFactory builds prefetch tasks.
type HiddenMovePrefetchFactory struct {
	filler HiddenMoveFiller
	logger *slog.Logger
}

// NewHiddenMovePrefetchFactory creates a factory. It panics on a nil filler.
func NewHiddenMovePrefetchFactory(filler HiddenMoveFiller, logger *slog.Logger) *HiddenMovePrefetchFactory {
	if filler == nil {
		panic("filler cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HiddenMovePrefetchFactory{
		filler: filler,
		logger: logger.With(slog.String("component", "hidden_move_prefetch")),
	}
}

// CreateTask builds a new pending task for the entry.
func (f *HiddenMovePrefetchFactory) CreateTask(userID, entryID uuid.UUID) Task {
	return &HiddenMovePrefetchTask{
		id:      uuid.New(),
		payload: HiddenMovePayload{UserID: userID, EntryID: entryID},
		filler:  f.filler,
		logger:  f.logger,
		status:  TaskStatusPending,
	}
}

// Restore implements RestoreFunc.
func (f *HiddenMovePrefetchFactory) Restore(id uuid.UUID, payload []byte, status TaskStatus) (Task, error) {
	var p HiddenMovePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("decode hidden move payload: %w", err)
	}
	if p.EntryID == uuid.Nil || p.UserID == uuid.Nil {
		return nil, fmt.Errorf("hidden move payload missing ids")
	}
	return &HiddenMovePrefetchTask{
		id:      id,
		payload: p,
		filler:  f.filler,
		logger:  f.logger,
		status:  status,
	}, nil
}

// Register installs the factory's Restore in reg.
func (f *HiddenMovePrefetchFactory) Register(reg *Registry) {
	reg.Register(TaskTypeHiddenMovePrefetch, f.Restore)
}
