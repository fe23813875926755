package task

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/wordmon-api/internal/domain"
	"github.com/phrazzld/wordmon-api/internal/events"
)

// Submitter accepts tasks for background execution. *TaskRunner satisfies it.
type Submitter interface {
	Submit(ctx context.Context, task Task) error
}

// PrefetchEventHandler turns evolution and fusion events into hidden-move
// prefetch tasks for entries that reached stage 3 or 4.
type PrefetchEventHandler struct {
	factory *HiddenMovePrefetchFactory
	runner  Submitter
	logger  *slog.Logger
}

// NewPrefetchEventHandler creates the handler.
func NewPrefetchEventHandler(
	factory *HiddenMovePrefetchFactory,
	runner Submitter,
	logger *slog.Logger,
) *PrefetchEventHandler {
	return &PrefetchEventHandler{
		factory: factory,
		runner:  runner,
		logger:  logger.With(slog.String("component", "prefetch_event_handler")),
	}
}

// HandleEvent implements events.EventHandler.
func (h *PrefetchEventHandler) HandleEvent(ctx context.Context, event *events.Event) error {
	var entryID uuid.UUID
	switch event.Type {
	case events.TypeEntryEvolved:
		var payload events.EntryEvolved
		if err := event.UnmarshalPayload(&payload); err != nil {
			return fmt.Errorf("failed to unmarshal payload: %w", err)
		}
		if payload.Stage < domain.FusionStage {
			return nil
		}
		entryID = payload.EntryID
	case events.TypeEntryFused:
		var payload events.EntryFused
		if err := event.UnmarshalPayload(&payload); err != nil {
			return fmt.Errorf("failed to unmarshal payload: %w", err)
		}
		entryID = payload.EntryID
	default:
		h.logger.Debug("ignoring event",
			slog.String("event_type", event.Type),
			slog.String("event_id", event.ID.String()))
		return nil
	}

	t := h.factory.CreateTask(event.UserID, entryID)
	if err := h.runner.Submit(ctx, t); err != nil {
		h.logger.Error("failed to submit task",
			slog.String("error", err.Error()),
			slog.String("task_id", t.ID().String()),
			slog.String("entry_id", entryID.String()),
			slog.String("event_id", event.ID.String()))
		return fmt.Errorf("failed to submit task: %w", err)
	}

	h.logger.Info("hidden move prefetch submitted",
		slog.String("task_id", t.ID().String()),
		slog.String("entry_id", entryID.String()),
		slog.String("event_id", event.ID.String()))
	return nil
}

var _ events.EventHandler = (*PrefetchEventHandler)(nil)
