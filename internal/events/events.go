package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Event types emitted by the progression services.
const (
	TypeEntryCaptured  = "entry.captured"
	TypeEntryEvolved   = "entry.evolved"
	TypeEntryFused     = "entry.fused"
	TypeBattleFinished = "battle.finished"
)

// Event is a domain fact published after the write that produced it has
// committed.
type Event struct {
	ID        uuid.UUID       `json:"id"`
	Type      string          `json:"type"`
	UserID    uuid.UUID       `json:"user_id"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

// UnmarshalPayload decodes the event payload into v.
func (e *Event) UnmarshalPayload(v any) error {
	return json.Unmarshal(e.Payload, v)
}

// NewEvent creates an Event with a fresh id and the JSON-encoded payload.
func NewEvent(eventType string, userID uuid.UUID, payload any) (*Event, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:        uuid.New(),
		Type:      eventType,
		UserID:    userID,
		Payload:   payloadBytes,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// EntryCaptured is the payload of TypeEntryCaptured.
type EntryCaptured struct {
	EntryID uuid.UUID `json:"entry_id"`
	Word    string    `json:"word"`
	Rarity  string    `json:"rarity"`
	Source  string    `json:"source"`
}

// EntryEvolved is the payload of TypeEntryEvolved. MergedID is set when the
// evolution absorbed another entry of the same word.
type EntryEvolved struct {
	EntryID  uuid.UUID  `json:"entry_id"`
	Word     string     `json:"word"`
	Stage    int        `json:"stage"`
	FamilyID string     `json:"family_id,omitempty"`
	MergedID *uuid.UUID `json:"merged_id,omitempty"`
}

// EntryFused is the payload of TypeEntryFused.
type EntryFused struct {
	EntryID  uuid.UUID   `json:"entry_id"`
	Word     string      `json:"word"`
	FamilyID string      `json:"family_id"`
	Consumed []uuid.UUID `json:"consumed"`
}

// BattleFinished is the payload of TypeBattleFinished.
type BattleFinished struct {
	OpponentID *uuid.UUID `json:"opponent_id,omitempty"`
	Bot        bool       `json:"bot"`
	Won        bool       `json:"won"`
	Rounds     int        `json:"rounds"`
	Rating     int        `json:"rating"`
	Delta      int        `json:"delta"`
}

// EventHandler processes events.
type EventHandler interface {
	HandleEvent(ctx context.Context, event *Event) error
}

// EventEmitter publishes events to registered handlers.
type EventEmitter interface {
	EmitEvent(ctx context.Context, event *Event) error
}

// NopEmitter discards every event.
type NopEmitter struct{}

// EmitEvent implements EventEmitter.
func (NopEmitter) EmitEvent(context.Context, *Event) error { return nil }

// Publish builds and emits an event. Failures are logged and dropped; the
// change the event reports is already committed.
func Publish(ctx context.Context, emitter EventEmitter, log *slog.Logger, eventType string, userID uuid.UUID, payload any) {
	if emitter == nil {
		return
	}
	event, err := NewEvent(eventType, userID, payload)
	if err == nil {
		err = emitter.EmitEvent(ctx, event)
	}
	if err != nil {
		log.Warn("failed to publish event",
			slog.String("event_type", eventType),
			slog.String("user_id", userID.String()),
			slog.String("error", err.Error()))
	}
}
