package api

import (
	"github.com/google/uuid"
	"github.com/phrazzld/wordmon-api/internal/domain"
	"github.com/phrazzld/wordmon-api/internal/domain/battle"
	rules "github.com/phrazzld/wordmon-api/internal/domain/evolution"
)

// CaptureRequest is the body of POST /api/entries.
type CaptureRequest struct {
	Word string `json:"word" validate:"required,max=64"`
}

// ReviewRequest is the body of POST /api/entries/{id}/review.
type ReviewRequest struct {
	Correct *bool `json:"correct" validate:"required"`
}

// BranchRequest is the body of POST /api/entries/{id}/branch. A null word
// evolves without renaming.
type BranchRequest struct {
	Word *string `json:"word" validate:"omitempty,min=1,max=64"`
}

// TeamRequest is the body of PUT /api/profile/team.
type TeamRequest struct {
	EntryIDs []uuid.UUID `json:"entry_ids" validate:"max=5"`
}

// EntryResponse is a word entry with its derived battle stats and
// evolution eligibility.
type EntryResponse struct {
	*domain.WordEntry
	Stats     battle.Stats `json:"stats"`
	Evolvable bool         `json:"evolvable"`
}

// CaptureResponse reports whether the capture created a new entry.
type CaptureResponse struct {
	Entry   EntryResponse `json:"entry"`
	Created bool          `json:"created"`
}

// BranchOptionsResponse lists branch candidates.
type BranchOptionsResponse struct {
	Options []rules.BranchCandidate `json:"options"`
}

// BranchResponse is the result of choosing a branch.
type BranchResponse struct {
	Entry    EntryResponse `json:"entry"`
	MergedID *uuid.UUID    `json:"merged_id,omitempty"`
}

// FusionResponse is the result of a fusion.
type FusionResponse struct {
	Entry    EntryResponse `json:"entry"`
	Consumed []uuid.UUID   `json:"consumed"`
}

// HiddenMoveResponse carries an entry's hidden move.
type HiddenMoveResponse struct {
	EntryID    uuid.UUID `json:"entry_id"`
	HiddenMove string    `json:"hidden_move"`
}

var statCalculator battle.StatCalculator = battle.DefaultCalculator{}

func toEntryResponse(e *domain.WordEntry) EntryResponse {
	return EntryResponse{
		WordEntry: e,
		Stats:     statCalculator.Stats(e.Combatant()),
		Evolvable: rules.CanEvolve(e),
	}
}

func toEntryResponses(entries []*domain.WordEntry) []EntryResponse {
	out := make([]EntryResponse, len(entries))
	for i, e := range entries {
		out[i] = toEntryResponse(e)
	}
	return out
}
