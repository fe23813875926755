package api

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/phrazzld/wordmon-api/internal/api/shared"
	"github.com/phrazzld/wordmon-api/internal/platform/logger"
	"github.com/phrazzld/wordmon-api/internal/service/arena"
)

// ArenaHandler serves the profile, team and battle endpoints.
type ArenaHandler struct {
	arena  arena.Service
	logger *slog.Logger
}

// NewArenaHandler creates an ArenaHandler.
func NewArenaHandler(svc arena.Service, logger *slog.Logger) *ArenaHandler {
	if svc == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("arena service cannot be nil for ArenaHandler")
	}
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for ArenaHandler")
	}

	return &ArenaHandler{
		arena:  svc,
		logger: logger.With(slog.String("component", "arena_handler")),
	}
}

// Profile handles GET /profile.
func (h *ArenaHandler) Profile(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	profile, err := h.arena.Profile(r.Context(), userID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to load profile")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, profile)
}

// SetTeam handles PUT /profile/team.
func (h *ArenaHandler) SetTeam(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req TeamRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	if req.EntryIDs == nil {
		req.EntryIDs = []uuid.UUID{}
	}

	profile, err := h.arena.SetTeam(r.Context(), userID, req.EntryIDs)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, profile)
}

// Battle handles POST /battles. The battle runs to completion within the
// request; a client disconnect cancels it and nothing is recorded.
func (h *ArenaHandler) Battle(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	outcome, err := h.arena.Battle(r.Context(), userID)
	if err != nil {
		if r.Context().Err() != nil {
			logger.FromContextOrDefault(r.Context(), h.logger).Info("battle abandoned by client")
			return
		}
		HandleAPIError(w, r, err, "")
		return
	}

	logger.FromContextOrDefault(r.Context(), h.logger).Info("battle finished",
		slog.Bool("won", outcome.Result.PlayerWon),
		slog.Bool("bot", outcome.Opponent.Bot),
		slog.Int("delta", outcome.Rating.Delta))
	shared.RespondWithJSON(w, r, http.StatusOK, outcome)
}
