package api

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/phrazzld/wordmon-api/internal/api/shared"
	"github.com/phrazzld/wordmon-api/internal/platform/logger"
	"github.com/phrazzld/wordmon-api/internal/service/evolution"
)

// EvolutionHandler serves evolution, branching, fusion and hidden moves.
type EvolutionHandler struct {
	evolution evolution.Service
	logger    *slog.Logger
}

// NewEvolutionHandler creates an EvolutionHandler.
func NewEvolutionHandler(svc evolution.Service, logger *slog.Logger) *EvolutionHandler {
	if svc == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("evolution service cannot be nil for EvolutionHandler")
	}
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for EvolutionHandler")
	}

	return &EvolutionHandler{
		evolution: svc,
		logger:    logger.With(slog.String("component", "evolution_handler")),
	}
}

// Evolve handles POST /entries/{id}/evolve.
func (h *EvolutionHandler) Evolve(w http.ResponseWriter, r *http.Request) {
	userID, entryID, ok := requireUserAndPathUUID(w, r, "id")
	if !ok {
		return
	}

	entry, err := h.evolution.Evolve(r.Context(), userID, entryID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	logger.FromContextOrDefault(r.Context(), h.logger).Debug("entry evolved",
		slog.String("entry_id", entry.ID.String()),
		slog.Int("stage", entry.Evolution.Stage))
	shared.RespondWithJSON(w, r, http.StatusOK, toEntryResponse(entry))
}

// BranchOptions handles GET /entries/{id}/branches.
func (h *EvolutionHandler) BranchOptions(w http.ResponseWriter, r *http.Request) {
	userID, entryID, ok := requireUserAndPathUUID(w, r, "id")
	if !ok {
		return
	}

	options, err := h.evolution.BranchOptions(r.Context(), userID, entryID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, BranchOptionsResponse{Options: options})
}

// ChooseBranch handles POST /entries/{id}/branch.
func (h *EvolutionHandler) ChooseBranch(w http.ResponseWriter, r *http.Request) {
	userID, entryID, ok := requireUserAndPathUUID(w, r, "id")
	if !ok {
		return
	}

	var req BranchRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	result, err := h.evolution.ChooseBranch(r.Context(), userID, entryID, req.Word)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, BranchResponse{
		Entry:    toEntryResponse(result.Entry),
		MergedID: result.MergedID,
	})
}

// FusionCandidates handles GET /entries/{id}/fusion.
func (h *EvolutionHandler) FusionCandidates(w http.ResponseWriter, r *http.Request) {
	userID, entryID, ok := requireUserAndPathUUID(w, r, "id")
	if !ok {
		return
	}

	candidates, err := h.evolution.FusionCandidates(r.Context(), userID, entryID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, toEntryResponses(candidates))
}

// Fuse handles POST /entries/{id}/fuse.
func (h *EvolutionHandler) Fuse(w http.ResponseWriter, r *http.Request) {
	userID, entryID, ok := requireUserAndPathUUID(w, r, "id")
	if !ok {
		return
	}

	result, err := h.evolution.Fuse(r.Context(), userID, entryID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	consumed := result.Consumed
	if consumed == nil {
		consumed = []uuid.UUID{}
	}

	logger.FromContextOrDefault(r.Context(), h.logger).Info("entries fused",
		slog.String("entry_id", result.Entry.ID.String()),
		slog.Int("consumed", len(consumed)))
	shared.RespondWithJSON(w, r, http.StatusCreated, FusionResponse{
		Entry:    toEntryResponse(result.Entry),
		Consumed: consumed,
	})
}

// HiddenMove handles GET /entries/{id}/hidden-move.
func (h *EvolutionHandler) HiddenMove(w http.ResponseWriter, r *http.Request) {
	userID, entryID, ok := requireUserAndPathUUID(w, r, "id")
	if !ok {
		return
	}

	move, err := h.evolution.HiddenMove(r.Context(), userID, entryID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, HiddenMoveResponse{EntryID: entryID, HiddenMove: move})
}
