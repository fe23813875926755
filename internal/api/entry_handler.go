package api

import (
	"log/slog"
	"net/http"

	"github.com/phrazzld/wordmon-api/internal/api/shared"
	"github.com/phrazzld/wordmon-api/internal/platform/logger"
	"github.com/phrazzld/wordmon-api/internal/service/dex"
	"github.com/phrazzld/wordmon-api/internal/service/word_review"
)

// EntryHandler serves the dex and quiz endpoints.
type EntryHandler struct {
	dex    dex.Service
	review word_review.Service
	logger *slog.Logger
}

// NewEntryHandler creates an EntryHandler.
func NewEntryHandler(dexService dex.Service, review word_review.Service, logger *slog.Logger) *EntryHandler {
	if dexService == nil || review == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("dex and review services are required for EntryHandler")
	}
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for EntryHandler")
	}

	return &EntryHandler{
		dex:    dexService,
		review: review,
		logger: logger.With(slog.String("component", "entry_handler")),
	}
}

// Capture handles POST /entries. A new entry answers 201, an already
// captured word 200.
func (h *EntryHandler) Capture(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req CaptureRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	entry, created, err := h.dex.Capture(r.Context(), userID, req.Word)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}

	logger.FromContextOrDefault(r.Context(), h.logger).Debug("captured word",
		slog.String("entry_id", entry.ID.String()),
		slog.Bool("created", created))
	shared.RespondWithJSON(w, r, status, CaptureResponse{Entry: toEntryResponse(entry), Created: created})
}

// List handles GET /entries?sort=recent|alpha|rarity|stage.
func (h *EntryHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	order, err := dex.ParseSortOrder(r.URL.Query().Get("sort"))
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	entries, err := h.dex.List(r.Context(), userID, order)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list entries")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, toEntryResponses(entries))
}

// Get handles GET /entries/{id}.
func (h *EntryHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, entryID, ok := requireUserAndPathUUID(w, r, "id")
	if !ok {
		return
	}

	entry, err := h.dex.Get(r.Context(), userID, entryID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, toEntryResponse(entry))
}

// Delete handles DELETE /entries/{id}.
func (h *EntryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, entryID, ok := requireUserAndPathUUID(w, r, "id")
	if !ok {
		return
	}

	if err := h.dex.Delete(r.Context(), userID, entryID); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// DueQueue handles GET /quiz/due?limit=n.
func (h *EntryHandler) DueQueue(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	limit, err := queryInt(r, "limit")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	entries, err := h.review.DueQueue(r.Context(), userID, limit)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to load quiz queue")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, toEntryResponses(entries))
}

// Review handles POST /entries/{id}/review.
func (h *EntryHandler) Review(w http.ResponseWriter, r *http.Request) {
	userID, entryID, ok := requireUserAndPathUUID(w, r, "id")
	if !ok {
		return
	}

	var req ReviewRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	entry, err := h.review.SubmitAnswer(r.Context(), userID, entryID, *req.Correct)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	logger.FromContextOrDefault(r.Context(), h.logger).Debug("recorded answer",
		slog.String("entry_id", entryID.String()),
		slog.Bool("correct", *req.Correct),
		slog.Int("level", entry.SRS.Level))
	shared.RespondWithJSON(w, r, http.StatusOK, toEntryResponse(entry))
}
