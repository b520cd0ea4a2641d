package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"

	"github.com/atinyakov/bodylog/internal/models"
)

// JournalService defines the journal operations required by the JournalHandler.
type JournalService interface {
	// Save stores a new entry built from weight and waist.
	Save(ctx context.Context, weight, waist float64) (models.Entry, error)
	// Entries returns every stored entry.
	Entries(ctx context.Context) ([]models.Entry, error)
}

// JournalHandler serves the entry list and the save action.
type JournalHandler struct {
	Journal JournalService
}

type entriesResponse struct {
	Count   int            `json:"count"`
	Entries []models.Entry `json:"entries"`
}

func newEntriesResponse(entries []models.Entry) entriesResponse {
	out := make([]models.Entry, len(entries))
	copy(out, entries)
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return entriesResponse{Count: len(out), Entries: out}
}

// List handles GET /api/entries, newest first.
func (h *JournalHandler) List(w http.ResponseWriter, r *http.Request) {
	entries, err := h.Journal.Entries(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, newEntriesResponse(entries))
}

// Create handles POST /api/entries with a body {"weight": .., "waist": ..}.
func (h *JournalHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Weight *float64 `json:"weight"`
		Waist  *float64 `json:"waist"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if req.Weight == nil || req.Waist == nil {
		writeError(w, http.StatusBadRequest, "Please enter weight and waist values")
		return
	}

	e, err := h.Journal.Save(r.Context(), *req.Weight, *req.Waist)
	switch {
	case errors.Is(err, models.ErrInvalidMeasurement):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, "Save failed: "+err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, e)
}
