package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/atinyakov/bodylog/internal/models"
	"github.com/atinyakov/bodylog/internal/service"
)

// Syncer runs one sync attempt.
type Syncer interface {
	Run(ctx context.Context) service.SyncOutcome
}

// SyncHandler triggers a sync of unsynced entries to the sheet.
type SyncHandler struct {
	Syncer Syncer
}

type syncResponse struct {
	Status    string `json:"status"`
	Count     int    `json:"count,omitempty"`
	Watermark int64  `json:"watermark"`
	Error     string `json:"error,omitempty"`
}

// Sync handles POST /api/sync.
func (h *SyncHandler) Sync(w http.ResponseWriter, r *http.Request) {
	out := h.Syncer.Run(r.Context())
	resp := syncResponse{
		Status:    out.Status.String(),
		Count:     out.Count,
		Watermark: out.Watermark,
	}
	if out.Status != service.Failed {
		writeJSON(w, http.StatusOK, resp)
		return
	}
	if out.Err != nil {
		resp.Error = "Sync failed: " + out.Err.Error()
	}
	writeJSON(w, failureStatus(out.Err), resp)
}

func failureStatus(err error) int {
	switch {
	case errors.Is(err, models.ErrSyncInProgress):
		return http.StatusConflict
	case errors.Is(err, models.ErrConfigurationMissing):
		return http.StatusServiceUnavailable
	case errors.Is(err, models.ErrTransmission):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
