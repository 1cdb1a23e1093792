package api

import (
	"log/slog"
	"net/http"

	"github.com/ragstack/ragd/internal/requestid"
	"github.com/ragstack/ragd/internal/store"
)

// sourcesHandler handles GET /api/v1/sources.
type sourcesHandler struct {
	store  *store.Store
	logger *slog.Logger
}

// SourcesResponse lists every ingested source.
type SourcesResponse struct {
	RequestID string             `json:"requestId"`
	Sources   []store.SourceInfo `json:"sources"`
}

func (h *sourcesHandler) list(w http.ResponseWriter, r *http.Request) {
	infos, err := h.store.ListSources(r.Context())
	if err != nil {
		h.logger.Error("listing sources failed",
			"request_id", requestid.FromContext(r.Context()),
			"error", err,
		)
		writeError(w, r, http.StatusInternalServerError, "internal_error", "failed to list sources")
		return
	}

	if infos == nil {
		infos = []store.SourceInfo{}
	}
	writeJSON(w, http.StatusOK, SourcesResponse{
		RequestID: requestid.FromContext(r.Context()),
		Sources:   infos,
	})
}
