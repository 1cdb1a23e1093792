package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/ragstack/ragd/internal/rag"
	"github.com/ragstack/ragd/internal/requestid"
)

// maxBodyBytes caps JSON request bodies. Documents larger than this
// should be ingested in parts.
const maxBodyBytes = 1 << 20 // 1 MB

// ingestHandler handles POST /api/v1/ingest.
type ingestHandler struct {
	service *rag.Service
	logger  *slog.Logger
}

// IngestRequest is the ingest request body.
type IngestRequest struct {
	Source string `json:"source"`
	Text   string `json:"text"`
}

// IngestResponse reports how many chunks were stored.
type IngestResponse struct {
	RequestID string `json:"requestId"`
	Chunks    int    `json:"chunks"`
}

func (h *ingestHandler) ingest(w http.ResponseWriter, r *http.Request) {
	var req IngestRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, r, http.StatusRequestEntityTooLarge, "body_too_large", "request body too large")
			return
		}
		writeError(w, r, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}

	count, err := h.service.Ingest(r.Context(), req.Source, req.Text)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, IngestResponse{
		RequestID: requestid.FromContext(r.Context()),
		Chunks:    count,
	})
}

func (h *ingestHandler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classifyError(err)
	h.logger.Warn("ingest failed",
		"request_id", requestid.FromContext(r.Context()),
		"error", err,
		"code", code,
	)
	writeError(w, r, status, code, err.Error())
}
