package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/ragstack/ragd/internal/provider"
	"github.com/ragstack/ragd/internal/rag"
	"github.com/ragstack/ragd/internal/requestid"
)

// chatHandler handles POST /api/v1/chat.
type chatHandler struct {
	service *rag.Service
	logger  *slog.Logger
}

// ChatResponse is the chat response body.
type ChatResponse struct {
	Message   string         `json:"message"`
	RequestID string         `json:"requestId"`
	Model     string         `json:"model"`
	LatencyMs int64          `json:"latencyMs"`
	Citations []rag.Citation `json:"citations"`
}

func (h *chatHandler) chat(w http.ResponseWriter, r *http.Request) {
	var req rag.ChatRequest
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

	result, err := h.service.Chat(r.Context(), req)
	if err != nil {
		status, code := classifyError(err)
		h.logger.Warn("chat failed",
			"request_id", requestid.FromContext(r.Context()),
			"error", err,
			"code", code,
		)
		writeError(w, r, status, code, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, ChatResponse{
		Message:   result.Message,
		RequestID: requestid.FromContext(r.Context()),
		Model:     result.Model,
		LatencyMs: result.Latency.Milliseconds(),
		Citations: result.Citations,
	})
}

// classifyError maps pipeline errors to an HTTP status and a stable
// error code. Unrecognized errors fall through to internal_error.
func classifyError(err error) (int, string) {
	switch {
	case errors.Is(err, rag.ErrBadRequest):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, provider.ErrEmbedUpstream):
		return http.StatusBadGateway, "embedding_upstream"
	case errors.Is(err, provider.ErrEmbedInvalid):
		return http.StatusBadGateway, "embedding_invalid"
	case errors.Is(err, provider.ErrChatTimeout):
		return http.StatusGatewayTimeout, "upstream_timeout"
	case errors.Is(err, provider.ErrChatUpstream):
		return http.StatusBadGateway, "upstream_error"
	case errors.Is(err, provider.ErrChatInvalid):
		return http.StatusBadGateway, "upstream_invalid"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
