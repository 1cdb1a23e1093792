package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

// ProviderStub configures the fake model provider served by NewProviderServer.
// Zero values give a provider that embeds every input to EmbedVector and
// answers every chat completion with ChatReply.
type ProviderStub struct {
	// EmbedVector is returned for every embeddings call.
	EmbedVector []float32
	// ChatReply is the assistant content returned for every completion.
	ChatReply string
	// ChatModel is echoed in the completion response when non-empty.
	ChatModel string
	// EmbedStatus and ChatStatus override the 200 response status when
	// non-zero. The body is a plain error string in that case.
	EmbedStatus int
	ChatStatus  int
}

// NewProviderServer starts an httptest server speaking the OpenAI-compatible
// wire format for POST /embeddings and POST /chat/completions. The server is
// shut down automatically when the test finishes.
func NewProviderServer(t *testing.T, stub ProviderStub) *httptest.Server {
	t.Helper()

	if stub.EmbedVector == nil {
		stub.EmbedVector = []float32{0.1, 0.2, 0.3}
	}
	if stub.ChatReply == "" {
		stub.ChatReply = "stub reply"
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /embeddings", func(w http.ResponseWriter, r *http.Request) {
		if stub.EmbedStatus != 0 {
			http.Error(w, "embed failure", stub.EmbedStatus)
			return
		}
		writeStubJSON(t, w, map[string]any{
			"data": []map[string]any{{"embedding": stub.EmbedVector}},
		})
	})
	mux.HandleFunc("POST /chat/completions", func(w http.ResponseWriter, r *http.Request) {
		if stub.ChatStatus != 0 {
			http.Error(w, "chat failure", stub.ChatStatus)
			return
		}
		writeStubJSON(t, w, map[string]any{
			"model": stub.ChatModel,
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": stub.ChatReply}},
			},
		})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func writeStubJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Errorf("encoding stub response: %v", err)
	}
}
