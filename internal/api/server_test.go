package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/goleak"

	"github.com/ragstack/ragd/internal/chunker"
	"github.com/ragstack/ragd/internal/provider"
	"github.com/ragstack/ragd/internal/rag"
	"github.com/ragstack/ragd/internal/store"
	"github.com/ragstack/ragd/internal/testutil"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// memStore is an in-memory chunk store for handler tests.
type memStore struct {
	chunks []store.Chunk
}

func (m *memStore) InsertBatch(_ context.Context, chunks []store.Chunk) (int, error) {
	for _, c := range chunks {
		c.ID = int64(len(m.chunks) + 1)
		m.chunks = append(m.chunks, c)
	}
	return len(chunks), nil
}

func (m *memStore) ScanAll(_ context.Context) ([]store.Chunk, error) {
	return m.chunks, nil
}

// newTestServer builds a full middleware-wrapped server backed by a
// stub provider and an in-memory store.
func newTestServer(t *testing.T, stub testutil.ProviderStub, cfg ServerConfig) http.Handler {
	t.Helper()

	providerSrv := testutil.NewProviderServer(t, stub)
	client := provider.New(provider.Config{
		BaseURL:    providerSrv.URL,
		APIKey:     "test-key",
		ChatModel:  "test-chat",
		EmbedModel: "test-embed",
	}, testutil.DiscardLogger())

	ch, err := chunker.New(chunker.DefaultMaxChars, chunker.DefaultOverlap)
	if err != nil {
		t.Fatal(err)
	}

	svc := rag.New(ch, client, client, &memStore{}, rag.DefaultLimits, testutil.DiscardLogger())

	cfg.Logger = testutil.DiscardLogger()
	cfg.Service = svc
	if cfg.Store == nil {
		// Satisfies NewServer's requirement only. The sources route
		// needs a live pool; it is covered by the store integration
		// tests, and no handler test here may request it.
		cfg.Store = store.New(nil, 3, testutil.DiscardLogger())
	}
	srv, err := NewServer(cfg)
	if err != nil {
		t.Fatal(err)
	}
	return srv.Handler()
}

func doJSON(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decoding response %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestHealth(t *testing.T) {
	h := newTestServer(t, testutil.ProviderStub{}, ServerConfig{})

	rec := doJSON(t, h, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /health = %d, want 200", rec.Code)
	}
	body := decodeBody[map[string]string](t, rec)
	if body["status"] != "ok" {
		t.Errorf("status = %q, want ok", body["status"])
	}
}

func TestReadyWithoutPool(t *testing.T) {
	h := newTestServer(t, testutil.ProviderStub{}, ServerConfig{})

	rec := doJSON(t, h, http.MethodGet, "/ready", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /ready = %d, want 200", rec.Code)
	}
}

func TestIngestEndpoint(t *testing.T) {
	h := newTestServer(t, testutil.ProviderStub{}, ServerConfig{})

	rec := doJSON(t, h, http.MethodPost, "/api/v1/ingest",
		`{"source":"guide.md","text":"Paragraph A.\n\nParagraph B."}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("POST /api/v1/ingest = %d, body %s", rec.Code, rec.Body.String())
	}

	body := decodeBody[IngestResponse](t, rec)
	if body.Chunks != 2 {
		t.Errorf("chunks = %d, want 2", body.Chunks)
	}
	if body.RequestID == "" {
		t.Error("response missing requestId")
	}
}

func TestIngestBadJSON(t *testing.T) {
	h := newTestServer(t, testutil.ProviderStub{}, ServerConfig{})

	rec := doJSON(t, h, http.MethodPost, "/api/v1/ingest", `{"source":`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	body := decodeBody[ErrorResponse](t, rec)
	if body.Error != "bad_request" {
		t.Errorf("error code = %q, want bad_request", body.Error)
	}
}

func TestIngestBodyTooLarge(t *testing.T) {
	h := newTestServer(t, testutil.ProviderStub{}, ServerConfig{})

	big := bytes.Repeat([]byte("a"), maxBodyBytes+1024)
	payload, _ := json.Marshal(map[string]string{"source": "big", "text": string(big)})

	rec := doJSON(t, h, http.MethodPost, "/api/v1/ingest", string(payload))
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want 413", rec.Code)
	}
	body := decodeBody[ErrorResponse](t, rec)
	if body.Error != "body_too_large" {
		t.Errorf("error code = %q, want body_too_large", body.Error)
	}
}

func TestIngestValidationError(t *testing.T) {
	h := newTestServer(t, testutil.ProviderStub{}, ServerConfig{})

	rec := doJSON(t, h, http.MethodPost, "/api/v1/ingest", `{"source":"","text":"content"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestIngestEmbedUpstreamError(t *testing.T) {
	h := newTestServer(t, testutil.ProviderStub{EmbedStatus: http.StatusInternalServerError}, ServerConfig{})

	rec := doJSON(t, h, http.MethodPost, "/api/v1/ingest", `{"source":"doc","text":"content"}`)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
	body := decodeBody[ErrorResponse](t, rec)
	if body.Error != "embedding_upstream" {
		t.Errorf("error code = %q, want embedding_upstream", body.Error)
	}
}

func TestChatEndpoint(t *testing.T) {
	h := newTestServer(t, testutil.ProviderStub{ChatReply: "the answer", ChatModel: "test-chat-0125"}, ServerConfig{})

	rec := doJSON(t, h, http.MethodPost, "/api/v1/chat",
		`{"messages":[{"role":"user","content":"hello"}]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("POST /api/v1/chat = %d, body %s", rec.Code, rec.Body.String())
	}

	body := decodeBody[ChatResponse](t, rec)
	if body.Message != "the answer" {
		t.Errorf("message = %q, want %q", body.Message, "the answer")
	}
	if body.Model != "test-chat-0125" {
		t.Errorf("model = %q, want test-chat-0125", body.Model)
	}
	if body.Citations == nil {
		t.Error("citations must be an empty array, not null")
	}
	if body.RequestID == "" {
		t.Error("response missing requestId")
	}
}

func TestChatWithRetrievalRoundTrip(t *testing.T) {
	h := newTestServer(t, testutil.ProviderStub{
		EmbedVector: []float32{1, 0, 0},
		ChatReply:   "cited answer",
	}, ServerConfig{})

	rec := doJSON(t, h, http.MethodPost, "/api/v1/ingest",
		`{"source":"guide.md","text":"Useful fact."}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("ingest = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, h, http.MethodPost, "/api/v1/chat",
		`{"messages":[{"role":"user","content":"what is useful?"}],"useRetrieval":true}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("chat = %d, body %s", rec.Code, rec.Body.String())
	}

	body := decodeBody[ChatResponse](t, rec)
	if len(body.Citations) != 1 {
		t.Fatalf("citations = %v, want 1", body.Citations)
	}
	if body.Citations[0].Source != "guide.md" || body.Citations[0].ChunkIndex != 0 {
		t.Errorf("citation = %+v, want guide.md#0", body.Citations[0])
	}
}

func TestChatErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		stub       testutil.ProviderStub
		body       string
		wantStatus int
		wantCode   string
	}{
		{
			name:       "validation failure",
			body:       `{"messages":[]}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "bad_request",
		},
		{
			name:       "chat upstream failure",
			stub:       testutil.ProviderStub{ChatStatus: http.StatusServiceUnavailable},
			body:       `{"messages":[{"role":"user","content":"hi"}]}`,
			wantStatus: http.StatusBadGateway,
			wantCode:   "upstream_error",
		},
		{
			name:       "embed upstream failure during retrieval",
			stub:       testutil.ProviderStub{EmbedStatus: http.StatusInternalServerError},
			body:       `{"messages":[{"role":"user","content":"hi"}],"useRetrieval":true}`,
			wantStatus: http.StatusBadGateway,
			wantCode:   "embedding_upstream",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestServer(t, tt.stub, ServerConfig{})
			rec := doJSON(t, h, http.MethodPost, "/api/v1/chat", tt.body)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d; body %s", rec.Code, tt.wantStatus, rec.Body.String())
			}
			body := decodeBody[ErrorResponse](t, rec)
			if body.Error != tt.wantCode {
				t.Errorf("error code = %q, want %q", body.Error, tt.wantCode)
			}
		})
	}
}

func TestRequestIDGenerated(t *testing.T) {
	h := newTestServer(t, testutil.ProviderStub{}, ServerConfig{})

	rec := doJSON(t, h, http.MethodPost, "/api/v1/chat",
		`{"messages":[{"role":"user","content":"hello"}]}`)

	id := rec.Header().Get("X-Request-ID")
	if _, err := uuid.Parse(id); err != nil {
		t.Errorf("X-Request-ID = %q, want a valid UUID", id)
	}

	body := decodeBody[ChatResponse](t, rec)
	if body.RequestID != id {
		t.Errorf("body requestId = %q, header = %q; want equal", body.RequestID, id)
	}
}

func TestRequestIDReused(t *testing.T) {
	h := newTestServer(t, testutil.ProviderStub{}, ServerConfig{})

	supplied := uuid.New().String()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat",
		strings.NewReader(`{"messages":[{"role":"user","content":"hi"}]}`))
	req.Header.Set("X-Request-ID", supplied)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Request-ID"); got != supplied {
		t.Errorf("X-Request-ID = %q, want supplied id %q reused", got, supplied)
	}
}

func TestRequestIDInvalidReplaced(t *testing.T) {
	h := newTestServer(t, testutil.ProviderStub{}, ServerConfig{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat",
		strings.NewReader(`{"messages":[{"role":"user","content":"hi"}]}`))
	req.Header.Set("X-Request-ID", "not-a-uuid")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	got := rec.Header().Get("X-Request-ID")
	if got == "not-a-uuid" {
		t.Error("invalid request id must be replaced")
	}
	if _, err := uuid.Parse(got); err != nil {
		t.Errorf("X-Request-ID = %q, want a valid UUID", got)
	}
}

func TestRateLimit(t *testing.T) {
	h := newTestServer(t, testutil.ProviderStub{}, ServerConfig{RateBurst: 2})

	var last *httptest.ResponseRecorder
	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/chat", strings.NewReader("{"))
		req.RemoteAddr = "10.1.2.3:5000"
		last = httptest.NewRecorder()
		h.ServeHTTP(last, req)
		if last.Code == http.StatusTooManyRequests {
			break
		}
	}

	if last.Code != http.StatusTooManyRequests {
		t.Fatalf("burst exhausted but no 429 seen, last status %d", last.Code)
	}
	if last.Header().Get("Retry-After") == "" {
		t.Error("429 response missing Retry-After")
	}
	body := decodeBody[ErrorResponse](t, last)
	if body.Error != "rate_limited" {
		t.Errorf("error code = %q, want rate_limited", body.Error)
	}
}

func TestRateLimitPerIP(t *testing.T) {
	h := newTestServer(t, testutil.ProviderStub{}, ServerConfig{RateBurst: 1})

	exhaust := func(addr string) int {
		var code int
		for i := 0; i < 3; i++ {
			req := httptest.NewRequest(http.MethodGet, "/health", nil)
			req.RemoteAddr = addr
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			code = rec.Code
		}
		return code
	}

	// Health bypasses the limiter entirely; hit an API route instead.
	exhaustAPI := func(addr string) int {
		var code int
		for i := 0; i < 3; i++ {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/chat", strings.NewReader("{"))
			req.RemoteAddr = addr
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			code = rec.Code
		}
		return code
	}

	if code := exhaust("10.0.0.1:1000"); code == http.StatusTooManyRequests {
		t.Error("health endpoint must not be rate limited")
	}
	if code := exhaustAPI("10.0.0.2:1000"); code != http.StatusTooManyRequests {
		t.Errorf("repeated API calls from one IP = %d, want 429", code)
	}

	// A different IP still has its own budget.
	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat", strings.NewReader("{"))
	req.RemoteAddr = "10.0.0.3:1000"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code == http.StatusTooManyRequests {
		t.Error("fresh IP must not start rate limited")
	}
}

func TestCORSPreflight(t *testing.T) {
	h := newTestServer(t, testutil.ProviderStub{}, ServerConfig{
		CORSOrigins: []string{"http://localhost:5173"},
	})

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/chat", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("preflight status = %d, want 204", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Errorf("Allow-Origin = %q, want configured origin", got)
	}
}

func TestCORSUnknownOrigin(t *testing.T) {
	h := newTestServer(t, testutil.ProviderStub{}, ServerConfig{
		CORSOrigins: []string{"http://localhost:5173"},
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat",
		strings.NewReader(`{"messages":[{"role":"user","content":"hi"}]}`))
	req.Header.Set("Origin", "http://evil.example")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (unknown origin is not blocked, only unlabeled)", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("Allow-Origin = %q for unknown origin, want unset", got)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	h := newTestServer(t, testutil.ProviderStub{}, ServerConfig{})

	rec := doJSON(t, h, http.MethodGet, "/api/v1/chat", "")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET /api/v1/chat = %d, want 405", rec.Code)
	}
}

func TestNewServerRequiresService(t *testing.T) {
	_, err := NewServer(ServerConfig{Store: store.New(nil, 3, testutil.DiscardLogger())})
	if err == nil {
		t.Error("NewServer without service must fail")
	}
}
