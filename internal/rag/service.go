// Package rag orchestrates the retrieval-augmented chat pipeline:
// ingest splits and embeds documents into the vector store, and chat
// optionally retrieves relevant chunks before calling the completion
// provider.
//
// The orchestrator owns all request validation, the retrieval-before-
// completion ordering, and the policy that no stage retries its
// external call. Provider failures surface to the caller with their
// stable kind instead of being silently retried or swallowed; a
// confident answer without its promised citations would be worse than
// a clear error.
package rag

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ragstack/ragd/internal/chunker"
	"github.com/ragstack/ragd/internal/provider"
	"github.com/ragstack/ragd/internal/requestid"
	"github.com/ragstack/ragd/internal/retriever"
	"github.com/ragstack/ragd/internal/store"
)

// systemInstruction is the fixed first message of every completion call.
const systemInstruction = "You are a helpful assistant. Answer concisely and accurately."

// contextInstruction prefixes the retrieved chunks when retrieval
// found at least one qualifying chunk. It is omitted entirely when
// there is nothing to cite.
const contextInstruction = "Use the following context to answer. Each snippet is labeled source#index; mention the label when you rely on it.\n\n"

// Embedder converts text into a fixed-length vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Completer performs one chat-completion call.
type Completer interface {
	Complete(ctx context.Context, req provider.CompletionRequest) (provider.Completion, error)
}

// ChunkStore is the slice of the vector store the orchestrator needs.
type ChunkStore interface {
	InsertBatch(ctx context.Context, chunks []store.Chunk) (int, error)
	ScanAll(ctx context.Context) ([]store.Chunk, error)
}

// Limits bounds the optional numeric fields of a chat request.
type Limits struct {
	MaxTemperature float64 // inclusive upper bound, lower bound is 0
	MaxTokens      int     // inclusive upper bound, lower bound is 1
	MaxTopK        int     // inclusive upper bound, lower bound is 1
	DefaultTopK    int     // used when the request omits topK
}

// DefaultLimits match common provider constraints.
var DefaultLimits = Limits{
	MaxTemperature: 2.0,
	MaxTokens:      8192,
	MaxTopK:        20,
	DefaultTopK:    4,
}

// Service is the chat orchestrator.
type Service struct {
	chunker   *chunker.Chunker
	embedder  Embedder
	completer Completer
	store     ChunkStore
	limits    Limits
	logger    *slog.Logger
}

// New creates a Service. All collaborators are required; limits with
// zero values fall back to DefaultLimits.
func New(ch *chunker.Chunker, embedder Embedder, completer Completer, chunks ChunkStore, limits Limits, logger *slog.Logger) *Service {
	if limits == (Limits{}) {
		limits = DefaultLimits
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		chunker:   ch,
		embedder:  embedder,
		completer: completer,
		store:     chunks,
		limits:    limits,
		logger:    logger,
	}
}

// Ingest splits text into chunks, embeds each one, and stores the
// whole batch atomically. Embedding happens sequentially in chunk
// order: provider rate limits stay predictable and chunk indexes need
// no extra bookkeeping. If any embedding fails, nothing is persisted.
func (s *Service) Ingest(ctx context.Context, source, text string) (int, error) {
	if strings.TrimSpace(source) == "" {
		return 0, fmt.Errorf("%w: source is required", ErrBadRequest)
	}
	if strings.TrimSpace(text) == "" {
		return 0, fmt.Errorf("%w: text is required", ErrBadRequest)
	}

	pieces := s.chunker.Split(text)
	if len(pieces) == 0 {
		return 0, nil
	}

	now := time.Now().UTC()
	chunks := make([]store.Chunk, 0, len(pieces))
	for i, content := range pieces {
		vec, err := s.embedder.Embed(ctx, content)
		if err != nil {
			return 0, fmt.Errorf("embedding chunk %d of %q: %w", i, source, err)
		}
		chunks = append(chunks, store.Chunk{
			Source:     source,
			ChunkIndex: i,
			Content:    content,
			Embedding:  vec,
			CreatedAt:  now,
		})
	}

	count, err := s.store.InsertBatch(ctx, chunks)
	if err != nil {
		return 0, fmt.Errorf("storing chunks of %q: %w", source, err)
	}

	s.logger.Info("ingested document",
		"request_id", requestid.FromContext(ctx),
		"source", source,
		"chunks", count,
	)
	return count, nil
}

// Chat validates the request, optionally retrieves context for the
// latest user message, and calls the completion provider. Retrieval
// strictly precedes completion; the two are never interleaved because
// the prompt depends on the retrieval result.
func (s *Service) Chat(ctx context.Context, req ChatRequest) (ChatResult, error) {
	if err := s.validate(req); err != nil {
		return ChatResult{}, err
	}

	start := time.Now()

	var (
		citations    []Citation
		contextBlock string
	)
	if req.UseRetrieval {
		if query, ok := latestUserMessage(req.Messages); ok {
			var err error
			citations, contextBlock, err = s.retrieve(ctx, query, s.topK(req))
			if err != nil {
				// Retrieval is not silently skipped on failure:
				// citations are a correctness claim.
				return ChatResult{}, err
			}
		}
	}

	messages := make([]provider.Message, 0, len(req.Messages)+2)
	messages = append(messages, provider.Message{Role: "system", Content: systemInstruction})
	if contextBlock != "" {
		messages = append(messages, provider.Message{Role: "system", Content: contextBlock})
	}
	for _, m := range req.Messages {
		messages = append(messages, provider.Message{Role: m.Role, Content: m.Content})
	}

	completion, err := s.completer.Complete(ctx, provider.CompletionRequest{
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return ChatResult{}, err
	}

	s.logger.Info("chat completed",
		"request_id", requestid.FromContext(ctx),
		"model", completion.Model,
		"citations", len(citations),
		"duration", time.Since(start),
	)

	if citations == nil {
		citations = []Citation{}
	}
	return ChatResult{
		Message:   completion.Content,
		Model:     completion.Model,
		Latency:   time.Since(start),
		Citations: citations,
	}, nil
}

// retrieve embeds the query, scans the store, and returns citations
// plus the context instruction. Zero qualifying chunks yield an empty
// context block so the model is never told to use context that does
// not exist.
func (s *Service) retrieve(ctx context.Context, query string, k int) ([]Citation, string, error) {
	qvec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, "", fmt.Errorf("embedding query: %w", err)
	}

	chunks, err := s.store.ScanAll(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("scanning chunks: %w", err)
	}

	matches := retriever.Search(qvec, chunks, k)
	if len(matches) == 0 {
		return nil, "", nil
	}

	var b strings.Builder
	b.WriteString(contextInstruction)
	citations := make([]Citation, 0, len(matches))
	for _, m := range matches {
		fmt.Fprintf(&b, "[%s#%d]\n%s\n\n", m.Chunk.Source, m.Chunk.ChunkIndex, m.Chunk.Content)
		citations = append(citations, Citation{
			ID:         m.Chunk.ID,
			Source:     m.Chunk.Source,
			ChunkIndex: m.Chunk.ChunkIndex,
			Score:      m.Score,
		})
	}
	return citations, strings.TrimRight(b.String(), "\n"), nil
}

// validate rejects malformed requests before any network call.
func (s *Service) validate(req ChatRequest) error {
	if len(req.Messages) == 0 {
		return fmt.Errorf("%w: messages must not be empty", ErrBadRequest)
	}
	for i, m := range req.Messages {
		if m.Role != RoleUser && m.Role != RoleAssistant {
			return fmt.Errorf("%w: message %d: role must be %q or %q", ErrBadRequest, i, RoleUser, RoleAssistant)
		}
		if strings.TrimSpace(m.Content) == "" {
			return fmt.Errorf("%w: message %d: content must not be empty", ErrBadRequest, i)
		}
	}
	if req.Temperature != nil && (*req.Temperature < 0 || *req.Temperature > s.limits.MaxTemperature) {
		return fmt.Errorf("%w: temperature must be in [0, %g]", ErrBadRequest, s.limits.MaxTemperature)
	}
	if req.MaxTokens != nil && (*req.MaxTokens < 1 || *req.MaxTokens > s.limits.MaxTokens) {
		return fmt.Errorf("%w: maxTokens must be in [1, %d]", ErrBadRequest, s.limits.MaxTokens)
	}
	if req.TopK != nil && (*req.TopK < 1 || *req.TopK > s.limits.MaxTopK) {
		return fmt.Errorf("%w: topK must be in [1, %d]", ErrBadRequest, s.limits.MaxTopK)
	}
	return nil
}

// topK resolves the effective retrieval depth for a request.
func (s *Service) topK(req ChatRequest) int {
	if req.TopK != nil {
		return *req.TopK
	}
	return s.limits.DefaultTopK
}

// latestUserMessage scans from the end for the most recent user
// message; it is the retrieval query when retrieval is enabled.
func latestUserMessage(messages []Message) (string, bool) {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == RoleUser {
			return messages[i].Content, true
		}
	}
	return "", false
}
