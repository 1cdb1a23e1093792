package rag

import "time"

// Message roles accepted from callers. The provider additionally sees
// system messages, but those are built here, never submitted by the
// client.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one entry of a chat exchange.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the request unit submitted to the orchestrator.
// Optional numeric fields use pointers so "absent" and "zero" stay
// distinguishable.
type ChatRequest struct {
	Messages     []Message `json:"messages"`
	Temperature  *float64  `json:"temperature,omitempty"`
	MaxTokens    *int      `json:"maxTokens,omitempty"`
	UseRetrieval bool      `json:"useRetrieval,omitempty"`
	TopK         *int      `json:"topK,omitempty"`
}

// Citation links an answer back to a stored chunk that informed it.
// Citations are transient; they never outlive the response that
// carries them.
type Citation struct {
	ID         int64   `json:"id"`
	Source     string  `json:"source"`
	ChunkIndex int     `json:"chunkIndex"`
	Score      float64 `json:"score"`
}

// ChatResult is a successful orchestration outcome.
type ChatResult struct {
	Message   string
	Model     string
	Latency   time.Duration
	Citations []Citation
}
