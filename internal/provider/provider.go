// Package provider implements the wire clients for the two external
// AI services ragd depends on: the embeddings endpoint and the chat
// completions endpoint. Both speak the OpenAI-compatible JSON protocol
// over HTTP.
//
// The clients deliberately perform no retries. Retry budgets belong to
// the orchestrator so a single request can never fan out into multiple
// billed provider calls without the caller knowing. Each method makes
// exactly one outbound call, bounded by the configured timeout and
// aborted early if the caller's context is cancelled.
package provider

import (
	"log/slog"
	"net/http"
	"time"
)

// DefaultTimeout bounds a single outbound provider call.
const DefaultTimeout = 60 * time.Second

// Config holds the provider connection settings. It is loaded once at
// startup and passed in explicitly; nothing in this package reads
// ambient state, which keeps the clients testable against fakes.
type Config struct {
	BaseURL    string // e.g. "https://api.openai.com/v1"
	APIKey     string
	ChatModel  string // e.g. "gpt-4o-mini"
	EmbedModel string // e.g. "text-embedding-3-small"
	Timeout    time.Duration
}

// Client talks to an OpenAI-compatible provider.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

// New creates a provider client. The underlying http.Client carries no
// timeout of its own; every call derives a bounded context instead, so
// caller cancellation and the configured deadline compose correctly.
func New(cfg Config, logger *slog.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{},
		logger: logger,
	}
}

// ChatModel returns the configured chat-completion model identifier.
func (c *Client) ChatModel() string { return c.cfg.ChatModel }
