package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/ragstack/ragd/internal/requestid"
)

// Message is a single chat message on the wire.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest is the input for one chat-completion call.
// Temperature and MaxTokens are optional; nil means provider default.
type CompletionRequest struct {
	Messages    []Message
	Temperature *float64
	MaxTokens   *int
}

// Completion is the provider's answer.
type Completion struct {
	Content string // first choice's message content, never empty
	Model   string // model identifier reported by the provider
}

// chatRequest is the OpenAI-compatible chat completions request body.
// Streaming is always disabled; ragd returns a single synchronous
// response.
type chatRequest struct {
	Model       string    `json:"model"`
	Stream      bool      `json:"stream"`
	Temperature *float64  `json:"temperature,omitempty"`
	MaxTokens   *int      `json:"max_tokens,omitempty"`
	Messages    []Message `json:"messages"`
}

// chatResponse is the subset of the chat completions response we consume.
type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete performs one chat-completion call with a bounded timeout.
// On timeout the in-flight request is aborted and ErrChatTimeout is
// returned; a late upstream response is never processed. Caller
// cancellation aborts the call and surfaces ctx.Err() unchanged.
func (c *Client) Complete(ctx context.Context, in CompletionRequest) (Completion, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	model := c.cfg.ChatModel
	body, err := json.Marshal(chatRequest{
		Model:       model,
		Stream:      false,
		Temperature: in.Temperature,
		MaxTokens:   in.MaxTokens,
		Messages:    in.Messages,
	})
	if err != nil {
		return Completion{}, fmt.Errorf("%w: marshal request: %v", ErrChatUpstream, err)
	}

	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, c.cfg.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return Completion{}, fmt.Errorf("%w: build request: %v", ErrChatUpstream, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return Completion{}, ctx.Err()
		}
		if errors.Is(err, context.DeadlineExceeded) {
			c.logger.Warn("completion call timed out",
				"request_id", requestid.FromContext(ctx),
				"timeout", c.cfg.Timeout,
			)
			return Completion{}, fmt.Errorf("%w: after %s", ErrChatTimeout, c.cfg.Timeout)
		}
		c.logger.Warn("completion call failed",
			"request_id", requestid.FromContext(ctx),
			"error", err,
		)
		return Completion{}, fmt.Errorf("%w: %v", ErrChatUpstream, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrBody+1))
		c.logger.Warn("completion upstream status",
			"request_id", requestid.FromContext(ctx),
			"status", resp.StatusCode,
		)
		return Completion{}, &StatusError{Kind: ErrChatUpstream, Status: resp.StatusCode, Body: truncateBody(raw)}
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Completion{}, fmt.Errorf("%w: decode: %v", ErrChatInvalid, err)
	}
	if len(out.Choices) == 0 || out.Choices[0].Message.Content == "" {
		return Completion{}, fmt.Errorf("%w: empty answer", ErrChatInvalid)
	}

	if out.Model != "" {
		model = out.Model
	}
	return Completion{Content: out.Choices[0].Message.Content, Model: model}, nil
}
