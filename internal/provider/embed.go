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

// embedRequest is the OpenAI-compatible embeddings request body.
type embedRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

// embedResponse is the subset of the embeddings response we consume.
type embedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// Embed converts text into a fixed-length vector via one outbound call
// to the embeddings endpoint. No retry is performed here; the single
// external-call budget per stage is policy, not an oversight.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	body, err := json.Marshal(embedRequest{Model: c.cfg.EmbedModel, Input: text})
	if err != nil {
		return nil, fmt.Errorf("%w: marshal request: %v", ErrEmbedUpstream, err)
	}

	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, c.cfg.BaseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrEmbedUpstream, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		// Caller-initiated cancellation is not a provider failure.
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.logger.Warn("embedding call failed",
			"request_id", requestid.FromContext(ctx),
			"error", err,
		)
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: timeout after %s", ErrEmbedUpstream, c.cfg.Timeout)
		}
		return nil, fmt.Errorf("%w: %v", ErrEmbedUpstream, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrBody+1))
		c.logger.Warn("embedding upstream status",
			"request_id", requestid.FromContext(ctx),
			"status", resp.StatusCode,
		)
		return nil, &StatusError{Kind: ErrEmbedUpstream, Status: resp.StatusCode, Body: truncateBody(raw)}
	}

	var out embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrEmbedInvalid, err)
	}
	if len(out.Data) == 0 || len(out.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("%w: no vector in response", ErrEmbedInvalid)
	}

	return out.Data[0].Embedding, nil
}
