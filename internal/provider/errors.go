package provider

import (
	"errors"
	"fmt"
)

// Stable error kinds for provider failures. Callers classify with
// errors.Is; the HTTP layer maps each kind to a response code.
var (
	// ErrEmbedUpstream indicates the embeddings endpoint failed at the
	// transport level or returned a non-success status.
	ErrEmbedUpstream = errors.New("embedding upstream error")

	// ErrEmbedInvalid indicates a success status whose body did not
	// contain a usable vector.
	ErrEmbedInvalid = errors.New("embedding response invalid")

	// ErrChatUpstream indicates the chat completions endpoint failed at
	// the transport level or returned a non-success status.
	ErrChatUpstream = errors.New("completion upstream error")

	// ErrChatTimeout indicates the completion call exceeded its bounded
	// timeout and was aborted.
	ErrChatTimeout = errors.New("completion upstream timeout")

	// ErrChatInvalid indicates a success status whose body did not
	// contain a non-empty answer.
	ErrChatInvalid = errors.New("completion response invalid")
)

// StatusError carries the upstream HTTP status and (truncated) body of
// a failed provider call. It wraps one of the kind sentinels above so
// errors.Is classification still works.
type StatusError struct {
	Kind   error
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%v: status %d: %s", e.Kind, e.Status, e.Body)
}

func (e *StatusError) Unwrap() error { return e.Kind }

// maxErrBody bounds how much of an upstream error body we keep.
// Provider error payloads are small; anything larger is noise.
const maxErrBody = 2048

func truncateBody(b []byte) string {
	if len(b) > maxErrBody {
		b = b[:maxErrBody]
	}
	return string(b)
}
