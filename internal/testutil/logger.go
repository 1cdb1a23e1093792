package testutil

import (
	"io"
	"log/slog"
)

// DiscardLogger returns a logger that drops all records. Use it in tests
// where log output would only be noise.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
