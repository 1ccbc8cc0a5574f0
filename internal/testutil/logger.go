package testutil

import (
	"io"
	"log/slog"
)

// DiscardLogger returns a logger that drops everything. Tests pass it to
// engines and scripts to keep output quiet.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
