package common

import (
	"io"
	"log/slog"
	"os"
)

// NewSerialLogger returns a structured logger writing to sink, standing
// in for the "external serial sink" spec.md §7 says kernel components
// log diagnostics to while still returning a Status to the caller. A
// nil sink logs to os.Stderr, matching Biscuit's default of writing
// console diagnostics wherever the build's console device points.
func NewSerialLogger(sink io.Writer) *slog.Logger {
	if sink == nil {
		sink = os.Stderr
	}
	return slog.New(slog.NewTextHandler(sink, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// Discard is a logger that drops everything, for tests that don't want
// diagnostic noise.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
