package testhelpers

import (
	"io"
	"log/slog"

	"github.com/myrjola/circuitgen/internal/logging"
)

// NewLogger logs everything from debug level up to logSink, usually a Writer.
func NewLogger(logSink io.Writer) *slog.Logger {
	return slog.New(logging.NewContextHandler(slog.NewTextHandler(logSink, &slog.HandlerOptions{
		AddSource:   false,
		Level:       slog.LevelDebug,
		ReplaceAttr: nil,
	})))
}
