package observability

import (
	"log/slog"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
)

// ServiceName is attached to every log record.
const ServiceName = "quake-feed"

// NewLogger builds the service logger on stdout and installs it as the slog
// default. format is "json" or "text"; level is one of debug, info, warn,
// error and defaults to info.
func NewLogger(level, format string) *slog.Logger {
	logger := sharedobs.NewLogger(level, format).With("service", ServiceName)
	slog.SetDefault(logger)
	return logger
}
