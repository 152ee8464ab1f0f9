package contract

import "github.com/decred/slog"

var log = slog.Disabled

// UseLogger routes this package's log output to the given logger.
func UseLogger(logger slog.Logger) {
	log = logger
}
