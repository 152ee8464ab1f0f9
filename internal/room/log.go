package room

import "github.com/decred/slog"

// log is disabled by default. Logging only narrates which records get
// filtered and why; it never changes what the engine computes.
var log = slog.Disabled

// UseLogger routes this package's log output to the given logger.
func UseLogger(logger slog.Logger) {
	log = logger
}
