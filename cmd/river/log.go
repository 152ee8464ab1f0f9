package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/decred/slog"
	"github.com/jrick/logrotate/rotator"

	"github.com/freenet/river-sub001/internal/contract"
	"github.com/freenet/river-sub001/internal/room"
	"github.com/freenet/river-sub001/internal/storage"
)

// logWriter duplicates log output to stderr and the rotating log file.
type logWriter struct{}

func (logWriter) Write(p []byte) (n int, err error) {
	os.Stderr.Write(p)
	if logRotator != nil {
		logRotator.Write(p)
	}
	return len(p), nil
}

var (
	backendLog = slog.NewBackend(logWriter{})
	logRotator *rotator.Rotator

	cliLog  = backendLog.Logger("RIVR")
	roomLog = backendLog.Logger("ROOM")
	ctrLog  = backendLog.Logger("CTRC")
	storLog = backendLog.Logger("STOR")
)

func init() {
	room.UseLogger(roomLog)
	contract.UseLogger(ctrLog)
	storage.UseLogger(storLog)
}

// initLogRotator starts file logging under the data directory.
func initLogRotator(dataDir string) error {
	logDir := filepath.Join(dataDir, "logs")
	if err := os.MkdirAll(logDir, 0o700); err != nil {
		return fmt.Errorf("create log directory: %w", err)
	}
	r, err := rotator.New(filepath.Join(logDir, "river.log"), 10*1024, false, 3)
	if err != nil {
		return fmt.Errorf("create log rotator: %w", err)
	}
	logRotator = r
	return nil
}

// setLogLevel applies one level string to every subsystem.
func setLogLevel(levelStr string) error {
	level, ok := slog.LevelFromString(levelStr)
	if !ok {
		return fmt.Errorf("unknown log level %q", levelStr)
	}
	for _, logger := range []slog.Logger{cliLog, roomLog, ctrLog, storLog} {
		logger.SetLevel(level)
	}
	return nil
}
