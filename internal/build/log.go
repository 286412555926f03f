package build

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/btcsuite/btclog"
	btclogv2 "github.com/btcsuite/btclog/v2"
)

// SetupLoggers constructs the process-wide logging stack: a console handler
// on stderr plus a rotating log file under logDir, fanned out through a
// HandlerSet. It returns the root slog logger and a cleanup func that
// flushes the file writer.
func SetupLoggers(logDir string, debug bool) (*slog.Logger, func(), error) {
	handlers := []btclogv2.Handler{
		btclogv2.NewDefaultHandler(os.Stderr),
	}

	cleanup := func() {}

	if logDir != "" {
		logWriter := NewRotatingLogWriter()
		rotCfg := DefaultLogRotatorConfig()
		rotCfg.LogDir = logDir

		if err := logWriter.InitLogRotator(rotCfg); err != nil {
			return nil, nil, fmt.Errorf("init log rotator: %w",
				err)
		}

		handlers = append(
			handlers, btclogv2.NewDefaultHandler(logWriter),
		)
		cleanup = func() {
			_ = logWriter.Close()
		}
	}

	set := NewHandlerSet(handlers...)
	if debug {
		set.SetLevel(btclog.LevelDebug)
	}

	logger := slog.New(set)
	slog.SetDefault(logger)

	return logger, cleanup, nil
}

// DefaultLogDir returns the default directory for log files.
func DefaultLogDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	return filepath.Join(home, ".prsentry", "logs"), nil
}
