// Package logging configures the global zerolog logger. The terminal belongs
// to the UI, so records go to a JSON-lines file instead of stderr.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultPath returns $XDG_STATE_HOME/pflow/pflow.log, falling back to
// ~/.local/state and finally the temp dir.
func DefaultPath() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "pflow", "pflow.log")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "state", "pflow", "pflow.log")
	}
	return filepath.Join(os.TempDir(), "pflow.log")
}

// Setup points the global logger at path (DefaultPath when empty) with the
// given level name. The returned closer flushes and closes the file.
func Setup(path, level string) (io.Closer, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	if path == "" {
		path = DefaultPath()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", path, err)
	}

	Use(f, lvl)
	return f, nil
}

// Use sends the global logger to w at lvl.
func Use(w io.Writer, lvl zerolog.Level) {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	zerolog.SetGlobalLevel(lvl)
	log.Logger = zerolog.New(w).With().Timestamp().Str("app", "pflow").Logger()
}

// Discard silences the global logger, for non-interactive commands that
// were not asked to log.
func Discard() {
	log.Logger = zerolog.Nop()
}
