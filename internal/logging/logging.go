// Package logging provides structured logging with zap. The log goes to a
// file, never the terminal; stdout belongs to the UI.
package logging

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var global = zap.NewNop()

// Init opens the log file and installs the global logger. An empty path
// resolves to the default location under the user cache directory.
func Init(path, level string) error {
	if path == "" {
		path = defaultPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.OutputPaths = []string{path}
	cfg.ErrorOutputPaths = []string{path}

	logger, err := cfg.Build()
	if err != nil {
		return err
	}
	global = logger
	return nil
}

// L returns the global logger. Before Init it is a nop logger, so library
// code can log unconditionally.
func L() *zap.Logger {
	return global
}

// Sync flushes buffered entries. Safe to call on the nop logger.
func Sync() {
	_ = global.Sync()
}

func defaultPath() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "burrow", "burrow.log")
	}
	return filepath.Join(os.TempDir(), "burrow.log")
}
