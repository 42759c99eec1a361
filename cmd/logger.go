package cmd

import (
	"log/slog"

	"github.com/medichat/medichat/internal/config"
	"github.com/medichat/medichat/internal/log"
)

// newLogger builds the process logger: debug level and text output in
// debug mode, info level and JSON otherwise.
func newLogger(cfg *config.Config) log.Logger {
	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	return log.New(log.Config{Level: level, JSON: !cfg.Debug})
}
