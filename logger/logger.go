// Package logger configures the process-wide slog logger.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

const fileName = "server.log"

type Config struct {
	// DataDir receives logs/server.log. Empty disables the file output.
	DataDir string
	// DevMode switches the output to slog's text format.
	DevMode bool
	// Verbose enables debug level.
	Verbose bool
	// Console receives a copy of every record. Defaults to os.Stderr.
	Console io.Writer
}

// Init installs the default logger and returns a function closing the log
// file. Logs are rotated at 10MB, keeping 3 compressed backups for 28 days.
func Init(cfg Config) (func() error, error) {
	console := cfg.Console
	if console == nil {
		console = os.Stderr
	}

	out := console
	closeFn := func() error { return nil }
	if cfg.DataDir != "" {
		logDir := filepath.Join(cfg.DataDir, "logs")
		if err := os.MkdirAll(logDir, 0755); err != nil {
			return closeFn, fmt.Errorf("failed to create log directory: %w", err)
		}
		file := &lumberjack.Logger{
			Filename:   filepath.Join(logDir, fileName),
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     28,
			Compress:   true,
		}
		out = io.MultiWriter(console, file)
		closeFn = file.Close
	}

	slog.SetDefault(slog.New(newHandler(out, cfg)))
	return closeFn, nil
}

func newHandler(w io.Writer, cfg Config) slog.Handler {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if cfg.Verbose {
		opts.Level = slog.LevelDebug
	}
	if cfg.DevMode {
		return slog.NewTextHandler(w, opts)
	}
	return slog.NewJSONHandler(w, opts)
}
