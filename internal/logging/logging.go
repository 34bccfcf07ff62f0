// Package logging builds the process loggers. Components get a shared
// sink with per-component prefixes; when a log file is configured the
// sink also writes through lumberjack rotation.
package logging

import (
	"io"
	"log"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/kaiwen/blogsync/internal/config"
)

// Sink is a configured log destination. Close releases the rotating
// file writer, if any.
type Sink struct {
	writer io.Writer
	closer io.Closer
}

// New builds a sink from the log configuration. With no file
// configured, output goes to stderr only.
func New(cfg config.Log) (*Sink, error) {
	if cfg.File == "" {
		return &Sink{writer: os.Stderr}, nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
		return nil, err
	}

	rotator := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   true,
	}
	return &Sink{
		writer: io.MultiWriter(os.Stderr, rotator),
		closer: rotator,
	}, nil
}

// Logger returns a component logger writing to the sink, prefixed like
// "[sync] ".
func (s *Sink) Logger(component string) *log.Logger {
	return log.New(s.writer, "["+component+"] ", log.LstdFlags)
}

// Close flushes and closes the rotating file writer.
func (s *Sink) Close() error {
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}
