package logsink

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	charmlog "github.com/charmbracelet/log"
	"github.com/go-git/go-billy/v5"
)

// SlogSink forwards entries to a structured logger.
func SlogSink(l *slog.Logger) Sink {
	return SinkFunc(func(e Entry) {
		l.Log(context.Background(), slogLevel(e.Level), e.Message, "component", e.Component)
	})
}

func slogLevel(l Level) slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ConsoleSink renders entries for an interactive terminal.
type ConsoleSink struct {
	logger *charmlog.Logger
}

// NewConsoleSink creates a ConsoleSink writing to w at or above min.
func NewConsoleSink(w io.Writer, min Level) *ConsoleSink {
	l := charmlog.NewWithOptions(w, charmlog.Options{
		ReportTimestamp: true,
		TimeFormat:      time.TimeOnly,
		Prefix:          "publisher",
	})
	l.SetLevel(charmLevel(min))
	return &ConsoleSink{logger: l}
}

// Receive implements Sink.
func (s *ConsoleSink) Receive(e Entry) {
	l := s.logger
	if e.Component != "" {
		l = l.WithPrefix(e.Component)
	}
	switch e.Level {
	case LevelDebug:
		l.Debug(e.Message)
	case LevelWarn:
		l.Warn(e.Message)
	case LevelError:
		l.Error(e.Message)
	default:
		l.Info(e.Message)
	}
}

func charmLevel(l Level) charmlog.Level {
	switch l {
	case LevelDebug:
		return charmlog.DebugLevel
	case LevelWarn:
		return charmlog.WarnLevel
	case LevelError:
		return charmlog.ErrorLevel
	default:
		return charmlog.InfoLevel
	}
}

// WriterSink writes each message on its own line, without decoration.
type WriterSink struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriterSink creates a WriterSink.
func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{w: w}
}

// Receive implements Sink. Write errors are dropped.
func (s *WriterSink) Receive(e Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintln(s.w, e.Message)
}

// FileSink appends timestamped lines to a file.
type FileSink struct {
	mu sync.Mutex
	f  billy.File
}

// OpenFileSink opens path on fs for appending, creating it if needed. The
// parent directory must exist.
func OpenFileSink(fs billy.Filesystem, path string) (*FileSink, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "/" {
		if _, err := fs.Stat(dir); err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
	}
	f, err := fs.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return &FileSink{f: f}, nil
}

// Receive implements Sink. Write errors are dropped.
func (s *FileSink) Receive(e Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return
	}
	fmt.Fprintf(s.f, "%s [%s] %s: %s\n", e.Time.Format(time.RFC3339), e.Level, e.Component, e.Message)
}

// Close closes the file. Later entries are dropped.
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return nil
	}
	err := s.f.Close()
	s.f = nil
	return err
}
