package logsink

import (
	"fmt"
	"strings"
	"time"
)

// Level is the severity of an entry.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// String returns the lower-case level name.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return fmt.Sprintf("level(%d)", int(l))
	}
}

// ParseLevel parses a level name as printed by String.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return LevelDebug, nil
	case "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	}
	return 0, fmt.Errorf("unknown log level %q", s)
}

// Entry is one log line.
type Entry struct {
	Time      time.Time
	Level     Level
	Component string
	Message   string
}

// Sink receives log entries. Receive must not block for long and must be
// safe for concurrent use.
type Sink interface {
	Receive(Entry)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Entry)

// Receive calls f(e).
func (f SinkFunc) Receive(e Entry) { f(e) }

// Discard drops every entry.
var Discard Sink = SinkFunc(func(Entry) {})

// MinLevel forwards entries at or above min to next.
func MinLevel(min Level, next Sink) Sink {
	return SinkFunc(func(e Entry) {
		if e.Level >= min {
			next.Receive(e)
		}
	})
}
