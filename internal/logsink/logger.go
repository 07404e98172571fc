package logsink

import (
	"fmt"
	"time"
)

// Logger writes formatted entries tagged with a component name to a Sink.
// The zero value discards everything.
type Logger struct {
	sink      Sink
	component string
	now       func() time.Time
}

// NewLogger creates a Logger. A nil sink discards.
func NewLogger(sink Sink, component string) Logger {
	if sink == nil {
		sink = Discard
	}
	return Logger{sink: sink, component: component, now: time.Now}
}

// With returns a copy of l tagged with component.
func (l Logger) With(component string) Logger {
	l.component = component
	return l
}

func (l Logger) Debug(format string, args ...any) { l.log(LevelDebug, format, args...) }
func (l Logger) Info(format string, args ...any)  { l.log(LevelInfo, format, args...) }
func (l Logger) Warn(format string, args ...any)  { l.log(LevelWarn, format, args...) }
func (l Logger) Error(format string, args ...any) { l.log(LevelError, format, args...) }

func (l Logger) log(level Level, format string, args ...any) {
	if l.sink == nil {
		return
	}
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	now := time.Now
	if l.now != nil {
		now = l.now
	}
	l.sink.Receive(Entry{
		Time:      now(),
		Level:     level,
		Component: l.component,
		Message:   msg,
	})
}
