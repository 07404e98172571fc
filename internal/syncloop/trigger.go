package syncloop

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultInterval is the tick period of NewIntervalTrigger(0).
const DefaultInterval = 3 * time.Second

// Trigger produces sync ticks. Ticks that arrive while the driver is busy
// may be coalesced.
type Trigger interface {
	Ticks() <-chan struct{}
	Stop()
}

// signal is a coalescing tick channel: at most one tick is pending.
type signal struct {
	ticks chan struct{}
	stop  chan struct{}
	once  sync.Once
}

func newSignal() *signal {
	return &signal{
		ticks: make(chan struct{}, 1),
		stop:  make(chan struct{}),
	}
}

func (s *signal) Ticks() <-chan struct{} { return s.ticks }

func (s *signal) fire() {
	select {
	case s.ticks <- struct{}{}:
	default:
	}
}

func (s *signal) stopped() bool {
	select {
	case <-s.stop:
		return true
	default:
		return false
	}
}

func (s *signal) halt(fn func()) {
	s.once.Do(func() {
		close(s.stop)
		if fn != nil {
			fn()
		}
	})
}

// IntervalTrigger ticks at a fixed period.
type IntervalTrigger struct {
	*signal
	ticker *time.Ticker
}

// NewIntervalTrigger ticks every d, or every DefaultInterval if d <= 0.
func NewIntervalTrigger(d time.Duration) *IntervalTrigger {
	if d <= 0 {
		d = DefaultInterval
	}
	t := &IntervalTrigger{signal: newSignal(), ticker: time.NewTicker(d)}
	go t.run()
	return t
}

func (t *IntervalTrigger) run() {
	for {
		select {
		case <-t.ticker.C:
			t.fire()
		case <-t.stop:
			return
		}
	}
}

// Stop stops the ticker. It is safe to call more than once.
func (t *IntervalTrigger) Stop() {
	t.halt(t.ticker.Stop)
}

// EventTrigger ticks when the host reports a scene change.
type EventTrigger struct {
	*signal
}

// NewEventTrigger creates a trigger driven by Notify.
func NewEventTrigger() *EventTrigger {
	return &EventTrigger{signal: newSignal()}
}

// Notify requests a tick. Notifications made while a tick is pending are
// merged into it. Notify after Stop is ignored.
func (t *EventTrigger) Notify() {
	if t.stopped() {
		return
	}
	t.fire()
}

// Stop implements Trigger.
func (t *EventTrigger) Stop() { t.halt(nil) }

// FileTrigger ticks when a file is written, created, renamed or removed.
// It watches the parent directory so editors that replace the file are
// still seen.
type FileTrigger struct {
	*signal
	watcher *fsnotify.Watcher
	path    string
}

// NewFileTrigger watches path.
func NewFileTrigger(path string) (*FileTrigger, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("watch %s: %w", path, err)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch %s: %w", path, err)
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		w.Close()
		return nil, fmt.Errorf("watch %s: %w", path, err)
	}
	t := &FileTrigger{signal: newSignal(), watcher: w, path: abs}
	go t.run()
	return t, nil
}

// Path returns the watched file.
func (t *FileTrigger) Path() string { return t.path }

func (t *FileTrigger) run() {
	for {
		select {
		case e, ok := <-t.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(e.Name) != t.path {
				continue
			}
			if e.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) != 0 {
				slog.Debug("watched file changed", "path", t.path, "op", e.Op.String())
				t.fire()
			}
		case err, ok := <-t.watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("file watch error", "path", t.path, "error", err)
		case <-t.stop:
			return
		}
	}
}

// Stop closes the watcher.
func (t *FileTrigger) Stop() {
	t.halt(func() { t.watcher.Close() })
}
