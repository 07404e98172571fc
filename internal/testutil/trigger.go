package testutil

import "sync"

// ManualTrigger fires sync ticks on demand. Fire blocks until the driver
// has taken the tick, so a test knows the tick was observed.
type ManualTrigger struct {
	ticks chan struct{}
	stop  chan struct{}
	once  sync.Once
}

// NewManualTrigger creates a trigger with no pending ticks.
func NewManualTrigger() *ManualTrigger {
	return &ManualTrigger{
		ticks: make(chan struct{}),
		stop:  make(chan struct{}),
	}
}

// Ticks implements the sync loop trigger.
func (m *ManualTrigger) Ticks() <-chan struct{} { return m.ticks }

// Fire delivers one tick. It returns false if the trigger was stopped.
func (m *ManualTrigger) Fire() bool {
	select {
	case m.ticks <- struct{}{}:
		return true
	case <-m.stop:
		return false
	}
}

// Stop implements the sync loop trigger.
func (m *ManualTrigger) Stop() {
	m.once.Do(func() { close(m.stop) })
}

// Stopped reports whether Stop was called.
func (m *ManualTrigger) Stopped() bool {
	select {
	case <-m.stop:
		return true
	default:
		return false
	}
}
