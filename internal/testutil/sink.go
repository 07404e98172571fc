package testutil

import (
	"sync"

	"github.com/roach88/scenesync/internal/logsink"
)

// RecordingSink keeps every entry it receives.
type RecordingSink struct {
	mu      sync.Mutex
	entries []logsink.Entry
}

// Receive implements logsink.Sink.
func (s *RecordingSink) Receive(e logsink.Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, e)
}

// Entries returns a copy of everything received.
func (s *RecordingSink) Entries() []logsink.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]logsink.Entry(nil), s.entries...)
}

// Messages returns the messages at level, in order.
func (s *RecordingSink) Messages(level logsink.Level) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, e := range s.entries {
		if e.Level == level {
			out = append(out, e.Message)
		}
	}
	return out
}

// Count returns how many entries were received at level.
func (s *RecordingSink) Count(level logsink.Level) int {
	return len(s.Messages(level))
}
