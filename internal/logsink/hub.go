package logsink

import (
	"sync"
)

// Hub fans entries out to subscribers. Receive only enqueues; a single
// goroutine delivers entries in arrival order.
//
// Hub is safe for concurrent use. Entries received after Close are dropped.
type Hub struct {
	queue *entryQueue

	mu     sync.RWMutex
	nextID int
	subs   map[int]Sink
	order  []int

	done chan struct{}
	once sync.Once
}

// NewHub creates a Hub and starts its delivery goroutine.
func NewHub() *Hub {
	h := &Hub{
		queue: newEntryQueue(),
		subs:  make(map[int]Sink),
		done:  make(chan struct{}),
	}
	go h.run()
	return h
}

// Subscribe adds s and returns a function removing it again. Removing twice
// is a no-op.
func (h *Hub) Subscribe(s Sink) (unsubscribe func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextID
	h.nextID++
	h.subs[id] = s
	h.order = append(h.order, id)

	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if _, ok := h.subs[id]; !ok {
			return
		}
		delete(h.subs, id)
		for i, v := range h.order {
			if v == id {
				h.order = append(h.order[:i], h.order[i+1:]...)
				break
			}
		}
	}
}

// Receive enqueues e for delivery.
func (h *Hub) Receive(e Entry) {
	h.queue.Enqueue(e)
}

// Close stops accepting entries and blocks until every queued entry has been
// delivered.
func (h *Hub) Close() {
	h.once.Do(func() {
		h.queue.Close()
		<-h.done
	})
}

func (h *Hub) run() {
	defer close(h.done)
	for {
		e, ok := h.queue.Dequeue()
		if !ok {
			return
		}
		h.deliver(e)
	}
}

func (h *Hub) deliver(e Entry) {
	h.mu.RLock()
	sinks := make([]Sink, 0, len(h.order))
	for _, id := range h.order {
		sinks = append(sinks, h.subs[id])
	}
	h.mu.RUnlock()

	for _, s := range sinks {
		s.Receive(e)
	}
}

// entryQueue is an unbounded FIFO. Enqueue never blocks, so logging from a
// hot path cannot stall on a slow receiver.
type entryQueue struct {
	mu      sync.Mutex
	entries []Entry
	closed  bool
	signal  chan struct{} // buffered, size 1
}

func newEntryQueue() *entryQueue {
	return &entryQueue{
		entries: make([]Entry, 0, 64),
		signal:  make(chan struct{}, 1),
	}
}

// Enqueue appends e. Returns false if the queue is closed.
func (q *entryQueue) Enqueue(e Entry) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.entries = append(q.entries, e)

	select {
	case q.signal <- struct{}{}:
	default:
	}
	return true
}

// Dequeue blocks until an entry is available. It returns false once the
// queue is closed and drained.
func (q *entryQueue) Dequeue() (Entry, bool) {
	for {
		q.mu.Lock()
		if len(q.entries) > 0 {
			e := q.entries[0]
			q.entries[0] = Entry{}
			if len(q.entries) == 1 {
				q.entries = q.entries[:0]
			} else {
				q.entries = q.entries[1:]
			}
			q.mu.Unlock()
			return e, true
		}
		if q.closed {
			q.mu.Unlock()
			return Entry{}, false
		}
		q.mu.Unlock()

		<-q.signal
	}
}

// Close wakes the consumer; queued entries are still delivered.
func (q *entryQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.signal)
}
