package publisher

import (
	"context"
	"sync"

	"github.com/roach88/scenesync/internal/model"
)

// State is the lifecycle state of a Transaction.
type State int

const (
	StateOpen State = iota
	StateCommitting
	StateCommitted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateCommitting:
		return "committing"
	case StateCommitted:
		return "committed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Transaction is an ordered batch of entity upserts released to the server
// as one unit. It is used once: after Commit, start a new one.
//
// Transitions: Open -> Committing -> {Committed, Failed}. A transaction
// abandoned by CloseAndWait goes straight from Open to Failed.
type Transaction struct {
	client *Client
	id     string

	mu      sync.Mutex
	state   State
	records []model.Record
	index   map[model.Identifier]int
	err     error
	done    chan struct{}
}

func newTransaction(c *Client, id string) *Transaction {
	return &Transaction{
		client: c,
		id:     id,
		index:  make(map[model.Identifier]int),
		done:   make(chan struct{}),
	}
}

// ID returns the transaction id sent to the server.
func (t *Transaction) ID() string { return t.id }

// State returns the current state.
func (t *Transaction) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Len returns the number of distinct entities in the batch.
func (t *Transaction) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.records)
}

// Err returns why the transaction failed, or nil.
func (t *Transaction) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// Done is closed once the transaction is Committed or Failed.
func (t *Transaction) Done() <-chan struct{} { return t.done }

// Send validates e and adds it to the batch. An entity whose identifier is
// already in the batch replaces the earlier entry at its original position.
// A rejected entity leaves the batch untouched.
func (t *Transaction) Send(e model.Entity) error {
	if err := t.requireOpen("send"); err != nil {
		return err
	}

	// Encode snapshots the entity, so later mutation by the caller is not
	// observed by the batch.
	rec, err := model.Encode(e)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != StateOpen {
		return t.closedError("send")
	}
	if i, ok := t.index[rec.ID]; ok {
		t.records[i] = rec
		return nil
	}
	t.index[rec.ID] = len(t.records)
	t.records = append(t.records, rec)
	return nil
}

// Commit hands the batch to the client and blocks until the server
// acknowledges it or the commit fails. A failed transaction is not retried;
// the client stays usable for a new one. An empty batch commits without a
// round trip.
func (t *Transaction) Commit(ctx context.Context) error {
	t.mu.Lock()
	if t.state != StateOpen {
		t.mu.Unlock()
		return t.closedError("commit")
	}
	t.state = StateCommitting
	records := t.records
	t.mu.Unlock()

	if len(records) == 0 {
		t.resolve(StateCommitted, nil)
		return nil
	}

	err := t.client.dispatch(ctx, t.id, records)
	if err != nil {
		t.resolve(StateFailed, err)
		return err
	}
	t.resolve(StateCommitted, nil)
	return nil
}

func (t *Transaction) requireOpen(op string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != StateOpen {
		return t.closedError(op)
	}
	return nil
}

// closedError must be called with t.mu held.
func (t *Transaction) closedError(op string) error {
	return &Error{
		Code:          ErrCodeTransactionClosed,
		Message:       op + " on " + t.state.String() + " transaction",
		TransactionID: t.id,
	}
}

func (t *Transaction) resolve(state State, err error) {
	t.mu.Lock()
	t.finishLocked(state, err)
	t.mu.Unlock()
	t.client.release(t)
}

func (t *Transaction) finishLocked(state State, err error) {
	t.state = state
	t.err = err
	close(t.done)
}

// abandon fails an Open transaction. It reports false when the transaction
// had already started committing or resolved.
func (t *Transaction) abandon() bool {
	t.mu.Lock()
	if t.state != StateOpen {
		t.mu.Unlock()
		return false
	}
	t.finishLocked(StateFailed, &Error{
		Code:          ErrCodeClientClosed,
		Message:       "client closed before commit",
		TransactionID: t.id,
	})
	t.mu.Unlock()
	t.client.release(t)
	return true
}
