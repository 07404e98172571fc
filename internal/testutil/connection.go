package testutil

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/roach88/scenesync/internal/protocol"
)

// ErrReleased is returned by FakeConnection calls after Release.
var ErrReleased = errors.New("fake connection released")

// FakeConnection is an in-memory publisher connection. Commits can be held
// with Block to simulate a slow server, or failed with FailNextCommit.
//
// Thread-safety: all methods are safe for concurrent use.
type FakeConnection struct {
	mu        sync.Mutex
	sessionID string
	opened    []protocol.OpenParams
	commits   []protocol.CommitParams
	progress  []int
	closed    int
	releases  int
	gate      chan struct{}
	failNext  error
	released  chan struct{}
	entered   chan string
	seq       int64
}

// NewFakeConnection creates a connection that assigns sessionID on open.
func NewFakeConnection(sessionID string) *FakeConnection {
	return &FakeConnection{
		sessionID: sessionID,
		released:  make(chan struct{}),
		entered:   make(chan string, 64),
	}
}

func (f *FakeConnection) Open(ctx context.Context, p protocol.OpenParams) (protocol.OpenResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.isReleased() {
		return protocol.OpenResult{}, ErrReleased
	}
	f.opened = append(f.opened, p)
	return protocol.OpenResult{SessionID: f.sessionID}, nil
}

// Commit records the batch. While blocked it waits for Unblock, Release or
// ctx, whichever comes first.
func (f *FakeConnection) Commit(ctx context.Context, p protocol.CommitParams) (protocol.CommitResult, error) {
	f.mu.Lock()
	if f.isReleased() {
		f.mu.Unlock()
		return protocol.CommitResult{}, ErrReleased
	}
	gate := f.gate
	f.mu.Unlock()

	select {
	case f.entered <- p.TransactionID:
	default:
	}

	if gate != nil {
		select {
		case <-gate:
		case <-f.released:
			return protocol.CommitResult{}, ErrReleased
		case <-ctx.Done():
			return protocol.CommitResult{}, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNext != nil {
		err := f.failNext
		f.failNext = nil
		return protocol.CommitResult{}, err
	}
	f.commits = append(f.commits, p)
	f.seq++
	return protocol.CommitResult{
		TransactionID: p.TransactionID,
		Seq:           f.seq,
		Applied:       len(p.Records),
	}, nil
}

func (f *FakeConnection) Progress(ctx context.Context, p protocol.ProgressParams) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.isReleased() {
		return ErrReleased
	}
	f.progress = append(f.progress, p.Percent)
	return nil
}

func (f *FakeConnection) Close(ctx context.Context, p protocol.CloseParams) (protocol.CloseResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.isReleased() {
		return protocol.CloseResult{}, ErrReleased
	}
	if p.SessionID != f.sessionID {
		return protocol.CloseResult{}, fmt.Errorf("unknown session %q", p.SessionID)
	}
	f.closed++
	return protocol.CloseResult{Transactions: len(f.commits)}, nil
}

func (f *FakeConnection) Release() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.releases++
	if !f.isReleased() {
		close(f.released)
	}
	return nil
}

// isReleased must be called with f.mu held or after Release has returned.
func (f *FakeConnection) isReleased() bool {
	select {
	case <-f.released:
		return true
	default:
		return false
	}
}

// Block holds every subsequent Commit until Unblock.
func (f *FakeConnection) Block() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.gate == nil {
		f.gate = make(chan struct{})
	}
}

// Unblock releases held commits.
func (f *FakeConnection) Unblock() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.gate != nil {
		close(f.gate)
		f.gate = nil
	}
}

// FailNextCommit makes the next Commit return err.
func (f *FakeConnection) FailNextCommit(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failNext = err
}

// Entered receives the transaction id of every Commit as it starts.
func (f *FakeConnection) Entered() <-chan string { return f.entered }

// Opened returns the handshakes received.
func (f *FakeConnection) Opened() []protocol.OpenParams {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]protocol.OpenParams(nil), f.opened...)
}

// Commits returns the acknowledged batches in order.
func (f *FakeConnection) Commits() []protocol.CommitParams {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]protocol.CommitParams(nil), f.commits...)
}

// ProgressValues returns every progress value received.
func (f *FakeConnection) ProgressValues() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.progress...)
}

// CloseCount returns how many session/close calls succeeded.
func (f *FakeConnection) CloseCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// ReleaseCount returns how many times Release was called.
func (f *FakeConnection) ReleaseCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.releases
}
