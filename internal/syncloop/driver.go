package syncloop

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/roach88/scenesync/internal/logsink"
	"github.com/roach88/scenesync/internal/model"
	"github.com/roach88/scenesync/internal/publisher"
)

// DefaultDrainTimeout bounds how long shutdown waits for the in-flight
// commit when Run's context is cancelled.
const DefaultDrainTimeout = 30 * time.Second

// Publisher is the part of the publisher client the driver uses.
type Publisher interface {
	StartTransaction() (*publisher.Transaction, error)
	CloseAndWait(ctx context.Context) error
}

// Source returns the current state of the host scene.
type Source interface {
	Snapshot(ctx context.Context) ([]model.Entity, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) ([]model.Entity, error)

// Snapshot implements Source.
func (f SourceFunc) Snapshot(ctx context.Context) ([]model.Entity, error) { return f(ctx) }

// Stats counts what the driver did with its ticks.
type Stats struct {
	Ticks            int64
	Committed        int64
	SkippedBusy      int64
	SkippedUnchanged int64
	Failed           int64
}

// Option configures a Driver.
type Option func(*Driver)

// WithLogSink sets where sync results are reported.
func WithLogSink(s logsink.Sink) Option {
	return func(d *Driver) { d.log = logsink.NewLogger(s, "sync") }
}

// WithDrainTimeout overrides DefaultDrainTimeout.
func WithDrainTimeout(timeout time.Duration) Option {
	return func(d *Driver) { d.drainTimeout = timeout }
}

// Driver runs the incremental sync loop for one client.
type Driver struct {
	client       Publisher
	trigger      Trigger
	source       Source
	tracker      *Tracker
	log          logsink.Logger
	drainTimeout time.Duration

	stop     chan struct{}
	stopOnce sync.Once
	running  atomic.Bool
	exited   chan struct{}

	// last is closed once the previous tick's commit has finished and its
	// changes are marked.
	last     chan struct{}
	inflight sync.WaitGroup

	closeOnce sync.Once
	closeErr  error

	ticks, committed, skippedBusy, skippedUnchanged, failed atomic.Int64
}

// New creates a driver. It does nothing until Run.
func New(client Publisher, trigger Trigger, source Source, opts ...Option) *Driver {
	last := make(chan struct{})
	close(last)
	d := &Driver{
		client:       client,
		trigger:      trigger,
		source:       source,
		tracker:      NewTracker(),
		drainTimeout: DefaultDrainTimeout,
		stop:         make(chan struct{}),
		exited:       make(chan struct{}),
		last:         last,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Prime marks entities as already published, typically right after the
// initial export committed them.
func (d *Driver) Prime(entities []model.Entity) error {
	changes, err := d.tracker.Diff(entities)
	if err != nil {
		return err
	}
	d.tracker.Mark(changes)
	return nil
}

// Run processes ticks until ctx is cancelled or Stop is called. On
// cancellation it drains and closes the client before returning ctx.Err().
//
// Must be called at most once.
func (d *Driver) Run(ctx context.Context) error {
	if !d.running.CompareAndSwap(false, true) {
		return errors.New("sync loop already running")
	}
	defer close(d.exited)

	slog.Info("sync loop starting")
	for {
		select {
		case <-d.stop:
			slog.Info("sync loop stopping")
			return nil
		default:
		}

		select {
		case <-ctx.Done():
			slog.Info("sync loop stopping: context cancelled")
			sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.drainTimeout)
			err := d.shutdown(sctx)
			cancel()
			if err != nil {
				d.log.Error("Closing the publisher failed: %v", err)
			}
			return ctx.Err()
		case <-d.stop:
			slog.Info("sync loop stopping")
			return nil
		case <-d.trigger.Ticks():
			d.tick(ctx)
		}
	}
}

// Stop ends the loop, waits for the in-flight commit and closes the
// client exactly once. If ctx expires first the client connection is torn
// down and the in-flight commit fails.
func (d *Driver) Stop(ctx context.Context) error {
	d.stopOnce.Do(func() { close(d.stop) })
	if d.running.Load() {
		select {
		case <-d.exited:
		case <-ctx.Done():
		}
	}
	return d.shutdown(ctx)
}

// Stats returns a snapshot of the tick counters.
func (d *Driver) Stats() Stats {
	return Stats{
		Ticks:            d.ticks.Load(),
		Committed:        d.committed.Load(),
		SkippedBusy:      d.skippedBusy.Load(),
		SkippedUnchanged: d.skippedUnchanged.Load(),
		Failed:           d.failed.Load(),
	}
}

func (d *Driver) tick(ctx context.Context) {
	n := d.ticks.Add(1)

	tx, err := d.client.StartTransaction()
	if publisher.IsConcurrentTransaction(err) {
		d.skippedBusy.Add(1)
		slog.Debug("sync tick skipped: transaction outstanding", "tick", n)
		return
	}
	if err != nil {
		d.failed.Add(1)
		d.log.Error("Sync tick %d: %v", n, err)
		return
	}

	// The slot is free, so the previous commit has resolved; wait for its
	// bookkeeping before diffing.
	<-d.last

	changes, err := d.changes(ctx)
	if err != nil {
		d.failed.Add(1)
		d.log.Error("Sync tick %d: %v", n, err)
		tx.Commit(ctx) // empty, releases the slot
		return
	}
	if len(changes) == 0 {
		d.skippedUnchanged.Add(1)
		tx.Commit(ctx)
		return
	}

	// A rejected entity stays unmarked and is retried next tick.
	sent := make([]Change, 0, len(changes))
	for _, c := range changes {
		if err := tx.Send(c.Entity); err != nil {
			d.log.Error("Sync tick %d: %v", n, err)
			continue
		}
		sent = append(sent, c)
	}
	if len(sent) == 0 {
		d.failed.Add(1)
		tx.Commit(ctx)
		return
	}
	changes = sent

	done := make(chan struct{})
	d.last = done
	d.inflight.Add(1)
	commitCtx := context.WithoutCancel(ctx)
	go func() {
		defer d.inflight.Done()
		defer close(done)
		if err := tx.Commit(commitCtx); err != nil {
			d.failed.Add(1)
			d.log.Error("Sync update %d failed: %v", n, err)
			return
		}
		d.tracker.Mark(changes)
		d.committed.Add(1)
		d.log.Info("Synced %d changed entities", len(changes))
	}()
}

func (d *Driver) changes(ctx context.Context) ([]Change, error) {
	entities, err := d.source.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return d.tracker.Diff(entities)
}

func (d *Driver) shutdown(ctx context.Context) error {
	d.closeOnce.Do(func() {
		d.trigger.Stop()

		drained := make(chan struct{})
		go func() {
			d.inflight.Wait()
			close(drained)
		}()
		select {
		case <-drained:
		case <-ctx.Done():
			slog.Warn("sync loop: in-flight commit still running at shutdown")
		}

		d.closeErr = d.client.CloseAndWait(ctx)
		st := d.Stats()
		slog.Info("sync loop stopped",
			"ticks", st.Ticks,
			"committed", st.Committed,
			"skipped_busy", st.SkippedBusy,
			"skipped_unchanged", st.SkippedUnchanged,
			"failed", st.Failed,
		)
	})
	return d.closeErr
}
