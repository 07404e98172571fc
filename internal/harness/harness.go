package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"go.lsp.dev/jsonrpc2"

	"github.com/roach88/scenesync/internal/ident"
	"github.com/roach88/scenesync/internal/model"
	"github.com/roach88/scenesync/internal/protocol"
	"github.com/roach88/scenesync/internal/server"
	"github.com/roach88/scenesync/internal/store"
)

// progressWait bounds how long the harness waits for a progress
// notification to reach the store.
const progressWait = 2 * time.Second

// Harness drives one scenario against an in-process sync server.
type Harness struct {
	store     *store.Store
	conn      jsonrpc2.Conn
	clock     *ident.Clock
	logger    *slog.Logger
	sessionID string

	commits  int
	progress int
	closed   bool
}

// Option configures Run.
type Option func(*Harness)

// WithLogger routes server and harness logs to l. Logs are discarded by
// default.
func WithLogger(l *slog.Logger) Option {
	return func(h *Harness) {
		h.logger = l
	}
}

// Run executes a scenario and returns the result.
//
// Each run uses a fresh in-memory store and a server reached over an
// in-process pipe, so session identifiers and sequence numbers are the same
// on every run. Step outcomes that differ from the scenario and failed
// assertions are reported in Result.Errors; the returned error is reserved
// for failures of the harness itself.
func Run(ctx context.Context, scenario *Scenario, opts ...Option) (*Result, error) {
	h := &Harness{
		clock:  ident.NewClock(),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(h)
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()
	h.store = st

	srv, err := server.New(ctx, &server.Spec{
		Store:      st,
		Log:        h.logger,
		SessionIDs: ident.NewSequenceGenerator("session"),
	})
	if err != nil {
		return nil, err
	}
	defer srv.Close()

	h.conn = jsonrpc2.NewConn(jsonrpc2.NewStream(srv.Pipe(ctx)))
	h.conn.Go(ctx, jsonrpc2.MethodNotFoundHandler)
	defer h.conn.Close()

	var open protocol.OpenResult
	if _, err := h.conn.Call(ctx, protocol.MethodOpen, scenario.Session.params(), &open); err != nil {
		return nil, fmt.Errorf("open session: %w", err)
	}
	h.sessionID = open.SessionID
	h.logger.Info("scenario started", "scenario", scenario.Name, "session", h.sessionID)

	result := NewResult()
	for i, step := range scenario.Steps {
		if err := h.execute(ctx, i+1, step, result); err != nil {
			return nil, fmt.Errorf("step %d: %w", i+1, err)
		}
	}

	state, err := h.snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("read final state: %w", err)
	}
	result.State = state

	for _, msg := range EvaluateAssertions(state, scenario.Assertions) {
		result.AddError(msg)
	}

	h.logger.Info("scenario finished", "scenario", scenario.Name, "pass", result.Pass)
	return result, nil
}

func (h *Harness) execute(ctx context.Context, n int, step Step, result *Result) error {
	var ev TraceEvent
	var err error
	switch {
	case step.Commit != nil:
		ev, err = h.commit(ctx, n, step.Commit)
	case step.Progress != nil:
		ev, err = h.reportProgress(ctx, n, *step.Progress)
	case step.Close:
		ev, err = h.close(ctx, n)
	}
	if err != nil {
		return err
	}
	result.Trace = append(result.Trace, ev)

	switch {
	case ev.Error == step.ExpectError:
	case step.ExpectError == "":
		result.AddError(fmt.Sprintf("step %d (%s): unexpected error %s", n, ev.Op, ev.Error))
	case ev.Error == "":
		result.AddError(fmt.Sprintf("step %d (%s): expected error %s, got success", n, ev.Op, step.ExpectError))
	default:
		result.AddError(fmt.Sprintf("step %d (%s): expected error %s, got %s", n, ev.Op, step.ExpectError, ev.Error))
	}
	return nil
}

func (h *Harness) commit(ctx context.Context, n int, c *CommitStep) (TraceEvent, error) {
	h.commits++
	txID := c.Transaction
	if txID == "" {
		txID = fmt.Sprintf("tx-%d", h.commits)
	}

	records := make([]model.Record, 0, len(c.Records))
	for _, spec := range c.Records {
		r, err := spec.Record()
		if err != nil {
			return TraceEvent{}, err
		}
		records = append(records, r)
	}

	ev := TraceEvent{Step: n, Op: OpCommit, Transaction: txID}
	var res protocol.CommitResult
	_, err := h.conn.Call(ctx, protocol.MethodCommit, protocol.CommitParams{
		SessionID:     h.sessionID,
		TransactionID: txID,
		Seq:           h.clock.Next(),
		Records:       records,
	}, &res)
	if err != nil {
		code, ok := protocol.CodeOf(err)
		if !ok {
			return TraceEvent{}, fmt.Errorf("commit %s: %w", txID, err)
		}
		ev.Error = protocol.CodeName(code)
		return ev, nil
	}
	ev.Seq = res.Seq
	ev.Applied = res.Applied
	ev.Duplicate = res.Duplicate
	return ev, nil
}

// reportProgress sends a progress notification and waits until the server
// has stored it. A closed session drops progress, so there is nothing to
// wait for.
func (h *Harness) reportProgress(ctx context.Context, n, percent int) (TraceEvent, error) {
	err := h.conn.Notify(ctx, protocol.MethodProgress, protocol.ProgressParams{
		SessionID: h.sessionID,
		Percent:   percent,
	})
	if err != nil {
		return TraceEvent{}, fmt.Errorf("progress: %w", err)
	}
	if h.closed {
		return TraceEvent{Step: n, Op: OpProgress, Percent: &percent}, nil
	}
	h.progress++

	ctx, cancel := context.WithTimeout(ctx, progressWait)
	defer cancel()
	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()
	for {
		values, err := h.store.ReadProgress(ctx, h.sessionID)
		if err != nil {
			return TraceEvent{}, err
		}
		if len(values) >= h.progress {
			break
		}
		select {
		case <-ctx.Done():
			return TraceEvent{}, fmt.Errorf("progress %d was not recorded: %w", percent, ctx.Err())
		case <-ticker.C:
		}
	}
	return TraceEvent{Step: n, Op: OpProgress, Percent: &percent}, nil
}

func (h *Harness) close(ctx context.Context, n int) (TraceEvent, error) {
	ev := TraceEvent{Step: n, Op: OpClose}
	var res protocol.CloseResult
	_, err := h.conn.Call(ctx, protocol.MethodClose, protocol.CloseParams{SessionID: h.sessionID}, &res)
	if err != nil {
		code, ok := protocol.CodeOf(err)
		if !ok {
			return TraceEvent{}, fmt.Errorf("close: %w", err)
		}
		ev.Error = protocol.CodeName(code)
		return ev, nil
	}
	h.closed = true
	return ev, nil
}

func (h *Harness) snapshot(ctx context.Context) (*State, error) {
	sess, err := h.store.ReadSession(ctx, h.sessionID)
	if err != nil {
		return nil, err
	}
	progress, err := h.store.ReadProgress(ctx, h.sessionID)
	if err != nil {
		return nil, err
	}
	txs, err := h.store.ReadTransactions(ctx, h.sessionID)
	if err != nil {
		return nil, err
	}
	entities, err := h.store.ReadEntities(ctx, sess.Scope())
	if err != nil {
		return nil, err
	}

	state := &State{
		SessionID:    sess.ID,
		Closed:       sess.Closed(),
		Progress:     progress,
		Transactions: make([]TransactionState, 0, len(txs)),
		Entities:     make([]EntityState, 0, len(entities)),
	}
	for _, t := range txs {
		state.Transactions = append(state.Transactions, TransactionState{
			ID:      t.ID,
			Seq:     t.Seq,
			Records: t.RecordCount,
		})
	}
	for _, e := range entities {
		state.Entities = append(state.Entities, EntityState{
			ID:          e.ID,
			Kind:        e.Kind,
			Parent:      e.ParentID,
			Seq:         e.Seq,
			Position:    e.Position,
			Transaction: e.TransactionID,
			Data:        e.Data,
			Hash:        e.Hash,
		})
	}
	return state, nil
}
