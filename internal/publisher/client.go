package publisher

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/roach88/scenesync/internal/ident"
	"github.com/roach88/scenesync/internal/logsink"
	"github.com/roach88/scenesync/internal/model"
	"github.com/roach88/scenesync/internal/protocol"
	"github.com/roach88/scenesync/internal/settings"
)

// Client publishes entities to one target project over one connection.
// All methods are safe for concurrent use.
type Client struct {
	conn      Connection
	sessionID string
	info      Info
	source    protocol.Source
	project   protocol.Project
	log       logsink.Logger
	ids       ident.Generator
	clock     *ident.Clock

	mu       sync.Mutex
	current  *Transaction
	closing  bool
	progress int

	// progressMu orders progress sends; held across the network call.
	progressMu sync.Mutex

	closeOnce sync.Once
	closeErr  error
}

// Open connects to the server named by s and starts a session for the
// given source project. It returns ErrNoSettings when s is nil.
func Open(ctx context.Context, info Info, sourceName, sourceID string, s *settings.Settings, opts ...Option) (*Client, error) {
	if s == nil {
		return nil, ErrNoSettings
	}
	if sourceID == "" {
		return nil, fmt.Errorf("publisher: source id is required")
	}
	if err := settings.Validate(s); err != nil {
		return nil, fmt.Errorf("publisher: %w", err)
	}

	o := options{dial: Dial}
	for _, opt := range opts {
		opt(&o)
	}
	if o.ids == nil {
		o.ids = ident.UUIDv7Generator{}
	}
	if o.clock == nil {
		o.clock = ident.NewClock()
	}

	c := &Client{
		info:    info,
		source:  protocol.Source{Name: sourceName, ID: sourceID},
		project: protocol.Project{ID: s.TargetProject.ID, Name: s.TargetProject.Name, Server: s.TargetProject.Host.ServerName},
		log:     logsink.NewLogger(o.sink, "publisher"),
		ids:     o.ids,
		clock:   o.clock,
	}

	conn := o.conn
	if conn == nil {
		var err error
		conn, err = o.dial(ctx, s.TargetProject.Host.Address)
		if err != nil {
			return nil, transportError("", "connect to "+s.TargetProject.Host.ServerName, err)
		}
	}

	res, err := conn.Open(ctx, protocol.OpenParams{
		Protocol:      protocol.Version,
		Publisher:     protocol.Publisher{Name: info.Name, Version: info.versionString()},
		Source:        c.source,
		Project:       c.project,
		User:          s.User.DisplayName,
		LengthUnit:    string(s.LengthUnit),
		AxisInversion: string(s.AxisInversion),
		Rules:         s.Rules,
	})
	if err != nil {
		conn.Release()
		return nil, transportError("", "open session", err)
	}
	c.conn = conn
	c.sessionID = res.SessionID

	slog.Debug("session opened", "session", res.SessionID, "project", s.TargetProject.ID, "source", sourceID)
	c.log.Info("Publishing %q to project %q on %s", sourceName, s.TargetProject.Name, s.TargetProject.Host.ServerName)
	return c, nil
}

// SessionID returns the server-assigned session id.
func (c *Client) SessionID() string { return c.sessionID }

// StartTransaction returns a new Open transaction. It fails with
// CONCURRENT_TRANSACTION while an earlier transaction has not resolved and
// with CLIENT_CLOSED once CloseAndWait has started.
func (c *Client) StartTransaction() (*Transaction, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closing {
		return nil, &Error{Code: ErrCodeClientClosed, Message: "start transaction on closed client"}
	}
	if c.current != nil {
		return nil, &Error{
			Code:          ErrCodeConcurrentTransaction,
			Message:       "a transaction is already outstanding",
			TransactionID: c.current.id,
		}
	}
	c.current = newTransaction(c, c.ids.Generate())
	return c.current, nil
}

// ReportProgress sends a progress update in percent. Zero starts a new
// export sequence; within a sequence the reported value never decreases.
// Concurrent reports reach the server in the order they were clamped.
func (c *Client) ReportProgress(ctx context.Context, percent int) error {
	if percent < 0 || percent > 100 {
		return &Error{Code: ErrCodeInvalidProgress, Message: fmt.Sprintf("progress %d outside 0..100", percent)}
	}

	c.progressMu.Lock()
	defer c.progressMu.Unlock()

	c.mu.Lock()
	if c.closing {
		c.mu.Unlock()
		return &Error{Code: ErrCodeClientClosed, Message: "report progress on closed client"}
	}
	if percent != 0 && percent < c.progress {
		percent = c.progress
	}
	c.progress = percent
	c.mu.Unlock()

	if err := c.conn.Progress(ctx, protocol.ProgressParams{SessionID: c.sessionID, Percent: percent}); err != nil {
		return transportError("", "report progress", err)
	}
	return nil
}

// Progress returns the last reported progress value.
func (c *Client) Progress() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.progress
}

// CloseAndWait waits for the outstanding transaction to resolve, ends the
// session and releases the connection. An Open transaction that was never
// committed is failed. If ctx expires first the connection is torn down
// and the in-flight commit fails.
//
// Only the first call does any work; later calls return nil once it has
// finished.
func (c *Client) CloseAndWait(ctx context.Context) error {
	first := false
	c.closeOnce.Do(func() {
		first = true
		c.closeErr = c.shutdown(ctx)
	})
	if first {
		return c.closeErr
	}
	return nil
}

func (c *Client) shutdown(ctx context.Context) error {
	c.mu.Lock()
	c.closing = true
	tx := c.current
	c.mu.Unlock()

	if tx != nil && !tx.abandon() {
		select {
		case <-tx.Done():
		case <-ctx.Done():
			c.log.Error("Gave up waiting for transaction %s: %v", tx.id, ctx.Err())
			c.conn.Release()
			<-tx.Done()
			return transportError(tx.id, "close", ctx.Err())
		}
	}

	res, err := c.conn.Close(ctx, protocol.CloseParams{SessionID: c.sessionID})
	relErr := c.conn.Release()
	if err != nil {
		c.log.Error("Closing session failed: %v", err)
		return transportError("", "close session", err)
	}
	if relErr != nil {
		return transportError("", "release connection", relErr)
	}
	slog.Debug("session closed", "session", c.sessionID, "transactions", res.Transactions)
	c.log.Info("Session closed after %d transactions", res.Transactions)
	return nil
}

// dispatch sends one batch. Only one transaction is outstanding at a time,
// so batches reach the server in commit order.
func (c *Client) dispatch(ctx context.Context, txID string, records []model.Record) error {
	seq := c.clock.Next()
	slog.Debug("commit", "transaction", txID, "seq", seq, "records", len(records))

	res, err := c.conn.Commit(ctx, protocol.CommitParams{
		SessionID:     c.sessionID,
		TransactionID: txID,
		Seq:           seq,
		Records:       records,
	})
	if err != nil {
		c.log.Error("Transaction %s failed: %v", txID, err)
		return transportError(txID, "commit", err)
	}
	c.log.Debug("Transaction %s committed %d entities at seq %d", txID, res.Applied, res.Seq)
	return nil
}

func (c *Client) release(t *Transaction) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == t {
		c.current = nil
	}
}
