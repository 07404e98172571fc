package publisher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"

	"go.lsp.dev/jsonrpc2"

	"github.com/roach88/scenesync/internal/protocol"
)

// ErrConnectionReleased is returned by calls on a released connection.
var ErrConnectionReleased = errors.New("connection released")

type rpcConnection struct {
	conn jsonrpc2.Conn
}

// Dial connects to a sync server over TCP.
func Dial(ctx context.Context, address string) (Connection, error) {
	var d net.Dialer
	nc, err := d.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", address, err)
	}
	return NewConnection(ctx, nc), nil
}

// NewConnection speaks JSON-RPC 2.0 over rwc. The server never calls back,
// so incoming requests are answered with method-not-found.
func NewConnection(ctx context.Context, rwc io.ReadWriteCloser) Connection {
	conn := jsonrpc2.NewConn(jsonrpc2.NewStream(rwc))
	conn.Go(ctx, jsonrpc2.MethodNotFoundHandler)
	return &rpcConnection{conn: conn}
}

func (c *rpcConnection) Open(ctx context.Context, p protocol.OpenParams) (protocol.OpenResult, error) {
	var res protocol.OpenResult
	err := c.call(ctx, protocol.MethodOpen, p, &res)
	return res, err
}

func (c *rpcConnection) Commit(ctx context.Context, p protocol.CommitParams) (protocol.CommitResult, error) {
	var res protocol.CommitResult
	err := c.call(ctx, protocol.MethodCommit, p, &res)
	return res, err
}

func (c *rpcConnection) Progress(ctx context.Context, p protocol.ProgressParams) error {
	if c.released() {
		return ErrConnectionReleased
	}
	return c.conn.Notify(ctx, protocol.MethodProgress, p)
}

func (c *rpcConnection) Close(ctx context.Context, p protocol.CloseParams) (protocol.CloseResult, error) {
	var res protocol.CloseResult
	err := c.call(ctx, protocol.MethodClose, p, &res)
	return res, err
}

func (c *rpcConnection) Release() error {
	err := c.conn.Close()
	<-c.conn.Done()
	if err != nil && !errors.Is(err, net.ErrClosed) && !errors.Is(err, io.ErrClosedPipe) {
		return err
	}
	return nil
}

func (c *rpcConnection) released() bool {
	select {
	case <-c.conn.Done():
		return true
	default:
		return false
	}
}

// call issues a request and gives up when the connection goes away, since
// a pending Call is otherwise only released by ctx.
func (c *rpcConnection) call(ctx context.Context, method string, params, result any) error {
	if c.released() {
		return ErrConnectionReleased
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-c.conn.Done():
			cancel()
		case <-ctx.Done():
		}
	}()

	_, err := c.conn.Call(ctx, method, params, result)
	if err != nil && c.released() {
		return fmt.Errorf("%s: %w", method, ErrConnectionReleased)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	return nil
}
