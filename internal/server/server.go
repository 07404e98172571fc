package server

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"

	"go.lsp.dev/jsonrpc2"

	"github.com/roach88/scenesync/internal/ident"
	"github.com/roach88/scenesync/internal/store"
)

// Spec holds the runtime dependencies of a Server.
type Spec struct {
	Store *store.Store
	Log   *slog.Logger

	// SessionIDs generates session identifiers. Defaults to UUIDv7.
	SessionIDs ident.Generator
}

// Server applies publisher sessions to a store.
type Server struct {
	Spec Spec

	clock *ident.Clock

	connsMu sync.Mutex
	conns   map[jsonrpc2.Conn]struct{}
	wg      sync.WaitGroup
}

// New creates a server whose logical clock resumes after the highest
// sequence number already in the store.
func New(ctx context.Context, spec *Spec) (*Server, error) {
	if spec.Store == nil {
		return nil, fmt.Errorf("server: store is required")
	}
	if spec.Log == nil {
		spec.Log = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	if spec.SessionIDs == nil {
		spec.SessionIDs = ident.UUIDv7Generator{}
	}

	seq, err := spec.Store.MaxSeq(ctx)
	if err != nil {
		return nil, fmt.Errorf("server: resume clock: %w", err)
	}

	return &Server{
		Spec:  *spec,
		clock: ident.NewClockAt(seq),
		conns: make(map[jsonrpc2.Conn]struct{}),
	}, nil
}

// Seq returns the last sequence number handed out.
func (s *Server) Seq() int64 {
	return s.clock.Current()
}

// ServeConn runs the protocol on rwc until the peer disconnects, ctx is
// cancelled or the server is closed. Sessions left open by the peer are
// closed on return.
func (s *Server) ServeConn(ctx context.Context, rwc io.ReadWriteCloser) error {
	conn := jsonrpc2.NewConn(jsonrpc2.NewStream(rwc))
	h := newConnHandler(s)

	s.connsMu.Lock()
	s.conns[conn] = struct{}{}
	s.wg.Add(1)
	s.connsMu.Unlock()
	defer func() {
		s.connsMu.Lock()
		delete(s.conns, conn)
		s.connsMu.Unlock()
		s.wg.Done()
	}()

	conn.Go(ctx, h.handle)

	select {
	case <-conn.Done():
	case <-ctx.Done():
		conn.Close()
		<-conn.Done()
	}

	h.closeAbandoned(context.WithoutCancel(ctx))

	if err := conn.Err(); err != nil && !isClosedErr(err) {
		return err
	}
	return nil
}

// Pipe serves one in-process connection and returns the client end.
func (s *Server) Pipe(ctx context.Context) net.Conn {
	client, srv := net.Pipe()
	go func() {
		if err := s.ServeConn(ctx, srv); err != nil {
			s.Spec.Log.Debug("pipe connection ended", "error", err)
		}
	}()
	return client
}

// Close disconnects every peer and waits for their handlers to finish.
func (s *Server) Close() {
	s.connsMu.Lock()
	for conn := range s.conns {
		conn.Close()
	}
	s.connsMu.Unlock()
	s.wg.Wait()
}

// ConnCount returns the number of connected peers.
func (s *Server) ConnCount() int {
	s.connsMu.Lock()
	defer s.connsMu.Unlock()
	return len(s.conns)
}
