package server

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
)

// TCPListener accepts protocol connections over TCP.
type TCPListener struct {
	listener net.Listener
	server   *Server

	wg     sync.WaitGroup
	closed atomic.Bool
}

// NewTCPListener listens on addr.
func NewTCPListener(addr string, server *Server) (*TCPListener, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return &TCPListener{listener: listener, server: server}, nil
}

// Addr returns the listener's network address.
func (l *TCPListener) Addr() net.Addr {
	return l.listener.Addr()
}

// Serve accepts connections until Close is called or ctx is cancelled.
func (l *TCPListener) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	stop := context.AfterFunc(ctx, func() { l.Close() })
	defer stop()

	log := l.server.Spec.Log
	log.Info("TCP listener started", "addr", l.listener.Addr().String())

	for {
		conn, err := l.listener.Accept()
		if err != nil {
			if l.closed.Load() {
				return nil
			}
			log.Error("accept error", "error", err)
			continue
		}

		l.wg.Add(1)
		go func() {
			defer l.wg.Done()
			log.Debug("new TCP connection", "remote", conn.RemoteAddr().String())
			if err := l.server.ServeConn(ctx, conn); err != nil {
				log.Error("connection error", "remote", conn.RemoteAddr().String(), "error", err)
			}
			log.Debug("connection ended", "remote", conn.RemoteAddr().String())
		}()
	}
}

// Close stops accepting, disconnects every peer and waits for them.
func (l *TCPListener) Close() error {
	if l.closed.Swap(true) {
		return nil
	}
	if err := l.listener.Close(); err != nil {
		l.server.Spec.Log.Error("error closing listener", "error", err)
	}
	l.server.Close()
	l.wg.Wait()
	l.server.Spec.Log.Info("TCP listener stopped")
	return nil
}
