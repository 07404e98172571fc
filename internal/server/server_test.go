package server

import (
	"context"
	"io"
	"log/slog"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.lsp.dev/jsonrpc2"

	"github.com/roach88/scenesync/internal/ident"
	"github.com/roach88/scenesync/internal/model"
	"github.com/roach88/scenesync/internal/protocol"
	"github.com/roach88/scenesync/internal/store"
)

func newTestServer(t *testing.T) (*Server, *store.Store) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "server.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	srv, err := New(context.Background(), &Spec{
		Store:      st,
		Log:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		SessionIDs: ident.NewSequenceGenerator("session"),
	})
	require.NoError(t, err)
	t.Cleanup(srv.Close)
	return srv, st
}

func dialPipe(t *testing.T, srv *Server) jsonrpc2.Conn {
	t.Helper()
	ctx := context.Background()
	conn := jsonrpc2.NewConn(jsonrpc2.NewStream(srv.Pipe(ctx)))
	conn.Go(ctx, jsonrpc2.MethodNotFoundHandler)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func openParams() protocol.OpenParams {
	return protocol.OpenParams{
		Protocol:      protocol.Version,
		Publisher:     protocol.Publisher{Name: "test", Version: "1.0.0"},
		Source:        protocol.Source{Name: "Sample Quad", ID: "src"},
		Project:       protocol.Project{ID: "p", Name: "Project", Server: "local"},
		User:          "Jane",
		LengthUnit:    "meters",
		AxisInversion: "none",
	}
}

func openSession(t *testing.T, conn jsonrpc2.Conn) string {
	t.Helper()
	var res protocol.OpenResult
	_, err := conn.Call(context.Background(), protocol.MethodOpen, openParams(), &res)
	require.NoError(t, err)
	require.NotEmpty(t, res.SessionID)
	return res.SessionID
}

func record(t *testing.T, e model.Entity) model.Record {
	t.Helper()
	r, err := model.Encode(e)
	require.NoError(t, err)
	return r
}

func TestServer_OpenCommitClose(t *testing.T) {
	ctx := context.Background()
	srv, st := newTestServer(t)
	conn := dialPipe(t, srv)

	sessionID := openSession(t, conn)
	assert.Equal(t, "session-1", sessionID)

	mat, err := model.NewMaterial("Material id", "", model.White)
	require.NoError(t, err)

	var res protocol.CommitResult
	_, err = conn.Call(ctx, protocol.MethodCommit, protocol.CommitParams{
		SessionID:     sessionID,
		TransactionID: "tx-1",
		Seq:           1,
		Records:       []model.Record{record(t, mat)},
	}, &res)
	require.NoError(t, err)
	assert.Equal(t, protocol.CommitResult{TransactionID: "tx-1", Seq: 2, Applied: 1}, res)

	require.NoError(t, conn.Notify(ctx, protocol.MethodProgress, protocol.ProgressParams{SessionID: sessionID, Percent: 100}))

	var closed protocol.CloseResult
	_, err = conn.Call(ctx, protocol.MethodClose, protocol.CloseParams{SessionID: sessionID}, &closed)
	require.NoError(t, err)
	assert.Equal(t, 1, closed.Transactions)

	sess, err := st.ReadSession(ctx, sessionID)
	require.NoError(t, err)
	assert.True(t, sess.Closed())
	assert.Equal(t, "Jane", sess.User)

	// The progress notification was handled before the close call.
	progress, err := st.ReadProgress(ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, []int{100}, progress)
}

func TestServer_CommitErrorsCarryCodes(t *testing.T) {
	ctx := context.Background()
	srv, _ := newTestServer(t)
	conn := dialPipe(t, srv)
	sessionID := openSession(t, conn)

	inst, err := model.NewObjectInstance("Instance id", "", "Parent id")
	require.NoError(t, err)

	_, err = conn.Call(ctx, protocol.MethodCommit, protocol.CommitParams{
		SessionID:     sessionID,
		TransactionID: "tx-1",
		Records:       []model.Record{record(t, inst)},
	}, nil)
	require.Error(t, err)
	code, ok := protocol.CodeOf(err)
	require.True(t, ok)
	assert.Equal(t, protocol.CodeUnresolvedReference, code)

	_, err = conn.Call(ctx, protocol.MethodCommit, protocol.CommitParams{
		SessionID:     "nope",
		TransactionID: "tx-2",
	}, nil)
	code, _ = protocol.CodeOf(err)
	assert.Equal(t, protocol.CodeUnknownSession, code)
}

func TestServer_RejectsIncompatibleProtocol(t *testing.T) {
	srv, _ := newTestServer(t)
	conn := dialPipe(t, srv)

	p := openParams()
	p.Protocol = "2.0"
	_, err := conn.Call(context.Background(), protocol.MethodOpen, p, nil)
	code, ok := protocol.CodeOf(err)
	require.True(t, ok)
	assert.Equal(t, protocol.CodeVersionMismatch, code)
}

func TestServer_UnknownMethod(t *testing.T) {
	srv, _ := newTestServer(t)
	conn := dialPipe(t, srv)

	_, err := conn.Call(context.Background(), "scene/render", nil, nil)
	require.Error(t, err)
}

func TestServer_ClosesAbandonedSessions(t *testing.T) {
	ctx := context.Background()
	srv, st := newTestServer(t)

	pipe := srv.Pipe(ctx)
	conn := jsonrpc2.NewConn(jsonrpc2.NewStream(pipe))
	conn.Go(ctx, jsonrpc2.MethodNotFoundHandler)
	sessionID := openSession(t, conn)

	require.NoError(t, conn.Close())

	require.Eventually(t, func() bool {
		sess, err := st.ReadSession(ctx, sessionID)
		return err == nil && sess.Closed()
	}, 2*time.Second, 10*time.Millisecond)
}

func TestServer_ResumesClock(t *testing.T) {
	ctx := context.Background()
	srv, st := newTestServer(t)
	conn := dialPipe(t, srv)
	openSession(t, conn)
	require.Equal(t, int64(1), srv.Seq())

	again, err := New(ctx, &Spec{Store: st, Log: srv.Spec.Log})
	require.NoError(t, err)
	assert.Equal(t, int64(1), again.Seq())
}

func TestTCPListener(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	srv, _ := newTestServer(t)

	l, err := NewTCPListener("127.0.0.1:0", srv)
	require.NoError(t, err)

	served := make(chan error, 1)
	go func() { served <- l.Serve(ctx) }()

	nc, err := net.Dial("tcp", l.Addr().String())
	require.NoError(t, err)
	conn := jsonrpc2.NewConn(jsonrpc2.NewStream(nc))
	conn.Go(ctx, jsonrpc2.MethodNotFoundHandler)
	defer conn.Close()

	openSession(t, conn)
	assert.Equal(t, 1, srv.ConnCount())

	require.NoError(t, l.Close())
	require.NoError(t, <-served)
	assert.Equal(t, 0, srv.ConnCount())
}
