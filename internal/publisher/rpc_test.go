package publisher

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/scenesync/internal/ident"
	"github.com/roach88/scenesync/internal/model"
	"github.com/roach88/scenesync/internal/protocol"
	"github.com/roach88/scenesync/internal/sample"
	"github.com/roach88/scenesync/internal/server"
	"github.com/roach88/scenesync/internal/settings"
	"github.com/roach88/scenesync/internal/store"
)

func newServer(t *testing.T) (*server.Server, *store.Store) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "sync.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	srv, err := server.New(context.Background(), &server.Spec{
		Store:      st,
		Log:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		SessionIDs: ident.NewSequenceGenerator("session"),
	})
	require.NoError(t, err)
	t.Cleanup(srv.Close)
	return srv, st
}

func pipeDialer(srv *server.Server) Dialer {
	return func(ctx context.Context, _ string) (Connection, error) {
		return NewConnection(ctx, srv.Pipe(ctx)), nil
	}
}

func openServer(t *testing.T, srv *server.Server, s *settings.Settings) *Client {
	t.Helper()
	c, err := Open(context.Background(), testInfo(t), sample.SourceName, "src", s,
		WithDialer(pipeDialer(srv)),
		WithTransactionIDs(ident.NewSequenceGenerator("tx")),
	)
	require.NoError(t, err)
	return c
}

func TestRPC_ExportQuadScene(t *testing.T) {
	ctx := context.Background()
	srv, st := newServer(t)
	s := testSettings()
	s.Rules = `{"merge": "children"}`
	c := openServer(t, srv, s)

	scene, err := sample.Quad()
	require.NoError(t, err)

	require.NoError(t, c.ReportProgress(ctx, 0))
	tx, err := c.StartTransaction()
	require.NoError(t, err)
	for _, e := range scene.Entities() {
		require.NoError(t, tx.Send(e))
	}
	require.NoError(t, c.ReportProgress(ctx, 50))
	require.NoError(t, tx.Commit(ctx))
	require.NoError(t, c.ReportProgress(ctx, 100))
	require.NoError(t, c.CloseAndWait(ctx))

	scope := store.Scope{ProjectID: "p", SourceID: "src"}
	children, err := st.ReadChildren(ctx, scope, sample.ParentID)
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(t, sample.ChildID, children[0].ID)

	child, err := model.Decode(children[0].Record())
	require.NoError(t, err)
	obj := child.(*model.Object)

	mesh, err := st.ReadEntity(ctx, scope, obj.MeshID)
	require.NoError(t, err)
	assert.Equal(t, model.KindMesh, mesh.Kind)
	require.Len(t, obj.MaterialIDs, 1)
	mat, err := st.ReadEntity(ctx, scope, obj.MaterialIDs[0])
	require.NoError(t, err)
	assert.Equal(t, model.KindMaterial, mat.Kind)

	sess, err := st.ReadSession(ctx, c.SessionID())
	require.NoError(t, err)
	assert.True(t, sess.Closed())
	assert.Equal(t, s.Rules, sess.Rules)
	assert.Equal(t, "Jane", sess.User)

	progress, err := st.ReadProgress(ctx, c.SessionID())
	require.NoError(t, err)
	assert.Equal(t, []int{0, 50, 100}, progress)
}

func TestRPC_LastWriteWinsOnServer(t *testing.T) {
	ctx := context.Background()
	srv, st := newServer(t)
	c := openServer(t, srv, testSettings())

	tx, err := c.StartTransaction()
	require.NoError(t, err)
	require.NoError(t, tx.Send(testMaterial(t, "m", model.White)))
	blue := model.ColorFrom256(0, 0, 255)
	require.NoError(t, tx.Send(testMaterial(t, "m", blue)))
	require.NoError(t, tx.Commit(ctx))
	require.NoError(t, c.CloseAndWait(ctx))

	got, err := st.ReadEntity(ctx, store.Scope{ProjectID: "p", SourceID: "src"}, "m")
	require.NoError(t, err)
	e, err := model.Decode(got.Record())
	require.NoError(t, err)
	assert.Equal(t, blue, e.(*model.Material).BaseColor)
}

func TestRPC_UnresolvedReferenceFailsTransaction(t *testing.T) {
	ctx := context.Background()
	srv, st := newServer(t)
	c := openServer(t, srv, testSettings())

	obj, err := model.NewObject("o", "orphan", model.WithMesh("missing"))
	require.NoError(t, err)

	tx, err := c.StartTransaction()
	require.NoError(t, err)
	require.NoError(t, tx.Send(testMaterial(t, "m", model.White)))
	require.NoError(t, tx.Send(obj))

	err = tx.Commit(ctx)
	require.Error(t, err)
	assert.True(t, IsTransport(err))
	code, ok := protocol.CodeOf(err)
	require.True(t, ok)
	assert.Equal(t, protocol.CodeUnresolvedReference, code)
	assert.Equal(t, StateFailed, tx.State())

	// Nothing from the failed batch is visible.
	entities, err := st.ReadEntities(ctx, store.Scope{ProjectID: "p", SourceID: "src"})
	require.NoError(t, err)
	assert.Empty(t, entities)

	// A later transaction may supply the mesh first.
	retry, err := c.StartTransaction()
	require.NoError(t, err)
	require.NoError(t, retry.Send(testMesh(t, "missing")))
	require.NoError(t, retry.Send(obj))
	require.NoError(t, retry.Commit(ctx))
	require.NoError(t, c.CloseAndWait(ctx))
}

func TestRPC_CallsAfterReleaseFail(t *testing.T) {
	ctx := context.Background()
	srv, _ := newServer(t)
	conn := NewConnection(ctx, srv.Pipe(ctx))

	_, err := conn.Open(ctx, protocol.OpenParams{
		Protocol: protocol.Version,
		Source:   protocol.Source{ID: "src"},
		Project:  protocol.Project{ID: "p"},
	})
	require.NoError(t, err)
	require.NoError(t, conn.Release())

	_, err = conn.Commit(ctx, protocol.CommitParams{TransactionID: "tx"})
	assert.ErrorIs(t, err, ErrConnectionReleased)
	assert.ErrorIs(t, conn.Progress(ctx, protocol.ProgressParams{Percent: 1}), ErrConnectionReleased)
}
