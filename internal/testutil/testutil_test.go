package testutil

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/scenesync/internal/logsink"
	"github.com/roach88/scenesync/internal/protocol"
)

func TestFakeConnection_RecordsCalls(t *testing.T) {
	ctx := context.Background()
	f := NewFakeConnection("s-1")

	res, err := f.Open(ctx, protocol.OpenParams{Protocol: protocol.Version})
	require.NoError(t, err)
	assert.Equal(t, "s-1", res.SessionID)

	cr, err := f.Commit(ctx, protocol.CommitParams{SessionID: "s-1", TransactionID: "tx-1"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), cr.Seq)

	require.NoError(t, f.Progress(ctx, protocol.ProgressParams{Percent: 40}))

	closeRes, err := f.Close(ctx, protocol.CloseParams{SessionID: "s-1"})
	require.NoError(t, err)
	assert.Equal(t, 1, closeRes.Transactions)

	require.NoError(t, f.Release())
	require.NoError(t, f.Release())

	assert.Len(t, f.Opened(), 1)
	assert.Len(t, f.Commits(), 1)
	assert.Equal(t, []int{40}, f.ProgressValues())
	assert.Equal(t, 1, f.CloseCount())
	assert.Equal(t, 2, f.ReleaseCount())

	_, err = f.Commit(ctx, protocol.CommitParams{TransactionID: "tx-2"})
	assert.ErrorIs(t, err, ErrReleased)
}

func TestFakeConnection_BlockUntilRelease(t *testing.T) {
	f := NewFakeConnection("s")
	f.Block()

	errc := make(chan error, 1)
	go func() {
		_, err := f.Commit(context.Background(), protocol.CommitParams{TransactionID: "tx"})
		errc <- err
	}()

	assert.Equal(t, "tx", <-f.Entered())
	require.NoError(t, f.Release())

	select {
	case err := <-errc:
		assert.ErrorIs(t, err, ErrReleased)
	case <-time.After(time.Second):
		t.Fatal("commit did not return after release")
	}
}

func TestFakeConnection_FailNextCommit(t *testing.T) {
	ctx := context.Background()
	f := NewFakeConnection("s")
	boom := errors.New("boom")
	f.FailNextCommit(boom)

	_, err := f.Commit(ctx, protocol.CommitParams{TransactionID: "a"})
	assert.ErrorIs(t, err, boom)
	_, err = f.Commit(ctx, protocol.CommitParams{TransactionID: "b"})
	assert.NoError(t, err)
	assert.Len(t, f.Commits(), 1)
}

func TestRecordingSink(t *testing.T) {
	s := &RecordingSink{}
	log := logsink.NewLogger(s, "test")
	log.Info("one")
	log.Error("two %d", 2)
	log.Info("three")

	assert.Equal(t, []string{"one", "three"}, s.Messages(logsink.LevelInfo))
	assert.Equal(t, 1, s.Count(logsink.LevelError))
	assert.Len(t, s.Entries(), 3)
}

func TestManualTrigger(t *testing.T) {
	m := NewManualTrigger()
	go func() { <-m.Ticks() }()
	assert.True(t, m.Fire())

	m.Stop()
	m.Stop()
	assert.True(t, m.Stopped())
	assert.False(t, m.Fire())
}
