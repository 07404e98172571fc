package publisher

import (
	"context"

	"github.com/roach88/scenesync/internal/protocol"
)

// Connection is the transport a Client drives. Each Client owns exactly one
// Connection and never exposes it.
//
// Release tears the transport down. Any call blocked in Commit must return
// once Release has been called.
type Connection interface {
	Open(ctx context.Context, p protocol.OpenParams) (protocol.OpenResult, error)
	Commit(ctx context.Context, p protocol.CommitParams) (protocol.CommitResult, error)
	Progress(ctx context.Context, p protocol.ProgressParams) error
	Close(ctx context.Context, p protocol.CloseParams) (protocol.CloseResult, error)
	Release() error
}

// Dialer opens a Connection to a server address.
type Dialer func(ctx context.Context, address string) (Connection, error)
