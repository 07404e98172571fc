package publisher

import (
	"github.com/roach88/scenesync/internal/ident"
	"github.com/roach88/scenesync/internal/logsink"
)

type options struct {
	conn  Connection
	dial  Dialer
	sink  logsink.Sink
	ids   ident.Generator
	clock *ident.Clock
}

// Option configures Open.
type Option func(*options)

// WithConnection uses conn instead of dialing the settings' server address.
func WithConnection(conn Connection) Option {
	return func(o *options) { o.conn = conn }
}

// WithDialer replaces Dial.
func WithDialer(d Dialer) Option {
	return func(o *options) { o.dial = d }
}

// WithLogSink sets where the client reports progress and failures.
func WithLogSink(s logsink.Sink) Option {
	return func(o *options) { o.sink = s }
}

// WithTransactionIDs sets the transaction id generator. Defaults to UUIDv7.
func WithTransactionIDs(g ident.Generator) Option {
	return func(o *options) { o.ids = g }
}

// WithClock sets the clock stamping commit sequence numbers.
func WithClock(c *ident.Clock) Option {
	return func(o *options) { o.clock = c }
}
