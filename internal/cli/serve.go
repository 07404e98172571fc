package cli

import (
	"fmt"
	"log/slog"
	"net"

	"github.com/spf13/cobra"

	"github.com/roach88/scenesync/internal/ident"
	"github.com/roach88/scenesync/internal/server"
	"github.com/roach88/scenesync/internal/store"
)

// DefaultAddress is the address serve listens on.
const DefaultAddress = "127.0.0.1:7370"

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Database string
	Address  string

	// OnListen is called with the bound address once the listener is up
	// (for testing with port 0).
	OnListen func(net.Addr)
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a local sync server",
		Long: `Run a sync server backed by a SQLite database.

Publishers connect over TCP and speak JSON-RPC 2.0. Committed entities are
stored per project and source; use "scenesync inspect" to read them back.

Example:
  scenesync serve --db ./scenesync.db
  scenesync serve --db /tmp/test.db --addr 127.0.0.1:0 --verbose`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	cmd.Flags().StringVar(&opts.Address, "addr", DefaultAddress, "listen address (host:port)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	out := opts.formatter(cmd)
	logger := configureLogging(opts.RootOptions, cmd.ErrOrStderr())

	slog.Info("opening database", "path", opts.Database)
	st, err := store.Open(opts.Database)
	if err != nil {
		return out.Fail(ExitCommandError, CodeStoreFailed, "failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()

	ctx, cancel := signalContext(cmd)
	defer cancel()

	srv, err := server.New(ctx, &server.Spec{
		Store:      st,
		Log:        logger,
		SessionIDs: ident.UUIDv7Generator{},
	})
	if err != nil {
		return out.Fail(ExitCommandError, CodeStoreFailed, "failed to start server", err)
	}

	listener, err := server.NewTCPListener(opts.Address, srv)
	if err != nil {
		return out.Fail(ExitCommandError, CodeInvalidArgs, "failed to listen", err)
	}

	fmt.Fprintf(out.GetErrWriter(), "Sync server listening on %s\n", listener.Addr())
	fmt.Fprintln(out.GetErrWriter(), "Press Ctrl-C to stop.")
	if opts.OnListen != nil {
		opts.OnListen(listener.Addr())
	}

	if err := listener.Serve(ctx); err != nil {
		return out.Fail(ExitFailure, CodeStoreFailed, "server error", err)
	}

	slog.Info("server stopped gracefully", "seq", srv.Seq())
	return out.Success(ServeResult{Address: listener.Addr().String(), Seq: srv.Seq()})
}

// ServeResult summarises a server run.
type ServeResult struct {
	Address string `json:"address"`
	Seq     int64  `json:"seq"`
}

func (r ServeResult) String() string {
	return fmt.Sprintf("Sync server on %s stopped at seq %d.", r.Address, r.Seq)
}
