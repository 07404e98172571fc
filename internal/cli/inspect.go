package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/scenesync/internal/model"
	"github.com/roach88/scenesync/internal/store"
)

// InspectOptions holds flags for the inspect command.
type InspectOptions struct {
	*RootOptions
	Database string
	Project  string
	Source   string
}

// InspectResult lists the sessions and entity scopes of a database.
type InspectResult struct {
	Sessions []SessionSummary `json:"sessions"`
	Scopes   []ScopeSummary   `json:"scopes"`
}

// SessionSummary describes one publisher session.
type SessionSummary struct {
	ID           string `json:"id"`
	ProjectID    string `json:"project_id"`
	SourceID     string `json:"source_id"`
	SourceName   string `json:"source_name"`
	Publisher    string `json:"publisher"`
	User         string `json:"user"`
	OpenedSeq    int64  `json:"opened_seq"`
	ClosedSeq    int64  `json:"closed_seq,omitempty"`
	Transactions int    `json:"transactions"`
	Progress     []int  `json:"progress"`
}

// ScopeSummary lists the entities stored for one project and source.
type ScopeSummary struct {
	ProjectID string          `json:"project_id"`
	SourceID  string          `json:"source_id"`
	Entities  []EntitySummary `json:"entities"`
}

// EntitySummary is one stored entity without its payload.
type EntitySummary struct {
	ID          model.Identifier `json:"id"`
	Kind        model.Kind       `json:"kind"`
	Parent      model.Identifier `json:"parent,omitempty"`
	Seq         int64            `json:"seq"`
	Transaction string           `json:"transaction"`
	Hash        string           `json:"hash"`
}

func (r InspectResult) String() string {
	if len(r.Sessions) == 0 {
		return "No sessions."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Sessions (%d):\n", len(r.Sessions))
	for _, s := range r.Sessions {
		state := "open"
		if s.ClosedSeq != 0 {
			state = fmt.Sprintf("closed at seq %d", s.ClosedSeq)
		}
		fmt.Fprintf(&b, "  %s  %s/%s  %s by %s, %d transactions, %s\n",
			s.ID, s.ProjectID, s.SourceID, s.Publisher, s.User, s.Transactions, state)
	}
	for _, scope := range r.Scopes {
		fmt.Fprintf(&b, "\n%s/%s (%d entities):\n", scope.ProjectID, scope.SourceID, len(scope.Entities))
		for _, e := range scope.Entities {
			line := fmt.Sprintf("  [%d] %s %q", e.Seq, e.Kind, e.ID)
			if e.Parent != "" {
				line += fmt.Sprintf(" parent=%q", e.Parent)
			}
			b.WriteString(line + "\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// NewInspectCommand creates the inspect command.
func NewInspectCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InspectOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Show sessions and entities stored by a sync server",
		Long: `Read a sync server database and list its publisher sessions and the
entities stored for each project and source.

Example:
  scenesync inspect --db ./scenesync.db
  scenesync inspect --db ./scenesync.db --project tower-1 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	cmd.Flags().StringVar(&opts.Project, "project", "", "only show this target project")
	cmd.Flags().StringVar(&opts.Source, "source", "", "only show this source project")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runInspect(opts *InspectOptions, cmd *cobra.Command) error {
	out := opts.formatter(cmd)
	ctx := cmd.Context()

	st, err := store.Open(opts.Database)
	if err != nil {
		return out.Fail(ExitCommandError, CodeStoreFailed, "failed to open database", err)
	}
	defer st.Close()

	sessions, err := st.ListSessions(ctx, opts.Project)
	if err != nil {
		return out.Fail(ExitFailure, CodeStoreFailed, "failed to list sessions", err)
	}

	result := InspectResult{Sessions: []SessionSummary{}, Scopes: []ScopeSummary{}}
	seen := make(map[store.Scope]bool)
	for _, sess := range sessions {
		if opts.Source != "" && sess.SourceID != opts.Source {
			continue
		}
		txs, err := st.ReadTransactions(ctx, sess.ID)
		if err != nil {
			return out.Fail(ExitFailure, CodeStoreFailed, "failed to read transactions", err)
		}
		progress, err := st.ReadProgress(ctx, sess.ID)
		if err != nil {
			return out.Fail(ExitFailure, CodeStoreFailed, "failed to read progress", err)
		}
		result.Sessions = append(result.Sessions, SessionSummary{
			ID:           sess.ID,
			ProjectID:    sess.ProjectID,
			SourceID:     sess.SourceID,
			SourceName:   sess.SourceName,
			Publisher:    sess.Publisher + " " + sess.PublisherVersion,
			User:         sess.User,
			OpenedSeq:    sess.OpenedSeq,
			ClosedSeq:    sess.ClosedSeq,
			Transactions: len(txs),
			Progress:     progress,
		})

		scope := sess.Scope()
		if seen[scope] {
			continue
		}
		seen[scope] = true
		entities, err := st.ReadEntities(ctx, scope)
		if err != nil {
			return out.Fail(ExitFailure, CodeStoreFailed, "failed to read entities", err)
		}
		summary := ScopeSummary{ProjectID: scope.ProjectID, SourceID: scope.SourceID, Entities: []EntitySummary{}}
		for _, e := range entities {
			summary.Entities = append(summary.Entities, EntitySummary{
				ID:          e.ID,
				Kind:        e.Kind,
				Parent:      e.ParentID,
				Seq:         e.Seq,
				Transaction: e.TransactionID,
				Hash:        e.Hash,
			})
		}
		result.Scopes = append(result.Scopes, summary)
	}

	out.VerboseLog("read %d sessions from %s", len(result.Sessions), opts.Database)
	return out.Success(result)
}
