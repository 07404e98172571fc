package harness

import (
	"github.com/roach88/scenesync/internal/canon"
	"github.com/roach88/scenesync/internal/model"
)

// Trace operations.
const (
	OpCommit   = "commit"
	OpProgress = "progress"
	OpClose    = "close"
)

// TraceEvent records what happened at one scenario step.
type TraceEvent struct {
	Step        int    `json:"step"`
	Op          string `json:"op"`
	Transaction string `json:"transaction,omitempty"`
	Seq         int64  `json:"seq,omitempty"`
	Applied     int    `json:"applied,omitempty"`
	Duplicate   bool   `json:"duplicate,omitempty"`
	Percent     *int   `json:"percent,omitempty"`
	Error       string `json:"error,omitempty"`
}

// EntityState is one stored entity. Payload and hash are kept out of golden
// snapshots; assertions read Data directly.
type EntityState struct {
	ID          model.Identifier `json:"id"`
	Kind        model.Kind       `json:"kind"`
	Parent      model.Identifier `json:"parent,omitempty"`
	Seq         int64            `json:"seq"`
	Position    int              `json:"position"`
	Transaction string           `json:"transaction"`

	Data canon.Object `json:"-"`
	Hash string       `json:"-"`
}

// TransactionState is one applied transaction.
type TransactionState struct {
	ID      string `json:"id"`
	Seq     int64  `json:"seq"`
	Records int    `json:"records"`
}

// State is the server-side view of the scenario session after the last
// step.
type State struct {
	SessionID    string             `json:"session_id"`
	Closed       bool               `json:"closed"`
	Progress     []int              `json:"progress"`
	Transactions []TransactionState `json:"transactions"`
	Entities     []EntityState      `json:"entities"`
}

// Entity returns the entity with id, or false.
func (s *State) Entity(id model.Identifier) (EntityState, bool) {
	for _, e := range s.Entities {
		if e.ID == id {
			return e, true
		}
	}
	return EntityState{}, false
}

// Children returns the identifiers of the objects whose parent is id, in
// store order.
func (s *State) Children(id model.Identifier) []model.Identifier {
	out := []model.Identifier{}
	for _, e := range s.Entities {
		if e.Parent == id {
			out = append(out, e.ID)
		}
	}
	return out
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every step behaved as expected and every assertion
	// held.
	Pass bool `json:"pass"`

	Trace  []TraceEvent `json:"trace"`
	Errors []string     `json:"errors,omitempty"`
	State  *State       `json:"state,omitempty"`
}

// NewResult creates a passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError records a failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
