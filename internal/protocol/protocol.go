package protocol

import (
	"github.com/roach88/scenesync/internal/model"
)

// Version is sent in the session handshake. The server rejects sessions
// whose major version differs.
const Version = "1.0"

// Method names.
const (
	MethodOpen     = "session/open"
	MethodCommit   = "transaction/commit"
	MethodProgress = "session/progress" // notification
	MethodClose    = "session/close"
)

// Publisher identifies the producing application.
type Publisher struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Source identifies the exported host project.
type Source struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

// Project is the target project on the sync server.
type Project struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Server string `json:"server"`
}

// OpenParams starts a session.
type OpenParams struct {
	Protocol      string    `json:"protocol"`
	Publisher     Publisher `json:"publisher"`
	Source        Source    `json:"source"`
	Project       Project   `json:"project"`
	User          string    `json:"user"`
	LengthUnit    string    `json:"length_unit"`
	AxisInversion string    `json:"axis_inversion"`
	Rules         string    `json:"rules,omitempty"`
}

// OpenResult carries the server-assigned session id.
type OpenResult struct {
	SessionID string `json:"session_id"`
}

// CommitParams carries one transaction batch. Records are applied in order.
type CommitParams struct {
	SessionID     string         `json:"session_id"`
	TransactionID string         `json:"transaction_id"`
	Seq           int64          `json:"seq"`
	Records       []model.Record `json:"records"`
}

// CommitResult acknowledges a batch.
type CommitResult struct {
	TransactionID string `json:"transaction_id"`
	Seq           int64  `json:"seq"`
	Applied       int    `json:"applied"`
	Duplicate     bool   `json:"duplicate,omitempty"`
}

// ProgressParams reports export progress in percent.
type ProgressParams struct {
	SessionID string `json:"session_id"`
	Percent   int    `json:"percent"`
}

// CloseParams ends a session.
type CloseParams struct {
	SessionID string `json:"session_id"`
}

// CloseResult acknowledges session close.
type CloseResult struct {
	Transactions int `json:"transactions"`
}
