package store

import (
	"github.com/roach88/scenesync/internal/canon"
	"github.com/roach88/scenesync/internal/model"
)

// Scope identifies one source project exported into one target project.
// Entity identifiers are unique within a scope.
type Scope struct {
	ProjectID string
	SourceID  string
}

// Session is a publisher client session.
type Session struct {
	ID               string
	ProjectID        string
	ProjectName      string
	Server           string
	SourceID         string
	SourceName       string
	Publisher        string
	PublisherVersion string
	User             string
	LengthUnit       string
	AxisInversion    string
	Rules            string
	OpenedSeq        int64
	ClosedSeq        int64 // 0 while open
}

// Scope returns the entity scope the session writes to.
func (s Session) Scope() Scope {
	return Scope{ProjectID: s.ProjectID, SourceID: s.SourceID}
}

// Closed reports whether the session has been closed.
func (s Session) Closed() bool {
	return s.ClosedSeq != 0
}

// Commit is one transaction batch as received from a client.
type Commit struct {
	TransactionID string
	SessionID     string
	ClientSeq     int64
	Seq           int64
	Records       []model.Record
}

// CommitOutcome reports how a batch was applied.
type CommitOutcome struct {
	Seq       int64
	Applied   int  // flattened records written
	Duplicate bool // transaction id was already applied
}

// Entity is the stored state of one entity.
type Entity struct {
	ID            model.Identifier
	Kind          model.Kind
	ParentID      model.Identifier
	Data          canon.Object
	Hash          string
	Seq           int64
	Position      int
	TransactionID string
}

// Record returns the entity as a wire record.
func (e Entity) Record() model.Record {
	return model.Record{Kind: e.Kind, ID: e.ID, Data: e.Data}
}

// Transaction is an applied commit.
type Transaction struct {
	ID          string
	SessionID   string
	ClientSeq   int64
	Seq         int64
	RecordCount int
}
