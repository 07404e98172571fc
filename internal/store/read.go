package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/scenesync/internal/model"
)

const sessionColumns = `id, project_id, project_name, server, source_id, source_name, publisher,
	publisher_version, user_name, length_unit, axis_inversion, rules, opened_seq, closed_seq`

// ReadSession retrieves a session by id. Returns ErrNotFound if missing.
func (s *Store) ReadSession(ctx context.Context, id string) (Session, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id)
	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, fmt.Errorf("session %q: %w", id, ErrNotFound)
	}
	return sess, err
}

// ListSessions returns all sessions for a project ordered by opened_seq.
// An empty projectID lists every session.
func (s *Store) ListSessions(ctx context.Context, projectID string) ([]Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+sessionColumns+`
		FROM sessions
		WHERE ? = '' OR project_id = ?
		ORDER BY opened_seq ASC, id COLLATE BINARY ASC
	`, projectID, projectID)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	sessions := []Session{}
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

// ReadEntities returns every entity in scope, ordered by the commit that
// last wrote it and its position within that commit.
//
// Returns an empty slice (not nil) if the scope holds no entities.
func (s *Store) ReadEntities(ctx context.Context, scope Scope) ([]Entity, error) {
	return s.queryEntities(ctx, `
		SELECT id, kind, parent_id, data, hash, seq, position, transaction_id
		FROM entities
		WHERE project_id = ? AND source_id = ?
		ORDER BY seq ASC, position ASC, id COLLATE BINARY ASC
	`, scope.ProjectID, scope.SourceID)
}

// ReadChildren returns the objects whose parent is parentID.
func (s *Store) ReadChildren(ctx context.Context, scope Scope, parentID model.Identifier) ([]Entity, error) {
	return s.queryEntities(ctx, `
		SELECT id, kind, parent_id, data, hash, seq, position, transaction_id
		FROM entities
		WHERE project_id = ? AND source_id = ? AND parent_id = ?
		ORDER BY seq ASC, position ASC, id COLLATE BINARY ASC
	`, scope.ProjectID, scope.SourceID, string(parentID))
}

// ReadEntity retrieves one entity. Returns ErrNotFound if missing.
func (s *Store) ReadEntity(ctx context.Context, scope Scope, id model.Identifier) (Entity, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, kind, parent_id, data, hash, seq, position, transaction_id
		FROM entities
		WHERE project_id = ? AND source_id = ? AND id = ?
	`, scope.ProjectID, scope.SourceID, string(id))
	e, err := scanEntity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entity{}, fmt.Errorf("entity %q: %w", id, ErrNotFound)
	}
	return e, err
}

// ReadTransactions returns the transactions applied for a session in
// commit order.
func (s *Store) ReadTransactions(ctx context.Context, sessionID string) ([]Transaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, client_seq, seq, record_count
		FROM transactions
		WHERE session_id = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	txs := []Transaction{}
	for rows.Next() {
		var t Transaction
		if err := rows.Scan(&t.ID, &t.SessionID, &t.ClientSeq, &t.Seq, &t.RecordCount); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		txs = append(txs, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return txs, nil
}

// ReadProgress returns the progress values a session reported, in order.
func (s *Store) ReadProgress(ctx context.Context, sessionID string) ([]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT percent FROM progress WHERE session_id = ? ORDER BY id ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query progress: %w", err)
	}
	defer rows.Close()

	values := []int{}
	for rows.Next() {
		var p int
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("scan progress: %w", err)
		}
		values = append(values, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate progress: %w", err)
	}
	return values, nil
}

func (s *Store) queryEntities(ctx context.Context, query string, args ...any) ([]Entity, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query entities: %w", err)
	}
	defer rows.Close()

	entities := []Entity{}
	for rows.Next() {
		e, err := scanEntity(rows)
		if err != nil {
			return nil, err
		}
		entities = append(entities, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entities: %w", err)
	}
	return entities, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (Session, error) {
	var (
		sess   Session
		closed sql.NullInt64
	)
	err := row.Scan(
		&sess.ID,
		&sess.ProjectID,
		&sess.ProjectName,
		&sess.Server,
		&sess.SourceID,
		&sess.SourceName,
		&sess.Publisher,
		&sess.PublisherVersion,
		&sess.User,
		&sess.LengthUnit,
		&sess.AxisInversion,
		&sess.Rules,
		&sess.OpenedSeq,
		&closed,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Session{}, err
		}
		return Session{}, fmt.Errorf("scan session: %w", err)
	}
	sess.ClosedSeq = closed.Int64
	return sess, nil
}

func scanEntity(row scanner) (Entity, error) {
	var (
		e        Entity
		id, kind string
		parent   sql.NullString
		data     string
	)
	err := row.Scan(&id, &kind, &parent, &data, &e.Hash, &e.Seq, &e.Position, &e.TransactionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entity{}, err
		}
		return Entity{}, fmt.Errorf("scan entity: %w", err)
	}
	e.ID = model.Identifier(id)
	e.Kind = model.Kind(kind)
	e.ParentID = model.Identifier(parent.String)
	e.Data, err = unmarshalData(data)
	if err != nil {
		return Entity{}, err
	}
	return e, nil
}
