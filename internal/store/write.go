package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/scenesync/internal/model"
)

// CreateSession inserts a session. Uses ON CONFLICT(id) DO NOTHING, so
// re-creating an existing session id is silently ignored.
func (s *Store) CreateSession(ctx context.Context, sess Session) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions
		(id, project_id, project_name, server, source_id, source_name, publisher, publisher_version,
		 user_name, length_unit, axis_inversion, rules, opened_seq)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		sess.ID,
		sess.ProjectID,
		sess.ProjectName,
		sess.Server,
		sess.SourceID,
		sess.SourceName,
		sess.Publisher,
		sess.PublisherVersion,
		sess.User,
		sess.LengthUnit,
		sess.AxisInversion,
		sess.Rules,
		sess.OpenedSeq,
	)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// CloseSession stamps the session closed at seq. Closing twice keeps the
// first stamp. Returns ErrNotFound for an unknown session.
func (s *Store) CloseSession(ctx context.Context, id string, seq int64) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE sessions SET closed_seq = COALESCE(closed_seq, ?) WHERE id = ?
	`, seq, id)
	if err != nil {
		return fmt.Errorf("close session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("close session: rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("close session %q: %w", id, ErrNotFound)
	}
	return nil
}

// WriteProgress appends a progress value reported by an open session.
// Returns ErrNotFound for an unknown session and ErrSessionClosed once the
// session has closed.
func (s *Store) WriteProgress(ctx context.Context, sessionID string, percent int) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO progress (session_id, percent)
		SELECT id, ? FROM sessions WHERE id = ? AND closed_seq IS NULL
	`, percent, sessionID)
	if err != nil {
		return fmt.Errorf("write progress: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("write progress: rows affected: %w", err)
	}
	if n == 1 {
		return nil
	}
	if _, err := s.ReadSession(ctx, sessionID); err != nil {
		return fmt.Errorf("write progress: %w", err)
	}
	return fmt.Errorf("write progress %q: %w", sessionID, ErrSessionClosed)
}

// ApplyCommit applies one batch atomically. See the package documentation
// for the commit semantics.
//
// A *CommitError is returned when the batch is rejected; any other error is
// a storage failure. In both cases nothing from the batch is stored.
func (s *Store) ApplyCommit(ctx context.Context, c Commit) (CommitOutcome, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return CommitOutcome{}, fmt.Errorf("apply commit: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	var (
		existingSeq   int64
		existingCount int
	)
	err = tx.QueryRowContext(ctx, `
		SELECT seq, record_count FROM transactions WHERE id = ?
	`, c.TransactionID).Scan(&existingSeq, &existingCount)
	switch {
	case err == nil:
		return CommitOutcome{Seq: existingSeq, Applied: existingCount, Duplicate: true}, nil
	case !errors.Is(err, sql.ErrNoRows):
		return CommitOutcome{}, fmt.Errorf("apply commit: lookup transaction: %w", err)
	}

	scope, err := sessionScope(ctx, tx, c.SessionID)
	if err != nil {
		return CommitOutcome{}, err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO transactions (id, session_id, client_seq, seq, record_count)
		VALUES (?, ?, ?, ?, 0)
	`, c.TransactionID, c.SessionID, c.ClientSeq, c.Seq)
	if err != nil {
		return CommitOutcome{}, fmt.Errorf("apply commit: insert transaction: %w", err)
	}

	var (
		refs     []model.Reference
		position int
	)
	for _, r := range c.Records {
		entity, err := model.Decode(r)
		if err != nil {
			return CommitOutcome{}, &CommitError{
				Code:    ErrCodeInvalidRecord,
				Entity:  r.ID,
				Message: "record does not decode to a valid entity",
				Err:     err,
			}
		}
		refs = append(refs, model.References(entity)...)

		flat, err := model.Flatten(r)
		if err != nil {
			return CommitOutcome{}, &CommitError{Code: ErrCodeInvalidRecord, Entity: r.ID, Message: err.Error(), Err: err}
		}
		for _, f := range flat {
			if err := upsertEntity(ctx, tx, scope, c, f, position); err != nil {
				return CommitOutcome{}, err
			}
			position++
		}
	}

	for _, ref := range refs {
		if err := resolveReference(ctx, tx, scope, ref); err != nil {
			return CommitOutcome{}, err
		}
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE transactions SET record_count = ? WHERE id = ?
	`, position, c.TransactionID); err != nil {
		return CommitOutcome{}, fmt.Errorf("apply commit: update transaction: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return CommitOutcome{}, fmt.Errorf("apply commit: commit: %w", err)
	}

	return CommitOutcome{Seq: c.Seq, Applied: position}, nil
}

func sessionScope(ctx context.Context, tx *sql.Tx, sessionID string) (Scope, error) {
	var (
		scope  Scope
		closed sql.NullInt64
	)
	err := tx.QueryRowContext(ctx, `
		SELECT project_id, source_id, closed_seq FROM sessions WHERE id = ?
	`, sessionID).Scan(&scope.ProjectID, &scope.SourceID, &closed)
	if errors.Is(err, sql.ErrNoRows) {
		return Scope{}, &CommitError{Code: ErrCodeUnknownSession, Message: fmt.Sprintf("session %q does not exist", sessionID)}
	}
	if err != nil {
		return Scope{}, fmt.Errorf("apply commit: lookup session: %w", err)
	}
	if closed.Valid {
		return Scope{}, &CommitError{Code: ErrCodeUnknownSession, Message: fmt.Sprintf("session %q is closed", sessionID)}
	}
	return scope, nil
}

func upsertEntity(ctx context.Context, tx *sql.Tx, scope Scope, c Commit, f model.FlatRecord, position int) error {
	kind, found, err := lookupKind(ctx, tx, scope, f.ID)
	if err != nil {
		return err
	}
	if found && kind != f.Kind {
		return &CommitError{
			Code:    ErrCodeKindConflict,
			Entity:  f.ID,
			Message: fmt.Sprintf("identifier already names a %s, cannot store a %s", kind, f.Kind),
		}
	}

	data, err := marshalData(f.Data)
	if err != nil {
		return &CommitError{Code: ErrCodeInvalidRecord, Entity: f.ID, Message: err.Error(), Err: err}
	}
	hash, err := f.Hash()
	if err != nil {
		return &CommitError{Code: ErrCodeInvalidRecord, Entity: f.ID, Message: err.Error(), Err: err}
	}

	// A re-sent object carries its complete child list, so children it no
	// longer lists are detached. Its listed children follow it in the
	// flattened batch and set their parent again.
	if f.Kind == model.KindObject {
		if _, err := tx.ExecContext(ctx, `
			UPDATE entities SET parent_id = NULL
			WHERE project_id = ? AND source_id = ? AND parent_id = ?
		`, scope.ProjectID, scope.SourceID, string(f.ID)); err != nil {
			return fmt.Errorf("apply commit: detach children of %q: %w", f.ID, err)
		}
	}

	var parent sql.NullString
	if f.Parent != "" {
		parent = sql.NullString{String: string(f.Parent), Valid: true}
	}

	// A root record keeps whatever parent the entity already had.
	_, err = tx.ExecContext(ctx, `
		INSERT INTO entities
		(project_id, source_id, id, kind, parent_id, data, hash, seq, position, transaction_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(project_id, source_id, id) DO UPDATE SET
			parent_id = COALESCE(excluded.parent_id, entities.parent_id),
			data = excluded.data,
			hash = excluded.hash,
			seq = excluded.seq,
			position = excluded.position,
			transaction_id = excluded.transaction_id
	`,
		scope.ProjectID,
		scope.SourceID,
		string(f.ID),
		string(f.Kind),
		parent,
		data,
		hash,
		c.Seq,
		position,
		c.TransactionID,
	)
	if err != nil {
		return fmt.Errorf("apply commit: upsert %q: %w", f.ID, err)
	}
	return nil
}

func resolveReference(ctx context.Context, tx *sql.Tx, scope Scope, ref model.Reference) error {
	kind, found, err := lookupKind(ctx, tx, scope, ref.To)
	if err != nil {
		return err
	}
	if !found {
		return &CommitError{
			Code:    ErrCodeUnresolvedReference,
			Entity:  ref.From,
			Message: fmt.Sprintf("references %s %q which has not been sent", ref.Kind, ref.To),
		}
	}
	if kind != ref.Kind {
		return &CommitError{
			Code:    ErrCodeUnresolvedReference,
			Entity:  ref.From,
			Message: fmt.Sprintf("references %q as a %s but it is a %s", ref.To, ref.Kind, kind),
		}
	}
	return nil
}

func lookupKind(ctx context.Context, tx *sql.Tx, scope Scope, id model.Identifier) (model.Kind, bool, error) {
	var kind string
	err := tx.QueryRowContext(ctx, `
		SELECT kind FROM entities WHERE project_id = ? AND source_id = ? AND id = ?
	`, scope.ProjectID, scope.SourceID, string(id)).Scan(&kind)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("apply commit: lookup %q: %w", id, err)
	}
	return model.Kind(kind), true, nil
}
