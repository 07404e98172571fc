package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"strings"
	"sync"

	"github.com/Masterminds/semver/v3"
	"go.lsp.dev/jsonrpc2"

	"github.com/roach88/scenesync/internal/protocol"
	"github.com/roach88/scenesync/internal/store"
)

// connHandler serves one connection. jsonrpc2 calls handle sequentially
// from the connection's read loop, so commits from one client are applied
// in the order they were sent.
type connHandler struct {
	srv *Server

	mu       sync.Mutex
	sessions map[string]bool // opened on this connection -> still open
}

func newConnHandler(srv *Server) *connHandler {
	return &connHandler{srv: srv, sessions: make(map[string]bool)}
}

func (h *connHandler) handle(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	switch req.Method() {
	case protocol.MethodOpen:
		var p protocol.OpenParams
		if err := decodeParams(req, &p); err != nil {
			return reply(ctx, nil, err)
		}
		res, err := h.open(ctx, p)
		return reply(ctx, res, err)

	case protocol.MethodCommit:
		var p protocol.CommitParams
		if err := decodeParams(req, &p); err != nil {
			return reply(ctx, nil, err)
		}
		res, err := h.commit(ctx, p)
		return reply(ctx, res, err)

	case protocol.MethodProgress:
		var p protocol.ProgressParams
		if err := decodeParams(req, &p); err != nil {
			return reply(ctx, nil, err)
		}
		return reply(ctx, nil, h.progress(ctx, p))

	case protocol.MethodClose:
		var p protocol.CloseParams
		if err := decodeParams(req, &p); err != nil {
			return reply(ctx, nil, err)
		}
		res, err := h.close(ctx, p)
		return reply(ctx, res, err)

	default:
		return jsonrpc2.MethodNotFoundHandler(ctx, reply, req)
	}
}

func decodeParams(req jsonrpc2.Request, v any) error {
	if err := json.Unmarshal(req.Params(), v); err != nil {
		return protocol.Errorf(jsonrpc2.InvalidParams, "%s: %v", req.Method(), err)
	}
	return nil
}

var serverProtocol = semver.MustParse(protocol.Version)

func (h *connHandler) open(ctx context.Context, p protocol.OpenParams) (*protocol.OpenResult, error) {
	v, err := semver.NewVersion(p.Protocol)
	if err != nil {
		return nil, protocol.Errorf(jsonrpc2.InvalidParams, "protocol version %q: %v", p.Protocol, err)
	}
	if v.Major() != serverProtocol.Major() {
		return nil, protocol.Errorf(protocol.CodeVersionMismatch,
			"protocol %s is not compatible with server protocol %s", v, serverProtocol)
	}
	if p.Source.ID == "" || p.Project.ID == "" {
		return nil, protocol.Errorf(jsonrpc2.InvalidParams, "source id and project id are required")
	}

	sess := store.Session{
		ID:               h.srv.Spec.SessionIDs.Generate(),
		ProjectID:        p.Project.ID,
		ProjectName:      p.Project.Name,
		Server:           p.Project.Server,
		SourceID:         p.Source.ID,
		SourceName:       p.Source.Name,
		Publisher:        p.Publisher.Name,
		PublisherVersion: p.Publisher.Version,
		User:             p.User,
		LengthUnit:       p.LengthUnit,
		AxisInversion:    p.AxisInversion,
		Rules:            p.Rules,
		OpenedSeq:        h.srv.clock.Next(),
	}
	if err := h.srv.Spec.Store.CreateSession(ctx, sess); err != nil {
		h.srv.Spec.Log.Error("create session failed", "error", err)
		return nil, protocol.Errorf(jsonrpc2.InternalError, "create session: %v", err)
	}

	h.mu.Lock()
	h.sessions[sess.ID] = true
	h.mu.Unlock()

	h.srv.Spec.Log.Info("session opened",
		"session", sess.ID,
		"project", sess.ProjectID,
		"source", sess.SourceID,
		"publisher", sess.Publisher,
		"user", sess.User,
	)
	return &protocol.OpenResult{SessionID: sess.ID}, nil
}

func (h *connHandler) commit(ctx context.Context, p protocol.CommitParams) (*protocol.CommitResult, error) {
	if p.TransactionID == "" {
		return nil, protocol.Errorf(jsonrpc2.InvalidParams, "transaction id is required")
	}

	out, err := h.srv.Spec.Store.ApplyCommit(ctx, store.Commit{
		TransactionID: p.TransactionID,
		SessionID:     p.SessionID,
		ClientSeq:     p.Seq,
		Seq:           h.srv.clock.Next(),
		Records:       p.Records,
	})
	if err != nil {
		h.srv.Spec.Log.Warn("transaction rejected",
			"session", p.SessionID,
			"transaction", p.TransactionID,
			"error", err,
		)
		return nil, toRPCError(err)
	}

	h.srv.Spec.Log.Info("transaction committed",
		"session", p.SessionID,
		"transaction", p.TransactionID,
		"seq", out.Seq,
		"records", out.Applied,
		"duplicate", out.Duplicate,
	)
	return &protocol.CommitResult{
		TransactionID: p.TransactionID,
		Seq:           out.Seq,
		Applied:       out.Applied,
		Duplicate:     out.Duplicate,
	}, nil
}

func (h *connHandler) progress(ctx context.Context, p protocol.ProgressParams) error {
	if p.Percent < 0 || p.Percent > 100 {
		return protocol.Errorf(jsonrpc2.InvalidParams, "progress %d outside [0,100]", p.Percent)
	}
	if err := h.srv.Spec.Store.WriteProgress(ctx, p.SessionID, p.Percent); err != nil {
		h.srv.Spec.Log.Warn("progress dropped", "session", p.SessionID, "error", err)
		return protocol.Errorf(protocol.CodeUnknownSession, "progress: %v", err)
	}
	h.srv.Spec.Log.Debug("progress", "session", p.SessionID, "percent", p.Percent)
	return nil
}

func (h *connHandler) close(ctx context.Context, p protocol.CloseParams) (*protocol.CloseResult, error) {
	if err := h.srv.Spec.Store.CloseSession(ctx, p.SessionID, h.srv.clock.Next()); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, protocol.Errorf(protocol.CodeUnknownSession, "session %q does not exist", p.SessionID)
		}
		return nil, protocol.Errorf(jsonrpc2.InternalError, "close session: %v", err)
	}

	h.mu.Lock()
	if _, ok := h.sessions[p.SessionID]; ok {
		h.sessions[p.SessionID] = false
	}
	h.mu.Unlock()

	txs, err := h.srv.Spec.Store.ReadTransactions(ctx, p.SessionID)
	if err != nil {
		return nil, protocol.Errorf(jsonrpc2.InternalError, "close session: %v", err)
	}
	h.srv.Spec.Log.Info("session closed", "session", p.SessionID, "transactions", len(txs))
	return &protocol.CloseResult{Transactions: len(txs)}, nil
}

// closeAbandoned closes sessions whose peer disconnected without closing.
func (h *connHandler) closeAbandoned(ctx context.Context) {
	h.mu.Lock()
	var open []string
	for id, stillOpen := range h.sessions {
		if stillOpen {
			open = append(open, id)
		}
	}
	h.sessions = make(map[string]bool)
	h.mu.Unlock()

	for _, id := range open {
		if err := h.srv.Spec.Store.CloseSession(ctx, id, h.srv.clock.Next()); err != nil {
			h.srv.Spec.Log.Error("close abandoned session failed", "session", id, "error", err)
			continue
		}
		h.srv.Spec.Log.Warn("session abandoned", "session", id)
	}
}

func toRPCError(err error) error {
	var ce *store.CommitError
	if !errors.As(err, &ce) {
		return protocol.Errorf(jsonrpc2.InternalError, "%v", err)
	}
	code := jsonrpc2.InternalError
	switch ce.Code {
	case store.ErrCodeUnresolvedReference:
		code = protocol.CodeUnresolvedReference
	case store.ErrCodeKindConflict:
		code = protocol.CodeKindConflict
	case store.ErrCodeUnknownSession:
		code = protocol.CodeUnknownSession
	case store.ErrCodeInvalidRecord:
		code = protocol.CodeInvalidRecord
	}
	return protocol.Errorf(code, "%s", ce.Error())
}

func isClosedErr(err error) bool {
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) || errors.Is(err, io.ErrClosedPipe) {
		return true
	}
	return strings.Contains(err.Error(), "use of closed network connection")
}
