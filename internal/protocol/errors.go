package protocol

import (
	"errors"
	"fmt"

	"go.lsp.dev/jsonrpc2"
)

// Server error codes, in the implementation-defined range.
const (
	CodeUnresolvedReference jsonrpc2.Code = -32010
	CodeKindConflict        jsonrpc2.Code = -32011
	CodeUnknownSession      jsonrpc2.Code = -32012
	CodeInvalidRecord       jsonrpc2.Code = -32013
	CodeVersionMismatch     jsonrpc2.Code = -32014
	CodeSessionClosed       jsonrpc2.Code = -32015
)

// Errorf builds a JSON-RPC error with a formatted message.
func Errorf(code jsonrpc2.Code, format string, args ...any) *jsonrpc2.Error {
	return jsonrpc2.NewError(code, fmt.Sprintf(format, args...))
}

// CodeOf returns the JSON-RPC code carried by err, and false if err is not a
// JSON-RPC error.
func CodeOf(err error) (jsonrpc2.Code, bool) {
	var rpcErr *jsonrpc2.Error
	if errors.As(err, &rpcErr) {
		return rpcErr.Code, true
	}
	return 0, false
}

// CodeName returns a stable name for code, used in logs and scenario files.
func CodeName(code jsonrpc2.Code) string {
	switch code {
	case CodeUnresolvedReference:
		return "UNRESOLVED_REFERENCE"
	case CodeKindConflict:
		return "KIND_CONFLICT"
	case CodeUnknownSession:
		return "UNKNOWN_SESSION"
	case CodeInvalidRecord:
		return "INVALID_RECORD"
	case CodeVersionMismatch:
		return "VERSION_MISMATCH"
	case CodeSessionClosed:
		return "SESSION_CLOSED"
	case jsonrpc2.InvalidParams:
		return "INVALID_PARAMS"
	case jsonrpc2.MethodNotFound:
		return "METHOD_NOT_FOUND"
	case jsonrpc2.InternalError:
		return "INTERNAL_ERROR"
	default:
		return fmt.Sprintf("CODE_%d", int32(code))
	}
}
