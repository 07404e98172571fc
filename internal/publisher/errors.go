package publisher

import (
	"errors"
	"fmt"
)

// ErrNoSettings is returned by Open when no settings were selected. Callers
// treat it as "do not publish", not as a failure.
var ErrNoSettings = errors.New("publisher: no settings selected")

// ErrorCode categorizes client errors.
type ErrorCode string

const (
	// ErrCodeConcurrentTransaction indicates a transaction is already
	// outstanding. Recoverable: retry once it resolves.
	ErrCodeConcurrentTransaction ErrorCode = "CONCURRENT_TRANSACTION"

	// ErrCodeTransactionClosed indicates Send or Commit on a transaction
	// that has left the Open state.
	ErrCodeTransactionClosed ErrorCode = "TRANSACTION_CLOSED"

	// ErrCodeClientClosed indicates an operation after CloseAndWait.
	ErrCodeClientClosed ErrorCode = "CLIENT_CLOSED"

	// ErrCodeTransport indicates a network or server failure.
	ErrCodeTransport ErrorCode = "TRANSPORT"

	// ErrCodeInvalidProgress indicates a progress value outside 0..100.
	ErrCodeInvalidProgress ErrorCode = "INVALID_PROGRESS"
)

// Error is a client error with a code and the affected transaction, if any.
type Error struct {
	Code          ErrorCode
	Message       string
	TransactionID string
	Err           error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.TransactionID != "" {
		msg += fmt.Sprintf(" (transaction=%s)", e.TransactionID)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error { return e.Err }

func hasCode(err error, code ErrorCode) bool {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Code == code
	}
	return false
}

// IsConcurrentTransaction reports whether err is a CONCURRENT_TRANSACTION error.
func IsConcurrentTransaction(err error) bool { return hasCode(err, ErrCodeConcurrentTransaction) }

// IsTransactionClosed reports whether err is a TRANSACTION_CLOSED error.
func IsTransactionClosed(err error) bool { return hasCode(err, ErrCodeTransactionClosed) }

// IsClientClosed reports whether err is a CLIENT_CLOSED error.
func IsClientClosed(err error) bool { return hasCode(err, ErrCodeClientClosed) }

// IsTransport reports whether err is a TRANSPORT error.
func IsTransport(err error) bool { return hasCode(err, ErrCodeTransport) }

func transportError(txID, message string, err error) *Error {
	return &Error{Code: ErrCodeTransport, Message: message, TransactionID: txID, Err: err}
}
