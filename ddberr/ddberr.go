// Package ddberr defines the failure taxonomy shared by every ddblite
// component. Callers distinguish failure modes with errors.Is against the
// sentinels below rather than switching on message text.
package ddberr

import (
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Sentinels corresponding to the error codes in the managed store's
// failure taxonomy. Wrap one of these with fmt.Errorf("...: %w", sentinel)
// to attach detail while keeping errors.Is matching intact.
var (
	ErrResourceNotFound = errors.New("ResourceNotFoundException")
	ErrResourceInUse    = errors.New("ResourceInUseException")
	ErrValidation       = errors.New("ValidationException")
	ErrConditionFailed  = errors.New("ConditionalCheckFailedException")
	ErrTransactionCancel = errors.New("TransactionCanceledException")
	ErrInternal         = errors.New("InternalServerError")
	ErrDisposed         = errors.New("store has been disposed")
	ErrCancelled        = errors.New("operation cancelled")
)

// NotFound wraps ErrResourceNotFound with a message.
func NotFound(format string, args ...any) error {
	return wrap(ErrResourceNotFound, format, args...)
}

// InUse wraps ErrResourceInUse with a message.
func InUse(format string, args ...any) error {
	return wrap(ErrResourceInUse, format, args...)
}

// Validation wraps ErrValidation with a message.
func Validation(format string, args ...any) error {
	return wrap(ErrValidation, format, args...)
}

// Internal wraps ErrInternal with a message.
func Internal(format string, args ...any) error {
	return wrap(ErrInternal, format, args...)
}

func wrap(sentinel error, format string, args ...any) error {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	return &taggedError{sentinel: sentinel, msg: msg}
}

type taggedError struct {
	sentinel error
	msg      string
}

func (e *taggedError) Error() string { return e.msg }
func (e *taggedError) Unwrap() error { return e.sentinel }

// ConditionFailedError is a ConditionalCheckFailedException error, optionally
// carrying the current item for ReturnValuesOnConditionCheckFailure=ALL_OLD.
// NewConditionFailed builds one without an item.
type ConditionFailedError struct {
	Msg  string
	Item map[string]types.AttributeValue // set when ReturnValuesOnConditionCheckFailure=ALL_OLD
}

func (e *ConditionFailedError) Error() string { return e.Msg }
func (e *ConditionFailedError) Unwrap() error { return ErrConditionFailed }

func NewConditionFailed(msg string) error {
	return &ConditionFailedError{Msg: msg}
}

// CancellationReason is one entry in a TransactionCanceledException.
type CancellationReason struct {
	Code string // "None" or "ConditionalCheckFailed"
	Item map[string]types.AttributeValue
}

// TransactionCanceledError carries per-action cancellation reasons, one per
// item in the original TransactWriteItems/TransactGetItems request.
type TransactionCanceledError struct {
	Msg     string
	Reasons []CancellationReason
}

func (e *TransactionCanceledError) Error() string { return e.Msg }
func (e *TransactionCanceledError) Unwrap() error { return ErrTransactionCancel }

func NewTransactionCanceled(reasons []CancellationReason) error {
	return &TransactionCanceledError{Msg: "Transaction cancelled, please refer cancellation reasons for specific reasons", Reasons: reasons}
}
