package errors

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Kind classifies an error by how callers should react to it.
type Kind string

const (
	// KindNotFound indicates a referenced account, transaction or client
	// does not exist. Never retried.
	KindNotFound Kind = "not_found"
	// KindValidation indicates a malformed payload or field value.
	// Never retried.
	KindValidation Kind = "validation"
	// KindConflict indicates the per-account lock could not be acquired in
	// time. Safe to retry: nothing was committed.
	KindConflict Kind = "conflict"
	// KindPersistence indicates an underlying store failure. Safe to retry:
	// the unit of work rolled back in full.
	KindPersistence Kind = "persistence"
	// KindInternal covers unexpected failures.
	KindInternal Kind = "internal"
)

// Code identifies a specific failure within a Kind.
type Code string

const (
	// Not-found codes
	CodeAccountNotFound     Code = "account_not_found"
	CodeTransactionNotFound Code = "transaction_not_found"
	CodeClientNotFound      Code = "client_not_found"

	// Validation codes
	CodeInvalidPayload Code = "invalid_payload"
	CodeInvalidField   Code = "invalid_field"
	CodeMissingField   Code = "missing_field"
	CodeInvalidAmount  Code = "invalid_amount"
	CodeDuplicateValue Code = "duplicate_value"

	// Conflict codes
	CodeLockTimeout Code = "lock_timeout"

	// Persistence codes
	CodeTxBegin    Code = "tx_begin_failed"
	CodeTxCommit   Code = "tx_commit_failed"
	CodeQueryError Code = "query_failed"
	CodeWriteError Code = "write_failed"

	// Internal codes
	CodeUnexpected Code = "unexpected_error"
)

// Error is the classified error type used throughout the service. It
// carries enough context (account id, offending row id) for a caller to
// decide between retry and surfacing to the user.
type Error struct {
	Kind       Kind              `json:"kind"`
	Code       Code              `json:"code"`
	Message    string            `json:"message"`
	Suggestion string            `json:"suggestion,omitempty"`
	Context    Context           `json:"context,omitempty"`
	Cause      error             `json:"-"`
	StackTrace errors.StackTrace `json:"-"`
}

// Context carries identifiers relevant to the failure.
type Context map[string]interface{}

func (e *Error) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("%s (suggestion: %s)", e.Message, e.Suggestion)
	}
	return e.Message
}

// Unwrap returns the underlying cause error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Retryable reports whether the operation can be safely retried. Conflict
// and persistence failures roll back atomically, so a partial state can
// never be observed; not-found and validation failures are caller mistakes
// and must not be retried.
func (e *Error) Retryable() bool {
	return e.Kind == KindConflict || e.Kind == KindPersistence
}

// GetExitCode maps the error kind to a CLI exit code.
func (e *Error) GetExitCode() int {
	switch e.Kind {
	case KindNotFound:
		return 2
	case KindValidation:
		return 3
	case KindConflict:
		return 4
	case KindPersistence:
		return 5
	default:
		return 1
	}
}

// WithContext attaches a key/value pair to the error.
func (e *Error) WithContext(key string, value interface{}) *Error {
	if e.Context == nil {
		e.Context = make(Context)
	}
	e.Context[key] = value
	return e
}

// WithSuggestion attaches a hint for resolving the error.
func (e *Error) WithSuggestion(suggestion string) *Error {
	e.Suggestion = suggestion
	return e
}

// New creates a classified error.
func New(kind Kind, code Code, message string) *Error {
	return &Error{
		Kind:       kind,
		Code:       code,
		Message:    message,
		StackTrace: errors.New("").(stackTracer).StackTrace(),
	}
}

// Wrap attaches classification to an existing error. Returns nil when err
// is nil.
func Wrap(err error, kind Kind, code Code, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Kind:       kind,
		Code:       code,
		Message:    message,
		Cause:      err,
		StackTrace: errors.WithStack(err).(stackTracer).StackTrace(),
	}
}

type stackTracer interface {
	StackTrace() errors.StackTrace
}

// Constructors for the common cases.

// AccountNotFound reports a missing account statement.
func AccountNotFound(accountID uint) *Error {
	return New(KindNotFound, CodeAccountNotFound,
		fmt.Sprintf("account statement %d not found", accountID)).
		WithContext("account_id", accountID)
}

// TransactionNotFound reports a missing ledger row.
func TransactionNotFound(transactionID uint) *Error {
	return New(KindNotFound, CodeTransactionNotFound,
		fmt.Sprintf("transaction %d not found", transactionID)).
		WithContext("transaction_id", transactionID)
}

// ClientNotFound reports a missing client.
func ClientNotFound(ref string) *Error {
	return New(KindNotFound, CodeClientNotFound,
		fmt.Sprintf("client %s not found", ref)).
		WithContext("client_ref", ref)
}

// ValidationError reports a malformed field or payload.
func ValidationError(code Code, field string, value interface{}) *Error {
	var message, suggestion string
	switch code {
	case CodeInvalidPayload:
		message = fmt.Sprintf("invalid payload: %s", field)
		suggestion = "check the update structure: accountInfo must be an object and transactions a list"
	case CodeMissingField:
		message = fmt.Sprintf("required field '%s' is missing or empty", field)
		suggestion = "provide a value for this required field"
	case CodeInvalidAmount:
		message = fmt.Sprintf("invalid amount in field '%s': %v", field, value)
		suggestion = "amounts must be valid decimal numbers (e.g. '12.34')"
	case CodeDuplicateValue:
		message = fmt.Sprintf("duplicate value for '%s': %v", field, value)
		suggestion = "use a unique value"
	default:
		message = fmt.Sprintf("invalid value for field '%s': %v", field, value)
		suggestion = "check the field value and format"
	}
	return New(KindValidation, code, message).
		WithSuggestion(suggestion).
		WithContext("field", field).
		WithContext("value", value)
}

// LockTimeout reports that the per-account lock was not acquired within
// the configured wait.
func LockTimeout(accountID uint, err error) *Error {
	message := fmt.Sprintf("timed out waiting for lock on account %d", accountID)
	result := Wrap(err, KindConflict, CodeLockTimeout, message)
	if result == nil {
		result = New(KindConflict, CodeLockTimeout, message)
	}
	return result.
		WithSuggestion("another update is in progress; retry shortly").
		WithContext("account_id", accountID)
}

// PersistenceError reports an underlying store failure during op.
func PersistenceError(code Code, op string, err error) *Error {
	return Wrap(err, KindPersistence, code,
		fmt.Sprintf("store failure during %s", op)).
		WithSuggestion("the unit of work rolled back; the operation is safe to retry").
		WithContext("operation", op)
}

// InternalError reports an unexpected failure during op.
func InternalError(op string, err error) *Error {
	result := Wrap(err, KindInternal, CodeUnexpected,
		fmt.Sprintf("unexpected error during %s", op))
	if result == nil {
		result = New(KindInternal, CodeUnexpected,
			fmt.Sprintf("unexpected error during %s", op))
	}
	return result.WithContext("operation", op)
}

// RowErrors aggregates per-row validation failures from a batch update so
// the caller sees every offending row, not just the first.
type RowErrors struct {
	Errors []*Error `json:"errors"`
}

// Append records a row-level error.
func (re *RowErrors) Append(err *Error) {
	re.Errors = append(re.Errors, err)
}

// HasErrors reports whether any row failed validation.
func (re *RowErrors) HasErrors() bool {
	return len(re.Errors) > 0
}

// Unwrap exposes the individual row errors to errors.As traversal.
func (re *RowErrors) Unwrap() []error {
	errs := make([]error, 0, len(re.Errors))
	for _, e := range re.Errors {
		errs = append(errs, e)
	}
	return errs
}

func (re *RowErrors) Error() string {
	if len(re.Errors) == 0 {
		return "no errors"
	}
	if len(re.Errors) == 1 {
		return re.Errors[0].Error()
	}
	parts := make([]string, 0, len(re.Errors))
	for _, e := range re.Errors {
		parts = append(parts, e.Message)
	}
	return fmt.Sprintf("%d rows failed validation: %s", len(re.Errors), strings.Join(parts, "; "))
}

// Utility functions

// Is reports whether err carries the given kind anywhere in its chain.
func Is(err error, kind Kind) bool {
	e, ok := As(err)
	return ok && e.Kind == kind
}

// IsNotFound reports whether err is a not-found error.
func IsNotFound(err error) bool { return Is(err, KindNotFound) }

// IsValidation reports whether err is a validation error.
func IsValidation(err error) bool { return Is(err, KindValidation) }

// IsConflict reports whether err is a lock-conflict error.
func IsConflict(err error) bool { return Is(err, KindConflict) }

// IsRetryable reports whether err may be retried safely.
func IsRetryable(err error) bool {
	e, ok := As(err)
	return ok && e.Retryable()
}

// As extracts a classified *Error from an error chain.
func As(err error) (*Error, bool) {
	var classified *Error
	if errors.As(err, &classified) {
		return classified, true
	}
	return nil, false
}

// WrapIfNeeded classifies err unless it already is a classified error.
func WrapIfNeeded(err error, kind Kind, code Code, message string) *Error {
	if err == nil {
		return nil
	}
	if classified, ok := As(err); ok {
		return classified
	}
	return Wrap(err, kind, code, message)
}
