// Package errors defines the failure taxonomy shared by the domain services
// and the HTTP layer. Services return coded errors; the transport maps each
// code to a status and a public message so internal causes never reach
// clients.
package errors

import (
	stderrors "errors"
	"net/http"
)

// Code identifies one failure class. Codes are part of the API contract,
// clients branch on them, so renaming one is a breaking change.
type Code string

const (
	// Request shaping.
	CodeValidation      Code = "VALIDATION_ERROR"
	CodeInvalidQuantity Code = "INVALID_QUANTITY"

	// Authentication and authorization.
	CodeUnauthorized Code = "UNAUTHORIZED"
	CodeForbidden    Code = "FORBIDDEN"

	// Domain state.
	CodeNotFound              Code = "NOT_FOUND"
	CodeConflict              Code = "CONFLICT"
	CodeInsufficientInventory Code = "INSUFFICIENT_INVENTORY"
	CodeAlreadyReversed       Code = "ALREADY_REVERSED"
	CodeUndoWindowExpired     Code = "UNDO_WINDOW_EXPIRED"
	CodeIdempotency           Code = "IDEMPOTENCY_KEY_REUSED"

	// Throttling and infrastructure.
	CodeRateLimit        Code = "RATE_LIMIT_EXCEEDED"
	CodeTransientStorage Code = "TRANSIENT_STORAGE_FAILURE"
	CodeInternal         Code = "INTERNAL_ERROR"
	CodeDependency       Code = "DEPENDENCY_ERROR"
)

// Metadata drives how the HTTP layer renders a code. ShowDetails gates
// whether structured details attached to the error may be shown to clients.
type Metadata struct {
	Status        int
	Retryable     bool
	ClientMessage string
	ShowDetails   bool
}

// Entry order matches the Metadata fields:
// {Status, Retryable, ClientMessage, ShowDetails}.
var metadataByCode = map[Code]Metadata{
	CodeValidation:            {http.StatusBadRequest, false, "validation failed", true},
	CodeInvalidQuantity:       {http.StatusBadRequest, false, "quantity out of range", true},
	CodeUnauthorized:          {http.StatusUnauthorized, false, "authentication required", false},
	CodeForbidden:             {http.StatusForbidden, false, "access denied", false},
	CodeNotFound:              {http.StatusNotFound, false, "resource not found", false},
	CodeConflict:              {http.StatusConflict, false, "conflict detected", false},
	CodeInsufficientInventory: {http.StatusConflict, false, "insufficient inventory", true},
	CodeAlreadyReversed:       {http.StatusConflict, false, "drop already reversed", true},
	CodeUndoWindowExpired:     {http.StatusGone, false, "undo window expired", true},
	CodeIdempotency:           {http.StatusConflict, false, "idempotency key reused", true},
	CodeRateLimit:             {http.StatusTooManyRequests, false, "rate limit exceeded", false},
	CodeTransientStorage:      {http.StatusServiceUnavailable, true, "storage temporarily unavailable", false},
	CodeInternal:              {http.StatusInternalServerError, true, "internal server error", false},
	CodeDependency:            {http.StatusServiceUnavailable, true, "dependency unavailable", true},
}

// MetadataFor returns the rendering metadata for code, falling back to the
// internal-error entry for codes it does not know.
func MetadataFor(code Code) Metadata {
	meta, ok := metadataByCode[code]
	if !ok {
		return metadataByCode[CodeInternal]
	}
	return meta
}

// Error is a coded error with an optional wrapped cause and optional
// structured details for the client. All methods tolerate a nil receiver so
// call sites can chain off As without checking.
type Error struct {
	code    Code
	msg     string
	details any
	cause   error
}

// New builds a coded error with an internal message.
func New(code Code, message string) *Error {
	return &Error{code: code, msg: message}
}

// Wrap builds a coded error around a cause. A nil cause degrades to New.
func Wrap(code Code, err error, message string) *Error {
	e := New(code, message)
	e.cause = err
	return e
}

// WithDetails attaches client-visible details. Whether they are actually
// rendered depends on the code's ShowDetails flag.
func (e *Error) WithDetails(details any) *Error {
	if e == nil {
		return nil
	}
	e.details = details
	return e
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.msg
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return string(e.code) + ": " + e.msg
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// As extracts a coded error from anywhere in err's chain, or nil when the
// chain carries none.
func As(err error) *Error {
	var coded *Error
	if !stderrors.As(err, &coded) {
		return nil
	}
	return coded
}
