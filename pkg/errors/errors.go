package errors

import (
	stdErrors "errors"
	"net/http"
	"strings"
)

// Code classifies failures so the HTTP layer can map them without inspecting messages.
type Code string

const (
	CodeValidation      Code = "VALIDATION_ERROR"
	CodeUnauthorized    Code = "UNAUTHORIZED"
	CodeNotFound        Code = "NOT_FOUND"
	CodeConflict        Code = "CONFLICT"
	CodeStateConflict   Code = "STATE_CONFLICT"
	CodeIdempotency     Code = "IDEMPOTENCY_KEY_REUSED"
	CodePaymentDeclined Code = "PAYMENT_DECLINED"
	CodeInternal        Code = "INTERNAL_ERROR"
	CodeDependency      Code = "DEPENDENCY_ERROR"
)

// policy says how a code is rendered to API clients. Callers' messages are
// shown only for codes describing the client's own mistake.
type policy struct {
	status      int
	public      string
	showMessage bool
	showDetails bool
}

var policies = map[Code]policy{
	CodeValidation:    {http.StatusBadRequest, "validation failed", true, true},
	CodeUnauthorized:  {http.StatusUnauthorized, "cart session invalid", true, false},
	CodeNotFound:      {http.StatusNotFound, "resource not found", true, false},
	CodeConflict:      {http.StatusConflict, "conflict detected", true, false},
	CodeStateConflict: {http.StatusUnprocessableEntity, "state transition disallowed", true, true},
	CodeIdempotency:   {http.StatusConflict, "idempotency key reused", true, true},
	// A decline is final for the attempt; the shopper starts a new payment.
	CodePaymentDeclined: {http.StatusPaymentRequired, "payment was declined", true, true},
	CodeInternal:        {http.StatusInternalServerError, "internal server error", false, false},
	CodeDependency:      {http.StatusServiceUnavailable, "dependency unavailable", false, true},
}

func (c Code) policy() policy {
	if p, ok := policies[c]; ok {
		return p
	}
	return policies[CodeInternal]
}

// HTTPStatus is the response status for c; unknown codes map to 500.
func (c Code) HTTPStatus() int { return c.policy().status }

// PublicMessage is the generic client-facing text for c.
func (c Code) PublicMessage() string { return c.policy().public }

func (c Code) ShowsMessage() bool { return c.policy().showMessage }

func (c Code) ShowsDetails() bool { return c.policy().showDetails }

// Error is a coded failure with an optional cause and client-visible details.
type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

// Wrap attaches code and message to err. A nil err behaves like New.
func Wrap(code Code, err error, message string) *Error {
	return &Error{code: code, message: message, cause: err}
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
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

// WithDetails sets details in place and returns e for chaining.
func (e *Error) WithDetails(details any) *Error {
	if e != nil {
		e.details = details
	}
	return e
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(string(e.code))
	b.WriteString(": ")
	b.WriteString(e.message)
	if e.cause != nil {
		b.WriteString(": ")
		b.WriteString(e.cause.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// As returns the outermost *Error in err's chain, or nil.
func As(err error) *Error {
	var typed *Error
	if stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

// IsCode reports whether the outermost *Error in err's chain carries code.
func IsCode(err error, code Code) bool {
	typed := As(err)
	return typed != nil && typed.code == code
}
