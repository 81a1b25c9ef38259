package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Error kinds. Match them with errors.Is.
var (
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrSignature     = errors.New("signature error")
	ErrGateway       = errors.New("gateway error")
	ErrTransport     = errors.New("transport error")
)

// Error carries a short user-facing message and, where it is safe to show,
// the downstream provider detail.
type Error struct {
	Kind    error
	Message string
	Detail  string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

func Validation(msg string) error {
	return &Error{Kind: ErrValidation, Message: msg}
}

func Configuration(msg string) error {
	return &Error{Kind: ErrConfiguration, Message: msg}
}

func Signature(msg string, err error) error {
	return &Error{Kind: ErrSignature, Message: msg, Err: err}
}

func Gateway(msg, detail string, err error) error {
	return &Error{Kind: ErrGateway, Message: msg, Detail: detail, Err: err}
}

func Transport(msg, detail string, err error) error {
	return &Error{Kind: ErrTransport, Message: msg, Detail: detail, Err: err}
}

// HTTPStatus maps an error to the status code the HTTP boundary answers with.
// Caller-side problems are 4xx, everything else is 500.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrValidation), errors.Is(err, ErrSignature):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the short message of an *Error, or a generic text for
// anything else so internal details do not leak.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal error"
}

// Detail returns the provider detail of an *Error, if any.
func Detail(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Detail
	}
	return ""
}
