package service

import (
	"errors"
	"fmt"
)

// Error kinds returned to entry points. Match with errors.Is.
var (
	ErrValidation               = errors.New("validation failed")
	ErrQuotaExceeded            = errors.New("daily quota exceeded")
	ErrNotLinked                = errors.New("chat is not linked")
	ErrUpstream                 = errors.New("upstream failure")
	ErrNotFound                 = errors.New("not found")
	ErrLinkConfirmationRequired = errors.New("link confirmation required")
	ErrInvalidLinkToken         = errors.New("invalid link token")
	ErrUnauthorized             = errors.New("unauthorized")
	ErrConflict                 = errors.New("conflict")
	ErrInternal                 = errors.New("internal error")
)

// Error carries a user-facing message for one of the kinds above.
type Error struct {
	Kind error
	Msg  string
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return e.Kind.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func newError(kind error, format string, args ...interface{}) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

var errInternal = &Error{Kind: ErrInternal, Msg: "something went wrong, please try again later"}

// Message returns the user-facing text of err. Errors that did not come
// from this package are reported as internal.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Error()
	}
	return errInternal.Msg
}
