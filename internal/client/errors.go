package client

import "fmt"

// Kind classifies a client failure so callers can render an explicit error
// state instead of logging and continuing.
type Kind string

const (
	// KindInvalidInput marks input rejected before any I/O happened.
	KindInvalidInput Kind = "invalid_input"
	// KindTransport marks connection and socket failures.
	KindTransport Kind = "transport"
	// KindHTTP marks a non-2xx response; Status carries the code.
	KindHTTP Kind = "http"
	// KindDecode marks a response or envelope that could not be decoded.
	KindDecode Kind = "decode"
	// KindClosed marks use of a session or transport after Close.
	KindClosed Kind = "closed"
)

type Error struct {
	Kind   Kind
	Status int
	Op     string
	Err    error
}

func (e *Error) Error() string {
	switch {
	case e.Kind == KindHTTP:
		return fmt.Sprintf("%s: server returned status %d", e.Op, e.Status)
	case e.Err != nil:
		return fmt.Sprintf("%s: %s", e.Op, e.Err.Error())
	default:
		return fmt.Sprintf("%s: %s", e.Op, string(e.Kind))
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func newHTTPError(op string, status int) *Error {
	return &Error{Kind: KindHTTP, Op: op, Status: status}
}
