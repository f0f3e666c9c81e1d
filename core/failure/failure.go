package failure

import (
	"errors"
	"fmt"
)

type Kind string

const (
	// Transport covers timeouts, refused connections and non-2xx statuses.
	Transport Kind = "transport"
	// Malformed means the payload could not be decoded.
	Malformed Kind = "malformed"
	// Empty means the payload decoded but carried nothing usable.
	Empty Kind = "empty"
	// Provider is an error reported by the remote service itself.
	Provider Kind = "provider"
	Unknown  Kind = "unknown"
)

type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func Wrap(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Err: err}
}

func Newf(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the kind of the outermost *Error in the chain, or Unknown.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return Unknown
}

// Detail returns the wrapped message without the kind prefix.
func Detail(err error) string {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Err.Error()
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
