package data

import (
	"errors"
	"fmt"
)

type ErrorKind int

const (
	// RequestFail covers transport failures and non-2xx responses.
	RequestFail ErrorKind = iota
	// IoError covers directory creation, file writes and serialization.
	IoError
	// ParseError is returned when an expected element or attribute is missing.
	ParseError
)

func (k ErrorKind) String() string {
	switch k {
	case RequestFail:
		return "request failed"
	case IoError:
		return "io error"
	case ParseError:
		return "parse error"
	default:
		return "unknown error"
	}
}

// Error carries a human readable message only; there is no retry metadata.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func NewRequestFail(err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: RequestFail, Message: err.Error()}
}

func NewIoError(err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: IoError, Message: err.Error()}
}

func ParseErrorf(format string, args ...any) error {
	return &Error{Kind: ParseError, Message: fmt.Sprintf(format, args...)}
}

// IsKind reports whether any error in err's chain is an *Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
