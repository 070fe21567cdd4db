package load

import (
	"errors"
	"fmt"
)

// Kind classifies a load failure.
type Kind int

const (
	KindNotFound      Kind = iota + 1 // file missing or unreadable
	KindParse                         // bytes present but malformed
	KindIllegalParam                  // unsupported format or invalid option combination
	KindUnknownFormat                 // extension not recognized
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindParse:
		return "parse_error"
	case KindIllegalParam:
		return "illegal_param"
	case KindUnknownFormat:
		return "unknown_format"
	default:
		return "unknown"
	}
}

// Sentinels matched by errors.Is against any *Error of the same kind.
var (
	ErrNotFound      = errors.New("not found")
	ErrParse         = errors.New("parse error")
	ErrIllegalParam  = errors.New("illegal param")
	ErrUnknownFormat = errors.New("unknown format")
)

func (k Kind) sentinel() error {
	switch k {
	case KindNotFound:
		return ErrNotFound
	case KindParse:
		return ErrParse
	case KindIllegalParam:
		return ErrIllegalParam
	case KindUnknownFormat:
		return ErrUnknownFormat
	default:
		return nil
	}
}

// Error is the result of a failed table load.
type Error struct {
	Kind Kind
	Name string // table name, may be empty below LoadMessage
	Path string // resolved file path, empty if never resolved
	Err  error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Name != "" {
		msg = e.Name + ": " + msg
	}
	if e.Path != "" {
		msg += " (" + e.Path + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is the sentinel for e's kind.
func (e *Error) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && target == s
}

// KindOf extracts the Kind of a load error. ok is false if err carries no *Error.
func KindOf(err error) (kind Kind, ok bool) {
	var le *Error
	if errors.As(err, &le) {
		return le.Kind, true
	}
	return 0, false
}

func newError(kind Kind, name, path string, format string, args ...any) *Error {
	return &Error{Kind: kind, Name: name, Path: path, Err: fmt.Errorf(format, args...)}
}

// classify attaches the table name to err, treating errors that are not
// already *Error (e.g. from a custom LoadFunc) as parse failures.
func classify(name, path string, err error) error {
	if err == nil {
		return nil
	}
	var le *Error
	if errors.As(err, &le) {
		if le.Name != "" {
			return le
		}
		named := *le
		named.Name = name
		return &named
	}
	return &Error{Kind: KindParse, Name: name, Path: path, Err: err}
}
