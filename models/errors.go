package models

import (
	"errors"
	"fmt"
)

// Error kinds
var (
	ErrAuth   = errors.New("auth error")
	ErrHTTP   = errors.New("http error")
	ErrDecode = errors.New("decode error")
	ErrFormat = errors.New("format error")
	ErrStore  = errors.New("store error")
)

// Error ties a failure to its kind and the operation that raised it
type Error struct {
	Kind error
	Op   string
	Err  error
}

// NewError builds an *Error, err may be nil
func NewError(kind error, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Errorf builds an *Error from a formatted message
func Errorf(kind error, op string, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("[%s] %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("[%s] %v: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is the kind of e
func (e *Error) Is(target error) bool { return target == e.Kind }
