package nested

import (
	"errors"
	"fmt"
)

var (
	// ErrKeyNotFound is returned when a path segment is absent.
	ErrKeyNotFound = errors.New("key not found")
	// ErrInvalidPath is returned when a path runs through a non-document value.
	ErrInvalidPath = errors.New("cannot set nested key on non-document value")
	// ErrDuplicateKey is returned by Union when overriding is not allowed.
	ErrDuplicateKey = errors.New("key defined twice")
)

// KeyError ties one of the sentinel errors above to the dotted key involved.
type KeyError struct {
	Key string
	Err error
}

func (e *KeyError) Error() string {
	return fmt.Sprintf("%v: %s", e.Err, e.Key)
}

func (e *KeyError) Unwrap() error {
	return e.Err
}

// ParseError reports malformed source text. Line is 0 when unknown.
type ParseError struct {
	Source string
	Line   int
	Err    error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("failed to parse %s (line %d): %v", e.Source, e.Line, e.Err)
	}
	return fmt.Sprintf("failed to parse %s: %v", e.Source, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
