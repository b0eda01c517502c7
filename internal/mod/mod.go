// Package mod defines the vocabulary of the request modification language: the
// [Action] a mutation performs, the [Lexeme] that carries it and the errors
// produced while lexing and applying mutations.
//
// The language itself is implemented in the subpackages: scanner splits a raw
// command line into tokens, lexer turns tokens into an ordered sequence of lexemes
// and parser applies those lexemes to a request document.
package mod

import (
	"errors"
	"fmt"
)

// Action is the kind of mutation a [Lexeme] performs.
type Action int

const (
	Append Action = iota // append
	Assign               // assign
	Delete               // delete
)

// String returns the lower case name of the action, as used by its long flag.
func (a Action) String() string {
	switch a {
	case Append:
		return "append"
	case Assign:
		return "assign"
	case Delete:
		return "delete"
	default:
		return fmt.Sprintf("Action(%d)", int(a))
	}
}

// Lexeme is a single classified mutation.
//
// Value is "path:value" for [Append] and [Assign], and "path" for [Delete].
type Lexeme struct {
	Value  string // The raw, untokenised mutation text
	Action Action // What to do with it
}

// String returns a string representation of a [Lexeme].
func (l Lexeme) String() string {
	return fmt.Sprintf("<Lexeme::%s %q>", l.Action, l.Value)
}

var (
	// ErrUnrecognizedFlag is returned when a token looks like a flag but is not one
	// of -a/--append, -n/--assign or -d/--delete.
	ErrUnrecognizedFlag = errors.New("unrecognized flag")

	// ErrMissingValue is returned when a flag is the last token and so has no value.
	ErrMissingValue = errors.New("flag needs a value")

	// ErrMalformedMutation is returned when an append or assign has no "path:value" shape.
	ErrMalformedMutation = errors.New("malformed mutation")

	// ErrInvalidPath is returned when a path runs through something that is not a mapping.
	ErrInvalidPath = errors.New("invalid path")

	// ErrPathNotFound is returned when deleting a path that does not exist.
	ErrPathNotFound = errors.New("path not found")
)

// Error is the failure to apply a single [Lexeme].
//
// It wraps one of the sentinel errors in this package so callers can use [errors.Is].
type Error struct {
	Err    error  // The underlying cause, one of the sentinel errors
	Path   string // The path being resolved, if it could be determined
	Msg    string // Optional detail
	Lexeme Lexeme // The lexeme that failed
	Index  int    // Position of the lexeme in the sequence being applied (0 indexed)
}

// Error implements the error interface for [Error].
func (e *Error) Error() string {
	if e.Msg != "" {
		return fmt.Sprintf("%s %q: %v: %s", e.Lexeme.Action, e.Lexeme.Value, e.Err, e.Msg)
	}
	return fmt.Sprintf("%s %q: %v", e.Lexeme.Action, e.Lexeme.Value, e.Err)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}
