// Package parser applies modification lexemes to a request document.
//
// Each lexeme's value is split on its first unescaped colon into a path and a value.
// The path is a dot separated list of keys into the document, a literal dot, colon
// or backslash in a key is written with a leading backslash.
//
// Application is best effort: a lexeme that cannot be applied is reported and
// skipped, the rest still run.
package parser

import (
	"fmt"
	"slices"
	"strings"

	"go.followtheprocess.codes/restcli/internal/document"
	"go.followtheprocess.codes/restcli/internal/mod"
	"go.followtheprocess.codes/restcli/internal/mod/lexer"
)

const (
	backslash = '\\'
	colon     = ':'
	dot       = '.'
)

// Apply applies lexemes, in order, to a copy of doc and returns the copy along with
// one [*mod.Error] for every lexeme that could not be applied.
//
// doc itself is never modified and no reference to it is retained. A lexeme that
// fails leaves the document exactly as it was before that lexeme.
func Apply(lexemes []mod.Lexeme, doc *document.Mapping) (*document.Mapping, []error) {
	result := doc.Clone()

	var errs []error
	for index, lexeme := range lexemes {
		if err := apply(result, index, lexeme); err != nil {
			errs = append(errs, err)
		}
	}

	return result, errs
}

// Mutate lexes a raw modification command line and applies it to a copy of doc.
//
// If the command line cannot be lexed, nothing is applied and the lexing error is
// the only error returned.
func Mutate(input string, doc *document.Mapping) (*document.Mapping, []error) {
	lexemes, err := lexer.Lex(input)
	if err != nil {
		return doc.Clone(), []error{err}
	}
	return Apply(lexemes, doc)
}

// apply applies a single lexeme to doc in place.
func apply(doc *document.Mapping, index int, lexeme mod.Lexeme) error {
	path, value, found := split(lexeme.Value)

	fail := func(err error, format string, a ...any) *mod.Error {
		return &mod.Error{
			Err:    err,
			Path:   path,
			Msg:    fmt.Sprintf(format, a...),
			Lexeme: lexeme,
			Index:  index,
		}
	}

	// A delete only needs the path, anything after a colon is ignored
	if !found && lexeme.Action != mod.Delete {
		return fail(mod.ErrMalformedMutation, "expected path:value")
	}

	if path == "" {
		return fail(mod.ErrMalformedMutation, "empty path")
	}

	keys := splitKeys(path)
	if slices.Contains(keys, "") {
		return fail(mod.ErrInvalidPath, "path contains an empty key")
	}

	parents, leaf := keys[:len(keys)-1], keys[len(keys)-1]

	switch lexeme.Action {
	case mod.Assign:
		parent, err := walk(doc, parents, true)
		if err != nil {
			return fail(err.sentinel, "%s", err.msg)
		}
		parent.Set(leaf, document.String(value))
	case mod.Append:
		parent, err := walk(doc, parents, true)
		if err != nil {
			return fail(err.sentinel, "%s", err.msg)
		}

		existing, ok := parent.Get(leaf)
		if !ok {
			parent.Set(leaf, document.List(document.String(value)))
			return nil
		}

		switch existing.Kind() {
		case document.KindSequence:
			parent.Set(leaf, document.List(append(slices.Clone(existing.Items()), document.String(value))...))
		case document.KindScalar:
			parent.Set(leaf, document.List(existing, document.String(value)))
		default:
			return fail(mod.ErrInvalidPath, "cannot append to %q, it is a %s", path, existing.Kind())
		}
	case mod.Delete:
		parent, err := walk(doc, parents, false)
		if err != nil {
			return fail(err.sentinel, "%s", err.msg)
		}
		if !parent.Delete(leaf) {
			return fail(mod.ErrPathNotFound, "no key %q in %s", leaf, describe(parents))
		}
	default:
		return fail(mod.ErrMalformedMutation, "unknown action %s", lexeme.Action)
	}

	return nil
}

// walkError is a failure to resolve the parents of a leaf key.
type walkError struct {
	sentinel error  // One of the mod sentinel errors
	msg      string // What went wrong
}

// walk follows keys from doc and returns the mapping at the end of them. If create
// is true, missing mappings are created along the way, otherwise a missing key is
// a [mod.ErrPathNotFound].
//
// Anything that is not a mapping along the way is a [mod.ErrInvalidPath]. walk only
// creates mappings once it has stepped past every existing key, so a failure never
// leaves freshly created mappings behind.
func walk(doc *document.Mapping, keys []string, create bool) (*document.Mapping, *walkError) {
	current := doc
	for i, key := range keys {
		value, ok := current.Get(key)
		if !ok {
			if !create {
				return nil, &walkError{
					sentinel: mod.ErrPathNotFound,
					msg:      fmt.Sprintf("no key %q in %s", key, describe(keys[:i])),
				}
			}
			next := document.NewMapping()
			current.Set(key, document.Map(next))
			current = next
			continue
		}

		if value.Kind() != document.KindMapping {
			return nil, &walkError{
				sentinel: mod.ErrInvalidPath,
				msg:      fmt.Sprintf("%q is a %s, not a mapping", strings.Join(keys[:i+1], "."), value.Kind()),
			}
		}

		current = value.Mapping()
	}

	return current, nil
}

// describe names the mapping at keys for error messages.
func describe(keys []string) string {
	if len(keys) == 0 {
		return "the request"
	}
	return fmt.Sprintf("%q", strings.Join(keys, "."))
}

// split splits raw on its first unescaped colon. If there is none, the whole of raw
// is the path and found is false.
func split(raw string) (path, value string, found bool) {
	for i := 0; i < len(raw); i++ {
		switch raw[i] {
		case backslash:
			i++ // Whatever follows is literal
		case colon:
			return raw[:i], raw[i+1:], true
		}
	}
	return raw, "", false
}

// splitKeys splits path on unescaped dots and removes the escaping from each key.
//
// Only "\.", "\:" and "\\" are escapes, any other backslash is part of the key.
func splitKeys(path string) []string {
	var (
		keys []string
		key  strings.Builder
	)

	for i := 0; i < len(path); i++ {
		char := path[i]
		switch {
		case char == backslash && i+1 < len(path) && isEscapable(path[i+1]):
			i++
			key.WriteByte(path[i])
		case char == dot:
			keys = append(keys, key.String())
			key.Reset()
		default:
			key.WriteByte(char)
		}
	}

	return append(keys, key.String())
}

// isEscapable reports whether char has a meaning in a path that a backslash removes.
func isEscapable(char byte) bool {
	return char == dot || char == colon || char == backslash
}
