// Package scanner splits a raw modification command line into tokens.
//
// Tokens are separated by runs of whitespace. Whitespace can be part of a token if
// it is preceded by a backslash or sits inside a quoted span, and quotes can be
// part of a token if they are preceded by a backslash or sit inside a span quoted
// with the other kind of quote.
//
// Quote marks that open and close a span are dropped, backslashes are kept.
package scanner

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	eof       = rune(-1) // eof signifies we have reached the end of the input
	backslash = '\\'     // Makes the next character literal
)

// scanFn represents the state of the scanner as a function that returns the next state.
type scanFn func(*Scanner) scanFn

// Scanner is the modification command line scanner.
type Scanner struct {
	isSep  func(r rune) bool // Reports whether a rune separates tokens
	src    string            // Raw input
	tokens []string          // Tokens scanned so far
	token  strings.Builder   // The token currently being built
	pos    int               // Current position in src (bytes, 0 indexed)
	quote  rune              // The quote character of the currently open span, 0 if none
}

// Tokenize splits input on whitespace, honouring quotes and backslash escapes.
//
// It always returns at least one token, the empty input gives a single empty token.
func Tokenize(input string) []string {
	return TokenizeFunc(input, unicode.IsSpace)
}

// TokenizeFunc is like [Tokenize] but splits on characters for which isSep returns true.
func TokenizeFunc(input string, isSep func(r rune) bool) []string {
	s := New(input, isSep)
	return s.Scan()
}

// New returns a new [Scanner] over input.
//
// If isSep is nil, [unicode.IsSpace] is used.
func New(input string, isSep func(r rune) bool) *Scanner {
	if isSep == nil {
		isSep = unicode.IsSpace
	}

	return &Scanner{
		isSep: isSep,
		src:   input,
	}
}

// Scan runs the scanner to completion and returns the tokens.
func (s *Scanner) Scan() []string {
	for state := scanToken; state != nil; {
		state = state(s)
	}
	return s.tokens
}

// next returns, and consumes, the next character in the input or [eof].
func (s *Scanner) next() rune {
	if s.pos >= len(s.src) {
		return eof
	}

	// Invalid utf-8 decodes as utf8.RuneError with width 1 which is copied through
	// as the replacement character, there is nothing useful to report
	char, width := utf8.DecodeRuneInString(s.src[s.pos:])
	s.pos += width
	return char
}

// char returns the character the scanner is currently sat on or [eof].
func (s *Scanner) char() rune {
	if s.pos >= len(s.src) {
		return eof
	}
	char, _ := utf8.DecodeRuneInString(s.src[s.pos:])
	return char
}

// skip consumes characters for which the predicate returns true, stopping at the
// first one that returns false (or eof).
func (s *Scanner) skip(predicate func(r rune) bool) {
	for char := s.char(); char != eof && predicate(char); char = s.char() {
		s.next()
	}
}

// emit appends the current token to the output and starts a new one.
func (s *Scanner) emit() {
	s.tokens = append(s.tokens, s.token.String())
	s.token.Reset()
}

// escape handles a backslash, which is kept and makes the following character
// literal. The backslash itself has not been consumed yet.
func (s *Scanner) escape() {
	s.token.WriteRune(s.next())
	if char := s.next(); char != eof {
		s.token.WriteRune(char)
	}
}

// scanToken scans outside of any quoted span.
func scanToken(s *Scanner) scanFn {
	for {
		switch char := s.char(); {
		case char == eof:
			s.emit()
			return nil
		case isQuote(char):
			s.quote = s.next()
			return scanQuoted
		case char == backslash:
			s.escape()
		case s.isSep(char):
			s.emit()
			s.skip(s.isSep)
			if s.char() == eof {
				// The separator run already ended the last token, a trailing
				// separator must not produce an empty one
				return nil
			}
		default:
			s.token.WriteRune(s.next())
		}
	}
}

// scanQuoted scans inside a span opened by s.quote. An unterminated span runs to
// the end of the input.
func scanQuoted(s *Scanner) scanFn {
	for {
		switch char := s.char(); {
		case char == eof:
			s.emit()
			return nil
		case char == s.quote:
			s.next()
			s.quote = 0
			return scanToken
		case char == backslash:
			s.escape()
		default:
			// Including separators and the other kind of quote
			s.token.WriteRune(s.next())
		}
	}
}

// isQuote reports whether r opens or closes a quoted span.
func isQuote(r rune) bool {
	return r == '"' || r == '\''
}
