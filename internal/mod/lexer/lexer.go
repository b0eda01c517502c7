// Package lexer turns modification tokens into an ordered sequence of [mod.Lexeme].
//
// Three repeatable flags are recognised, each taking exactly one value:
//
//	-a, --append <path:value>
//	-n, --assign <path:value>
//	-d, --delete <path>
//
// Any other token is an implicit assignment. The lexemes are always emitted grouped
// by action: assignments, then appends, then deletes, then the implicit assignments,
// each group in the order it appeared on the command line.
package lexer

import (
	"fmt"
	"strings"

	"go.followtheprocess.codes/restcli/internal/mod"
	"go.followtheprocess.codes/restcli/internal/mod/scanner"
)

// terminator ends flag parsing, everything after it is an implicit assignment.
const terminator = "--"

// Groups is the result of classifying tokens, one list per action plus the
// tokens that were not flags or flag values.
type Groups struct {
	Assigned []string // Values of -n/--assign
	Appended []string // Values of -a/--append
	Deleted  []string // Values of -d/--delete
	Residual []string // Everything else, treated as assignments
}

// Lex tokenizes input and returns the lexemes it describes.
func Lex(input string) ([]mod.Lexeme, error) {
	return LexArgs(scanner.Tokenize(input))
}

// LexArgs returns the lexemes described by args, which have already been split into
// tokens e.g. by a shell.
func LexArgs(args []string) ([]mod.Lexeme, error) {
	groups, err := Classify(args)
	if err != nil {
		return nil, err
	}
	return Sequence(groups), nil
}

// Classify sorts tokens into [Groups].
//
// A flag consumes the token after it as its value whatever that token looks like.
// The long forms also accept "--flag=value" and the short forms an attached value
// as in "-avalue". A token starting with '-' that is not a known flag is an error
// wrapping [mod.ErrUnrecognizedFlag], a flag with nothing after it wraps
// [mod.ErrMissingValue].
func Classify(tokens []string) (Groups, error) {
	var groups Groups

	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]

		if tok == terminator {
			groups.Residual = append(groups.Residual, tokens[i+1:]...)
			break
		}

		if !isFlag(tok) {
			groups.Residual = append(groups.Residual, tok)
			continue
		}

		action, value, attached, err := parseFlag(tok)
		if err != nil {
			return Groups{}, err
		}

		if !attached {
			if i+1 >= len(tokens) {
				return Groups{}, fmt.Errorf("%w: %s", mod.ErrMissingValue, tok)
			}
			i++
			value = tokens[i]
		}

		switch action {
		case mod.Assign:
			groups.Assigned = append(groups.Assigned, value)
		case mod.Append:
			groups.Appended = append(groups.Appended, value)
		case mod.Delete:
			groups.Deleted = append(groups.Deleted, value)
		}
	}

	return groups, nil
}

// Sequence returns the lexemes for groups in their fixed order: every assignment,
// then every append, then every delete and finally one assignment per residual token.
func Sequence(groups Groups) []mod.Lexeme {
	lexemes := make(
		[]mod.Lexeme,
		0,
		len(groups.Assigned)+len(groups.Appended)+len(groups.Deleted)+len(groups.Residual),
	)

	for _, value := range groups.Assigned {
		lexemes = append(lexemes, mod.Lexeme{Action: mod.Assign, Value: value})
	}

	for _, value := range groups.Appended {
		lexemes = append(lexemes, mod.Lexeme{Action: mod.Append, Value: value})
	}

	for _, value := range groups.Deleted {
		lexemes = append(lexemes, mod.Lexeme{Action: mod.Delete, Value: value})
	}

	// Residual tokens are never split further, each one is a whole mutation
	for _, value := range groups.Residual {
		lexemes = append(lexemes, mod.Lexeme{Action: mod.Assign, Value: value})
	}

	return lexemes
}

// isFlag reports whether tok should be parsed as a flag. A lone "-" is a value,
// not a flag.
func isFlag(tok string) bool {
	return len(tok) > 1 && tok[0] == '-'
}

// parseFlag parses a token known to start with '-', returning the action it names
// and, if the value was attached to the flag, the value.
func parseFlag(tok string) (action mod.Action, value string, attached bool, err error) {
	if long, ok := strings.CutPrefix(tok, terminator); ok {
		name, val, hasValue := strings.Cut(long, "=")
		act, known := longFlag(name)
		if !known {
			return 0, "", false, fmt.Errorf("%w: %s", mod.ErrUnrecognizedFlag, tok)
		}
		return act, val, hasValue, nil
	}

	action, ok := shortFlag(tok[1])
	if !ok {
		return 0, "", false, fmt.Errorf("%w: %s", mod.ErrUnrecognizedFlag, tok)
	}

	if len(tok) > len("-a") {
		return action, tok[2:], true, nil
	}

	return action, "", false, nil
}

// longFlag returns the action named by a long flag, without its leading "--".
func longFlag(name string) (mod.Action, bool) {
	switch name {
	case "append":
		return mod.Append, true
	case "assign":
		return mod.Assign, true
	case "delete":
		return mod.Delete, true
	default:
		return 0, false
	}
}

// shortFlag returns the action named by a short flag character.
func shortFlag(char byte) (mod.Action, bool) {
	switch char {
	case 'a':
		return mod.Append, true
	case 'n':
		return mod.Assign, true
	case 'd':
		return mod.Delete, true
	default:
		return 0, false
	}
}
