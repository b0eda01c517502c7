package lexer_test

import (
	"errors"
	"slices"
	"testing"

	"go.followtheprocess.codes/restcli/internal/mod"
	"go.followtheprocess.codes/restcli/internal/mod/lexer"
	"go.followtheprocess.codes/test"
)

func TestLex(t *testing.T) {
	tests := []struct {
		name string       // Name of the test case
		src  string       // Raw modification command line
		want []mod.Lexeme // Expected lexemes, in order
	}{
		{
			name: "documented example",
			src:  "-a foo:bar -n bar:baz -a baz:quux -d quux:biff a:b x:y",
			want: []mod.Lexeme{
				{Action: mod.Assign, Value: "bar:baz"},
				{Action: mod.Append, Value: "foo:bar"},
				{Action: mod.Append, Value: "baz:quux"},
				{Action: mod.Delete, Value: "quux:biff"},
				{Action: mod.Assign, Value: "a:b"},
				{Action: mod.Assign, Value: "x:y"},
			},
		},
		{
			name: "long flags",
			src:  "--delete headers.Accept --append tags:new --assign method:post",
			want: []mod.Lexeme{
				{Action: mod.Assign, Value: "method:post"},
				{Action: mod.Append, Value: "tags:new"},
				{Action: mod.Delete, Value: "headers.Accept"},
			},
		},
		{
			name: "attached values",
			src:  "--assign=a:b -nc:d -a=e:f",
			want: []mod.Lexeme{
				{Action: mod.Assign, Value: "a:b"},
				{Action: mod.Assign, Value: "c:d"},
				{Action: mod.Append, Value: "=e:f"},
			},
		},
		{
			name: "quoted values",
			src:  `-n "headers.Authorization:JWT abc123.foo" 'body.name:Frank Frankenfrank'`,
			want: []mod.Lexeme{
				{Action: mod.Assign, Value: "headers.Authorization:JWT abc123.foo"},
				{Action: mod.Assign, Value: "body.name:Frank Frankenfrank"},
			},
		},
		{
			name: "delete comes after assign regardless of position",
			src:  "-d headers.Accept -n headers.Accept:text/plain",
			want: []mod.Lexeme{
				{Action: mod.Assign, Value: "headers.Accept:text/plain"},
				{Action: mod.Delete, Value: "headers.Accept"},
			},
		},
		{
			name: "terminator",
			src:  "-n a:b -- -d x:y",
			want: []mod.Lexeme{
				{Action: mod.Assign, Value: "a:b"},
				{Action: mod.Assign, Value: "-d"},
				{Action: mod.Assign, Value: "x:y"},
			},
		},
		{
			name: "flag value that looks like a flag",
			src:  "-n -x:y",
			want: []mod.Lexeme{
				{Action: mod.Assign, Value: "-x:y"},
			},
		},
		{
			name: "lone dash is a value",
			src:  "- a:b",
			want: []mod.Lexeme{
				{Action: mod.Assign, Value: "-"},
				{Action: mod.Assign, Value: "a:b"},
			},
		},
		{
			name: "empty",
			src:  "",
			want: []mod.Lexeme{
				{Action: mod.Assign, Value: ""},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := lexer.Lex(tt.src)
			test.Ok(t, err)
			test.EqualFunc(t, got, tt.want, slices.Equal, test.Context("lexeme mismatch: got %v", got))
		})
	}
}

func TestLexErrors(t *testing.T) {
	tests := []struct {
		name string // Name of the test case
		src  string // Raw modification command line
		want error  // Sentinel the error should wrap
	}{
		{name: "unknown short", src: "-x a:b", want: mod.ErrUnrecognizedFlag},
		{name: "unknown long", src: "--replace a:b", want: mod.ErrUnrecognizedFlag},
		{name: "unknown long with value", src: "--nope=a:b", want: mod.ErrUnrecognizedFlag},
		{name: "unknown after residual", src: "a:b -q", want: mod.ErrUnrecognizedFlag},
		{name: "missing value", src: "-n a:b -a", want: mod.ErrMissingValue},
		{name: "missing value long", src: "--delete", want: mod.ErrMissingValue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := lexer.Lex(tt.src)
			test.Err(t, err)
			test.True(t, errors.Is(err, tt.want), test.Context("wrong error: %v", err))
			test.Equal(t, len(got), 0)
		})
	}
}

func TestClassify(t *testing.T) {
	tokens := []string{"-a", "foo:bar", "-n", "bar:baz", "-a", "baz:quux", "-d", "quux:biff", "a:b", "x:y"}

	got, err := lexer.Classify(tokens)
	test.Ok(t, err)

	test.EqualFunc(t, got.Assigned, []string{"bar:baz"}, slices.Equal)
	test.EqualFunc(t, got.Appended, []string{"foo:bar", "baz:quux"}, slices.Equal)
	test.EqualFunc(t, got.Deleted, []string{"quux:biff"}, slices.Equal)
	test.EqualFunc(t, got.Residual, []string{"a:b", "x:y"}, slices.Equal)
}

func TestLexArgsDoesNotRetokenize(t *testing.T) {
	// As if a shell had already done the splitting, the space is part of the value
	got, err := lexer.LexArgs([]string{"headers.Authorization:JWT abc123.foo", "-n", `body.quote:"hi"`})
	test.Ok(t, err)

	want := []mod.Lexeme{
		{Action: mod.Assign, Value: `body.quote:"hi"`},
		{Action: mod.Assign, Value: "headers.Authorization:JWT abc123.foo"},
	}
	test.EqualFunc(t, got, want, slices.Equal)
}

func TestSequenceEmpty(t *testing.T) {
	got := lexer.Sequence(lexer.Groups{})
	test.Equal(t, len(got), 0)
}

func FuzzLex(f *testing.F) {
	f.Add("-a foo:bar -n bar:baz -a baz:quux -d quux:biff a:b x:y")
	f.Add(`-n "headers.Authorization:JWT abc123.foo"`)
	f.Add("--assign=a:b -- -d")
	f.Add("-")

	f.Fuzz(func(t *testing.T, src string) {
		lexemes, err := lexer.Lex(src)

		// Property: On error, no lexemes are returned
		if err != nil {
			if len(lexemes) != 0 {
				t.Fatalf("Lex(%q) returned %d lexemes alongside error %v", src, len(lexemes), err)
			}
			return
		}

		// Property: Lexemes are grouped as assign, append, delete, then residual assigns
		rank := map[mod.Action]int{mod.Assign: 0, mod.Append: 1, mod.Delete: 2}
		last := 0
		for _, lexeme := range lexemes {
			r := rank[lexeme.Action]
			if lexeme.Action == mod.Assign && last > 0 {
				// Residual assigns may follow anything
				last = 3
				continue
			}
			if r < last {
				t.Fatalf("Lex(%q) lexemes out of order: %v", src, lexemes)
			}
			last = r
		}
	})
}
