package parser_test

import (
	"errors"
	"flag"
	"path/filepath"
	"strings"
	"testing"

	"go.followtheprocess.codes/restcli/internal/document"
	"go.followtheprocess.codes/restcli/internal/mod"
	"go.followtheprocess.codes/restcli/internal/mod/parser"
	"go.followtheprocess.codes/test"
	"go.followtheprocess.codes/txtar"
	"go.uber.org/goleak"
)

var update = flag.Bool("update", false, "Update snapshots and testdata")

// TestArchives is the primary mutation test. Each txtar archive in testdata holds a
// request document, a modification command line, the document it should produce and
// the errors that should be reported along the way.
func TestArchives(t *testing.T) {
	test.ColorEnabled(true) // Force colour in the diffs

	pattern := filepath.Join("testdata", "*.txtar")
	files, err := filepath.Glob(pattern)
	test.Ok(t, err)

	for _, file := range files {
		name := filepath.Base(file)
		t.Run(name, func(t *testing.T) {
			defer goleak.VerifyNone(t)

			archive, err := txtar.ParseFile(file)
			test.Ok(t, err)

			src, ok := archive.Read("request.yaml")
			test.True(t, ok, test.Context("archive %s missing request.yaml", name))

			args, ok := archive.Read("args.txt")
			test.True(t, ok, test.Context("archive %s missing args.txt", name))

			want, ok := archive.Read("want.yaml")
			test.True(t, ok, test.Context("archive %s missing want.yaml", name))

			wantErrs, ok := archive.Read("errors.txt")
			test.True(t, ok, test.Context("archive %s missing errors.txt", name))

			doc, err := document.Decode([]byte(src))
			test.Ok(t, err, test.Context("request.yaml is not a valid document"))

			got, errs := parser.Mutate(strings.TrimSpace(args), doc)

			gotYAML, err := document.Encode(document.Map(got))
			test.Ok(t, err)

			var gotErrs strings.Builder
			for _, err := range errs {
				gotErrs.WriteString(err.Error())
				gotErrs.WriteByte('\n')
			}

			if *update {
				err := archive.Write("want.yaml", string(gotYAML))
				test.Ok(t, err)

				err = archive.Write("errors.txt", gotErrs.String())
				test.Ok(t, err)

				err = txtar.DumpFile(file, archive)
				test.Ok(t, err)

				return
			}

			test.Diff(t, strings.TrimSpace(string(gotYAML)), strings.TrimSpace(want))
			test.Diff(t, strings.TrimSpace(gotErrs.String()), strings.TrimSpace(wantErrs))
		})
	}
}

// request returns the request document used throughout these tests.
func request(t *testing.T) *document.Mapping {
	t.Helper()

	doc, err := document.Decode([]byte(`method: post
url: http://example.org/authors
headers:
  Content-Type: application/json
  Accept: application/json
`))
	test.Ok(t, err)

	return doc
}

func TestAssignHeader(t *testing.T) {
	doc := request(t)

	got, errs := parser.Apply([]mod.Lexeme{{Action: mod.Assign, Value: "headers.Authorization:JWT abc123.foo"}}, doc)
	test.Equal(t, len(errs), 0)

	headers, ok := got.Get("headers")
	test.True(t, ok)

	want := document.NewMapping(
		document.Entry{Key: "Content-Type", Value: document.String("application/json")},
		document.Entry{Key: "Accept", Value: document.String("application/json")},
		document.Entry{Key: "Authorization", Value: document.String("JWT abc123.foo")},
	)
	test.True(t, headers.Mapping().Equal(want), test.Context("headers were %v", headers.Mapping().Keys()))

	// The input document is untouched
	original, _ := doc.Get("headers")
	test.Equal(t, original.Mapping().Len(), 2)
}

func TestDeleteMissing(t *testing.T) {
	doc := request(t)

	got, errs := parser.Apply([]mod.Lexeme{{Action: mod.Delete, Value: "headers.Nonexistent"}}, doc)
	test.Equal(t, len(errs), 1)
	test.True(t, errors.Is(errs[0], mod.ErrPathNotFound), test.Context("wrong error: %v", errs[0]))
	test.True(t, got.Equal(doc), test.Context("document changed by a failed delete"))

	var modErr *mod.Error
	test.True(t, errors.As(errs[0], &modErr))
	test.Equal(t, modErr.Path, "headers.Nonexistent")
	test.Equal(t, modErr.Index, 0)
}

func TestAssignIsIdempotent(t *testing.T) {
	doc := request(t)
	lexeme := mod.Lexeme{Action: mod.Assign, Value: "body.author.name:Frank Frankenfrank"}

	once, errs := parser.Apply([]mod.Lexeme{lexeme}, doc)
	test.Equal(t, len(errs), 0)

	twice, errs := parser.Apply([]mod.Lexeme{lexeme, lexeme}, doc)
	test.Equal(t, len(errs), 0)

	test.True(t, once.Equal(twice))

	// Applying to an already applied document changes nothing either
	again, errs := parser.Apply([]mod.Lexeme{lexeme}, once)
	test.Equal(t, len(errs), 0)
	test.True(t, once.Equal(again))
}

func TestAssignThenDeleteRemoves(t *testing.T) {
	doc := request(t)

	// Flags given in the "wrong" order still delete last
	got, errs := parser.Mutate("-d headers.Accept -n headers.Accept:text/plain", doc)
	test.Equal(t, len(errs), 0)

	headers, _ := got.Get("headers")
	_, ok := headers.Mapping().Get("Accept")
	test.False(t, ok, test.Context("Accept should have been deleted after being assigned"))
}

func TestDocumentedExample(t *testing.T) {
	doc := document.NewMapping(
		document.Entry{Key: "foo", Value: document.String("one")},
		document.Entry{Key: "baz", Value: document.List(document.String("x"))},
		document.Entry{Key: "quux", Value: document.String("three")},
	)

	got, errs := parser.Mutate("-a foo:bar -n bar:baz -a baz:quux -d quux:biff a:b x:y", doc)
	test.Equal(t, len(errs), 0, test.Context("unexpected errors: %v", errs))

	want := document.NewMapping(
		document.Entry{Key: "foo", Value: document.List(document.String("one"), document.String("bar"))},
		document.Entry{Key: "baz", Value: document.List(document.String("x"), document.String("quux"))},
		document.Entry{Key: "bar", Value: document.String("baz")},
		document.Entry{Key: "a", Value: document.String("b")},
		document.Entry{Key: "x", Value: document.String("y")},
	)

	test.True(t, got.Equal(want), test.Context("got keys %v", got.Keys()))
}

func TestAssignOverwritesAnything(t *testing.T) {
	doc := request(t)

	got, errs := parser.Apply([]mod.Lexeme{{Action: mod.Assign, Value: "headers:none"}}, doc)
	test.Equal(t, len(errs), 0)

	headers, _ := got.Get("headers")
	test.Equal(t, headers.Kind(), document.KindScalar)
	test.Equal(t, headers.Text(), "none")

	// And keeps its position
	test.Equal(t, got.Keys()[2], "headers")
}

func TestValuesAreNotCoerced(t *testing.T) {
	got, errs := parser.Apply([]mod.Lexeme{{Action: mod.Assign, Value: "body.age:12"}}, nil)
	test.Equal(t, len(errs), 0)

	body, _ := got.Get("body")
	age, _ := body.Mapping().Get("age")
	test.Equal(t, age.Text(), "12")
	test.Equal(t, age.Tag(), "")
}

func TestDeleteIgnoresValue(t *testing.T) {
	got, errs := parser.Apply([]mod.Lexeme{{Action: mod.Delete, Value: "headers.Accept:whatever"}}, request(t))
	test.Equal(t, len(errs), 0)

	headers, _ := got.Get("headers")
	test.Equal(t, headers.Mapping().Len(), 1)
}

func TestDeleteThroughMissingParent(t *testing.T) {
	_, errs := parser.Apply([]mod.Lexeme{{Action: mod.Delete, Value: "query.page"}}, request(t))
	test.Equal(t, len(errs), 1)
	test.True(t, errors.Is(errs[0], mod.ErrPathNotFound))
}

func TestBestEffort(t *testing.T) {
	lexemes := []mod.Lexeme{
		{Action: mod.Assign, Value: "method.verb:get"},
		{Action: mod.Assign, Value: "nocolon"},
		{Action: mod.Assign, Value: "headers.X-Trace:abc"},
		{Action: mod.Delete, Value: "headers.Missing"},
	}

	got, errs := parser.Apply(lexemes, request(t))
	test.Equal(t, len(errs), 3)
	test.True(t, errors.Is(errs[0], mod.ErrInvalidPath))
	test.True(t, errors.Is(errs[1], mod.ErrMalformedMutation))
	test.True(t, errors.Is(errs[2], mod.ErrPathNotFound))

	headers, _ := got.Get("headers")
	trace, ok := headers.Mapping().Get("X-Trace")
	test.True(t, ok, test.Context("the valid mutation between failures was not applied"))
	test.Equal(t, trace.Text(), "abc")
}

func TestMutateLexError(t *testing.T) {
	doc := request(t)

	got, errs := parser.Mutate("-x headers.Accept:text/plain", doc)
	test.Equal(t, len(errs), 1)
	test.True(t, errors.Is(errs[0], mod.ErrUnrecognizedFlag))
	test.True(t, got.Equal(doc))
}

func FuzzMutate(f *testing.F) {
	f.Add("-a foo:bar -n bar:baz -a baz:quux -d quux:biff a:b x:y")
	f.Add(`-n "headers.Authorization:JWT abc123.foo"`)
	f.Add(`headers.X\.Y:z -d headers`)
	f.Add("-a headers.Accept:text/plain -a headers.Accept:text/html")

	f.Fuzz(func(t *testing.T, src string) {
		doc, err := document.Decode([]byte("method: get\nheaders:\n  Accept: application/json\n"))
		test.Ok(t, err)

		before := doc.Clone()

		got, errs := parser.Mutate(src, doc)

		// Property: The input document is never modified
		if !doc.Equal(before) {
			t.Fatalf("Mutate(%q) modified its input document", src)
		}

		// Property: A result is always returned
		if got == nil {
			t.Fatalf("Mutate(%q) returned a nil document", src)
		}

		// Property: Every error is either a lexing error or a *mod.Error
		for _, err := range errs {
			var modErr *mod.Error
			if !errors.As(err, &modErr) &&
				!errors.Is(err, mod.ErrUnrecognizedFlag) &&
				!errors.Is(err, mod.ErrMissingValue) {
				t.Fatalf("Mutate(%q) returned unexpected error type %T: %v", src, err, err)
			}
		}
	})
}
