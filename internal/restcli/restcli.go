// Package restcli implements the actual functionality exposed via the CLI.
package restcli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"net"
	"net/http"
	"slices"
	"strings"
	"time"

	"go.followtheprocess.codes/log"
	"go.followtheprocess.codes/msg"
	"go.followtheprocess.codes/restcli/internal/collection"
	"go.followtheprocess.codes/restcli/internal/document"
	"go.followtheprocess.codes/restcli/internal/mod"
	"go.followtheprocess.codes/restcli/internal/mod/parser"
)

var (
	// ErrNoCollection is returned when no collection file was given.
	ErrNoCollection = errors.New("no collection file given, use --collection or set $RESTCLI_COLLECTION")

	// ErrMutationsFailed is returned by [App.Run] when some mutations could not be applied.
	ErrMutationsFailed = errors.New("mutations failed, not sending the request (use --force to send anyway)")
)

// Environment variables supplying defaults for the global flags.
const (
	EnvCollection = "RESTCLI_COLLECTION"
	EnvEnv        = "RESTCLI_ENV"
)

// Options configure an [App].
type Options struct {
	Collection string // Path to the collection file
	Env        string // Path to the environment file, may not exist yet
	Verbose    bool   // Enable debug logging
}

// App holds the state of the program.
type App struct {
	stdout     io.Writer              // Normal program output is written here
	stderr     io.Writer              // Logs, mutation reports and debug info
	logger     *log.Logger            // Debug and warning logs, written to stderr
	collection collection.Collection  // The loaded collection
	env        collection.Environment // The loaded environment
	options    Options                // Options the app was created with
}

// New returns a new [App], loading the collection and environment named in options.
func New(stdout, stderr io.Writer, options Options) (*App, error) {
	level := log.LevelInfo
	if options.Verbose {
		level = log.LevelDebug
	}

	app := &App{
		stdout:  stdout,
		stderr:  stderr,
		logger:  log.New(stderr, log.WithLevel(level)),
		options: options,
	}

	if err := app.load(); err != nil {
		return nil, err
	}

	return app, nil
}

// Collection returns the loaded collection.
func (a *App) Collection() collection.Collection {
	return a.collection
}

// load (re)loads the collection and environment from disk.
func (a *App) load() error {
	if a.options.Collection == "" {
		return ErrNoCollection
	}

	c, err := collection.Load(a.options.Collection)
	if err != nil {
		return fmt.Errorf("could not load collection: %w", err)
	}

	env, err := collection.LoadEnvironment(a.options.Env)
	if err != nil {
		return fmt.Errorf("could not load environment: %w", err)
	}

	a.logger.Debug(
		"Loaded collection",
		"file", a.options.Collection,
		"groups", len(c.Groups),
		"requests", len(c.Requests()),
	)
	a.logger.Debug("Loaded environment", "file", a.options.Env, "vars", env.Vars.Len())

	a.collection = c
	a.env = env
	return nil
}

// View implements the `restcli view` subcommand.
//
// With only a group the whole group is shown, with a request just that request and
// with an attribute just that one parameter of the request.
func (a *App) View(group, request, attr string) error {
	var value document.Value
	switch {
	case request == "":
		g, err := a.collection.Group(group)
		if err != nil {
			return err
		}
		value = document.Map(g.Document())
	case attr == "":
		r, err := a.collection.Request(group, request)
		if err != nil {
			return err
		}
		value = document.Map(r.Params)
	default:
		r, err := a.collection.Request(group, request)
		if err != nil {
			return err
		}

		value, err = r.Attr(attr)
		if err != nil {
			return err
		}
	}

	return a.print(value)
}

// Mod implements the `restcli mod` subcommand, a dry run showing the request as it
// would be sent with lexemes applied.
func (a *App) Mod(group, request string, lexemes []mod.Lexeme) error {
	mutated, _, err := a.mutate(group, request, lexemes)
	if err != nil {
		return err
	}

	return a.print(document.Map(mutated))
}

// RunOptions are the flags passed to the `restcli run` subcommand.
type RunOptions struct {
	Timeout           time.Duration // Overall timeout for the request
	ConnectionTimeout time.Duration // Timeout for establishing the connection
	NoRedirect        bool          // Disable following redirects
	Force             bool          // Send the request even if some mutations failed
}

// Run implements the `restcli run` subcommand: it applies lexemes to the request,
// resolves it against the environment, sends it and prints the response.
func (a *App) Run(ctx context.Context, group, request string, lexemes []mod.Lexeme, options RunOptions) error {
	mutated, errs, err := a.mutate(group, request, lexemes)
	if err != nil {
		return err
	}

	if len(errs) != 0 && !options.Force {
		return fmt.Errorf("%w: %d of %d", ErrMutationsFailed, len(errs), len(lexemes))
	}

	resolved, err := collection.Resolve(group+"/"+request, mutated, a.env)
	if err != nil {
		return err
	}

	if options.Timeout == 0 {
		options.Timeout = collection.DefaultTimeout
	}

	if options.ConnectionTimeout == 0 {
		options.ConnectionTimeout = collection.DefaultConnectionTimeout
	}

	var body io.Reader
	if resolved.Body != nil {
		body = bytes.NewReader(resolved.Body)
	}

	httpRequest, err := http.NewRequestWithContext(ctx, resolved.Method, resolved.URL, body)
	if err != nil {
		return err
	}

	httpRequest.Header = resolved.Header

	transport, ok := http.DefaultTransport.(*http.Transport)
	if !ok {
		return fmt.Errorf("unexpected default transport type %T", http.DefaultTransport)
	}

	transport = transport.Clone()
	transport.DialContext = (&net.Dialer{Timeout: options.ConnectionTimeout}).DialContext

	client := http.Client{
		Timeout:   options.Timeout,
		Transport: transport,
	}
	defer client.CloseIdleConnections()

	if options.NoRedirect {
		client.CheckRedirect = func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}

	a.logger.Debug("Sending request", "method", resolved.Method, "url", resolved.URL, "timeout", options.Timeout)

	response, err := client.Do(httpRequest)
	if err != nil {
		return fmt.Errorf("HTTP: %w", err)
	}

	if response == nil {
		return errors.New("nil response")
	}

	defer response.Body.Close()

	responseBody, err := io.ReadAll(response.Body)
	if err != nil {
		return err
	}

	a.logger.Debug("Got response", "status", response.StatusCode, "bytes", len(responseBody))

	return printResponse(a.stdout, response, responseBody)
}

// Env implements the `restcli env` subcommand.
//
// Each arg is either KEY:VALUE to set a variable or !KEY to delete one. The
// resulting environment is printed and, if save is true, written back to its file.
func (a *App) Env(args []string, save bool) error {
	set, del, err := collection.ParseEnvArgs(args...)
	if err != nil {
		return err
	}

	a.env.Update(set)
	a.env.Remove(del...)

	a.logger.Debug("Updated environment", "set", set.Keys(), "deleted", del)

	fmt.Fprint(a.stdout, a.env.String())

	if !save {
		return nil
	}

	if err := a.env.Save(); err != nil {
		return fmt.Errorf("could not save environment: %w", err)
	}

	msg.Fsuccess(a.stderr, "Saved environment to %s", a.env.Source)
	return nil
}

// mutate applies lexemes to a copy of the named request, reporting any failures on
// stderr. err is only non-nil if the request could not be found.
func (a *App) mutate(group, request string, lexemes []mod.Lexeme) (*document.Mapping, []error, error) {
	r, err := a.collection.Request(group, request)
	if err != nil {
		return nil, nil, err
	}

	a.logger.Debug("Applying mutations", "request", group+"/"+request, "lexemes", len(lexemes))
	for _, lexeme := range lexemes {
		a.logger.Debug(lexeme.String())
	}

	mutated, errs := parser.Apply(lexemes, r.Params)
	if len(errs) != 0 {
		mod.Report(a.stderr, len(lexemes), errs)
		msg.Fwarn(a.stderr, "%d of %d mutations could not be applied", len(errs), len(lexemes))
	}

	return mutated, errs, nil
}

// print writes value to stdout, scalars as plain text and anything else as YAML.
func (a *App) print(value document.Value) error {
	if value.Kind() == document.KindScalar {
		text := value.Text()
		if !strings.HasSuffix(text, "\n") {
			text += "\n"
		}
		_, err := io.WriteString(a.stdout, text)
		return err
	}

	out, err := document.Encode(value)
	if err != nil {
		return err
	}

	_, err = a.stdout.Write(out)
	return err
}

// printResponse writes the status line, headers and body of response to w. A JSON
// body is indented.
func printResponse(w io.Writer, response *http.Response, body []byte) error {
	fmt.Fprintf(w, "%s %s\n", response.Proto, response.Status)

	for _, key := range slices.Sorted(maps.Keys(response.Header)) {
		for _, value := range response.Header[key] {
			fmt.Fprintf(w, "%s: %s\n", key, value)
		}
	}

	if len(body) == 0 {
		return nil
	}

	fmt.Fprintln(w)

	if json.Valid(body) {
		indented := &bytes.Buffer{}
		if err := json.Indent(indented, body, "", "  "); err == nil {
			body = indented.Bytes()
		}
	}

	if _, err := w.Write(body); err != nil {
		return err
	}

	if !bytes.HasSuffix(body, []byte("\n")) {
		fmt.Fprintln(w)
	}

	return nil
}
