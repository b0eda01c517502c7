// Package cmd implements restcli's CLI.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"go.followtheprocess.codes/cli"
	"go.followtheprocess.codes/restcli/internal/mod/lexer"
	"go.followtheprocess.codes/restcli/internal/restcli"
	"go.followtheprocess.codes/restcli/internal/tui"
)

var (
	version = "dev"
	commit  = ""
	date    = ""
)

const rootLong = `
Requests live in a YAML collection file, grouped by name, and may use
'{{ .name }}' templates filled in from a YAML environment file.

Run with no arguments to pick a request interactively, or use the
subcommands to view, modify and run requests directly. Modifications
come after '--' so they are not mistaken for restcli's own flags:

    restcli run authors create -- -n 'headers.Authorization:JWT abc' body.age:42
`

// Build returns the root restcli CLI command.
func Build() (*cli.Command, error) {
	var (
		options    restcli.Options
		runOptions restcli.RunOptions
	)

	return cli.New(
		"restcli",
		append(
			globalFlags(&options),
			cli.Short("A YAML collection based HTTP client for the command line"),
			cli.Long(rootLong),
			cli.Allow(cli.NoArgs()),
			cli.Version(version),
			cli.Commit(commit),
			cli.BuildDate(date),
			cli.Flag(&runOptions.Timeout, "timeout", cli.NoShortHand, 0, "Timeout for the picked request"),
			cli.Run(func(cmd *cli.Command, args []string) error {
				app, err := restcli.New(cmd.Stdout(), cmd.Stderr(), options)
				if err != nil {
					return err
				}

				ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
				defer cancel()

				return tui.Run(ctx, app, runOptions)
			}),
			cli.SubCommands(view, mod, run, env, shell),
		)...,
	)
}

// globalFlags returns the flags shared by every command.
func globalFlags(options *restcli.Options) []cli.Option {
	return []cli.Option{
		cli.Flag(
			&options.Collection,
			"collection",
			'c',
			os.Getenv(restcli.EnvCollection),
			"Path to the collection file, defaults to $"+restcli.EnvCollection,
		),
		cli.Flag(&options.Env, "env", 'e', os.Getenv(restcli.EnvEnv), "Path to the environment file, defaults to $"+restcli.EnvEnv),
		cli.Flag(&options.Verbose, "verbose", 'v', false, "Enable debug logging"),
	}
}

// view returns the view subcommand.
func view() (*cli.Command, error) {
	var options restcli.Options
	return cli.New(
		"view",
		append(
			globalFlags(&options),
			cli.Short("Show a group, request or request parameter from the collection"),
			cli.Allow(cli.MinArgs(1)),
			cli.Run(func(cmd *cli.Command, args []string) error {
				if len(args) > 3 {
					return fmt.Errorf("view takes at most 3 arguments (group, request, attribute), got %d", len(args))
				}

				app, err := restcli.New(cmd.Stdout(), cmd.Stderr(), options)
				if err != nil {
					return err
				}

				args = append(args, "", "")
				return app.View(args[0], args[1], args[2])
			}),
		)...,
	)
}

const modLong = `
Modifications are applied to a copy of the request which is printed as
YAML, nothing is sent and the collection file is left as it is.

  -n, --assign path:value   Set path to value, creating mappings as needed
  -a, --append path:value   Append value to the list at path
  -d, --delete path         Delete path
  path:value                Same as --assign

Assignments happen first, then appends, then deletes, then any bare
path:value arguments. Paths are dot separated keys, use '\.' for a
literal dot in a key.
`

// mod returns the mod subcommand.
func mod() (*cli.Command, error) {
	var options restcli.Options
	return cli.New(
		"mod",
		append(
			globalFlags(&options),
			cli.Short("Show a request with modifications applied"),
			cli.Long(modLong),
			cli.Allow(cli.MinArgs(2)),
			cli.Run(func(cmd *cli.Command, args []string) error {
				app, err := restcli.New(cmd.Stdout(), cmd.Stderr(), options)
				if err != nil {
					return err
				}

				lexemes, err := lexer.LexArgs(mods(args[2:]))
				if err != nil {
					return err
				}

				return app.Mod(args[0], args[1], lexemes)
			}),
		)...,
	)
}

const runLong = `
The request is modified exactly as with 'restcli mod', then templates are
filled in from the environment and the request is sent. If any modification
fails the request is not sent unless '--force' is given.
`

// run returns the run subcommand.
func run() (*cli.Command, error) {
	var (
		options    restcli.Options
		runOptions restcli.RunOptions
	)
	return cli.New(
		"run",
		append(
			globalFlags(&options),
			cli.Short("Send a request from the collection"),
			cli.Long(runLong),
			cli.Allow(cli.MinArgs(2)),
			cli.Flag(&runOptions.Timeout, "timeout", cli.NoShortHand, 0, "Timeout for the request"),
			cli.Flag(
				&runOptions.ConnectionTimeout,
				"connection-timeout",
				cli.NoShortHand,
				0,
				"Connection timeout for the request",
			),
			cli.Flag(&runOptions.NoRedirect, "no-redirect", cli.NoShortHand, false, "Disable following redirects"),
			cli.Flag(&runOptions.Force, "force", 'f', false, "Send the request even if modifications failed"),
			cli.Run(func(cmd *cli.Command, args []string) error {
				app, err := restcli.New(cmd.Stdout(), cmd.Stderr(), options)
				if err != nil {
					return err
				}

				lexemes, err := lexer.LexArgs(mods(args[2:]))
				if err != nil {
					return err
				}

				ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
				defer cancel()

				return app.Run(ctx, args[0], args[1], lexemes, runOptions)
			}),
		)...,
	)
}

// env returns the env subcommand.
func env() (*cli.Command, error) {
	var (
		options restcli.Options
		save    bool
	)
	return cli.New(
		"env",
		append(
			globalFlags(&options),
			cli.Short("Show or change the environment"),
			cli.Long("\nArguments of the form KEY:VALUE set KEY, the value is parsed as YAML.\nArguments of the form !KEY delete KEY.\n"),
			cli.Flag(&save, "save", 's', false, "Write the changes back to the environment file"),
			cli.Run(func(cmd *cli.Command, args []string) error {
				app, err := restcli.New(cmd.Stdout(), cmd.Stderr(), options)
				if err != nil {
					return err
				}
				return app.Env(args, save)
			}),
		)...,
	)
}

// shell returns the shell subcommand.
func shell() (*cli.Command, error) {
	var (
		options    restcli.Options
		runOptions restcli.RunOptions
	)
	return cli.New(
		"shell",
		append(
			globalFlags(&options),
			cli.Short("Start an interactive shell over the collection"),
			cli.Allow(cli.NoArgs()),
			cli.Flag(&runOptions.Timeout, "timeout", cli.NoShortHand, 0, "Timeout for each request"),
			cli.Flag(&runOptions.NoRedirect, "no-redirect", cli.NoShortHand, false, "Disable following redirects"),
			cli.Run(func(cmd *cli.Command, args []string) error {
				app, err := restcli.New(cmd.Stdout(), cmd.Stderr(), options)
				if err != nil {
					return err
				}

				ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
				defer cancel()

				return app.Shell(ctx, os.Stdin, runOptions)
			}),
		)...,
	)
}

// mods returns the modification arguments from args, dropping a leading "--"
// if the argument parser left it in.
func mods(args []string) []string {
	if len(args) != 0 && args[0] == "--" {
		return args[1:]
	}
	return args
}
