package restcli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"

	"go.followtheprocess.codes/hue"
	"go.followtheprocess.codes/msg"
	"go.followtheprocess.codes/restcli/internal/mod/lexer"
	"go.followtheprocess.codes/restcli/internal/mod/scanner"
)

const prompt = "> "

const shellHelp = `Commands:

  view <group> [request [attr]]   Show a group, request or request parameter
  mod <group> <request> [mods]    Show a request with modifications applied
  run <group> <request> [mods]    Send a request with modifications applied
  env [KEY:VALUE | !KEY ...]      Show or change the environment
  save                            Write the environment back to its file
  reload                          Reload the collection and environment
  help                            Show this help
  quit                            Exit the shell

Modifications:

  -n, --assign path:value         Set path to value
  -a, --append path:value         Append value to the list at path
  -d, --delete path               Delete path
  path:value                      Same as --assign
`

// errQuit stops the shell loop.
var errQuit = errors.New("quit")

// Shell implements the `restcli shell` subcommand, reading one command per line from r
// until EOF or "quit".
//
// A failing command is reported and the shell carries on, only errors reading r
// are returned.
func (a *App) Shell(ctx context.Context, r io.Reader, options RunOptions) error {
	lines := bufio.NewScanner(r)

	fmt.Fprint(a.stdout, prompt)
	for lines.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := a.exec(ctx, lines.Text(), options)
		if errors.Is(err, errQuit) {
			return nil
		}
		if err != nil {
			hue.Red.Fprintf(a.stderr, "error: %v\n", err)
		}

		fmt.Fprint(a.stdout, prompt)
	}

	fmt.Fprintln(a.stdout)
	return lines.Err()
}

// exec runs a single shell line.
func (a *App) exec(ctx context.Context, line string, options RunOptions) error {
	command, rest := nextWord(line)

	switch command {
	case "":
		return nil
	case "quit", "exit":
		return errQuit
	case "help":
		fmt.Fprint(a.stdout, shellHelp)
		return nil
	case "reload":
		if err := a.load(); err != nil {
			return err
		}
		msg.Fsuccess(a.stdout, "Reloaded %s", a.options.Collection)
		return nil
	case "save":
		if err := a.env.Save(); err != nil {
			return err
		}
		msg.Fsuccess(a.stdout, "Saved environment to %s", a.env.Source)
		return nil
	case "env":
		var args []string
		if strings.TrimSpace(rest) != "" {
			args = scanner.Tokenize(strings.TrimSpace(rest))
		}
		return a.Env(args, false)
	case "view":
		args := strings.Fields(rest)
		if len(args) == 0 || len(args) > 3 {
			return errors.New("usage: view <group> [request [attr]]")
		}
		args = append(args, "", "")
		return a.View(args[0], args[1], args[2])
	case "mod", "run":
		group, rest := nextWord(rest)
		request, rest := nextWord(rest)
		if group == "" || request == "" {
			return fmt.Errorf("usage: %s <group> <request> [mods]", command)
		}

		// The rest of the line is handed to the lexer as is, quotes and all
		lexemes, err := lexer.Lex(strings.TrimSpace(rest))
		if err != nil {
			return err
		}

		// No modifications at all lexes to a single empty assign, drop it
		if strings.TrimSpace(rest) == "" {
			lexemes = nil
		}

		if command == "mod" {
			return a.Mod(group, request, lexemes)
		}
		return a.Run(ctx, group, request, lexemes, options)
	default:
		return fmt.Errorf("unknown command %q, try help", command)
	}
}

// nextWord returns the first whitespace separated word of s and everything after it.
func nextWord(s string) (word, rest string) {
	s = strings.TrimLeftFunc(s, unicode.IsSpace)
	end := strings.IndexFunc(s, unicode.IsSpace)
	if end == -1 {
		return s, ""
	}
	return s[:end], s[end:]
}
