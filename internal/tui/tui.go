// Package tui implements the terminal user interface for picking a request from a collection.
package tui

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"go.followtheprocess.codes/restcli/internal/restcli"
	"go.followtheprocess.codes/restcli/internal/tui/components/list"
)

// Run runs the TUI, this is what happens when users call `restcli` with no arguments.
//
// The picked request is sent without modifications, quitting without picking is
// not an error.
func Run(ctx context.Context, app *restcli.App, options restcli.RunOptions) error {
	c := app.Collection()

	requests := c.Requests()
	if len(requests) == 0 {
		return errors.New("the collection has no requests")
	}

	model := list.New("Requests in "+c.Source, requests)

	tm, err := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if err != nil {
		return err
	}

	final, ok := tm.(list.Model)
	if !ok {
		return fmt.Errorf("tui error, list final model was not as expected: %T", tm)
	}

	request, ok := final.Selected()
	if !ok {
		return nil
	}

	return app.Run(ctx, request.Group, request.Name, nil, options)
}
