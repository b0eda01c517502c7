// Package list implements a simple bubbletea list component to pick a request from a collection.
package list

import (
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"go.followtheprocess.codes/restcli/internal/collection"
	"go.followtheprocess.codes/restcli/internal/tui/theme"
)

// Model is the list tea Model.
type Model struct {
	l        list.Model         // The base list bubble
	selected collection.Request // The picked request
	picked   bool               // Whether a request was picked before quitting
}

// New returns a new [Model] listing requests.
func New(title string, requests []collection.Request) Model {
	items := make([]list.Item, 0, len(requests))
	for _, request := range requests {
		items = append(items, request)
	}

	palette := theme.Macchiato

	delegate := list.NewDefaultDelegate()
	delegate.Styles.NormalTitle, delegate.Styles.NormalDesc = palette.Normal()
	delegate.Styles.SelectedTitle, delegate.Styles.SelectedDesc = palette.Selected()

	l := list.New(items, delegate, 0, 0)
	l.Title = title
	l.Styles.Title = palette.Title()

	return Model{
		l: l,
	}
}

// Init helps implement [tea.Model] for [Model].
func (m Model) Init() tea.Cmd {
	return nil
}

// Update updates the UI in response to messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		// While filtering, keys belong to the filter input
		if m.l.FilterState() == list.Filtering {
			break
		}

		switch msg.String() {
		case "ctrl+c", "q", "esc":
			return m, tea.Quit
		case "enter":
			if request, ok := m.l.SelectedItem().(collection.Request); ok {
				m.selected = request
				m.picked = true
			}

			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.l.SetSize(msg.Width, msg.Height)
	}

	var cmd tea.Cmd

	m.l, cmd = m.l.Update(msg)

	return m, cmd
}

// View renders the UI to the user.
func (m Model) View() string {
	return m.l.View()
}

// Selected returns the picked request, ok is false if the user quit without picking.
func (m Model) Selected() (request collection.Request, ok bool) {
	return m.selected, m.picked
}
