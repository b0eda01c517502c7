// Package theme provides the colours and lipgloss styles used by the restcli TUI.
package theme

import "github.com/charmbracelet/lipgloss"

// Palette is the small set of colours the TUI draws with.
type Palette struct {
	Accent  lipgloss.Color // Title background and the selected request
	Text    lipgloss.Color // Request titles
	Subtext lipgloss.Color // Request descriptions
	Crust   lipgloss.Color // Text drawn over Accent
}

// Macchiato is the Catppuccin Macchiato flavour.
// See https://catppuccin.com/palette/.
var Macchiato = Palette{
	Accent:  lipgloss.Color("#c6a0f6"),
	Text:    lipgloss.Color("#cad3f5"),
	Subtext: lipgloss.Color("#a5adcb"),
	Crust:   lipgloss.Color("#181926"),
}

// Title returns the style for the list title bar.
func (p Palette) Title() lipgloss.Style {
	return lipgloss.NewStyle().
		Background(p.Accent).
		Foreground(p.Crust).
		Bold(true).
		Padding(0, 1)
}

// Normal returns the styles for an unselected request title and description.
func (p Palette) Normal() (title, desc lipgloss.Style) {
	title = lipgloss.NewStyle().Foreground(p.Text).Padding(0, 0, 0, 2)
	desc = lipgloss.NewStyle().Foreground(p.Subtext).Padding(0, 0, 0, 2)
	return title, desc
}

// Selected returns the styles for the selected request title and description.
func (p Palette) Selected() (title, desc lipgloss.Style) {
	title = lipgloss.NewStyle().
		Border(lipgloss.NormalBorder(), false, false, false, true).
		BorderForeground(p.Accent).
		Foreground(p.Accent).
		Padding(0, 0, 0, 1)
	desc = title.Foreground(p.Subtext)
	return title, desc
}
