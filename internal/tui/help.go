package tui

import (
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// HelpOverlayStyle frames the key reference of a screen.
var HelpOverlayStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(lipgloss.Color("62")).
	Padding(1, 2).
	MarginTop(2)

// helpClose dismisses an open key reference.
var helpClose = key.NewBinding(key.WithKeys("?", "q", "esc"), key.WithHelp("?/esc", "close"))

// HelpModel is the full key reference of one screen, titled with the
// screen's name.
type HelpModel struct {
	title  string
	help   help.Model
	keymap help.KeyMap
}

// NewHelpModel creates the key reference for a screen.
func NewHelpModel(title string, keymap help.KeyMap) HelpModel {
	h := help.New()
	h.ShowAll = true

	return HelpModel{
		title:  title,
		help:   h,
		keymap: keymap,
	}
}

// Closes reports whether msg dismisses the reference.
func (m HelpModel) Closes(msg tea.KeyMsg) bool {
	return key.Matches(msg, helpClose)
}

// View renders the reference inside width columns.
func (m HelpModel) View(width int) string {
	m.help.Width = width - 8 // Account for padding and border
	body := lipgloss.JoinVertical(lipgloss.Left,
		TitleStyle.Render(m.title+" keys"),
		m.help.View(m.keymap),
		"",
		m.help.ShortHelpView([]key.Binding{helpClose}),
	)
	return HelpOverlayStyle.Render(body)
}
