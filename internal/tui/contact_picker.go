package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/robby/pflow/internal/domain"
)

// contactItem wraps a domain.Contact for use in bubbles/list.
type contactItem struct {
	contact domain.Contact
}

func (i contactItem) FilterValue() string {
	return i.contact.Name + " " + i.contact.Company + " " + i.contact.Email
}

func (i contactItem) Title() string {
	return i.contact.Name
}

func (i contactItem) Description() string {
	var parts []string
	if i.contact.Company != "" {
		parts = append(parts, i.contact.Company)
	}
	if i.contact.Email != "" {
		parts = append(parts, i.contact.Email)
	}
	if len(parts) == 0 {
		return "No company or email"
	}
	return strings.Join(parts, " · ")
}

// contactDelegate is a custom item delegate for contact items.
type contactDelegate struct{}

func (d contactDelegate) Height() int                             { return 2 }
func (d contactDelegate) Spacing() int                            { return 1 }
func (d contactDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }
func (d contactDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	i, ok := item.(contactItem)
	if !ok {
		return
	}

	str := fmt.Sprintf("%d. %s", index+1, i.Title())
	desc := i.Description()

	if index == m.Index() {
		fmt.Fprint(w, SelectedItemStyle.Render("> "+str))
		fmt.Fprint(w, "\n  "+NormalItemStyle.Render(desc))
	} else {
		fmt.Fprint(w, NormalItemStyle.Render("  "+str))
		fmt.Fprint(w, "\n  "+lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Render(desc))
	}
}

// ContactPickerModel displays the contact directory for the user to pick
// the contact a deal belongs to.
type ContactPickerModel struct {
	list list.Model
}

// NewContactPickerModel creates a picker over contacts with selectedID
// highlighted when present.
func NewContactPickerModel(contacts []domain.Contact, selectedID string) ContactPickerModel {
	items := make([]list.Item, len(contacts))
	selected := 0
	for i, c := range contacts {
		items[i] = contactItem{contact: c}
		if c.ID == selectedID {
			selected = i
		}
	}

	l := list.New(items, contactDelegate{}, 80, 20)
	l.Title = "Select a Contact"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(true)
	l.Styles.Title = TitleStyle
	l.Select(selected)

	return ContactPickerModel{list: l}
}

// Init initializes the model.
func (m ContactPickerModel) Init() tea.Cmd {
	return tea.WindowSize()
}

// Update handles messages and updates the model state.
func (m ContactPickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.list.SetWidth(msg.Width - 2)
		m.list.SetHeight(msg.Height - 2)
		return m, nil

	case tea.KeyMsg:
		if m.list.SettingFilter() {
			break
		}
		switch msg.String() {
		case "q", "esc":
			return m, func() tea.Msg {
				return pickerClosedMsg{}
			}
		case "enter":
			if item, ok := m.list.SelectedItem().(contactItem); ok {
				return m, func() tea.Msg {
					return ContactSelectedMsg{Contact: item.contact}
				}
			}
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// View renders the model.
func (m ContactPickerModel) View() string {
	if len(m.list.Items()) == 0 {
		return ErrorStyle.Render("No contacts yet. Add one before creating deals.") +
			"\n\n" + HelpStyle.Render("esc to go back")
	}
	return m.list.View()
}
