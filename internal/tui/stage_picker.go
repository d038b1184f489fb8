package tui

import (
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/robby/pflow/internal/domain"
)

// stageItem represents a stage in the list.
type stageItem struct {
	stage   domain.Stage
	current bool
}

func (i stageItem) FilterValue() string { return i.stage.Label() }

// stageItemDelegate handles rendering of stage items.
type stageItemDelegate struct{}

func (d stageItemDelegate) Height() int                             { return 1 }
func (d stageItemDelegate) Spacing() int                            { return 0 }
func (d stageItemDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }
func (d stageItemDelegate) Render(w io.Writer, m list.Model, index int, listItem list.Item) {
	i, ok := listItem.(stageItem)
	if !ok {
		return
	}

	// Format: N. Label (current)
	str := fmt.Sprintf("%d. %s", index+1, i.stage.Label())
	if i.current {
		str += " (current)"
	}

	dot := lipgloss.NewStyle().Foreground(stageColor(i.stage)).Render("●")
	if index == m.Index() {
		fmt.Fprint(w, SelectedItemStyle.Render("> ")+dot+" "+SelectedItemStyle.Render(str))
		return
	}
	fmt.Fprint(w, "  "+dot+" "+NormalItemStyle.Render(str))
}

// StagePickerModel lets the user choose a pipeline stage.
type StagePickerModel struct {
	list list.Model
}

// NewStagePickerModel creates a stage picker with current preselected.
func NewStagePickerModel(current domain.Stage) StagePickerModel {
	stages := domain.Stages()
	items := make([]list.Item, len(stages))
	for i, st := range stages {
		items[i] = stageItem{stage: st, current: st == current}
	}

	// Start with a reasonable default - will be resized by WindowSizeMsg
	l := list.New(items, stageItemDelegate{}, 40, len(stages)+6)
	l.Title = "Move to Stage"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.Styles.Title = TitleStyle
	l.Styles.PaginationStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	l.Styles.HelpStyle = HelpStyle
	if i := current.Index(); i >= 0 {
		l.Select(i)
	}

	return StagePickerModel{list: l}
}

// Init initializes the model.
func (m StagePickerModel) Init() tea.Cmd {
	return nil
}

// Update handles messages.
func (m StagePickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "enter":
			if item, ok := m.list.SelectedItem().(stageItem); ok {
				return m, func() tea.Msg {
					return StageSelectedMsg{Stage: item.stage}
				}
			}
		case "1", "2", "3", "4", "5":
			idx := int(msg.Runes[0] - '1')
			if idx < len(m.list.Items()) {
				item := m.list.Items()[idx].(stageItem)
				return m, func() tea.Msg {
					return StageSelectedMsg{Stage: item.stage}
				}
			}
		case "q", "esc":
			return m, func() tea.Msg {
				return pickerClosedMsg{}
			}
		}

	case tea.WindowSizeMsg:
		m.list.SetWidth(msg.Width - 2)
		m.list.SetHeight(msg.Height - 4)
		return m, nil
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// View renders the model.
func (m StagePickerModel) View() string {
	return m.list.View()
}
