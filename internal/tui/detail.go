package tui

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
	"github.com/pkg/browser"

	"github.com/robby/pflow/internal/domain"
	"github.com/robby/pflow/internal/gateway"
	"github.com/robby/pflow/internal/pipeline"
)

// Layout constants
const (
	leftPanelRatio = 0.35 // Left panel takes 35% of width
	minLeftWidth   = 30
	maxLeftWidth   = 50
	headerHeight   = 1
	footerHeight   = 1
	borderSize     = 2 // Top + bottom border

	timelineLimit = 100
)

// Detail view styles
var (
	detailTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("205"))

	detailLabelStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("241"))

	detailValueStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("252"))

	activityTypeStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("212")).
				Bold(true)

	activityTimeStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("241"))

	activityBodyStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("252"))

	panelBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("240"))

	focusedPanelBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("205"))

	scrollIndicatorStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("205"))

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("228")).
			Bold(true)
)

// DetailModel shows one deal with its contact's activity timeline
type DetailModel struct {
	// Dependencies
	board      *pipeline.Board
	activities gateway.Collection[domain.Activity]
	ctx        context.Context

	// Deal data
	initial  domain.Deal
	timeline []domain.Activity

	// UI components
	spinner   spinner.Model
	noteInput textarea.Model
	viewport  viewport.Model

	// State
	noteMode        bool
	activityType    string
	confirmExit     bool // Show "unsaved changes" prompt
	closeAfterSave  bool
	loading         bool
	loadingAction   string
	loadingTimeline bool
	timelineError   string
	errorMsg        string
	successMsg      string

	// View dimensions
	width  int
	height int
}

// NewDetailModel creates a new detail view model
func NewDetailModel(deal domain.Deal, b *pipeline.Board, activities gateway.Collection[domain.Activity], ctx context.Context) DetailModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	vp := viewport.New(40, 10) // Will be resized in WindowSizeMsg
	vp.MouseWheelEnabled = true
	vp.MouseWheelDelta = 3

	return DetailModel{
		board:           b,
		activities:      activities,
		ctx:             ctx,
		initial:         deal,
		spinner:         sp,
		noteInput:       newActivityInput(),
		activityType:    domain.ActivityNote,
		viewport:        vp,
		loadingTimeline: deal.ContactID != "",
	}
}

// Init initializes the detail model
func (m DetailModel) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spinner.Tick, tea.WindowSize()}
	if m.initial.ContactID != "" {
		cmds = append(cmds, m.loadTimeline())
	}
	return tea.Batch(cmds...)
}

// Capturing reports whether a note is being written.
func (m DetailModel) Capturing() bool {
	return m.noteMode || m.confirmExit
}

// deal returns the latest confirmed copy of the deal, so a move that
// resolves while the view is open is reflected.
func (m DetailModel) deal() domain.Deal {
	if d, err := m.board.Store().Get(m.initial.ID); err == nil {
		return d
	}
	return m.initial
}

func (m DetailModel) contact() (domain.Contact, bool) {
	id := m.deal().ContactID
	for _, c := range m.board.Store().Contacts() {
		if c.ID == id {
			return c, true
		}
	}
	return domain.Contact{}, false
}

// Update handles messages
func (m DetailModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizeComponents()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case activityLoggedMsg:
		m.loading = false
		if msg.err != nil {
			m.closeAfterSave = false
			m.errorMsg = fmt.Sprintf("Failed: %v", msg.err)
			return m, nil
		}
		m.noteMode = false
		m.successMsg = activityLabel(msg.kind) + " logged"
		m.noteInput.Reset()
		m.noteInput.Blur()
		if m.closeAfterSave {
			return m, func() tea.Msg { return closeDetailMsg{} }
		}
		m.loadingTimeline = true
		return m, m.loadTimeline()

	case timelineLoadedMsg:
		m.loadingTimeline = false
		m.timelineError = ""
		m.timeline = msg.activities
		m.updateViewportContent()
		return m, nil

	case timelineErrorMsg:
		m.loadingTimeline = false
		m.timelineError = msg.err.Error()
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.MouseMsg:
		if !m.noteMode {
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	// Update textarea when writing (for blink, etc.)
	if m.noteMode {
		var cmd tea.Cmd
		m.noteInput, cmd = m.noteInput.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

// resizeComponents calculates and sets component dimensions
func (m *DetailModel) resizeComponents() {
	leftWidth := int(float64(m.width) * leftPanelRatio)
	if leftWidth < minLeftWidth {
		leftWidth = minLeftWidth
	}
	if leftWidth > maxLeftWidth {
		leftWidth = maxLeftWidth
	}

	rightWidth := m.width - leftWidth - 3 // 3 = gap between panels
	if rightWidth < 30 {
		rightWidth = 30
	}

	contentHeight := m.height - headerHeight - footerHeight - borderSize
	if contentHeight < 10 {
		contentHeight = 10
	}

	m.viewport.Width = rightWidth - borderSize - 2
	m.viewport.Height = contentHeight - borderSize - 1 // Panel title
	m.noteInput.SetWidth(rightWidth - borderSize - 4)

	if len(m.timeline) > 0 {
		m.updateViewportContent()
	}
}

// handleKeyPress processes keyboard input
func (m DetailModel) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	// Confirm exit dialog
	if m.confirmExit {
		switch msg.String() {
		case "y", "Y":
			// Discard and exit
			m.confirmExit = false
			m.noteMode = false
			m.noteInput.Reset()
			m.noteInput.Blur()
			return m, func() tea.Msg { return closeDetailMsg{} }
		case "n", "N", "esc":
			m.confirmExit = false
			return m, nil
		case "s", "S":
			// Save and exit
			m.confirmExit = false
			if note := strings.TrimSpace(m.noteInput.Value()); note != "" {
				m.loading = true
				m.closeAfterSave = true
				m.loadingAction = "Saving " + m.activityType + "..."
				return m, m.postActivity(note)
			}
			return m, nil
		}
		return m, nil
	}

	// Note mode - textarea gets all key events except special ones
	if m.noteMode {
		switch msg.String() {
		case "esc":
			if strings.TrimSpace(m.noteInput.Value()) != "" {
				m.confirmExit = true
				return m, nil
			}
			m.noteMode = false
			m.noteInput.Blur()
			return m, nil
		case "tab":
			m.activityType = nextActivityType(m.activityType)
			return m, nil
		case "ctrl+s":
			if note := strings.TrimSpace(m.noteInput.Value()); note != "" && !m.loading {
				m.loading = true
				m.loadingAction = "Saving " + m.activityType + "..."
				return m, m.postActivity(note)
			}
			return m, nil
		default:
			var cmd tea.Cmd
			m.noteInput, cmd = m.noteInput.Update(msg)
			return m, cmd
		}
	}

	// Normal mode - viewport scrolling
	switch msg.String() {
	case "q", "esc":
		return m, func() tea.Msg { return closeDetailMsg{} }
	case "e":
		d := m.deal()
		return m, func() tea.Msg { return editDealMsg{deal: d} }
	case "o":
		if c, ok := m.contact(); ok && c.Email != "" {
			if err := browser.OpenURL("mailto:" + c.Email); err != nil {
				m.errorMsg = "Could not open mail client"
			}
		}
	case "n", "c", "a":
		if m.deal().ContactID == "" {
			m.errorMsg = "Link a contact before logging activity"
			return m, nil
		}
		m.noteMode = true
		m.activityType = domain.ActivityNote
		if msg.String() == "c" {
			m.activityType = domain.ActivityCall
		}
		m.noteInput.Focus()
		m.errorMsg = ""
		m.successMsg = ""
		return m, textarea.Blink
	case "r":
		if m.deal().ContactID != "" {
			m.loadingTimeline = true
			return m, m.loadTimeline()
		}
	case "j", "down":
		m.viewport.LineDown(1)
	case "k", "up":
		m.viewport.LineUp(1)
	case "ctrl+d":
		m.viewport.HalfViewDown()
	case "ctrl+u":
		m.viewport.HalfViewUp()
	case "g":
		m.viewport.GotoTop()
	case "G":
		m.viewport.GotoBottom()
	}

	return m, nil
}

// View renders the split-screen detail view
func (m DetailModel) View() string {
	width := m.width
	height := m.height
	if width == 0 {
		width = 100
	}
	if height == 0 {
		height = 30
	}

	leftWidth := int(float64(width) * leftPanelRatio)
	if leftWidth < minLeftWidth {
		leftWidth = minLeftWidth
	}
	if leftWidth > maxLeftWidth {
		leftWidth = maxLeftWidth
	}
	rightWidth := width - leftWidth - 1 // 1 char gap

	contentHeight := height - headerHeight - footerHeight
	if contentHeight < 10 {
		contentHeight = 10
	}

	header := m.renderHeader()

	leftContent := m.renderLeftPanel(leftWidth-borderSize, contentHeight-borderSize)
	leftPanel := panelBorderStyle.
		Width(leftWidth - borderSize).
		Height(contentHeight - borderSize).
		Render(leftContent)

	rightContent := m.renderRightPanel(contentHeight - borderSize)
	rightBorder := focusedPanelBorderStyle
	if m.noteMode {
		rightBorder = panelBorderStyle // Unfocus when typing
	}
	rightPanel := rightBorder.
		Width(rightWidth - borderSize).
		Height(contentHeight - borderSize).
		Render(rightContent)

	panels := lipgloss.JoinHorizontal(lipgloss.Top, leftPanel, " ", rightPanel)
	footer := m.renderFooter(width)

	return lipgloss.JoinVertical(lipgloss.Left, header, panels, footer)
}

// renderHeader renders the top help bar
func (m DetailModel) renderHeader() string {
	if m.confirmExit {
		return warningStyle.Render("Unsaved " + m.activityType + "! [Y]discard [N]cancel [S]save and exit")
	}
	if m.noteMode {
		return dimStyle.Render("[Ctrl+S]save [Tab]type [ESC]cancel") + "  " +
			activityTypeStyle.Render("Logging "+m.activityType+"...")
	}
	return dimStyle.Render("[q]back [e]edit [n]note [c]call [a]activity [o]email [r]reload [j/k]scroll [g/G]top/bottom")
}

// renderFooter renders the bottom status bar
func (m DetailModel) renderFooter(width int) string {
	var left, right string

	switch {
	case m.loading:
		left = m.spinner.View() + " " + m.loadingAction
	case m.successMsg != "":
		left = SuccessStyle.Render("✓ " + m.successMsg)
	case m.errorMsg != "":
		left = errorStyle.Render("✗ " + m.errorMsg)
	case m.noteMode:
		left = fmt.Sprintf("%d chars", len(m.noteInput.Value()))
	}

	if len(m.timeline) > 0 && !m.noteMode {
		switch {
		case m.viewport.AtTop():
			right = "TOP"
		case m.viewport.AtBottom():
			right = "END"
		default:
			right = fmt.Sprintf("%d%%", int(m.viewport.ScrollPercent()*100))
		}
	}

	padding := width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if padding < 1 {
		padding = 1
	}
	return dimStyle.Render(left) + strings.Repeat(" ", padding) + dimStyle.Render(right)
}

func (m DetailModel) field(b *strings.Builder, label, value string, style lipgloss.Style) {
	if value == "" {
		return
	}
	b.WriteString(detailLabelStyle.Render(label + ": "))
	b.WriteString(style.Render(value))
	b.WriteString("\n")
}

// renderLeftPanel renders the deal metadata panel
func (m DetailModel) renderLeftPanel(width, height int) string {
	d := m.deal()
	now := m.board.Now()
	var b strings.Builder

	stage := lipgloss.NewStyle().Foreground(stageColor(d.Stage)).Bold(true).Render(d.Stage.Label())
	b.WriteString(stage)
	switch m.board.Phase(d.ID) {
	case pipeline.Committing:
		b.WriteString(" " + m.spinner.View() + dimStyle.Render("saving"))
	case pipeline.Idle:
		if m.board.Stagnant(d) {
			b.WriteString(" " + stagnantStyle.Render("⚠ stagnant"))
		}
	}
	b.WriteString("\n\n")

	b.WriteString(detailTitleStyle.Render(wordwrap.String(d.Title, width-2)))
	b.WriteString("\n\n")

	m.field(&b, "Value", domain.FormatMoney(d.Value), detailValueStyle.Bold(true))
	m.field(&b, "In stage", daysInStage(d.DaysInStage(now)), detailValueStyle)
	if !d.ExpectedCloseDate.IsZero() {
		closeStyle := detailValueStyle
		if d.Active() && now.After(d.ExpectedCloseDate) {
			closeStyle = warningStyle
		}
		m.field(&b, "Closes", d.ExpectedCloseDate.Format("Jan 2, 2006"), closeStyle)
	}
	if !d.CreatedAt.IsZero() {
		m.field(&b, "Created", d.CreatedAt.Format("Jan 2, 2006"), detailValueStyle)
	}

	b.WriteString("\n")
	b.WriteString(detailLabelStyle.Render("Contact"))
	b.WriteString("\n")
	if c, ok := m.contact(); ok {
		b.WriteString(detailValueStyle.Bold(true).Render(c.Name))
		b.WriteString("\n")
		m.field(&b, "Company", c.Company, detailValueStyle)
		m.field(&b, "Email", c.Email, detailValueStyle)
		m.field(&b, "Phone", c.Phone, detailValueStyle)
		if len(c.Tags) > 0 {
			tags := strings.Join(c.Tags, ", ")
			m.field(&b, "Tags", wordwrap.String(tags, width-8), detailValueStyle)
		}
		if c.Notes != "" && strings.Count(b.String(), "\n") < height-3 {
			b.WriteString("\n")
			b.WriteString(dimStyle.Render(wordwrap.String(c.Notes, width-2)))
		}
	} else {
		b.WriteString(dimStyle.Render(domain.UnknownContact))
	}

	return b.String()
}

// renderRightPanel renders the activity timeline or the note editor
func (m DetailModel) renderRightPanel(height int) string {
	var b strings.Builder

	title := "Activity"
	if n := len(m.timeline); n > 0 {
		title = fmt.Sprintf("Activity (%d)", n)
	}
	scrollHint := ""
	if len(m.timeline) > 0 && !m.noteMode && m.viewport.TotalLineCount() > m.viewport.Height {
		switch {
		case m.viewport.AtTop():
			scrollHint = " ↓"
		case m.viewport.AtBottom():
			scrollHint = " ↑"
		default:
			scrollHint = " ↕"
		}
	}
	b.WriteString(detailLabelStyle.Render(title))
	b.WriteString(scrollIndicatorStyle.Render(scrollHint))
	b.WriteString("\n")

	if m.noteMode {
		b.WriteString("\n")
		b.WriteString(activityTypePicker(m.activityType))
		b.WriteString("\n\n")
		b.WriteString(m.noteInput.View())
		b.WriteString("\n\n")
		b.WriteString(dimStyle.Render("Ctrl+S to save • ESC to cancel"))
		return b.String()
	}

	switch {
	case m.loadingTimeline:
		b.WriteString("\n" + m.spinner.View() + " Loading activity...")
	case m.timelineError != "":
		b.WriteString("\n" + errorStyle.Render("Error: "+m.timelineError))
	case len(m.timeline) == 0:
		b.WriteString("\n" + dimStyle.Render("No activity yet"))
		b.WriteString("\n\n" + dimStyle.Render("Press 'n' for a note or 'a' to log activity"))
	default:
		b.WriteString(m.viewport.View())
	}
	return b.String()
}

// updateViewportContent formats the timeline for viewport display
func (m *DetailModel) updateViewportContent() {
	var b strings.Builder
	wrapWidth := m.viewport.Width - 4
	if wrapWidth < 30 {
		wrapWidth = 30
	}

	now := m.board.Now()
	for i, a := range m.timeline {
		if i > 0 {
			b.WriteString("\n\n")
			b.WriteString(dimStyle.Render(strings.Repeat("─", min(20, wrapWidth))))
			b.WriteString("\n\n")
		}
		b.WriteString(activityTypeStyle.Render(activityLabel(a.Type)))
		b.WriteString(" ")
		b.WriteString(activityTimeStyle.Render(formatTimeAgo(a.Timestamp, now)))
		if a.DealID == m.initial.ID {
			b.WriteString(" ")
			b.WriteString(SuccessStyle.Bold(true).Render("this deal"))
		}
		b.WriteString("\n")
		b.WriteString(activityBodyStyle.Render(wordwrap.String(a.Description, wrapWidth)))
	}

	m.viewport.SetContent(b.String())
}

// postActivity logs the typed activity against the deal and its contact
func (m DetailModel) postActivity(body string) tea.Cmd {
	d := m.deal()
	return logActivity(m.ctx, m.activities, m.activityType, body, d.ContactID, d.ID, m.board.Now())
}

// loadTimeline fetches the contact's activities, newest first
func (m DetailModel) loadTimeline() tea.Cmd {
	contactID := m.deal().ContactID
	activities, ctx := m.activities, m.ctx
	return func() tea.Msg {
		list, err := activities.List(ctx, gateway.Filter{
			ContactID: contactID,
			OrderBy:   domain.FieldActivityTimestamp,
			Desc:      true,
			Limit:     timelineLimit,
		})
		if err != nil {
			return timelineErrorMsg{err: err}
		}
		sort.SliceStable(list, func(i, j int) bool {
			return list[i].Timestamp.After(list[j].Timestamp)
		})
		return timelineLoadedMsg{activities: list}
	}
}

// formatTimeAgo converts a timestamp to relative time as of now
func formatTimeAgo(t, now time.Time) string {
	if t.IsZero() {
		return "unknown time"
	}

	duration := now.Sub(t)

	switch {
	case duration < time.Minute:
		return "just now"
	case duration < time.Hour:
		mins := int(duration.Minutes())
		if mins == 1 {
			return "1m ago"
		}
		return fmt.Sprintf("%dm ago", mins)
	case duration < 24*time.Hour:
		hours := int(duration.Hours())
		if hours == 1 {
			return "1h ago"
		}
		return fmt.Sprintf("%dh ago", hours)
	case duration < 7*24*time.Hour:
		days := int(duration.Hours() / 24)
		if days == 1 {
			return "1d ago"
		}
		return fmt.Sprintf("%dd ago", days)
	case duration < 30*24*time.Hour:
		weeks := int(duration.Hours() / 24 / 7)
		if weeks == 1 {
			return "1w ago"
		}
		return fmt.Sprintf("%dw ago", weeks)
	default:
		return t.Format("Jan 2, 2006")
	}
}

// Message types for detail view
type (
	timelineLoadedMsg struct{ activities []domain.Activity }
	timelineErrorMsg  struct{ err error }
)
