package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"
	"github.com/pkg/browser"
	"github.com/rs/zerolog/log"

	"github.com/robby/pflow/internal/domain"
	"github.com/robby/pflow/internal/gateway"
	"github.com/robby/pflow/internal/pipeline"
)

// Layout constants
const (
	minColumnWidth = 24
	maxColumnWidth = 38
	headerLines    = 2 // Title line + hints line
	columnHeader   = 2 // "[N] Stage (count)" + column value
	cardLines      = 2 // Title/value + contact/age
	pageJumpSize   = 10
	toastTTL       = 4 * time.Second
)

// Styles for the board view - base styles without width/height (set dynamically)
var (
	columnHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("205"))

	cardStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	selectedCardStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("205")).
				Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	stagnantStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Bold(true)

	titleStyle = lipgloss.NewStyle().
			Bold(true)

	moveModeStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("205")).
			Foreground(lipgloss.Color("0")).
			Padding(0, 1)
)

// BoardModel renders one pipeline session: a kanban board of deals grouped
// by stage, with a keyboard drag gesture to move deals between stages.
type BoardModel struct {
	// Dependencies
	board   *pipeline.Board
	deals   gateway.Collection[domain.Deal]
	ctx     context.Context
	session int

	// UI components
	keymap      KeyMap
	help        HelpModel
	spinner     spinner.Model
	filterInput textinput.Model
	stagePicker *StagePickerModel

	// Board state
	columns        []pipeline.Column              // Unfiltered projection of the store
	visible        map[domain.Stage][]domain.Deal // Stage -> deals passing the filter
	selectedColumn int
	columnOffset   int
	selectedCard   map[domain.Stage]int
	scrollOffset   map[domain.Stage]int

	// View state
	width         int
	height        int
	showHelp      bool
	filterMode    bool
	filterText    string
	confirmDelete bool
	loading       bool
	loadErr       error
	toast         string
	toastIsErr    bool
	toastSeq      int
}

// NewBoardModel creates a board model for a fresh pipeline session.
func NewBoardModel(b *pipeline.Board, deals gateway.Collection[domain.Deal], ctx context.Context, session int) BoardModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	ti := textinput.New()
	ti.Placeholder = "Filter by title or contact..."
	ti.Prompt = "/ "

	m := BoardModel{
		board:        b,
		deals:        deals,
		ctx:          ctx,
		session:      session,
		keymap:       DefaultKeyMap(),
		help:         NewHelpModel("Pipeline", DefaultKeyMap()),
		spinner:      sp,
		filterInput:  ti,
		visible:      make(map[domain.Stage][]domain.Deal),
		selectedCard: make(map[domain.Stage]int),
		scrollOffset: make(map[domain.Stage]int),
		loading:      true,
	}
	m.rebuildColumns()
	return m
}

// Init starts the spinner and the initial load.
func (m BoardModel) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		tea.WindowSize(),
		m.loadDeals(),
	)
}

// Capturing reports whether the board needs keys the app would otherwise
// use for screen switching.
func (m BoardModel) Capturing() bool {
	_, _, held := m.board.Held()
	return held || m.filterMode || m.confirmDelete || m.stagePicker != nil || m.showHelp
}

// Update handles messages
func (m BoardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.stagePicker != nil {
			p, _ := m.stagePicker.Update(msg)
			sp := p.(StagePickerModel)
			m.stagePicker = &sp
		}
		(&m).adjustColumnScroll()
		return m, nil

	case dealsLoadedMsg:
		m.loading = false
		if msg.err != nil {
			if m.board.Store().LoadedAt().IsZero() {
				m.loadErr = msg.err
				return m, nil
			}
			return m, (&m).setToast(true, "Refresh failed: "+msg.err.Error())
		}
		m.loadErr = nil
		(&m).rebuildColumns()
		return m, nil

	case stageCommittedMsg:
		err := m.board.Resolve(msg.res)
		(&m).rebuildColumns()
		if err != nil {
			return m, (&m).setToast(true, "Failed to move deal")
		}
		(&m).follow(msg.res.Commit.DealID())
		return m, (&m).setToast(false, "Deal moved to "+msg.res.Commit.To.Label())

	case dealDeletedMsg:
		if msg.err != nil {
			log.Warn().Err(msg.err).Str("deal", msg.id).Msg("delete failed")
			return m, (&m).setToast(true, "Failed to delete deal")
		}
		m.board.Store().Remove(msg.id)
		(&m).rebuildColumns()
		return m, (&m).setToast(false, fmt.Sprintf("Deleted %q", msg.title))

	case clearToastMsg:
		if msg.seq == m.toastSeq {
			m.toast = ""
		}
		return m, nil

	case StageSelectedMsg:
		m.stagePicker = nil
		if err := m.board.Hover(msg.Stage); err != nil {
			return m, nil
		}
		return m.drop()

	case pickerClosedMsg:
		m.stagePicker = nil
		_ = m.board.Cancel()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if m.stagePicker != nil {
			p, cmd := m.stagePicker.Update(msg)
			sp := p.(StagePickerModel)
			m.stagePicker = &sp
			return m, cmd
		}
		return m.handleKeyPress(msg)
	}

	return m, nil
}

// handleKeyPress processes keyboard input
func (m BoardModel) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Global quit
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	// Help overlay
	if m.showHelp {
		if m.help.Closes(msg) {
			m.showHelp = false
		}
		return m, nil
	}

	// Filter mode
	if m.filterMode {
		switch msg.String() {
		case "enter":
			m.filterMode = false
			m.filterText = strings.TrimSpace(m.filterInput.Value())
			m.filterInput.Blur()
			(&m).rebuildColumns()
			return m, nil
		case "esc":
			m.filterMode = false
			m.filterInput.SetValue(m.filterText)
			m.filterInput.Blur()
			return m, nil
		default:
			var cmd tea.Cmd
			m.filterInput, cmd = m.filterInput.Update(msg)
			return m, cmd
		}
	}

	if m.confirmDelete {
		m.confirmDelete = false
		if msg.String() == "y" || msg.String() == "Y" {
			if d, ok := m.selectedDeal(); ok {
				return m, m.deleteDeal(d)
			}
		}
		return m, nil
	}

	// Move mode
	if _, _, held := m.board.Held(); held {
		return m.handleMoveMode(msg)
	}

	// Page-level load error: only retry and quit make sense
	if m.loadErr != nil {
		switch msg.String() {
		case "r":
			m.loading = true
			m.loadErr = nil
			return m, m.loadDeals()
		case "q":
			return m, tea.Quit
		}
		return m, nil
	}

	// Normal navigation
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "?":
		m.showHelp = true
	case "/":
		m.filterMode = true
		m.filterInput.Focus()
	case "h", "left":
		if m.selectedColumn > 0 {
			m.selectedColumn--
			(&m).adjustColumnScroll()
		}
	case "l", "right":
		if m.selectedColumn < len(m.columns)-1 {
			m.selectedColumn++
			(&m).adjustColumnScroll()
		}
	case "j", "down":
		(&m).moveCardSelection(1)
	case "k", "up":
		(&m).moveCardSelection(-1)
	case "g":
		(&m).jumpToCard(0)
	case "G":
		(&m).jumpToCard(-1)
	case "ctrl+d":
		(&m).moveCardSelection(pageJumpSize)
	case "ctrl+u":
		(&m).moveCardSelection(-pageJumpSize)
	case "m":
		if m.loading {
			return m, (&m).setToast(true, "Wait for the refresh to finish")
		}
		if d, ok := m.selectedDeal(); ok {
			if err := m.board.Pick(d.ID); err != nil {
				return m, (&m).setToast(true, fmt.Sprintf("Cannot move: %v", err))
			}
		}
	case "s":
		if m.loading {
			return m, (&m).setToast(true, "Wait for the refresh to finish")
		}
		if d, ok := m.selectedDeal(); ok {
			if err := m.board.Pick(d.ID); err != nil {
				return m, (&m).setToast(true, fmt.Sprintf("Cannot move: %v", err))
			}
			picker := NewStagePickerModel(d.Stage)
			m.stagePicker = &picker
			return m, picker.Init()
		}
	case "n":
		return m, func() tea.Msg { return newDealMsg{} }
	case "e":
		if d, ok := m.selectedDeal(); ok {
			return m, func() tea.Msg { return editDealMsg{deal: d} }
		}
	case "d":
		if d, ok := m.selectedDeal(); ok && m.board.Phase(d.ID) == pipeline.Idle {
			m.confirmDelete = true
		}
	case "o":
		if d, ok := m.selectedDeal(); ok {
			(&m).emailContact(d)
		}
	case "r":
		// A reload fetched before a pending move lands would undo it
		if m.board.Pending() > 0 {
			return m, (&m).setToast(true, "Wait for pending moves to finish saving")
		}
		m.loading = true
		return m, m.loadDeals()
	case "enter":
		if d, ok := m.selectedDeal(); ok {
			return m, func() tea.Msg { return openDealMsg{deal: d} }
		}
	}

	return m, nil
}

// handleMoveMode handles key presses while a deal is picked up
func (m BoardModel) handleMoveMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "q":
		_ = m.board.Cancel()
	case "h", "left":
		_, _ = m.board.Shift(-1)
	case "l", "right":
		_, _ = m.board.Shift(1)
	case "1", "2", "3", "4", "5", "6", "7", "8", "9":
		idx := int(msg.Runes[0] - '1')
		stages := domain.Stages()
		// a digit past the last column drops outside the board
		target := domain.Stage("")
		if idx < len(stages) {
			target = stages[idx]
		}
		_ = m.board.Hover(target)
		return m.drop()
	case "enter", "m":
		return m.drop()
	}
	return m, nil
}

// drop releases the held deal on the targeted column and, when the stage
// changes, starts the commit.
func (m BoardModel) drop() (tea.Model, tea.Cmd) {
	c, ok, err := m.board.DropHere()
	if err != nil {
		return m, (&m).setToast(true, err.Error())
	}
	if !ok {
		return m, nil
	}
	log.Debug().Str("deal", c.DealID()).Str("to", string(c.To)).Msg("committing stage change")
	return m, tea.Batch(m.commitStage(c), m.spinner.Tick)
}

// View renders the board - fills entire terminal exactly
func (m BoardModel) View() string {
	width := m.width
	height := m.height
	if width == 0 {
		width = 80
	}
	if height == 0 {
		height = 24
	}

	var sections []string
	sections = append(sections, m.renderHeader(width))
	sections = append(sections, m.renderSecondHeader(width))

	if m.filterMode {
		sections = append(sections, m.filterInput.View())
	}

	held, target, moving := m.board.Held()
	if moving {
		targetLabel := "(no column)"
		if target.Valid() {
			targetLabel = target.Label()
		}
		title := truncate.StringWithTail(held.Title, 30, "…")
		moveBar := moveModeStyle.Render("MOVE") +
			fmt.Sprintf(" %s → %s   ←/→ or 1-5 choose column, enter drop, esc cancel", title, targetLabel)
		sections = append(sections, moveBar)
	}
	if m.confirmDelete {
		if d, ok := m.selectedDeal(); ok {
			sections = append(sections, errorStyle.Render(fmt.Sprintf("Delete %q? [y/N]", d.Title)))
		}
	}

	boardHeight := height - headerLines
	if m.filterMode {
		boardHeight--
	}
	if moving {
		boardHeight--
	}
	if m.confirmDelete {
		boardHeight--
	}
	if boardHeight < 5 {
		boardHeight = 5
	}

	var mainContent string
	switch {
	case m.showHelp:
		helpLines := strings.Split(m.help.View(width), "\n")
		if len(helpLines) > boardHeight {
			helpLines = helpLines[:boardHeight]
		}
		mainContent = strings.Join(helpLines, "\n")
	case m.stagePicker != nil:
		mainContent = m.stagePicker.View()
	case m.loadErr != nil:
		errMsg := ErrorStyle.Render("Failed to load deals: "+m.loadErr.Error()) + "\n\n" + dimStyle.Render("Press r to retry")
		mainContent = lipgloss.Place(width, boardHeight, lipgloss.Center, lipgloss.Center, errMsg)
	case m.loading && m.board.Store().Len() == 0:
		loadingMsg := m.spinner.View() + " Loading deals..."
		mainContent = lipgloss.Place(width, boardHeight, lipgloss.Center, lipgloss.Center, loadingMsg)
	default:
		mainContent = m.renderBoard(width, boardHeight)
	}
	sections = append(sections, mainContent)

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// renderHeader renders the title and pipeline totals on the left and
// status on the right
func (m BoardModel) renderHeader(width int) string {
	totals := pipeline.ActiveTotals(m.board.Store().All())
	noun := "deals"
	if totals.ActiveDeals == 1 {
		noun = "deal"
	}
	title := fmt.Sprintf("Sales Pipeline - %d active %s worth %s", totals.ActiveDeals, noun, domain.FormatMoney(totals.ActiveValue))

	var statusParts []string
	if m.loading {
		statusParts = append(statusParts, m.spinner.View()+"loading")
	}
	if n := m.board.Pending(); n > 0 {
		statusParts = append(statusParts, fmt.Sprintf("%ssaving %d", m.spinner.View(), n))
	}
	if m.filterText != "" {
		statusParts = append(statusParts, "/"+m.filterText)
	}
	statusParts = append(statusParts, "[?]help")
	status := strings.Join(statusParts, " | ")

	padding := width - lipgloss.Width(title) - lipgloss.Width(status) - 2
	if padding < 1 {
		padding = 1
	}
	return titleStyle.Render(title) + strings.Repeat(" ", padding) + dimStyle.Render(status)
}

// renderSecondHeader renders navigation hints and the toast or position
func (m BoardModel) renderSecondHeader(width int) string {
	left := "h/l:col j/k:deal m:move s:stage n:new e:edit d:del enter:view"

	right := ""
	switch {
	case m.toast != "" && m.toastIsErr:
		right = errorStyle.Render(m.toast)
	case m.toast != "":
		right = SuccessStyle.Render("✓ " + m.toast)
	case len(m.columns) > 0:
		st := m.columns[m.selectedColumn].Stage
		cards := m.visible[st]
		right = fmt.Sprintf("col %d/%d", m.selectedColumn+1, len(m.columns))
		if len(cards) > 0 {
			right = fmt.Sprintf("%s | deal %d/%d", right, m.selectedCard[st]+1, len(cards))
		}
	}

	padding := width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if padding < 1 {
		padding = 1
	}
	return dimStyle.Render(left) + strings.Repeat(" ", padding) + right
}

// renderBoard renders the stage columns within the given dimensions,
// scrolling horizontally when they overflow
func (m BoardModel) renderBoard(totalWidth, totalHeight int) string {
	numCols := len(m.columns)
	if numCols == 0 {
		return ""
	}

	// Border adds 2 lines to the content height
	colContentHeight := totalHeight - 2
	if colContentHeight < columnHeader+cardLines {
		colContentHeight = columnHeader + cardLines
	}

	visibleCols := m.visibleColumnCount(totalWidth)

	colWidth := totalWidth / visibleCols
	if colWidth > maxColumnWidth {
		colWidth = maxColumnWidth
	}
	if colWidth < minColumnWidth {
		colWidth = minColumnWidth
	}
	innerWidth := colWidth - 4 // 2 border + 2 padding

	startCol := m.columnOffset
	endCol := startCol + visibleCols
	if endCol > numCols {
		endCol = numCols
		startCol = endCol - visibleCols
		if startCol < 0 {
			startCol = 0
		}
	}

	_, target, moving := m.board.Held()

	columnViews := make([]string, 0, visibleCols+2)
	if startCol > 0 {
		columnViews = append(columnViews, scrollArrow("◀", colContentHeight+2))
	}
	for i := startCol; i < endCol; i++ {
		col := m.columns[i]
		isTarget := moving && col.Stage == target
		columnViews = append(columnViews, m.renderColumn(col, i, i == m.selectedColumn, isTarget, colWidth, colContentHeight, innerWidth))
	}
	if endCol < numCols {
		columnViews = append(columnViews, scrollArrow("▶", colContentHeight+2))
	}

	return lipgloss.JoinHorizontal(lipgloss.Top, columnViews...)
}

func scrollArrow(arrow string, height int) string {
	return lipgloss.NewStyle().
		Width(2).
		Height(height).
		Foreground(lipgloss.Color("205")).
		Align(lipgloss.Center, lipgloss.Center).
		Render(arrow)
}

// renderColumn renders a single stage column. innerHeight is the content
// height inside the border.
func (m BoardModel) renderColumn(col pipeline.Column, idx int, selected, target bool, width, innerHeight, innerWidth int) string {
	cards := m.visible[col.Stage]

	headerText := fmt.Sprintf("[%d] %s (%d)", idx+1, col.Label(), col.Count)
	lines := []string{
		columnHeaderStyle.Foreground(stageColor(col.Stage)).Render(truncate.StringWithTail(headerText, uint(innerWidth), "…")),
		dimStyle.Render(domain.FormatMoney(col.Value)),
	}

	scrollOffset := m.scrollOffset[col.Stage]
	selectedIdx := m.selectedCard[col.Stage]

	avail := innerHeight - columnHeader
	needUp := scrollOffset > 0
	if needUp {
		avail--
	}
	slots := avail / cardLines
	endIdx := scrollOffset + slots
	needDown := false
	if endIdx < len(cards) {
		needDown = true
		slots = (avail - 1) / cardLines
		endIdx = scrollOffset + slots
	}
	if endIdx > len(cards) {
		endIdx = len(cards)
	}

	if needUp {
		lines = append(lines, dimStyle.Render(fmt.Sprintf("↑ %d more", scrollOffset)))
	}
	for i := scrollOffset; i < endIdx; i++ {
		lines = append(lines, m.formatCard(cards[i], innerWidth, selected && i == selectedIdx)...)
	}
	if remaining := len(cards) - endIdx; needDown && remaining > 0 {
		lines = append(lines, dimStyle.Render(fmt.Sprintf("↓ %d more", remaining)))
	}
	if len(cards) == 0 {
		lines = append(lines, dimStyle.Render("(empty)"))
	}

	borderColor := lipgloss.Color("240")
	switch {
	case target:
		borderColor = lipgloss.Color("214")
	case selected:
		borderColor = lipgloss.Color("205")
	}

	// DO NOT use MaxHeight - it truncates the border!
	colStyle := lipgloss.NewStyle().
		Width(width - 2).
		Height(innerHeight).
		Padding(0, 1).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(borderColor)

	return colStyle.Render(strings.Join(lines, "\n"))
}

// formatCard renders a deal as two lines: the title with its value
// right-aligned, then the contact and how long it has sat in this stage.
func (m BoardModel) formatCard(d domain.Deal, maxWidth int, selected bool) []string {
	prefix, style := "  ", cardStyle
	if selected {
		prefix, style = "> ", selectedCardStyle
	}
	maxWidth -= len(prefix)

	value := domain.FormatMoney(d.Value)
	titleWidth := maxWidth - lipgloss.Width(value) - 1
	if titleWidth < 5 {
		titleWidth = 5
	}
	title := truncate.StringWithTail(d.Title, uint(titleWidth), "…")
	padding := maxWidth - lipgloss.Width(title) - lipgloss.Width(value)
	if padding < 1 {
		padding = 1
	}
	first := style.Render(prefix+title) + strings.Repeat(" ", padding) + dimStyle.Render(value)

	var status string
	switch m.board.Phase(d.ID) {
	case pipeline.Committing:
		status = m.spinner.View() + "saving"
	case pipeline.Dragging:
		status = moveModeStyle.Render("moving")
	default:
		status = daysInStage(d.DaysInStage(m.board.Now()))
		if m.board.Stagnant(d) {
			status = stagnantStyle.Render("⚠ " + status)
		} else {
			status = dimStyle.Render(status)
		}
	}
	contact := truncate.StringWithTail(m.board.Store().ContactName(d.ContactID), uint(maxWidth/2), "…")
	second := "  " + dimStyle.Render(contact+" · ") + status

	return []string{first, second}
}

// daysInStage formats the age of a deal in its current stage.
func daysInStage(days int) string {
	if days == 1 {
		return "1 day in stage"
	}
	return fmt.Sprintf("%d days in stage", days)
}

// rebuildColumns re-projects the store into columns and applies the filter
func (m *BoardModel) rebuildColumns() {
	m.columns = m.board.Columns()
	if m.selectedColumn >= len(m.columns) {
		m.selectedColumn = 0
	}

	store := m.board.Store()
	needle := strings.ToLower(m.filterText)
	m.visible = make(map[domain.Stage][]domain.Deal, len(m.columns))
	for _, col := range m.columns {
		filtered := make([]domain.Deal, 0, len(col.Deals))
		for _, d := range col.Deals {
			if needle != "" &&
				!strings.Contains(strings.ToLower(d.Title), needle) &&
				!strings.Contains(strings.ToLower(store.ContactName(d.ContactID)), needle) {
				continue
			}
			filtered = append(filtered, d)
		}
		m.visible[col.Stage] = filtered

		m.scrollOffset[col.Stage] = 0
		if m.selectedCard[col.Stage] >= len(filtered) {
			if len(filtered) > 0 {
				m.selectedCard[col.Stage] = len(filtered) - 1
			} else {
				m.selectedCard[col.Stage] = 0
			}
		}
		m.adjustScroll(col.Stage)
	}
}

// follow moves the selection onto dealID wherever it now sits
func (m *BoardModel) follow(dealID string) {
	for ci, col := range m.columns {
		for di, d := range m.visible[col.Stage] {
			if d.ID == dealID {
				m.selectedColumn = ci
				m.selectedCard[col.Stage] = di
				m.adjustScroll(col.Stage)
				m.adjustColumnScroll()
				return
			}
		}
	}
}

// moveCardSelection moves the card selection up or down by delta
func (m *BoardModel) moveCardSelection(delta int) {
	if len(m.columns) == 0 {
		return
	}
	st := m.columns[m.selectedColumn].Stage
	cards := m.visible[st]
	if len(cards) == 0 {
		return
	}

	newIdx := m.selectedCard[st] + delta
	if newIdx < 0 {
		newIdx = 0
	}
	if newIdx >= len(cards) {
		newIdx = len(cards) - 1
	}
	m.selectedCard[st] = newIdx
	m.adjustScroll(st)
}

// jumpToCard jumps to a specific card index. Use -1 to jump to last card.
func (m *BoardModel) jumpToCard(idx int) {
	if len(m.columns) == 0 {
		return
	}
	st := m.columns[m.selectedColumn].Stage
	cards := m.visible[st]
	if len(cards) == 0 {
		return
	}
	if idx < 0 || idx >= len(cards) {
		idx = len(cards) - 1
	}
	m.selectedCard[st] = idx
	m.adjustScroll(st)
}

// adjustScroll ensures the selected card is visible
func (m *BoardModel) adjustScroll(st domain.Stage) {
	selectedIdx := m.selectedCard[st]
	scrollOffset := m.scrollOffset[st]

	// column borders, column header and both scroll indicators
	contentHeight := m.height - headerLines - 2 - columnHeader - 2
	if _, _, held := m.board.Held(); held {
		contentHeight--
	}
	if m.filterMode {
		contentHeight--
	}
	visibleCards := contentHeight / cardLines
	if visibleCards < 1 {
		visibleCards = 1
	}

	if selectedIdx < scrollOffset {
		m.scrollOffset[st] = selectedIdx
	}
	if selectedIdx >= scrollOffset+visibleCards {
		m.scrollOffset[st] = selectedIdx - visibleCards + 1
	}
}

func (m BoardModel) visibleColumnCount(width int) int {
	visibleCols := width / minColumnWidth
	if visibleCols < 1 {
		visibleCols = 1
	}
	if visibleCols > len(m.columns) {
		visibleCols = len(m.columns)
	}
	if visibleCols < 1 {
		visibleCols = 1
	}
	return visibleCols
}

// adjustColumnScroll ensures the selected column is visible (horizontal carousel)
func (m *BoardModel) adjustColumnScroll() {
	if len(m.columns) == 0 || m.width == 0 {
		return
	}
	visibleCols := m.visibleColumnCount(m.width)
	if m.selectedColumn < m.columnOffset {
		m.columnOffset = m.selectedColumn
	}
	if m.selectedColumn >= m.columnOffset+visibleCols {
		m.columnOffset = m.selectedColumn - visibleCols + 1
	}
}

// selectedDeal returns the highlighted deal, if any
func (m BoardModel) selectedDeal() (domain.Deal, bool) {
	if len(m.columns) == 0 {
		return domain.Deal{}, false
	}
	st := m.columns[m.selectedColumn].Stage
	cards := m.visible[st]
	if len(cards) == 0 {
		return domain.Deal{}, false
	}
	idx := m.selectedCard[st]
	if idx >= len(cards) {
		idx = 0
	}
	// the store copy is authoritative; the projection may predate a commit
	d, err := m.board.Store().Get(cards[idx].ID)
	if err != nil {
		return domain.Deal{}, false
	}
	return d, true
}

// setToast shows a transient message and schedules its removal
func (m *BoardModel) setToast(isErr bool, text string) tea.Cmd {
	m.toastSeq++
	m.toast = text
	m.toastIsErr = isErr
	session, seq := m.session, m.toastSeq
	return tea.Tick(toastTTL, func(time.Time) tea.Msg {
		return clearToastMsg{session: session, seq: seq}
	})
}

func (m *BoardModel) emailContact(d domain.Deal) {
	for _, c := range m.board.Store().Contacts() {
		if c.ID == d.ContactID && c.Email != "" {
			if err := browser.OpenURL("mailto:" + c.Email); err != nil {
				log.Warn().Err(err).Str("contact", c.ID).Msg("failed to open mail client")
			}
			return
		}
	}
}

// loadDeals reloads the session store from the gateway
func (m BoardModel) loadDeals() tea.Cmd {
	st, ctx, session := m.board.Store(), m.ctx, m.session
	return func() tea.Msg {
		return dealsLoadedMsg{session: session, err: st.Load(ctx)}
	}
}

// commitStage sends a stage change to the gateway off the UI loop
func (m BoardModel) commitStage(c pipeline.Commit) tea.Cmd {
	b, ctx, session := m.board, m.ctx, m.session
	return func() tea.Msg {
		return stageCommittedMsg{session: session, res: b.Run(ctx, c)}
	}
}

// deleteDeal removes a deal remotely; the store follows on success
func (m BoardModel) deleteDeal(d domain.Deal) tea.Cmd {
	deals, ctx, session := m.deals, m.ctx, m.session
	return func() tea.Msg {
		err := deals.Delete(ctx, d.ID)
		return dealDeletedMsg{session: session, id: d.ID, title: d.Title, err: err}
	}
}

// Message types
type (
	dealsLoadedMsg struct {
		session int
		err     error
	}
	stageCommittedMsg struct {
		session int
		res     pipeline.Result
	}
	dealDeletedMsg struct {
		session   int
		id, title string
		err       error
	}
	clearToastMsg struct {
		session, seq int
	}
)

func (m dealsLoadedMsg) boardSession() int    { return m.session }
func (m stageCommittedMsg) boardSession() int { return m.session }
func (m dealDeletedMsg) boardSession() int    { return m.session }
func (m clearToastMsg) boardSession() int     { return m.session }

// renderAllColumns renders just the columns, for tests
func (m BoardModel) renderAllColumns() string {
	return m.renderBoard(m.width, m.height-headerLines)
}
