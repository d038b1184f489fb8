package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog/log"

	"github.com/robby/pflow/internal/gateway"
	"github.com/robby/pflow/internal/pipeline"
	"github.com/robby/pflow/internal/store"
)

// Screen identifies one of the application's screens.
type Screen int

const (
	ScreenDashboard Screen = iota
	ScreenPipeline
	ScreenContacts
	ScreenCompanies
	ScreenQuotes
	ScreenOrders
	ScreenDealDetail
	ScreenDealForm
)

// tabCount is the number of screens reachable from the tab bar.
const tabCount = int(ScreenOrders) + 1

var screenNames = [...]string{"dashboard", "pipeline", "contacts", "companies", "quotes", "orders", "deal", "deal-form"}

var tabLabels = [tabCount]string{"Dashboard", "Pipeline", "Contacts", "Companies", "Quotes", "Sales Orders"}

func (s Screen) String() string {
	if s < 0 || int(s) >= len(screenNames) {
		return fmt.Sprintf("Screen(%d)", int(s))
	}
	return screenNames[s]
}

// ParseScreen resolves a tab screen by its config name.
func ParseScreen(name string) (Screen, error) {
	for i := 0; i < tabCount; i++ {
		if screenNames[i] == strings.ToLower(strings.TrimSpace(name)) {
			return Screen(i), nil
		}
	}
	return ScreenDashboard, fmt.Errorf("unknown screen %q", name)
}

// Options tune the application model.
type Options struct {
	Start         Screen
	PageSize      int
	StagnantAfter time.Duration
	Now           func() time.Time
}

// AppModel is the root Bubble Tea model. It owns the tab bar and at most
// one pipeline session; the deal detail and deal form are modal children
// of that session.
type AppModel struct {
	// Dependencies
	gw   *gateway.Gateway
	ctx  context.Context
	opts Options

	// Current state
	screen  Screen
	current tea.Model
	err     error
	width   int
	height  int

	// The live pipeline session; nil while no board is open
	board   *BoardModel
	session int

	// Detail view to return to when a form opened from it closes
	detail *DetailModel
}

// NewAppModel creates the app on opts.Start.
func NewAppModel(gw *gateway.Gateway, ctx context.Context, opts Options) AppModel {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.PageSize <= 0 {
		opts.PageSize = gateway.DefaultPageSize
	}
	if int(opts.Start) >= tabCount || opts.Start < 0 {
		opts.Start = ScreenDashboard
	}
	m := AppModel{gw: gw, ctx: ctx, opts: opts}
	m.enter(opts.Start)
	return m
}

// Init initializes the start screen.
func (m AppModel) Init() tea.Cmd {
	return m.current.Init()
}

// Update handles messages and transitions between screens.
func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		inner := m.innerSize()
		var cmds []tea.Cmd
		var cmd tea.Cmd
		m.current, cmd = m.current.Update(inner)
		cmds = append(cmds, cmd)
		if m.board != nil && m.screen != ScreenPipeline {
			bm, cmd := m.board.Update(inner)
			m.setBoard(bm)
			cmds = append(cmds, cmd)
		}
		m.syncBoard()
		return m, tea.Batch(cmds...)

	case sessionMsg:
		if m.board == nil || msg.boardSession() != m.board.session {
			log.Debug().Int("session", msg.boardSession()).Msg("dropping result for closed pipeline session")
			return m, nil
		}
		bm, cmd := m.board.Update(msg)
		m.setBoard(bm)
		if m.screen == ScreenPipeline {
			m.current = *m.board
		}
		return m, cmd

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if m.err != nil {
			if msg.String() == "q" || msg.String() == "esc" {
				return m, tea.Quit
			}
			return m, nil
		}
		if int(m.screen) < tabCount && !capturing(m.current) {
			switch msg.String() {
			case "tab":
				return m, m.enter(Screen((int(m.screen) + 1) % tabCount))
			case "shift+tab":
				return m, m.enter(Screen((int(m.screen) + tabCount - 1) % tabCount))
			}
		}

	case ErrorMsg:
		m.err = msg.Err
		return m, nil

	case QuitMsg:
		return m, tea.Quit

	case openDealMsg:
		if m.board == nil {
			return m, nil
		}
		d := NewDetailModel(msg.deal, m.board.board, m.gw.Activities, m.ctx)
		m.screen = ScreenDealDetail
		m.current = d
		return m, d.Init()

	case editDealMsg:
		if m.board == nil {
			return m, nil
		}
		if d, ok := m.current.(DetailModel); ok {
			m.detail = &d
		}
		deal := msg.deal
		return m, m.openForm(NewDealFormModel(m.board.board, m.gw.Deals, m.ctx, &deal))

	case newDealMsg:
		var cmds []tea.Cmd
		if m.board == nil {
			cmds = append(cmds, m.enter(ScreenPipeline))
		}
		m.detail = nil
		cmds = append(cmds, m.openForm(NewDealFormModel(m.board.board, m.gw.Deals, m.ctx, nil)))
		return m, tea.Batch(cmds...)

	case closeDetailMsg:
		return m, m.backToBoard("")

	case closeFormMsg:
		if m.detail != nil {
			d := *m.detail
			m.detail = nil
			if msg.saved != "" {
				d.successMsg = msg.saved
				d.errorMsg = ""
			}
			m.screen = ScreenDealDetail
			m.current = d
			return m, tea.Batch(d.spinner.Tick, tea.WindowSize())
		}
		return m, m.backToBoard(msg.saved)
	}

	if m.err != nil {
		return m, nil
	}

	var cmd tea.Cmd
	m.current, cmd = m.current.Update(msg)
	m.syncBoard()
	return m, cmd
}

// View renders the tab bar and the current screen.
func (m AppModel) View() string {
	if m.err != nil {
		return ErrorStyle.Render(fmt.Sprintf("Error: %v\n\nPress q to quit", m.err))
	}
	return lipgloss.JoinVertical(lipgloss.Left, m.renderTabs(), m.current.View())
}

func (m AppModel) renderTabs() string {
	active := m.screen
	if active == ScreenDealDetail || active == ScreenDealForm {
		active = ScreenPipeline
	}
	tabs := make([]string, tabCount)
	for i, label := range tabLabels {
		if Screen(i) == active {
			tabs[i] = ActiveTabStyle.Render(label)
		} else {
			tabs[i] = TabStyle.Render(label)
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

// enter switches to a tab screen. Leaving the pipeline ends its session;
// returning to it starts a new one with a fresh store.
func (m *AppModel) enter(s Screen) tea.Cmd {
	if s != ScreenPipeline && m.board != nil {
		log.Debug().Int("session", m.board.session).Msg("closing pipeline session")
		m.board = nil
	}
	m.detail = nil
	m.screen = s

	now := m.opts.Now
	switch s {
	case ScreenPipeline:
		m.session++
		st := store.New(m.gw.Deals, m.gw.Contacts)
		b := pipeline.New(st, m.gw.Deals,
			pipeline.WithClock(now),
			pipeline.WithStagnantAfter(m.opts.StagnantAfter),
		)
		bm := NewBoardModel(b, m.gw.Deals, m.ctx, m.session)
		m.board = &bm
		m.current = bm
		log.Debug().Int("session", m.session).Msg("opened pipeline session")
	case ScreenContacts:
		m.current = NewRecordListModel(m.gw, m.gw.Contacts, gateway.ContactTable, ContactsScreen(), m.ctx, now, m.opts.PageSize)
	case ScreenCompanies:
		m.current = NewRecordListModel(m.gw, m.gw.Companies, gateway.CompanyTable, CompaniesScreen(), m.ctx, now, m.opts.PageSize)
	case ScreenQuotes:
		m.current = NewRecordListModel(m.gw, m.gw.Quotes, gateway.QuoteTable, QuotesScreen(), m.ctx, now, m.opts.PageSize)
	case ScreenOrders:
		m.current = NewRecordListModel(m.gw, m.gw.SalesOrders, gateway.SalesOrderTable, OrdersScreen(), m.ctx, now, m.opts.PageSize)
	default:
		m.screen = ScreenDashboard
		m.current = NewDashboardModel(m.gw, m.ctx, now)
	}
	return m.current.Init()
}

func (m *AppModel) openForm(f DealFormModel) tea.Cmd {
	m.screen = ScreenDealForm
	model, _ := f.Update(m.innerSize())
	m.current = model
	return model.Init()
}

// backToBoard shows the board again, picking up store changes made while
// a child screen was open.
func (m *AppModel) backToBoard(toast string) tea.Cmd {
	m.detail = nil
	if m.board == nil {
		return m.enter(ScreenPipeline)
	}
	m.board.rebuildColumns()
	cmds := []tea.Cmd{m.board.spinner.Tick, tea.WindowSize()}
	if toast != "" {
		cmds = append(cmds, m.board.setToast(false, toast))
	}
	m.screen = ScreenPipeline
	m.current = *m.board
	return tea.Batch(cmds...)
}

func (m *AppModel) setBoard(model tea.Model) {
	if bm, ok := model.(BoardModel); ok {
		m.board = &bm
	}
}

// syncBoard keeps the session pointer in step with the visible board.
func (m *AppModel) syncBoard() {
	if m.screen == ScreenPipeline {
		m.setBoard(m.current)
	}
}

// innerSize is the window minus the tab bar.
func (m AppModel) innerSize() tea.WindowSizeMsg {
	return tea.WindowSizeMsg{Width: m.width, Height: max(m.height-1, 0)}
}

func capturing(model tea.Model) bool {
	c, ok := model.(capturer)
	return ok && c.Capturing()
}
