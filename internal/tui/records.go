package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/pkg/browser"
	"github.com/rs/zerolog/log"

	"github.com/robby/pflow/internal/domain"
	"github.com/robby/pflow/internal/gateway"
)

// RecordScreen describes how one entity type is listed.
type RecordScreen[T any] struct {
	Title    string
	Columns  []table.Column
	Row      func(v T, now time.Time) table.Row
	Name     func(v T) string
	Link     func(v T) string // URL opened with "o"; nil or "" disables
	Statuses []string         // Status filter cycle; nil disables
	OrderBy  string
	Desc     bool

	Form   RecordForm[T]   // "n" and "e"; disabled without Validate
	Detail RecordDetail[T] // "enter"; disabled without Fields
}

func (s RecordScreen[T]) editable() bool { return s.Form.Validate != nil }

func (s RecordScreen[T]) openable() bool { return s.Detail.Fields != nil }

// RecordListModel is a searchable table over one gateway collection.
type RecordListModel[T any] struct {
	// Dependencies
	gw       *gateway.Gateway
	coll     gateway.Collection[T]
	ids      gateway.Table[T]
	screen   RecordScreen[T]
	ctx      context.Context
	now      func() time.Time
	pageSize int

	// UI components
	keymap      ListKeyMap
	help        HelpModel
	spinner     spinner.Model
	searchInput textinput.Model
	grid        table.Model

	// Child screens; the form is drawn over the detail when both are open
	form   *RecordFormModel[T]
	detail *RecordDetailModel[T]

	// Data
	items []T

	// View state
	search        string
	statusIdx     int // 0 means all statuses
	searchMode    bool
	confirmDelete bool
	showHelp      bool
	loading       bool
	err           error
	toast         string
	toastIsErr    bool
	width         int
	height        int
}

// NewRecordListModel creates a list screen for coll.
func NewRecordListModel[T any](gw *gateway.Gateway, coll gateway.Collection[T], ids gateway.Table[T], screen RecordScreen[T], ctx context.Context, now func() time.Time, pageSize int) RecordListModel[T] {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	ti := textinput.New()
	ti.Placeholder = "Search " + strings.ToLower(screen.Title) + "..."
	ti.Prompt = "/ "

	grid := table.New(
		table.WithColumns(screen.Columns),
		table.WithFocused(true),
		table.WithHeight(10),
	)
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(true)
	styles.Selected = styles.Selected.
		Foreground(lipgloss.Color("0")).
		Background(lipgloss.Color("205")).
		Bold(false)
	grid.SetStyles(styles)

	return RecordListModel[T]{
		gw:          gw,
		coll:        coll,
		ids:         ids,
		screen:      screen,
		ctx:         ctx,
		now:         now,
		pageSize:    pageSize,
		keymap:      DefaultListKeyMap(),
		help:        NewHelpModel(screen.Title, DefaultListKeyMap()),
		spinner:     sp,
		searchInput: ti,
		grid:        grid,
		loading:     true,
	}
}

// Init starts the first load.
func (m RecordListModel[T]) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, tea.WindowSize(), m.load())
}

// Capturing reports whether the screen needs every key.
func (m RecordListModel[T]) Capturing() bool {
	if m.form != nil {
		return true
	}
	if m.detail != nil {
		return m.detail.Capturing()
	}
	return m.searchMode || m.confirmDelete || m.showHelp
}

func (m RecordListModel[T]) status() string {
	if m.statusIdx == 0 || len(m.screen.Statuses) == 0 {
		return "all"
	}
	return m.screen.Statuses[m.statusIdx-1]
}

// Update handles messages
func (m RecordListModel[T]) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		(&m).resize()
		if m.form != nil {
			f, _ := m.form.Update(msg)
			m.form = &f
		}
		if m.detail != nil {
			d, _ := m.detail.Update(msg)
			m.detail = &d
		}
		return m, nil

	case recordSavedMsg[T]:
		if msg.err != nil {
			return m, m.updateForm(msg)
		}
		m.form = nil
		(&m).upsert(msg.item, msg.created)
		verb := "Saved"
		if msg.created {
			verb = "Created"
		}
		m.toast, m.toastIsErr = fmt.Sprintf("%s %q", verb, m.screen.Name(msg.item)), false
		log.Info().Str("id", m.ids.ID(msg.item)).Str("screen", m.screen.Title).Bool("created", msg.created).Msg("record saved")
		if m.detail != nil && m.ids.ID(m.detail.item) == m.ids.ID(msg.item) {
			m.detail.setItem(msg.item)
			m.detail.toast, m.detail.toastIsErr = m.toast, false
		}
		return m, nil

	case closeRecordFormMsg:
		m.form = nil
		return m, nil

	case closeRecordDetailMsg:
		m.detail = nil
		return m, nil

	case editRecordMsg:
		if m.detail == nil {
			return m, nil
		}
		item := m.detail.item
		return m, m.openForm(&item)

	case formOptionsMsg:
		return m, m.updateForm(msg)

	case relatedLoadedMsg, activityLoggedMsg:
		return m, m.updateDetail(msg)

	case recordsLoadedMsg[T]:
		m.loading = false
		m.err = msg.err
		if msg.err == nil {
			m.items = msg.items
			(&m).refreshRows()
		}
		return m, nil

	case recordDeletedMsg:
		if msg.err != nil {
			log.Warn().Err(msg.err).Str("id", msg.id).Str("screen", m.screen.Title).Msg("delete failed")
			m.toast, m.toastIsErr = "Failed to delete: "+msg.err.Error(), true
			return m, nil
		}
		kept := m.items[:0:0]
		for _, it := range m.items {
			if m.ids.ID(it) != msg.id {
				kept = append(kept, it)
			}
		}
		m.items = kept
		(&m).refreshRows()
		m.toast, m.toastIsErr = fmt.Sprintf("Deleted %q", msg.name), false
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, tea.Batch(cmd, m.updateForm(msg), m.updateDetail(msg))

	case tea.KeyMsg:
		switch {
		case m.form != nil:
			return m, m.updateForm(msg)
		case m.detail != nil:
			return m, m.updateDetail(msg)
		}
		return m.handleKeyPress(msg)
	}

	if m.form != nil {
		return m, m.updateForm(msg)
	}
	return m, m.updateDetail(msg)
}

// updateForm forwards msg to the open form, if any.
func (m *RecordListModel[T]) updateForm(msg tea.Msg) tea.Cmd {
	if m.form == nil {
		return nil
	}
	f, cmd := m.form.Update(msg)
	m.form = &f
	return cmd
}

// updateDetail forwards msg to the open detail screen, if any.
func (m *RecordListModel[T]) updateDetail(msg tea.Msg) tea.Cmd {
	if m.detail == nil {
		return nil
	}
	d, cmd := m.detail.Update(msg)
	m.detail = &d
	return cmd
}

func (m *RecordListModel[T]) openForm(editing *T) tea.Cmd {
	f := NewRecordFormModel(m.coll, m.ids, m.gw, m.screen.Form, m.ctx, m.now(), editing)
	f, _ = f.Update(tea.WindowSizeMsg{Width: m.width, Height: m.height})
	m.form = &f
	return f.Init()
}

func (m *RecordListModel[T]) openDetail(v T) tea.Cmd {
	d := NewRecordDetailModel(m.gw, m.screen.Detail, m.ctx, m.now, v)
	d, _ = d.Update(tea.WindowSizeMsg{Width: m.width, Height: m.height})
	m.detail = &d
	return d.Init()
}

// upsert applies a saved record to the loaded rows.
func (m *RecordListModel[T]) upsert(v T, created bool) {
	id := m.ids.ID(v)
	if !created {
		for i, it := range m.items {
			if m.ids.ID(it) == id {
				m.items[i] = v
				m.refreshRows()
				return
			}
		}
	}
	m.items = append(m.items, v)
	m.refreshRows()
	m.grid.SetCursor(len(m.items) - 1)
}

func (m RecordListModel[T]) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	if m.showHelp {
		if m.help.Closes(msg) {
			m.showHelp = false
		}
		return m, nil
	}

	if m.searchMode {
		switch msg.String() {
		case "enter":
			m.searchMode = false
			m.searchInput.Blur()
			m.search = strings.TrimSpace(m.searchInput.Value())
			m.loading = true
			return m, m.load()
		case "esc":
			m.searchMode = false
			m.searchInput.Blur()
			m.searchInput.SetValue(m.search)
			return m, nil
		default:
			var cmd tea.Cmd
			m.searchInput, cmd = m.searchInput.Update(msg)
			return m, cmd
		}
	}

	if m.confirmDelete {
		m.confirmDelete = false
		if msg.String() == "y" || msg.String() == "Y" {
			if v, ok := m.selected(); ok {
				return m, m.delete(v)
			}
		}
		return m, nil
	}

	m.toast = ""
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "?":
		m.showHelp = true
		return m, nil
	case "/":
		m.searchMode = true
		m.searchInput.Focus()
		return m, textinput.Blink
	case "s":
		if len(m.screen.Statuses) > 0 {
			m.statusIdx = (m.statusIdx + 1) % (len(m.screen.Statuses) + 1)
			m.loading = true
			return m, m.load()
		}
		return m, nil
	case "r":
		m.loading = true
		return m, tea.Batch(m.load(), m.spinner.Tick)
	case "d":
		if _, ok := m.selected(); ok {
			m.confirmDelete = true
		}
		return m, nil
	case "n":
		if m.screen.editable() {
			return m, m.openForm(nil)
		}
		return m, nil
	case "e":
		if v, ok := m.selected(); ok && m.screen.editable() {
			return m, m.openForm(&v)
		}
		return m, nil
	case "enter":
		if v, ok := m.selected(); ok && m.screen.openable() {
			return m, m.openDetail(v)
		}
		return m, nil
	case "o":
		if v, ok := m.selected(); ok && m.screen.Link != nil {
			if url := m.screen.Link(v); url != "" {
				if err := browser.OpenURL(url); err != nil {
					m.toast, m.toastIsErr = "Could not open "+url, true
				}
			}
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.grid, cmd = m.grid.Update(msg)
	return m, cmd
}

// View renders the list
func (m RecordListModel[T]) View() string {
	switch {
	case m.form != nil:
		return m.form.View()
	case m.detail != nil:
		return m.detail.View()
	}

	width := m.width
	if width == 0 {
		width = 80
	}

	title := fmt.Sprintf("%s (%d)", m.screen.Title, len(m.items))
	var status []string
	if m.loading {
		status = append(status, m.spinner.View()+"loading")
	}
	if m.search != "" {
		status = append(status, "/"+m.search)
	}
	if len(m.screen.Statuses) > 0 {
		status = append(status, "status: "+m.status())
	}
	status = append(status, "[?]help")
	right := strings.Join(status, " | ")
	padding := width - lipgloss.Width(title) - lipgloss.Width(right) - 2
	if padding < 1 {
		padding = 1
	}

	hints := "j/k:move /:search r:refresh d:delete"
	if m.screen.openable() {
		hints += " enter:open"
	}
	if m.screen.editable() {
		hints += " n:new e:edit"
	}
	if len(m.screen.Statuses) > 0 {
		hints += " s:status"
	}
	if m.screen.Link != nil {
		hints += " o:open"
	}

	sections := []string{
		titleStyle.Render(title) + strings.Repeat(" ", padding) + dimStyle.Render(right),
		dimStyle.Render(hints),
	}
	if m.searchMode {
		sections = append(sections, m.searchInput.View())
	}
	if m.confirmDelete {
		if v, ok := m.selected(); ok {
			sections = append(sections, errorStyle.Render(fmt.Sprintf("Delete %q? [y/N]", m.screen.Name(v))))
		}
	}

	switch {
	case m.showHelp:
		sections = append(sections, m.help.View(width))
	case m.err != nil && len(m.items) == 0:
		sections = append(sections, "",
			ErrorStyle.Render(fmt.Sprintf("Failed to load %s: %v", strings.ToLower(m.screen.Title), m.err)),
			"", dimStyle.Render("Press r to retry"))
	case !m.loading && len(m.items) == 0:
		sections = append(sections, "", dimStyle.Render("Nothing here yet"))
	default:
		sections = append(sections, m.grid.View())
	}

	if m.err != nil && len(m.items) > 0 {
		sections = append(sections, errorStyle.Render("Refresh failed: "+m.err.Error()))
	} else if m.toast != "" {
		if m.toastIsErr {
			sections = append(sections, errorStyle.Render(m.toast))
		} else {
			sections = append(sections, SuccessStyle.Render("✓ "+m.toast))
		}
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m *RecordListModel[T]) resize() {
	h := m.height - 5 // header, hints, table header and status line
	if m.searchMode {
		h--
	}
	if h < 3 {
		h = 3
	}
	m.grid.SetHeight(h)
	m.grid.SetWidth(m.width)
}

func (m *RecordListModel[T]) refreshRows() {
	now := m.now()
	rows := make([]table.Row, len(m.items))
	for i, it := range m.items {
		rows[i] = m.screen.Row(it, now)
	}
	m.grid.SetRows(rows)
	if c := m.grid.Cursor(); c >= len(rows) && len(rows) > 0 {
		m.grid.SetCursor(len(rows) - 1)
	}
}

func (m RecordListModel[T]) selected() (T, bool) {
	var zero T
	i := m.grid.Cursor()
	if i < 0 || i >= len(m.items) {
		return zero, false
	}
	return m.items[i], true
}

func (m RecordListModel[T]) load() tea.Cmd {
	coll, ctx := m.coll, m.ctx
	filter := gateway.Filter{
		Search:  m.search,
		Status:  m.status(),
		OrderBy: m.screen.OrderBy,
		Desc:    m.screen.Desc,
		Limit:   m.pageSize,
	}
	return func() tea.Msg {
		items, err := gateway.ListAll(ctx, coll, filter)
		return recordsLoadedMsg[T]{items: items, err: err}
	}
}

func (m RecordListModel[T]) delete(v T) tea.Cmd {
	coll, ctx := m.coll, m.ctx
	id, name := m.ids.ID(v), m.screen.Name(v)
	return func() tea.Msg {
		return recordDeletedMsg{id: id, name: name, err: coll.Delete(ctx, id)}
	}
}

type (
	recordsLoadedMsg[T any] struct {
		items []T
		err   error
	}
	recordDeletedMsg struct {
		id, name string
		err      error
	}
)

// dateOrDash formats t as a short date, or "-" when unset.
func dateOrDash(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02")
}

// ContactsScreen lists contacts; "o" starts an email.
func ContactsScreen() RecordScreen[domain.Contact] {
	return RecordScreen[domain.Contact]{
		Title: "Contacts",
		Columns: []table.Column{
			{Title: "Name", Width: 22},
			{Title: "Company", Width: 20},
			{Title: "Email", Width: 28},
			{Title: "Phone", Width: 16},
			{Title: "Tags", Width: 18},
			{Title: "Last contact", Width: 12},
		},
		Row: func(c domain.Contact, now time.Time) table.Row {
			return table.Row{c.Name, c.Company, c.Email, c.Phone, strings.Join(c.Tags, ", "), dateOrDash(c.LastContactedAt)}
		},
		Name: func(c domain.Contact) string { return c.Name },
		Link: func(c domain.Contact) string {
			if c.Email == "" {
				return ""
			}
			return "mailto:" + c.Email
		},
		OrderBy: "name",
		Form:    ContactForm(),
		Detail:  ContactDetail(),
	}
}

// CompaniesScreen lists companies; "o" opens the website.
func CompaniesScreen() RecordScreen[domain.Company] {
	return RecordScreen[domain.Company]{
		Title: "Companies",
		Columns: []table.Column{
			{Title: "Name", Width: 24},
			{Title: "Industry", Width: 16},
			{Title: "Phone", Width: 16},
			{Title: "Revenue", Width: 14},
			{Title: "Employees", Width: 9},
			{Title: "Website", Width: 28},
		},
		Row: func(c domain.Company, now time.Time) table.Row {
			employees := "-"
			if c.Employees > 0 {
				employees = fmt.Sprint(c.Employees)
			}
			return table.Row{c.Name, c.Industry, c.Phone, domain.FormatMoney(c.Revenue), employees, c.Website}
		},
		Name: func(c domain.Company) string { return c.Name },
		Link: func(c domain.Company) string {
			w := strings.TrimSpace(c.Website)
			if w == "" || strings.Contains(w, "://") {
				return w
			}
			return "https://" + w
		},
		OrderBy: "name",
		Form:    CompanyForm(),
		Detail:  CompanyDetail(),
	}
}

// QuotesScreen lists quotes, newest first, with a status filter.
func QuotesScreen() RecordScreen[domain.Quote] {
	return RecordScreen[domain.Quote]{
		Title: "Quotes",
		Columns: []table.Column{
			{Title: "Quote", Width: 10},
			{Title: "Title", Width: 30},
			{Title: "Amount", Width: 14},
			{Title: "Status", Width: 10},
			{Title: "Date", Width: 10},
			{Title: "Expires", Width: 18},
		},
		Row: func(q domain.Quote, now time.Time) table.Row {
			expires := dateOrDash(q.ExpiresOn)
			if q.Expired(now) && q.Status != domain.QuoteAccepted {
				expires += " (expired)"
			}
			return table.Row{q.Name, q.Title, domain.FormatMoney(q.Amount), q.Status, dateOrDash(q.QuoteDate), expires}
		},
		Name:     func(q domain.Quote) string { return q.Name },
		Statuses: domain.QuoteStatuses(),
		OrderBy:  "quoteDate",
		Desc:     true,
		Form:     QuoteForm(),
		Detail:   QuoteDetail(),
	}
}

// OrdersScreen lists sales orders, newest first, with a status filter.
func OrdersScreen() RecordScreen[domain.SalesOrder] {
	return RecordScreen[domain.SalesOrder]{
		Title: "Sales Orders",
		Columns: []table.Column{
			{Title: "Order", Width: 10},
			{Title: "Title", Width: 30},
			{Title: "Total", Width: 14},
			{Title: "Status", Width: 10},
			{Title: "Date", Width: 10},
			{Title: "Payment", Width: 14},
		},
		Row: func(o domain.SalesOrder, now time.Time) table.Row {
			return table.Row{o.Name, o.Title, domain.FormatMoney(o.TotalAmount), o.Status, dateOrDash(o.OrderDate), o.PaymentMethod}
		},
		Name:     func(o domain.SalesOrder) string { return o.Name },
		Statuses: domain.OrderStatuses(),
		OrderBy:  "orderDate",
		Desc:     true,
		Form:     OrderForm(),
		Detail:   OrderDetail(),
	}
}
