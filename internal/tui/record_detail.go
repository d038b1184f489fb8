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
	"github.com/shopspring/decimal"

	"github.com/robby/pflow/internal/domain"
	"github.com/robby/pflow/internal/gateway"
)

type detailField struct {
	Label string
	Value string
}

type detailSection struct {
	Title string
	Lines []string
}

// RecordDetail describes the detail screen of one entity type.
type RecordDetail[T any] struct {
	Title    func(v T) string
	Badge    func(v T, now time.Time) string // Rendered next to the title; may be empty
	Fields   func(v T, l lookups, now time.Time) []detailField
	Sections func(v T, l lookups, now time.Time) []detailSection

	// ContactID enables the activity timeline and logging; nil disables.
	ContactID func(v T) string
}

// RecordDetailModel shows one record with the records related to it.
type RecordDetailModel[T any] struct {
	// Dependencies
	gw     *gateway.Gateway
	detail RecordDetail[T]
	ctx    context.Context
	now    func() time.Time

	item    T
	related lookups

	// UI components
	spinner  spinner.Model
	viewport viewport.Model
	input    textarea.Model

	// State
	loading      bool
	loadErr      string
	logging      bool
	saving       bool
	activityType string
	toast        string
	toastIsErr   bool
	width        int
	height       int
}

// NewRecordDetailModel creates a detail screen for item.
func NewRecordDetailModel[T any](gw *gateway.Gateway, detail RecordDetail[T], ctx context.Context, now func() time.Time, item T) RecordDetailModel[T] {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	vp := viewport.New(80, 20)
	vp.MouseWheelEnabled = true

	return RecordDetailModel[T]{
		gw:           gw,
		detail:       detail,
		ctx:          ctx,
		now:          now,
		item:         item,
		spinner:      sp,
		viewport:     vp,
		input:        newActivityInput(),
		loading:      true,
		activityType: domain.ActivityNote,
	}
}

// Init loads the related records.
func (m RecordDetailModel[T]) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.load())
}

// Capturing reports whether an activity is being written.
func (m RecordDetailModel[T]) Capturing() bool { return m.logging }

func (m RecordDetailModel[T]) contactID() string {
	if m.detail.ContactID == nil {
		return ""
	}
	return m.detail.ContactID(m.item)
}

func (m RecordDetailModel[T]) load() tea.Cmd {
	gw, ctx, contactID := m.gw, m.ctx, m.contactID()
	return func() tea.Msg {
		l, err := loadLookups(ctx, gw, contactID)
		sort.SliceStable(l.activities, func(i, j int) bool {
			return l.activities[i].Timestamp.After(l.activities[j].Timestamp)
		})
		return relatedLoadedMsg{lookups: l, err: err}
	}
}

// Update handles messages
func (m RecordDetailModel[T]) Update(msg tea.Msg) (RecordDetailModel[T], tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-4, 3)
		m.input.SetWidth(max(msg.Width-4, 20))
		m.refresh()
		return m, nil

	case relatedLoadedMsg:
		m.loading = false
		m.loadErr = ""
		if msg.err != nil {
			m.loadErr = msg.err.Error()
		} else {
			m.related = msg.lookups
		}
		m.refresh()
		return m, nil

	case activityLoggedMsg:
		m.saving = false
		if msg.err != nil {
			m.toast, m.toastIsErr = "Failed: "+msg.err.Error(), true
			return m, nil
		}
		m.logging = false
		m.input.Reset()
		m.input.Blur()
		m.toast, m.toastIsErr = activityLabel(msg.kind)+" logged", false
		m.loading = true
		return m, m.load()

	case spinner.TickMsg:
		if !m.loading && !m.saving {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKeyPress(msg)
	}

	if m.logging {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m RecordDetailModel[T]) handleKeyPress(msg tea.KeyMsg) (RecordDetailModel[T], tea.Cmd) {
	if m.logging {
		if m.saving {
			return m, nil
		}
		switch msg.String() {
		case "esc":
			m.logging = false
			m.input.Blur()
			return m, nil
		case "tab":
			m.activityType = nextActivityType(m.activityType)
			return m, nil
		case "ctrl+s":
			body := strings.TrimSpace(m.input.Value())
			if body == "" {
				return m, nil
			}
			m.saving = true
			return m, tea.Batch(m.spinner.Tick,
				logActivity(m.ctx, m.gw.Activities, m.activityType, body, m.contactID(), "", m.now()))
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	m.toast = ""
	switch msg.String() {
	case "q", "esc":
		return m, func() tea.Msg { return closeRecordDetailMsg{} }
	case "e":
		return m, func() tea.Msg { return editRecordMsg{} }
	case "a":
		if m.contactID() == "" {
			return m, nil
		}
		m.logging = true
		m.activityType = domain.ActivityNote
		m.input.Focus()
		return m, textarea.Blink
	case "r":
		m.loading = true
		return m, tea.Batch(m.spinner.Tick, m.load())
	case "j", "down":
		m.viewport.LineDown(1)
	case "k", "up":
		m.viewport.LineUp(1)
	case "g":
		m.viewport.GotoTop()
	case "G":
		m.viewport.GotoBottom()
	}
	return m, nil
}

// setItem shows a freshly saved copy of the record.
func (m *RecordDetailModel[T]) setItem(v T) {
	m.item = v
	m.refresh()
}

// refresh renders the record into the viewport.
func (m *RecordDetailModel[T]) refresh() {
	width := m.viewport.Width
	if width < 40 {
		width = 40
	}
	now := m.now()
	var b strings.Builder

	for _, f := range m.detail.Fields(m.item, m.related, now) {
		if f.Value == "" {
			continue
		}
		b.WriteString(detailLabelStyle.Width(16).Render(f.Label))
		b.WriteString(detailValueStyle.Render(f.Value))
		b.WriteString("\n")
	}

	if m.detail.Sections != nil {
		for _, sec := range m.detail.Sections(m.item, m.related, now) {
			b.WriteString("\n")
			b.WriteString(detailTitleStyle.Render(sec.Title))
			b.WriteString("\n")
			if len(sec.Lines) == 0 {
				b.WriteString(dimStyle.Render("None"))
				b.WriteString("\n")
			}
			for _, line := range sec.Lines {
				b.WriteString(wordwrap.String(line, width-2))
				b.WriteString("\n")
			}
		}
	}

	if m.contactID() != "" {
		b.WriteString("\n")
		b.WriteString(detailTitleStyle.Render(fmt.Sprintf("Activity (%d)", len(m.related.activities))))
		b.WriteString("\n")
		if len(m.related.activities) == 0 {
			b.WriteString(dimStyle.Render("No activity yet. Press 'a' to log one."))
			b.WriteString("\n")
		}
		for _, a := range m.related.activities {
			b.WriteString(activityTypeStyle.Render(activityLabel(a.Type)))
			b.WriteString(" ")
			b.WriteString(activityTimeStyle.Render(formatTimeAgo(a.Timestamp, now)))
			b.WriteString("\n")
			b.WriteString(activityBodyStyle.Render(wordwrap.String(a.Description, width-2)))
			b.WriteString("\n\n")
		}
	}

	m.viewport.SetContent(b.String())
}

// View renders the detail screen
func (m RecordDetailModel[T]) View() string {
	title := detailTitleStyle.Render(m.detail.Title(m.item))
	if m.detail.Badge != nil {
		if badge := m.detail.Badge(m.item, m.now()); badge != "" {
			title += "  " + badge
		}
	}

	hints := "[q]back [e]edit [r]reload [j/k]scroll"
	if m.contactID() != "" {
		hints += " [a]log activity"
	}

	var status string
	switch {
	case m.saving:
		status = m.spinner.View() + " Saving " + m.activityType + "..."
	case m.loading:
		status = m.spinner.View() + " Loading related records..."
	case m.loadErr != "":
		status = errorStyle.Render("Could not load related records: " + m.loadErr)
	case m.toast != "" && m.toastIsErr:
		status = errorStyle.Render("✗ " + m.toast)
	case m.toast != "":
		status = SuccessStyle.Render("✓ " + m.toast)
	}

	if m.logging {
		return lipgloss.JoinVertical(lipgloss.Left,
			title,
			dimStyle.Render("[Ctrl+S]save [Tab]type [ESC]cancel"),
			"",
			activityTypePicker(m.activityType),
			"",
			m.input.View(),
			status,
		)
	}
	return lipgloss.JoinVertical(lipgloss.Left, title, dimStyle.Render(hints), m.viewport.View(), status)
}

type (
	relatedLoadedMsg struct {
		lookups lookups
		err     error
	}
	closeRecordDetailMsg struct{}
	editRecordMsg        struct{}
)

// ContactDetail shows a contact with its deals and activity timeline.
func ContactDetail() RecordDetail[domain.Contact] {
	return RecordDetail[domain.Contact]{
		Title: func(c domain.Contact) string { return c.Name },
		Fields: func(c domain.Contact, l lookups, now time.Time) []detailField {
			deals := contactDeals(c.ID, l.deals)
			total := decimal.Zero
			for _, d := range deals {
				total = total.Add(d.AggregateValue())
			}
			lastContact := ""
			if !c.LastContactedAt.IsZero() {
				lastContact = formatTimeAgo(c.LastContactedAt, now)
			}
			return []detailField{
				{"Email", c.Email},
				{"Phone", c.Phone},
				{"Company", c.Company},
				{"Tags", strings.Join(c.Tags, ", ")},
				{"Total deals", fmt.Sprint(len(deals))},
				{"Deal value", domain.FormatMoney(total)},
				{"Last contacted", lastContact},
				{"Created", dateOrEmpty(c.CreatedAt)},
				{"Notes", c.Notes},
			}
		},
		Sections: func(c domain.Contact, l lookups, now time.Time) []detailSection {
			var lines []string
			for _, d := range contactDeals(c.ID, l.deals) {
				stage := lipgloss.NewStyle().Foreground(stageColor(d.Stage)).Render(d.Stage.Label())
				lines = append(lines, fmt.Sprintf("%s  %s  %s", d.Title, stage, domain.FormatMoney(d.Value)))
			}
			return []detailSection{{Title: "Deals", Lines: lines}}
		},
		ContactID: func(c domain.Contact) string { return c.ID },
	}
}

// CompanyDetail shows a company with the contacts working there.
func CompanyDetail() RecordDetail[domain.Company] {
	return RecordDetail[domain.Company]{
		Title: func(c domain.Company) string { return c.Name },
		Fields: func(c domain.Company, l lookups, now time.Time) []detailField {
			employees := ""
			if c.Employees > 0 {
				employees = fmt.Sprint(c.Employees)
			}
			revenue := ""
			if !c.Revenue.IsZero() {
				revenue = domain.FormatMoney(c.Revenue)
			}
			return []detailField{
				{"Industry", c.Industry},
				{"Phone", c.Phone},
				{"Website", c.Website},
				{"Revenue", revenue},
				{"Employees", employees},
				{"Address", c.Address},
				{"Tags", strings.Join(c.Tags, ", ")},
				{"Created", dateOrEmpty(c.CreatedAt)},
				{"Description", c.Description},
			}
		},
		Sections: func(c domain.Company, l lookups, now time.Time) []detailSection {
			var lines []string
			for _, p := range l.contacts {
				if p.CompanyID == c.ID || (p.CompanyID == "" && strings.EqualFold(p.Company, c.Name)) {
					lines = append(lines, strings.TrimSpace(p.Name+"  "+dimStyle.Render(p.Email)))
				}
			}
			var quotes []string
			for _, q := range l.quotes {
				if q.CompanyID == c.ID {
					quotes = append(quotes, fmt.Sprintf("%s %s  %s  %s", q.Name, q.Title, statusStyle(q.Status).Render(q.Status), domain.FormatMoney(q.Amount)))
				}
			}
			return []detailSection{{Title: "Contacts", Lines: lines}, {Title: "Quotes", Lines: quotes}}
		},
	}
}

// QuoteDetail shows a quote with its linked records resolved.
func QuoteDetail() RecordDetail[domain.Quote] {
	return RecordDetail[domain.Quote]{
		Title: func(q domain.Quote) string { return strings.TrimSpace(q.Name + " " + q.Title) },
		Badge: func(q domain.Quote, now time.Time) string {
			badge := statusStyle(q.Status).Bold(true).Render(q.Status)
			if q.Expired(now) && q.Status != domain.QuoteAccepted {
				badge += " " + warningStyle.Render("expired")
			}
			return badge
		},
		Fields: func(q domain.Quote, l lookups, now time.Time) []detailField {
			return []detailField{
				{"Amount", domain.FormatMoney(q.Amount)},
				{"Company", l.name(lookupCompany, q.CompanyID)},
				{"Contact", l.name(lookupContact, q.ContactID)},
				{"Deal", l.name(lookupDeal, q.DealID)},
				{"Quote date", dateOrEmpty(q.QuoteDate)},
				{"Expires on", dateOrEmpty(q.ExpiresOn)},
				{"Delivery", q.DeliveryMethod},
				{"Description", q.Description},
			}
		},
	}
}

// OrderDetail shows a sales order with its linked records resolved.
func OrderDetail() RecordDetail[domain.SalesOrder] {
	return RecordDetail[domain.SalesOrder]{
		Title: func(o domain.SalesOrder) string { return strings.TrimSpace(o.Name + " " + o.Title) },
		Badge: func(o domain.SalesOrder, now time.Time) string {
			return statusStyle(o.Status).Bold(true).Render(o.Status)
		},
		Fields: func(o domain.SalesOrder, l lookups, now time.Time) []detailField {
			return []detailField{
				{"Total", domain.FormatMoney(o.TotalAmount)},
				{"Order date", dateOrEmpty(o.OrderDate)},
				{"Payment", o.PaymentMethod},
				{"Company", l.name(lookupCompany, o.CompanyID)},
				{"Contact", l.name(lookupContact, o.ContactID)},
				{"Deal", l.name(lookupDeal, o.DealID)},
				{"Quote", l.name(lookupQuote, o.QuoteID)},
			}
		},
	}
}

func contactDeals(contactID string, deals []domain.Deal) []domain.Deal {
	var out []domain.Deal
	for _, d := range deals {
		if d.ContactID == contactID {
			out = append(out, d)
		}
	}
	return out
}

func dateOrEmpty(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("Jan 2, 2006")
}
