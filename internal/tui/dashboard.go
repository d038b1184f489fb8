package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"

	"github.com/robby/pflow/internal/dashboard"
	"github.com/robby/pflow/internal/domain"
	"github.com/robby/pflow/internal/gateway"
)

var (
	statBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1).
			MarginRight(1)

	statValueStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("252"))

	strongStatStyle = statValueStyle.
			Foreground(lipgloss.Color("34"))
)

// DashboardModel shows headline pipeline and activity metrics
type DashboardModel struct {
	gw  *gateway.Gateway
	ctx context.Context
	now func() time.Time

	spinner spinner.Model
	summary *dashboard.Summary
	loading bool
	err     error

	width  int
	height int
}

// NewDashboardModel creates the dashboard screen
func NewDashboardModel(gw *gateway.Gateway, ctx context.Context, now func() time.Time) DashboardModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return DashboardModel{
		gw:      gw,
		ctx:     ctx,
		now:     now,
		spinner: sp,
		loading: true,
	}
}

// Init starts loading the summary
func (m DashboardModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, tea.WindowSize(), m.load())
}

// Update handles messages
func (m DashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case dashboardLoadedMsg:
		m.loading = false
		m.err = msg.err
		if msg.err == nil {
			s := msg.summary
			m.summary = &s
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "r":
			m.loading = true
			return m, tea.Batch(m.load(), m.spinner.Tick)
		case "n":
			return m, func() tea.Msg { return newDealMsg{} }
		}
	}
	return m, nil
}

// View renders the dashboard
func (m DashboardModel) View() string {
	width := m.width
	if width == 0 {
		width = 80
	}

	header := titleStyle.Render("Dashboard")
	if m.loading {
		header += " " + m.spinner.View()
	}
	hints := dimStyle.Render("r:refresh n:new deal tab:switch screen q:quit")

	if m.err != nil && m.summary == nil {
		return lipgloss.JoinVertical(lipgloss.Left, header, hints, "",
			ErrorStyle.Render("Failed to load dashboard: "+m.err.Error()),
			"", dimStyle.Render("Press r to retry"))
	}
	if m.summary == nil {
		return lipgloss.JoinVertical(lipgloss.Left, header, hints, "", m.spinner.View()+" Loading...")
	}

	s := *m.summary
	boxWidth := (width - 8) / 4
	if boxWidth < 18 {
		boxWidth = 18
	}

	conversion := statValueStyle.Render(fmt.Sprintf("%.1f%%", s.ConversionRate))
	if s.StrongConversion() {
		conversion = strongStatStyle.Render(fmt.Sprintf("%.1f%%", s.ConversionRate))
	}
	stats := lipgloss.JoinHorizontal(lipgloss.Top,
		statBox(boxWidth, "Contacts", statValueStyle.Render(fmt.Sprint(s.TotalContacts)), fmt.Sprintf("+%d this week", s.NewContacts)),
		statBox(boxWidth, "Active Deals", statValueStyle.Render(fmt.Sprint(s.ActiveDeals)), fmt.Sprintf("%.1f%% of %d", s.ActiveShare, s.TotalDeals)),
		statBox(boxWidth, "Pipeline Value", statValueStyle.Render(domain.FormatMoney(s.PipelineValue)), "avg "+domain.FormatMoney(s.AverageDeal)),
		statBox(boxWidth, "Conversion", conversion, fmt.Sprintf("%d won", s.WonDeals)),
	)

	panelWidth := (width - 4) / 2
	if panelWidth < 30 {
		panelWidth = 30
	}
	panels := lipgloss.JoinHorizontal(lipgloss.Top,
		panelBorderStyle.Width(panelWidth).Padding(0, 1).Render(m.renderStages(s, panelWidth-2)),
		" ",
		panelBorderStyle.Width(panelWidth).Padding(0, 1).Render(m.renderRecent(s, panelWidth-2)),
	)

	sections := []string{header, hints, stats, panels}
	if m.err != nil {
		sections = append(sections, errorStyle.Render("Refresh failed: "+m.err.Error()))
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func statBox(width int, label, value, sub string) string {
	return statBoxStyle.Width(width).Render(
		detailLabelStyle.Render(label) + "\n" + value + "\n" + dimStyle.Render(sub),
	)
}

// renderStages lists each stage with a bar proportional to its deal count
func (m DashboardModel) renderStages(s dashboard.Summary, width int) string {
	var b strings.Builder
	b.WriteString(detailLabelStyle.Render("Pipeline by stage"))
	b.WriteString("\n\n")

	maxCount := 0
	for _, col := range s.Stages {
		if col.Count > maxCount {
			maxCount = col.Count
		}
	}
	barWidth := width - 30
	if barWidth < 4 {
		barWidth = 4
	}
	for _, col := range s.Stages {
		bar := 0
		if maxCount > 0 {
			bar = col.Count * barWidth / maxCount
		}
		// styled text defeats fmt padding, so pad the bar by hand
		bars := lipgloss.NewStyle().Foreground(stageColor(col.Stage)).Render(strings.Repeat("█", bar)) +
			strings.Repeat(" ", barWidth-bar)
		line := fmt.Sprintf("%-12s %3d %s %s", col.Label(), col.Count, bars, domain.FormatMoney(col.Value))
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}

// renderRecent lists the latest activities with their contacts
func (m DashboardModel) renderRecent(s dashboard.Summary, width int) string {
	var b strings.Builder
	b.WriteString(detailLabelStyle.Render("Recent activity"))
	b.WriteString("\n\n")

	if len(s.Recent) == 0 {
		b.WriteString(dimStyle.Render("No activity yet"))
		return b.String()
	}
	now := m.now()
	for _, line := range s.Recent {
		when := formatTimeAgo(line.Activity.Timestamp, now)
		head := activityTypeStyle.Render(activityLabel(line.Activity.Type)) + " " +
			detailValueStyle.Render(line.ContactName) + " " + activityTimeStyle.Render(when)
		b.WriteString(head)
		b.WriteString("\n")
		b.WriteString(dimStyle.Render("  " + truncate.StringWithTail(line.Activity.Description, uint(width-2), "…")))
		b.WriteString("\n")
	}
	return b.String()
}

func (m DashboardModel) load() tea.Cmd {
	gw, ctx, now := m.gw, m.ctx, m.now
	return func() tea.Msg {
		s, err := dashboard.Load(ctx, gw, now())
		return dashboardLoadedMsg{summary: s, err: err}
	}
}

type dashboardLoadedMsg struct {
	summary dashboard.Summary
	err     error
}
