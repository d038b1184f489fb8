package tui

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog/log"

	"github.com/robby/pflow/internal/domain"
	"github.com/robby/pflow/internal/gateway"
)

// newActivityInput returns the editor used to write an activity.
func newActivityInput() textarea.Model {
	ta := textarea.New()
	ta.Placeholder = "What happened? Call notes, next steps..."
	ta.CharLimit = 4000
	ta.SetHeight(6)
	ta.SetWidth(40) // Will be resized
	ta.ShowLineNumbers = false
	ta.FocusedStyle.CursorLine = lipgloss.NewStyle() // No highlight on cursor line
	ta.FocusedStyle.Base = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("228"))
	ta.BlurredStyle.Base = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240"))
	return ta
}

// nextActivityType cycles through the loggable activity types.
func nextActivityType(current string) string {
	return cycle(domain.ActivityTypes(), current, 1)
}

// activityLabel capitalizes an activity type for display
func activityLabel(t string) string {
	if t == "" {
		return "Note"
	}
	return strings.ToUpper(t[:1]) + t[1:]
}

// activityTypePicker renders the type row of the activity editor.
func activityTypePicker(current string) string {
	parts := make([]string, 0, len(domain.ActivityTypes()))
	for _, t := range domain.ActivityTypes() {
		if t == current {
			parts = append(parts, ActiveTabStyle.Render(activityLabel(t)))
		} else {
			parts = append(parts, TabStyle.Render(activityLabel(t)))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...) + "  " + dimStyle.Render("tab: type")
}

// logActivity records an activity against a contact and, when dealID is
// set, a deal.
func logActivity(ctx context.Context, activities gateway.Collection[domain.Activity], kind, body, contactID, dealID string, now time.Time) tea.Cmd {
	return func() tea.Msg {
		fields := domain.Fields{
			domain.FieldActivityType:        kind,
			domain.FieldActivityDescription: body,
			domain.FieldContactID:           contactID,
			domain.FieldActivityTimestamp:   now.UTC().Format(time.RFC3339Nano),
		}
		if dealID != "" {
			fields[domain.FieldActivityDealID] = dealID
		}
		if _, err := activities.Create(ctx, fields); err != nil {
			log.Warn().Err(err).Str("contact", contactID).Str("type", kind).Msg("failed to log activity")
			return activityLoggedMsg{kind: kind, err: err}
		}
		log.Info().Str("contact", contactID).Str("deal", dealID).Str("type", kind).Msg("activity logged")
		return activityLoggedMsg{kind: kind}
	}
}

type activityLoggedMsg struct {
	kind string
	err  error
}
