package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/robby/pflow/internal/domain"
)

var (
	// TitleStyle is used for screen titles.
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62")). // Purple
			MarginBottom(1)

	// SelectedItemStyle is used for highlighted/selected items.
	SelectedItemStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("170")). // Light purple
				Bold(true)

	// NormalItemStyle is used for non-selected items.
	NormalItemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")) // Light gray

	// ErrorStyle is used for error messages.
	ErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")). // Red
			Bold(true)

	// SuccessStyle is used for confirmations.
	SuccessStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("34")) // Green

	// PromptStyle is used for prompt text.
	PromptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("99")). // Light blue
			MarginBottom(1)

	// HelpStyle is used for help text.
	HelpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")). // Dark gray
			MarginTop(1)

	// TabStyle and ActiveTabStyle render the screen switcher.
	TabStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Padding(0, 1)

	ActiveTabStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("205")).
			Bold(true).
			Padding(0, 1)
)

// stageColor returns the accent color of a pipeline stage.
func stageColor(s domain.Stage) lipgloss.Color {
	switch s {
	case domain.StageLead:
		return lipgloss.Color("39") // Blue
	case domain.StageQualified:
		return lipgloss.Color("214") // Orange
	case domain.StageProposal:
		return lipgloss.Color("141") // Violet
	case domain.StageClosedWon:
		return lipgloss.Color("34") // Green
	case domain.StageClosedLost:
		return lipgloss.Color("196") // Red
	}
	return lipgloss.Color("241")
}

// statusStyle colors quote and sales order statuses.
func statusStyle(status string) lipgloss.Style {
	s := lipgloss.NewStyle()
	switch status {
	case domain.QuoteAccepted, domain.OrderConfirmed, domain.OrderDelivered:
		return s.Foreground(lipgloss.Color("34"))
	case domain.QuoteSent, domain.OrderShipped:
		return s.Foreground(lipgloss.Color("39"))
	case domain.QuoteRejected, domain.OrderCancelled, domain.OrderReturned:
		return s.Foreground(lipgloss.Color("196"))
	case domain.QuoteExpired:
		return s.Foreground(lipgloss.Color("214"))
	}
	return s.Foreground(lipgloss.Color("241"))
}
