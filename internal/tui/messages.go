// Package tui provides Bubble Tea models for the interactive TUI.
package tui

import (
	"github.com/robby/pflow/internal/domain"
)

// ContactSelectedMsg is emitted when the user picks a contact.
type ContactSelectedMsg struct {
	Contact domain.Contact
}

// StageSelectedMsg is emitted when the user picks a stage.
type StageSelectedMsg struct {
	Stage domain.Stage
}

// ErrorMsg is emitted when an error occurs.
type ErrorMsg struct {
	Err error
}

// QuitMsg is emitted when the user requests to quit.
type QuitMsg struct{}

// sessionMsg is implemented by results of commands started by a pipeline
// session. The app drops them once that session is gone.
type sessionMsg interface {
	boardSession() int
}

// capturer is implemented by screens that sometimes need every key,
// e.g. while a text input has focus.
type capturer interface {
	Capturing() bool
}

// Cross-screen navigation requests.
type (
	openDealMsg     struct{ deal domain.Deal }
	editDealMsg     struct{ deal domain.Deal }
	newDealMsg      struct{}
	closeDetailMsg  struct{}
	closeFormMsg    struct{ saved string }
	pickerClosedMsg struct{}
)
