package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidStage indicates a value outside the fixed pipeline stages.
var ErrInvalidStage = errors.New("invalid stage")

// Stage is a pipeline phase. Only the constants below are board-renderable.
type Stage string

const (
	StageLead       Stage = "lead"
	StageQualified  Stage = "qualified"
	StageProposal   Stage = "proposal"
	StageClosedWon  Stage = "closed-won"
	StageClosedLost Stage = "closed-lost"
)

// Stages returns the fixed stage set in board column order.
func Stages() []Stage {
	return []Stage{StageLead, StageQualified, StageProposal, StageClosedWon, StageClosedLost}
}

// Valid reports whether s is one of the fixed stages.
func (s Stage) Valid() bool {
	switch s {
	case StageLead, StageQualified, StageProposal, StageClosedWon, StageClosedLost:
		return true
	}
	return false
}

// Closed reports whether the stage ends the deal (won or lost).
func (s Stage) Closed() bool {
	return s == StageClosedWon || s == StageClosedLost
}

// Label returns the human-readable column title.
func (s Stage) Label() string {
	switch s {
	case StageLead:
		return "Lead"
	case StageQualified:
		return "Qualified"
	case StageProposal:
		return "Proposal"
	case StageClosedWon:
		return "Closed Won"
	case StageClosedLost:
		return "Closed Lost"
	}
	return string(s)
}

// Index returns the column position of s, or -1 for an invalid stage.
func (s Stage) Index() int {
	for i, st := range Stages() {
		if st == s {
			return i
		}
	}
	return -1
}

// ParseStage accepts a stage id or its label, case-insensitively.
func ParseStage(raw string) (Stage, error) {
	v := strings.TrimSpace(raw)
	for _, st := range Stages() {
		if strings.EqualFold(v, string(st)) || strings.EqualFold(v, st.Label()) {
			return st, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStage, raw)
}
