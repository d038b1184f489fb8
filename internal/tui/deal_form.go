package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/robby/pflow/internal/domain"
	"github.com/robby/pflow/internal/gateway"
	"github.com/robby/pflow/internal/pipeline"
	"github.com/robby/pflow/internal/store"
)

// dateLayout is the format of the expected close date input.
const dateLayout = "2006-01-02"

type formField int

const (
	fieldTitle formField = iota
	fieldContact
	fieldValue
	fieldStage
	fieldCloseDate
	fieldCount
)

func (f formField) label() string {
	switch f {
	case fieldTitle:
		return "Title"
	case fieldContact:
		return "Contact"
	case fieldValue:
		return "Value ($)"
	case fieldStage:
		return "Stage"
	case fieldCloseDate:
		return "Expected close"
	}
	return ""
}

var (
	formLabelStyle = lipgloss.NewStyle().
			Width(16).
			Foreground(lipgloss.Color("245"))

	focusedLabelStyle = formLabelStyle.
				Foreground(lipgloss.Color("205")).
				Bold(true)

	fieldErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			PaddingLeft(16)
)

// dealInput is the raw text of the deal form.
type dealInput struct {
	Title     string
	ContactID string
	Value     string
	Stage     domain.Stage
	CloseDate string
}

// validateDeal checks the form and returns the fields to send, or the
// per-field problems.
func validateDeal(in dealInput) (domain.Fields, map[formField]string) {
	errs := map[formField]string{}

	title := strings.TrimSpace(in.Title)
	if title == "" {
		errs[fieldTitle] = "Title is required"
	}
	if in.ContactID == "" {
		errs[fieldContact] = "Contact is required"
	}

	raw := cleanAmount(in.Value)
	value, err := decimal.NewFromString(raw)
	switch {
	case strings.TrimSpace(in.Value) == "":
		errs[fieldValue] = "Value is required"
	case err != nil:
		errs[fieldValue] = "Value must be a number"
	case !value.IsPositive():
		errs[fieldValue] = "Value must be greater than 0"
	}

	if !in.Stage.Valid() {
		errs[fieldStage] = "Choose a stage"
	}

	date := strings.TrimSpace(in.CloseDate)
	if date == "" {
		errs[fieldCloseDate] = "Expected close date is required"
	} else if _, err := time.Parse(dateLayout, date); err != nil {
		errs[fieldCloseDate] = "Use YYYY-MM-DD"
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return domain.Fields{
		domain.FieldTitle:             title,
		domain.FieldContactID:         in.ContactID,
		domain.FieldValue:             value.String(),
		domain.FieldStage:             string(in.Stage),
		domain.FieldExpectedCloseDate: date,
	}, nil
}

// DealFormModel creates a new deal or edits an existing one.
type DealFormModel struct {
	// Dependencies
	board *pipeline.Board
	deals gateway.Collection[domain.Deal]
	ctx   context.Context

	editing *domain.Deal // nil when creating

	// UI components
	inputs    map[formField]*textinput.Model
	spinner   spinner.Model
	picker    *ContactPickerModel
	contactID string
	stage     domain.Stage
	focus     formField

	// View state
	width   int
	height  int
	errs    map[formField]string
	saving  bool
	saveErr string
}

// NewDealFormModel creates the form. editing is nil for a new deal.
func NewDealFormModel(b *pipeline.Board, deals gateway.Collection[domain.Deal], ctx context.Context, editing *domain.Deal) DealFormModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	newInput := func(placeholder string, limit int) *textinput.Model {
		ti := textinput.New()
		ti.Placeholder = placeholder
		ti.Prompt = ""
		ti.CharLimit = limit
		ti.Width = 40
		return &ti
	}

	m := DealFormModel{
		board:   b,
		deals:   deals,
		ctx:     ctx,
		editing: editing,
		inputs: map[formField]*textinput.Model{
			fieldTitle:     newInput("Website redesign", 120),
			fieldValue:     newInput("12500", 20),
			fieldCloseDate: newInput("YYYY-MM-DD", 10),
		},
		spinner: sp,
		stage:   domain.StageLead,
		errs:    map[formField]string{},
	}

	if editing != nil {
		m.inputs[fieldTitle].SetValue(editing.Title)
		m.inputs[fieldValue].SetValue(editing.Value.String())
		if !editing.ExpectedCloseDate.IsZero() {
			m.inputs[fieldCloseDate].SetValue(editing.ExpectedCloseDate.Format(dateLayout))
		}
		m.contactID = editing.ContactID
		if editing.Stage.Valid() {
			m.stage = editing.Stage
		}
	} else {
		m.inputs[fieldCloseDate].SetValue(b.Now().AddDate(0, 0, 30).Format(dateLayout))
	}
	m.inputs[fieldTitle].Focus()
	return m
}

// Init initializes the form.
func (m DealFormModel) Init() tea.Cmd {
	return textinput.Blink
}

// Capturing is always true: the form uses tab to move between fields.
func (m DealFormModel) Capturing() bool { return true }

// Update handles messages
func (m DealFormModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.picker != nil {
			p, _ := m.picker.Update(msg)
			cp := p.(ContactPickerModel)
			m.picker = &cp
		}
		return m, nil

	case ContactSelectedMsg:
		m.picker = nil
		m.contactID = msg.Contact.ID
		delete(m.errs, fieldContact)
		return m, nil

	case pickerClosedMsg:
		m.picker = nil
		return m, nil

	case dealSavedMsg:
		m.saving = false
		if msg.err != nil {
			log.Warn().Err(msg.err).Msg("failed to save deal")
			m.saveErr = "Failed to save deal: " + msg.err.Error()
			return m, nil
		}
		st := m.board.Store()
		if msg.created {
			if err := st.Append(msg.deal); errors.Is(err, store.ErrDuplicateDeal) {
				st.Replace(msg.deal.ID, msg.deal)
			}
			log.Info().Str("deal", msg.deal.ID).Msg("deal created")
			return m, func() tea.Msg { return closeFormMsg{saved: fmt.Sprintf("Created %q", msg.deal.Title)} }
		}
		st.Replace(msg.deal.ID, msg.deal)
		log.Info().Str("deal", msg.deal.ID).Msg("deal updated")
		return m, func() tea.Msg { return closeFormMsg{saved: fmt.Sprintf("Saved %q", msg.deal.Title)} }

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if m.picker != nil {
			p, cmd := m.picker.Update(msg)
			cp := p.(ContactPickerModel)
			m.picker = &cp
			return m, cmd
		}
		return m.handleKeyPress(msg)
	}

	return m, m.updateFocused(msg)
}

func (m DealFormModel) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.saving {
		return m, nil
	}

	switch msg.String() {
	case "esc":
		return m, func() tea.Msg { return closeFormMsg{} }
	case "ctrl+s":
		return m.submit()
	case "tab", "down":
		(&m).setFocus(m.focus + 1)
		return m, nil
	case "shift+tab", "up":
		(&m).setFocus(m.focus - 1)
		return m, nil
	case "enter":
		switch m.focus {
		case fieldContact:
			picker := NewContactPickerModel(m.board.Store().Contacts(), m.contactID)
			if m.width > 0 {
				p, _ := picker.Update(tea.WindowSizeMsg{Width: m.width, Height: m.height})
				picker = p.(ContactPickerModel)
			}
			m.picker = &picker
			return m, nil
		case fieldCloseDate:
			return m.submit()
		}
		(&m).setFocus(m.focus + 1)
		return m, nil
	case "left", "right":
		if m.focus == fieldStage {
			delta := 1
			if msg.String() == "left" {
				delta = -1
			}
			stages := domain.Stages()
			i := (m.stage.Index() + delta + len(stages)) % len(stages)
			m.stage = stages[i]
			return m, nil
		}
	}

	return m, m.updateFocused(msg)
}

// updateFocused forwards msg to the focused text input, if any
func (m *DealFormModel) updateFocused(msg tea.Msg) tea.Cmd {
	in, ok := m.inputs[m.focus]
	if !ok {
		return nil
	}
	updated, cmd := in.Update(msg)
	*in = updated
	return cmd
}

func (m *DealFormModel) setFocus(f formField) {
	if f < 0 {
		f = fieldCount - 1
	}
	if f >= fieldCount {
		f = 0
	}
	for _, in := range m.inputs {
		in.Blur()
	}
	m.focus = f
	if in, ok := m.inputs[f]; ok {
		in.Focus()
	}
}

func (m DealFormModel) input() dealInput {
	return dealInput{
		Title:     m.inputs[fieldTitle].Value(),
		ContactID: m.contactID,
		Value:     m.inputs[fieldValue].Value(),
		Stage:     m.stage,
		CloseDate: m.inputs[fieldCloseDate].Value(),
	}
}

// submit validates and starts the save
func (m DealFormModel) submit() (tea.Model, tea.Cmd) {
	fields, errs := validateDeal(m.input())
	m.errs = errs
	m.saveErr = ""
	if len(errs) > 0 {
		for f := fieldTitle; f < fieldCount; f++ {
			if _, bad := errs[f]; bad {
				(&m).setFocus(f)
				break
			}
		}
		return m, nil
	}
	if m.editing != nil && m.board.Phase(m.editing.ID) != pipeline.Idle {
		m.saveErr = "This deal is being moved; try again in a moment"
		return m, nil
	}

	m.saving = true
	return m, tea.Batch(m.save(fields), m.spinner.Tick)
}

// save creates or updates the deal remotely. A stage edited through the
// form is a stage transition and gets the same stamp as a board move.
func (m DealFormModel) save(fields domain.Fields) tea.Cmd {
	deals, ctx := m.deals, m.ctx
	if m.editing == nil {
		fields[domain.FieldMovedToStageAt] = m.board.Now().UTC().Format(time.RFC3339Nano)
		return func() tea.Msg {
			d, err := deals.Create(ctx, fields)
			return dealSavedMsg{deal: d, created: true, err: err}
		}
	}

	prev := *m.editing
	if current, err := m.board.Store().Get(prev.ID); err == nil {
		prev = current
	}
	fields = domain.StampStageChange(prev, fields, m.board.Now())
	return func() tea.Msg {
		d, err := deals.Update(ctx, prev.ID, fields)
		return dealSavedMsg{deal: d, err: err}
	}
}

// View renders the form
func (m DealFormModel) View() string {
	if m.picker != nil {
		return m.picker.View()
	}

	var b strings.Builder
	title := "New Deal"
	if m.editing != nil {
		title = "Edit Deal"
	}
	b.WriteString(TitleStyle.Render(title))
	b.WriteString("\n")

	for f := fieldTitle; f < fieldCount; f++ {
		label := formLabelStyle.Render(f.label())
		if f == m.focus {
			label = focusedLabelStyle.Render(f.label())
		}
		b.WriteString(label)
		b.WriteString(m.renderValue(f))
		b.WriteString("\n")
		if e, ok := m.errs[f]; ok {
			b.WriteString(fieldErrorStyle.Render(e))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	switch {
	case m.saving:
		b.WriteString(m.spinner.View() + " Saving...")
	case m.saveErr != "":
		b.WriteString(ErrorStyle.Render(m.saveErr))
	}
	b.WriteString("\n")
	b.WriteString(HelpStyle.Render("tab/↑↓:field  enter:choose contact  ←/→:stage  ctrl+s:save  esc:cancel"))

	return lipgloss.NewStyle().Padding(1, 2).Render(b.String())
}

func (m DealFormModel) renderValue(f formField) string {
	switch f {
	case fieldContact:
		if m.contactID == "" {
			return dimStyle.Render("(press enter to choose)")
		}
		return NormalItemStyle.Render(m.board.Store().ContactName(m.contactID))
	case fieldStage:
		stage := lipgloss.NewStyle().Foreground(stageColor(m.stage)).Bold(true).Render(m.stage.Label())
		if f == m.focus {
			return "◀ " + stage + " ▶"
		}
		return stage
	}
	return m.inputs[f].View()
}

type dealSavedMsg struct {
	deal    domain.Deal
	created bool
	err     error
}
