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
	"github.com/rs/zerolog/log"

	"github.com/robby/pflow/internal/domain"
	"github.com/robby/pflow/internal/gateway"
)

// formInput is one row of a record form. A row with Choices or a Lookup
// is a selector cycled with ←/→; any other row is free text.
type formInput struct {
	Key         string // Record field the value is sent as
	Label       string
	Placeholder string
	Limit       int
	Choices     []string
	Lookup      lookupKind
}

func (in formInput) selector() bool {
	return len(in.Choices) > 0 || in.Lookup != lookupNone
}

// RecordForm describes the create/edit form of one entity type.
type RecordForm[T any] struct {
	Noun     string // "Contact", "Quote", ...
	Inputs   []formInput
	Values   func(v T) map[string]string          // Prefill when editing
	Defaults func(now time.Time) map[string]string // Prefill when creating
	Validate func(values map[string]string) (domain.Fields, map[string]string)
}

// needsLookups reports whether any row selects a related record.
func (f RecordForm[T]) needsLookups() bool {
	for _, in := range f.Inputs {
		if in.Lookup != lookupNone {
			return true
		}
	}
	return false
}

// RecordFormModel creates or edits one record of a collection. It is a
// child of the record list screen, which applies successful saves.
type RecordFormModel[T any] struct {
	// Dependencies
	coll gateway.Collection[T]
	ids  gateway.Table[T]
	gw   *gateway.Gateway
	form RecordForm[T]
	ctx  context.Context

	editing *T // nil when creating

	// UI components
	text    map[string]*textinput.Model
	picked  map[string]string
	spinner spinner.Model
	focus   int

	// Related records offered by lookup rows
	options        lookups
	loadingOptions bool
	optionsErr     string

	// View state
	width   int
	height  int
	errs    map[string]string
	saving  bool
	saveErr string
}

// NewRecordFormModel creates the form. editing is nil for a new record.
func NewRecordFormModel[T any](coll gateway.Collection[T], ids gateway.Table[T], gw *gateway.Gateway, form RecordForm[T], ctx context.Context, now time.Time, editing *T) RecordFormModel[T] {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	var values map[string]string
	switch {
	case editing != nil:
		values = form.Values(*editing)
	case form.Defaults != nil:
		values = form.Defaults(now)
	}

	m := RecordFormModel[T]{
		coll:           coll,
		ids:            ids,
		gw:             gw,
		form:           form,
		ctx:            ctx,
		editing:        editing,
		text:           map[string]*textinput.Model{},
		picked:         map[string]string{},
		spinner:        sp,
		loadingOptions: form.needsLookups(),
		errs:           map[string]string{},
	}
	for _, in := range form.Inputs {
		if in.selector() {
			v := values[in.Key]
			if v == "" && len(in.Choices) > 0 {
				v = in.Choices[0]
			}
			m.picked[in.Key] = v
			continue
		}
		ti := textinput.New()
		ti.Placeholder = in.Placeholder
		ti.Prompt = ""
		ti.CharLimit = in.Limit
		if ti.CharLimit == 0 {
			ti.CharLimit = 120
		}
		ti.Width = 40
		ti.SetValue(values[in.Key])
		m.text[in.Key] = &ti
	}
	(&m).setFocus(0)
	return m
}

// Init starts the cursor blink and loads lookup choices.
func (m RecordFormModel[T]) Init() tea.Cmd {
	if !m.form.needsLookups() {
		return textinput.Blink
	}
	gw, ctx := m.gw, m.ctx
	return tea.Batch(textinput.Blink, m.spinner.Tick, func() tea.Msg {
		l, err := loadLookups(ctx, gw, "")
		return formOptionsMsg{lookups: l, err: err}
	})
}

// Update handles messages
func (m RecordFormModel[T]) Update(msg tea.Msg) (RecordFormModel[T], tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case formOptionsMsg:
		m.loadingOptions = false
		if msg.err != nil {
			log.Warn().Err(msg.err).Str("form", m.form.Noun).Msg("failed to load form choices")
			m.optionsErr = "Could not load choices: " + msg.err.Error()
			return m, nil
		}
		m.options = msg.lookups
		return m, nil

	case recordSavedMsg[T]:
		m.saving = false
		if msg.err != nil {
			log.Warn().Err(msg.err).Str("form", m.form.Noun).Msg("failed to save record")
			m.saveErr = fmt.Sprintf("Failed to save %s: %v", strings.ToLower(m.form.Noun), msg.err)
		}
		return m, nil

	case spinner.TickMsg:
		if !m.saving && !m.loadingOptions {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKeyPress(msg)
	}

	return m, m.updateFocused(msg)
}

func (m RecordFormModel[T]) handleKeyPress(msg tea.KeyMsg) (RecordFormModel[T], tea.Cmd) {
	if m.saving {
		return m, nil
	}

	switch msg.String() {
	case "esc":
		return m, func() tea.Msg { return closeRecordFormMsg{} }
	case "ctrl+s":
		return m.submit()
	case "tab", "down":
		(&m).setFocus(m.focus + 1)
		return m, nil
	case "shift+tab", "up":
		(&m).setFocus(m.focus - 1)
		return m, nil
	case "enter":
		if m.focus == len(m.form.Inputs)-1 {
			return m.submit()
		}
		(&m).setFocus(m.focus + 1)
		return m, nil
	case "left", "right":
		in := m.form.Inputs[m.focus]
		if in.selector() {
			delta := 1
			if msg.String() == "left" {
				delta = -1
			}
			m.picked[in.Key] = cycle(m.choices(in), m.picked[in.Key], delta)
			delete(m.errs, in.Key)
			return m, nil
		}
	}

	return m, m.updateFocused(msg)
}

// choices returns the selectable values of a selector row. Lookup rows
// start with an empty value meaning "none".
func (m RecordFormModel[T]) choices(in formInput) []string {
	if len(in.Choices) > 0 {
		return in.Choices
	}
	opts := m.options.options(in.Lookup)
	ids := make([]string, 0, len(opts)+1)
	ids = append(ids, "")
	for _, o := range opts {
		ids = append(ids, o.ID)
	}
	return ids
}

// cycle steps from current to the neighbouring value, wrapping around.
func cycle(values []string, current string, delta int) string {
	if len(values) == 0 {
		return current
	}
	i := 0
	for j, v := range values {
		if v == current {
			i = j
			break
		}
	}
	return values[(i+delta+len(values))%len(values)]
}

func (m *RecordFormModel[T]) updateFocused(msg tea.Msg) tea.Cmd {
	if len(m.form.Inputs) == 0 {
		return nil
	}
	in, ok := m.text[m.form.Inputs[m.focus].Key]
	if !ok {
		return nil
	}
	updated, cmd := in.Update(msg)
	*in = updated
	return cmd
}

func (m *RecordFormModel[T]) setFocus(i int) {
	n := len(m.form.Inputs)
	if n == 0 {
		return
	}
	i = (i + n) % n
	for _, in := range m.text {
		in.Blur()
	}
	m.focus = i
	if in, ok := m.text[m.form.Inputs[i].Key]; ok {
		in.Focus()
	}
}

// values collects the raw form contents keyed by record field.
func (m RecordFormModel[T]) values() map[string]string {
	out := make(map[string]string, len(m.form.Inputs))
	for k, in := range m.text {
		out[k] = in.Value()
	}
	for k, v := range m.picked {
		out[k] = v
	}
	return out
}

func (m RecordFormModel[T]) submit() (RecordFormModel[T], tea.Cmd) {
	fields, errs := m.form.Validate(m.values())
	m.errs = errs
	m.saveErr = ""
	if len(errs) > 0 {
		for i, in := range m.form.Inputs {
			if _, bad := errs[in.Key]; bad {
				(&m).setFocus(i)
				break
			}
		}
		return m, nil
	}

	m.saving = true
	coll, ctx := m.coll, m.ctx
	if m.editing == nil {
		return m, tea.Batch(m.spinner.Tick, func() tea.Msg {
			v, err := coll.Create(ctx, fields)
			return recordSavedMsg[T]{item: v, created: true, err: err}
		})
	}
	id := m.ids.ID(*m.editing)
	return m, tea.Batch(m.spinner.Tick, func() tea.Msg {
		v, err := coll.Update(ctx, id, fields)
		return recordSavedMsg[T]{item: v, err: err}
	})
}

// View renders the form
func (m RecordFormModel[T]) View() string {
	var b strings.Builder
	title := "New " + m.form.Noun
	if m.editing != nil {
		title = "Edit " + m.form.Noun
	}
	b.WriteString(TitleStyle.Render(title))
	b.WriteString("\n")

	for i, in := range m.form.Inputs {
		label := formLabelStyle.Render(in.Label)
		if i == m.focus {
			label = focusedLabelStyle.Render(in.Label)
		}
		b.WriteString(label)
		b.WriteString(m.renderValue(in, i == m.focus))
		b.WriteString("\n")
		if e, ok := m.errs[in.Key]; ok {
			b.WriteString(fieldErrorStyle.Render(e))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	switch {
	case m.saving:
		b.WriteString(m.spinner.View() + " Saving...")
	case m.saveErr != "":
		b.WriteString(ErrorStyle.Render(m.saveErr))
	case m.optionsErr != "":
		b.WriteString(errorStyle.Render(m.optionsErr))
	}
	b.WriteString("\n")
	b.WriteString(HelpStyle.Render("tab/↑↓:field  ←/→:choose  ctrl+s:save  esc:cancel"))

	return lipgloss.NewStyle().Padding(1, 2).Render(b.String())
}

func (m RecordFormModel[T]) renderValue(in formInput, focused bool) string {
	if !in.selector() {
		return m.text[in.Key].View()
	}

	v := m.picked[in.Key]
	var shown string
	switch {
	case in.Lookup != lookupNone && m.loadingOptions:
		shown = m.spinner.View() + dimStyle.Render("loading")
	case in.Lookup != lookupNone && v == "":
		shown = dimStyle.Render("(none)")
	case in.Lookup != lookupNone:
		shown = NormalItemStyle.Render(m.options.name(in.Lookup, v))
	default:
		shown = NormalItemStyle.Render(v)
	}
	if focused {
		return "◀ " + shown + " ▶"
	}
	return shown
}

type (
	formOptionsMsg struct {
		lookups lookups
		err     error
	}
	recordSavedMsg[T any] struct {
		item    T
		created bool
		err     error
	}
	closeRecordFormMsg struct{}
)
