package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines all key bindings for the pipeline board.
type KeyMap struct {
	// Navigation
	Left  key.Binding
	Right key.Binding
	Up    key.Binding
	Down  key.Binding

	// Actions
	Move     key.Binding
	SetStage key.Binding
	Drop     key.Binding
	Cancel   key.Binding
	Open     key.Binding
	New      key.Binding
	Edit     key.Binding
	Delete   key.Binding
	Filter   key.Binding
	Refresh  key.Binding
	Screens  key.Binding
	Help     key.Binding
	Quit     key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Left: key.NewBinding(
			key.WithKeys("left", "h"),
			key.WithHelp("←/h", "previous column"),
		),
		Right: key.NewBinding(
			key.WithKeys("right", "l"),
			key.WithHelp("→/l", "next column"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "previous deal"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "next deal"),
		),
		Move: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "pick up deal"),
		),
		SetStage: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "choose stage"),
		),
		Drop: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "drop / open deal"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "cancel move"),
		),
		Open: key.NewBinding(
			key.WithKeys("o"),
			key.WithHelp("o", "email contact"),
		),
		New: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "new deal"),
		),
		Edit: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "edit deal"),
		),
		Delete: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "delete deal"),
		),
		Filter: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "filter deals"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
		Screens: key.NewBinding(
			key.WithKeys("tab", "shift+tab"),
			key.WithHelp("tab", "switch screen"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "toggle help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q"),
			key.WithHelp("q", "quit"),
		),
	}
}

// ShortHelp returns key bindings to be shown in the mini help view.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Help, k.Quit}
}

// FullHelp returns key bindings for the expanded help view.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Left, k.Right},
		{k.Move, k.SetStage, k.Drop, k.Cancel},
		{k.New, k.Edit, k.Delete, k.Open},
		{k.Filter, k.Refresh, k.Screens, k.Help, k.Quit},
	}
}

// ListKeyMap defines the bindings of the record list screens.
type ListKeyMap struct {
	Up      key.Binding
	Down    key.Binding
	Search  key.Binding
	Status  key.Binding
	Detail  key.Binding
	New     key.Binding
	Edit    key.Binding
	Open    key.Binding
	Delete  key.Binding
	Refresh key.Binding
	Screens key.Binding
	Help    key.Binding
	Quit    key.Binding
}

// DefaultListKeyMap returns the record list bindings.
func DefaultListKeyMap() ListKeyMap {
	return ListKeyMap{
		Up:      key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:    key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Search:  key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
		Status:  key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "cycle status")),
		Detail:  key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "show details")),
		New:     key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new record")),
		Edit:    key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit record")),
		Open:    key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "open website/email")),
		Delete:  key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
		Refresh: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		Screens: key.NewBinding(key.WithKeys("tab", "shift+tab"), key.WithHelp("tab", "switch screen")),
		Help:    key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "toggle help")),
		Quit:    key.NewBinding(key.WithKeys("q"), key.WithHelp("q", "quit")),
	}
}

// ShortHelp returns key bindings to be shown in the mini help view.
func (k ListKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Search, k.Help, k.Quit}
}

// FullHelp returns key bindings for the expanded help view.
func (k ListKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Search, k.Status},
		{k.Detail, k.New, k.Edit, k.Delete},
		{k.Open, k.Refresh},
		{k.Screens, k.Help, k.Quit},
	}
}
