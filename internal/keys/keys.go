package keys

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the keybindings for the application. Bindings are
// matched per view, so the same key may mean different things in
// different views.
type KeyMap struct {
	// Navigation
	Down key.Binding
	Up   key.Binding

	// Selection
	Select key.Binding

	// Back / Quit
	Back key.Binding
	Quit key.Binding

	// Views
	Inbox     key.Binding
	Contacts  key.Binding
	Analytics key.Binding
	Settings  key.Binding

	// Command palette and help
	Command key.Binding
	Help    key.Binding

	// Manual refresh / retry
	Refresh key.Binding

	// Inbox
	Search     key.Binding
	CycleSort  key.Binding
	CycleLabel key.Binding
	Compose    key.Binding

	// Detail
	Reply   key.Binding
	Relabel key.Binding
	Export  key.Binding

	// Contacts
	Filter      key.Binding
	SortColumn  key.Binding
	PageSize    key.Binding
	PrevPage    key.Binding
	NextPage    key.Binding
	ComposeTo   key.Binding
	OpenProfile key.Binding
	Dial        key.Binding
}

// DefaultKeyMap returns the default set of keybindings.
func DefaultKeyMap() *KeyMap {
	return &KeyMap{
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/↓", "down"),
		),
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/↑", "up"),
		),
		Select: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "open"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "back"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q"),
			key.WithHelp("q", "quit"),
		),
		Inbox: key.NewBinding(
			key.WithKeys("I"),
			key.WithHelp("I", "inbox"),
		),
		Contacts: key.NewBinding(
			key.WithKeys("C"),
			key.WithHelp("C", "contacts"),
		),
		Analytics: key.NewBinding(
			key.WithKeys("A"),
			key.WithHelp("A", "analytics"),
		),
		Settings: key.NewBinding(
			key.WithKeys("S"),
			key.WithHelp("S", "connection"),
		),
		Command: key.NewBinding(
			key.WithKeys(":"),
			key.WithHelp(":", "command palette"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "toggle help"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
		Search: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "search"),
		),
		CycleSort: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "cycle sort"),
		),
		CycleLabel: key.NewBinding(
			key.WithKeys("l"),
			key.WithHelp("l", "cycle label"),
		),
		Compose: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "compose"),
		),
		Reply: key.NewBinding(
			key.WithKeys("R"),
			key.WithHelp("R", "reply"),
		),
		Relabel: key.NewBinding(
			key.WithKeys("L"),
			key.WithHelp("L", "set label"),
		),
		Export: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "export .eml"),
		),
		Filter: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "filters"),
		),
		SortColumn: key.NewBinding(
			key.WithKeys("1", "2", "3", "4", "5", "6"),
			key.WithHelp("1-6", "sort column"),
		),
		PageSize: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "page size"),
		),
		PrevPage: key.NewBinding(
			key.WithKeys("left", "["),
			key.WithHelp("←/[", "prev page"),
		),
		NextPage: key.NewBinding(
			key.WithKeys("right", "]"),
			key.WithHelp("→/]", "next page"),
		),
		ComposeTo: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "email contact"),
		),
		OpenProfile: key.NewBinding(
			key.WithKeys("o"),
			key.WithHelp("o", "open LinkedIn"),
		),
		Dial: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "call"),
		),
	}
}

// ShortHelp returns the most essential keybindings for the compact help view.
func (k *KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{
		k.Up, k.Down, k.Select, k.Back,
		k.Quit, k.Help, k.Search,
	}
}

// FullHelp returns all keybindings grouped by category for the expanded
// help view.
func (k *KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Select, k.Back, k.Quit},
		{k.Inbox, k.Contacts, k.Analytics, k.Settings, k.Command, k.Help, k.Refresh},
		{k.Search, k.CycleSort, k.CycleLabel, k.Compose},
		{k.Reply, k.Relabel, k.Export},
		{k.Filter, k.SortColumn, k.PageSize, k.PrevPage, k.NextPage},
		{k.ComposeTo, k.OpenProfile, k.Dial},
	}
}
