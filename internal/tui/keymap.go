package tui

import (
	"github.com/charmbracelet/bubbles/key"
)

// keyMap defines global key bindings used across the TUI.
type keyMap struct {
	Quit    key.Binding
	Help    key.Binding
	Up      key.Binding
	Down    key.Binding
	Leave   key.Binding
	PanN    key.Binding
	PanS    key.Binding
	PanE    key.Binding
	PanW    key.Binding
	ZoomIn  key.Binding
	ZoomOut key.Binding
	City    key.Binding
	Search  key.Binding
	New     key.Binding
	Filters key.Binding
	Toggle  key.Binding
	Clear   key.Binding
	Escape  key.Binding
	Submit  key.Binding
	Next    key.Binding
	Prev    key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "toggle help"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "previous marker"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "next marker"),
		),
		Leave: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "leave marker"),
		),
		PanN: key.NewBinding(
			key.WithKeys("K", "shift+up"),
			key.WithHelp("K", "pan north"),
		),
		PanS: key.NewBinding(
			key.WithKeys("J", "shift+down"),
			key.WithHelp("J", "pan south"),
		),
		PanE: key.NewBinding(
			key.WithKeys("L", "shift+right"),
			key.WithHelp("L", "pan east"),
		),
		PanW: key.NewBinding(
			key.WithKeys("H", "shift+left"),
			key.WithHelp("H", "pan west"),
		),
		ZoomIn: key.NewBinding(
			key.WithKeys("+", "="),
			key.WithHelp("+", "zoom in"),
		),
		ZoomOut: key.NewBinding(
			key.WithKeys("-", "_"),
			key.WithHelp("-", "zoom out"),
		),
		City: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "next city"),
		),
		Search: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "search"),
		),
		New: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "new listing"),
		),
		Filters: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "filters"),
		),
		Toggle: key.NewBinding(
			key.WithKeys(" ", "space"),
			key.WithHelp("space", "toggle filter"),
		),
		Clear: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "clear filters"),
		),
		Escape: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "back"),
		),
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "submit"),
		),
		Next: key.NewBinding(
			key.WithKeys("tab", "down"),
			key.WithHelp("tab", "next field"),
		),
		Prev: key.NewBinding(
			key.WithKeys("shift+tab", "up"),
			key.WithHelp("shift+tab", "previous field"),
		),
	}
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Down, k.Up, k.PanN, k.ZoomIn, k.Filters, k.Search, k.New, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Down, k.Up, k.Leave, k.Escape},
		{k.PanN, k.PanS, k.PanE, k.PanW, k.ZoomIn, k.ZoomOut},
		{k.City, k.Search, k.New},
		{k.Filters, k.Toggle, k.Clear},
		{k.Help, k.Quit},
	}
}
