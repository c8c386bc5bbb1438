package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up     key.Binding
	Down   key.Binding
	Open   key.Binding
	Active key.Binding
	Toggle key.Binding
	Back   key.Binding
	Reload key.Binding
	Quit   key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Up:     key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:   key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Open:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "packing list")),
		Active: key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "set/unset active")),
		Toggle: key.NewBinding(key.WithKeys(" ", "x"), key.WithHelp("space", "pack/unpack")),
		Back:   key.NewBinding(key.WithKeys("esc", "backspace"), key.WithHelp("esc", "back")),
		Reload: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "resubscribe")),
		Quit:   key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) planKeys() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Open, k.Active, k.Quit}
}

func (k keyMap) itemKeys() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Toggle, k.Reload, k.Back, k.Quit}
}
