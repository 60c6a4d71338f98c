package ui

import "github.com/charmbracelet/bubbles/key"

type KeyMap struct {
	Quit    key.Binding
	Back    key.Binding
	Help    key.Binding
	Feed    key.Binding
	Search  key.Binding
	Upload  key.Binding
	Profile key.Binding
	Login   key.Binding
	Logout  key.Binding
}

var Keys = KeyMap{
	Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	Back:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
	Help:    key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
	Feed:    key.NewBinding(key.WithKeys("1"), key.WithHelp("1", "feed")),
	Search:  key.NewBinding(key.WithKeys("/", "2"), key.WithHelp("/", "search users")),
	Upload:  key.NewBinding(key.WithKeys("u", "3"), key.WithHelp("u", "upload")),
	Profile: key.NewBinding(key.WithKeys("m", "4"), key.WithHelp("m", "my profile")),
	Login:   key.NewBinding(key.WithKeys("L"), key.WithHelp("L", "login")),
	Logout:  key.NewBinding(key.WithKeys("X"), key.WithHelp("X", "logout")),
}

// viewKeys are the per-view bindings listed in the help overlay. The
// views match on the key strings directly.
var viewKeys = []key.Binding{
	key.NewBinding(key.WithKeys("j", "k"), key.WithHelp("j/k", "move")),
	key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open")),
	key.NewBinding(key.WithKeys("l"), key.WithHelp("l", "like / unlike")),
	key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete (own)")),
	key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "author profile")),
	key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "comment")),
	key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "retry / refresh")),
	key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "reload from top")),
}

func (k KeyMap) global() []key.Binding {
	return []key.Binding{k.Feed, k.Search, k.Upload, k.Profile, k.Login, k.Logout, k.Back, k.Help, k.Quit}
}
