package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap binds the messaging panel's actions.
type KeyMap struct {
	Up       key.Binding
	Down     key.Binding
	Select   key.Binding
	NextTab  key.Binding
	Focus    key.Binding
	Send     key.Binding
	Attach   key.Binding
	Edit     key.Binding
	Delete   key.Binding
	Copy     key.Binding
	Search   key.Binding
	DarkMode key.Binding
	Cancel   key.Binding
	Logout   key.Binding
	Quit     key.Binding
}

// DefaultKeyMap is the stock binding set.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Select:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open")),
		NextTab:  key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "chats/users")),
		Focus:    key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "focus")),
		Send:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "send")),
		Attach:   key.NewBinding(key.WithKeys("ctrl+a"), key.WithHelp("ctrl+a", "attach")),
		Edit:     key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit")),
		Delete:   key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
		Copy:     key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy")),
		Search:   key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search users")),
		DarkMode: key.NewBinding(key.WithKeys("ctrl+d"), key.WithHelp("ctrl+d", "dark mode")),
		Cancel:   key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
		Logout:   key.NewBinding(key.WithKeys("ctrl+l"), key.WithHelp("ctrl+l", "log out")),
		Quit:     key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
	}
}

func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.NextTab, k.Focus, k.Send, k.Attach, k.DarkMode, k.Quit}
}

func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Select, k.NextTab, k.Search},
		{k.Focus, k.Send, k.Attach, k.Cancel},
		{k.Edit, k.Delete, k.Copy},
		{k.DarkMode, k.Logout, k.Quit},
	}
}
