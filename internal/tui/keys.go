package tui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines all key bindings
type keyMap struct {
	Up        key.Binding
	Down      key.Binding
	Left      key.Binding
	Right     key.Binding
	Tab       key.Binding
	Enter     key.Binding
	Add       key.Binding
	Rename    key.Binding
	Delete    key.Binding
	Duplicate key.Binding
	Edit      key.Binding
	Comment   key.Binding
	MoveLeft  key.Binding
	MoveDown  key.Binding
	MoveUp    key.Binding
	MoveRight key.Binding
	Grow      key.Binding
	Shrink    key.Binding
	Save      key.Binding
	Templates key.Binding
	SaveAs    key.Binding
	Help      key.Binding
	Quit      key.Binding
	Escape    key.Binding
	Refresh   key.Binding
}

var keys = keyMap{
	Up:        key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:      key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	Left:      key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "left pane")),
	Right:     key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "right pane")),
	Tab:       key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "switch pane")),
	Enter:     key.NewBinding(key.WithKeys("enter", " "), key.WithHelp("enter", "select")),
	Add:       key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add")),
	Rename:    key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "rename screen")),
	Delete:    key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
	Duplicate: key.NewBinding(key.WithKeys("D"), key.WithHelp("D", "duplicate")),
	Edit:      key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "set property")),
	Comment:   key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "comment")),
	MoveLeft:  key.NewBinding(key.WithKeys("H"), key.WithHelp("H", "move left")),
	MoveDown:  key.NewBinding(key.WithKeys("J"), key.WithHelp("J", "move down")),
	MoveUp:    key.NewBinding(key.WithKeys("K"), key.WithHelp("K", "move up")),
	MoveRight: key.NewBinding(key.WithKeys("L"), key.WithHelp("L", "move right")),
	Grow:      key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "grow")),
	Shrink:    key.NewBinding(key.WithKeys("-"), key.WithHelp("-", "shrink")),
	Save:      key.NewBinding(key.WithKeys("w"), key.WithHelp("w", "save now")),
	Templates: key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "templates")),
	SaveAs:    key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "save template")),
	Help:      key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
	Quit:      key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	Escape:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
	Refresh:   key.NewBinding(key.WithKeys("R"), key.WithHelp("R", "refresh")),
}
