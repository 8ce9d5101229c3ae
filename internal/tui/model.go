package tui

import (
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/existflow/dashcraft/internal/autosave"
	"github.com/existflow/dashcraft/internal/comments"
	"github.com/existflow/dashcraft/internal/logger"
	"github.com/existflow/dashcraft/internal/model"
	"github.com/existflow/dashcraft/internal/workspace"
)

// Pane represents which pane is focused
type Pane int

const (
	PaneScreens Pane = iota
	PaneElements
	PaneComments
)

// Mode represents the current UI mode
type Mode int

const (
	ModeNormal Mode = iota
	ModePalette
	ModeRenameScreen
	ModeEditProperty
	ModeComment
	ModeSaveTemplate
	ModeNewTemplate
	ModeTemplates
	ModeConfirm
	ModeHelp
)

// Options configures the TUI
type Options struct {
	// Events must be the notifier and status handler the workspace was
	// opened with
	Events             *Events
	DefaultElementType model.ElementType
	ConfirmDelete      bool
}

// Model is the main TUI model
type Model struct {
	ws     *workspace.Workspace
	events *Events
	opts   Options

	// UI state
	width          int
	height         int
	pane           Pane
	mode           Mode
	screenCursor   int
	elemCursor     int
	commentCursor  int
	paletteCursor  int
	templateCursor int
	suggestCursor  int

	// Input
	input       textinput.Model
	composer    *comments.Composer
	members     []model.Profile
	suggestions []model.Profile

	// Comment thread of the selected element
	thread         *comments.Thread
	threadOff      func()
	threadElement  string
	threadComments []model.Comment

	templates []model.Template

	// Pending confirmation
	confirmPrompt string
	confirmAction func(*Model) tea.Cmd

	status     autosave.Status
	message    string
	messageErr bool
}

// NewModel creates a TUI over an open workspace
func NewModel(ws *workspace.Workspace, opts Options) Model {
	logger.Info("Initializing TUI model", logger.F("project", ws.Project().ID))

	ti := textinput.New()
	ti.CharLimit = model.MaxCommentLength
	ti.Width = 50

	if !model.IsKnownElementType(opts.DefaultElementType) {
		opts.DefaultElementType = model.ElementKPI
	}

	m := Model{
		ws:       ws,
		events:   opts.Events,
		opts:     opts,
		pane:     PaneElements,
		mode:     ModeNormal,
		input:    ti,
		composer: &comments.Composer{},
		status:   ws.Status(),
	}
	m.syncScreenCursor()

	if ws.Offline() {
		m.setError("Offline: showing the last saved copy")
	} else if !ws.Permissions().CanEdit {
		m.message = "Read-only: you can view this project but not edit it"
	}
	return m
}

func (m *Model) setMessage(msg string) {
	m.message = msg
	m.messageErr = false
}

func (m *Model) setError(msg string) {
	m.message = msg
	m.messageErr = true
}

// syncScreenCursor points the screen cursor at the active screen
func (m *Model) syncScreenCursor() {
	for i, s := range m.ws.Store().Screens() {
		if s.IsActive {
			m.screenCursor = i
			return
		}
	}
	m.screenCursor = 0
}

func (m *Model) currentElements() []model.Element {
	return m.ws.Store().ElementsOnActiveScreen()
}

func (m *Model) currentElement() (model.Element, bool) {
	elements := m.currentElements()
	if m.elemCursor < 0 || m.elemCursor >= len(elements) {
		return model.Element{}, false
	}
	return elements[m.elemCursor], true
}

func (m *Model) currentScreen() (model.Screen, bool) {
	screens := m.ws.Store().Screens()
	if m.screenCursor < 0 || m.screenCursor >= len(screens) {
		return model.Screen{}, false
	}
	return screens[m.screenCursor], true
}

// clampCursors keeps cursors inside their lists after a change
func (m *Model) clampCursors() {
	if n := len(m.ws.Store().Screens()); m.screenCursor >= n {
		m.screenCursor = max(n-1, 0)
	}
	if n := len(m.currentElements()); m.elemCursor >= n {
		m.elemCursor = max(n-1, 0)
	}
	if n := len(m.threadComments); m.commentCursor >= n {
		m.commentCursor = max(n-1, 0)
	}
}

// canEdit reports whether canvas edits are allowed, setting a message
// when they are not
func (m *Model) canEdit() bool {
	if m.ws.Offline() {
		m.setError("Offline: edits are disabled")
		return false
	}
	if !m.ws.Permissions().CanEdit {
		m.setError("Read-only: you cannot edit this project")
		return false
	}
	return true
}

// closeThread stops following the current comment thread
func (m *Model) closeThread() {
	if m.threadOff != nil {
		m.threadOff()
		m.threadOff = nil
	}
	if m.thread != nil {
		_ = m.thread.Close()
		m.thread = nil
	}
	m.threadElement = ""
	m.threadComments = nil
	m.commentCursor = 0
}
