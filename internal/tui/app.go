package tui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/existflow/dashcraft/internal/autosave"
	"github.com/existflow/dashcraft/internal/logger"
	"github.com/existflow/dashcraft/internal/model"
	"github.com/existflow/dashcraft/internal/notify"
)

// eventBuffer is how many background events can queue before new ones
// are dropped
const eventBuffer = 64

// notifyMsg is a toast from a background operation
type notifyMsg notify.Message

// statusMsg is an autosave status change
type statusMsg autosave.Status

// threadMsg carries the comment thread of an element after a change
type threadMsg struct {
	elementID string
	comments  []model.Comment
}

// Events carries notifications, autosave status and thread changes from
// background goroutines into the TUI. Create it before the workspace so it
// can be passed as the workspace notifier.
type Events struct {
	ch chan tea.Msg
}

// NewEvents creates an event queue
func NewEvents() *Events {
	return &Events{ch: make(chan tea.Msg, eventBuffer)}
}

// Notify queues a toast
func (e *Events) Notify(msg notify.Message) {
	e.send(notifyMsg(msg))
}

// Status queues an autosave status change
func (e *Events) Status(s autosave.Status) {
	e.send(statusMsg(s))
}

func (e *Events) send(msg tea.Msg) {
	if e == nil {
		return
	}
	select {
	case e.ch <- msg:
	default:
		logger.Debug("UI event dropped", logger.F("type", typeName(msg)))
	}
}

// wait returns a command that delivers the next event
func (e *Events) wait() tea.Cmd {
	if e == nil {
		return nil
	}
	return func() tea.Msg {
		return <-e.ch
	}
}

func typeName(msg tea.Msg) string {
	switch msg.(type) {
	case notifyMsg:
		return "notify"
	case statusMsg:
		return "status"
	case threadMsg:
		return "thread"
	default:
		return "other"
	}
}
