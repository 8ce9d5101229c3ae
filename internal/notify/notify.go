// Package notify carries transient user-facing messages ("toasts") from
// background operations to whatever surface is showing them.
package notify

import (
	"sync"

	"github.com/existflow/dashcraft/internal/logger"
)

// Level is the severity of a notification
type Level int

const (
	LevelInfo Level = iota
	LevelSuccess
	LevelError
)

// String returns the string representation of the level
func (l Level) String() string {
	switch l {
	case LevelSuccess:
		return "success"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

// Message is a single notification
type Message struct {
	Level   Level
	Title   string
	Message string
}

// Notifier surfaces messages to the user
type Notifier interface {
	Notify(msg Message)
}

// Func adapts a function to the Notifier interface
type Func func(Message)

// Notify calls f(msg)
func (f Func) Notify(msg Message) { f(msg) }

// Error sends an error notification
func Error(n Notifier, title, message string) {
	if n != nil {
		n.Notify(Message{Level: LevelError, Title: title, Message: message})
	}
}

// Success sends a success notification
func Success(n Notifier, title, message string) {
	if n != nil {
		n.Notify(Message{Level: LevelSuccess, Title: title, Message: message})
	}
}

// LogNotifier writes notifications to the logger
type LogNotifier struct{}

// Notify logs msg at a level matching its severity
func (LogNotifier) Notify(msg Message) {
	fields := []logger.Field{logger.F("title", msg.Title), logger.F("message", msg.Message)}
	if msg.Level == LevelError {
		logger.Warn("Notification", fields...)
		return
	}
	logger.Info("Notification", fields...)
}

// Discard drops every notification
var Discard Notifier = Func(func(Message) {})

// Recorder keeps every notification it receives
type Recorder struct {
	mu       sync.Mutex
	messages []Message
}

// Notify records msg
func (r *Recorder) Notify(msg Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, msg)
}

// Messages returns a copy of the recorded notifications
func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.messages...)
}

// Errors returns the recorded error notifications
func (r *Recorder) Errors() []Message {
	var out []Message
	for _, m := range r.Messages() {
		if m.Level == LevelError {
			out = append(out, m)
		}
	}
	return out
}
