// Package realtime carries row changes from the server to subscribed
// clients over websockets. Subscribers pick a table, an event type and a
// row filter; the server publishes every write through a Hub.
package realtime

import (
	"encoding/json"
	"fmt"
)

// EventType is the kind of row change
type EventType string

const (
	EventInsert EventType = "INSERT"
	EventUpdate EventType = "UPDATE"
	EventDelete EventType = "DELETE"
	EventAll    EventType = "*"
)

// ParseEventType parses an event name. An empty name means all events.
func ParseEventType(s string) (EventType, error) {
	switch EventType(s) {
	case "", EventAll:
		return EventAll, nil
	case EventInsert, EventUpdate, EventDelete:
		return EventType(s), nil
	default:
		return "", fmt.Errorf("unknown event type %q", s)
	}
}

// Event is one row change. New is empty for deletes and Old is empty for
// inserts.
type Event struct {
	Type  EventType       `json:"event"`
	Table string          `json:"table"`
	New   json.RawMessage `json:"new,omitempty"`
	Old   json.RawMessage `json:"old,omitempty"`
}

// NewEvent encodes the row images of a change
func NewEvent(t EventType, table string, newRow, oldRow any) (Event, error) {
	e := Event{Type: t, Table: table}
	if newRow != nil {
		data, err := json.Marshal(newRow)
		if err != nil {
			return Event{}, fmt.Errorf("failed to encode new row: %w", err)
		}
		e.New = data
	}
	if oldRow != nil {
		data, err := json.Marshal(oldRow)
		if err != nil {
			return Event{}, fmt.Errorf("failed to encode old row: %w", err)
		}
		e.Old = data
	}
	return e, nil
}

// Row returns the row image filters apply to: the old row for deletes, the
// new row otherwise
func (e Event) Row() json.RawMessage {
	if e.Type == EventDelete {
		return e.Old
	}
	return e.New
}

// Decode unmarshals Row into v
func (e Event) Decode(v any) error {
	row := e.Row()
	if len(row) == 0 {
		return fmt.Errorf("event has no row data")
	}
	return json.Unmarshal(row, v)
}
