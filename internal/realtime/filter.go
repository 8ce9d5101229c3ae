package realtime

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Op is a filter comparison
type Op string

const (
	OpEq    Op = "eq"
	OpIlike Op = "ilike"
)

// Condition compares one column of a row
type Condition struct {
	Column string
	Op     Op
	Value  string
}

// Filter is a conjunction of conditions, written as
// "col=eq.value,col2=ilike.pattern"
type Filter []Condition

// ParseFilter parses a filter expression. An empty string matches every row.
func ParseFilter(s string) (Filter, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	var f Filter
	for _, part := range strings.Split(s, ",") {
		col, rest, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok || col == "" {
			return nil, fmt.Errorf("invalid filter %q: expected column=op.value", part)
		}
		op, value, ok := strings.Cut(rest, ".")
		if !ok {
			return nil, fmt.Errorf("invalid filter %q: expected op.value", part)
		}
		switch Op(op) {
		case OpEq, OpIlike:
		default:
			return nil, fmt.Errorf("invalid filter %q: unsupported operator %q", part, op)
		}
		f = append(f, Condition{Column: col, Op: Op(op), Value: value})
	}
	return f, nil
}

// String formats the filter in the form ParseFilter reads
func (f Filter) String() string {
	parts := make([]string, len(f))
	for i, c := range f {
		parts[i] = fmt.Sprintf("%s=%s.%s", c.Column, c.Op, c.Value)
	}
	return strings.Join(parts, ",")
}

// Eq returns the value a column is pinned to with eq
func (f Filter) Eq(column string) (string, bool) {
	for _, c := range f {
		if c.Column == column && c.Op == OpEq {
			return c.Value, true
		}
	}
	return "", false
}

// Match reports whether every condition holds for row
func (f Filter) Match(row map[string]any) bool {
	for _, c := range f {
		v, ok := row[c.Column]
		if !ok {
			return false
		}
		s := columnString(v)
		switch c.Op {
		case OpEq:
			if s != c.Value {
				return false
			}
		case OpIlike:
			if !ilike(s, c.Value) {
				return false
			}
		}
	}
	return true
}

func columnString(v any) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}

// ilike matches s against a SQL ILIKE pattern, where % is any run of
// characters and _ is one character
func ilike(s, pattern string) bool {
	var b strings.Builder
	b.WriteString("(?is)^")
	for _, r := range pattern {
		switch r {
		case '%':
			b.WriteString(".*")
		case '_':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString("$")
	re, err := regexp.Compile(b.String())
	if err != nil {
		return false
	}
	return re.MatchString(s)
}

// Channel selects the events a subscriber receives
type Channel struct {
	Table  string
	Event  EventType
	Filter Filter
}

// Key identifies the channel, e.g. "comments:*:project_id=eq.1"
func (c Channel) Key() string {
	ev := c.Event
	if ev == "" {
		ev = EventAll
	}
	return fmt.Sprintf("%s:%s:%s", c.Table, ev, c.Filter)
}

// Matches reports whether e belongs on the channel
func (c Channel) Matches(e Event) bool {
	if e.Table != c.Table {
		return false
	}
	if c.Event != "" && c.Event != EventAll && c.Event != e.Type {
		return false
	}
	if len(c.Filter) == 0 {
		return true
	}
	var row map[string]any
	if err := json.Unmarshal(e.Row(), &row); err != nil {
		return false
	}
	return c.Filter.Match(row)
}
