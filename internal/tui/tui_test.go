package tui

import (
	"strings"
	"testing"

	"github.com/existflow/dashcraft/internal/autosave"
	"github.com/existflow/dashcraft/internal/model"
	"github.com/existflow/dashcraft/internal/notify"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func box(id string, x, y, w, h float64, title string) model.Element {
	return model.Element{
		ID:         id,
		Type:       model.ElementKPI,
		Position:   model.Position{X: x, Y: y},
		Size:       model.Size{Width: w, Height: h},
		Properties: map[string]any{"title": title},
	}
}

func TestDrawCanvas(t *testing.T) {
	elements := []model.Element{box("e1", 0, 0, 600, 400, "Revenue")}

	lines := drawCanvas(elements, "", 24, 8)
	require.Len(t, lines, 8)

	rows := make([][]rune, len(lines))
	for i, l := range lines {
		rows[i] = []rune(l)
		require.Len(t, rows[i], 24)
	}
	assert.Equal(t, '┌', rows[0][0])
	assert.Equal(t, '┐', rows[0][11])
	assert.Equal(t, '└', rows[3][0])
	assert.Equal(t, '┘', rows[3][11])
	assert.Equal(t, "│Revenue   │", string(rows[1][:12]))
	assert.Equal(t, strings.Repeat(" ", 24), lines[7])
}

func TestDrawCanvas_SelectedOnTop(t *testing.T) {
	elements := []model.Element{
		box("front", 0, 0, 600, 400, "A"),
		box("back", 0, 0, 600, 400, "B"),
	}

	lines := drawCanvas(elements, "front", 24, 8)
	require.NotEmpty(t, lines)
	assert.Equal(t, '╔', []rune(lines[0])[0])
	assert.Equal(t, "║A", string([]rune(lines[1])[:2]))
}

func TestDrawCanvas_TooSmall(t *testing.T) {
	assert.Nil(t, drawCanvas(nil, "", 1, 10))
	assert.Nil(t, drawCanvas(nil, "", 10, 1))
}

func TestDrawCanvas_GrowsWithElements(t *testing.T) {
	w, h := canvasExtent([]model.Element{box("e", 2000, 100, 400, 100, "")})
	assert.Equal(t, 2400.0, w)
	assert.Equal(t, float64(minCanvasHeight), h)
}

func TestParseAssignment(t *testing.T) {
	tests := []struct {
		in    string
		key   string
		value any
	}{
		{"title=Revenue", "title", "Revenue"},
		{"value = 42", "value", 42.0},
		{"showLegend=true", "showLegend", true},
		{"data=[1,2]", "data", []any{1.0, 2.0}},
		{"label=a=b", "label", "a=b"},
		{"content=", "content", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			k, v, err := parseAssignment(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.key, k)
			if diff := cmp.Diff(tt.value, v); diff != "" {
				t.Errorf("value mismatch (-want +got):\n%s", diff)
			}
		})
	}

	for _, in := range []string{"", "title", "=Revenue", "  =x"} {
		_, _, err := parseAssignment(in)
		assert.Error(t, err, in)
	}
}

func TestPropertyLines(t *testing.T) {
	lines := propertyLines(map[string]any{
		"value": 1.5,
		"title": "Revenue",
		"data":  []any{"q"},
	})
	assert.Equal(t, []string{`data = ["q"]`, "title = Revenue", "value = 1.5"}, lines)
	assert.Empty(t, propertyLines(nil))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "hello", truncate("hello", 10))
	assert.Equal(t, "hello...", truncate("hello world", 8))
	assert.Equal(t, "hél", truncate("héllo", 3))
	assert.Equal(t, "", truncate("hello", 0))
}

func TestElementLabel(t *testing.T) {
	assert.Equal(t, "Revenue", elementLabel(box("e", 0, 0, 1, 1, "Revenue")))

	el := model.Element{Type: model.ElementButton, Properties: map[string]any{"label": "Go"}}
	assert.Equal(t, "Go", elementLabel(el))

	el = model.Element{Type: model.ElementKPI}
	assert.Equal(t, model.DefaultsFor(model.ElementKPI).Label, elementLabel(el))
}

func TestWrap(t *testing.T) {
	assert.Equal(t, "one two\nthree", wrap("one two three", 7))
	assert.Equal(t, "a\nb", wrap("a\nb", 10))
	assert.Equal(t, "averylongword", wrap("averylongword", 4))
}

func TestByteOffset(t *testing.T) {
	assert.Equal(t, 0, byteOffset("héllo", 0))
	assert.Equal(t, 3, byteOffset("héllo", 2))
	assert.Equal(t, 2, byteOffset("ab", 5))
}

func TestEvents_DeliversInOrder(t *testing.T) {
	e := NewEvents()
	e.Notify(notify.Message{Level: notify.LevelError, Title: "Save failed"})
	e.Status(autosave.Status{Pending: true})

	msg := e.wait()()
	n, ok := msg.(notifyMsg)
	require.True(t, ok)
	assert.Equal(t, "Save failed", n.Title)

	msg = e.wait()()
	s, ok := msg.(statusMsg)
	require.True(t, ok)
	assert.True(t, s.Pending)
}

func TestEvents_DropsWhenFull(t *testing.T) {
	e := NewEvents()
	for i := 0; i < eventBuffer+10; i++ {
		e.send(threadMsg{elementID: "e1"})
	}
	assert.Len(t, e.ch, eventBuffer)
}

func TestEvents_Nil(t *testing.T) {
	var e *Events
	assert.NotPanics(t, func() { e.Notify(notify.Message{Title: "x"}) })
	assert.Nil(t, e.wait())
}
