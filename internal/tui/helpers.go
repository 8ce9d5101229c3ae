package tui

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/existflow/dashcraft/internal/model"
)

// Minimum logical canvas drawn by the canvas preview
const (
	minCanvasWidth  = 1200
	minCanvasHeight = 800
)

// truncate shortens a string to max runes with an ellipsis
func truncate(s string, max int) string {
	r := []rune(s)
	if max <= 0 {
		return ""
	}
	if len(r) <= max {
		return s
	}
	if max <= 3 {
		return string(r[:max])
	}
	return string(r[:max-3]) + "..."
}

// elementLabel is the short name shown in lists and on the canvas
func elementLabel(el model.Element) string {
	for _, key := range []string{"title", "label", "content", "placeholder"} {
		if v, ok := el.Properties[key].(string); ok && v != "" {
			return v
		}
	}
	return model.DefaultsFor(el.Type).Label
}

// parseAssignment parses "key=value". Values that parse as JSON keep
// their JSON type; anything else is a string.
func parseAssignment(s string) (string, any, error) {
	key, raw, ok := strings.Cut(s, "=")
	key = strings.TrimSpace(key)
	if !ok || key == "" {
		return "", nil, fmt.Errorf("expected key=value")
	}
	raw = strings.TrimSpace(raw)
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		v = raw
	}
	return key, v, nil
}

// propertyLines formats a property bag as sorted key = value lines
func propertyLines(props map[string]any) []string {
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		var text string
		switch v := props[k].(type) {
		case string:
			text = v
		default:
			data, err := json.Marshal(v)
			if err != nil {
				text = fmt.Sprint(v)
			} else {
				text = string(data)
			}
		}
		lines = append(lines, k+" = "+text)
	}
	return lines
}

// canvasExtent is the logical size the canvas preview scales from
func canvasExtent(elements []model.Element) (float64, float64) {
	w, h := float64(minCanvasWidth), float64(minCanvasHeight)
	for _, el := range elements {
		w = max(w, el.Position.X+el.Size.Width)
		h = max(h, el.Position.Y+el.Size.Height)
	}
	return w, h
}

type boxRunes struct {
	h, v, tl, tr, bl, br rune
}

var (
	plainBox    = boxRunes{'─', '│', '┌', '┐', '└', '┘'}
	selectedBox = boxRunes{'═', '║', '╔', '╗', '╚', '╝'}
)

// drawCanvas scales elements into a cols x rows grid of box outlines. The
// selected element is drawn last so it stays on top.
func drawCanvas(elements []model.Element, selectedID string, cols, rows int) []string {
	if cols < 2 || rows < 2 {
		return nil
	}
	grid := make([][]rune, rows)
	for y := range grid {
		grid[y] = []rune(strings.Repeat(" ", cols))
	}

	extentW, extentH := canvasExtent(elements)
	sx := float64(cols) / extentW
	sy := float64(rows) / extentH

	ordered := make([]model.Element, 0, len(elements))
	var selected *model.Element
	for i := range elements {
		if elements[i].ID == selectedID {
			selected = &elements[i]
			continue
		}
		ordered = append(ordered, elements[i])
	}
	if selected != nil {
		ordered = append(ordered, *selected)
	}

	for _, el := range ordered {
		x0 := clamp(int(el.Position.X*sx), 0, cols-2)
		y0 := clamp(int(el.Position.Y*sy), 0, rows-2)
		x1 := clamp(int((el.Position.X+el.Size.Width)*sx)-1, x0+1, cols-1)
		y1 := clamp(int((el.Position.Y+el.Size.Height)*sy)-1, y0+1, rows-1)

		box := plainBox
		if el.ID == selectedID {
			box = selectedBox
		}
		for x := x0; x <= x1; x++ {
			grid[y0][x] = box.h
			grid[y1][x] = box.h
		}
		for y := y0; y <= y1; y++ {
			grid[y][x0] = box.v
			grid[y][x1] = box.v
		}
		grid[y0][x0], grid[y0][x1] = box.tl, box.tr
		grid[y1][x0], grid[y1][x1] = box.bl, box.br

		// Clear the inside so overlapping boxes read front to back
		for y := y0 + 1; y < y1; y++ {
			for x := x0 + 1; x < x1; x++ {
				grid[y][x] = ' '
			}
		}
		if y1-y0 >= 2 && x1-x0 >= 3 {
			label := []rune(truncate(elementLabel(el), x1-x0-1))
			copy(grid[y0+1][x0+1:x1], label)
		}
	}

	lines := make([]string, rows)
	for y, row := range grid {
		lines[y] = string(row)
	}
	return lines
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	return min(max(v, lo), hi)
}
