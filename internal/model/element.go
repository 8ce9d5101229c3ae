package model

// ElementType identifies the kind of placeholder an element renders
type ElementType string

// Supported element kinds
const (
	ElementKPI          ElementType = "kpi"
	ElementBarChart     ElementType = "bar-chart"
	ElementLineChart    ElementType = "line-chart"
	ElementAreaChart    ElementType = "area-chart"
	ElementPieChart     ElementType = "pie-chart"
	ElementDonutChart   ElementType = "donut-chart"
	ElementScatterChart ElementType = "scatter-chart"
	ElementTable        ElementType = "table"
	ElementText         ElementType = "text"
	ElementButton       ElementType = "button"
	ElementImage        ElementType = "image"
	ElementCard         ElementType = "card"
	ElementInput        ElementType = "input"
	ElementDropdown     ElementType = "dropdown"
	ElementTabs         ElementType = "tabs"
	ElementProgress     ElementType = "progress"
)

// Position is the top-left corner of an element on the canvas
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Size is the width and height of an element
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Element is a single placeable canvas item
type Element struct {
	ID         string         `json:"id"`
	Type       ElementType    `json:"type"`
	Position   Position       `json:"position"`
	Size       Size           `json:"size"`
	ScreenID   string         `json:"screenId"`
	Properties map[string]any `json:"properties"`
}

// Clone returns a copy of the element with its own property map. Nested
// values inside the map are copied one level deep for slices and maps.
func (e Element) Clone() Element {
	c := e
	c.Properties = CloneProperties(e.Properties)
	return c
}

// CloneProperties copies a property bag
func CloneProperties(props map[string]any) map[string]any {
	out := make(map[string]any, len(props))
	for k, v := range props {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return CloneProperties(t)
	case []any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = cloneValue(t[i])
		}
		return out
	case []string:
		return append([]string(nil), t...)
	case []float64:
		return append([]float64(nil), t...)
	default:
		return v
	}
}

// ElementDefault holds the initial size and properties for an element kind
type ElementDefault struct {
	Label      string
	Size       Size
	Properties map[string]any
}

var sampleSeries = []any{
	map[string]any{"name": "Jan", "value": 400.0},
	map[string]any{"name": "Feb", "value": 300.0},
	map[string]any{"name": "Mar", "value": 600.0},
	map[string]any{"name": "Apr", "value": 800.0},
	map[string]any{"name": "May", "value": 500.0},
}

var elementDefaults = map[ElementType]ElementDefault{
	ElementKPI: {
		Label: "KPI",
		Size:  Size{Width: 200, Height: 120},
		Properties: map[string]any{
			"title":       "Total Revenue",
			"value":       "$45,231",
			"change":      "+20.1%",
			"trend":       "up",
			"color":       "#3b82f6",
			"showTrend":   true,
			"description": "from last month",
		},
	},
	ElementBarChart: {
		Label: "Bar Chart",
		Size:  Size{Width: 400, Height: 300},
		Properties: map[string]any{
			"title":      "Bar Chart",
			"color":      "#3b82f6",
			"showGrid":   true,
			"showLegend": true,
			"data":       sampleSeries,
		},
	},
	ElementLineChart: {
		Label: "Line Chart",
		Size:  Size{Width: 400, Height: 300},
		Properties: map[string]any{
			"title":      "Line Chart",
			"color":      "#10b981",
			"showGrid":   true,
			"showLegend": true,
			"curved":     true,
			"data":       sampleSeries,
		},
	},
	ElementAreaChart: {
		Label: "Area Chart",
		Size:  Size{Width: 400, Height: 300},
		Properties: map[string]any{
			"title":    "Area Chart",
			"color":    "#8b5cf6",
			"showGrid": true,
			"opacity":  0.4,
			"data":     sampleSeries,
		},
	},
	ElementPieChart: {
		Label: "Pie Chart",
		Size:  Size{Width: 300, Height: 300},
		Properties: map[string]any{
			"title":      "Pie Chart",
			"showLegend": true,
			"showLabels": true,
			"colors":     []any{"#3b82f6", "#10b981", "#f59e0b", "#ef4444"},
			"data":       sampleSeries,
		},
	},
	ElementDonutChart: {
		Label: "Donut Chart",
		Size:  Size{Width: 300, Height: 300},
		Properties: map[string]any{
			"title":       "Donut Chart",
			"innerRadius": 60.0,
			"showLegend":  true,
			"colors":      []any{"#3b82f6", "#10b981", "#f59e0b", "#ef4444"},
			"data":        sampleSeries,
		},
	},
	ElementScatterChart: {
		Label: "Scatter Chart",
		Size:  Size{Width: 400, Height: 300},
		Properties: map[string]any{
			"title":    "Scatter Chart",
			"color":    "#ef4444",
			"showGrid": true,
			"data": []any{
				map[string]any{"x": 10.0, "y": 30.0},
				map[string]any{"x": 40.0, "y": 50.0},
				map[string]any{"x": 70.0, "y": 20.0},
			},
		},
	},
	ElementTable: {
		Label: "Table",
		Size:  Size{Width: 500, Height: 300},
		Properties: map[string]any{
			"title":     "Table",
			"columns":   []any{"Name", "Status", "Amount"},
			"rows":      5.0,
			"striped":   true,
			"showTitle": true,
		},
	},
	ElementText: {
		Label: "Text",
		Size:  Size{Width: 200, Height: 50},
		Properties: map[string]any{
			"text":       "Text block",
			"fontSize":   16.0,
			"fontWeight": "normal",
			"color":      "#111827",
			"align":      "left",
		},
	},
	ElementButton: {
		Label: "Button",
		Size:  Size{Width: 120, Height: 40},
		Properties: map[string]any{
			"label":   "Button",
			"variant": "default",
			"color":   "#3b82f6",
		},
	},
	ElementImage: {
		Label: "Image",
		Size:  Size{Width: 300, Height: 200},
		Properties: map[string]any{
			"src":       "",
			"alt":       "Image placeholder",
			"objectFit": "cover",
		},
	},
	ElementCard: {
		Label: "Card",
		Size:  Size{Width: 300, Height: 200},
		Properties: map[string]any{
			"title":       "Card Title",
			"description": "Card description",
			"showBorder":  true,
			"background":  "#ffffff",
		},
	},
	ElementInput: {
		Label: "Input",
		Size:  Size{Width: 240, Height: 40},
		Properties: map[string]any{
			"label":       "Label",
			"placeholder": "Enter value...",
			"inputType":   "text",
		},
	},
	ElementDropdown: {
		Label: "Dropdown",
		Size:  Size{Width: 200, Height: 40},
		Properties: map[string]any{
			"label":   "Select",
			"options": []any{"Option 1", "Option 2", "Option 3"},
		},
	},
	ElementTabs: {
		Label: "Tabs",
		Size:  Size{Width: 400, Height: 48},
		Properties: map[string]any{
			"tabs":      []any{"Overview", "Analytics", "Reports"},
			"activeTab": 0.0,
		},
	},
	ElementProgress: {
		Label: "Progress",
		Size:  Size{Width: 240, Height: 24},
		Properties: map[string]any{
			"value":     65.0,
			"max":       100.0,
			"color":     "#10b981",
			"showLabel": true,
		},
	},
}

var genericDefault = ElementDefault{
	Label:      "Element",
	Size:       Size{Width: 200, Height: 150},
	Properties: map[string]any{},
}

// DefaultsFor returns the default size and a fresh copy of the default
// properties for t. Unknown types get a generic box.
func DefaultsFor(t ElementType) ElementDefault {
	d, ok := elementDefaults[t]
	if !ok {
		d = genericDefault
	}
	d.Properties = CloneProperties(d.Properties)
	return d
}

// IsKnownElementType reports whether t has an entry in the defaults table
func IsKnownElementType(t ElementType) bool {
	_, ok := elementDefaults[t]
	return ok
}

// ElementTypes lists the supported element kinds in palette order
func ElementTypes() []ElementType {
	return []ElementType{
		ElementKPI, ElementBarChart, ElementLineChart, ElementAreaChart,
		ElementPieChart, ElementDonutChart, ElementScatterChart, ElementTable,
		ElementText, ElementButton, ElementImage, ElementCard,
		ElementInput, ElementDropdown, ElementTabs, ElementProgress,
	}
}
