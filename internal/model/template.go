package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// Template is a saved, loadable snapshot of a canvas
type Template struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Screens   []Screen  `json:"screens"`
	Elements  []Element `json:"elements"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TemplateRecord is the persisted shape of a template. Screens and elements
// are stored as JSON-encoded strings, unlike the JSON columns on Project.
type TemplateRecord struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id,omitempty"`
	Name      string    `json:"name"`
	Screens   string    `json:"screens"`
	Elements  string    `json:"elements"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// EncodeTemplate converts a template to its persisted shape
func EncodeTemplate(t Template) (TemplateRecord, error) {
	screens := t.Screens
	if screens == nil {
		screens = []Screen{}
	}
	elements := t.Elements
	if elements == nil {
		elements = []Element{}
	}

	screensJSON, err := json.Marshal(screens)
	if err != nil {
		return TemplateRecord{}, fmt.Errorf("failed to encode screens: %w", err)
	}
	elementsJSON, err := json.Marshal(elements)
	if err != nil {
		return TemplateRecord{}, fmt.Errorf("failed to encode elements: %w", err)
	}

	return TemplateRecord{
		ID:        t.ID,
		Name:      t.Name,
		Screens:   string(screensJSON),
		Elements:  string(elementsJSON),
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}, nil
}

// DecodeTemplate parses the string columns of a persisted template
func DecodeTemplate(r TemplateRecord) (Template, error) {
	t := Template{
		ID:        r.ID,
		Name:      r.Name,
		Screens:   []Screen{},
		Elements:  []Element{},
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	if r.Screens != "" {
		if err := json.Unmarshal([]byte(r.Screens), &t.Screens); err != nil {
			return Template{}, fmt.Errorf("failed to decode template screens: %w", err)
		}
	}
	if r.Elements != "" {
		if err := json.Unmarshal([]byte(r.Elements), &t.Elements); err != nil {
			return Template{}, fmt.Errorf("failed to decode template elements: %w", err)
		}
	}
	for i := range t.Elements {
		if t.Elements[i].Properties == nil {
			t.Elements[i].Properties = map[string]any{}
		}
	}
	return t, nil
}
