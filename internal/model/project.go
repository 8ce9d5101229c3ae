package model

import (
	"encoding/json"
	"time"
)

// Project is a shareable canvas. Screens and elements are stored as JSON
// columns on the project row, not as separate rows.
type Project struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	OwnerID     string    `json:"owner_id"`
	Screens     []Screen  `json:"screens"`
	Elements    []Element `json:"elements"`
	IsPublic    bool      `json:"is_public"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// UnmarshalJSON tolerates null or malformed screens/elements columns,
// falling back to empty lists.
func (p *Project) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID          string          `json:"id"`
		Name        string          `json:"name"`
		Description string          `json:"description"`
		OwnerID     string          `json:"owner_id"`
		Screens     json.RawMessage `json:"screens"`
		Elements    json.RawMessage `json:"elements"`
		IsPublic    bool            `json:"is_public"`
		CreatedAt   time.Time       `json:"created_at"`
		UpdatedAt   time.Time       `json:"updated_at"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*p = Project{
		ID:          raw.ID,
		Name:        raw.Name,
		Description: raw.Description,
		OwnerID:     raw.OwnerID,
		Screens:     DecodeScreens(raw.Screens),
		Elements:    DecodeElements(raw.Elements),
		IsPublic:    raw.IsPublic,
		CreatedAt:   raw.CreatedAt,
		UpdatedAt:   raw.UpdatedAt,
	}
	return nil
}

// DefaultProject returns a new project with a single active screen
func DefaultProject(id, ownerID, name string) Project {
	now := time.Now()
	return Project{
		ID:        id,
		Name:      name,
		OwnerID:   ownerID,
		Screens:   []Screen{NewScreen(DefaultScreenName(1), true)},
		Elements:  []Element{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// DecodeScreens parses a screens column. A null, non-array or otherwise
// malformed value yields an empty list.
func DecodeScreens(raw json.RawMessage) []Screen {
	screens := []Screen{}
	if len(raw) == 0 {
		return screens
	}
	if err := json.Unmarshal(raw, &screens); err != nil || screens == nil {
		return []Screen{}
	}
	return screens
}

// DecodeElements parses an elements column with the same fallback rules as
// DecodeScreens. Nil property bags are replaced with empty maps.
func DecodeElements(raw json.RawMessage) []Element {
	elements := []Element{}
	if len(raw) == 0 {
		return elements
	}
	if err := json.Unmarshal(raw, &elements); err != nil || elements == nil {
		return []Element{}
	}
	for i := range elements {
		if elements[i].Properties == nil {
			elements[i].Properties = map[string]any{}
		}
	}
	return elements
}
