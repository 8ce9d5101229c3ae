package store

import "github.com/existflow/dashcraft/internal/model"

// DuplicateOffset is how far a duplicated element is moved from its source
const DuplicateOffset = 20

// ElementPatch holds the top-level fields to change on an element. Nil
// fields are left untouched; Properties is shallow-merged.
type ElementPatch struct {
	Type       *model.ElementType
	Position   *model.Position
	Size       *model.Size
	ScreenID   *string
	Properties map[string]any
}

// AddElement places a new element of the given type on the active screen,
// selects it and opens the properties panel
func (s *Store) AddElement(t model.ElementType, pos model.Position) model.Element {
	var added model.Element
	s.update(func() bool {
		defaults := model.DefaultsFor(t)
		screenID := ""
		if i := s.activeIndexLocked(); i >= 0 {
			screenID = s.screens[i].ID
		}
		added = model.Element{
			ID:         s.newID(),
			Type:       t,
			Position:   pos,
			Size:       defaults.Size,
			ScreenID:   screenID,
			Properties: defaults.Properties,
		}
		s.elements = append(s.elements, added)
		s.selectedElementID = added.ID
		s.panelOpen = true
		return true
	})
	return added.Clone()
}

// UpdateElement merges patch into the element with the given id. A
// ScreenID naming no existing screen is ignored.
func (s *Store) UpdateElement(id string, patch ElementPatch) {
	s.update(func() bool {
		i := s.elementIndexLocked(id)
		if i < 0 {
			return false
		}
		el := &s.elements[i]
		if patch.Type != nil {
			el.Type = *patch.Type
		}
		if patch.Position != nil {
			el.Position = *patch.Position
		}
		if patch.Size != nil {
			el.Size = *patch.Size
		}
		if patch.ScreenID != nil && s.screenIndexLocked(*patch.ScreenID) >= 0 {
			el.ScreenID = *patch.ScreenID
		}
		mergeProperties(el, patch.Properties)
		return true
	})
}

// UpdateElementProperties shallow-merges props into the element's property bag
func (s *Store) UpdateElementProperties(id string, props map[string]any) {
	s.update(func() bool {
		i := s.elementIndexLocked(id)
		if i < 0 {
			return false
		}
		mergeProperties(&s.elements[i], props)
		return true
	})
}

func mergeProperties(el *model.Element, props map[string]any) {
	if len(props) == 0 {
		return
	}
	merged := model.CloneProperties(el.Properties)
	for k, v := range props {
		merged[k] = v
	}
	el.Properties = merged
}

// RemoveElement deletes the element and clears the selection if it was selected
func (s *Store) RemoveElement(id string) {
	s.update(func() bool {
		i := s.elementIndexLocked(id)
		if i < 0 {
			return false
		}
		s.elements = append(s.elements[:i], s.elements[i+1:]...)
		if s.selectedElementID == id {
			s.selectedElementID = ""
			s.panelOpen = false
		}
		return true
	})
}

// DuplicateElement clones the element with a new id, offset by
// DuplicateOffset on both axes, and selects the clone
func (s *Store) DuplicateElement(id string) (model.Element, bool) {
	var clone model.Element
	found := false
	s.update(func() bool {
		i := s.elementIndexLocked(id)
		if i < 0 {
			return false
		}
		clone = s.elements[i].Clone()
		clone.ID = s.newID()
		clone.Position.X += DuplicateOffset
		clone.Position.Y += DuplicateOffset
		s.elements = append(s.elements, clone)
		s.selectedElementID = clone.ID
		s.panelOpen = true
		found = true
		return true
	})
	return clone.Clone(), found
}

// SelectElement selects the element with the given id. An empty id clears
// the selection. The properties panel is open exactly when something is
// selected.
func (s *Store) SelectElement(id string) {
	s.update(func() bool {
		if s.selectedElementID == id && s.panelOpen == (id != "") {
			return false
		}
		s.selectedElementID = id
		s.panelOpen = id != ""
		return true
	})
}
