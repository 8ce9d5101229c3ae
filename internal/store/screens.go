package store

import "github.com/existflow/dashcraft/internal/model"

// AddScreen appends a screen named Screen<N>, where N is the current screen
// count plus one, and makes it the only active screen. Names can repeat once
// screens have been renamed or deleted.
func (s *Store) AddScreen() model.Screen {
	var added model.Screen
	s.update(func() bool {
		for i := range s.screens {
			s.screens[i].IsActive = false
		}
		added = s.makeScreen(model.DefaultScreenName(len(s.screens)+1), true)
		s.screens = append(s.screens, added)
		return true
	})
	return added
}

// SwitchScreen makes the screen with the given id the only active one and
// clears the selection
func (s *Store) SwitchScreen(id string) {
	s.update(func() bool {
		if s.screenIndexLocked(id) < 0 {
			return false
		}
		for i := range s.screens {
			s.screens[i].IsActive = s.screens[i].ID == id
		}
		s.selectedElementID = ""
		s.panelOpen = false
		return true
	})
}

// RenameScreen renames a screen in place. Callers trim and validate.
func (s *Store) RenameScreen(id, name string) {
	s.update(func() bool {
		i := s.screenIndexLocked(id)
		if i < 0 {
			return false
		}
		s.screens[i].Name = name
		return true
	})
}

// DeleteScreen removes a screen and every element on it. The last remaining
// screen cannot be deleted. If the deleted screen was active, the first
// remaining screen becomes active.
func (s *Store) DeleteScreen(id string) {
	s.update(func() bool {
		if len(s.screens) <= 1 {
			return false
		}
		i := s.screenIndexLocked(id)
		if i < 0 {
			return false
		}
		wasActive := s.screens[i].IsActive
		s.screens = append(s.screens[:i], s.screens[i+1:]...)

		kept := s.elements[:0]
		for _, el := range s.elements {
			if el.ScreenID == id {
				if el.ID == s.selectedElementID {
					s.selectedElementID = ""
					s.panelOpen = false
				}
				continue
			}
			kept = append(kept, el)
		}
		s.elements = kept

		if wasActive {
			s.screens[0].IsActive = true
		}
		return true
	})
}
