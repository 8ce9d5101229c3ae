// Package store holds the in-memory canvas state of an open project: its
// screens, elements, saved templates and the current selection.
//
// A Store is created per editor session and passed to whatever needs it.
// Every mutation is applied under a lock and followed by a snapshot
// broadcast to subscribers, in the order the mutations were made.
package store

import (
	"sync"

	"github.com/existflow/dashcraft/internal/model"
	"github.com/existflow/dashcraft/internal/notify"
	"github.com/google/uuid"
)

// Snapshot is a deep copy of the store state
type Snapshot struct {
	Screens             []model.Screen
	Elements            []model.Element
	Templates           []model.Template
	ActiveTemplateID    string
	SelectedElementID   string
	PropertiesPanelOpen bool
}

// Option configures a Store
type Option func(*Store)

// WithTemplateRepository sets the remote used by template operations
func WithTemplateRepository(repo TemplateRepository) Option {
	return func(s *Store) { s.repo = repo }
}

// WithNotifier sets where template failures are surfaced
func WithNotifier(n notify.Notifier) Option {
	return func(s *Store) { s.notifier = n }
}

// WithIDGenerator overrides how new element and screen ids are generated
func WithIDGenerator(gen func() string) Option {
	return func(s *Store) { s.newID = gen }
}

// Store is the single source of truth for the canvas
type Store struct {
	// notifyMu is held from a mutation through its broadcast, so snapshots
	// reach subscribers in mutation order. Taken before mu.
	notifyMu sync.Mutex
	mu       sync.Mutex

	screens           []model.Screen
	elements          []model.Element
	templates         []model.Template
	activeTemplateID  string
	selectedElementID string
	panelOpen         bool

	subscribers map[int]func(Snapshot)
	nextSubID   int

	repo     TemplateRepository
	notifier notify.Notifier
	newID    func() string
}

// New creates a store holding a single active screen and no elements
func New(opts ...Option) *Store {
	s := &Store{
		subscribers: make(map[int]func(Snapshot)),
		notifier:    notify.Discard,
		newID:       func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(s)
	}
	s.screens = []model.Screen{s.makeScreen(model.DefaultScreenName(1), true)}
	s.elements = []model.Element{}
	return s
}

// Subscribe registers fn to receive a snapshot after every state change.
// Snapshots arrive one at a time in mutation order. fn may read the store
// but must not mutate it. The returned function removes the subscription.
func (s *Store) Subscribe(fn func(Snapshot)) func() {
	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subscribers, id)
		s.mu.Unlock()
	}
}

// update applies fn under the lock. If fn reports a change, subscribers
// receive the resulting snapshot after the state lock is released; the next
// mutation waits until they have.
func (s *Store) update(fn func() bool) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	if !fn() {
		s.mu.Unlock()
		return
	}
	snap := s.snapshotLocked()
	subs := make([]func(Snapshot), 0, len(s.subscribers))
	for _, sub := range s.subscribers {
		subs = append(subs, sub)
	}
	s.mu.Unlock()

	for _, sub := range subs {
		sub(snap)
	}
}

// Load replaces the canvas with the given screens and elements. A canvas
// without screens gets a fresh Screen1. Activation is normalised so that
// exactly one screen is active, and elements pointing at unknown screens are
// dropped.
func (s *Store) Load(screens []model.Screen, elements []model.Element) {
	s.update(func() bool {
		s.loadLocked(screens, elements)
		return true
	})
}

func (s *Store) loadLocked(screens []model.Screen, elements []model.Element) {
	s.screens = make([]model.Screen, len(screens))
	copy(s.screens, screens)
	if len(s.screens) == 0 {
		s.screens = append(s.screens, s.makeScreen(model.DefaultScreenName(1), true))
	}

	active := -1
	for i := range s.screens {
		if s.screens[i].IsActive && active == -1 {
			active = i
		}
		s.screens[i].IsActive = false
	}
	if active == -1 {
		active = 0
	}
	s.screens[active].IsActive = true

	known := make(map[string]bool, len(s.screens))
	for _, sc := range s.screens {
		known[sc.ID] = true
	}
	s.elements = make([]model.Element, 0, len(elements))
	for _, el := range elements {
		if !known[el.ScreenID] {
			continue
		}
		el = el.Clone()
		s.elements = append(s.elements, el)
	}

	s.selectedElementID = ""
	s.panelOpen = false
}

// Snapshot returns a deep copy of the current state
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() Snapshot {
	return Snapshot{
		Screens:             copyScreens(s.screens),
		Elements:            copyElements(s.elements),
		Templates:           copyTemplates(s.templates),
		ActiveTemplateID:    s.activeTemplateID,
		SelectedElementID:   s.selectedElementID,
		PropertiesPanelOpen: s.panelOpen,
	}
}

// Screens returns a copy of all screens in order
func (s *Store) Screens() []model.Screen {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyScreens(s.screens)
}

// Elements returns a copy of all elements across screens
func (s *Store) Elements() []model.Element {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyElements(s.elements)
}

// ActiveScreen returns the active screen
func (s *Store) ActiveScreen() (model.Screen, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.activeIndexLocked()
	if i < 0 {
		return model.Screen{}, false
	}
	return s.screens[i], true
}

// ElementsOnActiveScreen returns the elements placed on the active screen
func (s *Store) ElementsOnActiveScreen() []model.Element {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.activeIndexLocked()
	if i < 0 {
		return nil
	}
	var out []model.Element
	for _, el := range s.elements {
		if el.ScreenID == s.screens[i].ID {
			out = append(out, el.Clone())
		}
	}
	return out
}

// SelectedElement returns the selected element, if any
func (s *Store) SelectedElement() (model.Element, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selectedElementID == "" {
		return model.Element{}, false
	}
	i := s.elementIndexLocked(s.selectedElementID)
	if i < 0 {
		return model.Element{}, false
	}
	return s.elements[i].Clone(), true
}

// PropertiesPanelOpen reports whether the properties panel is shown
func (s *Store) PropertiesPanelOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.panelOpen
}

func (s *Store) makeScreen(name string, active bool) model.Screen {
	return model.Screen{ID: s.newID(), Name: name, IsActive: active}
}

func (s *Store) activeIndexLocked() int {
	for i := range s.screens {
		if s.screens[i].IsActive {
			return i
		}
	}
	return -1
}

func (s *Store) screenIndexLocked(id string) int {
	for i := range s.screens {
		if s.screens[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) elementIndexLocked(id string) int {
	for i := range s.elements {
		if s.elements[i].ID == id {
			return i
		}
	}
	return -1
}

func copyScreens(in []model.Screen) []model.Screen {
	out := make([]model.Screen, len(in))
	copy(out, in)
	return out
}

func copyElements(in []model.Element) []model.Element {
	out := make([]model.Element, len(in))
	for i := range in {
		out[i] = in[i].Clone()
	}
	return out
}

func copyTemplates(in []model.Template) []model.Template {
	out := make([]model.Template, len(in))
	for i, t := range in {
		t.Screens = copyScreens(t.Screens)
		t.Elements = copyElements(t.Elements)
		out[i] = t
	}
	return out
}
