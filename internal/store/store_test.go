package store

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/existflow/dashcraft/internal/model"
	"github.com/existflow/dashcraft/internal/notify"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func activeCount(screens []model.Screen) int {
	n := 0
	for _, sc := range screens {
		if sc.IsActive {
			n++
		}
	}
	return n
}

func TestNew_SingleActiveScreen(t *testing.T) {
	s := New()
	screens := s.Screens()
	require.Len(t, screens, 1)
	assert.Equal(t, "Screen1", screens[0].Name)
	assert.True(t, screens[0].IsActive)
	assert.Empty(t, s.Elements())
}

func TestAddScreen_NamesAndActivation(t *testing.T) {
	s := New()
	s.AddScreen()
	third := s.AddScreen()

	screens := s.Screens()
	require.Len(t, screens, 3)
	assert.Equal(t, []string{"Screen1", "Screen2", "Screen3"},
		[]string{screens[0].Name, screens[1].Name, screens[2].Name})
	assert.Equal(t, 1, activeCount(screens))

	active, ok := s.ActiveScreen()
	require.True(t, ok)
	assert.Equal(t, third.ID, active.ID)
	assert.Equal(t, "Screen3", active.Name)
}

func TestAddScreen_DuplicateNamesAfterDelete(t *testing.T) {
	s := New()
	second := s.AddScreen()
	s.AddScreen()
	s.DeleteScreen(second.ID)

	added := s.AddScreen()
	assert.Equal(t, "Screen3", added.Name)

	names := 0
	for _, sc := range s.Screens() {
		if sc.Name == "Screen3" {
			names++
		}
	}
	assert.Equal(t, 2, names)
}

func TestAddElement_KPI(t *testing.T) {
	s := New()
	el := s.AddElement(model.ElementKPI, model.Position{X: 10, Y: 10})

	elements := s.Elements()
	require.Len(t, elements, 1)
	assert.Equal(t, model.ElementKPI, elements[0].Type)
	assert.Equal(t, model.Position{X: 10, Y: 10}, elements[0].Position)
	assert.Equal(t, model.DefaultsFor(model.ElementKPI).Size, elements[0].Size)

	active, _ := s.ActiveScreen()
	assert.Equal(t, active.ID, elements[0].ScreenID)

	selected, ok := s.SelectedElement()
	require.True(t, ok)
	assert.Equal(t, el.ID, selected.ID)
	assert.True(t, s.PropertiesPanelOpen())
}

func TestAddElement_UnknownTypeGetsGenericBox(t *testing.T) {
	s := New()
	el := s.AddElement(model.ElementType("sparkline"), model.Position{})
	assert.Equal(t, model.Size{Width: 200, Height: 150}, el.Size)
	assert.Empty(t, el.Properties)
	assert.NotNil(t, el.Properties)
}

func TestUpdateElementProperties_ShallowMerge(t *testing.T) {
	s := New()
	el := s.AddElement(model.ElementKPI, model.Position{})
	s.UpdateElementProperties(el.ID, map[string]any{"title": "Churn", "color": "red"})

	got, ok := s.SelectedElement()
	require.True(t, ok)
	assert.Equal(t, "Churn", got.Properties["title"])
	assert.Equal(t, "red", got.Properties["color"])
	for k := range model.DefaultsFor(model.ElementKPI).Properties {
		assert.Contains(t, got.Properties, k)
	}
}

func TestUpdateElement_Patch(t *testing.T) {
	s := New()
	el := s.AddElement(model.ElementText, model.Position{X: 1, Y: 2})
	size := model.Size{Width: 50, Height: 60}
	s.UpdateElement(el.ID, ElementPatch{Size: &size, Properties: map[string]any{"text": "hi"}})

	got := s.Elements()[0]
	assert.Equal(t, size, got.Size)
	assert.Equal(t, model.Position{X: 1, Y: 2}, got.Position)
	assert.Equal(t, "hi", got.Properties["text"])

	before := s.Snapshot()
	s.UpdateElement("missing", ElementPatch{Size: &size})
	assert.Equal(t, before, s.Snapshot())
}

func TestDuplicateElement(t *testing.T) {
	s := New()
	el := s.AddElement(model.ElementCard, model.Position{X: 5, Y: 7})

	dup, ok := s.DuplicateElement(el.ID)
	require.True(t, ok)
	assert.NotEqual(t, el.ID, dup.ID)
	assert.Equal(t, model.Position{X: 5 + DuplicateOffset, Y: 7 + DuplicateOffset}, dup.Position)
	assert.Equal(t, el.Properties, dup.Properties)

	s.UpdateElementProperties(dup.ID, map[string]any{"title": "changed"})
	for _, e := range s.Elements() {
		if e.ID == el.ID {
			assert.NotEqual(t, "changed", e.Properties["title"])
		}
	}

	selected, _ := s.SelectedElement()
	assert.Equal(t, dup.ID, selected.ID)

	_, ok = s.DuplicateElement("missing")
	assert.False(t, ok)
}

func TestRemoveElement_ClearsSelection(t *testing.T) {
	s := New()
	el := s.AddElement(model.ElementButton, model.Position{})
	s.RemoveElement(el.ID)

	assert.Empty(t, s.Elements())
	_, ok := s.SelectedElement()
	assert.False(t, ok)
	assert.False(t, s.PropertiesPanelOpen())
}

func TestSwitchScreen(t *testing.T) {
	s := New()
	first, _ := s.ActiveScreen()
	s.AddScreen()
	el := s.AddElement(model.ElementTable, model.Position{})
	require.NotEmpty(t, el.ID)

	s.SwitchScreen(first.ID)
	active, _ := s.ActiveScreen()
	assert.Equal(t, first.ID, active.ID)
	assert.Equal(t, 1, activeCount(s.Screens()))
	assert.Empty(t, s.ElementsOnActiveScreen())
	_, ok := s.SelectedElement()
	assert.False(t, ok)

	before := s.Snapshot()
	s.SwitchScreen("missing")
	assert.Equal(t, before, s.Snapshot())
}

func TestDeleteScreen(t *testing.T) {
	t.Run("last screen is kept", func(t *testing.T) {
		s := New()
		only, _ := s.ActiveScreen()
		s.DeleteScreen(only.ID)
		assert.Len(t, s.Screens(), 1)
	})

	t.Run("cascades elements and reactivates", func(t *testing.T) {
		s := New()
		first, _ := s.ActiveScreen()
		s.AddElement(model.ElementKPI, model.Position{})
		second := s.AddScreen()
		el := s.AddElement(model.ElementPieChart, model.Position{})

		s.DeleteScreen(second.ID)

		screens := s.Screens()
		require.Len(t, screens, 1)
		assert.Equal(t, first.ID, screens[0].ID)
		assert.True(t, screens[0].IsActive)
		for _, e := range s.Elements() {
			assert.NotEqual(t, second.ID, e.ScreenID)
			assert.NotEqual(t, el.ID, e.ID)
		}
		assert.Len(t, s.Elements(), 1)
		_, ok := s.SelectedElement()
		assert.False(t, ok)
	})

	t.Run("inactive screen keeps active one", func(t *testing.T) {
		s := New()
		first, _ := s.ActiveScreen()
		second := s.AddScreen()
		s.SwitchScreen(first.ID)
		s.DeleteScreen(second.ID)

		active, _ := s.ActiveScreen()
		assert.Equal(t, first.ID, active.ID)
	})
}

func TestLoad_Normalises(t *testing.T) {
	s := New(WithIDGenerator(sequentialIDs()))
	s.Load([]model.Screen{
		{ID: "a", Name: "A", IsActive: false},
		{ID: "b", Name: "B", IsActive: true},
		{ID: "c", Name: "C", IsActive: true},
	}, []model.Element{
		{ID: "e1", Type: model.ElementText, ScreenID: "a", Properties: map[string]any{}},
		{ID: "e2", Type: model.ElementText, ScreenID: "zzz", Properties: map[string]any{}},
	})

	screens := s.Screens()
	assert.Equal(t, 1, activeCount(screens))
	assert.True(t, screens[1].IsActive)
	require.Len(t, s.Elements(), 1)
	assert.Equal(t, "e1", s.Elements()[0].ID)

	s.Load(nil, nil)
	screens = s.Screens()
	require.Len(t, screens, 1)
	assert.Equal(t, "Screen1", screens[0].Name)
	assert.True(t, screens[0].IsActive)
}

func TestSubscribe_ReceivesSnapshots(t *testing.T) {
	s := New()
	var got []Snapshot
	unsubscribe := s.Subscribe(func(snap Snapshot) { got = append(got, snap) })

	s.AddScreen()
	s.AddElement(model.ElementKPI, model.Position{})
	require.Len(t, got, 2)
	assert.Len(t, got[0].Screens, 2)
	assert.Empty(t, got[0].Elements)
	assert.Len(t, got[1].Elements, 1)

	got[1].Elements[0].Properties["title"] = "mutated"
	assert.NotEqual(t, "mutated", s.Elements()[0].Properties["title"])

	unsubscribe()
	s.AddScreen()
	assert.Len(t, got, 2)
}

// Random operation sequences must keep the canvas invariants intact.
func TestInvariants_RandomOperations(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	s := New()
	types := model.ElementTypes()

	for step := 0; step < 2000; step++ {
		screens := s.Screens()
		elements := s.Elements()
		switch rng.Intn(9) {
		case 0:
			s.AddScreen()
		case 1:
			s.SwitchScreen(screens[rng.Intn(len(screens))].ID)
		case 2:
			id := screens[rng.Intn(len(screens))].ID
			s.DeleteScreen(id)
			for _, e := range s.Elements() {
				require.NotEqual(t, id, e.ScreenID)
			}
		case 3, 4:
			s.AddElement(types[rng.Intn(len(types))], model.Position{X: float64(rng.Intn(500))})
		case 5:
			if len(elements) > 0 {
				s.RemoveElement(elements[rng.Intn(len(elements))].ID)
			}
		case 6:
			if len(elements) > 0 {
				s.DuplicateElement(elements[rng.Intn(len(elements))].ID)
			}
		case 7:
			s.RenameScreen(screens[rng.Intn(len(screens))].ID, "renamed")
		case 8:
			if len(elements) > 0 {
				target := screens[rng.Intn(len(screens))].ID
				if rng.Intn(2) == 0 {
					target = "no-such-screen"
				}
				s.UpdateElement(elements[rng.Intn(len(elements))].ID, ElementPatch{ScreenID: &target})
			}
		}

		screens = s.Screens()
		require.GreaterOrEqual(t, len(screens), 1)
		require.Equal(t, 1, activeCount(screens), "step %d", step)

		known := map[string]bool{}
		for _, sc := range screens {
			known[sc.ID] = true
		}
		for _, e := range s.Elements() {
			require.True(t, known[e.ScreenID], "element %s on missing screen", e.ID)
		}
		if sel, ok := s.SelectedElement(); ok {
			require.True(t, s.PropertiesPanelOpen())
			require.True(t, known[sel.ScreenID])
		}
	}
}

func TestUpdateElement_UnknownScreenIgnored(t *testing.T) {
	s := New()
	el := s.AddElement(model.ElementKPI, model.Position{X: 10, Y: 10})
	home := el.ScreenID

	missing := "no-such-screen"
	pos := model.Position{X: 50, Y: 60}
	s.UpdateElement(el.ID, ElementPatch{ScreenID: &missing, Position: &pos})

	got := s.Elements()
	require.Len(t, got, 1)
	assert.Equal(t, home, got[0].ScreenID)
	assert.Equal(t, pos, got[0].Position)

	other := s.AddScreen()
	s.UpdateElement(el.ID, ElementPatch{ScreenID: &other.ID})
	assert.Equal(t, other.ID, s.Elements()[0].ScreenID)
}

func TestSubscribers_SnapshotsInMutationOrder(t *testing.T) {
	s := New()
	entered := make(chan struct{})
	release := make(chan struct{})

	var mu sync.Mutex
	var counts []int
	first := true
	s.Subscribe(func(snap Snapshot) {
		mu.Lock()
		block := first
		first = false
		mu.Unlock()
		if block {
			close(entered)
			<-release
		}
		mu.Lock()
		counts = append(counts, len(snap.Elements))
		mu.Unlock()
	})

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.AddElement(model.ElementKPI, model.Position{})
	}()
	<-entered
	go func() {
		defer wg.Done()
		s.AddElement(model.ElementText, model.Position{})
	}()

	// Give the second mutation time to reach the store
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, []int{1, 2}, counts)
	assert.Len(t, s.Elements(), 2)
}

func TestConcurrentMutations(t *testing.T) {
	s := New()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				el := s.AddElement(model.ElementText, model.Position{})
				s.UpdateElementProperties(el.ID, map[string]any{"text": "x"})
			}
		}()
	}
	wg.Wait()
	assert.Len(t, s.Elements(), 400)
}

// fakeTemplates is an in-memory TemplateRepository
type fakeTemplates struct {
	mu      sync.Mutex
	records map[string]model.TemplateRecord
	order   []string
	nextID  int
	err     error
}

func newFakeTemplates() *fakeTemplates {
	return &fakeTemplates{records: map[string]model.TemplateRecord{}}
}

func (f *fakeTemplates) ListTemplates(ctx context.Context) ([]model.TemplateRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make([]model.TemplateRecord, 0, len(f.order))
	for _, id := range f.order {
		out = append(out, f.records[id])
	}
	return out, nil
}

func (f *fakeTemplates) GetTemplate(ctx context.Context, id string) (model.TemplateRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return model.TemplateRecord{}, f.err
	}
	rec, ok := f.records[id]
	if !ok {
		return model.TemplateRecord{}, ErrTemplateNotFound
	}
	return rec, nil
}

func (f *fakeTemplates) InsertTemplate(ctx context.Context, rec model.TemplateRecord) (model.TemplateRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return model.TemplateRecord{}, f.err
	}
	f.nextID++
	rec.ID = fmt.Sprintf("tpl-%d", f.nextID)
	rec.CreatedAt = time.Now().UTC()
	rec.UpdatedAt = rec.CreatedAt
	f.records[rec.ID] = rec
	f.order = append(f.order, rec.ID)
	return rec, nil
}

func (f *fakeTemplates) UpdateTemplate(ctx context.Context, rec model.TemplateRecord) (model.TemplateRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return model.TemplateRecord{}, f.err
	}
	if _, ok := f.records[rec.ID]; !ok {
		return model.TemplateRecord{}, ErrTemplateNotFound
	}
	rec.UpdatedAt = time.Now().UTC()
	f.records[rec.ID] = rec
	return rec, nil
}

func (f *fakeTemplates) DeleteTemplate(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	delete(f.records, id)
	for i, v := range f.order {
		if v == id {
			f.order = append(f.order[:i], f.order[i+1:]...)
			break
		}
	}
	return nil
}

func TestTemplates_SaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := newFakeTemplates()
	s := New(WithTemplateRepository(repo))

	s.AddElement(model.ElementKPI, model.Position{X: 10, Y: 20})
	s.AddScreen()
	s.AddElement(model.ElementBarChart, model.Position{X: 30, Y: 40})
	wantScreens := s.Screens()
	wantElements := s.Elements()

	saved, err := s.SaveTemplate(ctx, "Sales")
	require.NoError(t, err)
	assert.Equal(t, saved.ID, s.ActiveTemplateID())
	assert.Equal(t, "Sales", saved.Name)

	s.Load(nil, nil)
	require.Empty(t, s.Elements())

	loaded, err := s.LoadTemplate(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, saved.ID, loaded.ID)

	opts := cmp.Options{cmpopts.EquateEmpty()}
	if diff := cmp.Diff(wantScreens, s.Screens(), opts); diff != "" {
		t.Errorf("screens mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(wantElements, s.Elements(), opts); diff != "" {
		t.Errorf("elements mismatch (-want +got):\n%s", diff)
	}
}

func TestSaveTemplate_UpdatesActive(t *testing.T) {
	ctx := context.Background()
	repo := newFakeTemplates()
	s := New(WithTemplateRepository(repo))

	first, err := s.SaveTemplate(ctx, "Ops")
	require.NoError(t, err)

	s.AddElement(model.ElementTable, model.Position{})
	second, err := s.SaveTemplate(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "Ops", second.Name)
	assert.Len(t, second.Elements, 1)
	assert.Len(t, s.Templates(), 1)
	assert.Len(t, repo.order, 1)
}

func TestSaveTemplate_RequiresName(t *testing.T) {
	rec := &notify.Recorder{}
	s := New(WithTemplateRepository(newFakeTemplates()), WithNotifier(rec))
	_, err := s.SaveTemplate(context.Background(), "  ")
	assert.ErrorIs(t, err, model.ErrEmptyName)
	assert.Len(t, rec.Errors(), 1)
}

func TestCreateNewTemplate(t *testing.T) {
	ctx := context.Background()
	s := New(WithTemplateRepository(newFakeTemplates()))
	s.AddElement(model.ElementKPI, model.Position{})

	tpl, err := s.CreateNewTemplate(ctx, "Blank")
	require.NoError(t, err)
	assert.Equal(t, tpl.ID, s.ActiveTemplateID())

	screens := s.Screens()
	require.Len(t, screens, 1)
	assert.Equal(t, "Screen1", screens[0].Name)
	assert.True(t, screens[0].IsActive)
	assert.Empty(t, s.Elements())
}

func TestFetchAndDeleteTemplates(t *testing.T) {
	ctx := context.Background()
	repo := newFakeTemplates()
	s := New(WithTemplateRepository(repo))

	a, err := s.SaveTemplate(ctx, "A")
	require.NoError(t, err)
	other := New(WithTemplateRepository(repo))
	_, err = other.SaveTemplate(ctx, "B")
	require.NoError(t, err)

	require.NoError(t, s.FetchTemplates(ctx))
	assert.Len(t, s.Templates(), 2)

	found, err := s.TemplateByName("B")
	require.NoError(t, err)
	assert.Equal(t, "B", found.Name)
	_, err = s.TemplateByName("C")
	assert.ErrorIs(t, err, ErrTemplateNotFound)

	require.NoError(t, s.DeleteTemplate(ctx, a.ID))
	assert.Len(t, s.Templates(), 1)
	assert.Empty(t, s.ActiveTemplateID())
}

func TestTemplates_FailureLeavesStateUnchanged(t *testing.T) {
	ctx := context.Background()
	repo := newFakeTemplates()
	rec := &notify.Recorder{}
	s := New(WithTemplateRepository(repo), WithNotifier(rec))

	saved, err := s.SaveTemplate(ctx, "Keep")
	require.NoError(t, err)
	s.AddElement(model.ElementText, model.Position{})
	before := s.Snapshot()

	repo.err = errors.New("boom")

	_, err = s.SaveTemplate(ctx, "Keep")
	assert.Error(t, err)
	_, err = s.LoadTemplate(ctx, saved.ID)
	assert.Error(t, err)
	assert.Error(t, s.DeleteTemplate(ctx, saved.ID))
	assert.Error(t, s.FetchTemplates(ctx))
	_, err = s.CreateNewTemplate(ctx, "New")
	assert.Error(t, err)

	assert.Equal(t, before, s.Snapshot())
	assert.Len(t, rec.Errors(), 5)
}

func TestTemplates_NoRepository(t *testing.T) {
	s := New()
	err := s.FetchTemplates(context.Background())
	assert.ErrorIs(t, err, ErrNoRepository)
}
