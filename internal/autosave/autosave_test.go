package autosave

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/existflow/dashcraft/internal/model"
	"github.com/existflow/dashcraft/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type recordingSaver struct {
	mu    sync.Mutex
	calls []saveCall
	err   error
}

type saveCall struct {
	projectID string
	screens   []model.Screen
	elements  []model.Element
}

func (r *recordingSaver) SaveCanvas(ctx context.Context, projectID string, screens []model.Screen, elements []model.Element) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, saveCall{projectID, screens, elements})
	return r.err
}

func (r *recordingSaver) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func (r *recordingSaver) last() saveCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[len(r.calls)-1]
}

func (r *recordingSaver) setErr(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

func screens(names ...string) []model.Screen {
	out := make([]model.Screen, len(names))
	for i, n := range names {
		out[i] = model.Screen{ID: n, Name: n, IsActive: i == 0}
	}
	return out
}

func TestDebouncer_RestartsWindow(t *testing.T) {
	var called, last int32
	d := NewDebouncer(50 * time.Millisecond)
	defer d.Stop()

	for i := int32(1); i <= 5; i++ {
		v := i
		d.Trigger(func() {
			atomic.StoreInt32(&last, v)
			atomic.AddInt32(&called, 1)
		})
		time.Sleep(10 * time.Millisecond)
	}

	require.Eventually(t, func() bool { return atomic.LoadInt32(&called) == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(80 * time.Millisecond)
	assert.EqualValues(t, 1, atomic.LoadInt32(&called))
	assert.EqualValues(t, 5, atomic.LoadInt32(&last))
}

func TestDebouncer_CancelFlushStop(t *testing.T) {
	var called int32
	d := NewDebouncer(time.Hour)

	d.Trigger(func() { atomic.AddInt32(&called, 1) })
	assert.True(t, d.Pending())
	d.Cancel()
	assert.False(t, d.Pending())
	assert.False(t, d.Flush())

	d.Trigger(func() { atomic.AddInt32(&called, 1) })
	assert.True(t, d.Flush())
	assert.EqualValues(t, 1, atomic.LoadInt32(&called))
	assert.False(t, d.Pending())

	d.Stop()
	assert.False(t, d.Trigger(func() { atomic.AddInt32(&called, 1) }))
	assert.False(t, d.Pending())
}

func TestCoordinator_DebouncesIntoSingleSave(t *testing.T) {
	saver := &recordingSaver{}
	c := New(saver, "p1", WithDelay(40*time.Millisecond))
	defer c.Close()

	for i := 0; i < 5; i++ {
		c.Observe(screens("a"), []model.Element{{ID: "e", ScreenID: "a", Position: model.Position{X: float64(i)}}})
		time.Sleep(10 * time.Millisecond)
	}
	assert.True(t, c.Status().Pending)

	require.Eventually(t, func() bool { return saver.count() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, 1, saver.count())

	call := saver.last()
	assert.Equal(t, "p1", call.projectID)
	assert.Equal(t, float64(4), call.elements[0].Position.X)
	assert.False(t, c.Status().Pending)
	assert.False(t, c.Status().LastSavedAt.IsZero())
}

func TestCoordinator_UnchangedHashNeverWrites(t *testing.T) {
	saver := &recordingSaver{}
	c := New(saver, "p1", WithDelay(time.Hour))

	c.Baseline(screens("a"), nil)
	c.Observe(screens("a"), []model.Element{})
	assert.False(t, c.Status().Pending)

	c.Observe(screens("a", "b"), nil)
	assert.True(t, c.Status().Pending)
	c.Observe(screens("a"), nil)
	assert.False(t, c.Status().Pending)

	require.NoError(t, c.Close())
	assert.Equal(t, 0, saver.count())
}

func TestCoordinator_FailedSaveRetriedOnNextChange(t *testing.T) {
	saver := &recordingSaver{err: errors.New("offline")}
	c := New(saver, "p1", WithDelay(time.Hour))
	defer c.Close()

	c.Observe(screens("a"), nil)
	err := c.Flush(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1, saver.count())
	assert.Error(t, c.Status().LastError)
	assert.True(t, c.Status().Pending, "failed canvas stays pending")
	assert.False(t, c.debouncer.Pending(), "a failure must not arm the timer")

	saver.setErr(nil)
	c.Observe(screens("a"), nil)
	assert.True(t, c.Status().Pending, "hash must not advance after a failure")
	require.NoError(t, c.Flush(context.Background()))
	assert.Equal(t, 2, saver.count())
	assert.NoError(t, c.Status().LastError)

	c.Observe(screens("a"), nil)
	assert.False(t, c.Status().Pending)
}

func TestCoordinator_CloseWritesAfterFailedSave(t *testing.T) {
	saver := &recordingSaver{err: errors.New("offline")}
	c := New(saver, "p1", WithDelay(time.Hour))

	c.Observe(screens("a", "b"), nil)
	require.Error(t, c.Flush(context.Background()))
	require.Equal(t, 1, saver.count())

	saver.setErr(nil)
	require.NoError(t, c.Close())
	require.Equal(t, 2, saver.count())
	assert.Len(t, saver.last().screens, 2)
	assert.False(t, c.Status().Pending)
}

// gatedSaver blocks its first save until release is closed
type gatedSaver struct {
	recordingSaver
	gated   int32
	started chan struct{}
	release chan struct{}
}

func newGatedSaver() *gatedSaver {
	return &gatedSaver{gated: 1, started: make(chan struct{}, 1), release: make(chan struct{})}
}

func (g *gatedSaver) SaveCanvas(ctx context.Context, projectID string, screens []model.Screen, elements []model.Element) error {
	if atomic.CompareAndSwapInt32(&g.gated, 1, 0) {
		g.started <- struct{}{}
		<-g.release
	}
	return g.recordingSaver.SaveCanvas(ctx, projectID, screens, elements)
}

func TestCoordinator_RevertDuringSaveIsSaved(t *testing.T) {
	saver := newGatedSaver()
	c := New(saver, "p1", WithDelay(time.Hour))

	c.Baseline(screens("a"), nil)
	c.Observe(screens("a", "b"), nil)

	done := make(chan error, 1)
	go func() { done <- c.Flush(context.Background()) }()
	<-saver.started

	// Back to the baseline while the two-screen canvas is being written
	c.Observe(screens("a"), nil)
	assert.True(t, c.Status().Pending)
	assert.True(t, c.Status().Saving)

	close(saver.release)
	require.NoError(t, <-done)
	assert.True(t, c.Status().Pending)

	require.NoError(t, c.Close())
	require.Equal(t, 2, saver.count())
	assert.Len(t, saver.last().screens, 1)
}

func TestCoordinator_SameCanvasDuringSaveNotSavedTwice(t *testing.T) {
	saver := newGatedSaver()
	c := New(saver, "p1", WithDelay(time.Hour))

	c.Baseline(screens("a"), nil)
	c.Observe(screens("a", "b"), nil)

	done := make(chan error, 1)
	go func() { done <- c.Flush(context.Background()) }()
	<-saver.started

	c.Observe(screens("a", "c"), nil)
	c.Observe(screens("a", "b"), nil)
	assert.False(t, c.Status().Pending)

	close(saver.release)
	require.NoError(t, <-done)
	require.NoError(t, c.Close())
	assert.Equal(t, 1, saver.count())
}

func TestCoordinator_CloseFlushesPending(t *testing.T) {
	saver := &recordingSaver{}
	c := New(saver, "p1", WithDelay(time.Hour))

	c.Observe(screens("a", "b"), nil)
	require.NoError(t, c.Close())
	require.Equal(t, 1, saver.count())
	assert.Len(t, saver.last().screens, 2)

	c.Observe(screens("x"), nil)
	assert.NoError(t, c.Close())
	assert.Equal(t, 1, saver.count())
}

func TestCoordinator_ReadOnlyNeverWrites(t *testing.T) {
	saver := &recordingSaver{}
	c := New(saver, "p1", WithDelay(50*time.Millisecond))

	c.Observe(screens("a"), nil)
	c.SetPermission(false)
	assert.False(t, c.Status().Pending)
	c.Observe(screens("b"), nil)
	time.Sleep(80 * time.Millisecond)

	require.NoError(t, c.Close())
	assert.Equal(t, 0, saver.count())
}

func TestCoordinator_AttachToStore(t *testing.T) {
	saver := &recordingSaver{}
	var statuses int32
	s := store.New()
	c := New(saver, "p1", WithDelay(time.Hour), WithStatusHandler(func(Status) {
		atomic.AddInt32(&statuses, 1)
	}))
	snap := s.Snapshot()
	c.Baseline(snap.Screens, snap.Elements)
	detach := c.Attach(s)

	el := s.AddElement(model.ElementKPI, model.Position{X: 10, Y: 10})
	s.SelectElement("")
	assert.True(t, c.Status().Pending)

	detach()
	s.AddScreen()

	require.NoError(t, c.Close())
	require.Equal(t, 1, saver.count())
	call := saver.last()
	require.Len(t, call.elements, 1)
	assert.Equal(t, el.ID, call.elements[0].ID)
	assert.Len(t, call.screens, 1)
	assert.Positive(t, atomic.LoadInt32(&statuses))
}

func TestHash_NilEqualsEmpty(t *testing.T) {
	a, err := Hash(nil, nil)
	require.NoError(t, err)
	b, err := Hash([]model.Screen{}, []model.Element{})
	require.NoError(t, err)
	assert.Equal(t, a, b)

	c, err := Hash(screens("a"), nil)
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}
