// Package autosave persists canvas changes to the remote project after the
// user stops editing for a short while.
package autosave

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/existflow/dashcraft/internal/logger"
	"github.com/existflow/dashcraft/internal/model"
	"github.com/existflow/dashcraft/internal/store"
)

const (
	DefaultDelay       = 2 * time.Second
	DefaultSaveTimeout = 30 * time.Second
)

// Saver writes the full canvas of a project
type Saver interface {
	SaveCanvas(ctx context.Context, projectID string, screens []model.Screen, elements []model.Element) error
}

// Status describes the coordinator for display
type Status struct {
	Saving      bool
	Pending     bool
	LastSavedAt time.Time
	LastError   error
}

// Option configures a Coordinator
type Option func(*Coordinator)

// WithDelay sets the quiescence window before a save fires
func WithDelay(d time.Duration) Option {
	return func(c *Coordinator) { c.delay = d }
}

// WithSaveTimeout bounds saves started by the timer or by Close
func WithSaveTimeout(d time.Duration) Option {
	return func(c *Coordinator) { c.timeout = d }
}

// WithLogger sets the logger used for save results
func WithLogger(l *logger.Logger) Option {
	return func(c *Coordinator) { c.log = l }
}

// WithStatusHandler registers fn to be called whenever the status changes
func WithStatusHandler(fn func(Status)) Option {
	return func(c *Coordinator) { c.onStatus = fn }
}

type canvas struct {
	screens  []model.Screen
	elements []model.Element
	hash     string
}

// Coordinator debounces canvas changes into remote saves. Saves are skipped
// when the canvas hashes to the last saved value. Last write wins; there is
// no conflict detection.
type Coordinator struct {
	saver     Saver
	projectID string
	delay     time.Duration
	timeout   time.Duration
	log       *logger.Logger
	onStatus  func(Status)

	debouncer *Debouncer
	saveMu    sync.Mutex

	mu       sync.Mutex
	lastHash string
	inflight *canvas
	pending  *canvas
	canEdit  bool
	closed   bool
	status   Status
}

// New creates a coordinator saving to projectID through saver. Saving is
// enabled until SetPermission(false) is called.
func New(saver Saver, projectID string, opts ...Option) *Coordinator {
	c := &Coordinator{
		saver:     saver,
		projectID: projectID,
		delay:     DefaultDelay,
		timeout:   DefaultSaveTimeout,
		canEdit:   true,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = logger.WithFields(logger.F("component", "autosave"))
	}
	c.log = c.log.WithFields(logger.F("project", projectID))
	c.debouncer = NewDebouncer(c.delay)
	return c
}

// Hash returns the content hash of a canvas. Nil and empty lists hash the
// same.
func Hash(screens []model.Screen, elements []model.Element) (string, error) {
	if screens == nil {
		screens = []model.Screen{}
	}
	if elements == nil {
		elements = []model.Element{}
	}
	data, err := json.Marshal(struct {
		Screens  []model.Screen  `json:"screens"`
		Elements []model.Element `json:"elements"`
	}{screens, elements})
	if err != nil {
		return "", fmt.Errorf("failed to encode canvas: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// Baseline records the canvas as already saved without writing it
func (c *Coordinator) Baseline(screens []model.Screen, elements []model.Element) {
	h, err := Hash(screens, elements)
	if err != nil {
		c.log.Warn("Failed to hash baseline", logger.F("error", err))
		return
	}
	c.mu.Lock()
	c.lastHash = h
	c.mu.Unlock()
}

// SetPermission enables or disables saving. Disabling cancels any pending
// save.
func (c *Coordinator) SetPermission(canEdit bool) {
	c.mu.Lock()
	c.canEdit = canEdit
	if !canEdit {
		c.pending = nil
		c.debouncer.Cancel()
	}
	c.mu.Unlock()
	c.publish()
}

// Observe reports the current canvas. A canvas different from the last
// saved one, or from the one being saved right now, schedules a save after
// the quiescence window, restarting the window on every call.
func (c *Coordinator) Observe(screens []model.Screen, elements []model.Element) {
	h, err := Hash(screens, elements)
	if err != nil {
		c.log.Warn("Failed to hash canvas", logger.F("error", err))
		return
	}

	c.mu.Lock()
	if !c.canEdit || c.closed {
		c.mu.Unlock()
		return
	}
	if h == c.targetHashLocked() {
		c.pending = nil
		c.debouncer.Cancel()
		c.mu.Unlock()
		c.publish()
		return
	}
	c.pending = &canvas{screens: screens, elements: elements, hash: h}
	c.debouncer.Trigger(c.saveFromTimer)
	c.mu.Unlock()
	c.publish()
}

// targetHashLocked is the hash the remote will hold once the save in
// flight, if any, completes
func (c *Coordinator) targetHashLocked() string {
	if c.inflight != nil {
		return c.inflight.hash
	}
	return c.lastHash
}

// Attach feeds every store snapshot into Observe. The returned function
// detaches the coordinator.
func (c *Coordinator) Attach(s *store.Store) func() {
	return s.Subscribe(func(snap store.Snapshot) {
		c.Observe(snap.Screens, snap.Elements)
	})
}

func (c *Coordinator) saveFromTimer() {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()
	_ = c.save(ctx)
}

// Flush saves pending changes now
func (c *Coordinator) Flush(ctx context.Context) error {
	c.debouncer.Cancel()
	return c.save(ctx)
}

// Close saves pending changes one last time and stops the coordinator.
// Later calls to Observe are ignored.
func (c *Coordinator) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	c.debouncer.Stop()
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()
	return c.save(ctx)
}

// Status returns the current save status
func (c *Coordinator) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.statusLocked()
}

func (c *Coordinator) statusLocked() Status {
	st := c.status
	st.Pending = c.pending != nil
	return st
}

func (c *Coordinator) publish() {
	if c.onStatus == nil {
		return
	}
	c.onStatus(c.Status())
}

func (c *Coordinator) save(ctx context.Context) error {
	c.saveMu.Lock()
	defer c.saveMu.Unlock()

	c.mu.Lock()
	p := c.pending
	if p == nil || !c.canEdit || p.hash == c.lastHash {
		c.pending = nil
		c.mu.Unlock()
		return nil
	}
	c.pending = nil
	c.inflight = p
	c.status.Saving = true
	c.mu.Unlock()
	c.publish()

	start := time.Now()
	err := c.saver.SaveCanvas(ctx, c.projectID, p.screens, p.elements)

	c.mu.Lock()
	c.inflight = nil
	c.status.Saving = false
	if err != nil {
		c.status.LastError = err
		// Keep the canvas for Flush and Close without arming the timer
		if c.pending == nil && c.canEdit {
			c.pending = p
		}
	} else {
		c.lastHash = p.hash
		c.status.LastError = nil
		c.status.LastSavedAt = time.Now()
		if c.pending != nil && c.pending.hash == c.lastHash {
			c.pending = nil
			c.debouncer.Cancel()
		}
	}
	c.mu.Unlock()
	c.publish()

	if err != nil {
		c.log.Error("Auto-save failed", logger.F("error", err))
		return fmt.Errorf("auto-save failed: %w", err)
	}
	c.log.Debug("Canvas saved",
		logger.F("screens", len(p.screens)),
		logger.F("elements", len(p.elements)),
		logger.F("duration", time.Since(start).String()))
	return nil
}
