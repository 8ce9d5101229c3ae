// Package workspace opens a project for editing: it loads the canvas into
// a store, resolves the caller's permissions and keeps the canvas saved
// while the project is open.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/existflow/dashcraft/internal/access"
	"github.com/existflow/dashcraft/internal/autosave"
	"github.com/existflow/dashcraft/internal/comments"
	"github.com/existflow/dashcraft/internal/db"
	"github.com/existflow/dashcraft/internal/logger"
	"github.com/existflow/dashcraft/internal/model"
	"github.com/existflow/dashcraft/internal/notify"
	"github.com/existflow/dashcraft/internal/store"
)

// Backend is the remote a workspace reads from and saves to
type Backend interface {
	access.FactSource
	autosave.Saver
	store.TemplateRepository
	comments.Backend
	comments.Subscriber

	GetProject(ctx context.Context, id string) (model.Project, error)
	ListMembers(ctx context.Context, projectID string) ([]model.Profile, error)
	Me(ctx context.Context) (model.Profile, error)
	IsLoggedIn() bool
	UserID() string
}

// Options configures Open
type Options struct {
	// Delay is the autosave quiet period; zero uses the autosave default
	Delay time.Duration
	// Notifier receives failures of background operations
	Notifier notify.Notifier
	// OnStatus is called whenever the autosave status changes
	OnStatus func(autosave.Status)
}

// Workspace is one open project
type Workspace struct {
	backend  Backend
	cache    *db.DB
	notifier notify.Notifier

	project model.Project
	actor   model.Profile
	offline bool

	mu    sync.Mutex
	perms access.Permissions

	store    *store.Store
	coord    *autosave.Coordinator
	resolver *access.Resolver
	detach   func()
}

// Open loads projectID and starts autosave. When the server cannot be
// reached and cache holds a copy of the project, the cached canvas is
// opened read-only. cache may be nil.
func Open(ctx context.Context, backend Backend, cache *db.DB, projectID string, opts Options) (*Workspace, error) {
	n := opts.Notifier
	if n == nil {
		n = notify.Discard
	}
	w := &Workspace{
		backend:  backend,
		cache:    cache,
		notifier: n,
		resolver: access.NewResolver(backend),
	}

	project, err := backend.GetProject(ctx, projectID)
	if err != nil {
		cached, ok := w.cachedProject(ctx, projectID)
		if !ok {
			return nil, fmt.Errorf("failed to load project: %w", err)
		}
		logger.Warn("Opening cached copy of project", logger.F("project", projectID), logger.F("error", err))
		notify.Error(n, "Offline", "Showing the last saved copy; edits are disabled")
		project = cached
		w.offline = true
	} else if cache != nil {
		if err := cache.PutProject(ctx, project); err != nil {
			logger.Warn("Failed to cache project", logger.F("project", projectID), logger.F("error", err))
		}
		if snap, err := cache.GetSnapshot(ctx, projectID); err == nil && snap.Dirty {
			logger.Warn("Cached canvas has unsynced edits", logger.F("project", projectID))
			notify.Error(n, "Unsynced changes", "Edits from an earlier session were not uploaded; run 'dashcraft project push'")
		}
	}
	w.project = project

	if backend.IsLoggedIn() {
		actor, err := backend.Me(ctx)
		if err != nil {
			logger.Warn("Failed to load profile", logger.F("error", err))
			actor = model.Profile{ID: backend.UserID()}
		}
		w.actor = actor
	}

	if w.offline {
		w.perms = access.PermissionsFor(access.RoleNone, w.actor.ID != "")
	} else {
		// A failed lookup leaves the project read-only
		w.perms, _ = w.resolver.Permissions(ctx, projectID, w.actor.ID)
	}

	w.store = store.New(store.WithTemplateRepository(backend), store.WithNotifier(n))
	w.store.Load(project.Screens, project.Elements)

	var saver autosave.Saver = backend
	if cache != nil {
		saver = db.NewCachingSaver(cache, backend)
	}
	coordOpts := []autosave.Option{}
	if opts.Delay > 0 {
		coordOpts = append(coordOpts, autosave.WithDelay(opts.Delay))
	}
	if opts.OnStatus != nil {
		coordOpts = append(coordOpts, autosave.WithStatusHandler(opts.OnStatus))
	}
	w.coord = autosave.New(saver, projectID, coordOpts...)
	w.coord.Baseline(w.store.Screens(), w.store.Elements())
	w.coord.SetPermission(w.perms.CanEdit)
	w.detach = w.coord.Attach(w.store)

	logger.Info("Project opened",
		logger.F("project", projectID),
		logger.F("role", string(w.perms.Role)),
		logger.F("offline", w.offline))
	return w, nil
}

func (w *Workspace) cachedProject(ctx context.Context, projectID string) (model.Project, bool) {
	if w.cache == nil {
		return model.Project{}, false
	}
	snap, err := w.cache.GetSnapshot(ctx, projectID)
	if err != nil {
		if !errors.Is(err, db.ErrNotFound) {
			logger.Warn("Failed to read cache", logger.F("error", err))
		}
		return model.Project{}, false
	}
	return model.Project{
		ID:       snap.ProjectID,
		Name:     snap.Name,
		OwnerID:  snap.OwnerID,
		Screens:  snap.Screens,
		Elements: snap.Elements,
	}, true
}

// Project returns the project as it was loaded
func (w *Workspace) Project() model.Project { return w.project }

// Actor returns the signed-in user, or a zero profile for anonymous readers
func (w *Workspace) Actor() model.Profile { return w.actor }

// Permissions returns what the actor may do on the project
func (w *Workspace) Permissions() access.Permissions {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.perms
}

// Offline reports whether the workspace was opened from the cache
func (w *Workspace) Offline() bool { return w.offline }

// Store returns the canvas store
func (w *Workspace) Store() *store.Store { return w.store }

// Status returns the autosave status
func (w *Workspace) Status() autosave.Status { return w.coord.Status() }

// Flush saves pending canvas changes now
func (w *Workspace) Flush(ctx context.Context) error { return w.coord.Flush(ctx) }

// RefreshPermissions reloads the actor's permissions, for example after a
// role change arrives on the change feed
func (w *Workspace) RefreshPermissions(ctx context.Context) (access.Permissions, error) {
	if w.offline {
		return w.Permissions(), nil
	}
	w.resolver.Invalidate()
	perms, err := w.resolver.Permissions(ctx, w.project.ID, w.actor.ID)
	w.mu.Lock()
	w.perms = perms
	w.mu.Unlock()
	w.coord.SetPermission(perms.CanEdit)
	return perms, err
}

// Members returns the people who can be mentioned in comments
func (w *Workspace) Members(ctx context.Context) ([]model.Profile, error) {
	return w.backend.ListMembers(ctx, w.project.ID)
}

// Thread returns the comment thread of an element
func (w *Workspace) Thread(elementID string) *comments.Thread {
	return comments.NewThread(w.backend, w.project.ID, elementID, w.actor, comments.WithNotifier(w.notifier))
}

// OpenThread returns the thread of an element with its comments loaded.
// The live change feed is opened too; when it cannot be, the thread still
// works but only refreshes on Fetch.
func (w *Workspace) OpenThread(ctx context.Context, elementID string) (*comments.Thread, error) {
	t := w.Thread(elementID)
	if err := t.Fetch(ctx); err != nil {
		_ = t.Close()
		return nil, err
	}
	if w.offline {
		return t, nil
	}
	if err := t.Subscribe(ctx, w.backend); err != nil {
		logger.Warn("Comments will not update live", logger.F("element", elementID), logger.F("error", err))
	}
	return t, nil
}

// Close stops autosave after saving any pending changes
func (w *Workspace) Close() error {
	w.detach()
	if err := w.coord.Close(); err != nil {
		return fmt.Errorf("failed to save project: %w", err)
	}
	return nil
}
