package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/existflow/dashcraft/internal/model"
)

// Snapshot is the cached canvas of one project. Dirty snapshots hold edits
// the server has not acknowledged.
type Snapshot struct {
	ProjectID string
	Name      string
	OwnerID   string
	Screens   []model.Screen
	Elements  []model.Element
	Hash      string
	Dirty     bool
	SavedAt   time.Time
	SyncedAt  time.Time
}

const snapshotColumns = `id, name, owner_id, screens, elements, hash, dirty, saved_at, synced_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row rowScanner) (Snapshot, error) {
	var (
		s                 Snapshot
		screens, elements string
		dirty             int
		savedAt           string
		syncedAt          sql.NullString
	)
	if err := row.Scan(&s.ProjectID, &s.Name, &s.OwnerID, &screens, &elements, &s.Hash, &dirty, &savedAt, &syncedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Snapshot{}, ErrNotFound
		}
		return Snapshot{}, err
	}
	s.Screens = model.DecodeScreens(json.RawMessage(screens))
	s.Elements = model.DecodeElements(json.RawMessage(elements))
	s.Dirty = dirty != 0
	s.SavedAt, _ = time.Parse(time.RFC3339Nano, savedAt)
	if syncedAt.Valid {
		s.SyncedAt, _ = time.Parse(time.RFC3339Nano, syncedAt.String)
	}
	return s, nil
}

// PutSnapshot stores the canvas of a project, replacing any previous copy.
// Name and owner are kept when the new snapshot leaves them empty.
func (db *DB) PutSnapshot(ctx context.Context, s Snapshot) error {
	return db.putSnapshot(ctx, s, upsertReplace)
}

// Conflict clauses of putSnapshot
const (
	upsertReplace = `
		ON CONFLICT(id) DO UPDATE SET
			name = CASE WHEN excluded.name = '' THEN projects.name ELSE excluded.name END,
			owner_id = CASE WHEN excluded.owner_id = '' THEN projects.owner_id ELSE excluded.owner_id END,
			screens = excluded.screens,
			elements = excluded.elements,
			hash = excluded.hash,
			dirty = excluded.dirty,
			saved_at = excluded.saved_at,
			synced_at = COALESCE(excluded.synced_at, projects.synced_at)`

	// A dirty canvas is only replaced by Replay or a later save
	upsertKeepDirty = `
		ON CONFLICT(id) DO UPDATE SET
			name = CASE WHEN excluded.name = '' THEN projects.name ELSE excluded.name END,
			owner_id = CASE WHEN excluded.owner_id = '' THEN projects.owner_id ELSE excluded.owner_id END,
			screens = CASE WHEN projects.dirty = 1 THEN projects.screens ELSE excluded.screens END,
			elements = CASE WHEN projects.dirty = 1 THEN projects.elements ELSE excluded.elements END,
			hash = CASE WHEN projects.dirty = 1 THEN projects.hash ELSE excluded.hash END,
			saved_at = CASE WHEN projects.dirty = 1 THEN projects.saved_at ELSE excluded.saved_at END,
			synced_at = CASE WHEN projects.dirty = 1 THEN projects.synced_at ELSE COALESCE(excluded.synced_at, projects.synced_at) END`
)

func (db *DB) putSnapshot(ctx context.Context, s Snapshot, onConflict string) error {
	if s.ProjectID == "" {
		return errors.New("snapshot has no project id")
	}
	screens := s.Screens
	if screens == nil {
		screens = []model.Screen{}
	}
	elements := s.Elements
	if elements == nil {
		elements = []model.Element{}
	}
	screensJSON, err := json.Marshal(screens)
	if err != nil {
		return fmt.Errorf("failed to encode screens: %w", err)
	}
	elementsJSON, err := json.Marshal(elements)
	if err != nil {
		return fmt.Errorf("failed to encode elements: %w", err)
	}
	if s.SavedAt.IsZero() {
		s.SavedAt = time.Now()
	}

	var syncedAt any
	if !s.SyncedAt.IsZero() {
		syncedAt = s.SyncedAt.UTC().Format(time.RFC3339Nano)
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO projects (id, name, owner_id, screens, elements, hash, dirty, saved_at, synced_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`+onConflict,
		s.ProjectID, s.Name, s.OwnerID, string(screensJSON), string(elementsJSON), s.Hash,
		boolToInt(s.Dirty), s.SavedAt.UTC().Format(time.RFC3339Nano), syncedAt)
	if err != nil {
		return fmt.Errorf("failed to store snapshot: %w", err)
	}
	return nil
}

// PutProject caches a project loaded from the server as clean. A cached
// canvas with unsynced edits keeps them; only name and owner are refreshed.
func (db *DB) PutProject(ctx context.Context, p model.Project) error {
	now := time.Now()
	return db.putSnapshot(ctx, Snapshot{
		ProjectID: p.ID,
		Name:      p.Name,
		OwnerID:   p.OwnerID,
		Screens:   p.Screens,
		Elements:  p.Elements,
		SavedAt:   now,
		SyncedAt:  now,
	}, upsertKeepDirty)
}

// GetSnapshot returns the cached canvas of a project
func (db *DB) GetSnapshot(ctx context.Context, projectID string) (Snapshot, error) {
	return scanSnapshot(db.QueryRowContext(ctx,
		`SELECT `+snapshotColumns+` FROM projects WHERE id = ?`, projectID))
}

// ListSnapshots returns every cached project, most recently saved first
func (db *DB) ListSnapshots(ctx context.Context) ([]Snapshot, error) {
	return db.listSnapshots(ctx, `SELECT `+snapshotColumns+` FROM projects ORDER BY saved_at DESC`)
}

// DirtySnapshots returns the projects with edits the server has not
// acknowledged
func (db *DB) DirtySnapshots(ctx context.Context) ([]Snapshot, error) {
	return db.listSnapshots(ctx, `SELECT `+snapshotColumns+` FROM projects WHERE dirty = 1 ORDER BY saved_at ASC`)
}

func (db *DB) listSnapshots(ctx context.Context, query string) ([]Snapshot, error) {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	defer rows.Close()

	var out []Snapshot
	for rows.Next() {
		s, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// MarkSynced clears the dirty flag if the cached canvas still has hash
func (db *DB) MarkSynced(ctx context.Context, projectID, hash string, at time.Time) error {
	_, err := db.ExecContext(ctx, `
		UPDATE projects SET dirty = 0, synced_at = ?
		WHERE id = ? AND hash = ?`,
		at.UTC().Format(time.RFC3339Nano), projectID, hash)
	if err != nil {
		return fmt.Errorf("failed to mark snapshot synced: %w", err)
	}
	return nil
}

// DeleteSnapshot drops a project from the cache
func (db *DB) DeleteSnapshot(ctx context.Context, projectID string) error {
	if _, err := db.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, projectID); err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
