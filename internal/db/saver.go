package db

import (
	"context"
	"fmt"
	"time"

	"github.com/existflow/dashcraft/internal/autosave"
	"github.com/existflow/dashcraft/internal/logger"
	"github.com/existflow/dashcraft/internal/model"
)

// CachingSaver writes every canvas save to the local cache before passing
// it on. A save the next saver rejects stays dirty in the cache and can be
// replayed later.
type CachingSaver struct {
	db   *DB
	next autosave.Saver
}

var _ autosave.Saver = (*CachingSaver)(nil)

// NewCachingSaver wraps next with the cache in db
func NewCachingSaver(db *DB, next autosave.Saver) *CachingSaver {
	return &CachingSaver{db: db, next: next}
}

// SaveCanvas caches the canvas as dirty, forwards it and marks it synced
// when the forward succeeds
func (s *CachingSaver) SaveCanvas(ctx context.Context, projectID string, screens []model.Screen, elements []model.Element) error {
	hash, err := autosave.Hash(screens, elements)
	if err != nil {
		return err
	}

	if err := s.db.PutSnapshot(ctx, Snapshot{
		ProjectID: projectID,
		Screens:   screens,
		Elements:  elements,
		Hash:      hash,
		Dirty:     true,
	}); err != nil {
		// The cache is best effort; the remote save still decides
		logger.Warn("Failed to cache canvas", logger.F("project", projectID), logger.F("error", err))
	}

	if err := s.next.SaveCanvas(ctx, projectID, screens, elements); err != nil {
		return err
	}

	if err := s.db.MarkSynced(ctx, projectID, hash, time.Now()); err != nil {
		logger.Warn("Failed to mark canvas synced", logger.F("project", projectID), logger.F("error", err))
	}
	return nil
}

// Replay resends every dirty snapshot and returns how many were accepted.
// It stops at the first failure.
func (s *CachingSaver) Replay(ctx context.Context) (int, error) {
	dirty, err := s.db.DirtySnapshots(ctx)
	if err != nil {
		return 0, err
	}
	sent := 0
	for _, snap := range dirty {
		if err := s.next.SaveCanvas(ctx, snap.ProjectID, snap.Screens, snap.Elements); err != nil {
			return sent, fmt.Errorf("failed to replay project %s: %w", snap.ProjectID, err)
		}
		if err := s.db.MarkSynced(ctx, snap.ProjectID, snap.Hash, time.Now()); err != nil {
			return sent, err
		}
		sent++
		logger.Info("Replayed cached canvas", logger.F("project", snap.ProjectID))
	}
	return sent, nil
}
