package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// rotatingFile is an append-only log file that is moved aside to .1, .2 ...
// once it grows past maxSize or gets older than maxAge days
type rotatingFile struct {
	path       string
	maxSize    int64
	maxAge     int
	maxBackups int

	mu   sync.Mutex
	file *os.File
}

func openRotating(cfg Config) (*rotatingFile, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	r := &rotatingFile{
		path:       cfg.FilePath,
		maxSize:    cfg.MaxSize,
		maxAge:     cfg.MaxAge,
		maxBackups: cfg.MaxBackups,
	}
	if err := r.open(); err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	if err := r.rotateIfNeeded(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *rotatingFile) open() error {
	file, err := os.OpenFile(r.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return err
	}
	r.file = file
	return nil
}

// Write appends p, rotating first when the file is full or stale
func (r *rotatingFile) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.file == nil {
		return 0, os.ErrClosed
	}
	_ = r.rotateIfNeeded()
	return r.file.Write(p)
}

func (r *rotatingFile) Sync() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.file == nil {
		return nil
	}
	return r.file.Sync()
}

func (r *rotatingFile) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}

// rotateIfNeeded must be called with r.mu held or before r is shared
func (r *rotatingFile) rotateIfNeeded() error {
	info, err := r.file.Stat()
	if err != nil {
		return err
	}
	full := r.maxSize > 0 && info.Size() >= r.maxSize
	stale := r.maxAge > 0 && info.Size() > 0 && time.Since(info.ModTime()) > time.Duration(r.maxAge)*24*time.Hour
	if !full && !stale {
		return nil
	}
	return r.rotate()
}

func (r *rotatingFile) rotate() error {
	r.file.Close()

	for i := r.maxBackups - 1; i >= 1; i-- {
		os.Rename(fmt.Sprintf("%s.%d", r.path, i), fmt.Sprintf("%s.%d", r.path, i+1))
	}
	if r.maxBackups > 0 {
		if err := os.Rename(r.path, r.path+".1"); err != nil && !os.IsNotExist(err) {
			return err
		}
	} else {
		os.Remove(r.path)
	}

	return r.open()
}
