// Package prompt manages the operator-editable system prompt override.
package prompt

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/threadmind/dm-concierge/pkg/logger"
)

// Store is a file-backed prompt override with an in-memory cache.
type Store struct {
	path   string
	logger *logger.Logger

	mu     sync.RWMutex
	cached string
}

// NewStore creates a store for path and loads the current override.
func NewStore(path string, log *logger.Logger) (*Store, error) {
	s := &Store{path: path, logger: log}
	if err := s.reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Get returns the override text, or "" when none is set.
func (s *Store) Get() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cached
}

// Set writes text as the new override. Blank text clears it.
func (s *Store) Set(text string) error {
	text = strings.TrimSpace(text)

	if text == "" {
		if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("clear prompt: %w", err)
		}
	} else if err := writeAtomic(s.path, []byte(text)); err != nil {
		return fmt.Errorf("write prompt: %w", err)
	}

	s.mu.Lock()
	s.cached = text
	s.mu.Unlock()
	return nil
}

// Watch reloads the cache whenever the prompt file changes on disk. It
// blocks until ctx is cancelled.
func (s *Store) Watch(ctx context.Context) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create prompt dir: %w", err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()

	if err := w.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	target := filepath.Clean(s.path)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if err := s.reload(); err != nil {
				s.logger.Warn("prompt reload failed", zap.Error(err))
				continue
			}
			s.logger.Info("prompt reloaded", zap.String("op", ev.Op.String()))
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("prompt watcher error", zap.Error(err))
		}
	}
}

func (s *Store) reload() error {
	data, err := os.ReadFile(s.path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("read prompt: %w", err)
	}

	s.mu.Lock()
	s.cached = strings.TrimSpace(string(data))
	s.mu.Unlock()
	return nil
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".prompt-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
