package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
)

// StorageError wraps a failed load or save. Callers surface it to the
// user and abort the operation; nothing retries automatically.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return fmt.Sprintf("storage %s: %v", e.Op, e.Err) }
func (e *StorageError) Unwrap() error { return e.Err }

// Store reads and writes the single persisted Document. It serializes
// writers within this process; concurrent processes writing the same
// file get last-write-wins.
type Store struct {
	path   string
	mu     sync.Mutex
	logger *zap.Logger
}

func New(path string, logger *zap.Logger) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure data dir: %w", err)
	}
	return &Store{path: path, logger: logger}, nil
}

func (s *Store) Path() string { return s.path }

// Load deserializes the persisted document. An absent or malformed file
// is treated as no prior data: it is logged and an empty document is
// returned, never an error.
func (s *Store) Load() *Document {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("data file unreadable, starting fresh", zap.String("path", s.path), zap.Error(err))
		}
		return NewDocument()
	}
	doc := NewDocument()
	if err := json.Unmarshal(raw, doc); err != nil {
		s.logger.Warn("data file malformed, starting fresh", zap.String("path", s.path), zap.Error(err))
		return NewDocument()
	}
	return doc
}

// Save serializes the full document and replaces the persisted file via
// a temp file and rename, so a crash mid-write never leaves a truncated
// document behind.
func (s *Store) Save(doc *Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return &StorageError{Op: "save", Err: fmt.Errorf("encode: %w", err)}
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return &StorageError{Op: "save", Err: fmt.Errorf("create temp: %w", err)}
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return &StorageError{Op: "save", Err: fmt.Errorf("write temp: %w", err)}
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return &StorageError{Op: "save", Err: fmt.Errorf("close temp: %w", err)}
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return &StorageError{Op: "save", Err: fmt.Errorf("rename: %w", err)}
	}
	return nil
}
