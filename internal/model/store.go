package model

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	json "github.com/goccy/go-json"
)

// ErrNotFound is returned when no bundle exists for a key.
var ErrNotFound = errors.New("model: not found")

const bundleSuffix = ".json"

// Store persists model bundles as JSON files, one per training key.
// Publishing writes to a temp file and renames it into place, so
// readers (including other processes watching the directory) never see
// a partial bundle.
type Store struct {
	dir string
}

// NewStore creates the bundle directory if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("model: creating bundle dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the bundle directory.
func (s *Store) Dir() string {
	return s.dir
}

// Path returns the bundle file path for a training key.
func (s *Store) Path(key string) string {
	return filepath.Join(s.dir, "user_"+sanitizeKey(key)+bundleSuffix)
}

// KeyFromPath inverts Path; ok is false for files the store does not own.
func KeyFromPath(path string) (string, bool) {
	name := filepath.Base(path)
	if !strings.HasPrefix(name, "user_") || !strings.HasSuffix(name, bundleSuffix) {
		return "", false
	}
	return strings.TrimSuffix(strings.TrimPrefix(name, "user_"), bundleSuffix), true
}

// Save atomically writes a bundle.
func (s *Store) Save(m *TrainedModel) error {
	if err := m.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("model: encoding bundle %s: %w", m.ID, err)
	}

	final := s.Path(m.Key)
	tmp, err := os.CreateTemp(s.dir, ".publish-*")
	if err != nil {
		return fmt.Errorf("model: creating temp bundle: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("model: writing bundle %s: %w", m.ID, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("model: closing bundle %s: %w", m.ID, err)
	}
	if err := os.Rename(tmp.Name(), final); err != nil {
		return fmt.Errorf("model: publishing bundle %s: %w", m.ID, err)
	}
	return nil
}

// Load reads and validates the bundle for a key.
func (s *Store) Load(key string) (*TrainedModel, error) {
	data, err := os.ReadFile(s.Path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("model: reading bundle for %q: %w", key, err)
	}
	var m TrainedModel
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("model: decoding bundle for %q: %w", key, err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Delete removes the bundle for a key. Missing bundles are not an error.
func (s *Store) Delete(key string) error {
	err := os.Remove(s.Path(key))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("model: deleting bundle for %q: %w", key, err)
	}
	return nil
}

// Keys lists the training keys with a published bundle.
func (s *Store) Keys() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("model: listing bundles: %w", err)
	}
	var keys []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if key, ok := KeyFromPath(e.Name()); ok {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

// sanitizeKey keeps bundle filenames flat regardless of the user id.
func sanitizeKey(key string) string {
	var b strings.Builder
	for _, r := range key {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('~')
		}
	}
	return b.String()
}
