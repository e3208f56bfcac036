package model

import (
	"context"
	"fmt"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/aclguard/backend/internal/risk"
	"github.com/aclguard/backend/pkg/models"
)

// Registry holds the published models in memory and serves the
// predictor-resolution policy: a user-specific model first, the global
// model as fallback. Bundles published by this process or any other
// writer to the same directory become visible via the directory watch.
type Registry struct {
	store  *Store
	logger zerolog.Logger

	mu     sync.RWMutex
	bundle map[string]*TrainedModel
}

// NewRegistry creates a registry over a bundle store and loads every
// existing bundle. Corrupt bundles are logged and skipped.
func NewRegistry(store *Store, logger zerolog.Logger) (*Registry, error) {
	r := &Registry{
		store:  store,
		logger: logger,
		bundle: make(map[string]*TrainedModel),
	}
	keys, err := store.Keys()
	if err != nil {
		return nil, err
	}
	for _, key := range keys {
		r.reload(key)
	}
	return r, nil
}

// Publish persists a bundle and makes it live atomically.
func (r *Registry) Publish(m *TrainedModel) error {
	if err := r.store.Save(m); err != nil {
		return err
	}
	r.mu.Lock()
	r.bundle[sanitizeKey(m.Key)] = m
	r.mu.Unlock()
	r.logger.Info().
		Str("key", m.Key).
		Str("model_version", m.ID).
		Str("provenance", string(m.Provenance)).
		Float64("r2", m.R2).
		Msg("model published")
	return nil
}

// Get returns the live bundle for a key. Keys are normalized the same
// way bundle filenames are, so a Publish and a later watcher reload of
// the same bundle resolve identically.
func (r *Registry) Get(key string) (*TrainedModel, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.bundle[sanitizeKey(key)]
	return m, ok
}

// Keys returns the keys with a live bundle.
func (r *Registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.bundle))
	for k := range r.bundle {
		keys = append(keys, k)
	}
	return keys
}

// PredictorFor resolves the predictor for a user: their own model when
// one is published, otherwise the global model. Satisfies
// risk.ModelSource.
func (r *Registry) PredictorFor(key string) (risk.Predictor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if m, ok := r.bundle[sanitizeKey(key)]; ok {
		return m, true
	}
	if m, ok := r.bundle[models.GlobalTrainingKey]; ok {
		return m, true
	}
	return nil, false
}

// Evict drops a key from memory and deletes its bundle file.
func (r *Registry) Evict(key string) error {
	r.mu.Lock()
	delete(r.bundle, sanitizeKey(key))
	r.mu.Unlock()
	return r.store.Delete(key)
}

// Watch reloads bundles as files change on disk until the context ends.
// Renamed-into-place publishes arrive as single Create events, so no
// partial reads occur.
func (r *Registry) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("model: creating watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(r.store.Dir()); err != nil {
		return fmt.Errorf("model: watching %s: %w", r.store.Dir(), err)
	}
	r.logger.Debug().Str("dir", r.store.Dir()).Msg("watching model bundles")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			key, owned := KeyFromPath(event.Name)
			if !owned {
				continue
			}
			switch {
			case event.Has(fsnotify.Create) || event.Has(fsnotify.Write):
				r.reload(key)
			case event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename):
				r.mu.Lock()
				delete(r.bundle, key)
				r.mu.Unlock()
				r.logger.Info().Str("key", key).Msg("model bundle removed")
			}

		case werr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			r.logger.Warn().Err(werr).Msg("model watcher error")
		}
	}
}

func (r *Registry) reload(key string) {
	m, err := r.store.Load(key)
	if err != nil {
		r.logger.Warn().Err(err).Str("key", key).Msg("skipping unreadable model bundle")
		return
	}
	r.mu.Lock()
	r.bundle[sanitizeKey(key)] = m
	r.mu.Unlock()
	r.logger.Debug().Str("key", key).Str("model_version", m.ID).Msg("model bundle loaded")
}
