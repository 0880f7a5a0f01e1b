package action

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/farsign/farsign-core/internal/session"
)

// Logger defines the logging interface used by the Store.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Store provides action management with caching and thread safety.
// It wraps a Repository and adds an in-memory cache for fast lookups,
// since the relay consults the action set on every display join.
//
// The cache is populated on startup via RefreshCache() and kept in sync
// by cache-invalidating CRUD operations.
//
// All public methods are thread-safe.
type Store struct {
	repo    Repository
	cache   map[string]*Definition // Cached definitions by ID
	cacheMu sync.RWMutex           // Protects cache
	logger  Logger
}

// NewStore creates a new action store.
// The repository is used for persistence; the store adds caching.
func NewStore(repo Repository) *Store {
	return &Store{
		repo:   repo,
		cache:  make(map[string]*Definition),
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the store.
func (s *Store) SetLogger(logger Logger) {
	s.logger = logger
}

// RefreshCache reloads all actions from the repository into the cache.
// This should be called on application startup.
func (s *Store) RefreshCache(ctx context.Context) error {
	defs, err := s.repo.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("loading actions: %w", err)
	}

	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()

	// Clear and rebuild cache with deep copies
	s.cache = make(map[string]*Definition, len(defs))
	for i := range defs {
		d := defs[i]
		s.cache[d.ID] = d.DeepCopy()
	}

	s.logger.Info("action cache refreshed", "count", len(defs))
	return nil
}

// Get retrieves an action by ID.
// The returned definition is a deep copy; callers can safely modify it.
func (s *Store) Get(_ context.Context, id string) (*Definition, error) {
	s.cacheMu.RLock()
	cached, ok := s.cache[id]
	s.cacheMu.RUnlock()

	if ok {
		return cached.DeepCopy(), nil
	}
	return nil, ErrNotFound
}

// ListForSession retrieves all actions bound to a session key.
// Returns deep copies sorted by creation time then name.
func (s *Store) ListForSession(_ context.Context, sessionKey string) ([]Definition, error) {
	key := session.Normalize(sessionKey)

	s.cacheMu.RLock()
	defer s.cacheMu.RUnlock()

	var defs []Definition
	for _, d := range s.cache {
		if d.SessionKey == key {
			defs = append(defs, *d.DeepCopy())
		}
	}
	sortDefinitions(defs)
	return defs, nil
}

// ActiveForSession retrieves the active actions bound to a session key.
// This is the set the engine arms when a display joins.
func (s *Store) ActiveForSession(_ context.Context, sessionKey string) ([]Definition, error) {
	key := session.Normalize(sessionKey)

	s.cacheMu.RLock()
	defer s.cacheMu.RUnlock()

	var defs []Definition
	for _, d := range s.cache {
		if d.SessionKey == key && d.Active {
			defs = append(defs, *d.DeepCopy())
		}
	}
	sortDefinitions(defs)
	return defs, nil
}

// sortDefinitions sorts actions by creation time then name, matching the
// DB query ordering.
func sortDefinitions(defs []Definition) {
	sort.Slice(defs, func(i, j int) bool {
		if !defs[i].CreatedAt.Equal(defs[j].CreatedAt) {
			return defs[i].CreatedAt.Before(defs[j].CreatedAt)
		}
		return defs[i].Name < defs[j].Name
	})
}

// Create validates, persists, and caches a new action.
func (s *Store) Create(ctx context.Context, def *Definition) error {
	// Generate ID if not provided
	if def.ID == "" {
		def.ID = GenerateID()
	}
	def.SessionKey = session.Normalize(def.SessionKey)

	// Validate
	if err := Validate(def); err != nil {
		return err
	}

	// Persist
	if err := s.repo.Create(ctx, def); err != nil {
		return err
	}

	// Update cache
	s.cacheMu.Lock()
	s.cache[def.ID] = def.DeepCopy()
	s.cacheMu.Unlock()

	s.logger.Info("action created", "id", def.ID, "name", def.Name, "session", def.SessionKey)
	return nil
}

// Update validates, persists, and updates the cached action.
func (s *Store) Update(ctx context.Context, def *Definition) error {
	def.SessionKey = session.Normalize(def.SessionKey)

	// Validate
	if err := Validate(def); err != nil {
		return err
	}

	// Persist
	if err := s.repo.Update(ctx, def); err != nil {
		return err
	}

	// Update cache
	s.cacheMu.Lock()
	s.cache[def.ID] = def.DeepCopy()
	s.cacheMu.Unlock()

	s.logger.Info("action updated", "id", def.ID, "name", def.Name)
	return nil
}

// Delete removes an action from persistence and cache.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.cacheMu.Lock()
	delete(s.cache, id)
	s.cacheMu.Unlock()

	s.logger.Info("action deleted", "id", id)
	return nil
}

// Count returns the number of cached actions.
func (s *Store) Count() int {
	s.cacheMu.RLock()
	defer s.cacheMu.RUnlock()
	return len(s.cache)
}
