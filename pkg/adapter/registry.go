package adapter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/rishipradeep-think41/foundation-sql/pkg/core"
)

// registryKey identifies one cached adapter: a sync and an async adapter
// for the same target are distinct entries with independent pools.
type registryKey struct {
	target core.Target
	mode   core.ExecutionMode
}

func (k registryKey) String() string {
	return string(k.target) + "|" + k.mode.String()
}

// Factory constructs an adapter for a resolved (target, mode) pair.
type Factory func(ctx context.Context, target core.Target, mode core.ExecutionMode, logger *slog.Logger) (EngineAdapter, error)

// defaultFactory builds the mode-appropriate built-in adapter.
func defaultFactory(ctx context.Context, target core.Target, mode core.ExecutionMode, logger *slog.Logger) (EngineAdapter, error) {
	switch mode {
	case core.ModeSync:
		return NewSyncAdapter(ctx, target, logger)
	case core.ModeAsync:
		return NewAsyncAdapter(ctx, target, logger)
	default:
		return nil, fmt.Errorf("cannot construct adapter for mode %q", mode)
	}
}

// Registry caches adapters per (target, mode) key for the lifetime of the
// process, unless explicitly cleared. Construction is single-flight:
// concurrent Acquire calls for an absent key converge on one constructed
// instance, because duplicate pools leak connections. The map mutex is
// held only around lookups and insertions, never during Execute.
type Registry struct {
	mu       sync.RWMutex
	adapters map[registryKey]EngineAdapter
	group    singleflight.Group
	factory  Factory
	logger   *slog.Logger
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithFactory overrides adapter construction. Used by tests and by callers
// embedding custom backends.
func WithFactory(f Factory) RegistryOption {
	return func(r *Registry) {
		if f != nil {
			r.factory = f
		}
	}
}

// WithLogger sets the logger passed to constructed adapters.
func WithLogger(logger *slog.Logger) RegistryOption {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRegistry creates an empty adapter registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		adapters: make(map[registryKey]EngineAdapter),
		factory:  defaultFactory,
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Acquire returns the cached adapter for the key, constructing and caching
// it on first use. The mode must already be resolved: ModeDefault is a
// call-site concern and is rejected here.
func (r *Registry) Acquire(ctx context.Context, target core.Target, mode core.ExecutionMode) (EngineAdapter, error) {
	if mode != core.ModeSync && mode != core.ModeAsync {
		return nil, fmt.Errorf("execution mode must be resolved before acquire, got %q", mode)
	}

	key := registryKey{target: target, mode: mode}

	r.mu.RLock()
	cached, ok := r.adapters[key]
	r.mu.RUnlock()
	if ok {
		return cached, nil
	}

	v, err, _ := r.group.Do(key.String(), func() (any, error) {
		// re-check: another flight may have inserted between RUnlock and Do
		r.mu.RLock()
		existing, ok := r.adapters[key]
		r.mu.RUnlock()
		if ok {
			return existing, nil
		}

		built, err := r.factory(ctx, target, mode, r.logger)
		if err != nil {
			return nil, err
		}

		r.mu.Lock()
		r.adapters[key] = built
		r.mu.Unlock()

		r.logger.Debug("adapter constructed",
			slog.String("target", redact(target)),
			slog.String("mode", mode.String()))
		return built, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(EngineAdapter), nil
}

// Release disposes and removes the adapter for the key. Intended for
// explicit teardown paths only, never for normal query execution.
func (r *Registry) Release(target core.Target, mode core.ExecutionMode) error {
	key := registryKey{target: target, mode: mode}

	r.mu.Lock()
	a, ok := r.adapters[key]
	delete(r.adapters, key)
	r.mu.Unlock()

	if !ok {
		return nil
	}
	return a.Dispose()
}

// ReleaseAll disposes every entry and clears the registry. Used by test
// fixtures and process shutdown.
func (r *Registry) ReleaseAll() error {
	r.mu.Lock()
	adapters := r.adapters
	r.adapters = make(map[registryKey]EngineAdapter)
	r.mu.Unlock()

	var errs []error
	for _, a := range adapters {
		if err := a.Dispose(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Count returns the number of live adapters.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.adapters)
}

// Package-level default registry, mirroring the process-wide adapter cache
// most callers want.
var defaultRegistry = NewRegistry()

// Default returns the process-wide registry.
func Default() *Registry { return defaultRegistry }

// Acquire acquires from the process-wide registry.
func Acquire(ctx context.Context, target core.Target, mode core.ExecutionMode) (EngineAdapter, error) {
	return defaultRegistry.Acquire(ctx, target, mode)
}

// Release releases from the process-wide registry.
func Release(target core.Target, mode core.ExecutionMode) error {
	return defaultRegistry.Release(target, mode)
}

// ReleaseAll disposes every adapter in the process-wide registry.
func ReleaseAll() error {
	return defaultRegistry.ReleaseAll()
}
