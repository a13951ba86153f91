// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package conflict detects, records and settles divergences between locally
// modified values and the remote authority's copy.
//
// Every conflict is recorded, including the ones settled automatically, so
// the registry doubles as an audit log. It is persisted to the key/value
// storage after each change.
package conflict

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/MKhiriev/go-offline-keeper/internal/logger"
	"github.com/MKhiriev/go-offline-keeper/internal/store"
	"github.com/MKhiriev/go-offline-keeper/internal/utils"
	"github.com/MKhiriev/go-offline-keeper/models"
)

// StorageKey is where the registry is persisted.
const StorageKey = "conflicts"

// DefaultRetainResolved is how many resolved conflicts are kept.
const DefaultRetainResolved = 500

// Registry is safe for concurrent use.
type Registry struct {
	kv     store.KVStorage
	clock  utils.Clock
	ids    utils.IDGenerator
	logger *logger.Logger

	retainResolved int

	mu        sync.Mutex
	conflicts []models.Conflict
}

// NewRegistry returns an empty registry persisted to kv.
func NewRegistry(kv store.KVStorage, clock utils.Clock, ids utils.IDGenerator, log *logger.Logger) *Registry {
	return &Registry{
		kv:             kv,
		clock:          clock,
		ids:            ids,
		logger:         log,
		retainResolved: DefaultRetainResolved,
	}
}

// Load replaces the in-memory registry with the persisted one.
func (r *Registry) Load(ctx context.Context) error {
	raw, err := r.kv.Get(ctx, StorageKey)
	if errors.Is(err, store.ErrKeyNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load conflicts: %w", err)
	}

	var conflicts []models.Conflict
	if err = json.Unmarshal(raw, &conflicts); err != nil {
		return fmt.Errorf("decode conflicts: %w", err)
	}

	r.mu.Lock()
	r.conflicts = conflicts
	r.mu.Unlock()

	return nil
}

// Register records a conflict for key and applies strategy to it. The
// returned conflict is resolved unless strategy needs a manual decision.
func (r *Registry) Register(ctx context.Context, key, dataType string, local, server models.ConflictSide, strategy models.ConflictResolution) models.Conflict {
	now := r.clock.Now()
	c := models.Conflict{
		ID:         r.ids.Generate(),
		Key:        key,
		DataType:   dataType,
		Local:      local,
		Server:     server,
		DetectedAt: now,
	}

	if payload, ok := Resolve(strategy, local, server); ok {
		c.Resolved = true
		c.Resolution = &models.Resolution{
			Strategy:   strategy,
			Payload:    payload,
			Automatic:  true,
			ResolvedAt: now,
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.conflicts = append(r.conflicts, c)
	r.prune()
	r.persist(ctx)

	r.logger.Info().
		Str("func", "Registry.Register").
		Str("conflict_id", c.ID).
		Str("data_type", dataType).
		Str("key", key).
		Str("strategy", strategy.String()).
		Bool("resolved", c.Resolved).
		Msg("conflict registered")

	return c
}

// Resolve settles the pending conflict id with payload.
func (r *Registry) Resolve(ctx context.Context, id string, payload json.RawMessage) (models.Conflict, error) {
	if !json.Valid(payload) {
		return models.Conflict{}, ErrInvalidResolution
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	i := slices.IndexFunc(r.conflicts, func(c models.Conflict) bool { return c.ID == id })
	if i < 0 {
		return models.Conflict{}, fmt.Errorf("%w: %s", ErrConflictNotFound, id)
	}
	if r.conflicts[i].Resolved {
		return models.Conflict{}, fmt.Errorf("%w: %s", ErrAlreadyResolved, id)
	}

	r.conflicts[i].Resolved = true
	r.conflicts[i].Resolution = &models.Resolution{
		Strategy:   models.Manual,
		Payload:    slices.Clone(payload),
		ResolvedAt: r.clock.Now(),
	}
	r.prune()
	r.persist(ctx)

	return r.find(id), nil
}

// PendingFor returns the unresolved conflict of key, if any.
func (r *Registry) PendingFor(dataType, key string) (models.Conflict, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, c := range r.conflicts {
		if !c.Resolved && c.DataType == dataType && c.Key == key {
			return c, true
		}
	}
	return models.Conflict{}, false
}

// Refresh replaces both sides of the pending conflict id with the latest
// divergence.
func (r *Registry) Refresh(ctx context.Context, id string, local, server models.ConflictSide) (models.Conflict, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := slices.IndexFunc(r.conflicts, func(c models.Conflict) bool { return c.ID == id })
	if i < 0 {
		return models.Conflict{}, fmt.Errorf("%w: %s", ErrConflictNotFound, id)
	}
	if r.conflicts[i].Resolved {
		return models.Conflict{}, fmt.Errorf("%w: %s", ErrAlreadyResolved, id)
	}

	r.conflicts[i].Local = local
	r.conflicts[i].Server = server
	r.persist(ctx)

	return r.conflicts[i], nil
}

// Reopen drops the manual resolution of id so it can be resolved again.
func (r *Registry) Reopen(ctx context.Context, id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := slices.IndexFunc(r.conflicts, func(c models.Conflict) bool { return c.ID == id })
	if i < 0 || !r.conflicts[i].Resolved {
		return
	}

	r.conflicts[i].Resolved = false
	r.conflicts[i].Resolution = nil
	r.persist(ctx)
}

// Get returns the conflict with id.
func (r *Registry) Get(id string) (models.Conflict, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := r.find(id)
	return c, c.ID != ""
}

// List returns every recorded conflict in detection order.
func (r *Registry) List() []models.Conflict {
	r.mu.Lock()
	defer r.mu.Unlock()

	return slices.Clone(r.conflicts)
}

// Pending returns the number of unresolved conflicts.
func (r *Registry) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, c := range r.conflicts {
		if !c.Resolved {
			n++
		}
	}
	return n
}

// find returns the conflict with id or the zero value; r.mu must be held.
func (r *Registry) find(id string) models.Conflict {
	for _, c := range r.conflicts {
		if c.ID == id {
			return c
		}
	}
	return models.Conflict{}
}

// prune drops the oldest resolved conflicts beyond retainResolved; r.mu
// must be held.
func (r *Registry) prune() {
	resolved := 0
	for _, c := range r.conflicts {
		if c.Resolved {
			resolved++
		}
	}

	excess := resolved - r.retainResolved
	if excess <= 0 {
		return
	}

	r.conflicts = slices.DeleteFunc(r.conflicts, func(c models.Conflict) bool {
		if c.Resolved && excess > 0 {
			excess--
			return true
		}
		return false
	})
}

// persist writes the registry; r.mu must be held.
func (r *Registry) persist(ctx context.Context) {
	raw, err := json.Marshal(r.conflicts)
	if err == nil {
		err = r.kv.Set(ctx, StorageKey, raw)
	}
	if err != nil {
		r.logger.Err(err).
			Str("func", "Registry.persist").
			Int("conflicts", len(r.conflicts)).
			Msg("failed to persist conflicts, continuing in memory")
	}
}
