// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package store

import (
	"context"
	"slices"
	"strings"
	"sync"
)

type memoryStorage struct {
	mu    sync.RWMutex
	items map[string][]byte
}

// NewMemoryStorage returns a process-local KVStorage. Nothing survives a
// restart.
func NewMemoryStorage() KVStorage {
	return &memoryStorage{items: make(map[string][]byte)}
}

func (m *memoryStorage) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.items[key]
	if !ok {
		return nil, ErrKeyNotFound
	}
	return slices.Clone(v), nil
}

func (m *memoryStorage) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.items[key] = slices.Clone(value)
	return nil
}

func (m *memoryStorage) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.items, key)
	return nil
}

func (m *memoryStorage) Keys(_ context.Context, prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return matchingKeys(m.items, prefix), nil
}

func (m *memoryStorage) Clear(_ context.Context, prefix string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for key := range m.items {
		if strings.HasPrefix(key, prefix) {
			delete(m.items, key)
		}
	}
	return nil
}

func (m *memoryStorage) Close() error {
	return nil
}

func matchingKeys(items map[string][]byte, prefix string) []string {
	keys := make([]string, 0, len(items))
	for key := range items {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	slices.Sort(keys)
	return keys
}
