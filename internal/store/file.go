// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
)

// fileStorage keeps every key in memory and rewrites a single JSON file
// after each mutation.
type fileStorage struct {
	path string

	mu    sync.RWMutex
	items map[string][]byte
}

type filePersistedState struct {
	Version int               `json:"version"`
	Items   map[string][]byte `json:"items"`
}

// NewFileStorage opens (or creates on first write) the JSON file at path.
func NewFileStorage(path string) (KVStorage, error) {
	s := &fileStorage{
		path:  path,
		items: make(map[string][]byte),
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *fileStorage) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("%w: read storage file: %w", ErrStorageUnavailable, err)
	}
	if len(data) == 0 {
		return nil
	}

	var st filePersistedState
	if err = json.Unmarshal(data, &st); err != nil {
		return fmt.Errorf("%w: decode storage file: %w", ErrStorageUnavailable, err)
	}
	if st.Items != nil {
		s.items = st.Items
	}

	return nil
}

// persist must be called with s.mu held for writing.
func (s *fileStorage) persist() error {
	dir := filepath.Dir(s.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("%w: create storage dir: %w", ErrStorageUnavailable, err)
		}
	}

	payload, err := json.Marshal(filePersistedState{Version: 1, Items: s.items})
	if err != nil {
		return fmt.Errorf("encode storage: %w", err)
	}

	tmp := s.path + ".tmp"
	if err = os.WriteFile(tmp, payload, 0o600); err != nil {
		return fmt.Errorf("%w: write storage file: %w", ErrStorageUnavailable, err)
	}
	if err = os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("%w: replace storage file: %w", ErrStorageUnavailable, err)
	}

	return nil
}

func (s *fileStorage) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.items[key]
	if !ok {
		return nil, ErrKeyNotFound
	}
	return slices.Clone(v), nil
}

func (s *fileStorage) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, existed := s.items[key]
	s.items[key] = slices.Clone(value)
	if err := s.persist(); err != nil {
		if existed {
			s.items[key] = prev
		} else {
			delete(s.items, key)
		}
		return err
	}
	return nil
}

func (s *fileStorage) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, existed := s.items[key]
	if !existed {
		return nil
	}
	delete(s.items, key)
	if err := s.persist(); err != nil {
		s.items[key] = prev
		return err
	}
	return nil
}

func (s *fileStorage) Keys(_ context.Context, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return matchingKeys(s.items, prefix), nil
}

func (s *fileStorage) Clear(_ context.Context, prefix string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := make(map[string][]byte)
	for key, v := range s.items {
		if strings.HasPrefix(key, prefix) {
			removed[key] = v
			delete(s.items, key)
		}
	}
	if len(removed) == 0 {
		return nil
	}
	if err := s.persist(); err != nil {
		for key, v := range removed {
			s.items[key] = v
		}
		return err
	}
	return nil
}

func (s *fileStorage) Close() error {
	return nil
}
