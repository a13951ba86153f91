// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/MKhiriev/go-offline-keeper/internal/logger"
	"github.com/MKhiriev/go-offline-keeper/internal/utils"
	"github.com/MKhiriev/go-offline-keeper/models"
)

// CachePrefix starts the storage key of every cache entry.
const CachePrefix = "cache:"

// CacheKey returns the storage key of the entry for key of dataType.
func CacheKey(dataType, key string) string {
	return CachePrefix + dataType + "_" + key
}

// Compressor turns serialized entries into their persisted form and back.
type Compressor interface {
	Compress(data []byte) (models.CompressedPayload, error)
	Decompress(p models.CompressedPayload) ([]byte, error)
}

// CacheStore is the durable key to entry map of cached values. Entries are
// serialized, passed through the Compressor and written to a KVStorage.
//
// Read failures are logged and reported as misses.
type CacheStore struct {
	kv         KVStorage
	codec      Compressor
	clock      utils.Clock
	maxEntries int
	logger     *logger.Logger

	// evictMu serializes eviction passes.
	evictMu sync.Mutex
}

// NewCacheStore builds a CacheStore. maxEntries <= 0 disables eviction.
func NewCacheStore(kv KVStorage, codec Compressor, clock utils.Clock, maxEntries int, log *logger.Logger) *CacheStore {
	return &CacheStore{
		kv:         kv,
		codec:      codec,
		clock:      clock,
		maxEntries: maxEntries,
		logger:     log,
	}
}

// Get returns the entry for key of dataType. ok is false on a miss and on
// any storage or decoding failure. An entry stored under the same storage
// key for another data type is a miss.
func (c *CacheStore) Get(ctx context.Context, dataType, key string) (models.CacheEntry, bool) {
	entry, err := c.load(ctx, CacheKey(dataType, key))
	if err != nil {
		if !errors.Is(err, ErrKeyNotFound) {
			c.logger.Err(err).
				Str("func", "CacheStore.Get").
				Str("data_type", dataType).
				Str("key", key).
				Msg("cache read failed, treating as miss")
		}
		return models.CacheEntry{}, false
	}
	if entry.DataType != dataType || entry.Key != key {
		c.logger.Warn().
			Str("func", "CacheStore.Get").
			Str("data_type", dataType).
			Str("key", key).
			Str("stored_data_type", entry.DataType).
			Msg("storage key holds another data type, treating as miss")
		return models.CacheEntry{}, false
	}

	return entry, true
}

// Set stores entry, stamping StoredAt with the current time, and evicts
// the oldest entries when the store holds more than maxEntries.
func (c *CacheStore) Set(ctx context.Context, entry models.CacheEntry) (models.CacheEntry, error) {
	entry.StoredAt = c.clock.Now()

	raw, err := json.Marshal(entry)
	if err != nil {
		return entry, fmt.Errorf("encode cache entry: %w", err)
	}
	packed, err := c.codec.Compress(raw)
	if err != nil {
		c.logger.Err(err).Str("func", "CacheStore.Set").Str("key", entry.Key).Msg("compression failed")
		return entry, err
	}
	value, err := json.Marshal(packed)
	if err != nil {
		return entry, fmt.Errorf("encode compressed entry: %w", err)
	}

	if err = c.kv.Set(ctx, CacheKey(entry.DataType, entry.Key), value); err != nil {
		c.logger.Err(err).
			Str("func", "CacheStore.Set").
			Str("data_type", entry.DataType).
			Str("key", entry.Key).
			Msg("cache write failed")
		return entry, err
	}

	if c.maxEntries > 0 {
		c.evict(ctx)
	}

	return entry, nil
}

// Remove deletes the entry for key of dataType.
func (c *CacheStore) Remove(ctx context.Context, dataType, key string) error {
	if err := c.kv.Remove(ctx, CacheKey(dataType, key)); err != nil {
		c.logger.Err(err).Str("func", "CacheStore.Remove").Str("key", key).Msg("cache remove failed")
		return err
	}
	return nil
}

// Keys lists the storage keys of cached entries.
func (c *CacheStore) Keys(ctx context.Context) ([]string, error) {
	return c.kv.Keys(ctx, CachePrefix)
}

// Entries returns the cached entries of dataType, or of every data type
// when dataType is empty. Undecodable entries are skipped.
func (c *CacheStore) Entries(ctx context.Context, dataType string) ([]models.CacheEntry, error) {
	prefix := CachePrefix
	if dataType != "" {
		prefix = CachePrefix + dataType + "_"
	}

	keys, err := c.kv.Keys(ctx, prefix)
	if err != nil {
		return nil, err
	}

	entries := make([]models.CacheEntry, 0, len(keys))
	for _, storageKey := range keys {
		entry, err := c.load(ctx, storageKey)
		if err != nil {
			c.logger.Warn().Err(err).Str("func", "CacheStore.Entries").Str("storage_key", storageKey).Msg("skipping entry")
			continue
		}
		// "cache:user_" also prefixes keys of "user_profile"
		if dataType != "" && entry.DataType != dataType {
			continue
		}
		entries = append(entries, entry)
	}

	return entries, nil
}

// Clear removes the cached entries of dataType, or every cached entry when
// dataType is empty.
func (c *CacheStore) Clear(ctx context.Context, dataType string) error {
	if dataType == "" {
		return c.kv.Clear(ctx, CachePrefix)
	}

	entries, err := c.Entries(ctx, dataType)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if err = c.kv.Remove(ctx, CacheKey(entry.DataType, entry.Key)); err != nil {
			return err
		}
	}

	return nil
}

func (c *CacheStore) load(ctx context.Context, storageKey string) (models.CacheEntry, error) {
	value, err := c.kv.Get(ctx, storageKey)
	if err != nil {
		return models.CacheEntry{}, err
	}

	var packed models.CompressedPayload
	if err = json.Unmarshal(value, &packed); err != nil {
		return models.CacheEntry{}, fmt.Errorf("%w: %w", ErrCorruptEntry, err)
	}
	raw, err := c.codec.Decompress(packed)
	if err != nil {
		return models.CacheEntry{}, fmt.Errorf("%w: %w", ErrCorruptEntry, err)
	}

	var entry models.CacheEntry
	if err = json.Unmarshal(raw, &entry); err != nil {
		return models.CacheEntry{}, fmt.Errorf("%w: %w", ErrCorruptEntry, err)
	}

	return entry, nil
}

// evict removes entries oldest StoredAt first until at most maxEntries
// remain. Entries with pending local modifications are never evicted.
func (c *CacheStore) evict(ctx context.Context) {
	c.evictMu.Lock()
	defer c.evictMu.Unlock()

	keys, err := c.kv.Keys(ctx, CachePrefix)
	if err != nil || len(keys) <= c.maxEntries {
		return
	}

	type candidate struct {
		storageKey string
		entry      models.CacheEntry
	}
	candidates := make([]candidate, 0, len(keys))
	for _, storageKey := range keys {
		entry, err := c.load(ctx, storageKey)
		if err != nil {
			// unreadable entries go first
			candidates = append(candidates, candidate{storageKey: storageKey})
			continue
		}
		if entry.ModifiedLocally {
			continue
		}
		candidates = append(candidates, candidate{storageKey: storageKey, entry: entry})
	}

	slices.SortStableFunc(candidates, func(a, b candidate) int {
		return a.entry.StoredAt.Compare(b.entry.StoredAt)
	})

	excess := len(keys) - c.maxEntries
	for i := 0; i < excess && i < len(candidates); i++ {
		if err := c.kv.Remove(ctx, candidates[i].storageKey); err != nil {
			c.logger.Err(err).Str("func", "CacheStore.evict").Str("storage_key", candidates[i].storageKey).Msg("eviction failed")
			continue
		}
		c.logger.Debug().Str("func", "CacheStore.evict").Str("storage_key", candidates[i].storageKey).Msg("evicted cache entry")
	}
}
