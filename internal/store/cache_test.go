// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package store

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MKhiriev/go-offline-keeper/internal/codec"
	"github.com/MKhiriev/go-offline-keeper/internal/logger"
	"github.com/MKhiriev/go-offline-keeper/internal/utils"
	"github.com/MKhiriev/go-offline-keeper/models"
)

var epoch = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func newTestCache(t *testing.T, maxEntries int) (*CacheStore, KVStorage, *utils.ManualClock) {
	t.Helper()
	c, err := codec.New(64, codec.AlgorithmGzip)
	require.NoError(t, err)

	kv := NewMemoryStorage()
	clock := utils.NewManualClock(epoch)
	return NewCacheStore(kv, c, clock, maxEntries, logger.Nop()), kv, clock
}

func TestCacheKey(t *testing.T) {
	assert.Equal(t, "cache:user_profile_42", CacheKey("user_profile", "42"))
}

func TestCacheStore_SetGet(t *testing.T) {
	cache, _, clock := newTestCache(t, 0)
	ctx := context.Background()

	stored, err := cache.Set(ctx, models.CacheEntry{
		Key:             "k",
		DataType:        "t",
		Payload:         json.RawMessage(`{"v":1}`),
		ModifiedLocally: true,
		LocalTimestamp:  epoch.Add(-time.Minute),
	})
	require.NoError(t, err)
	assert.Equal(t, clock.Now(), stored.StoredAt)

	got, ok := cache.Get(ctx, "t", "k")
	require.True(t, ok)
	assert.JSONEq(t, `{"v":1}`, string(got.Payload))
	assert.True(t, got.ModifiedLocally)
	assert.True(t, got.StoredAt.Equal(epoch))
	assert.True(t, got.LocalTimestamp.Equal(epoch.Add(-time.Minute)))

	_, ok = cache.Get(ctx, "t", "other")
	assert.False(t, ok)
}

func TestCacheStore_GetIgnoresOtherDataType(t *testing.T) {
	cache, _, _ := newTestCache(t, 0)
	ctx := context.Background()

	// "user"/"profile_x" и "user_profile"/"x" делят один ключ хранилища
	require.Equal(t, CacheKey("user", "profile_x"), CacheKey("user_profile", "x"))

	_, err := cache.Set(ctx, models.CacheEntry{Key: "profile_x", DataType: "user", Payload: json.RawMessage(`{"owner":"user"}`)})
	require.NoError(t, err)

	_, ok := cache.Get(ctx, "user_profile", "x")
	assert.False(t, ok)

	got, ok := cache.Get(ctx, "user", "profile_x")
	require.True(t, ok)
	assert.JSONEq(t, `{"owner":"user"}`, string(got.Payload))
}

func TestCacheStore_LargePayloadIsCompressed(t *testing.T) {
	cache, kv, _ := newTestCache(t, 0)
	ctx := context.Background()

	big := json.RawMessage(`{"text":"` + strings.Repeat("lorem ipsum ", 200) + `"}`)
	_, err := cache.Set(ctx, models.CacheEntry{Key: "k", DataType: "t", Payload: big})
	require.NoError(t, err)

	raw, err := kv.Get(ctx, CacheKey("t", "k"))
	require.NoError(t, err)
	var packed models.CompressedPayload
	require.NoError(t, json.Unmarshal(raw, &packed))
	assert.True(t, packed.Compressed)
	assert.Equal(t, codec.AlgorithmGzip, packed.Algorithm)

	got, ok := cache.Get(ctx, "t", "k")
	require.True(t, ok)
	assert.JSONEq(t, string(big), string(got.Payload))
}

func TestCacheStore_CorruptEntryIsMiss(t *testing.T) {
	cache, kv, _ := newTestCache(t, 0)
	ctx := context.Background()

	require.NoError(t, kv.Set(ctx, CacheKey("t", "k"), []byte("not json")))

	_, ok := cache.Get(ctx, "t", "k")
	assert.False(t, ok)
}

func TestCacheStore_RemoveAndClear(t *testing.T) {
	cache, kv, _ := newTestCache(t, 0)
	ctx := context.Background()

	for _, e := range []models.CacheEntry{
		{Key: "1", DataType: "user", Payload: json.RawMessage(`1`)},
		{Key: "2", DataType: "user", Payload: json.RawMessage(`2`)},
		{Key: "1", DataType: "user_profile", Payload: json.RawMessage(`3`)},
	} {
		_, err := cache.Set(ctx, e)
		require.NoError(t, err)
	}
	require.NoError(t, kv.Set(ctx, "sync_queue", []byte("[]")))

	require.NoError(t, cache.Remove(ctx, "user", "2"))
	_, ok := cache.Get(ctx, "user", "2")
	assert.False(t, ok)

	entries, err := cache.Entries(ctx, "user")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "user", entries[0].DataType)

	// clearing "user" must not touch "user_profile"
	require.NoError(t, cache.Clear(ctx, "user"))
	_, ok = cache.Get(ctx, "user_profile", "1")
	assert.True(t, ok)

	require.NoError(t, cache.Clear(ctx, ""))
	keys, err := cache.Keys(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)

	_, err = kv.Get(ctx, "sync_queue")
	assert.NoError(t, err)
}

func TestCacheStore_EvictsOldestUnmodified(t *testing.T) {
	cache, _, clock := newTestCache(t, 2)
	ctx := context.Background()

	set := func(key string, modified bool) {
		_, err := cache.Set(ctx, models.CacheEntry{Key: key, DataType: "t", Payload: json.RawMessage(`{}`), ModifiedLocally: modified})
		require.NoError(t, err)
		clock.Advance(time.Second)
	}

	set("pending", true)
	set("old", false)
	set("new", false)

	_, ok := cache.Get(ctx, "t", "pending")
	assert.True(t, ok, "locally modified entries are never evicted")
	_, ok = cache.Get(ctx, "t", "old")
	assert.False(t, ok, "oldest unmodified entry is evicted")
	_, ok = cache.Get(ctx, "t", "new")
	assert.True(t, ok)
}
