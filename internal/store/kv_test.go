// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// kvContract runs the behaviour every KVStorage backend must share.
func kvContract(t *testing.T, newStorage func(t *testing.T) KVStorage) {
	ctx := context.Background()

	t.Run("get missing", func(t *testing.T) {
		kv := newStorage(t)
		_, err := kv.Get(ctx, "nope")
		assert.ErrorIs(t, err, ErrKeyNotFound)
	})

	t.Run("set get overwrite", func(t *testing.T) {
		kv := newStorage(t)
		require.NoError(t, kv.Set(ctx, "a", []byte("1")))
		require.NoError(t, kv.Set(ctx, "a", []byte("2")))

		v, err := kv.Get(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, []byte("2"), v)
	})

	t.Run("returned value is a copy", func(t *testing.T) {
		kv := newStorage(t)
		require.NoError(t, kv.Set(ctx, "a", []byte("abc")))

		v, err := kv.Get(ctx, "a")
		require.NoError(t, err)
		v[0] = 'z'

		again, err := kv.Get(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, []byte("abc"), again)
	})

	t.Run("remove", func(t *testing.T) {
		kv := newStorage(t)
		require.NoError(t, kv.Set(ctx, "a", []byte("1")))
		require.NoError(t, kv.Remove(ctx, "a"))
		require.NoError(t, kv.Remove(ctx, "a"))

		_, err := kv.Get(ctx, "a")
		assert.ErrorIs(t, err, ErrKeyNotFound)
	})

	t.Run("keys and clear by prefix", func(t *testing.T) {
		kv := newStorage(t)
		for _, k := range []string{"cache:t_2", "cache:t_1", "sync_queue", "conflicts"} {
			require.NoError(t, kv.Set(ctx, k, []byte("{}")))
		}

		keys, err := kv.Keys(ctx, CachePrefix)
		require.NoError(t, err)
		assert.Equal(t, []string{"cache:t_1", "cache:t_2"}, keys)

		require.NoError(t, kv.Clear(ctx, CachePrefix))
		keys, err = kv.Keys(ctx, "")
		require.NoError(t, err)
		assert.Equal(t, []string{"conflicts", "sync_queue"}, keys)

		require.NoError(t, kv.Clear(ctx, ""))
		keys, err = kv.Keys(ctx, "")
		require.NoError(t, err)
		assert.Empty(t, keys)
	})
}

func TestMemoryStorage(t *testing.T) {
	kvContract(t, func(t *testing.T) KVStorage { return NewMemoryStorage() })
}

func TestFileStorage(t *testing.T) {
	kvContract(t, func(t *testing.T) KVStorage {
		kv, err := NewFileStorage(filepath.Join(t.TempDir(), "keeper.json"))
		require.NoError(t, err)
		return kv
	})
}

func TestFileStorage_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "keeper.json")

	kv, err := NewFileStorage(path)
	require.NoError(t, err)
	require.NoError(t, kv.Set(ctx, "sync_queue", []byte(`[{"id":"1"}]`)))
	require.NoError(t, kv.Set(ctx, "gone", []byte("x")))
	require.NoError(t, kv.Remove(ctx, "gone"))

	reopened, err := NewFileStorage(path)
	require.NoError(t, err)

	v, err := reopened.Get(ctx, "sync_queue")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"1"}]`, string(v))

	_, err = reopened.Get(ctx, "gone")
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestFileStorage_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keeper.json")
	require.NoError(t, os.WriteFile(path, []byte("{broken"), 0o600))

	_, err := NewFileStorage(path)
	assert.ErrorIs(t, err, ErrStorageUnavailable)
}

func TestFileStorage_WriteFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "keeper.json")

	kv, err := NewFileStorage(path)
	require.NoError(t, err)
	require.NoError(t, kv.Set(ctx, "a", []byte("1")))

	// a directory where the temp file should go makes the write fail
	require.NoError(t, os.Mkdir(path+".tmp", 0o755))

	err = kv.Set(ctx, "b", []byte("2"))
	require.ErrorIs(t, err, ErrStorageUnavailable)

	_, err = kv.Get(ctx, "b")
	assert.ErrorIs(t, err, ErrKeyNotFound)
}
