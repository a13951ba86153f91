// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MKhiriev/go-offline-keeper/internal/codec"
	"github.com/MKhiriev/go-offline-keeper/internal/conflict"
	"github.com/MKhiriev/go-offline-keeper/internal/logger"
	"github.com/MKhiriev/go-offline-keeper/internal/mock"
	"github.com/MKhiriev/go-offline-keeper/internal/network"
	"github.com/MKhiriev/go-offline-keeper/internal/policy"
	"github.com/MKhiriev/go-offline-keeper/internal/queue"
	"github.com/MKhiriev/go-offline-keeper/internal/store"
	"github.com/MKhiriev/go-offline-keeper/internal/utils"
	"github.com/MKhiriev/go-offline-keeper/models"
)

var epoch = time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)

// seqIDs generates predictable ids: op-1, op-2, ...
type seqIDs struct {
	mu sync.Mutex
	n  int
}

func (g *seqIDs) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("op-%d", g.n)
}

type harness struct {
	kv       store.KVStorage
	clock    *utils.ManualClock
	remote   *mock.MockRemoteAuthority
	network  *network.Monitor
	policies *policy.Table
	queue    *queue.Queue
	engine   *syncEngine
	data     *dataService
}

type harnessOptions struct {
	online       bool
	maxQueueSize int
	maxEntries   int
}

func newHarness(t *testing.T, policies map[string]models.DataTypePolicy, opts harnessOptions) *harness {
	t.Helper()

	ctrl := gomock.NewController(t)
	h := &harness{
		kv:       store.NewMemoryStorage(),
		clock:    utils.NewManualClock(epoch),
		remote:   mock.NewMockRemoteAuthority(ctrl),
		network:  network.NewMonitor(nil, network.Options{InitiallyOnline: opts.online}, logger.Nop()),
		policies: policy.NewTable(policies),
	}
	h.build(t, opts)
	return h
}

// build wires an engine over the harness storage; calling it again
// simulates a restart.
func (h *harness) build(t *testing.T, opts harnessOptions) {
	t.Helper()

	c, err := codec.New(1024, codec.AlgorithmGzip)
	require.NoError(t, err)

	ids := &seqIDs{}
	h.queue = queue.New(h.kv, opts.maxQueueSize, logger.Nop())
	h.engine = newSyncEngine(Components{
		KV:        h.kv,
		Cache:     store.NewCacheStore(h.kv, c, h.clock, opts.maxEntries, logger.Nop()),
		Queue:     h.queue,
		Conflicts: conflict.NewRegistry(h.kv, h.clock, ids, logger.Nop()),
		Policies:  h.policies,
		Remote:    h.remote,
		Network:   h.network,
		Clock:     h.clock,
		IDs:       ids,
	}, 3, logger.Nop())
	h.data = newDataService(h.engine, logger.Nop())
}

func (h *harness) cached(t *testing.T, dataType, key string) models.CacheEntry {
	t.Helper()
	entry, ok := h.engine.Cache.Get(context.Background(), dataType, key)
	require.True(t, ok, "expected %s/%s to be cached", dataType, key)
	return entry
}

func (h *harness) seed(t *testing.T, dataType, key, payload string) {
	t.Helper()
	_, err := h.engine.Cache.Set(context.Background(), models.CacheEntry{
		Key:      key,
		DataType: dataType,
		Payload:  json.RawMessage(payload),
	})
	require.NoError(t, err)
}

func pol(strategy models.Strategy, priority models.Priority, resolution models.ConflictResolution) models.DataTypePolicy {
	return models.DataTypePolicy{
		Strategy:           strategy,
		Priority:           priority,
		SyncFrequency:      time.Minute,
		CacheExpiry:        2 * time.Second,
		ConflictResolution: resolution,
	}
}

func raw(s string) json.RawMessage {
	return json.RawMessage(s)
}
