// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MKhiriev/go-offline-keeper/internal/adapter"
	"github.com/MKhiriev/go-offline-keeper/internal/conflict"
	"github.com/MKhiriev/go-offline-keeper/internal/policy"
	"github.com/MKhiriev/go-offline-keeper/internal/queue"
	"github.com/MKhiriev/go-offline-keeper/models"
)

func TestTriggerSync_OfflineSendsNothing(t *testing.T) {
	h := newHarness(t, map[string]models.DataTypePolicy{
		"settings": pol(models.OfflineFirst, models.Medium, models.ClientWins),
	}, harnessOptions{online: false})
	ctx := context.Background()

	_, err := h.data.SetData(ctx, "k", "settings", raw(`1`), models.SetOptions{})
	require.NoError(t, err)

	report, err := h.engine.TriggerSync(ctx)
	require.NoError(t, err)
	assert.Zero(t, report.Processed)
	assert.Equal(t, 1, h.queue.Len())
}

func TestTriggerSync_UnknownDataType(t *testing.T) {
	h := newHarness(t, map[string]models.DataTypePolicy{
		"settings": pol(models.OfflineFirst, models.Medium, models.ClientWins),
	}, harnessOptions{online: true})

	_, err := h.engine.TriggerSync(context.Background(), "settings", "nope")
	assert.ErrorIs(t, err, policy.ErrNoPolicy)
}

func TestTriggerSync_OfflineWritesReachRemoteInOrder(t *testing.T) {
	h := newHarness(t, map[string]models.DataTypePolicy{
		"settings": pol(models.OfflineFirst, models.Medium, models.ClientWins),
	}, harnessOptions{online: false})
	ctx := context.Background()

	_, err := h.data.SetData(ctx, "theme", "settings", raw(`"light"`), models.SetOptions{})
	require.NoError(t, err)
	h.clock.Advance(time.Millisecond)
	_, err = h.data.SetData(ctx, "theme", "settings", raw(`"dark"`), models.SetOptions{})
	require.NoError(t, err)

	var sent []string
	record := func(_ context.Context, op models.SyncOperation) models.SendResult {
		sent = append(sent, string(op.Payload))
		return models.Succeeded(nil)
	}
	gomock.InOrder(
		h.remote.EXPECT().Send(gomock.Any(), gomock.Any()).DoAndReturn(record),
		h.remote.EXPECT().Send(gomock.Any(), gomock.Any()).DoAndReturn(record),
	)

	h.network.SetOnline(true)
	report, err := h.engine.TriggerSync(ctx)
	require.NoError(t, err)

	assert.Equal(t, []string{`"light"`, `"dark"`}, sent)
	assert.Equal(t, 2, report.Succeeded)
	assert.Zero(t, h.queue.Len())

	entry := h.cached(t, "settings", "theme")
	assert.JSONEq(t, `"dark"`, string(entry.Payload))
	assert.False(t, entry.ModifiedLocally)

	m := h.engine.GetSyncStatus(ctx).Metrics
	assert.Equal(t, int64(2), m.Successes)
	assert.Equal(t, int64(1), m.Cycles)
	assert.True(t, h.clock.Now().Equal(m.LastSyncAt))
}

func TestTriggerSync_PriorityOrderAcrossKeys(t *testing.T) {
	h := newHarness(t, map[string]models.DataTypePolicy{
		"events":  pol(models.CacheOnly, models.Low, models.ClientWins),
		"profile": pol(models.OfflineFirst, models.High, models.ServerWins),
	}, harnessOptions{online: false})
	ctx := context.Background()

	_, err := h.data.SetData(ctx, "e1", "events", raw(`1`), models.SetOptions{})
	require.NoError(t, err)
	_, err = h.data.SetData(ctx, "u1", "profile", raw(`{}`), models.SetOptions{})
	require.NoError(t, err)

	// very-poor: one operation per batch, so dispatch order is observable
	require.NoError(t, h.network.SetConnectionType("2g"))
	h.network.SetOnline(true)

	var sent []string
	record := func(_ context.Context, op models.SyncOperation) models.SendResult {
		sent = append(sent, op.DataType)
		return models.Succeeded(nil)
	}
	h.remote.EXPECT().Send(gomock.Any(), gomock.Any()).DoAndReturn(record).Times(2)

	_, err = h.engine.TriggerSync(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"profile", "events"}, sent)
}

func TestTriggerSync_DataTypeFilter(t *testing.T) {
	h := newHarness(t, map[string]models.DataTypePolicy{
		"events":  pol(models.CacheOnly, models.Low, models.ClientWins),
		"profile": pol(models.OfflineFirst, models.High, models.ServerWins),
	}, harnessOptions{online: false})
	ctx := context.Background()

	_, err := h.data.SetData(ctx, "e1", "events", raw(`1`), models.SetOptions{})
	require.NoError(t, err)
	_, err = h.data.SetData(ctx, "u1", "profile", raw(`{}`), models.SetOptions{})
	require.NoError(t, err)

	h.network.SetOnline(true)
	h.remote.EXPECT().Send(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, op models.SyncOperation) models.SendResult {
			assert.Equal(t, "events", op.DataType)
			return models.Succeeded(nil)
		})

	report, err := h.engine.TriggerSync(ctx, "events")
	require.NoError(t, err)
	assert.Equal(t, 1, report.Processed)
	assert.Equal(t, 1, h.queue.Len())
}

func TestTriggerSync_AttemptsExhausted(t *testing.T) {
	p := pol(models.OfflineFirst, models.Medium, models.ClientWins)
	p.MaxAttempts = 2
	h := newHarness(t, map[string]models.DataTypePolicy{"settings": p}, harnessOptions{online: false})
	ctx := context.Background()

	_, err := h.data.SetData(ctx, "k", "settings", raw(`1`), models.SetOptions{})
	require.NoError(t, err)
	h.network.SetOnline(true)

	h.remote.EXPECT().Send(gomock.Any(), gomock.Any()).Return(models.Failed(adapter.ErrServiceUnavailable)).Times(2)

	report, err := h.engine.TriggerSync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Failed)
	assert.Zero(t, report.Dropped)
	ops := h.queue.Snapshot()
	require.Len(t, ops, 1)
	assert.Equal(t, 1, ops[0].Attempts)

	report, err = h.engine.TriggerSync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Dropped)
	assert.Zero(t, h.queue.Len())

	assert.Equal(t, int64(1), h.engine.GetSyncStatus(ctx).Metrics.Failures)
	assert.True(t, h.cached(t, "settings", "k").ModifiedLocally, "the local value stays as written")
}

func TestTriggerSync_FailureBlocksLaterChangesOfKey(t *testing.T) {
	h := newHarness(t, map[string]models.DataTypePolicy{
		"settings": pol(models.OfflineFirst, models.Medium, models.ClientWins),
	}, harnessOptions{online: false})
	ctx := context.Background()

	_, err := h.data.SetData(ctx, "k", "settings", raw(`1`), models.SetOptions{})
	require.NoError(t, err)
	_, err = h.data.SetData(ctx, "k", "settings", raw(`2`), models.SetOptions{})
	require.NoError(t, err)
	h.network.SetOnline(true)

	h.remote.EXPECT().Send(gomock.Any(), gomock.Any()).Return(models.Failed(adapter.ErrTransient)).Times(1)

	report, err := h.engine.TriggerSync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Processed)
	assert.Equal(t, 2, h.queue.Len())
}

func TestTriggerSync_SkippedWhileRunning(t *testing.T) {
	h := newHarness(t, map[string]models.DataTypePolicy{
		"settings": pol(models.OfflineFirst, models.Medium, models.ClientWins),
	}, harnessOptions{online: false})
	ctx := context.Background()

	_, err := h.data.SetData(ctx, "k", "settings", raw(`1`), models.SetOptions{})
	require.NoError(t, err)
	h.network.SetOnline(true)

	entered := make(chan struct{})
	release := make(chan struct{})
	h.remote.EXPECT().Send(gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, models.SyncOperation) models.SendResult {
			close(entered)
			<-release
			return models.Succeeded(nil)
		})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = h.engine.TriggerSync(ctx)
	}()

	<-entered
	assert.True(t, h.engine.GetSyncStatus(ctx).SyncInProgress)

	report, err := h.engine.TriggerSync(ctx)
	require.NoError(t, err)
	assert.True(t, report.Skipped)

	close(release)
	wg.Wait()
	assert.False(t, h.engine.GetSyncStatus(ctx).SyncInProgress)
	assert.Zero(t, h.queue.Len())
}

func TestTriggerSync_DeleteConflictRestoresServerCopy(t *testing.T) {
	h := newHarness(t, map[string]models.DataTypePolicy{
		"profile": pol(models.OfflineFirst, models.High, models.ClientWins),
	}, harnessOptions{online: false})
	ctx := context.Background()
	h.seed(t, "profile", "u1", `{"v":1}`)

	_, err := h.data.DeleteData(ctx, "u1", "profile", models.DeleteOptions{})
	require.NoError(t, err)
	h.network.SetOnline(true)

	h.remote.EXPECT().Send(gomock.Any(), gomock.Any()).Return(models.Conflicted(raw(`{"v":9}`)))

	report, err := h.engine.TriggerSync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Conflicts)
	assert.Zero(t, h.queue.Len())

	entry := h.cached(t, "profile", "u1")
	assert.JSONEq(t, `{"v":9}`, string(entry.Payload))
	assert.False(t, entry.ModifiedLocally)
	assert.Empty(t, h.engine.GetConflicts(ctx))
}

func TestTriggerSync_ServerWinsConflict(t *testing.T) {
	h := newHarness(t, map[string]models.DataTypePolicy{
		"dashboard": pol(models.OfflineFirst, models.Medium, models.ServerWins),
	}, harnessOptions{online: false})
	ctx := context.Background()

	_, err := h.data.SetData(ctx, "main", "dashboard", raw(`{"w":1}`), models.SetOptions{})
	require.NoError(t, err)
	h.network.SetOnline(true)

	h.remote.EXPECT().Send(gomock.Any(), gomock.Any()).Return(models.Conflicted(raw(`{"w":2}`)))

	_, err = h.engine.TriggerSync(ctx)
	require.NoError(t, err)

	entry := h.cached(t, "dashboard", "main")
	assert.JSONEq(t, `{"w":2}`, string(entry.Payload))
	assert.False(t, entry.ModifiedLocally)
	assert.Zero(t, h.queue.Len(), "the server copy needs no upload")
}

func TestTriggerSync_ConflictWithoutServerCopyIsRetried(t *testing.T) {
	replies := map[string]models.SendResult{
		"empty body":    models.Conflicted(nil),
		"null body":     models.Conflicted(raw(`null`)),
		"non-JSON body": models.Conflicted(raw(`<html>conflict</html>`)),
	}

	for name, reply := range replies {
		t.Run(name, func(t *testing.T) {
			h := newHarness(t, map[string]models.DataTypePolicy{
				"dashboard": pol(models.OfflineFirst, models.Medium, models.ServerWins),
			}, harnessOptions{online: false})
			ctx := context.Background()

			_, err := h.data.SetData(ctx, "main", "dashboard", raw(`{"w":1}`), models.SetOptions{})
			require.NoError(t, err)
			h.network.SetOnline(true)

			h.remote.EXPECT().Send(gomock.Any(), gomock.Any()).Return(reply)

			report, err := h.engine.TriggerSync(ctx)
			require.NoError(t, err)
			assert.Equal(t, 1, report.Failed)
			assert.Zero(t, report.Conflicts)

			// локальное значение не теряется и остаётся в очереди
			entry := h.cached(t, "dashboard", "main")
			assert.JSONEq(t, `{"w":1}`, string(entry.Payload))
			assert.True(t, entry.ModifiedLocally)

			ops := h.queue.Snapshot()
			require.Len(t, ops, 1)
			assert.Equal(t, 1, ops[0].Attempts)
			assert.Empty(t, h.engine.GetConflicts(ctx))
		})
	}
}

func TestResolveConflict_QueueFullKeepsConflictPending(t *testing.T) {
	h := newHarness(t, map[string]models.DataTypePolicy{
		"notes": pol(models.OfflineFirst, models.Medium, models.Unconfigured),
	}, harnessOptions{online: false, maxQueueSize: 1})
	ctx := context.Background()

	_, err := h.data.SetData(ctx, "n1", "notes", raw(`{"text":"mine"}`), models.SetOptions{})
	require.NoError(t, err)
	h.network.SetOnline(true)

	h.remote.EXPECT().Send(gomock.Any(), gomock.Any()).Return(models.Conflicted(raw(`{"text":"theirs"}`)))
	_, err = h.engine.TriggerSync(ctx)
	require.NoError(t, err)
	id := h.engine.GetConflicts(ctx)[0].ID

	// очередь снова заполнена операцией того же приоритета
	h.network.SetOnline(false)
	_, err = h.data.SetData(ctx, "n2", "notes", raw(`{"text":"other"}`), models.SetOptions{})
	require.NoError(t, err)

	err = h.engine.ResolveConflict(ctx, id, raw(`{"text":"both"}`))
	require.ErrorIs(t, err, queue.ErrQueueFull)

	assert.Equal(t, 1, h.engine.GetSyncStatus(ctx).ConflictsCount, "the conflict can be resolved again")
	entry := h.cached(t, "notes", "n1")
	assert.JSONEq(t, `{"text":"mine"}`, string(entry.Payload))
	assert.True(t, entry.ModifiedLocally)

	h.network.SetOnline(true)
	h.remote.EXPECT().Send(gomock.Any(), gomock.Any()).Return(models.Succeeded(nil))
	_, err = h.engine.TriggerSync(ctx)
	require.NoError(t, err)
	require.Zero(t, h.queue.Len())

	require.NoError(t, h.engine.ResolveConflict(ctx, id, raw(`{"text":"both"}`)))
	ops := h.queue.Snapshot()
	require.Len(t, ops, 1)
	assert.JSONEq(t, `{"text":"both"}`, string(ops[0].Payload))
	assert.JSONEq(t, `{"text":"both"}`, string(h.cached(t, "notes", "n1").Payload))
}

func TestResolveConflict_ManualResolutionIsQueued(t *testing.T) {
	h := newHarness(t, map[string]models.DataTypePolicy{
		"notes": pol(models.OfflineFirst, models.Medium, models.Unconfigured),
	}, harnessOptions{online: false})
	ctx := context.Background()

	_, err := h.data.SetData(ctx, "n1", "notes", raw(`{"text":"mine"}`), models.SetOptions{})
	require.NoError(t, err)
	h.network.SetOnline(true)

	h.remote.EXPECT().Send(gomock.Any(), gomock.Any()).Return(models.Conflicted(raw(`{"text":"theirs"}`)))

	_, err = h.engine.TriggerSync(ctx)
	require.NoError(t, err)

	status := h.engine.GetSyncStatus(ctx)
	assert.Equal(t, 1, status.ConflictsCount)
	assert.Zero(t, status.QueueSize)
	assert.True(t, h.cached(t, "notes", "n1").ModifiedLocally, "an unresolved conflict keeps the local value")

	conflicts := h.engine.GetConflicts(ctx)
	require.Len(t, conflicts, 1)
	id := conflicts[0].ID

	require.NoError(t, h.engine.ResolveConflict(ctx, id, raw(`{"text":"both"}`)))

	entry := h.cached(t, "notes", "n1")
	assert.JSONEq(t, `{"text":"both"}`, string(entry.Payload))
	assert.False(t, entry.ModifiedLocally)

	ops := h.queue.Snapshot()
	require.Len(t, ops, 1)
	assert.True(t, ops[0].Overwrite)
	assert.JSONEq(t, `{"text":"both"}`, string(ops[0].Payload))
	assert.Zero(t, h.engine.GetSyncStatus(ctx).ConflictsCount)

	err = h.engine.ResolveConflict(ctx, id, raw(`{}`))
	assert.ErrorIs(t, err, conflict.ErrAlreadyResolved)

	err = h.engine.ResolveConflict(ctx, "missing", raw(`{}`))
	assert.ErrorIs(t, err, conflict.ErrConflictNotFound)
}

func TestResolveConflict_AcceptingServerNeedsNoUpload(t *testing.T) {
	h := newHarness(t, map[string]models.DataTypePolicy{
		"notes": pol(models.OfflineFirst, models.Medium, models.Unconfigured),
	}, harnessOptions{online: false})
	ctx := context.Background()

	_, err := h.data.SetData(ctx, "n1", "notes", raw(`{"text":"mine"}`), models.SetOptions{})
	require.NoError(t, err)
	h.network.SetOnline(true)

	h.remote.EXPECT().Send(gomock.Any(), gomock.Any()).Return(models.Conflicted(raw(`{"text":"theirs"}`)))
	_, err = h.engine.TriggerSync(ctx)
	require.NoError(t, err)

	id := h.engine.GetConflicts(ctx)[0].ID
	require.NoError(t, h.engine.ResolveConflict(ctx, id, raw(`{ "text": "theirs" }`)))
	assert.Zero(t, h.queue.Len())
}

func TestRestore_ReloadsState(t *testing.T) {
	policies := map[string]models.DataTypePolicy{
		"settings": pol(models.OfflineFirst, models.Medium, models.ClientWins),
		"notes":    pol(models.OfflineFirst, models.Medium, models.Unconfigured),
	}
	h := newHarness(t, policies, harnessOptions{online: false})
	ctx := context.Background()

	_, err := h.data.SetData(ctx, "k", "settings", raw(`1`), models.SetOptions{})
	require.NoError(t, err)
	_, err = h.data.SetData(ctx, "n1", "notes", raw(`"mine"`), models.SetOptions{})
	require.NoError(t, err)

	h.network.SetOnline(true)
	h.remote.EXPECT().Send(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, op models.SyncOperation) models.SendResult {
			if op.DataType == "notes" {
				return models.Conflicted(raw(`"theirs"`))
			}
			return models.Failed(adapter.ErrTransient)
		}).Times(2)

	_, err = h.engine.TriggerSync(ctx)
	require.NoError(t, err)
	before := h.engine.GetSyncStatus(ctx)

	// перезапуск поверх того же хранилища
	h.build(t, harnessOptions{})
	require.NoError(t, h.engine.Restore(ctx))

	after := h.engine.GetSyncStatus(ctx)
	assert.Equal(t, before.QueueSize, after.QueueSize)
	assert.Equal(t, 1, after.QueueSize)
	assert.Equal(t, 1, after.ConflictsCount)
	assert.Equal(t, before.Metrics.Conflicts, after.Metrics.Conflicts)
	assert.Equal(t, before.Metrics.Cycles, after.Metrics.Cycles)
	assert.Equal(t, 1, h.queue.Snapshot()[0].Attempts)
}

func TestNextBatch_OnePerKey(t *testing.T) {
	ops := []models.SyncOperation{
		{ID: "1", DataType: "t", Key: "a"},
		{ID: "2", DataType: "t", Key: "a"},
		{ID: "3", DataType: "t", Key: "b"},
		{ID: "4", DataType: "u", Key: "a"},
		{ID: "5", DataType: "t", Key: "c"},
	}

	batch, rest := nextBatch(ops, 3)

	var got, left []string
	for _, op := range batch {
		got = append(got, op.ID)
	}
	for _, op := range rest {
		left = append(left, op.ID)
	}
	assert.Equal(t, []string{"1", "3", "4"}, got)
	assert.Equal(t, []string{"2", "5"}, left)
}
