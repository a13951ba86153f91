// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/MKhiriev/go-offline-keeper/internal/adapter"
	"github.com/MKhiriev/go-offline-keeper/internal/conflict"
	"github.com/MKhiriev/go-offline-keeper/internal/logger"
	"github.com/MKhiriev/go-offline-keeper/internal/metrics"
	"github.com/MKhiriev/go-offline-keeper/internal/policy"
	"github.com/MKhiriev/go-offline-keeper/internal/queue"
	"github.com/MKhiriev/go-offline-keeper/internal/store"
	"github.com/MKhiriev/go-offline-keeper/internal/utils"
	"github.com/MKhiriev/go-offline-keeper/models"
)

// MetricsStorageKey is where the sync counters are persisted.
const MetricsStorageKey = "sync_metrics"

// DefaultMaxAttempts is used when neither the policy nor the engine
// configuration sets a retry limit.
const DefaultMaxAttempts = 3

// Components are the shared pieces the engine is built from.
type Components struct {
	KV        store.KVStorage
	Cache     *store.CacheStore
	Queue     *queue.Queue
	Conflicts *conflict.Registry
	Policies  *policy.Table
	Remote    adapter.RemoteAuthority
	Network   NetworkMonitor
	Clock     utils.Clock
	IDs       utils.IDGenerator
}

// syncEngine owns the outcome handling shared by reads, writes and sync
// cycles. Every change to the cache, the queue or the conflict registry
// that depends on their current state happens under applyMu.
type syncEngine struct {
	Components

	maxAttempts int

	applyMu sync.Mutex
	running atomic.Bool

	metricsMu sync.Mutex
	counters  models.SyncMetrics

	// bg tracks syncs triggered in the background.
	bg sync.WaitGroup

	logger *logger.Logger
}

func newSyncEngine(c Components, maxAttempts int, log *logger.Logger) *syncEngine {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &syncEngine{
		Components:  c,
		maxAttempts: maxAttempts,
		logger:      log,
	}
}

// Restore loads the persisted queue, conflicts and counters.
func (e *syncEngine) Restore(ctx context.Context) error {
	if err := e.Queue.Load(ctx); err != nil {
		return err
	}
	if err := e.Conflicts.Load(ctx); err != nil {
		return err
	}

	raw, err := e.KV.Get(ctx, MetricsStorageKey)
	switch {
	case errors.Is(err, store.ErrKeyNotFound):
	case err != nil:
		return fmt.Errorf("load sync metrics: %w", err)
	default:
		var counters models.SyncMetrics
		if err = json.Unmarshal(raw, &counters); err != nil {
			return fmt.Errorf("decode sync metrics: %w", err)
		}
		e.metricsMu.Lock()
		e.counters = counters
		e.metricsMu.Unlock()
	}

	e.publishGauges()
	return nil
}

// TriggerSync implements [SyncService].
func (e *syncEngine) TriggerSync(ctx context.Context, dataTypes ...string) (models.CycleReport, error) {
	for _, dataType := range dataTypes {
		if _, err := e.Policies.Lookup(dataType); err != nil {
			return models.CycleReport{}, err
		}
	}

	if !e.running.CompareAndSwap(false, true) {
		metrics.RecordCycleSkipped()
		return models.CycleReport{Skipped: true}, nil
	}
	defer e.running.Store(false)

	return e.runCycle(ctx, dataTypes), nil
}

func (e *syncEngine) runCycle(ctx context.Context, dataTypes []string) models.CycleReport {
	started := time.Now()
	var report models.CycleReport

	if !e.Network.State().Online {
		e.logger.Debug().Str("func", "syncEngine.runCycle").Msg("offline, nothing sent")
		return report
	}

	// a key whose operation failed is not sent again in this cycle so later
	// changes never overtake it
	blocked := make(map[string]struct{})

	pending := e.Queue.Peek(0, dataTypeFilter(dataTypes))
	for len(pending) > 0 && ctx.Err() == nil {
		params := e.Network.Params()
		if params.BatchSize <= 0 {
			break
		}

		var batch []models.SyncOperation
		batch, pending = nextBatch(e.stillQueued(pending, blocked), params.BatchSize)
		if len(batch) == 0 {
			break
		}

		results := e.dispatch(ctx, batch, params.Timeout)
		for i, op := range batch {
			_ = e.applyOutcome(ctx, op, results[i], true, &report)
			if results[i].Outcome == models.OutcomeFailure {
				blocked[store.CacheKey(op.DataType, op.Key)] = struct{}{}
			}
		}
	}

	report.Duration = time.Since(started)
	e.finishCycle(ctx, report)

	e.logger.Info().
		Str("func", "syncEngine.runCycle").
		Int("processed", report.Processed).
		Int("succeeded", report.Succeeded).
		Int("conflicts", report.Conflicts).
		Int("failed", report.Failed).
		Int("dropped", report.Dropped).
		Dur("duration", report.Duration).
		Msg("sync cycle finished")

	return report
}

// nextBatch takes up to size operations from ordered, at most one per key,
// and returns them with the remaining operations in order.
func nextBatch(ordered []models.SyncOperation, size int) (batch, rest []models.SyncOperation) {
	seen := make(map[string]struct{}, size)
	for _, op := range ordered {
		k := store.CacheKey(op.DataType, op.Key)
		if _, dup := seen[k]; dup || len(batch) == size {
			rest = append(rest, op)
			continue
		}
		seen[k] = struct{}{}
		batch = append(batch, op)
	}
	return batch, rest
}

// stillQueued drops operations removed since the cycle started or whose
// key is blocked, and refreshes the rest.
func (e *syncEngine) stillQueued(ops []models.SyncOperation, blocked map[string]struct{}) []models.SyncOperation {
	out := ops[:0]
	for _, op := range ops {
		if _, skip := blocked[store.CacheKey(op.DataType, op.Key)]; skip {
			continue
		}
		if current, ok := e.Queue.Get(op.ID); ok {
			out = append(out, current)
		}
	}
	return out
}

// dispatch sends every operation of batch concurrently. Calls are not
// cancelled with ctx; each is bounded by timeout instead.
func (e *syncEngine) dispatch(ctx context.Context, batch []models.SyncOperation, timeout time.Duration) []models.SendResult {
	results := make([]models.SendResult, len(batch))

	var g errgroup.Group
	for i, op := range batch {
		g.Go(func() error {
			results[i] = e.send(ctx, op, timeout)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (e *syncEngine) send(ctx context.Context, op models.SyncOperation, timeout time.Duration) models.SendResult {
	callCtx := context.WithoutCancel(ctx)
	if timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(callCtx, timeout)
		defer cancel()
	}

	res := e.Remote.Send(callCtx, op)
	switch res.Outcome {
	case models.OutcomeSuccess:
		return res
	case models.OutcomeConflict:
		if op.Kind != models.OperationDelete && !hasServerCopy(res.ServerData) {
			return models.Failed(fmt.Errorf("%w: conflict without server data for %s/%s", adapter.ErrTransient, op.DataType, op.Key))
		}
		return res
	case models.OutcomeFailure:
		if res.Err == nil {
			res.Err = adapter.ErrTransient
		}
		return res
	default:
		return models.Failed(fmt.Errorf("%w: unknown outcome %d", adapter.ErrTransient, int(res.Outcome)))
	}
}

// applyOutcome folds the result of sending op back into the shared state.
// queued tells whether op is in the queue; a failed op that is not is
// queued, and the queueing error is returned.
func (e *syncEngine) applyOutcome(ctx context.Context, op models.SyncOperation, res models.SendResult, queued bool, report *models.CycleReport) error {
	e.applyMu.Lock()
	defer e.applyMu.Unlock()
	defer e.publishGauges()

	report.Processed++
	metrics.RecordOutcome(op.DataType, res.Outcome)

	log := e.logger.With().
		Str("operation_id", op.ID).
		Str("data_type", op.DataType).
		Str("key", op.Key).
		Str("kind", op.Kind.String()).
		Logger()

	switch res.Outcome {
	case models.OutcomeSuccess:
		report.Succeeded++
		if queued {
			e.Queue.Remove(ctx, op.ID)
		}
		e.absorbSuccess(ctx, op, res.Data)
		e.count(func(m *models.SyncMetrics) { m.Successes++ })
		log.Debug().Str("func", "syncEngine.applyOutcome").Msg("operation synced")

	case models.OutcomeConflict:
		report.Conflicts++
		if queued {
			e.Queue.Remove(ctx, op.ID)
		}
		e.count(func(m *models.SyncMetrics) { m.Conflicts++ })
		log.Info().Str("func", "syncEngine.applyOutcome").Msg("remote reported conflict")
		if err := e.absorbConflict(ctx, op, res.ServerData); err != nil {
			return err
		}

	default:
		report.Failed++
		if !queued {
			log.Warn().Err(res.Err).Str("func", "syncEngine.applyOutcome").Msg("immediate send failed, queueing")
			return e.enqueueLocked(ctx, op)
		}

		updated, dropped, found := e.Queue.RecordFailure(ctx, op.ID)
		if !found {
			return nil
		}
		if dropped {
			report.Dropped++
			e.count(func(m *models.SyncMetrics) { m.Failures++ })
			metrics.RecordDropped(op.DataType, metrics.ReasonExhausted)
			log.Error().Err(res.Err).
				Str("func", "syncEngine.applyOutcome").
				Int("attempts", updated.Attempts).
				Msg("operation dropped after exhausting attempts")
			return nil
		}
		log.Warn().Err(res.Err).
			Str("func", "syncEngine.applyOutcome").
			Int("attempts", updated.Attempts).
			Int("max_attempts", updated.MaxAttempts).
			Msg("send failed, will retry")
	}

	return nil
}

// absorbSuccess updates the cache after the remote accepted op; applyMu
// must be held. A newer queued change for the same key keeps the local
// entry untouched.
func (e *syncEngine) absorbSuccess(ctx context.Context, op models.SyncOperation, canonical json.RawMessage) {
	if op.Kind == models.OperationDelete {
		return
	}
	if e.Queue.HasPending(op.DataType, op.Key, op.ID) {
		return
	}

	entry, ok := e.Cache.Get(ctx, op.DataType, op.Key)
	if !ok && len(canonical) == 0 {
		return
	}

	payload := entry.Payload
	if len(canonical) > 0 {
		payload = canonical
	} else if !ok {
		payload = op.Payload
	}

	_, _ = e.Cache.Set(ctx, models.CacheEntry{
		Key:            op.Key,
		DataType:       op.DataType,
		Payload:        payload,
		LocalTimestamp: entry.LocalTimestamp,
	})
}

// absorbConflict registers a conflict for a rejected op; applyMu must be
// held.
func (e *syncEngine) absorbConflict(ctx context.Context, op models.SyncOperation, serverData json.RawMessage) error {
	if op.Kind == models.OperationDelete {
		// nothing local is left to conflict with
		if len(serverData) > 0 && !e.Queue.HasPending(op.DataType, op.Key, op.ID) {
			_, _ = e.Cache.Set(ctx, models.CacheEntry{
				Key:      op.Key,
				DataType: op.DataType,
				Payload:  serverData,
			})
		}
		metrics.RecordConflict(op.DataType, models.ServerWins, true)
		return nil
	}

	local := models.ConflictSide{Payload: op.Payload, Timestamp: op.EnqueuedAt}
	if entry, ok := e.Cache.Get(ctx, op.DataType, op.Key); ok && entry.ModifiedLocally {
		local = models.ConflictSide{Payload: entry.Payload, Timestamp: entry.LocalTimestamp}
	}

	_, err := e.registerConflict(ctx, op.DataType, op.Key, local, serverData)
	return err
}

// registerConflict records a divergence for key, drops the queued
// operations it supersedes and applies an automatic resolution; applyMu
// must be held. A key with a pending conflict keeps that conflict, updated
// with the latest sides.
func (e *syncEngine) registerConflict(ctx context.Context, dataType, key string, local models.ConflictSide, serverData json.RawMessage) (models.Conflict, error) {
	for _, stale := range e.Queue.Peek(0, keyFilter(dataType, key)) {
		e.Queue.Remove(ctx, stale.ID)
	}

	// local must stay marked as modified until the conflict is settled
	_, _ = e.Cache.Set(ctx, models.CacheEntry{
		Key:             key,
		DataType:        dataType,
		Payload:         local.Payload,
		ModifiedLocally: true,
		LocalTimestamp:  local.Timestamp,
	})

	server := models.ConflictSide{Payload: serverData}
	if pending, ok := e.Conflicts.PendingFor(dataType, key); ok {
		c, err := e.Conflicts.Refresh(ctx, pending.ID, local, server)
		if err != nil {
			return models.Conflict{}, err
		}
		e.logger.Debug().
			Str("func", "syncEngine.registerConflict").
			Str("conflict_id", c.ID).
			Msg("pending conflict updated")
		return c, nil
	}

	strategy := models.Unconfigured
	if pol, err := e.Policies.Lookup(dataType); err == nil {
		strategy = pol.ConflictResolution
	}

	c := e.Conflicts.Register(ctx, key, dataType, local, server, strategy)
	metrics.RecordConflict(dataType, strategy, c.Resolved)

	return c, e.applyResolution(ctx, c)
}

// applyResolution queues a settled conflict when it differs from the server
// copy and writes it back to the cache; applyMu must be held. The cache is
// left untouched when the resolution cannot be queued.
func (e *syncEngine) applyResolution(ctx context.Context, c models.Conflict) error {
	if !c.Resolved || c.Resolution == nil {
		return nil
	}

	payload := c.Resolution.Payload
	if !utils.SamePayload(payload, c.Server.Payload) {
		op := e.newOperation(c.DataType, c.Key, models.OperationUpdate, payload)
		op.Overwrite = true
		if err := e.enqueueLocked(ctx, op); err != nil {
			return fmt.Errorf("queue resolution of conflict %s: %w", c.ID, err)
		}

		e.logger.Info().
			Str("func", "syncEngine.applyResolution").
			Str("conflict_id", c.ID).
			Str("operation_id", op.ID).
			Msg("queued resolution for the remote authority")
	}

	if len(payload) == 0 || string(payload) == "null" {
		_ = e.Cache.Remove(ctx, c.DataType, c.Key)
	} else {
		_, _ = e.Cache.Set(ctx, models.CacheEntry{
			Key:            c.Key,
			DataType:       c.DataType,
			Payload:        payload,
			LocalTimestamp: e.Clock.Now(),
		})
	}
	return nil
}

// ResolveConflict implements [SyncService].
func (e *syncEngine) ResolveConflict(ctx context.Context, id string, payload json.RawMessage) error {
	e.applyMu.Lock()
	defer e.applyMu.Unlock()
	defer e.publishGauges()

	c, err := e.Conflicts.Resolve(ctx, id, payload)
	if err != nil {
		return err
	}
	if err = e.applyResolution(ctx, c); err != nil {
		e.Conflicts.Reopen(ctx, id)
		return err
	}
	return nil
}

// GetConflicts implements [SyncService].
func (e *syncEngine) GetConflicts(ctx context.Context) []models.Conflict {
	return e.Conflicts.List()
}

// GetSyncStatus implements [SyncService].
func (e *syncEngine) GetSyncStatus(ctx context.Context) models.SyncStatus {
	return models.SyncStatus{
		QueueSize:      e.Queue.Len(),
		ConflictsCount: e.Conflicts.Pending(),
		NetworkState:   e.Network.State(),
		Metrics:        e.snapshot(),
		SyncInProgress: e.running.Load(),
	}
}

// triggerInBackground starts a cycle without waiting for it.
func (e *syncEngine) triggerInBackground(ctx context.Context, dataTypes ...string) {
	e.bg.Add(1)
	go func() {
		defer e.bg.Done()
		if _, err := e.TriggerSync(context.WithoutCancel(ctx), dataTypes...); err != nil {
			e.logger.Err(err).Str("func", "syncEngine.triggerInBackground").Msg("background sync failed")
		}
	}()
}

func (e *syncEngine) newOperation(dataType, key string, kind models.OperationKind, payload json.RawMessage) models.SyncOperation {
	op := models.SyncOperation{
		ID:          e.IDs.Generate(),
		Key:         key,
		DataType:    dataType,
		Kind:        kind,
		Payload:     payload,
		Priority:    models.Medium,
		EnqueuedAt:  e.Clock.Now(),
		MaxAttempts: e.maxAttempts,
	}
	if pol, err := e.Policies.Lookup(dataType); err == nil {
		op.Priority = pol.Priority
		if pol.MaxAttempts > 0 {
			op.MaxAttempts = pol.MaxAttempts
		}
	}
	return op
}

// enqueueLocked queues op and accounts for an evicted operation; applyMu
// must be held.
func (e *syncEngine) enqueueLocked(ctx context.Context, op models.SyncOperation) error {
	evicted, err := e.Queue.Enqueue(ctx, op)
	if err != nil {
		e.logger.Err(err).
			Str("func", "syncEngine.enqueueLocked").
			Str("operation_id", op.ID).
			Str("data_type", op.DataType).
			Msg("operation not queued")
		return err
	}

	if evicted != nil {
		e.count(func(m *models.SyncMetrics) {
			m.Failures++
			m.Evicted++
		})
		metrics.RecordDropped(evicted.DataType, metrics.ReasonEvicted)
		e.logger.Warn().
			Str("func", "syncEngine.enqueueLocked").
			Str("evicted_id", evicted.ID).
			Str("evicted_priority", evicted.Priority.String()).
			Msg("queue full, evicted lower priority operation")
	}
	return nil
}

func (e *syncEngine) count(update func(m *models.SyncMetrics)) {
	e.metricsMu.Lock()
	defer e.metricsMu.Unlock()
	update(&e.counters)
}

func (e *syncEngine) snapshot() models.SyncMetrics {
	e.metricsMu.Lock()
	defer e.metricsMu.Unlock()
	return e.counters
}

func (e *syncEngine) finishCycle(ctx context.Context, report models.CycleReport) {
	e.count(func(m *models.SyncMetrics) {
		m.Cycles++
		m.LastSyncAt = e.Clock.Now()
		m.LastSyncDuration = report.Duration
	})
	metrics.RecordCycle(report.Duration)
	e.persistMetrics(ctx)
}

// persistMetrics writes the counters; failures are logged only.
func (e *syncEngine) persistMetrics(ctx context.Context) {
	raw, err := json.Marshal(e.snapshot())
	if err == nil {
		err = e.KV.Set(ctx, MetricsStorageKey, raw)
	}
	if err != nil {
		e.logger.Err(err).Str("func", "syncEngine.persistMetrics").Msg("failed to persist sync metrics")
	}
}

func (e *syncEngine) publishGauges() {
	metrics.SetQueueSize(e.Queue.Len())
	metrics.SetConflictsPending(e.Conflicts.Pending())
	metrics.SetNetworkState(e.Network.State())
}

func dataTypeFilter(dataTypes []string) func(models.SyncOperation) bool {
	if len(dataTypes) == 0 {
		return nil
	}
	wanted := make(map[string]struct{}, len(dataTypes))
	for _, dataType := range dataTypes {
		wanted[dataType] = struct{}{}
	}
	return func(op models.SyncOperation) bool {
		_, ok := wanted[op.DataType]
		return ok
	}
}

func keyFilter(dataType, key string) func(models.SyncOperation) bool {
	return func(op models.SyncOperation) bool {
		return op.DataType == dataType && op.Key == key
	}
}

// hasServerCopy reports whether a conflict reply carries a usable server
// payload.
func hasServerCopy(data json.RawMessage) bool {
	return len(data) > 0 && string(data) != "null" && json.Valid(data)
}
