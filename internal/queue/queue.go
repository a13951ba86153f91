// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package queue implements the durable, priority-ordered sync queue.
//
// Operations are ordered by priority rank (critical first), then by
// enqueue time, then by insertion order. The whole queue is written to the
// key/value storage after every mutation; write failures are logged and do
// not block in-memory progress.
package queue

import (
	"container/heap"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/MKhiriev/go-offline-keeper/internal/logger"
	"github.com/MKhiriev/go-offline-keeper/internal/store"
	"github.com/MKhiriev/go-offline-keeper/internal/validators"
	"github.com/MKhiriev/go-offline-keeper/models"
)

// StorageKey is where the queue is persisted.
const StorageKey = "sync_queue"

// Queue is safe for concurrent use.
type Queue struct {
	kv        store.KVStorage
	maxSize   int
	validator validators.Validator
	logger    *logger.Logger

	mu    sync.Mutex
	items opHeap
	byID  map[string]*item
	seq   uint64
}

// New returns an empty queue persisted to kv. maxSize <= 0 means unbounded.
func New(kv store.KVStorage, maxSize int, log *logger.Logger) *Queue {
	return &Queue{
		kv:        kv,
		maxSize:   maxSize,
		validator: validators.NewDataValidator(),
		logger:    log,
		byID:      make(map[string]*item),
	}
}

// Load replaces the in-memory queue with the persisted one.
func (q *Queue) Load(ctx context.Context) error {
	raw, err := q.kv.Get(ctx, StorageKey)
	if errors.Is(err, store.ErrKeyNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load sync queue: %w", err)
	}

	var ops []models.SyncOperation
	if err = json.Unmarshal(raw, &ops); err != nil {
		return fmt.Errorf("decode sync queue: %w", err)
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	q.items = q.items[:0]
	clear(q.byID)
	for _, op := range ops {
		if op.ID == "" || q.byID[op.ID] != nil {
			continue
		}
		q.push(op)
	}

	return nil
}

// Enqueue adds op. When the queue is full, the oldest operation of the
// lowest priority class strictly below op's is evicted and returned;
// without such an operation Enqueue fails with ErrQueueFull.
func (q *Queue) Enqueue(ctx context.Context, op models.SyncOperation) (*models.SyncOperation, error) {
	if !op.Priority.Valid() {
		return nil, fmt.Errorf("%w: id=%q priority=%d", ErrInvalidOperation, op.ID, int(op.Priority))
	}
	err := q.validator.Validate(ctx, op,
		validators.FieldOperationID, validators.FieldKey, validators.FieldDataType, validators.FieldKind)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidOperation, err)
	}
	if op.MaxAttempts > 0 && op.Attempts > op.MaxAttempts {
		op.Attempts = op.MaxAttempts
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.byID[op.ID] != nil {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateOperation, op.ID)
	}

	var evicted *models.SyncOperation
	if q.maxSize > 0 && len(q.items) >= q.maxSize {
		victim := q.evictionCandidate(op.Priority)
		if victim == nil {
			return nil, ErrQueueFull
		}
		heap.Remove(&q.items, victim.index)
		delete(q.byID, victim.op.ID)
		evictedOp := victim.op
		evicted = &evictedOp
	}

	q.push(op)
	q.persist(ctx)

	return evicted, nil
}

// Peek returns up to n operations in queue order without removing them.
// n <= 0 returns all. A nil filter accepts every operation.
func (q *Queue) Peek(n int, filter func(models.SyncOperation) bool) []models.SyncOperation {
	q.mu.Lock()
	defer q.mu.Unlock()

	ordered := q.ordered()
	out := make([]models.SyncOperation, 0, len(ordered))
	for _, it := range ordered {
		if filter != nil && !filter(it.op) {
			continue
		}
		out = append(out, it.op)
		if n > 0 && len(out) == n {
			break
		}
	}

	return out
}

// Get returns the queued operation with id.
func (q *Queue) Get(id string) (models.SyncOperation, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	it, ok := q.byID[id]
	if !ok {
		return models.SyncOperation{}, false
	}
	return it.op, true
}

// Remove deletes the operation with id and returns it.
func (q *Queue) Remove(ctx context.Context, id string) (models.SyncOperation, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	it, ok := q.byID[id]
	if !ok {
		return models.SyncOperation{}, false
	}
	heap.Remove(&q.items, it.index)
	delete(q.byID, id)
	q.persist(ctx)

	return it.op, true
}

// RecordFailure counts a failed attempt of the operation with id. Once the
// operation has used all attempts it is removed and dropped is true.
func (q *Queue) RecordFailure(ctx context.Context, id string) (op models.SyncOperation, dropped bool, found bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	it, ok := q.byID[id]
	if !ok {
		return models.SyncOperation{}, false, false
	}

	if it.op.Attempts < it.op.MaxAttempts {
		it.op.Attempts++
	}
	if it.op.Exhausted() {
		heap.Remove(&q.items, it.index)
		delete(q.byID, id)
		dropped = true
	}
	q.persist(ctx)

	return it.op, dropped, true
}

// HasPending reports whether an operation for key of dataType other than
// exceptID is queued.
func (q *Queue) HasPending(dataType, key, exceptID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, it := range q.items {
		if it.op.ID != exceptID && it.op.DataType == dataType && it.op.Key == key {
			return true
		}
	}
	return false
}

// Len returns the number of queued operations.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.items)
}

// Snapshot returns every queued operation in queue order.
func (q *Queue) Snapshot() []models.SyncOperation {
	return q.Peek(0, nil)
}

func (q *Queue) push(op models.SyncOperation) {
	q.seq++
	it := &item{op: op, seq: q.seq}
	heap.Push(&q.items, it)
	q.byID[op.ID] = it
}

// ordered returns the items sorted in queue order; q.mu must be held.
func (q *Queue) ordered() []*item {
	ordered := slices.Clone([]*item(q.items))
	slices.SortFunc(ordered, compare)
	return ordered
}

// evictionCandidate returns the oldest item of the lowest priority class
// ranked strictly below incoming; q.mu must be held.
func (q *Queue) evictionCandidate(incoming models.Priority) *item {
	var victim *item
	for _, it := range q.items {
		if it.op.Priority.Rank() <= incoming.Rank() {
			continue
		}
		if victim == nil ||
			it.op.Priority.Rank() > victim.op.Priority.Rank() ||
			(it.op.Priority.Rank() == victim.op.Priority.Rank() && before(it, victim)) {
			victim = it
		}
	}
	return victim
}

// persist writes the queue in order; q.mu must be held.
func (q *Queue) persist(ctx context.Context) {
	ordered := q.ordered()
	ops := make([]models.SyncOperation, len(ordered))
	for i, it := range ordered {
		ops[i] = it.op
	}

	raw, err := json.Marshal(ops)
	if err == nil {
		err = q.kv.Set(ctx, StorageKey, raw)
	}
	if err != nil {
		q.logger.Err(err).
			Str("func", "Queue.persist").
			Int("queue_size", len(ops)).
			Msg("failed to persist sync queue, continuing in memory")
	}
}
