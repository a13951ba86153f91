// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/MKhiriev/go-offline-keeper/internal/logger"
	"github.com/MKhiriev/go-offline-keeper/internal/metrics"
	"github.com/MKhiriev/go-offline-keeper/internal/queue"
	"github.com/MKhiriev/go-offline-keeper/internal/store"
	"github.com/MKhiriev/go-offline-keeper/internal/utils"
	"github.com/MKhiriev/go-offline-keeper/internal/validators"
	"github.com/MKhiriev/go-offline-keeper/models"
)

// refreshAheadRatio is the share of the cache expiry after which a fresh
// OFFLINE_FIRST hit also refreshes in the background.
const refreshAheadRatio = 0.75

// defaultRefreshTimeout bounds background refreshes started while the
// monitor recommends no timeout.
const defaultRefreshTimeout = 30 * time.Second

type dataService struct {
	engine    *syncEngine
	validator validators.Validator

	// fetches de-duplicates concurrent fetches of the same key
	fetches singleflight.Group
	// refreshes tracks background refreshes
	refreshes sync.WaitGroup

	logger *logger.Logger
}

func newDataService(engine *syncEngine, log *logger.Logger) *dataService {
	return &dataService{
		engine:    engine,
		validator: validators.NewDataValidator(),
		logger:    log,
	}
}

// GetData implements [DataService].
func (s *dataService) GetData(ctx context.Context, key, dataType string, opts models.GetOptions) (json.RawMessage, error) {
	if err := s.validator.Validate(ctx, models.CacheEntry{Key: key}, validators.FieldKey); err != nil {
		return nil, err
	}
	pol, err := s.engine.Policies.Lookup(dataType)
	if err != nil {
		return nil, err
	}

	online := s.engine.Network.State().Online && !opts.CacheOnly
	now := s.engine.Clock.Now()

	switch pol.Strategy {
	case models.OfflineFirst:
		entry, cached := s.engine.Cache.Get(ctx, dataType, key)
		fresh := cached && !entry.Expired(now, pol.CacheExpiry)
		if fresh && !(opts.ForceNetwork && online) {
			if online && entry.Age(now) >= refreshAhead(pol.CacheExpiry) {
				s.refreshInBackground(ctx, dataType, key)
			}
			metrics.RecordRead(dataType, metrics.SourceCache)
			return entry.Payload, nil
		}
		if online {
			payload, err := s.fetch(ctx, dataType, key)
			if err == nil {
				metrics.RecordRead(dataType, metrics.SourceNetwork)
				return payload, nil
			}
			s.logFetchFailure(err, dataType, key, pol.Strategy)
		}
		if cached {
			metrics.RecordRead(dataType, metrics.SourceStale)
			return entry.Payload, nil
		}

	case models.OnlineFirst:
		if online {
			payload, err := s.fetch(ctx, dataType, key)
			if err == nil {
				metrics.RecordRead(dataType, metrics.SourceNetwork)
				return payload, nil
			}
			s.logFetchFailure(err, dataType, key, pol.Strategy)
		}
		if entry, ok := s.engine.Cache.Get(ctx, dataType, key); ok {
			metrics.RecordRead(dataType, metrics.SourceCache)
			return entry.Payload, nil
		}

	case models.CacheOnly:
		if entry, ok := s.engine.Cache.Get(ctx, dataType, key); ok {
			metrics.RecordRead(dataType, metrics.SourceCache)
			return entry.Payload, nil
		}

	case models.NetworkOnly:
		if !online {
			metrics.RecordRead(dataType, metrics.SourceMiss)
			return nil, fmt.Errorf("%w: %s/%s: offline", ErrDataUnavailable, dataType, key)
		}
		payload, err := s.engine.Remote.Fetch(ctx, dataType, key)
		if err != nil {
			metrics.RecordRead(dataType, metrics.SourceMiss)
			return nil, fmt.Errorf("%w: %s/%s: %w", ErrDataUnavailable, dataType, key, err)
		}
		metrics.RecordRead(dataType, metrics.SourceNetwork)
		return payload, nil

	case models.StaleWhileRevalidate:
		if entry, ok := s.engine.Cache.Get(ctx, dataType, key); ok {
			if online {
				s.refreshInBackground(ctx, dataType, key)
			}
			metrics.RecordRead(dataType, metrics.SourceCache)
			return entry.Payload, nil
		}
		if online {
			payload, err := s.fetch(ctx, dataType, key)
			if err == nil {
				metrics.RecordRead(dataType, metrics.SourceNetwork)
				return payload, nil
			}
			s.logFetchFailure(err, dataType, key, pol.Strategy)
		}

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownStrategy, pol.Strategy)
	}

	metrics.RecordRead(dataType, metrics.SourceMiss)
	return nil, fmt.Errorf("%w: %s/%s", ErrDataUnavailable, dataType, key)
}

// SetData implements [DataService].
func (s *dataService) SetData(ctx context.Context, key, dataType string, payload json.RawMessage, opts models.SetOptions) (models.Ack, error) {
	if err := s.validator.Validate(ctx, models.CacheEntry{Key: key}, validators.FieldKey); err != nil {
		return models.Ack{}, err
	}
	pol, err := s.engine.Policies.Lookup(dataType)
	if err != nil {
		return models.Ack{}, err
	}
	if err = s.validator.Validate(ctx, models.CacheEntry{Payload: payload}, validators.FieldPayload); err != nil {
		return models.Ack{}, err
	}

	ts := opts.Timestamp
	if ts.IsZero() {
		ts = s.engine.Clock.Now()
	}

	s.engine.applyMu.Lock()
	kind := models.OperationCreate
	if _, exists := s.engine.Cache.Get(ctx, dataType, key); exists {
		kind = models.OperationUpdate
	}
	// a local write failure leaves the queued operation as the only copy
	_, _ = s.engine.Cache.Set(ctx, models.CacheEntry{
		Key:             key,
		DataType:        dataType,
		Payload:         payload,
		ModifiedLocally: true,
		LocalTimestamp:  ts,
	})
	op := s.engine.newOperation(dataType, key, kind, payload)
	s.engine.applyMu.Unlock()

	return s.submit(ctx, op, pol, opts.Immediate)
}

// DeleteData implements [DataService].
func (s *dataService) DeleteData(ctx context.Context, key, dataType string, opts models.DeleteOptions) (models.Ack, error) {
	if err := s.validator.Validate(ctx, models.CacheEntry{Key: key}, validators.FieldKey); err != nil {
		return models.Ack{}, err
	}
	pol, err := s.engine.Policies.Lookup(dataType)
	if err != nil {
		return models.Ack{}, err
	}

	s.engine.applyMu.Lock()
	_ = s.engine.Cache.Remove(ctx, dataType, key)
	op := s.engine.newOperation(dataType, key, models.OperationDelete, nil)
	s.engine.applyMu.Unlock()

	return s.submit(ctx, op, pol, opts.Immediate)
}

// submit sends op right away when asked to or when the data type is
// critical, and queues it otherwise or when that attempt fails.
func (s *dataService) submit(ctx context.Context, op models.SyncOperation, pol models.DataTypePolicy, immediate bool) (models.Ack, error) {
	ack := models.Ack{OperationID: op.ID}
	online := s.engine.Network.State().Online

	// an earlier queued change for the key must reach the remote first
	direct := (immediate || op.Priority == models.Critical) && online &&
		!s.engine.Queue.HasPending(op.DataType, op.Key, "")

	if direct {
		var report models.CycleReport
		res := s.engine.send(ctx, op, s.engine.Network.Params().Timeout)
		if err := s.engine.applyOutcome(ctx, op, res, false, &report); err != nil {
			return ack, err
		}
		s.engine.persistMetrics(ctx)

		ack.Synced = res.Outcome == models.OutcomeSuccess
		ack.Queued = res.Outcome == models.OutcomeFailure
		return ack, nil
	}

	s.engine.applyMu.Lock()
	err := s.engine.enqueueLocked(ctx, op)
	s.engine.publishGauges()
	s.engine.applyMu.Unlock()
	if err != nil {
		return ack, err
	}
	ack.Queued = true

	if pol.Immediate() && online {
		s.engine.triggerInBackground(ctx, op.DataType)
	}
	return ack, nil
}

// ClearCache implements [DataService].
func (s *dataService) ClearCache(ctx context.Context, dataTypes ...string) error {
	for _, dataType := range dataTypes {
		if _, err := s.engine.Policies.Lookup(dataType); err != nil {
			return err
		}
	}

	s.engine.applyMu.Lock()
	defer s.engine.applyMu.Unlock()

	if len(dataTypes) == 0 {
		return s.engine.Cache.Clear(ctx, "")
	}

	var errs []error
	for _, dataType := range dataTypes {
		if err := s.engine.Cache.Clear(ctx, dataType); err != nil {
			errs = append(errs, fmt.Errorf("clear %s: %w", dataType, err))
		}
	}
	return errors.Join(errs...)
}

// Wait blocks until background refreshes and syncs have finished.
func (s *dataService) Wait() {
	s.refreshes.Wait()
	s.engine.bg.Wait()
}

// fetch reads key from the remote authority and folds the result into the
// cache. Concurrent fetches of one key share a single call.
func (s *dataService) fetch(ctx context.Context, dataType, key string) (json.RawMessage, error) {
	v, err, _ := s.fetches.Do(store.CacheKey(dataType, key), func() (any, error) {
		server, err := s.engine.Remote.Fetch(ctx, dataType, key)
		if err != nil {
			return nil, err
		}
		return s.absorbFetched(ctx, dataType, key, server)
	})
	if err != nil {
		return nil, err
	}
	return v.(json.RawMessage), nil
}

// absorbFetched stores a fetched server payload. A locally modified entry
// is never overwritten: a differing server payload registers a conflict
// and the read returns the cache content after resolution.
func (s *dataService) absorbFetched(ctx context.Context, dataType, key string, server json.RawMessage) (json.RawMessage, error) {
	e := s.engine
	e.applyMu.Lock()
	defer e.applyMu.Unlock()

	if pendingDelete(e.Queue, dataType, key) {
		return nil, fmt.Errorf("%w: %s/%s is deleted locally", ErrDataUnavailable, dataType, key)
	}

	entry, ok := e.Cache.Get(ctx, dataType, key)
	if ok && entry.ModifiedLocally {
		if utils.SamePayload(entry.Payload, server) {
			return entry.Payload, nil
		}

		c, err := e.registerConflict(ctx, dataType, key,
			models.ConflictSide{Payload: entry.Payload, Timestamp: entry.LocalTimestamp}, server)
		e.publishGauges()
		if err != nil {
			s.logger.Warn().Err(err).Str("func", "dataService.absorbFetched").Msg("conflict resolution not queued")
		}

		s.logger.Info().
			Str("func", "dataService.absorbFetched").
			Str("conflict_id", c.ID).
			Bool("resolved", c.Resolved).
			Msg("refresh found a diverged server copy")

		if current, ok := e.Cache.Get(ctx, dataType, key); ok {
			return current.Payload, nil
		}
		return server, nil
	}

	if _, err := e.Cache.Set(ctx, models.CacheEntry{Key: key, DataType: dataType, Payload: server}); err != nil {
		s.logger.Warn().Err(err).Str("func", "dataService.absorbFetched").Msg("fetched value not cached")
	}
	return server, nil
}

// refreshInBackground fetches key without blocking the caller.
func (s *dataService) refreshInBackground(ctx context.Context, dataType, key string) {
	timeout := s.engine.Network.Params().Timeout
	if timeout <= 0 {
		timeout = defaultRefreshTimeout
	}

	s.refreshes.Add(1)
	go func() {
		defer s.refreshes.Done()

		refreshCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
		defer cancel()

		_, err := s.fetch(refreshCtx, dataType, key)
		metrics.RecordBackgroundRefresh(dataType, err == nil)
		if err != nil {
			s.logger.Debug().Err(err).
				Str("func", "dataService.refreshInBackground").
				Str("data_type", dataType).
				Str("key", key).
				Msg("background refresh failed")
		}
	}()
}

func (s *dataService) logFetchFailure(err error, dataType, key string, strategy models.Strategy) {
	s.logger.Warn().Err(err).
		Str("func", "dataService.GetData").
		Str("data_type", dataType).
		Str("key", key).
		Str("strategy", strategy.String()).
		Msg("network fetch failed, falling back")
}

func refreshAhead(expiry time.Duration) time.Duration {
	return time.Duration(float64(expiry) * refreshAheadRatio)
}

func pendingDelete(q *queue.Queue, dataType, key string) bool {
	ops := q.Peek(0, keyFilter(dataType, key))
	return len(ops) > 0 && ops[len(ops)-1].Kind == models.OperationDelete
}
