// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"context"
	"sync"
	"time"

	"github.com/MKhiriev/go-offline-keeper/internal/logger"
	"github.com/MKhiriev/go-offline-keeper/internal/policy"
)

// DefaultFlushTimeout bounds the final flush performed by Stop.
const DefaultFlushTimeout = 5 * time.Second

type syncJob struct {
	syncService SyncService
	policies    *policy.Table
	notifier    ReconnectNotifier

	flushTimeout time.Duration

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	hookReg sync.Once

	logger *logger.Logger
}

// NewSyncJob creates a job that triggers a sync of every data type with a
// positive sync frequency on its own ticker, and of everything when
// notifier reports a reconnect. notifier may be nil. The job is idle until
// Start is called.
func NewSyncJob(syncService SyncService, policies *policy.Table, notifier ReconnectNotifier, flushTimeout time.Duration, log *logger.Logger) SyncJob {
	if flushTimeout <= 0 {
		flushTimeout = DefaultFlushTimeout
	}
	return &syncJob{
		syncService:  syncService,
		policies:     policies,
		notifier:     notifier,
		flushTimeout: flushTimeout,
		logger:       log,
	}
}

// Start implements SyncJob. It stops a previously running job, then starts
// one goroutine per periodically synced data type. The goroutines exit when
// ctx is cancelled or Stop is called.
func (j *syncJob) Start(ctx context.Context) {
	j.stop(false)

	j.hookReg.Do(func() {
		if j.notifier != nil {
			j.notifier.OnReconnect(j.onReconnect)
		}
	})

	j.mu.Lock()
	defer j.mu.Unlock()

	jobCtx, cancel := context.WithCancel(ctx)
	j.cancel = cancel

	for _, dataType := range j.policies.DataTypes() {
		pol := j.policies.MustLookup(dataType)
		if pol.SyncFrequency <= 0 {
			continue
		}

		j.wg.Add(1)
		go func(dataType string, interval time.Duration) {
			defer j.wg.Done()
			t := time.NewTicker(interval)
			defer t.Stop()

			for {
				select {
				case <-jobCtx.Done():
					return
				case <-t.C:
					j.trigger(jobCtx, dataType)
				}
			}
		}(dataType, pol.SyncFrequency)
	}
}

// Stop implements SyncJob. It cancels the tickers, waits for them to exit
// and runs one last sync bounded by the flush timeout. Safe to call when
// the job is not running.
func (j *syncJob) Stop() {
	j.stop(true)
}

func (j *syncJob) stop(flush bool) {
	j.mu.Lock()
	cancel := j.cancel
	j.cancel = nil
	j.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	j.wg.Wait()

	if !flush {
		return
	}

	ctx, done := context.WithTimeout(context.Background(), j.flushTimeout)
	defer done()
	j.trigger(ctx)
}

func (j *syncJob) onReconnect(ctx context.Context) {
	if !j.running() {
		return
	}
	j.logger.Info().Str("func", "syncJob.onReconnect").Msg("connection restored, syncing")
	j.trigger(ctx)
}

func (j *syncJob) running() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.cancel != nil
}

func (j *syncJob) trigger(ctx context.Context, dataTypes ...string) {
	if _, err := j.syncService.TriggerSync(ctx, dataTypes...); err != nil {
		j.logger.Err(err).
			Str("func", "syncJob.trigger").
			Strs("data_types", dataTypes).
			Msg("sync failed")
	}
}
