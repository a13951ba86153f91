// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package workers

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/MKhiriev/go-offline-keeper/internal/logger"
	"github.com/MKhiriev/go-offline-keeper/internal/service"
)

type named struct {
	name   string
	worker Worker
}

type Workers struct {
	workers []named
	logger  *logger.Logger
}

func New(logger *logger.Logger) *Workers {
	return &Workers{logger: logger}
}

// Add registers worker under name. Workers must be added before Run.
func (w *Workers) Add(name string, worker Worker) *Workers {
	w.workers = append(w.workers, named{name: name, worker: worker})
	return w
}

// Run starts every worker and blocks until all of them have returned. The
// first failure cancels the others and is returned.
func (w *Workers) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	for _, nw := range w.workers {
		g.Go(func() error {
			w.logger.Info().Str("worker", nw.name).Msg("worker started")
			err := nw.worker.Run(ctx)
			if errors.Is(err, context.Canceled) {
				err = nil
			}
			if err != nil {
				w.logger.Err(err).Str("worker", nw.name).Msg("worker failed")
				return fmt.Errorf("worker %s: %w", nw.name, err)
			}
			w.logger.Info().Str("worker", nw.name).Msg("worker stopped")
			return nil
		})
	}

	return g.Wait()
}

// SyncJob runs job for the lifetime of ctx. The job is stopped, and its
// final flush performed, before Run returns.
func SyncJob(job service.SyncJob) Worker {
	return WorkerFunc(func(ctx context.Context) error {
		job.Start(ctx)
		<-ctx.Done()
		job.Stop()
		return nil
	})
}
