// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package server

import (
	"context"
	"os/signal"
	"sync"
	"syscall"

	"github.com/MKhiriev/go-offline-keeper/internal/config"
	"github.com/MKhiriev/go-offline-keeper/internal/handler"
	"github.com/MKhiriev/go-offline-keeper/internal/logger"
	"github.com/MKhiriev/go-offline-keeper/internal/workers"
)

type server struct {
	httpServer *httpServer
	workers    *workers.Workers
	logger     *logger.Logger

	mu   sync.Mutex
	stop context.CancelFunc
}

// NewServer builds the daemon server. bg may be nil when no background
// workers are configured.
func NewServer(handlers *handler.Handlers, bg *workers.Workers, cfg config.Server, logger *logger.Logger) (Server, error) {
	logger.Info().Msg("creating new server...")
	s := &server{
		workers: bg,
		logger:  logger,
	}

	if handlers != nil && handlers.HTTP != nil && cfg.HTTPAddress != "" {
		s.httpServer = newHTTPServer(handlers.HTTP.Init(), cfg, logger)
	}

	if s.httpServer == nil {
		return nil, errNoServersAreCreated
	}

	return s, nil
}

func (s *server) RunServer() {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGTERM,
		syscall.SIGINT,
		syscall.SIGQUIT,
	)
	defer stop()

	if err := s.run(ctx); err != nil {
		s.logger.Err(err).Msg("error running server")
	}
}

// Shutdown asks a running server to stop. RunServer returns once the
// shutdown sequence has completed.
func (s *server) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stop != nil {
		s.stop()
	}
}

func (s *server) run(ctx context.Context) error {
	if s.httpServer == nil {
		return errNoServersAreCreated
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.mu.Lock()
	s.stop = cancel
	s.mu.Unlock()

	// workers outlive the API so that the final flush runs after the last
	// request has been served
	workersCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()

	errs := make(chan error, 2)
	workersDone := make(chan struct{})

	go func() {
		defer close(workersDone)
		if s.workers == nil {
			return
		}
		if err := s.workers.Run(workersCtx); err != nil {
			errs <- err
		}
	}()

	go func() {
		if err := s.httpServer.RunServer(); err != nil {
			errs <- err
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errs:
	}

	s.httpServer.Shutdown()
	stopWorkers()
	<-workersDone

	s.logger.Info().Msg("server Shutdown gracefully")
	return runErr
}
