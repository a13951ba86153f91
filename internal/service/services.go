// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"context"

	"github.com/MKhiriev/go-offline-keeper/internal/config"
	"github.com/MKhiriev/go-offline-keeper/internal/logger"
	"github.com/MKhiriev/go-offline-keeper/models"
)

// Services bundles the application services sharing one sync engine.
type Services struct {
	DataService    DataService
	SyncService    SyncService
	SyncJob        SyncJob
	AppInfoService AppInfoService

	engine *syncEngine
	data   *dataService
}

// NewServices builds the services on top of c. notifier may be nil, in
// which case reconnects do not trigger a sync.
func NewServices(c Components, notifier ReconnectNotifier, buildInfo models.AppBuildInfo, cfg config.StructuredConfig, logger *logger.Logger) (*Services, error) {
	appInfo, err := NewAppInfoService(buildInfo, cfg.App, logger)
	if err != nil {
		return nil, err
	}

	if err = c.Policies.Validate(); err != nil {
		return nil, err
	}

	engine := newSyncEngine(c, cfg.Sync.MaxAttempts, logger)
	data := newDataService(engine, logger)

	return &Services{
		DataService:    data,
		SyncService:    engine,
		SyncJob:        NewSyncJob(engine, c.Policies, notifier, cfg.Workers.FlushTimeout, logger),
		AppInfoService: appInfo,
		engine:         engine,
		data:           data,
	}, nil
}

// Restore loads the persisted queue, conflicts and sync counters.
func (s *Services) Restore(ctx context.Context) error {
	return s.engine.Restore(ctx)
}

// Wait blocks until background refreshes and triggered syncs are done.
func (s *Services) Wait() {
	s.data.Wait()
}
