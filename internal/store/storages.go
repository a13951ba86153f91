// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package store

import (
	"context"
	"fmt"

	"github.com/MKhiriev/go-offline-keeper/internal/config"
	"github.com/MKhiriev/go-offline-keeper/internal/logger"
)

// NewKVStorage initialises the configured backend. SQL backends are
// connected and migrated before use.
func NewKVStorage(ctx context.Context, cfg config.Storage, log *logger.Logger) (KVStorage, error) {
	log.Info().Str("backend", cfg.Backend).Msg("creating new storage...")

	switch cfg.Backend {
	case config.BackendMemory:
		return NewMemoryStorage(), nil
	case config.BackendFile:
		return NewFileStorage(cfg.Files.Path)
	case config.BackendSQLite, config.BackendPostgres:
		var (
			db  *DB
			err error
		)
		if cfg.Backend == config.BackendSQLite {
			db, err = NewConnectSQLite(ctx, cfg.DB.DSN, log)
		} else {
			db, err = NewConnectPostgres(ctx, cfg.DB.DSN, log)
		}
		if err != nil {
			return nil, fmt.Errorf("%s connection error: %w", cfg.Backend, err)
		}

		if err = db.Migrate(); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("migration failed: %w", err)
		}

		return NewSQLStorage(db, log), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}
}
