// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package config

import (
	"fmt"
	"strings"

	"github.com/MKhiriev/go-offline-keeper/internal/policy"
)

// validate checks that the final merged [StructuredConfig] is usable before
// the daemon starts.
func (cfg *StructuredConfig) validate() error {
	if cfg.App.IssueTokenFor != "" && cfg.App.TokenSignKey == "" {
		return fmt.Errorf("%w: token sign key is required to issue tokens", ErrInvalidAppConfigs)
	}
	if cfg.App.TokenTTL < 0 {
		return fmt.Errorf("%w: negative token ttl", ErrInvalidAppConfigs)
	}

	switch cfg.Storage.Backend {
	case BackendMemory:
	case BackendFile:
		if cfg.Storage.Files.Path == "" {
			return fmt.Errorf("%w: empty file path", ErrInvalidStorageConfigs)
		}
	case BackendSQLite, BackendPostgres:
		if cfg.Storage.DB.DSN == "" {
			return fmt.Errorf("%w: empty DSN", ErrInvalidStorageConfigs)
		}
	default:
		return fmt.Errorf("%w: unknown backend %q", ErrInvalidStorageConfigs, cfg.Storage.Backend)
	}
	if cfg.Storage.MaxEntries < 0 {
		return fmt.Errorf("%w: negative max entries", ErrInvalidStorageConfigs)
	}

	if cfg.Server.HTTPAddress == "" {
		return ErrInvalidServerConfigs
	}

	if cfg.Adapter.HTTPAddress == "" || cfg.Adapter.RequestTimeout <= 0 {
		return ErrInvalidAdapterConfigs
	}
	if !strings.HasPrefix(cfg.Adapter.HTTPAddress, "http://") && !strings.HasPrefix(cfg.Adapter.HTTPAddress, "https://") {
		return fmt.Errorf("%w: address must be an http(s) URL", ErrInvalidAdapterConfigs)
	}

	if cfg.Sync.MaxAttempts <= 0 || cfg.Sync.MaxQueueSize < 0 || cfg.Sync.CompressionThreshold < 0 {
		return ErrInvalidSyncConfigs
	}
	switch cfg.Sync.CompressionAlgorithm {
	case "gzip", "deflate", "zstd":
	default:
		return fmt.Errorf("%w: unknown compression algorithm %q", ErrInvalidSyncConfigs, cfg.Sync.CompressionAlgorithm)
	}

	if cfg.Workers.ProbeInterval <= 0 || cfg.Workers.SettleDelay < 0 || cfg.Workers.FlushTimeout < 0 {
		return ErrInvalidWorkerConfigs
	}

	for dataType, p := range cfg.Policies {
		if dataType == "" || !p.Strategy.Valid() || !p.Priority.Valid() {
			return fmt.Errorf("%w: data type %q", ErrInvalidPolicyConfigs, dataType)
		}
		if p.SyncFrequency < 0 || p.CacheExpiry < 0 || p.MaxAttempts < 0 {
			return fmt.Errorf("%w: data type %q has negative values", ErrInvalidPolicyConfigs, dataType)
		}
	}
	if err := policy.DefaultTable().With(cfg.DataTypePolicies()).Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPolicyConfigs, err)
	}

	return nil
}
