// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"context"
	"encoding/json"

	"github.com/MKhiriev/go-offline-keeper/internal/network"
	"github.com/MKhiriev/go-offline-keeper/models"
)

// DataService is the read/write surface used by the application. Reads are
// served according to the data type's strategy; writes land in the cache
// first and are queued for the remote authority.
type DataService interface {
	// GetData returns the payload of key. Fails with ErrDataUnavailable when
	// no source allowed by the strategy has a value and with
	// policy.ErrNoPolicy for an unconfigured data type.
	GetData(ctx context.Context, key, dataType string, opts models.GetOptions) (json.RawMessage, error)

	// SetData stores payload locally and queues it for synchronization.
	// Critical data types and Immediate writes are sent right away when
	// online and fall back to the queue on failure.
	SetData(ctx context.Context, key, dataType string, payload json.RawMessage, opts models.SetOptions) (models.Ack, error)

	// DeleteData removes key locally and queues a tombstone.
	DeleteData(ctx context.Context, key, dataType string, opts models.DeleteOptions) (models.Ack, error)

	// ClearCache drops cached entries of the given data types, or all of
	// them when none are given. Queued operations are kept.
	ClearCache(ctx context.Context, dataTypes ...string) error
}

// SyncService drives synchronization with the remote authority.
type SyncService interface {
	// TriggerSync runs one sync cycle over the queued operations of the
	// given data types, or of all data types. A trigger while a cycle is
	// running returns a skipped report.
	TriggerSync(ctx context.Context, dataTypes ...string) (models.CycleReport, error)

	GetSyncStatus(ctx context.Context) models.SyncStatus
	GetConflicts(ctx context.Context) []models.Conflict

	// ResolveConflict settles a pending conflict with payload.
	ResolveConflict(ctx context.Context, id string, payload json.RawMessage) error
}

// SyncJob runs the periodic per-data-type sync timers.
type SyncJob interface {
	// Start launches the timers and the reconnect trigger. Calling Start on
	// a running job restarts it.
	Start(ctx context.Context)

	// Stop cancels the timers and performs a best-effort final flush.
	Stop()
}

// AppInfoService reports build metadata of the running daemon.
type AppInfoService interface {
	GetBuildInfo(ctx context.Context) models.AppBuildInfo
}

// NetworkMonitor is the view of connectivity the engine needs.
type NetworkMonitor interface {
	State() models.NetworkState
	Params() models.SyncParams
}

// ReconnectNotifier calls registered handlers once connectivity settles
// after an outage.
type ReconnectNotifier interface {
	OnReconnect(h network.ReconnectHandler)
}
