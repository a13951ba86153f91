// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import "time"

// SyncMetrics are the persisted sync counters.
type SyncMetrics struct {
	Successes        int64         `json:"successes"`
	Failures         int64         `json:"failures"`
	Conflicts        int64         `json:"conflicts"`
	Cycles           int64         `json:"cycles"`
	Evicted          int64         `json:"evicted"`
	LastSyncAt       time.Time     `json:"last_sync_at,omitempty"`
	LastSyncDuration time.Duration `json:"last_sync_duration"`
}

// SyncStatus is the snapshot returned by GetSyncStatus.
type SyncStatus struct {
	QueueSize      int          `json:"queue_size"`
	ConflictsCount int          `json:"conflicts_count"`
	NetworkState   NetworkState `json:"network_state"`
	Metrics        SyncMetrics  `json:"metrics"`
	SyncInProgress bool         `json:"sync_in_progress"`
}

// CycleReport summarises one sync cycle.
type CycleReport struct {
	Skipped   bool          `json:"skipped"`
	Processed int           `json:"processed"`
	Succeeded int           `json:"succeeded"`
	Conflicts int           `json:"conflicts"`
	Failed    int           `json:"failed"`
	Dropped   int           `json:"dropped"`
	Duration  time.Duration `json:"duration"`
}

// Ack acknowledges a local write.
type Ack struct {
	OperationID string `json:"operation_id"`
	Queued      bool   `json:"queued"`
	Synced      bool   `json:"synced"`
}
