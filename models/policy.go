// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import "time"

// DataTypePolicy is the static configuration of one logical data category.
type DataTypePolicy struct {
	// Strategy selects how reads are served.
	Strategy Strategy `json:"strategy"`

	// Priority is inherited by every SyncOperation of this data type.
	Priority Priority `json:"priority"`

	// SyncFrequency is the periodic sync interval. Zero means immediate:
	// writes trigger a sync cycle right away instead of waiting for a timer.
	SyncFrequency time.Duration `json:"sync_frequency"`

	// CacheExpiry is the age after which a cache entry is considered stale.
	CacheExpiry time.Duration `json:"cache_expiry"`

	// ConflictResolution is applied automatically when a conflict is
	// registered for this data type.
	ConflictResolution ConflictResolution `json:"conflict_resolution"`

	// MaxAttempts overrides the engine-wide retry limit when positive.
	MaxAttempts int `json:"max_attempts,omitempty"`
}

// Immediate reports whether writes of this data type are synced without
// waiting for the periodic timer.
func (p DataTypePolicy) Immediate() bool {
	return p.SyncFrequency <= 0
}
