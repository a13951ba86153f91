// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import (
	"encoding/json"
	"time"
)

// CacheEntry is one locally cached value.
type CacheEntry struct {
	Key             string          `json:"key"`
	DataType        string          `json:"data_type"`
	Payload         json.RawMessage `json:"payload"`
	StoredAt        time.Time       `json:"stored_at"`
	ModifiedLocally bool            `json:"modified_locally"`
	LocalTimestamp  time.Time       `json:"local_timestamp"`
}

// Expired reports whether the entry is older than expiry at now.
func (e CacheEntry) Expired(now time.Time, expiry time.Duration) bool {
	return now.Sub(e.StoredAt) > expiry
}

// Age returns how long ago the entry was stored.
func (e CacheEntry) Age(now time.Time) time.Duration {
	return now.Sub(e.StoredAt)
}

// CompressedPayload is the persisted form of a serialized value produced by
// the compression codec.
type CompressedPayload struct {
	Payload        []byte `json:"payload"`
	Compressed     bool   `json:"compressed"`
	Algorithm      string `json:"algorithm,omitempty"`
	OriginalSize   int    `json:"original_size"`
	CompressedSize int    `json:"compressed_size"`
}
