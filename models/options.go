// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import "time"

// GetOptions tune a single read.
type GetOptions struct {
	// CacheOnly forbids any network access for this read.
	CacheOnly bool

	// ForceNetwork skips a fresh cache hit and goes to the network when
	// online. Ignored for CACHE_ONLY data types.
	ForceNetwork bool
}

// SetOptions tune a single write.
type SetOptions struct {
	// Immediate dispatches the write right away regardless of priority.
	Immediate bool

	// Timestamp overrides the local modification time. Zero means now.
	Timestamp time.Time
}

// DeleteOptions tune a single delete.
type DeleteOptions struct {
	Immediate bool
}
