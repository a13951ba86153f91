// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package config

import "errors"

// Validation errors returned by [StructuredConfig.validate] when required
// configuration groups are incomplete or invalid.
var (
	// ErrInvalidStorageConfigs indicates an unknown backend or a backend
	// without its location (DSN or file path).
	ErrInvalidStorageConfigs = errors.New("invalid storage configuration")
	// ErrInvalidServerConfigs indicates a missing control API address.
	ErrInvalidServerConfigs = errors.New("invalid server configuration")
	// ErrInvalidAdapterConfigs indicates a missing remote address or
	// request timeout.
	ErrInvalidAdapterConfigs = errors.New("invalid adapter configuration")
	// ErrInvalidSyncConfigs indicates non-positive retry limits, negative
	// sizes or an unknown compression algorithm.
	ErrInvalidSyncConfigs = errors.New("invalid sync configuration")
	// ErrInvalidWorkerConfigs indicates invalid background worker settings
	// (for example, zero probe interval).
	ErrInvalidWorkerConfigs = errors.New("invalid worker configuration")
	// ErrInvalidPolicyConfigs indicates a data-type policy with an unknown
	// strategy, priority or a negative duration.
	ErrInvalidPolicyConfigs = errors.New("invalid policy configuration")
	// ErrInvalidAppConfigs indicates token settings that cannot mint a
	// token (no sign key or non-positive TTL).
	ErrInvalidAppConfigs = errors.New("invalid app configuration")
)
