// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package store

import (
	"context"
)

//go:generate mockgen -source=interfaces.go -destination=../mock/store_mock.go -package=mock

// KVStorage is the durable key/value backing of the cache, the sync queue,
// the conflict registry and the sync metrics.
type KVStorage interface {
	// Get returns the value stored under key or ErrKeyNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error
	// Remove deletes key. Removing a missing key is not an error.
	Remove(ctx context.Context, key string) error
	// Keys lists keys starting with prefix in ascending order.
	Keys(ctx context.Context, prefix string) ([]string, error)
	// Clear removes every key starting with prefix. An empty prefix clears
	// the whole storage.
	Clear(ctx context.Context, prefix string) error
	// Close releases the backend.
	Close() error
}

// ErrorClassificator decides whether a failed storage call is worth
// retrying.
type ErrorClassificator interface {
	Classify(err error) ErrorClassification
}
