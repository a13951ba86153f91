// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package store

import "errors"

// Sentinel errors returned by storage backends. Callers should use
// [errors.Is] to match against these values.
var (
	// ErrKeyNotFound is returned by Get when nothing is stored under the key.
	ErrKeyNotFound = errors.New("key not found")

	// ErrStorageUnavailable wraps backend I/O failures.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrUnknownBackend is returned by NewKVStorage for an unsupported
	// backend name.
	ErrUnknownBackend = errors.New("unknown storage backend")

	// ErrCorruptEntry is returned when a stored cache entry cannot be
	// decoded.
	ErrCorruptEntry = errors.New("corrupt cache entry")
)

// Low-level database operation errors. These are returned (or wrapped) by
// the SQL backend when a SQL-level operation fails.
var (
	// ErrBuildingSQLQuery is returned when constructing a parameterised SQL
	// query fails.
	ErrBuildingSQLQuery = errors.New("error building sql query")

	// ErrExecutingQuery is returned when executing a SELECT fails.
	ErrExecutingQuery = errors.New("error executing sql query")

	// ErrExecutingStatement is returned when executing an INSERT or DELETE
	// fails.
	ErrExecutingStatement = errors.New("failed to executing statement")

	// ErrScanningRows is returned when scanning column values during
	// multi-row iteration fails.
	ErrScanningRows = errors.New("failed to scan rows")
)
