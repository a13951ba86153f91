// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package conflict

import "errors"

var (
	// ErrConflictNotFound is returned for an unknown conflict id.
	ErrConflictNotFound = errors.New("conflict not found")

	// ErrAlreadyResolved is returned when resolving a resolved conflict.
	ErrAlreadyResolved = errors.New("conflict already resolved")

	// ErrInvalidResolution is returned for a resolution payload that is not
	// valid JSON.
	ErrInvalidResolution = errors.New("invalid resolution payload")

	// ErrMergeImpossible is returned when two payloads cannot be merged
	// field by field.
	ErrMergeImpossible = errors.New("payloads cannot be merged")
)
