// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package queue

import "errors"

var (
	// ErrQueueFull is returned by Enqueue when the queue is at capacity and
	// holds no operation of a lower priority class to evict.
	ErrQueueFull = errors.New("sync queue is full")

	// ErrInvalidOperation is returned for operations without an id or with
	// an unknown priority.
	ErrInvalidOperation = errors.New("invalid sync operation")

	// ErrDuplicateOperation is returned when an operation id is already
	// queued.
	ErrDuplicateOperation = errors.New("sync operation already queued")
)
