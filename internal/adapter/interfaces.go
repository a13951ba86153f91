// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package adapter provides the transport to the remote authority that owns
// the canonical copy of every value.
//
// The primary abstraction is [RemoteAuthority], which decouples the sync
// engine from the underlying protocol. Sending an operation never returns a
// Go error: the outcome is one of success, conflict or failure, and only
// failures count towards the retry budget. The package ships an HTTP/REST
// implementation ([NewHTTPRemoteAuthority]).
//
// Error values defined in errors.go are mapped from HTTP status codes by
// mapHTTPError so that callers can use [errors.Is] (e.g. [ErrNotFound] for
// 404, [ErrUnauthorized] for 401). Every failure also wraps [ErrTransient].
package adapter

import (
	"context"
	"encoding/json"

	"github.com/MKhiriev/go-offline-keeper/models"
)

//go:generate mockgen -source=interfaces.go -destination=../mock/remote_authority_mock.go -package=mock

// RemoteAuthority is the server side of synchronization.
type RemoteAuthority interface {
	// Send transmits one queued mutation. A conflict result carries the
	// server copy of the value; a success may carry its canonical payload.
	Send(ctx context.Context, op models.SyncOperation) models.SendResult

	// Fetch returns the current server payload of key. Returns [ErrNotFound]
	// (wrapped) when the server has no such value.
	Fetch(ctx context.Context, dataType, key string) (json.RawMessage, error)
}
