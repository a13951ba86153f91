// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package http

import "errors"

// Sentinel errors used by the handlers. Callers can match against them with
// [errors.Is].
var (
	// ErrEmptyAuthorizationHeader is returned by the auth middleware when the
	// incoming request does not include an "Authorization" header at all.
	ErrEmptyAuthorizationHeader = errors.New("empty `Authorization` header")

	// ErrInvalidAuthorizationHeader is returned when the "Authorization"
	// header is not of the "Bearer <token>" form.
	ErrInvalidAuthorizationHeader = errors.New("invalid `Authorization` header")

	// ErrInvalidQueryParam is returned for boolean or time query parameters
	// that cannot be parsed.
	ErrInvalidQueryParam = errors.New("invalid query parameter")

	ErrBodyTooLarge = errors.New("request body too large")

	// ErrNetworkControlDisabled is returned by the network endpoints when
	// the daemon runs without a controllable monitor.
	ErrNetworkControlDisabled = errors.New("network control is disabled")
)
