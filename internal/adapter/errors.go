// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package adapter

import "errors"

var (
	// ErrTransient marks failures worth retrying: timeouts, connection
	// errors and unexpected statuses.
	ErrTransient = errors.New("transient remote failure")

	ErrBadRequest          = errors.New("bad request")
	ErrUnauthorized        = errors.New("client unauthorized")
	ErrForbidden           = errors.New("forbidden")
	ErrNotFound            = errors.New("not found")
	ErrInternalServerError = errors.New("internal server error")
	ErrBadGateway          = errors.New("bad gateway")
	ErrServiceUnavailable  = errors.New("service unavailable")

	// ErrTokenExpired is returned before sending when the configured bearer
	// token is past its expiry.
	ErrTokenExpired = errors.New("bearer token expired")

	ErrInvalidBaseURL = errors.New("invalid remote base url")
)
