// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package utils provides general-purpose helpers used across the
// application: context keys, clocks, identifier generation, payload
// fingerprints, HTTP response writing, the HTTP client wrapper, and JWT
// helpers.
package utils

import (
	"context"
)

// contextKey is a private type for context keys.
// Using a dedicated type instead of a plain string prevents key collisions
// with other packages that may use string-based keys in the context.
type contextKey string

// String returns the string representation of the context key.
// Implements the fmt.Stringer interface.
func (c contextKey) String() string {
	return string(c)
}

// CallerCtxKey is the key used to store the authenticated control API caller
// in the context.
var CallerCtxKey = contextKey("caller")

// GetCallerFromContext retrieves the authenticated caller name from ctx.
func GetCallerFromContext(ctx context.Context) (string, bool) {
	caller, ok := ctx.Value(CallerCtxKey).(string)
	return caller, ok
}
