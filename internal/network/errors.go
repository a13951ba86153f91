// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package network

import "errors"

var (
	// ErrUnknownConnectionType is returned for an unrecognised connection
	// type hint.
	ErrUnknownConnectionType = errors.New("unknown connection type")

	// ErrNoProber is returned by Probe on a monitor built without a prober.
	ErrNoProber = errors.New("network monitor has no prober")
)
