// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import (
	"fmt"
	"strings"
)

// ConflictResolution names the rule used to settle a divergence between a
// locally modified value and the server value. Unconfigured leaves the
// conflict pending for a manual decision.
type ConflictResolution int

const (
	Unconfigured ConflictResolution = iota
	ClientWins
	ServerWins
	LastWriteWins
	Merge
	// Manual marks resolutions supplied through ResolveConflict. It is never
	// a valid policy value.
	Manual
)

var resolutionNames = map[ConflictResolution]string{
	Unconfigured:  "",
	ClientWins:    "client-wins",
	ServerWins:    "server-wins",
	LastWriteWins: "last-write-wins",
	Merge:         "merge",
	Manual:        "manual",
}

func (r ConflictResolution) String() string {
	if name, ok := resolutionNames[r]; ok {
		return name
	}
	return fmt.Sprintf("resolution(%d)", int(r))
}

func (r ConflictResolution) MarshalText() ([]byte, error) {
	if _, ok := resolutionNames[r]; !ok {
		return nil, fmt.Errorf("unknown conflict resolution %d", int(r))
	}
	return []byte(r.String()), nil
}

func (r *ConflictResolution) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	v = strings.ReplaceAll(v, "_", "-")
	for k, name := range resolutionNames {
		if name == v {
			*r = k
			return nil
		}
	}
	return fmt.Errorf("unknown conflict resolution %q", string(text))
}
