// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import (
	"fmt"
	"strings"
)

// Strategy selects how reads for a data type are served: from the local
// cache, from the remote authority, or a combination of both.
type Strategy int

const (
	// OfflineFirst serves fresh cache entries directly and goes to the network
	// only when the entry is missing or expired.
	OfflineFirst Strategy = iota + 1

	// OnlineFirst prefers the network and falls back to the cache on failure.
	OnlineFirst

	// CacheOnly never touches the network.
	CacheOnly

	// NetworkOnly never reads or writes the cache.
	NetworkOnly

	// StaleWhileRevalidate returns any cached value immediately and refreshes
	// it in the background.
	StaleWhileRevalidate
)

var strategyNames = map[Strategy]string{
	OfflineFirst:         "offline-first",
	OnlineFirst:          "online-first",
	CacheOnly:            "cache-only",
	NetworkOnly:          "network-only",
	StaleWhileRevalidate: "stale-while-revalidate",
}

func (s Strategy) String() string {
	if name, ok := strategyNames[s]; ok {
		return name
	}
	return fmt.Sprintf("strategy(%d)", int(s))
}

// Valid reports whether s is one of the declared strategies.
func (s Strategy) Valid() bool {
	_, ok := strategyNames[s]
	return ok
}

func (s Strategy) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("unknown strategy %d", int(s))
	}
	return []byte(s.String()), nil
}

func (s *Strategy) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	v = strings.ReplaceAll(v, "_", "-")
	for k, name := range strategyNames {
		if name == v {
			*s = k
			return nil
		}
	}
	return fmt.Errorf("unknown strategy %q", string(text))
}
