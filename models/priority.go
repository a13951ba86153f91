// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import (
	"fmt"
	"strings"
)

// Priority orders pending mutations in the sync queue. The zero value is
// Critical, which is also the lowest rank and therefore processed first.
type Priority int

const (
	Critical Priority = iota
	High
	Medium
	Low
)

var priorityNames = map[Priority]string{
	Critical: "critical",
	High:     "high",
	Medium:   "medium",
	Low:      "low",
}

// Rank returns the queue rank of p: Critical=0 ... Low=3.
func (p Priority) Rank() int {
	return int(p)
}

func (p Priority) String() string {
	if name, ok := priorityNames[p]; ok {
		return name
	}
	return fmt.Sprintf("priority(%d)", int(p))
}

func (p Priority) Valid() bool {
	_, ok := priorityNames[p]
	return ok
}

func (p Priority) MarshalText() ([]byte, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("unknown priority %d", int(p))
	}
	return []byte(p.String()), nil
}

func (p *Priority) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	for k, name := range priorityNames {
		if name == v {
			*p = k
			return nil
		}
	}
	return fmt.Errorf("unknown priority %q", string(text))
}
