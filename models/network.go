// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import (
	"fmt"
	"strings"
	"time"
)

// Quality is the estimated quality of the link to the remote authority.
type Quality int

const (
	QualityOffline Quality = iota
	QualityVeryPoor
	QualityPoor
	QualityGood
	QualityExcellent
)

var qualityNames = map[Quality]string{
	QualityOffline:   "offline",
	QualityVeryPoor:  "very-poor",
	QualityPoor:      "poor",
	QualityGood:      "good",
	QualityExcellent: "excellent",
}

func (q Quality) String() string {
	if name, ok := qualityNames[q]; ok {
		return name
	}
	return fmt.Sprintf("quality(%d)", int(q))
}

func (q Quality) MarshalText() ([]byte, error) {
	return []byte(q.String()), nil
}

func (q *Quality) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	for k, name := range qualityNames {
		if name == v {
			*q = k
			return nil
		}
	}
	return fmt.Errorf("unknown network quality %q", string(text))
}

// NetworkState is the process-wide view of connectivity.
type NetworkState struct {
	Online    bool    `json:"online"`
	Quality   Quality `json:"quality"`
	LatencyMs int64   `json:"latency_ms"`
}

// SyncParams are the batch size and per-call timeout the sync engine uses
// for the current network quality.
type SyncParams struct {
	BatchSize int           `json:"batch_size"`
	Timeout   time.Duration `json:"timeout"`
}
