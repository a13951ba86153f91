// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import (
	"encoding/json"
	"time"
)

// ConflictSide is one version of a diverged value.
type ConflictSide struct {
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

// Resolution records how a conflict was settled.
type Resolution struct {
	Strategy   ConflictResolution `json:"strategy"`
	Payload    json.RawMessage    `json:"payload"`
	Automatic  bool               `json:"automatic"`
	ResolvedAt time.Time          `json:"resolved_at"`
}

// Conflict is a detected divergence between a locally modified value and
// the authoritative remote value for the same key.
type Conflict struct {
	ID         string       `json:"id"`
	Key        string       `json:"key"`
	DataType   string       `json:"data_type"`
	Local      ConflictSide `json:"local"`
	Server     ConflictSide `json:"server"`
	DetectedAt time.Time    `json:"detected_at"`
	Resolved   bool         `json:"resolved"`
	Resolution *Resolution  `json:"resolution,omitempty"`
}
