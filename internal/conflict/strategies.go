// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package conflict

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/MKhiriev/go-offline-keeper/models"
)

const (
	fieldCreatedAt = "createdAt"
	fieldUpdatedAt = "updatedAt"
	fieldTimestamp = "timestamp"
)

// Resolve applies strategy to a conflict between local and server. ok is
// false when the strategy leaves the conflict for manual resolution.
func Resolve(strategy models.ConflictResolution, local, server models.ConflictSide) (payload json.RawMessage, ok bool) {
	switch strategy {
	case models.ClientWins:
		return local.Payload, true
	case models.ServerWins:
		return server.Payload, true
	case models.LastWriteWins:
		return lastWriteWins(local, server), true
	case models.Merge:
		merged, err := MergePayloads(local.Payload, server.Payload)
		if err != nil {
			return nil, false
		}
		return merged, true
	default:
		return nil, false
	}
}

// lastWriteWins returns the payload with the later timestamp. Equal
// timestamps resolve to the server.
func lastWriteWins(local, server models.ConflictSide) json.RawMessage {
	if EffectiveTimestamp(local).After(EffectiveTimestamp(server)) {
		return local.Payload
	}
	return server.Payload
}

// EffectiveTimestamp is the payload's updatedAt, else its timestamp field,
// else side.Timestamp.
func EffectiveTimestamp(side models.ConflictSide) time.Time {
	fields, err := objectFields(side.Payload)
	if err == nil {
		for _, name := range []string{fieldUpdatedAt, fieldTimestamp} {
			if ts, ok := parseTimestamp(fields[name]); ok {
				return ts
			}
		}
	}
	return side.Timestamp
}

// MergePayloads overlays local fields on top of server fields. createdAt
// always comes from the server and is dropped when the server has none;
// updatedAt is the later of both. Both payloads must be JSON objects.
func MergePayloads(local, server json.RawMessage) (json.RawMessage, error) {
	localFields, err := objectFields(local)
	if err != nil {
		return nil, fmt.Errorf("%w: local: %w", ErrMergeImpossible, err)
	}
	serverFields, err := objectFields(server)
	if err != nil {
		return nil, fmt.Errorf("%w: server: %w", ErrMergeImpossible, err)
	}

	merged := make(map[string]json.RawMessage, len(serverFields)+len(localFields))
	for k, v := range serverFields {
		merged[k] = v
	}
	for k, v := range localFields {
		merged[k] = v
	}

	if v, ok := serverFields[fieldCreatedAt]; ok {
		merged[fieldCreatedAt] = v
	} else {
		delete(merged, fieldCreatedAt)
	}

	lu, lok := parseTimestamp(localFields[fieldUpdatedAt])
	su, sok := parseTimestamp(serverFields[fieldUpdatedAt])
	switch {
	case lok && sok && su.After(lu):
		merged[fieldUpdatedAt] = serverFields[fieldUpdatedAt]
	case !lok && sok:
		merged[fieldUpdatedAt] = serverFields[fieldUpdatedAt]
	}

	out, err := json.Marshal(merged)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMergeImpossible, err)
	}
	return out, nil
}

func objectFields(payload json.RawMessage) (map[string]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, fmt.Errorf("not a JSON object")
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return nil, err
	}
	return fields, nil
}

// parseTimestamp accepts RFC 3339 strings and Unix milliseconds.
func parseTimestamp(raw json.RawMessage) (time.Time, bool) {
	if len(raw) == 0 {
		return time.Time{}, false
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
			return ts, true
		}
		if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
			return time.UnixMilli(ms), true
		}
		return time.Time{}, false
	}

	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		if ms, err := n.Int64(); err == nil {
			return time.UnixMilli(ms), true
		}
		if f, err := n.Float64(); err == nil {
			return time.UnixMilli(int64(f)), true
		}
	}

	return time.Time{}, false
}
