// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import "encoding/json"

// Outcome is the three-way result of sending one operation to the remote
// authority.
type Outcome int

const (
	OutcomeSuccess Outcome = iota + 1
	OutcomeConflict
	OutcomeFailure
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeConflict:
		return "conflict"
	case OutcomeFailure:
		return "failure"
	default:
		return "unknown"
	}
}

// SendResult is returned by the remote authority for every operation.
// Data is the canonical payload on success, ServerData the diverged server
// payload on conflict, and Err the cause on failure.
type SendResult struct {
	Outcome    Outcome
	Data       json.RawMessage
	ServerData json.RawMessage
	Err        error
}

// Succeeded builds a success result.
func Succeeded(data json.RawMessage) SendResult {
	return SendResult{Outcome: OutcomeSuccess, Data: data}
}

// Conflicted builds a conflict result carrying the server copy.
func Conflicted(serverData json.RawMessage) SendResult {
	return SendResult{Outcome: OutcomeConflict, ServerData: serverData}
}

// Failed builds a failure result.
func Failed(err error) SendResult {
	return SendResult{Outcome: OutcomeFailure, Err: err}
}
