// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// OperationKind is the type of mutation carried by a SyncOperation.
type OperationKind int

const (
	OperationCreate OperationKind = iota + 1
	OperationUpdate
	OperationDelete
)

var operationKindNames = map[OperationKind]string{
	OperationCreate: "CREATE",
	OperationUpdate: "UPDATE",
	OperationDelete: "DELETE",
}

func (k OperationKind) String() string {
	if name, ok := operationKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

func (k OperationKind) MarshalText() ([]byte, error) {
	if _, ok := operationKindNames[k]; !ok {
		return nil, fmt.Errorf("unknown operation kind %d", int(k))
	}
	return []byte(k.String()), nil
}

func (k *OperationKind) UnmarshalText(text []byte) error {
	v := strings.ToUpper(strings.TrimSpace(string(text)))
	for kind, name := range operationKindNames {
		if name == v {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unknown operation kind %q", string(text))
}

// SyncOperation is a pending local mutation awaiting transmission to the
// remote authority.
type SyncOperation struct {
	ID          string          `json:"id"`
	Key         string          `json:"key"`
	DataType    string          `json:"data_type"`
	Kind        OperationKind   `json:"kind"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	Priority    Priority        `json:"priority"`
	EnqueuedAt  time.Time       `json:"enqueued_at"`
	Attempts    int             `json:"attempts"`
	MaxAttempts int             `json:"max_attempts"`

	// Overwrite asks the remote authority to replace its copy even though it
	// diverged. Set on operations produced by conflict resolution.
	Overwrite bool `json:"overwrite,omitempty"`
}

// Exhausted reports whether the operation has used all of its attempts.
func (op SyncOperation) Exhausted() bool {
	return op.Attempts >= op.MaxAttempts
}
