// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package validators

import (
	"context"
	"encoding/json"

	"github.com/MKhiriev/go-offline-keeper/models"
)

// Field name constants used to restrict validation to a subset of fields.
const (
	// FieldKey targets the record key within its data type.
	FieldKey = "key"

	// FieldDataType targets the data type name.
	FieldDataType = "data_type"

	// FieldPayload targets the JSON payload. A delete operation must carry
	// none.
	FieldPayload = "payload"

	// FieldOperationID targets the sync operation id.
	FieldOperationID = "id"

	// FieldKind targets the CREATE/UPDATE/DELETE kind of an operation.
	FieldKind = "kind"

	// FieldAttempts targets the attempt counters of an operation.
	FieldAttempts = "attempts"
)

type DataValidator struct{}

func NewDataValidator() Validator {
	return &DataValidator{}
}

func (v *DataValidator) Validate(ctx context.Context, obj any, fields ...string) error {
	switch value := obj.(type) {
	case models.CacheEntry:
		return v.validateCacheEntry(ctx, value, fields...)
	case *models.CacheEntry:
		return v.validateCacheEntry(ctx, *value, fields...)

	case models.SyncOperation:
		return v.validateOperation(ctx, value, fields...)
	case *models.SyncOperation:
		return v.validateOperation(ctx, *value, fields...)

	default:
		return ErrUnsupportedType
	}
}

func (v *DataValidator) validateCacheEntry(ctx context.Context, entry models.CacheEntry, fields ...string) error {
	if len(fields) == 0 {
		fields = []string{FieldKey, FieldDataType, FieldPayload}
	}

	for _, f := range fields {
		switch f {
		case FieldKey:
			if entry.Key == "" {
				return ErrEmptyKey
			}
		case FieldDataType:
			if entry.DataType == "" {
				return ErrEmptyDataType
			}
		case FieldPayload:
			if !json.Valid(entry.Payload) {
				return ErrInvalidPayload
			}
		default:
			return ErrUnknownField
		}
	}

	return nil
}

func (v *DataValidator) validateOperation(ctx context.Context, op models.SyncOperation, fields ...string) error {
	if len(fields) == 0 {
		fields = []string{FieldOperationID, FieldKey, FieldDataType, FieldKind, FieldPayload, FieldAttempts}
	}

	for _, f := range fields {
		switch f {
		case FieldOperationID:
			if op.ID == "" {
				return ErrEmptyOperationID
			}
		case FieldKey:
			if op.Key == "" {
				return ErrEmptyKey
			}
		case FieldDataType:
			if op.DataType == "" {
				return ErrEmptyDataType
			}
		case FieldKind:
			switch op.Kind {
			case models.OperationCreate, models.OperationUpdate, models.OperationDelete:
			default:
				return ErrInvalidKind
			}
		case FieldPayload:
			if op.Kind == models.OperationDelete {
				if len(op.Payload) != 0 {
					return ErrUnexpectedPayload
				}
				continue
			}
			if !json.Valid(op.Payload) {
				return ErrInvalidPayload
			}
		case FieldAttempts:
			if op.Attempts < 0 || (op.MaxAttempts > 0 && op.Attempts > op.MaxAttempts) {
				return ErrInvalidAttempts
			}
		default:
			return ErrUnknownField
		}
	}

	return nil
}
