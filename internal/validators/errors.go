// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package validators

import "errors"

var (
	ErrUnsupportedType = errors.New("unsupported type for validation")
	ErrUnknownField    = errors.New("unknown field for validation")

	ErrEmptyKey          = errors.New("empty key")
	ErrEmptyDataType     = errors.New("empty data type")
	ErrInvalidPayload    = errors.New("payload is not valid JSON")
	ErrEmptyOperationID  = errors.New("empty operation id")
	ErrInvalidKind       = errors.New("invalid operation kind")
	ErrInvalidAttempts   = errors.New("invalid attempt counters")
	ErrUnexpectedPayload = errors.New("payload must be empty for a delete")
)
