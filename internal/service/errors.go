// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"errors"

	"github.com/MKhiriev/go-offline-keeper/internal/validators"
)

var (
	// ErrDataUnavailable is returned by GetData when no source allowed by
	// the data type's strategy yields a value.
	ErrDataUnavailable = errors.New("data unavailable")

	ErrInvalidPayload  = validators.ErrInvalidPayload
	ErrEmptyKey        = validators.ErrEmptyKey
	ErrUnknownStrategy = errors.New("unknown read strategy")

	ErrVersionIsNotSpecified = errors.New("app version is not specified")
)
