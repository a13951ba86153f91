// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/MKhiriev/go-offline-keeper/internal/app"
	"github.com/MKhiriev/go-offline-keeper/internal/conflict"
	"github.com/MKhiriev/go-offline-keeper/internal/logger"
	"github.com/MKhiriev/go-offline-keeper/internal/network"
	"github.com/MKhiriev/go-offline-keeper/internal/policy"
	"github.com/MKhiriev/go-offline-keeper/internal/queue"
	"github.com/MKhiriev/go-offline-keeper/internal/service"
)

var errorStatusMap = map[error]int{
	service.ErrDataUnavailable:       http.StatusNotFound,
	service.ErrInvalidPayload:        http.StatusBadRequest,
	service.ErrEmptyKey:              http.StatusBadRequest,
	service.ErrUnknownStrategy:       http.StatusInternalServerError,
	service.ErrVersionIsNotSpecified: http.StatusInternalServerError,

	policy.ErrNoPolicy: http.StatusBadRequest,

	queue.ErrQueueFull:          http.StatusServiceUnavailable,
	queue.ErrInvalidOperation:   http.StatusInternalServerError,
	queue.ErrDuplicateOperation: http.StatusInternalServerError,

	conflict.ErrConflictNotFound:  http.StatusNotFound,
	conflict.ErrAlreadyResolved:   http.StatusConflict,
	conflict.ErrInvalidResolution: http.StatusBadRequest,

	network.ErrUnknownConnectionType: http.StatusBadRequest,

	ErrInvalidQueryParam:      http.StatusBadRequest,
	ErrBodyTooLarge:           http.StatusRequestEntityTooLarge,
	ErrNetworkControlDisabled: http.StatusNotImplemented,

	context.DeadlineExceeded: http.StatusGatewayTimeout,
}

// writeError answers with the status mapped from err. Unmapped failures are
// logged and reported without details.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFromError(err)
	if status == http.StatusInternalServerError {
		logger.FromRequest(r).Err(err).Msg("request failed")
		http.Error(w, app.MsgInternalServerError, status)
		return
	}
	http.Error(w, err.Error(), status)
}

func statusFromError(err error) int {
	for target, status := range errorStatusMap {
		if errors.Is(err, target) {
			return status
		}
	}
	return http.StatusInternalServerError
}
