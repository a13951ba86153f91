// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package adapter

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"
)

// mapHTTPError returns nil for 2xx responses. Any other status is wrapped
// with ErrTransient and, when known, a status sentinel.
func mapHTTPError(resp *resty.Response) error {
	if resp.StatusCode() >= http.StatusOK && resp.StatusCode() < http.StatusMultipleChoices {
		return nil
	}

	body := strings.TrimSpace(string(resp.Body()))

	var sentinel error
	switch resp.StatusCode() {
	case http.StatusBadRequest:
		sentinel = ErrBadRequest
	case http.StatusUnauthorized:
		sentinel = ErrUnauthorized
	case http.StatusForbidden:
		sentinel = ErrForbidden
	case http.StatusNotFound:
		sentinel = ErrNotFound
	case http.StatusInternalServerError:
		sentinel = ErrInternalServerError
	case http.StatusBadGateway:
		sentinel = ErrBadGateway
	case http.StatusServiceUnavailable:
		sentinel = ErrServiceUnavailable
	default:
		if body == "" {
			body = http.StatusText(resp.StatusCode())
		}
		return fmt.Errorf("%w: http %d: %s", ErrTransient, resp.StatusCode(), body)
	}

	return fmt.Errorf("%w: %w: %s", ErrTransient, sentinel, body)
}
