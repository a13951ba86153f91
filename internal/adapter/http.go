// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/MKhiriev/go-offline-keeper/internal/config"
	"github.com/MKhiriev/go-offline-keeper/internal/logger"
	"github.com/MKhiriev/go-offline-keeper/internal/utils"
	"github.com/MKhiriev/go-offline-keeper/models"
)

// Headers attached to every sent operation.
const (
	HeaderOperationID   = "X-Operation-ID"
	HeaderOperationKind = "X-Operation-Kind"
	HeaderOverwrite     = "X-Overwrite"
)

const dataPath = "/api/data/{type}/{key}"

// HTTPRemoteAuthority talks to the remote authority over REST:
//
//	PUT    /api/data/{type}/{key}  CREATE and UPDATE, body is the payload
//	DELETE /api/data/{type}/{key}
//	GET    /api/data/{type}/{key}  Fetch
//	GET    <health path>           Probe
//
// A 409 response is a conflict whose body is the server copy.
type HTTPRemoteAuthority struct {
	client     *utils.HTTPClient
	healthPath string
	clock      utils.Clock

	mu    sync.RWMutex
	token string

	logger *logger.Logger
}

// NewHTTPRemoteAuthority constructs an HTTP/REST [RemoteAuthority]. It
// normalises and validates the base URL from adapterCfg.HTTPAddress.
func NewHTTPRemoteAuthority(adapterCfg config.Adapter, clock utils.Clock, log *logger.Logger) (*HTTPRemoteAuthority, error) {
	baseURL, err := normalizeBaseURL(adapterCfg.HTTPAddress)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidBaseURL, err)
	}

	healthPath := adapterCfg.HealthPath
	if healthPath == "" {
		healthPath = "/api/health"
	}

	return &HTTPRemoteAuthority{
		client:     utils.NewHTTPClient(baseURL, adapterCfg.RequestTimeout),
		healthPath: healthPath,
		clock:      clock,
		token:      strings.TrimSpace(adapterCfg.Token),
		logger:     log,
	}, nil
}

func normalizeBaseURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("empty address")
	}

	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("address must include host and scheme")
	}

	return strings.TrimRight(u.String(), "/"), nil
}

// SetToken replaces the bearer token used for subsequent requests.
func (h *HTTPRemoteAuthority) SetToken(token string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.token = strings.TrimSpace(token)
}

// Token returns the current bearer token.
func (h *HTTPRemoteAuthority) Token() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.token
}

// Send implements [RemoteAuthority].
func (h *HTTPRemoteAuthority) Send(ctx context.Context, op models.SyncOperation) models.SendResult {
	req, err := h.authedRequest(ctx)
	if err != nil {
		return models.Failed(err)
	}

	req.SetPathParams(map[string]string{"type": op.DataType, "key": op.Key}).
		SetHeader(HeaderOperationID, op.ID).
		SetHeader(HeaderOperationKind, op.Kind.String())
	if op.Overwrite {
		req.SetHeader(HeaderOverwrite, "true")
	}

	var resp *resty.Response
	switch op.Kind {
	case models.OperationCreate, models.OperationUpdate:
		resp, err = req.
			SetHeader("Content-Type", "application/json").
			SetBody([]byte(op.Payload)).
			Put(dataPath)
	case models.OperationDelete:
		resp, err = req.Delete(dataPath)
	default:
		return models.Failed(fmt.Errorf("unsupported operation kind %s", op.Kind))
	}
	if err != nil {
		return models.Failed(fmt.Errorf("%w: send %s %s/%s: %w", ErrTransient, op.Kind, op.DataType, op.Key, err))
	}

	switch {
	case resp.StatusCode() == http.StatusConflict:
		return models.Conflicted(jsonBody(resp))
	case resp.StatusCode() == http.StatusNotFound && op.Kind == models.OperationDelete:
		return models.Succeeded(nil)
	}

	if err = mapHTTPError(resp); err != nil {
		h.logger.Debug().Err(err).
			Str("func", "HTTPRemoteAuthority.Send").
			Str("operation_id", op.ID).
			Int("status", resp.StatusCode()).
			Msg("remote rejected operation")
		return models.Failed(err)
	}

	return models.Succeeded(jsonBody(resp))
}

// Fetch implements [RemoteAuthority].
func (h *HTTPRemoteAuthority) Fetch(ctx context.Context, dataType, key string) (json.RawMessage, error) {
	req, err := h.authedRequest(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := req.
		SetPathParams(map[string]string{"type": dataType, "key": key}).
		SetHeader("Accept", "application/json").
		Get(dataPath)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch %s/%s: %w", ErrTransient, dataType, key, err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, dataType, key)
	}
	if err = mapHTTPError(resp); err != nil {
		return nil, err
	}

	body := jsonBody(resp)
	if body == nil {
		return nil, fmt.Errorf("%w: fetch %s/%s: response is not JSON", ErrTransient, dataType, key)
	}
	return body, nil
}

// Probe measures one round trip to the health endpoint.
func (h *HTTPRemoteAuthority) Probe(ctx context.Context) (time.Duration, error) {
	resp, err := h.client.R().SetContext(ctx).Get(h.healthPath)
	if err != nil {
		return 0, fmt.Errorf("%w: probe: %w", ErrTransient, err)
	}
	if err = mapHTTPError(resp); err != nil {
		return 0, err
	}
	return resp.Time(), nil
}

// authedRequest refuses to build a request with an expired token.
// Tokens that are not JWTs are sent as they are.
func (h *HTTPRemoteAuthority) authedRequest(ctx context.Context) (*resty.Request, error) {
	req := h.client.R().SetContext(ctx)

	token := h.Token()
	if token == "" {
		return req, nil
	}

	if exp, ok, err := utils.TokenExpiry(token); err == nil && ok && !h.clock.Now().Before(exp) {
		return nil, fmt.Errorf("%w: expired at %s", ErrTokenExpired, exp.Format(time.RFC3339))
	}

	return req.SetAuthToken(token), nil
}

// jsonBody returns the response body when it is valid, non-empty JSON.
func jsonBody(resp *resty.Response) json.RawMessage {
	body := resp.Body()
	if len(strings.TrimSpace(string(body))) == 0 || !json.Valid(body) {
		return nil
	}
	return json.RawMessage(body)
}
