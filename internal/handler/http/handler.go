// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package http

import (
	"github.com/MKhiriev/go-offline-keeper/internal/config"
	"github.com/MKhiriev/go-offline-keeper/internal/logger"
	"github.com/MKhiriev/go-offline-keeper/internal/service"
	"github.com/MKhiriev/go-offline-keeper/models"
)

// NetworkController feeds connectivity events into the network monitor.
type NetworkController interface {
	State() models.NetworkState
	SetOnline(online bool)
	SetConnectionType(connectionType string) error
}

type Handler struct {
	services *service.Services
	network  NetworkController

	// tokens are checked only when a sign key is configured
	tokenSignKey string
	tokenIssuer  string

	logger *logger.Logger
}

func NewHandler(services *service.Services, network NetworkController, cfg config.App, logger *logger.Logger) *Handler {
	logger.Info().Msg("http handler created")
	return &Handler{
		services:     services,
		network:      network,
		tokenSignKey: cfg.TokenSignKey,
		tokenIssuer:  cfg.TokenIssuer,
		logger:       logger,
	}
}
