// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package network

import (
	"fmt"
	"strings"
	"time"

	"github.com/MKhiriev/go-offline-keeper/models"
)

// Connection type hints reported by the platform.
const (
	ConnectionEthernet = "ethernet"
	ConnectionWiFi     = "wifi"
	Connection4G       = "4g"
	Connection3G       = "3g"
	Connection2G       = "2g"
	ConnectionSlow2G   = "slow-2g"
)

var connectionQuality = map[string]models.Quality{
	ConnectionEthernet: models.QualityExcellent,
	ConnectionWiFi:     models.QualityExcellent,
	Connection4G:       models.QualityGood,
	Connection3G:       models.QualityPoor,
	Connection2G:       models.QualityVeryPoor,
	ConnectionSlow2G:   models.QualityVeryPoor,
}

var qualityParams = map[models.Quality]models.SyncParams{
	models.QualityExcellent: {BatchSize: 50, Timeout: 5 * time.Second},
	models.QualityGood:      {BatchSize: 20, Timeout: 10 * time.Second},
	models.QualityPoor:      {BatchSize: 5, Timeout: 20 * time.Second},
	models.QualityVeryPoor:  {BatchSize: 1, Timeout: 30 * time.Second},
	models.QualityOffline:   {BatchSize: 0, Timeout: 0},
}

// ClassifyLatency maps a probe round trip to a quality.
func ClassifyLatency(d time.Duration) models.Quality {
	switch {
	case d < 100*time.Millisecond:
		return models.QualityExcellent
	case d < 300*time.Millisecond:
		return models.QualityGood
	case d < time.Second:
		return models.QualityPoor
	default:
		return models.QualityVeryPoor
	}
}

// QualityFromConnectionType maps a platform connection type to a quality.
func QualityFromConnectionType(connectionType string) (models.Quality, error) {
	q, ok := connectionQuality[strings.ToLower(strings.TrimSpace(connectionType))]
	if !ok {
		return models.QualityOffline, fmt.Errorf("%w: %q", ErrUnknownConnectionType, connectionType)
	}
	return q, nil
}

// ParamsFor returns the batch size and per-call timeout for q. Better
// quality means larger batches and shorter timeouts.
func ParamsFor(q models.Quality) models.SyncParams {
	return qualityParams[q]
}
