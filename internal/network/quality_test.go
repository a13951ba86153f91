// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package network

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MKhiriev/go-offline-keeper/models"
)

func TestClassifyLatency(t *testing.T) {
	tests := []struct {
		latency time.Duration
		want    models.Quality
	}{
		{0, models.QualityExcellent},
		{99 * time.Millisecond, models.QualityExcellent},
		{100 * time.Millisecond, models.QualityGood},
		{299 * time.Millisecond, models.QualityGood},
		{300 * time.Millisecond, models.QualityPoor},
		{999 * time.Millisecond, models.QualityPoor},
		{time.Second, models.QualityVeryPoor},
		{5 * time.Second, models.QualityVeryPoor},
	}

	for _, tt := range tests {
		t.Run(tt.latency.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyLatency(tt.latency))
		})
	}
}

func TestQualityFromConnectionType(t *testing.T) {
	tests := []struct {
		hint string
		want models.Quality
	}{
		{"ethernet", models.QualityExcellent},
		{"wifi", models.QualityExcellent},
		{"4g", models.QualityGood},
		{" 4G ", models.QualityGood},
		{"3g", models.QualityPoor},
		{"2g", models.QualityVeryPoor},
		{"slow-2g", models.QualityVeryPoor},
	}

	for _, tt := range tests {
		t.Run(tt.hint, func(t *testing.T) {
			got, err := QualityFromConnectionType(tt.hint)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := QualityFromConnectionType("carrier-pigeon")
	assert.ErrorIs(t, err, ErrUnknownConnectionType)
}

func TestParamsFor_MonotonicInQuality(t *testing.T) {
	ordered := []models.Quality{
		models.QualityVeryPoor,
		models.QualityPoor,
		models.QualityGood,
		models.QualityExcellent,
	}

	for i := 1; i < len(ordered); i++ {
		worse, better := ParamsFor(ordered[i-1]), ParamsFor(ordered[i])
		assert.Greater(t, better.BatchSize, worse.BatchSize, ordered[i].String())
		assert.Less(t, better.Timeout, worse.Timeout, ordered[i].String())
	}

	assert.Equal(t, models.SyncParams{}, ParamsFor(models.QualityOffline))
	assert.Equal(t, models.SyncParams{BatchSize: 50, Timeout: 5 * time.Second}, ParamsFor(models.QualityExcellent))
}
