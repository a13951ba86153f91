// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package policy holds the per-data-type sync policies. Looking up a data
// type without a policy is a configuration error and never falls back to a
// default.
package policy

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/MKhiriev/go-offline-keeper/models"
)

var (
	// ErrNoPolicy is returned for a data type without a registered policy.
	ErrNoPolicy = errors.New("no policy configured for data type")
	// ErrAmbiguousDataTypes is returned when one data type name followed
	// by "_" starts another, so their cache keys could collide.
	ErrAmbiguousDataTypes = errors.New("ambiguous data type names")
)

// Table is an immutable map from data type to policy.
type Table struct {
	policies map[string]models.DataTypePolicy
}

// NewTable copies policies into a Table.
func NewTable(policies map[string]models.DataTypePolicy) *Table {
	return &Table{policies: maps.Clone(policies)}
}

// Lookup returns the policy of dataType or ErrNoPolicy.
func (t *Table) Lookup(dataType string) (models.DataTypePolicy, error) {
	p, ok := t.policies[dataType]
	if !ok {
		return models.DataTypePolicy{}, fmt.Errorf("%w: %q", ErrNoPolicy, dataType)
	}
	return p, nil
}

// MustLookup is Lookup for data types known to be configured. It panics
// otherwise.
func (t *Table) MustLookup(dataType string) models.DataTypePolicy {
	p, err := t.Lookup(dataType)
	if err != nil {
		panic(err)
	}
	return p
}

// Validate checks that no data type name plus "_" prefixes another one.
func (t *Table) Validate() error {
	dataTypes := t.DataTypes()
	for _, a := range dataTypes {
		for _, b := range dataTypes {
			if a != b && strings.HasPrefix(b, a+"_") {
				return fmt.Errorf("%w: %q and %q", ErrAmbiguousDataTypes, a, b)
			}
		}
	}
	return nil
}

// DataTypes returns the configured data types in ascending order.
func (t *Table) DataTypes() []string {
	return slices.Sorted(maps.Keys(t.policies))
}

// With returns a copy of t where overrides replace or add policies.
func (t *Table) With(overrides map[string]models.DataTypePolicy) *Table {
	merged := maps.Clone(t.policies)
	if merged == nil {
		merged = make(map[string]models.DataTypePolicy, len(overrides))
	}
	maps.Copy(merged, overrides)
	return &Table{policies: merged}
}

// DefaultTable returns the policies of the application's data categories.
func DefaultTable() *Table {
	return NewTable(map[string]models.DataTypePolicy{
		"user_profile": {
			Strategy:           models.OfflineFirst,
			Priority:           models.High,
			SyncFrequency:      5 * time.Minute,
			CacheExpiry:        24 * time.Hour,
			ConflictResolution: models.Merge,
		},
		"user_settings": {
			Strategy:           models.OfflineFirst,
			Priority:           models.Medium,
			SyncFrequency:      10 * time.Minute,
			CacheExpiry:        7 * 24 * time.Hour,
			ConflictResolution: models.ClientWins,
		},
		"dashboard": {
			Strategy:           models.StaleWhileRevalidate,
			Priority:           models.Medium,
			SyncFrequency:      2 * time.Minute,
			CacheExpiry:        5 * time.Minute,
			ConflictResolution: models.ServerWins,
		},
		"chat_messages": {
			Strategy:           models.OnlineFirst,
			Priority:           models.High,
			CacheExpiry:        time.Hour,
			ConflictResolution: models.LastWriteWins,
		},
		"analytics_events": {
			Strategy:           models.CacheOnly,
			Priority:           models.Low,
			SyncFrequency:      15 * time.Minute,
			CacheExpiry:        30 * 24 * time.Hour,
			ConflictResolution: models.ClientWins,
		},
		"notifications": {
			Strategy:           models.NetworkOnly,
			Priority:           models.Medium,
			SyncFrequency:      time.Minute,
			ConflictResolution: models.ServerWins,
		},
		"verification": {
			Strategy:           models.NetworkOnly,
			Priority:           models.Critical,
			ConflictResolution: models.ServerWins,
		},
	})
}
