// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package config

import (
	"time"

	"github.com/MKhiriev/go-offline-keeper/models"
)

// Storage backends accepted by [Storage.Backend].
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// StructuredConfig is the top-level configuration container for the
// keeper daemon. It aggregates all sub-configurations and is populated by
// merging defaults, environment variables, command-line flags, and an
// optional JSON file.
//
// Struct tags:
//   - envPrefix: prefix applied to all nested env tag lookups (caarlos0/env).
//   - env: direct environment variable name for scalar fields.
type StructuredConfig struct {
	// App holds token settings for the local control API and the
	// application version.
	App App `envPrefix:"APP_"`

	// Storage selects and configures the durable key/value backend that
	// holds the cache, the sync queue, conflicts and metrics.
	Storage Storage `envPrefix:"STORAGE_"`

	// Server holds the listen address of the local control API.
	Server Server `envPrefix:"SERVER_"`

	// Adapter holds the location of the remote authority.
	Adapter Adapter `envPrefix:"ADAPTER_"`

	// Sync holds sync engine limits and codec settings.
	Sync Sync `envPrefix:"SYNC_"`

	// Workers holds background worker timings.
	Workers Workers `envPrefix:"WORKERS_"`

	// Log holds log output settings.
	Log Log `envPrefix:"LOG_"`

	// Policies overrides or extends the built-in data-type policy table.
	// JSON only.
	Policies map[string]Policy

	// JSONFilePath is the optional path to a JSON configuration file.
	// Populated via the CONFIG environment variable or the -c / -config flag.
	JSONFilePath string `env:"CONFIG"`
}

// App holds application-level configuration values.
type App struct {
	// TokenSignKey signs and verifies bearer tokens of the control API.
	// Empty disables authentication.
	// Env: APP_TOKEN_SIGN_KEY
	TokenSignKey string `env:"TOKEN_SIGN_KEY"`

	// TokenIssuer is the expected "iss" claim of control API tokens.
	// Env: APP_TOKEN_ISSUER
	TokenIssuer string `env:"TOKEN_ISSUER"`

	// Version is exposed via the /api/version endpoint.
	// Env: APP_VERSION
	Version string `env:"VERSION"`

	// TokenTTL is the lifetime of tokens minted with -issue-token.
	// Env: APP_TOKEN_TTL
	TokenTTL time.Duration `env:"TOKEN_TTL"`

	// IssueTokenFor makes keeperd print a control API token for the
	// named caller and exit instead of starting the daemon. Flag only.
	IssueTokenFor string
}

// Storage groups the configuration of the durable key/value backend.
type Storage struct {
	// Backend is one of memory, file, sqlite or postgres.
	// Env: STORAGE_BACKEND
	Backend string `env:"BACKEND"`

	// DB holds the relational database connection settings.
	DB DB `envPrefix:"DB_"`

	// Files holds the JSON file backend settings.
	Files Files `envPrefix:"FILES_"`

	// MaxEntries bounds the number of cache entries. Zero disables eviction.
	// Env: STORAGE_MAX_ENTRIES
	MaxEntries int `env:"MAX_ENTRIES"`
}

// DB holds connection settings for the SQL backends.
type DB struct {
	// DSN is a SQLite file path or a PostgreSQL connection string.
	// Env: STORAGE_DB_DSN
	DSN string `env:"DSN"`
}

// Files holds settings for the JSON file backend.
type Files struct {
	// Path is the JSON file the store is persisted to.
	// Env: STORAGE_FILES_PATH
	Path string `env:"PATH"`
}

// Server holds settings of the local control API.
type Server struct {
	// HTTPAddress is the TCP address in "host:port" form.
	// Env: SERVER_ADDRESS
	HTTPAddress string `env:"ADDRESS"`

	// RequestTimeout bounds a single inbound request.
	// Env: SERVER_REQUEST_TIMEOUT
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT"`
}

// Adapter holds the location of the remote authority.
type Adapter struct {
	// HTTPAddress is the base URL of the remote authority
	// (e.g. "https://api.example.com").
	// Env: ADAPTER_ADDRESS
	HTTPAddress string `env:"ADDRESS"`

	// RequestTimeout is the upper bound for a single outbound call. The
	// sync engine may use a shorter, quality-adapted timeout.
	// Env: ADAPTER_REQUEST_TIMEOUT
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT"`

	// HealthPath is probed to estimate link latency.
	// Env: ADAPTER_HEALTH_PATH
	HealthPath string `env:"HEALTH_PATH"`

	// Token is a bearer token sent with every outbound call.
	// Env: ADAPTER_TOKEN
	Token string `env:"TOKEN"`
}

// Sync holds sync engine settings.
type Sync struct {
	// MaxAttempts is the default retry limit of an operation.
	// Env: SYNC_MAX_ATTEMPTS
	MaxAttempts int `env:"MAX_ATTEMPTS"`

	// MaxQueueSize bounds the sync queue. Zero means unbounded.
	// Env: SYNC_MAX_QUEUE_SIZE
	MaxQueueSize int `env:"MAX_QUEUE_SIZE"`

	// CompressionThreshold is the serialized size in bytes at and above
	// which cache payloads are compressed.
	// Env: SYNC_COMPRESSION_THRESHOLD
	CompressionThreshold int `env:"COMPRESSION_THRESHOLD"`

	// CompressionAlgorithm is gzip, deflate or zstd.
	// Env: SYNC_COMPRESSION_ALGORITHM
	CompressionAlgorithm string `env:"COMPRESSION_ALGORITHM"`
}

// Workers holds background worker timings.
type Workers struct {
	// ProbeInterval is how often link latency is probed.
	// Env: WORKERS_PROBE_INTERVAL
	ProbeInterval time.Duration `env:"PROBE_INTERVAL"`

	// SettleDelay is waited after connectivity returns before syncing.
	// Env: WORKERS_SETTLE_DELAY
	SettleDelay time.Duration `env:"SETTLE_DELAY"`

	// FlushTimeout bounds the final flush on shutdown.
	// Env: WORKERS_FLUSH_TIMEOUT
	FlushTimeout time.Duration `env:"FLUSH_TIMEOUT"`
}

// Log holds log output settings.
type Log struct {
	// File is a rotated log file. Empty logs to stdout.
	// Env: LOG_FILE
	File string `env:"FILE"`
}

// Policy is the configured form of [models.DataTypePolicy].
type Policy struct {
	Strategy           models.Strategy           `json:"strategy"`
	Priority           models.Priority           `json:"priority"`
	SyncFrequency      Duration                  `json:"sync_frequency"`
	CacheExpiry        Duration                  `json:"cache_expiry"`
	ConflictResolution models.ConflictResolution `json:"conflict_resolution"`
	MaxAttempts        int                       `json:"max_attempts"`
}

// DataTypePolicy converts p to the model used by the policy table.
func (p Policy) DataTypePolicy() models.DataTypePolicy {
	return models.DataTypePolicy{
		Strategy:           p.Strategy,
		Priority:           p.Priority,
		SyncFrequency:      time.Duration(p.SyncFrequency),
		CacheExpiry:        time.Duration(p.CacheExpiry),
		ConflictResolution: p.ConflictResolution,
		MaxAttempts:        p.MaxAttempts,
	}
}

// DataTypePolicies returns the configured policy overrides keyed by data
// type.
func (c *StructuredConfig) DataTypePolicies() map[string]models.DataTypePolicy {
	policies := make(map[string]models.DataTypePolicy, len(c.Policies))
	for dataType, p := range c.Policies {
		policies[dataType] = p.DataTypePolicy()
	}
	return policies
}

// GetStructuredConfig loads, merges, and validates the daemon
// configuration from all available sources in the following priority order
// (last source wins for non-zero fields):
//  0. Built-in defaults
//  1. Environment variables
//  2. Command-line flags
//  3. JSON file (path resolved from sources 1 and 2)
//
// Returns a fully populated *StructuredConfig or an error if any source
// fails to load or the final config fails validation.
func GetStructuredConfig() (*StructuredConfig, error) {
	return newConfigBuilder().
		withDefaults().
		withEnv().
		withFlags().
		withJSON().
		build()
}
