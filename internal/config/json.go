// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// StructuredJSONConfig is the on-disk shape of the JSON config file.
type StructuredJSONConfig struct {
	App struct {
		TokenSignKey string `json:"token_sign_key"`
		TokenIssuer  string `json:"token_issuer"`
		Version      string `json:"version"`
		TokenTTL     Duration `json:"token_ttl"`
	} `json:"app,omitempty"`

	Storage struct {
		Backend string `json:"backend"`
		DB      struct {
			DSN string `json:"dsn"`
		} `json:"db,omitempty"`
		Files struct {
			Path string `json:"path"`
		} `json:"files,omitempty"`
		MaxEntries int `json:"max_entries"`
	} `json:"storage,omitempty"`

	Server struct {
		HTTPAddress    string   `json:"http_address"`
		RequestTimeout Duration `json:"request_timeout"`
	} `json:"server,omitempty"`

	Adapter struct {
		HTTPAddress    string   `json:"http_address"`
		RequestTimeout Duration `json:"request_timeout"`
		HealthPath     string   `json:"health_path"`
		Token          string   `json:"token"`
	} `json:"adapter,omitempty"`

	Sync struct {
		MaxAttempts          int    `json:"max_attempts"`
		MaxQueueSize         int    `json:"max_queue_size"`
		CompressionThreshold int    `json:"compression_threshold"`
		CompressionAlgorithm string `json:"compression_algorithm"`
	} `json:"sync,omitempty"`

	Workers struct {
		ProbeInterval Duration `json:"probe_interval"`
		SettleDelay   Duration `json:"settle_delay"`
		FlushTimeout  Duration `json:"flush_timeout"`
	} `json:"workers,omitempty"`

	Log struct {
		File string `json:"file"`
	} `json:"log,omitempty"`

	Policies map[string]Policy `json:"policies,omitempty"`
}

func parseJSON(jsonFilePath string) (*StructuredConfig, error) {
	jsonFile, err := os.Open(jsonFilePath)
	if err != nil {
		return nil, fmt.Errorf("error reading a json file: %w", err)
	}
	defer jsonFile.Close()

	var jsonCfg StructuredJSONConfig
	if err := json.NewDecoder(jsonFile).Decode(&jsonCfg); err != nil {
		return nil, fmt.Errorf("error decoding json configs: %w", err)
	}

	cfg := &StructuredConfig{
		App: App{
			TokenSignKey: jsonCfg.App.TokenSignKey,
			TokenIssuer:  jsonCfg.App.TokenIssuer,
			Version:      jsonCfg.App.Version,
			TokenTTL:     time.Duration(jsonCfg.App.TokenTTL),
		},
		Storage: Storage{
			Backend:    jsonCfg.Storage.Backend,
			DB:         DB{DSN: jsonCfg.Storage.DB.DSN},
			Files:      Files{Path: jsonCfg.Storage.Files.Path},
			MaxEntries: jsonCfg.Storage.MaxEntries,
		},
		Server: Server{
			HTTPAddress:    jsonCfg.Server.HTTPAddress,
			RequestTimeout: time.Duration(jsonCfg.Server.RequestTimeout),
		},
		Adapter: Adapter{
			HTTPAddress:    jsonCfg.Adapter.HTTPAddress,
			RequestTimeout: time.Duration(jsonCfg.Adapter.RequestTimeout),
			HealthPath:     jsonCfg.Adapter.HealthPath,
			Token:          jsonCfg.Adapter.Token,
		},
		Sync: Sync{
			MaxAttempts:          jsonCfg.Sync.MaxAttempts,
			MaxQueueSize:         jsonCfg.Sync.MaxQueueSize,
			CompressionThreshold: jsonCfg.Sync.CompressionThreshold,
			CompressionAlgorithm: jsonCfg.Sync.CompressionAlgorithm,
		},
		Workers: Workers{
			ProbeInterval: time.Duration(jsonCfg.Workers.ProbeInterval),
			SettleDelay:   time.Duration(jsonCfg.Workers.SettleDelay),
			FlushTimeout:  time.Duration(jsonCfg.Workers.FlushTimeout),
		},
		Log:      Log{File: jsonCfg.Log.File},
		Policies: jsonCfg.Policies,
	}

	return cfg, nil
}

// Duration is a wrapper around time.Duration that supports JSON unmarshaling from strings like "1h", "30s"
type Duration time.Duration

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}

	switch value := v.(type) {
	case float64:
		*d = Duration(time.Duration(value))
		return nil
	case string:
		tmp, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		*d = Duration(tmp)
		return nil
	default:
		return json.Unmarshal(b, (*time.Duration)(d))
	}
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}
