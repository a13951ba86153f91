// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package config

import "time"

func defaultConfig() *StructuredConfig {
	return &StructuredConfig{
		App: App{
			TokenIssuer: "keeperd",
			Version:     "dev",
			TokenTTL:    24 * time.Hour,
		},
		Storage: Storage{
			Backend:    BackendSQLite,
			DB:         DB{DSN: "keeper.db"},
			Files:      Files{Path: "keeper.json"},
			MaxEntries: 1000,
		},
		Server: Server{
			HTTPAddress:    "localhost:8081",
			RequestTimeout: 30 * time.Second,
		},
		Adapter: Adapter{
			HTTPAddress:    "http://localhost:8080",
			RequestTimeout: 30 * time.Second,
			HealthPath:     "/api/health",
		},
		Sync: Sync{
			MaxAttempts:          3,
			MaxQueueSize:         1000,
			CompressionThreshold: 1024,
			CompressionAlgorithm: "gzip",
		},
		Workers: Workers{
			ProbeInterval: 30 * time.Second,
			SettleDelay:   time.Second,
			FlushTimeout:  5 * time.Second,
		},
	}
}
