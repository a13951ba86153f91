// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package main

import (
	"context"
	"fmt"

	"github.com/MKhiriev/go-offline-keeper/internal/adapter"
	"github.com/MKhiriev/go-offline-keeper/internal/codec"
	"github.com/MKhiriev/go-offline-keeper/internal/config"
	"github.com/MKhiriev/go-offline-keeper/internal/conflict"
	"github.com/MKhiriev/go-offline-keeper/internal/handler"
	"github.com/MKhiriev/go-offline-keeper/internal/logger"
	"github.com/MKhiriev/go-offline-keeper/internal/network"
	"github.com/MKhiriev/go-offline-keeper/internal/policy"
	"github.com/MKhiriev/go-offline-keeper/internal/queue"
	"github.com/MKhiriev/go-offline-keeper/internal/server"
	"github.com/MKhiriev/go-offline-keeper/internal/service"
	"github.com/MKhiriev/go-offline-keeper/internal/store"
	"github.com/MKhiriev/go-offline-keeper/internal/utils"
	"github.com/MKhiriev/go-offline-keeper/internal/workers"
	"github.com/MKhiriev/go-offline-keeper/models"
)

var (
	buildVersion string
	buildDate    string
	buildCommit  string
)

func main() {
	printBuildInfo()

	cfg, err := config.GetStructuredConfig()
	if err != nil {
		logger.NewLogger("keeperd").Fatal().Err(err).Msg("error getting configs")
	}

	log := logger.NewLogger("keeperd")
	if cfg.Log.File != "" {
		log = logger.NewFileLogger("keeperd", logger.FileOptions{Path: cfg.Log.File})
	}

	log.Debug().Any("config", cfg).Msg("received configs")

	if cfg.App.IssueTokenFor != "" {
		token, err := utils.GenerateJWTToken(cfg.App.TokenIssuer, cfg.App.IssueTokenFor, cfg.App.TokenTTL, cfg.App.TokenSignKey)
		if err != nil {
			log.Fatal().Err(err).Msg("error issuing token")
		}
		fmt.Println(token.SignedString)
		return
	}

	ctx := context.Background()

	kv, err := store.NewKVStorage(ctx, cfg.Storage, log.WithComponent("storage"))
	if err != nil {
		log.Fatal().Err(err).Msg("error creating storage")
	}
	defer func() {
		if err := kv.Close(); err != nil {
			log.Err(err).Msg("error closing storage")
		}
	}()

	payloadCodec, err := codec.New(cfg.Sync.CompressionThreshold, cfg.Sync.CompressionAlgorithm)
	if err != nil {
		log.Fatal().Err(err).Msg("error creating codec")
	}

	clock := utils.SystemClock{}
	ids := utils.NewUUIDGenerator()

	remote, err := adapter.NewHTTPRemoteAuthority(cfg.Adapter, clock, log.WithComponent("adapter"))
	if err != nil {
		log.Fatal().Err(err).Msg("error creating remote adapter")
	}

	monitor := network.NewMonitor(remote, network.Options{
		ProbeInterval:   cfg.Workers.ProbeInterval,
		SettleDelay:     cfg.Workers.SettleDelay,
		InitiallyOnline: true,
	}, log.WithComponent("network"))

	components := service.Components{
		KV:        kv,
		Cache:     store.NewCacheStore(kv, payloadCodec, clock, cfg.Storage.MaxEntries, log.WithComponent("cache")),
		Queue:     queue.New(kv, cfg.Sync.MaxQueueSize, log.WithComponent("queue")),
		Conflicts: conflict.NewRegistry(kv, clock, ids, log.WithComponent("conflicts")),
		Policies:  policy.DefaultTable().With(cfg.DataTypePolicies()),
		Remote:    remote,
		Network:   monitor,
		Clock:     clock,
		IDs:       ids,
	}

	buildInfo := models.NewAppBuildInfo(buildVersion, buildDate, buildCommit)
	services, err := service.NewServices(components, monitor, buildInfo, *cfg, log.WithComponent("sync-engine"))
	if err != nil {
		log.Fatal().Err(err).Msg("error creating services")
	}

	if err = services.Restore(ctx); err != nil {
		log.Fatal().Err(err).Msg("error restoring persisted state")
	}

	handlers, err := handler.NewHandlers(services, monitor, *cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("error creating handlers")
	}

	bg := workers.New(log.WithComponent("workers")).
		Add("network-probe", monitor).
		Add("sync-job", workers.SyncJob(services.SyncJob))

	srv, err := server.NewServer(handlers, bg, cfg.Server, log)
	if err != nil {
		log.Fatal().Err(err).Msg("error creating server")
	}

	srv.RunServer()
	services.Wait()
}

func printBuildInfo() {
	if buildVersion == "" {
		buildVersion = "N/A"
	}

	if buildDate == "" {
		buildDate = "N/A"
	}

	if buildCommit == "" {
		buildCommit = "N/A"
	}

	fmt.Printf("Build version: %s\n", buildVersion)
	fmt.Printf("Build date: %s\n", buildDate)
	fmt.Printf("Build commit: %s\n", buildCommit)
}
