// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package http

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/MKhiriev/go-offline-keeper/internal/metrics"
)

func (h *Handler) Init() *chi.Mux {
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Use(h.withTraceID)
	router.Use(h.withLogging)
	router.Use(metrics.Middleware)

	// promhttp negotiates its own compression
	router.Handle("/metrics", metrics.Handler())

	router.Group(func(r chi.Router) {
		r.Use(withGZip)

		r.Get("/api/version", h.getVersion)

		// routes with authorization
		r.Group(func(r chi.Router) {
			r.Use(h.withAuth)

			r.Get("/api/data/{type}/{key}", h.getData)
			r.Put("/api/data/{type}/{key}", h.setData)
			r.Delete("/api/data/{type}/{key}", h.deleteData)

			r.Post("/api/sync", h.triggerSync)
			r.Get("/api/status", h.getStatus)

			r.Get("/api/conflicts", h.getConflicts)
			r.Post("/api/conflicts/{id}/resolve", h.resolveConflict)

			r.Delete("/api/cache", h.clearCache)

			r.Get("/api/network", h.getNetwork)
			r.Put("/api/network", h.setNetwork)
		})
	})

	return router
}
