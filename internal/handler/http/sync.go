// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MKhiriev/go-offline-keeper/internal/app"
	"github.com/MKhiriev/go-offline-keeper/internal/logger"
	"github.com/MKhiriev/go-offline-keeper/internal/utils"
	"github.com/MKhiriev/go-offline-keeper/models"
)

func (h *Handler) triggerSync(w http.ResponseWriter, r *http.Request) {
	log := logger.FromRequest(r)

	dataTypes := r.URL.Query()["data_type"]
	report, err := h.services.SyncService.TriggerSync(r.Context(), dataTypes...)
	if err != nil {
		log.Err(err).Str("func", "*Handler.triggerSync").Strs("data_types", dataTypes).Msg("error triggering sync")
		writeError(w, r, err)
		return
	}

	status := http.StatusOK
	if report.Skipped {
		log.Info().Strs("data_types", dataTypes).Msg(app.MsgSyncAlreadyRunning)
		status = http.StatusAccepted
	}
	utils.WriteJSON(w, report, status)
}

func (h *Handler) getStatus(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSON(w, h.services.SyncService.GetSyncStatus(r.Context()), http.StatusOK)
}

func (h *Handler) getConflicts(w http.ResponseWriter, r *http.Request) {
	pendingOnly, err := boolQuery(r, "pending")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	conflicts := h.services.SyncService.GetConflicts(r.Context())
	if pendingOnly {
		pending := make([]models.Conflict, 0, len(conflicts))
		for _, c := range conflicts {
			if !c.Resolved {
				pending = append(pending, c)
			}
		}
		conflicts = pending
	}
	if conflicts == nil {
		conflicts = []models.Conflict{}
	}

	utils.WriteJSON(w, conflicts, http.StatusOK)
}

func (h *Handler) resolveConflict(w http.ResponseWriter, r *http.Request) {
	log := logger.FromRequest(r)
	id := chi.URLParam(r, "id")

	payload, err := readPayload(w, r)
	if err != nil {
		log.Err(err).Str("func", "*Handler.resolveConflict").Msg("failed to read request body")
		writeError(w, r, err)
		return
	}

	if err = h.services.SyncService.ResolveConflict(r.Context(), id, payload); err != nil {
		log.Err(err).Str("func", "*Handler.resolveConflict").Str("conflict_id", id).Msg("error resolving conflict")
		writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
