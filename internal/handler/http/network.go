// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package http

import (
	"encoding/json"
	"net/http"

	"github.com/MKhiriev/go-offline-keeper/internal/app"
	"github.com/MKhiriev/go-offline-keeper/internal/logger"
	"github.com/MKhiriev/go-offline-keeper/internal/utils"
)

// networkEvent is the body of PUT /api/network. Absent fields are left
// unchanged.
type networkEvent struct {
	Online         *bool  `json:"online"`
	ConnectionType string `json:"connection_type"`
}

func (h *Handler) getNetwork(w http.ResponseWriter, r *http.Request) {
	if h.network == nil {
		http.Error(w, ErrNetworkControlDisabled.Error(), http.StatusNotImplemented)
		return
	}
	utils.WriteJSON(w, h.network.State(), http.StatusOK)
}

func (h *Handler) setNetwork(w http.ResponseWriter, r *http.Request) {
	log := logger.FromRequest(r)

	if h.network == nil {
		http.Error(w, ErrNetworkControlDisabled.Error(), http.StatusNotImplemented)
		return
	}

	var event networkEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		log.Err(err).Str("func", "*Handler.setNetwork").Msg("Invalid JSON was passed")
		http.Error(w, app.MsgInvalidDataProvided, http.StatusBadRequest)
		return
	}

	if event.ConnectionType != "" {
		if err := h.network.SetConnectionType(event.ConnectionType); err != nil {
			log.Err(err).Str("func", "*Handler.setNetwork").Msg("unknown connection type")
			writeError(w, r, err)
			return
		}
	}
	if event.Online != nil {
		h.network.SetOnline(*event.Online)
	}

	utils.WriteJSON(w, h.network.State(), http.StatusOK)
}
