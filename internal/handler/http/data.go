// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/MKhiriev/go-offline-keeper/internal/logger"
	"github.com/MKhiriev/go-offline-keeper/internal/utils"
	"github.com/MKhiriev/go-offline-keeper/models"
)

// maxPayloadSize bounds request bodies carrying a payload.
const maxPayloadSize = 8 << 20

// localTimestampHeader carries the time of a local write when the caller
// made it earlier than the request.
const localTimestampHeader = "X-Local-Timestamp"

func (h *Handler) getData(w http.ResponseWriter, r *http.Request) {
	log := logger.FromRequest(r)
	dataType, key := chi.URLParam(r, "type"), chi.URLParam(r, "key")

	var opts models.GetOptions
	var err error
	if opts.CacheOnly, err = boolQuery(r, "cache_only"); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if opts.ForceNetwork, err = boolQuery(r, "force_network"); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	payload, err := h.services.DataService.GetData(r.Context(), key, dataType, opts)
	if err != nil {
		log.Err(err).Str("func", "*Handler.getData").Str("data_type", dataType).Str("key", key).Msg("error reading data")
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(payload)
}

func (h *Handler) setData(w http.ResponseWriter, r *http.Request) {
	log := logger.FromRequest(r)
	dataType, key := chi.URLParam(r, "type"), chi.URLParam(r, "key")

	var opts models.SetOptions
	var err error
	if opts.Immediate, err = boolQuery(r, "immediate"); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if ts := r.Header.Get(localTimestampHeader); ts != "" {
		if opts.Timestamp, err = time.Parse(time.RFC3339Nano, ts); err != nil {
			http.Error(w, fmt.Sprintf("%s: %s", ErrInvalidQueryParam, localTimestampHeader), http.StatusBadRequest)
			return
		}
	}

	payload, err := readPayload(w, r)
	if err != nil {
		log.Err(err).Str("func", "*Handler.setData").Msg("failed to read request body")
		writeError(w, r, err)
		return
	}

	ack, err := h.services.DataService.SetData(r.Context(), key, dataType, payload, opts)
	if err != nil {
		log.Err(err).Str("func", "*Handler.setData").Str("data_type", dataType).Str("key", key).Msg("error writing data")
		writeError(w, r, err)
		return
	}

	utils.WriteJSON(w, ack, ackStatus(ack))
}

func (h *Handler) deleteData(w http.ResponseWriter, r *http.Request) {
	log := logger.FromRequest(r)
	dataType, key := chi.URLParam(r, "type"), chi.URLParam(r, "key")

	immediate, err := boolQuery(r, "immediate")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ack, err := h.services.DataService.DeleteData(r.Context(), key, dataType, models.DeleteOptions{Immediate: immediate})
	if err != nil {
		log.Err(err).Str("func", "*Handler.deleteData").Str("data_type", dataType).Str("key", key).Msg("error deleting data")
		writeError(w, r, err)
		return
	}

	utils.WriteJSON(w, ack, ackStatus(ack))
}

func (h *Handler) clearCache(w http.ResponseWriter, r *http.Request) {
	log := logger.FromRequest(r)

	dataTypes := r.URL.Query()["data_type"]
	if err := h.services.DataService.ClearCache(r.Context(), dataTypes...); err != nil {
		log.Err(err).Str("func", "*Handler.clearCache").Strs("data_types", dataTypes).Msg("error clearing cache")
		writeError(w, r, err)
		return
	}

	caller, _ := utils.GetCallerFromContext(r.Context())
	log.Info().Str("caller", caller).Strs("data_types", dataTypes).Msg("cache cleared")
	w.WriteHeader(http.StatusNoContent)
}

// ackStatus is 200 once the remote authority has the change and 202 while
// it is only queued.
func ackStatus(ack models.Ack) int {
	if ack.Synced {
		return http.StatusOK
	}
	return http.StatusAccepted
}

func boolQuery(r *http.Request, name string) (bool, error) {
	value := r.URL.Query().Get(name)
	if value == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("%w: %s", ErrInvalidQueryParam, name)
	}
	return b, nil
}

func readPayload(w http.ResponseWriter, r *http.Request) (json.RawMessage, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxPayloadSize))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, ErrBodyTooLarge
		}
		return nil, err
	}
	return body, nil
}
