// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package utils

import (
	"bytes"
	"encoding/hex"
	"encoding/json"

	"golang.org/x/crypto/blake2b"
)

// Fingerprint returns a hex BLAKE2b-256 digest of a JSON payload.
//
// The payload is canonicalised first (object keys sorted, insignificant
// whitespace dropped) so two encodings of the same value share a
// fingerprint. Payloads that are not valid JSON are hashed verbatim.
func Fingerprint(payload []byte) string {
	sum := blake2b.Sum256(canonicalJSON(payload))
	return hex.EncodeToString(sum[:])
}

// SamePayload reports whether a and b encode the same JSON value.
func SamePayload(a, b []byte) bool {
	if len(a) == 0 || len(b) == 0 {
		return len(a) == len(b)
	}
	return Fingerprint(a) == Fingerprint(b)
}

func canonicalJSON(payload []byte) []byte {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 {
		return trimmed
	}

	var v any
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return trimmed
	}

	out, err := json.Marshal(v)
	if err != nil {
		return trimmed
	}
	return out
}
