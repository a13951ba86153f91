// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package codec

import "errors"

var (
	ErrUnknownAlgorithm = errors.New("unknown compression algorithm")
	ErrCompress         = errors.New("compression failed")
	ErrDecompress       = errors.New("decompression failed")
	ErrCorruptPayload   = errors.New("corrupt compressed payload")
)
