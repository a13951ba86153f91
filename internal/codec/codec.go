// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package codec compresses serialized cache payloads above a size threshold.
//
// Payloads below the threshold, and payloads that do not shrink, are stored
// as-is with Compressed=false. Decompress is the exact inverse of Compress
// and returns uncompressed payloads unchanged.
package codec

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"github.com/MKhiriev/go-offline-keeper/models"
)

// Supported algorithms.
const (
	AlgorithmGzip    = "gzip"
	AlgorithmDeflate = "deflate"
	AlgorithmZstd    = "zstd"
)

// DefaultThreshold is used when a non-positive threshold is configured.
const DefaultThreshold = 1024

// Codec compresses and decompresses payloads with one configured algorithm.
// Decompress understands every supported algorithm regardless of the
// configured one, so changing the algorithm keeps old entries readable.
type Codec struct {
	threshold int
	algorithm string

	zstdOnce sync.Once
	zstdEnc  *zstd.Encoder
	zstdDec  *zstd.Decoder
	zstdErr  error
}

// New returns a Codec compressing payloads of threshold bytes or more with
// algorithm.
func New(threshold int, algorithm string) (*Codec, error) {
	switch algorithm {
	case AlgorithmGzip, AlgorithmDeflate, AlgorithmZstd:
	case "":
		algorithm = AlgorithmGzip
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, algorithm)
	}
	if threshold <= 0 {
		threshold = DefaultThreshold
	}

	return &Codec{threshold: threshold, algorithm: algorithm}, nil
}

// Threshold returns the size at and above which payloads are compressed.
func (c *Codec) Threshold() int {
	return c.threshold
}

// Compress wraps data into a CompressedPayload.
func (c *Codec) Compress(data []byte) (models.CompressedPayload, error) {
	plain := models.CompressedPayload{
		Payload:        data,
		OriginalSize:   len(data),
		CompressedSize: len(data),
	}
	if len(data) < c.threshold {
		return plain, nil
	}

	out, err := c.encode(c.algorithm, data)
	if err != nil {
		return models.CompressedPayload{}, fmt.Errorf("%w: %s: %w", ErrCompress, c.algorithm, err)
	}
	if len(out) >= len(data) {
		return plain, nil
	}

	return models.CompressedPayload{
		Payload:        out,
		Compressed:     true,
		Algorithm:      c.algorithm,
		OriginalSize:   len(data),
		CompressedSize: len(out),
	}, nil
}

// Decompress reverses Compress.
func (c *Codec) Decompress(p models.CompressedPayload) ([]byte, error) {
	if !p.Compressed {
		return p.Payload, nil
	}

	out, err := c.decode(p.Algorithm, p.Payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrDecompress, p.Algorithm, err)
	}
	if p.OriginalSize > 0 && len(out) != p.OriginalSize {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrCorruptPayload, p.OriginalSize, len(out))
	}

	return out, nil
}

func (c *Codec) encode(algorithm string, data []byte) ([]byte, error) {
	var buf bytes.Buffer
	switch algorithm {
	case AlgorithmGzip:
		w := gzip.NewWriter(&buf)
		if _, err := w.Write(data); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
	case AlgorithmDeflate:
		w, err := flate.NewWriter(&buf, flate.DefaultCompression)
		if err != nil {
			return nil, err
		}
		if _, err = w.Write(data); err != nil {
			return nil, err
		}
		if err = w.Close(); err != nil {
			return nil, err
		}
	case AlgorithmZstd:
		enc, _, err := c.zstd()
		if err != nil {
			return nil, err
		}
		return enc.EncodeAll(data, nil), nil
	default:
		return nil, ErrUnknownAlgorithm
	}

	return buf.Bytes(), nil
}

func (c *Codec) decode(algorithm string, data []byte) ([]byte, error) {
	switch algorithm {
	case AlgorithmGzip:
		r, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		defer r.Close()
		return io.ReadAll(r)
	case AlgorithmDeflate:
		r := flate.NewReader(bytes.NewReader(data))
		defer r.Close()
		return io.ReadAll(r)
	case AlgorithmZstd:
		_, dec, err := c.zstd()
		if err != nil {
			return nil, err
		}
		return dec.DecodeAll(data, nil)
	default:
		return nil, ErrUnknownAlgorithm
	}
}

// zstd lazily builds the shared zstd encoder and decoder; both are safe for
// concurrent EncodeAll/DecodeAll calls.
func (c *Codec) zstd() (*zstd.Encoder, *zstd.Decoder, error) {
	c.zstdOnce.Do(func() {
		c.zstdEnc, c.zstdErr = zstd.NewWriter(nil)
		if c.zstdErr != nil {
			return
		}
		c.zstdDec, c.zstdErr = zstd.NewReader(nil)
	})
	return c.zstdEnc, c.zstdDec, c.zstdErr
}
