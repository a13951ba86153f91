// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package network tracks connectivity to the remote authority and estimates
// link quality.
//
// Quality comes from latency probes or from connection type hints. A probe
// failure takes the monitor offline. Every offline to online transition
// schedules the reconnect handlers after a settle delay; going offline again
// before the delay elapses cancels them.
package network

import (
	"context"
	"sync"
	"time"

	"github.com/MKhiriev/go-offline-keeper/internal/logger"
	"github.com/MKhiriev/go-offline-keeper/models"
)

//go:generate mockgen -source=monitor.go -destination=../mock/prober_mock.go -package=mock

// Prober measures the round trip to the remote authority.
type Prober interface {
	Probe(ctx context.Context) (time.Duration, error)
}

// ReconnectHandler runs after connectivity comes back and settles.
type ReconnectHandler func(ctx context.Context)

// Options configure a Monitor.
type Options struct {
	ProbeInterval time.Duration
	SettleDelay   time.Duration
	// InitiallyOnline is the state before the first probe or event.
	InitiallyOnline bool
}

// Monitor is safe for concurrent use.
type Monitor struct {
	prober Prober
	opts   Options
	logger *logger.Logger

	mu             sync.RWMutex
	state          models.NetworkState
	connectionType string
	handlers       []ReconnectHandler
	baseCtx        context.Context
	settle         *time.Timer
	generation     uint64
}

// NewMonitor returns a monitor using prober for latency probes. prober may
// be nil when connectivity is only fed through events.
func NewMonitor(prober Prober, opts Options, log *logger.Logger) *Monitor {
	m := &Monitor{
		prober:  prober,
		opts:    opts,
		logger:  log,
		baseCtx: context.Background(),
	}
	if opts.InitiallyOnline {
		m.state = models.NetworkState{Online: true, Quality: models.QualityGood}
	}
	return m
}

// State returns the current network state.
func (m *Monitor) State() models.NetworkState {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.state
}

// IsOnline reports whether the remote authority is reachable.
func (m *Monitor) IsOnline() bool {
	return m.State().Online
}

// Params returns the sync parameters for the current quality.
func (m *Monitor) Params() models.SyncParams {
	return ParamsFor(m.State().Quality)
}

// OnReconnect registers h to run on every settled reconnect.
func (m *Monitor) OnReconnect(h ReconnectHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.handlers = append(m.handlers, h)
}

// SetOnline records a connectivity event.
func (m *Monitor) SetOnline(online bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	next := m.state
	next.Online = online
	if !online {
		next.Quality = models.QualityOffline
		next.LatencyMs = 0
	} else if !m.state.Online {
		next.Quality = m.hintedQuality()
	}
	m.apply(next)
}

// SetConnectionType records a platform connection type hint. While online
// the hint replaces the current quality estimate.
func (m *Monitor) SetConnectionType(connectionType string) error {
	q, err := QualityFromConnectionType(connectionType)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.connectionType = connectionType
	if m.state.Online {
		next := m.state
		next.Quality = q
		m.apply(next)
	}
	return nil
}

// Probe measures latency once and updates the state from the result.
func (m *Monitor) Probe(ctx context.Context) (models.NetworkState, error) {
	if m.prober == nil {
		return m.State(), ErrNoProber
	}

	latency, err := m.prober.Probe(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()

	if err != nil {
		m.logger.Debug().Err(err).
			Str("func", "Monitor.Probe").
			Msg("probe failed, treating network as offline")
		m.apply(models.NetworkState{Online: false, Quality: models.QualityOffline})
		return m.state, nil
	}

	m.apply(models.NetworkState{
		Online:    true,
		Quality:   ClassifyLatency(latency),
		LatencyMs: latency.Milliseconds(),
	})
	return m.state, nil
}

// Run probes immediately and then every ProbeInterval until ctx is done.
// Reconnect handlers started while Run is active receive ctx.
func (m *Monitor) Run(ctx context.Context) error {
	m.mu.Lock()
	m.baseCtx = ctx
	m.mu.Unlock()

	if m.prober == nil || m.opts.ProbeInterval <= 0 {
		<-ctx.Done()
		m.stopSettle()
		return nil
	}

	ticker := time.NewTicker(m.opts.ProbeInterval)
	defer ticker.Stop()

	for {
		if _, err := m.Probe(ctx); err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			m.stopSettle()
			return nil
		case <-ticker.C:
		}
	}
}

// hintedQuality is the quality to assume when coming online without a
// measurement; m.mu must be held.
func (m *Monitor) hintedQuality() models.Quality {
	if m.connectionType != "" {
		if q, err := QualityFromConnectionType(m.connectionType); err == nil {
			return q
		}
	}
	return models.QualityGood
}

// apply stores next and handles the online/offline transition; m.mu must
// be held.
func (m *Monitor) apply(next models.NetworkState) {
	prev := m.state
	m.state = next

	switch {
	case !prev.Online && next.Online:
		m.logger.Info().
			Str("func", "Monitor.apply").
			Str("quality", next.Quality.String()).
			Msg("network online")
		m.scheduleReconnect()
	case prev.Online && !next.Online:
		m.logger.Info().
			Str("func", "Monitor.apply").
			Msg("network offline")
		m.cancelReconnect()
	case prev.Quality != next.Quality:
		m.logger.Debug().
			Str("func", "Monitor.apply").
			Str("from", prev.Quality.String()).
			Str("to", next.Quality.String()).
			Msg("network quality changed")
	}
}

// scheduleReconnect arms the settle timer; m.mu must be held.
func (m *Monitor) scheduleReconnect() {
	m.cancelReconnect()
	if len(m.handlers) == 0 {
		return
	}

	gen := m.generation
	m.settle = time.AfterFunc(m.opts.SettleDelay, func() {
		m.fireReconnect(gen)
	})
}

// cancelReconnect invalidates a pending settle timer; m.mu must be held.
func (m *Monitor) cancelReconnect() {
	m.generation++
	if m.settle != nil {
		m.settle.Stop()
		m.settle = nil
	}
}

func (m *Monitor) stopSettle() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.cancelReconnect()
}

func (m *Monitor) fireReconnect(gen uint64) {
	m.mu.Lock()
	if gen != m.generation || !m.state.Online {
		m.mu.Unlock()
		return
	}
	m.settle = nil
	ctx := m.baseCtx
	handlers := append([]ReconnectHandler(nil), m.handlers...)
	m.mu.Unlock()

	if ctx.Err() != nil {
		return
	}

	m.logger.Info().
		Str("func", "Monitor.fireReconnect").
		Int("handlers", len(handlers)).
		Msg("network settled, running reconnect handlers")
	for _, h := range handlers {
		h(ctx)
	}
}
