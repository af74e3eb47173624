package client

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Monitor probes the backend's health endpoint on a fixed interval,
// independent of message traffic. It owns nothing but the health flag; the
// presentation layer reads it to decide whether to show the degraded banner.
type Monitor struct {
	client   *Client
	interval time.Duration
	log      zerolog.Logger

	healthy   atomic.Bool
	mu        sync.RWMutex
	lastCheck time.Time

	cancel context.CancelFunc
	done   chan struct{}
}

// NewMonitor builds a monitor around c. Start must be called to begin probing.
func NewMonitor(c *Client, interval time.Duration, log zerolog.Logger) *Monitor {
	return &Monitor{
		client:   c,
		interval: interval,
		log:      log.With().Str("component", "health").Logger(),
	}
}

// Start launches the probe loop. The first probe fires immediately so the
// banner state is meaningful before the first tick.
func (m *Monitor) Start(ctx context.Context) {
	ctx, m.cancel = context.WithCancel(ctx)
	m.done = make(chan struct{})

	go func() {
		defer close(m.done)

		m.probe(ctx)

		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.probe(ctx)
			}
		}
	}()
}

// Stop halts the probe loop and waits for it to exit.
func (m *Monitor) Stop() {
	if m.cancel == nil {
		return
	}
	m.cancel()
	<-m.done
}

func (m *Monitor) probe(ctx context.Context) {
	status, err := m.client.CheckHealth(ctx)
	healthy := err == nil && status.Healthy()

	m.healthy.Store(healthy)
	m.mu.Lock()
	m.lastCheck = time.Now().UTC()
	m.mu.Unlock()

	if err != nil {
		m.log.Warn().Err(err).Msg("health probe failed")
		return
	}
	m.log.Debug().Str("status", status.Status).Str("version", status.Version).Msg("health probe")
}

// Healthy reports the result of the latest probe.
func (m *Monitor) Healthy() bool {
	return m.healthy.Load()
}

// LastCheck reports when the latest probe completed; zero before any probe.
func (m *Monitor) LastCheck() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastCheck
}
