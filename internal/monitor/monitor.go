// Package monitor derives the backend liveness signal from periodic
// health checks. The signal is advisory only: nothing gates chat or
// ingestion requests on it.
package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/diligentai/jarvisctl/internal/backend"
)

// Signal is the client's best-effort classification of backend
// reachability.
type Signal string

const (
	SignalChecking Signal = "checking"
	SignalOnline   Signal = "online"
	SignalOffline  Signal = "offline"
)

// DefaultInterval matches the original 30s polling cadence.
const DefaultInterval = 30 * time.Second

// HealthChecker is the slice of the backend client the monitor uses.
type HealthChecker interface {
	CheckHealth(ctx context.Context) backend.Health
}

// Monitor polls backend health on a fixed cadence. Its lifecycle is
// scoped to the session: Stop guarantees the polling goroutine has
// exited before returning.
type Monitor struct {
	client   HealthChecker
	interval time.Duration

	mu     sync.Mutex
	signal Signal
	health backend.Health

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a monitor in the checking state. interval <= 0 uses
// DefaultInterval.
func New(client HealthChecker, interval time.Duration) *Monitor {
	if interval <= 0 {
		interval = DefaultInterval
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Monitor{
		client:   client,
		interval: interval,
		signal:   SignalChecking,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start checks once immediately, then polls until Stop.
func (m *Monitor) Start() {
	m.wg.Add(1)
	go m.loop()
}

// Stop cancels polling and waits for the goroutine to exit.
func (m *Monitor) Stop() {
	m.cancel()
	m.wg.Wait()
}

// Status returns the current liveness signal.
func (m *Monitor) Status() Signal {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.signal
}

// Health returns the last decoded health response. Zero value until
// the first check resolves.
func (m *Monitor) Health() backend.Health {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.health
}

func (m *Monitor) loop() {
	defer m.wg.Done()

	m.check()

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			m.check()
		}
	}
}

func (m *Monitor) check() {
	// CheckHealth never fails outward; offline comes back as a status.
	h := m.client.CheckHealth(m.ctx)

	signal := SignalOffline
	if h.Online() {
		signal = SignalOnline
	}

	m.mu.Lock()
	m.signal = signal
	m.health = h
	m.mu.Unlock()
}
