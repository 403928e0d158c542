// ABOUTME: Network reachability monitor publishing a tri-state status.
// ABOUTME: A transition into connected fires registered callbacks (queue flush).
package netmon

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// Status is the current reachability of the remote service.
type Status int

const (
	// StatusUnknown means no probe has completed yet.
	StatusUnknown Status = iota
	// StatusConnected means the last probe succeeded.
	StatusConnected
	// StatusDisconnected means the last probe failed.
	StatusDisconnected
)

func (s Status) String() string {
	switch s {
	case StatusConnected:
		return "connected"
	case StatusDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// Probe checks reachability, typically a GET against the service health
// endpoint. A nil error means connected.
type Probe func(ctx context.Context) error

// Monitor runs the probe on an interval and tracks status transitions.
// The status is written only here; everything else reads it.
type Monitor struct {
	probe    Probe
	interval time.Duration
	logger   *log.Logger

	mu        sync.RWMutex
	status    Status
	onConnect []func()

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a monitor. Status starts as unknown until the first probe.
func New(probe Probe, interval time.Duration, logger *log.Logger) *Monitor {
	return &Monitor{
		probe:    probe,
		interval: interval,
		logger:   logger,
		status:   StatusUnknown,
	}
}

// Status returns the last observed reachability.
func (m *Monitor) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

// Online reports whether an immediate network attempt is worthwhile.
// Unknown counts as online: before the first probe completes a
// best-effort attempt is cheaper than queueing unconditionally.
func (m *Monitor) Online() bool {
	return m.Status() != StatusDisconnected
}

// OnConnect registers a callback fired on each transition into connected.
func (m *Monitor) OnConnect(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onConnect = append(m.onConnect, fn)
}

// Check runs the probe once and updates status, firing callbacks when the
// status transitions into connected.
func (m *Monitor) Check(ctx context.Context) Status {
	next := StatusConnected
	if err := m.probe(ctx); err != nil {
		next = StatusDisconnected
	}

	m.mu.Lock()
	prev := m.status
	m.status = next
	callbacks := make([]func(), len(m.onConnect))
	copy(callbacks, m.onConnect)
	m.mu.Unlock()

	if next == StatusConnected && prev != StatusConnected {
		m.logger.Info("network reachable", "previous", prev.String())
		for _, fn := range callbacks {
			fn()
		}
	}
	if next == StatusDisconnected && prev == StatusConnected {
		m.logger.Warn("network unreachable")
	}
	return next
}

// Start begins the periodic probe loop. Stop or ctx cancellation ends it.
func (m *Monitor) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)

	m.mu.Lock()
	if m.cancel != nil {
		m.mu.Unlock()
		cancel()
		return
	}
	m.cancel = cancel
	m.mu.Unlock()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.Check(ctx)
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.Check(ctx)
			}
		}
	}()
}

// Stop ends the probe loop and waits for it to exit.
func (m *Monitor) Stop() {
	m.mu.Lock()
	cancel := m.cancel
	m.cancel = nil
	m.mu.Unlock()

	if cancel != nil {
		cancel()
		m.wg.Wait()
	}
}
