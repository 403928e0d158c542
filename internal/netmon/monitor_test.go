// ABOUTME: Tests for the reachability monitor.
// ABOUTME: Uses a switchable fake probe to drive status transitions.
package netmon

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
)

// switchableProbe fails or succeeds based on an atomic flag.
type switchableProbe struct {
	down atomic.Bool
}

func (p *switchableProbe) probe(context.Context) error {
	if p.down.Load() {
		return errors.New("no route to host")
	}
	return nil
}

func newTestMonitor(p Probe) *Monitor {
	return New(p, time.Minute, log.New(io.Discard))
}

func TestStatusStartsUnknown(t *testing.T) {
	m := newTestMonitor(func(context.Context) error { return nil })

	assert.Equal(t, StatusUnknown, m.Status())
	assert.True(t, m.Online(), "unknown still allows a best-effort attempt")
}

func TestCheckTransitions(t *testing.T) {
	p := &switchableProbe{}
	m := newTestMonitor(p.probe)

	assert.Equal(t, StatusConnected, m.Check(context.Background()))
	assert.True(t, m.Online())

	p.down.Store(true)
	assert.Equal(t, StatusDisconnected, m.Check(context.Background()))
	assert.False(t, m.Online())
}

func TestOnConnectFiresOnlyOnTransition(t *testing.T) {
	p := &switchableProbe{}
	p.down.Store(true)
	m := newTestMonitor(p.probe)

	var fired atomic.Int32
	m.OnConnect(func() { fired.Add(1) })

	m.Check(context.Background())
	assert.Equal(t, int32(0), fired.Load())

	p.down.Store(false)
	m.Check(context.Background())
	assert.Equal(t, int32(1), fired.Load())

	// Staying connected must not re-fire.
	m.Check(context.Background())
	assert.Equal(t, int32(1), fired.Load())

	p.down.Store(true)
	m.Check(context.Background())
	p.down.Store(false)
	m.Check(context.Background())
	assert.Equal(t, int32(2), fired.Load())
}

func TestStartRunsInitialProbe(t *testing.T) {
	p := &switchableProbe{}
	m := newTestMonitor(p.probe)

	m.Start(context.Background())
	defer m.Stop()

	deadline := time.After(2 * time.Second)
	for m.Status() == StatusUnknown {
		select {
		case <-deadline:
			t.Fatal("monitor never ran its initial probe")
		case <-time.After(10 * time.Millisecond):
		}
	}
	assert.Equal(t, StatusConnected, m.Status())
}
