package testutil

import (
	"sync"
	"time"
)

// ManualTicker is a ticker that fires only when told to.
//
// It satisfies session.Ticker. The channel is unbuffered, so Fire returns
// only once the session loop has received the signal; the loop then applies
// earlier claims and ticks before it can receive again.
//
// Thread-safety: All methods are safe for concurrent use.
type ManualTicker struct {
	ch chan time.Time

	mu      sync.Mutex
	stopped bool
}

// NewManualTicker creates a ticker that has not fired.
func NewManualTicker() *ManualTicker {
	return &ManualTicker{ch: make(chan time.Time)}
}

// C returns the tick channel.
func (m *ManualTicker) C() <-chan time.Time {
	return m.ch
}

// Stop records that the consumer released the ticker.
func (m *ManualTicker) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopped = true
}

// Stopped reports whether Stop was called.
func (m *ManualTicker) Stopped() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopped
}

// Fire delivers one tick, blocking until it is received or timeout elapses.
// Returns false on timeout.
func (m *ManualTicker) Fire(timeout time.Duration) bool {
	select {
	case m.ch <- time.Time{}:
		return true
	case <-time.After(timeout):
		return false
	}
}
