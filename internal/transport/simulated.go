package transport

import (
	"sync"

	"github.com/chromadmx/chromadmx/internal/router"
)

// SimulatedTransport discards frames to a recorded-last-frame map
// instead of sending them over UDP, for development and preview
// without physical nodes attached ("simulated sink" per spec §2).
type SimulatedTransport struct {
	mu      sync.RWMutex
	running bool
	frames  map[uint16][]byte
}

// NewSimulatedTransport creates an idle SimulatedTransport.
func NewSimulatedTransport() *SimulatedTransport {
	return &SimulatedTransport{frames: make(map[uint16][]byte)}
}

// Send records the universe's data for later inspection (e.g. by a
// preview UI) and never fails.
func (t *SimulatedTransport) Send(universe uint16, data []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	t.frames[universe] = cp
	return nil
}

// LastFrame returns a copy of the most recently recorded data for
// universe, or nil if none has been sent.
func (t *SimulatedTransport) LastFrame(universe uint16) []byte {
	t.mu.RLock()
	defer t.mu.RUnlock()
	data, ok := t.frames[universe]
	if !ok {
		return nil
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	return cp
}

// State is CONNECTED whenever running, since a simulated sink has no
// real link to lose.
func (t *SimulatedTransport) State() router.ConnState {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.running {
		return router.StateConnected
	}
	return router.StateDisconnected
}

// DiscoveredNodes is always empty: there is nothing to discover on a
// simulated sink.
func (t *SimulatedTransport) DiscoveredNodes() []router.Node { return nil }

// Start marks the transport running.
func (t *SimulatedTransport) Start() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.running = true
	return nil
}

// Stop marks the transport idle.
func (t *SimulatedTransport) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.running = false
}

var _ router.Transport = (*SimulatedTransport)(nil)
