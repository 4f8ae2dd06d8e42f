// Package router implements the transport router: it fans sends out to
// one or both of a REAL and SIMULATED transport depending on the
// active mode, and collapses their connection states into one.
package router

import (
	"sort"
	"sync"
)

// Mode selects which underlying transport(s) are active.
type Mode int

const (
	ModeReal Mode = iota
	ModeSimulated
	ModeMixed
)

// ConnState is the aggregate or child connection state.
type ConnState int

const (
	StateDisconnected ConnState = iota
	StateConnecting
	StateConnected
	StateError
)

// Transport is anything the router can dispatch a universe frame to
// and query for connection state and discovered nodes.
type Transport interface {
	Send(universe uint16, data []byte) error
	State() ConnState
	DiscoveredNodes() []Node
	Start() error
	Stop()
}

// Node is a discovered node as seen by a transport's own discovery
// mechanism, reduced to what the router needs to de-duplicate.
type Node struct {
	NodeKey string
	Name    string
}

// Router owns a REAL and a SIMULATED transport and dispatches according
// to the active Mode.
type Router struct {
	mu   sync.RWMutex
	mode Mode
	real Transport
	sim  Transport

	realRunning bool
	simRunning  bool
}

// New creates a Router. Either transport may be nil if that mode is
// never used.
func New(real, sim Transport, initial Mode) *Router {
	r := &Router{real: real, sim: sim}
	r.switchTo(initial)
	return r
}

// Send dispatches data for universe to every transport active in the
// current mode. In MIXED mode a send is attempted on both, and the
// first error (if any) is returned after both attempts complete.
func (r *Router) Send(universe uint16, data []byte) error {
	r.mu.RLock()
	mode := r.mode
	real := r.real
	sim := r.sim
	r.mu.RUnlock()

	var firstErr error
	switch mode {
	case ModeReal:
		if real != nil {
			firstErr = real.Send(universe, data)
		}
	case ModeSimulated:
		if sim != nil {
			firstErr = sim.Send(universe, data)
		}
	case ModeMixed:
		var realErr, simErr error
		if real != nil {
			realErr = real.Send(universe, data)
		}
		if sim != nil {
			simErr = sim.Send(universe, data)
		}
		if realErr != nil {
			firstErr = realErr
		} else {
			firstErr = simErr
		}
	}
	return firstErr
}

// State reports the aggregate connection state for the active mode:
// any ERROR -> ERROR, else both CONNECTED -> CONNECTED,
// else any CONNECTING -> CONNECTING, else any CONNECTED -> CONNECTED,
// else DISCONNECTED.
func (r *Router) State() ConnState {
	r.mu.RLock()
	mode := r.mode
	real := r.real
	sim := r.sim
	r.mu.RUnlock()

	switch mode {
	case ModeReal:
		if real == nil {
			return StateDisconnected
		}
		return real.State()
	case ModeSimulated:
		if sim == nil {
			return StateDisconnected
		}
		return sim.State()
	default: // ModeMixed
		var states []ConnState
		if real != nil {
			states = append(states, real.State())
		}
		if sim != nil {
			states = append(states, sim.State())
		}
		return aggregate(states)
	}
}

func aggregate(states []ConnState) ConnState {
	if len(states) == 0 {
		return StateDisconnected
	}
	hasError, hasConnecting, connectedCount := false, false, 0
	for _, s := range states {
		switch s {
		case StateError:
			hasError = true
		case StateConnecting:
			hasConnecting = true
		case StateConnected:
			connectedCount++
		}
	}
	if hasError {
		return StateError
	}
	if connectedCount == len(states) {
		return StateConnected
	}
	if hasConnecting {
		return StateConnecting
	}
	if connectedCount > 0 {
		return StateConnected
	}
	return StateDisconnected
}

// SwitchTo changes the active mode, starting children the new mode
// needs and stopping children it no longer needs. A child already
// running for both the old and new mode is left untouched, preserving
// output continuity.
func (r *Router) SwitchTo(newMode Mode) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.switchTo(newMode)
}

func (r *Router) switchTo(newMode Mode) {
	wantReal := newMode == ModeReal || newMode == ModeMixed
	wantSim := newMode == ModeSimulated || newMode == ModeMixed

	if wantReal && !r.realRunning && r.real != nil {
		if err := r.real.Start(); err == nil {
			r.realRunning = true
		}
	}
	if !wantReal && r.realRunning && r.real != nil {
		r.real.Stop()
		r.realRunning = false
	}

	if wantSim && !r.simRunning && r.sim != nil {
		if err := r.sim.Start(); err == nil {
			r.simRunning = true
		}
	}
	if !wantSim && r.simRunning && r.sim != nil {
		r.sim.Stop()
		r.simRunning = false
	}

	r.mode = newMode
}

// DiscoveredNodes merges the active transports' discovered-node lists.
// In MIXED mode, duplicates are de-duplicated by NodeKey.
func (r *Router) DiscoveredNodes() []Node {
	r.mu.RLock()
	mode := r.mode
	real := r.real
	sim := r.sim
	r.mu.RUnlock()

	switch mode {
	case ModeReal:
		if real == nil {
			return nil
		}
		return real.DiscoveredNodes()
	case ModeSimulated:
		if sim == nil {
			return nil
		}
		return sim.DiscoveredNodes()
	default:
		seen := make(map[string]bool)
		var out []Node
		add := func(nodes []Node) {
			for _, n := range nodes {
				if !seen[n.NodeKey] {
					seen[n.NodeKey] = true
					out = append(out, n)
				}
			}
		}
		if real != nil {
			add(real.DiscoveredNodes())
		}
		if sim != nil {
			add(sim.DiscoveredNodes())
		}
		sort.Slice(out, func(i, j int) bool { return out[i].NodeKey < out[j].NodeKey })
		return out
	}
}
