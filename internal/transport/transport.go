// Package transport adapts the lower-level DMX output service and
// node discovery registry into the router.Transport interface, giving
// the transport router a REAL child backed by actual UDP sends and a
// SIMULATED child that records frames without touching the network.
package transport

import (
	"sync"

	"github.com/chromadmx/chromadmx/internal/discovery"
	"github.com/chromadmx/chromadmx/internal/dmxout"
	"github.com/chromadmx/chromadmx/internal/router"
)

// DMXTransport wires a dmxout.Service (wire sends) and a
// discovery.Registry (connection/node state) into a single
// router.Transport for REAL-mode operation.
type DMXTransport struct {
	out   *dmxout.Service
	disc  *discovery.Registry
	frame dmxout.Frame
	mu    sync.Mutex
}

// NewDMXTransport creates a DMXTransport over an already-constructed
// output service and discovery registry; both are started/stopped
// together as one router child.
func NewDMXTransport(out *dmxout.Service, disc *discovery.Registry) *DMXTransport {
	return &DMXTransport{out: out, disc: disc, frame: dmxout.Frame{}}
}

// Send stages the channel data for universe and republishes the full
// accumulated frame, since dmxout.Service.UpdateFrame takes a
// complete universe->data mapping rather than a single-universe
// delta.
func (t *DMXTransport) Send(universe uint16, data []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	var buf [512]byte
	copy(buf[:], data)
	next := make(dmxout.Frame, len(t.frame)+1)
	for k, v := range t.frame {
		next[k] = v
	}
	next[universe] = buf
	t.frame = next
	t.out.UpdateFrame(next)
	return nil
}

// State reports CONNECTED once at least one node has been discovered,
// CONNECTING before that, matching spec §4.G's state taxonomy for a
// best-effort UDP transport with no handshake of its own.
func (t *DMXTransport) State() router.ConnState {
	if len(t.disc.Snapshot()) > 0 {
		return router.StateConnected
	}
	return router.StateConnecting
}

// DiscoveredNodes reduces the discovery registry's snapshot to the
// router's minimal Node shape.
func (t *DMXTransport) DiscoveredNodes() []router.Node {
	snap := t.disc.Snapshot()
	nodes := make([]router.Node, len(snap))
	for i, n := range snap {
		nodes[i] = router.Node{NodeKey: n.NodeKey, Name: n.ShortName}
	}
	return nodes
}

// Start launches both the output loop and the discovery poller.
func (t *DMXTransport) Start() error {
	t.out.Start()
	t.disc.Start()
	return nil
}

// Stop halts both loops.
func (t *DMXTransport) Stop() {
	t.disc.Stop()
	t.out.Stop()
}

var _ router.Transport = (*DMXTransport)(nil)

// RouterSink adapts a *router.Router (which sends one universe at a
// time) into the dmxpipeline.FrameSink interface (which publishes a
// complete universe->data frame each tick), so the pipeline can
// remain agnostic of the REAL/SIMULATED/MIXED split entirely.
type RouterSink struct {
	r *router.Router
}

// NewRouterSink wraps r.
func NewRouterSink(r *router.Router) RouterSink {
	return RouterSink{r: r}
}

// UpdateFrame fans each universe in f out to the router as a separate
// Send call.
func (s RouterSink) UpdateFrame(f dmxout.Frame) {
	for universe, data := range f {
		d := data
		_ = s.r.Send(universe, d[:])
	}
}
