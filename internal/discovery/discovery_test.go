package discovery

import (
	"net"
	"testing"
	"time"

	"github.com/chromadmx/chromadmx/internal/udpsock"
	"github.com/chromadmx/chromadmx/pkg/artnet"
)

func newTestRegistry(t *testing.T, maxNodes int) *Registry {
	t.Helper()
	sock, err := udpsock.Listen("127.0.0.1:0")
	if err != nil {
		t.Fatalf("udpsock.Listen: %v", err)
	}
	t.Cleanup(func() { sock.Close() })

	return New(Config{PollIntervalMs: 3000, NodeTimeoutMs: 15000, MaxNodes: maxNodes, BroadcastAddr: "127.0.0.1:6454"}, sock, sock)
}

func replyFrom(mac byte, universe uint16) (net.UDPAddr, artnet.ArtPollReply) {
	addr := net.UDPAddr{IP: net.IPv4(10, 0, 0, byte(universe))}
	reply := artnet.ArtPollReply{
		IP:              [4]byte{10, 0, 0, byte(universe)},
		MAC:             [6]byte{0, 0, 0, 0, 0, mac},
		FirmwareVersion: 0x0102,
		NumPorts:        1,
		Style:           4,
		NetSwitch:       byte(universe >> 8),
		SwOut:           [4]byte{byte(universe & 0xFF), 0, 0, 0},
	}
	return addr, reply
}

func TestProcessReply_InsertsAndUpdates(t *testing.T) {
	r := newTestRegistry(t, 256)
	addr, reply := replyFrom(1, 5)

	r.processReply(&addr, reply)
	snap := r.Snapshot()
	if len(snap) != 1 {
		t.Fatalf("Snapshot length = %d, want 1", len(snap))
	}
	if len(snap[0].Universes) != 1 || snap[0].Universes[0] != 5 {
		t.Fatalf("Universes = %v, want [5]", snap[0].Universes)
	}

	// Re-seeing the same node updates LastSeenMs without duplicating it.
	r.processReply(&addr, reply)
	if len(r.Snapshot()) != 1 {
		t.Fatalf("expected re-seen node to update in place, got %d entries", len(r.Snapshot()))
	}
}

func TestProcessReply_EvictsOldestWhenAtCapacity(t *testing.T) {
	r := newTestRegistry(t, 2)

	base := time.UnixMilli(1_000_000)
	tick := base
	r.now = func() time.Time { return tick }

	addr1, reply1 := replyFrom(1, 1)
	r.processReply(&addr1, reply1)

	tick = tick.Add(time.Second)
	addr2, reply2 := replyFrom(2, 2)
	r.processReply(&addr2, reply2)

	tick = tick.Add(time.Second)
	addr3, reply3 := replyFrom(3, 3)
	r.processReply(&addr3, reply3)

	snap := r.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("Snapshot length = %d, want 2 (capacity enforced)", len(snap))
	}
	for _, n := range snap {
		if n.MAC[5] == 1 {
			t.Fatalf("expected oldest node (mac=1) to be evicted, found it still present")
		}
	}
}

func TestPrune_RemovesStaleNodes(t *testing.T) {
	r := newTestRegistry(t, 256)

	base := time.UnixMilli(1_000_000)
	r.now = func() time.Time { return base }

	addr, reply := replyFrom(9, 9)
	r.processReply(&addr, reply)

	r.now = func() time.Time { return base.Add(20 * time.Second) }
	r.prune()

	if len(r.Snapshot()) != 0 {
		t.Fatalf("expected stale node pruned after NodeTimeoutMs elapsed")
	}
}

func TestProcessReply_PopulatesDataModelFields(t *testing.T) {
	r := newTestRegistry(t, 256)

	base := time.UnixMilli(1_000_000)
	r.now = func() time.Time { return base }

	addr, reply := replyFrom(7, 7)
	r.processReply(&addr, reply)

	snap := r.Snapshot()
	if len(snap) != 1 {
		t.Fatalf("Snapshot length = %d, want 1", len(snap))
	}
	node := snap[0]
	if node.FirmwareVersion != reply.FirmwareVersion {
		t.Fatalf("FirmwareVersion = %v, want %v", node.FirmwareVersion, reply.FirmwareVersion)
	}
	if node.NumPorts != reply.NumPorts {
		t.Fatalf("NumPorts = %v, want %v", node.NumPorts, reply.NumPorts)
	}
	if node.Style != reply.Style {
		t.Fatalf("Style = %v, want %v", node.Style, reply.Style)
	}
	if node.FirstSeenMs != base.UnixMilli() {
		t.Fatalf("FirstSeenMs = %v, want %v", node.FirstSeenMs, base.UnixMilli())
	}

	// Re-seeing the node later must not move FirstSeenMs.
	r.now = func() time.Time { return base.Add(5 * time.Second) }
	r.processReply(&addr, reply)
	snap = r.Snapshot()
	if snap[0].FirstSeenMs != base.UnixMilli() {
		t.Fatalf("FirstSeenMs changed on re-sighting: %v, want %v", snap[0].FirstSeenMs, base.UnixMilli())
	}
	if snap[0].LastSeenMs != base.Add(5*time.Second).UnixMilli() {
		t.Fatalf("LastSeenMs = %v, want updated", snap[0].LastSeenMs)
	}
}

func TestDmxNode_Alive(t *testing.T) {
	node := DmxNode{LastSeenMs: time.UnixMilli(1_000_000).UnixMilli()}

	if !node.Alive(time.UnixMilli(1_010_000), 15*time.Second) {
		t.Fatalf("expected node alive within timeout")
	}
	if node.Alive(time.UnixMilli(1_020_000), 15*time.Second) {
		t.Fatalf("expected node not alive past timeout")
	}
}

func TestStartStop_IdempotentAcrossRepeatedCalls(t *testing.T) {
	r := newTestRegistry(t, 256)

	r.Start()
	r.Start() // must not double-add to the WaitGroup or panic
	r.Stop()
	r.Stop() // must not close an already-closed channel or panic
}

func TestForcePoll_SendsImmediatelyWithoutError(t *testing.T) {
	r := newTestRegistry(t, 256)
	if err := r.ForcePoll(); err != nil {
		t.Fatalf("ForcePoll returned error: %v", err)
	}
}

func TestSnapshotIsOrderedByNodeKey(t *testing.T) {
	r := newTestRegistry(t, 256)

	for _, mac := range []byte{9, 1, 5} {
		addr, reply := replyFrom(mac, uint16(mac))
		r.processReply(&addr, reply)
	}

	snap := r.Snapshot()
	for i := 1; i < len(snap); i++ {
		if snap[i-1].NodeKey > snap[i].NodeKey {
			t.Fatalf("Snapshot not ordered by NodeKey: %v", snap)
		}
	}
}
