// Package dmxout implements the fixed-rate DMX output service: it owns
// an atomically-swappable "latest frame" mapping from universe to
// 512-byte channel data and drains it onto the wire as Art-Net or sACN
// packets at a configured frame rate.
package dmxout

import (
	"log"
	"net"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chromadmx/chromadmx/internal/udpsock"
	"github.com/chromadmx/chromadmx/pkg/artnet"
	"github.com/chromadmx/chromadmx/pkg/sacn"
)

// UniverseSize is the number of channels in a DMX universe.
const UniverseSize = 512

// Protocol selects the wire format used when transmitting a universe.
type Protocol int

const (
	ProtocolArtNet Protocol = iota
	ProtocolSACN
)

// Frame is an immutable snapshot of universe -> 512-byte channel data.
type Frame map[uint16][512]byte

// Config controls the output loop's rate and destinations.
type Config struct {
	// FrameRateHz paces the output loop. Default 40; clamped to [1,44].
	FrameRateHz int
	// Protocol selects Art-Net or sACN framing for every universe.
	Protocol Protocol
	// ArtNetDest is the destination for Art-Net sends (typically
	// broadcast 255.255.255.255:6454).
	ArtNetDest *net.UDPAddr
	// SACNSourceName and SACNCID identify this source in sACN packets.
	SACNSourceName string
	SACNCID        [16]byte
	SACNPriority   byte
}

// DefaultConfig returns the spec's stated default frame rate.
func DefaultConfig() Config {
	return Config{
		FrameRateHz:  40,
		Protocol:     ProtocolArtNet,
		SACNPriority: 100,
	}
}

func clampRate(hz int) int {
	if hz < 1 {
		return 1
	}
	if hz > 44 {
		return 44
	}
	return hz
}

// Service runs the output loop against a single UDP socket.
type Service struct {
	cfg  Config
	sock *udpsock.Socket

	frame atomic.Pointer[Frame]

	mu          sync.Mutex
	artSeq      byte // rolls 1..255, 0 reserved
	sacnSeq     byte // rolls 0..255
	skipCounter uint64

	stopChan chan struct{}
	wg       sync.WaitGroup
}

// New creates a Service bound to sock. The caller owns the socket's
// lifecycle beyond Start/Stop.
func New(cfg Config, sock *udpsock.Socket) *Service {
	cfg.FrameRateHz = clampRate(cfg.FrameRateHz)
	s := &Service{
		cfg:      cfg,
		sock:     sock,
		artSeq:   0,
		stopChan: make(chan struct{}),
	}
	empty := Frame{}
	s.frame.Store(&empty)
	return s
}

// UpdateFrame atomically publishes a new universe->channels mapping.
func (s *Service) UpdateFrame(f Frame) {
	cp := make(Frame, len(f))
	for u, data := range f {
		cp[u] = data
	}
	s.frame.Store(&cp)
}

// UpdateUniverse copies the current frame, updates one universe's
// channel data, and publishes the result.
func (s *Service) UpdateUniverse(universe uint16, data [512]byte) {
	current := *s.frame.Load()
	next := make(Frame, len(current)+1)
	for u, d := range current {
		next[u] = d
	}
	next[universe] = data
	s.frame.Store(&next)
}

// Start launches the output loop.
func (s *Service) Start() {
	s.wg.Add(1)
	go s.outputLoop()
}

// Stop signals the output loop to exit and waits for it.
func (s *Service) Stop() {
	close(s.stopChan)
	s.wg.Wait()
}

// SkipCount reports how many ticks failed to send at least one packet.
func (s *Service) SkipCount() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.skipCounter
}

func (s *Service) outputLoop() {
	defer s.wg.Done()

	interval := time.Second / time.Duration(s.cfg.FrameRateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			start := time.Now()
			s.tick()
			elapsed := time.Since(start)
			if sleep := interval - elapsed; sleep > 0 {
				time.Sleep(sleep)
			}
		}
	}
}

func (s *Service) tick() {
	frame := *s.frame.Load()
	if len(frame) == 0 {
		return
	}

	universes := make([]uint16, 0, len(frame))
	for u := range frame {
		universes = append(universes, u)
	}
	sort.Slice(universes, func(i, j int) bool { return universes[i] < universes[j] })

	for _, u := range universes {
		data := frame[u]
		if err := s.sendUniverse(u, data[:]); err != nil {
			s.mu.Lock()
			s.skipCounter++
			s.mu.Unlock()
			log.Printf("dmxout: send error for universe %d: %v", u, err)
		}
	}
}

func (s *Service) sendUniverse(universe uint16, data []byte) error {
	switch s.cfg.Protocol {
	case ProtocolSACN:
		s.mu.Lock()
		seq := s.sacnSeq
		s.sacnSeq++
		s.mu.Unlock()

		pkt := sacn.EncodeDataPacket(s.cfg.SACNCID, s.cfg.SACNSourceName, s.cfg.SACNPriority, seq, 0, universe, 0, data)
		return s.sock.Send(pkt, sacn.MulticastAddr(universe))
	default:
		s.mu.Lock()
		s.artSeq++
		if s.artSeq == 0 {
			s.artSeq = 1
		}
		seq := s.artSeq
		s.mu.Unlock()

		pkt := artnet.EncodeArtDmx(seq, 0, universe, data)
		return s.sock.Send(pkt, s.cfg.ArtNetDest)
	}
}
