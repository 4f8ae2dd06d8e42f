// Package beatclock implements a drift-free beat/bar phase clock driven
// by either manual taps or a mesh (Ableton Link-style) session, with a
// composite fallback between the two.
package beatclock

import (
	"math"
	"sort"
	"sync"
	"time"
)

// RunState is the clock's top-level state machine.
type RunState int

const (
	Stopped RunState = iota
	Running
)

// Source identifies which underlying clock produced the current phase.
type Source int

const (
	SourceNone Source = iota
	SourceTap
	SourceMesh
)

// BeatState is the observable snapshot published once per updater tick.
// IDLE (the zero value) has BPM=defaultBPM, phases=0, Source=NONE.
type BeatState struct {
	BPM            float64
	BeatPhase      float64
	BarPhase       float64
	ElapsedSeconds float64
	Source         Source
	Run            RunState
}

// Idle returns the spec's stated IDLE snapshot.
func Idle() BeatState {
	return BeatState{BPM: defaultBPM, Source: SourceNone}
}

const (
	defaultBPM           = 120.0
	minBPM               = 20.0
	maxBPM               = 300.0
	maxTapHistory        = 8
	tapGapResetSeconds   = 3.0
	noLinkTimeoutDefault = 5 * time.Second
	updateIntervalDefault = 16 * time.Millisecond
)

func frac(x float64) float64 {
	f := x - math.Floor(x)
	if f < 0 {
		f += 1
	}
	return f
}

// phaseFromOrigin computes beat/bar phase from elapsed time since
// phaseOriginNanos, never from an accumulator, so error never exceeds
// one polling interval regardless of run length.
func phaseFromOrigin(now, origin time.Time, bpm float64) (beatPhase, barPhase float64) {
	elapsedSeconds := now.Sub(origin).Seconds()
	secondsPerBeat := 60.0 / bpm
	beatPhase = frac(elapsedSeconds / secondsPerBeat)
	barPhase = frac(elapsedSeconds / (4 * secondsPerBeat))
	return
}

// TapClock derives bpm and phase origin from manual taps.
type TapClock struct {
	mu               sync.Mutex
	taps             []time.Time
	bpm              float64
	phaseOriginNanos time.Time
	now              func() time.Time
}

// NewTapClock creates a TapClock with the default bpm.
func NewTapClock() *TapClock {
	now := time.Now()
	return &TapClock{bpm: defaultBPM, phaseOriginNanos: now, now: time.Now}
}

// Tap registers a tap at the current time, recomputing bpm from the
// recent tap history and realigning the phase origin to the tap.
func (c *TapClock) Tap() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if len(c.taps) > 0 {
		gap := now.Sub(c.taps[len(c.taps)-1]).Seconds()
		if gap > tapGapResetSeconds {
			c.taps = nil
		}
	}

	c.taps = append(c.taps, now)
	if len(c.taps) > maxTapHistory {
		c.taps = c.taps[len(c.taps)-maxTapHistory:]
	}

	if len(c.taps) >= 2 {
		c.bpm = bpmFromTaps(c.taps)
	}
	c.phaseOriginNanos = now
}

// bpmFromTaps implements the median-of-medians tap tempo algorithm:
// compute inter-tap intervals, take their median, discard intervals
// outside [0.5*median, 2*median], then take the median of what remains.
func bpmFromTaps(taps []time.Time) float64 {
	intervals := make([]float64, 0, len(taps)-1)
	for i := 1; i < len(taps); i++ {
		intervals = append(intervals, taps[i].Sub(taps[i-1]).Seconds())
	}

	firstMedian := median(intervals)

	filtered := make([]float64, 0, len(intervals))
	for _, iv := range intervals {
		if iv >= 0.5*firstMedian && iv <= 2*firstMedian {
			filtered = append(filtered, iv)
		}
	}
	if len(filtered) == 0 {
		filtered = intervals
	}

	secondMedian := median(filtered)
	if secondMedian <= 0 {
		return defaultBPM
	}
	bpm := 60.0 / secondMedian
	return clamp(bpm, minBPM, maxBPM)
}

func median(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Phase returns the current bpm, beatPhase and barPhase.
func (c *TapClock) Phase() (bpm, beatPhase, barPhase float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	beatPhase, barPhase = phaseFromOrigin(c.now(), c.phaseOriginNanos, c.bpm)
	return c.bpm, beatPhase, barPhase
}

// Reset clears tap history and resets bpm to the default.
func (c *TapClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.taps = nil
	c.bpm = defaultBPM
	c.phaseOriginNanos = c.now()
}

// LinkSessionAPI is the mesh clock's dependency on an external
// Ableton-Link-style session.
type LinkSessionAPI interface {
	PeerCount() int
	BPM() float64
	BeatPhase() float64
	BarPhase() float64
	RequestBPM(bpm float64)
}

// MeshClock reads bpm/phase directly from a LinkSessionAPI whenever
// peers are present.
type MeshClock struct {
	session LinkSessionAPI
}

// NewMeshClock wraps a LinkSessionAPI.
func NewMeshClock(session LinkSessionAPI) *MeshClock {
	return &MeshClock{session: session}
}

// StandaloneSession is a LinkSessionAPI with no peers ever, for
// running the composite clock with mesh sync unavailable. The
// composite falls back to the tap clock immediately and stays there.
type StandaloneSession struct{}

func (StandaloneSession) PeerCount() int         { return 0 }
func (StandaloneSession) BPM() float64           { return 0 }
func (StandaloneSession) BeatPhase() float64     { return 0 }
func (StandaloneSession) BarPhase() float64      { return 0 }
func (StandaloneSession) RequestBPM(bpm float64) {}

// PeerCount reports the underlying session's peer count.
func (m *MeshClock) PeerCount() int { return m.session.PeerCount() }

// Phase returns the session's own bpm and phase values directly.
func (m *MeshClock) Phase() (bpm, beatPhase, barPhase float64) {
	return m.session.BPM(), m.session.BeatPhase(), m.session.BarPhase()
}

// Composite selects MESH when peers are present, otherwise falls back
// to the tap clock after noLinkTimeout without peers, and drives the
// updater loop that publishes BeatState.
type Composite struct {
	mu sync.RWMutex

	tap  *TapClock
	mesh *MeshClock

	noLinkTimeout  time.Duration
	updateInterval time.Duration

	runState        RunState
	startTime       time.Time
	frozenState     BeatState
	lastPeerSeen    time.Time
	hadPeersBefore  bool

	state           BeatState
	tempoMultiplier float64

	stopChan chan struct{}
	wg       sync.WaitGroup
	now      func() time.Time
}

// NewComposite creates a Composite clock with the spec's default
// timeouts (noLinkTimeoutMs=5000, updateIntervalMs=16).
func NewComposite(tap *TapClock, mesh *MeshClock) *Composite {
	return &Composite{
		tap:            tap,
		mesh:           mesh,
		noLinkTimeout:  noLinkTimeoutDefault,
		updateInterval: updateIntervalDefault,
		runState:        Stopped,
		tempoMultiplier: 1,
		stopChan:        make(chan struct{}),
		now:             time.Now,
	}
}

// SetTempoMultiplier scales the effective beat rate reported in
// BeatState without altering the underlying tap/mesh clock's own bpm
// or phase origin. Values <= 0 are ignored.
func (c *Composite) SetTempoMultiplier(m float64) {
	if m <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tempoMultiplier = m
}

// TempoMultiplier returns the current multiplier (default 1).
func (c *Composite) TempoMultiplier() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tempoMultiplier
}

// Start transitions STOPPED -> RUNNING, recording the start time, and
// launches the updater worker.
func (c *Composite) Start() {
	c.mu.Lock()
	if c.runState == Running {
		c.mu.Unlock()
		return
	}
	c.runState = Running
	c.startTime = c.now()
	c.stopChan = make(chan struct{})
	c.mu.Unlock()

	c.wg.Add(1)
	go c.updateLoop()
}

// Stop freezes the last computed BeatState and transitions to STOPPED.
func (c *Composite) Stop() {
	c.mu.Lock()
	if c.runState != Running {
		c.mu.Unlock()
		return
	}
	c.runState = Stopped
	c.frozenState = c.state
	close(c.stopChan)
	c.mu.Unlock()
	c.wg.Wait()
}

// Reset clears tap history, resets bpm to default, and transitions to
// STOPPED.
func (c *Composite) Reset() {
	c.Stop()
	c.tap.Reset()
	c.mu.Lock()
	c.state = Idle()
	c.mu.Unlock()
}

// Tap forwards a tap to the underlying TapClock.
func (c *Composite) Tap() { c.tap.Tap() }

// State returns the most recently published BeatState.
func (c *Composite) State() BeatState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.runState == Stopped {
		return c.frozenState
	}
	return c.state
}

func (c *Composite) updateLoop() {
	defer c.wg.Done()
	ticker := time.NewTicker(c.updateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopChan:
			return
		case <-ticker.C:
			c.tick()
		}
	}
}

func (c *Composite) tick() {
	c.mu.Lock()
	defer c.mu.Unlock()

	peers := 0
	if c.mesh != nil {
		peers = c.mesh.PeerCount()
	}

	now := c.now()
	var src Source
	var bpm, beatPhase, barPhase float64

	if peers > 0 {
		src = SourceMesh
		bpm, beatPhase, barPhase = c.mesh.Phase()
		c.lastPeerSeen = now
		c.hadPeersBefore = true
	} else {
		useMeshGrace := c.hadPeersBefore && now.Sub(c.lastPeerSeen) < c.noLinkTimeout
		if useMeshGrace {
			src = SourceMesh
			bpm, beatPhase, barPhase = c.state.BPM, c.state.BeatPhase, c.state.BarPhase
		} else {
			src = SourceTap
			bpm, beatPhase, barPhase = c.tap.Phase()
		}
	}

	if c.tempoMultiplier != 1 {
		bpm *= c.tempoMultiplier
		beatPhase = frac(beatPhase * c.tempoMultiplier)
		barPhase = frac(barPhase * c.tempoMultiplier)
	}

	elapsed := now.Sub(c.startTime).Seconds()
	c.state = BeatState{BPM: bpm, BeatPhase: beatPhase, BarPhase: barPhase, ElapsedSeconds: elapsed, Source: src, Run: Running}
}
