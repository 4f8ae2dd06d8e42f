package effects

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/chromadmx/chromadmx/internal/beatclock"
	"github.com/chromadmx/chromadmx/internal/fixture"
)

// ColorFrame maps a fixture index to its rendered output for one frame.
type ColorFrame []fixture.FixtureOutput

// TripleBuffer gives a single writer exclusive access to a write slot
// while readers observe a stable, complete read slot. swapWrite
// atomically promotes write->ready and reclaims the previous read
// slot as the next write target; readers never see a torn frame.
type TripleBuffer struct {
	read  atomic.Pointer[ColorFrame]
	write ColorFrame
	spare ColorFrame
}

// NewTripleBuffer creates a buffer sized for n fixtures.
func NewTripleBuffer(n int) *TripleBuffer {
	empty := make(ColorFrame, n)
	tb := &TripleBuffer{write: make(ColorFrame, n), spare: make(ColorFrame, n)}
	tb.read.Store(&empty)
	return tb
}

// WriteSlot returns the buffer the writer should fill this frame.
func (tb *TripleBuffer) WriteSlot() ColorFrame {
	return tb.write
}

// SwapWrite publishes the current write slot as the new read slot and
// reclaims the previous read slot's backing array as the next write
// target (same length, so no allocation in steady state).
func (tb *TripleBuffer) SwapWrite() {
	published := tb.write
	old := tb.read.Swap(&published)
	if old != nil && len(*old) == len(tb.write) {
		tb.write = *old
	} else {
		tb.write = tb.spare
	}
}

// ReadSlot returns the current stable frame. Callers must not retain
// references across frames per spec §3's triple-buffer lifecycle note.
func (tb *TripleBuffer) ReadSlot() ColorFrame {
	return *tb.read.Load()
}

// FixturePosition pairs a fixture with its spatial position and pixel
// index hint for per-frame evaluation.
type FixturePosition struct {
	Position       Vec3
	PixelIndexHint int
}

// Scene is a named, capturable copy of the layer stack at a point in
// time: the in-memory analogue of the collaborator "capture scene;
// apply scene/preset" operation. It holds the same layers and master
// dimmer a live EffectStack does, but is a value the caller owns and
// can hold onto (e.g. to apply later) independent of the engine's own
// current state.
type Scene struct {
	Layers       []EffectLayer
	MasterDimmer float64
}

// LayerController is the interface the collaborator-facing control
// plane uses to mutate the engine's layer stack, master dimmer and
// beat source without reaching into engine internals directly.
type LayerController interface {
	SetLayer(index int, layer EffectLayer)
	AppendLayer(layer EffectLayer)
	RemoveLayer(index int)
	SetMasterDimmer(v float64)
	Snapshot() EffectStack
	CaptureScene() Scene
	ApplyScene(scene Scene)
}

// Engine owns the layer stack, a beat source and the triple-buffered
// color output, and runs the render loop on its own goroutine at a
// target rate decoupled from the DMX output rate.
type Engine struct {
	mu    sync.RWMutex
	stack EffectStack

	beat func() beatclock.BeatState

	positions []FixturePosition
	buf       *TripleBuffer

	targetRateHz int
	stopChan     chan struct{}
	wg           sync.WaitGroup
}

// NewEngine creates an Engine for the given fixture positions, reading
// beat state via beatSource. targetRateHz defaults to 60 when <= 0.
func NewEngine(positions []FixturePosition, beatSource func() beatclock.BeatState, targetRateHz int) *Engine {
	if targetRateHz <= 0 {
		targetRateHz = 60
	}
	return &Engine{
		stack:        EffectStack{MasterDimmer: 1},
		beat:         beatSource,
		positions:    positions,
		buf:          NewTripleBuffer(len(positions)),
		targetRateHz: targetRateHz,
		stopChan:     make(chan struct{}),
	}
}

// Start launches the render loop.
func (e *Engine) Start() {
	e.wg.Add(1)
	go e.renderLoop()
}

// Stop signals the render loop to exit and waits for it.
func (e *Engine) Stop() {
	close(e.stopChan)
	e.wg.Wait()
}

// ReadSlot exposes the current stable color frame.
func (e *Engine) ReadSlot() ColorFrame {
	return e.buf.ReadSlot()
}

func (e *Engine) renderLoop() {
	defer e.wg.Done()

	interval := time.Second / time.Duration(e.targetRateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-e.stopChan:
			return
		case <-ticker.C:
			e.renderFrame()
		}
	}
}

// renderFrame evaluates every fixture against a single consistent
// layer-stack snapshot and beat reading, then swaps the result into
// the read slot. A missed deadline simply skips this tick; there is
// no catch-up burst.
func (e *Engine) renderFrame() {
	e.mu.RLock()
	stack := e.stack
	e.mu.RUnlock()

	beat := e.beat()
	slot := e.buf.WriteSlot()
	for i, fp := range e.positions {
		out := stack.Evaluate(fp.Position, fp.PixelIndexHint, beat)
		slot[i] = out
	}
	e.buf.SwapWrite()
}

// SetLayer replaces the layer at index, growing the stack if needed.
func (e *Engine) SetLayer(index int, layer EffectLayer) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for len(e.stack.Layers) <= index {
		e.stack.Layers = append(e.stack.Layers, EffectLayer{})
	}
	e.stack.Layers[index] = layer
}

// AppendLayer adds a new top layer.
func (e *Engine) AppendLayer(layer EffectLayer) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stack.Layers = append(e.stack.Layers, layer)
}

// RemoveLayer removes the layer at index, if present.
func (e *Engine) RemoveLayer(index int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if index < 0 || index >= len(e.stack.Layers) {
		return
	}
	e.stack.Layers = append(e.stack.Layers[:index], e.stack.Layers[index+1:]...)
}

// SetMasterDimmer updates the stack's master dimmer.
func (e *Engine) SetMasterDimmer(v float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stack.MasterDimmer = v
}

// Snapshot returns a copy of the current layer stack.
func (e *Engine) Snapshot() EffectStack {
	e.mu.RLock()
	defer e.mu.RUnlock()
	cp := e.stack
	cp.Layers = append([]EffectLayer(nil), e.stack.Layers...)
	return cp
}

// CaptureScene snapshots the current layer stack and master dimmer
// into a Scene the caller can hold onto and re-apply later with
// ApplyScene, independent of whatever the engine's live stack does in
// the meantime.
func (e *Engine) CaptureScene() Scene {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return Scene{
		Layers:       append([]EffectLayer(nil), e.stack.Layers...),
		MasterDimmer: e.stack.MasterDimmer,
	}
}

// ApplyScene replaces the entire live layer stack and master dimmer
// with a previously captured Scene in a single atomic swap, so a
// renderFrame never observes a partially-applied scene.
func (e *Engine) ApplyScene(scene Scene) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stack = EffectStack{
		Layers:       append([]EffectLayer(nil), scene.Layers...),
		MasterDimmer: scene.MasterDimmer,
	}
}

var _ LayerController = (*Engine)(nil)
