// Package dmxpipeline maps the effect engine's per-fixture color output
// onto per-universe 512-byte DMX frames and publishes them to the
// output service, at a fixed 40Hz rate.
package dmxpipeline

import (
	"time"

	"github.com/chromadmx/chromadmx/internal/dmxout"
	"github.com/chromadmx/chromadmx/internal/effects"
	"github.com/chromadmx/chromadmx/internal/fixture"
	"github.com/chromadmx/chromadmx/pkg/color"
)

const defaultRateHz = 40

// FrameSink is the subset of internal/dmxout.Service the pipeline
// depends on, so it can be faked in tests without a real UDP socket.
type FrameSink interface {
	UpdateFrame(f dmxout.Frame)
}

// FixtureList returns the current fixture snapshot; it may return a
// different slice each call, e.g. as fixtures are added/removed
// externally.
type FixtureList func() []fixture.Fixture

// ColorSource returns the engine's current read slot.
type ColorSource func() effects.ColorFrame

// Pipeline runs the 40Hz mapping loop.
type Pipeline struct {
	fixtures FixtureList
	colors   ColorSource
	sink     FrameSink
	rateHz   int

	stopChan chan struct{}
	done     chan struct{}
}

// New creates a Pipeline. rateHz defaults to 40 when <= 0.
func New(fixtures FixtureList, colors ColorSource, sink FrameSink, rateHz int) *Pipeline {
	if rateHz <= 0 {
		rateHz = defaultRateHz
	}
	return &Pipeline{
		fixtures: fixtures,
		colors:   colors,
		sink:     sink,
		rateHz:   rateHz,
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the mapping loop.
func (p *Pipeline) Start() {
	go p.loop()
}

// Stop signals the loop to exit and waits for it.
func (p *Pipeline) Stop() {
	close(p.stopChan)
	<-p.done
}

func (p *Pipeline) loop() {
	defer close(p.done)

	interval := time.Second / time.Duration(p.rateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stopChan:
			return
		case <-ticker.C:
			p.Tick()
		}
	}
}

// Tick runs one mapping pass: fixture list + color read slot -> a map
// of universe -> 512-byte frame, published to the sink.
func (p *Pipeline) Tick() {
	fixtures := p.fixtures()
	colors := p.colors()

	frame := make(dmxout.Frame)
	for i, f := range fixtures {
		if i >= len(colors) {
			break
		}
		out := colors[i]
		writeColor(frame, f, color.Color{R: out.R, G: out.G, B: out.B})
	}

	p.sink.UpdateFrame(frame)
}

// writeColor converts c's RGB components to 3 DMX bytes and writes
// them into frame[f.Universe] starting at channelStart-1, skipping the
// fixture entirely if the window would exceed 512 bytes.
func writeColor(frame dmxout.Frame, f fixture.Fixture, c color.Color) {
	start := f.ChannelStart - 1
	if start < 0 || start+3 > dmxout.UniverseSize {
		return
	}

	universe := uint16(f.Universe)
	data, ok := frame[universe]
	if !ok {
		data = [512]byte{}
	}

	bytes := c.ToDMXBytes()
	data[start] = bytes[0]
	data[start+1] = bytes[1]
	data[start+2] = bytes[2]
	frame[universe] = data
}
