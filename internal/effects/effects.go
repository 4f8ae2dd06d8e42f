// Package effects implements the layered, beat-synchronized effect
// engine: stateless Effect functions evaluated per fixture per frame,
// composited through an ordered stack of blended layers into a
// triple-buffered color frame.
package effects

import (
	"math"

	"github.com/chromadmx/chromadmx/internal/beatclock"
	"github.com/chromadmx/chromadmx/internal/fixture"
	"github.com/chromadmx/chromadmx/pkg/color"
	"github.com/chromadmx/chromadmx/pkg/params"
)

// Vec3 is a 3D position in metres, z = up.
type Vec3 struct {
	X, Y, Z float64
}

// Effect is a pure, stateless function: any time dependence must enter
// through the beat argument, never through effect-owned state.
type Effect interface {
	Evaluate(pos Vec3, pixelIndexHint int, beat beatclock.BeatState, p params.EffectParams) fixture.FixtureOutput
}

// BlendMode selects how a layer composites onto the accumulated base.
type BlendMode int

const (
	BlendNormal BlendMode = iota
	BlendAdditive
	BlendMultiply
	BlendOverlay
)

// EffectLayer is one entry in an EffectStack.
type EffectLayer struct {
	Effect    Effect
	Params    params.EffectParams
	BlendMode BlendMode
	Opacity   float64 // [0,1]
	Enabled   bool
}

// EffectStack is an ordered (bottom-first) list of layers plus a
// master dimmer applied after compositing.
type EffectStack struct {
	Layers       []EffectLayer
	MasterDimmer float64 // [0,1]
}

func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func blendComponent(base, overlay float32, mode BlendMode, opacity float32) float32 {
	switch mode {
	case BlendAdditive:
		return clamp01(base + overlay*opacity)
	case BlendMultiply:
		return base + (base*overlay-base)*opacity
	case BlendOverlay:
		return base + (overlayFormula(base, overlay)-base)*opacity
	default: // BlendNormal
		return base + (overlay-base)*opacity
	}
}

// overlayFormula implements the classic photographic "overlay" blend:
// for base<0.5 it behaves like multiply (darkens), otherwise like
// screen (lightens).
func overlayFormula(base, overlay float32) float32 {
	if base < 0.5 {
		return 2 * base * overlay
	}
	return 1 - 2*(1-base)*(1-overlay)
}

func blendFloatPtr(base, overlay *float64, mode BlendMode, opacity float64) *float64 {
	if overlay == nil {
		return base
	}
	var b float64
	if base != nil {
		b = *base
	}
	result := float64(blendComponent(float32(b), float32(*overlay), mode, float32(opacity)))
	return &result
}

func blendGoboPtr(base, overlay *int, opacity float64) *int {
	if overlay != nil && opacity > 0 {
		v := *overlay
		return &v
	}
	return base
}

// blendWith composites overlay onto base per mode/opacity, including
// color, movement channels and the gobo replace-only rule.
func blendWith(base, overlay fixture.FixtureOutput, mode BlendMode, opacity float64) fixture.FixtureOutput {
	out := blendMovementOnly(base, overlay, mode, opacity)
	o := float32(opacity)
	out.R = blendComponent(base.R, overlay.R, mode, o)
	out.G = blendComponent(base.G, overlay.G, mode, o)
	out.B = blendComponent(base.B, overlay.B, mode, o)
	return out
}

// blendMovementOnly blends movement/gobo channels identically to
// blendWith but always preserves the base color untouched.
func blendMovementOnly(base, overlay fixture.FixtureOutput, mode BlendMode, opacity float64) fixture.FixtureOutput {
	out := base
	out.Pan = blendFloatPtr(base.Pan, overlay.Pan, mode, opacity)
	out.Tilt = blendFloatPtr(base.Tilt, overlay.Tilt, mode, opacity)
	out.Focus = blendFloatPtr(base.Focus, overlay.Focus, mode, opacity)
	out.Zoom = blendFloatPtr(base.Zoom, overlay.Zoom, mode, opacity)
	out.StrobeRate = blendFloatPtr(base.StrobeRate, overlay.StrobeRate, mode, opacity)
	out.Gobo = blendGoboPtr(base.Gobo, overlay.Gobo, opacity)
	return out
}

// Evaluate runs the full per-frame evaluation for one fixture at
// position p: starts from black/all-null, composites every enabled
// layer in order, then scales the resulting color by MasterDimmer.
func (s EffectStack) Evaluate(p Vec3, pixelIndexHint int, beat beatclock.BeatState) fixture.FixtureOutput {
	out := fixture.BlackOutput()
	for _, layer := range s.Layers {
		if !layer.Enabled || layer.Effect == nil {
			continue
		}
		layerOut := layer.Effect.Evaluate(p, pixelIndexHint, beat, layer.Params)
		out = blendWith(out, layerOut, layer.BlendMode, layer.Opacity)
	}

	dimmer := float32(s.MasterDimmer)
	out.R *= dimmer
	out.G *= dimmer
	out.B *= dimmer
	return out
}

// Solid is a stateless effect that always outputs a fixed color.
type Solid struct{}

// Evaluate returns the "color" param (default black).
func (Solid) Evaluate(_ Vec3, _ int, _ beatclock.BeatState, p params.EffectParams) fixture.FixtureOutput {
	c := p.GetColor("color", color.Black)
	return fixture.FixtureOutput{R: c.R, G: c.G, B: c.B}
}

// Gradient3D linearly interpolates between two colors in "palette"
// along a chosen spatial axis, using pos within [axisMin, axisMax].
type Gradient3D struct{}

// Evaluate interpolates t = (pos[axis]-min)/(max-min), clamped, between
// palette[0] and palette[1].
func (Gradient3D) Evaluate(pos Vec3, _ int, _ beatclock.BeatState, p params.EffectParams) fixture.FixtureOutput {
	axis := p.GetString("axis", "x")
	axisMin := p.GetFloat("axisMin", 0)
	axisMax := p.GetFloat("axisMax", 1)

	var coord float64
	switch axis {
	case "y":
		coord = pos.Y
	case "z":
		coord = pos.Z
	default:
		coord = pos.X
	}

	t := 0.0
	if axisMax != axisMin {
		t = (coord - axisMin) / (axisMax - axisMin)
	}
	if t < 0 {
		t = 0
	}
	if t > 1 {
		t = 1
	}

	palette := p.GetColorList("palette", nil)
	if len(palette) < 2 {
		return fixture.BlackOutput()
	}
	start, end := palette[0], palette[1]
	return fixture.FixtureOutput{
		R: start.R + (end.R-start.R)*float32(t),
		G: start.G + (end.G-start.G)*float32(t),
		B: start.B + (end.B-start.B)*float32(t),
	}
}

// Chase3D lights up one pixel at a time along pixelIndexHint, advancing
// with beat phase.
type Chase3D struct{}

// Evaluate illuminates the fixture whose pixelIndexHint matches the
// current chase position, derived from beatPhase and a "width" param.
func (Chase3D) Evaluate(_ Vec3, pixelIndexHint int, beat beatclock.BeatState, p params.EffectParams) fixture.FixtureOutput {
	count := p.GetInt("pixelCount", 1)
	width := p.GetInt("width", 1)
	if count <= 0 {
		count = 1
	}
	pos := int(beat.BeatPhase * float64(count))

	for w := 0; w < width; w++ {
		if (pos+w)%count == pixelIndexHint%count {
			c := p.GetColor("color", color.White)
			return fixture.FixtureOutput{R: c.R, G: c.G, B: c.B}
		}
	}
	return fixture.BlackOutput()
}

// Wave3D produces a sinusoidal brightness wave traveling along an axis,
// phase-locked to the beat clock.
type Wave3D struct{}

// Evaluate computes brightness = 0.5 + 0.5*sin(2*pi*(beatPhase + pos[axis]/wavelength)).
func (Wave3D) Evaluate(pos Vec3, _ int, beat beatclock.BeatState, p params.EffectParams) fixture.FixtureOutput {
	axis := p.GetString("axis", "x")
	wavelength := p.GetFloat("wavelength", 1)
	if wavelength == 0 {
		wavelength = 1
	}

	var coord float64
	switch axis {
	case "y":
		coord = pos.Y
	case "z":
		coord = pos.Z
	default:
		coord = pos.X
	}

	phase := beat.BeatPhase + coord/wavelength
	brightness := 0.5 + 0.5*math.Sin(2*math.Pi*phase)

	c := p.GetColor("color", color.White)
	return fixture.FixtureOutput{
		R: c.R * float32(brightness),
		G: c.G * float32(brightness),
		B: c.B * float32(brightness),
	}
}

// Strobe blinks between full color and black at "rateHz" times per
// second, driven by beatPhase rather than wall clock so it stays
// beat-synchronized.
type Strobe struct{}

// Evaluate is on for the first "duty" fraction of each strobe cycle.
func (Strobe) Evaluate(_ Vec3, _ int, beat beatclock.BeatState, p params.EffectParams) fixture.FixtureOutput {
	cyclesPerBeat := p.GetFloat("cyclesPerBeat", 1)
	duty := p.GetFloat("duty", 0.5)
	if cyclesPerBeat <= 0 {
		cyclesPerBeat = 1
	}

	cyclePhase := beat.BeatPhase * cyclesPerBeat
	_, frac := math.Modf(cyclePhase)

	if frac < duty {
		c := p.GetColor("color", color.White)
		return fixture.FixtureOutput{R: c.R, G: c.G, B: c.B}
	}
	return fixture.BlackOutput()
}
