// Package fixture defines the fixture and profile data model: channel
// layout, capability flags, and the built-in profile table.
package fixture

// ChannelType tags what a Channel's byte controls.
type ChannelType int

const (
	ChannelRed ChannelType = iota
	ChannelGreen
	ChannelBlue
	ChannelWhite
	ChannelDimmer
	ChannelPan
	ChannelTilt
	ChannelFocus
	ChannelZoom
	ChannelStrobeRate
	ChannelGobo
	ChannelOther
)

// ColorMixMode is a fixture's color-mixing capability.
type ColorMixMode int

const (
	ColorMixNone ColorMixMode = iota
	ColorMixRGB
	ColorMixRGBW
	ColorMixCMY
)

// RenderHint suggests how a fixture should be visualized by a
// collaborator; it has no effect on dataplane rendering.
type RenderHint int

const (
	RenderPoint RenderHint = iota
	RenderBar
	RenderBeamCone
)

// Channel describes one byte offset within a fixture's DMX window.
type Channel struct {
	Name         string
	Type         ChannelType
	Offset       int // 0-based, relative to the fixture's channelStart
	DefaultValue byte
}

// PhysicalDescriptor captures a fixture's optical/mechanical limits.
type PhysicalDescriptor struct {
	BeamAngleDegrees float64
	PanRangeDegrees  float64
	TiltRangeDegrees float64
	PixelCount       int
}

// FixtureProfile is a stable, process-lifetime-static description of a
// fixture type: its channel layout, capabilities and physical shape.
type FixtureProfile struct {
	ID            string
	Name          string
	FixtureType   string
	Channels      []Channel
	HasMovement   bool
	ColorMix      ColorMixMode
	Physical      PhysicalDescriptor
	RenderHint    RenderHint
}

// ChannelCount is derived from the channel list.
func (p FixtureProfile) ChannelCount() int {
	return len(p.Channels)
}

// ChannelByType returns the first channel matching t, if any.
func (p FixtureProfile) ChannelByType(t ChannelType) (Channel, bool) {
	for _, c := range p.Channels {
		if c.Type == t {
			return c, true
		}
	}
	return Channel{}, false
}

// Fixture is a single addressed instance of a FixtureProfile.
type Fixture struct {
	ID           string
	Name         string
	ChannelStart int // 1-based DMX start address
	ChannelCount int
	Universe     int // 0-based
	ProfileID    string
}

// NewFixture builds a Fixture, defaulting ProfileID to DefaultProfileID
// when the caller leaves it empty, per spec §3's "profileId (defaults
// to generic RGB par)".
func NewFixture(id, name string, channelStart, channelCount, universe int, profileID string) Fixture {
	if profileID == "" {
		profileID = DefaultProfileID
	}
	return Fixture{
		ID:           id,
		Name:         name,
		ChannelStart: channelStart,
		ChannelCount: channelCount,
		Universe:     universe,
		ProfileID:    profileID,
	}
}

// Fixture3D adds a 3D position to a Fixture (z = up, metres).
type Fixture3D struct {
	Fixture
	X, Y, Z float64
	GroupID string
}

// FixtureOutput is a fully-rendered fixture frame: a color plus
// optional movement/beam-shaping channels. Nil pointers mean "no
// opinion" per spec §4.I's blending rules (a null overlay preserves
// base; a null base with non-null overlay treats base as 0).
type FixtureOutput struct {
	R, G, B float32

	Pan        *float64
	Tilt       *float64
	Gobo       *int
	Focus      *float64
	Zoom       *float64
	StrobeRate *float64
}

// BlackOutput is the identity FixtureOutput: black, all channels null.
func BlackOutput() FixtureOutput {
	return FixtureOutput{}
}
