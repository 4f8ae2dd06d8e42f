package fixture

import (
	_ "embed"
	"fmt"

	"github.com/BurntSushi/toml"
)

//go:embed profiles.toml
var builtinProfilesTOML []byte

type tomlChannel struct {
	Name         string `toml:"name"`
	Type         string `toml:"type"`
	Offset       int    `toml:"offset"`
	DefaultValue int    `toml:"default_value"`
}

type tomlProfile struct {
	ID               string        `toml:"id"`
	Name             string        `toml:"name"`
	FixtureType      string        `toml:"fixture_type"`
	ColorMix         string        `toml:"color_mix"`
	RenderHint       string        `toml:"render_hint"`
	HasMovement      bool          `toml:"has_movement"`
	BeamAngleDegrees float64       `toml:"beam_angle_degrees"`
	PanRangeDegrees  float64       `toml:"pan_range_degrees"`
	TiltRangeDegrees float64       `toml:"tilt_range_degrees"`
	PixelCount       int           `toml:"pixel_count"`
	Channels         []tomlChannel `toml:"channel"`
}

type tomlDocument struct {
	Profiles []tomlProfile `toml:"profile"`
}

var channelTypeByName = map[string]ChannelType{
	"red":         ChannelRed,
	"green":       ChannelGreen,
	"blue":        ChannelBlue,
	"white":       ChannelWhite,
	"dimmer":      ChannelDimmer,
	"pan":         ChannelPan,
	"tilt":        ChannelTilt,
	"focus":       ChannelFocus,
	"zoom":        ChannelZoom,
	"strobe_rate": ChannelStrobeRate,
	"gobo":        ChannelGobo,
}

var colorMixByName = map[string]ColorMixMode{
	"none": ColorMixNone,
	"rgb":  ColorMixRGB,
	"rgbw": ColorMixRGBW,
	"cmy":  ColorMixCMY,
}

var renderHintByName = map[string]RenderHint{
	"point":     RenderPoint,
	"bar":       RenderBar,
	"beam_cone": RenderBeamCone,
}

func parseChannelType(name string) (ChannelType, error) {
	t, ok := channelTypeByName[name]
	if !ok {
		return 0, fmt.Errorf("fixture: unknown channel type %q", name)
	}
	return t, nil
}

// LoadBuiltinProfiles decodes the embedded built-in profile table.
// It panics on malformed embedded TOML, since that would be a build
// defect rather than a runtime condition any caller could recover from.
func LoadBuiltinProfiles() []FixtureProfile {
	profiles, err := parseProfilesTOML(builtinProfilesTOML)
	if err != nil {
		panic(fmt.Sprintf("fixture: embedded profiles.toml is invalid: %v", err))
	}
	return profiles
}

func parseProfilesTOML(data []byte) ([]FixtureProfile, error) {
	var doc tomlDocument
	if _, err := toml.Decode(string(data), &doc); err != nil {
		return nil, fmt.Errorf("fixture: decode profiles: %w", err)
	}

	out := make([]FixtureProfile, 0, len(doc.Profiles))
	for _, tp := range doc.Profiles {
		channels := make([]Channel, 0, len(tp.Channels))
		for _, tc := range tp.Channels {
			ct, err := parseChannelType(tc.Type)
			if err != nil {
				return nil, fmt.Errorf("fixture: profile %q: %w", tp.ID, err)
			}
			channels = append(channels, Channel{
				Name:         tc.Name,
				Type:         ct,
				Offset:       tc.Offset,
				DefaultValue: byte(tc.DefaultValue),
			})
		}

		colorMix := ColorMixNone
		if tp.ColorMix != "" {
			cm, ok := colorMixByName[tp.ColorMix]
			if !ok {
				return nil, fmt.Errorf("fixture: profile %q: unknown color_mix %q", tp.ID, tp.ColorMix)
			}
			colorMix = cm
		}

		hint := RenderPoint
		if tp.RenderHint != "" {
			rh, ok := renderHintByName[tp.RenderHint]
			if !ok {
				return nil, fmt.Errorf("fixture: profile %q: unknown render_hint %q", tp.ID, tp.RenderHint)
			}
			hint = rh
		}

		out = append(out, FixtureProfile{
			ID:          tp.ID,
			Name:        tp.Name,
			FixtureType: tp.FixtureType,
			Channels:    channels,
			HasMovement: tp.HasMovement,
			ColorMix:    colorMix,
			Physical: PhysicalDescriptor{
				BeamAngleDegrees: tp.BeamAngleDegrees,
				PanRangeDegrees:  tp.PanRangeDegrees,
				TiltRangeDegrees: tp.TiltRangeDegrees,
				PixelCount:       tp.PixelCount,
			},
			RenderHint: hint,
		})
	}
	return out, nil
}

// DefaultProfileID is the profile NewFixture falls back to when a
// caller leaves ProfileID empty.
const DefaultProfileID = "generic-rgb-par"
