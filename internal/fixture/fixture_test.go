package fixture

import "testing"

func TestLoadBuiltinProfiles_ParsesEmbeddedTable(t *testing.T) {
	profiles := LoadBuiltinProfiles()
	if len(profiles) == 0 {
		t.Fatalf("expected at least one built-in profile")
	}

	var found bool
	for _, p := range profiles {
		if p.ID == DefaultProfileID {
			found = true
			if p.ChannelCount() != 3 {
				t.Fatalf("generic-rgb-par channel count = %d, want 3", p.ChannelCount())
			}
			if _, ok := p.ChannelByType(ChannelRed); !ok {
				t.Fatalf("generic-rgb-par missing red channel")
			}
		}
	}
	if !found {
		t.Fatalf("expected built-in profile %q to be present", DefaultProfileID)
	}
}

func TestLoadBuiltinProfiles_MovingHeadHasMovementAndGobo(t *testing.T) {
	profiles := LoadBuiltinProfiles()
	for _, p := range profiles {
		if p.ID != "moving-head-rgbw" {
			continue
		}
		if !p.HasMovement {
			t.Fatalf("moving-head-rgbw.HasMovement = false, want true")
		}
		if _, ok := p.ChannelByType(ChannelGobo); !ok {
			t.Fatalf("moving-head-rgbw missing gobo channel")
		}
		if p.ColorMix != ColorMixRGBW {
			t.Fatalf("moving-head-rgbw.ColorMix = %v, want ColorMixRGBW", p.ColorMix)
		}
		return
	}
	t.Fatalf("moving-head-rgbw profile not found")
}

func TestChannelByType_ReturnsFirstMatch(t *testing.T) {
	p := FixtureProfile{
		Channels: []Channel{
			{Name: "r1", Type: ChannelRed, Offset: 0},
			{Name: "r2", Type: ChannelRed, Offset: 5},
		},
	}
	c, ok := p.ChannelByType(ChannelRed)
	if !ok || c.Name != "r1" {
		t.Fatalf("ChannelByType(ChannelRed) = %+v, %v, want first match r1", c, ok)
	}
}

func TestChannelByType_MissingReturnsFalse(t *testing.T) {
	p := FixtureProfile{}
	if _, ok := p.ChannelByType(ChannelPan); ok {
		t.Fatalf("expected ok=false for profile with no pan channel")
	}
}

func TestNewFixture_DefaultsEmptyProfileID(t *testing.T) {
	f := NewFixture("id-1", "Par 1", 1, 3, 0, "")
	if f.ProfileID != DefaultProfileID {
		t.Fatalf("ProfileID = %q, want default %q", f.ProfileID, DefaultProfileID)
	}
}

func TestNewFixture_KeepsExplicitProfileID(t *testing.T) {
	f := NewFixture("id-2", "Head 1", 1, 16, 0, "moving-head-rgbw")
	if f.ProfileID != "moving-head-rgbw" {
		t.Fatalf("ProfileID = %q, want moving-head-rgbw", f.ProfileID)
	}
}
