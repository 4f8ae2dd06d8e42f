package color

import "testing"

func TestClamp(t *testing.T) {
	c := Color{R: -0.5, G: 0.5, B: 1.5}
	got := c.Clamp()
	if got.R != 0 || got.G != 0.5 || got.B != 1 {
		t.Fatalf("Clamp() = %+v", got)
	}
}

func TestLerp(t *testing.T) {
	a := Color{R: 0}
	b := Color{R: 1}
	if got := a.Lerp(b, 0.25); got.R != 0.25 {
		t.Fatalf("Lerp(0.25) R = %v, want 0.25", got.R)
	}
	if got := a.Lerp(b, -1); got.R != 0 {
		t.Fatalf("Lerp clamps t below 0, got R=%v", got.R)
	}
	if got := a.Lerp(b, 2); got.R != 1 {
		t.Fatalf("Lerp clamps t above 1, got R=%v", got.R)
	}
}

func TestAddMulScale(t *testing.T) {
	a := Color{R: 0.2, G: 0.3, B: 0.4}
	b := Color{R: 0.1, G: 0.1, B: 0.1}
	if sum := a.Add(b); sum.R != 0.3 {
		t.Fatalf("Add R = %v, want 0.3", sum.R)
	}
	if prod := a.Mul(b); prod.G < 0.029 || prod.G > 0.031 {
		t.Fatalf("Mul G = %v, want ~0.03", prod.G)
	}
	if scaled := a.Scale(2); scaled.B != 0.8 {
		t.Fatalf("Scale B = %v, want 0.8", scaled.B)
	}
}

func TestToDMXBytesRoundsAndClamps(t *testing.T) {
	c := Color{R: 1, G: 0.5, B: -1}
	b := c.ToDMXBytes()
	if b[0] != 255 {
		t.Fatalf("R byte = %d, want 255", b[0])
	}
	if b[1] != 128 {
		t.Fatalf("G byte = %d, want 128 (round(0.5*255))", b[1])
	}
	if b[2] != 0 {
		t.Fatalf("B byte = %d, want 0 (clamped)", b[2])
	}
}

func TestFromDMXBytesRoundTrip(t *testing.T) {
	buf := []byte{0, 255, 0, 128, 64}
	c, err := FromDMXBytes(buf, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.R != 1 {
		t.Fatalf("R = %v, want 1", c.R)
	}
	if _, err := FromDMXBytes(buf, 3); err != ErrShortBuffer {
		t.Fatalf("expected ErrShortBuffer, got %v", err)
	}
	if _, err := FromDMXBytes(buf, -1); err != ErrShortBuffer {
		t.Fatalf("expected ErrShortBuffer for negative offset, got %v", err)
	}
}

func TestParseHex(t *testing.T) {
	cases := []struct {
		in   string
		want Color
	}{
		{"#FF0000", Color{R: 1}},
		{"00FF00", Color{G: 1}},
		{"#0000ff", Color{B: 1}},
	}
	for _, c := range cases {
		got, err := ParseHex(c.in)
		if err != nil {
			t.Fatalf("ParseHex(%q) error: %v", c.in, err)
		}
		if got != c.want {
			t.Fatalf("ParseHex(%q) = %+v, want %+v", c.in, got, c.want)
		}
	}
}

func TestParseHex_RejectsMalformed(t *testing.T) {
	for _, in := range []string{"#FFF", "#GGGGGG", "", "#FF00001"} {
		if _, err := ParseHex(in); err == nil {
			t.Fatalf("ParseHex(%q) expected error", in)
		}
	}
}

func TestHexRoundTrip(t *testing.T) {
	c := Color{R: 1, G: 0, B: 0.5}
	s := c.Hex()
	parsed, err := ParseHex(s)
	if err != nil {
		t.Fatalf("ParseHex(%q) error: %v", s, err)
	}
	if parsed.ToDMXBytes() != c.ToDMXBytes() {
		t.Fatalf("round trip mismatch: %s -> %+v", s, parsed)
	}
}
