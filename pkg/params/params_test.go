package params

import (
	"testing"

	"github.com/chromadmx/chromadmx/pkg/color"
)

func TestWithThenGet(t *testing.T) {
	p := Empty.With("speed", FloatValue(2.5))
	if got := p.GetFloat("speed", 0); got != 2.5 {
		t.Fatalf("GetFloat = %v, want 2.5", got)
	}
}

func TestWithOverwritesPreviousValue(t *testing.T) {
	p := Empty.With("mode", IntValue(1)).With("mode", IntValue(2))
	if got := p.GetInt("mode", -1); got != 2 {
		t.Fatalf("GetInt = %v, want 2", got)
	}
}

func TestMergePrefersOther(t *testing.T) {
	a := Empty.With("x", FloatValue(1)).With("y", FloatValue(2))
	b := Empty.With("y", FloatValue(9))
	merged := a.Merge(b)

	if got := merged.GetFloat("x", 0); got != 1 {
		t.Fatalf("GetFloat(x) = %v, want 1 (only in a)", got)
	}
	if got := merged.GetFloat("y", 0); got != 9 {
		t.Fatalf("GetFloat(y) = %v, want 9 (b wins)", got)
	}
}

func TestGetMissingKeyReturnsDefault(t *testing.T) {
	if got := Empty.GetFloat("nope", 3.14); got != 3.14 {
		t.Fatalf("GetFloat on missing key = %v, want default 3.14", got)
	}
	if got := Empty.GetBool("nope", true); got != true {
		t.Fatalf("GetBool on missing key = %v, want default true", got)
	}
}

func TestGetWrongKindReturnsDefault(t *testing.T) {
	p := Empty.With("k", StringValue("hello"))
	if got := p.GetFloat("k", 7); got != 7 {
		t.Fatalf("GetFloat on string-typed key = %v, want default 7", got)
	}
}

func TestIntFloatCoercion(t *testing.T) {
	p := Empty.With("a", IntValue(4)).With("b", FloatValue(2.9))
	if got := p.GetFloat("a", 0); got != 4 {
		t.Fatalf("GetFloat coerced from int = %v, want 4", got)
	}
	if got := p.GetInt("b", 0); got != 2 {
		t.Fatalf("GetInt coerced from float = %v, want 2 (truncated)", got)
	}
}

func TestColorAndColorListRoundTrip(t *testing.T) {
	red := color.Color{R: 1, G: 0, B: 0}
	palette := []color.Color{red, color.White, color.Black}

	p := Empty.With("tint", ColorValue(red)).With("palette", ColorListValue(palette))

	if got := p.GetColor("tint", color.Black); got != red {
		t.Fatalf("GetColor = %+v, want %+v", got, red)
	}
	gotList := p.GetColorList("palette", nil)
	if len(gotList) != len(palette) {
		t.Fatalf("GetColorList length = %d, want %d", len(gotList), len(palette))
	}
	for i := range palette {
		if gotList[i] != palette[i] {
			t.Fatalf("GetColorList[%d] = %+v, want %+v", i, gotList[i], palette[i])
		}
	}
}

func TestColorListValueIsCopied(t *testing.T) {
	original := []color.Color{color.White}
	v := ColorListValue(original)
	original[0] = color.Black

	p := Empty.With("p", v)
	got := p.GetColorList("p", nil)
	if got[0] != color.White {
		t.Fatalf("ColorListValue retained a reference to caller's slice, got mutated to %+v", got[0])
	}
}

func TestHas(t *testing.T) {
	p := Empty.With("k", BoolValue(true))
	if !p.Has("k") {
		t.Fatalf("Has(k) = false, want true")
	}
	if p.Has("missing") {
		t.Fatalf("Has(missing) = true, want false")
	}
}

func TestEqual(t *testing.T) {
	a := Empty.With("x", FloatValue(1)).With("y", StringValue("z"))
	b := Empty.With("y", StringValue("z")).With("x", FloatValue(1))
	c := Empty.With("x", FloatValue(2))

	if !a.Equal(b) {
		t.Fatalf("Equal(a, b) = false, want true (same entries, different insertion order)")
	}
	if a.Equal(c) {
		t.Fatalf("Equal(a, c) = true, want false (different values)")
	}
}

func TestWithDoesNotMutateReceiver(t *testing.T) {
	base := Empty.With("k", IntValue(1))
	derived := base.With("k", IntValue(2))

	if got := base.GetInt("k", -1); got != 1 {
		t.Fatalf("base mutated by With: GetInt = %v, want 1", got)
	}
	if got := derived.GetInt("k", -1); got != 2 {
		t.Fatalf("derived.GetInt = %v, want 2", got)
	}
}
