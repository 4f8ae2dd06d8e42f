// Package params provides EffectParams, the typed, immutable parameter bag
// passed to every effect evaluation.
package params

import "github.com/chromadmx/chromadmx/pkg/color"

// Kind tags the type carried by a Value.
type Kind int

const (
	KindFloat Kind = iota
	KindInt
	KindBool
	KindString
	KindColor
	KindColorList
)

// Value is a tagged union of the types an EffectParams entry may hold.
type Value struct {
	kind      Kind
	floatVal  float64
	intVal    int
	boolVal   bool
	stringVal string
	colorVal  color.Color
	colorList []color.Color
}

func FloatValue(v float64) Value    { return Value{kind: KindFloat, floatVal: v} }
func IntValue(v int) Value          { return Value{kind: KindInt, intVal: v} }
func BoolValue(v bool) Value        { return Value{kind: KindBool, boolVal: v} }
func StringValue(v string) Value    { return Value{kind: KindString, stringVal: v} }
func ColorValue(v color.Color) Value {
	return Value{kind: KindColor, colorVal: v}
}
func ColorListValue(v []color.Color) Value {
	cp := make([]color.Color, len(v))
	copy(cp, v)
	return Value{kind: KindColorList, colorList: cp}
}

// Kind reports the tag of the value.
func (v Value) Kind() Kind { return v.kind }

func (v Value) equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindFloat:
		return v.floatVal == other.floatVal
	case KindInt:
		return v.intVal == other.intVal
	case KindBool:
		return v.boolVal == other.boolVal
	case KindString:
		return v.stringVal == other.stringVal
	case KindColor:
		return v.colorVal == other.colorVal
	case KindColorList:
		if len(v.colorList) != len(other.colorList) {
			return false
		}
		for i := range v.colorList {
			if v.colorList[i] != other.colorList[i] {
				return false
			}
		}
		return true
	}
	return false
}

// EffectParams is an immutable mapping from string keys to typed values.
// Mutating operations (With, Merge) return a new bag.
type EffectParams struct {
	entries map[string]Value
}

// Empty is the zero-entry EffectParams.
var Empty = EffectParams{}

// With returns a new bag with key set to v, leaving the receiver untouched.
func (p EffectParams) With(key string, v Value) EffectParams {
	next := make(map[string]Value, len(p.entries)+1)
	for k, existing := range p.entries {
		next[k] = existing
	}
	next[key] = v
	return EffectParams{entries: next}
}

// Merge returns a new bag containing the receiver's entries overlaid with
// other's; keys present in other win.
func (p EffectParams) Merge(other EffectParams) EffectParams {
	next := make(map[string]Value, len(p.entries)+len(other.entries))
	for k, v := range p.entries {
		next[k] = v
	}
	for k, v := range other.entries {
		next[k] = v
	}
	return EffectParams{entries: next}
}

// Equal reports whether p and other hold the same keys and values.
func (p EffectParams) Equal(other EffectParams) bool {
	if len(p.entries) != len(other.entries) {
		return false
	}
	for k, v := range p.entries {
		ov, ok := other.entries[k]
		if !ok || !v.equal(ov) {
			return false
		}
	}
	return true
}

// GetFloat returns the float value at key, coercing from int, or def if the
// key is absent or holds an incompatible type.
func (p EffectParams) GetFloat(key string, def float64) float64 {
	v, ok := p.entries[key]
	if !ok {
		return def
	}
	switch v.kind {
	case KindFloat:
		return v.floatVal
	case KindInt:
		return float64(v.intVal)
	default:
		return def
	}
}

// GetInt returns the int value at key, coercing from float, or def otherwise.
func (p EffectParams) GetInt(key string, def int) int {
	v, ok := p.entries[key]
	if !ok {
		return def
	}
	switch v.kind {
	case KindInt:
		return v.intVal
	case KindFloat:
		return int(v.floatVal)
	default:
		return def
	}
}

// GetBool returns the bool value at key, or def otherwise.
func (p EffectParams) GetBool(key string, def bool) bool {
	v, ok := p.entries[key]
	if !ok || v.kind != KindBool {
		return def
	}
	return v.boolVal
}

// GetString returns the string value at key, or def otherwise.
func (p EffectParams) GetString(key string, def string) string {
	v, ok := p.entries[key]
	if !ok || v.kind != KindString {
		return def
	}
	return v.stringVal
}

// GetColor returns the color value at key, or def otherwise.
func (p EffectParams) GetColor(key string, def color.Color) color.Color {
	v, ok := p.entries[key]
	if !ok || v.kind != KindColor {
		return def
	}
	return v.colorVal
}

// GetColorList returns the color-list value at key, or def otherwise.
func (p EffectParams) GetColorList(key string, def []color.Color) []color.Color {
	v, ok := p.entries[key]
	if !ok || v.kind != KindColorList {
		return def
	}
	cp := make([]color.Color, len(v.colorList))
	copy(cp, v.colorList)
	return cp
}

// Has reports whether key is present.
func (p EffectParams) Has(key string) bool {
	_, ok := p.entries[key]
	return ok
}
