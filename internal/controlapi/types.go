package controlapi

import (
	"fmt"

	"github.com/chromadmx/chromadmx/internal/effects"
	"github.com/chromadmx/chromadmx/pkg/color"
	"github.com/chromadmx/chromadmx/pkg/params"
)

// effectFactories maps a JSON-facing effect name to a constructor for
// the corresponding stateless Effect.
var effectFactories = map[string]func() effects.Effect{
	"solid":     func() effects.Effect { return effects.Solid{} },
	"gradient3d": func() effects.Effect { return effects.Gradient3D{} },
	"chase3d":   func() effects.Effect { return effects.Chase3D{} },
	"wave3d":    func() effects.Effect { return effects.Wave3D{} },
	"strobe":    func() effects.Effect { return effects.Strobe{} },
}

var blendModeByName = map[string]effects.BlendMode{
	"normal":   effects.BlendNormal,
	"additive": effects.BlendAdditive,
	"multiply": effects.BlendMultiply,
	"overlay":  effects.BlendOverlay,
}

// layerRequest is the JSON body for creating or replacing a layer.
type layerRequest struct {
	Effect    string                 `json:"effect"`
	BlendMode string                 `json:"blendMode"`
	Opacity   float64                `json:"opacity"`
	Enabled   bool                   `json:"enabled"`
	Params    map[string]interface{} `json:"params"`
}

// toLayer converts a decoded layerRequest into an effects.EffectLayer.
func (r layerRequest) toLayer() (effects.EffectLayer, error) {
	factory, ok := effectFactories[r.Effect]
	if !ok {
		return effects.EffectLayer{}, fmt.Errorf("controlapi: unknown effect %q", r.Effect)
	}
	blend, ok := blendModeByName[r.BlendMode]
	if !ok {
		return effects.EffectLayer{}, fmt.Errorf("controlapi: unknown blend mode %q", r.BlendMode)
	}
	p, err := decodeParams(r.Params)
	if err != nil {
		return effects.EffectLayer{}, err
	}
	return effects.EffectLayer{
		Effect:    factory(),
		Params:    p,
		BlendMode: blend,
		Opacity:   r.Opacity,
		Enabled:   r.Enabled,
	}, nil
}

// decodeParams converts a generic JSON object into an EffectParams bag.
// Strings are treated as hex colors when they parse as one, else plain
// strings; arrays of strings are treated as color lists; numbers and
// booleans pass through directly.
func decodeParams(raw map[string]interface{}) (params.EffectParams, error) {
	p := params.Empty
	for key, v := range raw {
		switch val := v.(type) {
		case float64:
			p = p.With(key, params.FloatValue(val))
		case bool:
			p = p.With(key, params.BoolValue(val))
		case string:
			if c, err := color.ParseHex(val); err == nil {
				p = p.With(key, params.ColorValue(c))
			} else {
				p = p.With(key, params.StringValue(val))
			}
		case []interface{}:
			colors := make([]color.Color, 0, len(val))
			for _, item := range val {
				s, ok := item.(string)
				if !ok {
					return params.Empty, fmt.Errorf("controlapi: param %q list entries must be hex color strings", key)
				}
				c, err := color.ParseHex(s)
				if err != nil {
					return params.Empty, fmt.Errorf("controlapi: param %q: %w", key, err)
				}
				colors = append(colors, c)
			}
			p = p.With(key, params.ColorListValue(colors))
		default:
			return params.Empty, fmt.Errorf("controlapi: unsupported type for param %q", key)
		}
	}
	return p, nil
}

// layerResponse is the JSON-facing view of an EffectLayer.
type layerResponse struct {
	BlendMode string  `json:"blendMode"`
	Opacity   float64 `json:"opacity"`
	Enabled   bool    `json:"enabled"`
}

func blendModeName(b effects.BlendMode) string {
	for name, mode := range blendModeByName {
		if mode == b {
			return name
		}
	}
	return "unknown"
}

// sceneRequest is the JSON body for applying a previously captured
// scene: the same layer stack shape layerRequest uses, captured as a
// whole rather than mutated one index at a time.
type sceneRequest struct {
	Layers       []layerRequest `json:"layers"`
	MasterDimmer float64        `json:"masterDimmer"`
}

// toScene converts a decoded sceneRequest into an effects.Scene.
func (r sceneRequest) toScene() (effects.Scene, error) {
	layers := make([]effects.EffectLayer, len(r.Layers))
	for i, lr := range r.Layers {
		layer, err := lr.toLayer()
		if err != nil {
			return effects.Scene{}, err
		}
		layers[i] = layer
	}
	return effects.Scene{Layers: layers, MasterDimmer: r.MasterDimmer}, nil
}

// sceneResponse is the JSON-facing view of a captured effects.Scene.
type sceneResponse struct {
	Layers       []layerResponse `json:"layers"`
	MasterDimmer float64         `json:"masterDimmer"`
}

func newSceneResponse(scene effects.Scene) sceneResponse {
	resp := sceneResponse{Layers: make([]layerResponse, len(scene.Layers)), MasterDimmer: scene.MasterDimmer}
	for i, l := range scene.Layers {
		resp.Layers[i] = layerResponse{BlendMode: blendModeName(l.BlendMode), Opacity: l.Opacity, Enabled: l.Enabled}
	}
	return resp
}
