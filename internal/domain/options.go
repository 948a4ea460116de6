package domain

import (
	"fmt"
	"math"
)

// Bounds of the generation parameters accepted by the Hunyuan3D pipeline.
const (
	MinSteps = 1
	MaxSteps = 50

	MinGuidanceScale  = 1.0
	MaxGuidanceScale  = 10.0
	GuidanceScaleStep = 0.5

	MinOctreeResolution  = 16
	MaxOctreeResolution  = 512
	OctreeResolutionStep = 16

	MinNumChunks  = 1000
	MaxNumChunks  = 10000
	NumChunksStep = 1000
)

// Options holds the named, bounded generation parameters for a conversion.
// Seed is stored regardless of RandomizeSeed but only forwarded to the
// provider when RandomizeSeed is false.
type Options struct {
	Steps            int     `json:"steps"`
	GuidanceScale    float64 `json:"guidance_scale"`
	Seed             int     `json:"seed"`
	OctreeResolution int     `json:"octree_resolution"`
	RemoveBackground bool    `json:"check_box_rembg"`
	NumChunks        int     `json:"num_chunks"`
	RandomizeSeed    bool    `json:"randomize_seed"`
}

// DefaultOptions returns the parameters preselected for a new session.
func DefaultOptions() Options {
	return Options{
		Steps:            30,
		GuidanceScale:    5,
		Seed:             1234,
		OctreeResolution: 256,
		RemoveBackground: true,
		NumChunks:        8000,
		RandomizeSeed:    true,
	}
}

// LowCostOptions returns the fixed cheap parameters the demo proxy sends to
// the provider regardless of what the caller selected.
func LowCostOptions() Options {
	return Options{
		Steps:            5,
		GuidanceScale:    3,
		Seed:             1234,
		OctreeResolution: 64,
		RemoveBackground: true,
		NumChunks:        8000,
		RandomizeSeed:    true,
	}
}

// Option keys accepted by Set.
const (
	KeySteps            = "steps"
	KeyGuidanceScale    = "guidance_scale"
	KeySeed             = "seed"
	KeyOctreeResolution = "octree_resolution"
	KeyRemoveBackground = "check_box_rembg"
	KeyNumChunks        = "num_chunks"
	KeyRandomizeSeed    = "randomize_seed"
)

// Set returns a copy of o with the named field updated. Numeric values are
// clamped into their declared range and snapped to the field's step, so the
// returned Options is always valid. Unknown keys and mismatched value types
// are rejected.
func (o Options) Set(key string, value any) (Options, error) {
	switch key {
	case KeySteps:
		v, err := intValue(value)
		if err != nil {
			return o, fmt.Errorf("options: %s: %w", key, err)
		}
		o.Steps = clampInt(v, MinSteps, MaxSteps)
	case KeyGuidanceScale:
		v, err := floatValue(value)
		if err != nil {
			return o, fmt.Errorf("options: %s: %w", key, err)
		}
		o.GuidanceScale = snapFloat(v, MinGuidanceScale, MaxGuidanceScale, GuidanceScaleStep)
	case KeySeed:
		v, err := intValue(value)
		if err != nil {
			return o, fmt.Errorf("options: %s: %w", key, err)
		}
		o.Seed = v
	case KeyOctreeResolution:
		v, err := intValue(value)
		if err != nil {
			return o, fmt.Errorf("options: %s: %w", key, err)
		}
		o.OctreeResolution = snapInt(v, MinOctreeResolution, MaxOctreeResolution, OctreeResolutionStep)
	case KeyRemoveBackground:
		v, ok := value.(bool)
		if !ok {
			return o, fmt.Errorf("options: %s: expected bool, got %T", key, value)
		}
		o.RemoveBackground = v
	case KeyNumChunks:
		v, err := intValue(value)
		if err != nil {
			return o, fmt.Errorf("options: %s: %w", key, err)
		}
		o.NumChunks = snapInt(v, MinNumChunks, MaxNumChunks, NumChunksStep)
	case KeyRandomizeSeed:
		v, ok := value.(bool)
		if !ok {
			return o, fmt.Errorf("options: %s: expected bool, got %T", key, value)
		}
		o.RandomizeSeed = v
	default:
		return o, fmt.Errorf("options: unknown key %q", key)
	}
	return o, nil
}

// Clamped normalizes every numeric field into its declared range. Decoding
// paths run values through this so a config round-trip can never apply an
// out-of-range parameter.
func (o Options) Clamped() Options {
	o.Steps = clampInt(o.Steps, MinSteps, MaxSteps)
	o.GuidanceScale = snapFloat(o.GuidanceScale, MinGuidanceScale, MaxGuidanceScale, GuidanceScaleStep)
	o.OctreeResolution = snapInt(o.OctreeResolution, MinOctreeResolution, MaxOctreeResolution, OctreeResolutionStep)
	o.NumChunks = snapInt(o.NumChunks, MinNumChunks, MaxNumChunks, NumChunksStep)
	return o
}

// Valid reports whether every numeric field sits inside its declared range
// and on its step grid.
func (o Options) Valid() bool {
	return o == o.Clamped()
}

func intValue(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		if n != math.Trunc(n) {
			return 0, fmt.Errorf("expected integer, got %v", n)
		}
		return int(n), nil
	default:
		return 0, fmt.Errorf("expected integer, got %T", v)
	}
}

func floatValue(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("expected number, got %T", v)
	}
}

func clampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func snapInt(v, min, max, step int) int {
	v = clampInt(v, min, max)
	v = min + ((v-min)+step/2)/step*step
	return clampInt(v, min, max)
}

func snapFloat(v, min, max, step float64) float64 {
	if v < min {
		v = min
	}
	if v > max {
		v = max
	}
	v = min + math.Round((v-min)/step)*step
	if v > max {
		v = max
	}
	return v
}
