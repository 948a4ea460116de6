package viewer

import "math"

// TargetSize is the fixed extent every presented model is scaled to.
// Generated assets arrive at arbitrary provider-determined scale and
// position; mapping the largest dimension to this size makes them
// comparable without per-asset tuning.
const TargetSize = 2.5

const normalizeEpsilon = 1e-9

// Transform recenters and rescales a scene: translate by Translation first,
// then multiply by Scale.
type Transform struct {
	Translation Vec3
	Scale       float64
}

// Identity returns the do-nothing transform.
func Identity() Transform {
	return Transform{Scale: 1}
}

// Normalize computes the transform that moves the scene's bounding-box
// center to the origin and maps its largest dimension to TargetSize.
// Normalizing an already-normalized scene yields the identity, so repeated
// application is safe.
func Normalize(b Bounds) Transform {
	if b.IsEmpty() {
		return Identity()
	}
	t := Transform{Translation: b.Center().Scale(-1), Scale: 1}
	if dim := b.MaxDim(); dim > normalizeEpsilon {
		t.Scale = TargetSize / dim
	}
	return t
}

// Apply maps the bounds through the transform.
func (t Transform) Apply(b Bounds) Bounds {
	if b.IsEmpty() {
		return b
	}
	min := b.Min.Add(t.Translation).Scale(t.Scale)
	max := b.Max.Add(t.Translation).Scale(t.Scale)
	return Bounds{Min: min, Max: max}
}

// IsIdentity reports whether the transform leaves a scene untouched, within
// floating-point tolerance.
func (t Transform) IsIdentity() bool {
	return math.Abs(t.Scale-1) < 1e-6 &&
		math.Abs(t.Translation.X) < 1e-6 &&
		math.Abs(t.Translation.Y) < 1e-6 &&
		math.Abs(t.Translation.Z) < 1e-6
}
