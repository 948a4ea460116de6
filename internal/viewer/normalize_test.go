package viewer

import (
	"math"
	"testing"

	"pgregory.net/rapid"
)

func TestNormalizeCentersAndScales(t *testing.T) {
	b := Bounds{Min: Vec3{10, 20, 30}, Max: Vec3{14, 21, 32}}
	tr := Normalize(b)

	out := tr.Apply(b)
	center := out.Center()
	if math.Abs(center.X) > 1e-9 || math.Abs(center.Y) > 1e-9 || math.Abs(center.Z) > 1e-9 {
		t.Fatalf("center = %+v, want origin", center)
	}
	if dim := out.MaxDim(); math.Abs(dim-TargetSize) > 1e-9 {
		t.Fatalf("max dim = %g, want %g", dim, TargetSize)
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	b := Bounds{Min: Vec3{-3, 0, 7}, Max: Vec3{5, 2, 9}}
	once := Normalize(b).Apply(b)

	again := Normalize(once)
	if !again.IsIdentity() {
		t.Fatalf("second normalize = %+v, want identity", again)
	}
}

func TestNormalizeEmptyAndDegenerate(t *testing.T) {
	if tr := Normalize(EmptyBounds()); !tr.IsIdentity() {
		t.Fatalf("empty bounds transform = %+v", tr)
	}
	// A single point has no extent to scale; it is only recentered.
	point := Bounds{Min: Vec3{1, 1, 1}, Max: Vec3{1, 1, 1}}
	tr := Normalize(point)
	if tr.Scale != 1 {
		t.Fatalf("degenerate scale = %g, want 1", tr.Scale)
	}
	if got := tr.Apply(point).Center(); got != (Vec3{}) {
		t.Fatalf("degenerate center = %+v", got)
	}
}

func TestNormalizeProperty(t *testing.T) {
	coord := rapid.Float64Range(-1e4, 1e4)
	extent := rapid.Float64Range(0.01, 1e4)
	rapid.Check(t, func(t *rapid.T) {
		min := Vec3{coord.Draw(t, "x"), coord.Draw(t, "y"), coord.Draw(t, "z")}
		max := min.Add(Vec3{extent.Draw(t, "dx"), extent.Draw(t, "dy"), extent.Draw(t, "dz")})
		b := Bounds{Min: min, Max: max}

		out := Normalize(b).Apply(b)
		if dim := out.MaxDim(); math.Abs(dim-TargetSize) > 1e-6 {
			t.Fatalf("max dim = %g", dim)
		}
		c := out.Center()
		if math.Abs(c.X) > 1e-6 || math.Abs(c.Y) > 1e-6 || math.Abs(c.Z) > 1e-6 {
			t.Fatalf("center = %+v", c)
		}
		if !Normalize(out).IsIdentity() {
			t.Fatalf("normalization not idempotent for %+v", b)
		}
	})
}

func TestBoundsUnion(t *testing.T) {
	a := Bounds{Min: Vec3{0, 0, 0}, Max: Vec3{1, 1, 1}}
	b := Bounds{Min: Vec3{-2, 0.5, 0}, Max: Vec3{0.5, 3, 1}}
	u := a.Union(b)
	if u.Min != (Vec3{-2, 0, 0}) || u.Max != (Vec3{1, 3, 1}) {
		t.Fatalf("union = %+v", u)
	}
	if got := a.Union(EmptyBounds()); got != a {
		t.Fatalf("union with empty = %+v", got)
	}
	if got := EmptyBounds().Union(a); got != a {
		t.Fatalf("empty union = %+v", got)
	}
}
