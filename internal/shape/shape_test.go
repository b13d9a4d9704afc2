package shape

import (
	"errors"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

const tol = 1e-9

func approx(a, b, eps float64) bool {
	return math.Abs(a-b) <= eps
}

func vecApprox(a, b mgl64.Vec3, eps float64) bool {
	for i := 0; i < 3; i++ {
		if math.Abs(a[i]-b[i]) > eps {
			return false
		}
	}
	return true
}

func cubePoints(h float64, center mgl64.Vec3) []mgl64.Vec3 {
	var pts []mgl64.Vec3
	for _, x := range []float64{-h, h} {
		for _, y := range []float64{-h, h} {
			for _, z := range []float64{-h, h} {
				pts = append(pts, center.Add(mgl64.Vec3{x, y, z}))
			}
		}
	}
	return pts
}

func TestConstructors_RejectDegenerate(t *testing.T) {
	tests := []struct {
		name  string
		build func() (*Shape, error)
	}{
		{"zero radius sphere", func() (*Shape, error) { return NewSphere(0) }},
		{"negative radius sphere", func() (*Shape, error) { return NewSphere(-1) }},
		{"nan sphere", func() (*Shape, error) { return NewSphere(math.NaN()) }},
		{"flat box", func() (*Shape, error) { return NewBox(mgl64.Vec3{1, 0, 1}) }},
		{"inf box", func() (*Shape, error) { return NewBox(mgl64.Vec3{1, math.Inf(1), 1}) }},
		{"capsule without radius", func() (*Shape, error) { return NewCapsule(0, 1) }},
		{"capsule negative height", func() (*Shape, error) { return NewCapsule(1, -1) }},
		{"hull with three points", func() (*Shape, error) {
			return NewConvexHull([]mgl64.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}})
		}},
		{"coplanar hull", func() (*Shape, error) {
			return NewConvexHull([]mgl64.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {1, 1, 0}, {0.5, 0.2, 0}})
		}},
		{"hull with duplicate points", func() (*Shape, error) {
			return NewConvexHull([]mgl64.Vec3{{1, 1, 1}, {1, 1, 1}, {1, 1, 1}, {1, 1, 1}})
		}},
		{"too many hull points", func() (*Shape, error) {
			pts := make([]mgl64.Vec3, MaxHullPoints+1)
			for i := range pts {
				a := float64(i)
				pts[i] = mgl64.Vec3{math.Cos(a), math.Sin(a), math.Cos(a * 0.7)}
			}
			return NewConvexHull(pts)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := tt.build()
			if err == nil {
				t.Fatalf("expected error, got shape %v", s.Kind())
			}
			if !errors.Is(err, ErrDegenerate) {
				t.Errorf("expected ErrDegenerate, got %v", err)
			}
			var shapeErr *Error
			if !errors.As(err, &shapeErr) {
				t.Errorf("expected *Error, got %T", err)
			}
		})
	}
}

func TestCapsule_ZeroHeightIsSphere(t *testing.T) {
	c, err := NewCapsule(0.5, 0)
	if err != nil {
		t.Fatal(err)
	}
	s, _ := NewSphere(0.5)
	mc, ic, _ := c.MassProperties(2)
	ms, is, _ := s.MassProperties(2)
	if !approx(mc, ms, tol) {
		t.Errorf("mass: capsule %f, sphere %f", mc, ms)
	}
	for i := range ic {
		if !approx(ic[i], is[i], tol) {
			t.Errorf("inertia[%d]: capsule %f, sphere %f", i, ic[i], is[i])
		}
	}
}

func TestMassProperties(t *testing.T) {
	sphere, _ := NewSphere(1)
	box, _ := NewBox(mgl64.Vec3{1, 2, 3})
	capsule, _ := NewCapsule(0.5, 1)

	tests := []struct {
		name    string
		shape   *Shape
		density float64
		mass    float64
		diag    mgl64.Vec3
	}{
		{
			name:    "unit sphere",
			shape:   sphere,
			density: 1,
			mass:    4.0 / 3.0 * math.Pi,
			diag:    mgl64.Vec3{0.4, 0.4, 0.4}.Mul(4.0 / 3.0 * math.Pi),
		},
		{
			name:    "box",
			shape:   box,
			density: 0.5,
			mass:    24,
			diag:    mgl64.Vec3{24.0 / 3 * (4 + 9), 24.0 / 3 * (1 + 9), 24.0 / 3 * (1 + 4)},
		},
		{
			name:    "capsule",
			shape:   capsule,
			density: 1,
			mass:    math.Pi*0.25*2 + 4.0/3.0*math.Pi*0.125,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, inertia, com := tt.shape.MassProperties(tt.density)
			if !approx(m, tt.mass, 1e-9) {
				t.Errorf("mass: expected %f, got %f", tt.mass, m)
			}
			if com.Len() > tol {
				t.Errorf("expected centered mass, got %v", com)
			}
			if tt.diag != (mgl64.Vec3{}) {
				for i := 0; i < 3; i++ {
					if !approx(inertia.At(i, i), tt.diag[i], 1e-9) {
						t.Errorf("I[%d][%d]: expected %f, got %f", i, i, tt.diag[i], inertia.At(i, i))
					}
				}
			}
		})
	}
}

func TestCapsule_InertiaOrdering(t *testing.T) {
	c, _ := NewCapsule(0.2, 1)
	_, inertia, _ := c.MassProperties(1)
	// long along Y: spinning about the axis is easiest
	if inertia.At(1, 1) >= inertia.At(0, 0) {
		t.Errorf("expected Iyy < Ixx, got %f >= %f", inertia.At(1, 1), inertia.At(0, 0))
	}
	if !approx(inertia.At(0, 0), inertia.At(2, 2), tol) {
		t.Errorf("expected Ixx == Izz")
	}
}

func TestConvexHull_CubeMatchesBox(t *testing.T) {
	center := mgl64.Vec3{1, 2, 3}
	pts := cubePoints(0.5, center)
	pts = append(pts, center, center.Add(mgl64.Vec3{0.1, -0.2, 0.05}))

	hull, err := NewConvexHull(pts)
	if err != nil {
		t.Fatal(err)
	}
	if len(hull.Vertices()) != 8 {
		t.Errorf("expected interior points dropped, got %d vertices", len(hull.Vertices()))
	}
	if len(hull.Faces()) != 6 {
		t.Errorf("expected 6 faces, got %d", len(hull.Faces()))
	}

	box, _ := NewBox(mgl64.Vec3{0.5, 0.5, 0.5})
	mb, ib, _ := box.MassProperties(3)
	mh, ih, com := hull.MassProperties(3)
	if !approx(mh, mb, 1e-9) {
		t.Errorf("mass: hull %f, box %f", mh, mb)
	}
	if !vecApprox(com, center, 1e-9) {
		t.Errorf("center of mass: expected %v, got %v", center, com)
	}
	for i := range ib {
		if !approx(ih[i], ib[i], 1e-9) {
			t.Errorf("inertia[%d]: hull %f, box %f", i, ih[i], ib[i])
		}
	}
}

func TestConvexHull_FacesOutward(t *testing.T) {
	pts := []mgl64.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {0, 0, 1}, {0.1, 0.1, 0.1}}
	hull, err := NewConvexHull(pts)
	if err != nil {
		t.Fatal(err)
	}
	if len(hull.Faces()) != 4 {
		t.Fatalf("expected tetrahedron with 4 faces, got %d", len(hull.Faces()))
	}
	_, _, com := hull.MassProperties(1)
	if !vecApprox(com, mgl64.Vec3{0.25, 0.25, 0.25}, 1e-9) {
		t.Errorf("unexpected centroid %v", com)
	}
	if !approx(hull.Volume(), 1.0/6.0, 1e-12) {
		t.Errorf("expected volume 1/6, got %f", hull.Volume())
	}
	verts := hull.Vertices()
	for i, f := range hull.Faces() {
		if f.Normal.Dot(com)-f.Offset >= 0 {
			t.Errorf("face %d: centroid not behind plane", i)
		}
		a, b, c := verts[f.Vertices[0]], verts[f.Vertices[1]], verts[f.Vertices[2]]
		if b.Sub(a).Cross(c.Sub(a)).Dot(f.Normal) <= 0 {
			t.Errorf("face %d: winding not counter-clockwise", i)
		}
	}
}

func TestSupport(t *testing.T) {
	box, _ := NewBox(mgl64.Vec3{1, 2, 3})
	capsule, _ := NewCapsule(0.5, 1)
	sphere, _ := NewSphere(2)

	tests := []struct {
		name  string
		shape *Shape
		dir   mgl64.Vec3
		want  mgl64.Vec3
	}{
		{"box corner", box, mgl64.Vec3{1, -1, 1}, mgl64.Vec3{1, -2, 3}},
		{"capsule top", capsule, mgl64.Vec3{0, 1, 0}, mgl64.Vec3{0, 1.5, 0}},
		{"capsule side", capsule, mgl64.Vec3{-1, -0.0001, 0}, mgl64.Vec3{-0.5, -1, 0}},
		{"sphere", sphere, mgl64.Vec3{0, 0, -3}, mgl64.Vec3{0, 0, -2}},
		{"sphere zero dir", sphere, mgl64.Vec3{}, mgl64.Vec3{2, 0, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.shape.Support(tt.dir)
			if !vecApprox(got, tt.want, 1e-4) {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestWorldAABB_RotatedBox(t *testing.T) {
	box, _ := NewBox(mgl64.Vec3{1, 1, 1})
	rot := mgl64.QuatRotate(math.Pi/4, mgl64.Vec3{0, 0, 1})
	aabb := box.WorldAABB(mgl64.Vec3{0, 5, 0}, rot)
	want := math.Sqrt2
	if !approx(aabb.Max[0], want, 1e-9) || !approx(aabb.Min[0], -want, 1e-9) {
		t.Errorf("x range: expected ±%f, got [%f, %f]", want, aabb.Min[0], aabb.Max[0])
	}
	if !approx(aabb.Max[1], 5+want, 1e-9) {
		t.Errorf("y max: expected %f, got %f", 5+want, aabb.Max[1])
	}
	if !approx(aabb.Max[2], 1, 1e-9) {
		t.Errorf("z max: expected 1, got %f", aabb.Max[2])
	}
}

func TestWorldAABB_Capsule(t *testing.T) {
	c, _ := NewCapsule(0.5, 2)
	rot := mgl64.QuatRotate(math.Pi/2, mgl64.Vec3{0, 0, 1})
	aabb := c.WorldAABB(mgl64.Vec3{}, rot)
	if !approx(aabb.Max[0], 2.5, 1e-9) || !approx(aabb.Max[1], 0.5, 1e-9) {
		t.Errorf("unexpected bounds %v", aabb)
	}
}

func TestAABB_Ops(t *testing.T) {
	a := AABB{Min: mgl64.Vec3{0, 0, 0}, Max: mgl64.Vec3{1, 1, 1}}
	b := AABB{Min: mgl64.Vec3{1, 0.5, 0.5}, Max: mgl64.Vec3{2, 2, 2}}
	c := AABB{Min: mgl64.Vec3{1.1, 0, 0}, Max: mgl64.Vec3{2, 1, 1}}

	if !a.Overlaps(b) {
		t.Error("touching boxes should overlap")
	}
	if a.Overlaps(c) {
		t.Error("separated boxes should not overlap")
	}
	swept := a.Sweep(mgl64.Vec3{0.2, 0, 0})
	if !swept.Overlaps(c) {
		t.Error("swept box should reach c")
	}
	if got := a.Expand(0.5).Extents(); !vecApprox(got, mgl64.Vec3{1, 1, 1}, 1e-12) {
		t.Errorf("expand: got extents %v", got)
	}
}
