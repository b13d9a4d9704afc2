package shape

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Kind identifies which closed variant a Shape holds.
type Kind int

const (
	Sphere Kind = iota
	Box
	Capsule
	ConvexHull
)

func (k Kind) String() string {
	switch k {
	case Sphere:
		return "sphere"
	case Box:
		return "box"
	case Capsule:
		return "capsule"
	case ConvexHull:
		return "convex_hull"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// MaxHullPoints bounds the input of NewConvexHull.
const MaxHullPoints = 64

var ErrDegenerate = errors.New("shape: degenerate geometry")

// Error describes why a shape was rejected at construction.
type Error struct {
	Kind   Kind
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("shape: invalid %s: %s", e.Kind, e.Reason)
}

func (e *Error) Unwrap() error {
	return ErrDegenerate
}

// Face is a planar polygon of a polyhedral shape. Vertices index into
// Shape.Vertices and wind counter-clockwise seen from outside.
type Face struct {
	Normal   mgl64.Vec3
	Offset   float64
	Vertices []int
}

// Shape is immutable once constructed and safe to share between bodies.
type Shape struct {
	kind        Kind
	radius      float64
	halfExtents mgl64.Vec3
	halfHeight  float64

	vertices []mgl64.Vec3
	faces    []Face

	volume   float64
	centroid mgl64.Vec3
	// unit-density inertia about the centroid
	unitInertia mgl64.Mat3
}

func NewSphere(radius float64) (*Shape, error) {
	if !positive(radius) {
		return nil, &Error{Kind: Sphere, Reason: fmt.Sprintf("radius %v must be positive and finite", radius)}
	}
	s := &Shape{kind: Sphere, radius: radius}
	s.volume = 4.0 / 3.0 * math.Pi * radius * radius * radius
	k := 0.4 * s.volume * radius * radius
	s.unitInertia = mgl64.Diag3(mgl64.Vec3{k, k, k})
	return s, nil
}

func NewBox(halfExtents mgl64.Vec3) (*Shape, error) {
	for i := 0; i < 3; i++ {
		if !positive(halfExtents[i]) {
			return nil, &Error{Kind: Box, Reason: fmt.Sprintf("half extent %v must be positive and finite", halfExtents)}
		}
	}
	hx, hy, hz := halfExtents[0], halfExtents[1], halfExtents[2]
	s := &Shape{kind: Box, halfExtents: halfExtents}
	s.volume = 8 * hx * hy * hz
	m := s.volume
	s.unitInertia = mgl64.Diag3(mgl64.Vec3{
		m / 3 * (hy*hy + hz*hz),
		m / 3 * (hx*hx + hz*hz),
		m / 3 * (hx*hx + hy*hy),
	})
	s.vertices, s.faces = boxPolytope(halfExtents)
	return s, nil
}

// NewCapsule builds a capsule whose core segment runs along local Y from
// -halfHeight to +halfHeight. A zero half height yields a sphere-shaped capsule.
func NewCapsule(radius, halfHeight float64) (*Shape, error) {
	if !positive(radius) {
		return nil, &Error{Kind: Capsule, Reason: fmt.Sprintf("radius %v must be positive and finite", radius)}
	}
	if halfHeight < 0 || math.IsNaN(halfHeight) || math.IsInf(halfHeight, 0) {
		return nil, &Error{Kind: Capsule, Reason: fmt.Sprintf("half height %v must be non-negative and finite", halfHeight)}
	}
	s := &Shape{kind: Capsule, radius: radius, halfHeight: halfHeight}

	r := radius
	hc := 2 * halfHeight
	mc := math.Pi * r * r * hc
	ms := 4.0 / 3.0 * math.Pi * r * r * r
	s.volume = mc + ms

	iy := mc*r*r/2 + ms*2*r*r/5
	ix := mc*(hc*hc/12+r*r/4) + ms*(2*r*r/5+hc*hc/4+3*hc*r/8)
	s.unitInertia = mgl64.Diag3(mgl64.Vec3{ix, iy, ix})
	return s, nil
}

func (s *Shape) Kind() Kind { return s.kind }
func (s *Shape) Radius() float64 { return s.radius }
func (s *Shape) HalfExtents() mgl64.Vec3 { return s.halfExtents }
func (s *Shape) HalfHeight() float64 { return s.halfHeight }
func (s *Shape) Volume() float64 { return s.volume }

// Vertices returns the polytope vertices of a box or hull, nil otherwise.
// The slice must not be modified.
func (s *Shape) Vertices() []mgl64.Vec3 { return s.vertices }

// Faces returns the polytope faces of a box or hull, nil otherwise.
// The slice must not be modified.
func (s *Shape) Faces() []Face { return s.faces }

// Polyhedral reports whether the shape has vertices and faces.
func (s *Shape) Polyhedral() bool { return len(s.faces) > 0 }

// MassProperties returns mass, the inertia tensor about the center of mass
// in the shape frame, and the center of mass in the shape frame.
func (s *Shape) MassProperties(density float64) (float64, mgl64.Mat3, mgl64.Vec3) {
	return s.volume * density, s.unitInertia.Mul(density), s.centroid
}

// Segment returns the capsule core endpoints in the shape frame.
func (s *Shape) Segment() (mgl64.Vec3, mgl64.Vec3) {
	return mgl64.Vec3{0, -s.halfHeight, 0}, mgl64.Vec3{0, s.halfHeight, 0}
}

// Support returns the point of the shape furthest along dir, in the shape frame.
func (s *Shape) Support(dir mgl64.Vec3) mgl64.Vec3 {
	switch s.kind {
	case Sphere:
		return direction(dir).Mul(s.radius)
	case Box:
		he := s.halfExtents
		return mgl64.Vec3{sign(dir[0]) * he[0], sign(dir[1]) * he[1], sign(dir[2]) * he[2]}
	case Capsule:
		tip := mgl64.Vec3{0, sign(dir[1]) * s.halfHeight, 0}
		return tip.Add(direction(dir).Mul(s.radius))
	default:
		best := 0
		bestDot := math.Inf(-1)
		for i, v := range s.vertices {
			if d := v.Dot(dir); d > bestDot {
				best, bestDot = i, d
			}
		}
		return s.vertices[best]
	}
}

// LocalAABB bounds the shape in its own frame.
func (s *Shape) LocalAABB() AABB {
	switch s.kind {
	case Sphere:
		r := mgl64.Vec3{s.radius, s.radius, s.radius}
		return AABB{Min: r.Mul(-1), Max: r}
	case Box:
		return AABB{Min: s.halfExtents.Mul(-1), Max: s.halfExtents}
	case Capsule:
		e := mgl64.Vec3{s.radius, s.radius + s.halfHeight, s.radius}
		return AABB{Min: e.Mul(-1), Max: e}
	default:
		return boundPoints(s.vertices)
	}
}

// WorldAABB bounds the shape placed at position with the given rotation.
func (s *Shape) WorldAABB(position mgl64.Vec3, rotation mgl64.Quat) AABB {
	switch s.kind {
	case Sphere:
		r := mgl64.Vec3{s.radius, s.radius, s.radius}
		return AABB{Min: position.Sub(r), Max: position.Add(r)}
	case Capsule:
		axis := rotation.Rotate(mgl64.Vec3{0, s.halfHeight, 0})
		a, b := position.Add(axis), position.Sub(axis)
		r := mgl64.Vec3{s.radius, s.radius, s.radius}
		box := AABB{Min: minVec(a, b), Max: maxVec(a, b)}
		return AABB{Min: box.Min.Sub(r), Max: box.Max.Add(r)}
	case Box:
		m := rotation.Mat4().Mat3()
		var ext mgl64.Vec3
		for row := 0; row < 3; row++ {
			for col := 0; col < 3; col++ {
				ext[row] += math.Abs(m.At(row, col)) * s.halfExtents[col]
			}
		}
		return AABB{Min: position.Sub(ext), Max: position.Add(ext)}
	default:
		pts := make([]mgl64.Vec3, len(s.vertices))
		for i, v := range s.vertices {
			pts[i] = position.Add(rotation.Rotate(v))
		}
		return boundPoints(pts)
	}
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

func sign(v float64) float64 {
	if v < 0 {
		return -1
	}
	return 1
}

// direction normalizes v, falling back to +X for a zero vector.
func direction(v mgl64.Vec3) mgl64.Vec3 {
	l := v.Len()
	if l < 1e-12 {
		return mgl64.Vec3{1, 0, 0}
	}
	return v.Mul(1 / l)
}

func boxPolytope(he mgl64.Vec3) ([]mgl64.Vec3, []Face) {
	verts := make([]mgl64.Vec3, 0, 8)
	for i := 0; i < 8; i++ {
		verts = append(verts, mgl64.Vec3{
			he[0] * bit(i, 0),
			he[1] * bit(i, 1),
			he[2] * bit(i, 2),
		})
	}
	// vertex index bits: x=1, y=2, z=4; set bit means positive coordinate
	faces := []Face{
		{Normal: mgl64.Vec3{1, 0, 0}, Offset: he[0], Vertices: []int{1, 3, 7, 5}},
		{Normal: mgl64.Vec3{-1, 0, 0}, Offset: he[0], Vertices: []int{0, 4, 6, 2}},
		{Normal: mgl64.Vec3{0, 1, 0}, Offset: he[1], Vertices: []int{2, 6, 7, 3}},
		{Normal: mgl64.Vec3{0, -1, 0}, Offset: he[1], Vertices: []int{0, 1, 5, 4}},
		{Normal: mgl64.Vec3{0, 0, 1}, Offset: he[2], Vertices: []int{4, 5, 7, 6}},
		{Normal: mgl64.Vec3{0, 0, -1}, Offset: he[2], Vertices: []int{0, 2, 3, 1}},
	}
	return verts, faces
}

func bit(i, n int) float64 {
	if i&(1<<n) != 0 {
		return 1
	}
	return -1
}
