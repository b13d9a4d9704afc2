package narrowphase

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/rigidsim/internal/shape"
)

// MaxManifoldPoints caps the points kept per manifold.
const MaxManifoldPoints = 4

const referenceOnSecond FeatureID = 1 << 63

// polytope is a box or hull with vertices in world space.
type polytope struct {
	verts []mgl64.Vec3
	faces []shape.Face
	rot   mgl64.Quat
}

func newPolytope(c Collider) polytope {
	local := c.Shape.Vertices()
	verts := make([]mgl64.Vec3, len(local))
	for i, v := range local {
		verts[i] = c.toWorld(v)
	}
	return polytope{verts: verts, faces: c.Shape.Faces(), rot: c.Rotation}
}

func (p polytope) normal(i int) mgl64.Vec3 {
	return p.rot.Rotate(p.faces[i].Normal)
}

// supportFace returns the face whose normal is most aligned with dir.
func (p polytope) supportFace(dir mgl64.Vec3) (int, float64) {
	best, bestDot := 0, math.Inf(-1)
	for i := range p.faces {
		if d := p.normal(i).Dot(dir); d > bestDot {
			best, bestDot = i, d
		}
	}
	return best, bestDot
}

type clipVertex struct {
	pos     mgl64.Vec3
	feature uint32
}

// clipPolytopes builds a face-face manifold for normal n (pointing from a to
// b). The face best aligned with n becomes the reference face, the most
// anti-parallel face on the other body is clipped against its side planes.
// Returns false when no reference face is aligned better than minAlign or
// no point survives the clipping.
func clipPolytopes(a, b polytope, n mgl64.Vec3, minAlign float64) (Manifold, bool) {
	faceA, alignA := a.supportFace(n)
	faceB, alignB := b.supportFace(n.Mul(-1))

	ref, inc := a, b
	refFace := faceA
	var flags FeatureID
	// prefer the first body unless the second is clearly better aligned
	if alignB > alignA+1e-3 {
		ref, inc = b, a
		refFace = faceB
		flags = referenceOnSecond
	}
	if math.Max(alignA, alignB) < minAlign {
		return Manifold{}, false
	}

	refN := ref.normal(refFace)
	incFace, _ := inc.supportFace(refN.Mul(-1))

	ring := inc.faces[incFace].Vertices
	poly := make([]clipVertex, len(ring))
	for i, vi := range ring {
		poly[i] = clipVertex{pos: inc.verts[vi], feature: uint32(i)}
	}

	refRing := ref.faces[refFace].Vertices
	for i := range refRing {
		v0 := ref.verts[refRing[i]]
		v1 := ref.verts[refRing[(i+1)%len(refRing)]]
		side := v1.Sub(v0).Cross(refN)
		l := side.Len()
		if l < 1e-12 {
			continue
		}
		side = side.Mul(1 / l)
		poly = clipPolygon(poly, side, side.Dot(v0), uint32(i+1))
		if len(poly) == 0 {
			return Manifold{}, false
		}
	}

	refOffset := refN.Dot(ref.verts[refRing[0]])
	normal := refN
	if flags == referenceOnSecond {
		normal = refN.Mul(-1)
	}

	m := Manifold{Normal: normal}
	for _, v := range poly {
		s := refN.Dot(v.pos) - refOffset
		if s > 0 {
			continue
		}
		m.Points = append(m.Points, Point{
			Position: v.pos.Sub(refN.Mul(s / 2)),
			Depth:    -s,
			Feature:  flags | FeatureID(refFace)<<40 | FeatureID(incFace)<<24 | FeatureID(v.feature&0xffff),
		})
	}
	if len(m.Points) == 0 {
		return Manifold{}, false
	}
	m.Points = reducePoints(m.Points)
	return m, true
}

// clipPolygon keeps the part of poly behind the plane side·x <= offset
// (Sutherland-Hodgman).
func clipPolygon(poly []clipVertex, side mgl64.Vec3, offset float64, plane uint32) []clipVertex {
	out := make([]clipVertex, 0, len(poly)+1)
	for i := range poly {
		cur, next := poly[i], poly[(i+1)%len(poly)]
		dc := side.Dot(cur.pos) - offset
		dn := side.Dot(next.pos) - offset
		if dc <= 0 {
			out = append(out, cur)
		}
		if (dc < 0 && dn > 0) || (dc > 0 && dn < 0) {
			t := dc / (dc - dn)
			out = append(out, clipVertex{
				pos:     cur.pos.Add(next.pos.Sub(cur.pos).Mul(t)),
				feature: plane<<8 | cur.feature&0xff,
			})
		}
	}
	return out
}

// reducePoints keeps at most MaxManifoldPoints points: the deepest, the one
// furthest from it, then those spanning the largest area.
func reducePoints(points []Point) []Point {
	if len(points) <= MaxManifoldPoints {
		return points
	}
	chosen := make([]Point, 0, MaxManifoldPoints)
	used := make([]bool, len(points))
	pick := func(score func(p Point) float64) {
		best, bestScore := -1, math.Inf(-1)
		for i, p := range points {
			if used[i] {
				continue
			}
			if best < 0 {
				best = i
			}
			// NaN scores never win but still leave a fallback
			if s := score(p); s > bestScore {
				best, bestScore = i, s
			}
		}
		used[best] = true
		chosen = append(chosen, points[best])
	}

	pick(func(p Point) float64 { return p.Depth })
	pick(func(p Point) float64 { return p.Position.Sub(chosen[0].Position).Len() })
	pick(func(p Point) float64 {
		return p.Position.Sub(chosen[0].Position).Cross(p.Position.Sub(chosen[1].Position)).Len()
	})
	pick(func(p Point) float64 {
		nearest := math.Inf(1)
		for _, c := range chosen {
			nearest = math.Min(nearest, p.Position.Sub(c.Position).Len())
		}
		return nearest
	})
	return chosen
}
