package shape

import (
	"fmt"
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl64"
)

type plane struct {
	normal mgl64.Vec3
	offset float64
}

// NewConvexHull builds the convex hull of points. Interior points and points
// in the middle of hull edges are discarded.
func NewConvexHull(points []mgl64.Vec3) (*Shape, error) {
	if len(points) < 4 {
		return nil, &Error{Kind: ConvexHull, Reason: fmt.Sprintf("need at least 4 points, got %d", len(points))}
	}
	if len(points) > MaxHullPoints {
		return nil, &Error{Kind: ConvexHull, Reason: fmt.Sprintf("at most %d points supported, got %d", MaxHullPoints, len(points))}
	}
	for _, p := range points {
		for i := 0; i < 3; i++ {
			if math.IsNaN(p[i]) || math.IsInf(p[i], 0) {
				return nil, &Error{Kind: ConvexHull, Reason: fmt.Sprintf("non-finite point %v", p)}
			}
		}
	}

	bounds := boundPoints(points)
	scale := bounds.Max.Sub(bounds.Min).Len()
	if scale < 1e-9 {
		return nil, &Error{Kind: ConvexHull, Reason: "points collapse to a single location"}
	}
	tol := 1e-7 * scale

	pts := dedupe(points, tol)
	if !spansVolume(pts, tol) {
		return nil, &Error{Kind: ConvexHull, Reason: "points are coplanar"}
	}

	planes := supportingPlanes(pts, tol, scale)

	remap := make(map[int]int)
	var verts []mgl64.Vec3
	faces := make([]Face, 0, len(planes))
	for _, pl := range planes {
		ring := facePolygon(pts, pl, tol)
		if len(ring) < 3 {
			continue
		}
		f := Face{Normal: pl.normal, Offset: pl.offset, Vertices: make([]int, len(ring))}
		for i, src := range ring {
			dst, ok := remap[src]
			if !ok {
				dst = len(verts)
				remap[src] = dst
				verts = append(verts, pts[src])
			}
			f.Vertices[i] = dst
		}
		faces = append(faces, f)
	}

	s := &Shape{kind: ConvexHull, vertices: verts, faces: faces}
	s.volume, s.centroid, s.unitInertia = polytopeMass(verts, faces)
	if s.volume <= tol*tol*tol {
		return nil, &Error{Kind: ConvexHull, Reason: "hull has no volume"}
	}
	return s, nil
}

func dedupe(points []mgl64.Vec3, tol float64) []mgl64.Vec3 {
	out := make([]mgl64.Vec3, 0, len(points))
next:
	for _, p := range points {
		for _, q := range out {
			if p.Sub(q).Len() <= tol {
				continue next
			}
		}
		out = append(out, p)
	}
	return out
}

// spansVolume reports whether the points contain four non-coplanar members.
func spansVolume(pts []mgl64.Vec3, tol float64) bool {
	if len(pts) < 4 {
		return false
	}
	a := pts[0]
	b, best := a, 0.0
	for _, p := range pts {
		if d := p.Sub(a).Len(); d > best {
			b, best = p, d
		}
	}
	if best <= tol {
		return false
	}
	ab := b.Sub(a)
	c, best := a, 0.0
	for _, p := range pts {
		if d := ab.Cross(p.Sub(a)).Len(); d > best {
			c, best = p, d
		}
	}
	if best <= tol*ab.Len() {
		return false
	}
	n := ab.Cross(c.Sub(a)).Normalize()
	for _, p := range pts {
		if math.Abs(n.Dot(p.Sub(a))) > tol {
			return true
		}
	}
	return false
}

// supportingPlanes enumerates every plane through three points that has all
// points on or behind it. Near-identical planes are merged.
func supportingPlanes(pts []mgl64.Vec3, tol, scale float64) []plane {
	var planes []plane
	n := len(pts)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			for k := j + 1; k < n; k++ {
				normal := pts[j].Sub(pts[i]).Cross(pts[k].Sub(pts[i]))
				l := normal.Len()
				if l <= tol*scale {
					continue
				}
				normal = normal.Mul(1 / l)
				offset := normal.Dot(pts[i])

				above, below := false, false
				for _, p := range pts {
					d := normal.Dot(p) - offset
					if d > tol {
						above = true
					} else if d < -tol {
						below = true
					}
					if above && below {
						break
					}
				}
				if above && below {
					continue
				}
				if above {
					normal, offset = normal.Mul(-1), -offset
				}
				if !containsPlane(planes, normal, offset, tol) {
					planes = append(planes, plane{normal: normal, offset: offset})
				}
			}
		}
	}
	return planes
}

func containsPlane(planes []plane, normal mgl64.Vec3, offset, tol float64) bool {
	for _, p := range planes {
		if p.normal.Dot(normal) > 1-1e-6 && math.Abs(p.offset-offset) <= tol {
			return true
		}
	}
	return false
}

// facePolygon returns indices of the points lying on pl, ordered
// counter-clockwise around pl.normal with collinear points removed.
func facePolygon(pts []mgl64.Vec3, pl plane, tol float64) []int {
	u := pl.normal.Cross(mgl64.Vec3{1, 0, 0})
	if math.Abs(pl.normal[0]) > 0.9 {
		u = pl.normal.Cross(mgl64.Vec3{0, 1, 0})
	}
	u = u.Normalize()
	v := pl.normal.Cross(u)

	type proj struct {
		idx  int
		x, y float64
	}
	var on []proj
	for i, p := range pts {
		if math.Abs(pl.normal.Dot(p)-pl.offset) <= tol {
			on = append(on, proj{idx: i, x: p.Dot(u), y: p.Dot(v)})
		}
	}
	if len(on) < 3 {
		return nil
	}
	sort.Slice(on, func(a, b int) bool {
		if on[a].x != on[b].x {
			return on[a].x < on[b].x
		}
		if on[a].y != on[b].y {
			return on[a].y < on[b].y
		}
		return on[a].idx < on[b].idx
	})

	cross := func(o, a, b proj) float64 {
		return (a.x-o.x)*(b.y-o.y) - (a.y-o.y)*(b.x-o.x)
	}
	eps := tol * tol
	hull := make([]proj, 0, 2*len(on))
	for _, p := range on {
		for len(hull) >= 2 && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= eps {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	lower := len(hull) + 1
	for i := len(on) - 2; i >= 0; i-- {
		p := on[i]
		for len(hull) >= lower && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= eps {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	hull = hull[:len(hull)-1]

	ring := make([]int, len(hull))
	for i, p := range hull {
		ring[i] = p.idx
	}
	return ring
}

// polytopeMass integrates unit-density volume, centroid and inertia about the
// centroid by decomposing the polytope into tetrahedra.
func polytopeMass(verts []mgl64.Vec3, faces []Face) (float64, mgl64.Vec3, mgl64.Mat3) {
	var ref mgl64.Vec3
	for _, v := range verts {
		ref = ref.Add(v)
	}
	ref = ref.Mul(1 / float64(len(verts)))

	canonical := mgl64.Mat3{
		2, 1, 1,
		1, 2, 1,
		1, 1, 2,
	}.Mul(1.0 / 120.0)

	var volume float64
	var moment mgl64.Vec3
	var cov mgl64.Mat3
	for _, f := range faces {
		a := verts[f.Vertices[0]].Sub(ref)
		for i := 1; i+1 < len(f.Vertices); i++ {
			b := verts[f.Vertices[i]].Sub(ref)
			c := verts[f.Vertices[i+1]].Sub(ref)
			m := mgl64.Mat3FromCols(a, b, c)
			det := m.Det()
			volume += det / 6
			moment = moment.Add(a.Add(b).Add(c).Mul(det / 24))
			cov = cov.Add(m.Mul3(canonical).Mul3(m.Transpose()).Mul(det))
		}
	}
	if volume <= 0 {
		return 0, ref, mgl64.Mat3{}
	}

	com := moment.Mul(1 / volume)
	cov = cov.Sub(outer(com, com).Mul(volume))
	trace := cov[0] + cov[4] + cov[8]
	inertia := mgl64.Ident3().Mul(trace).Sub(cov)
	return volume, ref.Add(com), inertia
}

func outer(a, b mgl64.Vec3) mgl64.Mat3 {
	var m mgl64.Mat3
	for col := 0; col < 3; col++ {
		for row := 0; row < 3; row++ {
			m[col*3+row] = a[row] * b[col]
		}
	}
	return m
}
