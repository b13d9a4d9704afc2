package narrowphase

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

const (
	MaxEPAIterations = 64
	epaTolerance     = 1e-4
)

type epaFace struct {
	v      [3]int
	normal mgl64.Vec3
	dist   float64
}

type epaResult struct {
	normal mgl64.Vec3
	depth  float64
	point  mgl64.Vec3
}

var blowUpDirections = []mgl64.Vec3{
	{1, 0, 0}, {-1, 0, 0},
	{0, 1, 0}, {0, -1, 0},
	{0, 0, 1}, {0, 0, -1},
	{1, 1, 1}, {-1, -1, -1},
}

// completeSimplex grows a touching simplex into a tetrahedron with volume.
func completeSimplex(a, b Collider, s []simplexVertex) ([]simplexVertex, bool) {
	for _, dir := range blowUpDirections {
		if len(s) >= 4 {
			break
		}
		v := minkowski(a, b, dir)
		if independent(s, v.p) {
			s = append(s, v)
		}
	}
	if len(s) < 4 {
		return s, false
	}
	return s[:4], true
}

func independent(s []simplexVertex, p mgl64.Vec3) bool {
	const eps = 1e-10
	switch len(s) {
	case 0:
		return true
	case 1:
		return p.Sub(s[0].p).Len() > eps
	case 2:
		return s[1].p.Sub(s[0].p).Cross(p.Sub(s[0].p)).Len() > eps
	default:
		n := s[1].p.Sub(s[0].p).Cross(s[2].p.Sub(s[0].p))
		return math.Abs(n.Dot(p.Sub(s[0].p))) > eps
	}
}

// newEPAFace orients the face so its normal points away from inside, a
// point strictly inside the polytope.
func newEPAFace(verts []simplexVertex, inside mgl64.Vec3, i, j, k int) (epaFace, bool) {
	a, b, c := verts[i].p, verts[j].p, verts[k].p
	n := b.Sub(a).Cross(c.Sub(a))
	l := n.Len()
	if l < 1e-12 {
		return epaFace{}, false
	}
	n = n.Mul(1 / l)
	if n.Dot(a.Sub(inside)) < 0 {
		j, k = k, j
		n = n.Mul(-1)
	}
	return epaFace{v: [3]int{i, j, k}, normal: n, dist: n.Dot(a)}, true
}

// epa expands the GJK simplex to find the penetration normal (from a to b),
// depth and a contact point. ok is false when the polytope degenerated or
// did not converge; the best estimate is still returned.
func epa(a, b Collider, simplex []simplexVertex) (epaResult, bool) {
	verts, ok := completeSimplex(a, b, simplex)
	if !ok {
		return epaResult{}, false
	}

	inside := verts[0].p.Add(verts[1].p).Add(verts[2].p).Add(verts[3].p).Mul(0.25)
	var faces []epaFace
	for _, idx := range [][3]int{{0, 1, 2}, {0, 3, 1}, {0, 2, 3}, {1, 3, 2}} {
		if f, ok := newEPAFace(verts, inside, idx[0], idx[1], idx[2]); ok {
			faces = append(faces, f)
		}
	}
	if len(faces) < 4 {
		return epaResult{}, false
	}

	var closest epaFace
	for iter := 0; iter < MaxEPAIterations; iter++ {
		closest = faces[0]
		for _, f := range faces[1:] {
			if f.dist < closest.dist {
				closest = f
			}
		}

		v := minkowski(a, b, closest.normal)
		if v.p.Dot(closest.normal)-closest.dist < epaTolerance {
			return resolve(verts, closest), true
		}

		verts = append(verts, v)
		newIdx := len(verts) - 1

		var horizon [][2]int
		kept := faces[:0]
		for _, f := range faces {
			if f.normal.Dot(v.p.Sub(verts[f.v[0]].p)) > 0 {
				for e := 0; e < 3; e++ {
					horizon = toggleEdge(horizon, [2]int{f.v[e], f.v[(e+1)%3]})
				}
				continue
			}
			kept = append(kept, f)
		}
		faces = kept
		for _, e := range horizon {
			if f, ok := newEPAFace(verts, inside, e[0], e[1], newIdx); ok {
				faces = append(faces, f)
			}
		}
		if len(faces) == 0 {
			return resolve(verts, closest), false
		}
	}
	return resolve(verts, closest), false
}

// toggleEdge adds e to the horizon, or removes it when the reverse edge is
// already present (shared by two removed faces).
func toggleEdge(edges [][2]int, e [2]int) [][2]int {
	for i, o := range edges {
		if o[0] == e[1] && o[1] == e[0] {
			return append(edges[:i], edges[i+1:]...)
		}
	}
	return append(edges, e)
}

func resolve(verts []simplexVertex, f epaFace) epaResult {
	a, b, c := verts[f.v[0]], verts[f.v[1]], verts[f.v[2]]
	u, v, w := barycentric(f.normal.Mul(f.dist), a.p, b.p, c.p)
	onA := a.a.Mul(u).Add(b.a.Mul(v)).Add(c.a.Mul(w))
	onB := a.b.Mul(u).Add(b.b.Mul(v)).Add(c.b.Mul(w))
	return epaResult{
		normal: f.normal,
		depth:  math.Max(0, f.dist),
		point:  onA.Add(onB).Mul(0.5),
	}
}

func barycentric(p, a, b, c mgl64.Vec3) (float64, float64, float64) {
	v0, v1, v2 := b.Sub(a), c.Sub(a), p.Sub(a)
	d00, d01, d11 := v0.Dot(v0), v0.Dot(v1), v1.Dot(v1)
	d20, d21 := v2.Dot(v0), v2.Dot(v1)
	denom := d00*d11 - d01*d01
	if math.Abs(denom) < 1e-18 {
		return 1, 0, 0
	}
	v := (d11*d20 - d01*d21) / denom
	w := (d00*d21 - d01*d20) / denom
	return 1 - v - w, v, w
}

// convexGJK is the general convex-convex path producing one contact point.
func convexGJK(a, b Collider) (Manifold, bool) {
	simplex, hit, converged := gjk(a, b)
	if !hit {
		return Manifold{}, false
	}
	res, ok := epa(a, b, simplex)
	if !ok && res.normal == (mgl64.Vec3{}) {
		n := fallbackNormal(a, b)
		return Manifold{
			Normal:     n,
			Points:     []Point{{Position: a.Position.Add(b.Position).Mul(0.5)}},
			Degenerate: true,
		}, true
	}
	return Manifold{
		Normal:     res.normal,
		Points:     []Point{{Position: res.point, Depth: res.depth}},
		Degenerate: !ok || !converged,
	}, true
}

// polytopes handles box-hull and hull-hull pairs: GJK/EPA finds the normal,
// face clipping builds the manifold.
func polytopes(a, b Collider) (Manifold, bool) {
	m, ok := convexGJK(a, b)
	if !ok {
		return m, false
	}
	if m.Degenerate {
		return m, true
	}
	if clipped, ok := clipPolytopes(newPolytope(a), newPolytope(b), m.Normal, 0.9); ok {
		return clipped, true
	}
	return m, true
}
