package narrowphase

import (
	"github.com/go-gl/mathgl/mgl64"
)

// MaxGJKIterations bounds the simplex refinement loop.
const MaxGJKIterations = 100

// simplexVertex is a point of the Minkowski difference a-b together with
// the support points that produced it.
type simplexVertex struct {
	p, a, b mgl64.Vec3
}

func minkowski(a, b Collider, dir mgl64.Vec3) simplexVertex {
	sa := a.Support(dir)
	sb := b.Support(dir.Mul(-1))
	return simplexVertex{p: sa.Sub(sb), a: sa, b: sb}
}

func tripleCross(a, b, c mgl64.Vec3) mgl64.Vec3 {
	return a.Cross(b).Cross(c)
}

// gjk reports whether a and b overlap. On overlap it returns the final
// simplex (possibly fewer than four vertices when the origin lies on a
// lower-dimensional simplex). converged is false when the iteration limit
// was hit.
func gjk(a, b Collider) (simplex []simplexVertex, hit, converged bool) {
	dir := b.Position.Sub(a.Position)
	if dir.Len() < 1e-9 {
		dir = mgl64.Vec3{1, 0, 0}
	}
	simplex = []simplexVertex{minkowski(a, b, dir)}
	dir = simplex[0].p.Mul(-1)

	for i := 0; i < MaxGJKIterations; i++ {
		if dir.Len() < 1e-12 {
			return simplex, true, true
		}
		v := minkowski(a, b, dir)
		if v.p.Dot(dir) < 0 {
			return simplex, false, true
		}
		simplex = append([]simplexVertex{v}, simplex...)

		var contains bool
		simplex, dir, contains = nextSimplex(simplex)
		if contains {
			return simplex, true, true
		}
	}
	return simplex, false, false
}

// nextSimplex reduces the simplex to the feature closest to the origin and
// returns the next search direction. simplex[0] is the newest vertex.
func nextSimplex(s []simplexVertex) ([]simplexVertex, mgl64.Vec3, bool) {
	switch len(s) {
	case 2:
		return line(s)
	case 3:
		return triangle(s)
	default:
		return tetrahedron(s)
	}
}

func line(s []simplexVertex) ([]simplexVertex, mgl64.Vec3, bool) {
	a, b := s[0], s[1]
	ab := b.p.Sub(a.p)
	ao := a.p.Mul(-1)
	if ab.Dot(ao) > 0 {
		dir := tripleCross(ab, ao, ab)
		if dir.Len() < 1e-12 {
			// origin on the segment
			return s, dir, true
		}
		return s, dir, false
	}
	return []simplexVertex{a}, ao, false
}

func triangle(s []simplexVertex) ([]simplexVertex, mgl64.Vec3, bool) {
	a, b, c := s[0], s[1], s[2]
	ab := b.p.Sub(a.p)
	ac := c.p.Sub(a.p)
	ao := a.p.Mul(-1)
	abc := ab.Cross(ac)

	if abc.Cross(ac).Dot(ao) > 0 {
		if ac.Dot(ao) > 0 {
			return []simplexVertex{a, c}, tripleCross(ac, ao, ac), false
		}
		return line([]simplexVertex{a, b})
	}
	if ab.Cross(abc).Dot(ao) > 0 {
		return line([]simplexVertex{a, b})
	}

	side := abc.Dot(ao)
	switch {
	case side > 1e-12:
		return s, abc, false
	case side < -1e-12:
		return []simplexVertex{a, c, b}, abc.Mul(-1), false
	default:
		// origin in the triangle plane
		return s, mgl64.Vec3{}, true
	}
}

func tetrahedron(s []simplexVertex) ([]simplexVertex, mgl64.Vec3, bool) {
	a, b, c, d := s[0], s[1], s[2], s[3]
	ab := b.p.Sub(a.p)
	ac := c.p.Sub(a.p)
	ad := d.p.Sub(a.p)
	ao := a.p.Mul(-1)

	if ab.Cross(ac).Dot(ao) > 0 {
		return triangle([]simplexVertex{a, b, c})
	}
	if ac.Cross(ad).Dot(ao) > 0 {
		return triangle([]simplexVertex{a, c, d})
	}
	if ad.Cross(ab).Dot(ao) > 0 {
		return triangle([]simplexVertex{a, d, b})
	}
	return s, mgl64.Vec3{}, true
}
