package narrowphase

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/rigidsim/internal/shape"
)

const (
	parallelTolerance = 1e-6
	// EPA depth must beat the cap depth by this much to replace the caps
	coreDepthTolerance = 10 * epaTolerance
	capsuleCoreFeature FeatureID = 3
)

// spheres builds a contact between two spheres given by center and radius.
func spheres(ca mgl64.Vec3, ra float64, cb mgl64.Vec3, rb float64, feature FeatureID, fallback mgl64.Vec3) (Manifold, bool) {
	d := cb.Sub(ca)
	dist := d.Len()
	if dist > ra+rb {
		return Manifold{}, false
	}
	m := Manifold{}
	if dist < 1e-9 {
		m.Normal = fallback
		m.Degenerate = true
	} else {
		m.Normal = d.Mul(1 / dist)
	}
	depth := ra + rb - dist
	m.Points = []Point{{
		Position: ca.Add(m.Normal.Mul(ra - depth/2)),
		Depth:    depth,
		Feature:  feature,
	}}
	return m, true
}

func sphereSphere(a, b Collider) (Manifold, bool) {
	return spheres(a.Position, a.Shape.Radius(), b.Position, b.Shape.Radius(), 0, mgl64.Vec3{0, 1, 0})
}

func sphereCapsule(a, b Collider) (Manifold, bool) {
	p, q := b.segment()
	c := closestOnSegment(a.Position, p, q)
	return spheres(a.Position, a.Shape.Radius(), c, b.Shape.Radius(), 0, fallbackNormal(a, b))
}

func sphereConvex(a, b Collider) (Manifold, bool) {
	hit, ok := sphereVsConvex(a.Position, a.Shape.Radius(), b)
	if !ok {
		return Manifold{}, false
	}
	return hit.manifold(a.Position, a.Shape.Radius(), 0), true
}

// surfaceHit describes a sphere touching a convex shape.
type surfaceHit struct {
	// outward surface normal of the convex shape, toward the sphere
	normal     mgl64.Vec3
	surface    mgl64.Vec3
	depth      float64
	degenerate bool
}

// manifold converts the hit into a manifold whose normal runs from the
// sphere to the convex shape.
func (h surfaceHit) manifold(center mgl64.Vec3, radius float64, feature FeatureID) Manifold {
	onSphere := center.Sub(h.normal.Mul(radius))
	return Manifold{
		Normal: h.normal.Mul(-1),
		Points: []Point{{
			Position: h.surface.Add(onSphere).Mul(0.5),
			Depth:    h.depth,
			Feature:  feature,
		}},
		Degenerate: h.degenerate,
	}
}

// sphereVsConvex tests a sphere against a box or hull collider.
func sphereVsConvex(center mgl64.Vec3, radius float64, c Collider) (surfaceHit, bool) {
	local := c.toLocal(center)
	var (
		hit surfaceHit
		ok  bool
	)
	if c.Shape.Kind() == shape.Box {
		hit, ok = sphereBoxLocal(local, radius, c.Shape.HalfExtents())
	} else {
		hit, ok = sphereHullLocal(local, radius, c.Shape)
	}
	if !ok {
		return hit, false
	}
	hit.normal = c.Rotation.Rotate(hit.normal)
	hit.surface = c.toWorld(hit.surface)
	return hit, true
}

func sphereBoxLocal(p mgl64.Vec3, r float64, he mgl64.Vec3) (surfaceHit, bool) {
	q := mgl64.Vec3{clamp(p[0], -he[0], he[0]), clamp(p[1], -he[1], he[1]), clamp(p[2], -he[2], he[2])}
	diff := p.Sub(q)
	dist := diff.Len()
	if dist > 1e-9 {
		if dist > r {
			return surfaceHit{}, false
		}
		return surfaceHit{normal: diff.Mul(1 / dist), surface: q, depth: r - dist}, true
	}

	// center inside: push out through the nearest face
	axis, gap := 0, math.Inf(1)
	for i := 0; i < 3; i++ {
		if g := he[i] - math.Abs(p[i]); g < gap {
			axis, gap = i, g
		}
	}
	var n mgl64.Vec3
	n[axis] = 1
	if p[axis] < 0 {
		n[axis] = -1
	}
	surface := p
	surface[axis] = n[axis] * he[axis]
	return surfaceHit{normal: n, surface: surface, depth: r + gap}, true
}

func sphereHullLocal(p mgl64.Vec3, r float64, s *shape.Shape) (surfaceHit, bool) {
	verts := s.Vertices()
	faces := s.Faces()

	maxSep, maxFace := math.Inf(-1), 0
	for i, f := range faces {
		if sep := f.Normal.Dot(p) - f.Offset; sep > maxSep {
			maxSep, maxFace = sep, i
		}
	}
	if maxSep <= 0 {
		f := faces[maxFace]
		return surfaceHit{
			normal:  f.Normal,
			surface: p.Sub(f.Normal.Mul(maxSep)),
			depth:   r - maxSep,
		}, true
	}
	if maxSep > r {
		return surfaceHit{}, false
	}

	best, bestDist := mgl64.Vec3{}, math.Inf(1)
	for _, f := range faces {
		sep := f.Normal.Dot(p) - f.Offset
		if sep <= 0 {
			continue
		}
		q := closestOnFace(p, sep, f, verts)
		if d := p.Sub(q).Len(); d < bestDist {
			best, bestDist = q, d
		}
	}
	if bestDist > r {
		return surfaceHit{}, false
	}
	if bestDist < 1e-9 {
		return surfaceHit{normal: faces[maxFace].Normal, surface: best, depth: r}, true
	}
	return surfaceHit{normal: p.Sub(best).Mul(1 / bestDist), surface: best, depth: r - bestDist}, true
}

// closestOnFace returns the point of the face polygon closest to p, where
// sep is the signed distance of p from the face plane.
func closestOnFace(p mgl64.Vec3, sep float64, f shape.Face, verts []mgl64.Vec3) mgl64.Vec3 {
	proj := p.Sub(f.Normal.Mul(sep))
	inside := true
	n := len(f.Vertices)
	for i := 0; i < n; i++ {
		a, b := verts[f.Vertices[i]], verts[f.Vertices[(i+1)%n]]
		if b.Sub(a).Cross(proj.Sub(a)).Dot(f.Normal) < 0 {
			inside = false
			break
		}
	}
	if inside {
		return proj
	}
	best, bestDist := proj, math.Inf(1)
	for i := 0; i < n; i++ {
		a, b := verts[f.Vertices[i]], verts[f.Vertices[(i+1)%n]]
		q := closestOnSegment(p, a, b)
		if d := p.Sub(q).Len(); d < bestDist {
			best, bestDist = q, d
		}
	}
	return best
}

func capsuleCapsule(a, b Collider) (Manifold, bool) {
	p1, q1 := a.segment()
	p2, q2 := b.segment()
	ra, rb := a.Shape.Radius(), b.Shape.Radius()
	fallback := fallbackNormal(a, b)

	d1, d2 := q1.Sub(p1), q2.Sub(p2)
	l1, l2 := d1.Dot(d1), d2.Dot(d2)
	cross := d1.Cross(d2)
	if l1 > 1e-12 && l2 > 1e-12 && cross.Dot(cross) < parallelTolerance*l1*l2 {
		// parallel cores: clip b's core onto a's and contact at both ends
		t0 := p2.Sub(p1).Dot(d1) / l1
		t1 := q2.Sub(p1).Dot(d1) / l1
		lo := math.Max(0, math.Min(t0, t1))
		hi := math.Min(1, math.Max(t0, t1))
		if hi-lo > 1e-6 {
			var m Manifold
			for i, t := range []float64{lo, hi} {
				onA := p1.Add(d1.Mul(t))
				onB := closestOnSegment(onA, p2, q2)
				pm, ok := spheres(onA, ra, onB, rb, FeatureID(i+1), fallback)
				if !ok {
					continue
				}
				if len(m.Points) == 0 {
					m.Normal = pm.Normal
				}
				m.Points = append(m.Points, pm.Points...)
				m.Degenerate = m.Degenerate || pm.Degenerate
			}
			return m, len(m.Points) > 0
		}
	}

	c1, c2 := closestSegments(p1, q1, p2, q2)
	return spheres(c1, ra, c2, rb, 0, fallback)
}

// capsuleConvex tests a capsule against a box or hull. Each end cap is a
// sphere test giving up to two points; GJK/EPA on the whole capsule finds
// the minimum translation. The cap points are kept unless the core cuts
// deeper than they report, in which case the single EPA point is used.
func capsuleConvex(a, b Collider) (Manifold, bool) {
	p, q := a.segment()
	r := a.Shape.Radius()

	var m Manifold
	for i, end := range []mgl64.Vec3{p, q} {
		hit, ok := sphereVsConvex(end, r, b)
		if !ok {
			continue
		}
		em := hit.manifold(end, r, FeatureID(i+1))
		if len(m.Points) == 0 || em.Points[0].Depth > m.MaxDepth() {
			m.Normal = em.Normal
		}
		m.Points = append(m.Points, em.Points...)
		m.Degenerate = m.Degenerate || em.Degenerate
	}

	core, hit := convexGJK(a, b)
	switch {
	case !hit:
		return m, len(m.Points) > 0
	case len(m.Points) == 0:
		return core, true
	case !core.Degenerate && core.MaxDepth() > m.MaxDepth()+coreDepthTolerance:
		core.Points[0].Feature = capsuleCoreFeature
		return core, true
	}
	return m, true
}

func closestOnSegment(p, a, b mgl64.Vec3) mgl64.Vec3 {
	ab := b.Sub(a)
	l := ab.Dot(ab)
	if l < 1e-12 {
		return a
	}
	t := clamp(p.Sub(a).Dot(ab)/l, 0, 1)
	return a.Add(ab.Mul(t))
}

// closestSegments returns the closest points between segments p1q1 and p2q2.
func closestSegments(p1, q1, p2, q2 mgl64.Vec3) (mgl64.Vec3, mgl64.Vec3) {
	const eps = 1e-12
	d1, d2 := q1.Sub(p1), q2.Sub(p2)
	r := p1.Sub(p2)
	a, e, f := d1.Dot(d1), d2.Dot(d2), d2.Dot(r)

	var s, t float64
	switch {
	case a <= eps && e <= eps:
		return p1, p2
	case a <= eps:
		t = clamp(f/e, 0, 1)
	default:
		c := d1.Dot(r)
		if e <= eps {
			s = clamp(-c/a, 0, 1)
			break
		}
		b := d1.Dot(d2)
		denom := a*e - b*b
		if denom > eps {
			s = clamp((b*f-c*e)/denom, 0, 1)
		}
		t = (b*s + f) / e
		if t < 0 {
			t = 0
			s = clamp(-c/a, 0, 1)
		} else if t > 1 {
			t = 1
			s = clamp((b-c)/a, 0, 1)
		}
	}
	return p1.Add(d1.Mul(s)), p2.Add(d2.Mul(t))
}
