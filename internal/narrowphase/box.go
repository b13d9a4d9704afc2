package narrowphase

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

const (
	// edge axes must beat the best face axis by this much to be used
	edgeAbsTolerance = 1e-3
	edgeRelTolerance = 0.05

	edgeFeature FeatureID = 1 << 62
)

func axes(q mgl64.Quat) [3]mgl64.Vec3 {
	m := q.Mat4().Mat3()
	return [3]mgl64.Vec3{m.Col(0), m.Col(1), m.Col(2)}
}

func projectBox(ax [3]mgl64.Vec3, he mgl64.Vec3, l mgl64.Vec3) float64 {
	return math.Abs(ax[0].Dot(l))*he[0] + math.Abs(ax[1].Dot(l))*he[1] + math.Abs(ax[2].Dot(l))*he[2]
}

// boxBox runs the separating axis test over the 15 candidate axes. Face
// axes produce a clipped manifold of up to four points, edge axes a single
// point between the closest edges.
func boxBox(a, b Collider) (Manifold, bool) {
	axA, axB := axes(a.Rotation), axes(b.Rotation)
	heA, heB := a.Shape.HalfExtents(), b.Shape.HalfExtents()
	d := b.Position.Sub(a.Position)

	separation := func(l mgl64.Vec3) float64 {
		return math.Abs(d.Dot(l)) - projectBox(axA, heA, l) - projectBox(axB, heB, l)
	}

	faceSep, faceAxis := math.Inf(-1), mgl64.Vec3{}
	for i := 0; i < 6; i++ {
		l := axA[i%3]
		if i >= 3 {
			l = axB[i-3]
		}
		sep := separation(l)
		if sep > 0 {
			return Manifold{}, false
		}
		if sep > faceSep {
			faceSep, faceAxis = sep, l
		}
	}

	edgeSep, edgeAxis := math.Inf(-1), mgl64.Vec3{}
	edgeI, edgeJ := -1, -1
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			l := axA[i].Cross(axB[j])
			n := l.Len()
			if n < parallelTolerance {
				continue
			}
			l = l.Mul(1 / n)
			sep := separation(l)
			if sep > 0 {
				return Manifold{}, false
			}
			if sep > edgeSep {
				edgeSep, edgeAxis, edgeI, edgeJ = sep, l, i, j
			}
		}
	}

	useEdge := edgeI >= 0 && edgeSep > faceSep+edgeAbsTolerance+edgeRelTolerance*math.Abs(faceSep)
	axis, sep := faceAxis, faceSep
	if useEdge {
		axis, sep = edgeAxis, edgeSep
	}
	if axis.Dot(d) < 0 {
		axis = axis.Mul(-1)
	}

	if useEdge {
		return boxEdgeContact(a, b, axA, axB, heA, heB, axis, -sep, edgeI, edgeJ), true
	}

	m, ok := clipPolytopes(newPolytope(a), newPolytope(b), axis, 0)
	if ok {
		return m, true
	}
	// clipping lost every point; fall back to the deepest vertex of b
	deepest := b.Support(axis.Mul(-1))
	return Manifold{
		Normal:     axis,
		Points:     []Point{{Position: deepest.Add(axis.Mul(-sep / 2)), Depth: -sep}},
		Degenerate: true,
	}, true
}

func boxEdgeContact(a, b Collider, axA, axB [3]mgl64.Vec3, heA, heB, n mgl64.Vec3, depth float64, i, j int) Manifold {
	pa := a.Position
	for k := 0; k < 3; k++ {
		if k != i {
			pa = pa.Add(axA[k].Mul(signOf(axA[k].Dot(n)) * heA[k]))
		}
	}
	pb := b.Position
	for k := 0; k < 3; k++ {
		if k != j {
			pb = pb.Add(axB[k].Mul(-signOf(axB[k].Dot(n)) * heB[k]))
		}
	}
	ea := axA[i].Mul(heA[i])
	eb := axB[j].Mul(heB[j])
	ca, cb := closestSegments(pa.Sub(ea), pa.Add(ea), pb.Sub(eb), pb.Add(eb))
	return Manifold{
		Normal: n,
		Points: []Point{{
			Position: ca.Add(cb).Mul(0.5),
			Depth:    depth,
			Feature:  edgeFeature | FeatureID(i<<4|j),
		}},
	}
}

func signOf(v float64) float64 {
	if v < 0 {
		return -1
	}
	return 1
}
