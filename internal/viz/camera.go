package viz

import (
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/rigidsim/internal/body"
	"github.com/san-kum/rigidsim/internal/shape"
)

// Camera orbits Target at Distance, looking at it from Yaw and Pitch.
type Camera struct {
	Target     mgl64.Vec3
	Distance   float64
	Yaw, Pitch float64
	Zoom       float64
}

func NewCamera() *Camera {
	return &Camera{Target: mgl64.Vec3{0, 2, 0}, Distance: 25, Yaw: 0.5, Pitch: 0.35, Zoom: 1}
}

func (c *Camera) Orbit(a float64) { c.Yaw += a }
func (c *Camera) ZoomIn() { c.Zoom = math.Min(10, c.Zoom*1.2) }
func (c *Camera) ZoomOut() { c.Zoom = math.Max(0.1, c.Zoom/1.2) }

func (c *Camera) Tilt(a float64) {
	c.Pitch = mgl64.Clamp(c.Pitch+a, -1.5, 1.5)
}

// view rotates p into camera space: x right, y up, z towards the viewer.
func (c *Camera) view(p mgl64.Vec3) mgl64.Vec3 {
	q := mgl64.QuatRotate(-c.Pitch, mgl64.Vec3{1, 0, 0}).Mul(mgl64.QuatRotate(-c.Yaw, mgl64.Vec3{0, 1, 0}))
	return q.Rotate(p.Sub(c.Target))
}

// Project maps a world point to dot coordinates on a sw x sh canvas with
// perspective. depth grows away from the viewer; ok is false for points
// behind the camera.
func (c *Camera) Project(p mgl64.Vec3, sw, sh int) (x, y int, depth float64, ok bool) {
	v := c.view(p)
	depth = c.Distance - v[2]
	if depth <= 0.1 {
		return 0, 0, depth, false
	}
	scale := c.Zoom * float64(min(sw, sh)) / depth
	// braille dots are twice as tall as wide on screen
	x = sw/2 + int(v[0]*scale)
	y = sh/2 - int(v[1]*scale/2)
	return x, y, depth, true
}

type Edge struct {
	Start, End mgl64.Vec3
}

type Wireframe struct{ Edges []Edge }

func (w *Wireframe) Add(s, e mgl64.Vec3) { w.Edges = append(w.Edges, Edge{s, e}) }
func (w *Wireframe) Clear() { w.Edges = w.Edges[:0] }

// circleSegments is the resolution of round outlines.
const circleSegments = 16

func (w *Wireframe) ring(pose body.Pose, center mgl64.Vec3, r float64, u, v mgl64.Vec3) {
	prev := pose.Transform(center.Add(u.Mul(r)))
	for i := 1; i <= circleSegments; i++ {
		a := 2 * math.Pi * float64(i) / circleSegments
		p := pose.Transform(center.Add(u.Mul(r * math.Cos(a))).Add(v.Mul(r * math.Sin(a))))
		w.Add(prev, p)
		prev = p
	}
}

// AddShape outlines s at pose: face edges for polytopes, great circles for
// spheres, rings around the core ends joined by side lines for capsules.
func (w *Wireframe) AddShape(s *shape.Shape, pose body.Pose) {
	x, y, z := mgl64.Vec3{1, 0, 0}, mgl64.Vec3{0, 1, 0}, mgl64.Vec3{0, 0, 1}
	switch s.Kind() {
	case shape.Sphere:
		r := s.Radius()
		w.ring(pose, mgl64.Vec3{}, r, x, y)
		w.ring(pose, mgl64.Vec3{}, r, y, z)
		w.ring(pose, mgl64.Vec3{}, r, z, x)
	case shape.Capsule:
		r := s.Radius()
		a, b := s.Segment()
		w.ring(pose, a, r, z, x)
		w.ring(pose, b, r, z, x)
		for _, side := range []mgl64.Vec3{x, x.Mul(-1), z, z.Mul(-1)} {
			w.Add(pose.Transform(a.Add(side.Mul(r))), pose.Transform(b.Add(side.Mul(r))))
		}
	default:
		verts := s.Vertices()
		for _, f := range s.Faces() {
			for i, vi := range f.Vertices {
				vj := f.Vertices[(i+1)%len(f.Vertices)]
				// each edge is shared by two faces
				if vi < vj {
					w.Add(pose.Transform(verts[vi]), pose.Transform(verts[vj]))
				}
			}
		}
	}
}

// Render draws w onto c far to near.
func Render(c *Canvas, w *Wireframe, cam *Camera) {
	if c == nil || w == nil || cam == nil {
		return
	}
	sw, sh := c.Dots()
	type projected struct {
		x1, y1, x2, y2 int
		depth          float64
	}
	edges := make([]projected, 0, len(w.Edges))
	for _, e := range w.Edges {
		x1, y1, d1, ok1 := cam.Project(e.Start, sw, sh)
		x2, y2, d2, ok2 := cam.Project(e.End, sw, sh)
		if ok1 && ok2 {
			edges = append(edges, projected{x1, y1, x2, y2, (d1 + d2) / 2})
		}
	}
	sort.Slice(edges, func(i, j int) bool { return edges[i].depth > edges[j].depth })
	for _, e := range edges {
		c.DrawLine(e.x1, e.y1, e.x2, e.y2)
	}
}

// DrawBodies renders each shape at its pose. Bodies without a pose are
// skipped.
func DrawBodies(c *Canvas, cam *Camera, shapes map[body.ID]*shape.Shape, poses map[body.ID]body.Pose) {
	var w Wireframe
	for id, s := range shapes {
		if pose, ok := poses[id]; ok {
			w.AddShape(s, pose)
		}
	}
	Render(c, &w, cam)
}
