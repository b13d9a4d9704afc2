package shape

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// AABB is an axis-aligned bounding box.
type AABB struct {
	Min mgl64.Vec3
	Max mgl64.Vec3
}

func (b AABB) Overlaps(o AABB) bool {
	for i := 0; i < 3; i++ {
		if b.Max[i] < o.Min[i] || o.Max[i] < b.Min[i] {
			return false
		}
	}
	return true
}

func (b AABB) Center() mgl64.Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

func (b AABB) Extents() mgl64.Vec3 {
	return b.Max.Sub(b.Min).Mul(0.5)
}

func (b AABB) Union(o AABB) AABB {
	return AABB{Min: minVec(b.Min, o.Min), Max: maxVec(b.Max, o.Max)}
}

// Expand grows the box by margin on every side.
func (b AABB) Expand(margin float64) AABB {
	m := mgl64.Vec3{margin, margin, margin}
	return AABB{Min: b.Min.Sub(m), Max: b.Max.Add(m)}
}

// Sweep extends the box so it also covers itself translated by d.
func (b AABB) Sweep(d mgl64.Vec3) AABB {
	moved := AABB{Min: b.Min.Add(d), Max: b.Max.Add(d)}
	return b.Union(moved)
}

func (b AABB) Contains(p mgl64.Vec3) bool {
	for i := 0; i < 3; i++ {
		if p[i] < b.Min[i] || p[i] > b.Max[i] {
			return false
		}
	}
	return true
}

func boundPoints(pts []mgl64.Vec3) AABB {
	inf := math.Inf(1)
	box := AABB{Min: mgl64.Vec3{inf, inf, inf}, Max: mgl64.Vec3{-inf, -inf, -inf}}
	for _, p := range pts {
		box.Min = minVec(box.Min, p)
		box.Max = maxVec(box.Max, p)
	}
	return box
}

func minVec(a, b mgl64.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{math.Min(a[0], b[0]), math.Min(a[1], b[1]), math.Min(a[2], b[2])}
}

func maxVec(a, b mgl64.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{math.Max(a[0], b[0]), math.Max(a[1], b[1]), math.Max(a[2], b[2])}
}
