package broadphase

import (
	"math"
)

// DefaultCellSize is used when NewGrid is given a non-positive size.
const DefaultCellSize = 2.0

type cell struct {
	x, y, z int64
}

// Grid hashes boxes into uniform cells. Boxes larger than a cell are
// inserted into every cell they touch.
type Grid struct {
	CellSize float64

	cells map[cell][]int
	seen  map[Pair]struct{}
}

func NewGrid(cellSize float64) *Grid {
	if cellSize <= 0 {
		cellSize = DefaultCellSize
	}
	return &Grid{CellSize: cellSize}
}

func (g *Grid) Name() string { return "grid" }

func (g *Grid) Pairs(proxies []Proxy) []Pair {
	if len(proxies) < 2 {
		return nil
	}
	g.cells = make(map[cell][]int, len(proxies))
	g.seen = make(map[Pair]struct{})

	// huge boxes such as ground planes would cover too many cells
	var large []int
	for i, p := range proxies {
		if !g.fits(p.Bounds.Min, p.Bounds.Max) {
			large = append(large, i)
			continue
		}
		lo, hi := g.cellOf(p.Bounds.Min), g.cellOf(p.Bounds.Max)
		for x := lo.x; x <= hi.x; x++ {
			for y := lo.y; y <= hi.y; y++ {
				for z := lo.z; z <= hi.z; z++ {
					c := cell{x, y, z}
					g.cells[c] = append(g.cells[c], i)
				}
			}
		}
	}

	var pairs []Pair
	add := func(a, b Proxy) {
		if !candidate(a, b) {
			return
		}
		pair := MakePair(a.ID, b.ID)
		if _, dup := g.seen[pair]; dup {
			return
		}
		g.seen[pair] = struct{}{}
		pairs = append(pairs, pair)
	}

	for _, members := range g.cells {
		for i := range members {
			for j := i + 1; j < len(members); j++ {
				add(proxies[members[i]], proxies[members[j]])
			}
		}
	}
	for k, li := range large {
		for j := range proxies {
			if j == li {
				continue
			}
			// large-large pairs are visited once
			if isLarge(large[:k], j) {
				continue
			}
			add(proxies[li], proxies[j])
		}
	}

	sortPairs(pairs)
	return pairs
}

// maxCellIndex keeps cell coordinates well inside int64.
const maxCellIndex = 1 << 52

// fits reports whether a box covers at most 512 cells with indices that
// convert to int64 exactly. The count is taken in floating point so that
// far-flung or non-finite bounds cannot overflow it.
func (g *Grid) fits(lo, hi [3]float64) bool {
	n := 1.0
	for k := 0; k < 3; k++ {
		a, b := math.Floor(lo[k]/g.CellSize), math.Floor(hi[k]/g.CellSize)
		if !(math.Abs(a) <= maxCellIndex && math.Abs(b) <= maxCellIndex) {
			return false
		}
		n *= b - a + 1
	}
	return n <= 512
}

func (g *Grid) cellOf(p [3]float64) cell {
	return cell{
		x: int64(math.Floor(p[0] / g.CellSize)),
		y: int64(math.Floor(p[1] / g.CellSize)),
		z: int64(math.Floor(p[2] / g.CellSize)),
	}
}

func isLarge(large []int, idx int) bool {
	for _, l := range large {
		if l == idx {
			return true
		}
	}
	return false
}
