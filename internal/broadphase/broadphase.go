// Package broadphase finds candidate body pairs whose bounding boxes overlap.
package broadphase

import (
	"sort"

	"github.com/san-kum/rigidsim/internal/body"
	"github.com/san-kum/rigidsim/internal/shape"
)

// Proxy is the broad-phase view of a body for one step.
type Proxy struct {
	ID     body.ID
	Bounds shape.AABB
	// Static and Sleeping bodies only pair with awake bodies.
	Static   bool
	Sleeping bool
}

func (p Proxy) awake() bool {
	return !p.Static && !p.Sleeping
}

// Pair is an unordered body pair stored with A < B.
type Pair struct {
	A, B body.ID
}

func MakePair(a, b body.ID) Pair {
	if b < a {
		a, b = b, a
	}
	return Pair{A: a, B: b}
}

// BroadPhase reports overlapping pairs sorted by (A, B). Pairs in which
// neither body is awake are never reported.
type BroadPhase interface {
	Name() string
	Pairs(proxies []Proxy) []Pair
}

// New returns the broad phase registered under name.
func New(name string) (BroadPhase, bool) {
	switch name {
	case "sap", "sweep_and_prune", "":
		return NewSweepAndPrune(), true
	case "grid":
		return NewGrid(0), true
	case "brute_force":
		return NewBruteForce(), true
	}
	return nil, false
}

// Names lists the registered broad phases.
func Names() []string {
	return []string{"sap", "grid", "brute_force"}
}

func candidate(a, b Proxy) bool {
	if !a.awake() && !b.awake() {
		return false
	}
	return a.Bounds.Overlaps(b.Bounds)
}

func sortPairs(pairs []Pair) {
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].A != pairs[j].A {
			return pairs[i].A < pairs[j].A
		}
		return pairs[i].B < pairs[j].B
	})
}

// BruteForce tests every pair. It is the reference the faster phases are
// checked against.
type BruteForce struct{}

func NewBruteForce() *BruteForce { return &BruteForce{} }

func (b *BruteForce) Name() string { return "brute_force" }

func (b *BruteForce) Pairs(proxies []Proxy) []Pair {
	var pairs []Pair
	for i := range proxies {
		for j := i + 1; j < len(proxies); j++ {
			if candidate(proxies[i], proxies[j]) {
				pairs = append(pairs, MakePair(proxies[i].ID, proxies[j].ID))
			}
		}
	}
	sortPairs(pairs)
	return pairs
}
