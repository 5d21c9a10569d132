package brushd

import (
	"fmt"
	"math"
	"math/bits"
	"strings"

	"github.com/unixpickle/essentials"
	"github.com/unixpickle/model3d/model3d"
	"golang.org/x/exp/slices"
)

const (
	mortonBits = 21

	// Subtrees smaller than this are built on a single Goroutine.
	parallelBuildSize = 256
)

// MortonCode computes the Morton code of c within the box [min, max] by
// quantizing each axis to 21 bits and interleaving them, starting with X at
// the most significant position.
//
// Coordinates outside the box are clamped to it.
func MortonCode(c, min, max model3d.Coord3D) uint64 {
	size := max.Sub(min)
	scale := float64(uint64(1)<<mortonBits - 1)
	quantize := func(x, lo, extent float64) uint64 {
		if extent <= 0 {
			return 0
		}
		frac := math.Max(0, math.Min(1, (x-lo)/extent))
		return uint64(frac * scale)
	}
	return interleaveBits(quantize(c.X, min.X, size.X))<<2 |
		interleaveBits(quantize(c.Y, min.Y, size.Y))<<1 |
		interleaveBits(quantize(c.Z, min.Z, size.Z))
}

// interleaveBits spreads the low 21 bits of x so that there are two zero bits
// between consecutive input bits.
func interleaveBits(x uint64) uint64 {
	x &= 0x1fffff
	x = (x | x<<32) & 0x1f00000000ffff
	x = (x | x<<16) & 0x1f0000ff0000ff
	x = (x | x<<8) & 0x100f00f00f00f00f
	x = (x | x<<4) & 0x10c30c30c30c30c3
	x = (x | x<<2) & 0x1249249249249249
	return x
}

// A BoundingTree is a binary tree of bounding boxes over a set of objects,
// where each leaf holds one object.
//
// Objects are ordered by the Morton codes of their centers, so nearby objects
// end up in nearby subtrees.
type BoundingTree[T model3d.Bounder] struct {
	Min model3d.Coord3D
	Max model3d.Coord3D

	// Leaf is only set for leaf nodes.
	Leaf T

	// Low and High are nil for leaf nodes.
	Low  *BoundingTree[T]
	High *BoundingTree[T]
}

type mortonLeaf[T model3d.Bounder] struct {
	Code   uint64
	Object T
}

// NewBoundingTree builds a tree over the objects, using up to concurrency
// Goroutines (or GOMAXPROCS if concurrency is 0).
//
// Returns nil if there are no objects.
func NewBoundingTree[T model3d.Bounder](objects []T, concurrency int) *BoundingTree[T] {
	if len(objects) == 0 {
		return nil
	}
	min, max := objects[0].Min(), objects[0].Max()
	for _, obj := range objects[1:] {
		min = min.Min(obj.Min())
		max = max.Max(obj.Max())
	}
	leaves := make([]mortonLeaf[T], len(objects))
	essentials.ConcurrentMap(concurrency, len(objects), func(i int) {
		obj := objects[i]
		center := obj.Min().Add(obj.Max()).Scale(0.5)
		leaves[i] = mortonLeaf[T]{Code: MortonCode(center, min, max), Object: obj}
	})
	slices.SortStableFunc(leaves, func(a, b mortonLeaf[T]) bool {
		return a.Code < b.Code
	})

	queue := newForkQueue[*BoundingTree[T]](concurrency)
	return queue.Run(func() *BoundingTree[T] {
		return buildBoundingTree(queue, leaves)
	})
}

func buildBoundingTree[T model3d.Bounder](queue *forkQueue[*BoundingTree[T]],
	leaves []mortonLeaf[T]) *BoundingTree[T] {
	if len(leaves) == 1 {
		obj := leaves[0].Object
		return &BoundingTree[T]{Min: obj.Min(), Max: obj.Max(), Leaf: obj}
	}
	split := mortonSplit(leaves)
	buildLow := func() *BoundingTree[T] {
		return buildBoundingTree(queue, leaves[:split])
	}
	buildHigh := func() *BoundingTree[T] {
		return buildBoundingTree(queue, leaves[split:])
	}
	var low, high *BoundingTree[T]
	if len(leaves) >= parallelBuildSize {
		low, high = queue.Fork(buildLow, buildHigh)
	} else {
		low, high = buildLow(), buildHigh()
	}
	return &BoundingTree[T]{
		Min:  low.Min.Min(high.Min),
		Max:  low.Max.Max(high.Max),
		Low:  low,
		High: high,
	}
}

// mortonSplit finds the first leaf whose code differs from the first code at
// the highest bit where the codes of the range differ.
//
// Ranges with identical codes are split in the middle.
func mortonSplit[T model3d.Bounder](leaves []mortonLeaf[T]) int {
	first := leaves[0].Code
	last := leaves[len(leaves)-1].Code
	if first == last {
		return len(leaves) / 2
	}
	prefix := bits.LeadingZeros64(first ^ last)
	idx, _ := slices.BinarySearchFunc(leaves, prefix, func(l mortonLeaf[T], prefix int) int {
		if bits.LeadingZeros64(first^l.Code) > prefix {
			return -1
		}
		return 1
	})
	return idx
}

func (b *BoundingTree[T]) IsLeaf() bool {
	return b.Low == nil
}

// Len counts the leaves of the tree.
func (b *BoundingTree[T]) Len() int {
	if b == nil {
		return 0
	} else if b.IsLeaf() {
		return 1
	}
	return b.Low.Len() + b.High.Len()
}

// Height gets the number of nodes on the longest path from the root to a
// leaf.
func (b *BoundingTree[T]) Height() int {
	if b == nil {
		return 0
	} else if b.IsLeaf() {
		return 1
	}
	return 1 + essentials.MaxInt(b.Low.Height(), b.High.Height())
}

// Query calls f for every object whose bounding box touches the box from min
// to max.
//
// If f returns false, the query is stopped early and false is returned.
func (b *BoundingTree[T]) Query(min, max model3d.Coord3D, f func(T) bool) bool {
	if b == nil {
		return true
	}
	if b.Max.X < min.X || b.Max.Y < min.Y || b.Max.Z < min.Z ||
		b.Min.X > max.X || b.Min.Y > max.Y || b.Min.Z > max.Z {
		return true
	}
	if b.IsLeaf() {
		return f(b.Leaf)
	}
	return b.Low.Query(min, max, f) && b.High.Query(min, max, f)
}

// QueryRay calls f for every object whose bounding box is hit by the ray or
// contains its origin.
//
// If f returns false, the query is stopped early and false is returned.
func (b *BoundingTree[T]) QueryRay(r *model3d.Ray, f func(T) bool) bool {
	if b == nil {
		return true
	}
	rect := &model3d.Rect{MinVal: b.Min, MaxVal: b.Max}
	if !rect.Contains(r.Origin) && rect.RayCollisions(r, nil) == 0 {
		return true
	}
	if b.IsLeaf() {
		return f(b.Leaf)
	}
	return b.Low.QueryRay(r, f) && b.High.QueryRay(r, f)
}

// Overlapping finds the polyhedra in the tree which intersect p.
func Overlapping(b *BoundingTree[*Polyhedron], p *Polyhedron) []*Polyhedron {
	var res []*Polyhedron
	eps := p.epsilon()
	min := p.Min().Sub(model3d.XYZ(eps, eps, eps))
	max := p.Max().Add(model3d.XYZ(eps, eps, eps))
	b.Query(min, max, func(other *Polyhedron) bool {
		if other.Intersects(p) {
			res = append(res, other)
		}
		return true
	})
	return res
}

func (b *BoundingTree[T]) String() string {
	if b == nil {
		return "empty"
	} else if b.IsLeaf() {
		return fmt.Sprintf("leaf %v - %v", b.Min, b.Max)
	}
	return fmt.Sprintf(
		"node %v - %v {\n%s\n%s\n}",
		b.Min,
		b.Max,
		indentText(b.Low.String()),
		indentText(b.High.String()),
	)
}

func indentText(text string) string {
	lines := strings.Split(text, "\n")
	for i, x := range lines {
		lines[i] = "  " + x
	}
	return strings.Join(lines, "\n")
}
