package brushd

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/unixpickle/model3d/model3d"
)

func TestMortonCode(t *testing.T) {
	min, max := model3d.XYZ(0, 0, 0), model3d.XYZ(1, 1, 1)
	if code := MortonCode(min, min, max); code != 0 {
		t.Errorf("expected zero code but got %x", code)
	}
	if code := MortonCode(max, min, max); code != 1<<63-1 {
		t.Errorf("expected all ones but got %x", code)
	}
	// X is the most significant axis.
	if MortonCode(model3d.X(0.6), min, max) <= MortonCode(model3d.XYZ(0.4, 1, 1), min, max) {
		t.Error("x should dominate the code")
	}
	if MortonCode(model3d.XYZ(-5, 0, 0), min, max) != 0 {
		t.Error("coordinates should be clamped")
	}
	if interleaveBits(0x1fffff) != 0x1249249249249249 {
		t.Errorf("unexpected interleaving: %x", interleaveBits(0x1fffff))
	}
}

func TestBoundingTreeQuery(t *testing.T) {
	rand.Seed(0)
	var brushes []*Polyhedron
	for i := 0; i < 1000; i++ {
		center := model3d.NewCoord3DRandUniform().Scale(100)
		size := model3d.NewCoord3DRandUniform().Scale(3).Add(model3d.XYZ(0.1, 0.1, 0.1))
		brushes = append(brushes, NewPolyhedronRect(center, center.Add(size)))
	}
	tree := NewBoundingTree(brushes, 4)
	if tree.Len() != len(brushes) {
		t.Fatalf("expected %d leaves but got %d", len(brushes), tree.Len())
	}
	if h := tree.Height(); h > 64 {
		t.Errorf("tree is too deep: %d", h)
	}
	checkTreeBounds(t, tree)

	for i := 0; i < 100; i++ {
		min := model3d.NewCoord3DRandUniform().Scale(100)
		max := min.Add(model3d.NewCoord3DRandUniform().Scale(10))

		var expected, actual []int
		for j, b := range brushes {
			if boxesTouch(b.Min(), b.Max(), min, max) {
				expected = append(expected, j)
			}
		}
		indices := map[*Polyhedron]int{}
		for j, b := range brushes {
			indices[b] = j
		}
		tree.Query(min, max, func(b *Polyhedron) bool {
			actual = append(actual, indices[b])
			return true
		})
		sort.Ints(actual)
		if len(actual) != len(expected) {
			t.Fatalf("expected %d results but got %d", len(expected), len(actual))
		}
		for j := range actual {
			if actual[j] != expected[j] {
				t.Fatalf("unexpected result %d", actual[j])
			}
		}
	}

	// Early stopping.
	var count int
	if tree.Query(model3d.XYZ(-1, -1, -1), model3d.XYZ(200, 200, 200), func(*Polyhedron) bool {
		count++
		return count < 3
	}) {
		t.Error("query should report early stop")
	}
	if count != 3 {
		t.Errorf("expected 3 calls but got %d", count)
	}
}

func TestBoundingTreeQueryRay(t *testing.T) {
	rand.Seed(1)
	var brushes []*Polyhedron
	for i := 0; i < 300; i++ {
		center := model3d.NewCoord3DRandNorm().Scale(10)
		brushes = append(brushes, NewPolyhedronRect(center, center.Add(model3d.XYZ(1, 1, 1))))
	}
	tree := NewBoundingTree(brushes, 0)
	for i := 0; i < 100; i++ {
		ray := &model3d.Ray{
			Origin:    model3d.NewCoord3DRandNorm().Scale(10),
			Direction: model3d.NewCoord3DRandUnit(),
		}
		found := map[*Polyhedron]bool{}
		tree.QueryRay(ray, func(b *Polyhedron) bool {
			found[b] = true
			return true
		})
		for _, b := range brushes {
			if NewCollider(b).RayCollisions(ray, nil) > 0 && !found[b] {
				t.Fatalf("ray %v misses a brush it collides with", ray)
			}
		}
	}
}

func TestOverlapping(t *testing.T) {
	brushes := []*Polyhedron{
		NewPolyhedronRect(model3d.XYZ(0, 0, 0), model3d.XYZ(1, 1, 1)),
		NewPolyhedronRect(model3d.XYZ(2, 0, 0), model3d.XYZ(3, 1, 1)),
		// The bounds touch the query, but the brush does not.
		NewPolyhedronRect(model3d.XYZ(2.2, 0, 0), model3d.XYZ(2.5, 0.2, 0.2)),
	}
	tree := NewBoundingTree(brushes, 1)
	query := NewPolyhedronPoints(
		model3d.XYZ(0.5, 0.5, 0.5),
		model3d.XYZ(2.5, 0.5, 0.5),
		model3d.XYZ(1.5, 0, 0),
		model3d.XYZ(1.5, 0, 1),
	)
	res := Overlapping(tree, query)
	if len(res) != 2 {
		t.Fatalf("expected 2 results but got %d", len(res))
	}
	for _, b := range res {
		if b == brushes[2] {
			t.Fatal("brush outside of the query was returned")
		}
	}

	if res := Overlapping(NewBoundingTree[*Polyhedron](nil, 1), query); len(res) != 0 {
		t.Fatal("empty tree should have no results")
	}
}

func BenchmarkNewBoundingTree(b *testing.B) {
	rand.Seed(0)
	var brushes []*Polyhedron
	for i := 0; i < 10000; i++ {
		center := model3d.NewCoord3DRandUniform().Scale(100)
		brushes = append(brushes, NewPolyhedronRect(center, center.Add(model3d.XYZ(1, 1, 1))))
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		NewBoundingTree(brushes, 0)
	}
}

func checkTreeBounds(t *testing.T, b *BoundingTree[*Polyhedron]) {
	if b.IsLeaf() {
		if b.Min != b.Leaf.Min() || b.Max != b.Leaf.Max() {
			t.Fatal("leaf bounds do not match object")
		}
		return
	}
	for _, child := range []*BoundingTree[*Polyhedron]{b.Low, b.High} {
		if child.Min.Min(b.Min) != b.Min || child.Max.Max(b.Max) != b.Max {
			t.Fatal("child is not inside parent")
		}
		checkTreeBounds(t, child)
	}
}

func boxesTouch(min1, max1, min2, max2 model3d.Coord3D) bool {
	return min1.X <= max2.X && min2.X <= max1.X &&
		min1.Y <= max2.Y && min2.Y <= max1.Y &&
		min1.Z <= max2.Z && min2.Z <= max1.Z
}
