package brushd

import (
	"math"
	"math/rand"
	"testing"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/unixpickle/model3d/model3d"
)

func TestAddPointShapeTransitions(t *testing.T) {
	p := NewPolyhedron(DefaultTolerance)
	checkShape := func(expected Shape, v, e, f int) {
		t.Helper()
		mustValidate(t, p)
		if p.Shape() != expected {
			t.Fatalf("expected shape %s but got %s", expected, p.Shape())
		}
		if p.VertexCount() != v || p.EdgeCount() != e || p.FaceCount() != f {
			t.Fatalf("expected counts (%d, %d, %d) but got (%d, %d, %d)", v, e, f,
				p.VertexCount(), p.EdgeCount(), p.FaceCount())
		}
	}

	checkShape(ShapeEmpty, 0, 0, 0)

	if !p.AddPoint(model3d.XYZ(0, 0, 0)) {
		t.Fatal("first point should be added")
	}
	checkShape(ShapePoint, 1, 0, 0)

	if p.AddPoint(model3d.XYZ(0, 0, 1e-14)) {
		t.Fatal("duplicate point should not be added")
	}
	checkShape(ShapePoint, 1, 0, 0)

	p.AddPoint(model3d.XYZ(1, 0, 0))
	checkShape(ShapeEdge, 2, 1, 0)

	// Colinear points extend the edge or are absorbed.
	if p.AddPoint(model3d.XYZ(0.5, 0, 0)) {
		t.Fatal("interior colinear point should not be added")
	}
	if !p.AddPoint(model3d.XYZ(2, 0, 0)) {
		t.Fatal("exterior colinear point should be added")
	}
	checkShape(ShapeEdge, 2, 1, 0)
	if !p.HasVertex(model3d.XYZ(2, 0, 0)) || p.HasVertex(model3d.XYZ(1, 0, 0)) {
		t.Fatal("edge should have been extended")
	}

	p.AddPoint(model3d.XYZ(0, 1, 0))
	checkShape(ShapePolygon, 3, 3, 1)
	if n := p.FacePlane(p.Faces()[0]).Normal; n.Dist(model3d.Z(1)) > 1e-8 {
		t.Fatalf("unexpected polygon normal: %v", n)
	}

	// Coplanar points extend the polygon or are absorbed.
	if p.AddPoint(model3d.XYZ(0.25, 0.25, 0)) {
		t.Fatal("interior coplanar point should not be added")
	}
	p.AddPoint(model3d.XYZ(2, 1, 0))
	checkShape(ShapePolygon, 4, 4, 1)
	if !p.HasFace(
		model3d.XYZ(0, 0, 0),
		model3d.XYZ(2, 0, 0),
		model3d.XYZ(2, 1, 0),
		model3d.XYZ(0, 1, 0),
	) {
		t.Fatal("missing rectangle face")
	}

	// A point on an existing edge of the polygon is absorbed.
	if p.AddPoint(model3d.XYZ(1, 0, 0)) {
		t.Fatal("point on polygon edge should not be added")
	}

	p.AddPoint(model3d.XYZ(1, 0.5, 1))
	checkShape(ShapePolyhedron, 5, 8, 5)
	if math.Abs(p.Volume()-2.0/3.0) > 1e-8 {
		t.Fatalf("unexpected pyramid volume: %f", p.Volume())
	}
}

func TestAddPointPolygonBelow(t *testing.T) {
	// The pyramid must face outward whichever side the apex is on.
	for _, z := range []float64{1, -1} {
		p := NewPolyhedronPoints(
			model3d.XYZ(0, 0, 0),
			model3d.XYZ(1, 0, 0),
			model3d.XYZ(0, 1, 0),
			model3d.XYZ(0, 0, z),
		)
		mustValidate(t, p)
		if !p.IsPolyhedron() {
			t.Fatalf("expected polyhedron but got %s", p.Shape())
		}
		if math.Abs(p.Volume()-1.0/6.0) > 1e-8 {
			t.Fatalf("z=%f: unexpected volume %f", z, p.Volume())
		}
	}
}

func TestAddPointWarpedPolygon(t *testing.T) {
	for _, z := range []float64{1, -1} {
		p := NewPolyhedron(DefaultTolerance)
		p.AddPoints(
			model3d.XYZ(0, 0, 0),
			model3d.XYZ(1, 0, 5e-10),
			model3d.XYZ(1, 1, 0),
			model3d.XYZ(0, 1, -5e-10),
		)
		if !p.IsPolygon() || p.VertexCount() != 4 {
			t.Fatalf("unexpected base:\n%s", p)
		}
		if !p.AddPoint(model3d.XYZ(0.5, 0.5, z)) {
			t.Fatal("apex was not added")
		}
		mustValidate(t, p)
		if !p.IsPolyhedron() || p.VertexCount() != 5 {
			t.Fatalf("unexpected pyramid:\n%s", p)
		}
		if math.Abs(p.Volume()-1.0/3.0) > 1e-8 {
			t.Fatalf("z=%f: unexpected volume %f", z, p.Volume())
		}
	}
}

func TestAddPointCube(t *testing.T) {
	p := NewPolyhedronPoints(cubeCorners(64)...)
	mustValidate(t, p)
	if p.VertexCount() != 8 || p.EdgeCount() != 12 || p.FaceCount() != 6 {
		t.Fatalf("unexpected counts: %d %d %d", p.VertexCount(), p.EdgeCount(), p.FaceCount())
	}
	for _, f := range p.Faces() {
		if n := len(p.FaceLoop(f)); n != 4 {
			t.Fatalf("expected quad face but got %d vertices", n)
		}
	}
	for _, c := range cubeCorners(64) {
		if !p.HasVertex(c) {
			t.Fatalf("missing vertex %v", c)
		}
	}
	if !p.HasEdge(model3d.XYZ(-64, -64, -64), model3d.XYZ(64, -64, -64)) {
		t.Fatal("missing edge")
	}
	if p.HasEdge(model3d.XYZ(-64, -64, -64), model3d.XYZ(64, 64, -64)) {
		t.Fatal("unexpected diagonal edge")
	}
	if !p.HasFace(
		model3d.XYZ(-64, -64, 64),
		model3d.XYZ(64, -64, 64),
		model3d.XYZ(64, 64, 64),
		model3d.XYZ(-64, 64, 64),
	) {
		t.Fatal("missing top face")
	}
	if math.Abs(p.Volume()-128*128*128) > 1e-3 {
		t.Fatalf("unexpected volume: %f", p.Volume())
	}
	if rect := NewPolyhedronRect(model3d.XYZ(-64, -64, -64), model3d.XYZ(64, 64, 64)); rect.String() != p.String() {
		t.Fatalf("rect constructor mismatch:\n%s", unifiedDiff(p.String(), rect.String()))
	}
}

func TestAddPointInterior(t *testing.T) {
	p := NewPolyhedronPoints(
		model3d.XYZ(0, 0, 0),
		model3d.XYZ(8, 0, 0),
		model3d.XYZ(0, 8, 0),
		model3d.XYZ(0, 0, 8),
	)
	before := p.String()
	for _, c := range []model3d.Coord3D{
		model3d.XYZ(1, 1, 1),
		model3d.XYZ(2, 2, 2),
		model3d.XYZ(0, 0, 0),
		model3d.XYZ(4, 4, 0),
	} {
		if p.AddPoint(c) {
			t.Fatalf("point %v should not be added", c)
		}
	}
	if p.VertexCount() != 4 || p.EdgeCount() != 6 || p.FaceCount() != 4 {
		t.Fatalf("unexpected counts: %d %d %d", p.VertexCount(), p.EdgeCount(), p.FaceCount())
	}
	if after := p.String(); after != before {
		t.Fatalf("shape changed:\n%s", unifiedDiff(before, after))
	}
}

func TestAddPointMergesCoplanarFaces(t *testing.T) {
	p := NewPolyhedronRect(model3d.XYZ(0, 0, 0), model3d.XYZ(2, 2, 2))

	// Extending the top face sideways keeps it a single face.
	p.AddPoint(model3d.XYZ(3, 1, 2))
	mustValidate(t, p)
	top := 0
	for _, f := range p.Faces() {
		if p.FacePlane(f).Normal.Dist(model3d.Z(1)) < 1e-8 {
			top++
			if n := len(p.FaceLoop(f)); n != 5 {
				t.Errorf("expected pentagon top face but got %d vertices", n)
			}
		}
	}
	if top != 1 {
		t.Fatalf("expected one top face but got %d", top)
	}

	// A point on the extension of an edge removes the old corner.
	q := NewPolyhedronRect(model3d.XYZ(0, 0, 0), model3d.XYZ(2, 2, 2))
	q.AddPoint(model3d.XYZ(3, 0, 0))
	mustValidate(t, q)
	if q.HasVertex(model3d.XYZ(2, 0, 0)) {
		t.Fatal("colinear vertex should have been dissolved")
	}
	if q.VertexCount() != 8 || q.FaceCount() != 7 {
		t.Fatalf("unexpected counts: %d vertices, %d faces", q.VertexCount(), q.FaceCount())
	}
}

func TestAddPointOrderIndependence(t *testing.T) {
	rand.Seed(0)
	var points []model3d.Coord3D
	for i := 0; i < 60; i++ {
		points = append(points, model3d.NewCoord3DRandUnit().Scale(10))
	}
	points = append(points, cubeCorners(4)...)

	expected := NewPolyhedronPoints(points...)
	mustValidate(t, expected)
	for i := 0; i < 10; i++ {
		shuffled := append([]model3d.Coord3D{}, points...)
		rand.Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})
		actual := NewPolyhedronPoints(shuffled...)
		mustValidate(t, actual)
		if actual.String() != expected.String() {
			t.Fatalf("permutation %d gave a different hull:\n%s", i,
				unifiedDiff(expected.String(), actual.String()))
		}
	}

	for i := 0; i < 20; i++ {
		corners := cubeCorners(64)
		rand.Shuffle(len(corners), func(i, j int) {
			corners[i], corners[j] = corners[j], corners[i]
		})
		p := NewPolyhedronPoints(corners...)
		mustValidate(t, p)
		if p.VertexCount() != 8 || p.EdgeCount() != 12 || p.FaceCount() != 6 {
			t.Fatalf("permutation %d: unexpected counts %d %d %d", i, p.VertexCount(),
				p.EdgeCount(), p.FaceCount())
		}
	}
}

func TestAddPointContainsInputs(t *testing.T) {
	rand.Seed(1)
	for trial := 0; trial < 20; trial++ {
		p := NewPolyhedron(DefaultTolerance)
		scale := math.Pow(10, float64(trial%4))
		var points []model3d.Coord3D
		for i := 0; i < 40; i++ {
			c := model3d.NewCoord3DRandNorm().Scale(scale)
			points = append(points, c)
			p.AddPoint(c)
			mustValidate(t, p)
		}
		for _, c := range points {
			for _, f := range p.Faces() {
				if d := p.FacePlane(f).SignedDistance(c); d > 1e-8*scale {
					t.Fatalf("trial %d: input %v is outside by %e", trial, c, d)
				}
			}
		}
		for _, c := range p.VertexPositions() {
			found := false
			for _, x := range points {
				if x == c {
					found = true
				}
			}
			if !found {
				t.Fatalf("trial %d: vertex %v is not an input point", trial, c)
			}
		}
	}
}

func TestAddPointRegressions(t *testing.T) {
	inputs := [][]model3d.Coord3D{
		{
			model3d.XYZ(-64.0, -45.5049, -34.4752),
			model3d.XYZ(-64.0, -43.6929, -48.0),
			model3d.XYZ(-64.0, 20.753, -34.4752),
			model3d.XYZ(-64.0, 64.0, -48.0),
			model3d.XYZ(-63.7297, 22.6264, -48.0),
			model3d.XYZ(-57.9411, 22.6274, -37.9733),
			model3d.XYZ(-44.6031, -39.1918, -48.0),
			model3d.XYZ(-43.5959, -39.1918, -46.2555),
		},
		{
			model3d.XYZ(-64.0, 48.7375, -34.4752),
			model3d.XYZ(-64.0, 64.0, -48.0),
			model3d.XYZ(-64.0, 64.0, -34.4752),
			model3d.XYZ(-63.7297, 22.6264, -48.0),
			model3d.XYZ(-57.9411, 22.6274, -37.9733),
			model3d.XYZ(-40.5744, 28.0, -48.0),
			model3d.XYZ(-40.5744, 64.0, -48.0),
		},
		{
			model3d.XYZ(-64, -64, -48),
			model3d.XYZ(-64, 22.5637, -48),
			model3d.XYZ(-64, 64, -48),
			model3d.XYZ(-63.7297, 22.6264, -48),
			model3d.XYZ(-57.9411, 22.6274, -37.9733),
			model3d.XYZ(-44.6031, -39.1918, -48),
			model3d.XYZ(-43.5959, -39.1918, -46.2555),
		},
		{
			model3d.XYZ(-64, 64, -48),
			model3d.XYZ(-43.5959, -39.1918, -46.2555),
			model3d.XYZ(-40.5744, -38.257, -48),
			model3d.XYZ(-36.9274, -64, -48),
			model3d.XYZ(1.58492, -39.1918, 32),
			model3d.XYZ(9.2606, -64, 32),
			model3d.XYZ(12.8616, -64, 32),
			model3d.XYZ(12.8616, -36.5751, 32),
			model3d.XYZ(26.7796, -22.6274, -48),
			model3d.XYZ(39.5803, -64, -48),
			model3d.XYZ(57.9411, -22.6274, 5.9733),
			model3d.XYZ(64, -64, -5.70392),
			model3d.XYZ(64, -64, 2.47521),
			model3d.XYZ(64, -48.7375, 2.47521),
		},
		{
			model3d.XYZ(-64, -64, -64),
			model3d.XYZ(-64, -64, 64),
			model3d.XYZ(-64, -32, 64),
			model3d.XYZ(-32, -64, -64),
			model3d.XYZ(-32, -64, 64),
			model3d.XYZ(-32, 0, -64),
			model3d.XYZ(-32, 0, 64),
			model3d.XYZ(0, -32, -64),
			model3d.XYZ(0, -32, 64),
			model3d.XYZ(64, -64, -64),
		},
		{
			model3d.XYZ(-32, -16, -32),
			model3d.XYZ(-32, 16, -32),
			model3d.XYZ(-32, 16, 0),
			model3d.XYZ(-16, -16, -32),
			model3d.XYZ(-16, -16, 0),
			model3d.XYZ(-16, 16, -32),
			model3d.XYZ(-16, 16, 0),
			model3d.XYZ(32, -16, -32),
		},
		{
			model3d.XYZ(12.8616, -36.5751, 32),
			model3d.XYZ(57.9411, -22.6274, 5.9733),
			model3d.XYZ(64, -64, 2.47521),
			model3d.XYZ(64, -64, 32),
			model3d.XYZ(64, -48.7375, 2.47521),
			model3d.XYZ(64, -24.7084, 32),
			model3d.XYZ(64, -22.6274, 16.4676),
			model3d.XYZ(64, 64, 32),
		},
	}
	t.Run("Brushes", func(t *testing.T) {
		for i, points := range inputs {
			p := NewPolyhedron(DefaultTolerance)
			for j, c := range points {
				p.AddPoint(c)
				if err := p.Validate(); err != nil {
					t.Fatalf("input %d point %d: %s", i, j, err)
				}
			}
			if !p.IsPolyhedron() {
				t.Fatalf("input %d: expected polyhedron but got %s", i, p.Shape())
			}
			for _, c := range points {
				for _, f := range p.Faces() {
					if d := p.FacePlane(f).SignedDistance(c); d > 1e-6 {
						t.Fatalf("input %d: point %v is outside by %e", i, c, d)
					}
				}
			}
		}
	})

	t.Run("VertexRegion", func(t *testing.T) {
		points := []model3d.Coord3D{
			model3d.XYZ(0, 0, 0),
			model3d.XYZ(1, 0, 0),
			model3d.XYZ(0, 1, 0),
			model3d.XYZ(0, 0, 1),
		}
		p := NewPolyhedron(DefaultTolerance)
		p.AddPoints(points...)

		// The point sees three faces and only the opposite face is kept.
		outside := model3d.XYZ(-1, -1, -1)
		if !p.AddPoint(outside) {
			t.Fatal("point outside of the tetrahedron was not added")
		}
		mustValidate(t, p)
		points = append(points, outside)
		checkContainsAll(t, p, points)
		if p.VertexCount() != 4 || p.FaceCount() != 4 || p.HasVertex(model3d.XYZ(0, 0, 0)) {
			t.Fatalf("unexpected hull:\n%s", p)
		}
		checkPermutations(t, points)
	})

	t.Run("SmallIntegers", func(t *testing.T) {
		checkPermutations(t, []model3d.Coord3D{
			model3d.XYZ(0, 0, 1),
			model3d.XYZ(1, 1, 1),
			model3d.XYZ(1, 2, 2),
			model3d.XYZ(2, 0, 0),
			model3d.XYZ(0, 1, 0),
		})
	})

	t.Run("Grid", func(t *testing.T) {
		rand.Seed(2)
		for _, scale := range []float64{1, 64, 65536} {
			var grid []model3d.Coord3D
			for x := 0; x < 4; x++ {
				for y := 0; y < 4; y++ {
					for z := 0; z < 4; z++ {
						grid = append(grid, model3d.XYZ(float64(x), float64(y), float64(z)).Scale(scale))
					}
				}
			}
			cube := NewPolyhedronRect(model3d.Origin, model3d.XYZ(3, 3, 3).Scale(scale))
			for trial := 0; trial < 10; trial++ {
				rand.Shuffle(len(grid), func(i, j int) {
					grid[i], grid[j] = grid[j], grid[i]
				})
				p := NewPolyhedron(DefaultTolerance)
				for _, c := range grid {
					p.AddPoint(c)
					mustValidate(t, p)
				}
				if p.String() != cube.String() {
					t.Fatalf("scale %f: unexpected hull:\n%s", scale,
						unifiedDiff(cube.String(), p.String()))
				}

				// Random subsets have many coplanar and colinear points.
				subset := append([]model3d.Coord3D{}, grid[:6+rand.Intn(10)]...)
				expected := NewPolyhedronPoints(subset...)
				mustValidate(t, expected)
				checkContainsAll(t, expected, subset)
				for i := 0; i < 5; i++ {
					rand.Shuffle(len(subset), func(i, j int) {
						subset[i], subset[j] = subset[j], subset[i]
					})
					actual := NewPolyhedron(DefaultTolerance)
					for _, c := range subset {
						actual.AddPoint(c)
						mustValidate(t, actual)
					}
					checkContainsAll(t, actual, subset)
					if actual.String() != expected.String() {
						t.Fatalf("scale %f: order dependent hull of %v:\n%s", scale, subset,
							unifiedDiff(expected.String(), actual.String()))
					}
				}
			}
		}
	})

	t.Run("NearCoplanar", func(t *testing.T) {
		rand.Seed(3)
		apex := model3d.XYZ(500, 500, 300)
		for trial := 0; trial < 20; trial++ {
			var points []model3d.Coord3D
			for i := 0; i < 40; i++ {
				points = append(points, model3d.XYZ(
					rand.Float64()*1000,
					rand.Float64()*1000,
					rand.NormFloat64()*1e-6,
				))
			}
			// The apex goes somewhere in the middle of the sequence.
			idx := rand.Intn(len(points) + 1)
			points = append(points[:idx], append([]model3d.Coord3D{apex}, points[idx:]...)...)

			p := NewPolyhedron(DefaultTolerance)
			for _, c := range points {
				p.AddPoint(c)
				if err := p.Validate(); err != nil {
					t.Fatalf("trial %d: %s", trial, err)
				}
			}
			batch := NewPolyhedronPoints(points...)
			mustValidate(t, batch)
			for _, hull := range []*Polyhedron{p, batch} {
				if !hull.IsPolyhedron() || !hull.HasVertex(apex) {
					t.Fatalf("trial %d: unexpected hull:\n%s", trial, hull)
				}
				for _, c := range points {
					for _, f := range hull.Faces() {
						if d := hull.FacePlane(f).SignedDistance(c); d > 1e-8*1000 {
							t.Fatalf("trial %d: input %v is outside by %e", trial, c, d)
						}
					}
				}
				if v := hull.Volume(); math.Abs(v-batch.Volume()) > 1e-6*v {
					t.Fatalf("trial %d: volumes %f and %f differ", trial, v, batch.Volume())
				}
			}
		}
	})
}

func TestRemoveVertex(t *testing.T) {
	p := NewPolyhedronRect(model3d.XYZ(0, 0, 0), model3d.XYZ(1, 1, 1))
	if p.RemoveVertex(model3d.XYZ(0.5, 0.5, 0.5)) {
		t.Fatal("removed a vertex that does not exist")
	}
	if !p.RemoveVertex(model3d.XYZ(1, 1, 1)) {
		t.Fatal("failed to remove vertex")
	}
	mustValidate(t, p)
	if p.VertexCount() != 7 || p.FaceCount() != 7 {
		t.Fatalf("unexpected counts: %d vertices, %d faces", p.VertexCount(), p.FaceCount())
	}
	if math.Abs(p.Volume()-(1-1.0/6)) > 1e-8 {
		t.Fatalf("unexpected volume: %f", p.Volume())
	}
}

func TestConvexHull2D(t *testing.T) {
	p := NewPolyhedronPoints(
		model3d.XYZ(0, 0, 1),
		model3d.XYZ(1, 0, 1),
		model3d.XYZ(1, 1, 1),
		model3d.XYZ(0, 1, 1),
		model3d.XYZ(0.5, 0, 1),
		model3d.XYZ(0.5, 0.5, 1),
		model3d.XYZ(1, 1, 1+1e-14),
	)
	mustValidate(t, p)
	if !p.IsPolygon() || p.VertexCount() != 4 {
		t.Fatalf("expected square but got %s", p)
	}
}

func BenchmarkAddPoints(b *testing.B) {
	rand.Seed(0)
	points := make([]model3d.Coord3D, 1000)
	for i := range points {
		points[i] = model3d.NewCoord3DRandNorm()
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		NewPolyhedronPoints(points...)
	}
}

// checkPermutations makes sure that adding the points in every order gives
// the same hull as NewPolyhedronPoints.
func checkPermutations(t *testing.T, points []model3d.Coord3D) {
	t.Helper()
	expected := NewPolyhedronPoints(points...)
	mustValidate(t, expected)
	checkContainsAll(t, expected, points)
	permute(len(points), func(perm []int) {
		p := NewPolyhedron(DefaultTolerance)
		for _, i := range perm {
			p.AddPoint(points[i])
			mustValidate(t, p)
		}
		checkContainsAll(t, p, points)
		if p.String() != expected.String() {
			t.Fatalf("order %v gave a different hull:\n%s", perm,
				unifiedDiff(expected.String(), p.String()))
		}
	})
}

func checkContainsAll(t *testing.T, p *Polyhedron, points []model3d.Coord3D) {
	t.Helper()
	for _, c := range points {
		if !p.Contains(c) {
			t.Fatalf("input %v is not contained in hull:\n%s", c, p)
		}
	}
}

// permute calls f with every permutation of [0, n).
func permute(n int, f func(perm []int)) {
	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}
	var rec func(k int)
	rec = func(k int) {
		if k == n {
			f(perm)
			return
		}
		for i := k; i < n; i++ {
			perm[k], perm[i] = perm[i], perm[k]
			rec(k + 1)
			perm[k], perm[i] = perm[i], perm[k]
		}
	}
	rec(0)
}

func cubeCorners(size float64) []model3d.Coord3D {
	var res []model3d.Coord3D
	for _, x := range []float64{-size, size} {
		for _, y := range []float64{-size, size} {
			for _, z := range []float64{-size, size} {
				res = append(res, model3d.XYZ(x, y, z))
			}
		}
	}
	return res
}

func mustValidate(t testing.TB, p *Polyhedron) {
	t.Helper()
	if err := p.Validate(); err != nil {
		t.Fatal(err)
	}
}

func unifiedDiff(expected, actual string) string {
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(expected),
		B:        difflib.SplitLines(actual),
		FromFile: "expected",
		ToFile:   "actual",
		Context:  2,
	})
	if err != nil {
		return err.Error()
	}
	return diff
}
