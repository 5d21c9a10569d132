package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/unixpickle/brush-d/brushd"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/model3d/model3d"
)

func main() {
	var brushPath string
	var relative float64
	var absolute float64
	flag.StringVar(&brushPath, "brush", "", "optional path to save the hull as a binary brush")
	flag.Float64Var(&relative, "relative-eps", brushd.DefaultTolerance.Relative,
		"epsilon relative to the scale of the points")
	flag.Float64Var(&absolute, "absolute-eps", brushd.DefaultTolerance.Absolute,
		"lower bound on the epsilon")
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: hull_to_stl [flags] <input.txt|input.stl> <output.stl>")
		fmt.Fprintln(os.Stderr)
		fmt.Fprintln(os.Stderr, "Text inputs contain one \"x y z\" point per line. For STL")
		fmt.Fprintln(os.Stderr, "inputs, the hull of the mesh vertices is computed.")
		fmt.Fprintln(os.Stderr)
		flag.PrintDefaults()
	}
	flag.Parse()

	args := flag.Args()
	if len(args) != 2 {
		flag.Usage()
		os.Exit(1)
	}
	inputPath, outputPath := args[0], args[1]

	log.Println("Loading points...")
	points := readPoints(inputPath)
	log.Printf(" - loaded %d points", len(points))

	log.Println("Computing hull...")
	tol := brushd.DefaultTolerance
	tol.Relative = relative
	tol.Absolute = absolute
	hull := brushd.NewPolyhedron(tol)
	hull.AddPoints(points...)
	essentials.Must(hull.Validate())
	log.Printf(" - %s with %d vertices, %d edges, %d faces", hull.Shape(),
		hull.VertexCount(), hull.EdgeCount(), hull.FaceCount())
	if !hull.IsPolyhedron() {
		essentials.Die("hull is not a solid")
	}

	log.Println("Saving mesh...")
	essentials.Must(hull.Mesh().SaveGroupedSTL(outputPath))
	if brushPath != "" {
		essentials.Must(brushd.Save(brushPath, hull, brushd.WritePolyhedron))
	}
}

func readPoints(path string) []model3d.Coord3D {
	if strings.ToLower(filepath.Ext(path)) == ".stl" {
		f, err := os.Open(path)
		essentials.Must(err)
		tris, err := model3d.ReadSTL(f)
		f.Close()
		essentials.Must(err)
		return model3d.NewMeshTriangles(tris).VertexSlice()
	}
	points, err := brushd.Load(path, brushd.ReadPoints)
	essentials.Must(err)
	return points
}
