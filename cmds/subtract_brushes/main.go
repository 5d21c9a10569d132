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
	var cutterPaths string
	var stlPath string
	var concurrency int
	flag.StringVar(&cutterPaths, "cutters", "", "comma-separated brush files to subtract")
	flag.StringVar(&stlPath, "stl", "", "optional path to save all resulting pieces as a mesh")
	flag.IntVar(&concurrency, "concurrency", 0, "number of Goroutines (0 for GOMAXPROCS)")
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: subtract_brushes [flags] <output_dir> <input.bin> [input.bin ...]")
		fmt.Fprintln(os.Stderr)
		flag.PrintDefaults()
	}
	flag.Parse()

	args := flag.Args()
	if len(args) < 2 || cutterPaths == "" {
		flag.Usage()
		os.Exit(1)
	}
	outputDir, inputPaths := args[0], args[1:]

	log.Println("Loading brushes...")
	brushes := loadBrushes(inputPaths)
	cutters := loadBrushes(strings.Split(cutterPaths, ","))

	log.Println("Building cutter tree...")
	tree := brushd.NewBoundingTree(cutters, concurrency)
	log.Printf(" - %d cutters, tree height %d", tree.Len(), tree.Height())

	log.Println("Subtracting...")
	results := make([][]*brushd.Polyhedron, len(brushes))
	essentials.ConcurrentMap(concurrency, len(brushes), func(i int) {
		nearby := brushd.Overlapping(tree, brushes[i])
		results[i] = brushd.SubtractAll(brushes[i:i+1], nearby, 1)[0]
	})

	log.Println("Saving pieces...")
	essentials.Must(os.MkdirAll(outputDir, 0755))
	mesh := model3d.NewMesh()
	var numPieces int
	for i, pieces := range results {
		base := strings.TrimSuffix(filepath.Base(inputPaths[i]), filepath.Ext(inputPaths[i]))
		for j, piece := range pieces {
			path := filepath.Join(outputDir, fmt.Sprintf("%s_%d.bin", base, j))
			essentials.Must(brushd.Save(path, piece, brushd.WritePolyhedron))
			mesh.AddMesh(piece.Mesh())
			numPieces++
		}
	}
	log.Printf(" - wrote %d pieces from %d brushes", numPieces, len(brushes))

	if stlPath != "" {
		essentials.Must(mesh.SaveGroupedSTL(stlPath))
	}
}

func loadBrushes(paths []string) []*brushd.Polyhedron {
	res := make([]*brushd.Polyhedron, len(paths))
	for i, path := range paths {
		brush, err := brushd.Load(path, brushd.ReadPolyhedron)
		essentials.Must(err)
		res[i] = brush
	}
	return res
}
