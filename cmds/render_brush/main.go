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
	"github.com/unixpickle/model3d/render3d"
)

func main() {
	var gridSize int
	var imageSize int
	var fps float64
	var frames int
	flag.IntVar(&gridSize, "grid-size", 3, "grid size (used for rows and columns)")
	flag.IntVar(&imageSize, "image-size", 300, "size of each image in the grid")
	flag.Float64Var(&fps, "fps", 10.0, "FPS for GIF outputs")
	flag.IntVar(&frames, "frames", 20, "total number of frames for GIF outputs")
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: render_brush [flags] <output.png> <input.bin> [input.bin ...]")
		fmt.Fprintln(os.Stderr)
		flag.PrintDefaults()
	}
	flag.Parse()

	args := flag.Args()
	if len(args) < 2 {
		flag.Usage()
		os.Exit(1)
	}
	outputPath, inputPaths := args[0], args[1:]

	log.Println("Loading brushes...")
	var colliders []model3d.Collider
	for _, path := range inputPaths {
		brush, err := brushd.Load(path, brushd.ReadPolyhedron)
		essentials.Must(err)
		if !brush.IsPolyhedron() {
			log.Printf(" - skipping %s (%s)", path, brush.Shape())
			continue
		}
		colliders = append(colliders, brushd.NewCollider(brush))
	}
	if len(colliders) == 0 {
		essentials.Die("no solid brushes to render")
	}

	log.Println("Creating renderable object...")
	var collider model3d.Collider = colliders[0]
	if len(colliders) > 1 {
		collider = model3d.NewJoinedCollider(colliders)
	}
	object := render3d.Objectify(collider, nil)

	log.Println("Rendering...")
	ext := filepath.Ext(outputPath)
	if strings.ToLower(ext) == ".gif" {
		essentials.Must(
			render3d.SaveRotatingGIF(
				outputPath,
				object,
				model3d.Z(1),
				model3d.YZ(-1, 0.1).Normalize(),
				imageSize,
				frames,
				fps,
				nil,
			),
		)
	} else {
		essentials.Must(
			render3d.SaveRandomGrid(outputPath, object, gridSize, gridSize, imageSize, nil),
		)
	}
}
