package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/unixpickle/brush-d/brushd"
	"github.com/unixpickle/essentials"
)

func main() {
	var dump bool
	flag.BoolVar(&dump, "dump", false, "print every vertex and face")
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: brush_info [flags] <input.bin>")
		fmt.Fprintln(os.Stderr)
		flag.PrintDefaults()
	}
	flag.Parse()

	args := flag.Args()
	if len(args) != 1 {
		flag.Usage()
		os.Exit(1)
	}
	inputPath := args[0]

	log.Println("Loading brush...")
	brush, err := brushd.Load(inputPath, brushd.ReadPolyhedron)
	essentials.Must(err)

	fmt.Println("Shape:", brush.Shape())
	fmt.Println("Vertices:", brush.VertexCount())
	fmt.Println("Edges:", brush.EdgeCount())
	fmt.Println("Faces:", brush.FaceCount())
	fmt.Println("Bounds:", brush.Min(), "-", brush.Max())
	fmt.Println("Epsilon:", brush.Epsilon())
	fmt.Println("Volume:", brush.Volume())
	fmt.Println("Area:", brush.Area())
	if dump {
		fmt.Print(brush)
	}
}
