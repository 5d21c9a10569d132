package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/unixpickle/brush-d/brushd"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/model3d/model3d"
)

func main() {
	var pointStr string
	var normalStr string
	flag.StringVar(&pointStr, "point", "0,0,0", "a point on the clipping plane")
	flag.StringVar(&normalStr, "normal", "0,0,1", "normal of the clipping plane")
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: clip_brush [flags] <input.bin> <below.bin> [above.bin]")
		fmt.Fprintln(os.Stderr)
		flag.PrintDefaults()
	}
	flag.Parse()

	args := flag.Args()
	if len(args) != 2 && len(args) != 3 {
		flag.Usage()
		os.Exit(1)
	}

	log.Println("Loading brush...")
	brush, err := brushd.Load(args[0], brushd.ReadPolyhedron)
	essentials.Must(err)

	plane, ok := brush.Tolerance().PlaneNormal(parseCoord(pointStr), parseCoord(normalStr))
	if !ok {
		essentials.Die("invalid plane normal:", normalStr)
	}

	log.Println("Clipping...")
	below, above := brush.Split(plane)
	log.Printf(" - below: %s with %d faces", below.Shape(), below.FaceCount())
	log.Printf(" - above: %s with %d faces", above.Shape(), above.FaceCount())

	essentials.Must(brushd.Save(args[1], below, brushd.WritePolyhedron))
	if len(args) == 3 {
		essentials.Must(brushd.Save(args[2], above, brushd.WritePolyhedron))
	}
}

func parseCoord(s string) model3d.Coord3D {
	var c model3d.Coord3D
	if _, err := fmt.Sscanf(s, "%f,%f,%f", &c.X, &c.Y, &c.Z); err != nil {
		essentials.Die("invalid coordinate:", s)
	}
	return c
}
