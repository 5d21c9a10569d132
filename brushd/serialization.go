package brushd

import (
	"bufio"
	"encoding/binary"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/unixpickle/model3d/model3d"
)

// Limits on the sizes read by ReadPolyhedron, to avoid huge allocations for
// corrupt inputs.
const (
	maxSerializedVertices = 1 << 24
	maxSerializedLoop     = 1 << 16
)

// WritePolyhedron serializes p in a 64-bit precision binary format.
//
// Vertex and face handles are not preserved, but the order of faces is.
func WritePolyhedron(w io.Writer, p *Polyhedron) error {
	if err := writePolyhedron(w, p); err != nil {
		return errors.Wrap(err, "write polyhedron")
	}
	return nil
}

func writePolyhedron(w io.Writer, p *Polyhedron) error {
	header := []float64{p.tol.Relative, p.tol.Absolute, p.tol.Angle}
	if err := binary.Write(w, binary.LittleEndian, header); err != nil {
		return err
	}

	indices := map[VertexID]int32{}
	ids := p.vertices.IDs()
	coords := make([]float64, 0, len(ids)*3)
	for i, v := range ids {
		indices[v] = int32(i)
		pos := p.position(v)
		coords = append(coords, pos.X, pos.Y, pos.Z)
	}
	if err := binary.Write(w, binary.LittleEndian, int32(len(ids))); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, coords); err != nil {
		return err
	}

	faces := p.faces.IDs()
	if err := binary.Write(w, binary.LittleEndian, int32(len(faces))); err != nil {
		return err
	}
	for _, f := range faces {
		loop := p.faceVertexIDs(f)
		data := make([]int32, 0, len(loop)+1)
		data = append(data, int32(len(loop)))
		for _, v := range loop {
			data = append(data, indices[v])
		}
		if err := binary.Write(w, binary.LittleEndian, data); err != nil {
			return err
		}
		plane := p.face(f).Plane
		planeData := []float64{plane.Normal.X, plane.Normal.Y, plane.Normal.Z, plane.Distance}
		if err := binary.Write(w, binary.LittleEndian, planeData); err != nil {
			return err
		}
	}
	return nil
}

// ReadPolyhedron reads the output written by WritePolyhedron.
//
// The result is validated, so that corrupt data produces an error rather than
// an inconsistent mesh.
func ReadPolyhedron(r io.Reader) (*Polyhedron, error) {
	p, err := readPolyhedron(r)
	if err != nil {
		return nil, errors.Wrap(err, "read polyhedron")
	}
	return p, nil
}

func readPolyhedron(r io.Reader) (res *Polyhedron, err error) {
	var header [3]float64
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, err
	}
	res = NewPolyhedron(Tolerance{Relative: header[0], Absolute: header[1], Angle: header[2]})

	var numVertices int32
	if err := binary.Read(r, binary.LittleEndian, &numVertices); err != nil {
		return nil, err
	}
	if numVertices < 0 || numVertices > maxSerializedVertices {
		return nil, errors.Errorf("invalid vertex count: %d", numVertices)
	}
	coords := make([]float64, int(numVertices)*3)
	if err := binary.Read(r, binary.LittleEndian, coords); err != nil {
		return nil, err
	}
	positions := make([]model3d.Coord3D, numVertices)
	for i := range positions {
		positions[i] = model3d.XYZ(coords[i*3], coords[i*3+1], coords[i*3+2])
	}

	var numFaces int32
	if err := binary.Read(r, binary.LittleEndian, &numFaces); err != nil {
		return nil, err
	}
	if numFaces < 0 || numFaces > maxSerializedVertices {
		return nil, errors.Errorf("invalid face count: %d", numFaces)
	}
	loops := make([][]int, numFaces)
	planes := make([]Plane, numFaces)
	used := make([]bool, numVertices)
	for i := range loops {
		var size int32
		if err := binary.Read(r, binary.LittleEndian, &size); err != nil {
			return nil, err
		}
		if size < 3 || size > maxSerializedLoop {
			return nil, errors.Errorf("invalid face size: %d", size)
		}
		indices := make([]int32, size)
		if err := binary.Read(r, binary.LittleEndian, indices); err != nil {
			return nil, err
		}
		loops[i] = make([]int, size)
		for j, idx := range indices {
			if idx < 0 || idx >= numVertices {
				return nil, errors.Errorf("vertex index out of range: %d", idx)
			}
			loops[i][j] = int(idx)
			used[idx] = true
		}
		var planeData [4]float64
		if err := binary.Read(r, binary.LittleEndian, &planeData); err != nil {
			return nil, err
		}
		planes[i] = Plane{
			Normal:   model3d.XYZ(planeData[0], planeData[1], planeData[2]),
			Distance: planeData[3],
		}
	}

	if numFaces == 0 && numVertices > 2 {
		return nil, errors.Errorf("%d vertices without faces", numVertices)
	}
	if numFaces > 0 {
		for i, u := range used {
			if !u {
				return nil, errors.Errorf("vertex %d is not used by any face", i)
			}
		}
	}

	// Malformed loops can trip the assertions in rebuild.
	defer func() {
		if rec := recover(); rec != nil {
			res = nil
			err = errors.Errorf("invalid face loops: %v", rec)
		}
	}()
	faces := res.rebuild(positions, loops)
	for i, f := range faces {
		res.face(f).Plane = planes[i]
	}
	if err := res.Validate(); err != nil {
		return nil, err
	}
	return res, nil
}

// Load reads an object from a file using a reader function such as
// ReadPolyhedron.
func Load[T any](path string, f func(r io.Reader) (T, error)) (T, error) {
	var zero T
	file, err := os.Open(path)
	if err != nil {
		return zero, errors.Wrap(err, "load")
	}
	defer file.Close()
	res, err := f(bufio.NewReader(file))
	if err != nil {
		return zero, errors.Wrap(err, "load")
	}
	return res, nil
}

// Save writes an object to a file using a writer function such as
// WritePolyhedron.
func Save[T any](path string, obj T, f func(w io.Writer, obj T) error) error {
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "save")
	}
	defer file.Close()
	w := bufio.NewWriter(file)
	if err := f(w, obj); err != nil {
		return errors.Wrap(err, "save")
	}
	if err := w.Flush(); err != nil {
		return errors.Wrap(err, "save")
	}
	return nil
}

// ReadPoints reads whitespace separated "x y z" lines.
//
// Blank lines and lines starting with '#' are ignored.
func ReadPoints(r io.Reader) ([]model3d.Coord3D, error) {
	var res []model3d.Coord3D
	scanner := bufio.NewScanner(r)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 3 {
			return nil, errors.Errorf("read points: line %d: expected 3 fields but got %d",
				lineNum, len(fields))
		}
		var arr [3]float64
		for i, field := range fields {
			x, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, errors.Wrapf(err, "read points: line %d", lineNum)
			}
			arr[i] = x
		}
		res = append(res, model3d.NewCoord3DArray(arr))
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "read points")
	}
	return res, nil
}
