package export

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"

	"surfacenets/internal/meshing"
)

// WriteOBJ writes meshes as one Wavefront OBJ object per chunk. Filler
// vertices are written too so face indices stay a plain offset of the mesh
// indices.
func WriteOBJ(w io.Writer, meshes []*meshing.Mesh) error {
	bw := bufio.NewWriter(w)
	base := 1
	for _, m := range meshes {
		fmt.Fprintf(bw, "o chunk_%d_%d_%d\n", m.Coord.X, m.Coord.Y, m.Coord.Z)
		for _, v := range m.Vertices {
			fmt.Fprintf(bw, "v %g %g %g\n", v[0], v[1], v[2])
		}
		for _, n := range m.Normals {
			fmt.Fprintf(bw, "vn %g %g %g\n", n[0], n[1], n[2])
		}
		for i := 0; i+2 < len(m.Indices); i += 3 {
			a, b, c := base+int(m.Indices[i]), base+int(m.Indices[i+1]), base+int(m.Indices[i+2])
			fmt.Fprintf(bw, "f %d//%d %d//%d %d//%d\n", a, a, b, b, c, c)
		}
		base += len(m.Vertices)
	}
	return bw.Flush()
}

// WriteOBJFile writes meshes to path.
func WriteOBJFile(path string, meshes []*meshing.Mesh) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "export: create %s", path)
	}
	if err := WriteOBJ(f, meshes); err != nil {
		f.Close()
		return errors.Wrapf(err, "export: write %s", path)
	}
	return f.Close()
}
