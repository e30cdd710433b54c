// Package export writes published meshes to disk.
package export

import (
	"math"
	"os"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"google.golang.org/protobuf/encoding/protowire"

	"surfacenets/internal/grid"
	"surfacenets/internal/meshing"
)

// Field numbers of the mesh message. A mesh file is a sequence of
// fieldMesh entries, each holding one length-delimited mesh message.
const (
	fieldCoord      protowire.Number = 1 // packed sint32 x, y, z
	fieldGeneration protowire.Number = 2 // 16 bytes
	fieldVertices   protowire.Number = 3 // packed float x, y, z per vertex
	fieldNormals    protowire.Number = 4 // packed float
	fieldIndices    protowire.Number = 5 // packed uint32
	fieldOrigin     protowire.Number = 6 // packed float x, y, z

	fieldMesh protowire.Number = 1
)

var ErrMalformed = errors.New("export: malformed mesh data")

// EncodeMesh appends the wire encoding of m to b.
func EncodeMesh(b []byte, m *meshing.Mesh) []byte {
	var packed []byte
	for _, v := range []int{m.Coord.X, m.Coord.Y, m.Coord.Z} {
		packed = protowire.AppendVarint(packed, protowire.EncodeZigZag(int64(v)))
	}
	b = protowire.AppendTag(b, fieldCoord, protowire.BytesType)
	b = protowire.AppendBytes(b, packed)

	b = protowire.AppendTag(b, fieldGeneration, protowire.BytesType)
	b = protowire.AppendBytes(b, m.Generation[:])

	b = appendVecs(b, fieldVertices, m.Vertices)
	b = appendVecs(b, fieldNormals, m.Normals)

	packed = packed[:0]
	for _, i := range m.Indices {
		packed = protowire.AppendVarint(packed, uint64(i))
	}
	b = protowire.AppendTag(b, fieldIndices, protowire.BytesType)
	b = protowire.AppendBytes(b, packed)

	return appendVecs(b, fieldOrigin, []mgl32.Vec3{m.Origin})
}

func appendVecs(b []byte, num protowire.Number, vs []mgl32.Vec3) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	b = protowire.AppendVarint(b, uint64(len(vs)*3*4))
	for _, v := range vs {
		for _, f := range v {
			b = protowire.AppendFixed32(b, math.Float32bits(f))
		}
	}
	return b
}

// DecodeMesh parses one mesh message. Unknown fields are skipped.
func DecodeMesh(b []byte) (*meshing.Mesh, error) {
	m := &meshing.Mesh{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, errors.Wrap(protowire.ParseError(n), "export: tag")
		}
		b = b[n:]
		if typ != protowire.BytesType {
			n = protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, errors.Wrapf(protowire.ParseError(n), "export: field %d", num)
			}
			b = b[n:]
			continue
		}
		v, n := protowire.ConsumeBytes(b)
		if n < 0 {
			return nil, errors.Wrapf(protowire.ParseError(n), "export: field %d", num)
		}
		b = b[n:]

		var err error
		switch num {
		case fieldCoord:
			m.Coord, err = decodeCoord(v)
		case fieldGeneration:
			m.Generation, err = uuid.FromBytes(v)
		case fieldVertices:
			m.Vertices, err = decodeVecs(v)
		case fieldNormals:
			m.Normals, err = decodeVecs(v)
		case fieldIndices:
			m.Indices, err = decodeIndices(v)
		case fieldOrigin:
			var o []mgl32.Vec3
			if o, err = decodeVecs(v); err == nil && len(o) == 1 {
				m.Origin = o[0]
			}
		}
		if err != nil {
			return nil, errors.Wrapf(err, "export: field %d", num)
		}
	}
	if len(m.Vertices) != len(m.Normals) {
		return nil, errors.Wrapf(ErrMalformed, "%d vertices, %d normals", len(m.Vertices), len(m.Normals))
	}
	for _, i := range m.Indices {
		if int(i) >= len(m.Vertices) {
			return nil, errors.Wrapf(ErrMalformed, "index %d out of %d vertices", i, len(m.Vertices))
		}
	}
	return m, nil
}

func decodeCoord(b []byte) (grid.Coord, error) {
	var xyz [3]int
	for i := range xyz {
		v, n := protowire.ConsumeVarint(b)
		if n < 0 {
			return grid.Coord{}, protowire.ParseError(n)
		}
		xyz[i] = int(protowire.DecodeZigZag(v))
		b = b[n:]
	}
	return grid.Coord{X: xyz[0], Y: xyz[1], Z: xyz[2]}, nil
}

func decodeVecs(b []byte) ([]mgl32.Vec3, error) {
	if len(b)%12 != 0 {
		return nil, errors.Wrapf(ErrMalformed, "%d bytes of packed vectors", len(b))
	}
	out := make([]mgl32.Vec3, 0, len(b)/12)
	for len(b) > 0 {
		var v mgl32.Vec3
		for k := range v {
			bits, n := protowire.ConsumeFixed32(b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			v[k] = math.Float32frombits(bits)
			b = b[n:]
		}
		out = append(out, v)
	}
	return out, nil
}

func decodeIndices(b []byte) ([]uint32, error) {
	var out []uint32
	for len(b) > 0 {
		v, n := protowire.ConsumeVarint(b)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}
		if v > math.MaxUint32 {
			return nil, errors.Wrapf(ErrMalformed, "index %d overflows uint32", v)
		}
		out = append(out, uint32(v))
		b = b[n:]
	}
	return out, nil
}

// EncodeMeshes encodes a mesh file.
func EncodeMeshes(meshes []*meshing.Mesh) []byte {
	var b []byte
	for _, m := range meshes {
		b = protowire.AppendTag(b, fieldMesh, protowire.BytesType)
		b = protowire.AppendBytes(b, EncodeMesh(nil, m))
	}
	return b
}

// DecodeMeshes parses a mesh file.
func DecodeMeshes(b []byte) ([]*meshing.Mesh, error) {
	var out []*meshing.Mesh
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, errors.Wrap(protowire.ParseError(n), "export: tag")
		}
		b = b[n:]
		if num != fieldMesh || typ != protowire.BytesType {
			return nil, errors.Wrapf(ErrMalformed, "unexpected field %d type %d", num, typ)
		}
		v, n := protowire.ConsumeBytes(b)
		if n < 0 {
			return nil, errors.Wrap(protowire.ParseError(n), "export: mesh")
		}
		b = b[n:]
		m, err := DecodeMesh(v)
		if err != nil {
			return nil, errors.Wrapf(err, "mesh %d", len(out))
		}
		out = append(out, m)
	}
	return out, nil
}

// WriteMeshFile writes meshes to path in the wire format.
func WriteMeshFile(path string, meshes []*meshing.Mesh) error {
	if err := os.WriteFile(path, EncodeMeshes(meshes), 0o644); err != nil {
		return errors.Wrapf(err, "export: write %s", path)
	}
	return nil
}

// ReadMeshFile reads a file written by WriteMeshFile.
func ReadMeshFile(path string) ([]*meshing.Mesh, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "export: read %s", path)
	}
	return DecodeMeshes(data)
}
