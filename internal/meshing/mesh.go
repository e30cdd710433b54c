package meshing

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"

	"surfacenets/internal/grid"
	"surfacenets/internal/profiling"
)

// VertexStride is number of float32 per interleaved vertex (pos.xyz + normal.xyz)
const VertexStride = 6

var (
	fillerPosition = mgl32.Vec3{}
	fillerNormal   = mgl32.Vec3{1, 1, 1}
)

// Mesh is the published geometry of a chunk. Vertices and Normals are
// parallel; Indices holds three vertex indices per triangle. There is one
// vertex per leaf slot, in slot order, followed by seam vertices. Slots
// without a vertex hold a filler that no index references.
//
// Positions are in world space, so a vertex shared across a seam has the
// same value in both chunks.
type Mesh struct {
	Coord      grid.Coord
	Generation uuid.UUID
	Origin     mgl32.Vec3
	Vertices   []mgl32.Vec3
	Normals    []mgl32.Vec3
	Indices    []uint32
}

// TriangleCount returns len(Indices)/3.
func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// Interleaved expands the indexed mesh into a flat triangle list of
// pos+normal vertices.
func (m *Mesh) Interleaved() []float32 {
	out := make([]float32, 0, len(m.Indices)*VertexStride)
	for _, i := range m.Indices {
		p, n := m.Vertices[i], m.Normals[i]
		out = append(out, p[0], p[1], p[2], n[0], n[1], n[2])
	}
	return out
}

// Assemble builds the mesh buffers from a meshed store plus optional seams.
// Triangle corners are translated from absolute slots to the 0-based leaf
// range.
func Assemble(m *Mesher, seams *Seams) *Mesh {
	defer profiling.Track("meshing.Assemble")()
	s := m.Store
	offset := s.LeafOffset()
	leaves := s.Len() - offset

	extra := 0
	if seams != nil {
		extra = len(seams.Vertices)
	}
	out := &Mesh{
		Origin:   m.Origin,
		Vertices: make([]mgl32.Vec3, 0, leaves+extra),
		Normals:  make([]mgl32.Vec3, 0, leaves+extra),
	}
	for slot := offset; slot < s.Len(); slot++ {
		if !s.Occupied(slot) {
			out.Vertices = append(out.Vertices, fillerPosition)
			out.Normals = append(out.Normals, fillerNormal)
			continue
		}
		out.Vertices = append(out.Vertices, s.Position(slot).Add(m.Origin))
		out.Normals = append(out.Normals, s.Normal(slot))
		for k := range 6 {
			tri := s.Triangle(slot, k)
			if tri.IsZero() {
				continue
			}
			out.Indices = append(out.Indices,
				uint32(tri[0]-offset), uint32(tri[1]-offset), uint32(tri[2]-offset))
		}
	}
	if seams != nil {
		out.Vertices = append(out.Vertices, seams.Vertices...)
		out.Normals = append(out.Normals, seams.Normals...)
		for _, tri := range seams.Triangles {
			out.Indices = append(out.Indices, tri[0], tri[1], tri[2])
		}
	}
	return out
}
