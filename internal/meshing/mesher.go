package meshing

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"

	"surfacenets/internal/density"
	"surfacenets/internal/grid"
	"surfacenets/internal/jobs"
	"surfacenets/internal/octree"
	"surfacenets/internal/profiling"
)

// ErrUnmaterialized is returned when a voxel's leaf is not reachable, which
// means the store was not materialized or the voxel was meshed twice.
var ErrUnmaterialized = errors.New("meshing: voxel leaf not materialized")

// Mesher places Surface Nets vertices and emits triangles for one chunk.
// Vertex positions are chunk-local lattice coordinates.
type Mesher struct {
	Grid         *grid.SampleGrid
	Store        *octree.Store
	Field        density.Field
	Origin       mgl32.Vec3 // world position of local point (0,0,0)
	SurfaceLevel float32
}

// NewMesher checks that grid and store describe the same chunk.
func NewMesher(g *grid.SampleGrid, s *octree.Store, field density.Field, origin mgl32.Vec3, surfaceLevel float32) (*Mesher, error) {
	if g.PointsPerAxis-1 != s.Side() {
		return nil, errors.Errorf("meshing: grid has %d points per axis, store has %d voxels per axis",
			g.PointsPerAxis, s.Side())
	}
	return &Mesher{Grid: g, Store: s, Field: field, Origin: origin, SurfaceLevel: surfaceLevel}, nil
}

// VoxelsPerAxis is chunkSize.
func (m *Mesher) VoxelsPerAxis() int {
	return m.Grid.PointsPerAxis - 1
}

// ConfigurationMask returns the 8-bit inside mask of voxel v.
func (m *Mesher) ConfigurationMask(v grid.Coord) uint8 {
	var mask uint8
	for i, off := range CornerOffsets {
		if m.Grid.At(v.Add(off)) < 0 {
			mask |= 1 << i
		}
	}
	return mask
}

// crossing returns the root of the linear interpolation between p1 (value d1)
// and p2 (value d2). d1 and d2 must differ.
func crossing(d1, d2 float32, p1, p2 mgl32.Vec3) mgl32.Vec3 {
	return p1.Add(p2.Sub(p1).Mul((0 - d1) / (d2 - d1)))
}

// vertexPosition returns the centroid of the crossings on the edges in edges,
// each weighted by |density| at the crossing. The crossings themselves come
// from the level-shifted samples. ok is false when every weight is zero.
func (m *Mesher) vertexPosition(v grid.Coord, edges uint16) (pos mgl32.Vec3, ok bool) {
	var sum mgl32.Vec3
	var weight float32
	for e, c := range EdgeCorners {
		if edges&(1<<e) == 0 {
			continue
		}
		a := v.Add(CornerOffsets[c[0]])
		b := v.Add(CornerOffsets[c[1]])
		p := crossing(m.Grid.At(a), m.Grid.At(b), grid.PointPosition(a), grid.PointPosition(b))
		w := math32.Abs(m.Field.Density(p.Add(m.Origin)))
		sum = sum.Add(p.Mul(w))
		weight += w
	}
	if weight == 0 {
		return mgl32.Vec3{}, false
	}
	return sum.Mul(1 / weight), true
}

// Vertex resets voxel v's slot and, if the surface crosses the voxel, stores
// its vertex and normal. Voxels may be processed concurrently once the store
// is materialized, but each voxel exactly once per generation.
func (m *Mesher) Vertex(v grid.Coord) error {
	slot, err := m.Store.IndexOf(v)
	if err != nil {
		return err
	}
	if !m.Store.IsLeaf(slot) {
		return errors.Wrapf(ErrUnmaterialized, "voxel %v resolved to slot %d", v, slot)
	}
	m.Store.Clear(slot)

	mask := m.ConfigurationMask(v)
	if mask == 0 || mask == 0xFF {
		return nil
	}
	edges := EdgeTable[mask]
	if edges == 0 {
		return nil
	}
	pos, ok := m.vertexPosition(v, edges)
	if !ok {
		return nil
	}
	m.Store.SetVertex(slot, pos, density.Gradient(m.Field, pos.Add(m.Origin)))
	return nil
}

// Triangles writes all six candidate triangles of voxel v. A triangle is real
// only when its three corner voxels lie in the chunk and all hold vertices;
// otherwise the entry is the zero sentinel. Must run after Vertex has run for
// every voxel.
func (m *Mesher) Triangles(v grid.Coord) error {
	slot, err := m.Store.IndexOf(v)
	if err != nil {
		return err
	}
	if !m.Store.HasVertex(slot) {
		return nil
	}
	mask := m.ConfigurationMask(v)
	edges := EdgeTable[mask]
	flip := mask&(1<<farCorner) != 0
	n := m.VoxelsPerAxis()

	for i, e := range ForwardEdges {
		for k := range 2 {
			var tri octree.Triangle
			if edges&(1<<e) != 0 {
				tri = m.localTriangle(v, TriangleDirections[i][k*3:k*3+3], n, flip)
			}
			m.Store.SetTriangle(slot, i*2+k, tri)
		}
	}
	return nil
}

func (m *Mesher) localTriangle(v grid.Coord, dirs []grid.Coord, n int, flip bool) octree.Triangle {
	var tri octree.Triangle
	for j, d := range dirs {
		c := v.Add(d)
		if !grid.InBounds(c, n) {
			return octree.Triangle{}
		}
		slot, err := m.Store.IndexOf(c)
		if err != nil || !m.Store.HasVertex(slot) {
			return octree.Triangle{}
		}
		tri[j] = slot
	}
	if flip {
		tri[1], tri[2] = tri[2], tri[1]
	}
	return tri
}

// Run meshes the chunk on the calling goroutine.
func (m *Mesher) Run() error {
	defer profiling.Track("meshing.Run")()
	if err := m.Store.Materialize(); err != nil {
		return err
	}
	n := m.Store.VoxelCount()
	side := m.VoxelsPerAxis()
	for i := range n {
		if err := m.Vertex(grid.Unflatten(i, side)); err != nil {
			return err
		}
	}
	for i := range n {
		if err := m.Triangles(grid.Unflatten(i, side)); err != nil {
			return err
		}
	}
	return nil
}

// Schedule meshes the chunk on pool once after completes: a serial
// materialize pass, then all vertices in parallel, then all triangles in
// parallel. The returned handle completes when the triangles are written.
func (m *Mesher) Schedule(pool *jobs.Pool, after *jobs.Handle, batchSize int) *jobs.Handle {
	n := m.Store.VoxelCount()
	side := m.VoxelsPerAxis()
	materialized := pool.Go(after, func() error {
		defer profiling.Track("meshing.Materialize")()
		return m.Store.Materialize()
	})
	vertices := pool.Schedule(materialized, n, batchSize, func(i int) error {
		return m.Vertex(grid.Unflatten(i, side))
	})
	return pool.Schedule(vertices, n, batchSize, func(i int) error {
		return m.Triangles(grid.Unflatten(i, side))
	})
}
