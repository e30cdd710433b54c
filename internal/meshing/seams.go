package meshing

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"

	"surfacenets/internal/grid"
	"surfacenets/internal/octree"
	"surfacenets/internal/profiling"
)

// Direction bits of a positive neighbor chunk.
const (
	DirX = 1 << iota
	DirY
	DirZ
)

// NeighborDirections lists the seven positive neighbor directions: the
// three faces first, then the edge and corner diagonals.
var NeighborDirections = [7]int{DirX, DirY, DirZ, DirX | DirY, DirX | DirZ, DirY | DirZ, DirX | DirY | DirZ}

// DirectionOffset converts a direction mask to a chunk coordinate offset.
func DirectionOffset(dir int) grid.Coord {
	return grid.Coord{X: dir & DirX, Y: (dir & DirY) >> 1, Z: (dir & DirZ) >> 2}
}

// Neighbor is a read-only view of a finished neighbor chunk.
type Neighbor struct {
	Store  *octree.Store
	Origin mgl32.Vec3
}

// Neighbors is indexed by direction mask; index 0 is unused. A nil entry
// means the neighbor is not available (yet).
type Neighbors [8]*Neighbor

// Seams holds the geometry that crosses a chunk's positive boundary.
//
// Triangle corners below the chunk's voxel count index the chunk's own leaf
// range; larger values index Vertices, offset by the voxel count.
type Seams struct {
	Vertices  []mgl32.Vec3 // world space, copied from neighbors
	Normals   []mgl32.Vec3
	Triangles [][3]uint32
	// Pending counts triangles dropped because a neighbor was unavailable.
	Pending int
}

type seamKey struct {
	dir, slot int
}

type stitcher struct {
	m         *Mesher
	neighbors *Neighbors
	seams     *Seams
	base      int
	seen      map[seamKey]uint32
}

// Stitch rebuilds the triangles of m's chunk that cross its positive
// boundary, taking out-of-chunk corners from the neighbor stores so both
// chunks share the exact same vertex. Neighbor stores are only read.
func Stitch(m *Mesher, neighbors Neighbors) (*Seams, error) {
	defer profiling.Track("meshing.Stitch")()
	for dir, nb := range neighbors {
		if nb != nil && nb.Store.Side() != m.Store.Side() {
			return nil, errors.Errorf("meshing: neighbor %v has %d voxels per axis, want %d",
				DirectionOffset(dir), nb.Store.Side(), m.Store.Side())
		}
	}
	st := &stitcher{
		m:         m,
		neighbors: &neighbors,
		seams:     &Seams{},
		base:      m.Store.VoxelCount(),
		seen:      make(map[seamKey]uint32),
	}

	n := m.VoxelsPerAxis()
	for x := range n {
		for y := range n {
			for z := range n {
				if x != n-1 && y != n-1 && z != n-1 {
					continue
				}
				if err := st.voxel(grid.Coord{X: x, Y: y, Z: z}); err != nil {
					return nil, err
				}
			}
		}
	}
	return st.seams, nil
}

func (st *stitcher) voxel(v grid.Coord) error {
	m := st.m
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
		if edges&(1<<e) == 0 {
			continue
		}
		for k := range 2 {
			dirs := TriangleDirections[i][k*3 : k*3+3]
			if !crossesBoundary(v, dirs, n) {
				continue
			}
			tri, ok := st.triangle(v, dirs, n)
			if !ok {
				continue
			}
			if flip {
				tri[1], tri[2] = tri[2], tri[1]
			}
			st.seams.Triangles = append(st.seams.Triangles, tri)
		}
	}
	return nil
}

func crossesBoundary(v grid.Coord, dirs []grid.Coord, n int) bool {
	for _, d := range dirs {
		if !grid.InBounds(v.Add(d), n) {
			return true
		}
	}
	return false
}

// corner is a resolved triangle corner: a local index, or a neighbor slot
// that becomes a seam vertex once the whole triangle resolves.
type corner struct {
	local uint32
	nb    *Neighbor
	dir   int
	slot  int
}

// triangle resolves the three corners of a boundary triangle to mesh indices.
func (st *stitcher) triangle(v grid.Coord, dirs []grid.Coord, n int) ([3]uint32, bool) {
	var corners [3]corner
	for j, d := range dirs {
		c := v.Add(d)
		if grid.InBounds(c, n) {
			slot, err := st.m.Store.IndexOf(c)
			if err != nil || !st.m.Store.HasVertex(slot) {
				return [3]uint32{}, false
			}
			corners[j] = corner{local: uint32(slot - st.m.Store.LeafOffset())}
			continue
		}

		dir := 0
		if c.X >= n {
			dir |= DirX
			c.X -= n
		}
		if c.Y >= n {
			dir |= DirY
			c.Y -= n
		}
		if c.Z >= n {
			dir |= DirZ
			c.Z -= n
		}
		nb := st.neighbors[dir]
		if nb == nil {
			st.seams.Pending++
			return [3]uint32{}, false
		}
		slot, err := nb.Store.IndexOf(c)
		if err != nil || !nb.Store.HasVertex(slot) {
			return [3]uint32{}, false
		}
		corners[j] = corner{nb: nb, dir: dir, slot: slot}
	}

	var tri [3]uint32
	for j, c := range corners {
		if c.nb == nil {
			tri[j] = c.local
		} else {
			tri[j] = st.seamVertex(c.dir, c.slot, c.nb)
		}
	}
	return tri, true
}

func (st *stitcher) seamVertex(dir, slot int, nb *Neighbor) uint32 {
	key := seamKey{dir, slot}
	if idx, ok := st.seen[key]; ok {
		return idx
	}
	idx := uint32(st.base + len(st.seams.Vertices))
	st.seams.Vertices = append(st.seams.Vertices, nb.Store.Position(slot).Add(nb.Origin))
	st.seams.Normals = append(st.seams.Normals, nb.Store.Normal(slot))
	st.seen[key] = idx
	return idx
}
