package octree

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
)

// TrianglesPerSlot is the number of candidate triangles a voxel can own: two
// per forward edge.
const TrianglesPerSlot = 6

// Triangle holds three slot indices. The zero Triangle means "no triangle";
// real triangles only reference leaf slots, which are never slot 0.
type Triangle [3]int

// IsZero reports whether t is the absent-triangle sentinel.
func (t Triangle) IsZero() bool {
	return t == Triangle{}
}

// Store is the sparse vertex store of one chunk.
//
// Claims are serial. After Materialize, distinct goroutines may write
// distinct slots concurrently; a slot has exactly one writer per phase.
type Store struct {
	side   int
	depth  int
	offset int

	positions []mgl32.Vec3
	normals   []mgl32.Vec3
	occupied  []bool
	triangles []Triangle

	owners    []int32 // flat voxel index per leaf, -1 if unclaimed
	lastClaim int
}

// NewStore allocates a store for a cube of side voxels.
func NewStore(side int) (*Store, error) {
	if side < 2 || !IsPowerOfTwo(side) {
		return nil, errors.Wrapf(ErrInvalidSide, "got %d", side)
	}
	n := side * side * side
	length := Length(n)
	s := &Store{
		side:      side,
		depth:     Depth(side),
		offset:    LeafOffset(n),
		positions: make([]mgl32.Vec3, length),
		normals:   make([]mgl32.Vec3, length),
		occupied:  make([]bool, length),
		triangles: make([]Triangle, length*TrianglesPerSlot),
		owners:    make([]int32, CeilPow8(n)),
	}
	s.Reset()
	return s, nil
}

// Reset returns every slot to Unwritten and forgets all claims.
func (s *Store) Reset() {
	for i := range s.positions {
		s.positions[i] = Unwritten
	}
	clear(s.normals)
	clear(s.occupied)
	clear(s.triangles)
	for i := range s.owners {
		s.owners[i] = -1
	}
	s.lastClaim = -1
}

// Side returns the number of voxels per axis.
func (s *Store) Side() int { return s.side }

// VoxelCount returns side³.
func (s *Store) VoxelCount() int { return s.side * s.side * s.side }

// Len returns the number of slots.
func (s *Store) Len() int { return len(s.positions) }

// LeafOffset returns the first leaf slot.
func (s *Store) LeafOffset() int { return s.offset }

// IsLeaf reports whether slot is in the leaf range.
func (s *Store) IsLeaf(slot int) bool {
	return slot >= s.offset && slot < len(s.positions)
}

// HasVertex reports whether slot is a leaf holding a vertex.
func (s *Store) HasVertex(slot int) bool {
	return s.IsLeaf(slot) && s.occupied[slot]
}

// Occupied reports the occupancy flag of slot.
func (s *Store) Occupied(slot int) bool { return s.occupied[slot] }

// Position returns the stored position of slot in chunk-local coordinates.
func (s *Store) Position(slot int) mgl32.Vec3 { return s.positions[slot] }

// Normal returns the stored normal of slot.
func (s *Store) Normal(slot int) mgl32.Vec3 { return s.normals[slot] }

// SetVertex stores a vertex and marks slot occupied.
func (s *Store) SetVertex(slot int, pos, normal mgl32.Vec3) {
	s.positions[slot] = pos
	s.normals[slot] = normal
	s.occupied[slot] = true
}

// Clear marks slot unoccupied and resets its position to Unwritten, which
// also hides it from later lookups.
func (s *Store) Clear(slot int) {
	s.occupied[slot] = false
	s.positions[slot] = Unwritten
}

// SetTriangle writes candidate triangle k of slot.
func (s *Store) SetTriangle(slot, k int, t Triangle) {
	s.triangles[slot*TrianglesPerSlot+k] = t
}

// Triangle returns candidate triangle k of slot.
func (s *Store) Triangle(slot, k int) Triangle {
	return s.triangles[slot*TrianglesPerSlot+k]
}
