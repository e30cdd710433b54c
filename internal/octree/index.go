// Package octree implements the sparse, implicitly addressed slot store that
// holds one vertex per voxel of a chunk.
//
// Slots form a complete octree laid out breadth first in a flat array: slot 0
// is the root and the children of slot p are p*8+1 .. p*8+8. Voxel vertices
// live in the leaf level, which starts at LeafOffset. Whether a path through
// the tree exists is recorded in the store itself: a slot whose position is
// the Unwritten sentinel stops every lookup that would descend into it.
package octree

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"

	"surfacenets/internal/grid"
)

var (
	// ErrOutOfRange is returned for a voxel coordinate outside [0,side)³.
	ErrOutOfRange = errors.New("octree: coordinate out of range")
	// ErrOutOfOrder is returned when voxels are claimed out of ascending
	// flat-index order.
	ErrOutOfOrder = errors.New("octree: claim out of canonical order")
	// ErrSlotCollision is returned when a claim would land on a slot that
	// already belongs to another coordinate or is not a leaf.
	ErrSlotCollision = errors.New("octree: slot collision")
	// ErrInvalidSide is returned for a side length that is not a power of two
	// of at least 2.
	ErrInvalidSide = errors.New("octree: side must be a power of two >= 2")
)

// Unwritten marks a slot that no writer has reached.
var Unwritten = mgl32.Vec3{math32.MaxFloat32, math32.MaxFloat32, math32.MaxFloat32}

// vacant marks a materialized slot that holds no vertex (yet).
var vacant = mgl32.Vec3{}

// CeilPow8 returns the smallest power of eight >= n (1 for n <= 1).
func CeilPow8(n int) int {
	p := 1
	for p < n {
		p <<= 3
	}
	return p
}

// Length returns the number of slots needed for n voxels: every node of a
// complete octree with CeilPow8(n) leaves.
func Length(n int) int {
	return ((CeilPow8(n) << 3) - 1) / 7
}

// LeafOffset returns the index of the first leaf slot for n voxels.
func LeafOffset(n int) int {
	return (CeilPow8(n) - 1) / 7
}

// Depth returns the level bound ceil(log2(side³)/3) + 1 for a cube of side
// voxels.
func Depth(side int) int {
	n := side * side * side
	levels := 0
	for v := 1; v < n; v <<= 3 {
		levels++
	}
	return levels + 1
}

// IsPowerOfTwo reports whether n is a positive power of two.
func IsPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}

// walk descends from the root towards c. When materialize is set, every
// Unwritten slot on the way is turned vacant so the descent always reaches
// the leaf level.
func (s *Store) walk(c grid.Coord, materialize bool) int {
	center := [3]int{s.side / 2, s.side / 2, s.side / 2}
	p := [3]int{c.X, c.Y, c.Z}
	index := 0
	for level := 0; level+1 < s.depth; level++ {
		shift := s.side >> (level + 2)
		code := 0
		for axis := range 3 {
			if p[axis] >= center[axis] {
				center[axis] += shift
				code |= 1 << axis
			} else {
				center[axis] -= shift
			}
		}
		child := index*8 + 1 + code
		if child >= len(s.positions) {
			break
		}
		if s.positions[child] == Unwritten {
			if !materialize {
				break
			}
			s.positions[child] = vacant
		}
		index = child
	}
	return index
}

// IndexOf resolves voxel c to a slot. The descent stops at the deepest slot
// on c's path whose child is missing or Unwritten, so for a voxel whose leaf
// was cleared the result is an interior ancestor (see IsLeaf).
func (s *Store) IndexOf(c grid.Coord) (int, error) {
	if !grid.InBounds(c, s.side) {
		return 0, errors.Wrapf(ErrOutOfRange, "%v not in [0,%d)", c, s.side)
	}
	return s.walk(c, false), nil
}

// Claim materializes the slot path for c and assigns c its leaf. Claims must
// be made from a single goroutine in strictly ascending flat-index order
// (x-major, then y, then z); any other order is rejected rather than risk
// routing a new coordinate onto a slot that belongs to another.
func (s *Store) Claim(c grid.Coord) (int, error) {
	if !grid.InBounds(c, s.side) {
		return 0, errors.Wrapf(ErrOutOfRange, "%v not in [0,%d)", c, s.side)
	}
	flat := grid.Flatten(c, s.side)
	if flat <= s.lastClaim {
		return 0, errors.Wrapf(ErrOutOfOrder, "%v (index %d) after index %d", c, flat, s.lastClaim)
	}
	slot := s.walk(c, true)
	if !s.IsLeaf(slot) {
		return 0, errors.Wrapf(ErrSlotCollision, "%v resolved to interior slot %d", c, slot)
	}
	if owner := s.owners[slot-s.offset]; owner >= 0 {
		return 0, errors.Wrapf(ErrSlotCollision, "%v resolved to slot %d owned by %v",
			c, slot, grid.Unflatten(int(owner), s.side))
	}
	s.owners[slot-s.offset] = int32(flat)
	s.lastClaim = flat
	return slot, nil
}

// Materialize claims every voxel in canonical order. After it returns nil,
// IndexOf maps the voxels one to one onto the leaf range.
func (s *Store) Materialize() error {
	n := s.VoxelCount()
	for i := s.lastClaim + 1; i < n; i++ {
		if _, err := s.Claim(grid.Unflatten(i, s.side)); err != nil {
			return err
		}
	}
	return nil
}
