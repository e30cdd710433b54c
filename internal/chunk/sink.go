package chunk

import (
	"slices"
	"sync"

	"surfacenets/internal/grid"
	"surfacenets/internal/meshing"
)

// MeshSet is a Consumer that keeps the latest mesh per chunk coordinate.
type MeshSet struct {
	mu        sync.RWMutex
	meshes    map[grid.Coord]*meshing.Mesh
	published int
}

func NewMeshSet() *MeshSet {
	return &MeshSet{meshes: make(map[grid.Coord]*meshing.Mesh)}
}

func (s *MeshSet) Publish(m *meshing.Mesh) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.meshes[m.Coord] = m
	s.published++
}

// Get returns the latest mesh for coord, or nil.
func (s *MeshSet) Get(coord grid.Coord) *meshing.Mesh {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.meshes[coord]
}

// Meshes returns the latest meshes ordered by coordinate. Empty meshes are
// skipped.
func (s *MeshSet) Meshes() []*meshing.Mesh {
	s.mu.RLock()
	out := make([]*meshing.Mesh, 0, len(s.meshes))
	for _, m := range s.meshes {
		if m.TriangleCount() > 0 {
			out = append(out, m)
		}
	}
	s.mu.RUnlock()
	slices.SortFunc(out, func(a, b *meshing.Mesh) int { return CompareCoords(a.Coord, b.Coord) })
	return out
}

// Published returns the number of Publish calls so far.
func (s *MeshSet) Published() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.published
}
