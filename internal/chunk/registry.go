package chunk

import (
	"slices"
	"sync"

	"surfacenets/internal/grid"
)

// Registry stores chunks by chunk coordinate.
type Registry struct {
	chunks map[grid.Coord]*Chunk
	mu     sync.RWMutex
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{chunks: make(map[grid.Coord]*Chunk)}
}

// Get returns the chunk at coord, or nil.
func (r *Registry) Get(coord grid.Coord) *Chunk {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.chunks[coord]
}

// Has reports whether a chunk exists at coord.
func (r *Registry) Has(coord grid.Coord) bool {
	return r.Get(coord) != nil
}

// Add stores c, replacing any chunk at the same coordinate. The replaced
// chunk is returned so the caller can close it.
func (r *Registry) Add(c *Chunk) *Chunk {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev := r.chunks[c.Coord()]
	r.chunks[c.Coord()] = c
	return prev
}

// Remove deletes and returns the chunk at coord, or nil.
func (r *Registry) Remove(coord grid.Coord) *Chunk {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.chunks[coord]
	if !ok {
		return nil
	}
	delete(r.chunks, coord)
	return c
}

// Len returns the number of chunks.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.chunks)
}

// All returns every chunk ordered by coordinate (x, then y, then z).
func (r *Registry) All() []*Chunk {
	r.mu.RLock()
	out := make([]*Chunk, 0, len(r.chunks))
	for _, c := range r.chunks {
		out = append(out, c)
	}
	r.mu.RUnlock()
	slices.SortFunc(out, func(a, b *Chunk) int { return CompareCoords(a.Coord(), b.Coord()) })
	return out
}

// CompareCoords orders coordinates x-major, then y, then z.
func CompareCoords(a, b grid.Coord) int {
	for i := range 3 {
		if d := a.Axis(i) - b.Axis(i); d != 0 {
			return d
		}
	}
	return 0
}
