package chunk

import (
	"log"

	"github.com/pkg/errors"

	"surfacenets/internal/config"
	"surfacenets/internal/density"
	"surfacenets/internal/grid"
	"surfacenets/internal/jobs"
	"surfacenets/internal/meshing"
	"surfacenets/internal/profiling"
)

// Manager owns a lattice of chunks around the origin and ticks them. It
// replaces any process-wide coordinator: everything it needs is passed in.
type Manager struct {
	settings config.Settings
	field    density.Field
	pool     *jobs.Pool
	registry *Registry

	order    []grid.Coord
	done     int
	expected map[grid.Coord]uint8 // neighbor direction bits inside the lattice
	stitched map[grid.Coord]uint8 // neighbor direction bits already stitched
	pending  map[grid.Coord]int
}

// NewManager validates settings, creates every chunk within the view
// distance and starts sampling them.
func NewManager(settings config.Settings, field density.Field, pool *jobs.Pool, consumer Consumer) (*Manager, error) {
	if !config.ValidChunkSize(settings.ChunkSize) {
		return nil, errors.Wrapf(config.ErrChunkSize, "got %d", settings.ChunkSize)
	}
	if field == nil {
		return nil, errors.New("chunk: nil density field")
	}
	m := &Manager{
		settings: settings,
		field:    field,
		pool:     pool,
		registry: NewRegistry(),
	}

	vd := settings.ViewDistance
	for x := -vd[0]; x <= vd[0]; x++ {
		for y := -vd[1]; y <= vd[1]; y++ {
			for z := -vd[2]; z <= vd[2]; z++ {
				coord := grid.Coord{X: x, Y: y, Z: z}
				m.registry.Add(New(coord, field, pool, consumer, settings.BatchSize))
				m.order = append(m.order, coord)
			}
		}
	}
	if err := m.Reinitialize(settings.ChunkSize, settings.SurfaceLevel); err != nil {
		m.Close()
		return nil, err
	}
	log.Printf("chunk: manager started %d chunks of %d^3 voxels", len(m.order), settings.ChunkSize)
	return m, nil
}

// Reinitialize restarts every chunk with a new size and surface level.
func (m *Manager) Reinitialize(size int, surfaceLevel float32) error {
	m.done = 0
	m.expected = make(map[grid.Coord]uint8, len(m.order))
	m.stitched = make(map[grid.Coord]uint8, len(m.order))
	m.pending = make(map[grid.Coord]int, len(m.order))
	for _, coord := range m.order {
		if err := m.registry.Get(coord).Initialize(size, surfaceLevel); err != nil {
			return err
		}
		m.expected[coord] = m.neighborBits(coord)
	}
	m.settings.ChunkSize = size
	m.settings.SurfaceLevel = surfaceLevel
	return nil
}

func (m *Manager) neighborBits(coord grid.Coord) uint8 {
	var bits uint8
	for _, dir := range meshing.NeighborDirections {
		if m.registry.Has(coord.Add(meshing.DirectionOffset(dir))) {
			bits |= 1 << dir
		}
	}
	return bits
}

// Tick updates every chunk once, in a fixed order, then stitches ready
// chunks whose neighbors have become available since the last tick.
func (m *Manager) Tick() {
	defer profiling.Track("chunk.Manager.Tick")()
	for _, coord := range m.order {
		c := m.registry.Get(coord)
		before := c.State()
		after := c.Update()
		if !before.Terminal() && after.Terminal() {
			m.chunkDone(c)
		}
	}
	m.stitchAvailable()
}

func (m *Manager) chunkDone(c *Chunk) {
	m.done++
	if c.State() == Ready {
		log.Printf("chunk %v: ready, %d triangles", c.Coord(), c.Mesh().TriangleCount())
	}
}

func (m *Manager) stitchAvailable() {
	for _, coord := range m.order {
		c := m.registry.Get(coord)
		if c.State() != Ready {
			continue
		}
		var (
			available uint8
			neighbors meshing.Neighbors
		)
		for _, dir := range meshing.NeighborDirections {
			nb := m.registry.Get(coord.Add(meshing.DirectionOffset(dir)))
			if nb == nil || !nb.State().Terminal() {
				continue
			}
			available |= 1 << dir
			neighbors[dir] = nb.Neighbor()
		}
		// A chunk without lattice neighbors is stitched once so its
		// boundary triangles are counted as pending.
		_, seen := m.pending[coord]
		if available&^m.stitched[coord] == 0 && (seen || m.expected[coord] != 0) {
			continue
		}
		pending, err := c.Stitch(neighbors)
		if err != nil {
			log.Printf("chunk %v: stitch: %v", coord, err)
		}
		m.stitched[coord] = available
		m.pending[coord] = pending
	}
}

// Done reports whether every chunk has finished and every ready chunk has
// been stitched against all of its neighbors in the lattice.
func (m *Manager) Done() bool {
	if m.done < len(m.order) {
		return false
	}
	for _, coord := range m.order {
		if m.registry.Get(coord).State() != Ready {
			continue
		}
		if m.stitched[coord] != m.expected[coord] {
			return false
		}
	}
	return true
}

// ChunksDone returns the number of chunks that reached a terminal state in
// the current generation.
func (m *Manager) ChunksDone() int { return m.done }

// Len returns the number of chunks.
func (m *Manager) Len() int { return len(m.order) }

// Pending returns the number of seam triangles that could not be built
// because the neighbor they face failed or lies outside the view-distance
// lattice.
func (m *Manager) Pending() int {
	total := 0
	for _, n := range m.pending {
		total += n
	}
	return total
}

// Chunk returns the chunk at coord, or nil.
func (m *Manager) Chunk(coord grid.Coord) *Chunk { return m.registry.Get(coord) }

// Chunks returns all chunks in tick order.
func (m *Manager) Chunks() []*Chunk { return m.registry.All() }

// Settings returns the settings in effect.
func (m *Manager) Settings() config.Settings { return m.settings }

// Close joins all outstanding work and releases every chunk.
func (m *Manager) Close() {
	for _, coord := range m.order {
		if c := m.registry.Remove(coord); c != nil {
			c.Close()
		}
	}
	m.order = nil
}
