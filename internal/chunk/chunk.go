// Package chunk drives sampling, meshing and seam stitching of chunks. A
// Chunk is a state machine that an external loop ticks through Update; all
// heavy work runs on a jobs.Pool and is only polled from the driver.
package chunk

import (
	"log"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"surfacenets/internal/config"
	"surfacenets/internal/density"
	"surfacenets/internal/grid"
	"surfacenets/internal/jobs"
	"surfacenets/internal/meshing"
	"surfacenets/internal/octree"
)

// ErrInvalidSize is returned by Initialize for a size that is not a power of
// two of at least 2.
var ErrInvalidSize = errors.New("chunk: size must be a power of two >= 2")

// ErrNotReady is returned when an operation needs a meshed chunk.
var ErrNotReady = errors.New("chunk: not ready")

type State int

const (
	Idle State = iota
	Sampling
	Meshing
	Ready
	Empty
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Sampling:
		return "sampling"
	case Meshing:
		return "meshing"
	case Ready:
		return "ready"
	case Empty:
		return "empty"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// Terminal reports whether no more work is scheduled in state s.
func (s State) Terminal() bool {
	return s == Ready || s == Empty || s == Failed
}

// Consumer receives published meshes. Publish is called on the driver
// goroutine; a later mesh for the same coordinate replaces earlier ones.
type Consumer interface {
	Publish(m *meshing.Mesh)
}

// Chunk owns the sample grid, vertex store and mesh of one cube of the
// world. It is not safe for concurrent use; only the driver calls it.
type Chunk struct {
	coord     grid.Coord
	field     density.Field
	pool      *jobs.Pool
	consumer  Consumer
	batchSize int

	size       int
	level      float32
	state      State
	generation uuid.UUID
	err        error

	grid   *grid.SampleGrid
	store  *octree.Store
	mesher *meshing.Mesher
	mesh   *meshing.Mesh

	sampling *jobs.Handle
	meshing  *jobs.Handle
}

// New returns an Idle chunk at chunk coordinate coord. consumer may be nil.
func New(coord grid.Coord, field density.Field, pool *jobs.Pool, consumer Consumer, batchSize int) *Chunk {
	return &Chunk{
		coord:     coord,
		field:     field,
		pool:      pool,
		consumer:  consumer,
		batchSize: batchSize,
	}
}

// Initialize (re)starts the chunk with the given size and surface level:
// outstanding tasks are joined, buffers are reallocated, a new generation
// begins and sampling is scheduled. An invalid size leaves the chunk
// untouched.
func (c *Chunk) Initialize(size int, surfaceLevel float32) error {
	if !config.ValidChunkSize(size) {
		return errors.Wrapf(ErrInvalidSize, "chunk %v: got %d", c.coord, size)
	}
	c.join()

	if c.store == nil || c.size != size {
		store, err := octree.NewStore(size)
		if err != nil {
			return err
		}
		c.store = store
	} else {
		c.store.Reset()
	}
	c.size = size
	c.level = surfaceLevel
	c.generation = uuid.New()
	c.err = nil
	c.mesher = nil
	c.mesh = nil
	c.meshing = nil

	c.grid, c.sampling = grid.Sample(c.pool, nil, c.field, c.coord, size+1, surfaceLevel, c.batchSize)
	c.state = Sampling
	return nil
}

// Update polls the chunk's outstanding work and performs at most one state
// transition. It never blocks.
func (c *Chunk) Update() State {
	switch c.state {
	case Sampling:
		if !c.sampling.IsCompleted() {
			break
		}
		if err := c.sampling.Err(); err != nil {
			c.fail(errors.Wrap(err, "sampling"))
			break
		}
		if !c.grid.HasCrossing() {
			c.state = Empty
			c.publish(c.emptyMesh())
			break
		}
		m, err := meshing.NewMesher(c.grid, c.store, c.field, c.Origin(), c.level)
		if err != nil {
			c.fail(err)
			break
		}
		c.mesher = m
		c.meshing = m.Schedule(c.pool, nil, c.batchSize)
		c.state = Meshing
	case Meshing:
		if !c.meshing.IsCompleted() {
			break
		}
		if err := c.meshing.Err(); err != nil {
			c.fail(errors.Wrap(err, "meshing"))
			break
		}
		c.state = Ready
		c.publish(meshing.Assemble(c.mesher, nil))
	}
	return c.state
}

// Stitch rebuilds the chunk's mesh including the triangles that cross into
// the given neighbors and republishes it. It returns the number of boundary
// triangles still waiting for a missing neighbor.
func (c *Chunk) Stitch(neighbors meshing.Neighbors) (int, error) {
	if c.state != Ready {
		return 0, errors.Wrapf(ErrNotReady, "chunk %v is %v", c.coord, c.state)
	}
	seams, err := meshing.Stitch(c.mesher, neighbors)
	if err != nil {
		return 0, errors.Wrapf(err, "chunk %v", c.coord)
	}
	c.publish(meshing.Assemble(c.mesher, seams))
	return seams.Pending, nil
}

// Close joins outstanding tasks and releases the chunk's buffers.
func (c *Chunk) Close() {
	c.join()
	c.grid = nil
	c.store = nil
	c.mesher = nil
	c.mesh = nil
	c.state = Idle
}

func (c *Chunk) join() {
	for _, h := range []*jobs.Handle{c.sampling, c.meshing} {
		if h != nil {
			_ = h.Wait()
		}
	}
	c.sampling, c.meshing = nil, nil
}

func (c *Chunk) fail(err error) {
	c.err = err
	c.state = Failed
	log.Printf("chunk %v: failed: %v", c.coord, err)
}

func (c *Chunk) emptyMesh() *meshing.Mesh {
	return &meshing.Mesh{Origin: c.Origin()}
}

func (c *Chunk) publish(m *meshing.Mesh) {
	m.Coord = c.coord
	m.Generation = c.generation
	c.mesh = m
	if c.consumer != nil {
		c.consumer.Publish(m)
	}
}

// Neighbor returns a read-only view of the chunk for seam stitching, or nil
// while the chunk is still being built or has failed. An Empty chunk is a
// valid neighbor without vertices.
func (c *Chunk) Neighbor() *meshing.Neighbor {
	if c.state != Ready && c.state != Empty {
		return nil
	}
	return &meshing.Neighbor{Store: c.store, Origin: c.Origin()}
}

func (c *Chunk) Coord() grid.Coord { return c.coord }

func (c *Chunk) State() State { return c.state }

func (c *Chunk) Size() int { return c.size }

// Err returns the error that moved the chunk to Failed.
func (c *Chunk) Err() error { return c.err }

// Generation identifies the current Initialize call.
func (c *Chunk) Generation() uuid.UUID { return c.generation }

// Mesh returns the last published mesh, or nil.
func (c *Chunk) Mesh() *meshing.Mesh { return c.mesh }

// Grid returns the sample grid. It must not be read before sampling is done.
func (c *Chunk) Grid() *grid.SampleGrid { return c.grid }

// Origin returns the world position of the chunk's lowest lattice point.
func (c *Chunk) Origin() mgl32.Vec3 {
	return grid.Origin(c.coord, c.size)
}
