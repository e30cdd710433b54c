package grid

import (
	"surfacenets/internal/density"
	"surfacenets/internal/jobs"
	"surfacenets/internal/profiling"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// SampleGrid holds density minus surface level at every lattice point of a
// chunk, (chunkSize+1)³ values indexed by Flatten. It is written once by
// Sample and read-only afterwards.
type SampleGrid struct {
	PointsPerAxis int
	Values        []float32
}

// NewSampleGrid allocates an unsampled grid.
func NewSampleGrid(pointsPerAxis int) *SampleGrid {
	return &SampleGrid{
		PointsPerAxis: pointsPerAxis,
		Values:        make([]float32, pointsPerAxis*pointsPerAxis*pointsPerAxis),
	}
}

// At returns the sample at local point c.
func (g *SampleGrid) At(c Coord) float32 {
	return g.Values[Flatten(c, g.PointsPerAxis)]
}

// Max returns the largest sample.
func (g *SampleGrid) Max() float32 {
	m := float32(-math32.MaxFloat32)
	for _, v := range g.Values {
		if v > m {
			m = v
		}
	}
	return m
}

// Min returns the smallest sample.
func (g *SampleGrid) Min() float32 {
	m := float32(math32.MaxFloat32)
	for _, v := range g.Values {
		if v < m {
			m = v
		}
	}
	return m
}

// FullyInside reports whether every sample is inside the surface.
func (g *SampleGrid) FullyInside() bool {
	return g.Max() < 0
}

// FullyOutside reports whether no sample is inside the surface.
func (g *SampleGrid) FullyOutside() bool {
	return g.Min() >= 0
}

// HasCrossing reports whether the surface passes through the chunk. A grid
// without a crossing produces no geometry and is never meshed.
func (g *SampleGrid) HasCrossing() bool {
	return !g.FullyInside() && !g.FullyOutside()
}

// Origin returns the world position of local point (0,0,0) of chunk.
func Origin(chunk Coord, chunkSize int) mgl32.Vec3 {
	o := chunk.Scale(chunkSize)
	return mgl32.Vec3{float32(o.X), float32(o.Y), float32(o.Z)}
}

// PointPosition converts a local lattice point to a float vector.
func PointPosition(c Coord) mgl32.Vec3 {
	return mgl32.Vec3{float32(c.X), float32(c.Y), float32(c.Z)}
}

// Sample schedules evaluation of field over the lattice of chunk on pool.
// Points are independent; the returned handle is the barrier that must
// complete before the grid is read.
func Sample(pool *jobs.Pool, after *jobs.Handle, field density.Field, chunk Coord, pointsPerAxis int, surfaceLevel float32, batchSize int) (*SampleGrid, *jobs.Handle) {
	g := NewSampleGrid(pointsPerAxis)
	origin := Origin(chunk, pointsPerAxis-1)
	h := pool.Schedule(after, len(g.Values), batchSize, func(i int) error {
		g.Values[i] = samplePoint(field, origin, i, pointsPerAxis, surfaceLevel)
		return nil
	})
	return g, h
}

// SampleSync fills a grid on the calling goroutine.
func SampleSync(field density.Field, chunk Coord, pointsPerAxis int, surfaceLevel float32) *SampleGrid {
	defer profiling.Track("grid.SampleSync")()
	g := NewSampleGrid(pointsPerAxis)
	origin := Origin(chunk, pointsPerAxis-1)
	for i := range g.Values {
		g.Values[i] = samplePoint(field, origin, i, pointsPerAxis, surfaceLevel)
	}
	return g
}

func samplePoint(field density.Field, origin mgl32.Vec3, i, pointsPerAxis int, surfaceLevel float32) float32 {
	p := origin.Add(PointPosition(Unflatten(i, pointsPerAxis)))
	return field.Density(p) - surfaceLevel
}
