package chunk

import (
	"github.com/go-gl/mathgl/mgl32"

	"surfacenets/internal/grid"
)

// Segment is a line between two world positions.
type Segment [2]mgl32.Vec3

// cubeEdges joins the corners of a unit cube, corner i having x, y and z
// taken from bits 0, 1 and 2 of i.
var cubeEdges = [12][2]int{
	{0, 1}, {2, 3}, {4, 5}, {6, 7}, // along x
	{0, 2}, {1, 3}, {4, 6}, {5, 7}, // along y
	{0, 4}, {1, 5}, {2, 6}, {3, 7}, // along z
}

// Bounds returns the 12 wire-cube edges around chunk coord of the given
// size, for debug drawing.
func Bounds(coord grid.Coord, size int) [12]Segment {
	lo := grid.Origin(coord, size)
	s := float32(size)
	var corners [8]mgl32.Vec3
	for i := range corners {
		corners[i] = lo.Add(mgl32.Vec3{
			s * float32(i&1),
			s * float32(i>>1&1),
			s * float32(i>>2&1),
		})
	}
	var out [12]Segment
	for i, e := range cubeEdges {
		out[i] = Segment{corners[e[0]], corners[e[1]]}
	}
	return out
}

// Bounds returns the chunk's wire cube.
func (c *Chunk) Bounds() [12]Segment {
	return Bounds(c.coord, c.size)
}
