package grid

import "fmt"

// Coord is an integer lattice coordinate: a sample point, a voxel or a chunk.
type Coord struct {
	X, Y, Z int
}

func (c Coord) Add(o Coord) Coord {
	return Coord{c.X + o.X, c.Y + o.Y, c.Z + o.Z}
}

func (c Coord) Sub(o Coord) Coord {
	return Coord{c.X - o.X, c.Y - o.Y, c.Z - o.Z}
}

// Scale multiplies every component by s.
func (c Coord) Scale(s int) Coord {
	return Coord{c.X * s, c.Y * s, c.Z * s}
}

// Axis returns component i (0=X, 1=Y, 2=Z).
func (c Coord) Axis(i int) int {
	switch i {
	case 0:
		return c.X
	case 1:
		return c.Y
	default:
		return c.Z
	}
}

func (c Coord) String() string {
	return fmt.Sprintf("(%d,%d,%d)", c.X, c.Y, c.Z)
}

// Flatten maps c to its row-major index in a cube of side n, z fastest.
func Flatten(c Coord, n int) int {
	return c.X*n*n + c.Y*n + c.Z
}

// Unflatten is the inverse of Flatten.
func Unflatten(i, n int) Coord {
	return Coord{X: i / (n * n), Y: i % (n * n) / n, Z: i % n}
}

// InBounds reports whether every component of c is in [0,n).
func InBounds(c Coord, n int) bool {
	return c.X >= 0 && c.Y >= 0 && c.Z >= 0 && c.X < n && c.Y < n && c.Z < n
}
