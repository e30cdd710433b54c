package meshing

import "surfacenets/internal/grid"

// Cube corners, relative to the voxel's lowest lattice point. Corner i sets
// bit i of the configuration mask when its sample is inside the surface.
var CornerOffsets = [8]grid.Coord{
	{0, 0, 0},
	{0, 0, 1},
	{1, 0, 1},
	{1, 0, 0},
	{0, 1, 0},
	{0, 1, 1},
	{1, 1, 1},
	{1, 1, 0},
}

// EdgeCorners lists the two corners joined by each of the 12 cube edges:
// bottom ring, top ring, then the four verticals.
var EdgeCorners = [12][2]int{
	{0, 1}, {1, 2}, {2, 3}, {3, 0},
	{4, 5}, {5, 6}, {6, 7}, {7, 4},
	{0, 4}, {1, 5}, {2, 6}, {3, 7},
}

// EdgeTable maps a configuration mask to the 12-bit set of edges whose two
// corners disagree about being inside.
var EdgeTable [256]uint16

func init() {
	for mask := range EdgeTable {
		var edges uint16
		for e, c := range EdgeCorners {
			if (mask>>c[0])&1 != (mask>>c[1])&1 {
				edges |= 1 << e
			}
		}
		EdgeTable[mask] = edges
	}
}

// farCorner is the corner shared by every forward edge.
const farCorner = 6

// ForwardEdges are the edges meeting at the voxel's far corner (1,1,1). Each
// lattice edge is the forward edge of exactly one voxel, so only that voxel
// emits the quad around it.
var ForwardEdges = [3]int{5, 6, 10}

// TriangleDirections gives, per forward edge, the voxel offsets of the two
// triangles of the quad around it. The four voxels sharing the edge are
// listed counter-clockwise about the edge's +axis direction, and the quad is
// split as (v0,v1,v2), (v0,v2,v3) so the current voxel is always corner 0.
var TriangleDirections = [3][6]grid.Coord{
	// edge 5, along +X at (y+1, z+1)
	{{0, 0, 0}, {0, 1, 0}, {0, 1, 1}, {0, 0, 0}, {0, 1, 1}, {0, 0, 1}},
	// edge 6, along +Z at (x+1, y+1)
	{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 0, 0}, {1, 1, 0}, {0, 1, 0}},
	// edge 10, along +Y at (x+1, z+1)
	{{0, 0, 0}, {0, 0, 1}, {1, 0, 1}, {0, 0, 0}, {1, 0, 1}, {1, 0, 0}},
}
