package meshing

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"surfacenets/internal/density"
	"surfacenets/internal/grid"
)

func TestDirectionOffset(t *testing.T) {
	want := map[int]grid.Coord{
		DirX:               {1, 0, 0},
		DirY:               {0, 1, 0},
		DirZ:               {0, 0, 1},
		DirX | DirZ:        {1, 0, 1},
		DirX | DirY | DirZ: {1, 1, 1},
	}
	for dir, c := range want {
		if got := DirectionOffset(dir); got != c {
			t.Errorf("DirectionOffset(%d) = %v, want %v", dir, got, c)
		}
	}
}

// sphere straddling the x = 4 face between chunks (0,0,0) and (1,0,0)
func straddlingPair(t *testing.T) (*Mesher, *Mesher) {
	t.Helper()
	field := density.Sphere{Center: mgl32.Vec3{4, 2, 2}, Radius: 1.5}
	a := newMesher(t, field, grid.Coord{}, 4)
	b := newMesher(t, field, grid.Coord{X: 1}, 4)
	for _, m := range []*Mesher{a, b} {
		if err := m.Run(); err != nil {
			t.Fatal(err)
		}
	}
	return a, b
}

func TestStitchSharesNeighborVertices(t *testing.T) {
	a, b := straddlingPair(t)
	var nbs Neighbors
	nbs[DirX] = &Neighbor{Store: b.Store, Origin: b.Origin}

	seams, err := Stitch(a, nbs)
	if err != nil {
		t.Fatal(err)
	}
	if len(seams.Triangles) == 0 {
		t.Fatal("want seam triangles across the x face")
	}

	bMesh := Assemble(b, nil)
	inB := make(map[mgl32.Vec3]bool)
	for i, v := range bMesh.Vertices {
		if b.Store.Occupied(i + b.Store.LeafOffset()) {
			inB[v] = true
		}
	}
	for _, v := range seams.Vertices {
		if !inB[v] {
			t.Fatalf("seam vertex %v is not bit-identical to any vertex of the neighbor", v)
		}
	}

	mesh := Assemble(a, seams)
	total := uint32(len(mesh.Vertices))
	offset := a.Store.LeafOffset()
	for _, tri := range seams.Triangles {
		external := 0
		for _, i := range tri {
			if i >= total {
				t.Fatalf("triangle %v indexes past %d vertices", tri, total)
			}
			if int(i) >= a.Store.VoxelCount() {
				external++
			} else if !a.Store.Occupied(int(i) + offset) {
				t.Fatalf("triangle %v uses unoccupied local slot", tri)
			}
		}
		if external == 0 {
			t.Fatalf("seam triangle %v never leaves the chunk", tri)
		}
	}
}

func TestStitchWithoutNeighborsIsPending(t *testing.T) {
	a, _ := straddlingPair(t)
	seams, err := Stitch(a, Neighbors{})
	if err != nil {
		t.Fatal(err)
	}
	if len(seams.Triangles) != 0 || len(seams.Vertices) != 0 {
		t.Fatalf("got %d triangles without neighbors", len(seams.Triangles))
	}
	if seams.Pending == 0 {
		t.Fatal("want pending triangles when the x neighbor is missing")
	}
}

func TestStitchRejectsMismatchedNeighbor(t *testing.T) {
	a, _ := straddlingPair(t)
	small := newMesher(t, density.Saddle{}, grid.Coord{X: 1}, 2)
	var nbs Neighbors
	nbs[DirX] = &Neighbor{Store: small.Store, Origin: small.Origin}
	if _, err := Stitch(a, nbs); err == nil {
		t.Fatal("want error for a neighbor of a different size")
	}
}
