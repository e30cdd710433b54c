package meshing

import (
	"crypto/sha256"
	"encoding/binary"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"

	"surfacenets/internal/density"
	"surfacenets/internal/grid"
	"surfacenets/internal/jobs"
	"surfacenets/internal/octree"
)

func newMesher(t testing.TB, field density.Field, chunk grid.Coord, size int) *Mesher {
	t.Helper()
	g := grid.SampleSync(field, chunk, size+1, 0)
	s, err := octree.NewStore(size)
	if err != nil {
		t.Fatal(err)
	}
	m, err := NewMesher(g, s, field, grid.Origin(chunk, size), 0)
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func hashMesh(m *Mesh) [32]byte {
	h := sha256.New()
	var buf [4]byte
	for _, f := range m.Interleaved() {
		binary.LittleEndian.PutUint32(buf[:], math.Float32bits(f))
		h.Write(buf[:])
	}
	for _, i := range m.Indices {
		binary.LittleEndian.PutUint32(buf[:], i)
		h.Write(buf[:])
	}
	var sum [32]byte
	copy(sum[:], h.Sum(nil))
	return sum
}

func TestEdgeTable(t *testing.T) {
	if EdgeTable[0] != 0 || EdgeTable[255] != 0 {
		t.Fatalf("trivial masks: got %#x and %#x, want 0", EdgeTable[0], EdgeTable[255])
	}
	// Corner 0 alone touches edges 0, 3 and 8.
	if EdgeTable[1] != 0x109 {
		t.Fatalf("EdgeTable[1] = %#x, want 0x109", EdgeTable[1])
	}
	for mask := range EdgeTable {
		if EdgeTable[mask] != EdgeTable[255-mask] {
			t.Fatalf("mask %d and its complement disagree: %#x vs %#x", mask, EdgeTable[mask], EdgeTable[255-mask])
		}
	}
}

func TestForwardEdgesMeetAtFarCorner(t *testing.T) {
	for _, e := range ForwardEdges {
		if EdgeCorners[e][0] != farCorner && EdgeCorners[e][1] != farCorner {
			t.Errorf("edge %d (%v) does not touch corner %d", e, EdgeCorners[e], farCorner)
		}
	}
}

func TestCrossingStaysOnSegment(t *testing.T) {
	p1 := mgl32.Vec3{1, 2, 3}
	p2 := mgl32.Vec3{1, 2, 4}
	cases := []struct{ d1, d2 float32 }{
		{-1, 1}, {1, -1}, {-0.25, 3}, {5, -0.001}, {0, -1}, {-1, 0},
	}
	for _, tc := range cases {
		p := crossing(tc.d1, tc.d2, p1, p2)
		tt := p[2] - p1[2]
		if p[0] != 1 || p[1] != 2 || tt < 0 || tt > 1 {
			t.Errorf("crossing(%v,%v) = %v, not on segment", tc.d1, tc.d2, p)
		}
		if tc.d1 != 0 && tc.d2 != 0 && (tt == 0 || tt == 1) {
			t.Errorf("crossing(%v,%v) = %v, want strictly inside", tc.d1, tc.d2, p)
		}
	}
}

func TestTrivialChunksProduceNothing(t *testing.T) {
	fields := map[string]density.Field{
		"outside": density.Func(func(mgl32.Vec3) float32 { return 1 }),
		"inside":  density.Func(func(mgl32.Vec3) float32 { return -1 }),
	}
	for name, f := range fields {
		m := newMesher(t, f, grid.Coord{}, 4)
		if err := m.Run(); err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		mesh := Assemble(m, nil)
		if mesh.TriangleCount() != 0 {
			t.Errorf("%s: got %d triangles, want 0", name, mesh.TriangleCount())
		}
		for slot := m.Store.LeafOffset(); slot < m.Store.Len(); slot++ {
			if m.Store.Occupied(slot) {
				t.Fatalf("%s: slot %d occupied", name, slot)
			}
		}
	}
}

func TestSaddleChunk(t *testing.T) {
	m := newMesher(t, density.Saddle{}, grid.Coord{}, 2)
	if err := m.Run(); err != nil {
		t.Fatal(err)
	}
	mesh := Assemble(m, nil)
	if mesh.TriangleCount() == 0 {
		t.Fatal("saddle over [0,2]^3: want triangles")
	}
	offset := m.Store.LeafOffset()
	for _, i := range mesh.Indices {
		if !m.Store.Occupied(int(i) + offset) {
			t.Fatalf("index %d references unoccupied slot %d", i, int(i)+offset)
		}
	}
	if len(mesh.Vertices) != m.Store.VoxelCount() || len(mesh.Normals) != len(mesh.Vertices) {
		t.Fatalf("got %d vertices / %d normals, want %d", len(mesh.Vertices), len(mesh.Normals), m.Store.VoxelCount())
	}
}

func TestVertexInsideItsVoxel(t *testing.T) {
	field := density.Sphere{Center: mgl32.Vec3{4, 4, 4}, Radius: 2.7}
	m := newMesher(t, field, grid.Coord{}, 8)
	if err := m.Run(); err != nil {
		t.Fatal(err)
	}
	n := m.VoxelsPerAxis()
	for i := range m.Store.VoxelCount() {
		v := grid.Unflatten(i, n)
		slot, _ := m.Store.IndexOf(v)
		if !m.Store.HasVertex(slot) {
			continue
		}
		p := m.Store.Position(slot)
		lo := grid.PointPosition(v)
		for axis := range 3 {
			if p[axis] < lo[axis]-1e-4 || p[axis] > lo[axis]+1+1e-4 {
				t.Fatalf("voxel %v: vertex %v outside its cell", v, p)
			}
		}
	}
}

func TestMeshingIsDeterministic(t *testing.T) {
	field := density.NewTerrain(7)
	chunk := grid.Coord{X: 1, Y: -1, Z: 0}
	a := newMesher(t, field, chunk, 8)
	b := newMesher(t, field, chunk, 8)
	for _, m := range []*Mesher{a, b} {
		if err := m.Run(); err != nil {
			t.Fatal(err)
		}
	}
	if hashMesh(Assemble(a, nil)) != hashMesh(Assemble(b, nil)) {
		t.Fatal("identical inputs produced different meshes")
	}
}

func TestScheduleMatchesRun(t *testing.T) {
	pool := jobs.NewPool(4, 16)
	defer pool.Shutdown()

	field := density.Sphere{Center: mgl32.Vec3{3, 5, 4}, Radius: 3.3}
	serial := newMesher(t, field, grid.Coord{}, 8)
	if err := serial.Run(); err != nil {
		t.Fatal(err)
	}
	parallel := newMesher(t, field, grid.Coord{}, 8)
	if err := parallel.Schedule(pool, nil, 7).Wait(); err != nil {
		t.Fatal(err)
	}
	want, got := Assemble(serial, nil), Assemble(parallel, nil)
	if want.TriangleCount() == 0 {
		t.Fatal("sphere produced no triangles")
	}
	if hashMesh(want) != hashMesh(got) {
		t.Fatalf("parallel mesh differs: %d vs %d triangles", got.TriangleCount(), want.TriangleCount())
	}
}

func TestRemeshWithoutResetFails(t *testing.T) {
	m := newMesher(t, density.Saddle{}, grid.Coord{}, 2)
	if err := m.Run(); err != nil {
		t.Fatal(err)
	}
	if err := m.Run(); !errors.Is(err, ErrUnmaterialized) {
		t.Fatalf("second Run: got %v, want ErrUnmaterialized", err)
	}
	m.Store.Reset()
	if err := m.Run(); err != nil {
		t.Fatalf("Run after Reset: %v", err)
	}
}

func TestNewMesherSizeMismatch(t *testing.T) {
	g := grid.NewSampleGrid(5)
	s, _ := octree.NewStore(8)
	if _, err := NewMesher(g, s, density.Saddle{}, mgl32.Vec3{}, 0); err == nil {
		t.Fatal("want error for mismatched grid and store")
	}
}

func TestInterleavedLayout(t *testing.T) {
	m := &Mesh{
		Vertices: []mgl32.Vec3{{1, 2, 3}, {4, 5, 6}, {7, 8, 9}},
		Normals:  []mgl32.Vec3{{0, 1, 0}, {0, 1, 0}, {0, 1, 0}},
		Indices:  []uint32{2, 0, 1},
	}
	got := m.Interleaved()
	if len(got) != 3*VertexStride {
		t.Fatalf("got %d floats, want %d", len(got), 3*VertexStride)
	}
	if got[0] != 7 || got[4] != 1 || got[6] != 1 {
		t.Fatalf("unexpected layout %v", got[:9])
	}
}

func TestVertexAtNonZeroSurfaceLevel(t *testing.T) {
	// f = y² + x/2 at level 1/4. Voxel (0,0,0) has crossings at
	// (½,0,1) and (½,0,0) with |f| = ¼, and at (0,¼,0) and (0,¼,1) with
	// |f| = 1/16, so the weighted centroid is (0.4, 0.05, 0.5).
	field := density.Func(func(p mgl32.Vec3) float32 { return p[1]*p[1] + 0.5*p[0] })
	const level = 0.25
	g := grid.SampleSync(field, grid.Coord{}, 3, level)
	s, err := octree.NewStore(2)
	if err != nil {
		t.Fatal(err)
	}
	m, err := NewMesher(g, s, field, grid.Origin(grid.Coord{}, 2), level)
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Run(); err != nil {
		t.Fatal(err)
	}
	slot, _ := s.IndexOf(grid.Coord{})
	if !s.HasVertex(slot) {
		t.Fatal("voxel (0,0,0) has no vertex")
	}
	want := mgl32.Vec3{0.4, 0.05, 0.5}
	if got := s.Position(slot); !got.ApproxEqualThreshold(want, 1e-5) {
		t.Fatalf("vertex: got %v, want %v", got, want)
	}
	// ∇f = (½, 2y, 0) at the vertex.
	if got := s.Normal(slot); !got.ApproxEqualThreshold(mgl32.Vec3{0.5, 0.1, 0}, 1e-2) {
		t.Fatalf("normal: got %v", got)
	}
}
