package chunk

import (
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"

	"surfacenets/internal/density"
	"surfacenets/internal/grid"
	"surfacenets/internal/jobs"
	"surfacenets/internal/meshing"
)

func newPool(t *testing.T) *jobs.Pool {
	t.Helper()
	p := jobs.NewPool(4, 64)
	t.Cleanup(p.Shutdown)
	return p
}

func settle(t *testing.T, c *Chunk) State {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for {
		if s := c.Update(); s.Terminal() {
			return s
		}
		if time.Now().After(deadline) {
			t.Fatalf("chunk %v stuck in %v", c.Coord(), c.State())
		}
		time.Sleep(time.Millisecond)
	}
}

func TestFastReject(t *testing.T) {
	pool := newPool(t)
	fields := map[string]density.Field{
		"positive": density.Func(func(mgl32.Vec3) float32 { return 2 }),
		"negative": density.Func(func(mgl32.Vec3) float32 { return -2 }),
	}
	for name, f := range fields {
		sink := NewMeshSet()
		c := New(grid.Coord{}, f, pool, sink, 16)
		if err := c.Initialize(4, 0); err != nil {
			t.Fatal(err)
		}
		if got := settle(t, c); got != Empty {
			t.Fatalf("%s: got %v, want empty", name, got)
		}
		if c.mesher != nil {
			t.Fatalf("%s: mesher was created", name)
		}
		if m := sink.Get(grid.Coord{}); m == nil || m.TriangleCount() != 0 {
			t.Fatalf("%s: want an empty published mesh, got %+v", name, m)
		}
	}
}

func TestSaddleChunkReady(t *testing.T) {
	pool := newPool(t)
	sink := NewMeshSet()
	c := New(grid.Coord{}, density.Saddle{}, pool, sink, 3)
	if err := c.Initialize(2, 0); err != nil {
		t.Fatal(err)
	}
	if got := settle(t, c); got != Ready {
		t.Fatalf("got %v (%v), want ready", got, c.Err())
	}
	m := sink.Get(grid.Coord{})
	if m == nil || m.TriangleCount() == 0 {
		t.Fatal("want a published mesh with triangles")
	}
	if m.Generation != c.Generation() || m.Coord != c.Coord() {
		t.Fatalf("mesh stamped %v/%v, want %v/%v", m.Coord, m.Generation, c.Coord(), c.Generation())
	}
}

func TestInitializeRejectsBadSize(t *testing.T) {
	pool := newPool(t)
	c := New(grid.Coord{}, density.Saddle{}, pool, nil, 8)
	for _, size := range []int{0, 1, 3, 10} {
		if err := c.Initialize(size, 0); !errors.Is(err, ErrInvalidSize) {
			t.Errorf("size %d: got %v, want ErrInvalidSize", size, err)
		}
	}
	if c.State() != Idle {
		t.Fatalf("state %v after rejected sizes, want idle", c.State())
	}
}

func TestReinitializeStartsNewGeneration(t *testing.T) {
	pool := newPool(t)
	c := New(grid.Coord{}, density.Sphere{Center: mgl32.Vec3{2, 2, 2}, Radius: 1.2}, pool, nil, 8)
	if err := c.Initialize(4, 0); err != nil {
		t.Fatal(err)
	}
	first := c.Generation()
	// Re-initializing mid-flight joins the outstanding work.
	if err := c.Initialize(8, 0); err != nil {
		t.Fatal(err)
	}
	if c.Generation() == first {
		t.Fatal("generation did not change")
	}
	if got := settle(t, c); got != Ready {
		t.Fatalf("got %v (%v), want ready", got, c.Err())
	}
	if c.Size() != 8 || c.Mesh().Generation != c.Generation() {
		t.Fatalf("stale mesh after re-initialize")
	}
}

func TestSamplingPanicFailsChunk(t *testing.T) {
	pool := newPool(t)
	c := New(grid.Coord{}, density.Func(func(mgl32.Vec3) float32 { panic("boom") }), pool, nil, 8)
	if err := c.Initialize(2, 0); err != nil {
		t.Fatal(err)
	}
	if got := settle(t, c); got != Failed || c.Err() == nil {
		t.Fatalf("got %v / %v, want failed with error", got, c.Err())
	}
	if c.Neighbor() != nil {
		t.Fatal("failed chunk must not offer a neighbor view")
	}
}

func TestStitchNeedsReady(t *testing.T) {
	pool := newPool(t)
	c := New(grid.Coord{}, density.Saddle{}, pool, nil, 8)
	if _, err := c.Stitch(meshing.Neighbors{}); !errors.Is(err, ErrNotReady) {
		t.Fatalf("got %v, want ErrNotReady", err)
	}
}

func TestCloseReleases(t *testing.T) {
	pool := newPool(t)
	c := New(grid.Coord{}, density.Saddle{}, pool, nil, 8)
	if err := c.Initialize(4, 0); err != nil {
		t.Fatal(err)
	}
	c.Close()
	if c.State() != Idle || c.Grid() != nil || c.Mesh() != nil {
		t.Fatal("close left buffers behind")
	}
}

func TestStateString(t *testing.T) {
	if Ready.String() != "ready" || State(42).String() != "unknown" {
		t.Fatal("unexpected state names")
	}
	if Meshing.Terminal() || !Empty.Terminal() {
		t.Fatal("unexpected terminal states")
	}
}
