package export

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"google.golang.org/protobuf/encoding/protowire"

	"surfacenets/internal/grid"
	"surfacenets/internal/meshing"
)

func sampleMesh() *meshing.Mesh {
	return &meshing.Mesh{
		Coord:      grid.Coord{X: -2, Y: 0, Z: 5},
		Generation: uuid.New(),
		Origin:     mgl32.Vec3{-32, 0, 80},
		Vertices:   []mgl32.Vec3{{-31.5, 0.25, 80}, {-31, 1, 80.5}, {-30.75, 0.5, 81}},
		Normals:    []mgl32.Vec3{{0, 1, 0}, {0.5, 0.5, 0}, {1, 1, 1}},
		Indices:    []uint32{0, 1, 2},
	}
}

func sameMesh(t *testing.T, got, want *meshing.Mesh) {
	t.Helper()
	if got.Coord != want.Coord || got.Generation != want.Generation || got.Origin != want.Origin {
		t.Fatalf("header: got %v/%v/%v, want %v/%v/%v", got.Coord, got.Generation, got.Origin, want.Coord, want.Generation, want.Origin)
	}
	if len(got.Vertices) != len(want.Vertices) || len(got.Indices) != len(want.Indices) {
		t.Fatalf("got %d vertices %d indices, want %d %d", len(got.Vertices), len(got.Indices), len(want.Vertices), len(want.Indices))
	}
	for i := range want.Vertices {
		if got.Vertices[i] != want.Vertices[i] || got.Normals[i] != want.Normals[i] {
			t.Fatalf("vertex %d: got %v/%v, want %v/%v", i, got.Vertices[i], got.Normals[i], want.Vertices[i], want.Normals[i])
		}
	}
	for i := range want.Indices {
		if got.Indices[i] != want.Indices[i] {
			t.Fatalf("index %d: got %d, want %d", i, got.Indices[i], want.Indices[i])
		}
	}
}

func TestMeshFile(t *testing.T) {
	want := []*meshing.Mesh{sampleMesh(), sampleMesh()}
	want[1].Coord = grid.Coord{X: 3}
	path := filepath.Join(t.TempDir(), "meshes.pb")
	if err := WriteMeshFile(path, want); err != nil {
		t.Fatal(err)
	}
	got, err := ReadMeshFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d meshes, want 2", len(got))
	}
	for i := range want {
		sameMesh(t, got[i], want[i])
	}
}

func TestDecodeSkipsUnknownFields(t *testing.T) {
	want := sampleMesh()
	b := protowire.AppendTag(nil, 99, protowire.VarintType)
	b = protowire.AppendVarint(b, 12345)
	b = EncodeMesh(b, want)
	got, err := DecodeMesh(b)
	if err != nil {
		t.Fatal(err)
	}
	sameMesh(t, got, want)
}

func TestDecodeRejectsBadIndex(t *testing.T) {
	m := sampleMesh()
	m.Indices = []uint32{0, 1, 7}
	if _, err := DecodeMesh(EncodeMesh(nil, m)); !errors.Is(err, ErrMalformed) {
		t.Fatalf("got %v, want ErrMalformed", err)
	}
}

func TestDecodeTruncated(t *testing.T) {
	b := EncodeMesh(nil, sampleMesh())
	if _, err := DecodeMesh(b[:len(b)-5]); err == nil {
		t.Fatal("want error for truncated data")
	}
}

func TestWriteOBJ(t *testing.T) {
	a, b := sampleMesh(), sampleMesh()
	var buf bytes.Buffer
	if err := WriteOBJ(&buf, []*meshing.Mesh{a, b}); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if n := strings.Count(out, "\nv "); n != 6 {
		t.Fatalf("got %d vertex lines, want 6", n)
	}
	if strings.Count(out, "vn ") != 6 || strings.Count(out, "f ") != 2 {
		t.Fatalf("unexpected OBJ:\n%s", out)
	}
	// The second mesh's faces are offset by the first mesh's vertex count.
	if !strings.Contains(out, "f 4//4 5//5 6//6") {
		t.Fatalf("second face not offset:\n%s", out)
	}
}
