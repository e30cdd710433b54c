package density

import (
	"sort"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
)

// ErrUnknownField is returned by ByName for names with no registered field.
var ErrUnknownField = errors.New("unknown density field")

// Saddle is x² - y² + z².
type Saddle struct{}

func (Saddle) Density(p mgl32.Vec3) float32 {
	return p[0]*p[0] - p[1]*p[1] + p[2]*p[2]
}

// CubicSaddle is x³ - y² + z².
type CubicSaddle struct{}

func (CubicSaddle) Density(p mgl32.Vec3) float32 {
	return p[0]*p[0]*p[0] - p[1]*p[1] + p[2]*p[2]
}

// Sphere is the signed distance to a sphere.
type Sphere struct {
	Center mgl32.Vec3
	Radius float32
}

func (s Sphere) Density(p mgl32.Vec3) float32 {
	return p.Sub(s.Center).Len() - s.Radius
}

// Plane is dot(Normal, p) - D. Normal need not be unit length.
//
// A plane is linear, so every edge crossing lands exactly on the surface
// and carries zero weight; the mesher treats such voxels as vertex-free.
type Plane struct {
	Normal mgl32.Vec3
	D      float32
}

func (pl Plane) Density(p mgl32.Vec3) float32 {
	return pl.Normal.Dot(p) - pl.D
}

// Gyroid is a triply periodic minimal surface, scaled by Scale.
type Gyroid struct {
	Scale float32
}

func (g Gyroid) Density(p mgl32.Vec3) float32 {
	x, y, z := p[0]*g.Scale, p[1]*g.Scale, p[2]*g.Scale
	return math32.Sin(x)*math32.Cos(y) + math32.Sin(y)*math32.Cos(z) + math32.Sin(z)*math32.Cos(x)
}

type constructor func(seed int64) Field

var registry = map[string]constructor{
	"saddle":       func(int64) Field { return Saddle{} },
	"cubic-saddle": func(int64) Field { return CubicSaddle{} },
	"sphere": func(int64) Field {
		return Sphere{Radius: 12}
	},
	"gyroid": func(int64) Field { return Gyroid{Scale: 0.3} },
	"terrain": func(seed int64) Field {
		return NewTerrain(seed)
	},
}

// ByName returns the named built-in field. Seed is used by noise-based fields.
func ByName(name string, seed int64) (Field, error) {
	ctor, ok := registry[name]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownField, "%q (known: %v)", name, Names())
	}
	return ctor(seed), nil
}

// Names lists the registered field names in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for k := range registry {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
