package density

import "github.com/go-gl/mathgl/mgl32"

// Terrain is a 3D noise terrain: octave value noise biased by altitude so the
// volume is solid well below BaseHeight and empty well above it. Overhangs
// and floating formations appear where the noise overpowers the bias.
type Terrain struct {
	Seed             int64
	Scale            float32 // noise frequency
	BaseHeight       float32 // altitude where the bias is zero
	GradientStrength float32 // altitude units per unit of bias
	Octaves          int
	Persistence      float32
	Lacunarity       float32
}

// NewTerrain returns a terrain field with the default shape parameters.
func NewTerrain(seed int64) *Terrain {
	return &Terrain{
		Seed:             seed,
		Scale:            1.0 / 32.0,
		BaseHeight:       0,
		GradientStrength: 16,
		Octaves:          4,
		Persistence:      0.5,
		Lacunarity:       2.0,
	}
}

// Density is negative inside the ground.
func (t *Terrain) Density(p mgl32.Vec3) float32 {
	n := octaveNoise([3]float32{p[0] * t.Scale, p[1] * t.Scale, p[2] * t.Scale},
		t.Seed, t.Octaves, t.Persistence, t.Lacunarity)
	n = n*2 - 1
	bias := (t.BaseHeight - p[1]) / t.GradientStrength
	return -(n + bias)
}
