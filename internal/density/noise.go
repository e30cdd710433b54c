package density

import "github.com/chewxy/math32"

// Deterministic lattice value noise. Lattice values come from an integer
// hash so the same seed always produces the same field.

// smootherstep: 6t^5 - 15t^4 + 10t^3
func fade(t float32) float32 {
	return t * t * t * (t*(t*6-15) + 10)
}

func lerp(a, b, t float32) float32 {
	return a + t*(b-a)
}

// hash3 is a SplitMix64 finalizer over a mixed lattice coordinate.
func hash3(x, y, z, seed int64) uint64 {
	v := uint64(x)*0x9E3779B97F4A7C15 + uint64(y)*0x517CC1B727220A95 + uint64(z)*0x6C62272E07BB0142 + uint64(seed)
	v += 0x9E3779B97F4A7C15
	v = (v ^ (v >> 30)) * 0xBF58476D1CE4E5B9
	v = (v ^ (v >> 27)) * 0x94D049BB133111EB
	return v ^ (v >> 31)
}

// latticeValue maps a lattice point to [0,1].
func latticeValue(x, y, z, seed int64) float32 {
	return float32(hash3(x, y, z, seed)&0xFFFFFF) / float32(0xFFFFFF)
}

func valueNoise(p [3]float32, seed int64) float32 {
	x0 := math32.Floor(p[0])
	y0 := math32.Floor(p[1])
	z0 := math32.Floor(p[2])
	fx := fade(p[0] - x0)
	fy := fade(p[1] - y0)
	fz := fade(p[2] - z0)
	ix, iy, iz := int64(x0), int64(y0), int64(z0)

	c000 := latticeValue(ix, iy, iz, seed)
	c100 := latticeValue(ix+1, iy, iz, seed)
	c010 := latticeValue(ix, iy+1, iz, seed)
	c110 := latticeValue(ix+1, iy+1, iz, seed)
	c001 := latticeValue(ix, iy, iz+1, seed)
	c101 := latticeValue(ix+1, iy, iz+1, seed)
	c011 := latticeValue(ix, iy+1, iz+1, seed)
	c111 := latticeValue(ix+1, iy+1, iz+1, seed)

	x00 := lerp(c000, c100, fx)
	x10 := lerp(c010, c110, fx)
	x01 := lerp(c001, c101, fx)
	x11 := lerp(c011, c111, fx)
	return lerp(lerp(x00, x10, fy), lerp(x01, x11, fy), fz)
}

// octaveNoise sums octaves of value noise and returns a value in [0,1].
func octaveNoise(p [3]float32, seed int64, octaves int, persistence, lacunarity float32) float32 {
	var sum, norm float32
	amplitude, frequency := float32(1), float32(1)
	for i := range octaves {
		q := [3]float32{p[0] * frequency, p[1] * frequency, p[2] * frequency}
		sum += valueNoise(q, seed+int64(i*131)) * amplitude
		norm += amplitude
		amplitude *= persistence
		frequency *= lacunarity
	}
	if norm == 0 {
		return 0
	}
	return sum / norm
}
