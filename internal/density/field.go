package density

import "github.com/go-gl/mathgl/mgl32"

// GradientEpsilon is the finite-difference step used by Gradient.
const GradientEpsilon = 1e-4

// Field is a scalar density function. Negative values are inside the surface,
// zero and positive values are outside. Implementations must be pure: the same
// point always yields the same value, and any point is valid input.
type Field interface {
	Density(p mgl32.Vec3) float32
}

// Func adapts a plain function to the Field interface.
type Func func(p mgl32.Vec3) float32

// Density calls f(p).
func (f Func) Density(p mgl32.Vec3) float32 {
	return f(p)
}

var (
	unitX = mgl32.Vec3{1, 0, 0}
	unitY = mgl32.Vec3{0, 1, 0}
	unitZ = mgl32.Vec3{0, 0, 1}
)

// Gradient estimates the gradient of f at p with symmetric differences.
// The result is not normalized.
func Gradient(f Field, p mgl32.Vec3) mgl32.Vec3 {
	dx := f.Density(p.Add(unitX.Mul(GradientEpsilon))) - f.Density(p.Sub(unitX.Mul(GradientEpsilon)))
	dy := f.Density(p.Add(unitY.Mul(GradientEpsilon))) - f.Density(p.Sub(unitY.Mul(GradientEpsilon)))
	dz := f.Density(p.Add(unitZ.Mul(GradientEpsilon))) - f.Density(p.Sub(unitZ.Mul(GradientEpsilon)))
	return mgl32.Vec3{dx, dy, dz}.Mul(1 / (2 * GradientEpsilon))
}
