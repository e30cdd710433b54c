package preview

import (
	"image"
	"image/color"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"golang.org/x/image/draw"

	"surfacenets/internal/meshing"
	"surfacenets/internal/profiling"
)

// Options controls the preview camera and output size.
type Options struct {
	Size        int     // output edge in pixels
	Supersample int     // render at Size*Supersample, then downscale
	Azimuth     float32 // degrees around +Y
	Elevation   float32 // degrees above the XZ plane
	Background  color.NRGBA
	Surface     color.NRGBA
	Wire        color.NRGBA
}

// DefaultOptions returns a 512px isometric-ish view.
func DefaultOptions() Options {
	return Options{
		Size:        512,
		Supersample: 2,
		Azimuth:     45,
		Elevation:   35,
		Background:  color.NRGBA{24, 24, 28, 255},
		Surface:     color.NRGBA{200, 180, 140, 255},
		Wire:        color.NRGBA{60, 220, 90, 255},
	}
}

var lightDir = mgl32.Vec3{0.4, 0.8, 0.45}.Normalize()

type camera struct {
	mvp  mgl32.Mat4
	size int
}

func newCamera(lo, hi mgl32.Vec3, opts Options, size int) camera {
	center := lo.Add(hi).Mul(0.5)
	radius := hi.Sub(lo).Len()*0.5 + 1
	az := mgl32.DegToRad(opts.Azimuth)
	el := mgl32.DegToRad(opts.Elevation)
	dir := mgl32.Vec3{
		math32.Cos(el) * math32.Sin(az),
		math32.Sin(el),
		math32.Cos(el) * math32.Cos(az),
	}
	eye := center.Add(dir.Mul(radius * 2))
	view := mgl32.LookAtV(eye, center, mgl32.Vec3{0, 1, 0})
	proj := mgl32.Ortho(-radius, radius, -radius, radius, 0, radius*4)
	return camera{mvp: proj.Mul4(view), size: size}
}

// project returns pixel coordinates and NDC depth.
func (c camera) project(p mgl32.Vec3) mgl32.Vec3 {
	v := c.mvp.Mul4x1(p.Vec4(1))
	s := float32(c.size)
	return mgl32.Vec3{(v[0]*0.5 + 0.5) * s, (0.5 - v[1]*0.5) * s, v[2]}
}

// Render draws meshes flat-shaded plus wire segments and returns the
// downscaled image. Filler vertices are ignored since no index uses them.
func Render(meshes []*meshing.Mesh, wires [][2]mgl32.Vec3, opts Options) *image.NRGBA {
	defer profiling.Track("preview.Render")()
	if opts.Size <= 0 {
		opts.Size = 512
	}
	if opts.Supersample < 1 {
		opts.Supersample = 1
	}
	big := opts.Size * opts.Supersample

	lo, hi, ok := bounds(meshes, wires)
	frame := NewFrame(big, big, opts.Background)
	if ok {
		cam := newCamera(lo, hi, opts, big)
		for _, m := range meshes {
			drawMesh(frame, cam, m, opts.Surface)
		}
		for _, w := range wires {
			drawLine(frame, cam.project(w[0]), cam.project(w[1]), opts.Wire)
		}
	}
	return downscale(frame.Color, opts.Size)
}

func bounds(meshes []*meshing.Mesh, wires [][2]mgl32.Vec3) (lo, hi mgl32.Vec3, ok bool) {
	lo = mgl32.Vec3{math32.MaxFloat32, math32.MaxFloat32, math32.MaxFloat32}
	hi = lo.Mul(-1)
	grow := func(p mgl32.Vec3) {
		for k := range 3 {
			lo[k] = min(lo[k], p[k])
			hi[k] = max(hi[k], p[k])
		}
		ok = true
	}
	for _, m := range meshes {
		for _, i := range m.Indices {
			grow(m.Vertices[i])
		}
	}
	for _, w := range wires {
		grow(w[0])
		grow(w[1])
	}
	return lo, hi, ok
}

func drawMesh(f *Frame, cam camera, m *meshing.Mesh, base color.NRGBA) {
	for t := 0; t+2 < len(m.Indices); t += 3 {
		a, b, c := m.Vertices[m.Indices[t]], m.Vertices[m.Indices[t+1]], m.Vertices[m.Indices[t+2]]
		n := b.Sub(a).Cross(c.Sub(a))
		if n.Len() < 1e-12 {
			continue
		}
		shade := min(0.25+0.75*math32.Abs(n.Normalize().Dot(lightDir)), 1)
		col := color.NRGBA{
			R: uint8(float32(base.R) * shade),
			G: uint8(float32(base.G) * shade),
			B: uint8(float32(base.B) * shade),
			A: 255,
		}
		fillTriangle(f, cam.project(a), cam.project(b), cam.project(c), col)
	}
}

// fillTriangle rasterizes with a bounding box and barycentric test, either
// winding.
func fillTriangle(f *Frame, p0, p1, p2 mgl32.Vec3, col color.NRGBA) {
	minX := max(int(math32.Floor(min(p0[0], p1[0], p2[0]))), 0)
	maxX := min(int(math32.Ceil(max(p0[0], p1[0], p2[0]))), f.Width-1)
	minY := max(int(math32.Floor(min(p0[1], p1[1], p2[1]))), 0)
	maxY := min(int(math32.Ceil(max(p0[1], p1[1], p2[1]))), f.Height-1)
	if minX > maxX || minY > maxY {
		return
	}
	det := (p1[1]-p2[1])*(p0[0]-p2[0]) + (p2[0]-p1[0])*(p0[1]-p2[1])
	if math32.Abs(det) < 1e-8 {
		return
	}
	inv := 1 / det
	for y := minY; y <= maxY; y++ {
		py := float32(y) + 0.5
		for x := minX; x <= maxX; x++ {
			px := float32(x) + 0.5
			w0 := ((p1[1]-p2[1])*(px-p2[0]) + (p2[0]-p1[0])*(py-p2[1])) * inv
			w1 := ((p2[1]-p0[1])*(px-p2[0]) + (p0[0]-p2[0])*(py-p2[1])) * inv
			w2 := 1 - w0 - w1
			if w0 < 0 || w1 < 0 || w2 < 0 {
				continue
			}
			z := w0*p0[2] + w1*p1[2] + w2*p2[2]
			i := y*f.Width + x
			if z >= f.Depth[i] {
				continue
			}
			f.Depth[i] = z
			f.set(x, y, col)
		}
	}
}

// drawLine draws an overlay line without depth testing.
func drawLine(f *Frame, a, b mgl32.Vec3, col color.NRGBA) {
	d := b.Sub(a)
	steps := int(math32.Ceil(max(math32.Abs(d[0]), math32.Abs(d[1]))))
	if steps == 0 {
		steps = 1
	}
	for s := 0; s <= steps; s++ {
		p := a.Add(d.Mul(float32(s) / float32(steps)))
		x, y := int(p[0]), int(p[1])
		if x >= 0 && y >= 0 && x < f.Width && y < f.Height {
			f.set(x, y, col)
		}
	}
}

// downscale resamples an opaque image to size×size with CatmullRom.
func downscale(img *image.NRGBA, size int) *image.NRGBA {
	if img.Bounds().Dx() == size && img.Bounds().Dy() == size {
		return img
	}
	dst := image.NewNRGBA(image.Rect(0, 0, size, size))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst
}
