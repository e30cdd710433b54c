package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"github.com/xlab/closer"

	"surfacenets/internal/chunk"
	"surfacenets/internal/config"
	"surfacenets/internal/export"
	"surfacenets/internal/jobs"
	"surfacenets/internal/preview"
	"surfacenets/internal/profiling"
)

type options struct {
	configPath string
	flags      config.Flags

	objPath     string
	pbPath      string
	previewPath string
	previewSize int
	drawBounds  bool

	timeout  time.Duration
	tickRate int
}

func parseFlags() options {
	var o options
	var level float64
	var view int
	var seed int64
	flag.StringVar(&o.configPath, "config", "", "JSON settings file")
	flag.IntVar(&o.flags.ChunkSize, "size", 0, "voxels per chunk axis (power of two >= 2)")
	flag.Float64Var(&level, "level", 0, "surface level")
	flag.IntVar(&view, "view", 0, "chunks on each side of the origin chunk, per axis")
	flag.StringVar(&o.flags.Field, "field", "", "density field name")
	flag.Int64Var(&seed, "seed", 0, "noise seed")
	flag.IntVar(&o.flags.Workers, "workers", 0, "worker goroutines (default: NumCPU)")
	flag.StringVar(&o.objPath, "obj", "", "write meshes as Wavefront OBJ")
	flag.StringVar(&o.pbPath, "pb", "", "write meshes in protobuf wire format")
	flag.StringVar(&o.previewPath, "preview", "", "write a preview image (.webp or .png)")
	flag.IntVar(&o.previewSize, "preview-size", 512, "preview edge in pixels")
	flag.BoolVar(&o.drawBounds, "bounds", false, "draw chunk bounds in the preview")
	flag.DurationVar(&o.timeout, "timeout", time.Minute, "give up after this long")
	flag.IntVar(&o.tickRate, "tick", 240, "driver ticks per second (0: unlimited)")
	flag.Parse()

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "level":
			l := float32(level)
			o.flags.SurfaceLevel = &l
		case "view":
			o.flags.ViewDistance = &view
		case "seed":
			o.flags.Seed = &seed
		}
	})
	return o
}

func loadSettings(o options) (config.Settings, error) {
	s := config.Default()
	if o.configPath != "" {
		var err error
		if s, err = config.Load(o.configPath); err != nil {
			return s, err
		}
	}
	s.Resolve(o.flags)
	return s, s.Validate()
}

func main() {
	o := parseFlags()

	settings, err := loadSettings(o)
	if err != nil {
		log.Fatalf("settings: %v", err)
	}
	field, err := settings.DensityField()
	if err != nil {
		log.Fatalf("settings: %v", err)
	}

	pool := jobs.NewPool(settings.Workers, settings.QueueSize)
	log.Printf("jobs: %d workers, queue of %d batches", pool.Workers(), settings.QueueSize)
	var mgr *chunk.Manager
	closer.Bind(func() {
		if mgr != nil {
			mgr.Close()
		}
		pool.Shutdown()
	})
	defer closer.Close()

	sink := chunk.NewMeshSet()
	mgr, err = chunk.NewManager(settings, field, pool, sink)
	if err != nil {
		closer.Fatalln("manager:", err)
	}

	start := time.Now()
	ticks, err := drive(mgr, o)
	if err != nil {
		log.Printf("jobs: %d batches still queued", pool.QueueLength())
		closer.Fatalln(err)
	}
	meshes := sink.Meshes()
	triangles := 0
	for _, m := range meshes {
		triangles += m.TriangleCount()
	}
	log.Printf("done in %v (%d ticks): %d chunks, %d meshes (%d published), %d triangles, %d seam triangles pending",
		time.Since(start).Round(time.Millisecond), ticks, mgr.Len(), len(meshes), sink.Published(), triangles, mgr.Pending())

	if err := writeOutputs(o, mgr, sink); err != nil {
		closer.Fatalln(err)
	}
	log.Printf("profile: %s", profiling.TopN(5))
}

// drive ticks the manager until every chunk is done or the timeout passes.
func drive(mgr *chunk.Manager, o options) (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), o.timeout)
	defer cancel()
	limiter := newTickLimiter(o.tickRate)
	ticks := 0
	for !mgr.Done() {
		select {
		case <-ctx.Done():
			return ticks, errors.Wrapf(ctx.Err(), "%d of %d chunks done", mgr.ChunksDone(), mgr.Len())
		default:
		}
		mgr.Tick()
		ticks++
		limiter.Wait()
	}
	return ticks, nil
}

func writeOutputs(o options, mgr *chunk.Manager, sink *chunk.MeshSet) error {
	meshes := sink.Meshes()
	if o.objPath != "" {
		if err := export.WriteOBJFile(o.objPath, meshes); err != nil {
			return err
		}
		log.Printf("wrote %s", o.objPath)
	}
	if o.pbPath != "" {
		if err := export.WriteMeshFile(o.pbPath, meshes); err != nil {
			return err
		}
		log.Printf("wrote %s", o.pbPath)
	}
	if o.previewPath != "" {
		var wires [][2]mgl32.Vec3
		if o.drawBounds {
			for _, c := range mgr.Chunks() {
				for _, s := range c.Bounds() {
					wires = append(wires, s)
				}
			}
		}
		opts := preview.DefaultOptions()
		opts.Size = o.previewSize
		if err := preview.WriteFile(o.previewPath, preview.Render(meshes, wires, opts)); err != nil {
			return err
		}
		log.Printf("wrote %s", o.previewPath)
	}
	if o.objPath == "" && o.pbPath == "" && o.previewPath == "" {
		fmt.Println("no output requested; use -obj, -pb or -preview")
	}
	return nil
}
