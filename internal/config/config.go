package config

import (
	"encoding/json"
	"os"
	"runtime"

	"github.com/pkg/errors"
)

// Settings holds everything a chunk manager needs. It is passed by value;
// there is no global instance.
type Settings struct {
	ChunkSize    int     `json:"chunk_size"`
	SurfaceLevel float32 `json:"surface_level"`
	// Chunks created on each side of the origin chunk, per axis.
	ViewDistance [3]int `json:"view_distance"`

	Workers   int `json:"workers"`
	QueueSize int `json:"queue_size"`
	BatchSize int `json:"batch_size"`

	Field string `json:"field"`
	Seed  int64  `json:"seed"`
}

// Default returns the built-in settings.
func Default() Settings {
	return Settings{
		ChunkSize:    16,
		SurfaceLevel: 0,
		ViewDistance: [3]int{1, 1, 1},
		Workers:      runtime.NumCPU(),
		QueueSize:    256,
		BatchSize:    64,
		Field:        "saddle",
	}
}

// Load reads a JSON settings file on top of Default, so fields missing from
// the file keep their default values.
func Load(path string) (Settings, error) {
	s := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return s, errors.Wrapf(err, "config: read %s", path)
	}
	if err := json.Unmarshal(data, &s); err != nil {
		return s, errors.Wrapf(err, "config: parse %s", path)
	}
	return s, nil
}

// Flags holds CLI values that override file settings. Nil pointers and
// zero counts mean "not given".
type Flags struct {
	ChunkSize    int
	SurfaceLevel *float32
	ViewDistance *int
	Workers      int
	Field        string
	Seed         *int64
}

// Resolve applies flags over s and fills remaining gaps with defaults.
func (s *Settings) Resolve(flags Flags) {
	if flags.ChunkSize > 0 {
		s.ChunkSize = flags.ChunkSize
	}
	if flags.SurfaceLevel != nil {
		s.SurfaceLevel = *flags.SurfaceLevel
	}
	if flags.ViewDistance != nil {
		d := *flags.ViewDistance
		s.ViewDistance = [3]int{d, d, d}
	}
	if flags.Workers > 0 {
		s.Workers = flags.Workers
	}
	if flags.Field != "" {
		s.Field = flags.Field
	}
	if flags.Seed != nil {
		s.Seed = *flags.Seed
	}

	if s.Workers <= 0 {
		s.Workers = runtime.NumCPU()
	}
	if s.QueueSize <= 0 {
		s.QueueSize = 256
	}
	if s.BatchSize <= 0 {
		s.BatchSize = 64
	}
	for i := range s.ViewDistance {
		s.ViewDistance[i] = ClampViewDistance(s.ViewDistance[i])
	}
}
