package config

import (
	"github.com/pkg/errors"

	"surfacenets/internal/density"
)

var (
	ErrChunkSize = errors.New("config: chunk size must be a power of two >= 2")
	ErrField     = errors.New("config: unknown density field")
)

// MaxViewDistance bounds the chunk lattice per axis and direction.
const MaxViewDistance = 16

// ClampViewDistance clamps d to [0, MaxViewDistance].
func ClampViewDistance(d int) int {
	if d < 0 {
		d = 0
	}
	if d > MaxViewDistance {
		d = MaxViewDistance
	}
	return d
}

// ValidChunkSize reports whether size can back a sparse vertex store.
func ValidChunkSize(size int) bool {
	return size >= 2 && size&(size-1) == 0
}

// Validate reports the first setting that would make chunk creation fail.
func (s Settings) Validate() error {
	if !ValidChunkSize(s.ChunkSize) {
		return errors.Wrapf(ErrChunkSize, "got %d", s.ChunkSize)
	}
	if _, err := density.ByName(s.Field, s.Seed); err != nil {
		return errors.Wrapf(ErrField, "%q (known: %v)", s.Field, density.Names())
	}
	return nil
}

// DensityField builds the configured density field.
func (s Settings) DensityField() (density.Field, error) {
	f, err := density.ByName(s.Field, s.Seed)
	if err != nil {
		return nil, errors.Wrapf(ErrField, "%q", s.Field)
	}
	return f, nil
}
