package preview

import (
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/HugoSmits86/nativewebp"
	"github.com/pkg/errors"
)

var ErrFormat = errors.New("preview: unsupported image format")

// Encode writes img as "webp" or "png".
func Encode(w io.Writer, img image.Image, format string) error {
	switch format {
	case "webp":
		return errors.Wrap(nativewebp.Encode(w, img, nil), "preview: webp encode")
	case "png":
		return errors.Wrap(png.Encode(w, img), "preview: png encode")
	}
	return errors.Wrapf(ErrFormat, "%q", format)
}

// WriteFile encodes img to path, picking the format from the extension.
func WriteFile(path string, img image.Image) error {
	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if format != "webp" && format != "png" {
		return errors.Wrapf(ErrFormat, "%s", path)
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "preview: create %s", path)
	}
	if err := Encode(f, img, format); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
