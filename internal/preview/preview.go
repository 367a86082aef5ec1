// Package preview renders HIS frames as viewable grayscale images.
package preview

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"

	"github.com/disintegration/imaging"
	"github.com/samcharles93/hisread/pkg/his"
)

const (
	// MaxScale is the largest accepted resize factor.
	MaxScale = 16
	// MaxPixels caps the size of a rendered image.
	MaxPixels = 64 << 20
)

var (
	ErrInvalidScale = errors.New("invalid preview scale")
	ErrTooLarge     = errors.New("preview too large")
)

// Options controls how a frame is rendered.
type Options struct {
	// Scale resizes the output. 0 and 1 keep the frame size.
	Scale float64
	// Raw disables the contrast stretch and keeps the native bit depth.
	Raw bool
}

// Validate checks that Scale is 0 or within (0, MaxScale].
func (o Options) Validate() error {
	if math.IsNaN(o.Scale) || o.Scale < 0 || o.Scale > MaxScale {
		return fmt.Errorf("%w: %g (must be between 0 and %d)", ErrInvalidScale, o.Scale, MaxScale)
	}
	return nil
}

// Size returns the width and height of the image Render produces for fr.
func (o Options) Size(fr *his.Frame) (int, int) {
	w, h := fr.Height, fr.Width
	if o.Scale <= 0 || o.Scale == 1 {
		return w, h
	}
	return max(int(float64(w)*o.Scale), 1), max(int(float64(h)*o.Scale), 1)
}

func (o Options) check(fr *his.Frame) error {
	if err := o.Validate(); err != nil {
		return err
	}
	if w, h := o.Size(fr); int64(w)*int64(h) > MaxPixels {
		return fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrTooLarge, w, h, MaxPixels)
	}
	return nil
}

// Image maps a frame onto an image without changing sample values. The
// first frame axis becomes the image rows, so the image is fr.Height wide
// and fr.Width tall.
func Image(fr *his.Frame) image.Image {
	rect := image.Rect(0, 0, fr.Height, fr.Width)
	if fr.Type == his.Uint8 {
		img := image.NewGray(rect)
		for i := range fr.Width {
			for j := range fr.Height {
				img.SetGray(j, i, color.Gray{Y: uint8(fr.At(i, j))})
			}
		}
		return img
	}
	img := image.NewGray16(rect)
	for i := range fr.Width {
		for j := range fr.Height {
			img.SetGray16(j, i, color.Gray16{Y: fr.At(i, j)})
		}
	}
	return img
}

// Stretch maps the frame's sample range linearly onto 0..255. A flat
// frame renders black.
func Stretch(fr *his.Frame) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, fr.Height, fr.Width))
	if fr.Len() == 0 {
		return img
	}
	lo, hi := sampleRange(fr)
	span := float64(hi - lo)
	for i := range fr.Width {
		for j := range fr.Height {
			var y uint8
			if span > 0 {
				y = uint8(float64(fr.At(i, j)-lo)*255/span + 0.5)
			}
			img.SetGray(j, i, color.Gray{Y: y})
		}
	}
	return img
}

func sampleRange(fr *his.Frame) (lo, hi uint16) {
	lo, hi = fr.Sample(0), fr.Sample(0)
	for k := 1; k < fr.Len(); k++ {
		v := fr.Sample(k)
		lo = min(lo, v)
		hi = max(hi, v)
	}
	return lo, hi
}

// Render converts a frame to an image according to opts. Callers check
// opts first; Encode and PNG do so.
func Render(fr *his.Frame, opts Options) image.Image {
	var img image.Image
	if opts.Raw {
		img = Image(fr)
	} else {
		img = Stretch(fr)
	}
	if opts.Scale <= 0 || opts.Scale == 1 {
		return img
	}
	w, h := opts.Size(fr)
	// Enlarged previews keep hard pixel edges.
	filter := imaging.Lanczos
	if opts.Scale > 1 {
		filter = imaging.NearestNeighbor
	}
	return imaging.Resize(img, w, h, filter)
}

// Encode writes the rendered frame as PNG.
func Encode(w io.Writer, fr *his.Frame, opts Options) error {
	if err := opts.check(fr); err != nil {
		return err
	}
	if err := png.Encode(w, Render(fr, opts)); err != nil {
		return fmt.Errorf("encode preview: %w", err)
	}
	return nil
}

// PNG returns the rendered frame as PNG bytes.
func PNG(fr *his.Frame, opts Options) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, fr, opts); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
