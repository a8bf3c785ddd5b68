package cover

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

var ErrImageTooLarge = errors.New("cover image exceeds the pixel budget")

// Final cover dimensions in pixels.
const (
	Width  = 1000
	Height = 1250
)

// ScaledSize returns the size a w x h image is scaled to before cropping:
// height becomes Height with the aspect ratio kept, unless that leaves the
// width under Width, in which case width becomes Width instead.
func ScaledSize(w, h int) (int, int) {
	sw := int(math.Round(float64(w) * Height / float64(h)))
	sh := Height
	if sw < Width {
		sw = Width
		sh = int(math.Round(float64(h) * Width / float64(w)))
	}
	return sw, sh
}

// MaxSourcePixels bounds the decoded size of a cover source.
const MaxSourcePixels = 40_000_000

// Fit scales src with ScaledSize and center-crops it to exactly Width x Height.
// Only the part of src that survives the crop is resampled.
func Fit(src image.Image) (*image.RGBA, error) {
	b := src.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, fmt.Errorf("cannot resize empty image %dx%d", b.Dx(), b.Dy())
	}

	out := image.NewRGBA(image.Rect(0, 0, Width, Height))
	draw.CatmullRom.Scale(out, out.Bounds(), src, cropRect(b), draw.Src, nil)
	return out, nil
}

// cropRect maps the centered Width x Height window of the scaled image back
// onto the source bounds.
func cropRect(b image.Rectangle) image.Rectangle {
	w, h := b.Dx(), b.Dy()
	sw, sh := ScaledSize(w, h)
	sx := float64(w) / float64(sw)
	sy := float64(h) / float64(sh)
	ox := float64((sw - Width) / 2)
	oy := float64((sh - Height) / 2)

	r := image.Rect(
		int(math.Round(ox*sx)),
		int(math.Round(oy*sy)),
		int(math.Round((ox+Width)*sx)),
		int(math.Round((oy+Height)*sy)),
	).Add(b.Min).Intersect(b)
	if r.Empty() {
		return b
	}
	return r
}

// checkPixelBudget rejects sources whose declared size would not fit in memory.
func checkPixelBudget(cfg image.Config) error {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return fmt.Errorf("cover image has invalid size %dx%d", cfg.Width, cfg.Height)
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxSourcePixels {
		return fmt.Errorf("%w: %dx%d", ErrImageTooLarge, cfg.Width, cfg.Height)
	}
	return nil
}
