package film

import (
	"fmt"
	"image"
	"image/draw"
	"os"

	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
)

// Strip is a decoded film strip: the source pixel grid plus a precomputed
// luminance plane used by boundary detection and content cropping. It is
// immutable for the duration of one processing run.
type Strip struct {
	src  image.Image
	luma []float64 // row-major, W*H, range 0..255
	w, h int
}

// LoadStrip decodes an image file into a Strip.
func LoadStrip(path string) (*Strip, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrInvalidInput, path, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", ErrInvalidInput, path, err)
	}
	return NewStrip(img)
}

// NewStrip wraps a decoded image. A zero-area image is rejected.
func NewStrip(img image.Image) (*Strip, error) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: zero-area image %dx%d", ErrInvalidInput, w, h)
	}

	s := &Strip{src: img, luma: make([]float64, w*h), w: w, h: h}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			// ITU-R BT.601 luma, same weighting OpenCV uses for BGR2GRAY.
			s.luma[y*w+x] = (0.299*float64(r) + 0.587*float64(g) + 0.114*float64(bl)) / 257.0
		}
	}
	return s, nil
}

func (s *Strip) Width() int  { return s.w }
func (s *Strip) Height() int { return s.h }

// RowMeans returns the mean luminance of each row y in [top, bottom),
// aggregated over columns [left, right). Indices are clamped to the strip.
func (s *Strip) RowMeans(top, bottom, left, right int) []float64 {
	top, bottom = clampRange(top, bottom, s.h)
	left, right = clampRange(left, right, s.w)
	if right <= left {
		return nil
	}

	means := make([]float64, bottom-top)
	for y := top; y < bottom; y++ {
		sum := 0.0
		row := s.luma[y*s.w : (y+1)*s.w]
		for x := left; x < right; x++ {
			sum += row[x]
		}
		means[y-top] = sum / float64(right-left)
	}
	return means
}

// ColMeans returns the mean luminance of each column x in [left, right),
// aggregated over rows [top, bottom).
func (s *Strip) ColMeans(left, right, top, bottom int) []float64 {
	top, bottom = clampRange(top, bottom, s.h)
	left, right = clampRange(left, right, s.w)
	if bottom <= top {
		return nil
	}

	means := make([]float64, right-left)
	for y := top; y < bottom; y++ {
		row := s.luma[y*s.w : (y+1)*s.w]
		for x := left; x < right; x++ {
			means[x-left] += row[x]
		}
	}
	for i := range means {
		means[i] /= float64(bottom - top)
	}
	return means
}

// Extract copies the pixels inside rect into a standalone image. The rect is
// clamped to the strip first; a rect that clamps to zero area returns nil.
func (s *Strip) Extract(rect CropRect) *image.RGBA {
	rect = rect.Clamp(s.w, s.h)
	if rect.Empty() {
		return nil
	}

	b := s.src.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, rect.Width(), rect.Height()))
	src := image.Rect(b.Min.X+rect.Left, b.Min.Y+rect.Top, b.Min.X+rect.Right, b.Min.Y+rect.Bottom)
	draw.Draw(out, out.Bounds(), s.src, src.Min, draw.Src)
	return out
}

func clampRange(lo, hi, max int) (int, int) {
	if lo < 0 {
		lo = 0
	}
	if hi > max {
		hi = max
	}
	if hi < lo {
		hi = lo
	}
	return lo, hi
}
