package film

import "fmt"

// CropRect is a rectangle in source pixel coordinates, half-open on the
// right and bottom.
type CropRect struct {
	Left, Top, Right, Bottom int
}

func (r CropRect) Width() int  { return r.Right - r.Left }
func (r CropRect) Height() int { return r.Bottom - r.Top }

func (r CropRect) Empty() bool { return r.Right <= r.Left || r.Bottom <= r.Top }

// Clamp silently adjusts the rect to fit inside a w x h grid. The result may
// be zero-area; callers reject that at extraction time.
func (r CropRect) Clamp(w, h int) CropRect {
	if r.Left < 0 {
		r.Left = 0
	}
	if r.Top < 0 {
		r.Top = 0
	}
	if r.Right > w {
		r.Right = w
	}
	if r.Bottom > h {
		r.Bottom = h
	}
	if r.Right < r.Left {
		r.Right = r.Left
	}
	if r.Bottom < r.Top {
		r.Bottom = r.Top
	}
	return r
}

func (r CropRect) String() string {
	return fmt.Sprintf("(%d,%d)-(%d,%d)", r.Left, r.Top, r.Right, r.Bottom)
}

// FrameCandidate is a full-width horizontal band of the strip hypothesized
// to contain exactly one frame.
type FrameCandidate struct {
	Top, Bottom int
}

func (f FrameCandidate) Height() int { return f.Bottom - f.Top }

// BoundaryList is a strictly increasing sequence of row indices starting at
// 0 and ending at the strip height. Consecutive entries delimit bands.
type BoundaryList []int

// Bands returns the candidate bands delimited by the boundaries, top to
// bottom of the strip.
func (b BoundaryList) Bands() []FrameCandidate {
	if len(b) < 2 {
		return nil
	}
	bands := make([]FrameCandidate, 0, len(b)-1)
	for i := 0; i < len(b)-1; i++ {
		bands = append(bands, FrameCandidate{Top: b[i], Bottom: b[i+1]})
	}
	return bands
}
