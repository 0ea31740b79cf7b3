package film

import "math"

// SelectionBox is a rectangle in preview space: the coordinate system of the
// scaled, possibly letterboxed, on-screen rendering of a strip. During
// interactive editing the preview-space rectangle is the source of truth and
// is re-resolved to source pixels on demand, never the other way around.
type SelectionBox struct {
	X, Y, W, H float64
}

// Move translates the box by a preview-space delta.
func (b SelectionBox) Move(dx, dy float64) SelectionBox {
	b.X += dx
	b.Y += dy
	return b
}

// Duplicate returns a copy nudged down-right so the new box is visible next
// to its source.
func (b SelectionBox) Duplicate() SelectionBox {
	return b.Move(10, 10)
}

// Handle names the edge or corner an interactive resize grabs.
type Handle int

const (
	HandleLeft Handle = iota
	HandleRight
	HandleTop
	HandleBottom
	HandleTopLeft
	HandleTopRight
	HandleBottomLeft
	HandleBottomRight
)

// Resize applies a drag of (dx, dy) to the given handle, producing a new
// preview-space rectangle. Width and height never drop below one preview
// pixel.
func (b SelectionBox) Resize(h Handle, dx, dy float64) SelectionBox {
	switch h {
	case HandleLeft, HandleTopLeft, HandleBottomLeft:
		b.X += dx
		b.W -= dx
	case HandleRight, HandleTopRight, HandleBottomRight:
		b.W += dx
	}
	switch h {
	case HandleTop, HandleTopLeft, HandleTopRight:
		b.Y += dy
		b.H -= dy
	case HandleBottom, HandleBottomLeft, HandleBottomRight:
		b.H += dy
	}

	if b.W < 1 {
		b.W = 1
	}
	if b.H < 1 {
		b.H = 1
	}
	return b
}

// PreviewTransform maps between preview space and source pixel space. Scale
// is the ratio of displayed to source dimensions; the offsets account for
// letterboxing when the preview is centered in its viewport. Callers must
// snapshot the transform before mapping, not read it while the viewport is
// resizing.
type PreviewTransform struct {
	Scale            float64
	OffsetX, OffsetY float64
	SrcW, SrcH       int
}

// FitPreview computes the transform for a source image rendered
// aspect-preserved and centered inside a viewW x viewH viewport.
func FitPreview(srcW, srcH, viewW, viewH int) PreviewTransform {
	t := PreviewTransform{Scale: 1, SrcW: srcW, SrcH: srcH}
	if srcW <= 0 || srcH <= 0 || viewW <= 0 || viewH <= 0 {
		return t
	}

	sx := float64(viewW) / float64(srcW)
	sy := float64(viewH) / float64(srcH)
	t.Scale = math.Min(sx, sy)
	t.OffsetX = (float64(viewW) - float64(srcW)*t.Scale) / 2
	t.OffsetY = (float64(viewH) - float64(srcH)*t.Scale) / 2
	return t
}

// ToSource resolves a preview-space box to source pixel coordinates, rounding
// half-up and clamping to the source grid. The result may be zero-area after
// clamping; extraction rejects that case.
func (t PreviewTransform) ToSource(b SelectionBox) CropRect {
	rect := CropRect{
		Left:   roundHalfUp((b.X - t.OffsetX) / t.Scale),
		Top:    roundHalfUp((b.Y - t.OffsetY) / t.Scale),
		Right:  roundHalfUp((b.X + b.W - t.OffsetX) / t.Scale),
		Bottom: roundHalfUp((b.Y + b.H - t.OffsetY) / t.Scale),
	}
	return rect.Clamp(t.SrcW, t.SrcH)
}

// ToPreview is the exact algebraic inverse of ToSource: projecting a source
// rect and resolving it back yields the same rect after the first rounding.
func (t PreviewTransform) ToPreview(r CropRect) SelectionBox {
	return SelectionBox{
		X: float64(r.Left)*t.Scale + t.OffsetX,
		Y: float64(r.Top)*t.Scale + t.OffsetY,
		W: float64(r.Width()) * t.Scale,
		H: float64(r.Height()) * t.Scale,
	}
}

func roundHalfUp(v float64) int {
	return int(math.Floor(v + 0.5))
}
