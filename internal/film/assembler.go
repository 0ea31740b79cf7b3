package film

import (
	"image"
	imgdraw "image/draw"
	"sort"

	xdraw "golang.org/x/image/draw"
)

// ExtractedFrame is one cropped frame pulled out of a strip, with the source
// rect it came from and its position in the output sequence.
type ExtractedFrame struct {
	SourceRect CropRect
	Image      *image.RGBA
	Order      int
}

// Normalize resizes a run of heterogeneous frames to one uniform size: the
// maximum width and height observed in the run, bumped to even values for
// the video encoder. Each frame is scaled to fit with Catmull-Rom resampling
// and padded centered, so no frame is ever stretched or squashed. The output
// order follows ExtractedFrame.Order.
func Normalize(frames []*ExtractedFrame) []*image.RGBA {
	if len(frames) == 0 {
		return nil
	}

	ordered := make([]*ExtractedFrame, len(frames))
	copy(ordered, frames)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Order < ordered[j].Order })

	targetW, targetH := 0, 0
	for _, f := range ordered {
		b := f.Image.Bounds()
		if b.Dx() > targetW {
			targetW = b.Dx()
		}
		if b.Dy() > targetH {
			targetH = b.Dy()
		}
	}
	// libx264 with yuv420p needs even dimensions.
	targetW += targetW % 2
	targetH += targetH % 2

	out := make([]*image.RGBA, 0, len(ordered))
	for _, f := range ordered {
		out = append(out, fitFrame(f.Image, targetW, targetH))
	}
	return out
}

// fitFrame scales src to fit inside a targetW x targetH canvas preserving
// aspect ratio, centered on black padding.
func fitFrame(src *image.RGBA, targetW, targetH int) *image.RGBA {
	canvas := image.NewRGBA(image.Rect(0, 0, targetW, targetH))

	b := src.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return canvas
	}

	scale := float64(targetW) / float64(b.Dx())
	if s := float64(targetH) / float64(b.Dy()); s < scale {
		scale = s
	}
	w := roundHalfUp(float64(b.Dx()) * scale)
	h := roundHalfUp(float64(b.Dy()) * scale)
	if w > targetW {
		w = targetW
	}
	if h > targetH {
		h = targetH
	}

	x0 := (targetW - w) / 2
	y0 := (targetH - h) / 2
	dst := image.Rect(x0, y0, x0+w, y0+h)

	if w == b.Dx() && h == b.Dy() {
		imgdraw.Draw(canvas, dst, src, b.Min, imgdraw.Src)
		return canvas
	}

	// Catmull-Rom holds up well when upscaling small frames.
	xdraw.CatmullRom.Scale(canvas, dst, src, b, xdraw.Src, nil)
	return canvas
}
