package film

import (
	"fmt"

	"go.uber.org/zap"
)

// Tunable content-detection constants, validated against sample strips.
const (
	// minWidthRetention / minHeightRetention bound how far the crop may move
	// in from the band edges. A crop never keeps less than this share of the
	// band, which is what protects real picture content from over-cropping.
	minWidthRetention  = 0.8
	minHeightRetention = 0.8

	// contentThresholdFrac: a row or column counts as picture content once
	// its mean luminance exceeds this fraction of the profile maximum.
	contentThresholdFrac = 0.15

	// contentFloor is the absolute luminance below which a band is treated
	// as content-free (uniformly black strip ends, blank gaps).
	contentFloor = 8.0

	// edgePadding pulls each detected edge back out a little so content is
	// not clipped by a hard threshold crossing.
	edgePadding = 2
)

// Cropper tightens a candidate band to the rectangle holding only picture
// content, excluding sprocket holes and black margins.
type Cropper struct {
	logger *zap.Logger
}

func NewCropper(logger *zap.Logger) *Cropper {
	return &Cropper{logger: logger}
}

// Crop returns the content rect for the band. It never fails for a band with
// any detectable content: an unconfident side simply falls back to the band
// edge. A content-free or zero-area band returns ErrCropRejected.
func (c *Cropper) Crop(strip *Strip, band FrameCandidate) (CropRect, error) {
	if strip == nil {
		return CropRect{}, ErrInvalidInput
	}

	top, bottom := clampRange(band.Top, band.Bottom, strip.Height())
	w := strip.Width()
	if bottom <= top || w <= 0 {
		return CropRect{}, fmt.Errorf("%w: zero-area band %d..%d", ErrCropRejected, band.Top, band.Bottom)
	}

	cols := strip.ColMeans(0, w, top, bottom)
	maxCol := maxOf(cols)
	if maxCol < contentFloor {
		return CropRect{}, fmt.Errorf("%w: band %d..%d below luminance floor", ErrCropRejected, top, bottom)
	}

	left, right := contentSpan(cols, maxCol*contentThresholdFrac, maxInset(w, minWidthRetention))

	bandH := bottom - top
	rows := strip.RowMeans(top, bottom, left, right)
	maxRow := maxOf(rows)
	rTop, rBottom := 0, bandH
	if maxRow >= contentFloor {
		rTop, rBottom = contentSpan(rows, maxRow*contentThresholdFrac, maxInset(bandH, minHeightRetention))
	}

	rect := CropRect{
		Left:   left,
		Top:    top + rTop,
		Right:  right,
		Bottom: top + rBottom,
	}
	if rect.Empty() {
		return CropRect{}, fmt.Errorf("%w: band %d..%d cropped to zero area", ErrCropRejected, top, bottom)
	}

	c.logger.Debug("band cropped",
		zap.Int("band_top", top), zap.Int("band_bottom", bottom),
		zap.String("rect", rect.String()))

	return rect, nil
}

// contentSpan scans a profile inward from both ends for the first value over
// the threshold, bounded by maxIn positions per side. A side with no
// confident crossing inside the bound keeps its original extent.
func contentSpan(profile []float64, threshold float64, maxIn int) (int, int) {
	n := len(profile)

	lo := 0
	for i := 0; i <= maxIn && i < n; i++ {
		if profile[i] > threshold {
			lo = i - edgePadding
			if lo < 0 {
				lo = 0
			}
			break
		}
	}

	hi := n
	for i := n - 1; i >= n-1-maxIn && i >= 0; i-- {
		if profile[i] > threshold {
			hi = i + 1 + edgePadding
			if hi > n {
				hi = n
			}
			break
		}
	}

	if hi <= lo {
		return 0, n
	}
	return lo, hi
}

// maxInset splits the allowed (1 - retention) share evenly across both
// sides, rounded half up so a retention like 0.8 yields an exact pixel bound.
func maxInset(extent int, retention float64) int {
	return roundHalfUp(float64(extent) * (1 - retention) / 2)
}
