package film

import (
	"fmt"
	"math"

	"go.uber.org/zap"
)

// Sensitivity selects how aggressively boundary detection splits a strip.
type Sensitivity int

const (
	SensitivityAuto Sensitivity = iota
	SensitivityLow
	SensitivityMedium
	SensitivityHigh
)

func (s Sensitivity) String() string {
	switch s {
	case SensitivityLow:
		return "low"
	case SensitivityMedium:
		return "medium"
	case SensitivityHigh:
		return "high"
	default:
		return "auto"
	}
}

func ParseSensitivity(s string) (Sensitivity, error) {
	switch s {
	case "", "auto":
		return SensitivityAuto, nil
	case "low":
		return SensitivityLow, nil
	case "medium":
		return SensitivityMedium, nil
	case "high":
		return SensitivityHigh, nil
	}
	return SensitivityAuto, fmt.Errorf("unknown sensitivity %q", s)
}

// DetectionConfig controls boundary detection for one strip.
type DetectionConfig struct {
	Sensitivity Sensitivity

	// MinFrameDistance is the minimum row distance between accepted
	// boundaries, in pixels. 0 derives it from strip height and sensitivity.
	MinFrameDistance int

	// FrameHeight, when positive, bypasses detection entirely and slices the
	// strip into fixed-height bands.
	FrameHeight int
}

const (
	// smoothWindow flattens sensor noise in the row profile before the
	// gradient is taken.
	smoothWindow = 5

	// targetFrameAspect is the plausible height/width ratio of a single
	// LomoKino frame, used by auto sensitivity.
	targetFrameAspect = 0.75

	// minBandHeight drops sliver bands produced by a manual frame height
	// that does not divide the strip evenly.
	minBandHeight = 20
)

// Per-tier gradient thresholds (multiples of the gradient's standard
// deviation) and spacing divisors (minFrameDistance = H / divisor).
var tierParams = map[Sensitivity]struct {
	sigma   float64
	divisor float64
}{
	SensitivityLow:    {sigma: 3.0, divisor: 6},
	SensitivityMedium: {sigma: 2.0, divisor: 10},
	SensitivityHigh:   {sigma: 1.25, divisor: 18},
}

// Detector segments a strip image into candidate frame bands.
type Detector struct {
	logger *zap.Logger
}

func NewDetector(logger *zap.Logger) *Detector {
	return &Detector{logger: logger}
}

// Detect produces the ordered boundary rows for the strip. Row 0 and row H
// are always present, every gap between consecutive boundaries is at least
// the resolved minimum frame distance, and a strip where nothing can be
// detected comes back as a single full-strip band rather than an error.
func (d *Detector) Detect(strip *Strip, cfg DetectionConfig) (BoundaryList, error) {
	if strip == nil || strip.Width() <= 0 || strip.Height() <= 0 {
		return nil, ErrInvalidInput
	}

	h := strip.Height()
	if cfg.FrameHeight > 0 {
		return fixedBands(h, cfg.FrameHeight), nil
	}

	tier := d.resolveTier(strip, cfg.Sensitivity)
	minDist := cfg.MinFrameDistance
	if minDist <= 0 {
		minDist = int(float64(h) / tierParams[tier].divisor)
		if minDist < 1 {
			minDist = 1
		}
	}
	if minDist > h {
		d.logger.Info("minimum frame distance exceeds strip height, using single band",
			zap.Int("min_distance", minDist), zap.Int("height", h))
		return BoundaryList{0, h}, nil
	}

	profile := smooth(strip.RowMeans(0, h, 0, strip.Width()), smoothWindow)
	grad := gradient(profile)
	threshold := tierParams[tier].sigma * stddev(grad)

	candidates := localMaxima(grad, threshold)

	bounds := BoundaryList{0}
	last := 0
	for _, y := range candidates {
		if y-last >= minDist && h-y >= minDist {
			bounds = append(bounds, y)
			last = y
		}
	}
	bounds = append(bounds, h)

	if len(bounds) == 2 {
		d.logger.Info("no internal boundaries detected, treating strip as one frame",
			zap.Int("height", h), zap.String("sensitivity", tier.String()))
	} else {
		d.logger.Debug("boundaries detected",
			zap.Int("bands", len(bounds)-1),
			zap.Int("min_distance", minDist),
			zap.String("sensitivity", tier.String()))
	}

	return bounds, nil
}

// resolveTier maps auto sensitivity to the tier whose derived spacing best
// matches half of the expected single-frame height for this strip shape.
func (d *Detector) resolveTier(strip *Strip, s Sensitivity) Sensitivity {
	if s != SensitivityAuto {
		return s
	}

	estFrameHeight := targetFrameAspect * float64(strip.Width())
	wantDist := estFrameHeight / 2

	best := SensitivityMedium
	bestDiff := math.Inf(1)
	for _, tier := range []Sensitivity{SensitivityLow, SensitivityMedium, SensitivityHigh} {
		dist := float64(strip.Height()) / tierParams[tier].divisor
		if diff := math.Abs(dist - wantDist); diff < bestDiff {
			bestDiff = diff
			best = tier
		}
	}
	return best
}

// fixedBands slices a strip of height h into bands of the given height. A
// trailing sliver shorter than minBandHeight is merged into the last band.
func fixedBands(h, frameHeight int) BoundaryList {
	bounds := BoundaryList{0}
	for y := frameHeight; y < h; y += frameHeight {
		bounds = append(bounds, y)
	}
	if last := bounds[len(bounds)-1]; h-last < minBandHeight && len(bounds) > 1 {
		bounds[len(bounds)-1] = h
	} else {
		bounds = append(bounds, h)
	}
	return bounds
}
