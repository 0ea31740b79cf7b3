package film

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// stripWithGaps builds a w x h grayscale strip of bright frames separated by
// thin dark gap rows every frameH rows, the shape a backlit LomoKino strip
// scan actually has.
func stripWithGaps(t *testing.T, w, h, frameH, gapH int) *Strip {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		v := uint8(200)
		if frameH-(y%frameH) <= gapH {
			v = 5
		}
		for x := 0; x < w; x++ {
			img.SetGray(x, y, color.Gray{Y: v})
		}
	}
	s, err := NewStrip(img)
	require.NoError(t, err)
	return s
}

func uniformStrip(t *testing.T, w, h int, v uint8) *Strip {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetGray(x, y, color.Gray{Y: v})
		}
	}
	s, err := NewStrip(img)
	require.NoError(t, err)
	return s
}

func requireValidBoundaries(t *testing.T, bounds BoundaryList, h, minDist int) {
	t.Helper()
	require.GreaterOrEqual(t, len(bounds), 2)
	assert.Equal(t, 0, bounds[0])
	assert.Equal(t, h, bounds[len(bounds)-1])
	for i := 1; i < len(bounds); i++ {
		assert.Greater(t, bounds[i], bounds[i-1], "boundaries must be strictly increasing")
		if minDist > 0 {
			assert.GreaterOrEqual(t, bounds[i]-bounds[i-1], minDist, "gap %d below minimum", i)
		}
	}
}

func TestDetectSeparatedFrames(t *testing.T) {
	// Six 200px frames on a 300px-wide strip with 4px dark gaps.
	strip := stripWithGaps(t, 300, 1200, 200, 4)
	d := NewDetector(zap.NewNop())

	bounds, err := d.Detect(strip, DetectionConfig{})
	require.NoError(t, err)

	bands := bounds.Bands()
	assert.Len(t, bands, 6)
	requireValidBoundaries(t, bounds, 1200, 0)

	// Each detected boundary should sit on or near a gap.
	for _, b := range bounds[1 : len(bounds)-1] {
		nearest := ((b + 100) / 200) * 200
		assert.InDelta(t, nearest, b, 8, "boundary %d far from any gap", b)
	}
}

func TestDetectRespectsMinFrameDistance(t *testing.T) {
	strip := stripWithGaps(t, 300, 1200, 200, 4)
	d := NewDetector(zap.NewNop())

	bounds, err := d.Detect(strip, DetectionConfig{MinFrameDistance: 350})
	require.NoError(t, err)
	requireValidBoundaries(t, bounds, 1200, 350)
}

func TestDetectMinDistanceExceedsHeight(t *testing.T) {
	strip := stripWithGaps(t, 300, 400, 100, 4)
	d := NewDetector(zap.NewNop())

	bounds, err := d.Detect(strip, DetectionConfig{MinFrameDistance: 1000})
	require.NoError(t, err)
	assert.Equal(t, BoundaryList{0, 400}, bounds)
}

func TestDetectUniformStripIsSingleBand(t *testing.T) {
	strip := uniformStrip(t, 300, 900, 128)
	d := NewDetector(zap.NewNop())

	bounds, err := d.Detect(strip, DetectionConfig{})
	require.NoError(t, err)
	assert.Equal(t, BoundaryList{0, 900}, bounds)
	assert.Len(t, bounds.Bands(), 1)
}

func TestDetectIsDeterministic(t *testing.T) {
	strip := stripWithGaps(t, 300, 1000, 250, 5)
	d := NewDetector(zap.NewNop())

	first, err := d.Detect(strip, DetectionConfig{})
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		again, err := d.Detect(strip, DetectionConfig{})
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestDetectNilStrip(t *testing.T) {
	d := NewDetector(zap.NewNop())
	_, err := d.Detect(nil, DetectionConfig{})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestFixedBands(t *testing.T) {
	t.Run("even division", func(t *testing.T) {
		bounds := fixedBands(1200, 200)
		assert.Equal(t, BoundaryList{0, 200, 400, 600, 800, 1000, 1200}, bounds)
		assert.Len(t, bounds.Bands(), 6)
	})

	t.Run("trailing sliver merges into last band", func(t *testing.T) {
		bounds := fixedBands(1210, 200)
		assert.Equal(t, BoundaryList{0, 200, 400, 600, 800, 1000, 1210}, bounds)
	})

	t.Run("usable remainder becomes its own band", func(t *testing.T) {
		bounds := fixedBands(1250, 200)
		assert.Equal(t, BoundaryList{0, 200, 400, 600, 800, 1000, 1200, 1250}, bounds)
	})

	t.Run("frame height over strip height keeps one band", func(t *testing.T) {
		bounds := fixedBands(150, 400)
		assert.Equal(t, BoundaryList{0, 150}, bounds)
	})
}

func TestDetectFrameHeightBypassesDetection(t *testing.T) {
	// Uniform strip yields nothing to detect; a fixed height still slices it.
	strip := uniformStrip(t, 300, 1200, 128)
	d := NewDetector(zap.NewNop())

	bounds, err := d.Detect(strip, DetectionConfig{FrameHeight: 200})
	require.NoError(t, err)
	assert.Len(t, bounds.Bands(), 6)
}

func TestResolveTier(t *testing.T) {
	d := NewDetector(zap.NewNop())

	t.Run("explicit sensitivity passes through", func(t *testing.T) {
		strip := uniformStrip(t, 300, 1200, 128)
		assert.Equal(t, SensitivityHigh, d.resolveTier(strip, SensitivityHigh))
		assert.Equal(t, SensitivityLow, d.resolveTier(strip, SensitivityLow))
	})

	t.Run("auto picks spacing near half a frame", func(t *testing.T) {
		// 300 wide: expected frame ~225 tall, want spacing ~112. The medium
		// divisor gives 1200/10 = 120, the closest of the three tiers.
		strip := uniformStrip(t, 300, 1200, 128)
		assert.Equal(t, SensitivityMedium, d.resolveTier(strip, SensitivityAuto))
	})
}

func TestParseSensitivity(t *testing.T) {
	cases := []struct {
		in      string
		want    Sensitivity
		wantErr bool
	}{
		{"", SensitivityAuto, false},
		{"auto", SensitivityAuto, false},
		{"low", SensitivityLow, false},
		{"medium", SensitivityMedium, false},
		{"high", SensitivityHigh, false},
		{"extreme", SensitivityAuto, true},
	}
	for _, tc := range cases {
		got, err := ParseSensitivity(tc.in)
		if tc.wantErr {
			assert.Error(t, err, "input %q", tc.in)
			continue
		}
		assert.NoError(t, err, "input %q", tc.in)
		assert.Equal(t, tc.want, got, "input %q", tc.in)
		assert.Equal(t, got, mustParse(t, got.String()))
	}
}

func mustParse(t *testing.T, s string) Sensitivity {
	t.Helper()
	v, err := ParseSensitivity(s)
	require.NoError(t, err)
	return v
}

func TestBoundaryListBands(t *testing.T) {
	assert.Nil(t, BoundaryList{0}.Bands())
	assert.Nil(t, BoundaryList(nil).Bands())

	bands := BoundaryList{0, 100, 250}.Bands()
	assert.Equal(t, []FrameCandidate{{0, 100}, {100, 250}}, bands)
	assert.Equal(t, 100, bands[0].Height())
	assert.Equal(t, 150, bands[1].Height())
}
