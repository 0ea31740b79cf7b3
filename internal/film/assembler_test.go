package film

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solidFrame(w, h int, c color.RGBA, order int) *ExtractedFrame {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return &ExtractedFrame{Image: img, Order: order}
}

func TestNormalizeUniformSize(t *testing.T) {
	frames := []*ExtractedFrame{
		solidFrame(100, 80, color.RGBA{R: 255, A: 255}, 0),
		solidFrame(51, 40, color.RGBA{G: 255, A: 255}, 1),
		solidFrame(30, 60, color.RGBA{B: 255, A: 255}, 2),
	}

	out := Normalize(frames)
	require.Len(t, out, 3)
	for i, img := range out {
		b := img.Bounds()
		assert.Equal(t, 100, b.Dx(), "frame %d width", i)
		assert.Equal(t, 80, b.Dy(), "frame %d height", i)
	}
}

func TestNormalizeBumpsOddDimensionsEven(t *testing.T) {
	out := Normalize([]*ExtractedFrame{solidFrame(31, 31, color.RGBA{R: 200, A: 255}, 0)})
	require.Len(t, out, 1)
	b := out[0].Bounds()
	assert.Equal(t, 32, b.Dx())
	assert.Equal(t, 32, b.Dy())
	assert.Zero(t, b.Dx()%2)
	assert.Zero(t, b.Dy()%2)
}

func TestNormalizePadsWithoutStretching(t *testing.T) {
	// A narrow green frame next to a large one: it must be scaled to fit and
	// centered, with untouched padding left and right.
	frames := []*ExtractedFrame{
		solidFrame(100, 100, color.RGBA{R: 255, A: 255}, 0),
		solidFrame(25, 100, color.RGBA{G: 255, A: 255}, 1),
	}

	out := Normalize(frames)
	require.Len(t, out, 2)

	narrow := out[1]
	b := narrow.Bounds()
	assert.Equal(t, 100, b.Dx())
	assert.Equal(t, 100, b.Dy())

	center := narrow.RGBAAt(50, 50)
	assert.Greater(t, center.G, uint8(200), "content should sit in the middle")
	assert.Equal(t, color.RGBA{}, narrow.RGBAAt(2, 50), "left padding should stay empty")
	assert.Equal(t, color.RGBA{}, narrow.RGBAAt(97, 50), "right padding should stay empty")
}

func TestNormalizeFollowsFrameOrder(t *testing.T) {
	frames := []*ExtractedFrame{
		solidFrame(10, 10, color.RGBA{B: 255, A: 255}, 2),
		solidFrame(10, 10, color.RGBA{R: 255, A: 255}, 0),
		solidFrame(10, 10, color.RGBA{G: 255, A: 255}, 1),
	}

	out := Normalize(frames)
	require.Len(t, out, 3)
	assert.Greater(t, out[0].RGBAAt(5, 5).R, uint8(200))
	assert.Greater(t, out[1].RGBAAt(5, 5).G, uint8(200))
	assert.Greater(t, out[2].RGBAAt(5, 5).B, uint8(200))
}

func TestNormalizeEmpty(t *testing.T) {
	assert.Nil(t, Normalize(nil))
	assert.Nil(t, Normalize([]*ExtractedFrame{}))
}

func TestNormalizeDoesNotReorderInput(t *testing.T) {
	frames := []*ExtractedFrame{
		solidFrame(10, 10, color.RGBA{B: 255, A: 255}, 1),
		solidFrame(10, 10, color.RGBA{R: 255, A: 255}, 0),
	}
	Normalize(frames)
	assert.Equal(t, 1, frames[0].Order, "input slice must not be reordered")
}
