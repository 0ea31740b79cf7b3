package port

import "context"

type VideoResult struct {
	OutputPath string
	Duration   float64
}

// VideoWriter stitches an ordered sequence of uniform-size frame images into
// a playable video file.
type VideoWriter interface {
	WriteVideo(ctx context.Context, framePattern string, frameCount int, fps int, outputPath string) (*VideoResult, error)
}
