package ffmpeg

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/JackerKun/lomokino-processor/internal/domain/port"
	"go.uber.org/zap"
)

// Writer renders an ordered JPEG frame sequence to an MP4 file with the
// ffmpeg binary.
type Writer struct {
	codec  string
	logger *zap.Logger
}

func NewWriter(codec string, logger *zap.Logger) *Writer {
	if codec == "" {
		codec = "libx264"
	}
	return &Writer{codec: codec, logger: logger}
}

// WriteVideo encodes the frames matching framePattern (an ffmpeg image2
// pattern such as dir/frame_%03d.jpg) at the given frame rate.
func (w *Writer) WriteVideo(ctx context.Context, framePattern string, frameCount, fps int, outputPath string) (*port.VideoResult, error) {
	if frameCount == 0 {
		return nil, fmt.Errorf("no frames to encode")
	}
	if fps <= 0 {
		fps = 12
	}

	cmd := exec.CommandContext(ctx, "ffmpeg", w.encodeArgs(framePattern, fps, outputPath)...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg error: %w, output: %s", err, string(output))
	}

	if _, err := os.Stat(outputPath); err != nil {
		return nil, fmt.Errorf("ffmpeg produced no output: %w", err)
	}

	duration, err := w.probeDuration(ctx, outputPath)
	if err != nil {
		w.logger.Warn("could not probe video duration", zap.Error(err))
	}

	w.logger.Info("video encoded",
		zap.Int("frames", frameCount),
		zap.Int("fps", fps),
		zap.Float64("duration", duration),
		zap.String("output", outputPath),
	)

	return &port.VideoResult{OutputPath: outputPath, Duration: duration}, nil
}

func (w *Writer) encodeArgs(framePattern string, fps int, outputPath string) []string {
	return []string{
		"-framerate", strconv.Itoa(fps),
		"-i", framePattern,
		"-c:v", w.codec,
		"-pix_fmt", "yuv420p",
		"-y",
		outputPath,
	}
}

func (w *Writer) probeDuration(ctx context.Context, videoPath string) (float64, error) {
	cmd := exec.CommandContext(ctx, "ffprobe",
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		videoPath,
	)
	output, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe: %w", err)
	}

	durationStr := strings.TrimSpace(string(output))
	duration, err := strconv.ParseFloat(durationStr, 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration: %w", err)
	}
	return duration, nil
}
