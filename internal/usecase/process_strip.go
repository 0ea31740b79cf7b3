package usecase

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/JackerKun/lomokino-processor/internal/domain/entity"
	"github.com/JackerKun/lomokino-processor/internal/domain/port"
	"github.com/JackerKun/lomokino-processor/internal/film"
	"github.com/JackerKun/lomokino-processor/internal/infra/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ProcessStripUseCase runs the per-strip pipeline: load, detect bands, crop
// each band to content, save frames, normalize, and encode the video. Each
// strip is fully independent; one use case instance may process many strips
// concurrently.
type ProcessStripUseCase struct {
	detector port.BoundaryDetector
	cropper  port.ContentCropper
	video    port.VideoWriter
	logger   *zap.Logger
	cfg      ProcessStripConfig
}

type ProcessStripConfig struct {
	FPS         int
	CropWorkers int
	JPEGQuality int
}

// StripRequest describes one strip to process. ManualRects, when set,
// bypasses detection and cropping entirely: the rects are resolved manual
// selections in source coordinates, already ordered.
type StripRequest struct {
	InputPath   string
	OutputDir   string
	Name        string // output base name; defaults to the input file stem
	WorkDir     string // scratch space for normalized frames
	Detection   film.DetectionConfig
	FPS         int // 0 uses the configured default
	ManualRects []film.CropRect
}

// StripResult is the outcome for one strip.
type StripResult struct {
	Summary   entity.Summary
	FramesDir string
	VideoPath string
	Duration  float64
}

func NewProcessStripUseCase(
	detector port.BoundaryDetector,
	cropper port.ContentCropper,
	video port.VideoWriter,
	logger *zap.Logger,
	cfg ProcessStripConfig,
) *ProcessStripUseCase {
	if cfg.FPS <= 0 {
		cfg.FPS = 12
	}
	if cfg.CropWorkers <= 0 {
		cfg.CropWorkers = 4
	}
	if cfg.JPEGQuality <= 0 {
		cfg.JPEGQuality = 90
	}
	return &ProcessStripUseCase{
		detector: detector,
		cropper:  cropper,
		video:    video,
		logger:   logger,
		cfg:      cfg,
	}
}

func (uc *ProcessStripUseCase) Execute(ctx context.Context, req StripRequest) (*StripResult, error) {
	tracer := otel.Tracer("usecase")
	ctx, span := tracer.Start(ctx, "ProcessStripUseCase.Execute")
	defer span.End()

	name := req.Name
	if name == "" {
		base := filepath.Base(req.InputPath)
		name = strings.TrimSuffix(base, filepath.Ext(base))
	}
	span.SetAttributes(attribute.String("strip.name", name))

	log := uc.logger.With(zap.String("strip", name))

	loadStart := time.Now()
	strip, err := film.LoadStrip(req.InputPath)
	if err != nil {
		return nil, fmt.Errorf("load strip %s: %w", req.InputPath, err)
	}
	metrics.StripProcessingDuration.WithLabelValues("load").Observe(time.Since(loadStart).Seconds())

	log.Info("strip loaded", zap.Int("width", strip.Width()), zap.Int("height", strip.Height()))

	var (
		rects    []film.CropRect
		summary  entity.Summary
		rejected int
	)

	if len(req.ManualRects) > 0 {
		rects, rejected = uc.resolveManual(strip, req.ManualRects, log)
		summary.BandsFound = len(req.ManualRects)
	} else {
		detStart := time.Now()
		ctxDet, spanDet := tracer.Start(ctx, "detect_boundaries")
		bounds, err := uc.detector.Detect(strip, req.Detection)
		spanDet.End()
		if err != nil {
			return nil, fmt.Errorf("detect boundaries: %w", err)
		}
		metrics.StripProcessingDuration.WithLabelValues("detect").Observe(time.Since(detStart).Seconds())

		bands := bounds.Bands()
		summary.BandsFound = len(bands)
		summary.Degenerate = len(bands) == 1 && req.Detection.FrameHeight == 0
		metrics.BandsDetectedTotal.Add(float64(len(bands)))

		cropStart := time.Now()
		_, spanCrop := tracer.Start(ctxDet, "crop_bands")
		rects, rejected, err = uc.cropBands(ctx, strip, bands, log)
		spanCrop.End()
		if err != nil {
			return nil, err
		}
		metrics.StripProcessingDuration.WithLabelValues("crop").Observe(time.Since(cropStart).Seconds())
	}

	summary.FramesRejected = rejected
	metrics.FramesRejectedTotal.Add(float64(rejected))

	frames := make([]*film.ExtractedFrame, 0, len(rects))
	for i, rect := range rects {
		img := strip.Extract(rect)
		if img == nil {
			continue
		}
		frames = append(frames, &film.ExtractedFrame{SourceRect: rect, Image: img, Order: i})
	}
	summary.FramesExtracted = len(frames)
	metrics.FramesExtractedTotal.Add(float64(len(frames)))

	if len(frames) == 0 {
		return &StripResult{Summary: summary}, fmt.Errorf("%s: %w", name, film.ErrExtractionEmpty)
	}

	framesDir := filepath.Join(req.OutputDir, name+"_frames")
	writeStart := time.Now()
	if err := uc.writeFrames(ctx, frames, framesDir); err != nil {
		return &StripResult{Summary: summary}, fmt.Errorf("write frames: %w", err)
	}
	metrics.StripProcessingDuration.WithLabelValues("write_frames").Observe(time.Since(writeStart).Seconds())

	videoPath := filepath.Join(req.OutputDir, name+"_video.mp4")
	encStart := time.Now()
	ctxEnc, spanEnc := tracer.Start(ctx, "encode_video")
	dur, err := uc.encodeVideo(ctxEnc, frames, req, videoPath)
	spanEnc.End()
	if err != nil {
		return &StripResult{Summary: summary, FramesDir: framesDir}, fmt.Errorf("encode video: %w", err)
	}
	metrics.StripProcessingDuration.WithLabelValues("encode").Observe(time.Since(encStart).Seconds())

	log.Info("strip processed",
		zap.Int("bands_found", summary.BandsFound),
		zap.Int("frames_extracted", summary.FramesExtracted),
		zap.Int("frames_rejected", summary.FramesRejected),
		zap.Bool("degenerate", summary.Degenerate),
		zap.String("video", videoPath),
	)

	return &StripResult{
		Summary:   summary,
		FramesDir: framesDir,
		VideoPath: videoPath,
		Duration:  dur,
	}, nil
}

// cropBands crops every band concurrently. Band order is preserved; a
// rejected band leaves a gap, not a reordering. Cancelling the context
// abandons the remaining bands.
func (uc *ProcessStripUseCase) cropBands(
	ctx context.Context,
	strip *film.Strip,
	bands []film.FrameCandidate,
	log *zap.Logger,
) ([]film.CropRect, int, error) {
	type cropResult struct {
		rect film.CropRect
		err  error
	}

	results := make([]cropResult, len(bands))
	sem := make(chan struct{}, uc.cfg.CropWorkers)
	var wg sync.WaitGroup

	for i, band := range bands {
		wg.Add(1)
		go func(i int, band film.FrameCandidate) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			if ctx.Err() != nil {
				results[i].err = ctx.Err()
				return
			}
			results[i].rect, results[i].err = uc.cropper.Crop(strip, band)
		}(i, band)
	}
	wg.Wait()

	rects := make([]film.CropRect, 0, len(bands))
	rejected := 0
	for i, res := range results {
		switch {
		case res.err == nil:
			rects = append(rects, res.rect)
		case errors.Is(res.err, film.ErrCropRejected):
			rejected++
			log.Info("band skipped", zap.Int("band", i), zap.Error(res.err))
		default:
			return nil, 0, fmt.Errorf("crop band %d: %w", i, res.err)
		}
	}
	return rects, rejected, nil
}

// resolveManual clamps manual selection rects to the strip and drops the
// ones that clamp to zero area.
func (uc *ProcessStripUseCase) resolveManual(
	strip *film.Strip,
	manual []film.CropRect,
	log *zap.Logger,
) ([]film.CropRect, int) {
	rects := make([]film.CropRect, 0, len(manual))
	rejected := 0
	for i, r := range manual {
		clamped := r.Clamp(strip.Width(), strip.Height())
		if clamped.Empty() {
			rejected++
			log.Warn("zero-area selection rejected", zap.Int("selection", i), zap.String("rect", r.String()))
			continue
		}
		rects = append(rects, clamped)
	}
	return rects, rejected
}

func (uc *ProcessStripUseCase) writeFrames(ctx context.Context, frames []*film.ExtractedFrame, dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	for i, f := range frames {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		path := filepath.Join(dir, fmt.Sprintf("frame_%03d.jpg", i))
		if err := uc.writeJPEG(path, f.Image); err != nil {
			return err
		}
	}
	return nil
}

// encodeVideo normalizes the frames to one size, renders them to scratch
// space, and hands the sequence to the video writer.
func (uc *ProcessStripUseCase) encodeVideo(
	ctx context.Context,
	frames []*film.ExtractedFrame,
	req StripRequest,
	videoPath string,
) (float64, error) {
	fps := req.FPS
	if fps <= 0 {
		fps = uc.cfg.FPS
	}

	workDir := req.WorkDir
	if workDir == "" {
		workDir = os.TempDir()
	}
	normDir := filepath.Join(workDir, "normalized")
	if err := os.MkdirAll(normDir, 0755); err != nil {
		return 0, err
	}
	defer os.RemoveAll(normDir)

	normalized := film.Normalize(frames)
	for i, img := range normalized {
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		default:
		}
		path := filepath.Join(normDir, fmt.Sprintf("frame_%03d.jpg", i))
		if err := uc.writeJPEG(path, img); err != nil {
			return 0, err
		}
	}

	pattern := filepath.Join(normDir, "frame_%03d.jpg")
	res, err := uc.video.WriteVideo(ctx, pattern, len(normalized), fps, videoPath)
	if err != nil {
		return 0, err
	}
	return res.Duration, nil
}

func (uc *ProcessStripUseCase) writeJPEG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := jpeg.Encode(f, img, &jpeg.Options{Quality: uc.cfg.JPEGQuality}); err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return nil
}
