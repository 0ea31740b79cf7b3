package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"syscall"

	"github.com/JackerKun/lomokino-processor/internal/film"
	"github.com/JackerKun/lomokino-processor/internal/infra/ffmpeg"
	"github.com/JackerKun/lomokino-processor/internal/usecase"
	"github.com/JackerKun/lomokino-processor/pkg/logger"
	"go.uber.org/zap"
)

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".tif":  true,
	".tiff": true,
	".bmp":  true,
}

type options struct {
	outputDir   string
	frameHeight int
	minDistance int
	sensitivity string
	fps         int
	workers     int
	logLevel    string
}

func main() {
	os.Exit(run())
}

func run() int {
	var opts options
	flag.StringVar(&opts.outputDir, "output-dir", "output", "directory for extracted frames and videos")
	flag.StringVar(&opts.outputDir, "o", "output", "shorthand for -output-dir")
	flag.IntVar(&opts.frameHeight, "frame-height", 0, "fixed frame height in pixels, bypasses detection")
	flag.IntVar(&opts.frameHeight, "f", 0, "shorthand for -frame-height")
	flag.IntVar(&opts.minDistance, "min-frame-distance", 0, "minimum distance between frame boundaries in pixels")
	flag.StringVar(&opts.sensitivity, "detection-sensitivity", "auto", "boundary detection sensitivity: auto, low, medium or high")
	flag.IntVar(&opts.fps, "fps", 12, "frame rate of the assembled video")
	flag.IntVar(&opts.workers, "workers", 2, "number of strips to process in parallel")
	flag.StringVar(&opts.logLevel, "log-level", "info", "log level: debug, info, warn or error")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() == 0 {
		usage()
		return 2
	}

	log, err := logger.New(opts.logLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, "invalid log level:", err)
		return 2
	}
	defer log.Sync()

	sensitivity, err := film.ParseSensitivity(opts.sensitivity)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	inputs, err := collectInputs(flag.Args())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	if len(inputs) == 0 {
		fmt.Fprintln(os.Stderr, "no image files matched the given arguments")
		return 2
	}

	if err := os.MkdirAll(opts.outputDir, 0755); err != nil {
		fmt.Fprintln(os.Stderr, "create output dir:", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pipeline := usecase.NewProcessStripUseCase(
		film.NewDetector(log),
		film.NewCropper(log),
		ffmpeg.NewWriter("libx264", log),
		log,
		usecase.ProcessStripConfig{FPS: opts.fps},
	)

	detection := film.DetectionConfig{
		Sensitivity:      sensitivity,
		MinFrameDistance: opts.minDistance,
		FrameHeight:      opts.frameHeight,
	}

	failures := processAll(ctx, pipeline, inputs, opts, detection, log)

	if ctx.Err() != nil {
		fmt.Fprintln(os.Stderr, "interrupted")
		return 1
	}
	if failures > 0 {
		fmt.Fprintf(os.Stderr, "%d of %d strips failed\n", failures, len(inputs))
		return 1
	}
	return 0
}

func processAll(
	ctx context.Context,
	pipeline *usecase.ProcessStripUseCase,
	inputs []string,
	opts options,
	detection film.DetectionConfig,
	log *zap.Logger,
) int {
	workers := opts.workers
	if workers < 1 {
		workers = 1
	}

	var (
		mu       sync.Mutex
		failures int
		wg       sync.WaitGroup
	)
	sem := make(chan struct{}, workers)

	for _, input := range inputs {
		wg.Add(1)
		go func(input string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			if ctx.Err() != nil {
				return
			}
			if err := processOne(ctx, pipeline, input, opts, detection); err != nil {
				log.Error("strip failed", zap.String("input", input), zap.Error(err))
				mu.Lock()
				failures++
				mu.Unlock()
			}
		}(input)
	}
	wg.Wait()
	return failures
}

func processOne(
	ctx context.Context,
	pipeline *usecase.ProcessStripUseCase,
	input string,
	opts options,
	detection film.DetectionConfig,
) error {
	workDir, err := os.MkdirTemp("", "lomokino-*")
	if err != nil {
		return err
	}
	defer os.RemoveAll(workDir)

	res, err := pipeline.Execute(ctx, usecase.StripRequest{
		InputPath: input,
		OutputDir: opts.outputDir,
		WorkDir:   workDir,
		Detection: detection,
		FPS:       opts.fps,
	})
	if err != nil {
		return err
	}

	fmt.Printf("%s: %d frames (%d bands, %d rejected) -> %s (%.2fs)\n",
		filepath.Base(input),
		res.Summary.FramesExtracted,
		res.Summary.BandsFound,
		res.Summary.FramesRejected,
		res.VideoPath,
		res.Duration,
	)
	if res.Summary.Degenerate {
		fmt.Printf("%s: no internal boundaries found, strip kept as a single frame\n", filepath.Base(input))
	}
	return nil
}

// collectInputs expands arguments into a sorted list of image paths. A
// directory argument contributes every image file directly inside it; glob
// patterns are passed through filepath.Glob.
func collectInputs(args []string) ([]string, error) {
	seen := make(map[string]bool)
	var inputs []string

	add := func(path string) {
		if !seen[path] && imageExtensions[strings.ToLower(filepath.Ext(path))] {
			seen[path] = true
			inputs = append(inputs, path)
		}
	}

	for _, arg := range args {
		info, err := os.Stat(arg)
		if err == nil && info.IsDir() {
			entries, err := os.ReadDir(arg)
			if err != nil {
				return nil, fmt.Errorf("read dir %s: %w", arg, err)
			}
			for _, e := range entries {
				if !e.IsDir() {
					add(filepath.Join(arg, e.Name()))
				}
			}
			continue
		}
		if err == nil {
			add(arg)
			continue
		}

		matches, globErr := filepath.Glob(arg)
		if globErr != nil {
			return nil, fmt.Errorf("bad pattern %s: %w", arg, globErr)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("no files match %s", arg)
		}
		for _, m := range matches {
			add(m)
		}
	}

	sort.Strings(inputs)
	return inputs, nil
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: lomokino [flags] <strip.jpg|dir|glob> ...

Cuts photographed LomoKino film strips into individual frames and
assembles them into a video. Requires ffmpeg on PATH.

Flags:
`)
	flag.PrintDefaults()
}
