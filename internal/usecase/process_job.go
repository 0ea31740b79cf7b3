package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/JackerKun/lomokino-processor/internal/domain/entity"
	"github.com/JackerKun/lomokino-processor/internal/domain/port"
	"github.com/JackerKun/lomokino-processor/internal/film"
	"github.com/JackerKun/lomokino-processor/internal/infra/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ProcessJobUseCase is the queue-facing wrapper around the strip pipeline:
// it owns job records, storage transfer, status publishing, dead-lettering
// and failure notification. Per-job processing is isolated; a fatal error in
// one job never affects another.
type ProcessJobUseCase struct {
	repo      port.JobRepository
	storage   port.StripStorage
	pipeline  *ProcessStripUseCase
	archiver  port.Archiver
	publisher port.StatusPublisher
	dlq       port.DLQPublisher
	notifier  port.FailureNotifier
	logger    *zap.Logger
	tempDir   string
	maxRetry  int
}

type ProcessJobConfig struct {
	TempDir    string
	MaxRetries int
}

func NewProcessJobUseCase(
	repo port.JobRepository,
	storage port.StripStorage,
	pipeline *ProcessStripUseCase,
	archiver port.Archiver,
	publisher port.StatusPublisher,
	dlq port.DLQPublisher,
	notifier port.FailureNotifier,
	logger *zap.Logger,
	cfg ProcessJobConfig,
) *ProcessJobUseCase {
	return &ProcessJobUseCase{
		repo:      repo,
		storage:   storage,
		pipeline:  pipeline,
		archiver:  archiver,
		publisher: publisher,
		dlq:       dlq,
		notifier:  notifier,
		logger:    logger,
		tempDir:   cfg.TempDir,
		maxRetry:  cfg.MaxRetries,
	}
}

func (uc *ProcessJobUseCase) Execute(ctx context.Context, rawMsg []byte) error {
	tracer := otel.Tracer("usecase")
	ctx, span := tracer.Start(ctx, "ProcessJobUseCase.Execute")
	defer span.End()

	totalTimer := time.Now()

	var msg entity.StripProcessingMessage
	if err := json.Unmarshal(rawMsg, &msg); err != nil {
		uc.logger.Error("failed to unmarshal message", zap.Error(err), zap.ByteString("body", rawMsg))
		_ = uc.dlq.PublishToDLQ(ctx, rawMsg, "unmarshal_error: "+err.Error())
		return nil
	}

	span.SetAttributes(
		attribute.String("job.id", msg.JobID.String()),
		attribute.String("job.strip_key", msg.StripKey),
	)

	log := uc.logger.With(zap.String("job_id", msg.JobID.String()), zap.String("strip_key", msg.StripKey))

	job, err := uc.repo.FindByID(ctx, msg.JobID)
	if err != nil {
		job = entity.NewJob(msg.UserID, msg.StripKey, msg.FileSize, uc.maxRetry)
		job.ID = msg.JobID
		if err := uc.repo.Create(ctx, job); err != nil {
			log.Error("failed to create job record", zap.Error(err))
			return fmt.Errorf("create job: %w", err)
		}
	}

	if !job.CanRetry() {
		log.Warn("job exhausted retries, sending to DLQ")
		_ = uc.handlePermanentFailure(ctx, job, msg, rawMsg, "max retries exceeded")
		return nil
	}

	job.MarkProcessing()
	if err := uc.repo.Update(ctx, job); err != nil {
		log.Error("failed to update job to PROCESSING", zap.Error(err))
		return fmt.Errorf("update job: %w", err)
	}

	metrics.ActiveWorkers.Inc()
	defer metrics.ActiveWorkers.Dec()

	if err := uc.processJobPipeline(ctx, job, msg, rawMsg, log); err != nil {
		return err
	}

	metrics.JobsProcessedTotal.WithLabelValues("completed").Inc()
	metrics.StripProcessingDuration.WithLabelValues("total").Observe(time.Since(totalTimer).Seconds())

	return nil
}

func (uc *ProcessJobUseCase) processJobPipeline(
	ctx context.Context,
	job *entity.Job,
	msg entity.StripProcessingMessage,
	rawMsg []byte,
	log *zap.Logger,
) error {
	tracer := otel.Tracer("usecase")

	workDir := filepath.Join(uc.tempDir, job.ID.String())
	if err := os.MkdirAll(workDir, 0755); err != nil {
		return fmt.Errorf("create workdir: %w", err)
	}
	defer os.RemoveAll(workDir)

	// Download strip from object storage
	dlStart := time.Now()
	ctxDl, spanDl := tracer.Start(ctx, "download_strip")
	stripPath := filepath.Join(workDir, "strip"+filepath.Ext(msg.StripKey))
	if err := uc.storage.DownloadStrip(ctxDl, msg.StripKey, stripPath); err != nil {
		spanDl.End()
		log.Error("failed to download strip", zap.Error(err))
		return uc.handleRetryableFailure(ctx, job, msg, rawMsg, "download_strip: "+err.Error(), log)
	}
	spanDl.End()
	metrics.StripProcessingDuration.WithLabelValues("download").Observe(time.Since(dlStart).Seconds())

	// Run the strip pipeline
	detection, err := detectionFromMessage(msg)
	if err != nil {
		_ = uc.dlq.PublishToDLQ(ctx, rawMsg, "bad_parameters: "+err.Error())
		return uc.handlePermanentFailure(ctx, job, msg, rawMsg, "bad parameters: "+err.Error())
	}

	result, err := uc.pipeline.Execute(ctx, StripRequest{
		InputPath: stripPath,
		OutputDir: workDir,
		Name:      "strip",
		WorkDir:   workDir,
		Detection: detection,
		FPS:       msg.FPS,
	})
	if err != nil {
		log.Error("strip pipeline failed", zap.Error(err))
		return uc.handleRetryableFailure(ctx, job, msg, rawMsg, "process_strip: "+err.Error(), log)
	}

	// Archive the frames
	zipStart := time.Now()
	ctxZip, spanZip := tracer.Start(ctx, "archive_frames")
	framePaths, err := filepath.Glob(filepath.Join(result.FramesDir, "*.jpg"))
	if err != nil || len(framePaths) == 0 {
		spanZip.End()
		return uc.handleRetryableFailure(ctx, job, msg, rawMsg, "collect_frames: no frame files", log)
	}
	zipPath := filepath.Join(workDir, "frames.zip")
	if err := uc.archiver.CreateZip(ctxZip, framePaths, zipPath); err != nil {
		spanZip.End()
		log.Error("frame archive failed", zap.Error(err))
		return uc.handleRetryableFailure(ctx, job, msg, rawMsg, "archive_frames: "+err.Error(), log)
	}
	spanZip.End()
	metrics.StripProcessingDuration.WithLabelValues("archive").Observe(time.Since(zipStart).Seconds())

	// Upload artifacts
	upStart := time.Now()
	ctxUp, spanUp := tracer.Start(ctx, "upload_artifacts")
	framesKey := fmt.Sprintf("%s/frames_%s.zip", msg.UserID, job.ID.String())
	if err := uc.uploadFile(ctxUp, zipPath, framesKey, uc.storage.UploadFrames); err != nil {
		spanUp.End()
		log.Error("frames upload failed", zap.Error(err))
		return uc.handleRetryableFailure(ctx, job, msg, rawMsg, "upload_frames: "+err.Error(), log)
	}
	videoKey := fmt.Sprintf("%s/video_%s.mp4", msg.UserID, job.ID.String())
	if err := uc.uploadFile(ctxUp, result.VideoPath, videoKey, uc.storage.UploadVideo); err != nil {
		spanUp.End()
		log.Error("video upload failed", zap.Error(err))
		return uc.handleRetryableFailure(ctx, job, msg, rawMsg, "upload_video: "+err.Error(), log)
	}
	spanUp.End()
	metrics.StripProcessingDuration.WithLabelValues("upload").Observe(time.Since(upStart).Seconds())

	// Mark completed
	job.MarkCompleted(framesKey, videoKey, result.Summary)
	if err := uc.repo.Update(ctx, job); err != nil {
		log.Error("failed to update job to COMPLETED", zap.Error(err))
		return fmt.Errorf("update job completed: %w", err)
	}

	uc.publishStatus(ctx, job, log)

	log.Info("job completed successfully",
		zap.Int("bands_found", result.Summary.BandsFound),
		zap.Int("frames_extracted", result.Summary.FramesExtracted),
		zap.Int("frames_rejected", result.Summary.FramesRejected),
		zap.String("frames_key", framesKey),
		zap.String("video_key", videoKey),
	)

	return nil
}

func (uc *ProcessJobUseCase) uploadFile(
	ctx context.Context,
	path, key string,
	upload func(context.Context, string, io.Reader, int64) error,
) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return err
	}
	return upload(ctx, key, f, stat.Size())
}

func (uc *ProcessJobUseCase) handleRetryableFailure(
	ctx context.Context,
	job *entity.Job,
	msg entity.StripProcessingMessage,
	rawMsg []byte,
	errMsg string,
	log *zap.Logger,
) error {
	job.MarkFailed(errMsg)
	_ = uc.repo.Update(ctx, job)

	if !job.CanRetry() {
		return uc.handlePermanentFailure(ctx, job, msg, rawMsg, errMsg)
	}

	metrics.RetryTotal.WithLabelValues(strconv.Itoa(job.Attempt)).Inc()
	uc.publishStatus(ctx, job, log)

	return fmt.Errorf("retryable failure (attempt %d/%d): %s", job.Attempt, job.MaxAttempts, errMsg)
}

func (uc *ProcessJobUseCase) handlePermanentFailure(
	ctx context.Context,
	job *entity.Job,
	msg entity.StripProcessingMessage,
	rawMsg []byte,
	errMsg string,
) error {
	job.MarkFailed(errMsg)
	_ = uc.repo.Update(ctx, job)

	_ = uc.dlq.PublishToDLQ(ctx, rawMsg, errMsg)

	uc.publishStatus(ctx, job, uc.logger)

	metrics.JobsProcessedTotal.WithLabelValues("dlq").Inc()

	if msg.UserEmail != "" {
		_ = uc.notifier.NotifyFailure(ctx, msg.UserEmail, job.ID.String(), msg.StripKey, errMsg)
	}

	return nil
}

func (uc *ProcessJobUseCase) publishStatus(ctx context.Context, job *entity.Job, log *zap.Logger) {
	statusMsg := entity.StripStatusMessage{
		JobID:           job.ID,
		UserID:          job.UserID,
		Status:          job.Status,
		StripKey:        job.StripKey,
		FramesKey:       job.FramesKey,
		VideoKey:        job.VideoKey,
		BandsFound:      job.BandsFound,
		FramesExtracted: job.FramesExtracted,
		FramesRejected:  job.FramesRejected,
		ErrorMessage:    job.ErrorMessage,
		Attempt:         job.Attempt,
		MaxAttempts:     job.MaxAttempts,
	}
	data, _ := json.Marshal(statusMsg)
	if err := uc.publisher.PublishStatus(ctx, data); err != nil {
		log.Error("failed to publish status", zap.Error(err))
	}
}

func detectionFromMessage(msg entity.StripProcessingMessage) (film.DetectionConfig, error) {
	sensitivity, err := film.ParseSensitivity(msg.Sensitivity)
	if err != nil {
		return film.DetectionConfig{}, err
	}
	return film.DetectionConfig{
		Sensitivity:      sensitivity,
		MinFrameDistance: msg.MinFrameDistance,
		FrameHeight:      msg.FrameHeight,
	}, nil
}
