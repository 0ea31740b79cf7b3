package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"testing"

	"github.com/JackerKun/lomokino-processor/internal/domain/entity"
	"github.com/JackerKun/lomokino-processor/internal/film"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeJobRepo struct {
	jobs map[uuid.UUID]*entity.Job
}

func newFakeJobRepo() *fakeJobRepo {
	return &fakeJobRepo{jobs: make(map[uuid.UUID]*entity.Job)}
}

func (r *fakeJobRepo) Create(ctx context.Context, job *entity.Job) error {
	r.jobs[job.ID] = job
	return nil
}

func (r *fakeJobRepo) Update(ctx context.Context, job *entity.Job) error {
	r.jobs[job.ID] = job
	return nil
}

func (r *fakeJobRepo) FindByID(ctx context.Context, id uuid.UUID) (*entity.Job, error) {
	job, ok := r.jobs[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return job, nil
}

// fakeStorage serves a prepared local file as the strip and records uploads.
type fakeStorage struct {
	stripFile   string
	downloadErr error
	frames      map[string]int64
	videos      map[string]int64
}

func newFakeStorage(stripFile string) *fakeStorage {
	return &fakeStorage{
		stripFile: stripFile,
		frames:    make(map[string]int64),
		videos:    make(map[string]int64),
	}
}

func (s *fakeStorage) DownloadStrip(ctx context.Context, objectKey, destPath string) error {
	if s.downloadErr != nil {
		return s.downloadErr
	}
	data, err := os.ReadFile(s.stripFile)
	if err != nil {
		return err
	}
	return os.WriteFile(destPath, data, 0644)
}

func (s *fakeStorage) UploadFrames(ctx context.Context, objectKey string, reader io.Reader, size int64) error {
	s.frames[objectKey] = size
	return nil
}

func (s *fakeStorage) UploadVideo(ctx context.Context, objectKey string, reader io.Reader, size int64) error {
	s.videos[objectKey] = size
	return nil
}

type fakePublisher struct {
	statuses [][]byte
}

func (p *fakePublisher) PublishStatus(ctx context.Context, msg []byte) error {
	p.statuses = append(p.statuses, msg)
	return nil
}

type fakeDLQ struct {
	reasons []string
}

func (p *fakeDLQ) PublishToDLQ(ctx context.Context, msg []byte, reason string) error {
	p.reasons = append(p.reasons, reason)
	return nil
}

type fakeNotifier struct {
	emails []string
}

func (n *fakeNotifier) NotifyFailure(ctx context.Context, userEmail, jobID, stripKey, errorMsg string) error {
	n.emails = append(n.emails, userEmail)
	return nil
}

type jobTestEnv struct {
	uc       *ProcessJobUseCase
	repo     *fakeJobRepo
	storage  *fakeStorage
	pub      *fakePublisher
	dlq      *fakeDLQ
	notifier *fakeNotifier
}

func newJobTestEnv(t *testing.T, stripFile string, maxRetries int) *jobTestEnv {
	t.Helper()
	log := zap.NewNop()
	env := &jobTestEnv{
		repo:     newFakeJobRepo(),
		storage:  newFakeStorage(stripFile),
		pub:      &fakePublisher{},
		dlq:      &fakeDLQ{},
		notifier: &fakeNotifier{},
	}

	pipeline := NewProcessStripUseCase(
		film.NewDetector(log),
		film.NewCropper(log),
		&fakeVideoWriter{},
		log,
		ProcessStripConfig{},
	)

	env.uc = NewProcessJobUseCase(
		env.repo, env.storage, pipeline, &fakeArchiver{},
		env.pub, env.dlq, env.notifier,
		log,
		ProcessJobConfig{TempDir: t.TempDir(), MaxRetries: maxRetries},
	)
	return env
}

// fakeArchiver writes a placeholder zip file.
type fakeArchiver struct{}

func (a *fakeArchiver) CreateZip(ctx context.Context, filePaths []string, outputPath string) error {
	return os.WriteFile(outputPath, []byte("zip"), 0644)
}

func stripMessage(t *testing.T) entity.StripProcessingMessage {
	t.Helper()
	return entity.StripProcessingMessage{
		JobID:     uuid.New(),
		UserID:    "user-7",
		StripKey:  "user-7/roll.png",
		FileSize:  1024,
		UserEmail: "user@film.local",
	}
}

func marshalMessage(t *testing.T, msg entity.StripProcessingMessage) []byte {
	t.Helper()
	data, err := json.Marshal(msg)
	require.NoError(t, err)
	return data
}

func TestProcessJobHappyPath(t *testing.T) {
	dir := t.TempDir()
	stripFile := dir + "/roll.png"
	writeTestStrip(t, stripFile, 4, 200)

	env := newJobTestEnv(t, stripFile, 3)
	msg := stripMessage(t)
	msg.FrameHeight = 200

	err := env.uc.Execute(context.Background(), marshalMessage(t, msg))
	require.NoError(t, err)

	job, err := env.repo.FindByID(context.Background(), msg.JobID)
	require.NoError(t, err)
	assert.Equal(t, entity.JobStatusCompleted, job.Status)
	assert.Equal(t, 4, job.FramesExtracted)
	assert.NotEmpty(t, job.FramesKey)
	assert.NotEmpty(t, job.VideoKey)

	assert.Len(t, env.storage.frames, 1)
	assert.Len(t, env.storage.videos, 1)
	assert.Contains(t, env.storage.frames, "user-7/frames_"+msg.JobID.String()+".zip")
	assert.Contains(t, env.storage.videos, "user-7/video_"+msg.JobID.String()+".mp4")

	require.Len(t, env.pub.statuses, 1)
	var status entity.StripStatusMessage
	require.NoError(t, json.Unmarshal(env.pub.statuses[0], &status))
	assert.Equal(t, msg.JobID, status.JobID)
	assert.Equal(t, entity.JobStatusCompleted, status.Status)
	assert.Equal(t, 4, status.FramesExtracted)

	assert.Empty(t, env.dlq.reasons)
	assert.Empty(t, env.notifier.emails)
}

func TestProcessJobMalformedMessageGoesToDLQ(t *testing.T) {
	env := newJobTestEnv(t, "unused", 3)

	err := env.uc.Execute(context.Background(), []byte("{not json"))
	require.NoError(t, err, "malformed messages are dropped, not retried")
	require.Len(t, env.dlq.reasons, 1)
	assert.Contains(t, env.dlq.reasons[0], "unmarshal_error")
}

func TestProcessJobDownloadFailureIsRetryable(t *testing.T) {
	env := newJobTestEnv(t, "unused", 3)
	env.storage.downloadErr = errors.New("connection refused")
	msg := stripMessage(t)

	err := env.uc.Execute(context.Background(), marshalMessage(t, msg))
	require.Error(t, err, "a retryable failure must surface so the message is requeued")

	job, findErr := env.repo.FindByID(context.Background(), msg.JobID)
	require.NoError(t, findErr)
	assert.Equal(t, entity.JobStatusFailed, job.Status)
	assert.Equal(t, 1, job.Attempt)
	assert.Empty(t, env.dlq.reasons)
}

func TestProcessJobExhaustedRetriesGoPermanent(t *testing.T) {
	env := newJobTestEnv(t, "unused", 1)
	env.storage.downloadErr = errors.New("still down")
	msg := stripMessage(t)

	err := env.uc.Execute(context.Background(), marshalMessage(t, msg))
	require.NoError(t, err, "permanent failures are acked, not requeued")

	job, findErr := env.repo.FindByID(context.Background(), msg.JobID)
	require.NoError(t, findErr)
	assert.Equal(t, entity.JobStatusFailed, job.Status)
	require.Len(t, env.dlq.reasons, 1)
	assert.Contains(t, env.dlq.reasons[0], "download_strip")
	assert.Equal(t, []string{"user@film.local"}, env.notifier.emails)
}

func TestProcessJobBadSensitivityIsPermanent(t *testing.T) {
	dir := t.TempDir()
	stripFile := dir + "/roll.png"
	writeTestStrip(t, stripFile, 2, 200)

	env := newJobTestEnv(t, stripFile, 3)
	msg := stripMessage(t)
	msg.Sensitivity = "ultra"

	err := env.uc.Execute(context.Background(), marshalMessage(t, msg))
	require.NoError(t, err)

	job, findErr := env.repo.FindByID(context.Background(), msg.JobID)
	require.NoError(t, findErr)
	assert.Equal(t, entity.JobStatusFailed, job.Status)
	assert.NotEmpty(t, env.dlq.reasons)
}

func TestDetectionFromMessage(t *testing.T) {
	msg := entity.StripProcessingMessage{
		Sensitivity:      "high",
		FrameHeight:      250,
		MinFrameDistance: 40,
	}
	cfg, err := detectionFromMessage(msg)
	require.NoError(t, err)
	assert.Equal(t, film.SensitivityHigh, cfg.Sensitivity)
	assert.Equal(t, 250, cfg.FrameHeight)
	assert.Equal(t, 40, cfg.MinFrameDistance)
}
