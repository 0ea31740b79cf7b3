package entity

import (
	"time"

	"github.com/google/uuid"
)

type JobStatus string

const (
	JobStatusPending    JobStatus = "PENDING"
	JobStatusProcessing JobStatus = "PROCESSING"
	JobStatusCompleted  JobStatus = "COMPLETED"
	JobStatusFailed     JobStatus = "FAILED"
)

// Job tracks one film strip through the processing pipeline.
type Job struct {
	ID              uuid.UUID
	UserID          string
	StripKey        string
	FramesKey       string
	VideoKey        string
	Status          JobStatus
	BandsFound      int
	FramesExtracted int
	FramesRejected  int
	FileSize        int64
	Attempt         int
	MaxAttempts     int
	ErrorMessage    string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	CompletedAt     *time.Time
}

func NewJob(userID, stripKey string, fileSize int64, maxAttempts int) *Job {
	now := time.Now().UTC()
	return &Job{
		ID:          uuid.New(),
		UserID:      userID,
		StripKey:    stripKey,
		FileSize:    fileSize,
		Status:      JobStatusPending,
		Attempt:     0,
		MaxAttempts: maxAttempts,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func (j *Job) MarkProcessing() {
	j.Status = JobStatusProcessing
	j.Attempt++
	j.UpdatedAt = time.Now().UTC()
}

func (j *Job) MarkCompleted(framesKey, videoKey string, summary Summary) {
	now := time.Now().UTC()
	j.Status = JobStatusCompleted
	j.FramesKey = framesKey
	j.VideoKey = videoKey
	j.BandsFound = summary.BandsFound
	j.FramesExtracted = summary.FramesExtracted
	j.FramesRejected = summary.FramesRejected
	j.UpdatedAt = now
	j.CompletedAt = &now
}

func (j *Job) MarkFailed(errMsg string) {
	j.Status = JobStatusFailed
	j.ErrorMessage = errMsg
	j.UpdatedAt = time.Now().UTC()
}

func (j *Job) CanRetry() bool {
	return j.Attempt < j.MaxAttempts
}

// Summary reports what one strip produced. Degenerate is set when boundary
// detection fell back to a single full-strip band.
type Summary struct {
	BandsFound      int
	FramesExtracted int
	FramesRejected  int
	Degenerate      bool
}
