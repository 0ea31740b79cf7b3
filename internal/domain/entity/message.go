package entity

import "github.com/google/uuid"

// StripProcessingMessage is the inbound message from the strip.processing queue.
type StripProcessingMessage struct {
	JobID     uuid.UUID `json:"job_id"`
	UserID    string    `json:"user_id"`
	StripKey  string    `json:"strip_key"`
	FileSize  int64     `json:"file_size"`
	UserEmail string    `json:"user_email"`

	// Optional processing overrides; zero values mean "use defaults".
	FrameHeight      int    `json:"frame_height,omitempty"`
	MinFrameDistance int    `json:"min_frame_distance,omitempty"`
	Sensitivity      string `json:"sensitivity,omitempty"`
	FPS              int    `json:"fps,omitempty"`
}

// StripStatusMessage is the outbound message published to the strip.status queue.
type StripStatusMessage struct {
	JobID           uuid.UUID `json:"job_id"`
	UserID          string    `json:"user_id"`
	Status          JobStatus `json:"status"`
	StripKey        string    `json:"strip_key"`
	FramesKey       string    `json:"frames_key,omitempty"`
	VideoKey        string    `json:"video_key,omitempty"`
	BandsFound      int       `json:"bands_found,omitempty"`
	FramesExtracted int       `json:"frames_extracted,omitempty"`
	FramesRejected  int       `json:"frames_rejected,omitempty"`
	ErrorMessage    string    `json:"error_message,omitempty"`
	Attempt         int       `json:"attempt"`
	MaxAttempts     int       `json:"max_attempts"`
}
