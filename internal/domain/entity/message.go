package entity

import (
	"github.com/fiapx/fiapx-frame-sampler/internal/domain/sampling"
	"github.com/google/uuid"
)

// FrameSamplingMessage is the inbound message from the frames.sampling queue.
// An empty Strategy selects the worker's configured default.
type FrameSamplingMessage struct {
	JobID     uuid.UUID `json:"job_id"`
	UserID    string    `json:"user_id"`
	VideoKey  string    `json:"video_key"`
	FileSize  int64     `json:"file_size"`
	UserEmail string    `json:"user_email"`
	Strategy  string    `json:"strategy,omitempty"`
}

// FrameSamplingStatusMessage is published to the frames.status queue after
// every state change of a job.
type FrameSamplingStatusMessage struct {
	JobID           uuid.UUID         `json:"job_id"`
	UserID          string            `json:"user_id"`
	Status          JobStatus         `json:"status"`
	VideoKey        string            `json:"video_key"`
	ZipKey          string            `json:"zip_key,omitempty"`
	Strategy        sampling.Strategy `json:"strategy,omitempty"`
	FrameCount      int               `json:"frame_count"`
	AttemptedFrames int               `json:"attempted_frames"`
	SkippedFrames   int               `json:"skipped_frames"`
	Duration        float64           `json:"duration_seconds,omitempty"`
	ErrorMessage    string            `json:"error_message,omitempty"`
	Attempt         int               `json:"attempt"`
	MaxAttempts     int               `json:"max_attempts"`
}

// NewStatusMessage snapshots a job for publishing.
func NewStatusMessage(job *Job) FrameSamplingStatusMessage {
	return FrameSamplingStatusMessage{
		JobID:           job.ID,
		UserID:          job.UserID,
		Status:          job.Status,
		VideoKey:        job.VideoKey,
		ZipKey:          job.ZipKey,
		Strategy:        job.Strategy,
		FrameCount:      job.FrameCount,
		AttemptedFrames: job.AttemptedFrames,
		SkippedFrames:   job.SkippedFrames(),
		Duration:        job.VideoDuration,
		ErrorMessage:    job.ErrorMessage,
		Attempt:         job.Attempt,
		MaxAttempts:     job.MaxAttempts,
	}
}
