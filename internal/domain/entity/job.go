package entity

import (
	"time"

	"github.com/fiapx/fiapx-frame-sampler/internal/domain/sampling"
	"github.com/google/uuid"
)

type JobStatus string

const (
	JobStatusPending    JobStatus = "PENDING"
	JobStatusProcessing JobStatus = "PROCESSING"
	JobStatusCompleted  JobStatus = "COMPLETED"
	JobStatusFailed     JobStatus = "FAILED"
)

// Job is the persisted record of a queue-driven sampling job.
type Job struct {
	ID              uuid.UUID
	UserID          string
	VideoKey        string
	ZipKey          string
	Status          JobStatus
	Strategy        sampling.Strategy
	FrameCount      int
	AttemptedFrames int
	FileSize        int64
	VideoDuration   float64
	Attempt         int
	MaxAttempts     int
	ErrorMessage    string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	CompletedAt     *time.Time
}

func NewJob(userID, videoKey string, strategy sampling.Strategy, fileSize int64, maxAttempts int) *Job {
	now := time.Now().UTC()
	return &Job{
		ID:          uuid.New(),
		UserID:      userID,
		VideoKey:    videoKey,
		Strategy:    strategy,
		FileSize:    fileSize,
		Status:      JobStatusPending,
		MaxAttempts: maxAttempts,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func (j *Job) MarkProcessing() {
	j.Status = JobStatusProcessing
	j.Attempt++
	j.ErrorMessage = ""
	j.UpdatedAt = time.Now().UTC()
}

// MarkCompleted records a successful extraction. Frame counts may be zero.
func (j *Job) MarkCompleted(zipKey string, result ExtractionResult) {
	now := time.Now().UTC()
	j.Status = JobStatusCompleted
	j.ZipKey = zipKey
	j.FrameCount = len(result.Frames)
	j.AttemptedFrames = result.Attempted
	j.VideoDuration = result.Duration
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

// SkippedFrames is the number of sampled timestamps that produced no image.
func (j *Job) SkippedFrames() int {
	return j.AttemptedFrames - j.FrameCount
}
