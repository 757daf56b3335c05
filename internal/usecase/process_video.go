package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/fiapx/fiapx-frame-sampler/internal/domain/entity"
	"github.com/fiapx/fiapx-frame-sampler/internal/domain/port"
	"github.com/fiapx/fiapx-frame-sampler/internal/domain/sampling"
	"github.com/fiapx/fiapx-frame-sampler/internal/infra/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// FrameSampler is the part of FrameExtractor the job pipeline needs.
type FrameSampler interface {
	ExtractSync(ctx context.Context, rawRef string, cfg sampling.Config) entity.ExtractionResult
	Discard(res entity.ExtractionResult) error
}

// ProcessSamplingJob handles one frames.sampling message: download the
// video, sample it, zip the frames and upload the archive.
type ProcessSamplingJob struct {
	repo      port.JobRepository
	storage   port.VideoStorage
	sampler   FrameSampler
	zipper    port.Zipper
	publisher port.StatusPublisher
	dlq       port.DLQPublisher
	notifier  port.FailureNotifier
	logger    *zap.Logger
	tempDir   string
	maxRetry  int
	sampling  sampling.Config
}

type ProcessSamplingConfig struct {
	TempDir    string
	MaxRetries int
	// Sampling applies to messages that do not name a strategy.
	Sampling sampling.Config
}

func NewProcessSamplingJob(
	repo port.JobRepository,
	storage port.VideoStorage,
	sampler FrameSampler,
	zipper port.Zipper,
	publisher port.StatusPublisher,
	dlq port.DLQPublisher,
	notifier port.FailureNotifier,
	logger *zap.Logger,
	cfg ProcessSamplingConfig,
) *ProcessSamplingJob {
	return &ProcessSamplingJob{
		repo:      repo,
		storage:   storage,
		sampler:   sampler,
		zipper:    zipper,
		publisher: publisher,
		dlq:       dlq,
		notifier:  notifier,
		logger:    logger,
		tempDir:   cfg.TempDir,
		maxRetry:  cfg.MaxRetries,
		sampling:  cfg.Sampling,
	}
}

// Execute returns a non-nil error only when the message should be requeued.
func (uc *ProcessSamplingJob) Execute(ctx context.Context, rawMsg []byte) error {
	ctx, span := otel.Tracer("usecase").Start(ctx, "ProcessSamplingJob.Execute")
	defer span.End()

	totalTimer := time.Now()

	var msg entity.FrameSamplingMessage
	if err := json.Unmarshal(rawMsg, &msg); err != nil {
		uc.logger.Error("failed to unmarshal message", zap.Error(err), zap.ByteString("body", rawMsg))
		_ = uc.dlq.PublishToDLQ(ctx, rawMsg, "unmarshal_error: "+err.Error())
		metrics.JobsProcessedTotal.WithLabelValues("dlq").Inc()
		return nil
	}

	span.SetAttributes(
		attribute.String("job.id", msg.JobID.String()),
		attribute.String("job.video_key", msg.VideoKey),
	)
	log := uc.logger.With(zap.String("job_id", msg.JobID.String()), zap.String("video_key", msg.VideoKey))

	sc, strategyErr := uc.resolveSampling(msg.Strategy)

	job, err := uc.repo.FindByID(ctx, msg.JobID)
	switch {
	case errors.Is(err, entity.ErrJobNotFound):
		job = entity.NewJob(msg.UserID, msg.VideoKey, sc.Strategy, msg.FileSize, uc.maxRetry)
		job.ID = msg.JobID
		if strategyErr != nil {
			job.Strategy = sampling.Strategy(msg.Strategy)
		}
		if err := uc.repo.Create(ctx, job); err != nil {
			log.Error("failed to create job record", zap.Error(err))
			return fmt.Errorf("create job: %w", err)
		}
	case err != nil:
		log.Error("failed to load job record", zap.Error(err))
		return fmt.Errorf("find job: %w", err)
	}

	if strategyErr != nil {
		log.Warn("job names an unknown strategy, sending to DLQ", zap.String("strategy", msg.Strategy))
		return uc.handlePermanentFailure(ctx, job, msg, rawMsg, strategyErr.Error(), log)
	}

	if !job.CanRetry() {
		log.Warn("job exhausted retries, sending to DLQ")
		return uc.handlePermanentFailure(ctx, job, msg, rawMsg, "max retries exceeded", log)
	}

	job.MarkProcessing()
	if err := uc.repo.Update(ctx, job); err != nil {
		log.Error("failed to update job to PROCESSING", zap.Error(err))
		return fmt.Errorf("update job: %w", err)
	}
	uc.publishStatus(ctx, job, log)

	if err := uc.run(ctx, job, msg, rawMsg, sc, log); err != nil {
		return err
	}

	metrics.JobProcessingDuration.WithLabelValues("total").Observe(time.Since(totalTimer).Seconds())
	return nil
}

func (uc *ProcessSamplingJob) resolveSampling(raw string) (sampling.Config, error) {
	if raw == "" {
		return uc.sampling, nil
	}
	strategy, err := sampling.ParseStrategy(raw)
	if err != nil {
		return sampling.Config{}, fmt.Errorf("%w: %w", entity.ErrInvalidStrategy, err)
	}
	sc := uc.sampling
	sc.Strategy = strategy
	return sc, nil
}

// stage wraps one pipeline step in a span and a duration observation.
func stage(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	start := time.Now()
	ctx, span := otel.Tracer("usecase").Start(ctx, name)
	defer span.End()

	err := fn(ctx)
	if err != nil {
		span.RecordError(err)
		return err
	}
	metrics.JobProcessingDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	return nil
}

func (uc *ProcessSamplingJob) run(
	ctx context.Context,
	job *entity.Job,
	msg entity.FrameSamplingMessage,
	rawMsg []byte,
	sc sampling.Config,
	log *zap.Logger,
) error {
	workDir := filepath.Join(uc.tempDir, job.ID.String())
	if err := os.MkdirAll(workDir, 0755); err != nil {
		return fmt.Errorf("create workdir: %w", err)
	}
	defer os.RemoveAll(workDir)

	videoPath := filepath.Join(workDir, "input"+filepath.Ext(msg.VideoKey))
	if err := stage(ctx, "download_video", func(ctx context.Context) error {
		return uc.storage.DownloadVideo(ctx, msg.VideoKey, videoPath)
	}); err != nil {
		log.Error("failed to download video", zap.Error(err))
		return uc.handleRetryableFailure(ctx, job, msg, rawMsg, "download_video: "+err.Error(), log)
	}

	var result entity.ExtractionResult
	_ = stage(ctx, "extract_frames", func(ctx context.Context) error {
		result = uc.sampler.ExtractSync(ctx, videoPath, sc)
		return result.Err
	})
	switch {
	case result.Err == nil:
		defer func() {
			if err := uc.sampler.Discard(result); err != nil {
				log.Warn("failed to remove extracted frames", zap.Error(err))
			}
		}()
	case errors.Is(result.Err, entity.ErrInvalidReference), errors.Is(result.Err, entity.ErrInvalidStrategy):
		log.Error("frame extraction rejected the job", zap.Error(result.Err))
		return uc.handlePermanentFailure(ctx, job, msg, rawMsg, "extract_frames: "+result.Err.Error(), log)
	case errors.Is(result.Err, entity.ErrCanceled):
		return fmt.Errorf("extract_frames: %w", result.Err)
	default:
		log.Error("frame extraction failed", zap.Error(result.Err))
		return uc.handleRetryableFailure(ctx, job, msg, rawMsg, "extract_frames: "+result.Err.Error(), log)
	}

	zipPath := filepath.Join(workDir, "frames.zip")
	var zipSize int64
	if err := stage(ctx, "create_zip", func(ctx context.Context) error {
		var err error
		zipSize, err = uc.zipper.CreateZip(ctx, result.Paths(), zipPath)
		return err
	}); err != nil {
		log.Error("zip creation failed", zap.Error(err))
		return uc.handleRetryableFailure(ctx, job, msg, rawMsg, "create_zip: "+err.Error(), log)
	}

	zipKey := fmt.Sprintf("%s/frames_%s.zip", msg.UserID, job.ID.String())
	if err := stage(ctx, "upload_zip", func(ctx context.Context) error {
		f, err := os.Open(zipPath)
		if err != nil {
			return err
		}
		defer f.Close()
		return uc.storage.UploadZip(ctx, zipKey, f, zipSize)
	}); err != nil {
		log.Error("zip upload failed", zap.Error(err))
		return uc.handleRetryableFailure(ctx, job, msg, rawMsg, "upload_zip: "+err.Error(), log)
	}

	job.MarkCompleted(zipKey, result)
	if err := uc.repo.Update(ctx, job); err != nil {
		log.Error("failed to update job to COMPLETED", zap.Error(err))
		return fmt.Errorf("update job completed: %w", err)
	}

	uc.publishStatus(ctx, job, log)
	metrics.JobsProcessedTotal.WithLabelValues("completed").Inc()

	log.Info("job completed successfully",
		zap.String("strategy", string(sc.Strategy)),
		zap.Int("frame_count", job.FrameCount),
		zap.Int("skipped_frames", job.SkippedFrames()),
		zap.Float64("duration_secs", job.VideoDuration),
		zap.String("zip_key", zipKey),
	)
	return nil
}

func (uc *ProcessSamplingJob) handleRetryableFailure(
	ctx context.Context,
	job *entity.Job,
	msg entity.FrameSamplingMessage,
	rawMsg []byte,
	errMsg string,
	log *zap.Logger,
) error {
	if !job.CanRetry() {
		return uc.handlePermanentFailure(ctx, job, msg, rawMsg, errMsg, log)
	}

	job.MarkFailed(errMsg)
	if err := uc.repo.Update(ctx, job); err != nil {
		log.Error("failed to record job failure", zap.Error(err))
	}

	metrics.RetryTotal.WithLabelValues(strconv.Itoa(job.Attempt)).Inc()
	uc.publishStatus(ctx, job, log)

	return &entity.RetryableError{Attempt: job.Attempt, MaxAttempts: job.MaxAttempts, Err: errors.New(errMsg)}
}

func (uc *ProcessSamplingJob) handlePermanentFailure(
	ctx context.Context,
	job *entity.Job,
	msg entity.FrameSamplingMessage,
	rawMsg []byte,
	errMsg string,
	log *zap.Logger,
) error {
	job.MarkFailed(errMsg)
	if err := uc.repo.Update(ctx, job); err != nil {
		log.Error("failed to record job failure", zap.Error(err))
	}

	if err := uc.dlq.PublishToDLQ(ctx, rawMsg, errMsg); err != nil {
		log.Error("failed to publish to DLQ", zap.Error(err))
	}
	uc.publishStatus(ctx, job, log)
	metrics.JobsProcessedTotal.WithLabelValues("dlq").Inc()

	if msg.UserEmail != "" {
		_ = uc.notifier.NotifyFailure(ctx, msg.UserEmail, job)
	}
	return nil
}

func (uc *ProcessSamplingJob) publishStatus(ctx context.Context, job *entity.Job, log *zap.Logger) {
	data, err := json.Marshal(entity.NewStatusMessage(job))
	if err != nil {
		log.Error("failed to marshal status", zap.Error(err))
		return
	}
	if err := uc.publisher.PublishStatus(ctx, data); err != nil {
		log.Error("failed to publish status", zap.Error(err))
	}
}
