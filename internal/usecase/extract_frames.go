package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/fiapx/fiapx-frame-sampler/internal/domain/entity"
	"github.com/fiapx/fiapx-frame-sampler/internal/domain/port"
	"github.com/fiapx/fiapx-frame-sampler/internal/domain/sampling"
	"github.com/fiapx/fiapx-frame-sampler/internal/infra/metrics"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

const (
	// MaxQuality asks the encoder for its best output.
	MaxQuality = 100

	stageDecode = "decode"
	stageEncode = "encode"
	stageWrite  = "write"
)

var errNoFrame = errors.New("decoder returned no frame")

// ErrNilHandler is returned by Extract when no result handler is given.
var ErrNilHandler = errors.New("extract: nil result handler")

type ExtractorConfig struct {
	// Quality is passed to the encoder, 1..100. Zero means MaxQuality.
	Quality int
	// Workers > 1 decodes timestamps in parallel, one decoder session per
	// worker. Zero or one keeps the loop sequential.
	Workers int
	// Dispatcher delivers Extract callbacks. Nil means InlineDispatcher.
	Dispatcher Dispatcher
}

// FrameExtractor samples frames from a video and writes each one as an
// image file under its own per-invocation scratch subdirectory.
type FrameExtractor struct {
	decoder    port.VideoDecoder
	encoder    port.ImageEncoder
	writer     port.FileWriter
	dispatcher Dispatcher
	logger     *zap.Logger
	quality    int
	workers    int
}

func NewFrameExtractor(
	decoder port.VideoDecoder,
	encoder port.ImageEncoder,
	writer port.FileWriter,
	logger *zap.Logger,
	cfg ExtractorConfig,
) *FrameExtractor {
	quality := cfg.Quality
	if quality <= 0 || quality > MaxQuality {
		quality = MaxQuality
	}
	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	dispatcher := cfg.Dispatcher
	if dispatcher == nil {
		dispatcher = InlineDispatcher
	}
	return &FrameExtractor{
		decoder:    decoder,
		encoder:    encoder,
		writer:     writer,
		dispatcher: dispatcher,
		logger:     logger,
		quality:    quality,
		workers:    workers,
	}
}

// Extract returns immediately. The extraction runs on its own goroutine and
// handler is called exactly once, through the configured Dispatcher. A nil
// handler is rejected with ErrNilHandler and nothing runs.
func (e *FrameExtractor) Extract(ctx context.Context, rawRef string, cfg sampling.Config, handler ResultHandler) error {
	if handler == nil {
		return ErrNilHandler
	}
	go func() {
		res := e.ExtractSync(ctx, rawRef, cfg)
		e.dispatcher.Dispatch(func() { handler(res) })
	}()
	return nil
}

// ExtractSync runs the extraction on the calling goroutine.
//
// Only an unparsable reference, a bad sampling config, a decoder that cannot
// open the video or report its duration, an unusable scratch directory, or a
// cancelled ctx produce a failed result. A timestamp that fails to decode,
// encode or write is skipped and the result is shorter.
func (e *FrameExtractor) ExtractSync(ctx context.Context, rawRef string, cfg sampling.Config) entity.ExtractionResult {
	ctx, span := otel.Tracer("usecase").Start(ctx, "FrameExtractor.Extract")
	defer span.End()

	if cfg.Strategy == "" {
		cfg.Strategy = sampling.StrategyFixedRate
	}

	res := entity.ExtractionResult{InvocationID: uuid.New(), Frames: []entity.ExtractedFrame{}}
	log := e.logger.With(
		zap.String("invocation_id", res.InvocationID.String()),
		zap.String("strategy", string(cfg.Strategy)),
	)
	span.SetAttributes(
		attribute.String("extraction.invocation_id", res.InvocationID.String()),
		attribute.String("extraction.strategy", string(cfg.Strategy)),
	)

	metrics.ActiveExtractions.Inc()
	defer metrics.ActiveExtractions.Dec()

	fail := func(outcome string, err error) entity.ExtractionResult {
		res.Frames = nil
		res.Err = err
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		metrics.ExtractionsTotal.WithLabelValues(outcome).Inc()
		log.Warn("extraction failed", zap.String("outcome", outcome), zap.Error(err))
		return res
	}

	ref, err := entity.ParseVideoReference(rawRef)
	if err != nil {
		return fail("invalid_reference", err)
	}
	if err := cfg.Validate(); err != nil {
		return fail("invalid_strategy", fmt.Errorf("%w: %w", entity.ErrInvalidStrategy, err))
	}

	session, err := e.decoder.Open(ctx, ref)
	if err != nil {
		return fail("failed", entity.ExtractionFailed(err))
	}
	defer session.Close()

	duration, err := session.Duration()
	if err != nil {
		return fail("failed", entity.ExtractionFailed(err))
	}
	if duration < 0 || math.IsNaN(duration) || math.IsInf(duration, 0) {
		return fail("failed", entity.ExtractionFailed(fmt.Errorf("unusable duration %v", duration)))
	}
	if !sampling.WithinLimit(cfg, duration) {
		return fail("failed", entity.ExtractionFailed(
			fmt.Errorf("unusable duration %v: more than %d frames", duration, sampling.MaxFrames)))
	}
	res.Duration = duration

	scratch, err := e.writer.ScratchDirectory()
	if err != nil {
		return fail("failed", entity.ExtractionFailed(fmt.Errorf("scratch directory: %w", err)))
	}
	dir := filepath.Join(scratch, res.InvocationID.String())

	timestamps := sampling.Timestamps(cfg, duration)
	res.Attempted = len(timestamps)
	span.SetAttributes(
		attribute.Float64("extraction.duration_seconds", duration),
		attribute.Int("extraction.timestamps", len(timestamps)),
	)
	log.Debug("sampling video",
		zap.String("video", ref.String()),
		zap.Float64("duration", duration),
		zap.Int("timestamps", len(timestamps)),
	)

	var outcomes []frameOutcome
	if e.workers > 1 && len(timestamps) > 1 {
		outcomes, err = e.sampleParallel(ctx, session, ref, dir, timestamps, log)
	} else {
		outcomes, err = e.sampleSequential(ctx, session, dir, timestamps)
	}
	if err != nil {
		return fail("canceled", entity.Canceled(err))
	}

	for _, o := range outcomes {
		if o.err != nil {
			metrics.FramesSkippedTotal.WithLabelValues(o.stage).Inc()
			log.Warn("skipping frame",
				zap.Int("index", o.frame.Index),
				zap.Float64("timestamp", o.frame.Timestamp),
				zap.String("stage", o.stage),
				zap.Error(o.err),
			)
			continue
		}
		res.Frames = append(res.Frames, o.frame)
	}

	metrics.ExtractionsTotal.WithLabelValues("success").Inc()
	metrics.FramesSampledTotal.WithLabelValues(string(cfg.Strategy)).Add(float64(len(res.Frames)))
	span.SetAttributes(attribute.Int("extraction.frames", len(res.Frames)))
	log.Info("frames extracted",
		zap.Int("count", len(res.Frames)),
		zap.Int("skipped", res.Skipped()),
		zap.Float64("video_duration", duration),
	)
	return res
}

// Discard removes every file an invocation wrote.
func (e *FrameExtractor) Discard(res entity.ExtractionResult) error {
	scratch, err := e.writer.ScratchDirectory()
	if err != nil {
		return fmt.Errorf("scratch directory: %w", err)
	}
	return e.writer.RemoveAll(filepath.Join(scratch, res.InvocationID.String()))
}

// frameOutcome is the result of one timestamp. A non-nil err marks a skip
// and stage names the step that produced it.
type frameOutcome struct {
	frame entity.ExtractedFrame
	stage string
	err   error
}

func (e *FrameExtractor) sampleSequential(
	ctx context.Context,
	session port.DecodeSession,
	dir string,
	timestamps []float64,
) ([]frameOutcome, error) {
	outcomes := make([]frameOutcome, 0, len(timestamps))
	for i, ts := range timestamps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		outcomes = append(outcomes, e.sampleOne(ctx, session, dir, i, ts))
	}
	return outcomes, nil
}

// sampleParallel keeps outcomes indexed by timestamp ordinal, so the fold
// sees them in timestamp order regardless of completion order.
func (e *FrameExtractor) sampleParallel(
	ctx context.Context,
	primary port.DecodeSession,
	ref entity.VideoReference,
	dir string,
	timestamps []float64,
	log *zap.Logger,
) ([]frameOutcome, error) {
	outcomes := make([]frameOutcome, len(timestamps))
	indexes := make(chan int)
	var canceled atomic.Bool
	var wg sync.WaitGroup

	run := func(session port.DecodeSession) {
		defer wg.Done()
		for i := range indexes {
			if ctx.Err() != nil {
				canceled.Store(true)
				continue
			}
			outcomes[i] = e.sampleOne(ctx, session, dir, i, timestamps[i])
		}
	}

	workers := e.workers
	if workers > len(timestamps) {
		workers = len(timestamps)
	}

	wg.Add(1)
	go run(primary)
	for w := 1; w < workers; w++ {
		session, err := e.decoder.Open(ctx, ref)
		if err != nil {
			log.Warn("could not open extra decoder session, continuing with fewer workers",
				zap.Int("worker_id", w), zap.Error(err))
			continue
		}
		wg.Add(1)
		go func() {
			defer session.Close()
			run(session)
		}()
	}

	for i := range timestamps {
		indexes <- i
	}
	close(indexes)
	wg.Wait()

	if canceled.Load() {
		return nil, ctx.Err()
	}
	return outcomes, nil
}

func (e *FrameExtractor) sampleOne(ctx context.Context, session port.DecodeSession, dir string, index int, ts float64) frameOutcome {
	out := frameOutcome{frame: entity.ExtractedFrame{Index: index, Timestamp: ts}}

	img, err := session.FrameAt(ctx, ts)
	if err == nil && img == nil {
		err = errNoFrame
	}
	if err != nil {
		out.stage, out.err = stageDecode, err
		return out
	}

	data, err := e.encoder.Encode(img, e.quality)
	if err != nil {
		out.stage, out.err = stageEncode, err
		return out
	}

	location := filepath.Join(dir, fmt.Sprintf("frame%d.%s", index, e.encoder.Extension()))
	if err := e.writer.Write(data, location); err != nil {
		out.stage, out.err = stageWrite, err
		return out
	}

	out.frame.Path = location
	return out
}
