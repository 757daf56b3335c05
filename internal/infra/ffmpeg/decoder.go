// Package ffmpeg decodes single frames at arbitrary timestamps. ffprobe
// reads the duration; ffmpeg command lines are built with
// github.com/u2takey/ffmpeg-go.
package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"os/exec"
	"strconv"
	"time"

	"github.com/fiapx/fiapx-frame-sampler/internal/domain/entity"
	"github.com/fiapx/fiapx-frame-sampler/internal/domain/port"
	ffmpeggo "github.com/u2takey/ffmpeg-go"
	"go.uber.org/zap"
)

const defaultProbeTimeout = 30 * time.Second

type DecoderConfig struct {
	// Binary is the ffmpeg executable; empty means "ffmpeg" from PATH.
	Binary string
	// ProbeBinary is the ffprobe executable; empty means "ffprobe" from PATH.
	ProbeBinary  string
	ProbeTimeout time.Duration
}

type Decoder struct {
	binary       string
	probeBinary  string
	probeTimeout time.Duration
	logger       *zap.Logger
}

func NewDecoder(cfg DecoderConfig, logger *zap.Logger) *Decoder {
	if cfg.Binary == "" {
		cfg.Binary = "ffmpeg"
	}
	if cfg.ProbeBinary == "" {
		cfg.ProbeBinary = "ffprobe"
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = defaultProbeTimeout
	}
	return &Decoder{
		binary:       cfg.Binary,
		probeBinary:  cfg.ProbeBinary,
		probeTimeout: cfg.ProbeTimeout,
		logger:       logger,
	}
}

// Open probes the video once. The returned session shells out per frame, so
// sessions are cheap and independent.
func (d *Decoder) Open(ctx context.Context, ref entity.VideoReference) (port.DecodeSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	raw, err := d.probe(ctx, ref.Locator())
	if err != nil {
		return nil, err
	}

	s := &session{decoder: d, locator: ref.Locator()}
	s.duration, s.durationErr = parseDuration(raw)
	return s, nil
}

// probe runs ffprobe bounded by both ctx and the probe timeout.
func (d *Decoder) probe(ctx context.Context, locator string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, d.probeTimeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, d.probeBinary,
		"-v", "error", "-show_format", "-show_streams", "-of", "json", locator)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", fmt.Errorf("ffprobe: %w", ctxErr)
		}
		return "", fmt.Errorf("ffprobe: %w, output: %s", err, stderr.String())
	}
	return stdout.String(), nil
}

type session struct {
	decoder     *Decoder
	locator     string
	duration    float64
	durationErr error
}

func (s *session) Duration() (float64, error) {
	return s.duration, s.durationErr
}

// FrameAt seeks on the input side (-ss before -i) and grabs one frame as
// PNG on stdout. An empty stdout means there is no frame at ts.
func (s *session) FrameAt(ctx context.Context, ts float64) (image.Image, error) {
	args := ffmpeggo.
		Input(s.locator, ffmpeggo.KwArgs{"ss": strconv.FormatFloat(ts, 'f', 6, 64)}).
		Output("pipe:", ffmpeggo.KwArgs{"frames:v": 1, "f": "image2pipe", "vcodec": "png"}).
		GlobalArgs("-nostdin", "-loglevel", "error").
		GetArgs()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, s.decoder.binary, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg error at %.3fs: %w, output: %s", ts, err, stderr.String())
	}
	if stdout.Len() == 0 {
		s.decoder.logger.Debug("no frame at timestamp", zap.Float64("timestamp", ts))
		return nil, nil
	}

	img, err := png.Decode(&stdout)
	if err != nil {
		return nil, fmt.Errorf("decode ffmpeg png output at %.3fs: %w", ts, err)
	}
	return img, nil
}

func (s *session) Close() error { return nil }
