package port

import (
	"context"
	"image"

	"github.com/fiapx/fiapx-frame-sampler/internal/domain/entity"
)

// VideoDecoder opens a video for random-access frame decoding.
type VideoDecoder interface {
	Open(ctx context.Context, ref entity.VideoReference) (DecodeSession, error)
}

// DecodeSession belongs to a single goroutine. Parallel callers open one
// session each.
type DecodeSession interface {
	// Duration returns the video length in seconds.
	Duration() (float64, error)
	// FrameAt decodes the frame shown at ts seconds. A nil image with a nil
	// error means the decoder had nothing to show at ts.
	FrameAt(ctx context.Context, ts float64) (image.Image, error)
	Close() error
}

// ImageEncoder compresses a decoded frame. Quality ranges 1..100.
type ImageEncoder interface {
	Encode(img image.Image, quality int) ([]byte, error)
	// Extension is the file extension without the dot, e.g. "jpg".
	Extension() string
}

// FileWriter persists encoded frames under a process-wide scratch directory.
type FileWriter interface {
	// ScratchDirectory returns the base directory, creating it if absent.
	ScratchDirectory() (string, error)
	Write(data []byte, location string) error
	// RemoveAll deletes location and everything below it.
	RemoveAll(location string) error
}
