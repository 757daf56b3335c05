// Package mpeg1 decodes local MPEG-1 files in pure Go with
// github.com/gen2brain/mpeg, for hosts without an ffmpeg binary.
package mpeg1

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"sync"
	"time"

	"github.com/fiapx/fiapx-frame-sampler/internal/domain/entity"
	"github.com/fiapx/fiapx-frame-sampler/internal/domain/port"
	"github.com/gen2brain/mpeg"
)

var ErrRemoteReference = errors.New("mpeg1 decoder only reads local files")

type Decoder struct{}

func NewDecoder() *Decoder {
	return &Decoder{}
}

func (d *Decoder) Open(ctx context.Context, ref entity.VideoReference) (port.DecodeSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !ref.IsLocal() {
		return nil, ErrRemoteReference
	}

	f, err := os.Open(ref.Locator())
	if err != nil {
		return nil, fmt.Errorf("open video: %w", err)
	}

	mpg, err := mpeg.New(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("read mpeg stream: %w", err)
	}

	return &session{file: f, mpg: mpg}, nil
}

// session serializes access to the underlying decoder, which keeps a single
// read position.
type session struct {
	mu   sync.Mutex
	file *os.File
	mpg  *mpeg.MPEG
}

func (s *session) Duration() (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mpg.Duration().Seconds(), nil
}

// FrameAt returns an image backed by the decoder's buffers. It stays valid
// until the next FrameAt call on the same session.
func (s *session) FrameAt(ctx context.Context, ts float64) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	frame := s.mpg.SeekFrame(time.Duration(ts*float64(time.Second)), true)
	if frame == nil {
		return nil, nil
	}
	return frame.YCbCr(), nil
}

func (s *session) Close() error {
	return s.file.Close()
}
