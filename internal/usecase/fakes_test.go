package usecase

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fiapx/fiapx-frame-sampler/internal/domain/entity"
	"github.com/fiapx/fiapx-frame-sampler/internal/domain/port"
	"github.com/google/uuid"
)

// tsImage is a 1x1 frame that remembers the timestamp it was decoded at.
type tsImage struct{ ts float64 }

func (tsImage) ColorModel() color.Model { return color.GrayModel }
func (tsImage) Bounds() image.Rectangle { return image.Rect(0, 0, 1, 1) }
func (tsImage) At(int, int) color.Color { return color.Gray{Y: 128} }

func near(set []float64, ts float64) bool {
	for _, v := range set {
		if math.Abs(v-ts) < 1e-9 {
			return true
		}
	}
	return false
}

type fakeDecoder struct {
	mu          sync.Mutex
	duration    float64
	openErr     error
	durationErr error
	failAt      []float64
	emptyAt     []float64
	onFrame     func(ts float64)

	opens   int
	opened  []string
	decoded []float64
}

func (d *fakeDecoder) Open(_ context.Context, ref entity.VideoReference) (port.DecodeSession, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.opens++
	d.opened = append(d.opened, ref.Locator())
	if d.openErr != nil {
		return nil, d.openErr
	}
	return &fakeSession{d: d}, nil
}

func (d *fakeDecoder) openCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.opens
}

func (d *fakeDecoder) decodedCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.decoded)
}

type fakeSession struct{ d *fakeDecoder }

func (s *fakeSession) Duration() (float64, error) {
	return s.d.duration, s.d.durationErr
}

func (s *fakeSession) FrameAt(_ context.Context, ts float64) (image.Image, error) {
	s.d.mu.Lock()
	s.d.decoded = append(s.d.decoded, ts)
	hook := s.d.onFrame
	s.d.mu.Unlock()

	if hook != nil {
		hook(ts)
	}
	if near(s.d.failAt, ts) {
		return nil, fmt.Errorf("corrupt packet at %.3f", ts)
	}
	if near(s.d.emptyAt, ts) {
		return nil, nil
	}
	return tsImage{ts: ts}, nil
}

func (s *fakeSession) Close() error { return nil }

type fakeEncoder struct {
	mu        sync.Mutex
	failAt    []float64
	calls     int
	qualities []int
}

func (e *fakeEncoder) Encode(img image.Image, quality int) ([]byte, error) {
	e.mu.Lock()
	e.calls++
	e.qualities = append(e.qualities, quality)
	e.mu.Unlock()

	ts := img.(tsImage).ts
	if near(e.failAt, ts) {
		return nil, errors.New("encoder out of memory")
	}
	return []byte(fmt.Sprintf("%.6f", ts)), nil
}

func (e *fakeEncoder) Extension() string { return "jpg" }

func (e *fakeEncoder) callCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

// memWriter keeps frames in memory and fails writes whose base name is in
// failNames.
type memWriter struct {
	mu         sync.Mutex
	dir        string
	dirErr     error
	failNames  []string
	files      map[string][]byte
	dirCalls   int
	removedDir []string
}

func newMemWriter() *memWriter {
	return &memWriter{dir: "/scratch", files: map[string][]byte{}}
}

func (w *memWriter) ScratchDirectory() (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.dirCalls++
	return w.dir, w.dirErr
}

func (w *memWriter) Write(data []byte, location string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, n := range w.failNames {
		if filepath.Base(location) == n {
			return errors.New("disk full")
		}
	}
	w.files[location] = data
	return nil
}

func (w *memWriter) RemoveAll(location string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.removedDir = append(w.removedDir, location)
	for k := range w.files {
		if strings.HasPrefix(k, location+string(filepath.Separator)) {
			delete(w.files, k)
		}
	}
	return nil
}

type fakeRepo struct {
	mu      sync.Mutex
	jobs    map[uuid.UUID]entity.Job
	findErr error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{jobs: map[uuid.UUID]entity.Job{}}
}

func (r *fakeRepo) Create(_ context.Context, job *entity.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[job.ID] = *job
	return nil
}

func (r *fakeRepo) Update(_ context.Context, job *entity.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.jobs[job.ID]; !ok {
		return entity.ErrJobNotFound
	}
	r.jobs[job.ID] = *job
	return nil
}

func (r *fakeRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	job, ok := r.jobs[id]
	if !ok {
		return nil, entity.ErrJobNotFound
	}
	return &job, nil
}

func (r *fakeRepo) get(id uuid.UUID) entity.Job {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.jobs[id]
}

type fakeStorage struct {
	downloadErr error
	uploadErr   error
	downloaded  []string
	uploads     map[string][]byte
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{uploads: map[string][]byte{}}
}

func (s *fakeStorage) DownloadVideo(_ context.Context, objectKey, destPath string) error {
	if s.downloadErr != nil {
		return s.downloadErr
	}
	s.downloaded = append(s.downloaded, objectKey)
	return os.WriteFile(destPath, []byte("not really a video"), 0644)
}

func (s *fakeStorage) UploadZip(_ context.Context, objectKey string, r io.Reader, size int64) error {
	if s.uploadErr != nil {
		return s.uploadErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	if int64(len(data)) != size {
		return fmt.Errorf("size mismatch: got %d, declared %d", len(data), size)
	}
	s.uploads[objectKey] = data
	return nil
}

type recordingPublisher struct {
	mu       sync.Mutex
	statuses [][]byte
	dlq      [][]byte
	reasons  []string
}

func (p *recordingPublisher) PublishStatus(_ context.Context, msg []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.statuses = append(p.statuses, msg)
	return nil
}

func (p *recordingPublisher) PublishToDLQ(_ context.Context, msg []byte, reason string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.dlq = append(p.dlq, msg)
	p.reasons = append(p.reasons, reason)
	return nil
}

type recordingNotifier struct {
	to   []string
	jobs []entity.Job
}

func (n *recordingNotifier) NotifyFailure(_ context.Context, userEmail string, job *entity.Job) error {
	n.to = append(n.to, userEmail)
	n.jobs = append(n.jobs, *job)
	return nil
}
