package usecase

import (
	"context"

	"github.com/fiapx/fiapx-frame-sampler/internal/domain/entity"
)

// ResultHandler receives the terminal outcome of an extraction.
type ResultHandler func(entity.ExtractionResult)

// Dispatcher runs a callback on the execution context the caller expects to
// be notified on.
type Dispatcher interface {
	Dispatch(fn func())
}

type DispatcherFunc func(fn func())

func (f DispatcherFunc) Dispatch(fn func()) { f(fn) }

// InlineDispatcher runs callbacks on the extraction goroutine itself.
var InlineDispatcher Dispatcher = DispatcherFunc(func(fn func()) { fn() })

// CallbackQueue hands callbacks posted from background goroutines to a
// single foreground goroutine that drains it with Run or RunOnce.
type CallbackQueue struct {
	ch chan func()
}

func NewCallbackQueue(size int) *CallbackQueue {
	if size < 0 {
		size = 0
	}
	return &CallbackQueue{ch: make(chan func(), size)}
}

// Dispatch blocks until the queue has room.
func (q *CallbackQueue) Dispatch(fn func()) {
	q.ch <- fn
}

// RunOnce executes exactly one queued callback on the calling goroutine.
func (q *CallbackQueue) RunOnce(ctx context.Context) error {
	select {
	case fn := <-q.ch:
		fn()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run executes callbacks until ctx ends.
func (q *CallbackQueue) Run(ctx context.Context) error {
	for {
		if err := q.RunOnce(ctx); err != nil {
			return err
		}
	}
}
