package log

import (
	"context"
	"sync"
)

// Void is the value of futures that only signal completion.
type Void struct{}

// Future carries the single result of a log operation. It completes exactly
// once; later completions are dropped.
type Future[T any] struct {
	once  sync.Once
	done  chan struct{}
	value T
	err   error
}

func NewFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

func completed[T any](value T, err error) *Future[T] {
	f := NewFuture[T]()
	f.Complete(value, err)
	return f
}

func failed[T any](err error) *Future[T] {
	var zero T
	return completed(zero, err)
}

// Complete sets the result. It reports false if the future already completed.
func (f *Future[T]) Complete(value T, err error) bool {
	set := false
	f.once.Do(func() {
		f.value, f.err = value, err
		close(f.done)
		set = true
	})
	return set
}

func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Result blocks until the future completes.
func (f *Future[T]) Result() (T, error) {
	<-f.done
	return f.value, f.err
}

func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// OnComplete calls fn once with the result: inline when the future is already
// complete, otherwise from a new goroutine.
func (f *Future[T]) OnComplete(fn func(T, error)) {
	select {
	case <-f.done:
		fn(f.value, f.err)
	default:
		go func() {
			<-f.done
			fn(f.value, f.err)
		}()
	}
}
