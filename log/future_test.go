package log

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFutureCompletesOnce(t *testing.T) {
	f := NewFuture[int]()
	select {
	case <-f.Done():
		t.Fatal("future done before completion")
	default:
	}

	assert.True(t, f.Complete(1, nil))
	assert.False(t, f.Complete(2, errors.New("late")))

	v, err := f.Result()
	require.NoError(t, err)
	assert.Equal(t, 1, v)
}

func TestFutureWait(t *testing.T) {
	f := NewFuture[string]()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := f.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	go func() {
		time.Sleep(5 * time.Millisecond)
		f.Complete("ok", nil)
	}()
	v, err := f.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
}

func TestFutureOnComplete(t *testing.T) {
	// already complete: called inline
	called := false
	completed(3, nil).OnComplete(func(v int, err error) {
		called = v == 3 && err == nil
	})
	assert.True(t, called)

	f := NewFuture[int]()
	got := make(chan error, 1)
	f.OnComplete(func(_ int, err error) {
		got <- err
	})
	boom := errors.New("boom")
	f.Complete(0, boom)
	select {
	case err := <-got:
		assert.Equal(t, boom, err)
	case <-time.After(time.Second):
		t.Fatal("callback not called")
	}
}

func TestMemLogFuturesAreComplete(t *testing.T) {
	rlog := NewMemLog()
	f := rlog.Append(NewNoOpEntry(1))
	select {
	case <-f.Done():
	default:
		t.Fatal("in-memory append should complete before returning")
	}
}
