package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linguapath/learnmap/internal/worker"
)

func TestDo_ReturnsJobResult(t *testing.T) {
	p := worker.NewPool(2, 4)
	p.Start(context.Background())
	defer p.Stop()

	boom := errors.New("boom")
	err := p.Do(context.Background(), "alice", "fail", func(context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)

	ran := false
	err = p.Do(context.Background(), "alice", "ok", func(context.Context) error { ran = true; return nil })
	require.NoError(t, err)
	assert.True(t, ran)
}

func TestDo_PassesCallerContext(t *testing.T) {
	p := worker.NewPool(1, 1)
	p.Start(context.Background())
	defer p.Stop()

	type key struct{}
	ctx := context.WithValue(context.Background(), key{}, "caller")
	var got any
	require.NoError(t, p.Do(ctx, "k", "ctx", func(ctx context.Context) error {
		got = ctx.Value(key{})
		return nil
	}))
	assert.Equal(t, "caller", got)
}

func TestDo_SameKeyNeverOverlaps(t *testing.T) {
	p := worker.NewPool(4, 16)
	p.Start(context.Background())
	defer p.Stop()

	var (
		mu      sync.Mutex
		running int
		maxSeen int
		wg      sync.WaitGroup
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = p.Do(context.Background(), "same-user", "step", func(context.Context) error {
				mu.Lock()
				running++
				if running > maxSeen {
					maxSeen = running
				}
				mu.Unlock()
				time.Sleep(time.Millisecond)
				mu.Lock()
				running--
				mu.Unlock()
				return nil
			})
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, maxSeen)
}

func TestSubmit_AfterStop(t *testing.T) {
	p := worker.NewPool(1, 1)
	p.Start(context.Background())
	p.Stop()
	p.Stop()

	err := p.Submit("k", worker.NewJobFunc("late", func(context.Context) error { return nil }))
	assert.ErrorIs(t, err, worker.ErrStopped)

	err = p.Do(context.Background(), "k", "late", func(context.Context) error { return nil })
	assert.ErrorIs(t, err, worker.ErrStopped)
}

func TestDo_CallerContextCancelled(t *testing.T) {
	p := worker.NewPool(1, 1)
	p.Start(context.Background())
	defer p.Stop()

	release := make(chan struct{})
	started := make(chan struct{})
	require.NoError(t, p.Submit("k", worker.NewJobFunc("block", func(context.Context) error {
		close(started)
		<-release
		return nil
	})))
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := p.Do(ctx, "k", "waits", func(context.Context) error { return nil })
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	close(release)
}
