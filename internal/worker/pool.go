package worker

import (
	"context"
	"errors"
	"hash/fnv"
	"sync"
	"time"

	"github.com/linguapath/learnmap/internal/logger"
)

// ErrStopped is returned when work is submitted after Stop.
var ErrStopped = errors.New("worker pool stopped")

type Job interface {
	Run(context.Context) error
	Name() string
}

// JobFunc adapts a plain function to Job.
type JobFunc struct {
	name string
	fn   func(context.Context) error
}

func NewJobFunc(name string, fn func(context.Context) error) JobFunc {
	return JobFunc{name: name, fn: fn}
}

func (j JobFunc) Name() string                  { return j.name }
func (j JobFunc) Run(ctx context.Context) error { return j.fn(ctx) }

// Pool runs jobs on a fixed set of shards. Every shard has one worker, so
// jobs submitted under the same key run one at a time in submission order.
type Pool struct {
	shards []chan Job
	wg     sync.WaitGroup
	queue  int
	cancel context.CancelFunc
	log    *logger.Logger

	mu      sync.RWMutex
	stopped bool
	done    chan struct{}
}

func NewPool(shards, queueSize int) *Pool {
	if shards <= 0 {
		shards = 2
	}
	if queueSize <= 0 {
		queueSize = 64
	}
	log := logger.Default().WithPrefix("worker-pool")
	log.Debug("creating worker pool with %d shards and queue size %d", shards, queueSize)
	p := &Pool{
		shards: make([]chan Job, shards),
		queue:  queueSize,
		log:    log,
		done:   make(chan struct{}),
	}
	for i := range p.shards {
		p.shards[i] = make(chan Job, queueSize)
	}
	return p
}

func (p *Pool) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.log.Info("starting worker pool with %d shards", len(p.shards))

	for i, jobs := range p.shards {
		p.wg.Add(1)
		go func(id int, jobs <-chan Job) {
			defer p.wg.Done()
			workerLog := p.log.WithField("shard", id)
			workerLog.Debug("worker started")

			for {
				select {
				case <-ctx.Done():
					workerLog.Debug("worker shutting down (context cancelled)")
					return
				case job, ok := <-jobs:
					if !ok {
						workerLog.Debug("worker shutting down (queue closed)")
						return
					}

					jobLog := workerLog.WithField("job", job.Name())
					jobLog.Debug("starting job")
					start := time.Now()

					jobCtx := logger.NewContext(ctx, jobLog)

					if err := job.Run(jobCtx); err != nil {
						jobLog.Error("job failed after %v: %v", time.Since(start), err)
					} else {
						jobLog.Debug("job completed in %v", time.Since(start))
					}
				}
			}
		}(i, jobs)
	}
}

// Stop cancels the workers and waits for running jobs. Jobs still queued are
// dropped and their Do callers get ErrStopped.
func (p *Pool) Stop() {
	p.log.Info("stopping worker pool")
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	close(p.done)
	if p.cancel != nil {
		p.cancel()
	}
	for _, jobs := range p.shards {
		close(jobs)
	}
	p.mu.Unlock()
	p.wg.Wait()
	p.log.Info("worker pool stopped")
}

// Submit queues job on the shard owning key. It blocks while that shard's
// queue is full.
func (p *Pool) Submit(key string, job Job) error {
	return p.submit(context.Background(), key, job)
}

func (p *Pool) submit(ctx context.Context, key string, job Job) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		return ErrStopped
	}
	p.log.Debug("submitting job: %s", job.Name())
	select {
	case p.shards[p.shardFor(key)] <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Do runs fn on the shard owning key and waits for its result. fn receives
// the caller's context, not the pool's.
func (p *Pool) Do(ctx context.Context, key, name string, fn func(context.Context) error) error {
	done := make(chan error, 1)
	job := NewJobFunc(name, func(context.Context) error {
		err := fn(ctx)
		done <- err
		return err
	})
	if err := p.submit(ctx, key, job); err != nil {
		return err
	}
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-p.done:
		p.wg.Wait()
		select {
		case err := <-done:
			return err
		default:
			return ErrStopped
		}
	}
}

func (p *Pool) shardFor(key string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % uint32(len(p.shards)))
}

// QueueSize returns the current number of pending jobs across all shards.
func (p *Pool) QueueSize() int {
	n := 0
	for _, jobs := range p.shards {
		n += len(jobs)
	}
	return n
}
