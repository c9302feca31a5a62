// File: internal/infra/worker/pool.go
package worker

import (
	"context"
	"errors"
	"runtime"
	"sync"

	"github.com/rs/zerolog"
)

var ErrQueueFull = errors.New("worker queue full")

type Task func(ctx context.Context) error

// Pool runs submitted tasks on a fixed number of goroutines.
type Pool struct {
	wg     sync.WaitGroup
	jobs   chan Task
	quit   chan struct{}
	once   sync.Once
	cancel context.CancelFunc
	n      int
	log    *zerolog.Logger
}

func NewPool(workers, queueSize int, logger *zerolog.Logger) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if queueSize <= 0 {
		queueSize = workers * 4
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Pool{jobs: make(chan Task, queueSize), quit: make(chan struct{}), n: workers, log: logger}
}

// Start launches the workers. Tasks receive a context that Stop cancels.
func (p *Pool) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)
	for i := 0; i < p.n; i++ {
		p.wg.Add(1)
		go func(id int) {
			defer p.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case <-p.quit:
					return
				case task := <-p.jobs:
					if task == nil {
						continue
					}
					if err := task(ctx); err != nil {
						p.log.Error().Err(err).Int("worker", id).Msg("task failed")
					}
				}
			}
		}(i)
	}
}

// Stop cancels running tasks and waits for them to return. Queued tasks that
// did not start are dropped; the reconciler picks their work up again.
func (p *Pool) Stop() {
	p.once.Do(func() {
		close(p.quit)
		if p.cancel != nil {
			p.cancel()
		}
	})
	p.wg.Wait()
}

func (p *Pool) Submit(task Task) error {
	if task == nil {
		return errors.New("nil task")
	}
	select {
	case p.jobs <- task:
		return nil
	default:
		return ErrQueueFull
	}
}
