package pool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kart-io/logger"
	"github.com/panjf2000/ants/v2"
)

// Config defines the configuration for the worker pool.
type Config struct {
	// Capacity 最大并发 goroutine 数。
	Capacity int
	// ExpiryDuration goroutine 空闲过期时间。
	ExpiryDuration time.Duration
	// Nonblocking 池满时 Submit 立即返回 ErrPoolOverload。
	Nonblocking bool
}

// DefaultConfig 返回默认池配置。
func DefaultConfig() *Config {
	return &Config{
		Capacity:       8,
		ExpiryDuration: 10 * time.Second,
	}
}

// Stats contains statistics about the worker pool.
type Stats struct {
	Submitted int64
	Completed int64
	Panics    int64
}

// Pool is a named ants pool with task counters.
type Pool struct {
	name   string
	pool   *ants.Pool
	closed atomic.Bool

	submitted atomic.Int64
	completed atomic.Int64
	panics    atomic.Int64
}

// NewPool creates a new worker pool.
func NewPool(name string, config *Config) (*Pool, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Capacity <= 0 {
		return nil, fmt.Errorf("pool %s: capacity must be positive", name)
	}

	p := &Pool{name: name}
	inner, err := ants.NewPool(config.Capacity,
		ants.WithExpiryDuration(config.ExpiryDuration),
		ants.WithNonblocking(config.Nonblocking),
		ants.WithPanicHandler(func(r interface{}) {
			p.panics.Add(1)
			logger.Errorw("worker panic recovered", "pool", name, "panic", r)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("create ants pool %s: %w", name, err)
	}
	p.pool = inner

	logger.Debugw("worker pool created", "name", name, "capacity", config.Capacity)
	return p, nil
}

// Name returns the pool name.
func (p *Pool) Name() string {
	return p.name
}

// Submit runs task on a pool goroutine.
func (p *Pool) Submit(task func()) error {
	if p.closed.Load() {
		return ErrPoolClosed
	}
	p.submitted.Add(1)
	err := p.pool.Submit(func() {
		defer p.completed.Add(1)
		task()
	})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ants.ErrPoolOverload):
		return ErrPoolOverload
	case errors.Is(err, ants.ErrPoolClosed):
		return ErrPoolClosed
	default:
		return err
	}
}

// Run executes every task on the pool and waits for all of them.
// It returns the first non-nil error; once a task fails the context passed
// to the remaining tasks is cancelled.
func (p *Pool) Run(ctx context.Context, tasks ...func(ctx context.Context) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		once     sync.Once
		firstErr error
	)
	fail := func(err error) {
		once.Do(func() {
			firstErr = err
			cancel()
		})
	}

	for _, task := range tasks {
		task := task
		wg.Add(1)
		err := p.Submit(func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					fail(fmt.Errorf("pool %s: task panicked: %v", p.name, r))
				}
			}()
			if ctx.Err() != nil {
				return
			}
			if err := task(ctx); err != nil {
				fail(err)
			}
		})
		if err != nil {
			wg.Done()
			fail(err)
			break
		}
	}
	wg.Wait()

	if firstErr == nil && ctx.Err() != nil {
		// parent context cancelled before every task ran
		return ctx.Err()
	}
	return firstErr
}

// Stats returns a snapshot of the pool counters.
func (p *Pool) Stats() Stats {
	return Stats{
		Submitted: p.submitted.Load(),
		Completed: p.completed.Load(),
		Panics:    p.panics.Load(),
	}
}

// Release closes the pool.
func (p *Pool) Release() {
	if p.closed.Swap(true) {
		return
	}
	p.pool.Release()
}
