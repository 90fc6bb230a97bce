// Package pool wraps ants worker pools with stats and an error group that
// runs its tasks on the pool.
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

// ErrPoolClosed 池已关闭
var ErrPoolClosed = errors.New("pool closed")

// Config defines the configuration for the worker pool.
type Config struct {
	// Capacity 池容量（最大并发 goroutine 数）
	Capacity int
	// ExpiryDuration goroutine 空闲过期时间
	ExpiryDuration time.Duration
	// PreAlloc 是否预分配内存
	PreAlloc bool
	// Nonblocking 提交任务是否非阻塞（若池满则返回错误）
	Nonblocking bool
	// MaxBlockingTasks 当 Nonblocking=false 时，最大等待任务数（0 表示无限制）
	MaxBlockingTasks int
	// PanicHandler 恐慌处理函数
	PanicHandler func(interface{})
}

// DefaultConfig 返回默认池配置
func DefaultConfig() *Config {
	return &Config{
		Capacity:       64,
		ExpiryDuration: 10 * time.Second,
	}
}

// Pool represents a worker pool.
type Pool struct {
	name   string
	pool   *ants.Pool
	closed atomic.Bool

	submitted atomic.Int64
	completed atomic.Int64
	rejected  atomic.Int64
	panics    atomic.Int64
}

// Stats contains statistics about the worker pool.
type Stats struct {
	Running   int
	Submitted int64
	Completed int64
	Rejected  int64
	Panics    int64
}

// NewPool creates a new worker pool with the given configuration.
func NewPool(name string, config *Config) (*Pool, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Capacity <= 0 {
		return nil, fmt.Errorf("pool %s: capacity must be positive", name)
	}

	p := &Pool{name: name}

	panicHandler := config.PanicHandler
	if panicHandler == nil {
		panicHandler = func(v interface{}) {
			logger.Errorw("Worker panic recovered", "pool", name, "panic", v)
		}
	}

	ap, err := ants.NewPool(config.Capacity,
		ants.WithExpiryDuration(config.ExpiryDuration),
		ants.WithPreAlloc(config.PreAlloc),
		ants.WithNonblocking(config.Nonblocking),
		ants.WithMaxBlockingTasks(config.MaxBlockingTasks),
		ants.WithPanicHandler(func(v interface{}) {
			p.panics.Add(1)
			panicHandler(v)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("创建 ants 池失败: %w", err)
	}
	p.pool = ap

	logger.Infow("Worker pool created", "name", name, "capacity", config.Capacity)
	return p, nil
}

// Name 返回池名称
func (p *Pool) Name() string {
	return p.name
}

// Cap 返回池容量
func (p *Pool) Cap() int {
	return p.pool.Cap()
}

// Submit runs task on the pool.
func (p *Pool) Submit(task func()) error {
	if p.closed.Load() {
		return ErrPoolClosed
	}
	p.submitted.Add(1)
	err := p.pool.Submit(func() {
		defer p.completed.Add(1)
		task()
	})
	if err != nil {
		p.rejected.Add(1)
		return fmt.Errorf("pool %s: %w", p.name, err)
	}
	return nil
}

// Stats 返回池统计
func (p *Pool) Stats() Stats {
	return Stats{
		Running:   p.pool.Running(),
		Submitted: p.submitted.Load(),
		Completed: p.completed.Load(),
		Rejected:  p.rejected.Load(),
		Panics:    p.panics.Load(),
	}
}

// Release closes the pool. Queued tasks still run.
func (p *Pool) Release() {
	if p.closed.CompareAndSwap(false, true) {
		p.pool.Release()
	}
}

// Group runs a set of tasks on the pool and collects the first error.
// The context passed to each task is cancelled once any task fails.
type Group struct {
	pool   *Pool
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
	err    error
}

// Group returns a Group bound to ctx.
func (p *Pool) Group(ctx context.Context) *Group {
	ctx, cancel := context.WithCancel(ctx)
	return &Group{pool: p, ctx: ctx, cancel: cancel}
}

func (g *Group) fail(err error) {
	g.once.Do(func() {
		g.err = err
		g.cancel()
	})
}

// Go schedules fn. Tasks scheduled after a failure are skipped.
func (g *Group) Go(fn func(ctx context.Context) error) {
	if g.ctx.Err() != nil {
		return
	}
	g.wg.Add(1)
	err := g.pool.Submit(func() {
		defer g.wg.Done()
		if g.ctx.Err() != nil {
			return
		}
		defer func() {
			if r := recover(); r != nil {
				g.fail(fmt.Errorf("task panic: %v", r))
			}
		}()
		if err := fn(g.ctx); err != nil {
			g.fail(err)
		}
	})
	if err != nil {
		g.wg.Done()
		g.fail(err)
	}
}

// Wait blocks until every scheduled task returns and reports the first
// error, or the parent context's error if it was cancelled first.
func (g *Group) Wait() error {
	g.wg.Wait()
	parentErr := context.Cause(g.ctx)
	g.cancel()
	if g.err != nil {
		return g.err
	}
	if parentErr != nil {
		return parentErr
	}
	return nil
}
