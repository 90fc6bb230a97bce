package pool

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPool(t *testing.T, capacity int) *Pool {
	t.Helper()
	p, err := NewPool("test", &Config{Capacity: capacity, ExpiryDuration: time.Second})
	require.NoError(t, err)
	t.Cleanup(p.Release)
	return p
}

func TestNewPoolRejectsZeroCapacity(t *testing.T) {
	_, err := NewPool("bad", &Config{})
	assert.Error(t, err)
}

func TestGroupRunsAllTasks(t *testing.T) {
	p := newTestPool(t, 4)

	var counter atomic.Int32
	g := p.Group(context.Background())
	for i := 0; i < 50; i++ {
		g.Go(func(ctx context.Context) error {
			counter.Add(1)
			return nil
		})
	}

	require.NoError(t, g.Wait())
	assert.Equal(t, int32(50), counter.Load())
	assert.Equal(t, int64(50), p.Stats().Submitted)
}

func TestGroupReturnsFirstError(t *testing.T) {
	p := newTestPool(t, 2)
	boom := errors.New("boom")

	g := p.Group(context.Background())
	g.Go(func(ctx context.Context) error { return boom })
	for i := 0; i < 10; i++ {
		g.Go(func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		})
	}

	assert.ErrorIs(t, g.Wait(), boom)
}

func TestGroupRecoversPanic(t *testing.T) {
	p := newTestPool(t, 2)

	g := p.Group(context.Background())
	g.Go(func(ctx context.Context) error { panic("bad chunk") })

	err := g.Wait()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad chunk")
}

func TestGroupParentCancelled(t *testing.T) {
	p := newTestPool(t, 2)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	g := p.Group(ctx)
	g.Go(func(ctx context.Context) error { return nil })
	assert.ErrorIs(t, g.Wait(), context.Canceled)
}

func TestSubmitAfterRelease(t *testing.T) {
	p, err := NewPool("released", DefaultConfig())
	require.NoError(t, err)
	p.Release()

	assert.ErrorIs(t, p.Submit(func() {}), ErrPoolClosed)
}
