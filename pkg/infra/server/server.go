// Package server runs the HTTP server and any other long-running
// components under one start/stop lifecycle.
package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/kart-io/logger"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"
)

// Runnable is a component with a start/stop lifecycle. Start must not block.
type Runnable interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// Manager starts Runnables in order and stops them in reverse order.
type Manager struct {
	shutdownTimeout time.Duration

	mu      sync.Mutex
	servers []Runnable
	started []Runnable
}

// NewManager creates a new manager.
func NewManager(shutdownTimeout time.Duration) *Manager {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &Manager{shutdownTimeout: shutdownTimeout}
}

// AddServer registers r. Must be called before Start.
func (m *Manager) AddServer(r Runnable) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.servers = append(m.servers, r)
}

// Start starts every registered Runnable. On failure the ones already
// started are stopped again.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.started) > 0 {
		return fmt.Errorf("server manager already started")
	}
	for _, s := range m.servers {
		if err := s.Start(ctx); err != nil {
			m.stopLocked(ctx)
			return fmt.Errorf("failed to start %s: %w", s.Name(), err)
		}
		m.started = append(m.started, s)
		logger.Infow("Server started", "name", s.Name())
	}
	return nil
}

// Stop stops every started Runnable in reverse order.
func (m *Manager) Stop(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopLocked(ctx)
}

func (m *Manager) stopLocked(ctx context.Context) error {
	var errs []error
	for i := len(m.started) - 1; i >= 0; i-- {
		s := m.started[i]
		if err := s.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop %s: %w", s.Name(), err))
			continue
		}
		logger.Infow("Server stopped", "name", s.Name())
	}
	m.started = nil
	return utilerrors.NewAggregate(errs)
}

// Run starts everything, waits for SIGINT/SIGTERM or ctx cancellation,
// then shuts down within the shutdown timeout.
func (m *Manager) Run(ctx context.Context) error {
	if err := m.Start(ctx); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	logger.Info("Server shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), m.shutdownTimeout)
	defer cancel()
	return m.Stop(shutdownCtx)
}
