package worker

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Worker is a long-running task. Start blocks until ctx is cancelled or the
// task fails.
type Worker interface {
	Start(ctx context.Context) error
}

// Manager starts and supervises a set of workers. The first failing worker
// cancels the others.
type Manager struct {
	workers []Worker
}

func NewManager(ws ...Worker) *Manager {
	return &Manager{workers: ws}
}

// Start runs every worker and waits for all of them to exit. It returns the
// first error any worker reported.
func (m *Manager) Start(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, w := range m.workers {
		g.Go(func() error {
			return w.Start(gctx)
		})
	}
	return g.Wait()
}

// Func adapts a blocking function to Worker.
type Func func(ctx context.Context) error

func (f Func) Start(ctx context.Context) error { return f(ctx) }
