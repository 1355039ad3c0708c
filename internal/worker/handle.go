package worker

import (
	"context"
	"sync"

	"github.com/hamed0406/bgpcheck/internal/config"
)

// Handle tracks one running worker goroutine.
type Handle struct {
	check  config.Check
	cancel context.CancelFunc
	done   chan struct{}

	mu  sync.Mutex
	err error
}

// Start creates a worker for c and runs it on its own goroutine. The worker
// stops when ctx is done or Stop is called.
func Start(ctx context.Context, c config.Check, opts Options) (*Handle, error) {
	w, err := New(c, opts)
	if err != nil {
		return nil, err
	}
	return Go(ctx, w), nil
}

// Go runs an already built worker.
func Go(ctx context.Context, w *Worker) *Handle {
	ctx, cancel := context.WithCancel(ctx)
	h := &Handle{check: w.check, cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(h.done)
		defer cancel()
		err := w.Run(ctx)
		h.mu.Lock()
		h.err = err
		h.mu.Unlock()
	}()
	return h
}

func (h *Handle) Check() config.Check { return h.check }

func (h *Handle) Running() bool {
	select {
	case <-h.done:
		return false
	default:
		return true
	}
}

func (h *Handle) Done() <-chan struct{} { return h.done }

// Err is the error the worker exited with, nil while it runs or after a
// clean stop.
func (h *Handle) Err() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.err
}

// Stop cancels the worker and waits for it to withdraw its routes.
func (h *Handle) Stop() error {
	h.cancel()
	<-h.done
	return h.Err()
}
