package predict

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Tasks is the bounded background-work queue for fire-and-forget writes
// (cache population, analytics logging). When the queue is full, new
// work is dropped instead of blocking the request path: losing a cache
// write or a log row is an accepted degradation.
type Tasks struct {
	mu      sync.RWMutex
	queue   chan func(context.Context)
	closed  bool
	wg      sync.WaitGroup
	dropped atomic.Int64
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewTasks starts a pool of workers draining a queue of the given depth.
func NewTasks(workers, depth int) *Tasks {
	ctx, cancel := context.WithCancel(context.Background())
	t := &Tasks{
		queue:  make(chan func(context.Context), depth),
		ctx:    ctx,
		cancel: cancel,
	}

	for i := 0; i < workers; i++ {
		t.wg.Add(1)
		go t.worker()
	}
	return t
}

func (t *Tasks) worker() {
	defer t.wg.Done()
	for fn := range t.queue {
		t.run(fn)
	}
}

func (t *Tasks) run(fn func(context.Context)) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic in background task", "error", r)
		}
	}()
	fn(t.ctx)
}

// TrySubmit enqueues fn without blocking. Returns false (and counts the
// drop) when the queue is full or shutting down.
func (t *Tasks) TrySubmit(fn func(context.Context)) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.closed {
		t.dropped.Add(1)
		tasksDropped.Inc()
		return false
	}

	select {
	case t.queue <- fn:
		return true
	default:
		t.dropped.Add(1)
		tasksDropped.Inc()
		return false
	}
}

// Dropped reports how many tasks were rejected since startup.
func (t *Tasks) Dropped() int64 {
	return t.dropped.Load()
}

// Shutdown stops accepting work and waits for queued tasks until ctx
// expires; remaining tasks are then cancelled. The drain is bounded,
// not lossless.
func (t *Tasks) Shutdown(ctx context.Context) {
	t.mu.Lock()
	if !t.closed {
		t.closed = true
		close(t.queue)
	}
	t.mu.Unlock()

	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		t.cancel()
		<-done
	}
	t.cancel()
}
