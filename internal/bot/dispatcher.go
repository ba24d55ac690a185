package bot

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"animesanta/internal/transport"
)

// Dispatcher runs updates from the same user one at a time, in arrival order,
// while different users proceed in parallel.
type Dispatcher struct {
	handle func(ctx context.Context, u transport.Update)
	logger *zap.Logger

	mu     sync.Mutex
	queues map[int64][]transport.Update
	wg     sync.WaitGroup
}

func NewDispatcher(handle func(ctx context.Context, u transport.Update), logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		handle: handle,
		logger: logger,
		queues: map[int64][]transport.Update{},
	}
}

// Dispatch queues u behind the user's pending updates. A worker is started
// for the user when none is running.
func (d *Dispatcher) Dispatch(ctx context.Context, u transport.Update) {
	d.mu.Lock()
	defer d.mu.Unlock()
	q, running := d.queues[u.UserID]
	d.queues[u.UserID] = append(q, u)
	if running {
		return
	}
	d.wg.Add(1)
	go d.work(ctx, u.UserID)
}

func (d *Dispatcher) work(ctx context.Context, userID int64) {
	defer d.wg.Done()
	for {
		d.mu.Lock()
		q := d.queues[userID]
		if len(q) == 0 || ctx.Err() != nil {
			if len(q) > 0 {
				d.logger.Debug("dropping queued updates", zap.Int64("user_id", userID), zap.Int("count", len(q)))
			}
			delete(d.queues, userID)
			d.mu.Unlock()
			return
		}
		u := q[0]
		d.queues[userID] = q[1:]
		d.mu.Unlock()

		d.safeHandle(ctx, u)
	}
}

func (d *Dispatcher) safeHandle(ctx context.Context, u transport.Update) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("update handler panic", zap.Int64("user_id", u.UserID), zap.String("panic", fmt.Sprint(r)))
		}
	}()
	d.handle(ctx, u)
}

// Wait blocks until every worker has exited.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Run dispatches updates until ctx ends or the channel closes, then waits
// for in-flight handlers.
func (d *Dispatcher) Run(ctx context.Context, updates <-chan transport.Update) error {
	defer d.Wait()
	for {
		select {
		case <-ctx.Done():
			return nil
		case u, ok := <-updates:
			if !ok {
				return nil
			}
			d.Dispatch(ctx, u)
		}
	}
}
