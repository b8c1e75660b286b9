// Package lifecycle starts and stops the connector and any background
// task goroutines (typically one websocket consumer). Grounded on the
// teacher's Engine.Start/Stop and main.go's signal-handling shutdown path,
// narrowed to the connector/task-factory shape spec §4.9 describes.
package lifecycle

import (
	"context"
	"log/slog"
	"sync"

	"venueexec/internal/connector"
)

// Task is a long-running background function started alongside the
// connector. It must return promptly once ctx is cancelled.
type Task func(ctx context.Context) error

// Controller owns the connector and a set of background tasks.
type Controller struct {
	conn   connector.Connector
	sink   connector.UpdateSink
	tasks  []Task
	logger *slog.Logger

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New builds a Controller for conn, dispatching connector updates to sink
// and running each of tasks in its own goroutine once started.
func New(conn connector.Connector, sink connector.UpdateSink, logger *slog.Logger, tasks ...Task) *Controller {
	return &Controller{
		conn:   conn,
		sink:   sink,
		tasks:  tasks,
		logger: logger.With("component", "lifecycle"),
	}
}

// Start calls the connector's Start, then spawns each background task.
// Idempotent: calling Start twice is a no-op.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started {
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	if err := c.conn.Start(runCtx, c.sink); err != nil {
		cancel()
		return err
	}
	c.cancel = cancel
	c.started = true

	for _, task := range c.tasks {
		c.wg.Add(1)
		go func(t Task) {
			defer c.wg.Done()
			if err := t(runCtx); err != nil && runCtx.Err() == nil {
				c.logger.Error("background task exited", "error", err)
			}
		}(task)
	}
	return nil
}

// Stop cancels all background tasks, waits for them, then stops the
// connector. Idempotent. Errors are logged and swallowed so every
// resource still gets a chance to clean up.
func (c *Controller) Stop(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.started {
		return
	}

	if c.cancel != nil {
		c.cancel()
	}
	c.wg.Wait()

	if err := c.conn.Stop(ctx); err != nil {
		c.logger.Error("connector stop failed", "error", err)
	}
	c.started = false
}
