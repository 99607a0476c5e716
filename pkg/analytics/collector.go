// Package analytics records request counters off the request path.
package analytics

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Collector receives fire-and-forget request events. Implementations must
// never block the request path and must swallow their own failures: this is
// best-effort telemetry, not correctness-relevant state.
type Collector interface {
	RecordRequest(containerID uuid.UUID)
}

// AsyncCollector counts requests per container on a background goroutine.
// Events are dropped, not queued, when the buffer is full.
type AsyncCollector struct {
	events chan uuid.UUID
	logger *zap.Logger

	mu     sync.RWMutex
	counts map[uuid.UUID]int64
}

// NewAsyncCollector starts the collector goroutine.
func NewAsyncCollector(logger *zap.Logger) *AsyncCollector {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &AsyncCollector{
		events: make(chan uuid.UUID, 1024),
		logger: logger,
		counts: make(map[uuid.UUID]int64),
	}
	go c.run()
	return c
}

// RecordRequest enqueues a request event without ever blocking. A full
// buffer drops the event.
func (c *AsyncCollector) RecordRequest(containerID uuid.UUID) {
	select {
	case c.events <- containerID:
	default:
		c.logger.Debug("analytics buffer full, dropping event",
			zap.String("container_id", containerID.String()))
	}
}

// Count returns the recorded request count for a container.
func (c *AsyncCollector) Count(containerID uuid.UUID) int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.counts[containerID]
}

func (c *AsyncCollector) run() {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Warn("analytics collector stopped", zap.Any("panic", r))
		}
	}()

	for id := range c.events {
		c.mu.Lock()
		c.counts[id]++
		c.mu.Unlock()
	}
}

// Ensure AsyncCollector implements Collector at compile time.
var _ Collector = (*AsyncCollector)(nil)
