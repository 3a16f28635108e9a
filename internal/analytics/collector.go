package analytics

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/medir/amharic-medsearch/pkg/kafka"
)

// Publisher is the subset of *kafka.Producer the collector needs.
type Publisher interface {
	PublishBatch(ctx context.Context, events []kafka.Event) error
}

// Collector records every event into the aggregator immediately and, when a
// publisher is configured, buffers the event for Kafka. The buffer is flushed
// when it reaches batchSize events or after flushInterval, whichever comes
// first.
type Collector struct {
	aggregator    *Aggregator
	publisher     Publisher
	mu            sync.Mutex
	buffer        []kafka.Event
	batchSize     int
	flushInterval time.Duration
	started       atomic.Bool
	done          chan struct{}
	logger        *slog.Logger
}

// NewCollector creates a collector. publisher may be nil, in which case
// events are only aggregated locally.
func NewCollector(agg *Aggregator, publisher Publisher, batchSize int, flushInterval time.Duration) *Collector {
	if batchSize <= 0 {
		batchSize = 100
	}
	if flushInterval <= 0 {
		flushInterval = 5 * time.Second
	}
	return &Collector{
		aggregator:    agg,
		publisher:     publisher,
		buffer:        make([]kafka.Event, 0, batchSize),
		batchSize:     batchSize,
		flushInterval: flushInterval,
		done:          make(chan struct{}),
		logger:        slog.Default().With("component", "analytics-collector"),
	}
}

func (c *Collector) Aggregator() *Aggregator {
	return c.aggregator
}

// Start launches the background flush loop. It returns immediately; the loop
// ends when ctx is cancelled, after a final flush.
func (c *Collector) Start(ctx context.Context) {
	if c.publisher == nil || !c.started.CompareAndSwap(false, true) {
		return
	}
	go func() {
		defer close(c.done)
		ticker := time.NewTicker(c.flushInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				c.Flush(ctx)
			case <-ctx.Done():
				flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				c.Flush(flushCtx)
				cancel()
				return
			}
		}
	}()
	c.logger.Info("analytics collector started",
		"batch_size", c.batchSize,
		"flush_interval", c.flushInterval,
	)
}

// Close waits for the flush loop started by Start to finish.
func (c *Collector) Close() {
	if c.started.Load() {
		<-c.done
	}
}

func (c *Collector) TrackSearch(event SearchEvent) {
	event.Type = EventSearch
	c.aggregator.RecordSearch(event)
	c.enqueue(string(EventSearch), event)
}

func (c *Collector) TrackIndex(event IndexEvent) {
	event.Type = EventIndex
	c.aggregator.RecordIndex(event)
	c.enqueue(string(EventIndex), event)
}

// BufferLen returns the number of events waiting to be published.
func (c *Collector) BufferLen() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.buffer)
}

func (c *Collector) enqueue(key string, value any) {
	if c.publisher == nil {
		return
	}
	c.mu.Lock()
	c.buffer = append(c.buffer, kafka.Event{Key: key, Value: value})
	shouldFlush := len(c.buffer) >= c.batchSize
	c.mu.Unlock()

	if shouldFlush {
		go c.Flush(context.Background())
	}
}

// Flush publishes the buffered events. A failed batch is put back in front
// of the buffer, which is capped at three batches; the oldest overflow is
// dropped.
func (c *Collector) Flush(ctx context.Context) {
	if c.publisher == nil {
		return
	}
	c.mu.Lock()
	if len(c.buffer) == 0 {
		c.mu.Unlock()
		return
	}
	batch := c.buffer
	c.buffer = make([]kafka.Event, 0, c.batchSize)
	c.mu.Unlock()

	if err := c.publisher.PublishBatch(ctx, batch); err != nil {
		c.logger.Error("analytics flush failed", "batch_size", len(batch), "error", err)
		c.mu.Lock()
		c.buffer = append(batch, c.buffer...)
		if limit := c.batchSize * 3; len(c.buffer) > limit {
			dropped := len(c.buffer) - limit
			c.buffer = c.buffer[dropped:]
			c.logger.Warn("analytics buffer overflow, events dropped", "dropped", dropped)
		}
		c.mu.Unlock()
		return
	}
	c.logger.Debug("analytics batch flushed", "events", len(batch))
}
