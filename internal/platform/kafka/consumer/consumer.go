package consumer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
)

// Message represents a received Kafka message.
type Message struct {
	Topic     string
	Partition int32
	Offset    int64
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Timestamp time.Time
}

// Handler processes consumed messages.
type Handler interface {
	// Handle processes a message. Return error to skip commit (message will
	// be redelivered after a rebalance or restart).
	Handle(ctx context.Context, msg *Message) error
}

// Consumer wraps the franz-go client in a poll/handle/commit loop.
// Auto-commit is disabled; offsets advance only after Handle returns nil,
// giving at-least-once delivery.
type Consumer struct {
	client  *kgo.Client
	handler Handler
	logger  *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
}

// Config holds consumer configuration.
type Config struct {
	Brokers         string
	GroupID         string
	AutoOffsetReset string
}

// New creates a new Kafka consumer group member.
func New(cfg Config, handler Handler, logger *slog.Logger) (*Consumer, error) {
	if cfg.Brokers == "" {
		return nil, fmt.Errorf("kafka brokers not configured")
	}
	if cfg.GroupID == "" {
		return nil, fmt.Errorf("kafka consumer group ID not configured")
	}
	if handler == nil {
		return nil, fmt.Errorf("kafka consumer handler is required")
	}

	offset := kgo.NewOffset().AtStart()
	if cfg.AutoOffsetReset == "latest" {
		offset = kgo.NewOffset().AtEnd()
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(strings.Split(cfg.Brokers, ",")...),
		kgo.ConsumerGroup(cfg.GroupID),
		kgo.ConsumeResetOffset(offset),
		// Manual commits for at-least-once delivery
		kgo.DisableAutoCommit(),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka consumer: %w", err)
	}

	return &Consumer{
		client:  client,
		handler: handler,
		logger:  logger,
	}, nil
}

// Subscribe adds topics to the group subscription. The group rebalances to
// pick up the new topics.
func (c *Consumer) Subscribe(topics []string) error {
	if len(topics) == 0 {
		return fmt.Errorf("no topics to subscribe to")
	}
	c.client.AddConsumeTopics(topics...)
	return nil
}

// Start begins the consumption loop in a background goroutine.
func (c *Consumer) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel

	c.wg.Add(1)
	go c.run(ctx)
}

// run is the main consumption loop.
func (c *Consumer) run(ctx context.Context) {
	defer c.wg.Done()

	for {
		fetches := c.client.PollFetches(ctx)
		if fetches.IsClientClosed() || ctx.Err() != nil {
			return
		}

		fetches.EachError(func(topic string, partition int32, err error) {
			if errors.Is(err, context.Canceled) {
				return
			}
			if c.logger != nil {
				c.logger.Error("kafka fetch error",
					"topic", topic,
					"partition", partition,
					"error", err,
				)
			}
		})

		fetches.EachRecord(func(rec *kgo.Record) {
			c.handleRecord(ctx, rec)
		})
	}
}

// handleRecord processes a single Kafka record and commits it on success.
func (c *Consumer) handleRecord(ctx context.Context, rec *kgo.Record) {
	headers := make(map[string]string, len(rec.Headers))
	for _, h := range rec.Headers {
		headers[h.Key] = string(h.Value)
	}

	msg := &Message{
		Topic:     rec.Topic,
		Partition: rec.Partition,
		Offset:    rec.Offset,
		Key:       rec.Key,
		Value:     rec.Value,
		Headers:   headers,
		Timestamp: rec.Timestamp,
	}

	if err := c.handler.Handle(ctx, msg); err != nil {
		if c.logger != nil {
			c.logger.Error("failed to handle message",
				"topic", msg.Topic,
				"partition", msg.Partition,
				"offset", msg.Offset,
				"error", err,
			)
		}
		// Don't commit - message will be redelivered
		return
	}

	if err := c.client.CommitRecords(ctx, rec); err != nil {
		if c.logger != nil {
			c.logger.Error("failed to commit offset",
				"topic", msg.Topic,
				"partition", msg.Partition,
				"offset", msg.Offset,
				"error", err,
			)
		}
	}
}

// Stop gracefully stops the consumer.
func (c *Consumer) Stop(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	if c.cancel != nil {
		c.cancel()
	}

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		c.client.Close()
		return nil
	case <-ctx.Done():
		c.client.Close()
		return ctx.Err()
	}
}

// Healthy checks if the consumer can communicate with brokers.
func (c *Consumer) Healthy(ctx context.Context) bool {
	c.mu.RLock()
	if c.closed {
		c.mu.RUnlock()
		return false
	}
	c.mu.RUnlock()

	return c.client.Ping(ctx) == nil
}
