package service

import (
	"log/slog"

	readinessmetrics "mirathi/internal/readiness/metrics"
)

// serviceConfig holds optional dependencies for the assessment service.
type serviceConfig struct {
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *readinessmetrics.Metrics
	tx             StoreTx
	cache          SnapshotCache
	outbox         OutboxAppender
	factRetries    int
}

// Option configures the service.
type Option func(c *serviceConfig)

func WithLogger(logger *slog.Logger) Option {
	return func(c *serviceConfig) {
		c.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(c *serviceConfig) {
		c.auditPublisher = publisher
	}
}

func WithMetrics(m *readinessmetrics.Metrics) Option {
	return func(c *serviceConfig) {
		c.metrics = m
	}
}

// WithStoreTx installs the transactional boundary mutations run inside.
// Defaults to an in-memory mutex suitable for the in-memory store.
func WithStoreTx(tx StoreTx) Option {
	return func(c *serviceConfig) {
		c.tx = tx
	}
}

// WithSnapshotCache installs a read-through cache consulted before the store
// on read paths and invalidated after every mutation.
func WithSnapshotCache(cache SnapshotCache) Option {
	return func(c *serviceConfig) {
		c.cache = cache
	}
}

// WithOutbox installs the transactional outbox. Every domain event raised by
// a mutation is appended as one entry inside the mutation's transaction.
func WithOutbox(appender OutboxAppender) Option {
	return func(c *serviceConfig) {
		c.outbox = appender
	}
}

// WithFactRetries bounds how many times an inbound fact is retried when a
// concurrent writer invalidates the loaded aggregate version.
// If not set or set to zero/negative, defaults to 3.
func WithFactRetries(n int) Option {
	return func(c *serviceConfig) {
		if n > 0 {
			c.factRetries = n
		}
	}
}
