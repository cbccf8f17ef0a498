package publisher

import (
	"context"
	"log/slog"
	"sync"
	"time"

	id "mirathi/pkg/domain"
	dErrors "mirathi/pkg/domain-errors"
	audit "mirathi/pkg/platform/audit"
	"mirathi/pkg/platform/audit/metrics"
)

// Publisher captures structured audit events. It is append-only and uses the
// storage layer for persistence so tests can swap sinks easily.
type Publisher struct {
	store   audit.Store
	events  chan audit.Event
	wg      sync.WaitGroup
	logger  *slog.Logger
	metrics *metrics.Metrics
	async   bool
}

// PublisherOption configures the Publisher.
type PublisherOption func(*Publisher)

// WithAsyncBuffer enables async processing with the specified buffer size.
// Events are queued and persisted in a background goroutine.
func WithAsyncBuffer(size int) PublisherOption {
	return func(p *Publisher) {
		if size > 0 {
			p.events = make(chan audit.Event, size)
			p.async = true
		}
	}
}

// WithPublisherLogger sets a logger for async error reporting.
func WithPublisherLogger(logger *slog.Logger) PublisherOption {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// WithMetrics attaches Prometheus metrics for queue depth, emit latency,
// and persistence outcomes.
func WithMetrics(m *metrics.Metrics) PublisherOption {
	return func(p *Publisher) {
		p.metrics = m
	}
}

func NewPublisher(store audit.Store, opts ...PublisherOption) *Publisher {
	p := &Publisher{store: store}
	for _, opt := range opts {
		opt(p)
	}
	if p.async {
		p.wg.Add(1)
		go p.processEvents()
	}
	return p
}

// processEvents runs in a goroutine and persists events from the channel.
func (p *Publisher) processEvents() {
	defer p.wg.Done()
	for event := range p.events {
		p.decQueueDepth()
		start := time.Now()
		if err := p.store.Append(context.Background(), event); err != nil {
			p.incPersistFailures()
			if p.logger != nil {
				p.logger.Error("failed to persist audit event",
					"error", err,
					"action", event.Action,
					"assessment_id", event.AssessmentID,
				)
			}
			continue
		}
		p.observePersistDuration(time.Since(start).Seconds())
		p.incEventsProcessed()
	}
}

// Close shuts down the async publisher and waits for pending events to drain.
func (p *Publisher) Close() {
	if p.async && p.events != nil {
		drained := len(p.events)
		close(p.events)
		p.wg.Wait()
		p.addWorkerDrainEvents(drained)
	}
}

func (p *Publisher) Emit(ctx context.Context, base audit.Event) error {
	start := time.Now()
	defer func() { p.observeEmitDuration(time.Since(start).Seconds()) }()

	if base.Timestamp.IsZero() {
		base.Timestamp = time.Now()
	}
	if p.async {
		// Non-blocking send with context cancellation support
		select {
		case p.events <- base:
			p.incQueueDepth()
			p.incEventsEnqueued()
			return nil
		case <-ctx.Done():
			return ctx.Err()
		default:
			p.incEventsDropped()
			if p.logger != nil {
				p.logger.Warn("audit buffer full, event dropped",
					"action", base.Action,
					"assessment_id", base.AssessmentID,
				)
			}
			return dErrors.New(dErrors.CodeInternal, "audit buffer full")
		}
	}
	if err := p.store.Append(ctx, base); err != nil {
		p.incPersistFailures()
		return err
	}
	p.incEventsProcessed()
	return nil
}

func (p *Publisher) List(ctx context.Context, assessmentID id.AssessmentID) ([]audit.Event, error) {
	return p.store.ListByAssessment(ctx, assessmentID)
}

func (p *Publisher) incQueueDepth() {
	if p.metrics != nil {
		p.metrics.IncQueueDepth()
	}
}

func (p *Publisher) decQueueDepth() {
	if p.metrics != nil {
		p.metrics.DecQueueDepth()
	}
}

func (p *Publisher) incEventsDropped() {
	if p.metrics != nil {
		p.metrics.IncEventsDropped()
	}
}

func (p *Publisher) incEventsEnqueued() {
	if p.metrics != nil {
		p.metrics.IncEventsEnqueued()
	}
}

func (p *Publisher) incEventsProcessed() {
	if p.metrics != nil {
		p.metrics.IncEventsProcessed()
	}
}

func (p *Publisher) incPersistFailures() {
	if p.metrics != nil {
		p.metrics.IncPersistFailures()
	}
}

func (p *Publisher) observeEmitDuration(seconds float64) {
	if p.metrics != nil {
		p.metrics.ObserveEmitDuration(seconds)
	}
}

func (p *Publisher) observePersistDuration(seconds float64) {
	if p.metrics != nil {
		p.metrics.ObservePersistDuration(seconds)
	}
}

func (p *Publisher) addWorkerDrainEvents(n int) {
	if p.metrics == nil {
		return
	}
	for i := 0; i < n; i++ {
		p.metrics.IncWorkerDrainEvents()
	}
}
