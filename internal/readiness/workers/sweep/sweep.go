package sweep

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"mirathi/internal/readiness/metrics"
	id "mirathi/pkg/domain"
)

// Assessor is the slice of the readiness service the sweep drives.
type Assessor interface {
	SweepDue(ctx context.Context, due time.Time, limit int) ([]id.AssessmentID, error)
	SweepAutoResolveTimeouts(ctx context.Context, assessmentID id.AssessmentID, now time.Time) (int, error)
}

// Result summarizes one sweep run.
type Result struct {
	AssessmentsSwept int
	FlagsClosed      int
}

// Sweeper periodically closes risk flags whose auto-resolve deadline elapsed.
// Flags are left open across restarts rather than closed late twice: the
// deadline check is against the flag, so a missed tick only delays closure.
type Sweeper struct {
	assessor    Assessor
	interval    time.Duration
	batchSize   int
	concurrency int
	logger      *slog.Logger
	metrics     *metrics.Metrics
}

// Option configures Sweeper.
type Option func(*Sweeper)

// WithSweepInterval overrides the sweep interval when greater than zero.
func WithSweepInterval(interval time.Duration) Option {
	return func(s *Sweeper) {
		if interval > 0 {
			s.interval = interval
		}
	}
}

// WithSweepBatchSize caps how many assessments one run processes.
func WithSweepBatchSize(n int) Option {
	return func(s *Sweeper) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// WithSweepConcurrency bounds how many assessments are swept in parallel.
func WithSweepConcurrency(n int) Option {
	return func(s *Sweeper) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithSweepLogger overrides the logger used for sweep errors.
func WithSweepLogger(logger *slog.Logger) Option {
	return func(s *Sweeper) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithSweepMetrics attaches sweep duration and closure metrics.
func WithSweepMetrics(m *metrics.Metrics) Option {
	return func(s *Sweeper) {
		if m != nil {
			s.metrics = m
		}
	}
}

// New constructs a Sweeper with the required assessor and options applied.
func New(assessor Assessor, opts ...Option) (*Sweeper, error) {
	if assessor == nil {
		return nil, fmt.Errorf("assessor is required")
	}
	s := &Sweeper{
		assessor:    assessor,
		interval:    5 * time.Minute,
		batchSize:   100,
		concurrency: 4,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

// Start runs the sweep periodically until ctx is cancelled.
func (s *Sweeper) Start(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := s.RunOnce(ctx); err != nil {
				s.logger.ErrorContext(ctx, "timeout sweep failed", "error", err)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// RunOnce performs a single sweep at the current time.
func (s *Sweeper) RunOnce(ctx context.Context) (Result, error) {
	return s.RunAt(ctx, time.Now().UTC())
}

// RunAt sweeps every assessment holding flags due at now. Each assessment is
// its own transaction, so a failure on one does not stop the rest; failures
// are aggregated and returned, and the flags stay open for the next run.
func (s *Sweeper) RunAt(ctx context.Context, now time.Time) (Result, error) {
	start := time.Now()

	ids, err := s.assessor.SweepDue(ctx, now, s.batchSize)
	if err != nil {
		return Result{}, fmt.Errorf("list sweep-due assessments: %w", err)
	}
	if len(ids) == 0 {
		return Result{}, nil
	}

	var (
		mu   sync.Mutex
		res  Result
		errs []error
	)
	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for _, assessmentID := range ids {
		g.Go(func() error {
			closed, err := s.assessor.SweepAutoResolveTimeouts(ctx, assessmentID, now)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, fmt.Errorf("sweep assessment %s: %w", assessmentID, err))
				return nil
			}
			if closed > 0 {
				res.AssessmentsSwept++
				res.FlagsClosed += closed
			}
			return nil
		})
	}
	// Errors are collected above; Wait only joins the goroutines.
	_ = g.Wait()

	s.observeSweep(start, res.FlagsClosed)

	if len(errs) > 0 {
		return res, errors.Join(errs...)
	}
	if res.FlagsClosed > 0 {
		s.logger.InfoContext(ctx, "timeout sweep completed",
			"assessments_swept", res.AssessmentsSwept,
			"flags_closed", res.FlagsClosed,
		)
	}
	return res, nil
}

func (s *Sweeper) observeSweep(start time.Time, flagsClosed int) {
	if s.metrics != nil {
		s.metrics.ObserveSweep(start, flagsClosed)
	}
}
