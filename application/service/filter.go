package service

import (
	"context"
	"errors"
	"log/slog"
	"runtime"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/helixml/runfilter/domain/filter"
	"github.com/helixml/runfilter/internal/metrics"
)

// Filter validates flow run filters.
type Filter struct {
	parallelism int
	metrics     *metrics.Metrics
	logger      *slog.Logger
	closed      atomic.Bool
}

// NewFilter creates a new Filter service.
// A parallelism below one uses GOMAXPROCS.
func NewFilter(parallelism int, m *metrics.Metrics, logger *slog.Logger) *Filter {
	if parallelism < 1 {
		parallelism = runtime.GOMAXPROCS(0)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Filter{
		parallelism: parallelism,
		metrics:     m,
		logger:      logger,
	}
}

// Validate checks a single candidate.
func (s *Filter) Validate(ctx context.Context, candidate any) (filter.FlowRunFilter, error) {
	if s.closed.Load() {
		return nil, ErrClientClosed
	}
	return s.validate(ctx, candidate)
}

// ValidateAll checks every candidate and returns the filters in input order.
// All candidates are checked; each failure is reported as a *filter.IndexError
// and the failures are joined.
func (s *Filter) ValidateAll(ctx context.Context, candidates []any) ([]filter.FlowRunFilter, error) {
	if s.closed.Load() {
		return nil, ErrClientClosed
	}

	results := make([]filter.FlowRunFilter, len(candidates))
	failures := make([]error, len(candidates))

	g := new(errgroup.Group)
	g.SetLimit(s.parallelism)
	var cancelled error
	for i, c := range candidates {
		if cancelled = ctx.Err(); cancelled != nil {
			break
		}
		g.Go(func() error {
			f, err := s.validate(ctx, c)
			if err != nil {
				failures[i] = &filter.IndexError{Index: i, Err: err}
				return nil
			}
			results[i] = f
			return nil
		})
	}
	_ = g.Wait()
	if cancelled != nil {
		return nil, cancelled
	}

	if err := errors.Join(failures...); err != nil {
		return nil, err
	}
	return results, nil
}

// Close stops the service; later calls return ErrClientClosed.
func (s *Filter) Close() {
	s.closed.Store(true)
}

func (s *Filter) validate(ctx context.Context, candidate any) (filter.FlowRunFilter, error) {
	start := time.Now()
	f, err := filter.Validate(candidate)
	s.metrics.Validation(f, err, time.Since(start))
	if err != nil {
		s.logger.DebugContext(ctx, "filter rejected", slog.String("error", err.Error()))
		return nil, err
	}
	return f, nil
}
