package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/helixml/runfilter/domain/filter"
	"github.com/helixml/runfilter/domain/flowrun"
	"github.com/helixml/runfilter/domain/query"
	"github.com/helixml/runfilter/internal/database"
	"github.com/helixml/runfilter/internal/metrics"
)

// DefaultLimit is the page size used when no limit is configured.
const DefaultLimit = 200

// FilterParams configures a flow run query.
type FilterParams struct {
	Filters []filter.FlowRunFilter
	Limit   int
	Offset  int
	Sort    string
}

// FlowRun stores flow runs and queries them with filters.
type FlowRun struct {
	store        flowrun.Store
	defaultLimit int
	metrics      *metrics.Metrics
	logger       *slog.Logger
	closed       atomic.Bool
}

// NewFlowRun creates a new FlowRun service.
// A defaultLimit below one uses DefaultLimit.
func NewFlowRun(store flowrun.Store, defaultLimit int, m *metrics.Metrics, logger *slog.Logger) *FlowRun {
	if defaultLimit < 1 {
		defaultLimit = DefaultLimit
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FlowRun{
		store:        store,
		defaultLimit: defaultLimit,
		metrics:      m,
		logger:       logger,
	}
}

// DefaultLimit returns the page size applied when a query has no limit.
func (s *FlowRun) DefaultLimit() int {
	return s.defaultLimit
}

// Create saves a new flow run.
func (s *FlowRun) Create(ctx context.Context, run flowrun.FlowRun) (flowrun.FlowRun, error) {
	if s.closed.Load() {
		return flowrun.FlowRun{}, ErrClientClosed
	}
	start := time.Now()
	saved, err := s.store.Save(ctx, run)
	s.metrics.Query("save", err, time.Since(start))
	if err != nil {
		return flowrun.FlowRun{}, fmt.Errorf("create flow run: %w", err)
	}
	s.logger.InfoContext(ctx, "flow run created",
		slog.String("id", saved.ID()),
		slog.String("name", saved.Name()),
		slog.String("state", string(saved.StateType())),
	)
	return saved, nil
}

// Get returns the flow run with the given ID.
func (s *FlowRun) Get(ctx context.Context, id string) (flowrun.FlowRun, error) {
	if s.closed.Load() {
		return flowrun.FlowRun{}, ErrClientClosed
	}
	start := time.Now()
	run, err := s.store.FindOne(ctx, query.WithID(id))
	s.metrics.Query("find_one", err, time.Since(start))
	if err != nil {
		return flowrun.FlowRun{}, fmt.Errorf("get flow run %s: %w", id, err)
	}
	return run, nil
}

// Delete removes the flow run with the given ID.
func (s *FlowRun) Delete(ctx context.Context, id string) error {
	if s.closed.Load() {
		return ErrClientClosed
	}
	start := time.Now()
	removed, err := s.store.DeleteBy(ctx, query.WithID(id))
	s.metrics.Query("delete", err, time.Since(start))
	if err != nil {
		return fmt.Errorf("delete flow run %s: %w", id, err)
	}
	if removed == 0 {
		return fmt.Errorf("delete flow run %s: %w", id, database.ErrNotFound)
	}
	s.logger.InfoContext(ctx, "flow run deleted", slog.String("id", id))
	return nil
}

// Filter returns one page of the flow runs matching every filter.
func (s *FlowRun) Filter(ctx context.Context, params FilterParams) ([]flowrun.FlowRun, error) {
	if s.closed.Load() {
		return nil, ErrClientClosed
	}

	limit, err := s.limit(params.Limit, params.Offset)
	if err != nil {
		return nil, err
	}
	order, err := flowrun.ParseSort(params.Sort)
	if err != nil {
		return nil, err
	}

	opts := filter.QueryOptions(params.Filters...)
	opts = append(opts, order...)
	opts = append(opts, query.WithPagination(limit, params.Offset)...)

	start := time.Now()
	runs, err := s.store.Find(ctx, opts...)
	s.metrics.Query("find", err, time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("filter flow runs: %w", err)
	}
	return runs, nil
}

// Count returns how many flow runs match every filter.
func (s *FlowRun) Count(ctx context.Context, filters ...filter.FlowRunFilter) (int64, error) {
	if s.closed.Load() {
		return 0, ErrClientClosed
	}
	start := time.Now()
	n, err := s.store.Count(ctx, filter.QueryOptions(filters...)...)
	s.metrics.Query("count", err, time.Since(start))
	if err != nil {
		return 0, fmt.Errorf("count flow runs: %w", err)
	}
	return n, nil
}

// Close stops the service; later calls return ErrClientClosed.
func (s *FlowRun) Close() {
	s.closed.Store(true)
}

func (s *FlowRun) limit(limit, offset int) (int, error) {
	if limit < 0 {
		return 0, fmt.Errorf("%w: limit must not be negative, got %d", ErrInvalidPagination, limit)
	}
	if offset < 0 {
		return 0, fmt.Errorf("%w: offset must not be negative, got %d", ErrInvalidPagination, offset)
	}
	if limit == 0 || limit > s.defaultLimit {
		return s.defaultLimit, nil
	}
	return limit, nil
}
