// Package metrics exposes Prometheus instrumentation for filter validation,
// flow run queries and the HTTP API.
package metrics

import (
	"errors"
	"strconv"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/helixml/runfilter/domain/filter"
)

const namespace = "runfilter"

// Metrics holds the collectors. A nil *Metrics records nothing.
type Metrics struct {
	validations        *prom.CounterVec
	validationDuration prom.Histogram
	queries            *prom.CounterVec
	queryDurations     *prom.HistogramVec
	requests           *prom.CounterVec
	requestDurations   prom.Histogram
}

// New creates the collectors and registers them with reg.
func New(reg prom.Registerer) *Metrics {
	buckets := prom.ExponentialBuckets(time.Microsecond.Seconds()*50, 2.0, 18)

	m := &Metrics{
		validations: prom.NewCounterVec(
			prom.CounterOpts{
				Namespace: namespace,
				Name:      "filter_validations_total",
				Help:      "Filter validations, partitioned by resolved property and outcome kind",
			},
			[]string{"property", "result"},
		),
		validationDuration: prom.NewHistogram(
			prom.HistogramOpts{
				Namespace: namespace,
				Name:      "filter_validation_duration_seconds",
				Help:      "Time spent validating one filter",
				Buckets:   buckets,
			},
		),
		queries: prom.NewCounterVec(
			prom.CounterOpts{
				Namespace: namespace,
				Name:      "flow_run_queries_total",
				Help:      "Flow run store operations, partitioned by operation and success",
			},
			[]string{"operation", "ok"},
		),
		queryDurations: prom.NewHistogramVec(
			prom.HistogramOpts{
				Namespace: namespace,
				Name:      "flow_run_query_duration_seconds",
				Help:      "Time spent in flow run store operations",
				Buckets:   buckets,
			},
			[]string{"operation"},
		),
		requests: prom.NewCounterVec(
			prom.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "How many HTTP requests processed, partitioned by status code and method",
			},
			[]string{"code", "method"},
		),
		requestDurations: prom.NewHistogram(
			prom.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "Duration of HTTP requests",
				Buckets:   prom.ExponentialBuckets(time.Millisecond.Seconds(), 2.0, 16),
			},
		),
	}

	reg.MustRegister(m.validations)
	reg.MustRegister(m.validationDuration)
	reg.MustRegister(m.queries)
	reg.MustRegister(m.queryDurations)
	reg.MustRegister(m.requests)
	reg.MustRegister(m.requestDurations)

	return m
}

// Validation records one filter validation.
func (m *Metrics) Validation(f filter.FlowRunFilter, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	property := "none"
	if f != nil {
		property = string(f.Property())
	}
	m.validations.WithLabelValues(property, validationResult(err)).Inc()
	m.validationDuration.Observe(elapsed.Seconds())
}

// Query records one store operation.
func (m *Metrics) Query(operation string, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.queries.WithLabelValues(operation, strconv.FormatBool(err == nil)).Inc()
	m.queryDurations.WithLabelValues(operation).Observe(elapsed.Seconds())
}

// Request records one HTTP request.
func (m *Metrics) Request(method string, code int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(strconv.Itoa(code), method).Inc()
	m.requestDurations.Observe(elapsed.Seconds())
}

func validationResult(err error) string {
	if err == nil {
		return "ok"
	}
	var verr *filter.ValidationError
	if errors.As(err, &verr) {
		return verr.Kind.String()
	}
	return "malformed"
}
