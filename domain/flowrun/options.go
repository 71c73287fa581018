package flowrun

import (
	"time"

	"github.com/helixml/runfilter/domain/query"
)

// Column names of the flow run table.
const (
	ColumnID                = "id"
	ColumnName              = "name"
	ColumnStateType         = "state_type"
	ColumnStateName         = "state_name"
	ColumnExpectedStartTime = "expected_start_time"
	ColumnStartTime         = "start_time"
	ColumnEndTime           = "end_time"
	ColumnCreatedAt         = "created_at"
)

// WithNameIn filters runs whose name is one of names.
func WithNameIn(names []string) query.Option {
	return query.WithConditionIn(ColumnName, names)
}

// WithStateTypeIn filters runs whose state type is one of types.
func WithStateTypeIn(types []StateType) query.Option {
	values := make([]string, len(types))
	for i, t := range types {
		values[i] = string(t)
	}
	return query.WithConditionIn(ColumnStateType, values)
}

// WithStateNameIn filters runs whose state name is one of names.
func WithStateNameIn(names []string) query.Option {
	return query.WithConditionIn(ColumnStateName, names)
}

// WithTimeAtOrBefore filters runs whose time column is at or before t.
func WithTimeAtOrBefore(column string, t time.Time) query.Option {
	return query.WithComparison(column, query.OpLessThanOrEqual, t.UTC())
}

// WithTimeAtOrAfter filters runs whose time column is at or after t.
func WithTimeAtOrAfter(column string, t time.Time) query.Option {
	return query.WithComparison(column, query.OpGreaterThanOrEqual, t.UTC())
}

// WithTimeNull filters runs whose time column is unset (null=true) or set (null=false).
func WithTimeNull(column string, null bool) query.Option {
	return query.WithNull(column, null)
}

// WithAllTags filters runs carrying every tag in tags. An empty list matches every run.
func WithAllTags(tags []string) query.Option {
	distinct := normalizeTags(tags)
	if len(distinct) == 0 {
		return func(q query.Query) query.Query { return q }
	}
	return query.WithWhere(
		`flow_runs.id IN (SELECT flow_run_id FROM flow_run_tags WHERE tag IN ? GROUP BY flow_run_id HAVING COUNT(DISTINCT tag) = ?)`,
		distinct, len(distinct),
	)
}

// WithoutTags filters runs that have no tags (none=true) or at least one tag (none=false).
func WithoutTags(none bool) query.Option {
	if none {
		return query.WithWhere(`NOT EXISTS (SELECT 1 FROM flow_run_tags WHERE flow_run_tags.flow_run_id = flow_runs.id)`)
	}
	return query.WithWhere(`EXISTS (SELECT 1 FROM flow_run_tags WHERE flow_run_tags.flow_run_id = flow_runs.id)`)
}
