package filter

import (
	"github.com/helixml/runfilter/domain/flowrun"
	"github.com/helixml/runfilter/domain/query"
)

// QueryOptions translates filters into query options over the flow run table.
// Filters are combined with AND; unset fields add no condition.
func QueryOptions(filters ...FlowRunFilter) []query.Option {
	var opts []query.Option
	for _, f := range filters {
		opts = append(opts, optionsFor(f)...)
	}
	return opts
}

func optionsFor(f FlowRunFilter) []query.Option {
	f, ok := variant(f)
	if !ok {
		return nil
	}
	switch v := f.(type) {
	case NameFilter:
		return nameOptions(v.fields)
	case DateFilter:
		return dateOptions(v.Column(), v.fields)
	case TagFilter:
		return tagOptions(v.fields)
	case StateFilter:
		return stateOptions(v.fields)
	}
	return nil
}

func nameOptions(fields StringFields) []query.Option {
	if fields.Any == nil {
		return nil
	}
	return []query.Option{flowrun.WithNameIn(fields.Any)}
}

func dateOptions(column string, fields DateFields) []query.Option {
	var opts []query.Option
	if fields.Before != nil {
		opts = append(opts, flowrun.WithTimeAtOrBefore(column, *fields.Before))
	}
	if fields.After != nil {
		opts = append(opts, flowrun.WithTimeAtOrAfter(column, *fields.After))
	}
	if fields.IsNull != nil {
		opts = append(opts, flowrun.WithTimeNull(column, *fields.IsNull))
	}
	return opts
}

func tagOptions(fields TagFields) []query.Option {
	var opts []query.Option
	if fields.All != nil {
		opts = append(opts, flowrun.WithAllTags(fields.All))
	}
	if fields.IsNull != nil {
		opts = append(opts, flowrun.WithoutTags(*fields.IsNull))
	}
	return opts
}

func stateOptions(fields StateFields) []query.Option {
	var opts []query.Option
	if fields.Type != nil && fields.Type.Any != nil {
		opts = append(opts, flowrun.WithStateTypeIn(fields.Type.Any))
	}
	if fields.Name != nil && fields.Name.Any != nil {
		opts = append(opts, flowrun.WithStateNameIn(fields.Name.Any))
	}
	return opts
}

// Matches reports whether run satisfies every filter, evaluated in memory.
func Matches(run flowrun.FlowRun, filters ...FlowRunFilter) bool {
	for _, f := range filters {
		if !matches(run, f) {
			return false
		}
	}
	return true
}

func matches(run flowrun.FlowRun, f FlowRunFilter) bool {
	f, ok := variant(f)
	if !ok {
		return false
	}
	switch v := f.(type) {
	case NameFilter:
		return matchName(run, v.fields)
	case DateFilter:
		return matchDate(run, v.Column(), v.fields)
	case TagFilter:
		return matchTag(run, v.fields)
	case StateFilter:
		return matchState(run, v.fields)
	}
	return false
}

func matchName(run flowrun.FlowRun, fields StringFields) bool {
	if fields.Any == nil {
		return true
	}
	return contains(fields.Any, run.Name())
}

func matchDate(run flowrun.FlowRun, column string, fields DateFields) bool {
	t := run.StartTime()
	if column == flowrun.ColumnEndTime {
		t = run.EndTime()
	}
	if fields.IsNull != nil && *fields.IsNull != t.IsZero() {
		return false
	}
	if fields.Before != nil && (t.IsZero() || t.After(*fields.Before)) {
		return false
	}
	if fields.After != nil && (t.IsZero() || t.Before(*fields.After)) {
		return false
	}
	return true
}

func matchTag(run flowrun.FlowRun, fields TagFields) bool {
	for _, tag := range fields.All {
		if !run.HasTag(tag) {
			return false
		}
	}
	if fields.IsNull != nil && *fields.IsNull != (len(run.Tags()) == 0) {
		return false
	}
	return true
}

func matchState(run flowrun.FlowRun, fields StateFields) bool {
	if fields.Type != nil && fields.Type.Any != nil && !contains(fields.Type.Any, run.StateType()) {
		return false
	}
	if fields.Name != nil && fields.Name.Any != nil && !contains(fields.Name.Any, run.StateName()) {
		return false
	}
	return true
}

func contains[T comparable](values []T, v T) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
