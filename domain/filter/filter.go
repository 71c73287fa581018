package filter

import (
	"encoding/json"

	"github.com/helixml/runfilter/domain/flowrun"
)

// FlowRunFilter is a validated flow run filter.
// The concrete type is one of NameFilter, DateFilter, TagFilter or StateFilter.
type FlowRunFilter interface {
	json.Marshaler
	Property() Property
	Family() Family
	isFlowRunFilter()
}

// NameFilter constrains the flow run name.
type NameFilter struct {
	fields StringFields
}

// NewNameFilter creates a name filter.
func NewNameFilter(fields StringFields) NameFilter {
	return NameFilter{fields: fields.clone()}
}

// Property returns PropertyName.
func (NameFilter) Property() Property { return PropertyName }

// Family returns FamilyString.
func (NameFilter) Family() Family { return FamilyString }

// Fields returns a copy of the filter's fields.
func (f NameFilter) Fields() StringFields { return f.fields.clone() }

func (NameFilter) isFlowRunFilter() {}

// DateFilter constrains the start or end time of a flow run.
type DateFilter struct {
	property Property
	fields   DateFields
}

// NewStartDateFilter creates a start_date filter.
func NewStartDateFilter(fields DateFields) DateFilter {
	return DateFilter{property: PropertyStartDate, fields: fields.clone()}
}

// NewEndDateFilter creates an end_date filter.
func NewEndDateFilter(fields DateFields) DateFilter {
	return DateFilter{property: PropertyEndDate, fields: fields.clone()}
}

// Property returns PropertyStartDate or PropertyEndDate.
func (f DateFilter) Property() Property { return f.property }

// Family returns FamilyDate.
func (DateFilter) Family() Family { return FamilyDate }

// Fields returns a copy of the filter's fields.
func (f DateFilter) Fields() DateFields { return f.fields.clone() }

// Column returns the flow run column the filter applies to.
func (f DateFilter) Column() string {
	if f.property == PropertyEndDate {
		return flowrun.ColumnEndTime
	}
	return flowrun.ColumnStartTime
}

func (DateFilter) isFlowRunFilter() {}

// TagFilter constrains the tags of a flow run.
type TagFilter struct {
	fields TagFields
}

// NewTagFilter creates a tag filter.
func NewTagFilter(fields TagFields) TagFilter {
	return TagFilter{fields: fields.clone()}
}

// Property returns PropertyTag.
func (TagFilter) Property() Property { return PropertyTag }

// Family returns FamilyTag.
func (TagFilter) Family() Family { return FamilyTag }

// Fields returns a copy of the filter's fields.
func (f TagFilter) Fields() TagFields { return f.fields.clone() }

func (TagFilter) isFlowRunFilter() {}

// StateFilter constrains the state of a flow run.
type StateFilter struct {
	fields StateFields
}

// NewStateFilter creates a state filter.
func NewStateFilter(fields StateFields) StateFilter {
	return StateFilter{fields: fields.clone()}
}

// Property returns PropertyState.
func (StateFilter) Property() Property { return PropertyState }

// Family returns FamilyState.
func (StateFilter) Family() Family { return FamilyState }

// Fields returns a copy of the filter's fields.
func (f StateFilter) Fields() StateFields { return f.fields.clone() }

func (StateFilter) isFlowRunFilter() {}

// Equal reports whether a and b select the same runs with the same fields.
// A nil filter, or a nil pointer to a variant, equals only another nil.
func Equal(a, b FlowRunFilter) bool {
	a, aok := variant(a)
	b, bok := variant(b)
	if !aok || !bok {
		return !aok && !bok
	}
	ja, err := a.MarshalJSON()
	if err != nil {
		return false
	}
	jb, err := b.MarshalJSON()
	if err != nil {
		return false
	}
	return string(ja) == string(jb)
}

// variant returns the value held by f, dereferencing pointers to variants.
// It reports false when f is nil or a nil pointer.
func variant(f FlowRunFilter) (FlowRunFilter, bool) {
	switch v := f.(type) {
	case nil:
		return nil, false
	case *NameFilter:
		if v == nil {
			return nil, false
		}
		return *v, true
	case *DateFilter:
		if v == nil {
			return nil, false
		}
		return *v, true
	case *TagFilter:
		if v == nil {
			return nil, false
		}
		return *v, true
	case *StateFilter:
		if v == nil {
			return nil, false
		}
		return *v, true
	}
	return f, true
}
