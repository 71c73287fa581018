package filter

import (
	"slices"
	"time"

	"github.com/helixml/runfilter/domain/flowrun"
)

// A nil slice or pointer leaves the field unset. An empty non-nil slice is a
// set field: an empty any_ matches nothing, an empty all_ matches everything.

// StringFields are the comparisons available to string properties.
type StringFields struct {
	Any []string
}

// DateFields are the comparisons available to timestamp properties.
type DateFields struct {
	Before *time.Time
	After  *time.Time
	IsNull *bool
}

// TagFields are the comparisons available to the tag property.
type TagFields struct {
	All    []string
	IsNull *bool
}

// StateFields are the comparisons available to the state property.
type StateFields struct {
	Type *StateTypeFields
	Name *StateNameFields
}

// StateTypeFields constrain the state type.
type StateTypeFields struct {
	Any []flowrun.StateType
}

// StateNameFields constrain the state name.
type StateNameFields struct {
	Any []string
}

// IsEmpty reports whether no field is set.
func (f StringFields) IsEmpty() bool { return f.Any == nil }

// IsEmpty reports whether no field is set.
func (f DateFields) IsEmpty() bool { return f.Before == nil && f.After == nil && f.IsNull == nil }

// IsEmpty reports whether no field is set.
func (f TagFields) IsEmpty() bool { return f.All == nil && f.IsNull == nil }

// IsEmpty reports whether no field is set.
func (f StateFields) IsEmpty() bool { return f.Type == nil && f.Name == nil }

func (f StringFields) clone() StringFields {
	return StringFields{Any: slices.Clone(f.Any)}
}

func (f DateFields) clone() DateFields {
	return DateFields{
		Before: cloneTime(f.Before),
		After:  cloneTime(f.After),
		IsNull: cloneBool(f.IsNull),
	}
}

func (f TagFields) clone() TagFields {
	return TagFields{All: slices.Clone(f.All), IsNull: cloneBool(f.IsNull)}
}

func (f StateFields) clone() StateFields {
	var out StateFields
	if f.Type != nil {
		out.Type = &StateTypeFields{Any: slices.Clone(f.Type.Any)}
	}
	if f.Name != nil {
		out.Name = &StateNameFields{Any: slices.Clone(f.Name.Any)}
	}
	return out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}

func cloneBool(b *bool) *bool {
	if b == nil {
		return nil
	}
	v := *b
	return &v
}

// Bool returns a pointer to b, for populating optional fields.
func Bool(b bool) *bool { return &b }

// Time returns a pointer to t in UTC, for populating optional fields.
func Time(t time.Time) *time.Time {
	v := t.UTC()
	return &v
}
