package filter

import (
	"encoding/json"
	"time"

	"github.com/helixml/runfilter/domain/flowrun"
)

// Pointer-to-slice fields keep an empty list on the wire while dropping an unset one.

type header struct {
	Object   string   `json:"object"`
	Property Property `json:"property"`
}

type nameJSON struct {
	header
	Any *[]string `json:"any_,omitempty"`
}

type dateJSON struct {
	header
	Before *time.Time `json:"before_,omitempty"`
	After  *time.Time `json:"after_,omitempty"`
	IsNull *bool      `json:"is_null_,omitempty"`
}

type tagJSON struct {
	header
	All    *[]string `json:"all_,omitempty"`
	IsNull *bool     `json:"is_null_,omitempty"`
}

type stateJSON struct {
	header
	Type *stateTypeJSON `json:"type,omitempty"`
	Name *stateNameJSON `json:"name,omitempty"`
}

type stateTypeJSON struct {
	Any *[]flowrun.StateType `json:"any_,omitempty"`
}

type stateNameJSON struct {
	Any *[]string `json:"any_,omitempty"`
}

func newHeader(p Property) header {
	return header{Object: ObjectFlowRun, Property: p}
}

func optional[T any](s []T) *[]T {
	if s == nil {
		return nil
	}
	return &s
}

// MarshalJSON encodes the filter in the form Validate accepts.
func (f NameFilter) MarshalJSON() ([]byte, error) {
	return json.Marshal(nameJSON{header: newHeader(f.Property()), Any: optional(f.fields.Any)})
}

// MarshalJSON encodes the filter in the form Validate accepts.
func (f DateFilter) MarshalJSON() ([]byte, error) {
	fields := f.fields.clone()
	return json.Marshal(dateJSON{
		header: newHeader(f.Property()),
		Before: fields.Before,
		After:  fields.After,
		IsNull: fields.IsNull,
	})
}

// MarshalJSON encodes the filter in the form Validate accepts.
func (f TagFilter) MarshalJSON() ([]byte, error) {
	return json.Marshal(tagJSON{
		header: newHeader(f.Property()),
		All:    optional(f.fields.All),
		IsNull: f.fields.IsNull,
	})
}

// MarshalJSON encodes the filter in the form Validate accepts.
func (f StateFilter) MarshalJSON() ([]byte, error) {
	out := stateJSON{header: newHeader(f.Property())}
	if f.fields.Type != nil {
		out.Type = &stateTypeJSON{Any: optional(f.fields.Type.Any)}
	}
	if f.fields.Name != nil {
		out.Name = &stateNameJSON{Any: optional(f.fields.Name.Any)}
	}
	return json.Marshal(out)
}

// ToMap returns the filter as a generic JSON object.
func ToMap(f FlowRunFilter) (map[string]any, error) {
	data, err := f.MarshalJSON()
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}
