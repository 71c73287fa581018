package jsonapi

import (
	"encoding/json"

	"github.com/helixml/runfilter/domain/filter"
	"github.com/helixml/runfilter/domain/flowrun"
)

// Resource types.
const (
	TypeFlowRun       = "flow_run"
	TypeFlowRunFilter = "flow_run_filter"
)

// FlowRunAttributes represents flow run attributes in JSON:API format.
type FlowRunAttributes struct {
	Name              string   `json:"name"`
	FlowVersion       string   `json:"flow_version"`
	Tags              []string `json:"tags"`
	StateType         string   `json:"state_type"`
	StateName         string   `json:"state_name"`
	ExpectedStartTime DateTime `json:"expected_start_time"`
	StartTime         DateTime `json:"start_time"`
	EndTime           DateTime `json:"end_time"`
	CreatedAt         DateTime `json:"created_at"`
	UpdatedAt         DateTime `json:"updated_at"`
}

// FilterAttributes describes a validated filter.
type FilterAttributes struct {
	Property string          `json:"property"`
	Family   string          `json:"family"`
	Filter   json.RawMessage `json:"filter"`
}

// Serializer converts domain values to JSON:API resources.
type Serializer struct{}

// NewSerializer creates a Serializer.
func NewSerializer() Serializer {
	return Serializer{}
}

// FlowRunResource converts a flow run.
func (Serializer) FlowRunResource(run flowrun.FlowRun) *Resource {
	tags := run.Tags()
	if tags == nil {
		tags = []string{}
	}
	return NewResource(TypeFlowRun, run.ID(), FlowRunAttributes{
		Name:              run.Name(),
		FlowVersion:       run.FlowVersion(),
		Tags:              tags,
		StateType:         string(run.StateType()),
		StateName:         run.StateName(),
		ExpectedStartTime: NewDateTime(run.ExpectedStartTime()),
		StartTime:         NewDateTime(run.StartTime()),
		EndTime:           NewDateTime(run.EndTime()),
		CreatedAt:         NewDateTime(run.CreatedAt()),
		UpdatedAt:         NewDateTime(run.UpdatedAt()),
	})
}

// FlowRunList converts a page of flow runs, with total and paging in meta.
func (s Serializer) FlowRunList(runs []flowrun.FlowRun, total int64, limit, offset int) *Document {
	resources := make([]*Resource, len(runs))
	for i, r := range runs {
		resources[i] = s.FlowRunResource(r)
	}
	doc := NewListResponse(resources)
	doc.Meta = &Meta{
		"total":  total,
		"limit":  limit,
		"offset": offset,
	}
	return doc
}

// FilterResource converts a validated filter. Its ID is the property.
func (Serializer) FilterResource(f filter.FlowRunFilter) (*Resource, error) {
	data, err := f.MarshalJSON()
	if err != nil {
		return nil, err
	}
	return NewResource(TypeFlowRunFilter, string(f.Property()), FilterAttributes{
		Property: string(f.Property()),
		Family:   string(f.Family()),
		Filter:   data,
	}), nil
}
