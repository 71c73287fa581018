// Package dto holds request and response bodies for the v1 API.
package dto

import (
	"encoding/json"
	"time"
)

// FlowRunFilterRequest is the body of POST /flow_runs/filter.
// Each entry of FlowRuns is one flow run filter object.
type FlowRunFilterRequest struct {
	FlowRuns []json.RawMessage `json:"flow_runs"`
	Limit    int               `json:"limit"`
	Offset   int               `json:"offset"`
	Sort     string            `json:"sort"`
}

// Candidates returns the filter objects as validator input.
func (r FlowRunFilterRequest) Candidates() []any {
	return candidates(r.FlowRuns)
}

// CountRequest is the body of POST /flow_runs/count.
type CountRequest struct {
	FlowRuns []json.RawMessage `json:"flow_runs"`
}

// Candidates returns the filter objects as validator input.
func (r CountRequest) Candidates() []any {
	return candidates(r.FlowRuns)
}

// CountResponse is the result of POST /flow_runs/count.
type CountResponse struct {
	Count int64 `json:"count"`
}

// StateRequest names a flow run state.
type StateRequest struct {
	Type string `json:"type"`
	Name string `json:"name,omitempty"`
}

// FlowRunCreateRequest is the body of POST /flow_runs.
type FlowRunCreateRequest struct {
	Name              string        `json:"name"`
	FlowVersion       string        `json:"flow_version,omitempty"`
	Tags              []string      `json:"tags,omitempty"`
	State             *StateRequest `json:"state,omitempty"`
	ExpectedStartTime *time.Time    `json:"expected_start_time,omitempty"`
	StartTime         *time.Time    `json:"start_time,omitempty"`
	EndTime           *time.Time    `json:"end_time,omitempty"`
}

// HealthResponse is the body of the health endpoints.
type HealthResponse struct {
	Status string `json:"status"`
}

func candidates(raw []json.RawMessage) []any {
	out := make([]any, len(raw))
	for i, r := range raw {
		out[i] = r
	}
	return out
}
