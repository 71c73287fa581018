package persistence

import (
	"time"

	"github.com/helixml/runfilter/domain/flowrun"
)

// FlowRunMapper maps between domain FlowRun and persistence FlowRunModel.
type FlowRunMapper struct{}

// ToDomain converts a FlowRunModel to a domain FlowRun.
func (m FlowRunMapper) ToDomain(e FlowRunModel) flowrun.FlowRun {
	tags := make([]string, len(e.Tags))
	for i, t := range e.Tags {
		tags[i] = t.Tag
	}

	return flowrun.ReconstructFlowRun(
		e.ID,
		e.Name,
		e.FlowVersion,
		tags,
		flowrun.StateType(e.StateType),
		e.StateName,
		fromNullable(e.ExpectedStartTime),
		fromNullable(e.StartTime),
		fromNullable(e.EndTime),
		e.CreatedAt.UTC(),
		e.UpdatedAt.UTC(),
	)
}

// ToModel converts a domain FlowRun to a FlowRunModel.
func (m FlowRunMapper) ToModel(r flowrun.FlowRun) FlowRunModel {
	tags := r.Tags()
	models := make([]FlowRunTagModel, len(tags))
	for i, t := range tags {
		models[i] = FlowRunTagModel{FlowRunID: r.ID(), Tag: t}
	}

	return FlowRunModel{
		ID:                r.ID(),
		Name:              r.Name(),
		FlowVersion:       r.FlowVersion(),
		StateType:         string(r.StateType()),
		StateName:         r.StateName(),
		ExpectedStartTime: toNullable(r.ExpectedStartTime()),
		StartTime:         toNullable(r.StartTime()),
		EndTime:           toNullable(r.EndTime()),
		CreatedAt:         r.CreatedAt(),
		UpdatedAt:         r.UpdatedAt(),
		Tags:              models,
	}
}

func toNullable(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	v := t.UTC()
	return &v
}

func fromNullable(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return t.UTC()
}
