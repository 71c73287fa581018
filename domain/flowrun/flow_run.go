// Package flowrun holds the flow run entity that filters are evaluated against.
package flowrun

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// FlowRun is a single executed (or scheduled) instance of a flow.
type FlowRun struct {
	id                string
	name              string
	flowVersion       string
	tags              []string
	stateType         StateType
	stateName         string
	expectedStartTime time.Time
	startTime         time.Time
	endTime           time.Time
	createdAt         time.Time
	updatedAt         time.Time
}

// Option configures a new FlowRun.
type Option func(*FlowRun)

// WithFlowVersion sets the flow version.
func WithFlowVersion(version string) Option {
	return func(f *FlowRun) { f.flowVersion = version }
}

// WithTags sets the tags. Duplicates are dropped.
func WithTags(tags ...string) Option {
	return func(f *FlowRun) { f.tags = normalizeTags(tags) }
}

// WithState sets the state type and name. An empty name uses the state type's display name.
func WithState(stateType StateType, name string) Option {
	return func(f *FlowRun) {
		f.stateType = stateType
		if name == "" {
			name = stateType.DefaultStateName()
		}
		f.stateName = name
	}
}

// WithExpectedStartTime sets the scheduled start time.
func WithExpectedStartTime(t time.Time) Option {
	return func(f *FlowRun) { f.expectedStartTime = t.UTC() }
}

// WithStartTime sets the actual start time.
func WithStartTime(t time.Time) Option {
	return func(f *FlowRun) { f.startTime = t.UTC() }
}

// WithEndTime sets the end time.
func WithEndTime(t time.Time) Option {
	return func(f *FlowRun) { f.endTime = t.UTC() }
}

// NewFlowRun creates a new FlowRun with a fresh ID in the SCHEDULED state.
func NewFlowRun(name string, opts ...Option) FlowRun {
	now := time.Now().UTC()
	f := FlowRun{
		id:        uuid.NewString(),
		name:      name,
		stateType: StateTypeScheduled,
		stateName: StateTypeScheduled.DefaultStateName(),
		createdAt: now,
		updatedAt: now,
	}
	for _, opt := range opts {
		opt(&f)
	}
	return f
}

// ReconstructFlowRun recreates a FlowRun from persistence.
func ReconstructFlowRun(
	id string,
	name string,
	flowVersion string,
	tags []string,
	stateType StateType,
	stateName string,
	expectedStartTime, startTime, endTime time.Time,
	createdAt, updatedAt time.Time,
) FlowRun {
	return FlowRun{
		id:                id,
		name:              name,
		flowVersion:       flowVersion,
		tags:              normalizeTags(tags),
		stateType:         stateType,
		stateName:         stateName,
		expectedStartTime: expectedStartTime,
		startTime:         startTime,
		endTime:           endTime,
		createdAt:         createdAt,
		updatedAt:         updatedAt,
	}
}

// ID returns the flow run ID.
func (f FlowRun) ID() string { return f.id }

// Name returns the flow run name.
func (f FlowRun) Name() string { return f.name }

// FlowVersion returns the version of the flow that ran.
func (f FlowRun) FlowVersion() string { return f.flowVersion }

// Tags returns a sorted copy of the tags.
func (f FlowRun) Tags() []string {
	result := make([]string, len(f.tags))
	copy(result, f.tags)
	return result
}

// HasTag reports whether the run carries the tag.
func (f FlowRun) HasTag(tag string) bool {
	i := sort.SearchStrings(f.tags, tag)
	return i < len(f.tags) && f.tags[i] == tag
}

// StateType returns the state type.
func (f FlowRun) StateType() StateType { return f.stateType }

// StateName returns the state name.
func (f FlowRun) StateName() string { return f.stateName }

// ExpectedStartTime returns the scheduled start time (zero if unset).
func (f FlowRun) ExpectedStartTime() time.Time { return f.expectedStartTime }

// StartTime returns the start time (zero if the run has not started).
func (f FlowRun) StartTime() time.Time { return f.startTime }

// EndTime returns the end time (zero if the run has not finished).
func (f FlowRun) EndTime() time.Time { return f.endTime }

// CreatedAt returns the creation timestamp.
func (f FlowRun) CreatedAt() time.Time { return f.createdAt }

// UpdatedAt returns the last update timestamp.
func (f FlowRun) UpdatedAt() time.Time { return f.updatedAt }

// WithState returns a copy moved to the given state.
func (f FlowRun) WithState(stateType StateType, name string) FlowRun {
	WithState(stateType, name)(&f)
	f.updatedAt = time.Now().UTC()
	return f
}

func normalizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(tags))
	result := make([]string, 0, len(tags))
	for _, t := range tags {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		result = append(result, t)
	}
	sort.Strings(result)
	return result
}
