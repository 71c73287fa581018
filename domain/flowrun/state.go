package flowrun

import (
	"fmt"
	"slices"
	"strings"
)

// StateType is the coarse execution state of a flow run.
type StateType string

// StateType values.
const (
	StateTypeScheduled StateType = "SCHEDULED"
	StateTypePending   StateType = "PENDING"
	StateTypeRunning   StateType = "RUNNING"
	StateTypeCompleted StateType = "COMPLETED"
	StateTypeFailed    StateType = "FAILED"
	StateTypeCancelled StateType = "CANCELLED"
)

// StateTypes returns every known state type in lifecycle order.
func StateTypes() []StateType {
	return []StateType{
		StateTypeScheduled,
		StateTypePending,
		StateTypeRunning,
		StateTypeCompleted,
		StateTypeFailed,
		StateTypeCancelled,
	}
}

// IsValid reports whether s is a known state type.
func (s StateType) IsValid() bool {
	return slices.Contains(StateTypes(), s)
}

// IsTerminal returns true if the state represents a final state.
func (s StateType) IsTerminal() bool {
	return s == StateTypeCompleted ||
		s == StateTypeFailed ||
		s == StateTypeCancelled
}

// ParseStateType parses a state type, ignoring case and surrounding space.
func ParseStateType(s string) (StateType, error) {
	st := StateType(strings.ToUpper(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", fmt.Errorf("unknown state type %q", s)
	}
	return st, nil
}

// DefaultStateName returns the display name used for a state type when none is given.
func (s StateType) DefaultStateName() string {
	if s == "" {
		return ""
	}
	lower := strings.ToLower(string(s))
	return strings.ToUpper(lower[:1]) + lower[1:]
}
