package mcp

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// FlowRunScheme is the URI scheme naming a single flow run.
const FlowRunScheme = "flow-run://"

// ErrNotFlowRunURI indicates the input does not use the flow-run scheme.
var ErrNotFlowRunURI = errors.New("not a flow-run URI")

// FlowRunURI identifies a flow run in MCP tool results.
// Immutable value object.
type FlowRunURI struct {
	id string
}

// NewFlowRunURI creates a FlowRunURI for the given flow run ID.
func NewFlowRunURI(id string) FlowRunURI {
	return FlowRunURI{id: id}
}

// ParseFlowRunURI parses a flow-run://<uuid> URI.
func ParseFlowRunURI(s string) (FlowRunURI, error) {
	rest, ok := strings.CutPrefix(s, FlowRunScheme)
	if !ok {
		return FlowRunURI{}, ErrNotFlowRunURI
	}
	id, err := uuid.Parse(strings.TrimSuffix(rest, "/"))
	if err != nil {
		return FlowRunURI{}, fmt.Errorf("invalid flow run URI %q: %w", s, err)
	}
	return FlowRunURI{id: id.String()}, nil
}

// ID returns the flow run ID.
func (u FlowRunURI) ID() string { return u.id }

// String builds the flow-run:// URI string.
func (u FlowRunURI) String() string {
	return FlowRunScheme + u.id
}
