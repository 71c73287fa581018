package flowrun

import (
	"context"

	"github.com/helixml/runfilter/domain/query"
)

// Store defines operations for persisting and retrieving flow runs.
type Store interface {
	query.Store[FlowRun]

	// Save creates or replaces a flow run together with its tags.
	Save(ctx context.Context, run FlowRun) (FlowRun, error)

	// DeleteBy removes matching runs and their tags, returning how many runs were removed.
	DeleteBy(ctx context.Context, options ...query.Option) (int64, error)
}
