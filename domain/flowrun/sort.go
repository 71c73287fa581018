package flowrun

import (
	"errors"
	"fmt"
	"strings"

	"github.com/helixml/runfilter/domain/query"
)

// ErrInvalidSort indicates a sort expression names an unsortable field.
var ErrInvalidSort = errors.New("invalid sort")

// DefaultSort orders newest runs first.
const DefaultSort = "-" + ColumnCreatedAt

var sortable = map[string]struct{}{
	ColumnName:              {},
	ColumnStartTime:         {},
	ColumnEndTime:           {},
	ColumnExpectedStartTime: {},
	ColumnCreatedAt:         {},
}

// ParseSort turns "field" or "-field" into ordering options.
// The run ID is appended as a tiebreaker so pages are stable.
func ParseSort(expr string) ([]query.Option, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		expr = DefaultSort
	}

	desc := strings.HasPrefix(expr, "-")
	field := strings.TrimPrefix(expr, "-")
	if _, ok := sortable[field]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSort, expr)
	}

	if desc {
		return []query.Option{query.WithOrderDesc(field), query.WithOrderDesc(ColumnID)}, nil
	}
	return []query.Option{query.WithOrderAsc(field), query.WithOrderAsc(ColumnID)}, nil
}
