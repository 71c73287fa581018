// Package query holds store-agnostic query options: conditions, ordering and pagination.
package query

import (
	"fmt"
	"strings"
)

// Operator is a comparison applied by a Condition.
type Operator int

// Operator values.
const (
	OpEqual Operator = iota
	OpNotEqual
	OpGreaterThanOrEqual
	OpLessThanOrEqual
	OpIn
	OpIsNull
	OpIsNotNull
)

// String returns the SQL representation of the operator.
func (o Operator) String() string {
	switch o {
	case OpEqual:
		return "="
	case OpNotEqual:
		return "!="
	case OpGreaterThanOrEqual:
		return ">="
	case OpLessThanOrEqual:
		return "<="
	case OpIn:
		return "IN"
	case OpIsNull:
		return "IS NULL"
	case OpIsNotNull:
		return "IS NOT NULL"
	default:
		return "="
	}
}

// Unary reports whether the operator takes no value.
func (o Operator) Unary() bool {
	return o == OpIsNull || o == OpIsNotNull
}

// Option applies a modification to a Query.
type Option func(Query) Query

// Query holds conditions, raw clauses, ordering, and pagination for store lookups.
type Query struct {
	conditions []Condition
	clauses    []Clause
	orders     []Order
	limit      int
	offset     int
}

// Build creates a Query from a set of options.
func Build(options ...Option) Query {
	q := Query{}
	for _, opt := range options {
		q = opt(q)
	}
	return q
}

// Conditions returns the query conditions.
func (q Query) Conditions() []Condition {
	result := make([]Condition, len(q.conditions))
	copy(result, q.conditions)
	return result
}

// Clauses returns the raw WHERE clauses.
func (q Query) Clauses() []Clause {
	result := make([]Clause, len(q.clauses))
	copy(result, q.clauses)
	return result
}

// Orders returns the query ordering specifications.
func (q Query) Orders() []Order {
	result := make([]Order, len(q.orders))
	copy(result, q.orders)
	return result
}

// LimitValue returns the limit (0 means no limit).
func (q Query) LimitValue() int {
	return q.limit
}

// OffsetValue returns the offset.
func (q Query) OffsetValue() int {
	return q.offset
}

// Condition is a single field comparison.
type Condition struct {
	field    string
	operator Operator
	value    any
}

// Field returns the condition field name.
func (c Condition) Field() string { return c.field }

// Operator returns the comparison operator.
func (c Condition) Operator() Operator { return c.operator }

// Value returns the condition value (nil for unary operators).
func (c Condition) Value() any { return c.value }

// SQL renders the condition as a parameterised expression.
func (c Condition) SQL() string {
	switch c.operator {
	case OpIn:
		return fmt.Sprintf("%s IN ?", c.field)
	case OpIsNull, OpIsNotNull:
		return fmt.Sprintf("%s %s", c.field, c.operator)
	default:
		return fmt.Sprintf("%s %s ?", c.field, c.operator)
	}
}

// String returns a readable representation.
func (c Condition) String() string {
	if c.operator.Unary() {
		return c.SQL()
	}
	return fmt.Sprintf("%s %s %v", c.field, c.operator, c.value)
}

// Clause is a raw parameterised WHERE expression for predicates a Condition cannot express.
type Clause struct {
	sql  string
	args []any
}

// SQL returns the expression.
func (c Clause) SQL() string { return c.sql }

// Args returns the bound arguments.
func (c Clause) Args() []any {
	result := make([]any, len(c.args))
	copy(result, c.args)
	return result
}

// Order represents a sort specification.
type Order struct {
	field     string
	ascending bool
}

// Field returns the order field name.
func (o Order) Field() string { return o.field }

// Ascending returns true for ASC, false for DESC.
func (o Order) Ascending() bool { return o.ascending }

// String returns the SQL representation.
func (o Order) String() string {
	if o.ascending {
		return o.field + " ASC"
	}
	return o.field + " DESC"
}

// WithCondition adds a field = value equality condition.
// Domain packages use this to define their own typed options.
func WithCondition(field string, value any) Option {
	return WithComparison(field, OpEqual, value)
}

// WithConditionIn adds a field IN (values) condition.
func WithConditionIn(field string, values any) Option {
	return WithComparison(field, OpIn, values)
}

// WithComparison adds a condition using an arbitrary operator.
func WithComparison(field string, operator Operator, value any) Option {
	return func(q Query) Query {
		if operator.Unary() {
			value = nil
		}
		q.conditions = append(q.conditions, Condition{field: field, operator: operator, value: value})
		return q
	}
}

// WithNull adds a field IS NULL (null=true) or IS NOT NULL (null=false) condition.
func WithNull(field string, null bool) Option {
	if null {
		return WithComparison(field, OpIsNull, nil)
	}
	return WithComparison(field, OpIsNotNull, nil)
}

// WithWhere adds a raw parameterised WHERE clause.
func WithWhere(sql string, args ...any) Option {
	return func(q Query) Query {
		q.clauses = append(q.clauses, Clause{sql: strings.TrimSpace(sql), args: args})
		return q
	}
}

// WithID filters by the "id" column.
func WithID(id string) Option {
	return WithCondition("id", id)
}

// WithLimit sets the maximum number of results.
func WithLimit(n int) Option {
	return func(q Query) Query {
		q.limit = n
		return q
	}
}

// WithOffset sets the result offset.
func WithOffset(n int) Option {
	return func(q Query) Query {
		q.offset = n
		return q
	}
}

// WithOrderAsc adds ascending ordering on a field.
func WithOrderAsc(field string) Option {
	return func(q Query) Query {
		q.orders = append(q.orders, Order{field: field, ascending: true})
		return q
	}
}

// WithOrderDesc adds descending ordering on a field.
func WithOrderDesc(field string) Option {
	return func(q Query) Query {
		q.orders = append(q.orders, Order{field: field, ascending: false})
		return q
	}
}

// WithPagination returns limit and offset options for a page.
func WithPagination(limit, offset int) []Option {
	return []Option{WithLimit(limit), WithOffset(offset)}
}
