package database

import (
	"github.com/helixml/runfilter/domain/query"
	"gorm.io/gorm"
)

// ApplyOptions builds a query.Query from the given options and applies it to a GORM session.
func ApplyOptions(db *gorm.DB, options ...query.Option) *gorm.DB {
	q := query.Build(options...)

	db = applyWhere(db, q)

	for _, ord := range q.Orders() {
		db = db.Order(ord.String())
	}

	if q.LimitValue() > 0 {
		db = db.Limit(q.LimitValue())
	}

	if q.OffsetValue() > 0 {
		db = db.Offset(q.OffsetValue())
	}

	return db
}

// ApplyConditions applies only WHERE conditions (no limit/offset/order) for COUNT queries.
func ApplyConditions(db *gorm.DB, options ...query.Option) *gorm.DB {
	return applyWhere(db, query.Build(options...))
}

func applyWhere(db *gorm.DB, q query.Query) *gorm.DB {
	for _, cond := range q.Conditions() {
		if cond.Operator().Unary() {
			db = db.Where(cond.SQL())
		} else {
			db = db.Where(cond.SQL(), cond.Value())
		}
	}

	for _, clause := range q.Clauses() {
		db = db.Where(clause.SQL(), clause.Args()...)
	}

	return db
}
