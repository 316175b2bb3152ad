// Package orm is a thin chainable wrapper over *gorm.DB for the filtered,
// paginated reads repositories need.
package orm

import (
	"context"
	"fmt"
	"math"

	"gorm.io/gorm"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
)

// Pagination is the metadata returned next to a page of results.
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}

// Offset is the number of rows skipped before this page.
func (p Pagination) Offset() int { return (p.Page - 1) * p.Limit }

// maxOffset keeps the row offset within a 32-bit OFFSET on every driver.
const maxOffset = math.MaxInt32

// NewPagination normalises raw page/limit values: anything below 1 falls
// back to the defaults, limit is clamped to maxLimit when maxLimit > 0, and
// page is clamped so Offset never exceeds maxOffset.
func NewPagination(page, limit, maxLimit int) Pagination {
	if page < 1 {
		page = DefaultPage
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	if maxLimit > 0 && limit > maxLimit {
		limit = maxLimit
	}
	if maxPage := maxOffset/limit + 1; page > maxPage {
		page = maxPage
	}
	return Pagination{Page: page, Limit: limit}
}

type Query struct {
	db *gorm.DB
}

// New starts a query for model on db, bound to ctx.
func New(ctx context.Context, db *gorm.DB, model interface{}) *Query {
	return &Query{db: db.WithContext(ctx).Model(model)}
}

func (q *Query) Where(query string, args ...interface{}) *Query {
	return &Query{db: q.db.Where(query, args...)}
}

// WhereIf adds the condition only when ok is true.
func (q *Query) WhereIf(ok bool, query string, args ...interface{}) *Query {
	if !ok {
		return q
	}
	return q.Where(query, args...)
}

func (q *Query) Order(value interface{}) *Query {
	return &Query{db: q.db.Order(value)}
}

func (q *Query) First(dest interface{}) error {
	return q.db.First(dest).Error
}

// Paginate counts every matching row, then loads the requested page into
// dest. p.Total and p.TotalPages are filled in on return.
func (q *Query) Paginate(p Pagination, dest interface{}) (Pagination, error) {
	if err := q.db.Session(&gorm.Session{}).Count(&p.Total).Error; err != nil {
		return p, fmt.Errorf("orm: count: %w", err)
	}
	p.TotalPages = int(math.Ceil(float64(p.Total) / float64(p.Limit)))

	if err := q.db.Session(&gorm.Session{}).Offset(p.Offset()).Limit(p.Limit).Find(dest).Error; err != nil {
		return p, fmt.Errorf("orm: page: %w", err)
	}
	return p, nil
}
