package database

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/shashiranjanraj/ordersvc/pkg/metrics"
)

const startedAtKey = "ordersvc:started_at"

// RegisterMetrics times every create/query/update/delete/row/raw statement
// into metrics.DBQueryDuration.
func RegisterMetrics(db *gorm.DB) error {
	cb := db.Callback()

	start := func(tx *gorm.DB) { tx.InstanceSet(startedAtKey, time.Now()) }
	finish := func(op string) func(*gorm.DB) {
		return func(tx *gorm.DB) {
			v, ok := tx.InstanceGet(startedAtKey)
			if !ok {
				return
			}
			t, ok := v.(time.Time)
			if !ok {
				return
			}
			table := tx.Statement.Table
			if table == "" {
				table = "unknown"
			}
			metrics.ObserveDBQuery(op, table, time.Since(t))
		}
	}

	return errors.Join(
		cb.Create().Before("gorm:create").Register("metrics:before_create", start),
		cb.Create().After("gorm:create").Register("metrics:after_create", finish("create")),
		cb.Query().Before("gorm:query").Register("metrics:before_query", start),
		cb.Query().After("gorm:query").Register("metrics:after_query", finish("query")),
		cb.Update().Before("gorm:update").Register("metrics:before_update", start),
		cb.Update().After("gorm:update").Register("metrics:after_update", finish("update")),
		cb.Delete().Before("gorm:delete").Register("metrics:before_delete", start),
		cb.Delete().After("gorm:delete").Register("metrics:after_delete", finish("delete")),
		cb.Row().Before("gorm:row").Register("metrics:before_row", start),
		cb.Row().After("gorm:row").Register("metrics:after_row", finish("row")),
		cb.Raw().Before("gorm:raw").Register("metrics:before_raw", start),
		cb.Raw().After("gorm:raw").Register("metrics:after_raw", finish("raw")),
	)
}
