// Package migration applies ordered, reversible schema changes and tracks
// them in the schema_migrations table.
//
//	runner := migration.New(db, migrations.All()...)
//	runner.Run(ctx)       // apply everything pending as one batch
//	runner.Rollback(ctx)  // revert the last batch
package migration

import (
	"context"
	"fmt"
	"sort"
	"time"

	"gorm.io/gorm"

	"github.com/shashiranjanraj/ordersvc/pkg/logger"
)

// Migration is one schema change. Name should sort chronologically, e.g.
// "20240101000000_create_users_table".
type Migration interface {
	Name() string
	Up(db *gorm.DB) error
	Down(db *gorm.DB) error
}

type record struct {
	ID    uint      `gorm:"primaryKey;autoIncrement"`
	Name  string    `gorm:"uniqueIndex;size:255;not null"`
	Batch int       `gorm:"not null"`
	RunAt time.Time `gorm:"autoCreateTime"`
}

func (record) TableName() string { return "schema_migrations" }

// Status describes one known migration.
type Status struct {
	Name  string
	Ran   bool
	Batch int
}

type Runner struct {
	db         *gorm.DB
	migrations []Migration
}

// New returns a Runner over migrations, sorted by name.
func New(db *gorm.DB, migrations ...Migration) *Runner {
	sorted := append([]Migration(nil), migrations...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name() < sorted[j].Name() })
	return &Runner{db: db, migrations: sorted}
}

func (r *Runner) ensureTable(ctx context.Context) error {
	if err := r.db.WithContext(ctx).AutoMigrate(&record{}); err != nil {
		return fmt.Errorf("migration: ensure table: %w", err)
	}
	return nil
}

func (r *Runner) ran(ctx context.Context) (map[string]record, error) {
	var rows []record
	if err := r.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]record, len(rows))
	for _, row := range rows {
		out[row.Name] = row
	}
	return out, nil
}

func (r *Runner) lastBatch(ctx context.Context) (int, error) {
	var res struct{ Max int }
	err := r.db.WithContext(ctx).Model(&record{}).Select("COALESCE(MAX(batch), 0) AS max").Scan(&res).Error
	return res.Max, err
}

// Run applies every pending migration in one new batch and returns the
// names it applied.
func (r *Runner) Run(ctx context.Context) ([]string, error) {
	if err := r.ensureTable(ctx); err != nil {
		return nil, err
	}
	done, err := r.ran(ctx)
	if err != nil {
		return nil, fmt.Errorf("migration: fetch applied: %w", err)
	}
	batch, err := r.lastBatch(ctx)
	if err != nil {
		return nil, err
	}
	batch++

	var applied []string
	for _, m := range r.migrations {
		if _, ok := done[m.Name()]; ok {
			continue
		}
		logger.Info("migration: running", "name", m.Name())

		err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := m.Up(tx); err != nil {
				return err
			}
			return tx.Create(&record{Name: m.Name(), Batch: batch}).Error
		})
		if err != nil {
			return applied, fmt.Errorf("migration: %s up: %w", m.Name(), err)
		}
		applied = append(applied, m.Name())
	}

	if len(applied) > 0 {
		logger.Info("migration: done", "ran", len(applied), "batch", batch)
	}
	return applied, nil
}

// Rollback reverts the most recent batch, newest first, and returns the
// names it reverted.
func (r *Runner) Rollback(ctx context.Context) ([]string, error) {
	if err := r.ensureTable(ctx); err != nil {
		return nil, err
	}
	batch, err := r.lastBatch(ctx)
	if err != nil || batch == 0 {
		return nil, err
	}

	var rows []record
	if err := r.db.WithContext(ctx).Where("batch = ?", batch).Order("id desc").Find(&rows).Error; err != nil {
		return nil, err
	}

	byName := make(map[string]Migration, len(r.migrations))
	for _, m := range r.migrations {
		byName[m.Name()] = m
	}

	var reverted []string
	for _, row := range rows {
		m, ok := byName[row.Name]
		if !ok {
			return reverted, fmt.Errorf("migration: cannot roll back %s: not registered", row.Name)
		}
		logger.Info("migration: rolling back", "name", row.Name)

		err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := m.Down(tx); err != nil {
				return err
			}
			return tx.Delete(&record{}, row.ID).Error
		})
		if err != nil {
			return reverted, fmt.Errorf("migration: %s down: %w", row.Name, err)
		}
		reverted = append(reverted, row.Name)
	}
	return reverted, nil
}

// Status lists every registered migration in order.
func (r *Runner) Status(ctx context.Context) ([]Status, error) {
	if err := r.ensureTable(ctx); err != nil {
		return nil, err
	}
	done, err := r.ran(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]Status, 0, len(r.migrations))
	for _, m := range r.migrations {
		row, ok := done[m.Name()]
		out = append(out, Status{Name: m.Name(), Ran: ok, Batch: row.Batch})
	}
	return out, nil
}

// Func adapts a pair of functions into a Migration.
type Func struct {
	ID       string
	UpFunc   func(db *gorm.DB) error
	DownFunc func(db *gorm.DB) error
}

func (f Func) Name() string           { return f.ID }
func (f Func) Up(db *gorm.DB) error   { return f.UpFunc(db) }
func (f Func) Down(db *gorm.DB) error { return f.DownFunc(db) }
