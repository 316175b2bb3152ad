// Package seeders fills a fresh database with the rows the service needs
// to be usable.
package seeders

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// Seeder is one named, idempotent seed step.
type Seeder struct {
	Name string
	Run  func(ctx context.Context, db *gorm.DB) error
}

// Run executes seeders in order and stops on the first error. It returns
// the names that completed.
func Run(ctx context.Context, db *gorm.DB, seeders ...Seeder) ([]string, error) {
	var done []string
	for _, s := range seeders {
		if err := s.Run(ctx, db); err != nil {
			return done, fmt.Errorf("seeder %q: %w", s.Name, err)
		}
		done = append(done, s.Name)
	}
	return done, nil
}
