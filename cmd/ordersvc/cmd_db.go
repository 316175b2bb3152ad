package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/shashiranjanraj/ordersvc/config"
	"github.com/shashiranjanraj/ordersvc/database/migrations"
	"github.com/shashiranjanraj/ordersvc/database/seeders"
	"github.com/shashiranjanraj/ordersvc/pkg/app"
	"github.com/shashiranjanraj/ordersvc/pkg/database"
	"github.com/shashiranjanraj/ordersvc/pkg/migration"
)

// withDB runs fn against the configured database and closes it afterwards.
func withDB(fn func(ctx context.Context, db *gorm.DB) error) error {
	ctx, stop := signalContext()
	defer stop()

	closeLog, err := app.Setup(ctx)
	if err != nil {
		return err
	}
	defer closeLog()

	db, err := app.OpenDB(ctx)
	if err != nil {
		return err
	}
	defer database.Close(db)

	return fn(ctx, db)
}

func printNames(verb string, names []string) {
	if len(names) == 0 {
		fmt.Println("Nothing to " + verb + ".")
		return
	}
	for _, n := range names {
		fmt.Printf("  %s: %s\n", verb, n)
	}
}

// ordersvc migrate
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run all pending database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(func(ctx context.Context, db *gorm.DB) error {
			fmt.Println("Running migrations…")
			names, err := migration.New(db, migrations.All()...).Run(ctx)
			printNames("migrate", names)
			return err
		})
	},
}

// ordersvc migrate:rollback
var migrateRollbackCmd = &cobra.Command{
	Use:   "migrate:rollback",
	Short: "Rollback the last batch of migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(func(ctx context.Context, db *gorm.DB) error {
			fmt.Println("Rolling back last batch…")
			names, err := migration.New(db, migrations.All()...).Rollback(ctx)
			printNames("rollback", names)
			return err
		})
	},
}

// ordersvc migrate:status
var migrateStatusCmd = &cobra.Command{
	Use:   "migrate:status",
	Short: "Show the status of each migration",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(func(ctx context.Context, db *gorm.DB) error {
			statuses, err := migration.New(db, migrations.All()...).Status(ctx)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "MIGRATION\tRAN\tBATCH")
			for _, s := range statuses {
				batch := "-"
				if s.Ran {
					batch = fmt.Sprint(s.Batch)
				}
				fmt.Fprintf(w, "%s\t%t\t%s\n", s.Name, s.Ran, batch)
			}
			return w.Flush()
		})
	},
}

// ordersvc db:seed
var seedCmd = &cobra.Command{
	Use:     "db:seed",
	Aliases: []string{"seed"},
	Short:   "Run all database seeders",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(func(ctx context.Context, db *gorm.DB) error {
			fmt.Println("Running seeders…")
			names, err := seeders.Run(ctx, db,
				seeders.Admin(config.Get("ADMIN_EMAIL", ""), config.Get("ADMIN_PASSWORD", "")),
			)
			printNames("seed", names)
			return err
		})
	},
}
