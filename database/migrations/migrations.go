// Package migrations holds the schema history, oldest first.
package migrations

import (
	"gorm.io/gorm"

	"github.com/shashiranjanraj/ordersvc/app/models"
	"github.com/shashiranjanraj/ordersvc/pkg/migration"
	"github.com/shashiranjanraj/ordersvc/pkg/queue"
)

// All returns every migration the service knows about.
func All() []migration.Migration {
	return []migration.Migration{
		&CreateUsersTable{},
		&CreateOrdersTable{},
		&CreateFailedJobsTable{},
	}
}

// -------- 0001: users --------

type CreateUsersTable struct{}

func (m *CreateUsersTable) Name() string { return "20260101000000_create_users_table" }

func (m *CreateUsersTable) Up(db *gorm.DB) error {
	return db.AutoMigrate(&models.User{})
}

func (m *CreateUsersTable) Down(db *gorm.DB) error {
	return db.Migrator().DropTable("users")
}

// -------- 0002: orders --------

type CreateOrdersTable struct{}

func (m *CreateOrdersTable) Name() string { return "20260101000001_create_orders_table" }

func (m *CreateOrdersTable) Up(db *gorm.DB) error {
	return db.AutoMigrate(&models.Order{})
}

func (m *CreateOrdersTable) Down(db *gorm.DB) error {
	return db.Migrator().DropTable("orders")
}

// -------- 0003: failed_jobs --------

type CreateFailedJobsTable struct{}

func (m *CreateFailedJobsTable) Name() string { return "20260101000002_create_failed_jobs_table" }

func (m *CreateFailedJobsTable) Up(db *gorm.DB) error {
	return db.AutoMigrate(&queue.FailedJobRecord{})
}

func (m *CreateFailedJobsTable) Down(db *gorm.DB) error {
	return db.Migrator().DropTable("failed_jobs")
}
