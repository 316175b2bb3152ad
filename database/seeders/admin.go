package seeders

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/shashiranjanraj/ordersvc/app/models"
	"github.com/shashiranjanraj/ordersvc/app/requests"
	"github.com/shashiranjanraj/ordersvc/pkg/auth"
	"github.com/shashiranjanraj/ordersvc/pkg/logger"
)

// Admin creates an Admin account for email unless one already exists.
// Both values usually come from ADMIN_EMAIL and ADMIN_PASSWORD.
func Admin(email, password string) Seeder {
	return Seeder{
		Name: "admin",
		Run: func(ctx context.Context, db *gorm.DB) error {
			email := requests.NormalizeEmail(email)
			if email == "" || password == "" {
				logger.Warn("seeders: ADMIN_EMAIL or ADMIN_PASSWORD not set, skipping admin")
				return nil
			}
			if len(password) < 6 {
				return errors.New("admin password must be at least 6 characters")
			}

			var existing models.User
			err := db.WithContext(ctx).Where("email = ?", email).First(&existing).Error
			if err == nil {
				return nil
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("lookup admin: %w", err)
			}

			hash, err := auth.HashPassword(password)
			if err != nil {
				return err
			}
			return db.WithContext(ctx).Create(&models.User{
				Name:         "Administrator",
				Email:        email,
				PasswordHash: hash,
				Role:         models.RoleAdmin,
			}).Error
		},
	}
}
