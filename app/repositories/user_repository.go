package repositories

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/shashiranjanraj/ordersvc/app/models"
	"github.com/shashiranjanraj/ordersvc/pkg/apperr"
	"github.com/shashiranjanraj/ordersvc/pkg/orm"
)

// ErrEmailTaken is returned by Create when the email is already registered.
var ErrEmailTaken = apperr.New(apperr.Conflict, "Email already in use")

// ErrUserNotFound is returned when no user matches.
var ErrUserNotFound = apperr.New(apperr.NotFound, "User not found")

// UserRepository handles database operations for User. Emails are expected
// already lowercased.
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByEmail looks up a user by their email address.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (models.User, error) {
	var user models.User
	err := orm.New(ctx, r.db, &models.User{}).Where("email = ?", email).First(&user)
	return user, notFound(err, ErrUserNotFound)
}

// FindByID looks up a user by primary key.
func (r *UserRepository) FindByID(ctx context.Context, id string) (models.User, error) {
	var user models.User
	err := orm.New(ctx, r.db, &models.User{}).Where("id = ?", id).First(&user)
	return user, notFound(err, ErrUserNotFound)
}

// Create persists a new user. A unique-index violation on email maps to
// ErrEmailTaken.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	err := r.db.WithContext(ctx).Create(user).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrEmailTaken
	}
	if err != nil {
		return fmt.Errorf("users: create: %w", err)
	}
	return nil
}

// notFound swaps gorm's record-not-found for sentinel and wraps anything
// else.
func notFound(err, sentinel error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return sentinel
	default:
		return fmt.Errorf("query: %w", err)
	}
}
