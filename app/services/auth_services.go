package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/shashiranjanraj/ordersvc/app/models"
	"github.com/shashiranjanraj/ordersvc/app/repositories"
	"github.com/shashiranjanraj/ordersvc/app/requests"
	"github.com/shashiranjanraj/ordersvc/pkg/apperr"
	"github.com/shashiranjanraj/ordersvc/pkg/auth"
)

var (
	ErrInvalidCredentials = apperr.New(apperr.Unauthorized, "Invalid credentials")
	ErrMissingCredentials = apperr.New(apperr.BadRequest, "Missing email or password")
)

// AuthResult is the body of a successful register or login.
type AuthResult struct {
	User  models.User `json:"user"`
	Token string      `json:"token"`
}

type AuthService struct {
	users  *repositories.UserRepository
	tokens *auth.TokenService
}

func NewAuthService(users *repositories.UserRepository, tokens *auth.TokenService) *AuthService {
	return &AuthService{users: users, tokens: tokens}
}

// Register creates the account and signs the caller in. req must already
// be normalised and validated.
func (s *AuthService) Register(ctx context.Context, req requests.RegisterRequest) (AuthResult, error) {
	_, err := s.users.FindByEmail(ctx, req.Email)
	switch {
	case err == nil:
		return AuthResult{}, repositories.ErrEmailTaken
	case !errors.Is(err, repositories.ErrUserNotFound):
		return AuthResult{}, err
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return AuthResult{}, fmt.Errorf("auth: hash password: %w", err)
	}

	role := req.Role
	if role == "" {
		role = models.RoleUser
	}
	user := models.User{Name: req.Name, Email: req.Email, PasswordHash: hash, Role: role}
	if err := s.users.Create(ctx, &user); err != nil {
		return AuthResult{}, err
	}
	return s.signIn(user)
}

// Login answers a missing user and a wrong password identically.
func (s *AuthService) Login(ctx context.Context, req requests.LoginRequest) (AuthResult, error) {
	if req.Email == "" || req.Password == "" {
		return AuthResult{}, ErrMissingCredentials
	}

	user, err := s.users.FindByEmail(ctx, req.Email)
	if errors.Is(err, repositories.ErrUserNotFound) {
		return AuthResult{}, ErrInvalidCredentials
	}
	if err != nil {
		return AuthResult{}, err
	}
	if !auth.CheckPassword(user.PasswordHash, req.Password) {
		return AuthResult{}, ErrInvalidCredentials
	}
	return s.signIn(user)
}

// ResolveIdentity returns the stored identity of userID, or
// repositories.ErrUserNotFound.
func (s *AuthService) ResolveIdentity(ctx context.Context, userID string) (auth.Identity, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return auth.Identity{}, err
	}
	return auth.Identity{UserID: user.ID, Role: user.Role}, nil
}

func (s *AuthService) signIn(user models.User) (AuthResult, error) {
	token, err := s.tokens.Issue(auth.Identity{UserID: user.ID, Role: user.Role})
	if err != nil {
		return AuthResult{}, fmt.Errorf("auth: issue token: %w", err)
	}
	return AuthResult{User: user, Token: token}, nil
}
