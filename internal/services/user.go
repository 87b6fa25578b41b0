package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jobboard/apiserver/internal/auth"
	"github.com/jobboard/apiserver/internal/store"
	"github.com/jobboard/apiserver/types"
)

const minPasswordLength = 8

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id int64) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	FindByEmailOrUsername(ctx context.Context, email, username string) ([]types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	UpdateName(ctx context.Context, id int64, name string) (types.User, error)
}

// TokenIssuer signs session tokens.
type TokenIssuer interface {
	Issue(claims auth.Claims) (string, error)
}

type RegisterInput struct {
	Name            string
	Username        string
	Email           string
	Password        string
	ConfirmPassword string
	Role            string
}

type LoginResult struct {
	User  types.User
	Token string
}

// UserService encapsulates registration, login and profile use-cases.
type UserService struct {
	repo   UserRepository
	tokens TokenIssuer
	logger *slog.Logger
}

func NewUserService(repo UserRepository, tokens TokenIssuer, logger *slog.Logger) *UserService {
	return &UserService{repo: repo, tokens: tokens, logger: logger}
}

func (s *UserService) Register(ctx context.Context, input RegisterInput) (types.User, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Username = strings.TrimSpace(input.Username)
	input.Email = strings.TrimSpace(input.Email)
	input.Role = strings.TrimSpace(input.Role)

	switch {
	case input.Name == "" || input.Username == "" || input.Email == "" || input.Password == "":
		return types.User{}, invalid("Name, username, email and password are required")
	case len(input.Password) < minPasswordLength:
		return types.User{}, invalid("Password must be at least 8 characters")
	case input.Password != input.ConfirmPassword:
		return types.User{}, invalid("Passwords do not match")
	}
	if input.Role == "" {
		input.Role = types.RoleApplicant
	}
	if !types.ValidRole(input.Role) {
		return types.User{}, invalid("Role must be applicant or employer")
	}

	if err := s.checkTaken(ctx, input.Email, input.Username); err != nil {
		return types.User{}, err
	}

	hash, err := auth.HashPassword(input.Password)
	if err != nil {
		return types.User{}, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.repo.Create(ctx, types.User{
		Name:         input.Name,
		Username:     input.Username,
		Email:        input.Email,
		Role:         input.Role,
		PasswordHash: hash,
	})
	if errors.Is(err, store.ErrConflict) {
		// Lost a race with a concurrent registration; report which field.
		if takenErr := s.checkTaken(ctx, input.Email, input.Username); takenErr != nil {
			return types.User{}, takenErr
		}
	}
	if err != nil {
		return types.User{}, fmt.Errorf("create user: %w", err)
	}

	s.logger.Info("user registered", "user_id", user.ID, "role", user.Role)
	return user, nil
}

// checkTaken reports an email collision before a username collision.
func (s *UserService) checkTaken(ctx context.Context, email, username string) error {
	existing, err := s.repo.FindByEmailOrUsername(ctx, email, username)
	if err != nil {
		return fmt.Errorf("check existing user: %w", err)
	}
	for _, user := range existing {
		if user.Email == email {
			return ErrEmailTaken
		}
	}
	for _, user := range existing {
		if user.Username == username {
			return ErrUsernameTaken
		}
	}
	return nil
}

func (s *UserService) Login(ctx context.Context, email, password string) (LoginResult, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return LoginResult{}, invalid("Email and password are required")
	}
	if len(password) < minPasswordLength {
		return LoginResult{}, ErrInvalidCredentials
	}

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, fmt.Errorf("load user: %w", err)
	}
	if !auth.VerifyPassword(user.PasswordHash, password) {
		s.logger.Warn("login rejected", "user_id", user.ID)
		return LoginResult{}, ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(auth.Claims{UserID: user.ID, Email: user.Email, Name: user.Name})
	if err != nil {
		return LoginResult{}, fmt.Errorf("issue token: %w", err)
	}
	return LoginResult{User: user, Token: token}, nil
}

func (s *UserService) GetByID(ctx context.Context, id int64) (types.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return types.User{}, ErrUserNotFound
	}
	return user, err
}

func (s *UserService) UpdateProfile(ctx context.Context, userID int64, name string) (types.User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return types.User{}, invalid("Name is required")
	}
	user, err := s.repo.UpdateName(ctx, userID, name)
	if errors.Is(err, store.ErrNotFound) {
		return types.User{}, ErrUserNotFound
	}
	return user, err
}
