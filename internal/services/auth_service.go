package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/yukikurage/project-management-api/internal/auth"
	"github.com/yukikurage/project-management-api/internal/constants"
	apierrors "github.com/yukikurage/project-management-api/internal/errors"
	"github.com/yukikurage/project-management-api/internal/models"
	"github.com/yukikurage/project-management-api/internal/repository"
	"gorm.io/gorm"
)

var (
	ErrEmailTaken         = apierrors.New(apierrors.KindConflict, "email address is already registered")
	ErrInvalidCredentials = apierrors.New(apierrors.KindUnauthorized, "invalid email or password")
	ErrInvalidEmail       = apierrors.New(apierrors.KindValidation, "invalid email address")
	ErrPasswordTooShort   = apierrors.New(apierrors.KindValidation, fmt.Sprintf("password must be at least %d characters", constants.MinPasswordLength))
	ErrNameTooShort       = apierrors.New(apierrors.KindValidation, fmt.Sprintf("name must be at least %d characters", constants.MinNameLength))
	ErrUserNotFound       = apierrors.New(apierrors.KindNotFound, "user not found")
)

// AuthService handles authentication related business logic.
type AuthService struct {
	userRepo repository.UserRepository
	jwt      *auth.JWTService
	log      *slog.Logger
	now      func() time.Time
}

// NewAuthService creates a new AuthService.
func NewAuthService(userRepo repository.UserRepository, jwt *auth.JWTService, log *slog.Logger) *AuthService {
	return &AuthService{
		userRepo: userRepo,
		jwt:      jwt,
		log:      log,
		now:      time.Now,
	}
}

// SignupInput represents the required information to create a new user.
type SignupInput struct {
	Email    string
	Name     string
	Password string
}

// LoginInput holds the credentials for authentication.
type LoginInput struct {
	Email    string
	Password string
}

// LoginResult carries the bearer token issued on login.
type LoginResult struct {
	Token     string
	ExpiresIn int
	User      *models.User
}

// NormalizeEmail trims and lowercases an address and checks that it parses.
func NormalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", ErrInvalidEmail
	}
	return email, nil
}

// Signup creates a new user.
func (s *AuthService) Signup(ctx context.Context, input SignupInput) (*models.User, error) {
	email, err := NormalizeEmail(input.Email)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(input.Name)
	if len([]rune(name)) < constants.MinNameLength {
		return nil, ErrNameTooShort
	}
	if len(input.Password) < constants.MinPasswordLength {
		return nil, ErrPasswordTooShort
	}

	if _, err := s.userRepo.FindByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apierrors.Internal("failed to check email", err)
	}

	hash, err := auth.HashPassword(input.Password)
	if err != nil {
		return nil, apierrors.Internal("failed to hash password", err)
	}

	user := &models.User{
		Email:        email,
		Name:         name,
		PasswordHash: hash,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrEmailTaken
		}
		return nil, apierrors.Internal("failed to create user", err)
	}

	s.log.Info("user registered", slog.Uint64("user_id", user.ID))
	return user, nil
}

// Login verifies credentials, records the login and issues a session token.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	email, err := NormalizeEmail(input.Email)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, apierrors.Internal("failed to find user", err)
	}

	if !auth.CheckPassword(user.PasswordHash, input.Password) {
		return nil, ErrInvalidCredentials
	}

	now := s.now()
	if err := s.userRepo.TouchLastLogin(ctx, user.ID, now); err != nil {
		s.log.Warn("failed to record last login", slog.Uint64("user_id", user.ID), slog.Any("error", err))
	} else {
		user.LastLogin = &now
	}

	token, err := s.jwt.GenerateToken(user.ID, user.Email)
	if err != nil {
		return nil, apierrors.Internal("failed to issue token", err)
	}

	return &LoginResult{Token: token, ExpiresIn: s.jwt.TTLSeconds(), User: user}, nil
}

// GetUser retrieves a user by ID.
func (s *AuthService) GetUser(ctx context.Context, id uint64) (*models.User, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, apierrors.Internal("failed to find user", err)
	}

	return user, nil
}
