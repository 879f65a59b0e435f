package account

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/art-gallery/internal/apperr"
	"golang.org/x/crypto/bcrypt"
)

const (
	PasswordCost      = 12
	MinPasswordLength = 6
)

var ErrInvalidCredentials = errors.New("invalid credentials")

type Service interface {
	Register(ctx context.Context, name, email, password string) (*User, error)
	AuthenticateUser(ctx context.Context, email, password string) (*User, error)
	CreateAdmin(ctx context.Context, username, email, password string) (*Admin, error)
	AuthenticateAdmin(ctx context.Context, username, password string) (*Admin, error)
}

type service struct {
	repo Repository
	cost int
}

type Option func(*service)

// WithCost overrides the bcrypt cost.
func WithCost(cost int) Option {
	return func(s *service) { s.cost = cost }
}

func NewService(repo Repository, opts ...Option) Service {
	s := &service{repo: repo, cost: PasswordCost}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *service) hash(password string) (string, error) {
	if len(password) < MinPasswordLength {
		return "", apperr.Invalid("password", fmt.Sprintf("must be at least %d characters", MinPasswordLength))
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		log.Error().Err(err).Msg("service: failed to hash password")
		return "", fmt.Errorf("internal error hashing password: %w", err)
	}
	return string(hashed), nil
}

func (s *service) Register(ctx context.Context, name, email, password string) (*User, error) {
	name = strings.TrimSpace(name)
	email = normalizeEmail(email)
	if name == "" {
		return nil, apperr.Missing("name")
	}
	if email == "" {
		return nil, apperr.Missing("email")
	}

	hashed, err := s.hash(password)
	if err != nil {
		return nil, err
	}

	u := &User{Name: name, Email: email, PasswordHash: hashed}
	if err := s.repo.CreateUser(ctx, u); err != nil {
		if errors.Is(err, ErrEmailExists) {
			return nil, ErrEmailExists
		}
		log.Error().Err(err).Msg("service: failed to create user in repository")
		return nil, fmt.Errorf("failed to save user: %w", err)
	}

	log.Info().Stringer("user_id", u.ID).Msg("service: user registered")
	return u, nil
}

func (s *service) AuthenticateUser(ctx context.Context, email, password string) (*User, error) {
	u, err := s.repo.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		log.Warn().Stringer("user_id", u.ID).Msg("service: wrong password")
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

func (s *service) CreateAdmin(ctx context.Context, username, email, password string) (*Admin, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, apperr.Missing("username")
	}

	hashed, err := s.hash(password)
	if err != nil {
		return nil, err
	}

	a := &Admin{Username: username, Email: normalizeEmail(email), PasswordHash: hashed}
	if err := s.repo.CreateAdmin(ctx, a); err != nil {
		if errors.Is(err, ErrUsernameExists) {
			return nil, ErrUsernameExists
		}
		return nil, fmt.Errorf("failed to save admin: %w", err)
	}

	log.Info().Str("username", a.Username).Msg("service: admin created")
	return a, nil
}

func (s *service) AuthenticateAdmin(ctx context.Context, username, password string) (*Admin, error) {
	a, err := s.repo.GetAdminByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get admin by username: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(password)); err != nil {
		log.Warn().Str("username", a.Username).Msg("service: wrong admin password")
		return nil, ErrInvalidCredentials
	}
	return a, nil
}
