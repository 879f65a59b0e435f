package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/art-gallery/internal/apperr"
	"github.com/vasiliy-maslov/art-gallery/internal/db"
)

const tokenBytes = 32

type Service interface {
	Create(ctx context.Context, role Role, data UserData, ttl time.Duration) (*Session, error)
	CreateAdmin(ctx context.Context, data UserData, ttl time.Duration) (*Session, error)
	Validate(ctx context.Context, token string) (*Session, error)
	Destroy(ctx context.Context, token string) error
	Sweep(ctx context.Context) (int64, error)
}

type Option func(*service)

func WithClock(now func() time.Time) Option {
	return func(s *service) { s.now = now }
}

type service struct {
	repo Repository
	tx   db.Transactor
	now  func() time.Time
}

func NewService(repo Repository, tx db.Transactor, opts ...Option) Service {
	s := &service{repo: repo, tx: tx, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func newToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate session token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func (s *service) Create(ctx context.Context, role Role, data UserData, ttl time.Duration) (*Session, error) {
	if data.ID == "" {
		return nil, apperr.Missing("userId")
	}
	if role != RoleUser && role != RoleAdmin {
		return nil, apperr.Invalid("role", fmt.Sprintf("unknown role %q", role))
	}
	if ttl <= 0 {
		return nil, apperr.Invalid("ttl", "must be positive")
	}

	token, err := newToken()
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	data.Role = role
	sess := &Session{
		Token:     token,
		UserID:    data.ID,
		Role:      role,
		UserData:  data,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}

	if err := s.repo.Create(ctx, sess); err != nil {
		log.Error().Err(err).Str("user_id", data.ID).Stringer("role", role).Msg("service: failed to create session")
		return nil, fmt.Errorf("service: failed to create session: %w", err)
	}

	log.Info().Str("user_id", data.ID).Stringer("role", role).Time("expires_at", sess.ExpiresAt).Msg("service: session created")
	return sess, nil
}

// CreateAdmin replaces every earlier session of the admin with a new one.
func (s *service) CreateAdmin(ctx context.Context, data UserData, ttl time.Duration) (*Session, error) {
	var sess *Session
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.repo.DeleteByUser(ctx, data.ID, RoleAdmin); err != nil {
			return err
		}
		var err error
		sess, err = s.Create(ctx, RoleAdmin, data, ttl)
		return err
	})
	if err != nil {
		if apperr.IsValidation(err) {
			return nil, err
		}
		log.Error().Err(err).Str("admin_id", data.ID).Msg("service: failed to create admin session")
		return nil, fmt.Errorf("service: failed to create admin session: %w", err)
	}
	return sess, nil
}

func (s *service) Validate(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, ErrNoSession
	}

	sess, err := s.repo.Get(ctx, token)
	if err != nil {
		if errors.Is(err, ErrNoSession) {
			return nil, ErrNoSession
		}
		log.Error().Err(err).Msg("service: failed to read session")
		return nil, fmt.Errorf("service: failed to read session: %w", err)
	}

	if sess.Expired(s.now()) {
		if err := s.repo.Delete(ctx, token); err != nil {
			log.Warn().Err(err).Str("user_id", sess.UserID).Msg("service: failed to drop expired session")
		}
		return nil, ErrSessionExpired
	}
	return sess, nil
}

func (s *service) Destroy(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.repo.Delete(ctx, token); err != nil {
		log.Error().Err(err).Msg("service: failed to delete session")
		return fmt.Errorf("service: failed to delete session: %w", err)
	}
	return nil
}

func (s *service) Sweep(ctx context.Context) (int64, error) {
	n, err := s.repo.DeleteExpired(ctx, s.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("service: failed to sweep sessions: %w", err)
	}
	return n, nil
}
