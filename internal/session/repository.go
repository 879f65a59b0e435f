package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/vasiliy-maslov/art-gallery/internal/db"
)

type Repository interface {
	Create(ctx context.Context, s *Session) error
	Get(ctx context.Context, token string) (*Session, error)
	Delete(ctx context.Context, token string) error
	DeleteByUser(ctx context.Context, userID string, role Role) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type postgresRepository struct {
	db db.Querier
}

func NewPostgresRepository(q db.Querier) Repository {
	return &postgresRepository{db: q}
}

func (r *postgresRepository) Create(ctx context.Context, s *Session) error {
	query := `
		INSERT INTO sessions (token, user_id, role, user_data, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := db.Conn(ctx, r.db).Exec(ctx, query, s.Token, s.UserID, s.Role, s.UserData, s.ExpiresAt, s.CreatedAt)
	if err != nil {
		return fmt.Errorf("repository: failed to insert session for user %s: %w", s.UserID, err)
	}
	return nil
}

func (r *postgresRepository) Get(ctx context.Context, token string) (*Session, error) {
	query := `SELECT token, user_id, role, user_data, expires_at, created_at FROM sessions WHERE token = $1`

	var s Session
	err := db.Conn(ctx, r.db).QueryRow(ctx, query, token).Scan(
		&s.Token,
		&s.UserID,
		&s.Role,
		&s.UserData,
		&s.ExpiresAt,
		&s.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoSession
		}
		return nil, fmt.Errorf("repository: failed to select session: %w", err)
	}
	return &s, nil
}

func (r *postgresRepository) Delete(ctx context.Context, token string) error {
	if _, err := db.Conn(ctx, r.db).Exec(ctx, `DELETE FROM sessions WHERE token = $1`, token); err != nil {
		return fmt.Errorf("repository: failed to delete session: %w", err)
	}
	return nil
}

func (r *postgresRepository) DeleteByUser(ctx context.Context, userID string, role Role) error {
	_, err := db.Conn(ctx, r.db).Exec(ctx, `DELETE FROM sessions WHERE user_id = $1 AND role = $2`, userID, role)
	if err != nil {
		return fmt.Errorf("repository: failed to delete %s sessions of %s: %w", role, userID, err)
	}
	return nil
}

func (r *postgresRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	cmdTag, err := db.Conn(ctx, r.db).Exec(ctx, `DELETE FROM sessions WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("repository: failed to delete expired sessions: %w", err)
	}
	return cmdTag.RowsAffected(), nil
}
