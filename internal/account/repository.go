package account

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/vasiliy-maslov/art-gallery/internal/db"
)

var (
	ErrNotFound       = errors.New("account not found")
	ErrEmailExists    = errors.New("user already exists with this email")
	ErrUsernameExists = errors.New("admin already exists with this username")
)

type Repository interface {
	CreateUser(ctx context.Context, u *User) error
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	CreateAdmin(ctx context.Context, a *Admin) error
	GetAdminByUsername(ctx context.Context, username string) (*Admin, error)
}

type postgresRepository struct {
	db db.Querier
}

func NewRepository(q db.Querier) Repository {
	return &postgresRepository{db: q}
}

func (r *postgresRepository) CreateUser(ctx context.Context, u *User) error {
	if u.ID == uuid.Nil {
		id, err := uuid.NewV4()
		if err != nil {
			return fmt.Errorf("repository: failed to generate user ID: %w", err)
		}
		u.ID = id
	}
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now

	query := `
		INSERT INTO users (id, name, email, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := db.Conn(ctx, r.db).Exec(ctx, query, u.ID, u.Name, u.Email, u.PasswordHash, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return ErrEmailExists
		}
		return fmt.Errorf("repository: failed to insert user: %w", err)
	}
	return nil
}

func (r *postgresRepository) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	query := `SELECT id, name, email, password_hash, created_at, updated_at FROM users WHERE email = $1`

	var u User
	err := db.Conn(ctx, r.db).QueryRow(ctx, query, email).Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.PasswordHash,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("repository: failed to select user by email: %w", err)
	}
	return &u, nil
}

func (r *postgresRepository) CreateAdmin(ctx context.Context, a *Admin) error {
	if a.ID == uuid.Nil {
		id, err := uuid.NewV4()
		if err != nil {
			return fmt.Errorf("repository: failed to generate admin ID: %w", err)
		}
		a.ID = id
	}
	a.CreatedAt = time.Now().UTC()

	query := `
		INSERT INTO admins (id, username, email, password_hash, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := db.Conn(ctx, r.db).Exec(ctx, query, a.ID, a.Username, a.Email, a.PasswordHash, a.CreatedAt)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return ErrUsernameExists
		}
		return fmt.Errorf("repository: failed to insert admin: %w", err)
	}
	return nil
}

func (r *postgresRepository) GetAdminByUsername(ctx context.Context, username string) (*Admin, error) {
	query := `SELECT id, username, email, password_hash, created_at FROM admins WHERE username = $1`

	var a Admin
	err := db.Conn(ctx, r.db).QueryRow(ctx, query, username).Scan(
		&a.ID,
		&a.Username,
		&a.Email,
		&a.PasswordHash,
		&a.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("repository: failed to select admin by username: %w", err)
	}
	return &a, nil
}
