package message

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/art-gallery/internal/apperr"
	"github.com/vasiliy-maslov/art-gallery/internal/db"
)

var ErrNotFound = errors.New("message not found")

// Message is a contact form submission.
type Message struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Subject   string    `json:"subject"`
	Body      string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

type Repository interface {
	Create(ctx context.Context, m *Message) error
	List(ctx context.Context) ([]Message, error)
	Delete(ctx context.Context, id uuid.UUID) (*Message, error)
}

type postgresRepository struct {
	db db.Querier
}

func NewRepository(q db.Querier) Repository {
	return &postgresRepository{db: q}
}

func (r *postgresRepository) Create(ctx context.Context, m *Message) error {
	id, err := uuid.NewV4()
	if err != nil {
		return fmt.Errorf("repository: failed to generate message ID: %w", err)
	}
	m.ID = id
	m.CreatedAt = time.Now().UTC()

	query := `INSERT INTO messages (id, name, email, subject, body, created_at) VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := db.Conn(ctx, r.db).Exec(ctx, query, m.ID, m.Name, m.Email, m.Subject, m.Body, m.CreatedAt); err != nil {
		return fmt.Errorf("repository: failed to insert message: %w", err)
	}
	return nil
}

func (r *postgresRepository) List(ctx context.Context) ([]Message, error) {
	query := `SELECT id, name, email, subject, body, created_at FROM messages ORDER BY created_at DESC`

	rows, err := db.Conn(ctx, r.db).Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query messages: %w", err)
	}
	defer rows.Close()

	messages := make([]Message, 0)
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.Name, &m.Email, &m.Subject, &m.Body, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("repository: failed to scan message: %w", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating messages: %w", err)
	}
	return messages, nil
}

func (r *postgresRepository) Delete(ctx context.Context, id uuid.UUID) (*Message, error) {
	query := `DELETE FROM messages WHERE id = $1 RETURNING id, name, email, subject, body, created_at`

	var m Message
	err := db.Conn(ctx, r.db).QueryRow(ctx, query, id).Scan(&m.ID, &m.Name, &m.Email, &m.Subject, &m.Body, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("repository: failed to delete message %s: %w", id, err)
	}
	return &m, nil
}

type Service interface {
	Submit(ctx context.Context, m *Message) (*Message, error)
	List(ctx context.Context) ([]Message, error)
	Delete(ctx context.Context, id uuid.UUID) (*Message, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) Submit(ctx context.Context, in *Message) (*Message, error) {
	m := &Message{
		Name:    strings.TrimSpace(in.Name),
		Email:   strings.ToLower(strings.TrimSpace(in.Email)),
		Subject: strings.TrimSpace(in.Subject),
		Body:    strings.TrimSpace(in.Body),
	}
	switch {
	case m.Name == "":
		return nil, apperr.Missing("name")
	case m.Email == "":
		return nil, apperr.Missing("email")
	case m.Body == "":
		return nil, apperr.Missing("message")
	}

	if err := s.repo.Create(ctx, m); err != nil {
		log.Error().Err(err).Msg("service: failed to save message")
		return nil, fmt.Errorf("service: failed to save message: %w", err)
	}

	log.Info().Stringer("message_id", m.ID).Msg("service: contact message received")
	return m, nil
}

func (s *service) List(ctx context.Context) ([]Message, error) {
	messages, err := s.repo.List(ctx)
	if err != nil {
		log.Error().Err(err).Msg("service: failed to list messages")
		return nil, fmt.Errorf("service: failed to list messages: %w", err)
	}
	return messages, nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) (*Message, error) {
	m, err := s.repo.Delete(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		log.Error().Err(err).Stringer("message_id", id).Msg("service: failed to delete message")
		return nil, fmt.Errorf("service: failed to delete message: %w", err)
	}
	return m, nil
}
