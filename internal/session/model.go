package session

import (
	"errors"
	"time"
)

var (
	ErrNoSession      = errors.New("no session")
	ErrSessionExpired = errors.New("session expired")
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

func (r Role) String() string {
	return string(r)
}

// UserData is the identity copied into the session at login.
type UserData struct {
	ID       string `json:"id"`
	Name     string `json:"name,omitempty"`
	Email    string `json:"email,omitempty"`
	Username string `json:"username,omitempty"`
	Role     Role   `json:"role"`
}

type Session struct {
	Token     string    `json:"sessionToken"`
	UserID    string    `json:"userId"`
	Role      Role      `json:"role"`
	UserData  UserData  `json:"userData"`
	ExpiresAt time.Time `json:"expiresAt"`
	CreatedAt time.Time `json:"createdAt"`
}

func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
