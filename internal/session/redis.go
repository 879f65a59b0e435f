package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	redisSessionPrefix = "session:"
	redisUserPrefix    = "session-user:"
)

type redisRepository struct {
	client *redis.Client
	now    func() time.Time
}

// NewRedisRepository stores each session under its own key with a TTL that ends
// at ExpiresAt, plus a set of tokens per user and role.
func NewRedisRepository(client *redis.Client) Repository {
	return &redisRepository{client: client, now: time.Now}
}

func sessionKey(token string) string {
	return redisSessionPrefix + token
}

func userKey(userID string, role Role) string {
	return redisUserPrefix + string(role) + ":" + userID
}

func (r *redisRepository) Create(ctx context.Context, s *Session) error {
	ttl := s.ExpiresAt.Sub(r.now())
	if ttl <= 0 {
		return fmt.Errorf("repository: session for user %s already expired", s.UserID)
	}

	payload, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("repository: failed to encode session: %w", err)
	}

	idx := userKey(s.UserID, s.Role)
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, sessionKey(s.Token), payload, ttl)
		pipe.SAdd(ctx, idx, s.Token)
		pipe.Expire(ctx, idx, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("repository: failed to store session for user %s: %w", s.UserID, err)
	}
	return nil
}

func (r *redisRepository) Get(ctx context.Context, token string) (*Session, error) {
	payload, err := r.client.Get(ctx, sessionKey(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNoSession
		}
		return nil, fmt.Errorf("repository: failed to read session: %w", err)
	}

	var s Session
	if err := json.Unmarshal(payload, &s); err != nil {
		return nil, fmt.Errorf("repository: failed to decode session: %w", err)
	}
	return &s, nil
}

func (r *redisRepository) Delete(ctx context.Context, token string) error {
	s, err := r.Get(ctx, token)
	if errors.Is(err, ErrNoSession) {
		return nil
	}
	if err != nil {
		return err
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, sessionKey(token))
		pipe.SRem(ctx, userKey(s.UserID, s.Role), token)
		return nil
	})
	if err != nil {
		return fmt.Errorf("repository: failed to delete session: %w", err)
	}
	return nil
}

func (r *redisRepository) DeleteByUser(ctx context.Context, userID string, role Role) error {
	idx := userKey(userID, role)

	tokens, err := r.client.SMembers(ctx, idx).Result()
	if err != nil {
		return fmt.Errorf("repository: failed to list %s sessions of %s: %w", role, userID, err)
	}

	keys := make([]string, 0, len(tokens)+1)
	for _, t := range tokens {
		keys = append(keys, sessionKey(t))
	}
	keys = append(keys, idx)

	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("repository: failed to delete %s sessions of %s: %w", role, userID, err)
	}
	return nil
}

// DeleteExpired is a no-op: Redis drops session keys when their TTL ends.
func (r *redisRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	return 0, nil
}
