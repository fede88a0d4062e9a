package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	redisv9 "github.com/redis/go-redis/v9"
)

type TokenPurpose string

const (
	PurposeVerify TokenPurpose = "verify"
	PurposeReset  TokenPurpose = "reset"
)

const blacklistMarker = "blacklisted"

// TokenStore keeps one-time mail tokens and revoked access tokens in Redis.
// Entries expire through Redis TTLs; nothing here sweeps them.
type TokenStore struct {
	client *redisv9.Client
}

func NewTokenStore(client *redisv9.Client) *TokenStore {
	return &TokenStore{client: client}
}

func (s *TokenStore) SaveOneTime(ctx context.Context, purpose TokenPurpose, token, email string, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("save %s token: non-positive ttl %s", purpose, ttl)
	}
	if err := s.client.Set(ctx, s.oneTimeKey(purpose, token), email, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s token failed: %w", purpose, err)
	}
	return nil
}

// ConsumeOneTime atomically reads and deletes token, returning the bound email or
// "" when it is unknown or expired. Of two concurrent callers only one gets the email.
func (s *TokenStore) ConsumeOneTime(ctx context.Context, purpose TokenPurpose, token string) (string, error) {
	email, err := s.client.GetDel(ctx, s.oneTimeKey(purpose, token)).Result()
	if errors.Is(err, redisv9.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("redis getdel %s token failed: %w", purpose, err)
	}
	return email, nil
}

func (s *TokenStore) Blacklist(ctx context.Context, token string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := s.client.Set(ctx, s.blacklistKey(token), blacklistMarker, ttl).Err(); err != nil {
		return fmt.Errorf("redis set blacklist failed: %w", err)
	}
	return nil
}

func (s *TokenStore) IsBlacklisted(ctx context.Context, token string) (bool, error) {
	exists, err := s.client.Exists(ctx, s.blacklistKey(token)).Result()
	if err != nil {
		return false, fmt.Errorf("redis check blacklist failed: %w", err)
	}
	return exists > 0, nil
}

func (s *TokenStore) oneTimeKey(purpose TokenPurpose, token string) string {
	return fmt.Sprintf("auth:%s:%s", purpose, token)
}

func (s *TokenStore) blacklistKey(token string) string {
	return "auth:blacklist:" + token
}
