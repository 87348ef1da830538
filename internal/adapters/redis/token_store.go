package redis

// Package redis provides Redis-based adapters for convenios sessions and board state.

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	domainauth "github.com/target/convenios-ui/internal/domain/auth"
	"github.com/target/convenios-ui/internal/ports"
)

const defaultKeyPrefix = "convenios:"

var _ ports.TokenStore = (*TokenStore)(nil)

// TokenStore is the Redis registry of live provider sessions.
// Sessions are keyed by a SHA-256 of the token and expire with the session.
// A per-user set indexes the sessions of each user for sign-out everywhere.
type TokenStore struct {
	client redis.UniversalClient
	prefix string
	// fallbackTTL applies to sessions without an expiry.
	fallbackTTL time.Duration
	now         func() time.Time
}

// TokenStoreOptions groups configuration for NewTokenStore.
type TokenStoreOptions struct {
	Prefix      string
	FallbackTTL time.Duration
	Now         func() time.Time
}

// NewTokenStore creates a Redis-backed token store.
func NewTokenStore(client redis.UniversalClient, opts TokenStoreOptions) *TokenStore {
	if opts.Prefix == "" {
		opts.Prefix = defaultKeyPrefix
	}
	if opts.FallbackTTL <= 0 {
		opts.FallbackTTL = 8 * time.Hour
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &TokenStore{
		client:      client,
		prefix:      opts.Prefix,
		fallbackTTL: opts.FallbackTTL,
		now:         opts.Now,
	}
}

// HashToken returns the stable key fragment for a token. Raw tokens are never written to Redis.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func (s *TokenStore) sessionKey(token string) string {
	return s.prefix + "session:" + HashToken(token)
}

func (s *TokenStore) userKey(userID string) string {
	return s.prefix + "user_sessions:" + userID
}

func (s *TokenStore) Put(ctx context.Context, sess domainauth.ProviderSession) error {
	if sess.Token == "" {
		return errors.New("session token cannot be empty")
	}

	ttl := s.fallbackTTL
	if !sess.ExpiresAt.IsZero() {
		ttl = sess.ExpiresAt.Sub(s.now())
	}
	if ttl <= 0 {
		return errors.New("session is expired")
	}

	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	key := s.sessionKey(sess.Token)
	_, err = s.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, key, data, ttl)
		if sess.UserID != "" {
			uk := s.userKey(sess.UserID)
			p.SAdd(ctx, uk, key)
			p.Expire(ctx, uk, max(ttl, s.fallbackTTL))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis put session: %w", err)
	}
	return nil
}

func (s *TokenStore) Get(ctx context.Context, token string) (domainauth.ProviderSession, error) {
	if token == "" {
		return domainauth.ProviderSession{}, ports.ErrSessionNotFound
	}

	data, err := s.client.Get(ctx, s.sessionKey(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domainauth.ProviderSession{}, ports.ErrSessionNotFound
		}
		return domainauth.ProviderSession{}, fmt.Errorf("redis get: %w", err)
	}

	var sess domainauth.ProviderSession
	if err := json.Unmarshal(data, &sess); err != nil {
		return domainauth.ProviderSession{}, fmt.Errorf("unmarshal session: %w", err)
	}

	if sess.Expired(s.now()) {
		if err := s.Delete(ctx, token); err != nil {
			return domainauth.ProviderSession{}, fmt.Errorf("cleanup expired session: %w", err)
		}
		return domainauth.ProviderSession{}, ports.ErrSessionNotFound
	}
	return sess, nil
}

func (s *TokenStore) Delete(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}

	key := s.sessionKey(token)
	data, err := s.client.GetDel(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("redis delete session: %w", err)
	}

	var sess domainauth.ProviderSession
	if err := json.Unmarshal(data, &sess); err == nil && sess.UserID != "" {
		if err := s.client.SRem(ctx, s.userKey(sess.UserID), key).Err(); err != nil {
			return fmt.Errorf("redis unindex session: %w", err)
		}
	}
	return nil
}

func (s *TokenStore) DeleteUser(ctx context.Context, userID string) (int, error) {
	if userID == "" {
		return 0, nil
	}

	uk := s.userKey(userID)
	keys, err := s.client.SMembers(ctx, uk).Result()
	if err != nil {
		return 0, fmt.Errorf("redis list user sessions: %w", err)
	}
	if len(keys) == 0 {
		return 0, nil
	}

	// One DEL per key keeps the pipeline valid on cluster deployments.
	dels := make([]*redis.IntCmd, 0, len(keys))
	_, err = s.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		for _, k := range keys {
			dels = append(dels, p.Del(ctx, k))
		}
		p.Del(ctx, uk)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("redis delete user sessions: %w", err)
	}
	removed := 0
	for _, d := range dels {
		removed += int(d.Val())
	}
	return removed, nil
}
