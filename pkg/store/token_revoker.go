package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// TokenRevoker tracks revoked token ids until expiry and per-subject revocation cutoffs.
type TokenRevoker interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
	// RevokeSubject invalidates every token of the subject issued at or before since.
	// Cutoffs only move forward.
	RevokeSubject(ctx context.Context, subjectID string, since time.Time) error
	RevokedBefore(ctx context.Context, subjectID string) (time.Time, error)
}

// MemoryTokenRevoker keeps revocations in-memory (single instance only).
type MemoryTokenRevoker struct {
	mu       sync.Mutex
	tokens   map[string]time.Time
	subjects map[string]time.Time
}

func NewMemoryTokenRevoker() *MemoryTokenRevoker {
	return &MemoryTokenRevoker{
		tokens:   make(map[string]time.Time),
		subjects: make(map[string]time.Time),
	}
}

func (r *MemoryTokenRevoker) Revoke(_ context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	r.mu.Lock()
	r.tokens[tokenID] = time.Now().Add(ttl)
	r.mu.Unlock()
	return nil
}

func (r *MemoryTokenRevoker) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	expiry, ok := r.tokens[tokenID]
	if !ok {
		return false, nil
	}
	if time.Now().After(expiry) {
		delete(r.tokens, tokenID)
		return false, nil
	}
	return true, nil
}

func (r *MemoryTokenRevoker) RevokeSubject(_ context.Context, subjectID string, since time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	since = since.UTC()
	if cur, ok := r.subjects[subjectID]; ok && !since.After(cur) {
		return nil
	}
	r.subjects[subjectID] = since
	return nil
}

func (r *MemoryTokenRevoker) RevokedBefore(_ context.Context, subjectID string) (time.Time, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.subjects[subjectID], nil
}

// RedisTokenRevoker stores revocations in Redis so every instance sees them.
type RedisTokenRevoker struct {
	client     *redis.Client
	subjectTTL time.Duration
}

// NewRedisTokenRevoker builds a Redis-backed revoker. Subject cutoffs expire after
// subjectTTL, which should be at least the session lifetime.
func NewRedisTokenRevoker(client *redis.Client, subjectTTL time.Duration) *RedisTokenRevoker {
	return &RedisTokenRevoker{client: client, subjectTTL: subjectTTL}
}

func (r *RedisTokenRevoker) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return r.client.Set(ctx, revocationKey(tokenID), "1", ttl).Err()
}

func (r *RedisTokenRevoker) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := r.client.Exists(ctx, revocationKey(tokenID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// RevokeSubject keeps the newest cutoff. The compare-and-set runs in Lua so
// concurrent revocations cannot move the cutoff backwards.
func (r *RedisTokenRevoker) RevokeSubject(ctx context.Context, subjectID string, since time.Time) error {
	ttl := r.subjectTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return keepNewestScript.Run(ctx, r.client,
		[]string{subjectRevocationKey(subjectID)},
		since.UTC().UnixMilli(), ttl.Milliseconds(),
	).Err()
}

func (r *RedisTokenRevoker) RevokedBefore(ctx context.Context, subjectID string) (time.Time, error) {
	ms, err := r.client.Get(ctx, subjectRevocationKey(subjectID)).Int64()
	if err == redis.Nil {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("read subject cutoff: %w", err)
	}
	return time.UnixMilli(ms).UTC(), nil
}

var keepNewestScript = redis.NewScript(`
local cur = tonumber(redis.call("GET", KEYS[1]) or "0")
local next = tonumber(ARGV[1])
if next > cur then
  redis.call("SET", KEYS[1], ARGV[1], "PX", ARGV[2])
end
return 1
`)

func revocationKey(tokenID string) string {
	return "revoked:" + tokenID
}

func subjectRevocationKey(subjectID string) string {
	return "revoked:subject:" + subjectID
}
