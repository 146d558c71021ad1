package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/paradise-007/healthally/internal/util"
	"github.com/paradise-007/healthally/pkg/domain"
)

// RedisSessionStore keeps opaque session tokens in Redis with TTL.
// Each subject also has a token set so RevokeSubject can end all of its sessions.
type RedisSessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisSessionStore(client *redis.Client, ttl time.Duration) *RedisSessionStore {
	return &RedisSessionStore{client: client, ttl: ttl}
}

type redisSession struct {
	Kind      domain.SessionKind `json:"kind"`
	SubjectID string             `json:"sub"`
	Username  string             `json:"username"`
}

// NewSession writes the token record and indexes it under its subject.
func (s *RedisSessionStore) NewSession(ctx context.Context, sess domain.Session) (string, error) {
	if err := validateSession(sess); err != nil {
		return "", err
	}
	payload, err := json.Marshal(redisSession{Kind: sess.Kind, SubjectID: sess.SubjectID, Username: sess.Username})
	if err != nil {
		return "", err
	}
	token := util.RandomHex(32)
	idx := sessionIndexKey(sess.Kind, sess.SubjectID)
	_, err = s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, sessionKey(token), payload, s.ttl)
		p.SAdd(ctx, idx, token)
		p.Expire(ctx, idx, s.ttl)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("store session: %w", err)
	}
	return token, nil
}

func (s *RedisSessionStore) Lookup(ctx context.Context, token string) (domain.Session, bool, error) {
	if token == "" {
		return domain.Session{}, false, nil
	}
	raw, err := s.client.Get(ctx, sessionKey(token)).Bytes()
	if err == redis.Nil {
		return domain.Session{}, false, nil
	}
	if err != nil {
		return domain.Session{}, false, err
	}
	var rs redisSession
	if err := json.Unmarshal(raw, &rs); err != nil {
		return domain.Session{}, false, fmt.Errorf("decode session: %w", err)
	}
	return domain.Session{Token: token, Kind: rs.Kind, SubjectID: rs.SubjectID, Username: rs.Username}, true, nil
}

func (s *RedisSessionStore) DeleteSession(ctx context.Context, token string) error {
	if err := s.client.Del(ctx, sessionKey(token)).Err(); err != nil && err != redis.Nil {
		return err
	}
	return nil
}

func (s *RedisSessionStore) RevokeSubject(ctx context.Context, kind domain.SessionKind, subjectID string) error {
	idx := sessionIndexKey(kind, subjectID)
	tokens, err := s.client.SMembers(ctx, idx).Result()
	if err != nil && err != redis.Nil {
		return err
	}
	keys := make([]string, 0, len(tokens)+1)
	for _, t := range tokens {
		keys = append(keys, sessionKey(t))
	}
	keys = append(keys, idx)
	return s.client.Del(ctx, keys...).Err()
}

func sessionKey(token string) string {
	return "session:" + token
}

func sessionIndexKey(kind domain.SessionKind, subjectID string) string {
	return "session:subject:" + subjectKey(kind, subjectID)
}
