package store

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/paradise-007/healthally/internal/util"
	"github.com/paradise-007/healthally/pkg/domain"
)

// ErrInvalidSession is returned for tokens that are malformed, expired or revoked.
var ErrInvalidSession = errors.New("invalid session")

// SessionStore issues bearer tokens for authenticated users and admins.
type SessionStore interface {
	NewSession(ctx context.Context, s domain.Session) (string, error)
	// Lookup resolves a token. Unknown or expired tokens return false without error.
	Lookup(ctx context.Context, token string) (domain.Session, bool, error)
	DeleteSession(ctx context.Context, token string) error
	// RevokeSubject ends every session of the given user or admin.
	RevokeSubject(ctx context.Context, kind domain.SessionKind, subjectID string) error
}

func validateSession(s domain.Session) error {
	if strings.TrimSpace(s.SubjectID) == "" {
		return errors.New("session subject required")
	}
	if s.Kind != domain.SessionUser && s.Kind != domain.SessionAdmin {
		return errors.New("session kind required")
	}
	return nil
}

func subjectKey(kind domain.SessionKind, subjectID string) string {
	return string(kind) + ":" + subjectID
}

// MemorySessionStore keeps opaque tokens in-process (single instance only).
type MemorySessionStore struct {
	mu       sync.Mutex
	ttl      time.Duration
	sessions map[string]memorySession
	now      func() time.Time
}

type memorySession struct {
	session domain.Session
	expires time.Time
}

func NewMemorySessionStore(ttl time.Duration) *MemorySessionStore {
	return &MemorySessionStore{
		ttl:      ttl,
		sessions: make(map[string]memorySession),
		now:      time.Now,
	}
}

func (m *MemorySessionStore) NewSession(_ context.Context, s domain.Session) (string, error) {
	if err := validateSession(s); err != nil {
		return "", err
	}
	token := util.RandomHex(32)
	s.Token = ""
	m.mu.Lock()
	m.sessions[token] = memorySession{session: s, expires: m.now().Add(m.ttl)}
	m.mu.Unlock()
	return token, nil
}

func (m *MemorySessionStore) Lookup(_ context.Context, token string) (domain.Session, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.sessions[token]
	if !ok {
		return domain.Session{}, false, nil
	}
	if !m.now().Before(entry.expires) {
		delete(m.sessions, token)
		return domain.Session{}, false, nil
	}
	s := entry.session
	s.Token = token
	return s, true, nil
}

func (m *MemorySessionStore) DeleteSession(_ context.Context, token string) error {
	m.mu.Lock()
	delete(m.sessions, token)
	m.mu.Unlock()
	return nil
}

func (m *MemorySessionStore) RevokeSubject(_ context.Context, kind domain.SessionKind, subjectID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for token, entry := range m.sessions {
		if entry.session.Kind == kind && entry.session.SubjectID == subjectID {
			delete(m.sessions, token)
		}
	}
	return nil
}
