package store

import (
	"context"
	"errors"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/paradise-007/healthally/internal/util"
	"github.com/paradise-007/healthally/pkg/domain"
)

const (
	defaultJWTIssuer   = "healthally"
	defaultJWTAudience = "healthally-api"
	minJWTSecretLen    = 32
)

var defaultJWTLeeway = 30 * time.Second

// JWTOptions configures JWT claim validation behavior.
type JWTOptions struct {
	Issuer   string
	Audience string
	Leeway   time.Duration
}

type sessionClaims struct {
	Kind     domain.SessionKind `json:"kind"`
	Username string             `json:"username,omitempty"`
	jwt.RegisteredClaims
}

// JWTSessionStore issues HS256 tokens. Logout and subject revocation go through the revoker.
type JWTSessionStore struct {
	secret   []byte
	ttl      time.Duration
	revoker  TokenRevoker
	issuer   string
	audience string
	leeway   time.Duration
}

func NewJWTSessionStore(secret string, ttl time.Duration, revoker TokenRevoker, opts JWTOptions) (*JWTSessionStore, error) {
	if len(secret) < minJWTSecretLen {
		return nil, errors.New("jwt secret must be at least 32 bytes")
	}
	if revoker == nil {
		revoker = NewMemoryTokenRevoker()
	}
	opts = normalizeJWTOptions(opts)
	return &JWTSessionStore{
		secret:   []byte(secret),
		ttl:      ttl,
		revoker:  revoker,
		issuer:   opts.Issuer,
		audience: opts.Audience,
		leeway:   opts.Leeway,
	}, nil
}

func (s *JWTSessionStore) NewSession(_ context.Context, sess domain.Session) (string, error) {
	if err := validateSession(sess); err != nil {
		return "", err
	}
	now := time.Now().UTC()
	claims := sessionClaims{
		Kind:     sess.Kind,
		Username: sess.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sess.SubjectID,
			Issuer:    s.issuer,
			Audience:  jwt.ClaimStrings{s.audience},
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ID:        util.RandomHex(12),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Lookup treats any parse or validation failure as an unknown token. Revocation
// backend errors are returned.
func (s *JWTSessionStore) Lookup(ctx context.Context, token string) (domain.Session, bool, error) {
	claims, err := s.parseAndVerify(token)
	if err != nil {
		return domain.Session{}, false, nil
	}
	revoked, err := s.revoker.IsRevoked(ctx, claims.ID)
	if err != nil {
		return domain.Session{}, false, err
	}
	if revoked {
		return domain.Session{}, false, nil
	}
	cutoff, err := s.revoker.RevokedBefore(ctx, subjectKey(claims.Kind, claims.Subject))
	if err != nil {
		return domain.Session{}, false, err
	}
	// IssuedAt has second precision; a token minted in the same second as a
	// revocation is treated as revoked.
	if !cutoff.IsZero() && !claims.IssuedAt.Time.After(cutoff.Truncate(time.Second)) {
		return domain.Session{}, false, nil
	}
	return domain.Session{
		Token:     token,
		Kind:      claims.Kind,
		SubjectID: claims.Subject,
		Username:  claims.Username,
	}, true, nil
}

// DeleteSession revokes the token id until the token expires.
func (s *JWTSessionStore) DeleteSession(ctx context.Context, token string) error {
	claims, err := s.parseAndVerify(token)
	if err != nil {
		return nil
	}
	return s.revoker.Revoke(ctx, claims.ID, time.Until(claims.ExpiresAt.Time))
}

func (s *JWTSessionStore) RevokeSubject(ctx context.Context, kind domain.SessionKind, subjectID string) error {
	return s.revoker.RevokeSubject(ctx, subjectKey(kind, subjectID), time.Now().UTC())
}

func (s *JWTSessionStore) parseAndVerify(token string) (*sessionClaims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvalidSession
	}
	claims := &sessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(s.leeway),
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
	)
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidSession
	}
	if claims.ID == "" || claims.Subject == "" || claims.IssuedAt == nil {
		return nil, ErrInvalidSession
	}
	if claims.Kind != domain.SessionUser && claims.Kind != domain.SessionAdmin {
		return nil, ErrInvalidSession
	}
	return claims, nil
}

func normalizeJWTOptions(opts JWTOptions) JWTOptions {
	opts.Issuer = strings.TrimSpace(opts.Issuer)
	opts.Audience = strings.TrimSpace(opts.Audience)
	if opts.Issuer == "" {
		opts.Issuer = defaultJWTIssuer
	}
	if opts.Audience == "" {
		opts.Audience = defaultJWTAudience
	}
	if opts.Leeway <= 0 {
		opts.Leeway = defaultJWTLeeway
	}
	return opts
}
