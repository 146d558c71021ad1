package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestMemoryTokenRevokerSubjectCutoffMonotonic(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryTokenRevoker()
	first := time.Now().UTC().Add(-time.Minute)
	second := time.Now().UTC()

	if err := r.RevokeSubject(ctx, "user:1", first); err != nil {
		t.Fatalf("revoke first: %v", err)
	}
	if err := r.RevokeSubject(ctx, "user:1", first.Add(-time.Minute)); err != nil {
		t.Fatalf("revoke older: %v", err)
	}
	got, _ := r.RevokedBefore(ctx, "user:1")
	if !got.Equal(first) {
		t.Fatalf("expected first cutoff to be kept, got %v", got)
	}
	if err := r.RevokeSubject(ctx, "user:1", second); err != nil {
		t.Fatalf("revoke second: %v", err)
	}
	got, _ = r.RevokedBefore(ctx, "user:1")
	if !got.Equal(second) {
		t.Fatalf("expected newest cutoff, got %v", got)
	}
}

func TestMemoryTokenRevokerExpires(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryTokenRevoker()
	if err := r.Revoke(ctx, "jti-1", time.Hour); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if ok, _ := r.IsRevoked(ctx, "jti-1"); !ok {
		t.Fatalf("expected revoked")
	}
	if err := r.Revoke(ctx, "jti-2", 0); err != nil {
		t.Fatalf("revoke zero ttl: %v", err)
	}
	if ok, _ := r.IsRevoked(ctx, "jti-2"); ok {
		t.Fatalf("zero ttl should not revoke")
	}
}

func TestRedisTokenRevoker(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	r := NewRedisTokenRevoker(client, time.Hour)

	if err := r.Revoke(ctx, "jti-1", time.Minute); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if ok, err := r.IsRevoked(ctx, "jti-1"); err != nil || !ok {
		t.Fatalf("expected revoked, ok=%v err=%v", ok, err)
	}
	mr.FastForward(2 * time.Minute)
	if ok, _ := r.IsRevoked(ctx, "jti-1"); ok {
		t.Fatalf("revocation should expire with the token")
	}

	cutoff := time.UnixMilli(time.Now().UnixMilli()).UTC()
	if err := r.RevokeSubject(ctx, "user:1", cutoff); err != nil {
		t.Fatalf("revoke subject: %v", err)
	}
	if err := r.RevokeSubject(ctx, "user:1", cutoff.Add(-time.Hour)); err != nil {
		t.Fatalf("revoke older subject: %v", err)
	}
	got, err := r.RevokedBefore(ctx, "user:1")
	if err != nil {
		t.Fatalf("revoked before: %v", err)
	}
	if !got.Equal(cutoff) {
		t.Fatalf("expected %v, got %v", cutoff, got)
	}
	if got, _ := r.RevokedBefore(ctx, "user:2"); !got.IsZero() {
		t.Fatalf("unknown subject should have no cutoff")
	}
}
