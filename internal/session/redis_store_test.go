package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func setupTestRedis(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	s := miniredis.RunT(t)
	store, err := NewRedisStore("redis://" + s.Addr())
	if err != nil {
		t.Fatalf("failed to create redis store: %v", err)
	}
	return store, s
}

func TestSaveAndLookupRefreshSession(t *testing.T) {
	store, s := setupTestRedis(t)
	defer store.Close()
	defer s.Close()

	ctx := context.Background()
	record := Record{
		Email:       "jane.doe@firm.com",
		DisplayName: "Jane Doe",
		Permissions: "upload,admin",
	}

	if err := store.SaveRefreshSession(ctx, "hash-1", record, time.Now().Add(24*time.Hour)); err != nil {
		t.Fatalf("SaveRefreshSession failed: %v", err)
	}

	got, err := store.LookupRefreshSession(ctx, "hash-1")
	if err != nil {
		t.Fatalf("LookupRefreshSession failed: %v", err)
	}
	if got.Email != record.Email || got.DisplayName != record.DisplayName || got.Permissions != record.Permissions {
		t.Errorf("record mismatch: %+v", got)
	}
}

func TestLookupExpiredSession(t *testing.T) {
	store, s := setupTestRedis(t)
	defer store.Close()
	defer s.Close()

	ctx := context.Background()
	record := Record{Email: "jane.doe@firm.com"}

	if err := store.SaveRefreshSession(ctx, "expiring", record, time.Now().Add(10*time.Millisecond)); err != nil {
		t.Fatalf("SaveRefreshSession failed: %v", err)
	}

	s.FastForward(20 * time.Millisecond)

	if _, err := store.LookupRefreshSession(ctx, "expiring"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound for expired token, got %v", err)
	}
}

func TestLookupNonExistentSession(t *testing.T) {
	store, s := setupTestRedis(t)
	defer store.Close()
	defer s.Close()

	if _, err := store.LookupRefreshSession(context.Background(), "unknown"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestRevokeRefreshSession(t *testing.T) {
	store, s := setupTestRedis(t)
	defer store.Close()
	defer s.Close()

	ctx := context.Background()
	record := Record{Email: "jane.doe@firm.com"}

	if err := store.SaveRefreshSession(ctx, "revoke-me", record, time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("SaveRefreshSession failed: %v", err)
	}
	if err := store.RevokeRefreshSession(ctx, "revoke-me"); err != nil {
		t.Fatalf("RevokeRefreshSession failed: %v", err)
	}
	if _, err := store.LookupRefreshSession(ctx, "revoke-me"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound after revoke, got %v", err)
	}

	// Revoking an unknown token is a no-op
	if err := store.RevokeRefreshSession(ctx, "never-existed"); err != nil {
		t.Errorf("revoke of unknown token failed: %v", err)
	}
}

func TestSessionIsolation(t *testing.T) {
	store, s := setupTestRedis(t)
	defer store.Close()
	defer s.Close()

	ctx := context.Background()
	expires := time.Now().Add(time.Hour)

	if err := store.SaveRefreshSession(ctx, "t1", Record{Email: "a@firm.com"}, expires); err != nil {
		t.Fatalf("save t1: %v", err)
	}
	if err := store.SaveRefreshSession(ctx, "t2", Record{Email: "b@firm.com"}, expires); err != nil {
		t.Fatalf("save t2: %v", err)
	}

	if err := store.RevokeRefreshSession(ctx, "t1"); err != nil {
		t.Fatalf("revoke t1: %v", err)
	}

	if _, err := store.LookupRefreshSession(ctx, "t1"); err == nil {
		t.Error("t1 should be revoked")
	}
	got, err := store.LookupRefreshSession(ctx, "t2")
	if err != nil {
		t.Fatalf("t2 lookup failed: %v", err)
	}
	if got.Email != "b@firm.com" {
		t.Errorf("t2 record corrupted: %+v", got)
	}
}
