package auth

import (
	"testing"
	"time"
)

func newTestManager() *Manager {
	return NewManager("test-secret-key", 15*time.Minute, 7*24*time.Hour)
}

func TestVerifyAccessToken(t *testing.T) {
	m := newTestManager()

	token, err := m.GenerateAccessToken("user-1", "a@example.com", "attendee")
	if err != nil {
		t.Fatalf("GenerateAccessToken error: %v", err)
	}

	claims, err := m.VerifyAccessToken(token)
	if err != nil {
		t.Fatalf("VerifyAccessToken error: %v", err)
	}

	if claims.UserID != "user-1" {
		t.Fatalf("expected user-1, got %s", claims.UserID)
	}
	if claims.Email != "a@example.com" {
		t.Fatalf("expected a@example.com, got %s", claims.Email)
	}
	if claims.Role != "attendee" {
		t.Fatalf("expected attendee, got %s", claims.Role)
	}
	if claims.TokenType != "access" {
		t.Fatalf("expected typ access, got %s", claims.TokenType)
	}
	if claims.JTI == "" {
		t.Fatalf("expected a jti")
	}
}

func TestVerifyAccessToken_RejectsRefreshToken(t *testing.T) {
	m := newTestManager()

	refresh, err := m.GenerateRefreshToken("user-1", "a@example.com", "attendee")
	if err != nil {
		t.Fatalf("GenerateRefreshToken error: %v", err)
	}

	if _, err := m.VerifyAccessToken(refresh); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken for refresh typ, got %v", err)
	}
}

func TestVerifyAccessToken_RejectsWrongSecret(t *testing.T) {
	m := newTestManager()
	other := NewManager("another-secret", 15*time.Minute, 7*24*time.Hour)

	token, err := other.GenerateAccessToken("user-1", "a@example.com", "attendee")
	if err != nil {
		t.Fatalf("GenerateAccessToken error: %v", err)
	}

	if _, err := m.VerifyAccessToken(token); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken for foreign signature, got %v", err)
	}
}

func TestVerifyAccessToken_RejectsGarbage(t *testing.T) {
	m := newTestManager()

	for _, raw := range []string{"", "not-a-jwt", "a.b.c"} {
		if _, err := m.VerifyAccessToken(raw); err != ErrInvalidToken {
			t.Fatalf("expected ErrInvalidToken for %q, got %v", raw, err)
		}
	}
}

func TestVerifyAccessToken_RejectsExpired(t *testing.T) {
	m := NewManager("test-secret-key", -1*time.Minute, 7*24*time.Hour)

	token, err := m.GenerateAccessToken("user-1", "a@example.com", "attendee")
	if err != nil {
		t.Fatalf("GenerateAccessToken error: %v", err)
	}

	if _, err := m.VerifyAccessToken(token); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken for expired token, got %v", err)
	}
}
