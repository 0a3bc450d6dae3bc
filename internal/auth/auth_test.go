package auth

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("correct horse battery")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	if hash == "correct horse battery" {
		t.Fatal("hash equals plaintext")
	}

	if err := CheckPassword(hash, "correct horse battery"); err != nil {
		t.Errorf("check with right password: %v", err)
	}
	if err := CheckPassword(hash, "wrong password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("check with wrong password: got %v, want ErrInvalidCredentials", err)
	}
}

func TestHashPasswordRejectsWeak(t *testing.T) {
	if _, err := HashPassword("short"); !errors.Is(err, ErrWeakPassword) {
		t.Errorf("got %v, want ErrWeakPassword", err)
	}
	if err := ValidatePassword("1234567"); !errors.Is(err, ErrWeakPassword) {
		t.Errorf("7 chars: got %v, want ErrWeakPassword", err)
	}
	if err := ValidatePassword("12345678"); err != nil {
		t.Errorf("8 chars: %v", err)
	}
}

func TestTokenRoundTrip(t *testing.T) {
	m := NewTokenManager(strings.Repeat("k", 32), time.Hour)

	token, err := m.Generate(42, "alice")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	claims, err := m.Validate(token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.UserID != 42 || claims.Username != "alice" {
		t.Errorf("claims = %d/%q, want 42/alice", claims.UserID, claims.Username)
	}
	if claims.ID == "" {
		t.Error("token ID not set")
	}
}

func TestTokenUniqueIDs(t *testing.T) {
	m := NewTokenManager(strings.Repeat("k", 32), time.Hour)
	a, err := m.Generate(1, "alice")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	b, err := m.Generate(1, "alice")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	ca, _ := m.Validate(a)
	cb, _ := m.Validate(b)
	if ca.ID == cb.ID {
		t.Error("two sessions share a token ID")
	}
}

func TestTokenRejectsExpired(t *testing.T) {
	m := NewTokenManager(strings.Repeat("k", 32), -time.Minute)
	token, err := m.Generate(1, "alice")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := m.Validate(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("got %v, want ErrInvalidToken", err)
	}
}

func TestTokenRejectsWrongKey(t *testing.T) {
	m := NewTokenManager(strings.Repeat("k", 32), time.Hour)
	other := NewTokenManager(strings.Repeat("x", 32), time.Hour)

	token, err := m.Generate(1, "alice")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := other.Validate(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("got %v, want ErrInvalidToken", err)
	}
}

func TestTokenRejectsGarbage(t *testing.T) {
	m := NewTokenManager(strings.Repeat("k", 32), time.Hour)
	if _, err := m.Validate("not.a.token"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("got %v, want ErrInvalidToken", err)
	}
}
