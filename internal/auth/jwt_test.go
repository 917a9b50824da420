package auth

import (
	"testing"
	"time"
)

func TestTokenRoundTrip(t *testing.T) {
	secret := "test-secret"

	token, err := NewAccessToken("user-123", secret, time.Hour)
	if err != nil {
		t.Fatalf("NewAccessToken() error = %v", err)
	}

	userID, err := ParseToken(token, secret)
	if err != nil {
		t.Fatalf("ParseToken() error = %v", err)
	}
	if userID != "user-123" {
		t.Errorf("ParseToken() = %q, want %q", userID, "user-123")
	}
}

func TestParseTokenRejects(t *testing.T) {
	secret := "test-secret"

	expired, err := NewAccessToken("user-123", secret, -time.Minute)
	if err != nil {
		t.Fatalf("NewAccessToken() error = %v", err)
	}

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-token"},
		{"expired", expired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseToken(tt.token, secret); err == nil {
				t.Error("ParseToken() error = nil, want error")
			}
		})
	}
}

func TestParseTokenWrongSecret(t *testing.T) {
	token, err := NewAccessToken("user-123", "one", time.Hour)
	if err != nil {
		t.Fatalf("NewAccessToken() error = %v", err)
	}
	if _, err := ParseToken(token, "two"); err == nil {
		t.Error("ParseToken() error = nil, want error")
	}
}

func TestPasswordHash(t *testing.T) {
	hash, err := HashPassword("hunter2")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	if !CheckPasswordHash("hunter2", hash) {
		t.Error("CheckPasswordHash() = false for correct password")
	}
	if CheckPasswordHash("wrong", hash) {
		t.Error("CheckPasswordHash() = true for wrong password")
	}
}
