package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"testing"
	"time"
)

func newTestManager(t *testing.T) *JWTManager {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	return NewJWTManagerFromKeys(key, &key.PublicKey)
}

func TestTokenPairRoundTrip(t *testing.T) {
	m := newTestManager(t)
	pair, err := m.GenerateTokenPair("user-1", time.Minute, time.Hour, 3, "local", []string{"analyst"})
	if err != nil {
		t.Fatalf("GenerateTokenPair: %v", err)
	}

	access, err := m.VerifyToken(pair.AccessToken)
	if err != nil {
		t.Fatalf("VerifyToken(access): %v", err)
	}
	if access.UserID != "user-1" || access.Kind != AccessToken || access.TokenVersion != 3 || access.Roles[0] != "analyst" {
		t.Errorf("access claims = %+v", access)
	}

	refresh, err := m.VerifyToken(pair.RefreshToken)
	if err != nil {
		t.Fatalf("VerifyToken(refresh): %v", err)
	}
	if refresh.Kind != RefreshToken || refresh.JTI != pair.JTI {
		t.Errorf("refresh claims = %+v, pair jti %s", refresh, pair.JTI)
	}
}

func TestVerifyRejectsForeignAndExpiredTokens(t *testing.T) {
	m := newTestManager(t)
	other := newTestManager(t)

	pair, _ := other.GenerateTokenPair("user-1", time.Minute, time.Hour, 0, "local", nil)
	if _, err := m.VerifyToken(pair.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("foreign token err = %v", err)
	}

	expired, _ := m.GenerateTokenPair("user-1", -time.Minute, -time.Minute, 0, "local", nil)
	if _, err := m.VerifyToken(expired.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expired token err = %v", err)
	}
}

func TestHashToken(t *testing.T) {
	if HashToken("a") == HashToken("b") || len(HashToken("a")) != 64 {
		t.Errorf("HashToken not a sha256 hex digest")
	}
}
