package services

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"go.uber.org/zap"

	"ourfish-bknd/internal/auth"
	"ourfish-bknd/internal/config"
	"ourfish-bknd/internal/database"
	"ourfish-bknd/internal/logger"
	"ourfish-bknd/internal/models"
)

func TestStripDomain(t *testing.T) {
	tests := []struct {
		user, domain, want string
	}{
		{"jdoe@RARE.ORG", "rare.org", "jdoe"},
		{" jdoe ", "rare.org", "jdoe"},
		{"jdoe@other.org", "rare.org", "jdoe@other.org"},
		{"jdoe@rare.org", "", "jdoe@rare.org"},
	}
	for _, tt := range tests {
		if got := stripDomain(tt.user, tt.domain); got != tt.want {
			t.Errorf("stripDomain(%q, %q) = %q, want %q", tt.user, tt.domain, got, tt.want)
		}
	}
}

func TestPasswordHash(t *testing.T) {
	hash, err := HashPassword("s3cret")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if ComparePassword(hash, "s3cret") != nil {
		t.Errorf("correct password rejected")
	}
	if ComparePassword(hash, "wrong") == nil {
		t.Errorf("wrong password accepted")
	}
}

// authSchema mirrors the Postgres auth tables with SQLite types.
var authSchema = []string{
	`CREATE TABLE users (
		id TEXT PRIMARY KEY,
		email TEXT UNIQUE,
		password_hash TEXT,
		token_version INTEGER NOT NULL DEFAULT 0,
		roles TEXT,
		provider TEXT,
		name TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		last_login_at TIMESTAMP
	)`,
	`CREATE TABLE refresh_tokens (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		jti TEXT NOT NULL,
		token_hash TEXT NOT NULL,
		device_info TEXT,
		revoked BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMP,
		expires_at TIMESTAMP
	)`,
}

const (
	testEmail    = "ana@rare.org"
	testPassword = "s3cret"
)

type authFixture struct {
	svc  *AuthService
	db   *bun.DB
	jwt  *auth.JWTManager
	user models.User
}

func newAuthFixture(t *testing.T) authFixture {
	t.Helper()
	ctx := context.Background()

	db, err := database.NewSQLite(":memory:", nil)
	if err != nil {
		t.Fatalf("NewSQLite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	for _, stmt := range authSchema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			t.Fatalf("create schema: %v", err)
		}
	}

	hash, err := HashPassword(testPassword)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	u := models.User{
		ID:           uuid.New(),
		Email:        testEmail,
		PasswordHash: hash,
		Roles:        []string{"analyst"},
		Provider:     "local",
		Name:         "Ana",
	}
	if _, err := db.NewInsert().Model(&u).Exec(ctx); err != nil {
		t.Fatalf("insert user: %v", err)
	}
	// a directory account with no local password
	ldapUser := models.User{ID: uuid.New(), Email: "dir@rare.org", Provider: "ldap", Name: "Dir"}
	if _, err := db.NewInsert().Model(&ldapUser).Exec(ctx); err != nil {
		t.Fatalf("insert ldap user: %v", err)
	}

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	jwtMgr := auth.NewJWTManagerFromKeys(key, &key.PublicKey)
	cfg := &config.Config{AccessTokenTTL: time.Minute, RefreshTokenTTL: time.Hour}

	return authFixture{
		svc:  NewAuthService(db, jwtMgr, cfg, &logger.Logger{Logger: zap.NewNop()}),
		db:   db,
		jwt:  jwtMgr,
		user: u,
	}
}

func (f authFixture) liveTokens(t *testing.T) int {
	t.Helper()
	n, err := f.db.NewSelect().Model((*models.RefreshToken)(nil)).
		Where("user_id = ? AND revoked = false", f.user.ID).
		Count(context.Background())
	if err != nil {
		t.Fatalf("count tokens: %v", err)
	}
	return n
}

func TestLoginLocal(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		email    string
		password string
		wantErr  error
		wantPair bool
	}{
		{"valid", testEmail, testPassword, nil, true},
		{"email case folded", "ANA@rare.org", testPassword, nil, true},
		{"wrong password", testEmail, "nope", ErrInvalidCredentials, false},
		{"unknown email", "bob@rare.org", testPassword, ErrInvalidCredentials, false},
		{"no local password", "dir@rare.org", "anything", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pair, info, err := f.svc.LoginLocal(ctx, tt.email, tt.password, "test")
			if !tt.wantPair {
				if err == nil {
					t.Fatalf("err = nil, want failure")
				}
				if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("LoginLocal: %v", err)
			}
			if info.ID != f.user.ID.String() || info.Provider != "local" {
				t.Errorf("user info = %+v", info)
			}
			claims, err := f.jwt.VerifyToken(pair.AccessToken)
			if err != nil || claims.UserID != f.user.ID.String() || claims.Kind != auth.AccessToken {
				t.Errorf("access claims = %+v, err %v", claims, err)
			}
		})
	}
}

func TestLoginKeepsNewestSessions(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	var last string
	for i := 0; i < maxSessionsPerUser+2; i++ {
		pair, _, err := f.svc.LoginLocal(ctx, testEmail, testPassword, "test")
		if err != nil {
			t.Fatalf("login %d: %v", i, err)
		}
		last = pair.RefreshToken
	}
	if got := f.liveTokens(t); got != maxSessionsPerUser {
		t.Errorf("live tokens = %d, want %d", got, maxSessionsPerUser)
	}
	if _, err := f.svc.Refresh(ctx, last, "test"); err != nil {
		t.Errorf("newest token rejected: %v", err)
	}
}

func TestRefreshRotatesToken(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	first, _, err := f.svc.LoginLocal(ctx, testEmail, testPassword, "test")
	if err != nil {
		t.Fatalf("LoginLocal: %v", err)
	}

	second, err := f.svc.Refresh(ctx, first.RefreshToken, "test")
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if second.RefreshToken == first.RefreshToken || second.JTI == first.JTI {
		t.Fatalf("refresh returned the same token")
	}

	if _, err := f.svc.Refresh(ctx, first.RefreshToken, "test"); !errors.Is(err, ErrTokenRevoked) {
		t.Errorf("reused token: err = %v, want %v", err, ErrTokenRevoked)
	}
	if _, err := f.svc.Refresh(ctx, second.RefreshToken, "test"); err != nil {
		t.Errorf("rotated token rejected: %v", err)
	}
	if _, err := f.svc.Refresh(ctx, first.AccessToken, "test"); !errors.Is(err, auth.ErrInvalidToken) {
		t.Errorf("access token accepted for refresh: err = %v", err)
	}
}

func TestRefreshFailsWhenRevokeFails(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	pair, _, err := f.svc.LoginLocal(ctx, testEmail, testPassword, "test")
	if err != nil {
		t.Fatalf("LoginLocal: %v", err)
	}
	if _, err := f.db.ExecContext(ctx, `
		CREATE TRIGGER refuse_revoke BEFORE UPDATE OF revoked ON refresh_tokens
		BEGIN SELECT RAISE(ABORT, 'revoke refused'); END`); err != nil {
		t.Fatalf("create trigger: %v", err)
	}

	for i := 0; i < 2; i++ {
		next, err := f.svc.Refresh(ctx, pair.RefreshToken, "test")
		if err == nil || next != nil {
			t.Fatalf("refresh %d: pair=%v err=%v, want failure", i, next != nil, err)
		}
	}
	// the rolled back transaction stored no new token
	if got := f.liveTokens(t); got != 1 {
		t.Errorf("live tokens = %d, want 1", got)
	}
}

func TestLogout(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	pair, _, err := f.svc.LoginLocal(ctx, testEmail, testPassword, "test")
	if err != nil {
		t.Fatalf("LoginLocal: %v", err)
	}

	tests := []struct {
		name    string
		token   string
		wantErr error
		live    int
	}{
		{"access token rejected", pair.AccessToken, auth.ErrInvalidToken, 1},
		{"garbage rejected", "not-a-jwt", auth.ErrInvalidToken, 1},
		{"refresh token revoked", pair.RefreshToken, nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := f.svc.Logout(ctx, tt.token)
			if tt.wantErr == nil && err != nil {
				t.Fatalf("Logout: %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if got := f.liveTokens(t); got != tt.live {
				t.Errorf("live tokens = %d, want %d", got, tt.live)
			}
		})
	}

	if _, err := f.svc.Refresh(ctx, pair.RefreshToken, "test"); !errors.Is(err, ErrTokenRevoked) {
		t.Errorf("refresh after logout: err = %v, want %v", err, ErrTokenRevoked)
	}
}

func TestCheckTokenVersion(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	if _, err := f.db.NewUpdate().Model((*models.User)(nil)).
		Set("token_version = ?", 3).
		Where("id = ?", f.user.ID).
		Exec(ctx); err != nil {
		t.Fatalf("bump version: %v", err)
	}

	tests := []struct {
		name    string
		userID  string
		version int
		want    bool
	}{
		{"current version", f.user.ID.String(), 3, true},
		{"stale version", f.user.ID.String(), 2, false},
		{"unknown user", uuid.New().String(), 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.svc.CheckTokenVersion(ctx, tt.userID, tt.version)
			if err != nil {
				t.Fatalf("CheckTokenVersion: %v", err)
			}
			if got != tt.want {
				t.Errorf("CheckTokenVersion = %v, want %v", got, tt.want)
			}
		})
	}
}
