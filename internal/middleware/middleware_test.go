package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"ourfish-bknd/internal/auth"
)

type fakeVerifier map[string]*auth.Claims

func (f fakeVerifier) VerifyToken(token string) (*auth.Claims, error) {
	if c, ok := f[token]; ok {
		return c, nil
	}
	return nil, auth.ErrInvalidToken
}

type fakeVersions struct {
	current int
	err     error
}

func (f fakeVersions) CheckTokenVersion(_ context.Context, _ string, v int) (bool, error) {
	return v == f.current, f.err
}

func TestJWTAuth(t *testing.T) {
	verifier := fakeVerifier{
		"good":    {UserID: "u1", Kind: auth.AccessToken, TokenVersion: 2, JTI: "j"},
		"old":     {UserID: "u1", Kind: auth.AccessToken, TokenVersion: 1, JTI: "j"},
		"refresh": {UserID: "u1", Kind: auth.RefreshToken, TokenVersion: 2, JTI: "j"},
	}
	var seen string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { seen = UserID(r.Context()) })

	tests := []struct {
		name   string
		header string
		errDB  error
		want   int
	}{
		{"ok", "Bearer good", nil, http.StatusOK},
		{"missing", "", nil, http.StatusUnauthorized},
		{"no bearer", "good", nil, http.StatusUnauthorized},
		{"bad token", "Bearer nope", nil, http.StatusUnauthorized},
		{"revoked version", "Bearer old", nil, http.StatusUnauthorized},
		{"refresh token", "Bearer refresh", nil, http.StatusUnauthorized},
		{"db error", "Bearer good", errors.New("down"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = ""
			mw := NewAuthMiddleware(verifier, fakeVersions{current: 2, err: tt.errDB}, zap.NewNop())
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			mw.JWTAuth(next).ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
			if tt.want == http.StatusOK && seen != "u1" {
				t.Errorf("user id in context = %q", seen)
			}
		})
	}
}

func TestSessionKeys(t *testing.T) {
	var key string
	h := Session(time.Hour)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key = SessionKey(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != SessionCookie {
		t.Fatalf("cookies = %v", cookies)
	}
	if !strings.HasPrefix(key, "anon:") {
		t.Errorf("anonymous key = %q", key)
	}

	// the same cookie maps to the same session
	first := key
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	h.ServeHTTP(httptest.NewRecorder(), req)
	if key != first {
		t.Errorf("key = %q, want %q", key, first)
	}

	// an authenticated user is keyed by id
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(context.WithValue(req.Context(), ContextUserIDKey, "u1"))
	h.ServeHTTP(httptest.NewRecorder(), req)
	if key != "user:u1" {
		t.Errorf("user key = %q", key)
	}
}

func TestRequestLoggerPassesThrough(t *testing.T) {
	h := RequestLogger(zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	if rec.Code != http.StatusTeapot {
		t.Errorf("status = %d", rec.Code)
	}
}
