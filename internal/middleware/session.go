package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
)

const SessionCookie = "ourfish_session"

// Session resolves the dashboard session key for a request. Authenticated
// users are keyed by user id. Anonymous visitors get a random id in a cookie.
func Session(ttl time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var key string
			if uid := UserID(r.Context()); uid != "" {
				key = "user:" + uid
			} else {
				id := ""
				if c, err := r.Cookie(SessionCookie); err == nil {
					if parsed, err := uuid.Parse(c.Value); err == nil {
						id = parsed.String()
					}
				}
				if id == "" {
					id = uuid.New().String()
				}
				// refreshed on every request so the cookie outlives idle eviction
				http.SetCookie(w, &http.Cookie{
					Name:     SessionCookie,
					Value:    id,
					Path:     "/",
					Expires:  time.Now().Add(ttl),
					HttpOnly: true,
					SameSite: http.SameSiteLaxMode,
				})
				key = "anon:" + id
			}
			ctx := context.WithValue(r.Context(), ContextSessionKey, key)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionKey returns the key set by Session.
func SessionKey(ctx context.Context) string {
	key, _ := ctx.Value(ContextSessionKey).(string)
	return key
}
