package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gusesba/renova-web/internal/remote"
	"github.com/gusesba/renova-web/internal/session"
	"github.com/gusesba/renova-web/internal/utils"
)

type contextKey string

const (
	tokenContextKey   = contextKey("token")
	sessionContextKey = contextKey("session")

	LoginPath = "/auth"
)

// ValidToken reports whether raw is a well-formed JWT that has not expired
// at now. The signature is checked by the API, not here. A token without an
// exp claim never expires.
func ValidToken(raw string, now time.Time) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil {
		return false
	}
	return exp == nil || !exp.Before(now)
}

func Token(r *http.Request) string {
	token, _ := r.Context().Value(tokenContextKey).(string)
	return token
}

func SetSession(r *http.Request, s *session.Session) *http.Request {
	ctx := context.WithValue(r.Context(), sessionContextKey, s)
	return r.WithContext(ctx)
}

func GetSession(r *http.Request) *session.Session {
	s, ok := r.Context().Value(sessionContextKey).(*session.Session)
	if !ok {
		panic("missing session in request")
	}
	return s
}

type AuthMiddleware struct {
	Sessions *session.Manager
	Logger   *slog.Logger
	Now      func() time.Time
}

func (am *AuthMiddleware) now() time.Time {
	if am.Now != nil {
		return am.Now()
	}
	return time.Now()
}

// RequireToken sends the browser to the login page unless the request
// carries an unexpired token cookie.
func (am *AuthMiddleware) RequireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(remote.TokenCookieName)
		if err != nil || cookie.Value == "" {
			utils.Redirect(w, r, LoginPath)
			return
		}
		if !ValidToken(cookie.Value, am.now()) {
			am.Logger.Debug("rejecting token", "path", r.URL.Path)
			utils.Redirect(w, r, LoginPath)
			return
		}
		ctx := context.WithValue(r.Context(), tokenContextKey, cookie.Value)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// AttachSession loads the server-side session for the browser, starting a
// new one when there is none or when it belongs to another token.
func (am *AuthMiddleware) AttachSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := Token(r)

		var s *session.Session
		if cookie, err := r.Cookie(session.CookieName); err == nil {
			if found, ok := am.Sessions.Get(cookie.Value); ok {
				if found.Token() == token {
					s = found
				} else {
					am.Sessions.Delete(found.ID)
				}
			}
		}
		if s == nil {
			s = am.Sessions.Create(token)
			http.SetCookie(w, &http.Cookie{
				Name:     session.CookieName,
				Value:    s.ID,
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteStrictMode,
				Secure:   isSecure(r),
			})
		}

		next.ServeHTTP(w, SetSession(r, s))
	})
}
