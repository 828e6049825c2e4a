package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gusesba/renova-web/internal/middleware"
	"github.com/gusesba/renova-web/internal/remote"
	"github.com/gusesba/renova-web/internal/session"
	"github.com/gusesba/renova-web/internal/store"
	"github.com/gusesba/renova-web/internal/utils"
)

func secureRequest(r *http.Request) bool {
	return r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https"
}

func clearCookie(w http.ResponseWriter, r *http.Request, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Path:     "/",
		SameSite: http.SameSiteStrictMode,
		Secure:   secureRequest(r),
	})
}

// tokenExpiry reads the exp claim of token, zero when there is none.
func tokenExpiry(token string) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}

func (h *WebHandler) HandleShowLogin(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(remote.TokenCookieName); err == nil && middleware.ValidToken(c.Value, h.now()) {
		http.Redirect(w, r, "/main", http.StatusSeeOther)
		return
	}
	h.renderLogin(w, r, http.StatusOK, "", "")
}

func (h *WebHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.logger.Error("parsing form", "error", err)
		h.renderLogin(w, r, http.StatusBadRequest, "", "Requisição inválida")
		return
	}

	email := r.FormValue("email")
	token, err := h.authStore.Login(r.Context(), store.Credentials{
		Email:    email,
		Password: r.FormValue("password"),
	})
	switch {
	case errors.Is(err, store.ErrInvalidCredentials):
		h.renderLogin(w, r, http.StatusUnauthorized, email, "Email ou senha inválidos")
		return
	case err != nil:
		h.logger.Error("logging in", "error", err)
		h.renderLogin(w, r, http.StatusBadGateway, email, "Não foi possível entrar. Tente novamente.")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     remote.TokenCookieName,
		Value:    token,
		Expires:  tokenExpiry(token),
		HttpOnly: true,
		Path:     "/",
		SameSite: http.SameSiteStrictMode,
		Secure:   secureRequest(r),
	})
	h.logger.Info("user signed in")
	utils.Redirect(w, r, "/main")
}

// endSession drops the server-side state of the browser and its cookies.
func (h *WebHandler) endSession(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(session.CookieName); err == nil {
		h.sessions.Delete(c.Value)
	}
	clearCookie(w, r, session.CookieName)
	clearCookie(w, r, remote.TokenCookieName)
}

func (h *WebHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	h.endSession(w, r)
	utils.Redirect(w, r, middleware.LoginPath)
}

func (h *WebHandler) renderLogin(w http.ResponseWriter, r *http.Request, status int, email, msg string) {
	data := map[string]any{
		"Title": "Login",
		"CSRF":  middleware.CSRFToken(r),
		"Email": email,
		"Error": msg,
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := h.renderer.Render(w, "login.html", data); err != nil {
		h.logger.Error("rendering login", "error", err)
	}
}
