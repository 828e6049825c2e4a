package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gusesba/renova-web/internal/middleware"
	"github.com/gusesba/renova-web/internal/remote"
	"github.com/gusesba/renova-web/internal/session"
	"github.com/gusesba/renova-web/internal/store"
	"github.com/gusesba/renova-web/internal/utils"
	"github.com/gusesba/renova-web/internal/views"
)

const defaultViewTimeout = 5 * time.Second

// GridOptions are the defaults every grid of a session is built with.
type GridOptions struct {
	PageSize          int
	Debounce          time.Duration
	DeleteConcurrency int
	// ViewTimeout bounds how long a request waits for a grid to settle
	// before the loading state is rendered instead.
	ViewTimeout time.Duration
}

type WebHandler struct {
	authStore store.AuthStore
	sessions  *session.Manager
	grids     map[string]gridDef
	options   GridOptions
	renderer  *views.Renderer
	logger    *slog.Logger
	now       func() time.Time
}

func NewWebHandler(
	authStore store.AuthStore,
	sessions *session.Manager,
	options GridOptions,
	logger *slog.Logger,
) *WebHandler {
	if options.ViewTimeout <= 0 {
		options.ViewTimeout = defaultViewTimeout
	}
	return &WebHandler{
		authStore: authStore,
		sessions:  sessions,
		grids:     gridCatalog(),
		options:   options,
		renderer:  views.NewRenderer(),
		logger:    logger,
		now:       time.Now,
	}
}

func (h *WebHandler) pageData(r *http.Request, title, active string) map[string]any {
	return map[string]any{
		"Title":  title,
		"Active": active,
		"CSRF":   middleware.CSRFToken(r),
		"Nav":    true,
	}
}

// handleAPIError answers a failed call to the API. It reports whether err
// was handled: a rejected session is sent back to the login page.
func (h *WebHandler) handleAPIError(w http.ResponseWriter, r *http.Request, err error) bool {
	if !remote.IsUnauthorized(err) {
		return false
	}
	h.logger.Info("api rejected session, signing out")
	h.endSession(w, r)
	utils.Redirect(w, r, middleware.LoginPath)
	return true
}

func (h *WebHandler) HandleHome(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/main/clientes", http.StatusSeeOther)
}

func (h *WebHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	utils.OK(w, http.StatusOK, utils.Envelope{"status": "ok", "sessions": h.sessions.Len()}, "")
}
