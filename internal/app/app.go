package app

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/gusesba/renova-web/internal/api"
	"github.com/gusesba/renova-web/internal/config"
	"github.com/gusesba/renova-web/internal/middleware"
	"github.com/gusesba/renova-web/internal/remote"
	"github.com/gusesba/renova-web/internal/session"
	"github.com/gusesba/renova-web/internal/store"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Application struct {
	Config     config.Config
	Logger     *slog.Logger
	WebHandler *api.WebHandler
	Middleware *middleware.AuthMiddleware
	Sessions   *session.Manager
}

// NewLogger writes JSON logs to stdout and, when cfg names a log file, to
// that file rotated by size.
func NewLogger(cfg config.Config) *slog.Logger {
	var w io.Writer = os.Stdout
	if cfg.LogFile != "" {
		logRotator := &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    100,
			MaxBackups: 5,
			MaxAge:     30,
			Compress:   true,
		}
		w = io.MultiWriter(os.Stdout, logRotator)
	}
	handlerOpts := &slog.HandlerOptions{
		Level: cfg.Level(),
	}
	return slog.New(slog.NewJSONHandler(w, handlerOpts))
}

func NewApplication(cfg config.Config, logger *slog.Logger) (*Application, error) {
	if logger == nil {
		logger = NewLogger(cfg)
		slog.SetDefault(logger)
	}

	httpClient := &http.Client{Timeout: cfg.RequestTimeout.Duration}
	apiClient, err := remote.NewClient(cfg.APIBaseURL, httpClient, nil, logger.With("component", "remote"))
	if err != nil {
		return nil, fmt.Errorf("creating api client: %w", err)
	}

	sessions := session.NewManager(apiClient, session.Options{
		MaxSessions: cfg.MaxSessions,
		TTL:         cfg.SessionTTL.Duration,
		Transport:   cfg.AuthTransport,
	}, logger)

	authStore := store.NewRemoteAuthStore(apiClient)
	webHandler := api.NewWebHandler(authStore, sessions, api.GridOptions{
		PageSize:          cfg.PageSize,
		Debounce:          cfg.FilterDebounce.Duration,
		DeleteConcurrency: cfg.DeleteConcurrency,
	}, logger)

	app := &Application{
		Config:     cfg,
		Logger:     logger,
		WebHandler: webHandler,
		Middleware: &middleware.AuthMiddleware{Sessions: sessions, Logger: logger},
		Sessions:   sessions,
	}

	return app, nil
}

// Close ends every session and the grids they own.
func (a *Application) Close() {
	a.Sessions.Close()
}
