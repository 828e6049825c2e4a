package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gusesba/renova-web/internal/app"
	"github.com/gusesba/renova-web/internal/config"
	"github.com/gusesba/renova-web/internal/routes"
	flag "github.com/spf13/pflag"
)

func main() {
	var (
		configPath string
		port       int
		apiURL     string
	)
	flag.StringVarP(&configPath, "config", "c", "", "path to a TOML config file")
	flag.IntVarP(&port, "port", "p", 0, "http server port (overrides config)")
	flag.StringVar(&apiURL, "api-url", "", "base url of the shop API (overrides config)")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading config: %v\n", err)
		os.Exit(1)
	}
	if flag.CommandLine.Changed("port") {
		cfg.Port = port
	}
	if flag.CommandLine.Changed("api-url") {
		cfg.APIBaseURL = apiURL
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	app, err := app.NewApplication(cfg, nil)
	if err != nil {
		panic(err)
	}
	defer app.Close()

	r := routes.SetupRoutes(app)
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			app.Logger.Error("shutting down server", "error", err)
		}
	}()

	app.Logger.Info("server started", "port", cfg.Port, "api", cfg.APIBaseURL, "env", cfg.Env)

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		app.Logger.Error("server stopped", "error", err)
	}
}
