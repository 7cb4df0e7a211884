package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yaseenp24/Healthcare-Agent/internal/api/router"
	"github.com/yaseenp24/Healthcare-Agent/internal/app/bootstrap"
	appconfig "github.com/yaseenp24/Healthcare-Agent/internal/config"
	"github.com/yaseenp24/Healthcare-Agent/internal/conversation"
	httpmiddleware "github.com/yaseenp24/Healthcare-Agent/internal/http/middleware"
	"github.com/yaseenp24/Healthcare-Agent/internal/webchat"
	"github.com/yaseenp24/Healthcare-Agent/pkg/logging"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Load configuration
	cfg := appconfig.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	logger := logging.NewWithWriter(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	logger.Info("starting healthcare agent API server",
		"env", cfg.Env,
		"port", cfg.Port,
		"llm_provider", cfg.LLMProvider,
		"session_backend", cfg.SessionBackend,
	)

	app, err := bootstrap.Build(context.Background(), cfg, logger, bootstrap.Deps{})
	if err != nil {
		logger.Error("failed to build chat service", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	r := router.New(routerConfig(cfg, app, logger, prometheus.DefaultGatherer))

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.LLMTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}

func routerConfig(cfg *appconfig.Config, app *bootstrap.App, logger *logging.Logger, gatherer prometheus.Gatherer) *router.Config {
	var limiter *httpmiddleware.RateLimiter
	if cfg.RateLimitRPS > 0 {
		limiter = httpmiddleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	}
	return &router.Config{
		Logger:              logger,
		ConversationHandler: conversation.NewHandler(app.Service, logger, cfg.Env == "production"),
		WebChat:             webchat.NewHandler(app.Service, logger),
		MetricsHandler:      promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}),
		CORSAllowedOrigins:  cfg.CORSAllowedOrigins,
		RateLimiter:         limiter,
		HealthChecks:        app.HealthChecks(),
	}
}
