package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/testero/testero-api/billing"
	"github.com/testero/testero-api/cliparse"
	"github.com/testero/testero-api/db"
	"github.com/testero/testero-api/middleware"
	"github.com/testero/testero-api/ratelimit"
	"github.com/testero/testero-api/router"
)

func main() {
	var err error

	// .env is optional
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to load .env", "error", err)
	}

	// Parse configuration
	cfg, err := cliparse.ParseFlags(os.Args[1:])
	if err != nil {
		slog.Error("Error parsing flags", "error", err)
		os.Exit(1)
	}

	// Connect to the database
	dbConn, err := db.Open(context.Background(), cfg.DatabaseType, cfg.DatabaseURL)
	if err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	defer dbConn.Close()

	// Create schema (tables)
	if err := db.CreateSchema(dbConn); err != nil {
		slog.Error("schema creation failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database schema ready", "type", cfg.DatabaseType)

	// Redis-backed limits are shared across instances
	var limiter ratelimit.Limiter
	if cfg.RedisURL != "" {
		redisLimiter, err := ratelimit.NewRedisLimiterFromURL(cfg.RedisURL)
		if err != nil {
			slog.Error("redis limiter setup failed", "error", err)
			os.Exit(1)
		}
		defer redisLimiter.Close()
		limiter = redisLimiter
		slog.Info("Rate limiting via redis")
	} else {
		limiter = ratelimit.NewLocalLimiter()
		slog.Info("Rate limiting in process")
	}

	checker, err := billing.NewChecker(dbConn, cfg.Billing)
	if err != nil {
		slog.Error("billing setup failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Billing enforcement", "mode", cfg.Billing)

	// Create router
	mux := router.NewRouter(dbConn, cfg, checker, limiter)

	// Create server
	server := http.Server{
		Handler:           middleware.CORS(mux),
		Addr:              ":" + strconv.Itoa(cfg.Port),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// signal.Notify requires the channel to be buffered
	ctrlc := make(chan os.Signal, 1)
	signal.Notify(ctrlc, os.Interrupt, syscall.SIGTERM)
	go func() {
		// Wait for Ctrl-C signal
		<-ctrlc
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			slog.Error("graceful shutdown failed", "error", err)
			server.Close()
		}
	}()

	// Start server
	slog.Info("Listening", "port", cfg.Port)
	err = server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		slog.Error("Server closed", "error", err)
	} else {
		slog.Info("Server closed", "error", err)
	}
}
