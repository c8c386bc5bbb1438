// Package main is the entry point for the Packsync API server.
// Its sole responsibility is wiring dependencies together and starting the server.
// No business logic belongs here.
package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib" // registers "pgx" driver for database/sql

	"github.com/packsync/packsync/internal/blob"
	"github.com/packsync/packsync/internal/config"
	"github.com/packsync/packsync/internal/docstore"
	"github.com/packsync/packsync/internal/handler"
	"github.com/packsync/packsync/internal/middleware"
	"github.com/packsync/packsync/internal/repo"
	"github.com/packsync/packsync/internal/service"
	"github.com/packsync/packsync/migrations"
)

func main() {
	// --- Config -----------------------------------------------------------
	cfg, err := config.Load()
	if err != nil {
		// Use the default logger before ours is configured.
		slog.Error("configuration error", "error", err)
		os.Exit(1)
	}

	// --- Logger -----------------------------------------------------------
	var logLevel slog.Level
	if err := logLevel.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	ctx := context.Background()

	// --- Migrations -------------------------------------------------------
	// goose works on database/sql, so it gets its own short-lived handle.
	if cfg.MigrateOnStart {
		if err := migrate(ctx, cfg.DatabaseURL); err != nil {
			slog.Error("failed to apply migrations", "error", err)
			os.Exit(1)
		}
	}

	// --- Database ---------------------------------------------------------
	// New() does not open connections immediately; the first query does.
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to create database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	// Verify the DB is reachable before accepting traffic.
	if err := pool.Ping(ctx); err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	slog.Info("database connection established")

	// --- Blob storage -----------------------------------------------------
	blobs, err := blob.NewS3Store(ctx, blob.S3Config{
		Endpoint:  cfg.S3.Endpoint,
		Region:    cfg.S3.Region,
		Bucket:    cfg.S3.Bucket,
		AccessKey: cfg.S3.AccessKey,
		SecretKey: cfg.S3.SecretKey,
	})
	if err != nil {
		slog.Error("failed to configure blob storage", "error", err)
		os.Exit(1)
	}

	// --- Services ---------------------------------------------------------
	// Live change signals are in-process, so every writer must go through
	// this one Live instance.
	docs := docstore.NewLive(docstore.NewPostgresStore(pool), logger)
	accountRepo := repo.NewAccountRepo(pool)

	accounts := service.NewAccountService(accountRepo, docs, cfg.JWTSecret, cfg.TokenTTL)
	server := handler.NewServer(
		accounts,
		service.NewDocumentService(docs, accountRepo),
		service.NewBlobService(blobs),
		logger,
	)

	// --- Router -----------------------------------------------------------
	// Middleware is applied in order: RequestID → RealIP → Logger → Recoverer
	// → CORS → body limit. The bearer middleware is added per route group.
	h := server.Handler(
		chimiddleware.RequestID,
		chimiddleware.RealIP,
		middleware.NewSlogLogger(logger),
		chimiddleware.Recoverer,
		middleware.NewCORSHandler(cfg.CORSOrigins),
		middleware.NewMaxBodySizeHandler(middleware.BodyLimits{
			Default:    cfg.MaxDocumentBytes,
			BlobPrefix: "/v1/blobs/",
			Blob:       cfg.MaxBodyBytes,
		}),
	)

	// --- HTTP Server ------------------------------------------------------
	// No WriteTimeout: live-query websockets stay open indefinitely and do
	// their own write deadlines.
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Graceful shutdown: wait for OS signal, then give in-flight requests
	// up to 15 seconds to complete before forcefully closing.
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-stop
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

func migrate(ctx context.Context, dsn string) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	n, err := migrations.Up(ctx, db)
	if err != nil {
		return err
	}
	slog.Info("migrations applied", "count", n)
	return nil
}
