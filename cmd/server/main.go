package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"

	"github.com/canopycrm/importer/internal/auth"
	"github.com/canopycrm/importer/internal/config"
	"github.com/canopycrm/importer/internal/db"
	"github.com/canopycrm/importer/internal/events"
	"github.com/canopycrm/importer/internal/export"
	"github.com/canopycrm/importer/internal/importer"
	"github.com/canopycrm/importer/internal/middleware"
	"github.com/canopycrm/importer/internal/repository"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	// Create context
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Load configuration
	cfg, err := config.Load(".")
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	// Setup database connection
	conn, err := db.NewConnection(ctx, cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer conn.Close()

	// Run migrations
	if err := db.RunMigrations(conn.Pool, cfg.Import.MigrationsPath); err != nil {
		logger.Fatalf("Failed to run migrations: %v", err)
	}

	// Create repositories
	attemptRepo := repository.NewImportAttemptRepository(conn.Pool)
	issueRepo := repository.NewImportIssueRepository(conn.Pool)
	recordStore := repository.NewRecordStore(conn.Pool)

	// Create services
	emitter := events.NewLogrusEmitter(logger)
	importService := importer.NewService(attemptRepo, issueRepo, recordStore, emitter)
	exportService := export.NewService(attemptRepo, issueRepo)

	fetcher := importer.NewFetcher()
	fetcher.MaxBytes = cfg.Import.MaxPayloadBytes

	verifier := auth.NewStaticVerifier(parseAuthTokens(logger, cfg.Server.AuthTokens))

	importHandler := importer.NewHTTPHandler(importService, fetcher, verifier, emitter, importer.Options{
		MaxPayloadBytes:   cfg.Import.MaxPayloadBytes,
		FetchTimeout:      cfg.Import.FetchTimeout,
		ProcessTimeout:    cfg.Import.ProcessTimeout,
		MaxResponseIssues: cfg.Import.MaxResponseIssues,
	})
	exportHandler := export.NewHTTPHandler(exportService)

	// Setup CORS
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
	})

	logging := middleware.LoggingMiddleware(logger)

	mux := http.NewServeMux()
	// The attempts prefix is longer, so it wins over the import prefix.
	mux.Handle("/api/imports/attempts", corsHandler.Handler(logging(exportHandler)))
	mux.Handle("/api/imports/attempts/", corsHandler.Handler(logging(exportHandler)))
	mux.Handle("/api/imports/", corsHandler.Handler(logging(importHandler)))

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      mux,
		ReadTimeout:  90 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Infof("Starting import server on %s", cfg.Server.Addr)

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatalf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited")
}

func parseAuthTokens(logger *logrus.Logger, raw map[string]string) map[string]uuid.UUID {
	tokens := make(map[string]uuid.UUID, len(raw))
	for token, userID := range raw {
		id, err := uuid.Parse(userID)
		if err != nil {
			logger.Warnf("Skipping auth token with invalid user id %q: %v", userID, err)
			continue
		}
		tokens[token] = id
	}
	return tokens
}
